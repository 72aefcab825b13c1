package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, storeID uuid.UUID) *Client {
	return &Client{
		hub:     hub,
		storeID: storeID,
		send:    make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	storeID := uuid.New()
	client := mockClient(hub, storeID)

	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[storeID] == nil {
		t.Fatal("store room not created")
	}
	if !hub.rooms[storeID][client] {
		t.Fatal("client not registered in store room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	storeID := uuid.New()
	client := mockClient(hub, storeID)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Room should be cleaned up when empty
	if hub.rooms[storeID] != nil {
		t.Fatal("store room not cleaned up after last client unregistered")
	}
}

func TestBroadcastToSingleStore(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	store1 := uuid.New()
	store2 := uuid.New()

	client1 := mockClient(hub, store1)
	client2 := mockClient(hub, store2)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	// Broadcast to store1 only
	testPayload := json.RawMessage(`{"cashflow_id":"test-123"}`)
	event := Event{
		Type:    EventCashflowCreated,
		Payload: testPayload,
	}
	hub.BroadcastToStore(store1, event)

	// Check client1 receives the message
	select {
	case msg := <-client1.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != EventCashflowCreated {
			t.Errorf("expected type %q, got %q", EventCashflowCreated, received.Type)
		}
		if string(received.Payload) != string(testPayload) {
			t.Errorf("expected payload '%s', got '%s'", testPayload, received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client1 did not receive message")
	}

	// Check client2 does NOT receive the message
	select {
	case <-client2.send:
		t.Fatal("client2 should not have received message for different store")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestBroadcastToMultipleClientsInSameStore(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	storeID := uuid.New()
	client1 := mockClient(hub, storeID)
	client2 := mockClient(hub, storeID)
	client3 := mockClient(hub, storeID)

	hub.register <- client1
	hub.register <- client2
	hub.register <- client3
	time.Sleep(10 * time.Millisecond)

	testPayload := json.RawMessage(`{"status":"lunas"}`)
	event := Event{
		Type:    EventPiutangPayment,
		Payload: testPayload,
	}
	hub.BroadcastToStore(storeID, event)

	// All three clients should receive the message
	clients := []*Client{client1, client2, client3}
	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != EventPiutangPayment {
				t.Errorf("client%d: expected type %q, got %q", i+1, EventPiutangPayment, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestNotifyJSON(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	storeID := uuid.New()
	client := mockClient(hub, storeID)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.NotifyJSON(storeID, EventPiutangCreated, map[string]string{
		"piutang_id": "abc",
		"amount":     "500000.00",
	})

	select {
	case msg := <-client.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if received.Type != EventPiutangCreated {
			t.Errorf("type: got %q, want %q", received.Type, EventPiutangCreated)
		}
		var payload map[string]string
		if err := json.Unmarshal(received.Payload, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload["amount"] != "500000.00" {
			t.Errorf("amount: got %q, want 500000.00", payload["amount"])
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client did not receive message")
	}
}

func TestHubMultipleStoresIsolation(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	store1 := uuid.New()
	store2 := uuid.New()
	store3 := uuid.New()

	// Create 2 clients per store
	clients := map[uuid.UUID][]*Client{
		store1: {mockClient(hub, store1), mockClient(hub, store1)},
		store2: {mockClient(hub, store2), mockClient(hub, store2)},
		store3: {mockClient(hub, store3), mockClient(hub, store3)},
	}

	for _, clientList := range clients {
		for _, client := range clientList {
			hub.register <- client
		}
	}
	time.Sleep(10 * time.Millisecond)

	// Broadcast to store2 only
	event := Event{
		Type:    EventPiutangStatus,
		Payload: json.RawMessage(`{"store_id":"` + store2.String() + `"}`),
	}
	hub.BroadcastToStore(store2, event)

	// Only store2 clients should receive
	for storeID, clientList := range clients {
		for i, client := range clientList {
			select {
			case msg := <-client.send:
				if storeID != store2 {
					t.Fatalf("store %s client %d should not receive message", storeID, i)
				}
				var received Event
				if err := json.Unmarshal(msg, &received); err != nil {
					t.Fatalf("unmarshal error: %v", err)
				}
				if received.Type != EventPiutangStatus {
					t.Errorf("wrong event type: %s", received.Type)
				}
			case <-time.After(50 * time.Millisecond):
				if storeID == store2 {
					t.Fatalf("store2 client %d should have received message", i)
				}
				// Expected for other stores
			}
		}
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	storeID := uuid.New()
	client1 := mockClient(hub, storeID)
	client2 := mockClient(hub, storeID)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[storeID]) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(hub.rooms[storeID]))
	}
	hub.mu.RUnlock()

	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[storeID]) != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", len(hub.rooms[storeID]))
	}
	hub.mu.RUnlock()

	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if hub.rooms[storeID] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
	hub.mu.RUnlock()
}

func TestBroadcastToNonExistentStore(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	store1 := uuid.New()
	client1 := mockClient(hub, store1)
	hub.register <- client1
	time.Sleep(10 * time.Millisecond)

	// Broadcast to a store with no subscribers
	store2 := uuid.New()
	event := Event{
		Type:    EventCashflowCreated,
		Payload: json.RawMessage(`{"test":"data"}`),
	}
	hub.BroadcastToStore(store2, event)

	// client1 should NOT receive anything
	select {
	case <-client1.send:
		t.Fatal("client should not receive message for different store")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message
	}
}
