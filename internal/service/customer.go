package service

import (
	"context"
	"errors"
	"strings"

	"github.com/diastore/api/internal/database"
	"github.com/diastore/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrCustomerNotFound covers both missing customer rows and user ids that
// cannot act as virtual customers.
var ErrCustomerNotFound = errors.New("customer not found")

// VirtualCustomerPrefix marks customer ids that are projections of a
// users row rather than customers rows.
const VirtualCustomerPrefix = "user-"

// Roles whose users can hold receivables without a customer row.
var virtualCustomerRoles = map[string]bool{
	enum.UserRoleStaff:        true,
	enum.UserRoleManager:      true,
	enum.UserRoleAdministrasi: true,
}

// VirtualCustomerID builds the composite key for a user acting as a
// customer, e.g. the store manager holding QRIS proceeds.
func VirtualCustomerID(userID uuid.UUID) string {
	return VirtualCustomerPrefix + userID.String()
}

// CustomerProjection is a read-only customer view: either a persisted
// customers row or a virtual projection of a users row. Virtual
// projections are never stored.
type CustomerProjection struct {
	ID      string
	Name    string
	Phone   string
	StoreID *uuid.UUID
	Virtual bool
	Role    string // set for virtual customers only
}

// CustomerResolverStore defines the DB methods needed to resolve ids.
type CustomerResolverStore interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
}

type CustomerResolver struct {
	store CustomerResolverStore
}

func NewCustomerResolver(store CustomerResolverStore) *CustomerResolver {
	return &CustomerResolver{store: store}
}

// Resolve materializes a customer projection from either kind of id.
func (r *CustomerResolver) Resolve(ctx context.Context, id string) (*CustomerProjection, error) {
	if rest, ok := strings.CutPrefix(id, VirtualCustomerPrefix); ok {
		userID, err := uuid.Parse(rest)
		if err != nil {
			return nil, ErrCustomerNotFound
		}
		user, err := r.store.GetUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrCustomerNotFound
			}
			return nil, err
		}
		if !virtualCustomerRoles[user.Role] {
			return nil, ErrCustomerNotFound
		}
		proj := &CustomerProjection{
			ID:      VirtualCustomerID(user.ID),
			Name:    user.FullName,
			Virtual: true,
			Role:    user.Role,
		}
		if user.StoreID.Valid {
			sid := uuid.UUID(user.StoreID.Bytes)
			proj.StoreID = &sid
		}
		return proj, nil
	}

	customerID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrCustomerNotFound
	}
	customer, err := r.store.GetCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	proj := &CustomerProjection{
		ID:   customer.ID.String(),
		Name: customer.Name,
	}
	if customer.Phone.Valid {
		proj.Phone = customer.Phone.String
	}
	if customer.StoreID.Valid {
		sid := uuid.UUID(customer.StoreID.Bytes)
		proj.StoreID = &sid
	}
	return proj, nil
}
