package router

import (
	"log"
	"net/http"
	"time"

	"github.com/diastore/api/internal/config"
	"github.com/diastore/api/internal/database"
	"github.com/diastore/api/internal/enum"
	"github.com/diastore/api/internal/handler"
	mw "github.com/diastore/api/internal/middleware"
	"github.com/diastore/api/internal/service"
	"github.com/diastore/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication, store scoping, and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",          // SvelteKit dev server
			"https://admin.diastore.id",      // Production dashboard
			"https://stg-admin.diastore.id",  // Staging dashboard
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})
	r.Method("GET", "/metrics", promhttp.Handler())

	// Auth routes (public, login brute-force limited per IP)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(10, time.Minute))
		authHandler.RegisterRoutes(r)
	})

	// WebSocket ledger feed (handles auth internally via query param)
	r.Get("/ws/stores/{sid}/ledger", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services own the multi-statement transactions; each gets a fresh
	// store bound to the tx it begins.
	salesService := service.NewSalesService(pool, func(db database.DBTX) service.SalesStore {
		return database.New(db)
	})
	cashflowService := service.NewCashflowService(pool, func(db database.DBTX) service.CashflowStore {
		return database.New(db)
	})
	piutangService := service.NewPiutangService(pool, func(db database.DBTX) service.PiutangStore {
		return database.New(db)
	})
	payrollService := service.NewPayrollService(pool, func(db database.DBTX) service.PayrollStore {
		return database.New(db)
	})
	customerResolver := service.NewCustomerResolver(queries)

	storeHandler := handler.NewStoreHandler(queries)
	userHandler := handler.NewUserHandler(queries)
	customerHandler := handler.NewCustomerHandler(queries, customerResolver)
	salesHandler := handler.NewSalesHandler(salesService, queries, hub)
	cashflowHandler := handler.NewCashflowHandler(cashflowService, queries, hub)
	piutangHandler := handler.NewPiutangHandler(piutangService, queries, hub)
	attendanceHandler := handler.NewAttendanceHandler(queries)
	payrollHandler := handler.NewPayrollHandler(payrollService, queries)
	reportHandler := handler.NewReportHandler(queries)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// User administration (owner only)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleOwner))
			r.Route("/users", userHandler.RegisterRoutes)
		})

		r.Route("/stores", func(r chi.Router) {
			// Store CRUD is back-office territory
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleAdministrasi))
				storeHandler.RegisterRoutes(r)
			})

			// Store-scoped operational routes
			r.Route("/{sid}", func(r chi.Router) {
				r.Use(mw.RequireStore)

				r.Route("/customers", customerHandler.RegisterStoreRoutes)
				r.Route("/sales", salesHandler.RegisterStoreRoutes)
				r.Route("/cashflow", cashflowHandler.RegisterStoreRoutes)
				r.Route("/piutang", piutangHandler.RegisterStoreRoutes)
				r.Route("/attendance", attendanceHandler.RegisterStoreRoutes)
				r.Route("/payroll", payrollHandler.RegisterStoreRoutes)
				r.Route("/reports", reportHandler.RegisterStoreRoutes)
			})
		})

		// Id-scoped routes: rows carry their own store, claims gate access
		// inside the handlers where it matters.
		r.Route("/customers", customerHandler.RegisterRoutes)
		r.Route("/sales", salesHandler.RegisterRoutes)
		r.Route("/cashflow", cashflowHandler.RegisterRoutes)
		r.Route("/piutang", func(r chi.Router) {
			piutangHandler.RegisterRoutes(r)

			// Administrative status correction
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleAdministrasi))
				piutangHandler.RegisterAdminRoutes(r)
			})
		})
		r.Route("/attendance", attendanceHandler.RegisterRoutes)
		r.Route("/payroll", payrollHandler.RegisterRoutes)
	})

	log.Println("Router initialized with all handlers")
	return r
}
