// Package api exposes the ledgers, the dashboard and account management over
// a JSON HTTP API.
package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/ataa/internal/auth"
	"github.com/erazemk/ataa/internal/metrics"
	"github.com/erazemk/ataa/internal/model"
	"github.com/erazemk/ataa/internal/source"
	"github.com/erazemk/ataa/internal/store"
)

// Deps holds everything the handlers need.
type Deps struct {
	DB      *sql.DB
	Tokens  *auth.Tokens
	Ledgers store.Ledgers
	// Syncer is optional; without it the sync endpoints report 503.
	Syncer  *source.Syncer
	Metrics *metrics.Metrics
	// Region is the default region for phone number validation, e.g. "IQ".
	Region string
	Now    func() time.Time
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	v := newValidator(d.Region)

	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: d.DB, Tokens: d.Tokens}
	usersHandler := &UsersHandler{DB: d.DB}
	beneficiariesHandler := &BeneficiariesHandler{Registry: d.Ledgers.Registry, Distributions: d.Ledgers.Distributions, Validate: v, Now: d.Now}
	inventoryHandler := &InventoryHandler{DB: d.DB, Inventory: d.Ledgers.Inventory, Distributions: d.Ledgers.Distributions, Validate: v}
	distributionsHandler := &DistributionsHandler{Ledgers: d.Ledgers, Metrics: d.Metrics, Validate: v}
	dashboardHandler := &DashboardHandler{Ledgers: d.Ledgers, Syncer: d.Syncer, Now: d.Now}

	authMW := AuthMiddleware(d.Tokens, d.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireCoordinator := RequireRole(model.RoleCoordinator)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PATCH /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Beneficiaries: read (all roles), write (coordinator+).
	mux.Handle("GET /api/beneficiaries", authMW(http.HandlerFunc(beneficiariesHandler.List)))
	mux.Handle("GET /api/beneficiaries/needing-distribution", authMW(http.HandlerFunc(beneficiariesHandler.NeedingDistribution)))
	mux.Handle("POST /api/beneficiaries", authMW(requireCoordinator(http.HandlerFunc(beneficiariesHandler.Create))))
	mux.Handle("GET /api/beneficiaries/{id}", authMW(http.HandlerFunc(beneficiariesHandler.Get)))
	mux.Handle("PATCH /api/beneficiaries/{id}", authMW(requireCoordinator(http.HandlerFunc(beneficiariesHandler.Update))))
	mux.Handle("DELETE /api/beneficiaries/{id}", authMW(requireCoordinator(http.HandlerFunc(beneficiariesHandler.Delete))))
	mux.Handle("GET /api/beneficiaries/{id}/distributions", authMW(http.HandlerFunc(beneficiariesHandler.ListDistributions)))

	// Inventory: read (all roles), write (coordinator+).
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(inventoryHandler.List)))
	mux.Handle("GET /api/items/low-stock", authMW(http.HandlerFunc(inventoryHandler.LowStock)))
	mux.Handle("POST /api/items", authMW(requireCoordinator(http.HandlerFunc(inventoryHandler.Create))))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(inventoryHandler.Get)))
	mux.Handle("PATCH /api/items/{id}", authMW(requireCoordinator(http.HandlerFunc(inventoryHandler.Update))))
	mux.Handle("DELETE /api/items/{id}", authMW(requireCoordinator(http.HandlerFunc(inventoryHandler.Delete))))
	mux.Handle("POST /api/items/{id}/adjust", authMW(requireCoordinator(http.HandlerFunc(inventoryHandler.Adjust))))
	mux.Handle("PUT /api/items/{id}/image", authMW(requireCoordinator(http.HandlerFunc(inventoryHandler.UploadImage))))
	mux.Handle("GET /api/items/{id}/image", authMW(http.HandlerFunc(inventoryHandler.GetImage)))

	// Distributions (all roles).
	mux.Handle("GET /api/distributions", authMW(http.HandlerFunc(distributionsHandler.List)))
	mux.Handle("POST /api/distributions", authMW(http.HandlerFunc(distributionsHandler.Create)))

	// Dashboard, reports and remote sync.
	mux.Handle("GET /api/dashboard", authMW(http.HandlerFunc(dashboardHandler.Summary)))
	mux.Handle("GET /api/reports/export.xlsx", authMW(requireCoordinator(http.HandlerFunc(dashboardHandler.Export))))
	mux.Handle("GET /api/sync", authMW(http.HandlerFunc(dashboardHandler.SyncStatus)))
	mux.Handle("POST /api/sync/{collection}", authMW(requireCoordinator(http.HandlerFunc(dashboardHandler.Sync))))

	return LoggingMiddleware(d.Metrics)(mux)
}
