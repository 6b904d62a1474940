package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, tenants *TenantProvider) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Account-ID", "X-Franchise-ID", "X-User-ID", "X-User-Role"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no tenant required)
	r.Get("/health", h.HealthCheck)

	// API routes (tenant identity required)
	r.Route("/api", func(r chi.Router) {
		r.Use(tenants.Middleware)

		// Dashboard analytics
		r.Get("/dashboard", h.HandleDashboard)

		// Member imports
		r.Route("/imports", func(r chi.Router) {
			r.Post("/preview", h.HandleImportPreview)
			r.Post("/", h.HandleImportStart)
			r.Get("/", h.HandleListImportJobs)
			r.Get("/{jobID}", h.HandleGetImportJob)
			r.Get("/{jobID}/progress", h.HandleImportProgress)
			r.Post("/{jobID}/cancel", h.HandleCancelImport)
		})

		// Members
		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.HandleListMembers)
			r.Post("/", h.HandleCreateMember)
			r.Get("/{memberID}", h.HandleGetMember)
			r.Put("/{memberID}", h.HandleUpdateMember)
			r.Delete("/{memberID}", h.HandleDeleteMember)
		})

		// Plans
		r.Get("/plans", h.HandleListPlans)
		r.Post("/plans", h.HandleCreatePlan)

		// Payments and expenses
		r.Get("/payments", h.HandleListPayments)
		r.Post("/payments", h.HandleCreatePayment)
		r.Get("/expenses", h.HandleListExpenses)
		r.Post("/expenses", h.HandleCreateExpense)

		// Franchises
		r.Get("/franchises", h.HandleListFranchises)
		r.Post("/franchises", h.HandleCreateFranchise)
	})

	return r
}
