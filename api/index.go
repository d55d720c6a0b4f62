package handler

import (
	"fmt"
	"net/http"
	"time"

	"thittam1hub-backend/pkg/authz"
	"thittam1hub-backend/pkg/budget"
	"thittam1hub-backend/pkg/config"
	"thittam1hub-backend/pkg/database"
	"thittam1hub-backend/pkg/delegation"
	"thittam1hub-backend/pkg/handlers"
	customMiddleware "thittam1hub-backend/pkg/middleware"
	"thittam1hub-backend/pkg/notify"
	"thittam1hub-backend/pkg/template"
	"thittam1hub-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler is the serverless entry point. All API endpoints live on one Chi
// router so a single function serves the whole surface.
func Handler(w http.ResponseWriter, r *http.Request) {
	cfg := config.GetCached()

	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	db := database.GetDatabase(database.DatabaseConfig{
		UseLocalDB:  cfg.UseLocalDB,
		PostgresDSN: cfg.PostgresDSN,
		Debug:       cfg.Debug,
	})

	router := chi.NewRouter()

	setupMiddleware(router, cfg)
	setupRoutes(router, cfg, db)

	router.ServeHTTP(w, r)
}

func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(cfg))
	router.Use(middleware.Recoverer)

	router.Use(customMiddleware.CORS(cfg))

	// Serverless functions get a hard deadline; leave a buffer under it
	router.Use(middleware.Timeout(25 * time.Second))

	router.Use(middleware.Compress(5))

	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

func setupRoutes(router *chi.Mux, cfg *config.Config, db database.DatabaseInterface) {
	notifier := notify.ForConfig(cfg.NotifyWebhookURL)
	authzEngine := authz.NewEngine(authz.DefaultMatrix(), db)
	delegationEngine := delegation.NewEngine(db, authzEngine, notifier)
	budgetEngine := budget.NewEngine(db, authzEngine, notifier)
	templateEngine := template.NewEngine(db, authzEngine, template.DefaultCatalog())

	authHandler := handlers.NewAuthHandler(cfg, db)
	workspacesHandler := handlers.NewWorkspacesHandler(cfg, db, authzEngine)
	tasksHandler := handlers.NewTasksHandler(cfg, db, authzEngine)
	delegationsHandler := handlers.NewDelegationsHandler(cfg, delegationEngine)
	budgetHandler := handlers.NewBudgetHandler(cfg, budgetEngine)
	templatesHandler := handlers.NewTemplatesHandler(cfg, templateEngine)
	rolesHandler := handlers.NewRolesHandler(cfg, authzEngine)

	router.Get("/", authHandler.HealthCheck)

	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, database.GetConnectionStats())
		})

		router.Get("/debug/env-check", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, map[string]interface{}{
				"postgres_dsn":       cfg.PostgresDSN != "",
				"jwt_secret":         cfg.JWTSecret != "",
				"notify_webhook_url": cfg.NotifyWebhookURL != "",
				"use_local_db":       cfg.UseLocalDB,
			})
		})
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", authHandler.HealthCheck)

		// Public routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/token", authHandler.IssueToken)
			r.Post("/refresh", authHandler.RefreshToken)
		})

		// Template catalog is static reference data, no auth needed to browse
		r.Get("/templates/sets", templatesHandler.ListSets)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(cfg))

			r.Route("/workspaces", func(r chi.Router) {
				r.Get("/", workspacesHandler.ListWorkspaces)
				r.Post("/", workspacesHandler.CreateRootWorkspace)
				r.Get("/{id}", workspacesHandler.GetWorkspace)
				r.Post("/{id}/children", workspacesHandler.CreateChildWorkspace)
				r.Post("/{id}/archive", workspacesHandler.ArchiveWorkspace)
				r.Get("/{id}/ancestors", workspacesHandler.ListAncestors)
				r.Get("/{id}/members", workspacesHandler.ListMembers)
				r.Post("/{id}/invitations", workspacesHandler.CreateInvitation)
				r.Get("/{id}/my-role", rolesHandler.MyRole)

				r.Get("/{id}/tasks", tasksHandler.ListTasks)
				r.Post("/{id}/tasks", tasksHandler.CreateTask)

				r.Get("/{id}/delegations", delegationsHandler.ListForWorkspace)

				r.Get("/{id}/budget/requests", budgetHandler.ListRequests)
				r.Get("/{id}/budget/forecast", budgetHandler.Forecast)
				r.Get("/{id}/expenses", budgetHandler.ListExpenses)
				r.Post("/{id}/expenses", budgetHandler.RecordExpense)

				r.Post("/{id}/templates/apply", templatesHandler.ApplySet)
			})

			r.Route("/invitations", func(r chi.Router) {
				r.Get("/", workspacesHandler.ListMyInvitations)
				r.Post("/accept", workspacesHandler.AcceptInvitation)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/{id}/status", tasksHandler.UpdateStatus)
			})

			r.Route("/delegations", func(r chi.Router) {
				r.Post("/", delegationsHandler.Delegate)
				r.Get("/{id}", delegationsHandler.GetItem)
				r.Put("/{id}", delegationsHandler.UpdateFromSource)
				r.Post("/{id}/decide", delegationsHandler.Decide)
				r.Post("/{id}/advance", delegationsHandler.Advance)
				r.Get("/{id}/extensions", delegationsHandler.ListExtensions)
				r.Post("/{id}/extensions", delegationsHandler.RequestExtension)
			})

			r.Route("/extensions", func(r chi.Router) {
				r.Post("/{id}/review", delegationsHandler.ReviewExtension)
			})

			r.Route("/budget", func(r chi.Router) {
				r.Post("/requests", budgetHandler.SubmitRequest)
				r.Post("/requests/{id}/review", budgetHandler.ReviewRequest)
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Post("/{id}/confirm", budgetHandler.ConfirmExpense)
			})

			r.Route("/roles", func(r chi.Router) {
				r.Get("/", rolesHandler.ListRoles)
				r.Get("/can-manage", rolesHandler.CanManage)
			})

			r.Get("/authorize", rolesHandler.Authorize)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
