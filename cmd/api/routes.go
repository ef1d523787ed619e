package main

import (
	"log"
	"net/http"

	httphandlers "hishab/internal/interfaces/http"
	"hishab/internal/shared/config"
	"hishab/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Public auth routes
	mux.HandleFunc("/api/auth/register", deps.AuthHandler.HandleRegister)
	mux.HandleFunc("/api/auth/login", deps.AuthHandler.HandleLogin)
	mux.HandleFunc("/api/auth/logout", deps.AuthHandler.HandleLogout)

	// Protected routes
	authMiddleware := middleware.Auth(deps.JWT)

	mux.Handle("/api/users/me", authMiddleware(http.HandlerFunc(deps.UserHandler.HandleMe)))

	mux.Handle("/api/groups/", authMiddleware(http.HandlerFunc(deps.GroupHandler.HandleGroups)))
	mux.Handle("/api/groups/join", authMiddleware(http.HandlerFunc(deps.GroupHandler.HandleJoin)))
	mux.Handle("/api/groups/{id}", authMiddleware(http.HandlerFunc(deps.GroupHandler.HandleGroupByID)))
	mux.Handle("/api/groups/{id}/members", authMiddleware(http.HandlerFunc(deps.GroupHandler.HandleMembers)))
	mux.Handle("/api/groups/{id}/transactions", authMiddleware(http.HandlerFunc(deps.GroupHandler.HandleGroupTransactions)))
	mux.Handle("/api/groups/{id}/balances", authMiddleware(http.HandlerFunc(deps.GroupHandler.HandleBalances)))
	mux.Handle("/api/groups/{id}/settlements/suggestions", authMiddleware(http.HandlerFunc(deps.GroupHandler.HandleSuggestions)))
	mux.Handle("/api/groups/{id}/settle", authMiddleware(http.HandlerFunc(deps.GroupHandler.HandleSettle)))

	mux.Handle("/api/transactions/", authMiddleware(http.HandlerFunc(deps.TransactionHandler.HandleTransactions)))
	mux.Handle("/api/transactions/{id}", authMiddleware(http.HandlerFunc(deps.TransactionHandler.HandleTransactionByID)))

	mux.Handle("/api/recurring/", authMiddleware(http.HandlerFunc(deps.RecurringHandler.HandleRecurring)))
	mux.Handle("/api/recurring/upcoming", authMiddleware(http.HandlerFunc(deps.RecurringHandler.HandleUpcoming)))
	mux.Handle("/api/recurring/{id}", authMiddleware(http.HandlerFunc(deps.RecurringHandler.HandleRecurringByID)))
	mux.Handle("/api/recurring/{id}/toggle", authMiddleware(http.HandlerFunc(deps.RecurringHandler.HandleToggle)))
	mux.Handle("/api/recurring/{id}/paid", authMiddleware(http.HandlerFunc(deps.RecurringHandler.HandleMarkPaid)))

	mux.Handle("/api/feature-flags/{key}/evaluate", authMiddleware(http.HandlerFunc(deps.FeatureFlagHandler.HandleEvaluate)))
	mux.Handle("/api/admin/feature-flags", authMiddleware(http.HandlerFunc(deps.FeatureFlagHandler.HandleAdminFlags)))
	mux.Handle("/api/admin/feature-flags/{key}", authMiddleware(http.HandlerFunc(deps.FeatureFlagHandler.HandleAdminFlagByKey)))

	mux.Handle("/api/notifications/register-device/", authMiddleware(http.HandlerFunc(deps.NotificationHandler.HandleRegisterDevice)))
	mux.Handle("/api/notifications/deactivate-device/", authMiddleware(http.HandlerFunc(deps.NotificationHandler.HandleDeactivateDevice)))
	mux.Handle("/api/notifications/preferences/", authMiddleware(http.HandlerFunc(deps.NotificationHandler.HandlePreferences)))
	mux.Handle("/api/notifications/open/", authMiddleware(http.HandlerFunc(deps.NotificationHandler.HandleOpen)))
	mux.Handle("/api/notifications/{id}", authMiddleware(http.HandlerFunc(deps.NotificationHandler.HandleNotificationByID)))
	mux.Handle("/api/notifications/", authMiddleware(http.HandlerFunc(deps.NotificationHandler.HandleNotifications)))

	mux.Handle("/api/admin/broadcasts", authMiddleware(http.HandlerFunc(deps.NotificationHandler.HandleAdminBroadcasts)))
	mux.Handle("/api/admin/broadcasts/{id}", authMiddleware(http.HandlerFunc(deps.NotificationHandler.HandleAdminBroadcastByID)))

	// Apply global middleware
	handler := middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(mux))

	// Request tracing and metrics
	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(middleware.Tracing(handler))
	}

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Println("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}
