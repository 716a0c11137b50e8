package rest

import (
	"log/slog"

	"github.com/frahmantamala/checkout-payments/internal/auth"
	"github.com/frahmantamala/checkout-payments/internal/payment"
	"github.com/frahmantamala/checkout-payments/internal/transport/middleware"
	"github.com/frahmantamala/checkout-payments/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// RegisterAllRoutes mounts every HTTP route. A nil tokenValidator leaves the
// administrative payment routes unauthenticated.
func RegisterAllRoutes(router *chi.Mux, db Pinger, paymentHandler *payment.Handler, webhookHandler *payment.WebhookHandler, tokenValidator auth.TokenValidator, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get(swagger.SpecPath, swagger.SpecHandler())
	router.Handle("/swagger/*", swagger.Handler())

	router.Get("/health", healthHandler.Health)
	router.Get("/ping", healthHandler.Ping)

	router.Route("/payments", func(r chi.Router) {
		if paymentHandler != nil {
			r.Post("/checkout/pix", paymentHandler.CheckoutPix)
			r.Post("/checkout/boleto", paymentHandler.CheckoutBoleto)
			r.Post("/checkout/card", paymentHandler.CheckoutCard)
		}

		if webhookHandler != nil {
			r.Post("/notification", webhookHandler.HandleNotification)
		}

		if paymentHandler != nil {
			r.Group(func(ar chi.Router) {
				if tokenValidator != nil {
					ar.Use(middleware.BearerAuth(tokenValidator, logger))
					ar.Use(middleware.RequireRole(logger, auth.RoleAdmin))
				}
				ar.Get("/list", paymentHandler.ListPayments)
				ar.Get("/{id}", paymentHandler.GetPayment)
				ar.Delete("/delete/{id}", paymentHandler.DeletePayment)
			})
		}
	})
}
