package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"moonbounce/internal/agreement"
)

func NewRouter(agreements *agreement.Module, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Post("/webhooks/esign", agreements.Webhook.Receive)

	r.Route("/api/orders/{orderId}", func(r chi.Router) {
		r.Get("/delivery-eligibility", agreements.Agreement.DeliveryEligibility)
		r.Post("/delivery-override", agreements.Agreement.Override)
		r.Post("/agreement", agreements.Agreement.Start)
		r.Post("/agreement/resend", agreements.Agreement.Resend)
		r.Post("/agreement/cancel", agreements.Agreement.Cancel)
	})

	return r
}
