package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"moonbounce/internal/dto"
	"moonbounce/internal/esign"
)

const maxWebhookBody = 1 << 20

type WebhookHandler interface {
	HandleWebhook(ctx context.Context, eventType string, sub *esign.Submission) error
}

// WebhookController receives provider callbacks. The HMAC over the raw body
// is verified before anything in the payload is trusted.
type WebhookController struct {
	handler WebhookHandler
	secret  string
	logger  *zap.Logger
}

func NewWebhookController(handler WebhookHandler, secret string, logger *zap.Logger) *WebhookController {
	return &WebhookController{
		handler: handler,
		secret:  secret,
		logger:  logger,
	}
}

func (c *WebhookController) Receive(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		logger.Warn("reading webhook body failed", zap.Error(err))
		c.writeStatus(w, traceID, http.StatusBadRequest, "unreadable body")
		return
	}

	if !esign.VerifyWebhookSignature(c.secret, rawBody, r.Header.Get(esign.SignatureHeader)) {
		logger.Warn("webhook signature rejected")
		c.writeStatus(w, traceID, http.StatusUnauthorized, "invalid signature")
		return
	}

	var payload dto.WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		logger.Warn("malformed webhook payload", zap.Error(err))
		c.writeStatus(w, traceID, http.StatusBadRequest, "malformed payload")
		return
	}

	sub, err := esign.ParseSubmission(payload.Data)
	if err != nil {
		logger.Warn("webhook submission not parseable",
			zap.String("eventType", payload.EventType), zap.Error(err))
		c.writeStatus(w, traceID, http.StatusBadRequest, "malformed submission")
		return
	}

	if err := c.handler.HandleWebhook(r.Context(), payload.EventType, sub); err != nil {
		// 500 asks the provider to redeliver; reconciliation is idempotent so
		// the retry is harmless.
		logger.Error("webhook processing failed",
			zap.String("eventType", payload.EventType),
			zap.String("submissionId", sub.ID),
			zap.Error(err))
		c.writeStatus(w, traceID, http.StatusInternalServerError, "processing failed")
		return
	}

	logger.Info("webhook processed",
		zap.String("eventType", payload.EventType),
		zap.String("submissionId", sub.ID))
	c.writeStatus(w, traceID, http.StatusOK, "ok")
}

func (c *WebhookController) writeStatus(w http.ResponseWriter, traceID string, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(dto.StatusResponse{
		TraceID:   traceID,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
