package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"moonbounce/internal/dto"
	apperrors "moonbounce/internal/errors"
)

type DeliveryGate interface {
	CanDeliver(ctx context.Context, orderID uint) (bool, error)
	OverrideBlock(ctx context.Context, orderID uint, reason, actor string) error
}

type AgreementCycle interface {
	StartAgreement(ctx context.Context, orderID uint) (string, error)
	Resend(ctx context.Context, orderID uint) error
	CancelAgreement(ctx context.Context, orderID uint) error
}

// AgreementController exposes the admin and logistics surface of the
// agreement lifecycle: the delivery gate, the audited override, and the
// start/resend operator actions.
type AgreementController struct {
	gate   DeliveryGate
	cycle  AgreementCycle
	logger *zap.Logger
}

func NewAgreementController(gate DeliveryGate, cycle AgreementCycle, logger *zap.Logger) *AgreementController {
	return &AgreementController{
		gate:   gate,
		cycle:  cycle,
		logger: logger,
	}
}

func (c *AgreementController) DeliveryEligibility(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, ok := c.orderIDFromPath(w, r, traceID, logger)
	if !ok {
		return
	}

	canDeliver, err := c.gate.CanDeliver(r.Context(), orderID)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.DeliveryEligibilityResponse{
		TraceID:    traceID,
		OrderID:    orderID,
		CanDeliver: canDeliver,
		Timestamp:  time.Now().UTC(),
	})
}

func (c *AgreementController) Override(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, ok := c.orderIDFromPath(w, r, traceID, logger)
	if !ok {
		return
	}

	var req dto.OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := c.gate.OverrideBlock(r.Context(), orderID, req.Reason, req.Actor); err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	logger.Info("delivery override applied",
		zap.Uint("orderId", orderID), zap.String("actor", req.Actor))
	c.writeJSON(w, http.StatusOK, dto.StatusResponse{
		TraceID:   traceID,
		OrderID:   orderID,
		Status:    "override_applied",
		Timestamp: time.Now().UTC(),
	})
}

func (c *AgreementController) Start(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, ok := c.orderIDFromPath(w, r, traceID, logger)
	if !ok {
		return
	}

	signingURL, err := c.cycle.StartAgreement(r.Context(), orderID)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.StartAgreementResponse{
		TraceID:    traceID,
		OrderID:    orderID,
		SigningURL: signingURL,
		Timestamp:  time.Now().UTC(),
	})
}

func (c *AgreementController) Resend(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, ok := c.orderIDFromPath(w, r, traceID, logger)
	if !ok {
		return
	}

	if err := c.cycle.Resend(r.Context(), orderID); err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.StatusResponse{
		TraceID:   traceID,
		OrderID:   orderID,
		Status:    "resent",
		Timestamp: time.Now().UTC(),
	})
}

func (c *AgreementController) Cancel(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, ok := c.orderIDFromPath(w, r, traceID, logger)
	if !ok {
		return
	}

	if err := c.cycle.CancelAgreement(r.Context(), orderID); err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.StatusResponse{
		TraceID:   traceID,
		OrderID:   orderID,
		Status:    "agreement_canceled",
		Timestamp: time.Now().UTC(),
	})
}

func (c *AgreementController) orderIDFromPath(w http.ResponseWriter, r *http.Request, traceID string, logger *zap.Logger) (uint, bool) {
	orderIDStr := chi.URLParam(r, "orderId")
	orderID, err := strconv.ParseUint(orderIDStr, 10, 64)
	if err != nil || orderID == 0 {
		logger.Warn("invalid orderId in path", zap.String("orderId", orderIDStr))
		c.writeValidationError(w, "invalid orderId", apperrors.ValidationDetail{
			Field:   "orderId",
			Message: "orderId must be a positive integer",
		})
		return 0, false
	}
	return uint(orderID), true
}

func (c *AgreementController) handleError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}

	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeError(w, traceID, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}

	if _, ok := apperrors.IsConflictError(err); ok {
		c.writeError(w, traceID, http.StatusConflict, "CONFLICT", err.Error())
		return
	}

	if _, ok := apperrors.IsTransportError(err); ok {
		logger.Error("upstream provider unavailable", zap.Error(err))
		c.writeError(w, traceID, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "signature provider is unavailable")
		return
	}

	if _, ok := apperrors.IsAuthError(err); ok {
		logger.Error("provider credentials rejected", zap.Error(err))
		c.writeError(w, traceID, http.StatusBadGateway, "UPSTREAM_AUTH", "signature provider rejected credentials")
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeError(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

type errorResponse struct {
	TraceID   string    `json:"traceId"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *AgreementController) writeError(w http.ResponseWriter, traceID string, statusCode int, code, message string) {
	c.writeJSON(w, statusCode, errorResponse{
		TraceID:   traceID,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

type validationErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *AgreementController) writeValidationError(w http.ResponseWriter, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *AgreementController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
