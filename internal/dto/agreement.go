package dto

import (
	"encoding/json"
	"time"
)

// WebhookPayload is the provider callback envelope. Data carries the
// submission in one of the provider's two shapes; normalization happens at
// the esign adapter boundary.
type WebhookPayload struct {
	EventType string          `json:"event_type"`
	Timestamp *time.Time      `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type OverrideRequest struct {
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

type DeliveryEligibilityResponse struct {
	TraceID    string    `json:"traceId"`
	OrderID    uint      `json:"orderId"`
	CanDeliver bool      `json:"canDeliver"`
	Timestamp  time.Time `json:"timestamp"`
}

type StartAgreementResponse struct {
	TraceID    string    `json:"traceId"`
	OrderID    uint      `json:"orderId"`
	SigningURL string    `json:"signingUrl"`
	Timestamp  time.Time `json:"timestamp"`
}

type StatusResponse struct {
	TraceID   string    `json:"traceId"`
	OrderID   uint      `json:"orderId,omitempty"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
