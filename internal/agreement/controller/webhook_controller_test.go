package controller

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"moonbounce/internal/esign"
)

type mockWebhookHandler struct {
	HandleWebhookFunc func(ctx context.Context, eventType string, sub *esign.Submission) error

	calls int
}

func (m *mockWebhookHandler) HandleWebhook(ctx context.Context, eventType string, sub *esign.Submission) error {
	m.calls++
	if m.HandleWebhookFunc != nil {
		return m.HandleWebhookFunc(ctx, eventType, sub)
	}
	return nil
}

const webhookSecret = "topsecret"

func signedRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/esign", strings.NewReader(body))
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(body))
	req.Header.Set(esign.SignatureHeader, hex.EncodeToString(mac.Sum(nil)))
	return req
}

const completedPayload = `{
	"event_type": "form.completed",
	"data": {
		"id": 41,
		"status": "completed",
		"submitters": [
			{"id": 1, "submission_id": 41, "email": "dana@example.com", "status": "completed"}
		]
	}
}`

func TestWebhookReceive_ValidSignature(t *testing.T) {
	var gotEvent string
	var gotSub *esign.Submission
	handler := &mockWebhookHandler{
		HandleWebhookFunc: func(ctx context.Context, eventType string, sub *esign.Submission) error {
			gotEvent = eventType
			gotSub = sub
			return nil
		},
	}
	ctrl := NewWebhookController(handler, webhookSecret, zap.NewNop())

	rec := httptest.NewRecorder()
	ctrl.Receive(rec, signedRequest(t, completedPayload))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "form.completed", gotEvent)
	require.NotNil(t, gotSub)
	assert.Equal(t, "41", gotSub.ID)
	assert.True(t, gotSub.AllCompleted())
}

func TestWebhookReceive_BadSignature(t *testing.T) {
	handler := &mockWebhookHandler{}
	ctrl := NewWebhookController(handler, webhookSecret, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/esign", strings.NewReader(completedPayload))
	req.Header.Set(esign.SignatureHeader, "deadbeef")
	rec := httptest.NewRecorder()
	ctrl.Receive(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, handler.calls)
}

func TestWebhookReceive_MissingSignature(t *testing.T) {
	handler := &mockWebhookHandler{}
	ctrl := NewWebhookController(handler, webhookSecret, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/webhooks/esign", strings.NewReader(completedPayload))
	rec := httptest.NewRecorder()
	ctrl.Receive(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, handler.calls)
}

func TestWebhookReceive_MalformedPayload(t *testing.T) {
	handler := &mockWebhookHandler{}
	ctrl := NewWebhookController(handler, webhookSecret, zap.NewNop())

	rec := httptest.NewRecorder()
	ctrl.Receive(rec, signedRequest(t, `not json`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, handler.calls)
}

func TestWebhookReceive_ProcessingFailure_AsksForRedelivery(t *testing.T) {
	handler := &mockWebhookHandler{
		HandleWebhookFunc: func(ctx context.Context, eventType string, sub *esign.Submission) error {
			return assert.AnError
		},
	}
	ctrl := NewWebhookController(handler, webhookSecret, zap.NewNop())

	rec := httptest.NewRecorder()
	ctrl.Receive(rec, signedRequest(t, completedPayload))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
