package esign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"moonbounce/internal/config"
	"moonbounce/internal/errors"
)

// Client talks to the e-signature provider's REST API. Responses are
// normalized into the canonical Submission shape; HTTP failure classes map
// onto the typed error taxonomy so callers can branch on "gone" vs
// "unreachable" vs "rejected".
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(cfg config.EsignConfig) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

// CreateSubmissionRequest is the provider creation payload. SendEmail stays
// false: the escalation notifier owns all customer email.
type CreateSubmissionRequest struct {
	TemplateID int                `json:"template_id"`
	SendEmail  bool               `json:"send_email"`
	Order      string             `json:"order,omitempty"`
	Submitters []SubmitterRequest `json:"submitters"`
}

type SubmitterRequest struct {
	Email  string            `json:"email"`
	Name   string            `json:"name"`
	Values map[string]string `json:"values,omitempty"`
}

// CreateSubmission opens a new signing session. The Idempotency-Key header
// protects against double-creation on scheduler retries.
func (c *Client) CreateSubmission(ctx context.Context, req CreateSubmissionRequest) (*Submission, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.NewInternalError("encoding submission request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submissions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewInternalError("building submission request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", uuid.New().String())

	return c.do(httpReq, "creating submission")
}

// GetSubmission fetches the current remote state. A 404 comes back as a typed
// NotFoundError so callers can treat the stored id as stale instead of fatal.
func (c *Client) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	u, err := url.JoinPath(c.baseURL, "submissions", id)
	if err != nil {
		return nil, errors.NewInternalError("building submission url", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.NewInternalError("building submission request", err)
	}

	return c.do(httpReq, "fetching submission")
}

// VoidSubmission cancels a submission at the provider. An already-gone
// submission is not an error for the caller's purposes.
func (c *Client) VoidSubmission(ctx context.Context, id string) error {
	u, err := url.JoinPath(c.baseURL, "submissions", id)
	if err != nil {
		return errors.NewInternalError("building submission url", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return errors.NewInternalError("building submission request", err)
	}
	httpReq.Header.Set("X-Auth-Token", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return errors.NewTransportError("voiding submission", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return errors.NewNotFoundError(fmt.Sprintf("submission %s not found", id))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.NewAuthError("provider rejected credentials")
	default:
		return errors.NewTransportError(fmt.Sprintf("voiding submission: provider returned %d", resp.StatusCode), nil)
	}
}

func (c *Client) do(req *http.Request, action string) (*Submission, error) {
	req.Header.Set("X-Auth-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, errors.NewTransportError(action, err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.NewTransportError(action+": reading response", err)
		}
		sub, err := ParseSubmission(raw)
		if err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("%s: malformed provider response: %v", action, err))
		}
		return sub, nil
	case http.StatusNotFound:
		return nil, errors.NewNotFoundError("submission not found")
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, errors.NewAuthError("provider rejected credentials")
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		raw, _ := io.ReadAll(resp.Body)
		return nil, errors.NewValidationError(fmt.Sprintf("%s: provider rejected payload: %s", action, string(raw)))
	default:
		return nil, errors.NewTransportError(fmt.Sprintf("%s: provider returned %d", action, resp.StatusCode), nil)
	}
}
