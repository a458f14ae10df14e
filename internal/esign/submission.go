package esign

import (
	"encoding/json"
	"fmt"
	"time"
)

// Submitter statuses reported by the provider per recipient.
const (
	SubmitterSent      = "sent"
	SubmitterOpened    = "opened"
	SubmitterCompleted = "completed"
	SubmitterDeclined  = "declined"
)

type Submitter struct {
	ID           int        `json:"id"`
	SubmissionID int        `json:"submission_id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Status       string     `json:"status"`
	SigningURL   string     `json:"embed_src"`
	OpenedAt     *time.Time `json:"opened_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	DeclinedAt   *time.Time `json:"declined_at"`
}

// Submission is the canonical local view of a provider signing session. Today
// every submission carries exactly one submitter (the customer); the shape is
// kept general for a future second signer.
type Submission struct {
	ID         string
	Status     string
	CreatedAt  *time.Time
	Submitters []Submitter
}

// AllCompleted reports whether every recipient has completed signing.
func (s *Submission) AllCompleted() bool {
	if len(s.Submitters) == 0 {
		return false
	}
	for _, sub := range s.Submitters {
		if sub.Status != SubmitterCompleted {
			return false
		}
	}
	return true
}

// AnyDeclined reports whether any recipient declined.
func (s *Submission) AnyDeclined() bool {
	for _, sub := range s.Submitters {
		if sub.Status == SubmitterDeclined {
			return true
		}
	}
	return false
}

// AnyOpened reports whether any recipient has at least opened the document.
func (s *Submission) AnyOpened() bool {
	for _, sub := range s.Submitters {
		if sub.Status == SubmitterOpened || sub.Status == SubmitterCompleted {
			return true
		}
	}
	return false
}

// EarliestCompletedAt returns the earliest completion timestamp among
// recipients, falling back to now when the provider omitted it.
func (s *Submission) EarliestCompletedAt(now time.Time) time.Time {
	earliest := now
	found := false
	for _, sub := range s.Submitters {
		if sub.CompletedAt == nil {
			continue
		}
		if !found || sub.CompletedAt.Before(earliest) {
			earliest = *sub.CompletedAt
			found = true
		}
	}
	return earliest
}

type submissionEnvelope struct {
	ID         int         `json:"id"`
	Status     string      `json:"status"`
	CreatedAt  *time.Time  `json:"created_at"`
	Submitters []Submitter `json:"submitters"`
}

// ParseSubmission normalizes the two wire shapes the provider emits: a bare
// array of submitter records (creation response) or an object carrying a
// "submitters" list (fetch response, webhook payload). Shape ambiguity stops
// here; nothing past this boundary sees raw provider JSON.
func ParseSubmission(raw []byte) (*Submission, error) {
	trimmed := firstNonSpace(raw)

	if trimmed == '[' {
		var submitters []Submitter
		if err := json.Unmarshal(raw, &submitters); err != nil {
			return nil, fmt.Errorf("decoding submitter list: %w", err)
		}
		if len(submitters) == 0 {
			return nil, fmt.Errorf("submitter list is empty")
		}
		return &Submission{
			ID:         fmt.Sprintf("%d", submitters[0].SubmissionID),
			Submitters: submitters,
		}, nil
	}

	var env submissionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding submission object: %w", err)
	}
	if env.ID == 0 && len(env.Submitters) == 0 {
		return nil, fmt.Errorf("submission object has no id and no submitters")
	}
	id := env.ID
	if id == 0 {
		id = env.Submitters[0].SubmissionID
	}
	return &Submission{
		ID:         fmt.Sprintf("%d", id),
		Status:     env.Status,
		CreatedAt:  env.CreatedAt,
		Submitters: env.Submitters,
	}, nil
}

func firstNonSpace(raw []byte) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}
