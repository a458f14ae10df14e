package domain

import "time"

type AgreementStatus string

const (
	AgreementNotSent  AgreementStatus = "not_sent"
	AgreementPending  AgreementStatus = "pending"
	AgreementViewed   AgreementStatus = "viewed"
	AgreementSigned   AgreementStatus = "signed"
	AgreementDeclined AgreementStatus = "declined"
)

type ReminderTier string

const (
	TierNone            ReminderTier = "none"
	TierInitial         ReminderTier = "initial"
	TierNormal          ReminderTier = "normal"
	TierUrgent          ReminderTier = "urgent"
	TierCritical        ReminderTier = "critical"
	TierSignedConfirmed ReminderTier = "signed_confirmed"
)

var tierRank = map[ReminderTier]int{
	TierNone:            0,
	TierInitial:         1,
	TierNormal:          2,
	TierUrgent:          3,
	TierCritical:        4,
	TierSignedConfirmed: 5,
}

// Before reports whether t is strictly lower in the escalation ladder than other.
func (t ReminderTier) Before(other ReminderTier) bool {
	return tierRank[t] < tierRank[other]
}

// Next returns the tier one step up the ladder. Critical is the top reminder
// tier; the confirmation tier is reached only through a signature.
func (t ReminderTier) Next() ReminderTier {
	switch t {
	case TierNone:
		return TierInitial
	case TierInitial:
		return TierNormal
	case TierNormal:
		return TierUrgent
	case TierUrgent:
		return TierCritical
	default:
		return t
	}
}

// Override records a manual lift of the delivery block. Reason and actor are
// mandatory so the bypass stays auditable.
type Override struct {
	Reason string
	By     string
	At     time.Time
}

// Agreement is the per-order signing record. All writes go through a
// conditional update keyed on Version.
type Agreement struct {
	Status             AgreementStatus
	SubmissionID       *string
	SignedAt           *time.Time
	ViewedAt           *time.Time
	DeliveryBlocked    bool
	Override           *Override
	LastReminderTier   ReminderTier
	LastReminderSentAt *time.Time
	Version            int
}

func (a *Agreement) OverrideActive() bool {
	return a.Override != nil
}

// Equal compares the agreement's observable state, ignoring Version. Used by
// reconciliation to detect no-op re-applications.
func (a *Agreement) Equal(other *Agreement) bool {
	return a.Status == other.Status &&
		strPtrEqual(a.SubmissionID, other.SubmissionID) &&
		timePtrEqual(a.SignedAt, other.SignedAt) &&
		timePtrEqual(a.ViewedAt, other.ViewedAt) &&
		a.DeliveryBlocked == other.DeliveryBlocked &&
		overridePtrEqual(a.Override, other.Override) &&
		a.LastReminderTier == other.LastReminderTier &&
		timePtrEqual(a.LastReminderSentAt, other.LastReminderSentAt)
}

// AgreementEvent is an immutable audit row written for every agreement
// mutation: reconciliations, overrides, reminders, submission churn.
type AgreementEvent struct {
	ID        int64
	OrderID   uint
	Type      string
	Actor     *string
	Detail    string
	CreatedAt time.Time
}

const (
	EventStatusChanged       = "status_changed"
	EventOverrideSet         = "override_set"
	EventSubmissionCreated   = "submission_created"
	EventSubmissionStale     = "submission_stale"
	EventSubmissionVoided    = "submission_voided"
	EventReminderSent        = "reminder_sent"
	EventMissingDeliveryDate = "missing_delivery_date"
)

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func overridePtrEqual(a, b *Override) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Reason == b.Reason && a.By == b.By && a.At.Equal(b.At)
}
