package monitor

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mikey/forensic-intel/internal/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind is the closed set of alert types
type Kind string

const (
	KindDecision    Kind = "decision"
	KindNewMessage  Kind = "new_message"
	KindLegalUpdate Kind = "legal_update"
	KindDeadline    Kind = "deadline"
)

// Severity ranks how soon an alert needs attention
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Payload is implemented only by the payload types of this package. The unexported
// dispatch method routes each one to its Handler method.
type Payload interface {
	Kind() Kind
	dispatch(ctx context.Context, h Handler, a Alert) error
}

// Alert is one discrete event pushed by a collector
type Alert struct {
	ID       string
	Source   string
	Severity Severity
	RaisedAt time.Time
	Payload  Payload
}

// Record converts the alert to its persisted form
func (a Alert) Record() (core.AlertRecord, error) {
	if a.Payload == nil {
		return core.AlertRecord{}, fmt.Errorf("alert %s has no payload", a.ID)
	}
	data, err := json.Marshal(a.Payload)
	if err != nil {
		return core.AlertRecord{}, fmt.Errorf("failed to encode %s payload: %w", a.Payload.Kind(), err)
	}
	return core.AlertRecord{
		ID:       a.ID,
		Kind:     string(a.Payload.Kind()),
		Source:   a.Source,
		Severity: string(a.Severity),
		RaisedAt: a.RaisedAt,
		Payload:  data,
	}, nil
}

// Handler reacts to each alert kind. Adding a payload type means adding a method here.
type Handler interface {
	OnDecision(ctx context.Context, a Alert, p Decision) error
	OnNewMessage(ctx context.Context, a Alert, p NewMessage) error
	OnLegalUpdate(ctx context.Context, a Alert, p LegalUpdate) error
	OnDeadline(ctx context.Context, a Alert, p DeadlineNotice) error
}

// FeedEntry is one line of a decisions or legal-updates feed file
type FeedEntry struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Reference string     `json:"reference,omitempty"`
	URL       string     `json:"url,omitempty"`
	Summary   string     `json:"summary,omitempty"`
	Published *time.Time `json:"published,omitempty"`
}

// Decision is a newly published tribunal or court decision
type Decision struct {
	FeedEntry
}

func (Decision) Kind() Kind { return KindDecision }

func (p Decision) dispatch(ctx context.Context, h Handler, a Alert) error {
	return h.OnDecision(ctx, a, p)
}

// LegalUpdate is a change in legislation or guidance
type LegalUpdate struct {
	FeedEntry
}

func (LegalUpdate) Kind() Kind { return KindLegalUpdate }

func (p LegalUpdate) dispatch(ctx context.Context, h Handler, a Alert) error {
	return h.OnLegalUpdate(ctx, a, p)
}

// NewMessage is a relevant message found in the drop directory
type NewMessage struct {
	Ref       string              `json:"ref"`
	MessageID string              `json:"message_id"`
	Sender    string              `json:"sender"`
	Subject   string              `json:"subject"`
	Relevance float64             `json:"relevance"`
	Record    core.AnalyzedRecord `json:"-"`
}

func (NewMessage) Kind() Kind { return KindNewMessage }

func (p NewMessage) dispatch(ctx context.Context, h Handler, a Alert) error {
	return h.OnNewMessage(ctx, a, p)
}

// DeadlineNotice counts down to a configured deadline
type DeadlineNotice struct {
	Name          string    `json:"name"`
	Due           time.Time `json:"due"`
	DaysRemaining int       `json:"days_remaining"`
	Notes         string    `json:"notes,omitempty"`
}

func (DeadlineNotice) Kind() Kind { return KindDeadline }

func (p DeadlineNotice) dispatch(ctx context.Context, h Handler, a Alert) error {
	return h.OnDeadline(ctx, a, p)
}

// Dispatch routes an alert to the handler method for its kind
func Dispatch(ctx context.Context, h Handler, a Alert) error {
	if a.Payload == nil {
		return fmt.Errorf("alert %s has no payload", a.ID)
	}
	return a.Payload.dispatch(ctx, h, a)
}
