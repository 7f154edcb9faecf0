package monitor

import (
	"context"
	"fmt"

	"github.com/mikey/forensic-intel/internal/core"
	"go.uber.org/zap"
)

// ActionHandler is the default alert handler: relevant messages are stored, everything
// else is logged for the case team
type ActionHandler struct {
	records core.RecordStore
	logger  *zap.Logger
}

// NewActionHandler creates the default handler
func NewActionHandler(records core.RecordStore, logger *zap.Logger) *ActionHandler {
	return &ActionHandler{records: records, logger: logger}
}

func (h *ActionHandler) OnDecision(_ context.Context, a Alert, p Decision) error {
	h.logger.Warn("New decision published, re-analysis recommended",
		zap.String("alert_id", a.ID),
		zap.String("title", p.Title),
		zap.String("reference", p.Reference))
	return nil
}

func (h *ActionHandler) OnLegalUpdate(_ context.Context, a Alert, p LegalUpdate) error {
	h.logger.Warn("Legal update affects the case, re-analysis recommended",
		zap.String("alert_id", a.ID),
		zap.String("title", p.Title),
		zap.String("reference", p.Reference))
	return nil
}

func (h *ActionHandler) OnNewMessage(ctx context.Context, a Alert, p NewMessage) error {
	inserted, err := h.records.Store(ctx, p.Record)
	if err != nil {
		return fmt.Errorf("failed to store dropped message %s: %w", p.Ref, err)
	}
	h.logger.Info("Relevant message captured",
		zap.String("alert_id", a.ID),
		zap.String("item", p.Ref),
		zap.String("subject", p.Subject),
		zap.Float64("relevance", p.Relevance),
		zap.Bool("new", inserted))
	return nil
}

func (h *ActionHandler) OnDeadline(_ context.Context, a Alert, p DeadlineNotice) error {
	fields := []zap.Field{
		zap.String("alert_id", a.ID),
		zap.String("deadline", p.Name),
		zap.Int("days_remaining", p.DaysRemaining),
		zap.Time("due", p.Due),
	}
	switch a.Severity {
	case SeverityHigh:
		h.logger.Error("Deadline imminent", fields...)
	case SeverityMedium:
		h.logger.Warn("Deadline approaching", fields...)
	default:
		h.logger.Info("Deadline scheduled", fields...)
	}
	return nil
}
