package audit

import (
	"context"
	"log/slog"
)

const (
	// ActionTransfer covers transfer attempts and outcomes.
	ActionTransfer = "transaction"
	// ActionAccount covers account lifecycle events.
	ActionAccount = "account_update"
)

// Entry describes one audited action.
type Entry struct {
	Action      string
	ActorID     string
	Description string
	Reference   string
	Outcome     string
}

// Trail records audited actions for downstream review.
type Trail interface {
	Record(ctx context.Context, entry Entry)
}

// LoggerTrail writes audit entries to the structured logger.
type LoggerTrail struct {
	logger *slog.Logger
}

// NewLoggerTrail constructs a logging audit trail.
func NewLoggerTrail(logger *slog.Logger) *LoggerTrail {
	return &LoggerTrail{logger: logger}
}

// Record writes the entry to the structured logger.
func (t *LoggerTrail) Record(_ context.Context, entry Entry) {
	if t == nil || t.logger == nil {
		return
	}
	t.logger.Info("audit",
		"action", entry.Action,
		"actor_id", entry.ActorID,
		"description", entry.Description,
		"reference", entry.Reference,
		"outcome", entry.Outcome,
	)
}
