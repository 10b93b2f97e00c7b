package audit

import (
	"context"
	"log/slog"
)

// LogRepo writes events as structured log records. It is the production sink:
// the local store holds only agent mappings, so the trail lives in the log
// pipeline.
type LogRepo struct {
	l *slog.Logger
}

func NewLogRepo(l *slog.Logger) *LogRepo {
	if l == nil {
		l = slog.Default()
	}
	return &LogRepo{l: l.With("component", "audit")}
}

func (r *LogRepo) Append(ctx context.Context, e Event) error {
	attrs := []slog.Attr{
		slog.String("event_id", e.ID),
		slog.String("type", string(e.Type)),
		slog.String("owner_user_id", e.OwnerUserID),
		slog.Time("created_at", e.CreatedAt),
	}
	if e.AgentID != "" {
		attrs = append(attrs, slog.String("agent_id", e.AgentID))
	}
	if e.ExternalID != "" {
		attrs = append(attrs, slog.String("external_id", e.ExternalID))
	}
	if e.Message != "" {
		attrs = append(attrs, slog.String("message", e.Message))
	}
	if e.Metadata != "" {
		attrs = append(attrs, slog.String("metadata", e.Metadata))
	}
	r.l.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	return nil
}
