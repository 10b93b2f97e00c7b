package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records agent lifecycle events. Callers treat it as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.OwnerUserID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogAgentEvent records a change to a mapped agent.
func (s *Service) LogAgentEvent(ctx context.Context, typ EventType, ownerUserID, agentID, externalID, message string) error {
	return s.Append(ctx, Event{
		OwnerUserID: ownerUserID,
		Type:        typ,
		AgentID:     agentID,
		ExternalID:  externalID,
		Message:     message,
	})
}

// LogOrphanCompensation records that a platform agent was created without a
// local mapping. compensated reports whether the platform delete succeeded.
func (s *Service) LogOrphanCompensation(ctx context.Context, ownerUserID, externalID string, compensated bool, metadata string) error {
	msg := "orphaned platform agent deleted"
	if !compensated {
		msg = "orphaned platform agent left in place"
	}
	return s.Append(ctx, Event{
		OwnerUserID: ownerUserID,
		Type:        EventAgentOrphanCompensated,
		ExternalID:  externalID,
		Message:     msg,
		Metadata:    metadata,
	})
}
