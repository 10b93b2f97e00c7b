package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"voice-agent-dashboard/internal/audit"
	"voice-agent-dashboard/internal/auth"
	"voice-agent-dashboard/internal/platform"
	"voice-agent-dashboard/internal/voices"
	"voice-agent-dashboard/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Platform is the subset of the voice-agent platform the service uses.
type Platform interface {
	CreateAgent(ctx context.Context, doc platform.Document) (string, error)
	GetAgent(ctx context.Context, externalID string) (platform.AgentView, error)
	UpdateAgent(ctx context.Context, externalID string, doc platform.Document) error
	DeleteAgent(ctx context.Context, externalID string) error
	InitiateCall(ctx context.Context, externalID, phoneNumber string) error
}

// Auditor receives lifecycle events. Failures are logged and never surface.
type Auditor interface {
	LogAgentEvent(ctx context.Context, typ audit.EventType, ownerUserID, agentID, externalID, message string) error
	LogOrphanCompensation(ctx context.Context, ownerUserID, externalID string, compensated bool, metadata string) error
}

// IdempotencyStore maps create request keys to the record they produced. A
// key is reserved before the platform call and completed after the record is
// stored.
type IdempotencyStore interface {
	// Reserve claims key. If the key is already held it returns false with the
	// recorded id, or an empty id while the holder is still creating.
	Reserve(ctx context.Context, ownerUserID, key string) (reserved bool, recordID string, err error)
	Complete(ctx context.Context, ownerUserID, key, recordID string) error
	Release(ctx context.Context, ownerUserID, key string) error
}

// Throttle limits how often test calls may be placed through one agent.
type Throttle interface {
	Acquire(ctx context.Context, agentID string) (bool, error)
}

var (
	ErrValidation   = errors.New("validation failed")
	ErrThrottled    = errors.New("test call already in progress")
	ErrInProgress   = errors.New("create with this idempotency key is in progress")
	ErrUnauthorized = auth.ErrUnauthorized
	ErrUpstream     = platform.ErrUpstream
)

const (
	MaxNameLength = 50

	defaultEnrichConcurrency = 8
)

type Options struct {
	Audit       Auditor
	Idempotency IdempotencyStore
	Throttle    Throttle

	// EnrichConcurrency bounds concurrent name lookups in ListAgents.
	EnrichConcurrency int
}

// Service owns agent lifecycle. Local records only map ids and owners; the
// conversational configuration always lives at the platform.
//
// Every operation resolves the caller via auth.UserID and checks ownership
// locally. The platform credential is shared by all users.
type Service struct {
	repo     Repository
	platform Platform
	opts     Options
}

func NewService(repo Repository, p Platform, opts Options) *Service {
	if opts.EnrichConcurrency <= 0 {
		opts.EnrichConcurrency = defaultEnrichConcurrency
	}
	return &Service{repo: repo, platform: p, opts: opts}
}

// ListAgents returns the caller's agents newest first, each with its display
// name looked up at the platform. A failed lookup marks only that row.
func (s *Service) ListAgents(ctx context.Context) ([]Summary, error) {
	owner, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}
	recs, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}

	out := make([]Summary, len(recs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.EnrichConcurrency)
	for i, rec := range recs {
		i, rec := i, rec
		out[i] = Summary{Record: rec, NameStatus: NameUnavailable}
		g.Go(func() error {
			view, err := s.platform.GetAgent(gctx, rec.ExternalID)
			if err != nil {
				logger.From(ctx).Warn("agent name lookup failed",
					"agent_id", rec.ID, "external_id", rec.ExternalID, "err", err)
				return nil
			}
			out[i].Name = view.Name
			out[i].NameStatus = NameOK
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// CreateAgent registers a new agent with default conversation settings.
// With a non-empty idempotencyKey, a retried request returns the record the
// first request created instead of creating another platform agent.
func (s *Service) CreateAgent(ctx context.Context, name, idempotencyKey string) (Record, error) {
	owner, err := auth.UserID(ctx)
	if err != nil {
		return Record{}, err
	}
	name, err = validateName(name)
	if err != nil {
		return Record{}, err
	}
	log := logger.From(ctx)

	claimed := false
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey != "" && s.opts.Idempotency != nil {
		reserved, id, err := s.opts.Idempotency.Reserve(ctx, owner, idempotencyKey)
		switch {
		case err != nil:
			log.Warn("idempotency reserve failed", "err", err)
		case reserved:
			claimed = true
		case id == "":
			return Record{}, ErrInProgress
		default:
			rec, err := s.repo.FindByID(ctx, id)
			if err == nil && rec.OwnerUserID == owner {
				return rec, nil
			}
			if err != nil && !errors.Is(err, ErrNotFound) {
				return Record{}, fmt.Errorf("find agent: %w", err)
			}
			// The earlier record is gone; this request takes the key over.
			claimed = true
		}
	}

	extID, err := s.platform.CreateAgent(ctx, platform.Compose(platform.Editable{
		Name:           name,
		WelcomeMessage: platform.DefaultWelcomeMessage,
		SystemPrompt:   platform.DefaultSystemPrompt,
		VoiceID:        platform.DefaultVoiceID,
		VoiceName:      platform.DefaultVoiceName,
	}))
	if err != nil {
		if claimed {
			s.releaseKey(ctx, owner, idempotencyKey)
		}
		return Record{}, err
	}

	rec, err := s.repo.Create(ctx, NewRecord{ExternalID: extID, OwnerUserID: owner})
	if err != nil {
		s.compensate(ctx, owner, extID, err)
		if claimed {
			s.releaseKey(ctx, owner, idempotencyKey)
		}
		return Record{}, fmt.Errorf("persist agent: %w", err)
	}

	if claimed {
		if err := s.opts.Idempotency.Complete(ctx, owner, idempotencyKey, rec.ID); err != nil {
			log.Warn("idempotency complete failed", "agent_id", rec.ID, "err", err)
		}
	}
	s.audit(ctx, audit.EventAgentCreated, owner, rec.ID, extID, "agent created")
	log.Info("agent created", "agent_id", rec.ID, "external_id", extID)
	return rec, nil
}

// releaseKey frees a reserved key so the client can retry a failed create.
func (s *Service) releaseKey(ctx context.Context, owner, key string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.opts.Idempotency.Release(rctx, owner, key); err != nil {
		logger.From(ctx).Warn("idempotency release failed", "err", err)
	}
}

// compensate removes a platform agent that has no local mapping. It runs on a
// fresh context so a cancelled request still cleans up.
func (s *Service) compensate(ctx context.Context, owner, extID string, cause error) {
	log := logger.From(ctx)
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	delErr := s.platform.DeleteAgent(cctx, extID)
	if delErr != nil {
		log.Error("orphaned platform agent", "external_id", extID, "persist_err", cause, "delete_err", delErr)
	} else {
		log.Warn("deleted platform agent after persist failure", "external_id", extID, "persist_err", cause)
	}

	meta, _ := json.Marshal(map[string]string{"persist_error": cause.Error()})
	if s.opts.Audit != nil {
		if err := s.opts.Audit.LogOrphanCompensation(cctx, owner, extID, delErr == nil, string(meta)); err != nil {
			log.Warn("audit append failed", "type", audit.EventAgentOrphanCompensated, "err", err)
		}
	}
}

// GetAgent returns the agent's editable configuration. A nil config with a nil
// error means the platform could not supply it.
func (s *Service) GetAgent(ctx context.Context, id string) (*Config, error) {
	rec, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	log := logger.From(ctx)

	view, err := s.platform.GetAgent(ctx, rec.ExternalID)
	if err != nil {
		log.Warn("agent fetch failed", "agent_id", rec.ID, "external_id", rec.ExternalID, "err", err)
		return nil, nil
	}
	e, err := view.Editable()
	if err != nil {
		log.Warn("agent document malformed", "agent_id", rec.ID, "external_id", rec.ExternalID, "err", err)
		return nil, nil
	}
	return &Config{
		ID:             rec.ID,
		Name:           e.Name,
		WelcomeMessage: e.WelcomeMessage,
		SystemPrompt:   e.SystemPrompt,
		VoiceID:        e.VoiceID,
		VoiceName:      e.VoiceName,
	}, nil
}

// UpdateAgent replaces the agent's configuration at the platform. Fields the
// user cannot edit are always reset to the default template.
func (s *Service) UpdateAgent(ctx context.Context, id string, cfg Config) error {
	name, err := validateName(cfg.Name)
	if err != nil {
		return err
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = platform.DefaultVoiceID
	}
	if v, ok := voices.Lookup(cfg.VoiceID); ok {
		cfg.VoiceID = v.ID
		if cfg.VoiceName == "" {
			cfg.VoiceName = v.Name
		}
	} else if cfg.VoiceName == "" {
		return fmt.Errorf("%w: unknown voice %q", ErrValidation, cfg.VoiceID)
	}

	rec, err := s.owned(ctx, id)
	if err != nil {
		return err
	}
	doc := platform.Compose(platform.Editable{
		Name:           name,
		WelcomeMessage: cfg.WelcomeMessage,
		SystemPrompt:   cfg.SystemPrompt,
		VoiceID:        cfg.VoiceID,
		VoiceName:      cfg.VoiceName,
	})
	if err := s.platform.UpdateAgent(ctx, rec.ExternalID, doc); err != nil {
		return err
	}
	s.audit(ctx, audit.EventAgentUpdated, rec.OwnerUserID, rec.ID, rec.ExternalID, "agent configuration replaced")
	return nil
}

// InitiateTestCall asks the platform to call phoneNumber through the agent.
// Only the platform's accept is awaited.
func (s *Service) InitiateTestCall(ctx context.Context, id, phoneNumber string) error {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if !validPhone(phoneNumber) {
		return fmt.Errorf("%w: phone number must be in E.164 form", ErrValidation)
	}
	rec, err := s.owned(ctx, id)
	if err != nil {
		return err
	}
	if s.opts.Throttle != nil {
		ok, err := s.opts.Throttle.Acquire(ctx, rec.ID)
		if err != nil {
			logger.From(ctx).Warn("test call throttle unavailable", "agent_id", rec.ID, "err", err)
		} else if !ok {
			return ErrThrottled
		}
	}
	if err := s.platform.InitiateCall(ctx, rec.ExternalID, phoneNumber); err != nil {
		return err
	}
	s.audit(ctx, audit.EventTestCallInitiated, rec.OwnerUserID, rec.ID, rec.ExternalID, "test call requested")
	return nil
}

// DeleteAgent removes the local mapping only; the platform agent stays.
func (s *Service) DeleteAgent(ctx context.Context, id string) (bool, error) {
	rec, err := s.owned(ctx, id)
	if err != nil {
		return false, err
	}
	if err := s.repo.Delete(ctx, rec.ID); err != nil {
		return false, err
	}
	s.audit(ctx, audit.EventAgentDeleted, rec.OwnerUserID, rec.ID, rec.ExternalID, "local mapping removed")
	return true, nil
}

// Owned returns the caller's record for id. Records of other users are
// reported as ErrNotFound.
func (s *Service) Owned(ctx context.Context, id string) (Record, error) {
	return s.owned(ctx, id)
}

// ListOwned returns the caller's records without platform enrichment.
func (s *Service) ListOwned(ctx context.Context) ([]Record, error) {
	owner, err := auth.UserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByOwner(ctx, owner)
}

func (s *Service) owned(ctx context.Context, id string) (Record, error) {
	owner, err := auth.UserID(ctx)
	if err != nil {
		return Record{}, err
	}
	if strings.TrimSpace(id) == "" {
		return Record{}, ErrNotFound
	}
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.OwnerUserID != owner {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *Service) audit(ctx context.Context, typ audit.EventType, owner, agentID, extID, msg string) {
	if s.opts.Audit == nil {
		return
	}
	if err := s.opts.Audit.LogAgentEvent(ctx, typ, owner, agentID, extID, msg); err != nil {
		logger.From(ctx).Warn("audit append failed", "type", typ, "agent_id", agentID, "err", err)
	}
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrValidation)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: name must be at most %d characters", ErrValidation, MaxNameLength)
	}
	return name, nil
}

func validPhone(s string) bool {
	if len(s) < 9 || len(s) > 16 || s[0] != '+' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
