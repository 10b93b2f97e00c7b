package agents

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory repository for tests and local development.
// It is not intended for production use.
type MemoryRepo struct {
	mu      sync.Mutex
	records []Record

	// FailCreate, when set, is returned from Create. Tests use it to simulate
	// a local persistence failure after the platform accepted the agent.
	FailCreate error

	clock func() time.Time
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{clock: time.Now} }

func (r *MemoryRepo) Create(ctx context.Context, rec NewRecord) (Record, error) {
	if rec.ExternalID == "" || rec.OwnerUserID == "" {
		return Record{}, errors.New("agents: external_id and owner_user_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate != nil {
		return Record{}, r.FailCreate
	}
	for _, existing := range r.records {
		if existing.ExternalID == rec.ExternalID {
			return Record{}, ErrDuplicateExternalID
		}
	}
	now := r.clock().UTC()
	out := Record{
		ID:          uuid.NewString(),
		ExternalID:  rec.ExternalID,
		OwnerUserID: rec.OwnerUserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.records = append(r.records, out)
	return out, nil
}

func (r *MemoryRepo) FindByID(ctx context.Context, id string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, 0)
	// walk backwards so equal timestamps keep newest-inserted first
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].OwnerUserID == ownerUserID {
			out = append(out, r.records[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range r.records {
		if rec.ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
