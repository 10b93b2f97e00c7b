package agents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "modernc.org/sqlite"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "agents.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := NewSQLiteRepo(db)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return repo
}

func steppingClock() func() time.Time {
	base := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

// Each implementation must satisfy the same contract.
func TestRepositories(t *testing.T) {
	impls := map[string]func(t *testing.T) Repository{
		"memory": func(t *testing.T) Repository {
			r := NewMemoryRepo()
			r.clock = steppingClock()
			return r
		},
		"sqlite": func(t *testing.T) Repository {
			r := newSQLiteRepo(t)
			r.clock = steppingClock()
			return r
		},
	}
	for name, mk := range impls {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := mk(t)

			a, err := repo.Create(ctx, NewRecord{ExternalID: "ext-a", OwnerUserID: "u1"})
			if err != nil {
				t.Fatalf("create a: %v", err)
			}
			b, err := repo.Create(ctx, NewRecord{ExternalID: "ext-b", OwnerUserID: "u1"})
			if err != nil {
				t.Fatalf("create b: %v", err)
			}
			if _, err := repo.Create(ctx, NewRecord{ExternalID: "ext-c", OwnerUserID: "u2"}); err != nil {
				t.Fatalf("create c: %v", err)
			}
			if _, err := repo.Create(ctx, NewRecord{ExternalID: "ext-a", OwnerUserID: "u2"}); !errors.Is(err, ErrDuplicateExternalID) {
				t.Fatalf("expected ErrDuplicateExternalID, got %v", err)
			}
			if _, err := repo.Create(ctx, NewRecord{ExternalID: "", OwnerUserID: "u1"}); err == nil {
				t.Fatalf("expected error for empty external id")
			}

			got, err := repo.FindByID(ctx, a.ID)
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if got.ExternalID != "ext-a" || got.OwnerUserID != "u1" || !got.CreatedAt.Equal(a.CreatedAt) {
				t.Fatalf("unexpected record: %+v vs %+v", got, a)
			}
			if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			list, err := repo.ListByOwner(ctx, "u1")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(list) != 2 || list[0].ID != b.ID || list[1].ID != a.ID {
				t.Fatalf("expected [b a], got %+v", list)
			}
			if empty, _ := repo.ListByOwner(ctx, "nobody"); empty == nil || len(empty) != 0 {
				t.Fatalf("expected empty non-nil list, got %#v", empty)
			}

			if err := repo.Delete(ctx, a.ID); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := repo.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("second delete: expected ErrNotFound, got %v", err)
			}
			if _, err := repo.FindByID(ctx, a.ID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected deleted record to be gone, got %v", err)
			}
		})
	}
}

func TestSQLiteRepo_SchemaIsIdempotent(t *testing.T) {
	repo := newSQLiteRepo(t)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if isUniqueViolation(errors.New("duplicate")) {
		t.Fatalf("plain errors are not unique violations")
	}
	wrapped := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	if !isUniqueViolation(wrapped) {
		t.Fatalf("expected wrapped 23505 to be a unique violation")
	}
}

func TestRedisKeys(t *testing.T) {
	if got := idempotencyKey("u1", "k"); got != "agents:create:u1:k" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := throttleKey("a1"); got != "agents:test_call:a1" {
		t.Fatalf("unexpected key %q", got)
	}
}
