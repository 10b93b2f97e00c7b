package agents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLiteRepo stores agent records in SQLite (modernc.org/sqlite, registered
// as driver "sqlite"). Timestamps are stored as unix nanoseconds so ordering
// is exact.
type SQLiteRepo struct {
	db    *sql.DB
	clock func() time.Time
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db, clock: time.Now}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	external_id TEXT NOT NULL UNIQUE,
	owner_user_id TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_agents_owner_created ON agents(owner_user_id, created_at DESC);
`

func (r *SQLiteRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) Create(ctx context.Context, rec NewRecord) (Record, error) {
	if rec.ExternalID == "" || rec.OwnerUserID == "" {
		return Record{}, errors.New("agents: external_id and owner_user_id required")
	}
	now := r.clock().UTC()
	out := Record{
		ID:          uuid.NewString(),
		ExternalID:  rec.ExternalID,
		OwnerUserID: rec.OwnerUserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	query := `
	INSERT INTO agents (id, external_id, owner_user_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, out.ID, out.ExternalID, out.OwnerUserID, now.UnixNano(), now.UnixNano()); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return Record{}, ErrDuplicateExternalID
		}
		return Record{}, fmt.Errorf("insert agent: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepo) FindByID(ctx context.Context, id string) (Record, error) {
	query := `
		SELECT id, external_id, owner_user_id, created_at, updated_at
		FROM agents WHERE id = ?`
	rec, err := scanSQLiteRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan agent row: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]Record, error) {
	query := `
		SELECT id, external_id, owner_user_id, created_at, updated_at
		FROM agents WHERE owner_user_id = ?
		ORDER BY created_at DESC, rowid DESC`
	rows, err := r.db.QueryContext(ctx, query, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (Record, error) {
	var rec Record
	var createdAt, updatedAt int64
	if err := row.Scan(&rec.ID, &rec.ExternalID, &rec.OwnerUserID, &createdAt, &updatedAt); err != nil {
		return Record{}, err
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return rec, nil
}
