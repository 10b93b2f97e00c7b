package agents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresRepo stores agent records in Postgres through the pgx stdlib driver.
type PostgresRepo struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, clock: time.Now}
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS agents (
  id            TEXT PRIMARY KEY,
  external_id   TEXT NOT NULL UNIQUE,
  owner_user_id TEXT NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL,
  updated_at    TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_agents_owner_created ON agents (owner_user_id, created_at DESC)`,
}

// EnsureSchema creates the agents table when missing. It does not migrate
// existing tables.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	for _, q := range postgresSchema {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepo) Create(ctx context.Context, rec NewRecord) (Record, error) {
	if rec.ExternalID == "" || rec.OwnerUserID == "" {
		return Record{}, errors.New("agents: external_id and owner_user_id required")
	}
	const q = `
INSERT INTO agents (id, external_id, owner_user_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
RETURNING id, external_id, owner_user_id, created_at, updated_at
`
	now := r.clock().UTC()
	var out Record
	if err := r.db.QueryRowContext(ctx, q, uuid.NewString(), rec.ExternalID, rec.OwnerUserID, now).Scan(
		&out.ID,
		&out.ExternalID,
		&out.OwnerUserID,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return Record{}, ErrDuplicateExternalID
		}
		return Record{}, fmt.Errorf("insert agent: %w", err)
	}
	return out, nil
}

func (r *PostgresRepo) FindByID(ctx context.Context, id string) (Record, error) {
	const q = `
SELECT id, external_id, owner_user_id, created_at, updated_at
FROM agents
WHERE id = $1
`
	var out Record
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&out.ID,
		&out.ExternalID,
		&out.OwnerUserID,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("select agent: %w", err)
	}
	return out, nil
}

func (r *PostgresRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]Record, error) {
	const q = `
SELECT id, external_id, owner_user_id, created_at, updated_at
FROM agents
WHERE owner_user_id = $1
ORDER BY created_at DESC, id DESC
`
	rows, err := r.db.QueryContext(ctx, q, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.ExternalID, &rec.OwnerUserID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return out, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
