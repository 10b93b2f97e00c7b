package utils

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestPoolConfigDefaults(t *testing.T) {
	got := PoolConfig{MaxOpenConns: 4}.withDefaults()
	if got.MaxOpenConns != 4 || got.MaxIdleConns != 4 {
		t.Fatalf("idle conns should follow open conns: %+v", got)
	}
	if got.PingTimeout != 5*time.Second || got.ConnMaxLifetime != 30*time.Minute {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}

func TestOpenDB_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "t.db") + "?_pragma=journal_mode(WAL)"
	db, err := OpenDB(context.Background(), "sqlite", dsn, PoolConfig{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if err := HealthCheck(context.Background(), db, time.Second); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestOpenDB_UnknownDriver(t *testing.T) {
	if _, err := OpenDB(context.Background(), "nope", "x", PoolConfig{}); err == nil {
		t.Fatalf("expected error for unregistered driver")
	}
}
