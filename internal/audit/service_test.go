package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestService_AppendRequiresOwnerAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventAgentCreated}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{OwnerUserID: "u"}); err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.Events()) != 0 {
		t.Fatalf("invalid events must not be stored")
	}
}

func TestService_LogAgentEvent(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogAgentEvent(context.Background(), EventAgentUpdated, "u", "a1", "ext-1", "config replaced"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp to be filled")
	}
	if evs[0].AgentID != "a1" || evs[0].ExternalID != "ext-1" || evs[0].Type != EventAgentUpdated {
		t.Fatalf("unexpected event: %+v", evs[0])
	}
}

func TestService_LogOrphanCompensation(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	_ = svc.LogOrphanCompensation(context.Background(), "u", "ext-9", false, `{"error":"boom"}`)
	evs := repo.Events()
	if len(evs) != 1 || evs[0].Type != EventAgentOrphanCompensated || evs[0].AgentID != "" {
		t.Fatalf("unexpected events: %+v", evs)
	}
	if evs[0].Message != "orphaned platform agent left in place" {
		t.Fatalf("unexpected message %q", evs[0].Message)
	}
}

func TestLogRepo_WritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))
	svc := NewService(NewLogRepo(l))

	if err := svc.LogAgentEvent(context.Background(), EventAgentDeleted, "u", "a1", "", ""); err != nil {
		t.Fatalf("append: %v", err)
	}

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if rec["msg"] != "audit" || rec["type"] != "agent_deleted" || rec["agent_id"] != "a1" || rec["component"] != "audit" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if _, ok := rec["external_id"]; ok {
		t.Fatalf("empty fields should be omitted")
	}
}
