package platform

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voice-agent-dashboard/internal/calls"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "k", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c
}

func TestNewClient_RequiresKeyAndURL(t *testing.T) {
	if _, err := NewClient(Config{APIKey: "k"}); err == nil {
		t.Fatalf("expected base url error")
	}
	if _, err := NewClient(Config{BaseURL: "http://x"}); err == nil {
		t.Fatalf("expected api key error")
	}
}

func TestCreateAgent_SendsFullDocument(t *testing.T) {
	var raw string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/agent" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing bearer token")
		}
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
		_, _ = w.Write([]byte(`{"agent_id":"ext-1","status":"created"}`))
	})

	id, err := c.CreateAgent(context.Background(), Compose(Editable{Name: "Sales", WelcomeMessage: "hi", SystemPrompt: "be nice", VoiceID: "arya", VoiceName: "Arya"}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != "ext-1" {
		t.Fatalf("expected ext-1, got %q", id)
	}

	for _, want := range []string{
		`"agent_name":"Sales"`,
		`"whitelist_phone_numbers":["<any>"]`,
		`"summarization_details":null`,
		`"call_cancellation_prompt":null`,
		`"api_tools":null`,
		`"hangup_after_LLMCall":false`,
		`"agent_prompts":{"task_1":{"system_prompt":"be nice"}}`,
		`"voice_id":"arya"`,
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("request body missing %s:\n%s", want, raw)
		}
	}
}

func TestCreateAgent_MissingAgentIDIsMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	_, err := c.CreateAgent(context.Background(), DefaultDocument())
	if !errors.Is(err, ErrUpstream) || !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected upstream+malformed, got %v", err)
	}
}

func TestGetAgent_FlatResponse(t *testing.T) {
	doc := Compose(Editable{Name: "Support", WelcomeMessage: "hello", SystemPrompt: "p", VoiceID: "karun", VoiceName: "Karun"})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/agent/ext-2" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		// The platform returns agent settings at the top level.
		flat := map[string]any{
			"agent_id":              "ext-2",
			"agent_name":            doc.Config.AgentName,
			"agent_welcome_message": doc.Config.WelcomeMessage,
			"tasks":                 doc.Config.Tasks,
			"agent_prompts":         doc.Prompts,
		}
		_ = json.NewEncoder(w).Encode(flat)
	})

	got, err := c.GetAgent(context.Background(), "ext-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	e, err := got.Editable()
	if err != nil {
		t.Fatalf("editable: %v", err)
	}
	if e.Name != "Support" || e.WelcomeMessage != "hello" || e.SystemPrompt != "p" || e.VoiceID != "karun" || e.VoiceName != "Karun" {
		t.Fatalf("unexpected editable: %+v", e)
	}
}

func TestGetAgent_NestedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := encodeJSON(Compose(Editable{Name: "Nested"}))
		_, _ = w.Write(b)
	})
	got, err := c.GetAgent(context.Background(), "ext-3")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Nested" || got.Voice == nil {
		t.Fatalf("expected nested agent_config to be used, got %+v", got)
	}
}

func TestGetAgent_ToleratesOperationalTypeDrift(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"agent_id": "ext-4",
			"agent_name": "Drifted",
			"agent_welcome_message": "hey",
			"tasks": [{
				"task_type": "conversation",
				"tools_config": {
					"llm_agent": {"llm_config": {"max_tokens": 150.0, "top_k": "0", "temperature": "0.1"}},
					"transcriber": {"sampling_rate": 16000.0, "endpointing": 100.5},
					"synthesizer": {"buffer_size": 200.0, "provider_config": {"voice": "Vidya", "voice_id": "vidya", "speed": "1"}}
				},
				"task_config": {"hangup_after_silence": 10.0, "call_terminate": "90", "whitelist_phone_numbers": null}
			}],
			"agent_prompts": {"task_1": {"system_prompt": "be brief"}}
		}`))
	})
	got, err := c.GetAgent(context.Background(), "ext-4")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	e, err := got.Editable()
	if err != nil {
		t.Fatalf("editable: %v", err)
	}
	want := Editable{Name: "Drifted", WelcomeMessage: "hey", SystemPrompt: "be brief", VoiceID: "vidya", VoiceName: "Vidya"}
	if e != want {
		t.Fatalf("unexpected editable: %+v", e)
	}
}

func TestUpdateAgent_UsesPut(t *testing.T) {
	var method string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusOK)
	})
	if err := c.UpdateAgent(context.Background(), "ext-1", DefaultDocument()); err != nil {
		t.Fatalf("update: %v", err)
	}
	if method != http.MethodPut {
		t.Fatalf("expected PUT, got %s", method)
	}
}

func TestInitiateCall(t *testing.T) {
	var got callRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/call" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	})
	if err := c.InitiateCall(context.Background(), "ext-1", "+919999999999"); err != nil {
		t.Fatalf("call: %v", err)
	}
	if got.AgentID != "ext-1" || got.RecipientPhoneNumber != "+919999999999" {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestUpstreamStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid config", http.StatusUnprocessableEntity)
	})
	err := c.UpdateAgent(context.Background(), "ext-1", DefaultDocument())
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	var perr *Error
	if !errors.As(err, &perr) || perr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %v", err)
	}
	if errors.Is(err, ErrMalformed) {
		t.Fatalf("status errors are not malformed responses")
	}
}

func TestListExecutions_DecodesPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/agent/ext-1/executions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("page_number") != "2" || r.URL.Query().Get("page_size") != "50" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{
			"page_number": 2, "page_size": 50, "total": 51, "has_more": false,
			"data": [
				{"id":"e1","status":"completed","conversation_duration":12.5,"created_at":"2025-03-01T10:00:00.123456",
				 "telephony_data":{"to_number":"+911","from_number":"+912","recording_url":"https://r/e1.wav"},
				 "cost_breakdown":{"llm":0.1}},
				{"id":"e2","status":"failed","conversation_time":7,"created_at":"2025-03-02T10:00:00Z","telephony_data":null}
			]}`))
	})

	p, err := c.ListExecutions(context.Background(), "ext-1", 2, 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if p.Total != 51 || p.HasMore || len(p.Data) != 2 {
		t.Fatalf("unexpected page: %+v", p)
	}
	e1 := p.Data[0]
	if e1.ConversationDuration != 12.5 || !e1.HasRecording || e1.CostBreakdown.LLM != 0.1 {
		t.Fatalf("unexpected e1: %+v", e1)
	}
	want := time.Date(2025, 3, 1, 10, 0, 0, 123456000, time.UTC)
	if !e1.CreatedAt.Equal(want) {
		t.Fatalf("expected zoneless timestamp parsed as UTC, got %v", e1.CreatedAt)
	}
	if p.Data[1].ConversationDuration != 7 || p.Data[1].Status != calls.StatusFailed {
		t.Fatalf("expected conversation_time fallback, got %+v", p.Data[1])
	}
}

func TestListExecutions_ToleratesRowTypeDrift(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"page_number": 1.0, "page_size": 50, "total": 3.0, "has_more": false,
			"data": [
				{"id":"e1","status":"completed","conversation_duration":"30.5","created_at":"2025-03-01T10:00:00Z",
				 "telephony_data":{"hangup_provider_code":"487","duration":"31","hosted_telephony":"true"}},
				{"id":"e2","status":"completed","conversation_duration":20,"created_at":"last tuesday",
				 "telephony_data":{"hangup_provider_code":16,"recording_url":"https://r/e2.wav"},
				 "cost_breakdown":"n/a","extracted_data":[1,2]},
				{"id":7,"status":"failed","conversation_duration":null,"created_at":1740823200,"telephony_data":"none"}
			]}`))
	})

	p, err := c.ListExecutions(context.Background(), "ext-1", 1, 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if p.Total != 3 || p.PageNumber != 1 || len(p.Data) != 3 {
		t.Fatalf("unexpected page: %+v", p)
	}

	e1, e2, e3 := p.Data[0], p.Data[1], p.Data[2]
	if e1.ConversationDuration != 30.5 || e1.Telephony.HangupProviderCode != "487" || e1.Telephony.Duration != 31 || !e1.Telephony.HostedTelephony {
		t.Fatalf("unexpected e1: %+v", e1)
	}
	if e1.CreatedAt.IsZero() {
		t.Fatalf("expected e1 timestamp")
	}
	if e2.ConversationDuration != 20 || e2.Telephony.HangupProviderCode != "16" || !e2.HasRecording {
		t.Fatalf("unexpected e2: %+v", e2)
	}
	if !e2.CreatedAt.IsZero() || e2.ExtractedData != nil || e2.CostBreakdown.LLM != 0 {
		t.Fatalf("expected unusable e2 fields to read as zero: %+v", e2)
	}
	if e3.ID != "7" || e3.ConversationDuration != 0 || !e3.CreatedAt.IsZero() || e3.HasRecording {
		t.Fatalf("unexpected e3: %+v", e3)
	}
}

func TestRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k", Timeout: 50 * time.Millisecond, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if _, err := c.ListExecutions(context.Background(), "ext-1", 1, 50); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected upstream timeout error, got %v", err)
	}
}
