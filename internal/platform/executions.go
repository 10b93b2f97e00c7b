package platform

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"voice-agent-dashboard/internal/calls"
)

// Execution rows are decoded leniently: a field of an unexpected type reads as
// its zero value instead of failing the page. The page envelope is strict.

// Timestamp parses platform times. The platform sometimes omits the zone
// suffix; such values are UTC. Unparsable values read as the zero time.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	t.Time = time.Time{}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if v, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = v.UTC()
			return nil
		}
	}
	return nil
}

// looseFloat accepts a number or a numeric string.
type looseFloat struct {
	v   float64
	set bool
}

func (f *looseFloat) UnmarshalJSON(b []byte) error {
	*f = looseFloat{}
	raw := string(bytes.TrimSpace(b))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		f.v, f.set = v, true
	}
	return nil
}

// looseString accepts a string, or a number kept as its literal text.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	*s = ""
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case string:
		*s = looseString(x)
	case float64:
		*s = looseString(bytes.TrimSpace(b))
	}
	return nil
}

// looseBool accepts a bool or its string form.
type looseBool bool

func (v *looseBool) UnmarshalJSON(b []byte) error {
	*v = false
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		s = string(bytes.TrimSpace(b))
	}
	ok, _ := strconv.ParseBool(strings.TrimSpace(s))
	*v = looseBool(ok)
	return nil
}

// looseObject decodes T when the value fits and stays zero otherwise.
type looseObject[T any] struct {
	v T
}

func (o *looseObject[T]) UnmarshalJSON(b []byte) error {
	var v T
	if err := json.Unmarshal(b, &v); err == nil {
		o.v = v
	}
	return nil
}

type costWire struct {
	LLM         looseFloat `json:"llm"`
	Network     looseFloat `json:"network"`
	Platform    looseFloat `json:"platform"`
	Synthesizer looseFloat `json:"synthesizer"`
	Transcriber looseFloat `json:"transcriber"`
}

type telephonyWire struct {
	Duration           looseFloat  `json:"duration"`
	ToNumber           looseString `json:"to_number"`
	FromNumber         looseString `json:"from_number"`
	RecordingURL       looseString `json:"recording_url"`
	HostedTelephony    looseBool   `json:"hosted_telephony"`
	ProviderCallID     looseString `json:"provider_call_id"`
	CallType           looseString `json:"call_type"`
	Provider           looseString `json:"provider"`
	HangupBy           looseString `json:"hangup_by"`
	HangupReason       looseString `json:"hangup_reason"`
	HangupProviderCode looseString `json:"hangup_provider_code"`
}

type executionWire struct {
	ID           looseString `json:"id"`
	AgentID      looseString `json:"agent_id"`
	BatchID      looseString `json:"batch_id"`
	Status       looseString `json:"status"`
	ErrorMessage looseString `json:"error_message"`

	ConversationDuration looseFloat `json:"conversation_duration"`
	ConversationTime     looseFloat `json:"conversation_time"`
	TotalCost            looseFloat `json:"total_cost"`

	AnsweredByVoicemail looseBool   `json:"answered_by_voice_mail"`
	Transcript          looseString `json:"transcript"`

	CostBreakdown looseObject[costWire]       `json:"cost_breakdown"`
	Telephony     looseObject[telephonyWire]  `json:"telephony_data"`
	ExtractedData looseObject[map[string]any] `json:"extracted_data"`

	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

func (w executionWire) execution() calls.Execution {
	// conversation_duration is current; conversation_time is the older field name.
	var dur float64
	switch {
	case w.ConversationDuration.set:
		dur = w.ConversationDuration.v
	case w.ConversationTime.set:
		dur = w.ConversationTime.v
	}
	cost := w.CostBreakdown.v
	tel := w.Telephony.v
	status := calls.Status(w.Status)
	return calls.Execution{
		ID:                   string(w.ID),
		AgentID:              string(w.AgentID),
		BatchID:              string(w.BatchID),
		Status:               status,
		ErrorMessage:         string(w.ErrorMessage),
		ConversationDuration: dur,
		TotalCost:            w.TotalCost.v,
		AnsweredByVoicemail:  bool(w.AnsweredByVoicemail),
		Transcript:           string(w.Transcript),
		HasRecording:         calls.PlayableRecording(status, string(tel.RecordingURL)),
		CostBreakdown: calls.CostBreakdown{
			LLM:         cost.LLM.v,
			Network:     cost.Network.v,
			Platform:    cost.Platform.v,
			Synthesizer: cost.Synthesizer.v,
			Transcriber: cost.Transcriber.v,
		},
		Telephony: calls.Telephony{
			Duration:           tel.Duration.v,
			ToNumber:           string(tel.ToNumber),
			FromNumber:         string(tel.FromNumber),
			RecordingURL:       string(tel.RecordingURL),
			HostedTelephony:    bool(tel.HostedTelephony),
			ProviderCallID:     string(tel.ProviderCallID),
			CallType:           string(tel.CallType),
			Provider:           string(tel.Provider),
			HangupBy:           string(tel.HangupBy),
			HangupReason:       string(tel.HangupReason),
			HangupProviderCode: string(tel.HangupProviderCode),
		},
		ExtractedData: w.ExtractedData.v,
		CreatedAt:     w.CreatedAt.Time,
		UpdatedAt:     w.UpdatedAt.Time,
	}
}

// pageWire counts accept integral floats ("total": 51.0).
type pageWire struct {
	PageNumber looseFloat      `json:"page_number"`
	PageSize   looseFloat      `json:"page_size"`
	Total      looseFloat      `json:"total"`
	HasMore    bool            `json:"has_more"`
	Data       []executionWire `json:"data"`
}

func (p pageWire) page() calls.Page {
	out := calls.Page{
		PageNumber: int(p.PageNumber.v),
		PageSize:   int(p.PageSize.v),
		Total:      int(p.Total.v),
		HasMore:    p.HasMore,
		Data:       make([]calls.Execution, 0, len(p.Data)),
	}
	for _, w := range p.Data {
		out.Data = append(out.Data, w.execution())
	}
	return out
}
