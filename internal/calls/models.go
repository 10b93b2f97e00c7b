package calls

import "time"

// Execution is one attempted or completed call made by an agent, as reported
// by the voice-agent platform. It is never persisted locally; every read goes
// back to the platform.
type Execution struct {
	ID      string `json:"id"`
	AgentID string `json:"agent_id"`
	BatchID string `json:"batch_id,omitempty"`

	Status       Status `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`

	// ConversationDuration is in seconds and may be fractional.
	ConversationDuration float64 `json:"conversation_duration"`
	TotalCost            float64 `json:"total_cost"`

	AnsweredByVoicemail bool   `json:"answered_by_voice_mail"`
	Transcript          string `json:"transcript,omitempty"`

	// HasRecording is set only for completed calls with a recording URL.
	HasRecording bool `json:"has_recording"`

	CostBreakdown CostBreakdown `json:"cost_breakdown"`
	Telephony     Telephony     `json:"telephony_data"`

	ExtractedData map[string]any `json:"extracted_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CostBreakdown struct {
	LLM         float64 `json:"llm"`
	Network     float64 `json:"network"`
	Platform    float64 `json:"platform"`
	Synthesizer float64 `json:"synthesizer"`
	Transcriber float64 `json:"transcriber"`
}

type Telephony struct {
	Duration           float64 `json:"duration"`
	ToNumber           string  `json:"to_number"`
	FromNumber         string  `json:"from_number"`
	RecordingURL       string  `json:"recording_url,omitempty"`
	HostedTelephony    bool    `json:"hosted_telephony"`
	ProviderCallID     string  `json:"provider_call_id,omitempty"`
	CallType           string  `json:"call_type,omitempty"`
	Provider           string  `json:"provider,omitempty"`
	HangupBy           string  `json:"hangup_by,omitempty"`
	HangupReason       string  `json:"hangup_reason,omitempty"`
	HangupProviderCode string  `json:"hangup_provider_code,omitempty"`
}

// Status values reported by the platform. Unknown values are kept verbatim.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusInProgress Status = "in_progress"
	StatusPending    Status = "pending"
)

// PlayableRecording reports whether a call with this status and recording URL
// has a recording worth linking. Only completed calls do.
func PlayableRecording(s Status, recordingURL string) bool {
	return s == StatusCompleted && recordingURL != ""
}

// Page is one page of an agent's execution history.
type Page struct {
	PageNumber int         `json:"page_number"`
	PageSize   int         `json:"page_size"`
	Total      int         `json:"total"`
	HasMore    bool        `json:"has_more"`
	Data       []Execution `json:"data"`
}
