package agents

import "time"

// Record maps an internal agent id to the platform's agent id and its owner.
// ExternalID and OwnerUserID never change after creation.
type Record struct {
	ID          string    `json:"id" db:"id"`
	ExternalID  string    `json:"external_id" db:"external_id"`
	OwnerUserID string    `json:"owner_user_id" db:"owner_user_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type NewRecord struct {
	ExternalID  string
	OwnerUserID string
}

// Config is the editable conversational configuration. It lives only at the
// platform; every read is a round trip.
type Config struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	WelcomeMessage string `json:"welcome_message"`
	SystemPrompt   string `json:"system_prompt"`
	VoiceID        string `json:"voice_id"`
	VoiceName      string `json:"voice_name"`
}

type NameStatus string

const (
	NameOK          NameStatus = "ok"
	NameUnavailable NameStatus = "unavailable"
)

// Summary is a list row. NameStatus tells an empty name apart from a failed lookup.
type Summary struct {
	Record
	Name       string     `json:"name"`
	NameStatus NameStatus `json:"name_status"`
}
