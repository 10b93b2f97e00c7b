package platform

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is the full agent configuration the platform requires on every
// create and update. The platform has no partial update, so every write sends
// a complete Document built from DefaultDocument.
type Document struct {
	Config  AgentSettings `json:"agent_config"`
	Prompts Prompts       `json:"agent_prompts"`
}

type AgentSettings struct {
	AgentName      string `json:"agent_name"`
	WelcomeMessage string `json:"agent_welcome_message"`
	Tasks          []Task `json:"tasks"`
}

// Prompts is keyed by task ("task_1", ...).
type Prompts map[string]TaskPrompt

type TaskPrompt struct {
	SystemPrompt string `json:"system_prompt"`
}

type Task struct {
	TaskType    string      `json:"task_type"`
	ToolsConfig ToolsConfig `json:"tools_config"`
	Toolchain   Toolchain   `json:"toolchain"`
	TaskConfig  TaskConfig  `json:"task_config"`
}

type ToolsConfig struct {
	LLMAgent    LLMAgent    `json:"llm_agent"`
	Synthesizer Synthesizer `json:"synthesizer"`
	Transcriber Transcriber `json:"transcriber"`
	Input       IOConfig    `json:"input"`
	Output      IOConfig    `json:"output"`
	APITools    any         `json:"api_tools"`
}

type LLMAgent struct {
	AgentType     string    `json:"agent_type"`
	AgentFlowType string    `json:"agent_flow_type"`
	LLMConfig     LLMConfig `json:"llm_config"`
}

type LLMConfig struct {
	AgentFlowType        string  `json:"agent_flow_type"`
	Provider             string  `json:"provider"`
	Family               string  `json:"family"`
	Model                string  `json:"model"`
	SummarizationDetails any     `json:"summarization_details"`
	ExtractionDetails    any     `json:"extraction_details"`
	MaxTokens            int     `json:"max_tokens"`
	PresencePenalty      float64 `json:"presence_penalty"`
	FrequencyPenalty     float64 `json:"frequency_penalty"`
	BaseURL              string  `json:"base_url"`
	TopP                 float64 `json:"top_p"`
	MinP                 float64 `json:"min_p"`
	TopK                 int     `json:"top_k"`
	Temperature          float64 `json:"temperature"`
	RequestJSON          bool    `json:"request_json"`
}

type Synthesizer struct {
	Stream         bool                `json:"stream"`
	Caching        bool                `json:"caching"`
	Provider       string              `json:"provider"`
	BufferSize     int                 `json:"buffer_size"`
	AudioFormat    string              `json:"audio_format"`
	ProviderConfig SynthProviderConfig `json:"provider_config"`
}

type SynthProviderConfig struct {
	Model           string  `json:"model"`
	Speed           float64 `json:"speed"`
	Voice           string  `json:"voice"`
	VoiceID         string  `json:"voice_id"`
	Temperature     float64 `json:"temperature"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type Transcriber struct {
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	Language     string `json:"language"`
	Stream       bool   `json:"stream"`
	SamplingRate int    `json:"sampling_rate"`
	Encoding     string `json:"encoding"`
	Endpointing  int    `json:"endpointing"`
}

type IOConfig struct {
	Provider string `json:"provider"`
	Format   string `json:"format"`
}

type Toolchain struct {
	Execution string     `json:"execution"`
	Pipelines [][]string `json:"pipelines"`
}

type TaskConfig struct {
	HangupAfterSilence           int      `json:"hangup_after_silence"`
	IncrementalDelay             int      `json:"incremental_delay"`
	NumberOfWordsForInterruption int      `json:"number_of_words_for_interruption"`
	HangupAfterLLMCall           bool     `json:"hangup_after_LLMCall"`
	CallCancellationPrompt       *string  `json:"call_cancellation_prompt"`
	Backchanneling               bool     `json:"backchanneling"`
	BackchannelingMessageGap     int      `json:"backchanneling_message_gap"`
	BackchannelingStartDelay     int      `json:"backchanneling_start_delay"`
	AmbientNoise                 bool     `json:"ambient_noise"`
	AmbientNoiseTrack            string   `json:"ambient_noise_track"`
	CallTerminate                int      `json:"call_terminate"`
	Voicemail                    bool     `json:"voicemail"`
	InboundLimit                 int      `json:"inbound_limit"`
	WhitelistPhoneNumbers        []string `json:"whitelist_phone_numbers"`
	DisallowUnknownNumbers       bool     `json:"disallow_unknown_numbers"`
}

const (
	primaryTask = "task_1"

	DefaultWelcomeMessage = "How May I help you today?"
	DefaultSystemPrompt   = "You are an AI assistant , your job is to help people for whatever they ask"
	DefaultVoiceID        = "vidya"
	DefaultVoiceName      = "Vidya"
)

// DefaultDocument returns a fresh copy of the canonical configuration. The
// operational parameters here are not user-editable; any field missing from a
// write resets platform-side behavior, so every write starts from this.
func DefaultDocument() Document {
	return Document{
		Config: AgentSettings{
			WelcomeMessage: DefaultWelcomeMessage,
			Tasks: []Task{{
				TaskType: "conversation",
				ToolsConfig: ToolsConfig{
					LLMAgent: LLMAgent{
						AgentType:     "simple_llm_agent",
						AgentFlowType: "streaming",
						LLMConfig: LLMConfig{
							AgentFlowType: "streaming",
							Provider:      "openai",
							Family:        "openai",
							Model:         "gpt-4.1-mini",
							MaxTokens:     150,
							BaseURL:       "https://api.openai.com/v1",
							TopP:          0.9,
							MinP:          0.1,
							TopK:          0,
							Temperature:   0.1,
							RequestJSON:   true,
						},
					},
					Synthesizer: Synthesizer{
						Stream:      true,
						Caching:     true,
						Provider:    "sarvam",
						BufferSize:  200,
						AudioFormat: "wav",
						ProviderConfig: SynthProviderConfig{
							Model:           "bulbul:v2",
							Speed:           1.0,
							Voice:           DefaultVoiceName,
							VoiceID:         DefaultVoiceID,
							Temperature:     0.5,
							SimilarityBoost: 0.5,
						},
					},
					Transcriber: Transcriber{
						Provider:     "deepgram",
						Model:        "nova-3",
						Language:     "multi-hi",
						Stream:       true,
						SamplingRate: 16000,
						Encoding:     "linear16",
						Endpointing:  100,
					},
					Input:  IOConfig{Provider: "plivo", Format: "wav"},
					Output: IOConfig{Provider: "plivo", Format: "wav"},
				},
				Toolchain: Toolchain{
					Execution: "parallel",
					Pipelines: [][]string{{"transcriber", "llm", "synthesizer"}},
				},
				TaskConfig: TaskConfig{
					HangupAfterSilence:           10,
					IncrementalDelay:             400,
					NumberOfWordsForInterruption: 2,
					BackchannelingMessageGap:     5,
					BackchannelingStartDelay:     5,
					AmbientNoiseTrack:            "office-ambience",
					CallTerminate:                90,
					InboundLimit:                 -1,
					WhitelistPhoneNumbers:        []string{"<any>"},
				},
			}},
		},
		Prompts: Prompts{primaryTask: {SystemPrompt: DefaultSystemPrompt}},
	}
}

// Editable is the user-facing subset of the configuration.
type Editable struct {
	Name           string
	WelcomeMessage string
	SystemPrompt   string
	VoiceID        string
	VoiceName      string
}

// Compose merges editable fields into a fresh default document.
func Compose(e Editable) Document {
	doc := DefaultDocument()
	doc.Config.AgentName = e.Name
	doc.Config.WelcomeMessage = e.WelcomeMessage
	doc.Prompts = Prompts{primaryTask: {SystemPrompt: e.SystemPrompt}}
	pc := &doc.Config.Tasks[0].ToolsConfig.Synthesizer.ProviderConfig
	pc.VoiceID = e.VoiceID
	pc.Voice = e.VoiceName
	return doc
}

// AgentView is what a read of an agent yields. Voice is nil when the platform
// returned no task.
type AgentView struct {
	Name           string
	WelcomeMessage string
	SystemPrompt   string
	Voice          *VoiceRef
}

type VoiceRef struct {
	ID   string
	Name string
}

// Editable flattens the view into its editable fields. A view without a task
// is malformed.
func (v AgentView) Editable() (Editable, error) {
	if v.Voice == nil {
		return Editable{}, fmt.Errorf("%w: agent document has no tasks", ErrMalformed)
	}
	return Editable{
		Name:           v.Name,
		WelcomeMessage: v.WelcomeMessage,
		SystemPrompt:   v.SystemPrompt,
		VoiceID:        v.Voice.ID,
		VoiceName:      v.Voice.Name,
	}, nil
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// agentResponse decodes GET /agent/{id}. Only the editable paths are read, so
// operational parameters may change type without failing the read. Settings
// may sit at the top level or under agent_config.
type agentResponse struct {
	settingsView
	Nested  *settingsView         `json:"agent_config"`
	Prompts map[string]TaskPrompt `json:"agent_prompts"`
}

type settingsView struct {
	AgentName      string     `json:"agent_name"`
	WelcomeMessage string     `json:"agent_welcome_message"`
	Tasks          []taskView `json:"tasks"`
}

type taskView struct {
	ToolsConfig struct {
		Synthesizer struct {
			ProviderConfig struct {
				Voice   string `json:"voice"`
				VoiceID string `json:"voice_id"`
			} `json:"provider_config"`
		} `json:"synthesizer"`
	} `json:"tools_config"`
}

func (r agentResponse) view() AgentView {
	settings := r.settingsView
	if r.Nested != nil && len(settings.Tasks) == 0 && settings.AgentName == "" {
		settings = *r.Nested
	}
	v := AgentView{
		Name:           settings.AgentName,
		WelcomeMessage: settings.WelcomeMessage,
		SystemPrompt:   r.Prompts[primaryTask].SystemPrompt,
	}
	if len(settings.Tasks) > 0 {
		pc := settings.Tasks[0].ToolsConfig.Synthesizer.ProviderConfig
		v.Voice = &VoiceRef{ID: pc.VoiceID, Name: pc.Voice}
	}
	return v
}
