package session

import "time"

// Phase is the conversation's position in the dialogue.
type Phase int

const (
	// Idle is the phase before any prescription image was received.
	Idle Phase = iota
	// AwaitingLanguageSelection waits for a menu digit.
	AwaitingLanguageSelection
	// AwaitingVoiceQuery accepts follow-up voice notes indefinitely.
	AwaitingVoiceQuery
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case AwaitingLanguageSelection:
		return "awaiting_language_selection"
	case AwaitingVoiceQuery:
		return "awaiting_voice_query"
	default:
		return "unknown"
	}
}

// MarshalText renders the phase name in JSON output.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is one user's conversation record.
type State struct {
	Phase              Phase  `json:"phase"`
	SummaryText        string `json:"summary_text"`
	SummaryUnavailable bool   `json:"summary_unavailable"`
	LanguageCode       string `json:"language_code"` // locale-qualified, e.g. "te-IN"
	LanguageLabel      string `json:"language_label"`

	// Version increases on every successful write; zero means never stored.
	Version      uint64    `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}
