package conversation

import (
	"fmt"
	"strings"

	"github.com/skypro1111/rxvoice/internal/session"
)

// transitions lists the phases reachable from each phase. A new image may
// restart the flow from anywhere.
var transitions = map[session.Phase][]session.Phase{
	session.Idle: {
		session.AwaitingLanguageSelection,
	},
	session.AwaitingLanguageSelection: {
		session.AwaitingLanguageSelection,
		session.AwaitingVoiceQuery,
	},
	session.AwaitingVoiceQuery: {
		session.AwaitingVoiceQuery,
		session.AwaitingLanguageSelection,
	},
}

// CanTransition reports whether the table allows from -> to.
func CanTransition(from, to session.Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// checkTransition validates the edge and the invariants of the target state.
func checkTransition(from session.State, to session.State) error {
	if !CanTransition(from.Phase, to.Phase) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from.Phase, to.Phase)
	}

	switch to.Phase {
	case session.AwaitingLanguageSelection:
		if strings.TrimSpace(to.SummaryText) == "" && !to.SummaryUnavailable {
			return fmt.Errorf("%w: %s requires a summary", ErrInvalidTransition, to.Phase)
		}
	case session.AwaitingVoiceQuery:
		if to.LanguageCode == "" {
			return fmt.Errorf("%w: %s requires a language", ErrInvalidTransition, to.Phase)
		}
	}
	return nil
}
