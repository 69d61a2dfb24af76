package conversation

import "errors"

var (
	// ErrTurnFailed wraps any collaborator failure that aborted a turn.
	ErrTurnFailed = errors.New("turn failed")

	// ErrInvalidTransition is returned for a phase change the table forbids.
	ErrInvalidTransition = errors.New("invalid phase transition")

	// ErrStateConflict means the session changed while the turn ran.
	ErrStateConflict = errors.New("session state changed concurrently")
)
