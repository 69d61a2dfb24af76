package media

import (
	"fmt"
)

// FetchError reports a failed download of remote media.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("media fetch %s: HTTP %d", redactURL(e.URL), e.StatusCode)
	}
	return fmt.Sprintf("media fetch %s: %v", redactURL(e.URL), e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// CommandLog captures one external command invocation result.
type CommandLog struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exitCode"`
	Stderr   string   `json:"stderr"`
}

// TranscodeError is a stage-aware transcoder failure with command context.
type TranscodeError struct {
	Stage      string
	Message    string
	CommandLog CommandLog
	Err        error
}

// Error formats transcoder failures for logs.
func (e *TranscodeError) Error() string {
	if e.CommandLog.Command == "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}

	return fmt.Sprintf(
		"%s: %s (cmd=%s exit=%d)",
		e.Stage,
		e.Message,
		e.CommandLog.Command,
		e.CommandLog.ExitCode,
	)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *TranscodeError) Unwrap() error { return e.Err }
