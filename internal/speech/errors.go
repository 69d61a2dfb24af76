package speech

import (
	"errors"
	"fmt"
)

// ErrNoSpeakableText means the text produced no non-blank chunk. Callers
// deliver the text instead.
var ErrNoSpeakableText = errors.New("no speakable text")

// Synthesis stages reported in SynthesisError.
const (
	StageRequest = "request"
	StageDecode  = "decode"
	StageEncode  = "encode"
	StageConcat  = "concat"
	StagePublish = "publish"
)

// SynthesisError aborts a synthesis job. Chunk and Segment are zero-based.
// Segment is -1 when the failure is not tied to one segment, and Chunk is -1
// for job-level stages such as concat and publish.
type SynthesisError struct {
	Chunk   int
	Segment int
	Stage   string
	Err     error
}

func (e *SynthesisError) Error() string {
	if e.Chunk < 0 {
		return fmt.Sprintf("synthesis %s failed: %v", e.Stage, e.Err)
	}
	if e.Segment < 0 {
		return fmt.Sprintf("synthesis %s failed at chunk %d: %v", e.Stage, e.Chunk, e.Err)
	}
	return fmt.Sprintf("synthesis %s failed at chunk %d segment %d: %v", e.Stage, e.Chunk, e.Segment, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
