package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/skypro1111/rxvoice/internal/metrics"
)

// FallbackTranscript is used when the service produced no transcript.
const FallbackTranscript = "Sorry, could not understand the audio."

// SpeechDetector reports whether a staged WAV file holds any speech.
type SpeechDetector interface {
	HasSpeech(path string) (bool, error)
}

// Transcriber turns a staged audio file into text for a voice-query turn.
type Transcriber struct {
	client   *Client
	detector SpeechDetector
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewTranscriber wraps a client.
func NewTranscriber(client *Client, logger *slog.Logger, m *metrics.Metrics) *Transcriber {
	return &Transcriber{client: client, logger: logger, metrics: m}
}

// WithSpeechDetector makes Transcribe skip the service for silent files.
func (t *Transcriber) WithSpeechDetector(d SpeechDetector) *Transcriber {
	t.detector = d
	return t
}

// Transcribe reads the file at path and returns its transcript. A missing
// transcript is not an error: FallbackTranscript is returned instead so the
// turn can still be answered. Transport and service failures are returned.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (string, error) {
	if t.detector != nil {
		speech, err := t.detector.HasSpeech(path)
		switch {
		case err != nil:
			t.logger.Warn("Speech detection failed, transcribing anyway",
				slog.String("file", filepath.Base(path)),
				slog.String("error", err.Error()),
			)
		case !speech:
			t.metrics.RecordTranscriptionFallback()
			t.logger.Info("No speech detected, using fallback",
				slog.String("file", filepath.Base(path)),
			)
			return FallbackTranscript, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read staged audio: %w", err)
	}

	start := time.Now()
	t.metrics.RecordTranscriptionRequest()

	resp, err := t.client.Transcribe(ctx, &Request{
		FileName:    filepath.Base(path),
		AudioData:   data,
		ContentType: "audio/wav",
	})
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, ErrTranscriptUnavailable):
		t.metrics.RecordTranscriptionFallback()
		t.logger.Warn("Transcript unavailable, using fallback",
			slog.String("file", filepath.Base(path)),
			slog.Duration("elapsed", elapsed),
		)
		return FallbackTranscript, nil
	case err != nil:
		t.metrics.RecordTranscriptionFailure(elapsed.Seconds())
		return "", err
	}

	t.metrics.RecordTranscriptionSuccess(elapsed.Seconds())
	t.logger.Debug("Transcription complete",
		slog.String("file", filepath.Base(path)),
		slog.String("language", resp.LanguageCode),
		slog.Int("chars", len(resp.Transcript)),
		slog.Duration("elapsed", elapsed),
	)
	return resp.Transcript, nil
}

// Stats exposes the underlying client statistics.
func (t *Transcriber) Stats() ClientStats {
	return t.client.GetStats()
}
