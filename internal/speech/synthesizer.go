package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/skypro1111/rxvoice/internal/audio"
	"github.com/skypro1111/rxvoice/internal/media"
	"github.com/skypro1111/rxvoice/internal/metrics"
	"github.com/skypro1111/rxvoice/internal/text"
)

// TTS is the text-to-speech service boundary. A call may return several
// payloads; their order is playback order.
type TTS interface {
	Synthesize(ctx context.Context, text, languageCode string) ([][]byte, error)
}

// Publisher makes a finished artifact retrievable and returns its URL.
type Publisher interface {
	Publish(ctx context.Context, localPath, key string) (string, error)
}

// SynthesizerConfig contains synthesis pipeline configuration
type SynthesizerConfig struct {
	WorkDir    string
	ChunkSize  int
	SampleRate int
	Bitrate    string
	KeyPrefix  string
}

// Synthesizer runs the chunk, synthesize, encode, concatenate pipeline.
type Synthesizer struct {
	config     SynthesizerConfig
	tts        TTS
	transcoder *media.Transcoder
	publisher  Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(config SynthesizerConfig, tts TTS, transcoder *media.Transcoder, publisher Publisher, logger *slog.Logger, m *metrics.Metrics) *Synthesizer {
	if config.WorkDir == "" {
		config.WorkDir = os.TempDir()
	}
	// Manifest entries are resolved against the manifest's own directory.
	if abs, err := filepath.Abs(config.WorkDir); err == nil {
		config.WorkDir = abs
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = 400
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 22050
	}
	if config.Bitrate == "" {
		config.Bitrate = "128k"
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "answer"
	}

	return &Synthesizer{
		config:     config,
		tts:        tts,
		transcoder: transcoder,
		publisher:  publisher,
		logger:     logger,
		metrics:    m,
	}
}

// Synthesize speaks body in languageCode and returns the artifact URL.
// ErrNoSpeakableText is returned when body has nothing to say. Any other
// error is a *SynthesisError and means no artifact was published.
func (s *Synthesizer) Synthesize(ctx context.Context, body, languageCode string) (string, error) {
	start := time.Now()

	localized := text.LocalizeDigits(body, languageCode)
	chunks := text.Chunk(localized, s.config.ChunkSize)
	if len(chunks) == 0 {
		return "", ErrNoSpeakableText
	}

	url, err := s.run(ctx, chunks, languageCode)
	s.metrics.RecordSynthesis(err != nil, time.Since(start).Seconds())
	if err != nil {
		s.logger.Warn("Synthesis failed",
			slog.String("language", languageCode),
			slog.Int("chunks", len(chunks)),
			slog.String("error", err.Error()),
		)
		return "", err
	}

	s.logger.Info("Synthesis complete",
		slog.String("language", languageCode),
		slog.Int("chunks", len(chunks)),
		slog.String("url", url),
		slog.Duration("elapsed", time.Since(start)),
	)
	return url, nil
}

func (s *Synthesizer) run(ctx context.Context, chunks []string, languageCode string) (string, error) {
	jobID := uuid.NewString()
	jobDir, err := os.MkdirTemp(s.config.WorkDir, "synth_"+jobID+"_")
	if err != nil {
		return "", &SynthesisError{Chunk: -1, Segment: -1, Stage: StageEncode, Err: err}
	}
	defer func() {
		if err := os.RemoveAll(jobDir); err != nil {
			s.logger.Warn("Failed to remove synthesis work dir",
				slog.String("dir", jobDir),
				slog.String("error", err.Error()),
			)
		}
	}()

	var segments []Segment
	for i, chunk := range chunks {
		chunkSegments, err := s.synthesizeChunk(ctx, jobDir, i, chunk, languageCode)
		if err != nil {
			return "", err
		}
		segments = append(segments, chunkSegments...)
	}

	if len(segments) == 0 {
		return "", &SynthesisError{Chunk: -1, Segment: -1, Stage: StageRequest, Err: errors.New("service returned no audio for any chunk")}
	}

	manifestPath := filepath.Join(jobDir, "concat.txt")
	if err := os.WriteFile(manifestPath, []byte(BuildManifest(segments)), 0o644); err != nil {
		return "", &SynthesisError{Chunk: -1, Segment: -1, Stage: StageConcat, Err: err}
	}

	finalPath := filepath.Join(jobDir, "final.mp3")
	if err := s.transcoder.Concat(ctx, manifestPath, finalPath); err != nil {
		return "", &SynthesisError{Chunk: -1, Segment: -1, Stage: StageConcat, Err: err}
	}

	if duration, err := audio.ProbeMP3(finalPath); err == nil {
		s.metrics.RecordArtifact(duration.Seconds())
	} else {
		s.logger.Debug("Could not probe artifact duration", slog.String("error", err.Error()))
	}

	key := fmt.Sprintf("%s_%s.mp3", s.config.KeyPrefix, jobID)
	url, err := s.publisher.Publish(ctx, finalPath, key)
	if err != nil {
		return "", &SynthesisError{Chunk: -1, Segment: -1, Stage: StagePublish, Err: err}
	}

	return url, nil
}

// synthesizeChunk requests audio for one chunk and encodes every returned
// segment, preserving service order.
func (s *Synthesizer) synthesizeChunk(ctx context.Context, jobDir string, chunkIndex int, chunk, languageCode string) ([]Segment, error) {
	payloads, err := s.tts.Synthesize(ctx, chunk, languageCode)
	if err != nil {
		return nil, &SynthesisError{Chunk: chunkIndex, Segment: -1, Stage: StageRequest, Err: err}
	}
	s.metrics.RecordSynthesisChunk(len(payloads))

	if len(payloads) == 0 {
		s.logger.Warn("No audio returned for chunk", slog.Int("chunk", chunkIndex))
		return nil, nil
	}

	segments := make([]Segment, 0, len(payloads))
	for j, payload := range payloads {
		seg := Segment{
			Chunk:       chunkIndex,
			Index:       j,
			RawPath:     filepath.Join(jobDir, fmt.Sprintf("chunk_%d_%d.raw", chunkIndex, j)),
			EncodedPath: filepath.Join(jobDir, fmt.Sprintf("chunk_%d_%d.mp3", chunkIndex, j)),
		}

		pcm, err := audio.ExtractPCM(payload, s.config.SampleRate)
		if err != nil {
			return nil, &SynthesisError{Chunk: chunkIndex, Segment: j, Stage: StageDecode, Err: err}
		}
		if err := os.WriteFile(seg.RawPath, pcm.Data, 0o644); err != nil {
			return nil, &SynthesisError{Chunk: chunkIndex, Segment: j, Stage: StageDecode, Err: err}
		}

		if err := s.transcoder.EncodeMP3(ctx, seg.RawPath, seg.EncodedPath, pcm.SampleRate, pcm.Channels, s.config.Bitrate); err != nil {
			return nil, &SynthesisError{Chunk: chunkIndex, Segment: j, Stage: StageEncode, Err: err}
		}

		segments = append(segments, seg)
	}

	return segments, nil
}
