package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/skypro1111/rxvoice/internal/metrics"
)

// Transcoder stages, mirrored in metrics labels and TranscodeError.Stage.
const (
	StageNormalize = "normalize"
	StageEncode    = "encode"
	StageConcat    = "concat"
)

// stderrTail bounds how much ffmpeg stderr is kept on a TranscodeError.
const stderrTail = 2048

// Transcoder drives the external ffmpeg process.
type Transcoder struct {
	ffmpegPath string
	runner     CommandRunner
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewTranscoder creates a transcoder. A nil runner executes real processes.
func NewTranscoder(ffmpegPath string, runner CommandRunner, logger *slog.Logger, m *metrics.Metrics) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Transcoder{
		ffmpegPath: ffmpegPath,
		runner:     runner,
		logger:     logger,
		metrics:    m,
	}
}

// Normalize resamples any decodable input into 16-bit PCM WAV with the given
// rate and channel count.
func (t *Transcoder) Normalize(ctx context.Context, inPath, outPath string, sampleRate, channels int) error {
	return t.run(ctx, StageNormalize, outPath, buildNormalizeArgs(inPath, outPath, sampleRate, channels))
}

// EncodeMP3 encodes a raw s16le PCM file into MP3.
func (t *Transcoder) EncodeMP3(ctx context.Context, inPath, outPath string, sampleRate, channels int, bitrate string) error {
	return t.run(ctx, StageEncode, outPath, buildEncodeArgs(inPath, outPath, sampleRate, channels, bitrate))
}

// Concat losslessly joins the files listed in a concat-demuxer manifest.
func (t *Transcoder) Concat(ctx context.Context, manifestPath, outPath string) error {
	return t.run(ctx, StageConcat, outPath, buildConcatArgs(manifestPath, outPath))
}

// run executes ffmpeg and requires a zero exit code and a non-empty output.
func (t *Transcoder) run(ctx context.Context, stage, outPath string, args []string) error {
	start := time.Now()
	res, runErr := t.runner.Run(ctx, t.ffmpegPath, args...)
	log := CommandLog{
		Command:  t.ffmpegPath,
		Args:     args,
		ExitCode: res.ExitCode,
		Stderr:   tail(res.Stderr, stderrTail),
	}

	err := t.check(stage, outPath, log, runErr)
	t.metrics.RecordTranscoderRun(stage, err != nil, time.Since(start).Seconds())

	if err != nil {
		t.logger.Warn("Transcoder failed",
			slog.String("stage", stage),
			slog.Int("exit_code", log.ExitCode),
			slog.String("stderr", log.Stderr),
			slog.String("error", err.Error()),
		)
		return err
	}

	t.logger.Debug("Transcoder finished",
		slog.String("stage", stage),
		slog.String("output", outPath),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (t *Transcoder) check(stage, outPath string, log CommandLog, runErr error) error {
	if runErr != nil {
		return &TranscodeError{
			Stage:      stage,
			Message:    "ffmpeg exited with an error",
			CommandLog: log,
			Err:        runErr,
		}
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return &TranscodeError{
			Stage:      stage,
			Message:    "ffmpeg completed but output file is missing",
			CommandLog: log,
			Err:        err,
		}
	}
	if info.Size() == 0 {
		return &TranscodeError{
			Stage:      stage,
			Message:    "ffmpeg produced an empty output file",
			CommandLog: log,
		}
	}

	return nil
}

// buildNormalizeArgs builds preprocessing CLI args for PCM WAV output.
func buildNormalizeArgs(inPath, outPath string, sampleRate, channels int) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inPath,
		"-vn",
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		outPath,
	}
}

// buildEncodeArgs builds raw PCM to MP3 args.
func buildEncodeArgs(inPath, outPath string, sampleRate, channels int, bitrate string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-i", inPath,
		"-acodec", "libmp3lame",
		"-ab", bitrate,
		outPath,
	}
}

// buildConcatArgs builds concat-demuxer args with stream copy.
func buildConcatArgs(manifestPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		outPath,
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("...%s", s[len(s)-n:])
}
