package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skypro1111/rxvoice/internal/audio"
)

// StagerConfig contains media staging configuration
type StagerConfig struct {
	WorkDir         string
	SampleRate      int
	Channels        int
	DownloadTimeout time.Duration
	MaxDownloadSize int64

	// Basic auth credentials for gateway-hosted media. Empty disables auth.
	Username string
	Password string
}

// Job is the transient record of one staged media file. Both paths belong to
// the job until Cleanup is called.
type Job struct {
	ID             string
	SourceURL      string
	ContentKind    string
	RawPath        string
	NormalizedPath string
	Info           audio.WAVInfo
}

// Cleanup removes the job's files. Failures are logged, never returned.
func (j *Job) Cleanup(logger *slog.Logger) {
	if j == nil {
		return
	}
	removeQuietly(logger, j.RawPath)
	removeQuietly(logger, j.NormalizedPath)
}

// Stager downloads gateway media and normalizes it for speech recognition.
type Stager struct {
	config     StagerConfig
	httpClient *http.Client
	transcoder *Transcoder
	logger     *slog.Logger
}

// NewStager creates a media stager. The work directory is created if missing.
func NewStager(config StagerConfig, transcoder *Transcoder, logger *slog.Logger) (*Stager, error) {
	if config.WorkDir == "" {
		config.WorkDir = os.TempDir()
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 16000
	}
	if config.Channels <= 0 {
		config.Channels = 1
	}
	if config.DownloadTimeout <= 0 {
		config.DownloadTimeout = 30 * time.Second
	}
	if config.MaxDownloadSize <= 0 {
		config.MaxDownloadSize = 16 << 20
	}

	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work directory %s: %w", config.WorkDir, err)
	}

	return &Stager{
		config:     config,
		httpClient: &http.Client{Timeout: config.DownloadTimeout},
		transcoder: transcoder,
		logger:     logger,
	}, nil
}

// Stage downloads remoteURL and resamples it to the configured rate and
// channel layout. On success the normalized file exists and holds audio; the
// caller owns the returned job and must Cleanup it. On failure every file the
// stager created has already been removed.
func (s *Stager) Stage(ctx context.Context, remoteURL, contentType string) (*Job, error) {
	id := uuid.NewString()
	job := &Job{
		ID:             id,
		SourceURL:      remoteURL,
		ContentKind:    contentType,
		RawPath:        filepath.Join(s.config.WorkDir, "voice_"+id+extensionFor(contentType)),
		NormalizedPath: filepath.Join(s.config.WorkDir, "voice_"+id+".wav"),
	}

	ok := false
	defer func() {
		if !ok {
			job.Cleanup(s.logger)
		}
	}()

	if err := s.downloadToFile(ctx, remoteURL, job.RawPath); err != nil {
		return nil, err
	}

	if err := s.transcoder.Normalize(ctx, job.RawPath, job.NormalizedPath, s.config.SampleRate, s.config.Channels); err != nil {
		return nil, err
	}

	info, err := audio.ProbeWAV(job.NormalizedPath)
	if err != nil {
		return nil, &TranscodeError{
			Stage:   StageNormalize,
			Message: "normalized output is not usable audio",
			Err:     err,
		}
	}
	job.Info = info

	s.logger.Debug("Media staged",
		slog.String("job_id", id),
		slog.String("content_type", contentType),
		slog.Int("sample_rate", info.SampleRate),
		slog.Int("channels", info.Channels),
		slog.Duration("duration", info.Duration),
	)

	ok = true
	return job, nil
}

// FetchDataURL downloads remoteURL into memory and returns it as a base64
// data URL, suitable for handing an image to a vision model that cannot
// authenticate against the gateway.
func (s *Stager) FetchDataURL(ctx context.Context, remoteURL, contentType string) (string, error) {
	body, respType, err := s.fetch(ctx, remoteURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, s.config.MaxDownloadSize+1))
	if err != nil {
		return "", &FetchError{URL: remoteURL, Err: err}
	}
	if int64(len(data)) > s.config.MaxDownloadSize {
		return "", &FetchError{URL: remoteURL, Err: fmt.Errorf("media exceeds %d bytes", s.config.MaxDownloadSize)}
	}
	if len(data) == 0 {
		return "", &FetchError{URL: remoteURL, Err: errors.New("empty media body")}
	}

	if contentType == "" {
		contentType = respType
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func (s *Stager) downloadToFile(ctx context.Context, remoteURL, path string) error {
	body, _, err := s.fetch(ctx, remoteURL)
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	n, copyErr := io.Copy(f, io.LimitReader(body, s.config.MaxDownloadSize+1))
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		return &FetchError{URL: remoteURL, Err: copyErr}
	case closeErr != nil:
		return fmt.Errorf("failed to write %s: %w", path, closeErr)
	case n == 0:
		return &FetchError{URL: remoteURL, Err: errors.New("empty media body")}
	case n > s.config.MaxDownloadSize:
		return &FetchError{URL: remoteURL, Err: fmt.Errorf("media exceeds %d bytes", s.config.MaxDownloadSize)}
	}

	return nil
}

// fetch issues the GET and returns the body of a successful response.
func (s *Stager) fetch(ctx context.Context, remoteURL string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return nil, "", &FetchError{URL: remoteURL, Err: err}
	}
	if s.config.Username != "" {
		req.SetBasicAuth(s.config.Username, s.config.Password)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", &FetchError{URL: remoteURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, "", &FetchError{URL: remoteURL, StatusCode: resp.StatusCode}
	}

	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// extensionFor picks a file extension for a media content type.
func extensionFor(contentType string) string {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch mediaType {
	case "audio/ogg", "audio/opus":
		return ".ogg"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/amr":
		return ".amr"
	case "audio/mp4", "audio/aac", "audio/x-m4a":
		return ".m4a"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".src.wav"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ".bin"
	}
}

// redactURL drops credentials and query strings before a URL reaches logs.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}

func removeQuietly(logger *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to remove staged file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
