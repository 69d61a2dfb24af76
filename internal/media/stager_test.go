package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWAV writes one second of 16 kHz mono silence.
func writeWAV(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           make([]int, 16000),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func newTestStager(t *testing.T, runner CommandRunner, cfg StagerConfig) *Stager {
	t.Helper()
	if cfg.WorkDir == "" {
		cfg.WorkDir = t.TempDir()
	}
	s, err := NewStager(cfg, NewTranscoder("ffmpeg", runner, testLogger(), nil), testLogger())
	if err != nil {
		t.Fatalf("NewStager() error = %v", err)
	}
	return s
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestStageSuccessAndCleanup(t *testing.T) {
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		w.Header().Set("Content-Type", "audio/ogg")
		w.Write([]byte("OggS fake voice note"))
	}))
	defer srv.Close()

	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (CommandResult, error) {
			in := argValue(args, "-i")
			data, err := os.ReadFile(in)
			if err != nil || !strings.HasPrefix(string(data), "OggS") {
				t.Errorf("transcoder input not downloaded: %v", err)
			}
			writeWAV(t, args[len(args)-1])
			return CommandResult{}, nil
		},
	}

	workDir := t.TempDir()
	s := newTestStager(t, runner, StagerConfig{WorkDir: workDir, Username: "AC123", Password: "secret"})

	job, err := s.Stage(context.Background(), srv.URL+"/media/1", "audio/ogg")
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	if gotUser != "AC123" || gotPass != "secret" {
		t.Errorf("basic auth = %q/%q", gotUser, gotPass)
	}
	if !strings.HasSuffix(job.RawPath, ".ogg") || !strings.HasSuffix(job.NormalizedPath, ".wav") {
		t.Errorf("unexpected paths: %s, %s", job.RawPath, job.NormalizedPath)
	}
	if job.Info.SampleRate != 16000 || job.Info.Channels != 1 {
		t.Errorf("unexpected normalized format: %+v", job.Info)
	}
	if args := runner.calls[0][1:]; argValue(args, "-ar") != "16000" || argValue(args, "-ac") != "1" {
		t.Errorf("unexpected normalize args: %v", args)
	}

	job.Cleanup(testLogger())
	if names := dirEntries(t, workDir); len(names) != 0 {
		t.Errorf("work dir not empty after cleanup: %v", names)
	}
}

func TestStageUniqueNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("audio"))
	}))
	defer srv.Close()

	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (CommandResult, error) {
			writeWAV(t, args[len(args)-1])
			return CommandResult{}, nil
		},
	}
	s := newTestStager(t, runner, StagerConfig{})

	a, err := s.Stage(context.Background(), srv.URL, "audio/ogg")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Cleanup(testLogger())
	b, err := s.Stage(context.Background(), srv.URL, "audio/ogg")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Cleanup(testLogger())

	if a.RawPath == b.RawPath || a.NormalizedPath == b.NormalizedPath {
		t.Error("concurrent jobs must not share file names")
	}
}

func TestStageFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	runner := &fakeRunner{}
	workDir := t.TempDir()
	s := newTestStager(t, runner, StagerConfig{WorkDir: workDir})

	_, err := s.Stage(context.Background(), srv.URL+"/missing?token=abc", "audio/ogg")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", fe.StatusCode)
	}
	if strings.Contains(fe.Error(), "token=abc") {
		t.Errorf("error leaks query string: %s", fe.Error())
	}
	if len(runner.calls) != 0 {
		t.Error("transcoder must not run after a failed download")
	}
	if names := dirEntries(t, workDir); len(names) != 0 {
		t.Errorf("work dir not empty after failure: %v", names)
	}
}

func TestStageTranscodeFailureRemovesFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("audio"))
	}))
	defer srv.Close()

	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (CommandResult, error) {
			mustWriteFile(t, args[len(args)-1], "partial")
			return CommandResult{ExitCode: 1}, errors.New("exit status 1")
		},
	}
	workDir := t.TempDir()
	s := newTestStager(t, runner, StagerConfig{WorkDir: workDir})

	_, err := s.Stage(context.Background(), srv.URL, "audio/ogg")
	var te *TranscodeError
	if !errors.As(err, &te) {
		t.Fatalf("expected TranscodeError, got %v", err)
	}
	if names := dirEntries(t, workDir); len(names) != 0 {
		t.Errorf("work dir not empty after failure: %v", names)
	}
}

func TestStageRejectsUndecodableOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("audio"))
	}))
	defer srv.Close()

	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (CommandResult, error) {
			mustWriteFile(t, args[len(args)-1], "not a wav")
			return CommandResult{}, nil
		},
	}
	s := newTestStager(t, runner, StagerConfig{})

	if _, err := s.Stage(context.Background(), srv.URL, "audio/ogg"); err == nil {
		t.Fatal("expected error for undecodable normalized output")
	}
}

func TestFetchDataURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	s := newTestStager(t, &fakeRunner{}, StagerConfig{})

	got, err := s.FetchDataURL(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("FetchDataURL() error = %v", err)
	}
	if got != "data:image/png;base64,cG5nLWJ5dGVz" {
		t.Errorf("data URL = %q", got)
	}

	got, err = s.FetchDataURL(context.Background(), srv.URL, "image/jpeg")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "data:image/jpeg;base64,") {
		t.Errorf("explicit content type must win: %q", got)
	}
}

func TestFetchDataURLSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	s := newTestStager(t, &fakeRunner{}, StagerConfig{MaxDownloadSize: 16})
	if _, err := s.FetchDataURL(context.Background(), srv.URL, "image/jpeg"); err == nil {
		t.Fatal("expected size limit error")
	}
}
