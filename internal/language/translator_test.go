package language

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeService upper-cases input and can fail on a given call.
type fakeService struct {
	calls      []string
	targets    []string
	failOnCall int
}

func (f *fakeService) Translate(ctx context.Context, input, target, source string) (string, error) {
	f.calls = append(f.calls, input)
	f.targets = append(f.targets, target)
	if len(f.calls) == f.failOnCall {
		return "", ErrTranslationUnavailable
	}
	return strings.ToUpper(input), nil
}

func TestTranslatorChunksAndJoins(t *testing.T) {
	svc := &fakeService{}
	tr := NewTranslator(svc, "en-IN", 20, quietLogger(), nil)

	got := tr.Translate(context.Background(), "Take one tablet. Drink water daily.", "te")
	if got != "TAKE ONE TABLET. DRINK WATER DAILY." {
		t.Errorf("Translate() = %q", got)
	}
	if len(svc.calls) != 2 {
		t.Errorf("calls = %d, want 2", len(svc.calls))
	}
	if svc.targets[0] != "te-IN" {
		t.Errorf("target = %q, want te-IN", svc.targets[0])
	}
}

func TestTranslatorFallsBackOnFailure(t *testing.T) {
	svc := &fakeService{failOnCall: 2}
	tr := NewTranslator(svc, "en-IN", 20, quietLogger(), nil)

	input := "Take one tablet. Drink water daily."
	if got := tr.Translate(context.Background(), input, "ta"); got != input {
		t.Errorf("Translate() = %q, want original", got)
	}
}

func TestTranslatorSkipsSourceLanguageAndBlank(t *testing.T) {
	svc := &fakeService{}
	tr := NewTranslator(svc, "en-IN", 900, quietLogger(), nil)

	if got := tr.Translate(context.Background(), "Take rest.", "en"); got != "Take rest." {
		t.Errorf("Translate() = %q", got)
	}
	if got := tr.Translate(context.Background(), "  ", "hi"); got != "  " {
		t.Errorf("Translate() = %q", got)
	}
	if len(svc.calls) != 0 {
		t.Errorf("service called %d times", len(svc.calls))
	}
}

func TestClientTranslate(t *testing.T) {
	var got translateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		sonic.Unmarshal(body, &got)
		if r.Header.Get("api-subscription-key") != "k" {
			t.Error("missing api key")
		}
		w.Write([]byte(`{"request_id":"1","translated_text":"నమస్కారం","source_language_code":"en-IN"}`))
	}))
	defer srv.Close()

	c, err := NewClient(ClientConfig{Endpoint: srv.URL, APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.Translate(context.Background(), "Hello", "te-IN", "")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if out != "నమస్కారం" {
		t.Errorf("Translate() = %q", out)
	}
	if got.Input != "Hello" || got.SourceLanguageCode != "en-IN" || got.TargetLanguageCode != "te-IN" {
		t.Errorf("unexpected request: %+v", got)
	}
}

func TestClientTranslateFailures(t *testing.T) {
	for name, handler := range map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "quota", http.StatusTooManyRequests)
		},
		"empty": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"translated_text":""}`))
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		},
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			c, err := NewClient(ClientConfig{Endpoint: srv.URL, APIKey: "k"})
			if err != nil {
				t.Fatal(err)
			}
			if _, err := c.Translate(context.Background(), "Hello", "hi-IN", ""); !errors.Is(err, ErrTranslationUnavailable) {
				t.Errorf("error = %v, want ErrTranslationUnavailable", err)
			}
		})
	}
}
