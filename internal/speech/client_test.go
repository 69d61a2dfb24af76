package speech

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
)

func TestClientSynthesize(t *testing.T) {
	var got ttsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-subscription-key") != "tts-key" {
			t.Errorf("missing api key header")
		}
		body, _ := io.ReadAll(r.Body)
		if err := sonic.Unmarshal(body, &got); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		a := base64.StdEncoding.EncodeToString([]byte("first"))
		b := base64.StdEncoding.EncodeToString([]byte("second"))
		w.Write([]byte(`{"request_id":"x","audios":["` + a + `","` + b + `"]}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL, APIKey: "tts-key", EnablePreprocessing: true})
	if err != nil {
		t.Fatal(err)
	}

	payloads, err := c.Synthesize(context.Background(), "Take one tablet.", "te-IN")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(payloads) != 2 || string(payloads[0]) != "first" || string(payloads[1]) != "second" {
		t.Errorf("unexpected payloads: %q", payloads)
	}

	if got.Text != "Take one tablet." || got.TargetLanguageCode != "te-IN" {
		t.Errorf("unexpected request: %+v", got)
	}
	if got.Speaker != "anushka" || got.Model != "bulbul:v2" || got.SpeechSampleRate != 22050 {
		t.Errorf("unexpected voice defaults: %+v", got)
	}
	if got.Pace != 1 || got.Loudness != 1 || got.Pitch != 0 || !got.EnablePreprocessing {
		t.Errorf("unexpected voice params: %+v", got)
	}
}

func TestClientSynthesizeErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"bad json", http.StatusOK, `not json`},
		{"bad base64", http.StatusOK, `{"audios":["***"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewClient(Config{Endpoint: srv.URL, APIKey: "k"})
			if err != nil {
				t.Fatal(err)
			}
			if _, err := c.Synthesize(context.Background(), "hi", "en-IN"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{APIKey: "k"}); err == nil {
		t.Error("expected error for empty endpoint")
	}
	if _, err := NewClient(Config{Endpoint: "http://x"}); err == nil {
		t.Error("expected error for empty API key")
	}
}
