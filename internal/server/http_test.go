package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/skypro1111/rxvoice/internal/config"
	"github.com/skypro1111/rxvoice/internal/conversation"
	"github.com/skypro1111/rxvoice/internal/gateway"
	"github.com/skypro1111/rxvoice/internal/metrics"
	"github.com/skypro1111/rxvoice/internal/session"
	"github.com/skypro1111/rxvoice/internal/transcription"
)

type fakeTurns struct {
	got    []gateway.InboundMessage
	ctxErr error
	err    error
}

func (f *fakeTurns) Handle(ctx context.Context, msg gateway.InboundMessage) (conversation.Result, error) {
	f.got = append(f.got, msg)
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return conversation.Result{Outcome: conversation.OutcomeFailed}, f.err
	}
	return conversation.Result{Kind: conversation.TurnNewPrescription, Outcome: conversation.OutcomeCompleted}, nil
}

type fakeTranscription struct{}

func (fakeTranscription) Stats() transcription.ClientStats {
	return transcription.ClientStats{TotalRequests: 4, SuccessRequests: 3, SuccessRate: 75}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fixture struct {
	handler http.Handler
	turns   *fakeTurns
	store   *session.MemoryStore
	static  string
	reg     *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	store := session.NewMemoryStore(session.Config{CleanupInterval: time.Hour}, testLogger(), m)
	t.Cleanup(store.Stop)

	cfg := config.Default()
	cfg.Assistant.APIKey = "llm-secret"
	cfg.Gateway.AuthToken = "gateway-secret"

	f := &fixture{turns: &fakeTurns{}, store: store, static: t.TempDir(), reg: reg}
	srv := NewHTTPServer(Options{
		Address:       "127.0.0.1",
		Port:          0,
		StaticDir:     f.static,
		Config:        cfg,
		Turns:         f.turns,
		Sessions:      store,
		Transcription: fakeTranscription{},
		Gatherer:      reg,
	}, testLogger(), m)
	f.handler = srv.Handler()
	return f
}

func (f *fixture) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func webhookForm() url.Values {
	return url.Values{
		"From":              {"whatsapp:+919999999999"},
		"Body":              {""},
		"NumMedia":          {"1"},
		"MediaUrl0":         {"https://api.twilio.com/media/1"},
		"MediaContentType0": {"image/jpeg"},
		"MessageSid":        {"SM1"},
	}
}

func TestWebhookRunsTurn(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/whatsapp-webhook", strings.NewReader(webhookForm().Encode()), "application/x-www-form-urlencoded")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
	}
	if len(f.turns.got) != 1 {
		t.Fatalf("expected one turn, got %d", len(f.turns.got))
	}
	msg := f.turns.got[0]
	if msg.From != "whatsapp:+919999999999" || !msg.IsImage() || msg.MediaURL != "https://api.twilio.com/media/1" {
		t.Errorf("unexpected message: %+v", msg)
	}
	if f.turns.ctxErr != nil {
		t.Errorf("turn context already done: %v", f.turns.ctxErr)
	}
}

func TestWebhookFailureIsOpaque(t *testing.T) {
	f := newFixture(t)
	f.turns.err = errors.Join(conversation.ErrTurnFailed, errors.New("vision model key sk-123 rejected"))

	rec := f.do(http.MethodPost, "/whatsapp-webhook", strings.NewReader(webhookForm().Encode()), "application/x-www-form-urlencoded")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "sk-123") {
		t.Error("error details leaked to the gateway")
	}
}

func TestWebhookRejectsBadRequests(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/whatsapp-webhook", nil, "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d", rec.Code)
	}

	form := webhookForm()
	form.Del("From")
	rec = f.do(http.MethodPost, "/whatsapp-webhook", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing sender status = %d", rec.Code)
	}
	if len(f.turns.got) != 0 {
		t.Error("no turn should run for rejected requests")
	}
}

func TestStaticServesArtifacts(t *testing.T) {
	f := newFixture(t)
	if err := os.WriteFile(filepath.Join(f.static, "answer_1.mp3"), []byte("ID3mp3"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := f.do(http.MethodGet, "/static/answer_1.mp3", nil, "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ID3mp3" {
		t.Errorf("status = %d body = %q", rec.Code, rec.Body.String())
	}

	rec = f.do(http.MethodGet, "/static/missing.mp3", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing artifact status = %d", rec.Code)
	}
}

func TestSessionsEndpoints(t *testing.T) {
	f := newFixture(t)
	f.store.Put("whatsapp:+911111111111", session.State{
		Phase:         session.AwaitingVoiceQuery,
		SummaryText:   "private summary",
		LanguageCode:  "te-IN",
		LanguageLabel: "Telugu",
	})

	rec := f.do(http.MethodGet, "/sessions", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "private summary") {
		t.Error("summary text must not be exposed")
	}
	var list struct {
		Total    int           `json:"total_sessions"`
		Sessions []sessionView `json:"sessions"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Total != 1 || list.Sessions[0].Phase != "awaiting_voice_query" || list.Sessions[0].LanguageCode != "te-IN" {
		t.Errorf("unexpected list: %+v", list)
	}

	rec = f.do(http.MethodGet, "/sessions/"+url.PathEscape("whatsapp:+911111111111"), nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"language_label":"Telugu"`) {
		t.Errorf("detail status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = f.do(http.MethodGet, "/sessions/"+url.PathEscape("whatsapp:+910000000000"), nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d", rec.Code)
	}
}

func TestConfigEndpointMasksSecrets(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/config", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "llm-secret") || strings.Contains(body, "gateway-secret") {
		t.Errorf("secrets leaked: %s", body)
	}
	if !strings.Contains(body, `"speaker":"anushka"`) {
		t.Errorf("config body missing settings: %s", body)
	}
}

func TestMonitoringEndpoints(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/", "/health", "/stats"} {
		rec := f.do(http.MethodGet, path, nil, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s content type = %q", path, ct)
		}
	}

	rec := f.do(http.MethodGet, "/health", nil, "")
	if !strings.Contains(rec.Body.String(), `"total_requests":4`) {
		t.Errorf("health missing transcription stats: %s", rec.Body.String())
	}

	rec = f.do(http.MethodGet, "/nope", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d", rec.Code)
	}

	rec = f.do(http.MethodGet, "/metrics", nil, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "rxvoice_http_requests_total") {
		t.Errorf("metrics missing http counters: %d", rec.Code)
	}
}
