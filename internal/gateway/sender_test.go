package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSenderSend(t *testing.T) {
	var gotPath, gotUser, gotPass string
	var gotForm map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		r.ParseForm()
		gotForm = r.PostForm
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer srv.Close()

	s, err := NewSender(SenderConfig{
		BaseURL:    srv.URL,
		AccountSID: "AC1",
		AuthToken:  "tok",
		From:       "whatsapp:+14155238886",
	}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	err = s.Send(context.Background(), OutboundMessage{
		To:       "whatsapp:+911",
		Body:     "🎧 Here's your summary audio in Telugu:",
		MediaURL: "https://rx.example.com/static/answer_1.mp3",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotPath != "/2010-04-01/Accounts/AC1/Messages.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotUser != "AC1" || gotPass != "tok" {
		t.Errorf("basic auth = %q/%q", gotUser, gotPass)
	}
	want := map[string]string{
		"From":     "whatsapp:+14155238886",
		"To":       "whatsapp:+911",
		"Body":     "🎧 Here's your summary audio in Telugu:",
		"MediaUrl": "https://rx.example.com/static/answer_1.mp3",
	}
	for k, v := range want {
		if len(gotForm[k]) != 1 || gotForm[k][0] != v {
			t.Errorf("form[%s] = %v, want %q", k, gotForm[k], v)
		}
	}
}

func TestSenderOmitsEmptyMedia(t *testing.T) {
	var hasMedia bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		_, hasMedia = r.PostForm["MediaUrl"]
		w.Write([]byte(`{"sid":"SM1"}`))
	}))
	defer srv.Close()

	s, _ := NewSender(SenderConfig{BaseURL: srv.URL, AccountSID: "AC1", AuthToken: "t", From: "whatsapp:+1"}, quietLogger())
	if err := s.Send(context.Background(), OutboundMessage{To: "whatsapp:+2", Body: "hi"}); err != nil {
		t.Fatal(err)
	}
	if hasMedia {
		t.Error("MediaUrl must be omitted for text replies")
	}
}

func TestSenderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`))
	}))
	defer srv.Close()

	s, _ := NewSender(SenderConfig{BaseURL: srv.URL, AccountSID: "AC1", AuthToken: "t", From: "whatsapp:+1"}, quietLogger())
	err := s.Send(context.Background(), OutboundMessage{To: "bad", Body: "hi"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != 21211 {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestNewSenderValidation(t *testing.T) {
	if _, err := NewSender(SenderConfig{From: "x"}, quietLogger()); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := NewSender(SenderConfig{AccountSID: "a", AuthToken: "b"}, quietLogger()); err == nil {
		t.Error("expected error without sender address")
	}
}
