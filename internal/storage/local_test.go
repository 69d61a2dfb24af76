package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	s, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func writeString(t *testing.T, s FileStore, path, data string) {
	t.Helper()
	w, err := s.Write(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func readString(t *testing.T, s FileStore, path string) string {
	t.Helper()
	r, err := s.Read(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(got)
}

func TestLocalWriteAndRead(t *testing.T) {
	s := newTestLocal(t)

	writeString(t, s, "answers/a.mp3", "audio")
	if got := readString(t, s, "answers/a.mp3"); got != "audio" {
		t.Fatalf("got %q", got)
	}

	writeString(t, s, "answers/a.mp3", "x")
	if got := readString(t, s, "answers/a.mp3"); got != "x" {
		t.Fatalf("write must truncate, got %q", got)
	}
}

func TestLocalReadNotExist(t *testing.T) {
	s := newTestLocal(t)
	_, err := s.Read(context.Background(), "missing.mp3")
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLocalExistsAndDelete(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	if ok, err := s.Exists(ctx, "f.mp3"); err != nil || ok {
		t.Fatalf("Exists() = %v, %v", ok, err)
	}
	writeString(t, s, "f.mp3", "data")
	if ok, err := s.Exists(ctx, "f.mp3"); err != nil || !ok {
		t.Fatalf("Exists() = %v, %v", ok, err)
	}

	if err := s.Delete(ctx, "f.mp3"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "f.mp3"); err != nil {
		t.Fatalf("second delete must be a no-op: %v", err)
	}
}

func TestLocalRejectsEscape(t *testing.T) {
	s := newTestLocal(t)
	if _, err := s.Write(context.Background(), "../outside.mp3"); err == nil {
		t.Fatal("expected error for path outside root")
	}
}

func TestNewLocalCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "public")
	s, err := NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(s.Root())
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory, got %v", err)
	}
}
