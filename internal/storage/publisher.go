package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path"
	"strings"
)

// Publisher copies finished artifacts into a FileStore and returns the URL
// under which the messaging gateway can fetch them.
type Publisher struct {
	store   FileStore
	baseURL string
	logger  *slog.Logger
}

// NewPublisher creates a publisher. baseURL is the public prefix that maps
// to the store root, e.g. "https://example.ngrok.app/static".
func NewPublisher(store FileStore, baseURL string, logger *slog.Logger) *Publisher {
	return &Publisher{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Publish stores the file at localPath under key and returns its public URL.
func (p *Publisher) Publish(ctx context.Context, localPath, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	if up, ok := p.store.(Uploader); ok {
		if err := up.Upload(ctx, key, f, contentTypeFor(key)); err != nil {
			return "", err
		}
	} else if err := p.copy(ctx, f, key); err != nil {
		return "", err
	}

	url := p.URL(key)
	p.logger.Debug("Artifact published",
		slog.String("key", key),
		slog.String("url", url),
	)
	return url, nil
}

func (p *Publisher) copy(ctx context.Context, r io.Reader, key string) error {
	w, err := p.store.Write(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to open store for %s: %w", key, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		p.store.Delete(ctx, key)
		return fmt.Errorf("failed to copy artifact %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		p.store.Delete(ctx, key)
		return fmt.Errorf("failed to finalize artifact %s: %w", key, err)
	}
	return nil
}

// URL returns the public URL of key.
func (p *Publisher) URL(key string) string {
	return p.baseURL + "/" + strings.TrimLeft(key, "/")
}

func contentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
