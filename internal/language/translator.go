package language

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/skypro1111/rxvoice/internal/metrics"
	"github.com/skypro1111/rxvoice/internal/text"
)

// ErrTranslationUnavailable wraps every translation failure.
var ErrTranslationUnavailable = errors.New("translation unavailable")

// ClientConfig contains translation client configuration
type ClientConfig struct {
	Endpoint   string
	APIKey     string
	Model      string
	SourceCode string
	Timeout    time.Duration
}

// Client calls a REST translation service.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

type translateRequest struct {
	Input              string `json:"input"`
	SourceLanguageCode string `json:"source_language_code"`
	TargetLanguageCode string `json:"target_language_code"`
	Model              string `json:"model,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
}

// NewClient creates a translation client
func NewClient(config ClientConfig) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}
	if config.SourceCode == "" {
		config.SourceCode = "en-IN"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// Translate translates input into target and source locale codes. Every
// failure wraps ErrTranslationUnavailable.
func (c *Client) Translate(ctx context.Context, input, target, source string) (string, error) {
	if source == "" {
		source = c.config.SourceCode
	}
	body, err := sonic.Marshal(translateRequest{
		Input:              input,
		SourceLanguageCode: source,
		TargetLanguageCode: target,
		Model:              c.config.Model,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-subscription-key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: HTTP %d", ErrTranslationUnavailable, resp.StatusCode)
	}

	var parsed translateResponse
	if err := sonic.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationUnavailable, err)
	}
	if strings.TrimSpace(parsed.TranslatedText) == "" {
		return "", fmt.Errorf("%w: empty translation", ErrTranslationUnavailable)
	}
	return parsed.TranslatedText, nil
}

// Service is the translation boundary used by the Translator.
type Service interface {
	Translate(ctx context.Context, input, target, source string) (string, error)
}

// Translator translates long text chunk by chunk and degrades to the
// original text on any failure.
type Translator struct {
	service    Service
	sourceCode string
	chunkSize  int
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewTranslator creates a translator. chunkSize bounds each service call.
func NewTranslator(service Service, sourceCode string, chunkSize int, logger *slog.Logger, m *metrics.Metrics) *Translator {
	if sourceCode == "" {
		sourceCode = "en-IN"
	}
	if chunkSize <= 0 {
		chunkSize = 900
	}
	return &Translator{
		service:    service,
		sourceCode: sourceCode,
		chunkSize:  chunkSize,
		logger:     logger,
		metrics:    m,
	}
}

// Translate returns input translated into targetCode ("te" or "te-IN").
// Input already in the source language is returned unchanged. On failure
// the original input is returned.
func (t *Translator) Translate(ctx context.Context, input, targetCode string) string {
	target := Locale(targetCode)
	if strings.TrimSpace(input) == "" || text.BaseLanguage(target) == text.BaseLanguage(t.sourceCode) {
		return input
	}

	out, err := t.translateChunks(ctx, input, target)
	t.metrics.RecordTranslation(err != nil)
	if err != nil {
		t.logger.Warn("Translation failed, keeping original text",
			slog.String("target", target),
			slog.String("error", err.Error()),
		)
		return input
	}
	return out
}

func (t *Translator) translateChunks(ctx context.Context, input, target string) (string, error) {
	chunks := text.Chunk(input, t.chunkSize)
	translated := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := t.service.Translate(ctx, chunk, target, t.sourceCode)
		if err != nil {
			return "", fmt.Errorf("chunk %d: %w", i, err)
		}
		translated = append(translated, strings.TrimSpace(out))
	}
	return strings.Join(translated, " "), nil
}
