package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
)

// Config contains TTS client configuration
type Config struct {
	Endpoint            string
	APIKey              string
	Speaker             string
	Model               string
	Pitch               float64
	Pace                float64
	Loudness            float64
	SampleRate          int
	EnablePreprocessing bool
	Timeout             time.Duration
}

// Client calls a REST text-to-speech service.
type Client struct {
	config     Config
	httpClient *http.Client
}

type ttsRequest struct {
	Text                string  `json:"text"`
	TargetLanguageCode  string  `json:"target_language_code"`
	Speaker             string  `json:"speaker"`
	Model               string  `json:"model"`
	Pitch               float64 `json:"pitch"`
	Pace                float64 `json:"pace"`
	Loudness            float64 `json:"loudness"`
	SpeechSampleRate    int     `json:"speech_sample_rate"`
	EnablePreprocessing bool    `json:"enable_preprocessing"`
}

type ttsResponse struct {
	RequestID string   `json:"request_id"`
	Audios    []string `json:"audios"`
}

// NewClient creates a TTS client
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}
	if config.Speaker == "" {
		config.Speaker = "anushka"
	}
	if config.Model == "" {
		config.Model = "bulbul:v2"
	}
	if config.Pace == 0 {
		config.Pace = 1
	}
	if config.Loudness == 0 {
		config.Loudness = 1
	}
	if config.SampleRate <= 0 {
		config.SampleRate = 22050
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// SampleRate is the rate requested from the service.
func (c *Client) SampleRate() int {
	return c.config.SampleRate
}

// Synthesize returns the decoded audio payloads for text in service order.
func (c *Client) Synthesize(ctx context.Context, text, languageCode string) ([][]byte, error) {
	body, err := sonic.Marshal(ttsRequest{
		Text:                text,
		TargetLanguageCode:  languageCode,
		Speaker:             c.config.Speaker,
		Model:               c.config.Model,
		Pitch:               c.config.Pitch,
		Pace:                c.config.Pace,
		Loudness:            c.config.Loudness,
		SpeechSampleRate:    c.config.SampleRate,
		EnablePreprocessing: c.config.EnablePreprocessing,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode TTS request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-subscription-key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(respBody) > 512 {
			respBody = respBody[:512]
		}
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed ttsResponse
	if err := sonic.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse TTS response: %w", err)
	}

	payloads := make([][]byte, 0, len(parsed.Audios))
	for i, encoded := range parsed.Audios {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("audio %d is not valid base64: %w", i, err)
		}
		payloads = append(payloads, decoded)
	}

	return payloads, nil
}
