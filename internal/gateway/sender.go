package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// DefaultBaseURL is the Twilio REST API root.
const DefaultBaseURL = "https://api.twilio.com"

// OutboundMessage is one reply. MediaURL is optional.
type OutboundMessage struct {
	To       string `json:"to"`
	Body     string `json:"body"`
	MediaURL string `json:"media_url,omitempty"`
}

// SenderConfig contains REST sender configuration
type SenderConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string
	Timeout    time.Duration
}

// APIError is an error answer from the gateway
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("gateway returned HTTP %d: %s (code %d)", e.StatusCode, e.Message, e.Code)
}

// Sender posts replies to the gateway's Messages endpoint.
type Sender struct {
	config     SenderConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSender creates a REST sender
func NewSender(config SenderConfig, logger *slog.Logger) (*Sender, error) {
	if config.AccountSID == "" || config.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token are required")
	}
	if config.From == "" {
		return nil, fmt.Errorf("sender address cannot be empty")
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &Sender{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}, nil
}

type messageResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// Send delivers one message and returns once the gateway accepted it.
func (s *Sender) Send(ctx context.Context, msg OutboundMessage) error {
	form := url.Values{}
	form.Set("From", s.config.From)
	form.Set("To", msg.To)
	form.Set("Body", msg.Body)
	if msg.MediaURL != "" {
		form.Set("MediaUrl", msg.MediaURL)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(s.config.BaseURL, "/"), url.PathEscape(s.config.AccountSID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create gateway request: %w", err)
	}
	req.SetBasicAuth(s.config.AccountSID, s.config.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = sonic.Unmarshal(body, apiErr)
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	var accepted messageResponse
	if err := sonic.Unmarshal(body, &accepted); err != nil {
		s.logger.Debug("Unparseable gateway response", slog.String("error", err.Error()))
	}

	s.logger.Debug("Message sent",
		slog.String("to", msg.To),
		slog.String("sid", accepted.SID),
		slog.String("status", accepted.Status),
		slog.Bool("has_media", msg.MediaURL != ""),
	)
	return nil
}
