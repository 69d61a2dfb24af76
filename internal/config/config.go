package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Gateway       GatewayConfig       `yaml:"gateway" json:"gateway"`
	Media         MediaConfig         `yaml:"media" json:"media"`
	Transcription TranscriptionConfig `yaml:"transcription" json:"transcription"`
	Synthesis     SynthesisConfig     `yaml:"synthesis" json:"synthesis"`
	Translation   TranslationConfig   `yaml:"translation" json:"translation"`
	Assistant     AssistantConfig     `yaml:"assistant" json:"assistant"`
	Storage       StorageConfig       `yaml:"storage" json:"storage"`
	Session       SessionConfig       `yaml:"session" json:"session"`
	Conversation  ConversationConfig  `yaml:"conversation" json:"conversation"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Address         string `yaml:"address" json:"address"`
	Port            int    `yaml:"port" json:"port"`
	PublicURL       string `yaml:"public_url" json:"public_url"` // externally reachable base, used for /static/ links
	ShutdownTimeout int    `yaml:"shutdown_timeout" json:"shutdown_timeout"` // seconds
}

// GatewayConfig contains messaging gateway credentials
type GatewayConfig struct {
	BaseURL    string `yaml:"base_url" json:"base_url"`
	AccountSID string `yaml:"account_sid" json:"account_sid"`
	AuthToken  string `yaml:"auth_token" json:"auth_token"`
	From       string `yaml:"from" json:"from"`
	Timeout    int    `yaml:"timeout" json:"timeout"` // seconds
}

// MediaConfig contains media staging and transcoding parameters
type MediaConfig struct {
	FFmpegPath      string `yaml:"ffmpeg_path" json:"ffmpeg_path"`
	WorkDir         string `yaml:"work_dir" json:"work_dir"`
	SampleRate      int    `yaml:"sample_rate" json:"sample_rate"`
	Channels        int    `yaml:"channels" json:"channels"`
	DownloadTimeout int    `yaml:"download_timeout" json:"download_timeout"` // seconds
	MaxDownloadMB   int    `yaml:"max_download_mb" json:"max_download_mb"`
	InlineImages    bool   `yaml:"inline_images" json:"inline_images"`

	// Voice notes quieter than speech_threshold (normalized RMS) for less
	// than min_speech_ms are answered without transcription. 0 disables.
	SpeechThreshold float64 `yaml:"speech_threshold" json:"speech_threshold"`
	MinSpeechMS     int     `yaml:"min_speech_ms" json:"min_speech_ms"`
}

// TranscriptionConfig contains transcription API configuration
type TranscriptionConfig struct {
	Endpoint      string `yaml:"endpoint" json:"endpoint"`
	APIKey        string `yaml:"api_key" json:"api_key"`
	Model         string `yaml:"model" json:"model"`
	LanguageCode  string `yaml:"language_code" json:"language_code"`
	Timeout       int    `yaml:"timeout" json:"timeout"` // seconds
	MaxRetries    int    `yaml:"max_retries" json:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent" json:"max_concurrent"`
}

// SynthesisConfig contains text-to-speech API and pipeline configuration
type SynthesisConfig struct {
	Endpoint            string  `yaml:"endpoint" json:"endpoint"`
	APIKey              string  `yaml:"api_key" json:"api_key"`
	Speaker             string  `yaml:"speaker" json:"speaker"`
	Model               string  `yaml:"model" json:"model"`
	Pitch               float64 `yaml:"pitch" json:"pitch"`
	Pace                float64 `yaml:"pace" json:"pace"`
	Loudness            float64 `yaml:"loudness" json:"loudness"`
	SampleRate          int     `yaml:"sample_rate" json:"sample_rate"`
	EnablePreprocessing bool    `yaml:"enable_preprocessing" json:"enable_preprocessing"`
	ChunkSize           int     `yaml:"chunk_size" json:"chunk_size"` // characters
	Bitrate             string  `yaml:"bitrate" json:"bitrate"`
	Timeout             int     `yaml:"timeout" json:"timeout"` // seconds
}

// TranslationConfig contains translation API configuration
type TranslationConfig struct {
	Endpoint       string `yaml:"endpoint" json:"endpoint"`
	APIKey         string `yaml:"api_key" json:"api_key"`
	Model          string `yaml:"model" json:"model"`
	SourceLanguage string `yaml:"source_language" json:"source_language"`
	ChunkSize      int    `yaml:"chunk_size" json:"chunk_size"` // characters
	Timeout        int    `yaml:"timeout" json:"timeout"`       // seconds
}

// AssistantConfig contains language model configuration
type AssistantConfig struct {
	APIKey            string  `yaml:"api_key" json:"api_key"`
	BaseURL           string  `yaml:"base_url" json:"base_url"`
	VisionModel       string  `yaml:"vision_model" json:"vision_model"`
	RefineModel       string  `yaml:"refine_model" json:"refine_model"`
	AnswerModel       string  `yaml:"answer_model" json:"answer_model"`
	RefineEndpoint    string  `yaml:"refine_endpoint" json:"refine_endpoint"`
	Temperature       float32 `yaml:"temperature" json:"temperature"`
	AnswerTemperature float32 `yaml:"answer_temperature" json:"answer_temperature"`
	MaxTokens         int     `yaml:"max_tokens" json:"max_tokens"`
	RefineMaxTokens   int     `yaml:"refine_max_tokens" json:"refine_max_tokens"`
	Timeout           int     `yaml:"timeout" json:"timeout"` // seconds
}

// StorageConfig selects where synthesized artifacts are published
type StorageConfig struct {
	Backend       string   `yaml:"backend" json:"backend"` // local or s3
	LocalDir      string   `yaml:"local_dir" json:"local_dir"`
	PublicBaseURL string   `yaml:"public_base_url" json:"public_base_url"` // required for s3
	S3            S3Config `yaml:"s3" json:"s3"`
}

// S3Config contains object store settings
type S3Config struct {
	Bucket          string `yaml:"bucket" json:"bucket"`
	Prefix          string `yaml:"prefix" json:"prefix"`
	Region          string `yaml:"region" json:"region"`
	Endpoint        string `yaml:"endpoint" json:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style" json:"use_path_style"`
}

// SessionConfig contains per-user state store configuration
type SessionConfig struct {
	IdleTimeout     int `yaml:"idle_timeout" json:"idle_timeout"`         // seconds
	CleanupInterval int `yaml:"cleanup_interval" json:"cleanup_interval"` // seconds
	MaxSessions     int `yaml:"max_sessions" json:"max_sessions"`
}

// ConversationConfig contains turn handling configuration
type ConversationConfig struct {
	TurnTimeout int    `yaml:"turn_timeout" json:"turn_timeout"` // seconds
	MenuLocale  string `yaml:"menu_locale" json:"menu_locale"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// Load reads and parses the configuration file. Variables from a .env file
// in the working directory are loaded first and ${VAR} references in the
// file are expanded from the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return config, nil
}

// Parse expands environment references in data and decodes it over the
// defaults.
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Default returns a configuration with every optional field populated.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         "0.0.0.0",
			Port:            8000,
			ShutdownTimeout: 10,
		},
		Gateway: GatewayConfig{
			BaseURL: "https://api.twilio.com",
			Timeout: 15,
		},
		Media: MediaConfig{
			FFmpegPath:      "ffmpeg",
			SampleRate:      16000,
			Channels:        1,
			DownloadTimeout: 30,
			MaxDownloadMB:   16,
			InlineImages:    true,
			SpeechThreshold: 0.01,
			MinSpeechMS:     300,
		},
		Transcription: TranscriptionConfig{
			Endpoint:      "https://api.sarvam.ai/speech-to-text",
			Model:         "saarika:v2.5",
			LanguageCode:  "unknown",
			Timeout:       30,
			MaxRetries:    2,
			MaxConcurrent: 10,
		},
		Synthesis: SynthesisConfig{
			Endpoint:            "https://api.sarvam.ai/text-to-speech",
			Speaker:             "anushka",
			Model:               "bulbul:v2",
			Pace:                1,
			Loudness:            1,
			SampleRate:          22050,
			EnablePreprocessing: true,
			ChunkSize:           400,
			Bitrate:             "128k",
			Timeout:             30,
		},
		Translation: TranslationConfig{
			Endpoint:       "https://api.sarvam.ai/translate",
			Model:          "mayura:v1",
			SourceLanguage: "en-IN",
			ChunkSize:      900,
			Timeout:        30,
		},
		Assistant: AssistantConfig{
			BaseURL:           "https://api.groq.com/openai/v1",
			VisionModel:       "meta-llama/llama-4-scout-17b-16e-instruct",
			RefineModel:       "openai/gpt-oss-120b",
			AnswerModel:       "llama-3.3-70b-versatile",
			Temperature:       0.3,
			AnswerTemperature: 0.5,
			MaxTokens:         1024,
			RefineMaxTokens:   5000,
			Timeout:           60,
		},
		Storage: StorageConfig{
			Backend:  "local",
			LocalDir: "./static",
		},
		Session: SessionConfig{
			IdleTimeout:     86400,
			CleanupInterval: 30,
			MaxSessions:     10000,
		},
		Conversation: ConversationConfig{
			TurnTimeout: 180,
			MenuLocale:  "hi-IN",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Gateway.Validate(); err != nil {
		return fmt.Errorf("gateway config: %w", err)
	}

	if err := c.Media.Validate(); err != nil {
		return fmt.Errorf("media config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Synthesis.Validate(); err != nil {
		return fmt.Errorf("synthesis config: %w", err)
	}

	if err := c.Translation.Validate(); err != nil {
		return fmt.Errorf("translation config: %w", err)
	}

	if err := c.Assistant.Validate(); err != nil {
		return fmt.Errorf("assistant config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if c.Storage.Backend == "local" && c.Server.PublicURL == "" {
		return fmt.Errorf("server config: public_url is required with the local storage backend")
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.Conversation.Validate(); err != nil {
		return fmt.Errorf("conversation config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if s.PublicURL != "" {
		if err := validateURL(s.PublicURL); err != nil {
			return fmt.Errorf("public_url: %w", err)
		}
	}

	if s.ShutdownTimeout < 1 {
		return fmt.Errorf("shutdown_timeout must be at least 1 second, got %d", s.ShutdownTimeout)
	}

	return nil
}

// Validate validates gateway configuration
func (g *GatewayConfig) Validate() error {
	if err := validateURL(g.BaseURL); err != nil {
		return fmt.Errorf("base_url: %w", err)
	}

	if g.AccountSID == "" {
		return fmt.Errorf("account_sid cannot be empty")
	}

	if g.AuthToken == "" {
		return fmt.Errorf("auth_token cannot be empty")
	}

	if g.From == "" {
		return fmt.Errorf("from cannot be empty")
	}

	if g.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", g.Timeout)
	}

	return nil
}

// Validate validates media configuration
func (m *MediaConfig) Validate() error {
	if m.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg_path cannot be empty")
	}

	if m.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 16000 Hz for speech recognition, got %d", m.SampleRate)
	}

	if m.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", m.Channels)
	}

	if m.DownloadTimeout < 1 {
		return fmt.Errorf("download_timeout must be at least 1 second, got %d", m.DownloadTimeout)
	}

	if m.MaxDownloadMB < 1 {
		return fmt.Errorf("max_download_mb must be at least 1, got %d", m.MaxDownloadMB)
	}

	if m.SpeechThreshold < 0 || m.SpeechThreshold >= 1 {
		return fmt.Errorf("speech_threshold must be between 0 and 1, got %f", m.SpeechThreshold)
	}

	if m.MinSpeechMS < 0 {
		return fmt.Errorf("min_speech_ms cannot be negative, got %d", m.MinSpeechMS)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if err := validateURL(t.Endpoint); err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}

	if t.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	return nil
}

// Validate validates synthesis configuration
func (s *SynthesisConfig) Validate() error {
	if err := validateURL(s.Endpoint); err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}

	if s.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if s.SampleRate < 8000 || s.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", s.SampleRate)
	}

	if s.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be positive, got %d", s.ChunkSize)
	}

	if s.Pace <= 0 {
		return fmt.Errorf("pace must be positive, got %f", s.Pace)
	}

	if s.Bitrate == "" {
		return fmt.Errorf("bitrate cannot be empty")
	}

	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}

	return nil
}

// Validate validates translation configuration
func (t *TranslationConfig) Validate() error {
	if err := validateURL(t.Endpoint); err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}

	if t.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if t.SourceLanguage == "" {
		return fmt.Errorf("source_language cannot be empty")
	}

	if t.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be positive, got %d", t.ChunkSize)
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	return nil
}

// Validate validates assistant configuration
func (a *AssistantConfig) Validate() error {
	if a.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if err := validateURL(a.BaseURL); err != nil {
		return fmt.Errorf("base_url: %w", err)
	}

	if a.VisionModel == "" || a.AnswerModel == "" {
		return fmt.Errorf("vision_model and answer_model are required")
	}

	if a.RefineEndpoint != "" {
		if err := validateURL(a.RefineEndpoint); err != nil {
			return fmt.Errorf("refine_endpoint: %w", err)
		}
		if a.RefineModel == "" {
			return fmt.Errorf("refine_model is required when refine_endpoint is set")
		}
	}

	if a.Temperature < 0 || a.Temperature > 2 || a.AnswerTemperature < 0 || a.AnswerTemperature > 2 {
		return fmt.Errorf("temperatures must be between 0 and 2")
	}

	if a.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", a.Timeout)
	}

	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	switch s.Backend {
	case "local":
		if s.LocalDir == "" {
			return fmt.Errorf("local_dir cannot be empty for the local backend")
		}
	case "s3":
		if s.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket cannot be empty for the s3 backend")
		}
		if s.S3.Region == "" {
			return fmt.Errorf("s3.region cannot be empty for the s3 backend")
		}
		if err := validateURL(s.PublicBaseURL); err != nil {
			return fmt.Errorf("public_base_url: %w", err)
		}
	default:
		return fmt.Errorf("backend must be 'local' or 's3', got '%s'", s.Backend)
	}

	return nil
}

// Validate validates session configuration
func (s *SessionConfig) Validate() error {
	if s.IdleTimeout < 60 {
		return fmt.Errorf("idle_timeout must be at least 60 seconds, got %d", s.IdleTimeout)
	}

	if s.CleanupInterval < 1 {
		return fmt.Errorf("cleanup_interval must be at least 1 second, got %d", s.CleanupInterval)
	}

	if s.MaxSessions < 1 {
		return fmt.Errorf("max_sessions must be at least 1, got %d", s.MaxSessions)
	}

	return nil
}

// Validate validates conversation configuration
func (c *ConversationConfig) Validate() error {
	if c.TurnTimeout < 1 {
		return fmt.Errorf("turn_timeout must be at least 1 second, got %d", c.TurnTimeout)
	}

	if c.MenuLocale == "" {
		return fmt.Errorf("menu_locale cannot be empty")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// Output is stdout, stderr or a file path.
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	return nil
}

// Sanitized returns a copy with every credential masked, for display.
func (c *Config) Sanitized() Config {
	out := *c
	out.Gateway.AuthToken = mask(out.Gateway.AuthToken)
	out.Transcription.APIKey = mask(out.Transcription.APIKey)
	out.Synthesis.APIKey = mask(out.Synthesis.APIKey)
	out.Translation.APIKey = mask(out.Translation.APIKey)
	out.Assistant.APIKey = mask(out.Assistant.APIKey)
	out.Storage.S3.AccessKeyID = mask(out.Storage.S3.AccessKeyID)
	out.Storage.S3.SecretAccessKey = mask(out.Storage.S3.SecretAccessKey)
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

// StaticBaseURL is the URL prefix under which published artifacts are
// reachable by the messaging gateway.
func (c *Config) StaticBaseURL() string {
	if c.Storage.Backend == "s3" {
		return strings.TrimRight(c.Storage.PublicBaseURL, "/")
	}
	return strings.TrimRight(c.Server.PublicURL, "/") + "/static"
}

// GetShutdownTimeoutDuration returns the shutdown timeout as a time.Duration
func (s *ServerConfig) GetShutdownTimeoutDuration() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}

// GetTimeoutDuration returns the gateway timeout as a time.Duration
func (g *GatewayConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(g.Timeout) * time.Second
}

// GetDownloadTimeoutDuration returns the media download timeout as a time.Duration
func (m *MediaConfig) GetDownloadTimeoutDuration() time.Duration {
	return time.Duration(m.DownloadTimeout) * time.Second
}

// GetMaxDownloadBytes returns the download size limit in bytes
func (m *MediaConfig) GetMaxDownloadBytes() int64 {
	return int64(m.MaxDownloadMB) << 20
}

// GetMinSpeechDuration returns the minimum voiced audio as a time.Duration
func (m *MediaConfig) GetMinSpeechDuration() time.Duration {
	return time.Duration(m.MinSpeechMS) * time.Millisecond
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the synthesis timeout as a time.Duration
func (s *SynthesisConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetTimeoutDuration returns the translation timeout as a time.Duration
func (t *TranslationConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the assistant timeout as a time.Duration
func (a *AssistantConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

// GetIdleTimeoutDuration returns the session idle timeout as a time.Duration
func (s *SessionConfig) GetIdleTimeoutDuration() time.Duration {
	return time.Duration(s.IdleTimeout) * time.Second
}

// GetCleanupIntervalDuration returns the cleanup interval as a time.Duration
func (s *SessionConfig) GetCleanupIntervalDuration() time.Duration {
	return time.Duration(s.CleanupInterval) * time.Second
}

// GetTurnTimeoutDuration returns the per-turn deadline as a time.Duration
func (c *ConversationConfig) GetTurnTimeoutDuration() time.Duration {
	return time.Duration(c.TurnTimeout) * time.Second
}
