package main

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/skypro1111/rxvoice/internal/assistant"
	"github.com/skypro1111/rxvoice/internal/config"
	"github.com/skypro1111/rxvoice/internal/conversation"
	"github.com/skypro1111/rxvoice/internal/gateway"
	"github.com/skypro1111/rxvoice/internal/language"
	"github.com/skypro1111/rxvoice/internal/media"
	"github.com/skypro1111/rxvoice/internal/metrics"
	"github.com/skypro1111/rxvoice/internal/session"
	"github.com/skypro1111/rxvoice/internal/speech"
	"github.com/skypro1111/rxvoice/internal/storage"
	"github.com/skypro1111/rxvoice/internal/transcription"
	"github.com/skypro1111/rxvoice/internal/vad"
)

// newRegistry returns a registry carrying the process and runtime collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// newPublisher builds the artifact publisher for the configured backend. The
// returned directory is non-empty for the local backend and is served under
// /static/.
func newPublisher(cfg *config.Config, logger *slog.Logger) (*storage.Publisher, string, error) {
	var store storage.FileStore
	var staticDir string

	switch cfg.Storage.Backend {
	case "s3":
		client := storage.NewS3Client(storage.S3Options{
			Region:          cfg.Storage.S3.Region,
			Endpoint:        cfg.Storage.S3.Endpoint,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			UsePathStyle:    cfg.Storage.S3.UsePathStyle,
		})
		store = storage.NewS3(client, cfg.Storage.S3.Bucket, cfg.Storage.S3.Prefix)
	default:
		local, err := storage.NewLocal(cfg.Storage.LocalDir)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open artifact directory: %w", err)
		}
		store = local
		staticDir = local.Root()
	}

	logger.Info("Artifact storage initialized",
		slog.String("backend", cfg.Storage.Backend),
		slog.String("base_url", cfg.StaticBaseURL()),
	)
	return storage.NewPublisher(store, cfg.StaticBaseURL(), logger), staticDir, nil
}

// newSynthesizer wires the text-to-speech pipeline.
func newSynthesizer(cfg *config.Config, transcoder *media.Transcoder, publisher *storage.Publisher, logger *slog.Logger, m *metrics.Metrics) (*speech.Synthesizer, error) {
	tts, err := speech.NewClient(speech.Config{
		Endpoint:            cfg.Synthesis.Endpoint,
		APIKey:              cfg.Synthesis.APIKey,
		Speaker:             cfg.Synthesis.Speaker,
		Model:               cfg.Synthesis.Model,
		Pitch:               cfg.Synthesis.Pitch,
		Pace:                cfg.Synthesis.Pace,
		Loudness:            cfg.Synthesis.Loudness,
		SampleRate:          cfg.Synthesis.SampleRate,
		EnablePreprocessing: cfg.Synthesis.EnablePreprocessing,
		Timeout:             cfg.Synthesis.GetTimeoutDuration(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	return speech.NewSynthesizer(speech.SynthesizerConfig{
		WorkDir:    cfg.Media.WorkDir,
		ChunkSize:  cfg.Synthesis.ChunkSize,
		SampleRate: cfg.Synthesis.SampleRate,
		Bitrate:    cfg.Synthesis.Bitrate,
	}, tts, transcoder, publisher, logger, m), nil
}

// service holds every long-lived component of the serve command.
type service struct {
	registry     *prometheus.Registry
	metrics      *metrics.Metrics
	store        *session.MemoryStore
	stt          *transcription.Client
	transcriber  *transcription.Transcriber
	orchestrator *conversation.Orchestrator
	staticDir    string
}

// newService wires the conversation orchestrator and its collaborators.
func newService(cfg *config.Config, logger *slog.Logger) (*service, error) {
	reg := newRegistry()
	m := metrics.NewMetrics(reg)

	transcoder := media.NewTranscoder(cfg.Media.FFmpegPath, nil, logger, m)
	stager, err := media.NewStager(media.StagerConfig{
		WorkDir:         cfg.Media.WorkDir,
		SampleRate:      cfg.Media.SampleRate,
		Channels:        cfg.Media.Channels,
		DownloadTimeout: cfg.Media.GetDownloadTimeoutDuration(),
		MaxDownloadSize: cfg.Media.GetMaxDownloadBytes(),
		Username:        cfg.Gateway.AccountSID,
		Password:        cfg.Gateway.AuthToken,
	}, transcoder, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create media stager: %w", err)
	}

	publisher, staticDir, err := newPublisher(cfg, logger)
	if err != nil {
		return nil, err
	}

	synthesizer, err := newSynthesizer(cfg, transcoder, publisher, logger, m)
	if err != nil {
		return nil, err
	}

	stt, err := transcription.NewClient(transcription.Config{
		Endpoint:      cfg.Transcription.Endpoint,
		APIKey:        cfg.Transcription.APIKey,
		Model:         cfg.Transcription.Model,
		LanguageCode:  cfg.Transcription.LanguageCode,
		Timeout:       cfg.Transcription.GetTimeoutDuration(),
		MaxRetries:    cfg.Transcription.MaxRetries,
		MaxConcurrent: cfg.Transcription.MaxConcurrent,
		Metrics:       m,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transcription client: %w", err)
	}
	transcriber := transcription.NewTranscriber(stt, logger, m)
	if cfg.Media.SpeechThreshold > 0 {
		detector, err := vad.NewProcessor(vad.Config{
			Threshold: cfg.Media.SpeechThreshold,
			MinSpeech: cfg.Media.GetMinSpeechDuration(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create speech detector: %w", err)
		}
		transcriber.WithSpeechDetector(detector)
	}

	translateClient, err := language.NewClient(language.ClientConfig{
		Endpoint:   cfg.Translation.Endpoint,
		APIKey:     cfg.Translation.APIKey,
		Model:      cfg.Translation.Model,
		SourceCode: cfg.Translation.SourceLanguage,
		Timeout:    cfg.Translation.GetTimeoutDuration(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create translation client: %w", err)
	}
	translator := language.NewTranslator(translateClient, cfg.Translation.SourceLanguage, cfg.Translation.ChunkSize, logger, m)

	llm, err := assistant.New(assistant.Config{
		APIKey:          cfg.Assistant.APIKey,
		BaseURL:         cfg.Assistant.BaseURL,
		VisionModel:     cfg.Assistant.VisionModel,
		RefineModel:     cfg.Assistant.RefineModel,
		AnswerModel:     cfg.Assistant.AnswerModel,
		RefineEndpoint:  cfg.Assistant.RefineEndpoint,
		Temperature:     cfg.Assistant.Temperature,
		AnswerTemp:      cfg.Assistant.AnswerTemperature,
		MaxTokens:       cfg.Assistant.MaxTokens,
		RefineMaxTokens: cfg.Assistant.RefineMaxTokens,
		Timeout:         cfg.Assistant.GetTimeoutDuration(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create assistant: %w", err)
	}

	sender, err := gateway.NewSender(gateway.SenderConfig{
		BaseURL:    cfg.Gateway.BaseURL,
		AccountSID: cfg.Gateway.AccountSID,
		AuthToken:  cfg.Gateway.AuthToken,
		From:       cfg.Gateway.From,
		Timeout:    cfg.Gateway.GetTimeoutDuration(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway sender: %w", err)
	}

	store := session.NewMemoryStore(session.Config{
		IdleTimeout:     cfg.Session.GetIdleTimeoutDuration(),
		CleanupInterval: cfg.Session.GetCleanupIntervalDuration(),
		MaxSessions:     cfg.Session.MaxSessions,
	}, logger, m)

	var images conversation.ImageFetcher
	if cfg.Media.InlineImages {
		images = stager
	}

	orchestrator := conversation.NewOrchestrator(conversation.Config{
		TurnTimeout: cfg.Conversation.GetTurnTimeoutDuration(),
		MenuLocale:  cfg.Conversation.MenuLocale,
	}, conversation.Deps{
		Store:       store,
		Sender:      sender,
		Stager:      stager,
		Images:      images,
		Transcriber: transcriber,
		Assistant:   llm,
		Synthesizer: synthesizer,
		Translator:  translator,
	}, logger, m)

	return &service{
		registry:     reg,
		metrics:      m,
		store:        store,
		stt:          stt,
		transcriber:  transcriber,
		orchestrator: orchestrator,
		staticDir:    staticDir,
	}, nil
}
