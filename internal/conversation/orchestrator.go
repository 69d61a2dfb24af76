package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/skypro1111/rxvoice/internal/gateway"
	"github.com/skypro1111/rxvoice/internal/language"
	"github.com/skypro1111/rxvoice/internal/media"
	"github.com/skypro1111/rxvoice/internal/metrics"
	"github.com/skypro1111/rxvoice/internal/session"
)

// Turn kinds, in dispatch precedence order.
const (
	TurnVoiceQuery        = "voice_query"
	TurnLanguageSelection = "language_selection"
	TurnNewPrescription   = "new_prescription"
	TurnIgnored           = "ignored"
)

// Turn outcomes.
const (
	OutcomeCompleted        = "completed"
	OutcomeDegraded         = "degraded"
	OutcomeInvalidSelection = "invalid_selection"
	OutcomeFailed           = "failed"
)

// Sender delivers replies to the messaging gateway.
type Sender interface {
	Send(ctx context.Context, msg gateway.OutboundMessage) error
}

// MediaStager downloads and normalizes a voice note.
type MediaStager interface {
	Stage(ctx context.Context, remoteURL, contentType string) (*media.Job, error)
}

// ImageFetcher inlines a gateway-hosted image for the vision model.
type ImageFetcher interface {
	FetchDataURL(ctx context.Context, remoteURL, contentType string) (string, error)
}

// Transcriber converts a staged audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Assistant is the language-model boundary.
type Assistant interface {
	Summarize(ctx context.Context, imageURL string) (string, error)
	Answer(ctx context.Context, summary, question string) (string, error)
}

// Synthesizer speaks text and returns the artifact URL.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, languageCode string) (string, error)
}

// Translator translates text, returning the input on failure.
type Translator interface {
	Translate(ctx context.Context, text, targetCode string) string
}

// Config contains orchestrator configuration
type Config struct {
	TurnTimeout time.Duration
	MenuLocale  string
}

// Deps groups the orchestrator's collaborators. Images is optional: when
// nil the gateway media URL is handed to the vision model directly.
type Deps struct {
	Store       session.Store
	Sender      Sender
	Stager      MediaStager
	Images      ImageFetcher
	Transcriber Transcriber
	Assistant   Assistant
	Synthesizer Synthesizer
	Translator  Translator
}

// Result describes a completed turn.
type Result struct {
	Kind    string
	Outcome string
	Phase   session.Phase
}

// Orchestrator runs conversation turns.
type Orchestrator struct {
	config  Config
	deps    Deps
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(config Config, deps Deps, logger *slog.Logger, m *metrics.Metrics) *Orchestrator {
	if config.MenuLocale == "" {
		config.MenuLocale = "hi-IN"
	}
	return &Orchestrator{
		config:  config,
		deps:    deps,
		logger:  logger,
		metrics: m,
	}
}

// Classify picks the turn kind for msg given the sender's current phase.
// Rules are evaluated in order and the first match wins.
func Classify(phase session.Phase, msg gateway.InboundMessage) string {
	switch {
	case msg.IsVoice() && phase == session.AwaitingVoiceQuery:
		return TurnVoiceQuery
	case phase == session.AwaitingLanguageSelection && msg.Text() != "":
		return TurnLanguageSelection
	case msg.IsImage():
		return TurnNewPrescription
	default:
		return TurnIgnored
	}
}

// turnFunc runs one turn kind. It returns the state to commit, or nil to
// leave the session as it is.
type turnFunc func(ctx context.Context, msg gateway.InboundMessage, current session.State) (*session.State, string, error)

// Handle runs one turn for msg. Any error wraps ErrTurnFailed and means the
// stored state was not modified.
func (o *Orchestrator) Handle(ctx context.Context, msg gateway.InboundMessage) (Result, error) {
	unlock := o.deps.Store.Lock(msg.From)
	defer unlock()

	if o.config.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.TurnTimeout)
		defer cancel()
	}

	start := time.Now()
	o.metrics.RecordInboundEvent(msg.Kind())

	current, _ := o.deps.Store.Get(msg.From)
	kind := Classify(current.Phase, msg)

	var run turnFunc
	switch kind {
	case TurnVoiceQuery:
		run = o.voiceQueryTurn
	case TurnLanguageSelection:
		run = o.languageSelectionTurn
	case TurnNewPrescription:
		run = o.newPrescriptionTurn
	default:
		run = o.ignoredTurn
	}

	next, outcome, err := run(ctx, msg, current)
	if err == nil && next != nil {
		err = o.commit(msg.From, current, *next)
	}

	result := Result{Kind: kind, Outcome: outcome, Phase: current.Phase}
	if err != nil {
		result.Outcome = OutcomeFailed
	} else if next != nil {
		result.Phase = next.Phase
	}

	elapsed := time.Since(start)
	o.metrics.RecordTurn(kind, result.Outcome, elapsed.Seconds())

	attrs := []any{
		slog.String("from", msg.From),
		slog.String("turn", kind),
		slog.String("outcome", result.Outcome),
		slog.String("phase", result.Phase.String()),
		slog.Duration("elapsed", elapsed),
	}
	if err != nil {
		o.logger.Error("Turn failed", append(attrs, slog.String("error", err.Error()))...)
		return result, fmt.Errorf("%w: %s: %w", ErrTurnFailed, kind, err)
	}

	o.logger.Info("Turn completed", attrs...)
	return result, nil
}

func (o *Orchestrator) commit(id string, current, next session.State) error {
	if err := checkTransition(current, next); err != nil {
		return err
	}
	if !o.deps.Store.CompareAndSwap(id, current, next) {
		return ErrStateConflict
	}
	return nil
}

// voiceQueryTurn answers a spoken question about the stored summary.
func (o *Orchestrator) voiceQueryTurn(ctx context.Context, msg gateway.InboundMessage, current session.State) (*session.State, string, error) {
	job, err := o.deps.Stager.Stage(ctx, msg.MediaURL, msg.MediaContentType)
	if err != nil {
		return nil, "", fmt.Errorf("staging voice note: %w", err)
	}
	defer job.Cleanup(o.logger)

	transcript, err := o.deps.Transcriber.Transcribe(ctx, job.NormalizedPath)
	if err != nil {
		return nil, "", fmt.Errorf("transcribing voice note: %w", err)
	}

	if err := o.send(ctx, msg.From, msgTranscribed(transcript), ""); err != nil {
		return nil, "", err
	}

	answer, err := o.deps.Assistant.Answer(ctx, current.SummaryText, transcript)
	if err != nil {
		return nil, "", fmt.Errorf("generating answer: %w", err)
	}

	outcome := OutcomeCompleted
	if url, ok := o.speak(ctx, answer, current.LanguageCode); ok {
		err = o.send(ctx, msg.From, msgAnswerAudio(current.LanguageLabel), url)
	} else {
		outcome = OutcomeDegraded
		err = o.send(ctx, msg.From, msgAnswerText(current.LanguageLabel, answer), "")
	}
	if err != nil {
		return nil, "", err
	}

	next := current
	return &next, outcome, nil
}

// languageSelectionTurn resolves the menu reply and delivers the summary in
// the chosen language.
func (o *Orchestrator) languageSelectionTurn(ctx context.Context, msg gateway.InboundMessage, current session.State) (*session.State, string, error) {
	entry, err := language.Resolve(msg.Text())
	if errors.Is(err, language.ErrInvalidSelection) {
		if err := o.send(ctx, msg.From, msgInvalidOption, ""); err != nil {
			return nil, "", err
		}
		return nil, OutcomeInvalidSelection, nil
	}
	if err != nil {
		return nil, "", err
	}

	summary := current.SummaryText
	if strings.TrimSpace(summary) != "" {
		summary = o.deps.Translator.Translate(ctx, summary, entry.Code)
	}
	if strings.TrimSpace(summary) == "" {
		summary = current.SummaryText
	}
	if strings.TrimSpace(summary) == "" {
		summary = noSummaryAvailable
	}

	outcome := OutcomeCompleted
	if url, ok := o.speak(ctx, summary, entry.Locale); ok {
		err = o.send(ctx, msg.From, msgSummaryAudio(entry.Label), url)
	} else {
		outcome = OutcomeDegraded
		err = o.send(ctx, msg.From, msgSummaryText(entry.Label, summary), "")
	}
	if err != nil {
		return nil, "", err
	}

	if err := o.send(ctx, msg.From, msgVoiceReady, ""); err != nil {
		return nil, "", err
	}

	next := current
	next.Phase = session.AwaitingVoiceQuery
	next.LanguageCode = entry.Locale
	next.LanguageLabel = entry.Label
	return &next, outcome, nil
}

// newPrescriptionTurn summarizes an image and presents the language menu.
func (o *Orchestrator) newPrescriptionTurn(ctx context.Context, msg gateway.InboundMessage, current session.State) (*session.State, string, error) {
	imageURL := msg.MediaURL
	if o.deps.Images != nil {
		inlined, err := o.deps.Images.FetchDataURL(ctx, msg.MediaURL, msg.MediaContentType)
		if err != nil {
			return nil, "", fmt.Errorf("fetching prescription image: %w", err)
		}
		imageURL = inlined
	}

	summary, err := o.deps.Assistant.Summarize(ctx, imageURL)
	if err != nil {
		return nil, "", fmt.Errorf("summarizing prescription: %w", err)
	}
	summary = strings.TrimSpace(summary)

	outcome := OutcomeCompleted
	if url, ok := o.speak(ctx, language.SpokenMenu(), o.config.MenuLocale); ok {
		if err := o.send(ctx, msg.From, msgMenuAudio, url); err != nil {
			return nil, "", err
		}
	} else {
		outcome = OutcomeDegraded
	}

	if err := o.send(ctx, msg.From, language.TextMenu(), ""); err != nil {
		return nil, "", err
	}

	return &session.State{
		Phase:              session.AwaitingLanguageSelection,
		SummaryText:        summary,
		SummaryUnavailable: summary == "",
	}, outcome, nil
}

// ignoredTurn acknowledges without replying or touching state.
func (o *Orchestrator) ignoredTurn(ctx context.Context, msg gateway.InboundMessage, current session.State) (*session.State, string, error) {
	o.logger.Debug("No rule matched",
		slog.String("from", msg.From),
		slog.String("kind", msg.Kind()),
		slog.String("phase", current.Phase.String()),
	)
	return nil, OutcomeCompleted, nil
}

// speak synthesizes text. Failures are logged and reported as !ok so the
// caller falls back to a text reply.
func (o *Orchestrator) speak(ctx context.Context, text, languageCode string) (string, bool) {
	url, err := o.deps.Synthesizer.Synthesize(ctx, text, languageCode)
	if err != nil {
		o.logger.Warn("Audio reply unavailable, falling back to text",
			slog.String("language", languageCode),
			slog.String("error", err.Error()),
		)
		return "", false
	}
	return url, true
}

func (o *Orchestrator) send(ctx context.Context, to, body, mediaURL string) error {
	replyType := "text"
	if mediaURL != "" {
		replyType = "audio"
	}

	err := o.deps.Sender.Send(ctx, gateway.OutboundMessage{To: to, Body: body, MediaURL: mediaURL})
	o.metrics.RecordReply(replyType, err != nil)
	if err != nil {
		return fmt.Errorf("sending %s reply: %w", replyType, err)
	}
	return nil
}
