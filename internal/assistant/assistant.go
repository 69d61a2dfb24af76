package assistant

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
	"github.com/sashabaranov/go-openai"
)

// DefaultBaseURL is the OpenAI-compatible Groq endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

const (
	summarizePrompt = "From this medical image, extract only the relevant prescription and rewrite it in plain English as simple, spoken patient instructions. Do NOT include headings, metadata, or explanations. No markdown. Only the final clean instructions."

	refinePrompt = "You are a medical assistant. Based on the following structured prescription data (JSON), produce a concise patient-facing summary with actionable instructions. Do NOT include headings, bullets, disclaimers, or formatting. No markdown. Only plain sentences. If dosages or timings are present, include them clearly."

	answerPrompt = `You are a helpful healthcare assistant. The following is a prescription summary:

"%s"

Now, the user asked:
"%s"

Task:
- Give a direct, simple, and helpful answer to the exact question asked.
- Suggest safe alternatives or natural remedies if relevant.
- Do not just say "consult your doctor" unless the question is about something dangerous.
- Keep the response in plain, simple text, easy for a patient to understand.`
)

// ErrEmptyCompletion is returned when the model produced no text.
var ErrEmptyCompletion = errors.New("model returned no content")

// Config contains language-model configuration
type Config struct {
	APIKey          string
	BaseURL         string
	VisionModel     string
	RefineModel     string
	AnswerModel     string
	RefineEndpoint  string // empty disables refinement
	Temperature     float32
	AnswerTemp      float32
	MaxTokens       int
	RefineMaxTokens int
	Timeout         time.Duration
}

// Assistant wraps the chat-completion client.
type Assistant struct {
	config     Config
	client     *openai.Client
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates an assistant
func New(config Config, logger *slog.Logger) (*Assistant, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.VisionModel == "" {
		config.VisionModel = "meta-llama/llama-4-scout-17b-16e-instruct"
	}
	if config.RefineModel == "" {
		config.RefineModel = "openai/gpt-oss-120b"
	}
	if config.AnswerModel == "" {
		config.AnswerModel = "llama-3.3-70b-versatile"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.3
	}
	if config.AnswerTemp == 0 {
		config.AnswerTemp = 0.5
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 1024
	}
	if config.RefineMaxTokens <= 0 {
		config.RefineMaxTokens = 5000
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	httpClient := &http.Client{Timeout: config.Timeout}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
	clientConfig.HTTPClient = httpClient

	return &Assistant{
		config:     config,
		client:     openai.NewClientWithConfig(clientConfig),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Summarize turns a prescription image into plain patient instructions.
// imageURL may be an https URL or a data URL. When a refinement endpoint is
// configured its result replaces the first pass; refinement failures are
// logged and the first pass is kept. An empty first pass yields "" so the
// caller can report that no summary is available.
func (a *Assistant) Summarize(ctx context.Context, imageURL string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.config.VisionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: summarizePrompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: imageURL}},
				},
			},
		},
		Temperature: a.config.Temperature,
		MaxTokens:   a.config.MaxTokens,
		TopP:        1,
	})
	if err != nil {
		return "", fmt.Errorf("vision summary failed: %w", err)
	}

	content, err := firstContent(resp)
	if errors.Is(err, ErrEmptyCompletion) {
		a.logger.Warn("Vision model returned no summary", slog.String("model", a.config.VisionModel))
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("vision summary failed: %w", err)
	}
	summary := CleanSummary(content)

	if a.config.RefineEndpoint == "" {
		return summary, nil
	}

	refined, err := a.refine(ctx, summary)
	if err != nil {
		a.logger.Warn("Summary refinement failed, keeping first pass",
			slog.String("error", err.Error()),
		)
		return summary, nil
	}
	return refined, nil
}

// refine posts the summary to the structuring service and asks the second
// model to rewrite its JSON answer as plain sentences.
func (a *Assistant) refine(ctx context.Context, summary string) (string, error) {
	body, err := sonic.Marshal(map[string]string{"text": summary})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.RefineEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("structuring request failed: %w", err)
	}
	defer resp.Body.Close()

	structured, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read structuring response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("structuring service returned HTTP %d", resp.StatusCode)
	}
	if !sonic.Valid(structured) {
		return "", errors.New("structuring service returned invalid JSON")
	}

	completion, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.config.RefineModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: refinePrompt},
					{Type: openai.ChatMessagePartTypeText, Text: "JSON:\n" + string(structured)},
				},
			},
		},
		Temperature: a.config.Temperature,
		MaxTokens:   a.config.RefineMaxTokens,
		TopP:        1,
	})
	if err != nil {
		return "", fmt.Errorf("refinement completion failed: %w", err)
	}

	content, err := firstContent(completion)
	if err != nil {
		return "", err
	}
	refined := strings.TrimSpace(stripMarkdown(content))
	if refined == "" {
		return "", ErrEmptyCompletion
	}
	return refined, nil
}

// Answer replies to question using summary as context.
func (a *Assistant) Answer(ctx context.Context, summary, question string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.config.AnswerModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(answerPrompt, summary, question)},
		},
		Temperature: a.config.AnswerTemp,
		TopP:        1,
	})
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}

	content, err := firstContent(resp)
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}
	return strings.TrimSpace(content), nil
}

func firstContent(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

var markdownReplacer = strings.NewReplacer("*", "", "_", "", "~", "", "`", "")

func stripMarkdown(s string) string {
	return markdownReplacer.Replace(s)
}

// CleanSummary strips markdown emphasis and keeps the last non-blank
// paragraph, where models put the final instructions.
func CleanSummary(s string) string {
	paragraphs := strings.Split(stripMarkdown(s), "\n\n")
	for i := len(paragraphs) - 1; i >= 0; i-- {
		if p := strings.TrimSpace(paragraphs[i]); p != "" {
			return p
		}
	}
	return ""
}
