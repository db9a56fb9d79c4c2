package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/matheusmoura0/vestibular-tutor/internal/llm/prompts"
	"github.com/matheusmoura0/vestibular-tutor/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// ErrExplanationService wraps every failure of the explanation call.
var ErrExplanationService = errors.New("explanation service error")

// ErrMissingCredential is returned when neither the session nor the server has an API key.
var ErrMissingCredential = fmt.Errorf("%w: missing API key", ErrExplanationService)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	baseURL    string
	defaultKey string
	model      string
	language   string
	api        *openai.Client // bound to defaultKey; nil when none is configured
}

// New creates a new LLM client. defaultKey may be empty, in which case every
// call must supply its own key.
func New(baseURL, defaultKey, modelName string) (*Client, error) {
	if err := prompts.Load(nil); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	c := &Client{
		baseURL:    baseURL,
		defaultKey: defaultKey,
		model:      modelName,
		language:   "português",
	}
	if defaultKey != "" {
		c.api = c.newAPI(defaultKey)
	}
	return c, nil
}

// WithLanguage sets the language the explanation is requested in.
func (c *Client) WithLanguage(lang string) *Client {
	switch strings.ToLower(lang) {
	case "en":
		c.language = "English"
	default:
		c.language = "português"
	}
	return c
}

// HasDefaultKey reports whether a server-side credential is configured.
func (c *Client) HasDefaultKey() bool {
	return c.defaultKey != ""
}

func (c *Client) newAPI(key string) *openai.Client {
	config := openai.DefaultConfig(key)
	if c.baseURL != "" {
		config.BaseURL = c.baseURL
	}
	return openai.NewClientWithConfig(config)
}

func (c *Client) apiFor(apiKey string) (*openai.Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	switch {
	case apiKey != "" && apiKey != c.defaultKey:
		return c.newAPI(apiKey), nil
	case c.api != nil:
		return c.api, nil
	default:
		return nil, ErrMissingCredential
	}
}

// Ping checks that the API endpoint is reachable with the server-side key.
func (c *Client) Ping(ctx context.Context) error {
	api, err := c.apiFor("")
	if err != nil {
		return err
	}
	if _, err := api.ListModels(ctx); err != nil {
		return fmt.Errorf("%w: list models: %v", ErrExplanationService, err)
	}
	return nil
}

// Explain asks the model why correct is the right answer to question. An
// empty correct letter marks the official answer as not available. apiKey
// overrides the server-side key when set. The call is made once, without retry.
func (c *Client) Explain(ctx context.Context, apiKey, question string, correct, choice model.Letter) (string, error) {
	api, err := c.apiFor(apiKey)
	if err != nil {
		return "", err
	}

	prompt, err := prompts.BuildExplainPrompt(prompts.ExplainData{
		QuestionText: question,
		Correct:      correct,
		Choice:       choice,
		Language:     c.language,
	})
	if err != nil {
		return "", fmt.Errorf("%w: build prompt: %v", ErrExplanationService, err)
	}

	resp, err := api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExplanationService, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: LLM returned no choices", ErrExplanationService)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	slog.Debug("LLM explanation", "model", c.model, "tokens", resp.Usage.TotalTokens)
	if text == "" {
		return "", fmt.Errorf("%w: empty explanation", ErrExplanationService)
	}
	return text, nil
}
