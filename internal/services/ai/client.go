package ai

import (
	"context"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultModel is the default text-generation model
	DefaultModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the default embedding model
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout bounds every outbound provider call so a stalled
	// upstream cannot stall a handler indefinitely
	DefaultTimeout = 20 * time.Second

	// maxSubtaskTokens bounds the completion size for subtask generation
	maxSubtaskTokens = 500
	// subtaskTemperature allows some variety in suggested decompositions.
	// A tuning knob, not a correctness contract.
	subtaskTemperature = 0.7
)

const subtasksSystemPrompt = "You are a helpful assistant that breaks down big tasks into simple, clear subtasks. " +
	"Given a main task title, return a list of 3 to 7 clear, short subtasks needed to complete it. " +
	"The subtasks should be practical and written in plain language."

// Client talks to the OpenAI API for both text generation and embeddings
type Client struct {
	api            openai.Client
	model          string
	embeddingModel string
	timeout        time.Duration
	logger         *zap.Logger
	debugMode      bool
	configured     bool
}

// NewClient creates a provider client. An empty apiKey produces a client
// whose calls fail with ErrUpstreamUnavailable rather than a construction
// error, so a misconfigured deployment starts up and reports the problem
// per request instead of crashing.
func NewClient(apiKey, baseURL, model, embeddingModel string, timeout time.Duration, logger *zap.Logger, debugMode bool) *Client {
	if model == "" {
		model = DefaultModel
	}
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := &http.Client{
		Timeout: timeout,
	}

	api := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &Client{
		api:            api,
		model:          model,
		embeddingModel: embeddingModel,
		timeout:        timeout,
		logger:         logger,
		debugMode:      debugMode,
		configured:     apiKey != "",
	}
}

// Model returns the text-generation model in use
func (c *Client) Model() string {
	return c.model
}

// EmbeddingModel returns the embedding model version tag. Stored alongside
// every vector so that a model change invalidates prior embeddings.
func (c *Client) EmbeddingModel() string {
	return c.embeddingModel
}

// GenerateSubtasks asks the model to decompose a task title and returns the
// first completion's text content unmodified. Interpreting that content is
// the normalizer's job; keeping the two apart keeps "get text from model"
// separate from "make sense of the text".
func (c *Client) GenerateSubtasks(ctx context.Context, taskTitle string) (string, error) {
	if !c.configured {
		return "", ErrUpstreamUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	userPrompt := "Generate subtasks for this task: \"" + taskTitle + "\". Return only a JSON array of strings, no other text."
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(subtasksSystemPrompt),
		openai.UserMessage(userPrompt),
	}

	req := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(subtaskTemperature),
		MaxTokens:   openai.Int(maxSubtaskTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	if c.logger != nil && c.debugMode {
		c.logger.Debug("llm_api_request",
			zap.String("operation", "generate_subtasks"),
			zap.String("model", c.model),
			zap.String("prompt_preview", SanitizePrompt(userPrompt, false)),
			zap.String("request_id", ExtractRequestID(ctx)),
		)
	}

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, req)
	latency := time.Since(start)

	if err != nil {
		classified := classifyUpstreamError(err)
		if c.logger != nil {
			c.logger.Warn("llm_api_error",
				zap.String("operation", "generate_subtasks"),
				zap.String("model", c.model),
				zap.Error(classified),
				zap.String("request_id", ExtractRequestID(ctx)),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return "", classified
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesInResponse
	}

	content := resp.Choices[0].Message.Content

	if c.logger != nil && c.debugMode {
		c.logger.Debug("llm_api_response",
			zap.String("operation", "generate_subtasks"),
			zap.String("model", c.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("request_id", ExtractRequestID(ctx)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}

// Embed converts text to a fixed-length vector. The dimension is fixed by
// the embedding model; callers comparing vectors must treat a dimension
// mismatch as "no embedding" rather than an error.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if !c.configured {
		return nil, ErrUpstreamUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model: openai.EmbeddingModel(c.embeddingModel),
	}

	start := time.Now()
	resp, err := c.api.Embeddings.New(ctx, req)
	latency := time.Since(start)

	if err != nil {
		classified := classifyUpstreamError(err)
		if c.logger != nil {
			c.logger.Warn("embedding_api_error",
				zap.String("model", c.embeddingModel),
				zap.Error(classified),
				zap.String("request_id", ExtractRequestID(ctx)),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return nil, classified
	}

	if len(resp.Data) == 0 {
		return nil, ErrNoChoicesInResponse
	}

	vector := resp.Data[0].Embedding

	if c.logger != nil && c.debugMode {
		c.logger.Debug("embedding_api_response",
			zap.String("model", c.embeddingModel),
			zap.Int("dimension", len(vector)),
			zap.String("request_id", ExtractRequestID(ctx)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return vector, nil
}
