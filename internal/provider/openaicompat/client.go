package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openailib "github.com/sashabaranov/go-openai"

	"github.com/vibelang/vibe/internal/provider"
)

// Client adapts provider.Provider onto any OpenAI-compatible chat
// completions endpoint, following the teacher's internal/llm/openai.Client
// (same client construction, same HTTP timeout plumbing) but folding
// CallLLM/CallLLMWithTools into the single Execute contract and delegating
// retry to internal/provider.WithRetry instead of a hand-rolled loop.
type Client struct {
	raw    *openailib.Client
	model  string
	temp   *float32
	tokens int
	retry  provider.RetryConfig
}

// New builds a Client from cfg.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clientCfg := openailib.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.HTTPTimeout}

	return &Client{
		raw:    openailib.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		temp:   cfg.Temperature,
		tokens: cfg.MaxTokens,
	}, nil
}

func (c *Client) Name() string { return fmt.Sprintf("openai-compatible (%s)", c.model) }

// structuredEnvelope is the `{ value: T }` wrapper used whenever a request
// carries a ResponseSchema. The interpreter sets one for every typed target
// except text-like ones, json included; there is no free-form JSON mode.
type structuredEnvelope struct {
	Value json.RawMessage `json:"value"`
}

// Execute sends one round to the provider, wrapping the HTTP call in
// internal/provider's jittered-backoff retry policy.
func (c *Client) Execute(ctx context.Context, req provider.Request) (provider.Response, error) {
	return provider.WithRetry(ctx, c.retry, func() (provider.Response, error) {
		return c.execute(ctx, req)
	})
}

func (c *Client) execute(ctx context.Context, req provider.Request) (provider.Response, error) {
	msgs := make([]openailib.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		oai := openailib.ChatCompletionMessage{Role: m.Role, Content: m.Content}
		if m.Role == provider.RoleTool {
			oai.ToolCallID = m.ToolCallID
			oai.Name = m.Name
		}
		if m.Role == provider.RoleAssistant && len(m.ToolCalls) > 0 {
			tcs := make([]openailib.ToolCall, len(m.ToolCalls))
			for j, tc := range m.ToolCalls {
				tcs[j] = openailib.ToolCall{
					ID:   tc.ID,
					Type: openailib.ToolTypeFunction,
					Function: openailib.FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				}
			}
			oai.ToolCalls = tcs
		}
		msgs[i] = oai
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	completion := openailib.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}
	if len(req.Tools) > 0 {
		tools := make([]openailib.Tool, len(req.Tools))
		for i, td := range req.Tools {
			tools[i] = openailib.Tool{
				Type: openailib.ToolTypeFunction,
				Function: &openailib.FunctionDefinition{
					Name:        td.Name,
					Description: td.Description,
					Parameters:  json.RawMessage(td.Parameters),
				},
			}
		}
		completion.Tools = tools
	}

	temp := req.Temperature
	if temp == nil {
		temp = c.temp
	}
	if temp != nil {
		completion.Temperature = *temp
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.tokens
	}
	if maxTokens > 0 {
		completion.MaxTokens = maxTokens
	}

	if req.ResponseSchema != nil {
		completion.ResponseFormat = &openailib.ChatCompletionResponseFormat{
			Type: openailib.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openailib.ChatCompletionResponseFormatJSONSchema{
				Name:   "vibe_value",
				Schema: wrapSchema(req.ResponseSchema),
				Strict: true,
			},
		}
	}

	resp, err := c.raw.CreateChatCompletion(ctx, completion)
	if err != nil {
		return provider.Response{}, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return provider.Response{}, fmt.Errorf("provider returned no choices")
	}
	choice := resp.Choices[0]

	out := provider.Response{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
	}

	if len(choice.Message.ToolCalls) > 0 {
		out.ToolCalls = make([]provider.ToolCall, len(choice.Message.ToolCalls))
		for i, tc := range choice.Message.ToolCalls {
			out.ToolCalls[i] = provider.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: json.RawMessage(tc.Function.Arguments),
			}
		}
		out.StopReason = "tool_use"
		return out, nil
	}

	if req.ResponseSchema != nil {
		var env structuredEnvelope
		if err := json.Unmarshal([]byte(choice.Message.Content), &env); err != nil {
			return provider.Response{}, fmt.Errorf("structured output did not match {value}: %w", err)
		}
		out.ParsedValue = env.Value
	}

	return out, nil
}

// wrapSchema wraps a value's JSON schema as `{"value": <schema>}`, the
// envelope used for every request that carries a ResponseSchema.
func wrapSchema(schema json.RawMessage) json.RawMessage {
	wrapped := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value": json.RawMessage(schema),
		},
		"required":             []string{"value"},
		"additionalProperties": false,
	}
	b, _ := json.Marshal(wrapped)
	return b
}

// classifyError wraps HTTP 429 and 5xx API errors in provider.RetryableError
// so internal/provider.IsRetryable retries them; every other error,
// including transport failures, is returned unchanged.
func classifyError(err error) error {
	var apiErr *openailib.APIError
	if errors.As(err, &apiErr) && (apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500) {
		return &provider.RetryableError{Err: err}
	}
	return err
}
