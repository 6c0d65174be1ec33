// Package suggest asks an external model for category hints on transactions
// that no classification tier matched. Hints are shown to the reviewer and
// never applied automatically.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/charmbracelet/log"
	"github.com/google/generative-ai-go/genai"
	"github.com/lox/statement-importer/internal/agent"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
)

// Oracle returns a JSON document matching schema in answer to prompt
type Oracle interface {
	InvokeSuggestion(ctx context.Context, prompt string, schema map[string]any) (json.RawMessage, error)
}

const suggestToolName = "suggest_categories"

// OpenAIOracle answers through a tool call on an OpenAI-compatible API
type OpenAIOracle struct {
	agent  *agent.Agent
	logger *log.Logger
}

// NewOpenAIOracle creates an oracle backed by a tool-calling agent
func NewOpenAIOracle(a *agent.Agent, logger *log.Logger) *OpenAIOracle {
	return &OpenAIOracle{agent: a, logger: logger}
}

func (o *OpenAIOracle) InvokeSuggestion(ctx context.Context, prompt string, schema map[string]any) (json.RawMessage, error) {
	tool := openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        suggestToolName,
			Description: "Return a category suggestion for each listed transaction",
			Parameters:  schema,
		},
	}
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "You categorise bank statement transactions. Always answer by calling " + suggestToolName + "."},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}

	result, err := o.agent.RunLoop(ctx, messages, []openai.Tool{tool}, func(call openai.ToolCall) (any, error) {
		if call.Function.Name != suggestToolName {
			return nil, fmt.Errorf("unknown tool %q, call %s", call.Function.Name, suggestToolName)
		}
		raw := json.RawMessage(call.Function.Arguments)
		if !json.Valid(raw) {
			return nil, fmt.Errorf("arguments are not valid JSON")
		}
		return raw, nil
	}, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestion from %s: %w", o.agent.Model(), err)
	}
	return result.(json.RawMessage), nil
}

// GeminiConfig holds configuration for the Gemini oracle
type GeminiConfig struct {
	APIKey        string
	ModelName     string
	RetryAttempts uint
	Logger        *log.Logger
}

func NewGeminiConfig() GeminiConfig {
	return GeminiConfig{
		ModelName:     "gemini-2.0-flash",
		RetryAttempts: 3,
	}
}

func (c GeminiConfig) WithAPIKey(apiKey string) GeminiConfig {
	c.APIKey = apiKey
	return c
}

func (c GeminiConfig) WithModelName(modelName string) GeminiConfig {
	if modelName != "" {
		c.ModelName = modelName
	}
	return c
}

func (c GeminiConfig) WithRetryAttempts(attempts uint) GeminiConfig {
	c.RetryAttempts = attempts
	return c
}

func (c GeminiConfig) WithLogger(logger *log.Logger) GeminiConfig {
	c.Logger = logger
	return c
}

func (c GeminiConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("gemini api key is required")
	}
	if c.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	if c.RetryAttempts == 0 {
		return fmt.Errorf("retry attempts must be greater than 0")
	}
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	return nil
}

// GeminiOracle answers with Gemini's JSON response mode
type GeminiOracle struct {
	config GeminiConfig
	client *genai.Client
	logger *log.Logger
}

// NewGeminiOracle creates a Gemini backed oracle
func NewGeminiOracle(ctx context.Context, config GeminiConfig) (*GeminiOracle, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiOracle{config: config, client: client, logger: config.Logger}, nil
}

func (o *GeminiOracle) InvokeSuggestion(ctx context.Context, prompt string, schema map[string]any) (json.RawMessage, error) {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}

	model := o.client.GenerativeModel(o.config.ModelName)
	model.ResponseMIMEType = "application/json"
	full := prompt + "\n\nRespond with JSON matching this schema:\n" + string(schemaJSON)

	var out json.RawMessage
	start := time.Now()
	err = retry.Do(
		func() error {
			resp, err := model.GenerateContent(ctx, genai.Text(full))
			if err != nil {
				return fmt.Errorf("failed to generate content: %w", err)
			}
			text := responseText(resp)
			if !json.Valid([]byte(text)) {
				return fmt.Errorf("response is not valid JSON")
			}
			out = json.RawMessage(text)
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(o.config.RetryAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			o.logger.Warn("Retrying Gemini suggestion request", "attempt", n+1, "max_attempts", o.config.RetryAttempts, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get Gemini suggestion: %w", err)
	}
	o.logger.Debug("Got Gemini suggestion", "model", o.config.ModelName, "duration", time.Since(start))
	return out, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}

func (o *GeminiOracle) Close() error {
	if o.client != nil {
		return o.client.Close()
	}
	return nil
}
