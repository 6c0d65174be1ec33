// Package agent runs an OpenAI-compatible tool-calling loop until the model
// produces a tool call that passes validation.
package agent

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/exp/slices"
)

// OpenRouterBaseURL is the OpenAI-compatible endpoint of OpenRouter
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// ToolCallValidator parses and validates a tool call. It returns the parsed
// value, or an error that is fed back to the model for another attempt.
type ToolCallValidator func(toolCall openai.ToolCall) (any, error)

// ShouldStopFunc reports whether a validated tool call ends the loop
type ShouldStopFunc func(toolCall openai.ToolCall) bool

// Agent wraps a chat completion client for tool calling
type Agent struct {
	logger      *log.Logger
	client      *openai.Client
	model       string
	maxAttempts int
}

// NewAgent creates a new Agent for tool-calling
func NewAgent(logger *log.Logger, client *openai.Client, model string, maxAttempts int) *Agent {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Agent{
		logger:      logger,
		client:      client,
		model:       model,
		maxAttempts: maxAttempts,
	}
}

// NewOpenAIAgent creates an Agent for an OpenAI-compatible API. An empty
// baseURL uses api.openai.com.
func NewOpenAIAgent(logger *log.Logger, apiKey, baseURL, model string, maxAttempts int) *Agent {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return NewAgent(logger, openai.NewClientWithConfig(cfg), model, maxAttempts)
}

// NewOpenRouterAgent creates an Agent configured for OpenRouter
func NewOpenRouterAgent(logger *log.Logger, apiKey, model string, maxAttempts int) *Agent {
	return NewOpenAIAgent(logger, apiKey, OpenRouterBaseURL, model, maxAttempts)
}

// Model returns the model name the agent talks to
func (a *Agent) Model() string {
	return a.model
}

// MaxAttempts returns the default loop bound
func (a *Agent) MaxAttempts() int {
	return a.maxAttempts
}

// RunLoop asks the model for tool calls until one validates and shouldStop
// accepts it, or maxLoop rounds have passed. Validation errors are sent back
// to the model together with its previous arguments.
func (a *Agent) RunLoop(
	ctx context.Context,
	initialMessages []openai.ChatCompletionMessage,
	tools []openai.Tool,
	validator ToolCallValidator,
	shouldStop ShouldStopFunc,
	maxLoop int,
) (any, error) {
	if maxLoop <= 0 {
		maxLoop = a.maxAttempts
	}

	var (
		lastError    error
		chatMessages = slices.Clone(initialMessages)
	)

	for loop := 1; loop <= maxLoop; loop++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a.logger.Debug("Running agent loop", "loop", loop, "model", a.model)

		resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:      a.model,
			Messages:   chatMessages,
			Tools:      tools,
			ToolChoice: "auto",
		})
		if err != nil {
			lastError = err
			a.logger.Debug("Chat completion failed", "loop", loop, "error", err)
			continue
		}

		if len(resp.Choices) == 0 {
			lastError = fmt.Errorf("no choices in response")
			continue
		}

		message := resp.Choices[0].Message
		if len(message.ToolCalls) == 0 {
			lastError = fmt.Errorf("no tool calls in response")
			chatMessages = append(chatMessages, message, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: "Respond by calling one of the provided tools.",
			})
			continue
		}

		toolCall := message.ToolCalls[0]
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			ToolCalls: []openai.ToolCall{toolCall},
		})

		parsed, err := validator(toolCall)
		if err == nil {
			a.logger.Debug("Tool call validated", "tool", toolCall.Function.Name)
			if shouldStop == nil || shouldStop(toolCall) {
				return parsed, nil
			}
			chatMessages = append(chatMessages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    fmt.Sprintf("Tool result: %v", parsed),
				Name:       toolCall.Function.Name,
				ToolCallID: toolCall.ID,
			})
			continue
		}

		a.logger.Debug("Tool call validation failed", "tool", toolCall.Function.Name, "error", err)
		lastError = err
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    "Error: " + err.Error() + "\nPrevious arguments:\n" + toolCall.Function.Arguments + "\nPlease correct your response using only allowed values.",
			Name:       toolCall.Function.Name,
			ToolCallID: toolCall.ID,
		})
	}

	return nil, fmt.Errorf("failed to get valid tool call after %d attempts: %w", maxLoop, lastError)
}
