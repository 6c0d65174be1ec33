package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompletions answers each chat completion with the next tool call arguments
func fakeCompletions(t *testing.T, arguments ...string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		args := arguments[len(arguments)-1]
		if n < len(arguments) {
			args = arguments[n]
		}
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role: openai.ChatMessageRoleAssistant,
					ToolCalls: []openai.ToolCall{{
						ID:   "call_1",
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      "suggest",
							Arguments: args,
						},
					}},
				},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func validateCategory(toolCall openai.ToolCall) (any, error) {
	var out struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &out); err != nil {
		return nil, err
	}
	if out.Category != "Transporte" {
		return nil, errors.New("category must be one of: Transporte")
	}
	return out.Category, nil
}

func TestRunLoopRetriesUntilValid(t *testing.T) {
	srv, calls := fakeCompletions(t, `{"category":"Cars"}`, `{"category":"Transporte"}`)
	a := NewOpenAIAgent(log.New(io.Discard), "test", srv.URL+"/v1", "test-model", 3)

	got, err := a.RunLoop(context.Background(),
		[]openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "UBER *TRIP"}},
		nil, validateCategory, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "Transporte", got)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRunLoopGivesUp(t *testing.T) {
	srv, calls := fakeCompletions(t, `{"category":"Cars"}`)
	a := NewOpenAIAgent(log.New(io.Discard), "test", srv.URL+"/v1", "test-model", 2)

	_, err := a.RunLoop(context.Background(), nil, nil, validateCategory, nil, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Contains(t, err.Error(), "must be one of")
	assert.Equal(t, int32(2), calls.Load())
}
