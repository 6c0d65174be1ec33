package similar

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/charmbracelet/log"
	"github.com/google/generative-ai-go/genai"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"
)

// Hosted embedding providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

var defaultModels = map[string]string{
	ProviderOpenAI: string(openai.SmallEmbedding3),
	ProviderGemini: "text-embedding-004",
}

// RemoteConfig configures an embedder backed by a hosted embeddings API.
// Endpoint only applies to OpenAI-compatible servers.
type RemoteConfig struct {
	Provider      string
	APIKey        string
	Endpoint      string
	ModelName     string
	RetryAttempts uint
	Logger        *log.Logger
}

func NewRemoteConfig(provider string) RemoteConfig {
	return RemoteConfig{
		Provider:      provider,
		ModelName:     defaultModels[provider],
		RetryAttempts: 3,
	}
}

func (c RemoteConfig) WithAPIKey(apiKey string) RemoteConfig {
	c.APIKey = apiKey
	return c
}

func (c RemoteConfig) WithEndpoint(endpoint string) RemoteConfig {
	c.Endpoint = endpoint
	return c
}

func (c RemoteConfig) WithModelName(modelName string) RemoteConfig {
	if modelName != "" {
		c.ModelName = modelName
	}
	return c
}

func (c RemoteConfig) WithRetryAttempts(attempts uint) RemoteConfig {
	c.RetryAttempts = attempts
	return c
}

func (c RemoteConfig) WithLogger(logger *log.Logger) RemoteConfig {
	c.Logger = logger
	return c
}

func (c RemoteConfig) Validate() error {
	if _, ok := defaultModels[c.Provider]; !ok {
		return fmt.Errorf("unknown embedding provider: %q", c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("%s api key is required", c.Provider)
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

// RemoteEmbedder calls a hosted embeddings API, retrying with backoff
type RemoteEmbedder struct {
	config  RemoteConfig
	request func(ctx context.Context, text string) ([]float32, error)
	close   func() error
	logger  *log.Logger
}

// NewRemoteEmbedder creates an embedder for config.Provider
func NewRemoteEmbedder(ctx context.Context, config RemoteConfig) (*RemoteEmbedder, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &RemoteEmbedder{
		config: config,
		close:  func() error { return nil },
		logger: config.Logger,
	}
	switch config.Provider {
	case ProviderOpenAI:
		cfg := openai.DefaultConfig(config.APIKey)
		if config.Endpoint != "" {
			cfg.BaseURL = config.Endpoint
		}
		e.request = openAIRequest(openai.NewClientWithConfig(cfg), config.ModelName)
	case ProviderGemini:
		client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		e.request = geminiRequest(client.EmbeddingModel(config.ModelName))
		e.close = client.Close
	}
	return e, nil
}

func openAIRequest(client *openai.Client, model string) func(context.Context, string) ([]float32, error) {
	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(model),
			Input: []string{text},
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 {
			return nil, nil
		}
		return resp.Data[0].Embedding, nil
	}
}

func geminiRequest(model *genai.EmbeddingModel) func(context.Context, string) ([]float32, error) {
	return func(ctx context.Context, text string) ([]float32, error) {
		result, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if result == nil || result.Embedding == nil {
			return nil, nil
		}
		return result.Embedding.Values, nil
	}
}

// Name is the provider and model, so switching either rebuilds the index
func (e *RemoteEmbedder) Name() string {
	return e.config.Provider + "-" + e.config.ModelName
}

func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var embedding []float32
	start := time.Now()
	err := retry.Do(
		func() error {
			vec, err := e.request(ctx, text)
			if err != nil {
				return err
			}
			if len(vec) == 0 {
				return fmt.Errorf("no embedding returned")
			}
			embedding = vec
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(e.config.RetryAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			e.logger.Warn("Retrying embedding request", "provider", e.config.Provider, "attempt", n+1, "max_attempts", e.config.RetryAttempts, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s embedding: %w", e.config.Provider, err)
	}
	e.logger.Debug("Generated embedding", "provider", e.config.Provider, "model", e.config.ModelName, "text_length", len(text), "embedding_length", len(embedding), "duration", time.Since(start))
	return normalize(embedding), nil
}

// Close releases the provider client
func (e *RemoteEmbedder) Close() error {
	return e.close()
}
