package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/statement-importer/internal/agent"
	"github.com/lox/statement-importer/internal/bank"
	"github.com/lox/statement-importer/internal/bank/c6"
	"github.com/lox/statement-importer/internal/bank/csv"
	"github.com/lox/statement-importer/internal/bank/generic"
	"github.com/lox/statement-importer/internal/bank/itau"
	"github.com/lox/statement-importer/internal/bank/ofx"
	"github.com/lox/statement-importer/internal/bank/qif"
	"github.com/lox/statement-importer/internal/similar"
	"github.com/lox/statement-importer/internal/suggest"
)

// SetupLogger creates a stderr logger at the given level
func SetupLogger(level string) (*log.Logger, error) {
	logger := log.New(os.Stderr)
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(lvl)
	return logger, nil
}

// Clock returns a clock in the given timezone
func Clock(timezone string) (func() time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}
	return func() time.Time { return time.Now().In(loc) }, nil
}

// NewRegistry registers every supported statement format. PDF text that no
// bank recognises goes to the generic parser.
func NewRegistry(logger *log.Logger) *bank.Registry {
	registry := bank.NewRegistry()
	registry.Register(csv.New(logger))
	registry.Register(ofx.New(logger))
	registry.Register(qif.New(logger))
	registry.Register(c6.New(logger))
	registry.Register(itau.New(logger))
	registry.SetPDFFallback(generic.New(logger))
	return registry
}

// SetupOracle initializes the suggestion oracle selected by config. It
// returns a nil oracle when suggestions are disabled. The returned close
// function is always safe to call.
func SetupOracle(ctx context.Context, config OracleConfig, logger *log.Logger) (suggest.Oracle, func(), error) {
	noop := func() {}

	switch config.Provider {
	case "", "none":
		return nil, noop, nil

	case "openai":
		if config.OpenAIKey == "" {
			return nil, noop, fmt.Errorf("openai api key is required when using OpenAI suggestions")
		}
		a := agent.NewOpenAIAgent(logger, config.OpenAIKey, config.OpenAIBaseURL, config.OpenAIModel, 3)
		logger.Info("Using OpenAI-compatible API for suggestions", "model", config.OpenAIModel)
		return suggest.NewOpenAIOracle(a, logger), noop, nil

	case "openrouter":
		if config.OpenRouterKey == "" {
			return nil, noop, fmt.Errorf("openrouter api key is required when using OpenRouter suggestions")
		}
		a := agent.NewOpenRouterAgent(logger, config.OpenRouterKey, config.OpenRouterModel, 3)
		logger.Info("Using OpenRouter for suggestions", "model", config.OpenRouterModel)
		return suggest.NewOpenAIOracle(a, logger), noop, nil

	case "gemini":
		if config.GeminiAPIKey == "" {
			return nil, noop, fmt.Errorf("gemini api key is required when using Gemini suggestions")
		}
		geminiConfig := suggest.NewGeminiConfig().
			WithAPIKey(config.GeminiAPIKey).
			WithModelName(config.GeminiModel).
			WithLogger(logger)
		oracle, err := suggest.NewGeminiOracle(ctx, geminiConfig)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create Gemini oracle: %w", err)
		}
		logger.Info("Using Gemini for suggestions", "model", geminiConfig.ModelName)
		return oracle, func() {
			if err := oracle.Close(); err != nil {
				logger.Warn("Failed to close Gemini client", "error", err)
			}
		}, nil

	default:
		return nil, noop, fmt.Errorf("unknown suggestion provider: %s", config.Provider)
	}
}

// SetupEmbedder initializes the embedder selected by config, or nil when
// similar-transaction hints are disabled
func SetupEmbedder(ctx context.Context, config SimilarConfig, oracle OracleConfig, logger *log.Logger) (similar.Embedder, error) {
	switch config.Embedder {
	case "none":
		return nil, nil
	case "", "ngram":
		return similar.NewNGramEmbedder(similar.DefaultDimensions), nil
	case similar.ProviderOpenAI, similar.ProviderGemini:
		apiKey, endpoint := oracle.OpenAIKey, oracle.OpenAIBaseURL
		if config.Embedder == similar.ProviderGemini {
			apiKey, endpoint = oracle.GeminiAPIKey, ""
		}
		e, err := similar.NewRemoteEmbedder(ctx, similar.NewRemoteConfig(config.Embedder).
			WithAPIKey(apiKey).
			WithEndpoint(endpoint).
			WithModelName(config.EmbeddingModel).
			WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s embedder: %w", config.Embedder, err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", config.Embedder)
	}
}

// SetupIndex opens the similar-transaction index under dataDir, or returns
// nil when hints are disabled. Callers close a non-nil index.
func SetupIndex(ctx context.Context, dataDir string, config SimilarConfig, oracle OracleConfig, logger *log.Logger) (*similar.Index, error) {
	embedder, err := SetupEmbedder(ctx, config, oracle, logger)
	if err != nil || embedder == nil {
		return nil, err
	}
	index, err := similar.NewIndex(dataDir, embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create similarity index: %w", err)
	}
	return index, nil
}
