package commands

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry(log.New(io.Discard))
	assert.Equal(t, []string{"c6", "csv", "generic", "itau", "ofx", "qif"}, r.List())
}

func TestSetupOracle(t *testing.T) {
	logger := log.New(io.Discard)
	ctx := context.Background()

	oracle, closeFn, err := SetupOracle(ctx, OracleConfig{Provider: "none"}, logger)
	require.NoError(t, err)
	assert.Nil(t, oracle)
	closeFn()

	for _, provider := range []string{"openai", "openrouter", "gemini"} {
		_, _, err := SetupOracle(ctx, OracleConfig{Provider: provider}, logger)
		assert.Error(t, err, provider)
	}

	oracle, _, err = SetupOracle(ctx, OracleConfig{Provider: "openrouter", OpenRouterKey: "key", OpenRouterModel: "m"}, logger)
	require.NoError(t, err)
	assert.NotNil(t, oracle)

	_, _, err = SetupOracle(ctx, OracleConfig{Provider: "carrier-pigeon"}, logger)
	assert.Error(t, err)
}

func TestSetupIndex(t *testing.T) {
	logger := log.New(io.Discard)

	index, err := SetupIndex(context.Background(), t.TempDir(), SimilarConfig{Embedder: "none"}, OracleConfig{}, logger)
	require.NoError(t, err)
	assert.Nil(t, index)

	index, err = SetupIndex(context.Background(), t.TempDir(), SimilarConfig{Embedder: "ngram"}, OracleConfig{}, logger)
	require.NoError(t, err)
	assert.NotNil(t, index)

	for _, embedder := range []string{"openai", "gemini"} {
		_, err = SetupIndex(context.Background(), t.TempDir(), SimilarConfig{Embedder: embedder}, OracleConfig{}, logger)
		assert.Error(t, err, embedder)
	}
}

func TestClock(t *testing.T) {
	now, err := Clock("America/Sao_Paulo")
	require.NoError(t, err)
	assert.Equal(t, "America/Sao_Paulo", now().Location().String())

	_, err = Clock("Nowhere/Special")
	assert.Error(t, err)
}
