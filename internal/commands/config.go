package commands

// CommonConfig contains configuration common to all commands
type CommonConfig struct {
	// DataDir is the path to the data directory
	DataDir string `help:"Path to data directory" default:"./data" env:"STATEMENT_DATA_DIR"`
	// Owner scopes rules, categories, accounts and ledger entries
	Owner string `help:"Owner of rules, categories, accounts and ledger entries" default:"default" env:"STATEMENT_OWNER"`
	// Timezone is used to infer the year of dates without one
	Timezone string `help:"Timezone used to infer missing statement years" default:"America/Sao_Paulo" env:"STATEMENT_TIMEZONE"`
	// LogLevel is the logging level to use
	LogLevel string `help:"Log level (debug, info, warn, error)" default:"warn" enum:"debug,info,warn,error"`
}

// OracleConfig contains flag definitions for the category suggestion oracle
type OracleConfig struct {
	// Provider is the suggestion provider to use, none disables suggestions
	Provider string `help:"Category suggestion provider" default:"none" enum:"none,openai,openrouter,gemini" env:"SUGGEST_PROVIDER" name:"suggest-provider"`
	// OpenAIKey is the API key for OpenAI-compatible endpoints
	OpenAIKey string `help:"OpenAI API key" env:"OPENAI_API_KEY"`
	// OpenAIModel is the chat model used with the openai provider
	OpenAIModel string `help:"OpenAI chat model" default:"gpt-4o-mini" env:"OPENAI_MODEL"`
	// OpenAIBaseURL overrides the OpenAI endpoint, e.g. for a local server
	OpenAIBaseURL string `help:"OpenAI-compatible base URL" env:"OPENAI_BASE_URL"`
	// OpenRouterKey is the API key for OpenRouter
	OpenRouterKey string `help:"OpenRouter API key" env:"OPENROUTER_API_KEY"`
	// OpenRouterModel is the model used with the openrouter provider
	OpenRouterModel string `help:"OpenRouter model" default:"google/gemini-2.5-flash-preview" env:"OPENROUTER_MODEL"`
	// GeminiAPIKey is the API key for Gemini
	GeminiAPIKey string `help:"Google Gemini API key" env:"GEMINI_API_KEY"`
	// GeminiModel is the model used with the gemini provider
	GeminiModel string `help:"Gemini model" env:"GEMINI_MODEL"`
	// MaxSuggestions caps the transactions sent per suggestion request
	MaxSuggestions int `help:"Maximum transactions sent to the suggestion provider" default:"50"`
}

// SimilarConfig contains flag definitions for similar-transaction hints
type SimilarConfig struct {
	// Embedder is the embedding backend, ngram works offline
	Embedder string `help:"Embedding backend for similar-transaction hints" default:"ngram" enum:"none,ngram,openai,gemini" env:"SIMILAR_EMBEDDER"`
	// EmbeddingModel is the remote embedding model
	EmbeddingModel string `help:"Embedding model for the openai and gemini backends" env:"SIMILAR_EMBEDDING_MODEL"`
	// Threshold is the minimum similarity for a hint
	Threshold float32 `help:"Minimum similarity (0.0-1.0) for a hint" default:"0.8"`
}
