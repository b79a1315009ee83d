package pipeline

import (
	"context"
	"log/slog"

	"github.com/litreview/conceptgraph/helper"
)

// ProviderConfig names one backing model the caller wants wired in, as
// a plain struct rather than a flag-driven loader.
type ProviderConfig struct {
	Name   string // "anthropic", "openai", or "gemini"
	APIKey string
	Model  string
}

// Config is the plain struct the caller populates (from env vars,
// flags, or a config file of their own choosing) to build the pipeline
// services. RequestsPerMinute feeds LLMService's rate limiter.
type Config struct {
	LLMProviders       []ProviderConfig
	EmbeddingProviders []ProviderConfig
	RequestsPerMinute  int
	EnableLexicalGraph bool
}

// BuildLLMService constructs an LLMService falling over providers in
// the order given, skipping any provider the Gemini SDK fails to
// initialize rather than aborting the whole build.
func BuildLLMService(ctx context.Context, log *slog.Logger, cfg Config) *LLMService {
	var providers []LLMProvider
	for _, p := range cfg.LLMProviders {
		switch p.Name {
		case "anthropic":
			providers = append(providers, NewAnthropicProvider(p.APIKey, p.Model))
		case "openai":
			providers = append(providers, NewOpenAIProvider(p.APIKey, p.Model))
		case "gemini":
			provider, err := NewGeminiProvider(ctx, p.APIKey, p.Model)
			if err != nil {
				log.Warn("gemini provider unavailable, skipping", "error", err)
				continue
			}
			providers = append(providers, provider)
		}
	}
	return NewLLMService(log, cfg.RequestsPerMinute, providers...)
}

// BuildEmbeddingService constructs an EmbeddingService the same way. It
// uses the local hugot/MiniLM embedder only when no remote embedding
// provider is configured (or every configured one failed to
// initialize); the local embedder is not added behind remote providers.
func BuildEmbeddingService(log *slog.Logger, cfg Config) (*EmbeddingService, error) {
	var providers []EmbeddingProvider
	for _, p := range cfg.EmbeddingProviders {
		switch p.Name {
		case "openai":
			providers = append(providers, NewOpenAIProvider(p.APIKey, p.Model))
		case "gemini":
			provider, err := NewGeminiProvider(context.Background(), p.APIKey, p.Model)
			if err != nil {
				log.Warn("gemini embedding provider unavailable, skipping", "error", err)
				continue
			}
			providers = append(providers, provider)
		}
	}

	if len(providers) == 0 {
		local, err := NewLocalEmbedder()
		if err != nil {
			return nil, helper.NewError("build local embedder", err)
		}
		providers = append(providers, local)
	}

	return NewEmbeddingService(log, providers...), nil
}
