package agents

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/rs/zerolog"

	"github.com/dyike/CortexQuant/config"
)

// NewChatModel builds the configured chat model.
func NewChatModel(ctx context.Context, cfg *config.Config) (Generator, error) {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	switch cfg.LLMProvider {
	case config.ProviderDeepSeek:
		cm, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:    cfg.DeepSeekAPIKey,
			Model:     cfg.DeepThinkLLM,
			BaseURL:   cfg.BackendURL,
			MaxTokens: maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("deepseek chat model: %w", err)
		}
		return cm, nil
	case config.ProviderOpenAI:
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.DeepThinkLLM,
			BaseURL:   cfg.BackendURL,
			MaxTokens: &maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("openai chat model: %w", err)
		}
		return cm, nil
	default:
		return nil, fmt.Errorf("no chat model for provider %q", cfg.LLMProvider)
	}
}

// NewTeam builds the analysts for the configured provider. The heuristic
// provider needs no network access.
func NewTeam(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Team, error) {
	if cfg.LLMProvider == config.ProviderHeuristic {
		return NewHeuristicTeam(), nil
	}
	cm, err := NewChatModel(ctx, cfg)
	if err != nil {
		return Team{}, err
	}
	return NewLLMTeam(cm, log), nil
}
