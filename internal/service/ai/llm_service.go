package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/hopeflow/backend/internal/analysis/emotion"
	"github.com/hopeflow/backend/internal/config"
	"github.com/hopeflow/backend/internal/model/chat"
	"github.com/hopeflow/backend/internal/observability"
)

// ErrEmptyResponse means the model answered with nothing usable.
var ErrEmptyResponse = errors.New("generation API returned an empty response")

// Service encapsulates AI-powered reply generation.
type Service struct {
	provider string
	chain    compose.Runnable[map[string]any, *schema.Message]
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewService compiles the prompt -> model chain around chatModel.
func NewService(ctx context.Context, chatModel model.BaseChatModel, provider string, logger *zap.Logger, metrics *observability.Metrics) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.UserMessage("{prompt}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		provider: provider,
		chain:    runnable,
		logger:   logger.Named("ai"),
		metrics:  metrics,
	}, nil
}

// Provider reports the configured backend name.
func (s *Service) Provider() string {
	return s.provider
}

// Generate composes the prompt for message, calls the model with the tone's
// generation parameters and returns the post-processed reply.
func (s *Service) Generate(ctx context.Context, message string, tone emotion.Tone, recent []chat.Exchange) (string, error) {
	params := ParamsFor(tone)
	input := map[string]any{"prompt": Compose(message, tone, recent)}

	start := time.Now()
	response, err := s.chain.Invoke(ctx, input, params.chainOption())
	if err == nil && (response == nil || strings.TrimSpace(response.Content) == "") {
		err = ErrEmptyResponse
	}
	elapsed := time.Since(start)
	s.metrics.ObserveGeneration(s.provider, elapsed, err)

	if err != nil {
		s.logger.Error("generation failed",
			zap.String("provider", s.provider),
			zap.String("tone", string(tone)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}

	fields := []zap.Field{
		zap.String("provider", s.provider),
		zap.String("tone", string(tone)),
		zap.Duration("elapsed", elapsed),
		zap.Int("raw_length", len(response.Content)),
	}
	if meta := response.ResponseMeta; meta != nil && meta.Usage != nil {
		fields = append(fields, zap.Int("total_tokens", meta.Usage.TotalTokens))
	}
	s.logger.Debug("generated response", fields...)

	return Process(response.Content, tone), nil
}

// NewChatModel builds the provider selected in cfg.
func NewChatModel(ctx context.Context, cfg config.AIConfig) (model.BaseChatModel, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiChatModel(GeminiConfig{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
		})
	case config.ProviderArk:
		return cfg.Ark.NewChatModel(ctx)
	case config.ProviderOpenAI:
		return NewOpenAIChatModel(OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		})
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}
}
