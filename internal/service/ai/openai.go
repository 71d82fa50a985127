package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig configures the OpenAI Responses API provider.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAIChatModel adapts the OpenAI Responses API to the eino ChatModel interface.
type OpenAIChatModel struct {
	client *openai.Client
	model  string
}

func NewOpenAIChatModel(cfg OpenAIConfig) (*OpenAIChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)
	return &OpenAIChatModel{client: &client, model: cfg.Model}, nil
}

// Generate implements model.BaseChatModel.
func (m *OpenAIChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	defaults := ParamsFor("")
	common := model.GetCommonOptions(&model.Options{
		Temperature: &defaults.Temperature,
		TopP:        &defaults.TopP,
		MaxTokens:   &defaults.MaxOutputTokens,
	}, opts...)

	var instructions, prompt []string
	for _, msg := range input {
		if msg == nil {
			continue
		}
		if msg.Role == schema.System {
			instructions = append(instructions, msg.Content)
			continue
		}
		prompt = append(prompt, msg.Content)
	}

	params := responses.ResponseNewParams{
		Model:           m.model,
		Temperature:     openai.Float(float64(*common.Temperature)),
		TopP:            openai.Float(float64(*common.TopP)),
		MaxOutputTokens: openai.Int(int64(*common.MaxTokens)),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(strings.Join(prompt, "\n\n")),
		},
	}
	if len(instructions) > 0 {
		params.Instructions = openai.String(strings.Join(instructions, "\n\n"))
	}

	resp, err := m.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses request failed: %w", err)
	}

	text := resp.OutputText()
	if strings.TrimSpace(text) == "" {
		return nil, ErrMalformedResponse
	}
	return schema.AssistantMessage(text, nil), nil
}

// Stream implements model.BaseChatModel with a single chunk.
func (m *OpenAIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools implements model.ChatModel; tool calling is not used.
func (m *OpenAIChatModel) BindTools(_ []*schema.ToolInfo) error {
	return errors.New("openai chat model: tool calling is not supported")
}
