package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1"
	DefaultGeminiModel   = "gemini-1.5-flash"
)

var (
	// ErrMissingAPIKey is a configuration error raised at construction.
	ErrMissingAPIKey = errors.New("generation API key is required but not configured")
	// ErrMalformedResponse means the API answered without a usable candidate.
	ErrMalformedResponse = errors.New("invalid response format from generation API")
)

// APIError is a non-success HTTP answer from the generation API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("generation API request failed: %d - %s", e.StatusCode, e.Body)
}

// GeminiConfig configures the Gemini generateContent client.
type GeminiConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	TopK           int
	CandidateCount int
	SafetySettings []SafetySetting
	HTTPClient     *http.Client
}

// GeminiChatModel adapts the Gemini REST generateContent endpoint to the eino
// ChatModel interface so it can sit in a compose chain.
type GeminiChatModel struct {
	cfg      GeminiConfig
	client   *http.Client
	endpoint string
}

// NewGeminiChatModel validates cfg and returns a ready model.
func NewGeminiChatModel(cfg GeminiConfig) (*GeminiChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.CandidateCount <= 0 {
		cfg.CandidateCount = defaultCandidateCount
	}
	if cfg.SafetySettings == nil {
		cfg.SafetySettings = DefaultSafetySettings
	}

	// No client timeout: callers bound the request through ctx.
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &GeminiChatModel{
		cfg:      cfg,
		client:   client,
		endpoint: fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(cfg.BaseURL, "/"), cfg.Model),
	}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float32 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	CandidateCount  int     `json:"candidateCount"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
	SafetySettings    []SafetySetting        `json:"safetySettings"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Generate implements model.BaseChatModel.
func (m *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	body, err := json.Marshal(m.buildRequest(input, opts...))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", m.cfg.APIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read generation response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	var decoded geminiResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return nil, ErrMalformedResponse
	}

	first := decoded.Candidates[0]
	msg := schema.AssistantMessage(first.Content.Parts[0].Text, nil)
	msg.ResponseMeta = &schema.ResponseMeta{FinishReason: first.FinishReason}
	if u := decoded.UsageMetadata; u != nil {
		msg.ResponseMeta.Usage = &schema.TokenUsage{
			PromptTokens:     u.PromptTokenCount,
			CompletionTokens: u.CandidatesTokenCount,
			TotalTokens:      u.TotalTokenCount,
		}
	}
	return msg, nil
}

// Stream implements model.BaseChatModel. generateContent is unary, so the
// whole reply arrives as a single chunk.
func (m *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools implements model.ChatModel; tool calling is not used.
func (m *GeminiChatModel) BindTools(_ []*schema.ToolInfo) error {
	return errors.New("gemini chat model: tool calling is not supported")
}

func (m *GeminiChatModel) buildRequest(input []*schema.Message, opts ...model.Option) geminiRequest {
	defaults := ParamsFor("")
	common := model.GetCommonOptions(&model.Options{
		Temperature: &defaults.Temperature,
		TopP:        &defaults.TopP,
		MaxTokens:   &defaults.MaxOutputTokens,
	}, opts...)

	req := geminiRequest{
		GenerationConfig: geminiGenerationConfig{
			Temperature:     *common.Temperature,
			TopK:            m.cfg.TopK,
			TopP:            *common.TopP,
			MaxOutputTokens: *common.MaxTokens,
			CandidateCount:  m.cfg.CandidateCount,
		},
		SafetySettings: m.cfg.SafetySettings,
	}

	var system []geminiPart
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			system = append(system, geminiPart{Text: msg.Content})
		case schema.Assistant:
			req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: msg.Content}}})
		default:
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: msg.Content}}})
		}
	}
	if len(system) > 0 {
		req.SystemInstruction = &geminiContent{Parts: system}
	}

	return req
}
