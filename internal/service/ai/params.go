package ai

import (
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	"github.com/hopeflow/backend/internal/analysis/emotion"
)

// GenerationParams are the sampling parameters sent with one request.
type GenerationParams struct {
	Temperature     float32
	TopK            int
	TopP            float32
	MaxOutputTokens int
	CandidateCount  int
}

// SafetySetting is a content-safety threshold for one harm category.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// DefaultSafetySettings relaxes the dangerous-content threshold so that
// conversations about self-harm are not blocked outright.
var DefaultSafetySettings = []SafetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_ONLY_HIGH"},
}

const (
	defaultTopK           = 40
	defaultTopP           = float32(0.9)
	defaultCandidateCount = 1
)

// ParamsFor returns the generation parameters for a tone. Crisis replies run
// cooler and may be longer.
func ParamsFor(tone emotion.Tone) GenerationParams {
	params := GenerationParams{
		Temperature:     0.7,
		TopK:            defaultTopK,
		TopP:            defaultTopP,
		MaxOutputTokens: 200,
		CandidateCount:  defaultCandidateCount,
	}
	if tone == emotion.Crisis {
		params.Temperature = 0.3
		params.MaxOutputTokens = 300
	}
	return params
}

// modelOptions converts params into eino per-call options.
func (p GenerationParams) modelOptions() []model.Option {
	return []model.Option{
		model.WithTemperature(p.Temperature),
		model.WithTopP(p.TopP),
		model.WithMaxTokens(p.MaxOutputTokens),
	}
}

func (p GenerationParams) chainOption() compose.Option {
	return compose.WithChatModelOption(p.modelOptions()...)
}
