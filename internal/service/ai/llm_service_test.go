package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/hopeflow/backend/internal/analysis/emotion"
)

type stubChatModel struct {
	reply   string
	err     error
	prompts []string
	options *model.Options
}

func (s *stubChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	for _, msg := range input {
		s.prompts = append(s.prompts, msg.Content)
	}
	s.options = model.GetCommonOptions(&model.Options{}, opts...)
	if s.err != nil {
		return nil, s.err
	}
	return schema.AssistantMessage(s.reply, nil), nil
}

func (s *stubChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := s.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func TestServiceGenerateProcessesReply(t *testing.T) {
	stub := &stubChatModel{reply: "HopeFlow: That sounds really heavy"}
	svc, err := NewService(context.Background(), stub, "stub", nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	got, err := svc.Generate(context.Background(), "I feel so alone", emotion.Depressed, exchanges(1))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "That sounds really heavy." {
		t.Fatalf("unexpected reply %q", got)
	}

	if len(stub.prompts) != 1 {
		t.Fatalf("expected a single prompt message, got %d", len(stub.prompts))
	}
	if !strings.Contains(stub.prompts[0], `USER'S CURRENT MESSAGE: "I feel so alone"`) {
		t.Fatalf("prompt missing user message")
	}
	if stub.options.Temperature == nil || *stub.options.Temperature != 0.7 {
		t.Fatalf("expected temperature 0.7")
	}
	if stub.options.MaxTokens == nil || *stub.options.MaxTokens != 200 {
		t.Fatalf("expected 200 max tokens")
	}
}

func TestServiceGenerateCrisisParameters(t *testing.T) {
	stub := &stubChatModel{reply: "You deserve support right now"}
	svc, _ := NewService(context.Background(), stub, "stub", nil, nil)

	got, err := svc.Generate(context.Background(), "I want to end my life", emotion.Crisis, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(got, PrimaryHelpline) {
		t.Fatalf("expected helpline in reply %q", got)
	}
	if *stub.options.Temperature != 0.3 || *stub.options.MaxTokens != 300 {
		t.Fatalf("expected crisis parameters, got temp=%v max=%v", *stub.options.Temperature, *stub.options.MaxTokens)
	}
}

func TestServiceGenerateWrapsErrors(t *testing.T) {
	upstream := &APIError{StatusCode: 500, Body: "boom"}
	svc, _ := NewService(context.Background(), &stubChatModel{err: upstream}, "stub", nil, nil)

	_, err := svc.Generate(context.Background(), "hello", emotion.Neutral, nil)

	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected upstream failure to surface, got %v", err)
	}
}

func TestServiceGenerateRejectsEmptyReply(t *testing.T) {
	svc, _ := NewService(context.Background(), &stubChatModel{reply: "   "}, "stub", nil, nil)

	_, err := svc.Generate(context.Background(), "hello", emotion.Neutral, nil)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}
