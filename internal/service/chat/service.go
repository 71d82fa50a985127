package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hopeflow/backend/internal/analysis/emotion"
	"github.com/hopeflow/backend/internal/model/chat"
	"github.com/hopeflow/backend/internal/model/profile"
	"github.com/hopeflow/backend/internal/observability"
	"github.com/hopeflow/backend/internal/service/ai"
	"github.com/hopeflow/backend/internal/service/conversation"
	"github.com/hopeflow/backend/internal/store/chatlog"
)

// FallbackResponse is shown when no reply could be generated.
const FallbackResponse = "I'm sorry, I'm having trouble responding right now. Please try again, or if this is an emergency, please call 112 or the mental health helpline at 1800-599-0019."

var (
	ErrMessageRequired = errors.New("message is required")
	ErrUserRequired    = errors.New("user id is required")
	ErrRecordNotFound  = errors.New("chat record not found")
)

// Generator produces a cleaned reply for one user message.
type Generator interface {
	Generate(ctx context.Context, message string, tone emotion.Tone, recent []chat.Exchange) (string, error)
}

// Reply is the outcome of one exchange.
type Reply struct {
	Response    string              `json:"response"`
	Tone        emotion.Tone        `json:"tone"`
	SupportType emotion.SupportType `json:"supportType"`
	Fallback    bool                `json:"fallback"`
	Saved       bool                `json:"saved"`
	RecordID    string              `json:"recordId,omitempty"`
}

// State is a snapshot of a user's conversation for the talk page.
type State struct {
	Active   bool                  `json:"active"`
	History  []chat.Exchange       `json:"history"`
	Insights conversation.Insights `json:"insights"`
	Greeting string                `json:"greeting"`
	Tone     emotion.Tone          `json:"tone"`
}

// Service runs exchanges: classify, generate, remember, persist.
type Service struct {
	generator     Generator
	conversations *conversation.Manager
	store         chatlog.Store
	logger        *zap.Logger
	metrics       *observability.Metrics
}

func NewService(generator Generator, conversations *conversation.Manager, store chatlog.Store, logger *zap.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		generator:     generator,
		conversations: conversations,
		store:         store,
		logger:        logger.Named("chat"),
		metrics:       metrics,
	}
}

// StoreKind reports the persistence backend in use.
func (s *Service) StoreKind() string {
	return s.store.Kind()
}

// Classify returns the tone and support type for message without side effects.
func (s *Service) Classify(message string) (emotion.Tone, emotion.SupportType) {
	tone := emotion.Classify(message)
	return tone, emotion.SupportTypeFor(tone)
}

// Talk runs one exchange for userID. A generation failure is not an error:
// the reply carries the fallback apology and the context is left untouched.
// Persistence failures are logged and reported through Reply.Saved.
func (s *Service) Talk(ctx context.Context, userID, message string, isVoice bool) (Reply, error) {
	if strings.TrimSpace(userID) == "" {
		return Reply{}, ErrUserRequired
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrMessageRequired
	}

	tone, support := s.Classify(message)
	conv := s.conversations.Get(userID)

	var recent []chat.Exchange
	if conv.IsActive() {
		recent = conv.Recent(ai.PromptHistoryLimit)
	}

	response, err := s.generator.Generate(ctx, message, tone, recent)
	if err != nil {
		s.logger.Warn("falling back after generation failure",
			zap.String("user_id", userID),
			zap.String("tone", string(tone)),
			zap.Error(err))
		s.metrics.ObserveExchange(string(tone), "fallback")
		return Reply{
			Response:    FallbackResponse,
			Tone:        tone,
			SupportType: support,
			Fallback:    true,
		}, nil
	}

	conv.RecordExchange(message, response, tone)
	s.metrics.ObserveExchange(string(tone), "ok")

	reply := Reply{Response: response, Tone: tone, SupportType: support}

	// the reply is already generated; a client disconnect must not drop the save
	rec, err := s.store.SaveMessage(context.WithoutCancel(ctx), userID, message, response, isVoice)
	if err != nil {
		s.logger.Warn("failed to persist exchange",
			zap.String("user_id", userID),
			zap.String("store", s.store.Kind()),
			zap.Error(err))
		s.metrics.ObservePersistenceFailure("save_message")
		return reply, nil
	}

	reply.Saved = true
	reply.RecordID = rec.ID
	return reply, nil
}

// Reset clears the user's context.
func (s *Service) Reset(userID string) {
	s.conversations.Reset(userID)
	s.metrics.ObserveReset("manual")
}

// Activity extends the user's expiry window.
func (s *Service) Activity(userID string) {
	s.conversations.Get(userID).Touch()
}

// State returns the talk page snapshot for userID.
func (s *Service) State(userID string) State {
	conv := s.conversations.Get(userID)
	return State{
		Active:   conv.IsActive(),
		History:  conv.History(),
		Insights: conv.Insights(),
		Greeting: conv.Greeting(),
		Tone:     conv.LastTone(),
	}
}

// History lists saved exchanges newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]chat.Record, error) {
	records, err := s.store.ListMessages(ctx, userID, limit)
	if err != nil {
		return nil, s.storeError("list chat history", err)
	}
	return records, nil
}

// DeleteHistory removes one saved exchange owned by userID.
func (s *Service) DeleteHistory(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteMessage(ctx, userID, id); err != nil {
		if errors.Is(err, chatlog.ErrNotFound) {
			return ErrRecordNotFound
		}
		s.metrics.ObservePersistenceFailure("delete_message")
		return s.storeError("delete chat record", err)
	}
	return nil
}

// Profile returns the stored profile, or a minimal one built from the
// authenticated identity when nothing has been saved yet.
func (s *Service) Profile(ctx context.Context, userID, email string) (profile.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, chatlog.ErrNotFound) {
		return profile.Profile{ID: userID, Email: email}, nil
	}
	if err != nil {
		return profile.Profile{}, s.storeError("get profile", err)
	}
	return p, nil
}

// UpdateProfile applies update to the user's profile.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update profile.Update) (profile.Profile, error) {
	p, err := s.store.UpdateProfile(ctx, userID, update)
	if err != nil {
		s.metrics.ObservePersistenceFailure("update_profile")
		return profile.Profile{}, s.storeError("update profile", err)
	}
	return p, nil
}

func (s *Service) storeError(op string, err error) error {
	if errors.Is(err, chatlog.ErrUnauthenticated) {
		return ErrUserRequired
	}
	return fmt.Errorf("%s: %w", op, err)
}
