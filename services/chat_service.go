package services

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"wanderwise/models"
	"wanderwise/store"
	apierrors "wanderwise/utils/errors"
)

// Greeting opens every transcript.
const Greeting = "Hi! How can I help you today?"

// ChatService runs the per-trip assistant conversation.
type ChatService struct {
	store  store.Store
	model  LanguageModel
	logger *zap.Logger
	now    func() time.Time
}

func NewChatService(s store.Store, model LanguageModel, logger *zap.Logger) *ChatService {
	return &ChatService{store: s, model: model, logger: logger, now: time.Now}
}

// History returns the transcript of the addressed trip. An empty transcript
// is seeded with the greeting exactly once, even under concurrent reads.
func (s *ChatService) History(ctx context.Context, email, tripID string) ([]models.Turn, error) {
	_, turns, err := s.Open(ctx, email, tripID)
	return turns, err
}

// Open resolves the addressed trip (the active one when tripID is empty) and
// returns its id with the transcript. Long-lived sessions send to that id so
// a trip planned later does not capture their messages.
func (s *ChatService) Open(ctx context.Context, email, tripID string) (string, []models.Turn, error) {
	user, trip, err := resolveTrip(ctx, s.store, email, tripID)
	if err != nil {
		return "", nil, err
	}
	if len(trip.ChatHistory) > 0 {
		return trip.ID, trip.ChatHistory, nil
	}

	greeting := models.Turn{Role: models.RoleAssistant, Message: Greeting, Timestamp: s.now().UTC()}
	pushed, err := s.store.InitChatHistory(ctx, user.ID, trip.ID, greeting)
	if err != nil {
		return "", nil, apierrors.Persistence(err)
	}
	if pushed {
		return trip.ID, []models.Turn{greeting}, nil
	}

	// Another reader seeded it first.
	_, trip, err = resolveTrip(ctx, s.store, email, trip.ID)
	if err != nil {
		return "", nil, err
	}
	return trip.ID, trip.ChatHistory, nil
}

// Send forwards text to the model with the trip's prior turns as context and
// stores the exchange. Either both turns are stored or neither is.
func (s *ChatService) Send(ctx context.Context, email, tripID, text string) (string, error) {
	ctx, span := tracer.Start(ctx, "ChatService.Send")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return "", apierrors.Validation("Message is required")
	}
	user, trip, err := resolveTrip(ctx, s.store, email, tripID)
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String("trip.id", trip.ID), attribute.Int("chat.turns", len(trip.ChatHistory)))

	sentAt := s.now().UTC()
	reply, err := s.model.Complete(ctx, CompletionRequest{
		History: modelHistory(trip.ChatHistory),
		Prompt:  text,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model call failed")
		return "", apierrors.Upstream(err, "language model")
	}

	err = s.store.AppendTurns(ctx, user.ID, trip.ID,
		models.Turn{Role: models.RoleUser, Message: text, Timestamp: sentAt},
		models.Turn{Role: models.RoleAssistant, Message: reply, Timestamp: s.now().UTC()},
	)
	if err != nil {
		span.RecordError(err)
		return "", apierrors.Persistence(err)
	}
	return reply, nil
}

// modelHistory converts stored turns to the model's roles. Conversations sent
// to the model must open with a user turn, so a leading greeting is dropped.
func modelHistory(turns []models.Turn) []Message {
	turns = lo.DropWhile(turns, func(t models.Turn) bool {
		return t.Role == models.RoleAssistant
	})
	return lo.Map(turns, func(t models.Turn, _ int) Message {
		role := ModelRoleUser
		if t.Role == models.RoleAssistant {
			role = ModelRoleModel
		}
		return Message{Role: role, Text: t.Message}
	})
}
