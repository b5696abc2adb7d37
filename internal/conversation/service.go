package conversation

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AubakirovArman/tomoru-sub000/internal/assistant"
	"github.com/AubakirovArman/tomoru-sub000/internal/models"
	"github.com/AubakirovArman/tomoru-sub000/internal/quickreply"
	"github.com/AubakirovArman/tomoru-sub000/internal/storage"
)

// TurnRunner drives one run cycle against the provider.
type TurnRunner interface {
	RunTurn(ctx context.Context, req assistant.TurnRequest) assistant.TurnResult
}

// ThreadEnsurer hands out provider thread handles.
type ThreadEnsurer interface {
	Ensure(ctx context.Context, existing string) (string, error)
}

// Inbound is the channel-neutral contract adapters translate into. The
// adapter has already resolved the bot and the end user; ownership and
// credential checks happen before the core is invoked.
type Inbound struct {
	Bot               *models.Bot
	EndUser           *models.EndUser
	Text              string
	ProviderMessageID string
}

// Outcome is what the adapter delivers back to the channel.
type Outcome struct {
	Reply      string
	ThreadID   string
	QuickReply bool
}

// Service runs the conversation turn pipeline: persist the user side,
// try the quick-reply short circuit, otherwise delegate to the run
// orchestrator, and hand the reply back for delivery.
type Service struct {
	storage storage.Storage
	threads ThreadEnsurer
	runner  TurnRunner
	logger  *zap.Logger
}

func NewService(store storage.Storage, threads ThreadEnsurer, runner TurnRunner, logger *zap.Logger) *Service {
	return &Service{
		storage: store,
		threads: threads,
		runner:  runner,
		logger:  logger,
	}
}

// HandleInbound executes one turn and always produces a non-empty reply
// for chat channels. The USER message is persisted strictly before the
// BOT message: the adapter calls SaveOutbound after delivery, with the
// provider-native id of the sent message.
func (s *Service) HandleInbound(ctx context.Context, in Inbound) Outcome {
	replies, err := s.storage.GetQuickReplies(ctx, in.Bot.ID)
	if err != nil {
		s.logger.Error("Failed to load quick replies",
			zap.Error(err),
			zap.Int64("bot_id", in.Bot.ID))
		replies = nil
	}

	if answer, ok := quickreply.Match(replies, in.Text); ok {
		if err := s.saveMessage(ctx, in, models.DirectionUser, in.Text, in.ProviderMessageID, ""); err != nil {
			return Outcome{Reply: assistant.FallbackReply, QuickReply: true}
		}
		return Outcome{Reply: answer, QuickReply: true}
	}

	// A fresh provider thread per webhook turn; see ThreadManager for
	// the reuse seam.
	threadID, err := s.threads.Ensure(ctx, "")
	if err != nil {
		s.logger.Error("Failed to ensure thread",
			zap.Error(err),
			zap.Int64("bot_id", in.Bot.ID))
		if saveErr := s.saveMessage(ctx, in, models.DirectionUser, in.Text, in.ProviderMessageID, ""); saveErr != nil {
			s.logger.Error("Failed to save inbound message", zap.Error(saveErr), zap.Int64("bot_id", in.Bot.ID))
		}
		return Outcome{Reply: assistant.FallbackReply}
	}

	if err := s.saveMessage(ctx, in, models.DirectionUser, in.Text, in.ProviderMessageID, threadID); err != nil {
		return Outcome{Reply: assistant.FallbackReply, ThreadID: threadID}
	}

	result := s.runner.RunTurn(ctx, assistant.TurnRequest{
		ThreadID:    threadID,
		AssistantID: in.Bot.AssistantID,
		Text:        in.Text,
		Mode:        assistant.ModeChat,
	})

	return Outcome{Reply: result.Reply, ThreadID: result.ThreadID}
}

// SaveOutbound persists the bot side of a completed turn. Called by the
// adapter once delivery succeeded, so the record can carry the
// provider-native sent-message id.
func (s *Service) SaveOutbound(ctx context.Context, in Inbound, reply, threadID, providerMessageID string) {
	if err := s.saveMessage(ctx, in, models.DirectionBot, reply, providerMessageID, threadID); err != nil {
		s.logger.Error("Failed to save outbound message",
			zap.Error(err),
			zap.Int64("bot_id", in.Bot.ID))
	}
}

func (s *Service) saveMessage(ctx context.Context, in Inbound, direction models.Direction, content, providerMessageID, threadID string) error {
	var endUserID int64
	if in.EndUser != nil {
		endUserID = in.EndUser.ID
	}

	msg := &models.Message{
		ID:                uuid.New().String(),
		BotID:             in.Bot.ID,
		EndUserID:         endUserID,
		Content:           content,
		Direction:         direction,
		ProviderMessageID: providerMessageID,
		ThreadID:          threadID,
	}

	if err := s.storage.SaveMessage(ctx, msg); err != nil {
		s.logger.Error("Failed to save message",
			zap.Error(err),
			zap.String("message_id", msg.ID),
			zap.Int64("bot_id", in.Bot.ID),
			zap.String("direction", string(direction)))
		return err
	}
	return nil
}
