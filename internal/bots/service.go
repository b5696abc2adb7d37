package bots

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/AubakirovArman/tomoru-sub000/internal/assistant"
	"github.com/AubakirovArman/tomoru-sub000/internal/models"
	"github.com/AubakirovArman/tomoru-sub000/internal/storage"
)

// Service owns the bot lifecycle: local persistence plus provisioning of
// the provider-side assistant. The provider handle is a weak reference:
// provider failures never block local deletes, and a bot can exist
// unprovisioned until the provider is reachable again.
type Service struct {
	storage      storage.Storage
	provider     assistant.Provider
	defaultModel string
	logger       *zap.Logger
}

func NewService(store storage.Storage, provider assistant.Provider, defaultModel string, logger *zap.Logger) *Service {
	return &Service{
		storage:      store,
		provider:     provider,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// Create persists the bot and provisions its assistant. Provisioning is
// best-effort: on provider failure the bot stays unprovisioned and the
// assistant id is filled in by a later update.
func (s *Service) Create(ctx context.Context, bot *models.Bot) error {
	if bot.Model == "" {
		bot.Model = s.defaultModel
	}
	if bot.Temperature == 0 {
		bot.Temperature = 1.0
	}
	if bot.TopP == 0 {
		bot.TopP = 1.0
	}

	if err := s.storage.CreateBot(ctx, bot); err != nil {
		return fmt.Errorf("creating bot: %w", err)
	}

	created, err := s.provider.CreateAssistant(ctx, s.assistantRequest(bot, nil))
	if err != nil {
		s.logger.Error("Failed to provision assistant, bot stays unprovisioned",
			zap.Error(err),
			zap.Int64("bot_id", bot.ID))
		return nil
	}

	bot.AssistantID = created.ID
	if err := s.storage.UpdateBot(ctx, bot); err != nil {
		return fmt.Errorf("saving assistant id: %w", err)
	}

	s.logger.Info("Provisioned assistant",
		zap.Int64("bot_id", bot.ID),
		zap.String("assistant_id", bot.AssistantID))
	return nil
}

func (s *Service) Get(ctx context.Context, id, userID int64) (*models.Bot, error) {
	return s.storage.GetBotByOwner(ctx, id, userID)
}

func (s *Service) List(ctx context.Context, userID int64) ([]*models.Bot, error) {
	return s.storage.ListBots(ctx, userID)
}

// Update persists the new configuration and pushes it to the provider
// when the bot is provisioned.
func (s *Service) Update(ctx context.Context, userID int64, bot *models.Bot) error {
	existing, err := s.storage.GetBotByOwner(ctx, bot.ID, userID)
	if err != nil {
		return err
	}
	bot.UserID = existing.UserID
	if bot.AssistantID == "" {
		bot.AssistantID = existing.AssistantID
	}

	if err := s.storage.UpdateBot(ctx, bot); err != nil {
		return fmt.Errorf("updating bot: %w", err)
	}

	if bot.AssistantID == "" {
		return nil
	}

	vectorStoreIDs, err := s.boundVectorStores(ctx, bot.ID)
	if err != nil {
		return err
	}
	if _, err := s.provider.ModifyAssistant(ctx, bot.AssistantID, s.assistantRequest(bot, vectorStoreIDs)); err != nil {
		s.logger.Error("Failed to push config to provider",
			zap.Error(err),
			zap.Int64("bot_id", bot.ID),
			zap.String("assistant_id", bot.AssistantID))
		return fmt.Errorf("%w: updating assistant: %v", assistant.ErrProviderUnavailable, err)
	}

	return nil
}

// Delete removes the provider assistant best-effort and then deletes the
// bot locally, cascading to messages, quick replies and KB bindings.
func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	bot, err := s.storage.GetBotByOwner(ctx, id, userID)
	if err != nil {
		return err
	}

	if bot.AssistantID != "" {
		if _, err := s.provider.DeleteAssistant(ctx, bot.AssistantID); err != nil {
			s.logger.Warn("Failed to delete provider assistant, continuing with local delete",
				zap.Error(err),
				zap.Int64("bot_id", bot.ID),
				zap.String("assistant_id", bot.AssistantID))
		}
	}

	return s.storage.DeleteBot(ctx, id)
}

// BindKnowledgeBase attaches a knowledge base and re-syncs the
// assistant's file-search resources.
func (s *Service) BindKnowledgeBase(ctx context.Context, userID, botID, kbID int64) error {
	bot, err := s.storage.GetBotByOwner(ctx, botID, userID)
	if err != nil {
		return err
	}
	if _, err := s.storage.GetKnowledgeBase(ctx, kbID, userID); err != nil {
		return err
	}
	if err := s.storage.BindKnowledgeBase(ctx, botID, kbID); err != nil {
		return err
	}
	return s.syncKnowledge(ctx, bot)
}

func (s *Service) UnbindKnowledgeBase(ctx context.Context, userID, botID, kbID int64) error {
	bot, err := s.storage.GetBotByOwner(ctx, botID, userID)
	if err != nil {
		return err
	}
	if err := s.storage.UnbindKnowledgeBase(ctx, botID, kbID); err != nil {
		return err
	}
	return s.syncKnowledge(ctx, bot)
}

func (s *Service) syncKnowledge(ctx context.Context, bot *models.Bot) error {
	if bot.AssistantID == "" {
		return nil
	}
	vectorStoreIDs, err := s.boundVectorStores(ctx, bot.ID)
	if err != nil {
		return err
	}
	if _, err := s.provider.ModifyAssistant(ctx, bot.AssistantID, s.assistantRequest(bot, vectorStoreIDs)); err != nil {
		return fmt.Errorf("%w: syncing knowledge bases: %v", assistant.ErrProviderUnavailable, err)
	}
	return nil
}

func (s *Service) boundVectorStores(ctx context.Context, botID int64) ([]string, error) {
	kbs, err := s.storage.GetBotKnowledgeBases(ctx, botID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, kb := range kbs {
		if kb.VectorStoreID != "" {
			ids = append(ids, kb.VectorStoreID)
		}
	}
	return ids, nil
}

func (s *Service) assistantRequest(bot *models.Bot, vectorStoreIDs []string) openai.AssistantRequest {
	name := bot.Name
	description := bot.Description
	instructions := assemblePrompt(bot)
	temperature := float32(bot.Temperature)
	topP := float32(bot.TopP)

	req := openai.AssistantRequest{
		Model:        bot.Model,
		Name:         &name,
		Description:  &description,
		Instructions: &instructions,
		Temperature:  &temperature,
		TopP:         &topP,
	}

	if len(vectorStoreIDs) > 0 {
		req.Tools = []openai.AssistantTool{{Type: openai.AssistantToolTypeFileSearch}}
		req.ToolResources = &openai.AssistantToolResource{
			FileSearch: &openai.AssistantToolFileSearch{VectorStoreIDs: vectorStoreIDs},
		}
	}

	return req
}

func assemblePrompt(bot *models.Bot) string {
	parts := []string{bot.Instructions}
	if bot.Personality != "" {
		parts = append(parts, "Personality: "+bot.Personality)
	}
	if bot.Specialization != "" {
		parts = append(parts, "Specialization: "+bot.Specialization)
	}
	return strings.Join(parts, "\n\n")
}
