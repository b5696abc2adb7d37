package knowledge

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/AubakirovArman/tomoru-sub000/internal/assistant"
	"github.com/AubakirovArman/tomoru-sub000/internal/models"
	"github.com/AubakirovArman/tomoru-sub000/internal/storage"
)

// Service manages knowledge bases: a local row plus a provider-hosted
// vector store the assistants search through.
type Service struct {
	storage  storage.Storage
	provider assistant.Provider
	logger   *zap.Logger
}

func NewService(store storage.Storage, provider assistant.Provider, logger *zap.Logger) *Service {
	return &Service{storage: store, provider: provider, logger: logger}
}

// Create provisions the vector store first: a knowledge base without a
// store handle would be unusable, so unlike bots this is not best-effort.
func (s *Service) Create(ctx context.Context, userID int64, name string) (*models.KnowledgeBase, error) {
	store, err := s.provider.CreateVectorStore(ctx, openai.VectorStoreRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("%w: creating vector store: %v", assistant.ErrProviderUnavailable, err)
	}

	kb := &models.KnowledgeBase{
		UserID:        userID,
		Name:          name,
		VectorStoreID: store.ID,
	}
	if err := s.storage.CreateKnowledgeBase(ctx, kb); err != nil {
		return nil, fmt.Errorf("creating knowledge base: %w", err)
	}

	s.logger.Info("Created knowledge base",
		zap.Int64("kb_id", kb.ID),
		zap.String("vector_store_id", kb.VectorStoreID))
	return kb, nil
}

func (s *Service) Get(ctx context.Context, id, userID int64) (*models.KnowledgeBase, error) {
	return s.storage.GetKnowledgeBase(ctx, id, userID)
}

func (s *Service) List(ctx context.Context, userID int64) ([]*models.KnowledgeBase, error) {
	return s.storage.ListKnowledgeBases(ctx, userID)
}

// UploadFile pushes a document into the knowledge base: provider file
// with assistants purpose, then attached to the vector store.
func (s *Service) UploadFile(ctx context.Context, userID, kbID int64, fileName string, data []byte) error {
	kb, err := s.storage.GetKnowledgeBase(ctx, kbID, userID)
	if err != nil {
		return err
	}

	file, err := s.provider.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    fileName,
		Bytes:   data,
		Purpose: openai.PurposeAssistants,
	})
	if err != nil {
		return fmt.Errorf("%w: uploading file: %v", assistant.ErrProviderUnavailable, err)
	}

	if _, err := s.provider.CreateVectorStoreFile(ctx, kb.VectorStoreID, openai.VectorStoreFileRequest{
		FileID: file.ID,
	}); err != nil {
		return fmt.Errorf("%w: attaching file to vector store: %v", assistant.ErrProviderUnavailable, err)
	}

	s.logger.Info("Uploaded file to knowledge base",
		zap.Int64("kb_id", kb.ID),
		zap.String("file_id", file.ID),
		zap.String("file_name", fileName))
	return nil
}

// Delete removes the vector store best-effort and then the local row.
func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	kb, err := s.storage.GetKnowledgeBase(ctx, id, userID)
	if err != nil {
		return err
	}

	if kb.VectorStoreID != "" {
		if _, err := s.provider.DeleteVectorStore(ctx, kb.VectorStoreID); err != nil {
			s.logger.Warn("Failed to delete vector store, continuing with local delete",
				zap.Error(err),
				zap.Int64("kb_id", kb.ID),
				zap.String("vector_store_id", kb.VectorStoreID))
		}
	}

	return s.storage.DeleteKnowledgeBase(ctx, id, userID)
}
