package bots

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AubakirovArman/tomoru-sub000/internal/assistant"
	"github.com/AubakirovArman/tomoru-sub000/internal/models"
	"github.com/AubakirovArman/tomoru-sub000/internal/storage"
)

type fakeProvider struct {
	assistant.Provider

	createErr error
	created   []openai.AssistantRequest
	modified  []openai.AssistantRequest
	deleted   []string
}

func (f *fakeProvider) CreateAssistant(ctx context.Context, req openai.AssistantRequest) (openai.Assistant, error) {
	if f.createErr != nil {
		return openai.Assistant{}, f.createErr
	}
	f.created = append(f.created, req)
	return openai.Assistant{ID: "asst_1"}, nil
}

func (f *fakeProvider) ModifyAssistant(ctx context.Context, assistantID string, req openai.AssistantRequest) (openai.Assistant, error) {
	f.modified = append(f.modified, req)
	return openai.Assistant{ID: assistantID}, nil
}

func (f *fakeProvider) DeleteAssistant(ctx context.Context, assistantID string) (openai.AssistantDeleteResponse, error) {
	f.deleted = append(f.deleted, assistantID)
	return openai.AssistantDeleteResponse{ID: assistantID, Deleted: true}, nil
}

func newTestService(provider *fakeProvider) (*Service, storage.Storage) {
	store := storage.NewMemoryStorage()
	return NewService(store, provider, "gpt-4o", zap.NewNop()), store
}

func TestCreateProvisionsAssistant(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	svc, store := newTestService(provider)

	bot := &models.Bot{
		UserID:         1,
		Name:           "Support",
		Instructions:   "Answer questions about the product.",
		Personality:    "friendly",
		Specialization: "customer support",
	}
	require.NoError(t, svc.Create(ctx, bot))

	assert.Equal(t, "gpt-4o", bot.Model)
	assert.Equal(t, 1.0, bot.Temperature)
	assert.Equal(t, 1.0, bot.TopP)
	assert.Equal(t, "asst_1", bot.AssistantID)

	stored, err := store.GetBot(ctx, bot.ID)
	require.NoError(t, err)
	assert.Equal(t, "asst_1", stored.AssistantID)

	require.Len(t, provider.created, 1)
	req := provider.created[0]
	require.NotNil(t, req.Instructions)
	assert.Contains(t, *req.Instructions, "Answer questions about the product.")
	assert.Contains(t, *req.Instructions, "Personality: friendly")
	assert.Contains(t, *req.Instructions, "Specialization: customer support")
}

func TestCreateSurvivesProviderFailure(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{createErr: errors.New("provider down")}
	svc, store := newTestService(provider)

	bot := &models.Bot{UserID: 1, Name: "Support"}
	require.NoError(t, svc.Create(ctx, bot))

	// The bot exists locally, just unprovisioned.
	stored, err := store.GetBot(ctx, bot.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.AssistantID)
}

func TestUpdateRejectsForeignBot(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	svc, _ := newTestService(provider)

	bot := &models.Bot{UserID: 1, Name: "Support"}
	require.NoError(t, svc.Create(ctx, bot))

	update := *bot
	update.Name = "Hijacked"
	err := svc.Update(ctx, 2, &update)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdatePushesConfigToProvider(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	svc, _ := newTestService(provider)

	bot := &models.Bot{UserID: 1, Name: "Support", Instructions: "old"}
	require.NoError(t, svc.Create(ctx, bot))

	update := *bot
	update.Instructions = "new instructions"
	require.NoError(t, svc.Update(ctx, 1, &update))

	require.Len(t, provider.modified, 1)
	require.NotNil(t, provider.modified[0].Instructions)
	assert.Contains(t, *provider.modified[0].Instructions, "new instructions")
}

func TestDeleteRemovesProviderAssistant(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	svc, store := newTestService(provider)

	bot := &models.Bot{UserID: 1, Name: "Support"}
	require.NoError(t, svc.Create(ctx, bot))

	require.NoError(t, svc.Delete(ctx, bot.ID, 1))

	assert.Equal(t, []string{"asst_1"}, provider.deleted)
	_, err := store.GetBot(ctx, bot.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBindKnowledgeBaseSyncsFileSearch(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	svc, store := newTestService(provider)

	bot := &models.Bot{UserID: 1, Name: "Support"}
	require.NoError(t, svc.Create(ctx, bot))

	kb := &models.KnowledgeBase{UserID: 1, Name: "faq", VectorStoreID: "vs_1"}
	require.NoError(t, store.CreateKnowledgeBase(ctx, kb))

	require.NoError(t, svc.BindKnowledgeBase(ctx, 1, bot.ID, kb.ID))

	require.Len(t, provider.modified, 1)
	req := provider.modified[0]
	require.NotNil(t, req.ToolResources)
	require.NotNil(t, req.ToolResources.FileSearch)
	assert.Equal(t, []string{"vs_1"}, req.ToolResources.FileSearch.VectorStoreIDs)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, openai.AssistantToolTypeFileSearch, req.Tools[0].Type)

	// Unbinding drops the vector store from the assistant again.
	require.NoError(t, svc.UnbindKnowledgeBase(ctx, 1, bot.ID, kb.ID))
	require.Len(t, provider.modified, 2)
	assert.Nil(t, provider.modified[1].ToolResources)
}

func TestBindKnowledgeBaseRequiresOwnership(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	svc, store := newTestService(provider)

	bot := &models.Bot{UserID: 1, Name: "Support"}
	require.NoError(t, svc.Create(ctx, bot))

	kb := &models.KnowledgeBase{UserID: 2, Name: "faq", VectorStoreID: "vs_1"}
	require.NoError(t, store.CreateKnowledgeBase(ctx, kb))

	err := svc.BindKnowledgeBase(ctx, 1, bot.ID, kb.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
