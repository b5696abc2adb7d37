package assistant

import (
	"context"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAssistantAPI struct {
	Provider

	mu       sync.Mutex
	existing []openai.Assistant
	created  int
	modified int
}

func (f *fakeAssistantAPI) ListAssistants(ctx context.Context, limit *int, order *string, after *string, before *string) (openai.AssistantsList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return openai.AssistantsList{Assistants: f.existing}, nil
}

func (f *fakeAssistantAPI) CreateAssistant(ctx context.Context, request openai.AssistantRequest) (openai.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return openai.Assistant{ID: "asst_created"}, nil
}

func (f *fakeAssistantAPI) ModifyAssistant(ctx context.Context, assistantID string, request openai.AssistantRequest) (openai.Assistant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modified++
	return openai.Assistant{ID: assistantID}, nil
}

func strptr(s string) *string { return &s }

func TestBuilderCacheCreatesOnce(t *testing.T) {
	fake := &fakeAssistantAPI{}
	cache := NewBuilderCache(fake, "Bot Builder", "gpt-4o", zap.NewNop())

	id, err := cache.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "asst_created", id)
	assert.Equal(t, 1, fake.created)

	// Second call hits the memoized id, not the provider.
	fake.existing = nil
	id, err = cache.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "asst_created", id)
	assert.Equal(t, 1, fake.created)
}

func TestBuilderCacheReusesMatchingAssistant(t *testing.T) {
	instructions := builderInstructions
	fake := &fakeAssistantAPI{existing: []openai.Assistant{
		{ID: "asst_other", Name: strptr("Someone Else")},
		{ID: "asst_builder", Name: strptr("Bot Builder"), Model: "gpt-4o", Instructions: &instructions},
	}}
	cache := NewBuilderCache(fake, "Bot Builder", "gpt-4o", zap.NewNop())

	id, err := cache.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "asst_builder", id)
	assert.Zero(t, fake.created)
	assert.Zero(t, fake.modified)
}

func TestBuilderCacheUpdatesDriftedAssistant(t *testing.T) {
	fake := &fakeAssistantAPI{existing: []openai.Assistant{
		{ID: "asst_builder", Name: strptr("Bot Builder"), Model: "gpt-3.5-turbo", Instructions: strptr("old prompt")},
	}}
	cache := NewBuilderCache(fake, "Bot Builder", "gpt-4o", zap.NewNop())

	id, err := cache.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "asst_builder", id)
	assert.Zero(t, fake.created)
	assert.Equal(t, 1, fake.modified)
}
