package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AubakirovArman/tomoru-sub000/internal/models"
)

func newBot(userID int64, name string) *models.Bot {
	return &models.Bot{UserID: userID, Name: name, Instructions: "be helpful"}
}

func TestMemoryStorageBotOwnership(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	bot := newBot(1, "support")
	require.NoError(t, store.CreateBot(ctx, bot))
	require.NotZero(t, bot.ID)

	got, err := store.GetBotByOwner(ctx, bot.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "support", got.Name)

	_, err = store.GetBotByOwner(ctx, bot.ID, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	other := newBot(2, "sales")
	require.NoError(t, store.CreateBot(ctx, other))

	mine, err := store.ListBots(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, bot.ID, mine[0].ID)
}

func TestMemoryStorageGatewayKeyLookup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	bot := newBot(1, "crm")
	bot.GatewayAPIKey = "key-123"
	require.NoError(t, store.CreateBot(ctx, bot))

	got, err := store.GetBotByGatewayKey(ctx, "key-123")
	require.NoError(t, err)
	assert.Equal(t, bot.ID, got.ID)

	_, err = store.GetBotByGatewayKey(ctx, "wrong")
	assert.ErrorIs(t, err, ErrNotFound)

	// An empty key must never match a bot without one.
	_, err = store.GetBotByGatewayKey(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorageMessageOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	bot := newBot(1, "support")
	require.NoError(t, store.CreateBot(ctx, bot))

	for _, text := range []string{"first", "second", "third"} {
		msg := &models.Message{
			ID:        uuid.New().String(),
			BotID:     bot.ID,
			Direction: models.DirectionUser,
			Content:   text,
		}
		require.NoError(t, store.SaveMessage(ctx, msg))
	}

	messages, err := store.GetBotMessages(ctx, bot.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "third", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)

	rest, err := store.GetBotMessages(ctx, bot.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "first", rest[0].Content)

	none, err := store.GetBotMessages(ctx, bot.ID, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStorageDeleteBotCascades(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	bot := newBot(1, "support")
	require.NoError(t, store.CreateBot(ctx, bot))

	require.NoError(t, store.SaveMessage(ctx, &models.Message{
		ID:        uuid.New().String(),
		BotID:     bot.ID,
		Direction: models.DirectionUser,
		Content:   "hello",
	}))
	require.NoError(t, store.CreateQuickReply(ctx, &models.QuickReply{
		BotID:    bot.ID,
		Question: "hours",
		Answer:   "9 to 5",
	}))

	require.NoError(t, store.DeleteBot(ctx, bot.ID))

	messages, err := store.GetBotMessages(ctx, bot.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)

	replies, err := store.GetQuickReplies(ctx, bot.ID)
	require.NoError(t, err)
	assert.Empty(t, replies)

	assert.ErrorIs(t, store.DeleteBot(ctx, bot.ID), ErrNotFound)
}

func TestMemoryStorageFindOrCreateEndUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	first, err := store.FindOrCreateEndUser(ctx, &models.EndUser{
		Platform:   models.PlatformTelegram,
		PlatformID: "42",
		FirstName:  "Ivan",
	})
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	// Same platform identity comes back with the same id and fresh profile fields.
	second, err := store.FindOrCreateEndUser(ctx, &models.EndUser{
		Platform:   models.PlatformTelegram,
		PlatformID: "42",
		FirstName:  "Ivan",
		Username:   "ivan42",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "ivan42", second.Username)

	// Same external id on another platform is a different person.
	other, err := store.FindOrCreateEndUser(ctx, &models.EndUser{
		Platform:   models.PlatformWhatsApp,
		PlatformID: "42",
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestMemoryStorageKnowledgeBaseBindings(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	bot := newBot(1, "support")
	require.NoError(t, store.CreateBot(ctx, bot))

	kb := &models.KnowledgeBase{UserID: 1, Name: "faq", VectorStoreID: "vs_1"}
	require.NoError(t, store.CreateKnowledgeBase(ctx, kb))

	require.NoError(t, store.BindKnowledgeBase(ctx, bot.ID, kb.ID))

	bound, err := store.GetBotKnowledgeBases(ctx, bot.ID)
	require.NoError(t, err)
	require.Len(t, bound, 1)
	assert.Equal(t, "vs_1", bound[0].VectorStoreID)

	// Deleting the knowledge base removes the binding too.
	require.NoError(t, store.DeleteKnowledgeBase(ctx, kb.ID, 1))
	bound, err = store.GetBotKnowledgeBases(ctx, bot.ID)
	require.NoError(t, err)
	assert.Empty(t, bound)
}
