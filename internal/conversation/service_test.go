package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AubakirovArman/tomoru-sub000/internal/assistant"
	"github.com/AubakirovArman/tomoru-sub000/internal/models"
	"github.com/AubakirovArman/tomoru-sub000/internal/storage"
)

type fakeRunner struct {
	calls  int
	result assistant.TurnResult
}

func (f *fakeRunner) RunTurn(ctx context.Context, req assistant.TurnRequest) assistant.TurnResult {
	f.calls++
	if f.result.ThreadID == "" {
		f.result.ThreadID = req.ThreadID
	}
	return f.result
}

type fakeThreads struct {
	err     error
	created int
}

func (f *fakeThreads) Ensure(ctx context.Context, existing string) (string, error) {
	if existing != "" {
		return existing, nil
	}
	if f.err != nil {
		return "", f.err
	}
	f.created++
	return "thread_fake", nil
}

func setup(t *testing.T) (*Service, *storage.MemoryStorage, *fakeRunner, *fakeThreads, Inbound) {
	t.Helper()
	store := storage.NewMemoryStorage()
	runner := &fakeRunner{result: assistant.TurnResult{Reply: "model reply"}}
	threads := &fakeThreads{}
	svc := NewService(store, threads, runner, zap.NewNop())

	bot := &models.Bot{UserID: 1, Name: "Support", AssistantID: "asst_1"}
	require.NoError(t, store.CreateBot(context.Background(), bot))
	endUser, err := store.FindOrCreateEndUser(context.Background(), &models.EndUser{
		Platform:   models.PlatformTelegram,
		PlatformID: "42",
		FirstName:  "Ada",
	})
	require.NoError(t, err)

	return svc, store, runner, threads, Inbound{
		Bot:               bot,
		EndUser:           endUser,
		Text:              "when do you open",
		ProviderMessageID: "tg-1",
	}
}

func TestHandleInboundRunsOrchestrator(t *testing.T) {
	svc, store, runner, threads, in := setup(t)

	outcome := svc.HandleInbound(context.Background(), in)
	assert.Equal(t, "model reply", outcome.Reply)
	assert.Equal(t, "thread_fake", outcome.ThreadID)
	assert.False(t, outcome.QuickReply)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, 1, threads.created)

	svc.SaveOutbound(context.Background(), in, outcome.Reply, outcome.ThreadID, "tg-2")

	msgs, err := store.GetBotMessages(context.Background(), in.Bot.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	// Newest first: BOT row, then USER row. The USER row must have the
	// lower sequence number.
	assert.Equal(t, models.DirectionBot, msgs[0].Direction)
	assert.Equal(t, models.DirectionUser, msgs[1].Direction)
	assert.Less(t, msgs[1].Seq, msgs[0].Seq)
	assert.Equal(t, "thread_fake", msgs[0].ThreadID)
	assert.Equal(t, "thread_fake", msgs[1].ThreadID)
	assert.Equal(t, "tg-2", msgs[0].ProviderMessageID)
	assert.Equal(t, "tg-1", msgs[1].ProviderMessageID)
}

func TestHandleInboundQuickReplyShortCircuit(t *testing.T) {
	svc, store, runner, threads, in := setup(t)
	require.NoError(t, store.CreateQuickReply(context.Background(), &models.QuickReply{
		BotID:    in.Bot.ID,
		Question: "when do you open",
		Answer:   "We open at 9am.",
	}))

	outcome := svc.HandleInbound(context.Background(), in)
	assert.Equal(t, "We open at 9am.", outcome.Reply)
	assert.True(t, outcome.QuickReply)
	assert.Empty(t, outcome.ThreadID)

	// The short circuit never touches the provider.
	assert.Zero(t, runner.calls)
	assert.Zero(t, threads.created)
}

func TestHandleInboundQuickReplyScopedToBot(t *testing.T) {
	svc, store, runner, _, in := setup(t)

	// Same question on a different bot must not leak across.
	other := &models.Bot{UserID: 1, Name: "Other"}
	require.NoError(t, store.CreateBot(context.Background(), other))
	require.NoError(t, store.CreateQuickReply(context.Background(), &models.QuickReply{
		BotID:    other.ID,
		Question: "when do you open",
		Answer:   "Never.",
	}))

	outcome := svc.HandleInbound(context.Background(), in)
	assert.Equal(t, "model reply", outcome.Reply)
	assert.Equal(t, 1, runner.calls)
}

func TestHandleInboundThreadFailureFallsBack(t *testing.T) {
	svc, store, runner, threads, in := setup(t)
	threads.err = errors.New("provider down")

	outcome := svc.HandleInbound(context.Background(), in)
	assert.Equal(t, assistant.FallbackReply, outcome.Reply)
	assert.NotEmpty(t, outcome.Reply)
	assert.Zero(t, runner.calls)

	// The inbound side is still recorded for the audit trail.
	msgs, err := store.GetBotMessages(context.Background(), in.Bot.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.DirectionUser, msgs[0].Direction)
}
