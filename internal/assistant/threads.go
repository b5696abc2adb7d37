package assistant

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ThreadManager owns creation and reuse of provider conversation
// threads. It keeps no state: callers stamp the returned handle onto the
// messages they persist.
//
// Webhook flows currently pass an empty handle on every turn, so each
// inbound message gets a fresh thread and provider-side context is not
// carried between turns. Reusing a stored handle per end user is a
// one-line change at those call sites.
type ThreadManager struct {
	provider Provider
	logger   *zap.Logger
}

func NewThreadManager(provider Provider, logger *zap.Logger) *ThreadManager {
	return &ThreadManager{provider: provider, logger: logger}
}

// Ensure returns the existing handle as-is when one is supplied, or
// creates a new provider thread. Liveness of a supplied handle is not
// checked here; the provider rejects dead handles downstream.
func (m *ThreadManager) Ensure(ctx context.Context, existing string) (string, error) {
	if existing != "" {
		return existing, nil
	}

	thread, err := m.provider.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		m.logger.Error("Failed to create thread", zap.Error(err))
		return "", fmt.Errorf("%w: creating thread: %v", ErrProviderUnavailable, err)
	}

	return thread.ID, nil
}
