package assistant

import "errors"

var (
	// ErrProviderUnavailable wraps network or server failures from the
	// LLM provider.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrRunTerminal marks a run that reached failed, cancelled or
	// expired instead of completed.
	ErrRunTerminal = errors.New("run ended without completion")

	// ErrRunTimedOut marks a run that exhausted the polling budget.
	ErrRunTimedOut = errors.New("run polling timed out")
)

// FallbackReply is what chat channels receive when a turn fails
// internally. End users never see raw errors or silence.
const FallbackReply = "Sorry, an error occurred while processing your request. Please try again."
