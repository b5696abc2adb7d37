package assistant

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AubakirovArman/tomoru-sub000/internal/models"
)

// ToolCreateBotConfig is the function the builder assistant calls to
// hand over a finished bot configuration.
const ToolCreateBotConfig = "create_bot_config"

// toolResult carries the output reported back to the provider plus any
// structured payload surfaced to the caller.
type toolResult struct {
	output string
	config *models.BotConfig
}

type toolHandler func(arguments string) toolResult

// toolHandlers is the closed set of supported function tools. Unknown
// names get an explicit unsupported output instead of being skipped: a
// run blocks forever if any pending call is left unanswered.
var toolHandlers = map[string]toolHandler{
	ToolCreateBotConfig: handleCreateBotConfig,
}

func dispatchTool(name, arguments string) toolResult {
	if handler, ok := toolHandlers[name]; ok {
		return handler(arguments)
	}
	return toolResult{output: `{"success": false, "error": "unsupported function"}`}
}

// handleCreateBotConfig validates the payload. On failure the run
// continues with a failure output so the assistant can self-correct
// conversationally, and no config reaches the caller.
func handleCreateBotConfig(arguments string) toolResult {
	cfg, err := ParseBotConfig(arguments)
	if err != nil {
		return toolResult{output: fmt.Sprintf(`{"success": false, "error": %q}`, err.Error())}
	}
	return toolResult{output: `{"success": true}`, config: cfg}
}

// ParseBotConfig parses function-call arguments into a BotConfig and
// requires all five fields to be present and non-empty.
func ParseBotConfig(arguments string) (*models.BotConfig, error) {
	var cfg models.BotConfig
	if err := json.Unmarshal([]byte(arguments), &cfg); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %v", err)
	}
	if !cfg.Valid() {
		return nil, errors.New("missing required fields")
	}
	return &cfg, nil
}
