package assistant

import (
	"context"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const builderInstructions = `You help users design a new AI bot through conversation.
Ask about the bot's purpose, audience and tone until you can fill every field.
When the configuration is complete, call the create_bot_config function with
name, description, instructions, personality and specialization, then confirm
the result to the user in their language. Do not invent fields the user has
not agreed to.`

var builderConfigSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"name":           map[string]any{"type": "string", "description": "Short bot name"},
		"description":    map[string]any{"type": "string", "description": "One-paragraph description"},
		"instructions":   map[string]any{"type": "string", "description": "System instructions for the bot"},
		"personality":    map[string]any{"type": "string", "description": "Tone and manner of speaking"},
		"specialization": map[string]any{"type": "string", "description": "Domain the bot serves"},
	},
	"required": []string{"name", "description", "instructions", "personality", "specialization"},
}

// BuilderCache memoizes the identity of the shared builder assistant,
// keyed by its well-known name. Create-once, update-if-drifted; injected
// into whoever needs it instead of living in a package variable.
type BuilderCache struct {
	provider Provider
	name     string
	model    string
	logger   *zap.Logger

	mu          sync.Mutex
	assistantID string
}

func NewBuilderCache(provider Provider, name, model string, logger *zap.Logger) *BuilderCache {
	return &BuilderCache{
		provider: provider,
		name:     name,
		model:    model,
		logger:   logger,
	}
}

// Ensure returns the builder assistant id, creating the assistant on
// first use and re-aligning instructions or model if the provider copy
// has drifted.
func (b *BuilderCache) Ensure(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.assistantID != "" {
		return b.assistantID, nil
	}

	existing, err := b.find(ctx)
	if err != nil {
		return "", err
	}

	if existing != nil {
		if b.drifted(existing) {
			b.logger.Info("Updating drifted builder assistant",
				zap.String("assistant_id", existing.ID))
			if _, err := b.provider.ModifyAssistant(ctx, existing.ID, b.request()); err != nil {
				return "", fmt.Errorf("%w: updating builder assistant: %v", ErrProviderUnavailable, err)
			}
		}
		b.assistantID = existing.ID
		return b.assistantID, nil
	}

	created, err := b.provider.CreateAssistant(ctx, b.request())
	if err != nil {
		return "", fmt.Errorf("%w: creating builder assistant: %v", ErrProviderUnavailable, err)
	}

	b.logger.Info("Created builder assistant", zap.String("assistant_id", created.ID))
	b.assistantID = created.ID
	return b.assistantID, nil
}

func (b *BuilderCache) find(ctx context.Context) (*openai.Assistant, error) {
	limit := 100
	list, err := b.provider.ListAssistants(ctx, &limit, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: listing assistants: %v", ErrProviderUnavailable, err)
	}

	for i := range list.Assistants {
		a := list.Assistants[i]
		if a.Name != nil && *a.Name == b.name {
			return &a, nil
		}
	}
	return nil, nil
}

func (b *BuilderCache) drifted(a *openai.Assistant) bool {
	if a.Model != b.model {
		return true
	}
	return a.Instructions == nil || *a.Instructions != builderInstructions
}

func (b *BuilderCache) request() openai.AssistantRequest {
	name := b.name
	instructions := builderInstructions
	return openai.AssistantRequest{
		Model:        b.model,
		Name:         &name,
		Instructions: &instructions,
		Tools: []openai.AssistantTool{
			{
				Type: openai.AssistantToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        ToolCreateBotConfig,
					Description: "Persist the agreed bot configuration",
					Parameters:  builderConfigSchema,
				},
			},
		},
	}
}
