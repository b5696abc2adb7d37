package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/AubakirovArman/tomoru-sub000/internal/models"
)

// Mode selects how a turn is driven.
type Mode int

const (
	// ModeChat is used by all chat channels: the language directive is
	// appended and tool calls are not serviced.
	ModeChat Mode = iota
	// ModeBuilder is the bot-creation flow: no language directive,
	// requires_action is serviced through the tool dispatch table.
	ModeBuilder
)

const languageDirective = "\n\nAlways respond in the same language the user wrote in."

type TurnRequest struct {
	ThreadID    string
	AssistantID string
	Text        string
	FileIDs     []string
	Mode        Mode
}

type TurnResult struct {
	Reply    string
	ThreadID string
	Config   *models.BotConfig
}

// Runner drives one request/response cycle against the provider's
// asynchronous run model: post the user message, start a run, poll at a
// fixed interval to a terminal state, service tool calls in builder
// mode, extract the latest assistant text.
type Runner struct {
	provider     Provider
	logger       *zap.Logger
	pollInterval time.Duration
	runTimeout   time.Duration
}

func NewRunner(provider Provider, logger *zap.Logger, pollInterval, runTimeout time.Duration) *Runner {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if runTimeout <= 0 {
		runTimeout = 2 * time.Minute
	}
	return &Runner{
		provider:     provider,
		logger:       logger,
		pollInterval: pollInterval,
		runTimeout:   runTimeout,
	}
}

// RunTurn never propagates an error past its own boundary: any internal
// failure is logged and converted into the non-empty fallback reply, so
// chat channels always have something to send.
func (r *Runner) RunTurn(ctx context.Context, req TurnRequest) TurnResult {
	reply, config, err := r.execute(ctx, req)
	if err != nil {
		r.logger.Error("Run turn failed",
			zap.Error(err),
			zap.String("thread_id", req.ThreadID),
			zap.String("assistant_id", req.AssistantID))
		return TurnResult{Reply: FallbackReply, ThreadID: req.ThreadID}
	}
	return TurnResult{Reply: reply, ThreadID: req.ThreadID, Config: config}
}

func (r *Runner) execute(ctx context.Context, req TurnRequest) (string, *models.BotConfig, error) {
	content := req.Text
	if req.Mode == ModeChat {
		content += languageDirective
	}

	msgReq := openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	}
	for _, fileID := range req.FileIDs {
		msgReq.Attachments = append(msgReq.Attachments, openai.ThreadAttachment{
			FileID: fileID,
			Tools:  []openai.ThreadAttachmentTool{{Type: "file_search"}},
		})
	}

	if _, err := r.provider.CreateMessage(ctx, req.ThreadID, msgReq); err != nil {
		return "", nil, fmt.Errorf("%w: posting message: %v", ErrProviderUnavailable, err)
	}

	run, err := r.provider.CreateRun(ctx, req.ThreadID, openai.RunRequest{AssistantID: req.AssistantID})
	if err != nil {
		return "", nil, fmt.Errorf("%w: starting run: %v", ErrProviderUnavailable, err)
	}

	var config *models.BotConfig
	deadline := time.Now().Add(r.runTimeout)

	for {
		switch run.Status {
		case openai.RunStatusCompleted:
			reply, err := r.latestAssistantText(ctx, req.ThreadID)
			if err != nil {
				return "", nil, err
			}
			return reply, config, nil

		case openai.RunStatusQueued, openai.RunStatusInProgress:
			// keep polling

		case openai.RunStatusRequiresAction:
			if req.Mode != ModeBuilder {
				return "", nil, fmt.Errorf("%w: requires_action outside builder flow", ErrRunTerminal)
			}
			run, config, err = r.resolveToolCalls(ctx, run, config)
			if err != nil {
				return "", nil, err
			}

		default:
			reason := ""
			if run.LastError != nil {
				reason = run.LastError.Message
			}
			return "", nil, fmt.Errorf("%w: status %s: %s", ErrRunTerminal, run.Status, reason)
		}

		if time.Now().After(deadline) {
			return "", nil, fmt.Errorf("%w: budget %s exhausted", ErrRunTimedOut, r.runTimeout)
		}

		select {
		case <-ctx.Done():
			return "", nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, ctx.Err())
		case <-time.After(r.pollInterval):
		}

		run, err = r.provider.RetrieveRun(ctx, req.ThreadID, run.ID)
		if err != nil {
			return "", nil, fmt.Errorf("%w: retrieving run: %v", ErrProviderUnavailable, err)
		}
	}
}

// resolveToolCalls answers every pending call and submits the outputs in
// one request. The structured config, once extracted, survives the rest
// of the poll loop.
func (r *Runner) resolveToolCalls(ctx context.Context, run openai.Run, config *models.BotConfig) (openai.Run, *models.BotConfig, error) {
	if run.RequiredAction == nil || run.RequiredAction.SubmitToolOutputs == nil {
		return run, config, fmt.Errorf("%w: requires_action without tool calls", ErrRunTerminal)
	}

	var outputs []openai.ToolOutput
	for _, call := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
		result := dispatchTool(call.Function.Name, call.Function.Arguments)
		if result.config != nil {
			config = result.config
		}
		r.logger.Info("Resolved tool call",
			zap.String("run_id", run.ID),
			zap.String("function", call.Function.Name),
			zap.Bool("config_extracted", result.config != nil))
		outputs = append(outputs, openai.ToolOutput{
			ToolCallID: call.ID,
			Output:     result.output,
		})
	}

	updated, err := r.provider.SubmitToolOutputs(ctx, run.ThreadID, run.ID,
		openai.SubmitToolOutputsRequest{ToolOutputs: outputs})
	if err != nil {
		return run, config, fmt.Errorf("%w: submitting tool outputs: %v", ErrProviderUnavailable, err)
	}

	return updated, config, nil
}

// latestAssistantText lists thread messages newest first and returns the
// first assistant-authored text content. Non-text content parts are
// skipped explicitly rather than duck-typed.
func (r *Runner) latestAssistantText(ctx context.Context, threadID string) (string, error) {
	limit := 10
	order := "desc"
	list, err := r.provider.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("%w: listing messages: %v", ErrProviderUnavailable, err)
	}

	for _, msg := range list.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		for _, part := range msg.Content {
			if part.Type == "text" && part.Text != nil {
				return part.Text.Value, nil
			}
		}
	}

	return "", fmt.Errorf("%w: no assistant text in thread %s", ErrRunTerminal, threadID)
}
