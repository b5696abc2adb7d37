package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AubakirovArman/tomoru-sub000/internal/assistant"
)

// BuilderHandler drives the conversational bot-creation flow against the
// shared builder assistant. The client keeps the thread id between turns
// so the builder remembers the conversation.
type BuilderHandler struct {
	builder *assistant.BuilderCache
	threads *assistant.ThreadManager
	runner  *assistant.Runner
	logger  *zap.Logger
}

func NewBuilderHandler(builder *assistant.BuilderCache, threads *assistant.ThreadManager, runner *assistant.Runner, logger *zap.Logger) *BuilderHandler {
	return &BuilderHandler{
		builder: builder,
		threads: threads,
		runner:  runner,
		logger:  logger.With(zap.String("handler", "builder")),
	}
}

type builderChatRequest struct {
	Message  string `json:"message" binding:"required"`
	ThreadID string `json:"thread_id"`
}

type builderChatResponse struct {
	Reply    string `json:"reply"`
	ThreadID string `json:"thread_id"`
	Config   any    `json:"config,omitempty"`
}

func (h *BuilderHandler) Chat(c *gin.Context) {
	var req builderChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	assistantID, err := h.builder.Ensure(ctx)
	if err != nil {
		h.logger.Error("Failed to ensure builder assistant", zap.Error(err))
		respondError(c, err)
		return
	}

	threadID, err := h.threads.Ensure(ctx, req.ThreadID)
	if err != nil {
		h.logger.Error("Failed to ensure builder thread", zap.Error(err))
		respondError(c, err)
		return
	}

	result := h.runner.RunTurn(ctx, assistant.TurnRequest{
		ThreadID:    threadID,
		AssistantID: assistantID,
		Text:        req.Message,
		Mode:        assistant.ModeBuilder,
	})

	resp := builderChatResponse{Reply: result.Reply, ThreadID: result.ThreadID}
	if result.Config != nil {
		resp.Config = result.Config
	}
	c.JSON(http.StatusOK, resp)
}
