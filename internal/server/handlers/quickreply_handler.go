package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AubakirovArman/tomoru-sub000/internal/bots"
	"github.com/AubakirovArman/tomoru-sub000/internal/models"
	"github.com/AubakirovArman/tomoru-sub000/internal/storage"
)

type QuickReplyHandler struct {
	bots    *bots.Service
	storage storage.Storage
	logger  *zap.Logger
}

func NewQuickReplyHandler(botSvc *bots.Service, store storage.Storage, logger *zap.Logger) *QuickReplyHandler {
	return &QuickReplyHandler{
		bots:    botSvc,
		storage: store,
		logger:  logger.With(zap.String("handler", "quick_replies")),
	}
}

type quickReplyRequest struct {
	Question   string   `json:"question" binding:"required"`
	Answer     string   `json:"answer" binding:"required"`
	Variations []string `json:"variations"`
}

// ownedBot resolves the :botID param and enforces ownership before any
// quick-reply operation.
func (h *QuickReplyHandler) ownedBot(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("botID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bot id"})
		return 0, false
	}
	if _, err := h.bots.Get(c.Request.Context(), id, currentUserID(c)); err != nil {
		respondError(c, err)
		return 0, false
	}
	return id, true
}

func (h *QuickReplyHandler) Create(c *gin.Context) {
	botID, ok := h.ownedBot(c)
	if !ok {
		return
	}

	var req quickReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	qr := &models.QuickReply{
		BotID:      botID,
		Question:   req.Question,
		Answer:     req.Answer,
		Variations: req.Variations,
	}
	if err := h.storage.CreateQuickReply(c.Request.Context(), qr); err != nil {
		h.logger.Error("Failed to create quick reply", zap.Error(err), zap.Int64("bot_id", botID))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, qr)
}

func (h *QuickReplyHandler) List(c *gin.Context) {
	botID, ok := h.ownedBot(c)
	if !ok {
		return
	}

	replies, err := h.storage.GetQuickReplies(c.Request.Context(), botID)
	if err != nil {
		h.logger.Error("Failed to list quick replies", zap.Error(err), zap.Int64("bot_id", botID))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quick_replies": replies})
}

func (h *QuickReplyHandler) Delete(c *gin.Context) {
	botID, ok := h.ownedBot(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("replyID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quick reply id"})
		return
	}

	if err := h.storage.DeleteQuickReply(c.Request.Context(), id, botID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
