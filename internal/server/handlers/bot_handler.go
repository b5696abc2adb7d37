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

type BotHandler struct {
	bots    *bots.Service
	storage storage.Storage
	logger  *zap.Logger
}

func NewBotHandler(botSvc *bots.Service, store storage.Storage, logger *zap.Logger) *BotHandler {
	return &BotHandler{
		bots:    botSvc,
		storage: store,
		logger:  logger.With(zap.String("handler", "bots")),
	}
}

type botRequest struct {
	Name           string  `json:"name" binding:"required"`
	Description    string  `json:"description"`
	Instructions   string  `json:"instructions"`
	Personality    string  `json:"personality"`
	Specialization string  `json:"specialization"`
	Model          string  `json:"model"`
	Temperature    float64 `json:"temperature"`
	TopP           float64 `json:"top_p"`
	TelegramToken  string  `json:"telegram_token"`
	WhatsAppAPIURL string  `json:"whatsapp_api_url"`
	WhatsAppToken  string  `json:"whatsapp_token"`
	GatewayAPIKey  string  `json:"gateway_api_key"`
}

func (r *botRequest) toModel(userID int64) *models.Bot {
	return &models.Bot{
		UserID:         userID,
		Name:           r.Name,
		Description:    r.Description,
		Instructions:   r.Instructions,
		Personality:    r.Personality,
		Specialization: r.Specialization,
		Model:          r.Model,
		Temperature:    r.Temperature,
		TopP:           r.TopP,
		TelegramToken:  r.TelegramToken,
		WhatsAppAPIURL: r.WhatsAppAPIURL,
		WhatsAppToken:  r.WhatsAppToken,
		GatewayAPIKey:  r.GatewayAPIKey,
	}
}

func (h *BotHandler) Create(c *gin.Context) {
	var req botRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bot := req.toModel(currentUserID(c))
	if err := h.bots.Create(c.Request.Context(), bot); err != nil {
		h.logger.Error("Failed to create bot", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bot)
}

func (h *BotHandler) List(c *gin.Context) {
	botList, err := h.bots.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.logger.Error("Failed to list bots", zap.Error(err))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bots": botList})
}

func (h *BotHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("botID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bot id"})
		return
	}

	bot, err := h.bots.Get(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bot)
}

func (h *BotHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("botID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bot id"})
		return
	}

	var req botRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := currentUserID(c)
	bot := req.toModel(userID)
	bot.ID = id
	if err := h.bots.Update(c.Request.Context(), userID, bot); err != nil {
		h.logger.Error("Failed to update bot", zap.Error(err), zap.Int64("bot_id", id))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bot)
}

func (h *BotHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("botID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bot id"})
		return
	}

	if err := h.bots.Delete(c.Request.Context(), id, currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BotHandler) Messages(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("botID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bot id"})
		return
	}

	if _, err := h.bots.Get(c.Request.Context(), id, currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	messages, err := h.storage.GetBotMessages(c.Request.Context(), id, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list messages", zap.Error(err), zap.Int64("bot_id", id))
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
