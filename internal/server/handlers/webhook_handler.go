package handlers

import (
	"errors"
	"net/http"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AubakirovArman/tomoru-sub000/internal/channels/gateway"
	"github.com/AubakirovArman/tomoru-sub000/internal/channels/telegram"
	"github.com/AubakirovArman/tomoru-sub000/internal/channels/whatsapp"
	"github.com/AubakirovArman/tomoru-sub000/internal/models"
	"github.com/AubakirovArman/tomoru-sub000/internal/storage"
)

// WebhookHandler routes inbound channel traffic to the right bot and
// adapter. Telegram and WhatsApp webhooks are addressed by bot id in the
// path; the gateway authenticates with a per-bot API key header.
type WebhookHandler struct {
	storage  storage.Storage
	telegram *telegram.Adapter
	whatsapp *whatsapp.Adapter
	gateway  *gateway.Adapter
	logger   *zap.Logger
}

func NewWebhookHandler(store storage.Storage, tg *telegram.Adapter, wa *whatsapp.Adapter, gw *gateway.Adapter, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		storage:  store,
		telegram: tg,
		whatsapp: wa,
		gateway:  gw,
		logger:   logger.With(zap.String("handler", "webhooks")),
	}
}

func (h *WebhookHandler) routedBot(c *gin.Context) (*models.Bot, bool) {
	id, err := strconv.ParseInt(c.Param("botID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bot id"})
		return nil, false
	}

	bot, err := h.storage.GetBot(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown bot"})
		} else {
			h.logger.Error("Failed to load bot for webhook", zap.Error(err), zap.Int64("bot_id", id))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return nil, false
	}
	return bot, true
}

// Telegram acknowledges immediately after parsing: Telegram retries on
// non-200 and a slow run would otherwise cause duplicate deliveries.
func (h *WebhookHandler) Telegram(c *gin.Context) {
	bot, ok := h.routedBot(c)
	if !ok {
		return
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
		return
	}

	h.telegram.HandleUpdate(c.Request.Context(), bot, &update)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *WebhookHandler) WhatsApp(c *gin.Context) {
	bot, ok := h.routedBot(c)
	if !ok {
		return
	}

	var payload whatsapp.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	h.whatsapp.HandleWebhook(c.Request.Context(), bot, payload)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Gateway authenticates by API key, runs the turn and returns the reply
// in the response body.
func (h *WebhookHandler) Gateway(c *gin.Context) {
	apiKey := c.GetHeader("X-Api-Key")
	if apiKey == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing api key"})
		return
	}

	bot, err := h.storage.GetBotByGatewayKey(c.Request.Context(), apiKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		} else {
			h.logger.Error("Failed to resolve gateway key", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	var req gateway.InboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	reply := h.gateway.Handle(c.Request.Context(), bot, req)
	c.JSON(http.StatusOK, reply)
}
