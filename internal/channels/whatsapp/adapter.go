package whatsapp

import (
	"context"

	"go.uber.org/zap"

	"github.com/AubakirovArman/tomoru-sub000/internal/assistant"
	"github.com/AubakirovArman/tomoru-sub000/internal/conversation"
	"github.com/AubakirovArman/tomoru-sub000/internal/models"
	"github.com/AubakirovArman/tomoru-sub000/internal/storage"
)

// WebhookPayload is what the gateway posts on inbound activity. A single
// request can batch several messages.
type WebhookPayload struct {
	Messages []InboundMessage `json:"messages"`
}

type InboundMessage struct {
	ID         string `json:"id"`
	From       string `json:"from"`
	Type       string `json:"type"`
	Body       string `json:"body"`
	SenderName string `json:"sender_name"`
	MediaURL   string `json:"media_url,omitempty"`
}

// Adapter translates WhatsApp gateway webhooks into the turn pipeline.
type Adapter struct {
	storage     storage.Storage
	turns       *conversation.Service
	transcriber *assistant.Transcriber
	logger      *zap.Logger
}

func NewAdapter(store storage.Storage, turns *conversation.Service, transcriber *assistant.Transcriber, logger *zap.Logger) *Adapter {
	return &Adapter{
		storage:     store,
		turns:       turns,
		transcriber: transcriber,
		logger:      logger,
	}
}

// HandleWebhook runs every message of the payload through one turn each.
func (a *Adapter) HandleWebhook(ctx context.Context, bot *models.Bot, payload WebhookPayload) {
	if bot.WhatsAppAPIURL == "" || bot.WhatsAppToken == "" {
		a.logger.Warn("WhatsApp webhook for bot without gateway credentials",
			zap.Int64("bot_id", bot.ID))
		return
	}
	client := NewClient(bot.WhatsAppAPIURL, bot.WhatsAppToken)

	for _, msg := range payload.Messages {
		a.handleMessage(ctx, bot, client, msg)
	}
}

func (a *Adapter) handleMessage(ctx context.Context, bot *models.Bot, client *Client, msg InboundMessage) {
	text := msg.Body
	if text == "" && msg.Type == "voice" && msg.MediaURL != "" {
		transcribed, err := a.transcribeVoice(ctx, client, msg.MediaURL)
		if err != nil {
			a.logger.Error("Failed to transcribe voice message",
				zap.Error(err),
				zap.Int64("bot_id", bot.ID))
			a.deliver(ctx, client, bot, msg.From, assistant.FallbackReply)
			return
		}
		text = transcribed
	}
	if text == "" {
		return
	}

	endUser, err := a.storage.FindOrCreateEndUser(ctx, &models.EndUser{
		Platform:   models.PlatformWhatsApp,
		PlatformID: msg.From,
		FirstName:  msg.SenderName,
	})
	if err != nil {
		a.logger.Error("Failed to upsert end user",
			zap.Error(err),
			zap.Int64("bot_id", bot.ID))
	}

	in := conversation.Inbound{
		Bot:               bot,
		EndUser:           endUser,
		Text:              text,
		ProviderMessageID: msg.ID,
	}

	outcome := a.turns.HandleInbound(ctx, in)

	sentID, err := client.SendMessage(ctx, msg.From, outcome.Reply)
	if err != nil {
		a.logger.Error("Failed to send WhatsApp reply",
			zap.Error(err),
			zap.Int64("bot_id", bot.ID),
			zap.String("chat_id", msg.From))
		return
	}

	a.turns.SaveOutbound(ctx, in, outcome.Reply, outcome.ThreadID, sentID)
}

func (a *Adapter) transcribeVoice(ctx context.Context, client *Client, mediaURL string) (string, error) {
	resp, err := client.DownloadMedia(ctx, mediaURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	return a.transcriber.Transcribe(ctx, "voice.ogg", resp.Body)
}

func (a *Adapter) deliver(ctx context.Context, client *Client, bot *models.Bot, chatID, text string) {
	if _, err := client.SendMessage(ctx, chatID, text); err != nil {
		a.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("bot_id", bot.ID),
			zap.String("chat_id", chatID))
	}
}
