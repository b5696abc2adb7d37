package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/AubakirovArman/tomoru-sub000/internal/assistant"
	"github.com/AubakirovArman/tomoru-sub000/internal/conversation"
	"github.com/AubakirovArman/tomoru-sub000/internal/models"
	"github.com/AubakirovArman/tomoru-sub000/internal/storage"
)

// Adapter translates Telegram webhook updates into the turn pipeline and
// delivers replies with the bot's own token. Clients are cached per
// token because NewBotAPI performs a getMe round trip.
type Adapter struct {
	storage     storage.Storage
	turns       *conversation.Service
	transcriber *assistant.Transcriber
	logger      *zap.Logger
	http        *http.Client

	mu      sync.Mutex
	clients map[string]*tgbotapi.BotAPI
}

func NewAdapter(store storage.Storage, turns *conversation.Service, transcriber *assistant.Transcriber, logger *zap.Logger) *Adapter {
	return &Adapter{
		storage:     store,
		turns:       turns,
		transcriber: transcriber,
		logger:      logger,
		http:        http.DefaultClient,
		clients:     make(map[string]*tgbotapi.BotAPI),
	}
}

func (a *Adapter) client(token string) (*tgbotapi.BotAPI, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if api, exists := a.clients[token]; exists {
		return api, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot client: %w", err)
	}
	a.clients[token] = api
	return api, nil
}

// HandleUpdate processes one webhook update for the bot it was routed
// to. Voice notes are transcribed before entering the core; everything
// without usable text is ignored.
func (a *Adapter) HandleUpdate(ctx context.Context, bot *models.Bot, update *tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	message := update.Message

	if bot.TelegramToken == "" {
		a.logger.Warn("Telegram update for bot without token", zap.Int64("bot_id", bot.ID))
		return
	}

	api, err := a.client(bot.TelegramToken)
	if err != nil {
		a.logger.Error("Failed to create Telegram client",
			zap.Error(err),
			zap.Int64("bot_id", bot.ID))
		return
	}

	text := message.Text
	if text == "" && message.Caption != "" {
		text = message.Caption
	}
	if text == "" && message.Voice != nil {
		text, err = a.transcribeVoice(ctx, api, message.Voice)
		if err != nil {
			a.logger.Error("Failed to transcribe voice message",
				zap.Error(err),
				zap.Int64("bot_id", bot.ID))
			a.send(api, message.Chat.ID, assistant.FallbackReply)
			return
		}
	}
	if text == "" {
		return
	}

	endUser, err := a.storage.FindOrCreateEndUser(ctx, &models.EndUser{
		Platform:   models.PlatformTelegram,
		PlatformID: strconv.FormatInt(message.From.ID, 10),
		FirstName:  message.From.FirstName,
		LastName:   message.From.LastName,
		Username:   message.From.UserName,
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
		ProviderMessageID: strconv.Itoa(message.MessageID),
	}

	outcome := a.turns.HandleInbound(ctx, in)

	sent, err := api.Send(tgbotapi.NewMessage(message.Chat.ID, outcome.Reply))
	if err != nil {
		a.logger.Error("Failed to send Telegram reply",
			zap.Error(err),
			zap.Int64("bot_id", bot.ID),
			zap.Int64("chat_id", message.Chat.ID))
		return
	}

	a.turns.SaveOutbound(ctx, in, outcome.Reply, outcome.ThreadID, strconv.Itoa(sent.MessageID))
}

func (a *Adapter) transcribeVoice(ctx context.Context, api *tgbotapi.BotAPI, voice *tgbotapi.Voice) (string, error) {
	fileURL, err := api.GetFileDirectURL(voice.FileID)
	if err != nil {
		return "", fmt.Errorf("resolving voice file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading voice file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading voice file: status %d", resp.StatusCode)
	}

	return a.transcriber.Transcribe(ctx, "voice.ogg", resp.Body)
}

func (a *Adapter) send(api *tgbotapi.BotAPI, chatID int64, text string) {
	if _, err := api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		a.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
