package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/AubakirovArman/tomoru-sub000/internal/conversation"
	"github.com/AubakirovArman/tomoru-sub000/internal/models"
	"github.com/AubakirovArman/tomoru-sub000/internal/storage"
)

// InboundRequest is the CRM gateway's webhook body. The caller is
// authenticated by the per-bot API key carried in a header; routing to
// the right bot happens before this adapter runs.
type InboundRequest struct {
	ContactID   string `json:"contact_id"`
	ContactName string `json:"contact_name"`
	MessageID   string `json:"message_id"`
	Text        string `json:"text"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// Reply is both the synchronous webhook response and the callback body.
type Reply struct {
	ContactID string `json:"contact_id"`
	Reply     string `json:"reply"`
}

// Adapter connects CRM-style messaging gateways to the turn pipeline.
// The reply is always returned synchronously; when the request names a
// callback URL it is also posted there best-effort.
type Adapter struct {
	storage storage.Storage
	turns   *conversation.Service
	logger  *zap.Logger
	http    *http.Client
}

func NewAdapter(store storage.Storage, turns *conversation.Service, logger *zap.Logger) *Adapter {
	return &Adapter{
		storage: store,
		turns:   turns,
		logger:  logger,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *Adapter) Handle(ctx context.Context, bot *models.Bot, req InboundRequest) Reply {
	endUser, err := a.storage.FindOrCreateEndUser(ctx, &models.EndUser{
		Platform:   models.PlatformGateway,
		PlatformID: req.ContactID,
		FirstName:  req.ContactName,
	})
	if err != nil {
		a.logger.Error("Failed to upsert end user",
			zap.Error(err),
			zap.Int64("bot_id", bot.ID))
	}

	in := conversation.Inbound{
		Bot:               bot,
		EndUser:           endUser,
		Text:              req.Text,
		ProviderMessageID: req.MessageID,
	}

	outcome := a.turns.HandleInbound(ctx, in)
	reply := Reply{ContactID: req.ContactID, Reply: outcome.Reply}

	// Synchronous delivery counts as sent; the gateway does not report a
	// native message id back, so the outbound row is saved without one.
	a.turns.SaveOutbound(ctx, in, outcome.Reply, outcome.ThreadID, "")

	if req.CallbackURL != "" {
		a.postCallback(ctx, bot, req.CallbackURL, reply)
	}

	return reply
}

func (a *Adapter) postCallback(ctx context.Context, bot *models.Bot, url string, reply Reply) {
	body, err := json.Marshal(reply)
	if err != nil {
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		a.logger.Error("Failed to build callback request", zap.Error(err), zap.Int64("bot_id", bot.ID))
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(httpReq)
	if err != nil {
		a.logger.Error("Failed to deliver callback",
			zap.Error(err),
			zap.Int64("bot_id", bot.ID),
			zap.String("callback_url", url))
		return
	}
	resp.Body.Close()
}
