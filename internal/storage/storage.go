package storage

import (
	"context"
	"errors"

	"github.com/AubakirovArman/tomoru-sub000/internal/models"
)

// ErrNotFound is returned when a requested row does not exist or is not
// visible to the requesting owner.
var ErrNotFound = errors.New("not found")

type Storage interface {
	// Bots
	CreateBot(ctx context.Context, bot *models.Bot) error
	GetBot(ctx context.Context, id int64) (*models.Bot, error)
	GetBotByOwner(ctx context.Context, id, userID int64) (*models.Bot, error)
	GetBotByGatewayKey(ctx context.Context, apiKey string) (*models.Bot, error)
	ListBots(ctx context.Context, userID int64) ([]*models.Bot, error)
	UpdateBot(ctx context.Context, bot *models.Bot) error
	DeleteBot(ctx context.Context, id int64) error

	// Messages
	SaveMessage(ctx context.Context, msg *models.Message) error
	GetBotMessages(ctx context.Context, botID int64, limit, offset int) ([]*models.Message, error)

	// Quick replies
	CreateQuickReply(ctx context.Context, qr *models.QuickReply) error
	GetQuickReplies(ctx context.Context, botID int64) ([]*models.QuickReply, error)
	DeleteQuickReply(ctx context.Context, id, botID int64) error

	// End users
	FindOrCreateEndUser(ctx context.Context, user *models.EndUser) (*models.EndUser, error)

	// Knowledge bases
	CreateKnowledgeBase(ctx context.Context, kb *models.KnowledgeBase) error
	GetKnowledgeBase(ctx context.Context, id, userID int64) (*models.KnowledgeBase, error)
	ListKnowledgeBases(ctx context.Context, userID int64) ([]*models.KnowledgeBase, error)
	DeleteKnowledgeBase(ctx context.Context, id, userID int64) error
	BindKnowledgeBase(ctx context.Context, botID, kbID int64) error
	UnbindKnowledgeBase(ctx context.Context, botID, kbID int64) error
	GetBotKnowledgeBases(ctx context.Context, botID int64) ([]*models.KnowledgeBase, error)

	Close() error
}
