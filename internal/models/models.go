package models

import "time"

// Direction marks which side of a conversation produced a message.
type Direction string

const (
	DirectionUser Direction = "USER"
	DirectionBot  Direction = "BOT"
)

// Platform identifies the messaging channel an end user arrived from.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformWhatsApp Platform = "whatsapp"
	PlatformGateway  Platform = "gateway"
)

// User represents a platform account that owns bots.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Bot represents an AI assistant with its behavioral configuration and
// channel credentials. AssistantID is empty until the bot has been
// provisioned with the provider.
type Bot struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Instructions   string    `json:"instructions"`
	Personality    string    `json:"personality"`
	Specialization string    `json:"specialization"`
	Model          string    `json:"model"`
	Temperature    float64   `json:"temperature"`
	TopP           float64   `json:"top_p"`
	AssistantID    string    `json:"assistant_id,omitempty"`
	TelegramToken  string    `json:"telegram_token,omitempty"`
	WhatsAppAPIURL string    `json:"whatsapp_api_url,omitempty"`
	WhatsAppToken  string    `json:"whatsapp_token,omitempty"`
	GatewayAPIKey  string    `json:"gateway_api_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EndUser represents the external contact talking to a bot on some channel.
type EndUser struct {
	ID         int64    `json:"id"`
	Platform   Platform `json:"platform"`
	PlatformID string   `json:"platform_id"`
	FirstName  string   `json:"first_name,omitempty"`
	LastName   string   `json:"last_name,omitempty"`
	Username   string   `json:"username,omitempty"`
}

// Message represents one immutable utterance of a conversation turn.
// ThreadID is the provider thread handle that was active when the
// message was produced.
type Message struct {
	ID                string    `json:"id"`
	BotID             int64     `json:"bot_id"`
	EndUserID         int64     `json:"end_user_id,omitempty"`
	Content           string    `json:"content"`
	Direction         Direction `json:"direction"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	ThreadID          string    `json:"thread_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	Seq               int64     `json:"seq"`
}

// QuickReply represents a canned answer with its canonical question and
// accepted paraphrase variations, scoped to one bot.
type QuickReply struct {
	ID         int64    `json:"id"`
	BotID      int64    `json:"bot_id"`
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Variations []string `json:"variations"`
}

// KnowledgeBase represents a named document collection backed by a
// provider-hosted vector store.
type KnowledgeBase struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Name          string    `json:"name"`
	VectorStoreID string    `json:"vector_store_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// BotConfig is the structured payload the builder assistant produces via
// the create_bot_config function call. All five fields are required.
type BotConfig struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Instructions   string `json:"instructions"`
	Personality    string `json:"personality"`
	Specialization string `json:"specialization"`
}

// Valid reports whether every required field is a non-empty string.
func (c *BotConfig) Valid() bool {
	if c == nil {
		return false
	}
	return c.Name != "" && c.Description != "" && c.Instructions != "" &&
		c.Personality != "" && c.Specialization != ""
}
