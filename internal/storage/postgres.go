package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/AubakirovArman/tomoru-sub000/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config DatabaseConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &PostgresStorage{db: db}

	// Initialize database schema
	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	_, err = s.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

const botColumns = `id, user_id, name, description, instructions, personality, specialization,
	model, temperature, top_p,
	COALESCE(assistant_id, ''), COALESCE(telegram_token, ''), COALESCE(whatsapp_api_url, ''),
	COALESCE(whatsapp_token, ''), COALESCE(gateway_api_key, ''), created_at, updated_at`

func scanBot(row interface{ Scan(dest ...any) error }) (*models.Bot, error) {
	bot := &models.Bot{}
	err := row.Scan(
		&bot.ID,
		&bot.UserID,
		&bot.Name,
		&bot.Description,
		&bot.Instructions,
		&bot.Personality,
		&bot.Specialization,
		&bot.Model,
		&bot.Temperature,
		&bot.TopP,
		&bot.AssistantID,
		&bot.TelegramToken,
		&bot.WhatsAppAPIURL,
		&bot.WhatsAppToken,
		&bot.GatewayAPIKey,
		&bot.CreatedAt,
		&bot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return bot, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *PostgresStorage) CreateBot(ctx context.Context, bot *models.Bot) error {
	query := `
		INSERT INTO bots (user_id, name, description, instructions, personality, specialization,
			model, temperature, top_p, assistant_id, telegram_token, whatsapp_api_url,
			whatsapp_token, gateway_api_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query,
		bot.UserID,
		bot.Name,
		bot.Description,
		bot.Instructions,
		bot.Personality,
		bot.Specialization,
		bot.Model,
		bot.Temperature,
		bot.TopP,
		nullable(bot.AssistantID),
		nullable(bot.TelegramToken),
		nullable(bot.WhatsAppAPIURL),
		nullable(bot.WhatsAppToken),
		nullable(bot.GatewayAPIKey),
	).Scan(&bot.ID, &bot.CreatedAt, &bot.UpdatedAt)

	if err != nil {
		return fmt.Errorf("error creating bot: %v", err)
	}

	return nil
}

func (s *PostgresStorage) GetBot(ctx context.Context, id int64) (*models.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE id = $1`

	bot, err := scanBot(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying bot: %v", err)
	}
	return bot, nil
}

func (s *PostgresStorage) GetBotByOwner(ctx context.Context, id, userID int64) (*models.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE id = $1 AND user_id = $2`

	bot, err := scanBot(s.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying bot: %v", err)
	}
	return bot, nil
}

func (s *PostgresStorage) GetBotByGatewayKey(ctx context.Context, apiKey string) (*models.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE gateway_api_key = $1`

	bot, err := scanBot(s.db.QueryRowContext(ctx, query, apiKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying bot by gateway key: %v", err)
	}
	return bot, nil
}

func (s *PostgresStorage) ListBots(ctx context.Context, userID int64) ([]*models.Bot, error) {
	query := `SELECT ` + botColumns + ` FROM bots WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying bots: %v", err)
	}
	defer rows.Close()

	var bots []*models.Bot
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning bot: %v", err)
		}
		bots = append(bots, bot)
	}

	return bots, rows.Err()
}

func (s *PostgresStorage) UpdateBot(ctx context.Context, bot *models.Bot) error {
	query := `
		UPDATE bots
		SET name = $1, description = $2, instructions = $3, personality = $4,
			specialization = $5, model = $6, temperature = $7, top_p = $8,
			assistant_id = $9, telegram_token = $10, whatsapp_api_url = $11,
			whatsapp_token = $12, gateway_api_key = $13, updated_at = $14
		WHERE id = $15`

	result, err := s.db.ExecContext(ctx, query,
		bot.Name,
		bot.Description,
		bot.Instructions,
		bot.Personality,
		bot.Specialization,
		bot.Model,
		bot.Temperature,
		bot.TopP,
		nullable(bot.AssistantID),
		nullable(bot.TelegramToken),
		nullable(bot.WhatsAppAPIURL),
		nullable(bot.WhatsAppToken),
		nullable(bot.GatewayAPIKey),
		time.Now(),
		bot.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating bot: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStorage) DeleteBot(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM bots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting bot: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStorage) SaveMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, bot_id, end_user_id, content, direction, provider_message_id, thread_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, seq`

	var endUserID any
	if msg.EndUserID != 0 {
		endUserID = msg.EndUserID
	}

	err := s.db.QueryRowContext(ctx, query,
		msg.ID,
		msg.BotID,
		endUserID,
		msg.Content,
		string(msg.Direction),
		msg.ProviderMessageID,
		msg.ThreadID,
	).Scan(&msg.CreatedAt, &msg.Seq)

	if err != nil {
		return fmt.Errorf("error saving message: %v", err)
	}

	return nil
}

func (s *PostgresStorage) GetBotMessages(ctx context.Context, botID int64, limit, offset int) ([]*models.Message, error) {
	query := `
		SELECT id, bot_id, COALESCE(end_user_id, 0), content, direction,
			provider_message_id, thread_id, created_at, seq
		FROM messages
		WHERE bot_id = $1
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.db.QueryContext(ctx, query, botID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %v", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		var direction string
		err := rows.Scan(
			&msg.ID,
			&msg.BotID,
			&msg.EndUserID,
			&msg.Content,
			&direction,
			&msg.ProviderMessageID,
			&msg.ThreadID,
			&msg.CreatedAt,
			&msg.Seq,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning message: %v", err)
		}
		msg.Direction = models.Direction(direction)
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (s *PostgresStorage) CreateQuickReply(ctx context.Context, qr *models.QuickReply) error {
	query := `
		INSERT INTO quick_replies (bot_id, question, answer, variations)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := s.db.QueryRowContext(ctx, query,
		qr.BotID,
		qr.Question,
		qr.Answer,
		pq.Array(qr.Variations),
	).Scan(&qr.ID)

	if err != nil {
		return fmt.Errorf("error creating quick reply: %v", err)
	}

	return nil
}

func (s *PostgresStorage) GetQuickReplies(ctx context.Context, botID int64) ([]*models.QuickReply, error) {
	query := `
		SELECT id, bot_id, question, answer, variations
		FROM quick_replies
		WHERE bot_id = $1
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, botID)
	if err != nil {
		return nil, fmt.Errorf("error querying quick replies: %v", err)
	}
	defer rows.Close()

	var replies []*models.QuickReply
	for rows.Next() {
		qr := &models.QuickReply{}
		err := rows.Scan(&qr.ID, &qr.BotID, &qr.Question, &qr.Answer, pq.Array(&qr.Variations))
		if err != nil {
			return nil, fmt.Errorf("error scanning quick reply: %v", err)
		}
		replies = append(replies, qr)
	}

	return replies, rows.Err()
}

func (s *PostgresStorage) DeleteQuickReply(ctx context.Context, id, botID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM quick_replies WHERE id = $1 AND bot_id = $2`, id, botID)
	if err != nil {
		return fmt.Errorf("error deleting quick reply: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStorage) FindOrCreateEndUser(ctx context.Context, user *models.EndUser) (*models.EndUser, error) {
	query := `
		INSERT INTO end_users (platform, platform_id, first_name, last_name, username)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (platform, platform_id) DO UPDATE
		SET first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			username = EXCLUDED.username
		RETURNING id`

	err := s.db.QueryRowContext(ctx, query,
		string(user.Platform),
		user.PlatformID,
		user.FirstName,
		user.LastName,
		user.Username,
	).Scan(&user.ID)

	if err != nil {
		return nil, fmt.Errorf("error upserting end user: %v", err)
	}

	return user, nil
}

func (s *PostgresStorage) CreateKnowledgeBase(ctx context.Context, kb *models.KnowledgeBase) error {
	query := `
		INSERT INTO knowledge_bases (user_id, name, vector_store_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query, kb.UserID, kb.Name, kb.VectorStoreID).
		Scan(&kb.ID, &kb.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating knowledge base: %v", err)
	}

	return nil
}

func (s *PostgresStorage) GetKnowledgeBase(ctx context.Context, id, userID int64) (*models.KnowledgeBase, error) {
	query := `
		SELECT id, user_id, name, vector_store_id, created_at
		FROM knowledge_bases
		WHERE id = $1 AND user_id = $2`

	kb := &models.KnowledgeBase{}
	err := s.db.QueryRowContext(ctx, query, id, userID).
		Scan(&kb.ID, &kb.UserID, &kb.Name, &kb.VectorStoreID, &kb.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying knowledge base: %v", err)
	}

	return kb, nil
}

func (s *PostgresStorage) ListKnowledgeBases(ctx context.Context, userID int64) ([]*models.KnowledgeBase, error) {
	query := `
		SELECT id, user_id, name, vector_store_id, created_at
		FROM knowledge_bases
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying knowledge bases: %v", err)
	}
	defer rows.Close()

	var kbs []*models.KnowledgeBase
	for rows.Next() {
		kb := &models.KnowledgeBase{}
		if err := rows.Scan(&kb.ID, &kb.UserID, &kb.Name, &kb.VectorStoreID, &kb.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning knowledge base: %v", err)
		}
		kbs = append(kbs, kb)
	}

	return kbs, rows.Err()
}

func (s *PostgresStorage) DeleteKnowledgeBase(ctx context.Context, id, userID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM knowledge_bases WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("error deleting knowledge base: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %v", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *PostgresStorage) BindKnowledgeBase(ctx context.Context, botID, kbID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_knowledge_bases (bot_id, kb_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, botID, kbID)
	if err != nil {
		return fmt.Errorf("error binding knowledge base: %v", err)
	}
	return nil
}

func (s *PostgresStorage) UnbindKnowledgeBase(ctx context.Context, botID, kbID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM bot_knowledge_bases WHERE bot_id = $1 AND kb_id = $2`, botID, kbID)
	if err != nil {
		return fmt.Errorf("error unbinding knowledge base: %v", err)
	}
	return nil
}

func (s *PostgresStorage) GetBotKnowledgeBases(ctx context.Context, botID int64) ([]*models.KnowledgeBase, error) {
	query := `
		SELECT kb.id, kb.user_id, kb.name, kb.vector_store_id, kb.created_at
		FROM knowledge_bases kb
		JOIN bot_knowledge_bases link ON link.kb_id = kb.id
		WHERE link.bot_id = $1
		ORDER BY kb.id`

	rows, err := s.db.QueryContext(ctx, query, botID)
	if err != nil {
		return nil, fmt.Errorf("error querying bot knowledge bases: %v", err)
	}
	defer rows.Close()

	var kbs []*models.KnowledgeBase
	for rows.Next() {
		kb := &models.KnowledgeBase{}
		if err := rows.Scan(&kb.ID, &kb.UserID, &kb.Name, &kb.VectorStoreID, &kb.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning knowledge base: %v", err)
		}
		kbs = append(kbs, kb)
	}

	return kbs, rows.Err()
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
