package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AubakirovArman/tomoru-sub000/internal/models"
)

// MemoryStorage keeps everything in process memory. Used for local runs
// and tests.
type MemoryStorage struct {
	mu       sync.RWMutex
	bots     map[int64]*models.Bot
	messages map[string]*models.Message
	replies  map[int64]*models.QuickReply
	endUsers map[string]*models.EndUser
	kbs      map[int64]*models.KnowledgeBase
	botKBs   map[int64]map[int64]bool

	nextBotID     int64
	nextReplyID   int64
	nextEndUserID int64
	nextKBID      int64
	nextSeq       int64
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		bots:     make(map[int64]*models.Bot),
		messages: make(map[string]*models.Message),
		replies:  make(map[int64]*models.QuickReply),
		endUsers: make(map[string]*models.EndUser),
		kbs:      make(map[int64]*models.KnowledgeBase),
		botKBs:   make(map[int64]map[int64]bool),
	}
}

func (s *MemoryStorage) CreateBot(ctx context.Context, bot *models.Bot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextBotID++
	bot.ID = s.nextBotID
	bot.CreatedAt = time.Now()
	bot.UpdatedAt = bot.CreatedAt
	copied := *bot
	s.bots[bot.ID] = &copied
	return nil
}

func (s *MemoryStorage) GetBot(ctx context.Context, id int64) (*models.Bot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if bot, exists := s.bots[id]; exists {
		copied := *bot
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) GetBotByOwner(ctx context.Context, id, userID int64) (*models.Bot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if bot, exists := s.bots[id]; exists && bot.UserID == userID {
		copied := *bot
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) GetBotByGatewayKey(ctx context.Context, apiKey string) (*models.Bot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, bot := range s.bots {
		if bot.GatewayAPIKey != "" && bot.GatewayAPIKey == apiKey {
			copied := *bot
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) ListBots(ctx context.Context, userID int64) ([]*models.Bot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bots []*models.Bot
	for _, bot := range s.bots {
		if bot.UserID == userID {
			copied := *bot
			bots = append(bots, &copied)
		}
	}
	sort.Slice(bots, func(i, j int) bool { return bots[i].ID < bots[j].ID })
	return bots, nil
}

func (s *MemoryStorage) UpdateBot(ctx context.Context, bot *models.Bot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.bots[bot.ID]
	if !exists {
		return ErrNotFound
	}
	bot.CreatedAt = existing.CreatedAt
	bot.UpdatedAt = time.Now()
	copied := *bot
	s.bots[bot.ID] = &copied
	return nil
}

func (s *MemoryStorage) DeleteBot(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bots[id]; !exists {
		return ErrNotFound
	}
	delete(s.bots, id)

	// Cascade like the database schema does
	for msgID, msg := range s.messages {
		if msg.BotID == id {
			delete(s.messages, msgID)
		}
	}
	for qrID, qr := range s.replies {
		if qr.BotID == id {
			delete(s.replies, qrID)
		}
	}
	delete(s.botKBs, id)
	return nil
}

func (s *MemoryStorage) SaveMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	msg.Seq = s.nextSeq
	msg.CreatedAt = time.Now()
	copied := *msg
	s.messages[msg.ID] = &copied
	return nil
}

func (s *MemoryStorage) GetBotMessages(ctx context.Context, botID int64, limit, offset int) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var messages []*models.Message
	for _, msg := range s.messages {
		if msg.BotID == botID {
			copied := *msg
			messages = append(messages, &copied)
		}
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].Seq > messages[j].Seq })

	if offset >= len(messages) {
		return nil, nil
	}
	messages = messages[offset:]
	if limit > 0 && limit < len(messages) {
		messages = messages[:limit]
	}
	return messages, nil
}

func (s *MemoryStorage) CreateQuickReply(ctx context.Context, qr *models.QuickReply) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextReplyID++
	qr.ID = s.nextReplyID
	copied := *qr
	s.replies[qr.ID] = &copied
	return nil
}

func (s *MemoryStorage) GetQuickReplies(ctx context.Context, botID int64) ([]*models.QuickReply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var replies []*models.QuickReply
	for _, qr := range s.replies {
		if qr.BotID == botID {
			copied := *qr
			replies = append(replies, &copied)
		}
	}
	sort.Slice(replies, func(i, j int) bool { return replies[i].ID < replies[j].ID })
	return replies, nil
}

func (s *MemoryStorage) DeleteQuickReply(ctx context.Context, id, botID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if qr, exists := s.replies[id]; exists && qr.BotID == botID {
		delete(s.replies, id)
		return nil
	}
	return ErrNotFound
}

func (s *MemoryStorage) FindOrCreateEndUser(ctx context.Context, user *models.EndUser) (*models.EndUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(user.Platform) + ":" + user.PlatformID
	if existing, exists := s.endUsers[key]; exists {
		existing.FirstName = user.FirstName
		existing.LastName = user.LastName
		existing.Username = user.Username
		copied := *existing
		return &copied, nil
	}

	s.nextEndUserID++
	user.ID = s.nextEndUserID
	copied := *user
	s.endUsers[key] = &copied
	result := copied
	return &result, nil
}

func (s *MemoryStorage) CreateKnowledgeBase(ctx context.Context, kb *models.KnowledgeBase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextKBID++
	kb.ID = s.nextKBID
	kb.CreatedAt = time.Now()
	copied := *kb
	s.kbs[kb.ID] = &copied
	return nil
}

func (s *MemoryStorage) GetKnowledgeBase(ctx context.Context, id, userID int64) (*models.KnowledgeBase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if kb, exists := s.kbs[id]; exists && kb.UserID == userID {
		copied := *kb
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) ListKnowledgeBases(ctx context.Context, userID int64) ([]*models.KnowledgeBase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var kbs []*models.KnowledgeBase
	for _, kb := range s.kbs {
		if kb.UserID == userID {
			copied := *kb
			kbs = append(kbs, &copied)
		}
	}
	sort.Slice(kbs, func(i, j int) bool { return kbs[i].ID < kbs[j].ID })
	return kbs, nil
}

func (s *MemoryStorage) DeleteKnowledgeBase(ctx context.Context, id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kb, exists := s.kbs[id]; exists && kb.UserID == userID {
		delete(s.kbs, id)
		for botID := range s.botKBs {
			delete(s.botKBs[botID], id)
		}
		return nil
	}
	return ErrNotFound
}

func (s *MemoryStorage) BindKnowledgeBase(ctx context.Context, botID, kbID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.botKBs[botID] == nil {
		s.botKBs[botID] = make(map[int64]bool)
	}
	s.botKBs[botID][kbID] = true
	return nil
}

func (s *MemoryStorage) UnbindKnowledgeBase(ctx context.Context, botID, kbID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.botKBs[botID], kbID)
	return nil
}

func (s *MemoryStorage) GetBotKnowledgeBases(ctx context.Context, botID int64) ([]*models.KnowledgeBase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var kbs []*models.KnowledgeBase
	for kbID := range s.botKBs[botID] {
		if kb, exists := s.kbs[kbID]; exists {
			copied := *kb
			kbs = append(kbs, &copied)
		}
	}
	sort.Slice(kbs, func(i, j int) bool { return kbs[i].ID < kbs[j].ID })
	return kbs, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
