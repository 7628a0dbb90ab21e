package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"chatrelay/internal/cache"
	"chatrelay/internal/llm"
	"chatrelay/internal/store"
)

const (
	historyStore  = "history"
	lastSeenStore = "last_seen"
)

var ErrEmptyMessage = errors.New("message must not be empty")

// Gateway produces an assistant reply for a message plus bounded history.
// It never fails: exhaustion of the credential set yields a fallback reply.
type Gateway interface {
	Reply(ctx context.Context, message string, history []llm.Message, displayName string) string
}

// Service owns per-user, per-chat message logs and coordinates the store,
// the reply cache and the generation gateway for a single chat turn.
type Service struct {
	store   *store.Store
	cache   *cache.Cache
	gateway Gateway
	now     func() time.Time
}

func NewService(s *store.Store, c *cache.Cache, g Gateway) *Service {
	return &Service{store: s, cache: c, gateway: g, now: time.Now}
}

type Reply struct {
	Text   string
	Cached bool
	ChatID string
}

// HandleTurn runs one chat exchange. A cache hit returns immediately and
// touches no store, last-seen included. On a miss the history lock is held
// for the whole load-append-generate-append-save cycle so two concurrent
// turns cannot clobber each other's writes. History, cache and last-seen are
// three independent documents; a failed write is logged and the reply is
// still returned.
func (s *Service) HandleTurn(ctx context.Context, userID, chatID, message, displayName string) (Reply, error) {
	if strings.TrimSpace(message) == "" {
		return Reply{}, ErrEmptyMessage
	}

	if chatID == "" {
		chatID = uuid.NewString()
	}

	if reply, ok := s.cache.Get(userID, message); ok {
		return Reply{Text: reply, Cached: true, ChatID: chatID}, nil
	}

	var reply string
	err := s.store.Do(historyStore, func() error {
		index := HistoryIndex{}
		s.store.Load(historyStore, &index)
		if index[userID] == nil {
			index[userID] = map[string]Conversation{}
		}
		conv := append(index[userID][chatID], newTurn(SenderUser, message, s.now()))

		reply = s.gateway.Reply(ctx, message, toMessages(conv[:len(conv)-1]), displayName)

		conv = append(conv, newTurn(SenderAssistant, reply, s.now()))
		index[userID][chatID] = conv
		return s.store.Save(historyStore, index)
	})
	if err != nil {
		// the user still gets their reply
		log.Printf("persist history for %s/%s failed: %v", userID, chatID, err)
	}

	// an exhaustion apology is transient, memoizing it would pin it forever
	if reply != llm.FallbackReply {
		s.cache.Put(userID, message, reply)
	}
	s.Touch(userID)

	return Reply{Text: reply, Cached: false, ChatID: chatID}, nil
}

// History returns every conversation owned by userID, an empty map when the
// user is unknown.
func (s *Service) History(userID string) map[string]Conversation {
	index := HistoryIndex{}
	s.store.Load(historyStore, &index)
	chats := index[userID]
	if chats == nil {
		chats = map[string]Conversation{}
	}
	return chats
}

// DeleteChat removes one conversation permanently. It reports false and
// writes nothing when the pair does not exist.
func (s *Service) DeleteChat(userID, chatID string) bool {
	deleted := false
	err := s.store.Do(historyStore, func() error {
		index := HistoryIndex{}
		s.store.Load(historyStore, &index)
		chats, ok := index[userID]
		if !ok {
			return nil
		}
		if _, ok := chats[chatID]; !ok {
			return nil
		}
		delete(chats, chatID)
		deleted = true
		return s.store.Save(historyStore, index)
	})
	if err != nil {
		log.Printf("delete chat %s/%s failed: %v", userID, chatID, err)
		return false
	}
	return deleted
}

// Touch records the user as active now.
func (s *Service) Touch(userID string) {
	err := s.store.Do(lastSeenStore, func() error {
		seen := map[string]string{}
		s.store.Load(lastSeenStore, &seen)
		seen[userID] = s.now().UTC().Format(time.RFC3339)
		return s.store.Save(lastSeenStore, seen)
	})
	if err != nil {
		log.Printf("update last seen for %s failed: %v", userID, err)
	}
}

// toMessages maps stored turns to provider roles: the user stays "user",
// everything else becomes "model".
func toMessages(conv Conversation) []llm.Message {
	out := make([]llm.Message, 0, len(conv))
	for _, t := range conv {
		role := "model"
		if t.Sender == SenderUser {
			role = "user"
		}
		out = append(out, llm.Message{Role: role, Content: t.Text})
	}
	return out
}
