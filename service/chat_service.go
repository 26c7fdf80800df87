package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"sommelier-backend/models"
	"sommelier-backend/repository"

	"github.com/google/uuid"
)

// ChatStore is the slice of the user repository the chat service needs
type ChatStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ConsumeDailyUsage(ctx context.Context, id uuid.UUID, today string, ceiling int) (bool, error)
	UpdateConversation(ctx context.Context, id uuid.UUID, window models.ConversationWindow) error
}

// Completer answers a query from the model's trained knowledge
type Completer interface {
	Complete(ctx context.Context, window models.ConversationWindow) (string, error)
}

// Searcher answers a query through the search-grounded lookup path
type Searcher interface {
	Lookup(ctx context.Context, query, preferences string) (string, error)
}

// TranscriptArchiver records completed exchanges outside the bounded window
type TranscriptArchiver interface {
	AppendExchange(ctx context.Context, accountID uuid.UUID, prompt, answer string) error
}

var (
	ErrEmptyPrompt   = errors.New("prompt is required")
	ErrQuotaExceeded = errors.New("daily free limit reached")
)

const (
	// DailyFreeLimit is the per-day chat ceiling for the basic tier
	DailyFreeLimit = 5

	// QuotaExceededMessage is the user-facing rejection text for the basic tier
	QuotaExceededMessage = "You have reached your daily free limit of 5 inquiries. Please upgrade to premium for unlimited queries."

	noResponseFallback = "No response"

	personaPrompt = `You are Kristene, a charming and witty AI Sommelier specializing exclusively in wine.
- Politely decline or redirect if the user asks about anything not clearly related to wine.
- Keep the conversation going by asking additional wine-related questions or offering further wine guidance.
- Always respond professionally and warmly.`
)

// ChatService handles chat dispatch: membership gating, the daily quota,
// the conversation window, and routing between the direct and lookup paths
type ChatService struct {
	store     ChatStore
	completer Completer
	searcher  Searcher
	archive   TranscriptArchiver
	classify  func(string) bool
	now       func() time.Time
}

// ChatServiceOption is a functional option for ChatService
type ChatServiceOption func(*ChatService)

// ChatWithStore sets the user store
func ChatWithStore(store ChatStore) ChatServiceOption {
	return func(s *ChatService) {
		s.store = store
	}
}

// ChatWithCompleter sets the direct-path model provider
func ChatWithCompleter(c Completer) ChatServiceOption {
	return func(s *ChatService) {
		s.completer = c
	}
}

// ChatWithSearcher sets the lookup-path model provider
func ChatWithSearcher(sr Searcher) ChatServiceOption {
	return func(s *ChatService) {
		s.searcher = sr
	}
}

// ChatWithArchive sets the transcript archiver
func ChatWithArchive(a TranscriptArchiver) ChatServiceOption {
	return func(s *ChatService) {
		s.archive = a
	}
}

// ChatWithClassifier replaces the lookup-intent predicate
func ChatWithClassifier(fn func(string) bool) ChatServiceOption {
	return func(s *ChatService) {
		s.classify = fn
	}
}

// ChatWithClock sets the time source
func ChatWithClock(now func() time.Time) ChatServiceOption {
	return func(s *ChatService) {
		s.now = now
	}
}

// NewChatService creates a new chat service
func NewChatService(opts ...ChatServiceOption) *ChatService {
	s := &ChatService{
		classify: NeedsLookup,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ChatRequest represents an inbound chat query. Email is empty for
// anonymous callers.
type ChatRequest struct {
	Email  string
	Prompt string
}

// ChatResult represents the answer to a chat query
type ChatResult struct {
	Answer string
}

// Chat runs one query through the full pipeline: gate, quota, window,
// classification, provider call, and persistence of the exchange.
func (s *ChatService) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	if s.completer == nil {
		return nil, errors.New("completer not set")
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	// Resolve the account. Unknown or anonymous callers proceed as basic
	// with an ephemeral window and no persisted state.
	var user *models.User
	if req.Email != "" && s.store != nil {
		found, err := s.store.GetByEmail(ctx, req.Email)
		if err != nil {
			if !errors.Is(err, repository.ErrUserNotFound) {
				log.Printf("Warning: Failed to load user %s: %v", req.Email, err)
			}
		} else {
			user = found
		}
	}

	premium := user != nil && user.IsPremium()

	var preferenceText string
	if premium && user.Preferences != nil {
		preferenceText = BuildPreferenceText(*user.Preferences)
	}

	// Daily quota applies to basic accounts only. The consume is atomic in
	// the store; if the store itself fails the request proceeds and the
	// failure is logged.
	if user != nil && !premium {
		today := s.now().Format("2006-01-02")
		allowed, err := s.store.ConsumeDailyUsage(ctx, user.ID, today, DailyFreeLimit)
		if err != nil {
			log.Printf("Warning: Failed to update usage for %s: %v", user.Email, err)
		} else if !allowed {
			return nil, ErrQuotaExceeded
		}
	}

	window := models.ConversationWindow{}
	if user != nil {
		window = user.Conversation
	}
	if len(window) == 0 {
		window = models.ConversationWindow{{Role: models.RoleSystem, Content: personaPrompt}}
	}
	window = window.Append(models.ChatMessage{Role: models.RoleUser, Content: prompt})

	var answer string
	var err error
	if premium && s.searcher != nil && s.classify(prompt) {
		answer, err = s.searcher.Lookup(ctx, prompt, preferenceText)
		if err != nil {
			return nil, fmt.Errorf("lookup failed: %w", err)
		}
	} else {
		answer, err = s.completer.Complete(ctx, window.WithPreferences(preferenceText))
		if err != nil {
			return nil, fmt.Errorf("completion failed: %w", err)
		}
	}

	if strings.TrimSpace(answer) == "" {
		answer = noResponseFallback
	}

	window = window.Append(models.ChatMessage{Role: models.RoleAssistant, Content: answer})

	// Bookkeeping is best-effort: the caller still gets their answer if a
	// write fails.
	if user != nil {
		if err := s.store.UpdateConversation(ctx, user.ID, window); err != nil {
			log.Printf("Warning: Failed to persist conversation for %s: %v", user.Email, err)
		}
		if s.archive != nil {
			if err := s.archive.AppendExchange(ctx, user.ID, prompt, answer); err != nil {
				log.Printf("Warning: Failed to archive exchange for %s: %v", user.Email, err)
			}
		}
	}

	return &ChatResult{Answer: answer}, nil
}
