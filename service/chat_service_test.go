package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"sommelier-backend/models"
	"sommelier-backend/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	user         *models.User
	consumeErr   error
	consumeCalls int
	saveCalls    int
	savedWindow  models.ConversationWindow
}

func (f *fakeStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.user == nil || f.user.Email != email {
		return nil, repository.ErrUserNotFound
	}
	return f.user, nil
}

func (f *fakeStore) ConsumeDailyUsage(ctx context.Context, id uuid.UUID, today string, ceiling int) (bool, error) {
	f.consumeCalls++
	if f.consumeErr != nil {
		return false, f.consumeErr
	}
	updated, allowed := f.user.Usage.Consume(today, ceiling)
	if allowed {
		f.user.Usage = updated
	}
	return allowed, nil
}

func (f *fakeStore) UpdateConversation(ctx context.Context, id uuid.UUID, window models.ConversationWindow) error {
	f.saveCalls++
	f.savedWindow = window
	return nil
}

type fakeCompleter struct {
	answer     string
	err        error
	calls      int
	lastWindow models.ConversationWindow
}

func (f *fakeCompleter) Complete(ctx context.Context, window models.ConversationWindow) (string, error) {
	f.calls++
	f.lastWindow = window
	return f.answer, f.err
}

type fakeSearcher struct {
	answer    string
	err       error
	calls     int
	lastQuery string
	lastPrefs string
}

func (f *fakeSearcher) Lookup(ctx context.Context, query, preferences string) (string, error) {
	f.calls++
	f.lastQuery = query
	f.lastPrefs = preferences
	return f.answer, f.err
}

var fixedNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

const today = "2026-09-01"

func newTestService(store *fakeStore, completer *fakeCompleter, searcher *fakeSearcher) *ChatService {
	opts := []ChatServiceOption{
		ChatWithStore(store),
		ChatWithCompleter(completer),
		ChatWithClock(func() time.Time { return fixedNow }),
	}
	if searcher != nil {
		opts = append(opts, ChatWithSearcher(searcher))
	}
	return NewChatService(opts...)
}

func basicUser(usage models.Usage) *models.User {
	return &models.User{
		ID:         uuid.New(),
		Email:      "basic@example.com",
		Membership: models.MembershipBasic,
		Usage:      usage,
	}
}

func premiumUser() *models.User {
	return &models.User{
		ID:         uuid.New(),
		Email:      "premium@example.com",
		Membership: models.MembershipPremium,
	}
}

func TestChatRejectsEmptyPrompt(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeCompleter{answer: "x"}, nil)

	_, err := svc.Chat(context.Background(), ChatRequest{Prompt: "   "})
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestChatAnonymousCallerGetsAnswerWithoutPersistence(t *testing.T) {
	store := &fakeStore{}
	completer := &fakeCompleter{answer: "Try a Gamay."}
	svc := newTestService(store, completer, nil)

	result, err := svc.Chat(context.Background(), ChatRequest{Prompt: "Suggest a light red"})
	require.NoError(t, err)

	assert.Equal(t, "Try a Gamay.", result.Answer)
	assert.Equal(t, 1, completer.calls)
	assert.Zero(t, store.consumeCalls)
	assert.Zero(t, store.saveCalls)
}

func TestChatQuotaExhaustedBasicIsRejected(t *testing.T) {
	store := &fakeStore{user: basicUser(models.Usage{Count: 5, LastUsed: today})}
	completer := &fakeCompleter{answer: "x"}
	searcher := &fakeSearcher{answer: "y"}
	svc := newTestService(store, completer, searcher)

	// Prompt content is irrelevant once the quota is gone
	_, err := svc.Chat(context.Background(), ChatRequest{
		Email:  "basic@example.com",
		Prompt: "price of Opus One 2018",
	})

	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 5, store.user.Usage.Count)
	assert.Zero(t, completer.calls)
	assert.Zero(t, searcher.calls)
	assert.Zero(t, store.saveCalls)
}

func TestChatBasicBelowCeilingConsumesAndAnswers(t *testing.T) {
	store := &fakeStore{user: basicUser(models.Usage{Count: 4, LastUsed: today})}
	completer := &fakeCompleter{answer: "A Chablis."}
	svc := newTestService(store, completer, nil)

	result, err := svc.Chat(context.Background(), ChatRequest{
		Email:  "basic@example.com",
		Prompt: "What pairs with oysters?",
	})
	require.NoError(t, err)

	assert.Equal(t, "A Chablis.", result.Answer)
	assert.Equal(t, 5, store.user.Usage.Count)
	assert.Equal(t, 1, store.consumeCalls)
}

func TestChatStaleUsageDateResetsBeforeQuota(t *testing.T) {
	store := &fakeStore{user: basicUser(models.Usage{Count: 5, LastUsed: "2026-08-31"})}
	completer := &fakeCompleter{answer: "x"}
	svc := newTestService(store, completer, nil)

	_, err := svc.Chat(context.Background(), ChatRequest{
		Email:  "basic@example.com",
		Prompt: "hello",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, store.user.Usage.Count)
	assert.Equal(t, today, store.user.Usage.LastUsed)
}

func TestChatUsageWriteFailureDoesNotBlockAnswer(t *testing.T) {
	store := &fakeStore{
		user:       basicUser(models.Usage{Count: 2, LastUsed: today}),
		consumeErr: errors.New("connection reset"),
	}
	completer := &fakeCompleter{answer: "x"}
	svc := newTestService(store, completer, nil)

	result, err := svc.Chat(context.Background(), ChatRequest{
		Email:  "basic@example.com",
		Prompt: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "x", result.Answer)
}

func TestChatPremiumIgnoresQuota(t *testing.T) {
	user := premiumUser()
	user.Usage = models.Usage{Count: 100, LastUsed: today}
	store := &fakeStore{user: user}
	completer := &fakeCompleter{answer: "x"}
	svc := newTestService(store, completer, nil)

	_, err := svc.Chat(context.Background(), ChatRequest{
		Email:  "premium@example.com",
		Prompt: "another one",
	})
	require.NoError(t, err)

	assert.Zero(t, store.consumeCalls)
	assert.Equal(t, 100, store.user.Usage.Count)
}

func TestChatPremiumLookupPathReturnsVerbatim(t *testing.T) {
	store := &fakeStore{user: premiumUser()}
	completer := &fakeCompleter{answer: "direct"}
	searcher := &fakeSearcher{answer: "Store A — $95 — in stock\n---\nStore B — $99"}
	svc := newTestService(store, completer, searcher)

	result, err := svc.Chat(context.Background(), ChatRequest{
		Email:  "premium@example.com",
		Prompt: "price of Opus One 2018",
	})
	require.NoError(t, err)

	assert.Equal(t, searcher.answer, result.Answer)
	assert.Equal(t, 1, searcher.calls)
	assert.Equal(t, "price of Opus One 2018", searcher.lastQuery)
	assert.Zero(t, completer.calls)
}

func TestChatPremiumDirectPathSkipsLookup(t *testing.T) {
	store := &fakeStore{user: premiumUser()}
	completer := &fakeCompleter{answer: "A Syrah works well."}
	searcher := &fakeSearcher{answer: "unused"}
	svc := newTestService(store, completer, searcher)

	result, err := svc.Chat(context.Background(), ChatRequest{
		Email:  "premium@example.com",
		Prompt: "Suggest a wine for spicy food",
	})
	require.NoError(t, err)

	assert.Equal(t, "A Syrah works well.", result.Answer)
	assert.Zero(t, searcher.calls)
	assert.Equal(t, 1, completer.calls)
}

func TestChatBasicNeverTakesLookupPath(t *testing.T) {
	store := &fakeStore{user: basicUser(models.Usage{})}
	completer := &fakeCompleter{answer: "x"}
	searcher := &fakeSearcher{answer: "unused"}
	svc := newTestService(store, completer, searcher)

	_, err := svc.Chat(context.Background(), ChatRequest{
		Email:  "basic@example.com",
		Prompt: "Where can I buy a 2016 Chianti near me?",
	})
	require.NoError(t, err)

	assert.Zero(t, searcher.calls)
	assert.Equal(t, 1, completer.calls)
}

func TestChatPreferencesReachProvidersForPremiumOnly(t *testing.T) {
	prefs := &models.WinePreferences{DrynessLevel: "dry"}

	user := premiumUser()
	user.Preferences = prefs
	store := &fakeStore{user: user}
	completer := &fakeCompleter{answer: "x"}
	searcher := &fakeSearcher{answer: "y"}
	svc := newTestService(store, completer, searcher)

	_, err := svc.Chat(context.Background(), ChatRequest{
		Email:  "premium@example.com",
		Prompt: "Suggest a wine",
	})
	require.NoError(t, err)

	// Preference block spliced in after the persona entry
	require.GreaterOrEqual(t, len(completer.lastWindow), 2)
	assert.Equal(t, models.RoleSystem, completer.lastWindow[1].Role)
	assert.Contains(t, completer.lastWindow[1].Content, "Dryness Level: dry")

	_, err = svc.Chat(context.Background(), ChatRequest{
		Email:  "premium@example.com",
		Prompt: "price of Barolo",
	})
	require.NoError(t, err)
	assert.Contains(t, searcher.lastPrefs, "Dryness Level: dry")

	// Basic tier gets no preference block even when one is saved
	basic := basicUser(models.Usage{})
	basic.Preferences = prefs
	store = &fakeStore{user: basic}
	completer = &fakeCompleter{answer: "x"}
	svc = newTestService(store, completer, nil)

	_, err = svc.Chat(context.Background(), ChatRequest{
		Email:  "basic@example.com",
		Prompt: "Suggest a wine",
	})
	require.NoError(t, err)
	for _, msg := range completer.lastWindow {
		assert.NotContains(t, msg.Content, "Dryness Level")
	}
}

func TestChatEmptyProviderAnswerIsSubstituted(t *testing.T) {
	store := &fakeStore{user: premiumUser()}
	completer := &fakeCompleter{answer: "  "}
	svc := newTestService(store, completer, nil)

	result, err := svc.Chat(context.Background(), ChatRequest{
		Email:  "premium@example.com",
		Prompt: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "No response", result.Answer)
}

func TestChatProviderFailurePropagates(t *testing.T) {
	store := &fakeStore{user: premiumUser()}
	completer := &fakeCompleter{err: errors.New("upstream 500")}
	svc := newTestService(store, completer, nil)

	_, err := svc.Chat(context.Background(), ChatRequest{
		Email:  "premium@example.com",
		Prompt: "hello",
	})
	assert.Error(t, err)
	assert.Zero(t, store.saveCalls, "failed exchanges are not recorded")
}

func TestChatPersistsWindowWithExchange(t *testing.T) {
	store := &fakeStore{user: premiumUser()}
	completer := &fakeCompleter{answer: "Hi there."}
	svc := newTestService(store, completer, nil)

	_, err := svc.Chat(context.Background(), ChatRequest{
		Email:  "premium@example.com",
		Prompt: "hello",
	})
	require.NoError(t, err)

	require.Equal(t, 1, store.saveCalls)
	w := store.savedWindow
	require.Len(t, w, 3)
	assert.Equal(t, models.RoleSystem, w[0].Role)
	assert.Equal(t, models.ChatMessage{Role: models.RoleUser, Content: "hello"}, w[1])
	assert.Equal(t, models.ChatMessage{Role: models.RoleAssistant, Content: "Hi there."}, w[2])
}
