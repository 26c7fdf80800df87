package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TranscriptArchive persists completed exchanges beyond the bounded
// conversation window. Each exchange is written as its own object under the
// account's prefix, so concurrent chats from the same account never
// overwrite each other and writes stay constant-size. The full transcript is
// the concatenation of an account's objects in key order.
type TranscriptArchive struct {
	store Storage
	now   func() time.Time
}

// NewTranscriptArchive creates a transcript archive on top of a storage backend
func NewTranscriptArchive(store Storage) *TranscriptArchive {
	return &TranscriptArchive{
		store: store,
		now:   time.Now,
	}
}

// exchangeKey builds a per-exchange object key: fanned out by account ID
// prefix, ordered by timestamp, with a random suffix so exchanges landing in
// the same nanosecond still get distinct objects
func exchangeKey(accountID uuid.UUID, ts time.Time) string {
	id := accountID.String()
	stamp := ts.UTC().Format("20060102T150405.000000000")
	return fmt.Sprintf("transcripts/%s/%s/%s-%s.log", id[:2], id, stamp, uuid.NewString()[:8])
}

// AppendExchange records a prompt/answer pair in the account's transcript.
// The exchange is delimited the same way lookup results are, with a triple
// dash at the end of the entry.
func (a *TranscriptArchive) AppendExchange(ctx context.Context, accountID uuid.UUID, prompt, answer string) error {
	ts := a.now().UTC()
	stamp := ts.Format(time.RFC3339)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[%s] user: %s\n[%s] assistant: %s\n---\n", stamp, prompt, stamp, answer)

	if err := a.store.Save(ctx, exchangeKey(accountID, ts), bytes.NewReader(buf.Bytes())); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}

	return nil
}
