package models

import (
	"database/sql/driver"
	"encoding/json"
)

// Role identifies the author of a conversation entry
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is a single conversation entry
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ConversationWindow is the bounded recent-message history supplied as
// context to the model provider. The entry at index 0, when present, is
// always a system entry carrying the assistant persona and is never evicted.
type ConversationWindow []ChatMessage

// MaxWindowEntries caps the conversation window, persona entry included
const MaxWindowEntries = 6

// Append adds an entry at the end of the window and evicts the oldest
// non-system entries until the window fits the cap again. Index 0 is
// preserved; the most recent entries keep their relative order.
func (w ConversationWindow) Append(entry ChatMessage) ConversationWindow {
	w = append(w, entry)
	if len(w) <= MaxWindowEntries {
		return w
	}

	trimmed := make(ConversationWindow, 0, MaxWindowEntries)
	trimmed = append(trimmed, w[0])
	trimmed = append(trimmed, w[len(w)-(MaxWindowEntries-1):]...)
	return trimmed
}

// WithPreferences returns a copy of the window with the preference block
// spliced in as an extra system entry immediately after index 0. The
// receiver is left unmodified; an empty block returns a plain copy.
func (w ConversationWindow) WithPreferences(preferenceText string) ConversationWindow {
	if preferenceText == "" || len(w) == 0 {
		out := make(ConversationWindow, len(w))
		copy(out, w)
		return out
	}

	out := make(ConversationWindow, 0, len(w)+1)
	out = append(out, w[0])
	out = append(out, ChatMessage{Role: RoleSystem, Content: preferenceText})
	out = append(out, w[1:]...)
	return out
}

// Value implements driver.Valuer for JSONB
func (w ConversationWindow) Value() (driver.Value, error) {
	if w == nil {
		w = ConversationWindow{}
	}
	return json.Marshal(w)
}

// Scan implements sql.Scanner for JSONB
func (w *ConversationWindow) Scan(value interface{}) error {
	if value == nil {
		*w = ConversationWindow{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	if len(bytes) == 0 {
		*w = ConversationWindow{}
		return nil
	}

	return json.Unmarshal(bytes, w)
}
