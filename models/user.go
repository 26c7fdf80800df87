package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Membership represents a user's membership tier
type Membership string

const (
	MembershipBasic   Membership = "basic"
	MembershipPremium Membership = "premium"
)

// WinePreferences represents a user's wine taste profile.
// All fields are optional; they only take effect for premium members.
type WinePreferences struct {
	DrynessLevel    string   `json:"dryness_level,omitempty"`
	FavoriteTypes   []string `json:"favorite_types,omitempty"`
	DislikedFlavors []string `json:"disliked_flavors,omitempty"`
	BudgetRange     string   `json:"budget_range,omitempty"`
	KnowledgeLevel  string   `json:"knowledge_level,omitempty"`
	LocationZip     string   `json:"location_zip,omitempty"`
}

// IsEmpty reports whether no preference field has been set
func (p WinePreferences) IsEmpty() bool {
	return p.DrynessLevel == "" &&
		len(p.FavoriteTypes) == 0 &&
		len(p.DislikedFlavors) == 0 &&
		p.BudgetRange == "" &&
		p.KnowledgeLevel == "" &&
		p.LocationZip == ""
}

// Value implements driver.Valuer for JSONB
func (p WinePreferences) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB
func (p *WinePreferences) Scan(value interface{}) error {
	if value == nil {
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
		return nil
	}

	return json.Unmarshal(bytes, p)
}

// Usage tracks daily chat usage for the basic tier.
// LastUsed is a calendar date in "2006-01-02" form.
type Usage struct {
	Count    int    `json:"count"`
	LastUsed string `json:"last_used"`
}

// Consume applies the daily rollover and ceiling to a usage record.
// The count is reset to zero whenever today differs from LastUsed, before
// the ceiling is evaluated. Returns the updated record and whether the
// request is allowed. On rejection the record is returned unchanged.
func (u Usage) Consume(today string, ceiling int) (Usage, bool) {
	if u.LastUsed != today {
		u.Count = 0
		u.LastUsed = today
	}

	if ceiling > 0 && u.Count >= ceiling {
		return u, false
	}

	u.Count++
	return u, true
}

// Value implements driver.Valuer for JSONB
func (u Usage) Value() (driver.Value, error) {
	return json.Marshal(u)
}

// Scan implements sql.Scanner for JSONB
func (u *Usage) Scan(value interface{}) error {
	if value == nil {
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
		return nil
	}

	return json.Unmarshal(bytes, u)
}

// User represents a user account
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never serialize password hash
	Membership   Membership `json:"membership"`

	// Personal details collected at signup
	FullName *string `json:"full_name,omitempty"`
	Address  *string `json:"address,omitempty"`
	City     *string `json:"city,omitempty"`
	State    *string `json:"state,omitempty"`
	Zip      *string `json:"zip,omitempty"`

	// Billing
	StripeCustomerID *string `json:"stripe_customer_id,omitempty"`

	// Premium features
	Preferences *WinePreferences `json:"wine_preferences,omitempty"`

	// Chat state
	Usage        Usage              `json:"usage"`
	Conversation ConversationWindow `json:"conversation"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsPremium reports whether the account is on the premium tier
func (u *User) IsPremium() bool {
	return u.Membership == MembershipPremium
}
