package service

import (
	"context"
	"errors"
	"fmt"

	"sommelier-backend/models"

	"github.com/google/uuid"
)

// AccountStore is the slice of the user repository the account service needs
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePreferences(ctx context.Context, id uuid.UUID, prefs models.WinePreferences) error
	UpdateMembership(ctx context.Context, id uuid.UUID, membership models.Membership) error
}

var ErrPremiumRequired = errors.New("premium membership required")

// AccountService handles preference management and explicit plan changes
type AccountService struct {
	store AccountStore
}

// AccountServiceOption is a functional option for AccountService
type AccountServiceOption func(*AccountService)

// AccountWithStore sets the user store
func AccountWithStore(store AccountStore) AccountServiceOption {
	return func(s *AccountService) {
		s.store = store
	}
}

// NewAccountService creates a new account service
func NewAccountService(opts ...AccountServiceOption) *AccountService {
	s := &AccountService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetPreferences returns a user's saved preference set. A never-saved set
// comes back empty, not nil.
func (s *AccountService) GetPreferences(ctx context.Context, email string) (*models.WinePreferences, error) {
	if s.store == nil {
		return nil, errors.New("user store not set")
	}

	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user.Preferences == nil {
		return &models.WinePreferences{}, nil
	}
	return user.Preferences, nil
}

// UpdatePreferences replaces a user's preference set. Only premium accounts
// may save preferences.
func (s *AccountService) UpdatePreferences(ctx context.Context, email string, prefs models.WinePreferences) error {
	if s.store == nil {
		return errors.New("user store not set")
	}

	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if !user.IsPremium() {
		return ErrPremiumRequired
	}

	if err := s.store.UpdatePreferences(ctx, user.ID, prefs); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// ChangePlan applies an explicit plan change. "cancel" leaves the account
// untouched; "premium" upgrades; anything else drops back to basic.
func (s *AccountService) ChangePlan(ctx context.Context, email, newPlan string) (models.Membership, error) {
	if s.store == nil {
		return "", errors.New("user store not set")
	}

	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	if newPlan == "cancel" {
		return user.Membership, nil
	}

	membership := models.MembershipBasic
	if newPlan == string(models.MembershipPremium) {
		membership = models.MembershipPremium
	}

	if err := s.store.UpdateMembership(ctx, user.ID, membership); err != nil {
		return "", fmt.Errorf("failed to update membership: %w", err)
	}

	return membership, nil
}
