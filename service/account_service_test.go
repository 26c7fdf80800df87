package service

import (
	"context"
	"testing"

	"sommelier-backend/models"
	"sommelier-backend/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccountStore struct {
	user *models.User
}

func (f *fakeAccountStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.user == nil || f.user.Email != email {
		return nil, repository.ErrUserNotFound
	}
	return f.user, nil
}

func (f *fakeAccountStore) UpdatePreferences(ctx context.Context, id uuid.UUID, prefs models.WinePreferences) error {
	f.user.Preferences = &prefs
	return nil
}

func (f *fakeAccountStore) UpdateMembership(ctx context.Context, id uuid.UUID, membership models.Membership) error {
	f.user.Membership = membership
	return nil
}

func TestGetPreferencesNeverSavedIsEmptyNotNil(t *testing.T) {
	store := &fakeAccountStore{user: &models.User{
		ID:         uuid.New(),
		Email:      "user@example.com",
		Membership: models.MembershipPremium,
	}}
	svc := NewAccountService(AccountWithStore(store))

	prefs, err := svc.GetPreferences(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.NotNil(t, prefs)
	assert.True(t, prefs.IsEmpty())
}

func TestUpdatePreferencesPremiumOnly(t *testing.T) {
	store := &fakeAccountStore{user: &models.User{
		ID:         uuid.New(),
		Email:      "basic@example.com",
		Membership: models.MembershipBasic,
	}}
	svc := NewAccountService(AccountWithStore(store))

	err := svc.UpdatePreferences(context.Background(), "basic@example.com", models.WinePreferences{DrynessLevel: "dry"})
	assert.ErrorIs(t, err, ErrPremiumRequired)
	assert.Nil(t, store.user.Preferences)

	store.user.Membership = models.MembershipPremium
	err = svc.UpdatePreferences(context.Background(), "basic@example.com", models.WinePreferences{DrynessLevel: "dry"})
	require.NoError(t, err)
	require.NotNil(t, store.user.Preferences)
	assert.Equal(t, "dry", store.user.Preferences.DrynessLevel)
}

func TestChangePlan(t *testing.T) {
	store := &fakeAccountStore{user: &models.User{
		ID:         uuid.New(),
		Email:      "user@example.com",
		Membership: models.MembershipBasic,
	}}
	svc := NewAccountService(AccountWithStore(store))

	got, err := svc.ChangePlan(context.Background(), "user@example.com", "premium")
	require.NoError(t, err)
	assert.Equal(t, models.MembershipPremium, got)
	assert.Equal(t, models.MembershipPremium, store.user.Membership)

	// Cancel does not change the tier by itself; the downgrade arrives later
	// through billing events
	got, err = svc.ChangePlan(context.Background(), "user@example.com", "cancel")
	require.NoError(t, err)
	assert.Equal(t, models.MembershipPremium, got)
	assert.Equal(t, models.MembershipPremium, store.user.Membership)

	got, err = svc.ChangePlan(context.Background(), "user@example.com", "basic")
	require.NoError(t, err)
	assert.Equal(t, models.MembershipBasic, got)
	assert.Equal(t, models.MembershipBasic, store.user.Membership)
}

func TestChangePlanUnknownUser(t *testing.T) {
	svc := NewAccountService(AccountWithStore(&fakeAccountStore{}))

	_, err := svc.ChangePlan(context.Background(), "nobody@example.com", "premium")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}
