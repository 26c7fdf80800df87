package repository

import (
	"context"
	"errors"
	"fmt"

	"sommelier-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound is returned when no user matches the lookup key
var ErrUserNotFound = errors.New("user not found")

// UserRepository handles database operations for user accounts
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, email, password_hash, membership,
	full_name, address, city, state, zip,
	stripe_customer_id, wine_preferences, usage, conversation,
	created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Membership,
		&user.FullName,
		&user.Address,
		&user.City,
		&user.State,
		&user.Zip,
		&user.StripeCustomerID,
		&user.Preferences,
		&user.Usage,
		&user.Conversation,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Create creates a new user account
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (
			email, password_hash, membership,
			full_name, address, city, state, zip,
			wine_preferences, usage, conversation
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		) RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		user.Email,
		user.PasswordHash,
		user.Membership,
		user.FullName,
		user.Address,
		user.City,
		user.State,
		user.Zip,
		user.Preferences,
		user.Usage,
		user.Conversation,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	return err
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// UpdatePreferences replaces a user's wine preference set
func (r *UserRepository) UpdatePreferences(ctx context.Context, id uuid.UUID, prefs models.WinePreferences) error {
	query := `
		UPDATE users SET
			wine_preferences = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, prefs)
	return err
}

// UpdateMembership changes a user's membership tier
func (r *UserRepository) UpdateMembership(ctx context.Context, id uuid.UUID, membership models.Membership) error {
	query := `
		UPDATE users SET
			membership = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, membership)
	return err
}

// UpdateMembershipByCustomer changes the membership of the user linked to a
// billing customer ID. Used by webhook processing.
func (r *UserRepository) UpdateMembershipByCustomer(ctx context.Context, customerID string, membership models.Membership) error {
	query := `
		UPDATE users SET
			membership = $2,
			updated_at = NOW()
		WHERE stripe_customer_id = $1`

	tag, err := r.db.Exec(ctx, query, customerID, membership)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// LinkStripeCustomer stores the billing customer ID for a user
func (r *UserRepository) LinkStripeCustomer(ctx context.Context, email, customerID string) error {
	query := `
		UPDATE users SET
			stripe_customer_id = $2,
			updated_at = NOW()
		WHERE email = $1`

	tag, err := r.db.Exec(ctx, query, email, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateConversation persists a user's conversation window
func (r *UserRepository) UpdateConversation(ctx context.Context, id uuid.UUID, window models.ConversationWindow) error {
	query := `
		UPDATE users SET
			conversation = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, window)
	return err
}

// ConsumeDailyUsage atomically applies the daily rollover and ceiling to a
// user's usage record. The row is locked for the duration of the transaction
// so concurrent requests from the same account cannot both pass the ceiling.
// Returns whether the request is allowed; nothing is written on rejection.
func (r *UserRepository) ConsumeDailyUsage(ctx context.Context, id uuid.UUID, today string, ceiling int) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin usage transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var usage models.Usage
	err = tx.QueryRow(ctx, `SELECT usage FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&usage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrUserNotFound
		}
		return false, err
	}

	updated, allowed := usage.Consume(today, ceiling)
	if !allowed {
		return false, nil
	}

	_, err = tx.Exec(ctx, `UPDATE users SET usage = $2, updated_at = NOW() WHERE id = $1`, id, updated)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit usage transaction: %w", err)
	}

	return true, nil
}
