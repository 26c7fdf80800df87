package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sommelier-backend/models"
	"sommelier-backend/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore is the slice of the user repository the auth service needs
type AuthStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

var (
	ErrMissingCredentials = errors.New("missing email or password")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

const defaultTokenTTL = 24 * time.Hour

// AuthService handles registration, login, and token verification
type AuthService struct {
	store    AuthStore
	secret   []byte
	tokenTTL time.Duration
}

// AuthServiceOption is a functional option for AuthService
type AuthServiceOption func(*AuthService)

// AuthWithStore sets the user store
func AuthWithStore(store AuthStore) AuthServiceOption {
	return func(s *AuthService) {
		s.store = store
	}
}

// AuthWithSecret sets the JWT signing secret
func AuthWithSecret(secret []byte) AuthServiceOption {
	return func(s *AuthService) {
		s.secret = secret
	}
}

// AuthWithTokenTTL sets the token lifetime
func AuthWithTokenTTL(ttl time.Duration) AuthServiceOption {
	return func(s *AuthService) {
		s.tokenTTL = ttl
	}
}

// NewAuthService creates a new auth service
func NewAuthService(opts ...AuthServiceOption) *AuthService {
	s := &AuthService{
		tokenTTL: defaultTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRequest represents a signup submission
type RegisterRequest struct {
	Email    string
	Password string
	FullName string
	Address  string
	City     string
	State    string
	Zip      string
}

// Register creates a new account. Every account starts on the basic tier;
// membership changes only through plan changes or billing events.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if s.store == nil {
		return nil, errors.New("user store not set")
	}
	if req.Email == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}

	_, err := s.store.GetByEmail(ctx, req.Email)
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Membership:   models.MembershipBasic,
		Conversation: models.ConversationWindow{},
	}
	if req.FullName != "" {
		user.FullName = &req.FullName
	}
	if req.Address != "" {
		user.Address = &req.Address
	}
	if req.City != "" {
		user.City = &req.City
	}
	if req.State != "" {
		user.State = &req.State
	}
	if req.Zip != "" {
		user.Zip = &req.Zip
	}

	if err := s.store.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// LoginResult carries the signed token and tier returned on login
type LoginResult struct {
	Token      string
	Membership models.Membership
}

// Login verifies credentials and issues a signed token
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if s.store == nil {
		return nil, errors.New("user store not set")
	}

	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	claims := jwt.MapClaims{
		"email":      user.Email,
		"membership": string(user.Membership),
		"exp":        time.Now().Add(s.tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &LoginResult{
		Token:      signed,
		Membership: user.Membership,
	}, nil
}

// VerifyToken validates a bearer token and returns the email claim
func (s *AuthService) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return "", ErrInvalidToken
	}

	return email, nil
}
