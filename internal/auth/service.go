package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cozil/cozil-backend/internal/models"
	"github.com/cozil/cozil-backend/internal/repository"
)

var (
	// ErrInvalidCredentials is returned when login credentials are invalid
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrMissingFields is returned when username or password is empty
	ErrMissingFields = errors.New("username and password are required")
	// ErrPasswordMismatch is returned when the confirmation does not match
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrUsernameTaken is returned when username is already registered
	ErrUsernameTaken = errors.New("username already taken")
	// ErrSessionNotFound is returned when a session is unknown or expired
	ErrSessionNotFound = errors.New("session not found")
)

// Options configures the auth service
type Options struct {
	SessionSecret string
	SessionTTL    time.Duration
	BcryptCost    int
}

// Service handles registration, login and session resolution
type Service struct {
	userRepo repository.UserRepository
	sessions *SessionStore
	signer   *TokenSigner
	opts     Options
	logger   *logrus.Logger
}

// NewService creates a new auth service
func NewService(userRepo repository.UserRepository, opts Options, logger *logrus.Logger) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	return &Service{
		userRepo: userRepo,
		sessions: NewSessionStore(opts.SessionTTL),
		signer:   NewTokenSigner(opts.SessionSecret, "cozil"),
		opts:     opts,
		logger:   logger,
	}
}

// SessionTTL returns how long a login stays valid
func (s *Service) SessionTTL() time.Duration {
	return s.opts.SessionTTL
}

// Register creates a new account
func (s *Service) Register(ctx context.Context, username, password, confirmPassword string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}
	if password != confirmPassword {
		return nil, ErrPasswordMismatch
	}

	// Check if username exists
	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	passwordHash, err := HashPassword(password, s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    models.Now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.WithField("username", username).Info("User registered")
	return user, nil
}

// Login verifies credentials, starts a session and returns its signed cookie value
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	session := s.sessions.Create(*user.Context())
	token, err := s.signer.Sign(session.ID, session.ExpiresAt)
	if err != nil {
		s.sessions.Delete(session.ID)
		return nil, "", err
	}

	return user, token, nil
}

// Authenticate resolves a cookie value to the user it belongs to
func (s *Service) Authenticate(token string) (*models.UserContext, error) {
	sessionID, err := s.signer.Verify(token)
	if err != nil {
		return nil, err
	}

	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	user := session.User
	return &user, nil
}

// Logout destroys the session behind a cookie value. Invalid tokens are ignored.
func (s *Service) Logout(token string) {
	sessionID, err := s.signer.Verify(token)
	if err != nil {
		return
	}
	s.sessions.Delete(sessionID)
}
