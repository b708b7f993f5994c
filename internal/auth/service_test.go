package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cozil/cozil-backend/internal/models"
	"github.com/cozil/cozil-backend/internal/repository"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*models.User)}
}

func (m *memoryUsers) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return repository.ErrDuplicate
	}
	m.users[user.Username] = user
	return nil
}

func (m *memoryUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return NewService(newMemoryUsers(), Options{
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
		BcryptCost:    bcrypt.MinCost,
	}, logger)
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	user, err := svc.Register(ctx, "alice", "s3cret", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "s3cret", user.PasswordHash)
	assert.True(t, CheckPassword("s3cret", user.PasswordHash))

	_, err = svc.Register(ctx, "alice", "other", "other")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.Register(ctx, "bob", "one", "two")
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	_, err = svc.Register(ctx, "  ", "pw", "pw")
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestService_LoginAuthenticateLogout(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	registered, err := svc.Register(ctx, "alice", "s3cret", "s3cret")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, token, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, token)

	current, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, current.UserID)
	assert.Equal(t, "alice", current.Username)

	svc.Logout(token)
	_, err = svc.Authenticate(token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestService_AuthenticateRejectsForeignTokens(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Authenticate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenSigner("another-secret", "cozil")
	forged, err := other.Sign(uuid.NewString(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = svc.Authenticate(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Correctly signed, but the session was never created here.
	valid, err := svc.signer.Sign(uuid.NewString(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = svc.Authenticate(valid)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTokenSigner_Expired(t *testing.T) {
	signer := NewTokenSigner("secret", "cozil")
	token, err := signer.Sign("sid", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestSessionStore_Expiry(t *testing.T) {
	store := NewSessionStore(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	session := store.Create(models.UserContext{UserID: uuid.New(), Username: "alice"})
	got, ok := store.Get(session.ID)
	require.True(t, ok)
	assert.Equal(t, "alice", got.User.Username)

	now = now.Add(2 * time.Minute)
	_, ok = store.Get(session.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestHashPassword_DefaultCost(t *testing.T) {
	hash, err := HashPassword("pw", 0)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, DefaultBcryptCost, cost)
}
