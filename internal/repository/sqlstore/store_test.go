package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozil/cozil-backend/internal/config"
	"github.com/cozil/cozil-backend/internal/database"
	"github.com/cozil/cozil-backend/internal/models"
	"github.com/cozil/cozil-backend/internal/repository"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.NewConnection(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db))
	return db.DB
}

func createUser(t *testing.T, repo repository.UserRepository, username string) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: "$2a$10$hash",
		CreatedAt:    models.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	user := createUser(t, repo, "alice")

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)
	assert.Equal(t, "$2a$10$hash", byName.PasswordHash)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = repo.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	dup := &models.User{ID: uuid.New(), Username: "alice", PasswordHash: "x", CreatedAt: models.Now()}
	assert.ErrorIs(t, repo.Create(ctx, dup), repository.ErrDuplicate)
}

func TestConversationRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepository(db)
	repo := NewConversationRepository(db)

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	first := models.NewExchange(alice.ID, "first question", "first question", "first answer", base)
	second := models.NewExchange(alice.ID, "", "Please analyze this report.", "second answer", base.Add(time.Minute))
	other := models.NewExchange(bob.ID, "bob question", "bob question", "bob answer", base)

	for _, c := range []*models.Conversation{first, second, other} {
		require.NoError(t, repo.Create(ctx, c))
	}

	list, err := repo.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	// Newest first.
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, models.DefaultConversationTitle, list[0].Title)
	assert.Equal(t, first.ID, list[1].ID)
	assert.True(t, list[1].CreatedAt.Equal(base))

	require.Len(t, list[1].Turns, 2)
	assert.Equal(t, models.RoleUser, list[1].Turns[0].Role)
	assert.Equal(t, "first question", list[1].Turns[0].Content)
	assert.Equal(t, models.RoleModel, list[1].Turns[1].Role)
	assert.Equal(t, "first answer", list[1].Turns[1].Content)

	empty, err := repo.ListByUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestConversationRepository_FillsDefaults(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := createUser(t, NewUserRepository(db), "alice")
	repo := NewConversationRepository(db)

	c := &models.Conversation{UserID: alice.ID, Title: "t", Turns: models.Turns{}}
	require.NoError(t, repo.Create(ctx, c))

	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.False(t, c.CreatedAt.IsZero())
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
}

func TestAuditLogRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := createUser(t, NewUserRepository(db), "alice")
	repo := NewAuditLogRepository(db)

	userID := alice.ID
	require.NoError(t, repo.Log(ctx, &models.AuditLog{
		ID:           uuid.New(),
		UserID:       &userID,
		Action:       "user.login",
		ResourceType: "auth",
		IPAddress:    "127.0.0.1",
		Metadata:     models.JSONB{"username": "alice"},
		Status:       "success",
		CreatedAt:    models.Now(),
	}))
	// Guest events carry no user.
	require.NoError(t, repo.Log(ctx, &models.AuditLog{
		ID:        uuid.New(),
		Action:    "user.login",
		Status:    "failure",
		CreatedAt: models.Now(),
	}))

	entries, err := repo.GetByUserID(ctx, alice.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "user.login", entries[0].Action)
	assert.Equal(t, "alice", entries[0].Metadata["username"])
	require.NotNil(t, entries[0].UserID)
	assert.Equal(t, alice.ID, *entries[0].UserID)
}
