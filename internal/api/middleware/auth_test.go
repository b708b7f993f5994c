package middleware

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cozil/cozil-backend/internal/auth"
	"github.com/cozil/cozil-backend/internal/models"
	"github.com/cozil/cozil-backend/internal/repository"
)

type singleUserRepo struct {
	user *models.User
}

func (r *singleUserRepo) Create(_ context.Context, u *models.User) error {
	r.user = u
	return nil
}

func (r *singleUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if r.user == nil || r.user.ID != id {
		return nil, repository.ErrNotFound
	}
	return r.user, nil
}

func (r *singleUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	if r.user == nil || r.user.Username != username {
		return nil, repository.ErrNotFound
	}
	return r.user, nil
}

func newApp(t *testing.T) (*fiber.App, string) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	authService := auth.NewService(&singleUserRepo{}, auth.Options{
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
		BcryptCost:    bcrypt.MinCost,
	}, logger)

	ctx := context.Background()
	_, err := authService.Register(ctx, "nadia", "s3cret", "s3cret")
	require.NoError(t, err)
	_, token, err := authService.Login(ctx, "nadia", "s3cret")
	require.NoError(t, err)

	app := fiber.New()
	app.Use(Session(authService, "sid"))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		if user := CurrentUser(c); user != nil {
			return c.SendString(user.Username)
		}
		return c.SendString("guest")
	})
	app.Get("/locals", func(c *fiber.Ctx) error {
		var keys []string
		c.Context().VisitUserValues(func(key []byte, _ any) {
			keys = append(keys, string(key))
		})
		return c.SendString(strings.Join(keys, ","))
	})
	app.Get("/private", AuthRequired(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app, token
}

func body(t *testing.T, app *fiber.App, path, cookie string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if cookie != "" {
		req.Header.Set("Cookie", "sid="+cookie)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestSession(t *testing.T) {
	app, token := newApp(t)

	_, name := body(t, app, "/whoami", "")
	assert.Equal(t, "guest", name)

	_, name = body(t, app, "/whoami", token)
	assert.Equal(t, "nadia", name)

	_, name = body(t, app, "/whoami", "forged.token.value")
	assert.Equal(t, "guest", name)
}

func TestAuthRequired(t *testing.T) {
	app, token := newApp(t)

	status, _ := body(t, app, "/private", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, text := body(t, app, "/private", token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", text)
}

func TestSession_StoresOnlyUserContext(t *testing.T) {
	app, token := newApp(t)

	_, keys := body(t, app, "/locals", token)
	assert.Equal(t, UserContextKey, keys)

	_, keys = body(t, app, "/locals", "")
	assert.Empty(t, keys)
}
