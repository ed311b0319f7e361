package middleware

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/QuizFox/app/models"
	"github.com/ManuelReschke/QuizFox/internal/pkg/usercontext"
)

type fakeUsers map[string]*models.User

func (f fakeUsers) GetByAPIKeyHash(hash string) (*models.User, error) {
	if hash == models.HashAPIKey("broken") {
		return nil, errors.New("connection refused")
	}
	u, ok := f[hash]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func newTestApp() *fiber.App {
	users := fakeUsers{
		models.HashAPIKey("member-key"): {ID: 3, Name: "Member", Role: models.ROLE_USER, Status: models.STATUS_ACTIVE, Plan: "PRO"},
		models.HashAPIKey("admin-key"):  {ID: 7, Name: "Admin", Role: models.ROLE_ADMIN, Status: models.STATUS_ACTIVE},
		models.HashAPIKey("gone-key"):   {ID: 9, Name: "Gone", Role: models.ROLE_USER, Status: models.STATUS_DISABLED},
	}
	app := fiber.New()
	app.Use(APIKeyAuthMiddleware(users))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(usercontext.GetUserContext(c))
	})
	app.Get("/admin", RequireAdmin, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestAPIKeyAuthMiddleware(t *testing.T) {
	app := newTestApp()

	tests := []struct {
		name   string
		header string
		value  string
		status int
	}{
		{"missing key", "", "", fiber.StatusUnauthorized},
		{"unknown key", "X-API-Key", "nope", fiber.StatusUnauthorized},
		{"lookup failure", "X-API-Key", "broken", fiber.StatusInternalServerError},
		{"inactive user", "X-API-Key", "gone-key", fiber.StatusForbidden},
		{"header key", "X-API-Key", "member-key", fiber.StatusOK},
		{"bearer key", "Authorization", "Bearer member-key", fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestAPIKeyAuthMiddlewareSetsUserContext(t *testing.T) {
	app := newTestApp()
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("X-API-Key", "member-key")

	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":3,"username":"Member","is_logged_in":true,"is_admin":false,"plan":"PRO"}`, string(body))
}

func TestRequireAdmin(t *testing.T) {
	app := newTestApp()

	for key, status := range map[string]int{"member-key": fiber.StatusForbidden, "admin-key": fiber.StatusOK} {
		req := httptest.NewRequest("GET", "/admin", nil)
		req.Header.Set("X-API-Key", key)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode, key)
	}
}

func TestRequireAdminWithoutAuthentication(t *testing.T) {
	app := fiber.New()
	app.Get("/admin", RequireAdmin, func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest("GET", "/admin", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
