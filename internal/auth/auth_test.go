package auth

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTokenRoundTrip verifies issued tokens validate and foreign ones do not.
func TestTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	token, err := m.GenerateAccessToken("alice", "Alice")
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
	assert.Equal(t, "Alice", claims.Name)
	assert.Equal(t, "alice", claims.Subject)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewJWTManager("other", time.Hour).ValidateAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		old, err := NewJWTManager("secret", -time.Minute).GenerateAccessToken("alice", "")
		require.NoError(t, err)
		_, err = m.ValidateAccessToken(old)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.ValidateAccessToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

// TestAuthMiddleware checks every token source and the rejection codes.
func TestAuthMiddleware(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, err := m.GenerateAccessToken("bob", "")
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/me", AuthMiddleware(m), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})

	tests := []struct {
		name   string
		target string
		header string
		cookie string
		status int
		body   string
	}{
		{name: "bearer header", target: "/me", header: "Bearer " + token, status: fiber.StatusOK, body: "bob"},
		{name: "cookie", target: "/me", cookie: token, status: fiber.StatusOK, body: "bob"},
		{name: "query", target: "/me?token=" + token, status: fiber.StatusOK, body: "bob"},
		{name: "missing", target: "/me", status: fiber.StatusUnauthorized},
		{name: "bad scheme", target: "/me", header: "Basic abc", status: fiber.StatusUnauthorized},
		{name: "bad token", target: "/me?token=nope", status: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.Header.Set("Cookie", "access_token="+tt.cookie)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.body != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.Equal(t, tt.body, string(body))
			}
		})
	}

	t.Run("nil manager passes through", func(t *testing.T) {
		open := fiber.New()
		open.Get("/me", AuthMiddleware(nil), func(c *fiber.Ctx) error {
			return c.SendString("anon:" + UserID(c))
		})
		resp, err := open.Test(httptest.NewRequest("GET", "/me", nil))
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "anon:", string(body))
	})
}
