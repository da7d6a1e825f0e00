package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	auth "github.com/goliatone/go-classroom-auth"
	"github.com/goliatone/go-classroom-auth/config"
)

func setupApp(t *testing.T) *App {
	t.Helper()

	srv := miniredis.RunT(t)
	cfg, err := config.Parse(map[string]string{
		"JWT_SECRET": "test-secret",
		"DB_DRIVER":  "sqlite",
		"DB_DSN":     ":memory:",
		"REDIS_URL":  "redis://" + srv.Addr() + "/0",
	})
	require.NoError(t, err)

	app := &App{config: cfg, logger: auth.NewZapLogger(zap.NewNop())}
	require.NoError(t, Bootstrap(context.Background(), app))
	t.Cleanup(func() { _ = app.Close() })

	return app
}

func do(t *testing.T, app *App, method, path, body string, cookies ...*http.Cookie) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	res, err := app.srv.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	res.Body.Close()

	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return res, out
}

func sessionCookie(t *testing.T, res *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range res.Cookies() {
		if c.Name == "classroom_session" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func TestApp_AccountLifecycle(t *testing.T) {
	app := setupApp(t)

	res, body := do(t, app, http.MethodPost, "/auth/register",
		`{"name":"Ada","email":"ada@example.com","password":"password123","confirm_password":"password123"}`)
	require.Equal(t, http.StatusCreated, res.StatusCode, body)
	assert.Equal(t, "", body["role"])
	cookie := sessionCookie(t, res)
	assert.True(t, cookie.HttpOnly)

	res, body = do(t, app, http.MethodGet, "/auth/profile", "", cookie)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ada@example.com", body["email"])

	res, body = do(t, app, http.MethodGet, "/api/instructor/courses", "", cookie)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, "ROLE_SELECTION_REQUIRED", body["code"])

	res, body = do(t, app, http.MethodPost, "/auth/role", `{"role":"instructor"}`, cookie)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	assert.Equal(t, "instructor", body["role"])
	cookie = sessionCookie(t, res)

	res, _ = do(t, app, http.MethodPost, "/auth/role", `{"role":"student"}`, cookie)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, body = do(t, app, http.MethodGet, "/api/instructor/courses", "", cookie)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "instructor", body["role"])

	res, body = do(t, app, http.MethodGet, "/api/admin/dashboard", "", cookie)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, "FORBIDDEN", body["code"])

	res, body = do(t, app, http.MethodGet, "/api/courses", "", cookie)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, true, body["personalized"])

	res, body = do(t, app, http.MethodPost, "/auth/logout", "", cookie)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "Logged out", body["message"])

	res, body = do(t, app, http.MethodGet, "/auth/profile", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "Unauthorized", body["message"])

	res, body = do(t, app, http.MethodGet, "/api/courses", "", cookie)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, false, body["personalized"])

	res, body = do(t, app, http.MethodPost, "/auth/login", `{"identifier":"ada@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	assert.Equal(t, "Bearer", body["token_type"])

	bearer := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	bearer.Header.Set("Authorization", "Bearer "+body["access_token"].(string))
	res, err := app.srv.Test(bearer, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestApp_BlockedAccount(t *testing.T) {
	app := setupApp(t)

	res, body := do(t, app, http.MethodPost, "/auth/register",
		`{"name":"Mallory","email":"mallory@example.com","password":"password123","confirm_password":"password123"}`)
	require.Equal(t, http.StatusCreated, res.StatusCode, body)
	cookie := sessionCookie(t, res)

	users := app.repo.Users()
	user, err := users.GetByIdentifier(context.Background(), "mallory@example.com")
	require.NoError(t, err)
	_, err = users.Block(context.Background(), user.ID)
	require.NoError(t, err)

	res, body = do(t, app, http.MethodGet, "/auth/profile", "", cookie)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.True(t, auth.IsBlockedMessage(body["message"].(string)))

	res, body = do(t, app, http.MethodPost, "/auth/login", `{"identifier":"mallory@example.com","password":"password123"}`)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, "Account blocked", body["message"])
}

func TestApp_SocialRoutes(t *testing.T) {
	app := setupApp(t)

	res, body := do(t, app, http.MethodGet, "/auth/providers", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.ElementsMatch(t, []any{"facebook", "github", "google"}, body["providers"])

	res, _ = do(t, app, http.MethodGet, "/auth/github?redirect_url=/courses", "")
	assert.Equal(t, http.StatusTemporaryRedirect, res.StatusCode)
	assert.Contains(t, res.Header.Get("Location"), "github.com/login/oauth/authorize")
	assert.Contains(t, res.Header.Get("Location"), "code_challenge_method=S256")

	res, _ = do(t, app, http.MethodGet, "/auth/github/callback?code=abc&state=forged", "")
	assert.Equal(t, http.StatusTemporaryRedirect, res.StatusCode)
	assert.Equal(t, "/login?error=auth_failed", res.Header.Get("Location"))
}

func TestApp_HealthAndAnonymous(t *testing.T) {
	app := setupApp(t)

	res, body := do(t, app, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "ok", body["status"])

	res, _ = do(t, app, http.MethodGet, "/api/admin/dashboard", "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, _ = do(t, app, http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestApp_AdminModeration(t *testing.T) {
	app := setupApp(t)
	ctx := context.Background()

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	admin, err := app.repo.Users().Register(ctx, &auth.User{
		ID:           uuid.New(),
		Name:         "Root",
		Email:        "root@example.com",
		Role:         auth.RoleAdmin,
		Status:       auth.UserStatusActive,
		PasswordHash: hash,
	})
	require.NoError(t, err)

	res, body := do(t, app, http.MethodPost, "/auth/login", `{"identifier":"root@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	adminCookie := sessionCookie(t, res)

	res, body = do(t, app, http.MethodPost, "/auth/register",
		`{"name":"Mallory","email":"mallory@example.com","password":"password123","confirm_password":"password123"}`)
	require.Equal(t, http.StatusCreated, res.StatusCode, body)
	userCookie := sessionCookie(t, res)
	userID := body["id"].(string)

	res, _ = do(t, app, http.MethodPost, "/api/admin/users/"+userID+"/block", "", userCookie)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, body = do(t, app, http.MethodPost, "/api/admin/users/"+userID+"/block", `{"reason":"spam"}`, adminCookie)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	assert.Equal(t, "blocked", body["status"])

	res, body = do(t, app, http.MethodGet, "/auth/profile", "", userCookie)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.True(t, auth.IsBlockedMessage(body["message"].(string)))

	res, body = do(t, app, http.MethodPost, "/api/admin/users/"+userID+"/unblock", "", adminCookie)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	assert.Equal(t, "active", body["status"])

	res, _ = do(t, app, http.MethodGet, "/auth/profile", "", userCookie)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, body = do(t, app, http.MethodPost, "/api/admin/users/"+admin.ID.String()+"/block", "", adminCookie)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, "FORBIDDEN", body["code"])

	res, body = do(t, app, http.MethodPost, "/api/admin/users/not-a-uuid/block", "", adminCookie)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])

	res, _ = do(t, app, http.MethodPost, "/api/admin/users/"+uuid.NewString()+"/block", "", adminCookie)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
