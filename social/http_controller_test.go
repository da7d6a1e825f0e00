package social

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-classroom-auth"
)

type recordingSession struct {
	tokens []string
}

func (r *recordingSession) Issue(_ *fiber.Ctx, token string, _ time.Duration) {
	r.tokens = append(r.tokens, token)
}

func newControllerApp(fx *federationFixture, session SessionWriter) *fiber.App {
	app := fiber.New()
	controller := NewHTTPController(fx.federation, session, HTTPConfig{Logger: nopLogger{}})
	controller.RegisterRoutes(app.Group("/auth"))
	return app
}

func TestHTTPControllerProviders(t *testing.T) {
	fx := newFederationFixture(stubProvider("google", adaProfile(), nil))
	app := newControllerApp(fx, &recordingSession{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/auth/providers", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPControllerBeginRedirects(t *testing.T) {
	fx := newFederationFixture(stubProvider("google", adaProfile(), nil))
	app := newControllerApp(fx, &recordingSession{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/auth/google?redirect_url=/courses", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "provider.example.com", location.Host)
}

func TestHTTPControllerBeginUnknownProvider(t *testing.T) {
	fx := newFederationFixture(stubProvider("google", adaProfile(), nil))
	app := newControllerApp(fx, &recordingSession{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/auth/myspace", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPControllerCallbackUnsetRoleGoesToRoleSelection(t *testing.T) {
	fx := newFederationFixture(stubProvider("google", adaProfile(), nil))
	session := &recordingSession{}
	app := newControllerApp(fx, session)

	redirect, err := fx.federation.Begin(context.Background(), "google", "/courses")
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state="+redirect.State, nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/select-role", resp.Header.Get("Location"))
	require.Len(t, session.tokens, 1)
}

func TestHTTPControllerCallbackWithRole(t *testing.T) {
	fx := newFederationFixture(stubProvider("google", adaProfile(), nil))
	fx.store.user.Role = auth.RoleStudent
	session := &recordingSession{}
	app := newControllerApp(fx, session)

	redirect, err := fx.federation.Begin(context.Background(), "google", "/courses")
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state="+redirect.State, nil))
	require.NoError(t, err)

	assert.Equal(t, "/courses", resp.Header.Get("Location"))
}

func TestHTTPControllerCallbackFailureIsGeneric(t *testing.T) {
	fx := newFederationFixture(stubProvider("google", adaProfile(), nil))
	session := &recordingSession{}
	app := newControllerApp(fx, session)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/auth/google/callback?error=access_denied&error_description=nope", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/login?error=auth_failed", resp.Header.Get("Location"))
	assert.Empty(t, session.tokens)
}
