package social

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	auth "github.com/goliatone/go-classroom-auth"
)

// SessionWriter sets the session cookie after a successful federation.
type SessionWriter interface {
	Issue(c *fiber.Ctx, token string, duration time.Duration)
}

// HTTPController handles social auth HTTP routes.
type HTTPController struct {
	federation *Federation
	session    SessionWriter
	config     HTTPConfig
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// CookieDuration is how long the session cookie lives (default: 24h)
	CookieDuration time.Duration

	// RoleSelectionRedirect is where users without a role land (default: "/select-role")
	RoleSelectionRedirect string

	// ErrorRedirect is the redirect for auth errors
	ErrorRedirect string

	Logger auth.Logger
}

// NewHTTPController creates a new social auth HTTP controller.
func NewHTTPController(federation *Federation, session SessionWriter, cfg HTTPConfig) *HTTPController {
	if cfg.CookieDuration <= 0 {
		cfg.CookieDuration = 24 * time.Hour
	}
	if cfg.RoleSelectionRedirect == "" {
		cfg.RoleSelectionRedirect = "/select-role"
	}
	if cfg.ErrorRedirect == "" {
		cfg.ErrorRedirect = "/login?error=auth_failed"
	}
	if cfg.Logger == nil {
		cfg.Logger = auth.DefaultLogger()
	}

	return &HTTPController{
		federation: federation,
		session:    session,
		config:     cfg,
	}
}

// RegisterRoutes registers social auth routes. The wildcard provider
// routes go last so /providers is not captured by them.
func (c *HTTPController) RegisterRoutes(group fiber.Router) {
	group.Get("/providers", c.ListProviders)
	group.Get("/:provider/callback", c.Callback)
	group.Get("/:provider", c.BeginAuth)
}

// ListProviders returns available social providers.
func (c *HTTPController) ListProviders(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"providers": c.federation.Providers(),
	})
}

// BeginAuth starts the OAuth flow.
func (c *HTTPController) BeginAuth(ctx *fiber.Ctx) error {
	redirect, err := c.federation.Begin(ctx.UserContext(), ctx.Params("provider"), ctx.Query("redirect_url"))
	if err != nil {
		if auth.KindOf(err) == auth.KindNotFound {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Unknown provider"})
		}
		return c.handleError(ctx, err)
	}

	return ctx.Redirect(redirect.URL, http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback. Users without a role are sent to
// role selection, everyone else to where the flow started.
func (c *HTTPController) Callback(ctx *fiber.Ctx) error {
	result, err := c.federation.Complete(ctx.UserContext(), CallbackParams{
		Provider:         ctx.Params("provider"),
		Code:             ctx.Query("code"),
		State:            ctx.Query("state"),
		Error:            ctx.Query("error"),
		ErrorDescription: ctx.Query("error_description"),
	})
	if err != nil {
		return c.handleError(ctx, err)
	}

	c.session.Issue(ctx, result.Token, c.config.CookieDuration)

	redirectURL := result.RedirectURL
	if result.User.Role.IsUnset() {
		redirectURL = c.config.RoleSelectionRedirect
	}

	if result.IsNewUser {
		redirectURL = appendQueryParam(redirectURL, "new_user", "true")
	}

	return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
}

// handleError never exposes failure details: the user is sent to the login
// surface with a generic error marker.
func (c *HTTPController) handleError(ctx *fiber.Ctx, err error) error {
	c.config.Logger.Info("social auth error", "error", err, "kind", auth.KindOf(err), "path", ctx.OriginalURL())

	return ctx.Redirect(c.config.ErrorRedirect, http.StatusTemporaryRedirect)
}

func appendQueryParam(rawURL, key, value string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err == nil {
		query := parsed.Query()
		query.Set(key, value)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
