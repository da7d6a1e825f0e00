package main

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-classroom-auth"
	"github.com/goliatone/go-classroom-auth/adapters/redisstore"
	"github.com/goliatone/go-classroom-auth/config"
	"github.com/goliatone/go-classroom-auth/middleware/jwtware"
	"github.com/goliatone/go-classroom-auth/repository"
	"github.com/goliatone/go-classroom-auth/social"
	"github.com/goliatone/go-classroom-auth/social/providers/facebook"
	"github.com/goliatone/go-classroom-auth/social/providers/github"
	"github.com/goliatone/go-classroom-auth/social/providers/google"
)

// App holds the wired server dependencies.
type App struct {
	config config.Config
	logger *auth.ZapLogger
	db     *bun.DB
	redis  redis.UniversalClient
	repo   *repository.Manager
	auther *auth.Auther
	routes *auth.RouteAuthenticator
	social *social.Federation
	srv    *fiber.App

	accounts auth.UserStateMachine
}

func (a *App) GetLogger(name string) auth.Logger {
	return a.logger.Named(name)
}

// Close releases the database and redis connections.
func (a *App) Close() error {
	var err error
	if a.redis != nil {
		if cerr := a.redis.Close(); cerr != nil {
			err = errors.Wrap(cerr, "close redis")
		}
	}
	if a.db != nil {
		if cerr := a.db.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close db")
		}
	}
	return err
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := repository.Open(ctx, app.config.DB.Driver, app.config.DB.DSN)
	if err != nil {
		return err
	}
	app.db = db

	app.repo = repository.NewManager(db)
	if err := app.repo.Validate(); err != nil {
		return err
	}
	return app.repo.CreateSchema(ctx)
}

// WithRevocations connects redis when configured. Without it logout only
// clears the cookie.
func WithRevocations(ctx context.Context, app *App) (auth.RevocationStore, error) {
	if app.config.Redis.URL == "" {
		app.GetLogger("redis").Info("no redis configuration detected; revocation disabled")
		return nil, nil
	}

	client, err := redisstore.Connect(ctx, app.config.Redis.URL)
	if err != nil {
		return nil, err
	}
	app.redis = client

	return redisstore.New(client, redisstore.WithPrefix(app.config.Redis.Prefix)), nil
}

func WithHTTPAuth(ctx context.Context, app *App) error {
	revocations, err := WithRevocations(ctx, app)
	if err != nil {
		return err
	}

	cfg := app.config
	app.auther = auth.NewAuthenticator(app.repo.Users(), cfg).
		WithLogger(app.GetLogger("auth")).
		WithActivitySink(auth.LoggerActivitySink(app.GetLogger("activity")))

	if revocations != nil {
		app.auther.WithRevocationStore(revocations)
	}

	if prev := cfg.GetPreviousSigningKey(); prev != "" {
		rotated := auth.NewTokenService(
			[]byte(prev),
			app.auther.TokenService().TTL(),
			cfg.GetIssuer(),
			jwt.ClaimStrings(cfg.GetAudience()),
			app.GetLogger("auth"),
		)
		app.auther.WithTokenValidator(auth.NewMultiTokenValidator(app.auther.TokenService(), rotated))
	}

	app.accounts = auth.NewUserStateMachine(app.repo.Users(),
		auth.WithStateMachineActivitySink(auth.LoggerActivitySink(app.GetLogger("activity"))),
		auth.WithStateMachineLogger(app.GetLogger("accounts")),
		auth.WithBeforeTransitionHook(preventSelfBlock),
	)

	routes, err := auth.NewHTTPAuthenticator(app.auther, cfg)
	if err != nil {
		return err
	}
	app.routes = routes.WithLogger(app.GetLogger("http"))

	return nil
}

func WithSocial(_ context.Context, app *App) error {
	cfg := app.config
	logger := app.GetLogger("social")

	registry := social.NewRegistry()
	factories := map[string]func(social.ProviderConfig) social.Provider{
		google.Name:   google.New,
		github.Name:   github.New,
		facebook.Name: facebook.New,
	}

	for name, pcfg := range cfg.Providers() {
		if pcfg.Placeholder() {
			logger.Warn("oauth provider uses placeholder credentials", "provider", name)
		}
		registry.Register(factories[name](social.ProviderConfig{
			ClientID:     pcfg.ClientID,
			ClientSecret: pcfg.ClientSecret,
			CallbackURL:  pcfg.CallbackURL,
			Scopes:       pcfg.Scopes,
		}))
	}

	app.social = social.NewFederation(
		registry,
		app.repo.SocialAccounts(),
		app.auther,
		social.WithStateManager(social.NewStateManagerFromSecret(cfg.OAuthStateSecret, cfg.OAuthStateTTL)),
		social.WithStateTTL(cfg.OAuthStateTTL),
		social.WithActivitySink(auth.LoggerActivitySink(app.GetLogger("activity"))),
		social.WithLogger(logger),
	)

	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	app.srv = fiber.New(fiber.Config{
		AppName:      "classroom-auth",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var ferr *fiber.Error
			if errors.As(err, &ferr) {
				return c.Status(ferr.Code).JSON(fiber.Map{"message": ferr.Message})
			}
			var aerr *auth.Error
			if errors.As(err, &aerr) && aerr.Kind != auth.KindInternal {
				return c.Status(auth.HTTPStatus(aerr)).JSON(fiber.Map{"message": aerr.Message, "code": aerr.TextCode})
			}
			app.GetLogger("http").Error("unhandled error", "error", err, "path", c.Path())
			return c.Status(auth.HTTPStatus(err)).JSON(fiber.Map{"message": "Internal Server Error"})
		},
	})

	app.srv.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	group := app.srv.Group("/auth")
	auth.RegisterAuthRoutes(group,
		auth.WithRouteAuthenticator(app.routes),
		auth.WithControllerLogger(app.GetLogger("controller")),
	)

	social.NewHTTPController(app.social, app.routes.Transport(), social.HTTPConfig{
		CookieDuration: app.routes.GetCookieDuration(),
		Logger:         app.GetLogger("social"),
	}).RegisterRoutes(group)

	ProtectedRoutes(app)

	return nil
}

// ProtectedRoutes mounts the demonstration API surfaces behind the guard.
func ProtectedRoutes(app *App) {
	api := app.srv.Group("/api")

	api.Get("/courses", app.routes.Protect(jwtware.ModeOptional, CoursesIndex))

	api.Get("/instructor/courses",
		app.routes.ProtectedRoute(jwtware.ModeMandatory, auth.RoleInstructor, auth.RoleAdmin),
		InstructorCourses,
	)

	AdminRoutes(app, api)
}

// CoursesIndex renders differently for anonymous and signed in callers.
func CoursesIndex(c *fiber.Ctx, claims auth.AuthClaims) error {
	if claims == nil {
		return c.JSON(fiber.Map{"personalized": false})
	}
	return c.JSON(fiber.Map{
		"personalized": true,
		"user_id":      claims.UserID(),
		"role":         claims.Role(),
	})
}

func InstructorCourses(c *fiber.Ctx) error {
	claims, ok := auth.GetRouterClaims(c, "")
	if !ok {
		return auth.ErrUnauthenticated
	}
	return c.JSON(fiber.Map{"owner": claims.UserID(), "role": claims.Role()})
}
