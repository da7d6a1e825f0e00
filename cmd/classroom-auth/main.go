package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	auth "github.com/goliatone/go-classroom-auth"
	"github.com/goliatone/go-classroom-auth/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("load config", zap.Error(err))
	}

	zl, err := auth.NewProductionLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &App{config: cfg, logger: auth.NewZapLogger(zl)}
	if err := Bootstrap(ctx, app); err != nil {
		zl.Fatal("bootstrap", zap.Error(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			zl.Error("close", zap.Error(err))
		}
	}()

	if err := Run(ctx, app); err != nil {
		zl.Error("server stopped", zap.Error(err))
	}
}

// Bootstrap wires every dependency in order.
func Bootstrap(ctx context.Context, app *App) error {
	steps := []func(context.Context, *App) error{
		WithPersistence,
		WithHTTPAuth,
		WithSocial,
		WithHTTPServer,
	}
	for _, step := range steps {
		if err := step(ctx, app); err != nil {
			return err
		}
	}
	return nil
}

// Run serves until ctx is cancelled, then shuts the server down.
func Run(ctx context.Context, app *App) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.GetLogger("http").Info("listening", "addr", app.config.HTTP.Addr)
		return app.srv.Listen(app.config.HTTP.Addr)
	})

	g.Go(func() error {
		<-gctx.Done()
		return app.srv.ShutdownWithTimeout(app.config.HTTP.ShutdownTimeout)
	})

	return g.Wait()
}
