package app

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/zerochat/zerochat-server/internal/config"
	"github.com/zerochat/zerochat-server/internal/core"
	"github.com/zerochat/zerochat-server/internal/metrics"
	transporthttp "github.com/zerochat/zerochat-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	throttle        *core.Throttle
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) *App {
	m := metrics.New()

	registry := core.NewRegistry(core.RegistryOptions{
		CountOnRejoin:   cfg.Registry.CountOnRejoin,
		AbsentRoomCount: cfg.Registry.AbsentRoomCount,
	})
	throttle := core.NewThrottle(core.ThrottleOptions{
		Window:        cfg.Throttle.Window,
		Limit:         cfg.Throttle.Limit,
		Policy:        core.ThrottlePolicy(cfg.Throttle.Policy),
		SweepInterval: cfg.Throttle.SweepInterval,
		IdleTTL:       cfg.Throttle.IdleTTL,
	})
	hub := core.NewHub(registry, throttle, m, logger)

	server := transporthttp.NewServer(hub, m, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		throttle:        throttle,
		log:             logger,
	}
}

// Run starts the hub loop, the throttle sweeper, and the HTTP server, and
// blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)
	go a.throttle.Run(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
