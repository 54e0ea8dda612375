package app

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/p2pchat/internal/config"
	"github.com/vovakirdan/p2pchat/internal/core"
	transporthttp "github.com/vovakirdan/p2pchat/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hub := core.NewHub(HubOptions(cfg), logger)
	server := transporthttp.NewServer(hub, *cfg, logger)

	logger.Info().
		Str("join_policy", cfg.JoinPolicy).
		Strs("permanent_rooms", cfg.PermanentRooms).
		Bool("chat_relay", cfg.AllowChatRelay).
		Dur("resync_interval", cfg.ResyncInterval).
		Msg("signaling hub configured")

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		log:             logger,
	}, nil
}

// HubOptions translates server configuration into hub options.
func HubOptions(cfg *config.Config) core.Options {
	return core.Options{
		ResyncInterval: cfg.ResyncInterval,
		JoinPolicy:     core.JoinPolicy(cfg.JoinPolicy),
		PermanentRooms: cfg.PermanentRooms,
		AllowChatRelay: cfg.AllowChatRelay,
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go a.hub.Run(hubCtx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("signaling server listening")
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
		// Hijacked websocket connections are not tracked by Shutdown; they end
		// when the hub closes their event streams.
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}

		return <-serverErr
	}
}
