package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/worthlabs/worthhub/internal/server"
	"github.com/worthlabs/worthhub/internal/server/handler"
	"github.com/worthlabs/worthhub/internal/server/ws"
	"github.com/worthlabs/worthhub/internal/service"
)

// ServerMode runs the full stack: the topic service backed by Postgres,
// Redis locks and caches, the HTTP API, and the WebSocket event hub.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	topicSvc := a.buildTopicService(deps)

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			Mode:      a.cfg.Mode,
			StartedAt: time.Now().UTC(),
		})
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	a.startHTTPServer(ctx, g, deps, topicSvc, hub)

	return g.Wait()
}

// LiteMode serves the API from the in-memory store with no external
// dependencies. Intended for development and integration testing.
func (a *App) LiteMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting lite mode (in-memory store)")

	g, ctx := errgroup.WithContext(ctx)

	topicSvc := a.buildTopicService(deps)

	a.startHTTPServer(ctx, g, deps, topicSvc, nil)

	return g.Wait()
}

// buildTopicService assembles the TopicService from wired dependencies. Nil
// optional dependencies (locks, cache, bus, archiver) are simply skipped by
// the service.
func (a *App) buildTopicService(deps *Dependencies) *service.TopicService {
	if deps.Signer != nil {
		a.logger.Info("operator signer loaded",
			slog.String("identity", deps.Signer.Identity().Hex()),
		)
	}
	return service.NewTopicService(
		service.TopicServiceDeps{
			UoW:      deps.UoW,
			Locks:    deps.LockManager,
			Cache:    deps.TopicCache,
			Bus:      deps.SignalBus,
			Notifier: deps.Notifier,
			Archiver: deps.Archiver,
		},
		service.TopicServiceConfig{
			EscrowReserve: a.cfg.Topic.EscrowReserve,
			LockTTL:       a.cfg.Topic.LockTTL.Duration,
		},
		a.logger,
	)
}

// startHTTPServer adds the HTTP server goroutines to the given errgroup. The
// server is shut down gracefully when the context is cancelled.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	topicSvc *service.TopicService,
	hub *ws.Hub,
) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "HTTP server disabled by configuration")
		return
	}

	requireSig := a.cfg.Server.RequireSignedInstructions
	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(a.logger),
		Topics:      handler.NewTopicHandler(topicSvc, a.logger, requireSig),
		Commitments: handler.NewCommitmentHandler(topicSvc, a.logger, requireSig),
		Events:      handler.NewEventsHandler(topicSvc, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
			slog.Bool("require_signed_instructions", requireSig),
		)
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
