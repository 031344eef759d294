package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/stakevault/internal/domain"
	"github.com/alanyoungcy/stakevault/internal/notify"
	"github.com/alanyoungcy/stakevault/internal/server"
	"github.com/alanyoungcy/stakevault/internal/server/handler"
	"github.com/alanyoungcy/stakevault/internal/server/ws"
)

// SimMode runs the ledger on in-memory stores with the token simulator. It
// seeds a demo catalog so the API is usable immediately, then serves HTTP if
// enabled.
func (a *App) SimMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sim mode")

	if err := a.seedSimCatalog(ctx, deps); err != nil {
		return fmt.Errorf("sim mode: seed catalog: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.cfg.Server.Enabled {
		// No signal bus in sim mode, so no WebSocket hub.
		a.startHTTPServer(ctx, g, deps, nil)
	} else {
		a.logger.InfoContext(ctx, "sim mode: server disabled, idling until shutdown")
		g.Go(func() error {
			<-ctx.Done()
			return ctx.Err()
		})
	}

	return g.Wait()
}

// ServerMode runs the ledger over Postgres, Redis, and the on-chain token
// client, serving the HTTP and WebSocket API.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(deps.SignalBus, a.cfg.Mode, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	a.startHTTPServer(ctx, g, deps, hub)

	return g.Wait()
}

// FullMode is server mode plus the background archiver and event
// notifications.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(deps.SignalBus, a.cfg.Mode, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	a.startHTTPServer(ctx, g, deps, hub)

	if deps.Archiver != nil {
		g.Go(func() error {
			return a.runArchiveLoop(ctx, deps)
		})
	}

	listener := notify.NewListener(deps.SignalBus, deps.Notifier, a.logger)
	g.Go(func() error {
		return listener.Run(ctx)
	})

	return g.Wait()
}

// runArchiveLoop exports and prunes old audit entries and withdrawn positions
// on the configured interval.
func (a *App) runArchiveLoop(ctx context.Context, deps *Dependencies) error {
	interval := a.cfg.Archive.Interval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour

	a.logger.InfoContext(ctx, "archive loop started",
		slog.Duration("interval", interval),
		slog.Int("retention_days", a.cfg.Archive.RetentionDays),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-retention)
			if err := deps.Archiver.Run(ctx, cutoff); err != nil {
				a.logger.ErrorContext(ctx, "archive run failed",
					slog.Time("cutoff", cutoff),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// seedSimCatalog grants the service owner stake-owner rights and appends a
// small demo catalog covering every deposit type.
func (a *App) seedSimCatalog(ctx context.Context, deps *Dependencies) error {
	engine := deps.Engine
	owner := common.HexToAddress(a.cfg.Ledger.ServiceOwner)

	if err := deps.AuthorityStore.AddStakeOwner(ctx, engine.StakeToken(), owner); err != nil {
		return err
	}

	seed := []domain.StakeOption{
		{PeriodInDays: 30, BonusInPercentage: 1000, RewardToken: engine.RewardToken(), DepositType: domain.DepositImmediate},
		{PeriodInDays: 168, BonusInPercentage: 2000, RewardToken: engine.RewardToken(), DepositType: domain.DepositShortTerm},
		{PeriodInDays: 364, BonusInPercentage: 33333, RewardToken: engine.RewardToken(), DepositType: domain.DepositLongTerm},
	}
	for _, opt := range seed {
		if _, err := engine.AddOption(ctx, owner, engine.StakeToken(), opt); err != nil {
			return err
		}
	}

	a.logger.InfoContext(ctx, "sim catalog seeded", slog.Int("options", len(seed)))
	return nil
}

// startHTTPServer adds the HTTP server goroutines to the given errgroup. The
// server is shut down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, hub *ws.Hub) {
	engine := deps.Engine

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(a.cfg.Mode, engine.StakeToken(), engine.RewardToken(), a.logger),
		Options:   handler.NewOptionHandler(engine, a.logger),
		Positions: handler.NewPositionHandler(engine, a.logger),
		Balance:   handler.NewBalanceHandler(engine, a.logger),
		Admin:     handler.NewAdminHandler(engine, deps.AuditStore, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKeys:         a.cfg.Server.APIKeys,
		AdminKeys:       a.cfg.Server.AdminKeys,
		RateLimitPerMin: a.cfg.Server.RateLimitPerMin,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
