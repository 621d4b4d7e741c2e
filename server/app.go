package server

import (
	"context"
	"fmt"

	"asterplayer/config"
	"asterplayer/core/bridge"
	"asterplayer/core/charm"
	"asterplayer/core/gate"
	"asterplayer/core/gateway"
	"asterplayer/core/inbox"
	"asterplayer/core/tracksync"
	"asterplayer/db"
	"asterplayer/logger"
	"asterplayer/model"
	"asterplayer/repository"
	"asterplayer/storage"
)

// App holds every component of a running player service.
type App struct {
	Config    *config.Config
	Catalog   *charm.Catalog
	Store     repository.TrackStore
	Sync      *tracksync.Synchronizer
	Gateway   *gateway.Gateway
	Gate      *gate.Gate
	Allowlist *bridge.Allowlist
	Relay     *bridge.Relay
	Vault     *storage.AudioVault         // nil when offload is disabled
	History   repository.HistoryRepository // nil when the ledger is disabled

	closers []func() error
}

// NewApp connects the configured backends and wires the components.
// Optional backends (MinIO, MySQL) that fail to connect are disabled with
// a warning; the track store is required unless offline fallback is on.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		Config:    cfg,
		Catalog:   charm.DefaultCatalog(),
		Allowlist: bridge.NewAllowlist(cfg.PartnerOrigins...),
	}

	switch cfg.StoreDriver {
	case "memory":
		app.Store = repository.NewMemoryTrackStore(nil)
		logger.Warn("using in-memory track store; tracks are lost on restart")
	default:
		client, err := db.ConnectRedis(cfg)
		if err != nil {
			if !cfg.OfflineFallback {
				client.Close()
				return nil, err
			}
			logger.Warn("redis unreachable, placeholder tracks will be shown until it returns",
				logger.String("addr", cfg.RedisAddr()),
				logger.ErrorField(err))
		} else {
			logger.Info("connected to redis", logger.String("addr", cfg.RedisAddr()))
		}
		app.Store = repository.NewRedisTrackStore(client, cfg.TrackCollection)
		app.closers = append(app.closers, db.CloseRedis)
	}

	if cfg.HistoryEnabled() {
		gdb, err := db.ConnectGormDB(cfg)
		if err == nil {
			err = db.AutoMigrateModels(&model.TrackHistory{})
		}
		if err != nil {
			logger.Warn("history ledger disabled", logger.ErrorField(err))
		} else {
			app.History = repository.NewGormHistoryRepository(gdb)
			app.closers = append(app.closers, db.CloseGormDB)
		}
	}

	if cfg.OffloadEnabled() {
		vault, err := storage.NewAudioVault(ctx, cfg)
		if err != nil {
			logger.Warn("audio offload disabled", logger.ErrorField(err))
		} else {
			app.Vault = vault
		}
	}

	if err := app.wire(); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// NewTestApp wires an App over an existing store with no optional
// backends. It is meant for tests and tooling.
func NewTestApp(cfg *config.Config, store repository.TrackStore) (*App, error) {
	app := &App{
		Config:    cfg,
		Catalog:   charm.DefaultCatalog(),
		Store:     store,
		Allowlist: bridge.NewAllowlist(cfg.PartnerOrigins...),
	}
	if err := app.wire(); err != nil {
		return nil, err
	}
	return app, nil
}

// wire builds the components that sit on top of the backends.
func (a *App) wire() error {
	g, err := gate.New(a.Config.DeletePasswordHash, a.Config.DeleteSessionTTL)
	if err != nil {
		return fmt.Errorf("init delete gate: %w", err)
	}
	a.Gate = g
	if !g.Enabled() {
		logger.Info("DELETE_PASSWORD_HASH not set, track deletion is locked")
	}

	opts := []gateway.Option{
		gateway.WithSource(model.SourceAlarm),
		gateway.WithTimeout(a.Config.WriteTimeout),
	}
	if a.Vault != nil {
		opts = append(opts, gateway.WithOffloader(a.Vault))
	}
	if a.History != nil {
		opts = append(opts, gateway.WithLedger(a.History, a.Catalog))
	}
	a.Gateway = gateway.New(a.Store, opts...)
	a.Relay = bridge.NewRelay(a.Allowlist, a.Gateway)

	var syncOpts []tracksync.Option
	if a.Config.OfflineFallback {
		syncOpts = append(syncOpts, tracksync.WithFallback(tracksync.PlaceholderTracks(a.Catalog)))
	}
	a.Sync = tracksync.New(a.Store, a.Catalog, syncOpts...)
	return nil
}

// NewInbox creates the inbox watcher for the configured directory.
func (a *App) NewInbox() (*inbox.Watcher, error) {
	return inbox.New(a.Config.InboxDir, a.Gateway)
}

// Close releases backend connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close backend", logger.ErrorField(err))
		}
	}
	a.closers = nil
}
