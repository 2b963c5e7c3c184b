package daemon

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/HornetGeek/petow-frontend-sub000/internal/api"
	"github.com/HornetGeek/petow-frontend-sub000/internal/backend"
	"github.com/HornetGeek/petow-frontend-sub000/internal/bus"
	"github.com/HornetGeek/petow-frontend-sub000/internal/config"
	"github.com/HornetGeek/petow-frontend-sub000/internal/credentials"
	"github.com/HornetGeek/petow-frontend-sub000/internal/feed"
	"github.com/HornetGeek/petow-frontend-sub000/internal/feed/pgfeed"
	"github.com/HornetGeek/petow-frontend-sub000/internal/feed/redisfeed"
	"github.com/HornetGeek/petow-frontend-sub000/internal/feed/sqlitefeed"
	"github.com/HornetGeek/petow-frontend-sub000/internal/lock"
	"github.com/HornetGeek/petow-frontend-sub000/internal/logging"
	"github.com/HornetGeek/petow-frontend-sub000/internal/profile"
	"github.com/HornetGeek/petow-frontend-sub000/internal/room"
	"github.com/HornetGeek/petow-frontend-sub000/internal/status"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile    string
	SocketPath string // optional override for testing; empty = use default
	FeedID     string // room to open on start; empty = wait for Open
	// Config, if set, is used instead of loading ~/.peto/config.toml.
	Config *config.Config
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConfig,
			provideBus,
			provideStateMachine,
			provideLock,
			provideCredentials,
			provideBackend,
			provideFeedStore,
			provideSession,
			provideRoomService,
			provideHTTPServer,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.Profile), p.Profile)
}

func provideConfig(p Params) (*config.Config, error) {
	cfg := p.Config
	if cfg == nil {
		var err error
		if cfg, err = config.LoadWithEnv(profile.ConfigPath()); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile), p.Profile)
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideCredentials(p Params, cfg *config.Config) credentials.Provider {
	return credentials.NewFile(profile.TokenPath(p.Profile), cfg.API.Token)
}

func provideBackend(cfg *config.Config, creds credentials.Provider) *backend.Client {
	timeout := time.Duration(cfg.API.TimeoutSeconds) * time.Second
	return backend.New(cfg.API.BaseURL, creds,
		backend.WithAuthScheme(cfg.API.AuthScheme),
		backend.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
}

func provideFeedStore(p Params, cfg *config.Config, b *bus.Bus, logger *zap.Logger) (feed.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.Feed.Backend {
	case config.FeedSQLite, "":
		path := profile.FeedDBPath(p.Profile)
		store, err := sqlitefeed.Open(path,
			sqlitefeed.WithBus(b),
			sqlitefeed.WithPollInterval(time.Duration(cfg.Feed.PollIntervalMs)*time.Millisecond),
		)
		if err != nil {
			return nil, err
		}
		result, err := store.Migrate()
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		if result.Changed {
			logger.Info("migrations applied", zap.Uint("version", result.Version))
		} else {
			logger.Info("migrations up to date", zap.Uint("version", result.Version))
		}
		logger.Info("feed store initialized", zap.String("backend", "sqlite"), zap.String("path", path))
		return store, nil

	case config.FeedRedis:
		store, err := redisfeed.New(ctx, cfg.Feed.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis feed: %w", err)
		}
		logger.Info("feed store initialized", zap.String("backend", "redis"))
		return store, nil

	case config.FeedPostgres:
		store, err := pgfeed.New(ctx, cfg.Feed.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres feed: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		logger.Info("feed store initialized", zap.String("backend", "postgres"))
		return store, nil

	default:
		return nil, fmt.Errorf("unknown feed backend %q", cfg.Feed.Backend)
	}
}

func provideSession(cfg *config.Config, be *backend.Client, store feed.Store, b *bus.Bus, m *status.Machine, logger *zap.Logger) *room.Session {
	return room.NewSession(room.Options{
		Backend:                  be,
		Store:                    store,
		User:                     room.User{ID: cfg.User.ID, Name: cfg.User.Name},
		IncludeCounterpartInMeta: cfg.Chat.IncludeCounterpartInMeta,
		Bus:                      b,
		Machine:                  m,
		Logger:                   logger,
	})
}

func provideRoomService(p Params, session *room.Session, b *bus.Bus, logger *zap.Logger) *api.RoomService {
	return api.NewRoomService(p.Profile, session, b, logger)
}

func provideHTTPServer(p Params, cfg *config.Config, session *room.Session, store feed.Store, logger *zap.Logger) *HTTPServer {
	pinger, _ := store.(Pinger)
	return NewHTTPServer(cfg.HTTP.Addr, NewRouter(p.Profile, session, pinger), logger)
}

func registerLifecycle(lc fx.Lifecycle, p Params, srv *Server, httpSrv *HTTPServer, lk *lock.Lock, store feed.Store, session *room.Session, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			if err := httpSrv.Start(); err != nil {
				return fmt.Errorf("start http server: %w", err)
			}

			if p.FeedID != "" {
				go func() {
					if err := session.Open(context.Background(), p.FeedID); err != nil {
						logger.Error("open room failed", zap.String("feed_id", p.FeedID), zap.Error(err))
					}
				}()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			session.Close()
			srv.Stop(ctx)
			httpSrv.Stop(ctx)
			if err := store.Close(); err != nil {
				logger.Warn("error closing feed store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
