// Package chessbuilder wires the storage backends, auth, the websocket hub
// and the HTTP router from configuration.
package chessbuilder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emna-bh/EchecGame/internal/auth"
	"github.com/emna-bh/EchecGame/internal/config"
	"github.com/emna-bh/EchecGame/internal/connreg"
	"github.com/emna-bh/EchecGame/internal/httpapi"
	"github.com/emna-bh/EchecGame/internal/msgcat"
	"github.com/emna-bh/EchecGame/internal/presence"
	"github.com/emna-bh/EchecGame/internal/pvp"
	"github.com/emna-bh/EchecGame/internal/pvpchess"
	"github.com/emna-bh/EchecGame/internal/render"
	"github.com/emna-bh/EchecGame/internal/session"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deps struct {
	Router   *chi.Mux
	Hub      *session.Hub
	Store    pvpchess.Store
	Auth     *auth.Service
	Messages *msgcat.Catalog

	// Redis and DB are nil when the backend does not use them.
	Redis *redis.Client
	DB    *sql.DB
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	msgs, err := msgcat.New(cfg.Server.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	d := &Deps{Messages: msgs}

	// Postgres is optional: it backs user accounts and the finished-game
	// archive when configured.
	var archive *pvpchess.Archive
	var users auth.UserRepository = auth.NewMemoryUserRepository()
	if cfg.Store.DatabaseURL != "" {
		db, err := openPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		d.DB = db
		pgUsers := auth.NewPostgresUserRepository(db)
		if err := pgUsers.EnsureSchema(ctx); err != nil {
			d.Close()
			return nil, fmt.Errorf("users schema: %w", err)
		}
		archive = pvpchess.NewArchive(db)
		if err := archive.EnsureSchema(ctx); err != nil {
			d.Close()
			return nil, fmt.Errorf("archive schema: %w", err)
		}
		users = pgUsers
	} else {
		logger.Warn("database_url_missing", zap.String("effect", "accounts and results are kept in memory"))
	}

	var tokens auth.TokenStore
	switch cfg.Store.Backend {
	case config.BackendRedis:
		rdb, err := pvpchess.NewRedisClient(ctx, cfg.Store.RedisURL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("init redis: %w", err)
		}
		d.Redis = rdb
		rs := pvpchess.NewRedisStore(rdb, pvpchess.WithTTL(cfg.Store.GameTTL))
		if archive != nil {
			rs.AttachArchive(archive)
		}
		d.Store = rs
		tokens = auth.NewRedisTokenStore(rdb)
	case config.BackendMemory:
		ms := pvpchess.NewMemoryStore()
		if archive != nil {
			ms.AttachArchive(archive)
		}
		d.Store = ms
		tokens = auth.NewMemoryTokenStore()
	default:
		d.Close()
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	d.Auth, err = auth.NewService(users, tokens, auth.Options{
		BcryptCost: cfg.Auth.BcryptCost,
		TokenTTL:   cfg.Auth.TokenTTL,
		Logger:     logger.Named("auth"),
	})
	if err != nil {
		d.Close()
		return nil, err
	}

	var coin pvp.Coin = pvp.CryptoCoin{}
	if cfg.Server.CoinSeed != 0 {
		logger.Warn("coin_seeded", zap.Uint64("seed", cfg.Server.CoinSeed))
		coin = pvp.NewSeededCoin(cfg.Server.CoinSeed)
	}

	reg := presence.NewMemory()
	d.Hub, err = session.NewHub(session.Options{
		Auth:           d.Auth,
		Store:          d.Store,
		Presence:       reg,
		Conns:          connreg.New(),
		Coin:           coin,
		Messages:       msgs,
		Logger:         logger.Named("ws"),
		WriteTimeout:   cfg.Server.WSWriteTimeout,
		AllowedOrigins: cfg.Server.WSAllowedOrigins,
	})
	if err != nil {
		d.Close()
		return nil, err
	}

	d.Router = httpapi.NewRouter(httpapi.Deps{
		Auth:     d.Auth,
		Store:    d.Store,
		Presence: reg,
		Hub:      d.Hub,
		Renderer: render.New(),
		Messages: msgs,
		Logger:   logger.Named("http"),
	})
	return d, nil
}

// Close releases the Redis client and the Postgres pool.
func (d *Deps) Close() error {
	var errs []error
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	if d.DB != nil {
		errs = append(errs, d.DB.Close())
	}
	return errors.Join(errs...)
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
