package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jrsteele09/go-auth-session/internal/config"
	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/storage/memory"
	"github.com/jrsteele09/go-auth-session/storage/redisstore"
	"github.com/jrsteele09/go-auth-session/storage/securefile"
	"github.com/jrsteele09/go-auth-session/storage/sqlitestore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Backend names accepted by Open
const (
	BackendSecure = "secure"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

var (
	_ Backend = (*memory.Store)(nil)
	_ Backend = (*securefile.Store)(nil)
	_ Backend = (*redisstore.Store)(nil)
	_ Backend = (*sqlitestore.Store)(nil)
)

// Open builds the backend named by cfg. When secure storage is requested but no
// passphrase is configured it degrades to the in-memory backend.
func Open(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	switch cfg.GetStorageBackend() {
	case BackendSecure:
		store, err := securefile.Open(cfg.GetStoragePath(), cfg.GetStoragePassphrase())
		if autherrors.Is(err, autherrors.ErrStorageLocked) {
			log.Warn().Msg("Secure storage unavailable, falling back to in-memory storage")
			return memory.New(), nil
		}
		if err != nil {
			return nil, autherrors.Wrapf(err, "opening secure storage")
		}
		return store, nil
	case BackendMemory:
		return memory.New(), nil
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, autherrors.Wrapf(err, "connecting to redis at %s", cfg.GetRedisAddr())
		}
		return redisstore.New(client, "", 0), nil
	case BackendSQLite:
		store, err := sqlitestore.Open(ctx, filepath.Join(cfg.GetStoragePath(), "session.db"))
		if err != nil {
			return nil, autherrors.Wrapf(err, "opening sqlite storage")
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", autherrors.ErrUnknownBackend, cfg.GetStorageBackend())
	}
}
