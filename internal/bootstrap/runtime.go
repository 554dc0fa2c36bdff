// Package bootstrap wires the process-wide dependencies shared by the
// server and seeding commands.
package bootstrap

import (
	"fmt"

	"bulletin/internal/cache"
	"bulletin/internal/config"
	"bulletin/internal/database"
	"bulletin/internal/passhash"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Runtime holds the long-lived connections built from configuration.
type Runtime struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Hasher *passhash.Hasher
}

// Options control runtime initialization behavior.
type Options struct {
	// SkipRedis leaves Runtime.Redis nil, for commands that never rate limit.
	SkipRedis bool
}

// NewHasher builds the password hasher described by cfg.
func NewHasher(cfg *config.Config) (*passhash.Hasher, error) {
	return passhash.NewHasher(passhash.Options{
		Algorithm:  cfg.PasswordHashAlgorithm,
		DigestBits: cfg.PasswordDigestBits,
		Pepper:     cfg.PasswordPepper,
		Cost:       cfg.BcryptCost,
	})
}

// InitRuntime connects to the database and Redis and prepares the password
// hasher. Redis is optional: an unreachable server yields a nil client.
func InitRuntime(cfg *config.Config, opts Options) (*Runtime, error) {
	hasher, err := NewHasher(cfg)
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	rt := &Runtime{DB: db, Hasher: hasher}
	if !opts.SkipRedis {
		rt.Redis = cache.NewClient(cfg.RedisURL)
	}
	return rt, nil
}

// Close releases the database pool and the Redis client.
func (r *Runtime) Close() error {
	if r.Redis != nil {
		_ = r.Redis.Close()
	}
	if r.DB == nil {
		return nil
	}
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
