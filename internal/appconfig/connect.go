package appconfig

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/MrEthical07/clinicauth/account"
	"github.com/MrEthical07/clinicauth/store/pgstore"
	"github.com/MrEthical07/clinicauth/store/redisstore"
)

// Backends holds the live connections behind an engine.
type Backends struct {
	Redis *redis.Client
	Store account.Store
	// DB is nil for the redis store.
	DB *gorm.DB
}

// Connect opens Redis and the configured account store.
func (c *Config) Connect(ctx context.Context) (*Backends, error) {
	opts, err := c.RedisOptions()
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	b := &Backends{Redis: rdb}
	switch c.Store {
	case StoreRedis:
		b.Store = redisstore.New(rdb, c.Redis.Prefix)
	default:
		db, err := pgstore.Open(c.Postgres())
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("open database: %w", err)
		}
		b.DB = db
		b.Store = pgstore.New(db)
	}
	return b, nil
}

func (b *Backends) Close() {
	if b.DB != nil {
		if sqlDB, err := b.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = b.Redis.Close()
}
