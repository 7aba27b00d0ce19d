package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const pingTimeout = 2 * time.Second

// NewRedisClient connects and pings; the caller runs without cache on error.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).WithField("address", addr).Error("[Cache] redis connection failed")
		_ = rdb.Close()
		return nil, err
	}

	log.WithField("address", addr).Info("[Cache] redis connection successful")
	return rdb, nil
}
