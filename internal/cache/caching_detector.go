// Package cache provides a Redis backed result cache for detectors.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/mpromonet/gin-yolo3/internal/models"
)

// Detector is the part of the detector the cache decorates.
type Detector interface {
	DetectBytes(ctx context.Context, data []byte) ([]models.Detection, error)
	AnnotateBytes(ctx context.Context, data []byte) ([]byte, []models.Detection, error)
}

// CachingDetector stores detection results keyed by the image content.
// A nil client disables caching; Redis failures fall through to inner.
type CachingDetector struct {
	inner     Detector
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewCachingDetector defaults ttl to 10 minutes and namespace to "detections".
func NewCachingDetector(rdb *redis.Client, ttl time.Duration, inner Detector, namespace string) *CachingDetector {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if namespace == "" {
		namespace = "detections"
	}
	return &CachingDetector{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

func (c *CachingDetector) DetectBytes(ctx context.Context, data []byte) ([]models.Detection, error) {
	if c.rdb == nil {
		return c.inner.DetectBytes(ctx, data)
	}

	key := c.cacheKey(data)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []models.Detection
		if err := json.Unmarshal(b, &out); err == nil {
			log.WithField("key", key).Debug("[Cache] hit")
			return out, nil
		}
	} else if err != nil && err != redis.Nil {
		log.WithError(err).Warn("[Cache] get failed")
	}

	dets, err := c.inner.DetectBytes(ctx, data)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(dets); err == nil {
		if err := c.rdb.Set(ctx, key, string(b), c.ttl).Err(); err != nil {
			log.WithError(err).Warn("[Cache] set failed")
		}
	}
	return dets, nil
}

// AnnotateBytes always goes to the inner detector.
func (c *CachingDetector) AnnotateBytes(ctx context.Context, data []byte) ([]byte, []models.Detection, error) {
	return c.inner.AnnotateBytes(ctx, data)
}

func (c *CachingDetector) cacheKey(data []byte) string {
	sum := sha256.Sum256(data)
	return c.namespace + ":" + hex.EncodeToString(sum[:])
}
