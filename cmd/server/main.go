package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/mpromonet/gin-yolo3/internal/cache"
	"github.com/mpromonet/gin-yolo3/internal/config"
	"github.com/mpromonet/gin-yolo3/internal/detector"
	"github.com/mpromonet/gin-yolo3/internal/server"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	addr := fs.String("addr", ":8080", "listen address")
	staticDir := fs.String("static", "./static", "directory served on /, empty to disable")
	redisAddress := fs.String("redis-address", "", "redis address used to cache detections, empty to disable")
	redisPassword := fs.String("redis-password", "", "redis password")
	redisDB := fs.Int("redis-db", 0, "redis database")
	cacheTTL := fs.Duration("cache-ttl", 10*time.Minute, "how long detections stay cached")
	release := fs.Bool("release", false, "run gin in release mode")

	cfg, err := config.ParseFlags(fs, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(level)

	if *release {
		gin.SetMode(gin.ReleaseMode)
	}

	det, err := detector.New(*cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer det.Close()

	var rdb *redis.Client
	if *redisAddress != "" {
		if tmp, err := cache.NewRedisClient(context.Background(), *redisAddress, *redisPassword, *redisDB); err != nil {
			log.Warn("[Main] redis unavailable, running without cache")
		} else {
			rdb = tmp
			defer func() {
				if err := rdb.Close(); err != nil {
					log.WithError(err).Error("[Main] cannot close redis client")
				}
			}()
		}
	}

	cached := cache.NewCachingDetector(rdb, *cacheTTL, det, "detections:"+cfg.Fingerprint())
	router := server.NewRouter(cached, *staticDir)

	srv := &http.Server{
		Addr:    *addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithFields(log.Fields{
			"addr":   *addr,
			"engine": cfg.Engine,
			"cache":  rdb != nil,
		}).Info("[Main] listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("[Main] server stopped")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("[Main] shutdown")
	}
}
