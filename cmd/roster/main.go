package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"github.com/pnp-roster/roster"
	"github.com/pnp-roster/roster/avatar"
	"github.com/pnp-roster/roster/cmd/roster/config"
	"github.com/pnp-roster/roster/internal/logger"
	"github.com/pnp-roster/roster/internal/version"
	"github.com/pnp-roster/roster/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configFile string
	if len(os.Args) > 1 {
		configFile = os.Args[1]
	}
	if err := run(configFile); err != nil {
		log.WithError(err).Fatal("roster stopped")
	}
}

func run(configFile string) error {
	c, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if err = logger.Init(c.Logging.InternalLoggerConf()); err != nil {
		return err
	}
	log.WithField("version", version.VERSION).Info("Loaded Config")

	ladder, err := c.Ranks.Ladder()
	if err != nil {
		return err
	}
	backs, err := config.LoadStorageBackends(c)
	if err != nil {
		return err
	}
	defer func() {
		if err := backs.Close(); err != nil {
			log.WithError(err).Error("could not close storage backend")
		}
	}()
	seed, err := c.Seed.Build(ladder)
	if err != nil {
		return err
	}
	if _, err = storage.Seed(backs.Members, seed); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var avatars roster.AvatarCache
	if !c.Avatar.Disabled {
		opts := avatar.Options{
			TTL:     c.Avatar.TTL.Duration(),
			Fetcher: avatar.NewRobloxClient(c.Avatar.RobloxConfig()),
			Metrics: avatar.NewMetrics(registry),
		}
		if c.Caching.Enabled() {
			tier, err := avatar.NewRedisTier(ctx, c.Caching.RedisConfig())
			if err != nil {
				log.WithError(err).Warn("could not init redis avatar cache, continuing with the in-process cache only")
			} else {
				defer tier.Close()
				opts.Shared = tier
				log.Info("Loaded Redis Cache")
			}
		}
		cache := avatar.NewCache(opts)
		sweeper := avatar.NewSweeper(cache, c.Avatar.SweepInterval.Duration())
		sweeper.Start()
		defer sweeper.Stop()
		avatars = cache
	}

	svc := roster.NewService(backs, ladder, avatars)

	accessLog, err := logger.AccessWriter(c.Logging.AccessLoggerConf())
	if err != nil {
		return err
	}
	opts := roster.Options{
		Admin:         c.Admin.Credentials(),
		Session:       c.Admin.SessionConf(),
		Pinger:        backs.Pinger,
		AccessLog:     accessLog,
		ServerURL:     c.Server.ExternalURL,
		AvatarTTL:     c.Avatar.TTL.Duration(),
		StorageDriver: string(c.Storage.Driver),
	}
	if c.Metrics.Enabled {
		opts.Gatherer = registry
	}
	server, err := roster.NewServer(c.Server, svc, opts)
	if err != nil {
		return err
	}
	log.Info("Initialized Server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
