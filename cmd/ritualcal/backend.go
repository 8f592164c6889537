package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sandeepkv93/ritualcal/internal/config"
	"github.com/sandeepkv93/ritualcal/internal/docstore"
	"github.com/sandeepkv93/ritualcal/internal/push"
)

// documents bundles the shared store with its readiness probe.
type documents struct {
	*docstore.Documents
	ready func(ctx context.Context) error
}

func openBackend(ctx context.Context, cfg config.Config) (docstore.Backend, func(context.Context) error, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return docstore.NewMemory(), func(context.Context) error { return nil }, nil
	case config.StorePostgres:
		pool, err := docstore.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := docstore.MigratePostgres(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		pg := docstore.NewPostgres(pool)
		return pg, pg.Ping, nil
	default:
		lite, err := docstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := docstore.MigrateUp(lite.DB()); err != nil {
			_ = lite.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return lite, lite.DB().PingContext, nil
	}
}

// openDocuments opens the configured backend and attaches the redis relay
// when one is configured. An unreachable relay degrades to single-process
// change notification.
func openDocuments(ctx context.Context, cfg config.Config, logger *slog.Logger) (*documents, error) {
	backend, ping, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts := []docstore.Option{docstore.WithLogger(logger)}
	var relay *docstore.Relay
	if cfg.RedisURL != "" {
		relay, err = docstore.NewRelay(cfg.RedisURL, logger)
		if err != nil {
			logger.Warn("redis relay unavailable, cross-process updates disabled", "error", err)
			relay = nil
		} else {
			opts = append(opts, docstore.WithRelay(relay))
			logger.Info("redis relay connected")
		}
	}
	ready := func(ctx context.Context) error {
		var relayErr error
		if relay != nil {
			relayErr = relay.Ping(ctx)
		}
		return errors.Join(ping(ctx), relayErr)
	}
	return &documents{Documents: docstore.New(backend, opts...), ready: ready}, nil
}

func newSender(cfg config.Config, logger *slog.Logger) (push.Sender, io.Closer) {
	switch cfg.Push {
	case config.PushHTTP:
		return push.NewHTTPSender(cfg.PushEndpoint, cfg.PushAPIKey), nil
	case config.PushKafka:
		k := push.NewKafkaSender(strings.Join(cfg.KafkaBrokers, ","), cfg.KafkaTopic)
		logger.Info("kafka push initialized", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
		return k, k
	default:
		return push.NewLogSender(logger), nil
	}
}
