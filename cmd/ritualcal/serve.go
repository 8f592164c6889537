package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/ritualcal/internal/api"
	"github.com/sandeepkv93/ritualcal/internal/config"
	"github.com/sandeepkv93/ritualcal/internal/reminder"
	"github.com/sandeepkv93/ritualcal/internal/scheduler"
	"github.com/sandeepkv93/ritualcal/internal/tokens"
)

type server struct {
	docs     *documents
	registry *tokens.Registry
	sweeper  *reminder.Sweeper
	closers  []io.Closer
}

func newServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*server, error) {
	docs, err := openDocuments(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	sender, closer := newSender(cfg, logger)
	registry := tokens.NewRegistry(docs, nil, cfg.MaxTokens, logger)
	s := &server{
		docs:     docs,
		registry: registry,
		sweeper: &reminder.Sweeper{
			Store:       docs,
			Sender:      sender,
			Pruner:      registry,
			Location:    cfg.Location(),
			BroadcastAt: cfg.Broadcast(),
			Policy:      reminder.Policy{DailySkipCompleted: cfg.DailySkipCompleted},
			Logger:      logger,
		},
		closers: []io.Closer{docs},
	}
	if closer != nil {
		s.closers = append(s.closers, closer)
	}
	return s, nil
}

func (s *server) Close(logger *slog.Logger) {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}

func newServeCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the minute reminder sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := newServer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer srv.Close(logger)
			logger.Info("store ready", "store", cfg.Store, "push", cfg.Push)

			runner := scheduler.NewRunner(func(ctx context.Context, at time.Time) error {
				_, err := srv.sweeper.Run(ctx, at)
				return err
			}, logger)
			engine, err := scheduler.NewEngine(cfg.SweepInterval)
			if err != nil {
				return err
			}
			go func() {
				if err := runner.Run(ctx, engine); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("sweep loop stopped", "error", err)
				}
			}()

			handler := &api.API{
				Store:          srv.docs,
				Tokens:         srv.registry,
				Sweeper:        srv.sweeper,
				Runner:         runner,
				Location:       cfg.Location(),
				ProjectionDays: cfg.ProjectionDays,
				Ready:          srv.docs.ready,
				Logger:         logger,
			}
			httpSrv := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           handler.Router(),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      15 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server starting", "addr", cfg.HTTPAddr)
				if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				return err
			}

			logger.Info("shutting down gracefully")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}
}

func newSweepCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one reminder sweep and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelInfo}))
			raw, _ := cmd.Flags().GetString("at")
			at := time.Now()
			if raw != "" {
				if at, err = time.Parse(time.RFC3339, raw); err != nil {
					return err
				}
			}

			srv, err := newServer(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer srv.Close(logger)

			report, err := srv.sweeper.Run(cmd.Context(), at)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().String("at", "", "evaluate the sweep at this RFC3339 instant")
	return cmd
}
