package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/ritualcal/internal/config"
	"github.com/sandeepkv93/ritualcal/internal/docstore"
	"github.com/sandeepkv93/ritualcal/internal/localcache"
	"github.com/sandeepkv93/ritualcal/internal/model"
	"github.com/sandeepkv93/ritualcal/internal/reminder"
	"github.com/sandeepkv93/ritualcal/internal/syncer"
	"github.com/sandeepkv93/ritualcal/internal/taskstore"
	"github.com/sandeepkv93/ritualcal/internal/update"
)

func newTUICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the calendar in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			calendarFlag, _ := cmd.Flags().GetString("calendar")
			shareURL, _ := cmd.Flags().GetString("share-url")
			return runTUI(cmd.Context(), cfg, calendarFlag, shareURL)
		},
	}
	cmd.Flags().String("calendar", "", "calendar id to open (defaults to the last one used)")
	cmd.Flags().String("share-url", "", "base URL of shareable calendar links")
	return cmd
}

func runTUI(ctx context.Context, cfg config.Config, calendarFlag, shareURL string) error {
	cache, err := localcache.Open(cfg.CacheDir)
	if err != nil {
		return err
	}
	var logOut io.Writer = io.Discard
	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer logFile.Close()
		logOut = logFile
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelDebug}))

	calendarID, err := resolveCalendarID(cfg, cache, calendarFlag)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	docs, err := openDocuments(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer docs.Close()
	go func() {
		if err := docs.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("relay listener stopped", "error", err)
		}
	}()

	store := taskstore.New(cfg.Location())
	changes := make(chan struct{}, 1)
	engine := syncer.New(store, docstore.NewClient(docs, logger), cache, syncer.Options{
		Logger:     logger,
		AckTimeout: cfg.AckTimeout,
		OnChange: func(model.Lists) {
			select {
			case changes <- struct{}{}:
			default:
			}
		},
	})
	if err := engine.Start(ctx, calendarID); err != nil {
		return err
	}
	defer engine.Stop()

	var notifier reminder.Notifier = reminder.NoopNotifier{}
	if cfg.DesktopNotifications {
		notifier = reminder.ExecNotifier{}
	}
	m := update.NewModel(update.Deps{
		Store:   store,
		Sync:    engine,
		Changes: changes,
		Fallback: &reminder.Fallback{
			Source:      store,
			Ledger:      cache,
			Notifier:    notifier,
			Location:    cfg.Location(),
			BroadcastAt: cfg.Broadcast(),
			Policy:      reminder.Policy{DailySkipCompleted: cfg.DailySkipCompleted, MasterSkipCompleted: true},
			Logger:      logger,
		},
		ShareURL: shareURL,
		Logger:   logger,
	})
	logger.Info("tui starting", "calendar", calendarID, "store", cfg.Store)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// resolveCalendarID prefers the flag, then the config, then the id this
// device used last. A device with none of those starts a fresh calendar.
func resolveCalendarID(cfg config.Config, cache *localcache.Cache, flag string) (string, error) {
	id := strings.TrimSpace(flag)
	if id == "" {
		id = strings.TrimSpace(cfg.CalendarID)
	}
	if id == "" {
		cached, err := cache.CalendarID()
		if err != nil {
			return "", err
		}
		id = cached
	}
	if id == "" {
		id = uuid.NewString()
	}
	if err := cache.SetCalendarID(id); err != nil {
		return "", err
	}
	return id, nil
}
