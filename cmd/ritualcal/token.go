package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/ritualcal/internal/localcache"
	"github.com/sandeepkv93/ritualcal/internal/tokens"
)

func newRegisterTokenCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "register-token <calendar-id> <token>",
		Short: "Attach this device's push token to a calendar",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			cache, err := localcache.Open(cfg.CacheDir)
			if err != nil {
				return err
			}
			docs, err := openDocuments(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer docs.Close()

			registry := tokens.NewRegistry(docs, cache, cfg.MaxTokens, logger)
			if err := registry.RegisterWithRetry(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(stdout, "token registered on calendar %s\n", args[0])
			return err
		},
	}
}
