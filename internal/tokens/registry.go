package tokens

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sandeepkv93/ritualcal/internal/docstore"
	"github.com/sandeepkv93/ritualcal/internal/localcache"
	"github.com/sandeepkv93/ritualcal/internal/retry"
)

const DefaultMaxTokens = 10

var ErrEmptyToken = errors.New("tokens: empty token")

// Registry maintains the push tokens stored on calendar documents. The
// device cache, when present, remembers the token this installation
// registered last so a refreshed token replaces it instead of piling up.
type Registry struct {
	store      docstore.Store
	device     *localcache.Cache
	max        int
	log        *slog.Logger
	supervisor *retry.Supervisor
}

func NewRegistry(store docstore.Store, device *localcache.Cache, max int, logger *slog.Logger) *Registry {
	if max <= 0 {
		max = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Registry{
		store:      store,
		device:     device,
		max:        max,
		log:        logger,
		supervisor: retry.NewSupervisor(docstore.IsConnectivity),
	}
	r.supervisor.OnRetry = func(attempt int, wait time.Duration, err error) {
		r.log.Debug("token registration retry", "attempt", attempt, "wait", wait, "error", err)
	}
	return r
}

// Supervisor exposes the retry supervisor so callers can swap its clock.
func (r *Registry) Supervisor() *retry.Supervisor { return r.supervisor }

// Register stores token on the calendar, dropping this device's previous
// token and evicting the oldest tokens beyond the cap.
func (r *Registry) Register(ctx context.Context, calendarID, token string) error {
	var prev string
	if r.device != nil {
		var err error
		if prev, err = r.device.LastToken(); err != nil {
			r.log.Warn("last token unreadable", "error", err)
		}
	}
	if err := r.Replace(ctx, calendarID, token, prev); err != nil {
		return err
	}
	if r.device != nil {
		if err := r.device.SetLastToken(strings.TrimSpace(token)); err != nil {
			r.log.Warn("persist last token failed", "error", err)
		}
	}
	return nil
}

// Replace adds token and removes previous, the token the same device held
// before, in a single write. previous may be empty.
func (r *Registry) Replace(ctx context.Context, calendarID, token, previous string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	patch := docstore.Patch{AddTokens: []string{token}, MaxTokens: r.max}
	if previous = strings.TrimSpace(previous); previous != "" && previous != token {
		patch.RemoveTokens = []string{previous}
	}
	if err := r.store.Set(ctx, calendarID, patch); err != nil {
		return fmt.Errorf("register token: %w", err)
	}
	return nil
}

// RegisterWithRetry retries Register with capped backoff. retry.ErrExhausted
// in the result means the caller should fall back to local reminders.
func (r *Registry) RegisterWithRetry(ctx context.Context, calendarID, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrEmptyToken
	}
	err := r.supervisor.Do(ctx, func(ctx context.Context) error {
		return r.Register(ctx, calendarID, token)
	})
	if err != nil {
		r.log.Warn("token registration gave up", "calendar", calendarID, "error", err)
	}
	return err
}

// Prune removes tokens the transport reported as permanently invalid.
func (r *Registry) Prune(ctx context.Context, calendarID string, invalid []string) error {
	if len(invalid) == 0 {
		return nil
	}
	if err := r.store.Update(ctx, calendarID, docstore.Patch{RemoveTokens: invalid}); err != nil {
		return fmt.Errorf("prune tokens: %w", err)
	}
	r.log.Info("pruned invalid tokens", "calendar", calendarID, "count", len(invalid))
	return nil
}
