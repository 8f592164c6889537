package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/ritualcal/internal/docstore"
	"github.com/sandeepkv93/ritualcal/internal/localcache"
	"github.com/sandeepkv93/ritualcal/internal/model"
	"github.com/sandeepkv93/ritualcal/internal/taskstore"
)

const DefaultAckTimeout = 2 * time.Second

var ErrNotStarted = errors.New("syncer: engine not started")

type Options struct {
	Logger     *slog.Logger
	AckTimeout time.Duration
	// OnChange is called after the task store was replaced or mutated. It
	// may run on a subscription goroutine.
	OnChange func(model.Lists)
}

// Engine keeps a taskstore.Store consistent with one remote calendar
// document. The local cache is written synchronously on every change and is
// the durable copy while the remote is unreachable.
type Engine struct {
	store  *taskstore.Store
	remote docstore.Store
	cache  *localcache.Cache
	log    *slog.Logger
	opts   Options

	Now func() time.Time

	mu          sync.Mutex
	calendarID  string
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()

	// applyMu orders local mutations against incoming snapshots.
	applyMu sync.Mutex

	// Remote writes leave in Apply order through a single drain goroutine.
	queueMu  sync.Mutex
	queue    []remoteWrite
	draining bool

	writesMu sync.Mutex
	writes   int
	idle     chan struct{}
}

type remoteWrite struct {
	ctx        context.Context
	calendarID string
	patch      docstore.Patch
}

func New(store *taskstore.Store, remote docstore.Store, cache *localcache.Cache, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = DefaultAckTimeout
	}
	return &Engine{
		store:  store,
		remote: remote,
		cache:  cache,
		log:    opts.Logger,
		opts:   opts,
		Now:    time.Now,
	}
}

func (e *Engine) CalendarID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calendarID
}

// Start loads the cached lists for calendarID into the store and then opens
// the remote subscription. A failing subscription is logged and leaves the
// engine running on the cache.
func (e *Engine) Start(ctx context.Context, calendarID string) error {
	if calendarID == "" {
		return fmt.Errorf("%w: empty calendar id", docstore.ErrInvalidArgument)
	}
	e.Stop()

	if doc, ok, err := e.cache.Lists(calendarID); err != nil {
		e.log.Warn("local cache unreadable", "calendar", calendarID, "error", err)
	} else if ok {
		e.replace(doc)
	} else {
		e.store.Replace(model.Lists{})
		e.changed()
	}

	subCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.calendarID = calendarID
	e.ctx = subCtx
	e.cancel = cancel
	e.mu.Unlock()

	unsubscribe, err := e.remote.Subscribe(subCtx, calendarID, func(s docstore.Snapshot) {
		e.handleSnapshot(calendarID, s)
	}, func(err error) {
		e.report("subscription failed", calendarID, err)
	})
	if err != nil {
		e.report("subscribe failed", calendarID, err)
		return nil
	}
	e.mu.Lock()
	e.unsubscribe = unsubscribe
	e.mu.Unlock()
	return nil
}

// Stop tears down the subscription so no callbacks leak into a later
// calendar.
func (e *Engine) Stop() {
	e.mu.Lock()
	unsubscribe, cancel := e.unsubscribe, e.cancel
	e.unsubscribe, e.cancel = nil, nil
	e.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
}

func (e *Engine) SwitchCalendar(ctx context.Context, calendarID string) error {
	if err := e.cache.SetCalendarID(calendarID); err != nil {
		e.log.Warn("persist calendar id failed", "calendar", calendarID, "error", err)
	}
	return e.Start(ctx, calendarID)
}

func (e *Engine) handleSnapshot(calendarID string, s docstore.Snapshot) {
	if e.CalendarID() != calendarID {
		return
	}
	if s.Metadata.HasPendingWrites {
		return
	}
	e.applyMu.Lock()
	defer e.applyMu.Unlock()
	// The store is ahead of any snapshot taken while our own writes are
	// still queued; the last of them carries the full lists anyway.
	if e.writing() {
		return
	}
	if !s.Exists {
		e.log.Info("calendar document missing, creating it", "calendar", calendarID)
		e.push(calendarID, e.encode())
		return
	}
	e.replace(s.Document)
	if err := e.cache.SaveLists(calendarID, s.Document); err != nil {
		e.log.Warn("local cache write failed", "calendar", calendarID, "error", err)
	}
}

func (e *Engine) replace(doc model.Document) {
	lists, problems := doc.Lists(e.store.Location())
	for _, p := range problems {
		e.log.Warn("skipping malformed task data", "calendar", doc.ID, "error", p)
	}
	e.store.Replace(lists)
	e.changed()
}

func (e *Engine) changed() {
	if e.opts.OnChange != nil {
		e.opts.OnChange(e.store.Lists())
	}
}

func (e *Engine) encode() model.Document {
	return model.EncodeLists(e.store.Lists(), e.store.Today())
}

// Apply runs mutate against the store, persists the result to the local
// cache and starts the remote write. Only a failing mutation or cache write
// is returned; remote failures are logged by class.
func (e *Engine) Apply(mutate func(*taskstore.Store) error) error {
	calendarID := e.CalendarID()
	if calendarID == "" {
		return ErrNotStarted
	}
	e.applyMu.Lock()
	defer e.applyMu.Unlock()
	if err := mutate(e.store); err != nil {
		return err
	}
	e.changed()
	doc := e.encode()
	if err := e.cache.SaveLists(calendarID, doc); err != nil {
		return fmt.Errorf("save local cache: %w", err)
	}
	e.push(calendarID, doc)
	return nil
}

func (e *Engine) push(calendarID string, doc model.Document) {
	e.mu.Lock()
	ctx := e.ctx
	e.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	w := remoteWrite{
		ctx:        context.WithoutCancel(ctx),
		calendarID: calendarID,
		patch:      docstore.ListsPatch(doc, e.Now()),
	}
	e.beginWrite()
	e.queueMu.Lock()
	e.queue = append(e.queue, w)
	start := !e.draining
	e.draining = true
	e.queueMu.Unlock()
	if start {
		go e.drain()
	}
}

func (e *Engine) drain() {
	for {
		e.queueMu.Lock()
		if len(e.queue) == 0 {
			e.draining = false
			e.queueMu.Unlock()
			return
		}
		w := e.queue[0]
		e.queue = e.queue[1:]
		e.queueMu.Unlock()

		if err := e.remote.Set(w.ctx, w.calendarID, w.patch); err != nil {
			e.report("remote write failed", w.calendarID, err)
		}
		e.endWrite()
	}
}

func (e *Engine) writing() bool {
	e.writesMu.Lock()
	defer e.writesMu.Unlock()
	return e.writes > 0
}

func (e *Engine) beginWrite() {
	e.writesMu.Lock()
	if e.writes == 0 {
		e.idle = make(chan struct{})
	}
	e.writes++
	e.writesMu.Unlock()
}

func (e *Engine) endWrite() {
	e.writesMu.Lock()
	e.writes--
	if e.writes == 0 {
		close(e.idle)
	}
	e.writesMu.Unlock()
}

func (e *Engine) report(msg, calendarID string, err error) {
	if docstore.IsConnectivity(err) {
		e.log.Debug(msg, "calendar", calendarID, "error", err, "offline", true)
		return
	}
	e.log.Error(msg, "calendar", calendarID, "error", err)
}

// Settle waits for outstanding remote writes, at most the ack timeout. It
// reports whether every write finished; false means the writes continue in
// the background and the local state is treated as complete.
func (e *Engine) Settle(ctx context.Context) bool {
	e.writesMu.Lock()
	if e.writes == 0 {
		e.writesMu.Unlock()
		return true
	}
	done := e.idle
	e.writesMu.Unlock()
	timer := time.NewTimer(e.opts.AckTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

type replayer interface {
	Replay(ctx context.Context) error
}

// Replay resends writes the remote client queued while offline.
func (e *Engine) Replay(ctx context.Context) error {
	r, ok := e.remote.(replayer)
	if !ok {
		return nil
	}
	err := r.Replay(ctx)
	if err != nil {
		e.report("replay deferred", e.CalendarID(), err)
	}
	return err
}

// ResetWeek records the ISO week of today and, on the first call in a new
// week, rewrites the document when some weekly task still carries a
// completion from an earlier week, so clients reading only the legacy flag
// see it cleared. It reports whether a rewrite was sent.
func (e *Engine) ResetWeek(today model.Date) (bool, error) {
	calendarID := e.CalendarID()
	if calendarID == "" {
		return false, ErrNotStarted
	}
	e.applyMu.Lock()
	defer e.applyMu.Unlock()
	week := localcache.WeekOf(today)
	last, ok, err := e.cache.LastISOWeek()
	if err != nil {
		return false, err
	}
	if ok && last == week {
		return false, nil
	}
	if err := e.cache.SetLastISOWeek(week); err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	stale := false
	for _, t := range e.store.Lists().Weekly {
		if latest, has := t.Completion.Latest(); has && !latest.SameISOWeek(today) {
			stale = true
			break
		}
	}
	if !stale {
		return false, nil
	}
	doc := model.EncodeLists(e.store.Lists(), today)
	if err := e.cache.SaveLists(calendarID, doc); err != nil {
		return false, err
	}
	e.push(calendarID, doc)
	return true, nil
}
