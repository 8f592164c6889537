package docstore

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/sandeepkv93/ritualcal/internal/model"
)

// Client wraps a remote Store with latency compensation. A Set is visible to
// local subscribers at once, flagged HasPendingWrites until the remote
// acknowledges it. Writes that fail for connectivity reasons stay queued and
// are sent again by Replay.
type Client struct {
	remote Store
	hub    *hub
	log    *slog.Logger

	mu    sync.Mutex
	seq   uint64
	views map[string]*view
}

type pendingWrite struct {
	seq    uint64
	patch  Patch
	queued bool
}

type view struct {
	server  model.Document
	exists  bool
	pending []pendingWrite
}

func NewClient(remote Store, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		remote: remote,
		hub:    newHub(),
		log:    logger,
		views:  make(map[string]*view),
	}
}

func (c *Client) view(id string) *view {
	v, ok := c.views[id]
	if !ok {
		v = &view{server: model.Document{ID: id}}
		c.views[id] = v
	}
	return v
}

func (v *view) snapshot() Snapshot {
	doc := CloneDocument(v.server)
	for _, w := range v.pending {
		w.patch.Apply(&doc)
	}
	return Snapshot{
		Document: doc,
		Exists:   v.exists || len(v.pending) > 0,
		Metadata: Metadata{HasPendingWrites: len(v.pending) > 0},
	}
}

func (v *view) remove(seq uint64) (Patch, bool) {
	for i, w := range v.pending {
		if w.seq == seq {
			v.pending = append(v.pending[:i:i], v.pending[i+1:]...)
			return w.patch, true
		}
	}
	return Patch{}, false
}

func (c *Client) Get(ctx context.Context, id string) (model.Document, error) {
	return c.remote.Get(ctx, id)
}

func (c *Client) Set(ctx context.Context, id string, p Patch) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	v := c.view(id)
	v.pending = append(v.pending, pendingWrite{seq: seq, patch: p})
	snap := v.snapshot()
	c.mu.Unlock()
	c.hub.publish(id, snap)

	return c.send(ctx, id, seq, p)
}

func (c *Client) send(ctx context.Context, id string, seq uint64, p Patch) error {
	err := c.remote.Set(ctx, id, p)

	c.mu.Lock()
	v := c.view(id)
	switch {
	case err == nil:
		if acked, ok := v.remove(seq); ok {
			acked.Apply(&v.server)
			v.exists = true
		}
	case IsConnectivity(err):
		for i := range v.pending {
			if v.pending[i].seq == seq {
				v.pending[i].queued = true
			}
		}
		c.mu.Unlock()
		return err
	default:
		v.remove(seq)
	}
	snap := v.snapshot()
	c.mu.Unlock()
	c.hub.publish(id, snap)
	return err
}

// Replay sends queued writes in order. It stops at the first connectivity
// failure; writes rejected for any other reason are dropped.
func (c *Client) Replay(ctx context.Context) error {
	c.mu.Lock()
	type job struct {
		id    string
		write pendingWrite
	}
	var jobs []job
	for id, v := range c.views {
		for _, w := range v.pending {
			if w.queued {
				jobs = append(jobs, job{id: id, write: w})
			}
		}
	}
	c.mu.Unlock()

	for _, j := range jobs {
		err := c.send(ctx, j.id, j.write.seq, j.write.patch)
		if err == nil {
			continue
		}
		if IsConnectivity(err) {
			return err
		}
		c.log.Error("dropping rejected write", "calendar", j.id, "error", err)
	}
	return nil
}

// Pending reports how many writes to id are not yet acknowledged.
func (c *Client) Pending(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.views[id]; ok {
		return len(v.pending)
	}
	return 0
}

func (c *Client) Update(ctx context.Context, id string, p Patch) error {
	return c.remote.Update(ctx, id, p)
}

func (c *Client) List(ctx context.Context) ([]model.Document, error) {
	return c.remote.List(ctx)
}

func (c *Client) Subscribe(ctx context.Context, id string, onSnapshot func(Snapshot), onError func(error)) (func(), error) {
	sub, cancelLocal := c.hub.add(id, onSnapshot)
	cancelRemote, err := c.remote.Subscribe(ctx, id, func(s Snapshot) {
		c.mu.Lock()
		v := c.view(id)
		v.server = s.Document
		v.exists = s.Exists
		snap := v.snapshot()
		c.mu.Unlock()
		c.hub.publish(id, snap)
	}, onError)
	if err != nil {
		cancelLocal()
		return nil, err
	}
	c.mu.Lock()
	if v, ok := c.views[id]; ok && len(v.pending) > 0 {
		sub.push(v.snapshot())
	}
	c.mu.Unlock()
	return func() {
		cancelRemote()
		cancelLocal()
	}, nil
}
