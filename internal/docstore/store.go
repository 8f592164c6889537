package docstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sandeepkv93/ritualcal/internal/model"
)

type Metadata struct {
	// HasPendingWrites is set when the snapshot includes local writes the
	// server has not acknowledged yet.
	HasPendingWrites bool
}

// Snapshot is a full copy of one calendar document as seen by a subscriber.
type Snapshot struct {
	Document model.Document
	Exists   bool
	Metadata Metadata
}

// Store is the document API the rest of the system consumes.
type Store interface {
	Get(ctx context.Context, id string) (model.Document, error)
	// Set merges p into the document, creating it when missing.
	Set(ctx context.Context, id string, p Patch) error
	// Update merges p into an existing document and fails with ErrNotFound
	// otherwise.
	Update(ctx context.Context, id string, p Patch) error
	List(ctx context.Context) ([]model.Document, error)
	Subscribe(ctx context.Context, id string, onSnapshot func(Snapshot), onError func(error)) (func(), error)
}

// Backend persists documents. Mutate runs fn against the current document
// atomically and writes nothing when fn fails; when the document is missing
// it is created only if create is set, otherwise ErrNotFound is returned.
type Backend interface {
	Load(ctx context.Context, id string) (model.Document, error)
	Mutate(ctx context.Context, id string, create bool, fn func(*model.Document) error) (model.Document, error)
	List(ctx context.Context) ([]model.Document, error)
	Close() error
}

// Documents implements Store on top of a Backend and fans changes out to
// local subscribers, and to other processes when a Relay is attached.
type Documents struct {
	backend Backend
	hub     *hub
	relay   *Relay
	log     *slog.Logger
}

type Option func(*Documents)

func WithLogger(l *slog.Logger) Option {
	return func(d *Documents) {
		if l != nil {
			d.log = l
		}
	}
}

func WithRelay(r *Relay) Option {
	return func(d *Documents) { d.relay = r }
}

func New(b Backend, opts ...Option) *Documents {
	d := &Documents{
		backend: b,
		hub:     newHub(),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Documents) Close() error {
	var relayErr error
	if d.relay != nil {
		relayErr = d.relay.Close()
	}
	return errors.Join(d.backend.Close(), relayErr)
}

func (d *Documents) Get(ctx context.Context, id string) (model.Document, error) {
	if id == "" {
		return model.Document{}, fmt.Errorf("%w: empty calendar id", ErrInvalidArgument)
	}
	return d.backend.Load(ctx, id)
}

func (d *Documents) Set(ctx context.Context, id string, p Patch) error {
	return d.mutate(ctx, id, true, p)
}

func (d *Documents) Update(ctx context.Context, id string, p Patch) error {
	return d.mutate(ctx, id, false, p)
}

func (d *Documents) mutate(ctx context.Context, id string, create bool, p Patch) error {
	if id == "" {
		return fmt.Errorf("%w: empty calendar id", ErrInvalidArgument)
	}
	doc, err := d.backend.Mutate(ctx, id, create, p.apply)
	if err != nil {
		return err
	}
	d.hub.publish(id, Snapshot{Document: doc, Exists: true})
	if d.relay != nil {
		if err := d.relay.Publish(ctx, id); err != nil {
			d.log.Debug("relay publish failed", "calendar", id, "error", err)
		}
	}
	return nil
}

func (d *Documents) List(ctx context.Context) ([]model.Document, error) {
	return d.backend.List(ctx)
}

// Subscribe delivers the current document and then every later change until
// the returned function is called or ctx ends. Deliveries for one subscriber
// never overlap; a slow subscriber sees only the latest document.
func (d *Documents) Subscribe(ctx context.Context, id string, onSnapshot func(Snapshot), onError func(error)) (func(), error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty calendar id", ErrInvalidArgument)
	}
	if onSnapshot == nil {
		return nil, fmt.Errorf("%w: nil snapshot callback", ErrInvalidArgument)
	}
	sub, cancel := d.hub.add(id, onSnapshot)
	stop := context.AfterFunc(ctx, cancel)
	doc, err := d.backend.Load(ctx, id)
	switch {
	case err == nil:
		sub.push(Snapshot{Document: doc, Exists: true})
	case errors.Is(err, ErrNotFound):
		sub.push(Snapshot{Document: model.Document{ID: id}})
	default:
		if onError != nil {
			onError(err)
		}
	}
	return func() {
		stop()
		cancel()
	}, nil
}

// Listen applies change notices from other processes until ctx ends. It
// returns immediately when no relay is attached.
func (d *Documents) Listen(ctx context.Context) error {
	if d.relay == nil {
		return nil
	}
	return d.relay.Listen(ctx, func(id string) {
		if !d.hub.watched(id) {
			return
		}
		doc, err := d.backend.Load(ctx, id)
		if err != nil {
			d.log.Debug("relay reload failed", "calendar", id, "error", err)
			return
		}
		d.hub.publish(id, Snapshot{Document: doc, Exists: true})
	})
}
