package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sandeepkv93/ritualcal/internal/model"
)

// Memory is a process-local Backend used by tests and the memory store mode.
type Memory struct {
	mu   sync.Mutex
	docs map[string]model.Document
	// Fail, when set, is consulted before every operation; a non-nil result
	// is returned in place of the operation's own outcome.
	Fail func(op, id string) error
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]model.Document)}
}

func (m *Memory) Load(_ context.Context, id string) (model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("load", id); err != nil {
		return model.Document{}, err
	}
	doc, ok := m.docs[id]
	if !ok {
		return model.Document{}, fmt.Errorf("%w: calendar %q", ErrNotFound, id)
	}
	return CloneDocument(doc), nil
}

func (m *Memory) Mutate(_ context.Context, id string, create bool, fn func(*model.Document) error) (model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("mutate", id); err != nil {
		return model.Document{}, err
	}
	doc, ok := m.docs[id]
	if !ok {
		if !create {
			return model.Document{}, fmt.Errorf("%w: calendar %q", ErrNotFound, id)
		}
		doc = model.Document{ID: id}
	}
	doc = CloneDocument(doc)
	if err := fn(&doc); err != nil {
		return model.Document{}, err
	}
	doc.ID = id
	m.docs[id] = doc
	return CloneDocument(doc), nil
}

func (m *Memory) List(context.Context) ([]model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("list", ""); err != nil {
		return nil, err
	}
	out := make([]model.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		out = append(out, CloneDocument(doc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) fail(op, id string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail(op, id)
}
