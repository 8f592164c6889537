package docstore

import "sync"

type hub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]*subscriber
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[int]*subscriber)}
}

func (h *hub) add(id string, fn func(Snapshot)) (*subscriber, func()) {
	sub := &subscriber{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	h.next++
	key := h.next
	if h.subs[id] == nil {
		h.subs[id] = make(map[int]*subscriber)
	}
	h.subs[id][key] = sub
	h.mu.Unlock()

	go sub.run()

	var once sync.Once
	return sub, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[id], key)
			if len(h.subs[id]) == 0 {
				delete(h.subs, id)
			}
			h.mu.Unlock()
			close(sub.done)
		})
	}
}

func (h *hub) watched(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id]) > 0
}

func (h *hub) publish(id string, snap Snapshot) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs[id]))
	for _, sub := range h.subs[id] {
		subs = append(subs, sub)
	}
	h.mu.Unlock()
	for _, sub := range subs {
		sub.push(snap)
	}
}

type subscriber struct {
	fn func(Snapshot)

	mu     sync.Mutex
	latest *Snapshot
	wake   chan struct{}
	done   chan struct{}
}

func (s *subscriber) push(snap Snapshot) {
	snap.Document = CloneDocument(snap.Document)
	s.mu.Lock()
	s.latest = &snap
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		s.mu.Lock()
		snap := s.latest
		s.latest = nil
		s.mu.Unlock()
		if snap == nil {
			continue
		}
		select {
		case <-s.done:
			return
		default:
		}
		s.fn(*snap)
	}
}
