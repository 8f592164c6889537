package reminder

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	ReminderTitle  = "🦉 Reminder"
	BroadcastTitle = "💝 Your evening reminder"
)

var reminderBodies = []string{
	"%s is waiting for you. Time to begin.",
	"Reminder: %s is due right now.",
	"It's time for %s. You've got this.",
	"Ready for a little discipline? %s, now.",
	"%s. This is the moment.",
	"Your ritual is calling: %s.",
}

var broadcastBodies = []string{
	"How did today go? Take a minute to mark what you finished.",
	"Evening check-in: look back at your rituals for today.",
	"The day is nearly done. Anything left on your list?",
	"Small steps count. Record today's progress before bed.",
	"Pause and review the day. What went well?",
	"Your rules and bans are still there. Did you keep them today?",
	"One more look at today's calendar before you rest.",
}

// Messages picks notification bodies uniformly at random from fixed pools.
type Messages struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewMessages() *Messages {
	now := uint64(time.Now().UnixNano())
	return NewSeededMessages(now, now>>1)
}

// NewSeededMessages returns a deterministic picker for tests.
func NewSeededMessages(seed1, seed2 uint64) *Messages {
	return &Messages{rnd: rand.New(rand.NewPCG(seed1, seed2))}
}

func (m *Messages) pick(pool []string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return pool[m.rnd.IntN(len(pool))]
}

// Reminder returns the title and body for a task reminder.
func (m *Messages) Reminder(name string) (string, string) {
	return ReminderTitle, fmt.Sprintf(m.pick(reminderBodies), name)
}

func (m *Messages) Broadcast() (string, string) {
	return BroadcastTitle, m.pick(broadcastBodies)
}
