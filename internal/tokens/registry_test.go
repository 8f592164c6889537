package tokens

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/ritualcal/internal/docstore"
	"github.com/sandeepkv93/ritualcal/internal/localcache"
	"github.com/sandeepkv93/ritualcal/internal/retry"
)

type instantClock struct{ waits []time.Duration }

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.waits = append(c.waits, d)
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func tokensOf(t *testing.T, store docstore.Store, id string) []string {
	t.Helper()
	doc, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	return doc.Tokens
}

func TestRegisterCapsAtMaxKeepingNewest(t *testing.T) {
	store := docstore.New(docstore.NewMemory())
	reg := NewRegistry(store, nil, 10, nil)
	ctx := context.Background()

	for i := 1; i <= 13; i++ {
		require.NoError(t, reg.Register(ctx, "cal", fmt.Sprintf("tok-%02d", i)))
	}
	got := tokensOf(t, store, "cal")
	require.Len(t, got, 10)
	assert.Equal(t, "tok-04", got[0])
	assert.Equal(t, "tok-13", got[9])
}

func TestRegisterIsIdempotentForSameToken(t *testing.T) {
	store := docstore.New(docstore.NewMemory())
	reg := NewRegistry(store, nil, 10, nil)
	ctx := context.Background()

	require.NoError(t, reg.Register(ctx, "cal", "tok-a"))
	require.NoError(t, reg.Register(ctx, "cal", "tok-a"))
	assert.Equal(t, []string{"tok-a"}, tokensOf(t, store, "cal"))
	assert.ErrorIs(t, reg.Register(ctx, "cal", "  "), ErrEmptyToken)
}

func TestRegisterReplacesThisDevicesPreviousToken(t *testing.T) {
	store := docstore.New(docstore.NewMemory())
	device, err := localcache.Open(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	other := NewRegistry(store, nil, 10, nil)
	require.NoError(t, other.Register(ctx, "cal", "other-device"))

	reg := NewRegistry(store, device, 10, nil)
	require.NoError(t, reg.Register(ctx, "cal", "mine-v1"))
	require.NoError(t, reg.Register(ctx, "cal", "mine-v2"))

	assert.Equal(t, []string{"other-device", "mine-v2"}, tokensOf(t, store, "cal"))
	last, err := device.LastToken()
	require.NoError(t, err)
	assert.Equal(t, "mine-v2", last)
}

func TestPruneRemovesOnlyReportedTokens(t *testing.T) {
	store := docstore.New(docstore.NewMemory())
	reg := NewRegistry(store, nil, 10, nil)
	ctx := context.Background()
	for _, tok := range []string{"a", "b", "c"} {
		require.NoError(t, reg.Register(ctx, "cal", tok))
	}

	require.NoError(t, reg.Prune(ctx, "cal", []string{"b"}))
	assert.Equal(t, []string{"a", "c"}, tokensOf(t, store, "cal"))
	require.NoError(t, reg.Prune(ctx, "cal", nil))
	assert.ErrorIs(t, reg.Prune(ctx, "missing", []string{"a"}), docstore.ErrNotFound)
}

func TestRegisterWithRetryBacksOffOnConnectivity(t *testing.T) {
	mem := docstore.NewMemory()
	failures := 2
	mem.Fail = func(op, id string) error {
		if op == "mutate" && failures > 0 {
			failures--
			return fmt.Errorf("%w: offline", docstore.ErrUnavailable)
		}
		return nil
	}
	store := docstore.New(mem)
	reg := NewRegistry(store, nil, 10, nil)
	clock := &instantClock{}
	reg.Supervisor().Clock = clock

	require.NoError(t, reg.RegisterWithRetry(context.Background(), "cal", "tok"))
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, clock.waits)
	assert.Equal(t, []string{"tok"}, tokensOf(t, store, "cal"))
}

func TestRegisterWithRetryGivesUp(t *testing.T) {
	mem := docstore.NewMemory()
	mem.Fail = func(op, id string) error {
		if op == "mutate" {
			return docstore.ErrPermissionDenied
		}
		return nil
	}
	reg := NewRegistry(docstore.New(mem), nil, 10, nil)
	clock := &instantClock{}
	reg.Supervisor().Clock = clock

	err := reg.RegisterWithRetry(context.Background(), "cal", "tok")
	require.ErrorIs(t, err, retry.ErrExhausted)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}, clock.waits)
}
