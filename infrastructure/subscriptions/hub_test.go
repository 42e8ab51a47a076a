package subscriptions

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"skillcourt-backend/application/ports"
)

// collector gathers asynchronously delivered changes
type collector struct {
	mu      sync.Mutex
	changes []ports.Change
	signal  chan struct{}
}

func newCollector() *collector {
	return &collector{signal: make(chan struct{}, 128)}
}

func (c *collector) callback(change ports.Change) {
	c.mu.Lock()
	c.changes = append(c.changes, change)
	c.mu.Unlock()
	c.signal <- struct{}{}
}

func (c *collector) wait(t *testing.T, n int) []ports.Change {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		c.mu.Lock()
		got := len(c.changes)
		c.mu.Unlock()
		if got >= n {
			break
		}
		select {
		case <-c.signal:
		case <-deadline:
			t.Fatalf("timed out waiting for %d changes, got %d", n, got)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ports.Change, len(c.changes))
	copy(out, c.changes)
	return out
}

func TestHub_DocumentListenerReceivesMatchingChanges(t *testing.T) {
	hub := NewHub(zap.NewNop())
	col := newCollector()

	sub := hub.SubscribeDocument("sports", "s1", col.callback)
	defer sub.Unsubscribe()

	hub.Publish(ports.Change{Collection: "sports", ID: "s1", Kind: ports.ChangeUpdated})
	hub.Publish(ports.Change{Collection: "sports", ID: "other", Kind: ports.ChangeUpdated})

	changes := col.wait(t, 1)
	require.Len(t, changes, 1)
	assert.Equal(t, "s1", changes[0].ID)
}

func TestHub_CollectionListenerReceivesAllCollectionChanges(t *testing.T) {
	hub := NewHub(zap.NewNop())
	col := newCollector()

	sub := hub.SubscribeCollection("skills", col.callback)
	defer sub.Unsubscribe()

	hub.Publish(ports.Change{Collection: "skills", ID: "a", Kind: ports.ChangeCreated})
	hub.Publish(ports.Change{Collection: "skills", ID: "b", Kind: ports.ChangeDeleted})
	hub.Publish(ports.Change{Collection: "sports", ID: "c", Kind: ports.ChangeCreated})

	changes := col.wait(t, 2)
	assert.Len(t, changes, 2)
}

func TestHub_ListenerObservesChangesInPublishOrder(t *testing.T) {
	hub := NewHub(zap.NewNop())
	col := newCollector()

	sub := hub.SubscribeDocument("sports", "s1", col.callback)
	defer sub.Unsubscribe()

	const n = 50
	for i := 0; i < n; i++ {
		hub.Publish(ports.Change{Collection: "sports", ID: "s1", Kind: ports.ChangeUpdated,
			Record: ports.Record{"seq": strconv.Itoa(i)}})
	}

	changes := col.wait(t, n)
	require.Len(t, changes, n)
	for i, change := range changes {
		assert.Equal(t, strconv.Itoa(i), change.Record.String("seq"), "delivery %d out of order", i)
	}
}

func TestHub_SnapshotDeliveryPrecedesLaterPublishes(t *testing.T) {
	hub := NewHub(zap.NewNop())
	col := newCollector()

	sub := hub.SubscribeDocument("sports", "s1", col.callback)
	defer sub.Unsubscribe()

	sub.Deliver(ports.Change{Collection: "sports", ID: "s1", Kind: ports.ChangeSnapshot})
	hub.Publish(ports.Change{Collection: "sports", ID: "s1", Kind: ports.ChangeUpdated})

	changes := col.wait(t, 2)
	require.Len(t, changes, 2)
	assert.Equal(t, ports.ChangeSnapshot, changes[0].Kind)
	assert.Equal(t, ports.ChangeUpdated, changes[1].Kind)
}

func TestHub_UnsubscribeIsIdempotent(t *testing.T) {
	hub := NewHub(zap.NewNop())
	col := newCollector()

	sub := hub.SubscribeDocument("sports", "s1", col.callback)

	sub.Unsubscribe()
	// Second call must neither panic nor disturb other listeners.
	sub.Unsubscribe()

	other := newCollector()
	keep := hub.SubscribeDocument("sports", "s1", other.callback)
	defer keep.Unsubscribe()

	sub.Unsubscribe()

	hub.Publish(ports.Change{Collection: "sports", ID: "s1", Kind: ports.ChangeUpdated})

	other.wait(t, 1)
	assert.Equal(t, 1, hub.ListenerCount())

	col.mu.Lock()
	defer col.mu.Unlock()
	assert.Empty(t, col.changes, "unsubscribed listener must not be re-delivered")
}

func TestHub_ConcurrentListenersDeliverIndependently(t *testing.T) {
	hub := NewHub(zap.NewNop())

	collectors := make([]*collector, 8)
	for i := range collectors {
		collectors[i] = newCollector()
		sub := hub.SubscribeCollection("quizzes", collectors[i].callback)
		defer sub.Unsubscribe()
	}

	hub.Publish(ports.Change{Collection: "quizzes", ID: "q1", Kind: ports.ChangeCreated})

	for _, c := range collectors {
		c.wait(t, 1)
	}
}
