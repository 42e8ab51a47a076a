// Package subscriptions fans document change notifications out to registered
// listeners. The store client publishes into the hub on every successful
// write path.
package subscriptions

import (
	"sync"

	"go.uber.org/zap"

	"skillcourt-backend/application/ports"
)

// queueDepth bounds the per-listener backlog. A listener that falls this far
// behind starts losing changes rather than stalling the write path.
const queueDepth = 64

// listener owns a serial delivery queue: one goroutine drains it, so a single
// listener always observes changes in the order they were enqueued.
type listener struct {
	id     uint64
	mu     sync.Mutex
	closed bool
	queue  chan ports.Change
}

func newListener(id uint64, callback ports.ChangeCallback) *listener {
	l := &listener{id: id, queue: make(chan ports.Change, queueDepth)}
	go func() {
		for change := range l.queue {
			callback(change)
		}
	}()
	return l
}

// enqueue offers a change without blocking. It reports false when the
// listener is closed or its queue is full.
func (l *listener) enqueue(change ports.Change) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	select {
	case l.queue <- change:
		return true
	default:
		return false
	}
}

func (l *listener) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
}

// Subscription is one registered listener. Deliver pushes a change onto the
// listener's serial queue, so deliveries made through it keep their order
// relative to Publish.
type Subscription struct {
	l      *listener
	cancel func()
	once   sync.Once
	logger *zap.Logger
}

// Deliver enqueues a change for this listener only, used for snapshot
// delivery at subscribe time.
func (s *Subscription) Deliver(change ports.Change) {
	if !s.l.enqueue(change) {
		s.logger.Warn("listener queue full or closed, dropping delivery",
			zap.String("collection", change.Collection),
			zap.String("id", change.ID),
		)
	}
}

// Unsubscribe deregisters the listener and stops its delivery goroutine.
// Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		s.l.close()
	})
}

// Hub is a process-local subscription registry keyed by document and by
// collection. Each listener drains its own queue, so a slow listener cannot
// stall the write path and never sees changes out of publish order.
type Hub struct {
	mu          sync.RWMutex
	nextID      uint64
	documents   map[string][]*listener // key: collection#id
	collections map[string][]*listener // key: collection
	logger      *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		documents:   make(map[string][]*listener),
		collections: make(map[string][]*listener),
		logger:      logger,
	}
}

func documentKey(collection, id string) string {
	return collection + "#" + id
}

// SubscribeDocument registers a listener for a single document
func (h *Hub) SubscribeDocument(collection, id string, callback ports.ChangeCallback) *Subscription {
	key := documentKey(collection, id)

	h.mu.Lock()
	h.nextID++
	l := newListener(h.nextID, callback)
	h.documents[key] = append(h.documents[key], l)
	h.mu.Unlock()

	h.logger.Debug("document listener registered",
		zap.String("collection", collection),
		zap.String("id", id),
	)

	return &Subscription{
		l:      l,
		logger: h.logger,
		cancel: func() {
			h.mu.Lock()
			h.documents[key] = remove(h.documents[key], l.id)
			if len(h.documents[key]) == 0 {
				delete(h.documents, key)
			}
			h.mu.Unlock()
		},
	}
}

// SubscribeCollection registers a listener for every change in a collection
func (h *Hub) SubscribeCollection(collection string, callback ports.ChangeCallback) *Subscription {
	h.mu.Lock()
	h.nextID++
	l := newListener(h.nextID, callback)
	h.collections[collection] = append(h.collections[collection], l)
	h.mu.Unlock()

	h.logger.Debug("collection listener registered", zap.String("collection", collection))

	return &Subscription{
		l:      l,
		logger: h.logger,
		cancel: func() {
			h.mu.Lock()
			h.collections[collection] = remove(h.collections[collection], l.id)
			if len(h.collections[collection]) == 0 {
				delete(h.collections, collection)
			}
			h.mu.Unlock()
		},
	}
}

// Publish delivers a change to every matching listener. Listeners registered
// after Publish returns do not receive this change.
func (h *Hub) Publish(change ports.Change) {
	h.mu.RLock()
	targets := make([]*listener, 0)
	targets = append(targets, h.documents[documentKey(change.Collection, change.ID)]...)
	targets = append(targets, h.collections[change.Collection]...)
	h.mu.RUnlock()

	for _, l := range targets {
		if !l.enqueue(change) {
			h.logger.Warn("listener queue full or closed, dropping change",
				zap.String("collection", change.Collection),
				zap.String("id", change.ID),
			)
		}
	}
}

// ListenerCount reports registered listeners, for health reporting and tests
func (h *Hub) ListenerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, ls := range h.documents {
		n += len(ls)
	}
	for _, ls := range h.collections {
		n += len(ls)
	}
	return n
}

func remove(ls []*listener, id uint64) []*listener {
	out := ls[:0]
	for _, l := range ls {
		if l.id != id {
			out = append(out, l)
		}
	}
	return out
}
