package ports

// ChangeKind tags a change notification delivered to subscribers
type ChangeKind string

const (
	// ChangeSnapshot is the initial delivery carrying current state
	ChangeSnapshot ChangeKind = "snapshot"
	ChangeCreated  ChangeKind = "created"
	ChangeUpdated  ChangeKind = "updated"
	ChangeDeleted  ChangeKind = "deleted"
)

// Change is one push notification. Record is nil for deletes and for a
// snapshot of a document that does not exist yet.
type Change struct {
	Collection string
	ID         string
	Kind       ChangeKind
	Record     Record
}

// ChangeCallback receives push notifications. Callbacks run on the publishing
// goroutine's fan-out path and must not block indefinitely.
type ChangeCallback func(Change)

// Unsubscribe detaches a listener. Calling it more than once is safe and
// never re-delivers.
type Unsubscribe func()
