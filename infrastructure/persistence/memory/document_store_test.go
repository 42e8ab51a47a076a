package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"skillcourt-backend/application/ports"
	apperrors "skillcourt-backend/pkg/errors"
)

func newTestStore() *DocumentStore {
	return NewDocumentStore(zap.NewNop())
}

func TestCreateStampsAndGeneratesID(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "sports", ports.Record{"name": "Tennis"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID())
	assert.Equal(t, "Tennis", created.String("name"))

	createdAt, updatedAt := ports.Timestamps(created)
	assert.False(t, createdAt.IsZero())
	assert.Equal(t, createdAt, updatedAt)
}

func TestGetByIDMissingIsNilNil(t *testing.T) {
	store := newTestStore()

	record, err := store.GetByID(context.Background(), "sports", "nope", ports.GetOptions{})
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestUpdateMergesAndAdvancesUpdatedAt(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "sports", ports.Record{"name": "Tennis", "venue": "court"})
	require.NoError(t, err)

	updated, err := store.Update(ctx, "sports", created.ID(), ports.Record{"name": "Padel"})
	require.NoError(t, err)
	assert.Equal(t, "Padel", updated.String("name"))
	assert.Equal(t, "court", updated.String("venue"), "untouched fields survive a partial update")

	_, before := ports.Timestamps(created)
	_, after := ports.Timestamps(updated)
	assert.True(t, after.After(before))
}

func TestUpdateRejectsIDMutation(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "sports", ports.Record{"name": "Tennis"})
	require.NoError(t, err)

	_, err = store.Update(ctx, "sports", created.ID(), ports.Record{ports.FieldID: "other"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdateMissingDocumentIsNotFound(t *testing.T) {
	store := newTestStore()

	_, err := store.Update(context.Background(), "sports", "ghost", ports.Record{"name": "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSoftDeleteKeepsRecordReadable(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "sports", ports.Record{"name": "Tennis"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "sports", created.ID(), ports.DeleteOptions{SoftDelete: true}))

	record, err := store.GetByID(ctx, "sports", created.ID(), ports.GetOptions{})
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.Bool(ports.FieldIsDeleted))
	assert.NotEmpty(t, record.String(ports.FieldDeletedAt))
}

func TestHardDeleteIsIdempotent(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "sports", ports.Record{"name": "Tennis"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "sports", created.ID(), ports.DeleteOptions{}))
	require.NoError(t, store.Delete(ctx, "sports", created.ID(), ports.DeleteOptions{}))

	record, err := store.GetByID(ctx, "sports", created.ID(), ports.GetOptions{})
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestReadsNeverReturnStaleDataAfterWrite(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "skills", ports.Record{"name": "Serve", "level": float64(1)})
	require.NoError(t, err)

	// Warm the document and query cache.
	_, err = store.GetByID(ctx, "skills", created.ID(), ports.GetOptions{})
	require.NoError(t, err)
	_, err = store.Query(ctx, "skills", ports.QueryOptions{})
	require.NoError(t, err)

	_, err = store.Update(ctx, "skills", created.ID(), ports.Record{"level": float64(2)})
	require.NoError(t, err)

	record, err := store.GetByID(ctx, "skills", created.ID(), ports.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, float64(2), record.Float("level"))

	result, err := store.Query(ctx, "skills", ports.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, float64(2), result.Items[0].Float("level"))
}

func TestReturnedRecordsAreDetachedCopies(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "sports", ports.Record{"name": "Tennis"})
	require.NoError(t, err)
	created["name"] = "mutated"

	record, err := store.GetByID(ctx, "sports", created.ID(), ports.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Tennis", record.String("name"))
}

func seedQueryFixtures(t *testing.T, store *DocumentStore) {
	t.Helper()
	ctx := context.Background()
	fixtures := []ports.Record{
		{"name": "Serve", "sportId": "tennis", "order": float64(3)},
		{"name": "Volley", "sportId": "tennis", "order": float64(1)},
		{"name": "Smash", "sportId": "tennis", "order": float64(2)},
		{"name": "Dribble", "sportId": "soccer", "order": float64(1)},
	}
	for _, f := range fixtures {
		_, err := store.Create(ctx, "skills", f)
		require.NoError(t, err)
	}
}

func TestQueryFilterAndSort(t *testing.T) {
	store := newTestStore()
	seedQueryFixtures(t, store)

	result, err := store.Query(context.Background(), "skills", ports.QueryOptions{
		Where:   []ports.WhereClause{{Field: "sportId", Operator: ports.OpEqual, Value: "tennis"}},
		OrderBy: []ports.OrderClause{{Field: "order"}},
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	assert.Equal(t, 3, result.Total)
	assert.False(t, result.HasMore)

	names := []string{
		result.Items[0].String("name"),
		result.Items[1].String("name"),
		result.Items[2].String("name"),
	}
	assert.Equal(t, []string{"Volley", "Smash", "Serve"}, names)
}

func TestQueryPagination(t *testing.T) {
	store := newTestStore()
	seedQueryFixtures(t, store)
	ctx := context.Background()
	opts := ports.QueryOptions{
		OrderBy: []ports.OrderClause{{Field: "name"}},
		Limit:   3,
	}

	first, err := store.Query(ctx, "skills", opts)
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	assert.Equal(t, 4, first.Total)
	require.True(t, first.HasMore)
	require.NotEmpty(t, first.NextCursor)

	opts.Cursor = first.NextCursor
	second, err := store.Query(ctx, "skills", opts)
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.False(t, second.HasMore)
	assert.Empty(t, second.NextCursor)

	seen := map[string]bool{}
	for _, r := range append(first.Items, second.Items...) {
		seen[r.String("name")] = true
	}
	assert.Len(t, seen, 4, "pages do not overlap")
}

func TestQueryRejectsMalformedCursor(t *testing.T) {
	store := newTestStore()

	_, err := store.Query(context.Background(), "skills", ports.QueryOptions{Cursor: "not-a-cursor"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCount(t *testing.T) {
	store := newTestStore()
	seedQueryFixtures(t, store)

	n, err := store.Count(context.Background(), "skills", ports.QueryOptions{
		Where: []ports.WhereClause{{Field: "sportId", Operator: ports.OpEqual, Value: "tennis"}},
		Limit: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n, "count ignores limit")
}

func TestBatchWriteIsAllOrNothing(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "sports", ports.Record{"name": "Tennis"})
	require.NoError(t, err)

	err = store.BatchWrite(ctx, []ports.BatchOperation{
		{Type: ports.BatchUpdate, Collection: "sports", ID: created.ID(), Data: ports.Record{"name": "Padel"}},
		{Type: ports.BatchUpdate, Collection: "sports", ID: "missing", Data: ports.Record{"name": "x"}},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	record, err := store.GetByID(ctx, "sports", created.ID(), ports.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Tennis", record.String("name"), "failed batch leaves no partial effects")
}

func TestBatchWriteAppliesMixedOperations(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	existing, err := store.Create(ctx, "sports", ports.Record{"name": "Tennis"})
	require.NoError(t, err)
	doomed, err := store.Create(ctx, "sports", ports.Record{"name": "Cricket"})
	require.NoError(t, err)

	err = store.BatchWrite(ctx, []ports.BatchOperation{
		{Type: ports.BatchCreate, Collection: "sports", Data: ports.Record{"name": "Padel"}},
		{Type: ports.BatchUpdate, Collection: "sports", ID: existing.ID(), Data: ports.Record{"name": "Table Tennis"}},
		{Type: ports.BatchDelete, Collection: "sports", ID: doomed.ID()},
	})
	require.NoError(t, err)

	n, err := store.Count(ctx, "sports", ports.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	record, err := store.GetByID(ctx, "sports", existing.ID(), ports.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Table Tennis", record.String("name"))
}

func TestBatchWriteRejectsOversizedBatch(t *testing.T) {
	store := newTestStore()

	ops := make([]ports.BatchOperation, ports.MaxBatchOperations+1)
	for i := range ops {
		ops[i] = ports.BatchOperation{Type: ports.BatchCreate, Collection: "sports", Data: ports.Record{}}
	}

	err := store.BatchWrite(context.Background(), ops)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestIncrementField(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "sports", ports.Record{"name": "Tennis", "skillCount": float64(2)})
	require.NoError(t, err)

	require.NoError(t, store.IncrementField(ctx, "sports", created.ID(), "skillCount", 1))
	require.NoError(t, store.IncrementField(ctx, "sports", created.ID(), "skillCount", -2))

	record, err := store.GetByID(ctx, "sports", created.ID(), ports.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, float64(1), record.Float("skillCount"))
}

func TestIncrementFieldInitializesMissingCounter(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "sports", ports.Record{"name": "Tennis"})
	require.NoError(t, err)

	require.NoError(t, store.IncrementField(ctx, "sports", created.ID(), "quizCount", 3))

	record, err := store.GetByID(ctx, "sports", created.ID(), ports.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, float64(3), record.Float("quizCount"))
}

func TestArrayOperations(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "users", ports.Record{"name": "Sam"})
	require.NoError(t, err)

	err = store.ArrayOperations(ctx, "users", created.ID(), []ports.ArrayOperation{
		{Field: "badges", Operation: ports.ArrayAdd, Value: "first-quiz"},
		{Field: "badges", Operation: ports.ArrayAdd, Value: "streak-7"},
		{Field: "badges", Operation: ports.ArrayAdd, Value: "first-quiz"},
	})
	require.NoError(t, err)

	record, err := store.GetByID(ctx, "users", created.ID(), ports.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first-quiz", "streak-7"}, record["badges"])

	err = store.ArrayOperations(ctx, "users", created.ID(), []ports.ArrayOperation{
		{Field: "badges", Operation: ports.ArrayRemove, Value: "first-quiz"},
	})
	require.NoError(t, err)

	record, err = store.GetByID(ctx, "users", created.ID(), ports.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"streak-7"}, record["badges"])
}

func TestSubscribeToDocumentReceivesSnapshotThenChanges(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	created, err := store.Create(ctx, "sports", ports.Record{"name": "Tennis"})
	require.NoError(t, err)

	var mu sync.Mutex
	var changes []ports.Change
	signal := make(chan struct{}, 16)
	unsub := store.SubscribeToDocument("sports", created.ID(), func(c ports.Change) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
		signal <- struct{}{}
	})
	defer unsub()

	waitFor(t, signal, 1)

	_, err = store.Update(ctx, "sports", created.ID(), ports.Record{"name": "Padel"})
	require.NoError(t, err)
	waitFor(t, signal, 1)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 2)
	assert.Equal(t, ports.ChangeSnapshot, changes[0].Kind)
	assert.Equal(t, "Tennis", changes[0].Record.String("name"))
	assert.Equal(t, ports.ChangeUpdated, changes[1].Kind)
	assert.Equal(t, "Padel", changes[1].Record.String("name"))
}

func TestSubscribeToCollectionSeesCreates(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	var mu sync.Mutex
	kinds := map[ports.ChangeKind]int{}
	signal := make(chan struct{}, 16)
	unsub := store.SubscribeToCollection("skills", ports.QueryOptions{}, func(c ports.Change) {
		mu.Lock()
		kinds[c.Kind]++
		mu.Unlock()
		signal <- struct{}{}
	})
	defer unsub()

	_, err := store.Create(ctx, "skills", ports.Record{"name": "Serve"})
	require.NoError(t, err)
	_, err = store.Create(ctx, "skills", ports.Record{"name": "Volley"})
	require.NoError(t, err)
	waitFor(t, signal, 2)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, kinds[ports.ChangeCreated])
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	signal := make(chan struct{}, 16)
	unsub := store.SubscribeToCollection("skills", ports.QueryOptions{}, func(ports.Change) {
		signal <- struct{}{}
	})

	_, err := store.Create(ctx, "skills", ports.Record{"name": "Serve"})
	require.NoError(t, err)
	waitFor(t, signal, 1)

	unsub()
	unsub() // idempotent

	_, err = store.Create(ctx, "skills", ports.Record{"name": "Volley"})
	require.NoError(t, err)

	select {
	case <-signal:
		t.Fatal("listener notified after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHealthCheckReportsHealthy(t *testing.T) {
	store := newTestStore()

	status := store.HealthCheck(context.Background())
	assert.Equal(t, ports.HealthStatusHealthy, status.Status)
	assert.Empty(t, status.Error)
}

func waitFor(t *testing.T, signal chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-signal:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for notification %d of %d", i+1, n)
		}
	}
}
