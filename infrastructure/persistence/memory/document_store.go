// Package memory provides an in-memory DocumentStore used by tests and local
// development. It enforces the same contract as the DynamoDB client: write
// stamps, cache invalidation before return, all-or-nothing batches and push
// subscriptions.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"skillcourt-backend/application/ports"
	"skillcourt-backend/infrastructure/persistence/cache"
	"skillcourt-backend/infrastructure/persistence/docquery"
	"skillcourt-backend/infrastructure/subscriptions"
	apperrors "skillcourt-backend/pkg/errors"
)

// DocumentStore is a process-local store keyed collection→id→record
type DocumentStore struct {
	mu        sync.RWMutex
	data      map[string]map[string]ports.Record
	cache     ports.Cache
	hub       *subscriptions.Hub
	logger    *zap.Logger
	clock     func() time.Time
	lastStamp time.Time
}

// NewDocumentStore creates an empty in-memory store
func NewDocumentStore(logger *zap.Logger) *DocumentStore {
	return &DocumentStore{
		data:   make(map[string]map[string]ports.Record),
		cache:  cache.NewBoundedCache(256, 5*time.Minute),
		hub:    subscriptions.NewHub(logger),
		logger: logger,
		clock:  time.Now,
	}
}

// stamp returns a strictly increasing RFC3339Nano timestamp; caller holds the
// write lock. Strict monotonicity keeps updatedAt increasing even when two
// writes land in the same clock tick.
func (s *DocumentStore) stamp() string {
	now := s.clock().UTC()
	if !now.After(s.lastStamp) {
		now = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = now
	return now.Format(time.RFC3339Nano)
}

// Create stamps and stores a new record
func (s *DocumentStore) Create(ctx context.Context, collection string, data ports.Record) (ports.Record, error) {
	if collection == "" {
		return nil, apperrors.NewValidationError("collection is required")
	}

	s.mu.Lock()
	record := data.Clone()
	id := uuid.New().String()
	now := s.stamp()
	record[ports.FieldID] = id
	record[ports.FieldCreatedAt] = now
	record[ports.FieldUpdatedAt] = now

	if s.data[collection] == nil {
		s.data[collection] = make(map[string]ports.Record)
	}
	s.data[collection][id] = record
	s.invalidateWrite(collection, id)
	s.mu.Unlock()

	s.hub.Publish(ports.Change{Collection: collection, ID: id, Kind: ports.ChangeCreated, Record: record.Clone()})
	return record.Clone(), nil
}

// GetByID returns (nil, nil) when the document does not exist
func (s *DocumentStore) GetByID(ctx context.Context, collection, id string, opts ports.GetOptions) (ports.Record, error) {
	key := cache.DocumentKey(collection, id)
	if !opts.BypassCache {
		if cached, ok := s.cache.Get(key); ok {
			if record, ok := cached.(ports.Record); ok {
				return record.Clone(), nil
			}
		}
	}

	s.mu.RLock()
	record, ok := s.data[collection][id]
	if ok {
		record = record.Clone()
	}
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	s.cache.Set(key, record)
	return record.Clone(), nil
}

// Update merges partial fields into an existing record
func (s *DocumentStore) Update(ctx context.Context, collection, id string, partial ports.Record) (ports.Record, error) {
	record, err := s.updateFields(collection, id, partial)
	if err != nil {
		return nil, err
	}
	s.hub.Publish(ports.Change{Collection: collection, ID: id, Kind: ports.ChangeUpdated, Record: record.Clone()})
	return record, nil
}

func (s *DocumentStore) updateFields(collection, id string, partial ports.Record) (ports.Record, error) {
	if len(partial) == 0 {
		return nil, apperrors.NewValidationError("no fields to update")
	}
	if _, ok := partial[ports.FieldID]; ok {
		return nil, apperrors.NewValidationError("document id is immutable")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data[collection][id]
	if !ok {
		return nil, apperrors.NewNotFoundError("document").WithDetails(map[string]interface{}{
			"collection": collection,
			"id":         id,
		})
	}

	for field, value := range partial {
		if field == ports.FieldCreatedAt || field == ports.FieldUpdatedAt {
			continue
		}
		existing[field] = value
	}
	existing[ports.FieldUpdatedAt] = s.stamp()

	s.invalidateWrite(collection, id)
	return existing.Clone(), nil
}

// Delete removes or soft-deletes a record
func (s *DocumentStore) Delete(ctx context.Context, collection, id string, opts ports.DeleteOptions) error {
	if opts.SoftDelete {
		record, err := s.updateFields(collection, id, ports.Record{
			ports.FieldIsDeleted: true,
			ports.FieldDeletedAt: s.clock().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return err
		}
		s.hub.Publish(ports.Change{Collection: collection, ID: id, Kind: ports.ChangeDeleted, Record: record})
		return nil
	}

	s.mu.Lock()
	delete(s.data[collection], id)
	s.invalidateWrite(collection, id)
	s.mu.Unlock()

	s.hub.Publish(ports.Change{Collection: collection, ID: id, Kind: ports.ChangeDeleted})
	return nil
}

// Query filters, orders and pages a collection
func (s *DocumentStore) Query(ctx context.Context, collection string, opts ports.QueryOptions) (*ports.QueryResult, error) {
	if collection == "" {
		return nil, apperrors.NewValidationError("collection is required")
	}

	offset := 0
	if opts.Cursor != "" {
		n, err := parseCursor(opts.Cursor)
		if err != nil {
			return nil, err
		}
		offset = n
	}

	s.mu.RLock()
	records := make([]ports.Record, 0, len(s.data[collection]))
	for _, record := range s.data[collection] {
		if docquery.Matches(record, opts.Where) {
			records = append(records, record.Clone())
		}
	}
	s.mu.RUnlock()

	docquery.Sort(records, opts.OrderBy)

	total := len(records)
	if offset > total {
		offset = total
	}
	end := total
	if opts.Limit > 0 && offset+opts.Limit < end {
		end = offset + opts.Limit
	}

	result := &ports.QueryResult{
		Items:   records[offset:end],
		Total:   total,
		HasMore: end < total,
	}
	if result.HasMore {
		result.NextCursor = strconv.Itoa(end)
	}
	return result, nil
}

// BatchWrite validates every operation up front, then applies them under one
// lock: readers never observe a partially applied batch, and a single invalid
// operation fails the whole batch with no effects.
func (s *DocumentStore) BatchWrite(ctx context.Context, operations []ports.BatchOperation) error {
	if len(operations) == 0 {
		return nil
	}
	if len(operations) > ports.MaxBatchOperations {
		return apperrors.NewValidationError("batch exceeds transaction limit").
			WithDetail("size", len(operations)).
			WithDetail("max", ports.MaxBatchOperations)
	}

	s.mu.Lock()

	for _, op := range operations {
		if op.Collection == "" {
			s.mu.Unlock()
			return apperrors.NewValidationError("batch operation requires a collection")
		}
		switch op.Type {
		case ports.BatchCreate:
		case ports.BatchUpdate, ports.BatchDelete:
			if op.ID == "" {
				s.mu.Unlock()
				return apperrors.NewValidationError("batch operation requires an id")
			}
			if _, ok := s.data[op.Collection][op.ID]; !ok {
				s.mu.Unlock()
				return apperrors.NewConflictError("batch aborted: document does not exist").
					WithDetails(map[string]interface{}{"collection": op.Collection, "id": op.ID})
			}
		default:
			s.mu.Unlock()
			return apperrors.NewValidationError("unknown batch operation type").
				WithDetail("type", string(op.Type))
		}
	}

	changes := make([]ports.Change, 0, len(operations))
	for _, op := range operations {
		switch op.Type {
		case ports.BatchCreate:
			record := op.Data.Clone()
			id := op.ID
			if id == "" {
				id = uuid.New().String()
			}
			now := s.stamp()
			record[ports.FieldID] = id
			record[ports.FieldCreatedAt] = now
			record[ports.FieldUpdatedAt] = now
			if s.data[op.Collection] == nil {
				s.data[op.Collection] = make(map[string]ports.Record)
			}
			s.data[op.Collection][id] = record
			changes = append(changes, ports.Change{Collection: op.Collection, ID: id, Kind: ports.ChangeCreated, Record: record.Clone()})

		case ports.BatchUpdate:
			existing := s.data[op.Collection][op.ID]
			for field, value := range op.Data {
				if field == ports.FieldID || field == ports.FieldCreatedAt || field == ports.FieldUpdatedAt {
					continue
				}
				existing[field] = value
			}
			existing[ports.FieldUpdatedAt] = s.stamp()
			changes = append(changes, ports.Change{Collection: op.Collection, ID: op.ID, Kind: ports.ChangeUpdated, Record: existing.Clone()})

		case ports.BatchDelete:
			delete(s.data[op.Collection], op.ID)
			changes = append(changes, ports.Change{Collection: op.Collection, ID: op.ID, Kind: ports.ChangeDeleted})
		}
	}

	for _, change := range changes {
		s.invalidateWrite(change.Collection, change.ID)
	}
	s.mu.Unlock()

	for _, change := range changes {
		s.hub.Publish(change)
	}
	return nil
}

// IncrementField atomically adds delta to a numeric field
func (s *DocumentStore) IncrementField(ctx context.Context, collection, id, field string, delta float64) error {
	if field == "" {
		return apperrors.NewValidationError("field is required")
	}

	s.mu.Lock()
	existing, ok := s.data[collection][id]
	if !ok {
		s.mu.Unlock()
		return apperrors.NewNotFoundError("document").WithDetails(map[string]interface{}{
			"collection": collection,
			"id":         id,
		})
	}
	existing[field] = existing.Float(field) + delta
	existing[ports.FieldUpdatedAt] = s.stamp()
	updated := existing.Clone()
	s.invalidateWrite(collection, id)
	s.mu.Unlock()

	s.hub.Publish(ports.Change{Collection: collection, ID: id, Kind: ports.ChangeUpdated, Record: updated})
	return nil
}

// ArrayOperations applies set add/remove mutations. Set fields are kept
// sorted so storage is deterministic.
func (s *DocumentStore) ArrayOperations(ctx context.Context, collection, id string, ops []ports.ArrayOperation) error {
	if len(ops) == 0 {
		return apperrors.NewValidationError("no array operations supplied")
	}

	s.mu.Lock()
	existing, ok := s.data[collection][id]
	if !ok {
		s.mu.Unlock()
		return apperrors.NewNotFoundError("document").WithDetails(map[string]interface{}{
			"collection": collection,
			"id":         id,
		})
	}

	for _, op := range ops {
		if op.Field == "" || op.Value == "" {
			s.mu.Unlock()
			return apperrors.NewValidationError("array operation requires field and value")
		}
		members := toStringSet(existing[op.Field])
		switch op.Operation {
		case ports.ArrayAdd:
			members[op.Value] = true
		case ports.ArrayRemove:
			delete(members, op.Value)
		default:
			s.mu.Unlock()
			return apperrors.NewValidationError("unsupported array operation").
				WithDetail("operation", string(op.Operation))
		}
		existing[op.Field] = sortedMembers(members)
	}
	existing[ports.FieldUpdatedAt] = s.stamp()
	updated := existing.Clone()
	s.invalidateWrite(collection, id)
	s.mu.Unlock()

	s.hub.Publish(ports.Change{Collection: collection, ID: id, Kind: ports.ChangeUpdated, Record: updated})
	return nil
}

// Exists reports document presence
func (s *DocumentStore) Exists(ctx context.Context, collection, id string) (bool, error) {
	record, err := s.GetByID(ctx, collection, id, ports.GetOptions{})
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

// Count returns how many documents match the query
func (s *DocumentStore) Count(ctx context.Context, collection string, opts ports.QueryOptions) (int, error) {
	opts.Limit = 0
	opts.Cursor = ""
	result, err := s.Query(ctx, collection, opts)
	if err != nil {
		return 0, err
	}
	return result.Total, nil
}

// SubscribeToDocument registers a listener; the callback receives a snapshot
// first, then every change.
func (s *DocumentStore) SubscribeToDocument(collection, id string, callback ports.ChangeCallback) ports.Unsubscribe {
	sub := s.hub.SubscribeDocument(collection, id, callback)

	record, _ := s.GetByID(context.Background(), collection, id, ports.GetOptions{})
	sub.Deliver(ports.Change{Collection: collection, ID: id, Kind: ports.ChangeSnapshot, Record: record})
	return sub.Unsubscribe
}

// SubscribeToCollection registers a listener for every change in a collection
func (s *DocumentStore) SubscribeToCollection(collection string, opts ports.QueryOptions, callback ports.ChangeCallback) ports.Unsubscribe {
	sub := s.hub.SubscribeCollection(collection, callback)

	if result, err := s.Query(context.Background(), collection, opts); err == nil {
		for _, record := range result.Items {
			sub.Deliver(ports.Change{Collection: collection, ID: record.ID(), Kind: ports.ChangeSnapshot, Record: record})
		}
	}
	return sub.Unsubscribe
}

// HealthCheck always reports healthy with measured latency
func (s *DocumentStore) HealthCheck(ctx context.Context) ports.HealthStatus {
	start := s.clock()
	s.mu.RLock()
	_ = len(s.data)
	s.mu.RUnlock()

	return ports.HealthStatus{
		Status:    ports.HealthStatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
		Cache:     s.cache.Stats(),
	}
}

// ClearCache drops every cached entry
func (s *DocumentStore) ClearCache() {
	s.cache.Clear()
}

// CacheStats exposes cache counters
func (s *DocumentStore) CacheStats() ports.CacheStats {
	return s.cache.Stats()
}

// invalidateWrite drops document and query cache entries; callers hold the
// write lock so the invalidation is visible before the write returns.
func (s *DocumentStore) invalidateWrite(collection, id string) {
	s.cache.Invalidate(cache.DocumentKey(collection, id))
	s.cache.InvalidatePrefix(cache.QueryKey(collection, ""))
}

func toStringSet(v interface{}) map[string]bool {
	out := make(map[string]bool)
	switch vs := v.(type) {
	case []string:
		for _, m := range vs {
			out[m] = true
		}
	case []interface{}:
		for _, m := range vs {
			if str, ok := m.(string); ok {
				out[str] = true
			}
		}
	}
	return out
}

func sortedMembers(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func parseCursor(cursor string) (int, error) {
	n, err := strconv.Atoi(cursor)
	if err != nil || n < 0 {
		return 0, apperrors.NewValidationError("malformed cursor").WithDetail("cursor", cursor)
	}
	return n, nil
}
