package ports

import (
	"context"
	"time"
)

// Record is a single schema-less document: an opaque field→value mapping that
// always carries a generated id plus createdAt/updatedAt stamps injected by
// the store client on write.
type Record map[string]interface{}

// Well-known record fields managed by the store client.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldIsDeleted = "isDeleted"
	FieldDeletedAt = "deletedAt"
)

// ID returns the record id, or "" when absent
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

// String returns a string field, or "" when absent or differently typed
func (r Record) String(field string) string {
	v, _ := r[field].(string)
	return v
}

// Bool returns a bool field, defaulting to false
func (r Record) Bool(field string) bool {
	v, _ := r[field].(bool)
	return v
}

// Float returns a numeric field as float64, defaulting to 0. DynamoDB and
// JSON both surface numbers as float64 through interface{} values.
func (r Record) Float(field string) float64 {
	switch v := r[field].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Clone returns a shallow copy so callers can mutate without aliasing
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Operator is a comparison operator in a where clause
type Operator string

const (
	OpEqual          Operator = "=="
	OpNotEqual       Operator = "!="
	OpLessThan       Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpGreaterThan    Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpContains       Operator = "array-contains"
)

// WhereClause filters on a single field; multiple clauses compose conjunctively
type WhereClause struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// OrderClause sorts on a single field; multiple clauses apply lexicographically
// in the order supplied. Ties always break on record id so result ordering is
// deterministic for identical inputs against unchanged data.
type OrderClause struct {
	Field      string
	Descending bool
}

// QueryOptions describes a collection query
type QueryOptions struct {
	Where   []WhereClause
	OrderBy []OrderClause
	Limit   int
	Cursor  string
}

// QueryResult is the page returned by Query
type QueryResult struct {
	Items      []Record
	Total      int
	HasMore    bool
	NextCursor string
}

// BatchOpType tags a batch operation variant
type BatchOpType string

const (
	BatchCreate BatchOpType = "create"
	BatchUpdate BatchOpType = "update"
	BatchDelete BatchOpType = "delete"
)

// BatchOperation is one entry in an atomic batch write
type BatchOperation struct {
	Type       BatchOpType
	Collection string
	ID         string
	Data       Record
}

// MaxBatchOperations bounds a single batch; the underlying store enforces a
// transaction size limit and this layer does not auto-chunk.
const MaxBatchOperations = 100

// ArrayOpKind is the direction of a set mutation
type ArrayOpKind string

const (
	ArrayAdd    ArrayOpKind = "add"
	ArrayRemove ArrayOpKind = "remove"
)

// ArrayOperation mutates a set-valued field server-side, avoiding
// read-modify-write races between concurrent callers.
type ArrayOperation struct {
	Field     string
	Operation ArrayOpKind
	Value     string
}

// GetOptions tunes a point read
type GetOptions struct {
	BypassCache bool
}

// DeleteOptions selects hard vs soft delete. Soft delete keeps the record
// queryable by id but marks it isDeleted with a deletedAt stamp; standard
// listings exclude it by calling-service convention.
type DeleteOptions struct {
	SoftDelete bool
}

// HealthStatus is the report produced by HealthCheck. Latency is populated
// even when the probe fails.
type HealthStatus struct {
	Status    string     `json:"status"`
	LatencyMs int64      `json:"latencyMs"`
	Cache     CacheStats `json:"cacheStats"`
	Error     string     `json:"error,omitempty"`
}

const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)

// DocumentStore is the contract every domain service is built on. All methods
// return (value, error); errors are *errors.AppError values carrying a stable
// code and a retryability verdict. A missing document is a normal outcome:
// GetByID returns (nil, nil).
type DocumentStore interface {
	Create(ctx context.Context, collection string, data Record) (Record, error)
	GetByID(ctx context.Context, collection, id string, opts GetOptions) (Record, error)
	Update(ctx context.Context, collection, id string, partial Record) (Record, error)
	Delete(ctx context.Context, collection, id string, opts DeleteOptions) error

	Query(ctx context.Context, collection string, opts QueryOptions) (*QueryResult, error)
	BatchWrite(ctx context.Context, operations []BatchOperation) error

	IncrementField(ctx context.Context, collection, id, field string, delta float64) error
	ArrayOperations(ctx context.Context, collection, id string, ops []ArrayOperation) error

	Exists(ctx context.Context, collection, id string) (bool, error)
	Count(ctx context.Context, collection string, opts QueryOptions) (int, error)

	SubscribeToDocument(collection, id string, callback ChangeCallback) Unsubscribe
	SubscribeToCollection(collection string, opts QueryOptions, callback ChangeCallback) Unsubscribe

	HealthCheck(ctx context.Context) HealthStatus
	ClearCache()
	CacheStats() CacheStats
}

// Timestamps returns the created/updated stamps of a record when present
func Timestamps(r Record) (createdAt, updatedAt time.Time) {
	if s := r.String(FieldCreatedAt); s != "" {
		createdAt, _ = time.Parse(time.RFC3339Nano, s)
	}
	if s := r.String(FieldUpdatedAt); s != "" {
		updatedAt, _ = time.Parse(time.RFC3339Nano, s)
	}
	return createdAt, updatedAt
}
