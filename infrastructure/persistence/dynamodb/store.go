// Package dynamodb implements the DocumentStore contract on a single
// DynamoDB table. Documents live under PK "DOC#<collection>#<id>" with a GSI
// keyed by collection for listing.
package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"skillcourt-backend/application/ports"
	"skillcourt-backend/infrastructure/persistence/cache"
	"skillcourt-backend/infrastructure/persistence/resilience"
	"skillcourt-backend/infrastructure/subscriptions"
	apperrors "skillcourt-backend/pkg/errors"
)

// API is the slice of the DynamoDB client the store depends on. The concrete
// *dynamodb.Client satisfies it; tests substitute an in-memory fake.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store is the document store client: CRUD + query + batch + realtime
// subscriptions, composing the bounded cache and the retry executor.
type Store struct {
	client    API
	tableName string
	indexName string
	cache     ports.Cache
	executor  *resilience.Executor
	hub       *subscriptions.Hub
	logger    *zap.Logger
	clock     func() time.Time
}

// NewStore creates a document store client over the given table
func NewStore(client API, tableName, indexName string, c ports.Cache, executor *resilience.Executor, h *subscriptions.Hub, logger *zap.Logger) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		cache:     c,
		executor:  executor,
		hub:       h,
		logger:    logger,
		clock:     time.Now,
	}
}

// documentItem is the single-table item layout for one document
type documentItem struct {
	PK         string                 `dynamodbav:"PK"`
	SK         string                 `dynamodbav:"SK"`
	GSI1PK     string                 `dynamodbav:"GSI1PK"`
	GSI1SK     string                 `dynamodbav:"GSI1SK"`
	Collection string                 `dynamodbav:"Collection"`
	DocumentID string                 `dynamodbav:"DocumentID"`
	Data       map[string]interface{} `dynamodbav:"Data"`
}

const skMetadata = "METADATA"

func documentPK(collection, id string) string {
	return fmt.Sprintf("DOC#%s#%s", collection, id)
}

func collectionPK(collection string) string {
	return fmt.Sprintf("COLLECTION#%s", collection)
}

func documentKeyAttrs(collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: documentPK(collection, id)},
		"SK": &types.AttributeValueMemberS{Value: skMetadata},
	}
}

func (s *Store) newItem(collection, id string, data ports.Record) documentItem {
	return documentItem{
		PK:         documentPK(collection, id),
		SK:         skMetadata,
		GSI1PK:     collectionPK(collection),
		GSI1SK:     id,
		Collection: collection,
		DocumentID: id,
		Data:       data,
	}
}

// Create stamps createdAt/updatedAt, writes the document and returns it with
// its generated id. Transient store failures are retried; validation and
// permission failures are not.
func (s *Store) Create(ctx context.Context, collection string, data ports.Record) (ports.Record, error) {
	if collection == "" {
		return nil, apperrors.NewValidationError("collection is required")
	}

	record := data.Clone()
	now := s.clock().UTC().Format(time.RFC3339Nano)
	id := uuid.New().String()
	record[ports.FieldID] = id
	record[ports.FieldCreatedAt] = now
	record[ports.FieldUpdatedAt] = now

	av, err := attributevalue.MarshalMap(s.newItem(collection, id, record))
	if err != nil {
		return nil, apperrors.NewValidationError("failed to marshal document").WithCause(err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}

	err = s.executor.Do(ctx, "create", func() error {
		_, err := s.client.PutItem(ctx, input)
		return err
	})
	if err != nil {
		return nil, s.storeError("create", collection, id, err)
	}

	s.invalidateWrite(collection, id)
	s.hub.Publish(ports.Change{Collection: collection, ID: id, Kind: ports.ChangeCreated, Record: record})

	s.logger.Debug("document created",
		zap.String("collection", collection),
		zap.String("id", id),
	)
	return record, nil
}

// GetByID fetches one document. A cache hit short-circuits the store
// round-trip unless opts.BypassCache is set. A missing document is a normal
// outcome: (nil, nil).
func (s *Store) GetByID(ctx context.Context, collection, id string, opts ports.GetOptions) (ports.Record, error) {
	key := cache.DocumentKey(collection, id)
	if !opts.BypassCache {
		if cached, ok := s.cache.Get(key); ok {
			if record, ok := cached.(ports.Record); ok {
				return record.Clone(), nil
			}
		}
	}

	input := &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       documentKeyAttrs(collection, id),
	}

	var out *dynamodb.GetItemOutput
	err := s.executor.Do(ctx, "getById", func() error {
		var err error
		out, err = s.client.GetItem(ctx, input)
		return err
	})
	if err != nil {
		return nil, s.storeError("getById", collection, id, err)
	}

	if out.Item == nil {
		return nil, nil
	}

	var item documentItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperrors.NewDatabaseError("getById", err)
	}

	record := ports.Record(item.Data)
	s.cache.Set(key, record)
	return record.Clone(), nil
}

// Update applies a partial field set, stamps updatedAt and invalidates the
// document's cache entry before returning.
func (s *Store) Update(ctx context.Context, collection, id string, partial ports.Record) (ports.Record, error) {
	record, err := s.updateFields(ctx, collection, id, partial)
	if err != nil {
		return nil, err
	}

	s.hub.Publish(ports.Change{Collection: collection, ID: id, Kind: ports.ChangeUpdated, Record: record})
	return record.Clone(), nil
}

// updateFields performs the write and cache invalidation shared by Update and
// soft Delete; the caller publishes the appropriate change kind.
func (s *Store) updateFields(ctx context.Context, collection, id string, partial ports.Record) (ports.Record, error) {
	if len(partial) == 0 {
		return nil, apperrors.NewValidationError("no fields to update")
	}
	if _, ok := partial[ports.FieldID]; ok {
		return nil, apperrors.NewValidationError("document id is immutable")
	}

	update := expression.Set(
		expression.Name("Data."+ports.FieldUpdatedAt),
		expression.Value(s.clock().UTC().Format(time.RFC3339Nano)),
	)
	for field, value := range partial {
		if field == ports.FieldCreatedAt || field == ports.FieldUpdatedAt {
			continue
		}
		update = update.Set(expression.Name("Data."+field), expression.Value(value))
	}

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return nil, apperrors.NewValidationError("failed to build update expression").WithCause(err)
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       documentKeyAttrs(collection, id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	}

	var out *dynamodb.UpdateItemOutput
	err = s.executor.Do(ctx, "update", func() error {
		var err error
		out, err = s.client.UpdateItem(ctx, input)
		return err
	})
	if err != nil {
		return nil, s.storeError("update", collection, id, err)
	}

	var item documentItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, apperrors.NewDatabaseError("update", err)
	}
	record := ports.Record(item.Data)

	// Invalidate before returning so a sibling read in this process can never
	// observe the pre-update record.
	s.invalidateWrite(collection, id)

	return record, nil
}

// Delete removes a document. With opts.SoftDelete it instead marks the record
// isDeleted with a deletedAt stamp, leaving it readable by id. Either path
// invalidates the cache entry.
func (s *Store) Delete(ctx context.Context, collection, id string, opts ports.DeleteOptions) error {
	if opts.SoftDelete {
		now := s.clock().UTC().Format(time.RFC3339Nano)
		record, err := s.updateFields(ctx, collection, id, ports.Record{
			ports.FieldIsDeleted: true,
			ports.FieldDeletedAt: now,
		})
		if err != nil {
			return err
		}
		s.hub.Publish(ports.Change{Collection: collection, ID: id, Kind: ports.ChangeDeleted, Record: record})
		return nil
	}

	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       documentKeyAttrs(collection, id),
	}

	err := s.executor.Do(ctx, "delete", func() error {
		_, err := s.client.DeleteItem(ctx, input)
		return err
	})
	if err != nil {
		return s.storeError("delete", collection, id, err)
	}

	s.invalidateWrite(collection, id)
	s.hub.Publish(ports.Change{Collection: collection, ID: id, Kind: ports.ChangeDeleted})
	return nil
}

// Exists reports whether a document is present
func (s *Store) Exists(ctx context.Context, collection, id string) (bool, error) {
	record, err := s.GetByID(ctx, collection, id, ports.GetOptions{})
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

// SubscribeToDocument registers a push listener for one document. The
// callback receives a snapshot with current state (nil Record when the
// document does not exist) plus every subsequent change, delivered in order
// on the listener's queue. The snapshot is fetched asynchronously, so a write
// racing the fetch may be delivered before it. The returned handle is
// idempotent.
func (s *Store) SubscribeToDocument(collection, id string, callback ports.ChangeCallback) ports.Unsubscribe {
	sub := s.hub.SubscribeDocument(collection, id, callback)
	s.deliverSnapshot(collection, id, sub)
	return sub.Unsubscribe
}

// SubscribeToCollection registers a push listener for every change in a
// collection. Matching documents are delivered once as snapshots, then
// changes follow.
func (s *Store) SubscribeToCollection(collection string, opts ports.QueryOptions, callback ports.ChangeCallback) ports.Unsubscribe {
	sub := s.hub.SubscribeCollection(collection, callback)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		result, err := s.Query(ctx, collection, opts)
		if err != nil {
			s.logger.Warn("collection snapshot failed",
				zap.String("collection", collection),
				zap.Error(err),
			)
			return
		}
		for _, record := range result.Items {
			sub.Deliver(ports.Change{
				Collection: collection,
				ID:         record.ID(),
				Kind:       ports.ChangeSnapshot,
				Record:     record,
			})
		}
	}()

	return sub.Unsubscribe
}

func (s *Store) deliverSnapshot(collection, id string, sub *subscriptions.Subscription) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		record, err := s.GetByID(ctx, collection, id, ports.GetOptions{})
		if err != nil {
			s.logger.Warn("document snapshot failed",
				zap.String("collection", collection),
				zap.String("id", id),
				zap.Error(err),
			)
			return
		}
		sub.Deliver(ports.Change{
			Collection: collection,
			ID:         id,
			Kind:       ports.ChangeSnapshot,
			Record:     record,
		})
	}()
}

// HealthCheck performs a minimal read against the store. Latency is reported
// even when the probe fails.
func (s *Store) HealthCheck(ctx context.Context) ports.HealthStatus {
	start := s.clock()

	_, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       documentKeyAttrs("health", "probe"),
	})

	status := ports.HealthStatus{
		Status:    ports.HealthStatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
		Cache:     s.cache.Stats(),
	}
	if err != nil {
		status.Status = ports.HealthStatusUnhealthy
		status.Error = err.Error()
	}
	return status
}

// ClearCache drops every cached entry
func (s *Store) ClearCache() {
	s.cache.Clear()
}

// CacheStats exposes the cache manager's counters
func (s *Store) CacheStats() ports.CacheStats {
	return s.cache.Stats()
}

// invalidateWrite drops the document entry and any cached query results for
// the collection. Called on every write path before success is returned.
func (s *Store) invalidateWrite(collection, id string) {
	s.cache.Invalidate(cache.DocumentKey(collection, id))
	s.cache.InvalidatePrefix(cache.QueryKey(collection, ""))
}

// storeError converts an exhausted or fatal SDK failure into an AppError
// carrying the classifier's retryability verdict.
func (s *Store) storeError(operation, collection, id string, err error) error {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return appErr
	}
	verdict := resilience.Classify(err)
	appErr := apperrors.NewDatabaseError(operation, err)
	appErr.Retryable = verdict.Retryable
	return appErr.WithDetails(map[string]interface{}{
		"collection": collection,
		"id":         id,
	})
}
