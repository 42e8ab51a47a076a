package dynamodb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"skillcourt-backend/application/ports"
	apperrors "skillcourt-backend/pkg/errors"
)

// IncrementField atomically adds delta to a numeric field server-side, so two
// concurrent callers bumping the same counter never lose an update. The
// document must exist.
func (s *Store) IncrementField(ctx context.Context, collection, id, field string, delta float64) error {
	if field == "" {
		return apperrors.NewValidationError("field is required")
	}

	input := &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 documentKeyAttrs(collection, id),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		UpdateExpression:    aws.String("SET #d.#f = if_not_exists(#d.#f, :zero) + :delta, #d.#u = :now"),
		ExpressionAttributeNames: map[string]string{
			"#d": "Data",
			"#f": field,
			"#u": ports.FieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero":  &types.AttributeValueMemberN{Value: "0"},
			":delta": &types.AttributeValueMemberN{Value: strconv.FormatFloat(delta, 'f', -1, 64)},
			":now":   &types.AttributeValueMemberS{Value: s.clock().UTC().Format(time.RFC3339Nano)},
		},
		ReturnValues: types.ReturnValueAllNew,
	}

	var out *dynamodb.UpdateItemOutput
	err := s.executor.Do(ctx, "incrementField", func() error {
		var err error
		out, err = s.client.UpdateItem(ctx, input)
		return err
	})
	if err != nil {
		return s.storeError("incrementField", collection, id, err)
	}

	s.invalidateWrite(collection, id)
	s.publishFromAttributes(collection, id, out.Attributes)
	return nil
}

// ArrayOperations applies set add/remove mutations server-side via DynamoDB
// string-set ADD/DELETE actions, which are atomic per item.
func (s *Store) ArrayOperations(ctx context.Context, collection, id string, ops []ports.ArrayOperation) error {
	if len(ops) == 0 {
		return apperrors.NewValidationError("no array operations supplied")
	}

	adds := make(map[string][]string)
	removes := make(map[string][]string)
	for _, op := range ops {
		if op.Field == "" || op.Value == "" {
			return apperrors.NewValidationError("array operation requires field and value")
		}
		switch op.Operation {
		case ports.ArrayAdd:
			adds[op.Field] = append(adds[op.Field], op.Value)
		case ports.ArrayRemove:
			removes[op.Field] = append(removes[op.Field], op.Value)
		default:
			return apperrors.NewValidationError("unsupported array operation").
				WithDetail("operation", string(op.Operation))
		}
	}

	names := map[string]string{"#d": "Data", "#u": ports.FieldUpdatedAt}
	values := map[string]types.AttributeValue{
		":now": &types.AttributeValueMemberS{Value: s.clock().UTC().Format(time.RFC3339Nano)},
	}

	var addParts, delParts []string
	i := 0
	for field, members := range adds {
		n, v := fmt.Sprintf("#f%d", i), fmt.Sprintf(":v%d", i)
		names[n] = field
		values[v] = &types.AttributeValueMemberSS{Value: members}
		addParts = append(addParts, fmt.Sprintf("#d.%s %s", n, v))
		i++
	}
	for field, members := range removes {
		n, v := fmt.Sprintf("#f%d", i), fmt.Sprintf(":v%d", i)
		names[n] = field
		values[v] = &types.AttributeValueMemberSS{Value: members}
		delParts = append(delParts, fmt.Sprintf("#d.%s %s", n, v))
		i++
	}

	update := "SET #d.#u = :now"
	if len(addParts) > 0 {
		update += " ADD " + strings.Join(addParts, ", ")
	}
	if len(delParts) > 0 {
		update += " DELETE " + strings.Join(delParts, ", ")
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       documentKeyAttrs(collection, id),
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		UpdateExpression:          aws.String(update),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	}

	var out *dynamodb.UpdateItemOutput
	err := s.executor.Do(ctx, "arrayOperations", func() error {
		var err error
		out, err = s.client.UpdateItem(ctx, input)
		return err
	})
	if err != nil {
		return s.storeError("arrayOperations", collection, id, err)
	}

	s.invalidateWrite(collection, id)
	s.publishFromAttributes(collection, id, out.Attributes)
	return nil
}

// BatchWrite applies creates, updates and deletes as one transaction:
// either every operation commits or none does. The batch is bounded by the
// store's transaction limit; callers exceeding it must chunk themselves.
func (s *Store) BatchWrite(ctx context.Context, operations []ports.BatchOperation) error {
	if len(operations) == 0 {
		return nil
	}
	if len(operations) > ports.MaxBatchOperations {
		return apperrors.NewValidationError("batch exceeds transaction limit").
			WithDetail("size", len(operations)).
			WithDetail("max", ports.MaxBatchOperations)
	}

	now := s.clock().UTC().Format(time.RFC3339Nano)
	items := make([]types.TransactWriteItem, 0, len(operations))
	changes := make([]ports.Change, 0, len(operations))

	for _, op := range operations {
		if op.Collection == "" {
			return apperrors.NewValidationError("batch operation requires a collection")
		}

		switch op.Type {
		case ports.BatchCreate:
			record := op.Data.Clone()
			id := op.ID
			if id == "" {
				id = uuid.New().String()
			}
			record[ports.FieldID] = id
			record[ports.FieldCreatedAt] = now
			record[ports.FieldUpdatedAt] = now

			av, err := attributevalue.MarshalMap(s.newItem(op.Collection, id, record))
			if err != nil {
				return apperrors.NewValidationError("failed to marshal batch create").WithCause(err)
			}
			items = append(items, types.TransactWriteItem{
				Put: &types.Put{
					TableName:           aws.String(s.tableName),
					Item:                av,
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				},
			})
			changes = append(changes, ports.Change{
				Collection: op.Collection, ID: id, Kind: ports.ChangeCreated, Record: record,
			})

		case ports.BatchUpdate:
			if op.ID == "" {
				return apperrors.NewValidationError("batch update requires an id")
			}
			update := expression.Set(
				expression.Name("Data."+ports.FieldUpdatedAt),
				expression.Value(now),
			)
			for field, value := range op.Data {
				if field == ports.FieldID || field == ports.FieldCreatedAt || field == ports.FieldUpdatedAt {
					continue
				}
				update = update.Set(expression.Name("Data."+field), expression.Value(value))
			}
			expr, err := expression.NewBuilder().
				WithUpdate(update).
				WithCondition(expression.AttributeExists(expression.Name("PK"))).
				Build()
			if err != nil {
				return apperrors.NewValidationError("failed to build batch update").WithCause(err)
			}
			items = append(items, types.TransactWriteItem{
				Update: &types.Update{
					TableName:                 aws.String(s.tableName),
					Key:                       documentKeyAttrs(op.Collection, op.ID),
					UpdateExpression:          expr.Update(),
					ConditionExpression:       expr.Condition(),
					ExpressionAttributeNames:  expr.Names(),
					ExpressionAttributeValues: expr.Values(),
				},
			})
			changes = append(changes, ports.Change{
				Collection: op.Collection, ID: op.ID, Kind: ports.ChangeUpdated, Record: op.Data,
			})

		case ports.BatchDelete:
			if op.ID == "" {
				return apperrors.NewValidationError("batch delete requires an id")
			}
			items = append(items, types.TransactWriteItem{
				Delete: &types.Delete{
					TableName: aws.String(s.tableName),
					Key:       documentKeyAttrs(op.Collection, op.ID),
				},
			})
			changes = append(changes, ports.Change{
				Collection: op.Collection, ID: op.ID, Kind: ports.ChangeDeleted,
			})

		default:
			return apperrors.NewValidationError("unknown batch operation type").
				WithDetail("type", string(op.Type))
		}
	}

	input := &dynamodb.TransactWriteItemsInput{TransactItems: items}
	err := s.executor.Do(ctx, "batchWrite", func() error {
		_, err := s.client.TransactWriteItems(ctx, input)
		return err
	})
	if err != nil {
		return s.storeError("batchWrite", "", "", err)
	}

	for _, change := range changes {
		s.invalidateWrite(change.Collection, change.ID)
	}
	for _, change := range changes {
		s.hub.Publish(change)
	}

	s.logger.Debug("batch committed", zap.Int("operations", len(operations)))
	return nil
}

// publishFromAttributes converts a ReturnValues ALL_NEW payload into an
// updated-change notification. Failures here only cost a notification.
func (s *Store) publishFromAttributes(collection, id string, attrs map[string]types.AttributeValue) {
	if attrs == nil {
		return
	}
	var item documentItem
	if err := attributevalue.UnmarshalMap(attrs, &item); err != nil {
		s.logger.Warn("failed to decode updated attributes",
			zap.String("collection", collection),
			zap.String("id", id),
			zap.Error(err),
		)
		return
	}
	s.hub.Publish(ports.Change{
		Collection: collection,
		ID:         id,
		Kind:       ports.ChangeUpdated,
		Record:     ports.Record(item.Data),
	})
}
