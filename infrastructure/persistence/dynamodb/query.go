package dynamodb

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"skillcourt-backend/application/ports"
	"skillcourt-backend/infrastructure/persistence/cache"
	"skillcourt-backend/infrastructure/persistence/docquery"
	apperrors "skillcourt-backend/pkg/errors"
)

// Query lists a collection. Where clauses compose conjunctively as a DynamoDB
// filter expression; ordering is applied client-side so multiple orderBy
// clauses behave lexicographically, with ties always broken by id. Results
// are cached under (collection, queryHash) and flushed on any write to the
// collection.
func (s *Store) Query(ctx context.Context, collection string, opts ports.QueryOptions) (*ports.QueryResult, error) {
	if collection == "" {
		return nil, apperrors.NewValidationError("collection is required")
	}

	key := cache.QueryKey(collection, docquery.Hash(opts))
	if cached, ok := s.cache.Get(key); ok {
		if result, ok := cached.(*ports.QueryResult); ok {
			return copyResult(result), nil
		}
	}

	records, err := s.fetchCollection(ctx, collection, opts.Where)
	if err != nil {
		return nil, err
	}

	docquery.Sort(records, opts.OrderBy)

	offset := 0
	if opts.Cursor != "" {
		offset, err = strconv.Atoi(opts.Cursor)
		if err != nil || offset < 0 {
			return nil, apperrors.NewValidationError("malformed cursor").
				WithDetail("cursor", opts.Cursor)
		}
	}

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

	s.cache.Set(key, result)

	s.logger.Debug("collection queried",
		zap.String("collection", collection),
		zap.Int("total", total),
		zap.Int("returned", len(result.Items)),
	)
	return copyResult(result), nil
}

// Count returns the number of documents matching the query
func (s *Store) Count(ctx context.Context, collection string, opts ports.QueryOptions) (int, error) {
	opts.Limit = 0
	opts.Cursor = ""
	result, err := s.Query(ctx, collection, opts)
	if err != nil {
		return 0, err
	}
	return result.Total, nil
}

// fetchCollection pages through the collection GSI applying the filter
func (s *Store) fetchCollection(ctx context.Context, collection string, where []ports.WhereClause) ([]ports.Record, error) {
	builder := expression.NewBuilder().
		WithKeyCondition(expression.Key("GSI1PK").Equal(expression.Value(collectionPK(collection))))

	if len(where) > 0 {
		filter, err := buildFilter(where)
		if err != nil {
			return nil, err
		}
		builder = builder.WithFilter(filter)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, apperrors.NewValidationError("failed to build query expression").WithCause(err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(s.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var records []ports.Record
	for {
		var out *dynamodb.QueryOutput
		err := s.executor.Do(ctx, "query", func() error {
			var err error
			out, err = s.client.Query(ctx, input)
			return err
		})
		if err != nil {
			return nil, s.storeError("query", collection, "", err)
		}

		for _, raw := range out.Items {
			var item documentItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, apperrors.NewDatabaseError("query", err)
			}
			records = append(records, ports.Record(item.Data))
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	return records, nil
}

// buildFilter translates where clauses into a conjunctive filter expression
func buildFilter(where []ports.WhereClause) (expression.ConditionBuilder, error) {
	var filter expression.ConditionBuilder

	for i, clause := range where {
		name := expression.Name("Data." + clause.Field)

		var cond expression.ConditionBuilder
		switch clause.Operator {
		case ports.OpEqual:
			cond = name.Equal(expression.Value(clause.Value))
		case ports.OpNotEqual:
			// DynamoDB evaluates <> on a missing attribute as false, but an
			// absent field must count as "not equal" so records written before
			// the field existed still match.
			cond = name.NotEqual(expression.Value(clause.Value)).Or(name.AttributeNotExists())
		case ports.OpLessThan:
			cond = name.LessThan(expression.Value(clause.Value))
		case ports.OpLessOrEqual:
			cond = name.LessThanEqual(expression.Value(clause.Value))
		case ports.OpGreaterThan:
			cond = name.GreaterThan(expression.Value(clause.Value))
		case ports.OpGreaterOrEqual:
			cond = name.GreaterThanEqual(expression.Value(clause.Value))
		case ports.OpContains:
			cond = name.Contains(fmt.Sprint(clause.Value))
		default:
			return filter, apperrors.NewValidationError("unsupported query operator").
				WithDetail("operator", string(clause.Operator))
		}

		if i == 0 {
			filter = cond
		} else {
			filter = filter.And(cond)
		}
	}

	return filter, nil
}

// copyResult clones the page so callers can mutate records freely
func copyResult(r *ports.QueryResult) *ports.QueryResult {
	out := &ports.QueryResult{
		Total:      r.Total,
		HasMore:    r.HasMore,
		NextCursor: r.NextCursor,
		Items:      make([]ports.Record, len(r.Items)),
	}
	for i, rec := range r.Items {
		out.Items[i] = rec.Clone()
	}
	return out
}
