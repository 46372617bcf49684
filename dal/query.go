package dal

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PageRequest carries Relay-style pagination parameters. After/Before are
// raw sort-key cursors; First/Last are page sizes. The backend supports a
// single scan direction with one exclusive-start cursor and one limit, so
// QueryPage reconciles the four parameters as follows:
//
//   - First set: scan forward, start after After, limit First.
//   - Last set (First absent): scan backward, start after Before, limit
//     Last, then restore ascending order.
//   - Both set: forward retrieval bounded by First; when First > Last the
//     already-ascending page is truncated to its final Last elements.
//   - Neither set: unlimited forward scan starting after After.
type PageRequest struct {
	After  *string
	Before *string
	First  *int32
	Last   *int32
}

// QueryPage runs one partition-scoped query page. The returned cursor is the
// sort-key component of the backend's continuation key; empty means the scan
// direction is exhausted. A backend error fails the whole page, no partial
// result is returned.
func (db *DynamoDBClient) QueryPage(ctx context.Context, pk string, cond *Condition, page PageRequest) ([]map[string]types.AttributeValue, string, error) {
	expr, err := buildQueryExpression(pk, cond)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build query expression: %w", err)
	}

	forward := true
	var limit *int32
	var startSK *string
	switch {
	case page.First != nil:
		limit = page.First
		startSK = page.After
	case page.Last != nil:
		forward = false
		limit = page.Last
		startSK = page.Before
	default:
		startSK = page.After
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(db.table),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(forward),
		Limit:                     limit,
	}
	if startSK != nil {
		input.ExclusiveStartKey = map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pk},
			"sk": &types.AttributeValueMemberS{Value: *startSK},
		}
	}

	out, err := db.client.Query(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("query failed: %w", err)
	}

	// Only the sort-key component of the continuation key is surfaced; the
	// partition key is already known to the caller.
	nextCursor := ""
	if sk, ok := out.LastEvaluatedKey["sk"].(*types.AttributeValueMemberS); ok {
		nextCursor = sk.Value
	}

	items := out.Items
	if !forward {
		reverseItems(items)
	}
	if page.First != nil && page.Last != nil {
		last := int(*page.Last)
		if *page.First > *page.Last && len(items) > last {
			// Take the tail `last` of the forward-limited set, still
			// ascending. First < Last deliberately keeps the First-sized
			// window and never extends it.
			items = items[len(items)-last:]
		}
	}

	return items, nextCursor, nil
}

// QueryAll fetches every matching row of a partition, following continuation
// cursors until the backend reports no more. A failed page aborts the whole
// fetch; no partial accumulation is returned.
func (db *DynamoDBClient) QueryAll(ctx context.Context, pk string, cond *Condition) ([]map[string]types.AttributeValue, error) {
	var all []map[string]types.AttributeValue
	var next *string
	for {
		items, cursor, err := db.QueryPage(ctx, pk, cond, PageRequest{After: next})
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if cursor == "" {
			return all, nil
		}
		next = &cursor
	}
}

func reverseItems(items []map[string]types.AttributeValue) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
