package dal

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// batchWriteCeiling is DynamoDB's per-call BatchWriteItem limit.
const batchWriteCeiling = 25

// BatchPutItems writes raw items in sequential chunks of at most 25. A
// failed chunk aborts the remaining chunks and surfaces the error; already
// written chunks stay persisted (no rollback). Items the backend leaves
// unprocessed are treated as a failure requiring caller-level retry.
func (db *DynamoDBClient) BatchPutItems(ctx context.Context, items []map[string]types.AttributeValue) error {
	for start := 0; start < len(items); start += batchWriteCeiling {
		end := start + batchWriteCeiling
		if end > len(items) {
			end = len(items)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, item := range items[start:end] {
			requests = append(requests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		out, err := db.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{db.table: requests},
		})
		if err != nil {
			return fmt.Errorf("batch write failed: %w", err)
		}
		if len(out.UnprocessedItems) > 0 {
			return fmt.Errorf("batch write left %d unprocessed items", len(out.UnprocessedItems[db.table]))
		}
	}
	return nil
}
