package dal

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchItems(n int) []map[string]types.AttributeValue {
	items := make([]map[string]types.AttributeValue, n)
	for i := range items {
		items[i] = rawItem("meter-1", fmt.Sprintf("TS#2024-01-01T00:00:%02dZ", i))
	}
	return items
}

func TestBatchPutItemsChunks(t *testing.T) {
	var chunkSizes []int
	api := &fakeDynamoAPI{
		BatchWriteItemFn: func(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
			chunkSizes = append(chunkSizes, len(params.RequestItems["telemetry"]))
			return &dynamodb.BatchWriteItemOutput{}, nil
		},
	}

	err := testClient(api).BatchPutItems(context.Background(), batchItems(57))
	require.NoError(t, err)
	assert.Equal(t, []int{25, 25, 7}, chunkSizes)
}

func TestBatchPutItemsEmptyIsNoop(t *testing.T) {
	api := &fakeDynamoAPI{
		BatchWriteItemFn: func(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
			t.Fatal("no write expected for empty input")
			return nil, nil
		},
	}

	assert.NoError(t, testClient(api).BatchPutItems(context.Background(), nil))
}

func TestBatchPutItemsMidChunkFailureAborts(t *testing.T) {
	calls := 0
	api := &fakeDynamoAPI{
		BatchWriteItemFn: func(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
			calls++
			if calls == 2 {
				return nil, fmt.Errorf("throttled")
			}
			return &dynamodb.BatchWriteItemOutput{}, nil
		},
	}

	err := testClient(api).BatchPutItems(context.Background(), batchItems(57))
	assert.Error(t, err)
	// The first chunk stays written, the third is never attempted.
	assert.Equal(t, 2, calls)
}

func TestBatchPutItemsUnprocessedIsError(t *testing.T) {
	api := &fakeDynamoAPI{
		BatchWriteItemFn: func(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
			return &dynamodb.BatchWriteItemOutput{
				UnprocessedItems: map[string][]types.WriteRequest{
					"telemetry": params.RequestItems["telemetry"][:1],
				},
			}, nil
		},
	}

	err := testClient(api).BatchPutItems(context.Background(), batchItems(3))
	assert.ErrorContains(t, err, "unprocessed")
}
