package dal

import (
	"context"
	"errors"
	"fmt"

	"homeapi-backend/models"
	"homeapi-backend/utils/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBClient wraps the single telemetry table. All records share one
// physical table keyed by pk/sk.
type DynamoDBClient struct {
	client DynamoDBAPI
	table  string
	logger logger.Logger
}

// NewDynamoDBClient creates a client from the application configuration.
func NewDynamoDBClient(cfg *models.Config, log logger.Logger) (*DynamoDBClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Use static credentials if provided
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		awsCfg.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"", // session token
		))
	}

	var opts []func(*dynamodb.Options)
	// Override endpoint for local DynamoDB
	if cfg.DynamoDBEndpoint != "" {
		opts = append(opts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		})
	}

	log.Infof("DynamoDB client initialized for table %s", cfg.DynamoDBTable)

	return &DynamoDBClient{
		client: dynamodb.NewFromConfig(awsCfg, opts...),
		table:  cfg.DynamoDBTable,
		logger: log,
	}, nil
}

// NewClient builds a client over an existing DynamoDB API, used by tests.
func NewClient(api DynamoDBAPI, table string, log logger.Logger) *DynamoDBClient {
	return &DynamoDBClient{client: api, table: table, logger: log}
}

// GetItem fetches one raw item by its full primary key. Returns ErrNotFound
// when the item does not exist.
func (db *DynamoDBClient) GetItem(ctx context.Context, pk, sk string) (map[string]types.AttributeValue, error) {
	out, err := db.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(db.table),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pk},
			"sk": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	return out.Item, nil
}

// PutItem stores one raw item, overwriting any previous version.
func (db *DynamoDBClient) PutItem(ctx context.Context, item map[string]types.AttributeValue) error {
	_, err := db.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(db.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

// DeleteItem removes one item by its full primary key.
func (db *DynamoDBClient) DeleteItem(ctx context.Context, pk, sk string) error {
	_, err := db.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(db.table),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pk},
			"sk": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// UpdateItem applies an attribute-level SET update to an item that must
// already exist. The pk/sk attributes of the encoded item become the key;
// everything else is written. Returns the backend's post-update view of the
// full item. A missing item surfaces as ErrConditionFailed, never an upsert.
func (db *DynamoDBClient) UpdateItem(ctx context.Context, item map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	pk, ok := item["pk"]
	if !ok {
		return nil, &DecodeError{Reason: "missing pk attribute"}
	}
	sk, ok := item["sk"]
	if !ok {
		return nil, &DecodeError{Reason: "missing sk attribute"}
	}

	var update expression.UpdateBuilder
	n := 0
	for name, value := range item {
		if name == "pk" || name == "sk" {
			continue
		}
		update = update.Set(expression.Name(name), expression.Value(value))
		n++
	}
	if n == 0 {
		return nil, &DecodeError{Reason: "no attributes to update"}
	}

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("pk"))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build update expression: %w", err)
	}

	out, err := db.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(db.table),
		Key:                       map[string]types.AttributeValue{"pk": pk, "sk": sk},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return nil, ErrConditionFailed
		}
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return out.Attributes, nil
}

// QueryIndex queries a global secondary index by a single key equality and
// returns all matching raw items.
func (db *DynamoDBClient) QueryIndex(ctx context.Context, indexName, keyName, keyValue string) ([]map[string]types.AttributeValue, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key(keyName).Equal(expression.Value(keyValue))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build index expression: %w", err)
	}

	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		out, err := db.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(db.table),
			IndexName:                 aws.String(indexName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query index %s: %w", indexName, err)
		}
		items = append(items, out.Items...)
		if out.LastEvaluatedKey == nil {
			return items, nil
		}
		startKey = out.LastEvaluatedKey
	}
}
