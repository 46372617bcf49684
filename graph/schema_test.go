package graph

import (
	"context"
	"testing"
	"time"

	"homeapi-backend/dal"
	"homeapi-backend/middleware"
	"homeapi-backend/models"
	"homeapi-backend/pubsub"
	"homeapi-backend/repository"
	"homeapi-backend/utils/logger"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamoAPI struct {
	GetItemFn        func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItemFn        func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItemFn     func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItemFn     func(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	QueryFn          func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItemFn func(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

func (f *fakeDynamoAPI) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return f.GetItemFn(ctx, params, optFns...)
}

func (f *fakeDynamoAPI) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return f.PutItemFn(ctx, params, optFns...)
}

func (f *fakeDynamoAPI) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return f.UpdateItemFn(ctx, params, optFns...)
}

func (f *fakeDynamoAPI) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return f.DeleteItemFn(ctx, params, optFns...)
}

func (f *fakeDynamoAPI) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return f.QueryFn(ctx, params, optFns...)
}

func (f *fakeDynamoAPI) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	return f.BatchWriteItemFn(ctx, params, optFns...)
}

func testResolver(t *testing.T, api dal.DynamoDBAPI) (*Resolver, *pubsub.Hub) {
	t.Helper()
	log := logger.NewLogger("error", "text")
	cfg := &models.Config{DynamoDBTable: "telemetry"}
	db := dal.NewClient(api, "telemetry", log)
	hub := pubsub.NewHub()

	resolver, err := NewResolver(
		repository.NewRecordRepository(db, cfg, log),
		repository.NewApiKeyRepository(db, cfg, log),
		hub,
		log,
	)
	require.NoError(t, err)
	return resolver, hub
}

func authedContext(email string) context.Context {
	return middleware.WithAuthUser(context.Background(), &middleware.AuthUser{
		Email:  email,
		Method: middleware.AuthMethodApiKey,
	})
}

func deviceItem(id, place string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk":    &types.AttributeValueMemberS{Value: "DEVICE"},
		"sk":    &types.AttributeValueMemberS{Value: id},
		"place": &types.AttributeValueMemberS{Value: place},
	}
}

func TestRangeCondition(t *testing.T) {
	after := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	cond := rangeCondition(models.TimestampPrefix, &after, &before)
	// Bounds move one second inward to keep the window exclusive.
	assert.Equal(t, dal.SKBetween("TS#2024-06-01T00:00:01.000000000Z", "TS#2024-06-01T23:59:59.000000000Z"), cond)

	open := rangeCondition(models.FinalTimestampPrefix, nil, nil)
	assert.Equal(t, dal.SKBetween(
		"FIN#TS#0001-01-01T00:00:00.000000000Z",
		"FIN#TS#9999-12-31T23:59:59.000000000Z",
	), open)
}

func TestBuildConnectionBoundaryFlags(t *testing.T) {
	items := []*models.Device{{ID: "a"}, {ID: "b"}}
	first := int32(2)
	last := int32(2)

	// Forward page with more data behind the cursor.
	conn := buildConnection[models.Device](models.TypeDevice,
		repository.Page[models.Device]{Items: items, NextCursor: "b"},
		dal.PageRequest{First: &first}, false, false)
	assert.True(t, conn.PageInfo.HasNextPage)
	assert.False(t, conn.PageInfo.HasPreviousPage)
	require.Len(t, conn.Edges, 2)
	assert.Equal(t, "a", conn.Edges[0].Cursor)
	assert.Equal(t, "a", *conn.PageInfo.StartCursor)
	assert.Equal(t, "b", *conn.PageInfo.EndCursor)

	// Forward scan exhausted.
	conn = buildConnection[models.Device](models.TypeDevice,
		repository.Page[models.Device]{Items: items},
		dal.PageRequest{First: &first}, false, false)
	assert.False(t, conn.PageInfo.HasNextPage)

	// A supplied after-cursor always implies a previous page.
	conn = buildConnection[models.Device](models.TypeDevice,
		repository.Page[models.Device]{Items: items},
		dal.PageRequest{First: &first}, true, false)
	assert.True(t, conn.PageInfo.HasPreviousPage)

	// Backward page with more data implies a previous page.
	conn = buildConnection[models.Device](models.TypeDevice,
		repository.Page[models.Device]{Items: items, NextCursor: "a"},
		dal.PageRequest{Last: &last}, false, false)
	assert.True(t, conn.PageInfo.HasPreviousPage)
	assert.False(t, conn.PageInfo.HasNextPage)

	// Empty page keeps nil boundary cursors.
	conn = buildConnection[models.Device](models.TypeDevice,
		repository.Page[models.Device]{},
		dal.PageRequest{First: &first}, false, false)
	assert.Empty(t, conn.Edges)
	assert.Nil(t, conn.PageInfo.StartCursor)
	assert.Nil(t, conn.PageInfo.EndCursor)
}

func TestDevicesQuery(t *testing.T) {
	api := &fakeDynamoAPI{
		QueryFn: func(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			assert.Equal(t, int32(2), *params.Limit)
			return &dynamodb.QueryOutput{
				Items: []map[string]types.AttributeValue{
					deviceItem("d1", "home"),
					deviceItem("d2", "office"),
				},
				LastEvaluatedKey: map[string]types.AttributeValue{
					"pk": &types.AttributeValueMemberS{Value: "DEVICE"},
					"sk": &types.AttributeValueMemberS{Value: "d2"},
				},
			}, nil
		},
	}
	resolver, _ := testResolver(t, api)

	result := resolver.Execute(authedContext("a@example.com"), `
		{
			devices(first: 2) {
				edges { cursor node { id place } }
				pageInfo { hasNextPage hasPreviousPage endCursor }
			}
		}`, nil, "")
	require.Empty(t, result.Errors)

	data := result.Data.(map[string]interface{})
	devices := data["devices"].(map[string]interface{})
	edges := devices["edges"].([]interface{})
	require.Len(t, edges, 2)

	node := edges[0].(map[string]interface{})["node"].(map[string]interface{})
	assert.Equal(t, "home", node["place"])
	assert.Equal(t, models.NodeID{Type: models.TypeDevice, PK: "DEVICE", SK: "d1"}.GlobalID(), node["id"])

	pageInfo := devices["pageInfo"].(map[string]interface{})
	assert.Equal(t, true, pageInfo["hasNextPage"])
	assert.Equal(t, false, pageInfo["hasPreviousPage"])
	assert.Equal(t, "d2", pageInfo["endCursor"])
}

func TestNodeQueryResolvesDevice(t *testing.T) {
	api := &fakeDynamoAPI{
		GetItemFn: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			assert.Equal(t, "DEVICE", params.Key["pk"].(*types.AttributeValueMemberS).Value)
			assert.Equal(t, "d1", params.Key["sk"].(*types.AttributeValueMemberS).Value)
			return &dynamodb.GetItemOutput{Item: deviceItem("d1", "home")}, nil
		},
	}
	resolver, _ := testResolver(t, api)

	id := models.NodeID{Type: models.TypeDevice, PK: "DEVICE", SK: "d1"}.GlobalID()
	result := resolver.Execute(authedContext("a@example.com"), `
		query($id: ID!) {
			node(id: $id) { id ... on Device { place } }
		}`, map[string]interface{}{"id": id}, "")
	require.Empty(t, result.Errors)

	node := result.Data.(map[string]interface{})["node"].(map[string]interface{})
	assert.Equal(t, "home", node["place"])
}

func TestNodeQueryMalformedID(t *testing.T) {
	resolver, _ := testResolver(t, &fakeDynamoAPI{})

	result := resolver.Execute(context.Background(), `{ node(id: "???") { id } }`, nil, "")
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, CodeBadInput, result.Errors[0].Extensions["code"])
}

func TestNodeInterfaceResolvesConcreteTypes(t *testing.T) {
	cases := []struct {
		value interface{}
		want  string
	}{
		{&models.ApiKey{}, "ApiKey"},
		{&models.Device{}, "Device"},
		{&models.Electricity{}, "Electricity"},
		{&models.FinalElectricity{}, "FinalElectricity"},
		{&models.Place{}, "Place"},
		{&models.PlaceCondition{}, "PlaceCondition"},
	}

	for _, tc := range cases {
		obj := resolveNodeType(graphql.ResolveTypeParams{Value: tc.value})
		require.NotNil(t, obj, "no concrete type for %T", tc.value)
		assert.Equal(t, tc.want, obj.Name())
	}

	assert.Nil(t, resolveNodeType(graphql.ResolveTypeParams{Value: "bogus"}))
}

func TestInt32ArgRejectsOutOfRange(t *testing.T) {
	got, err := int32Arg(map[string]interface{}{"first": 2}, "first")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int32(2), *got)

	got, err = int32Arg(map[string]interface{}{}, "first")
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, v := range []int{1 << 31, -(1 << 31) - 1} {
		_, err = int32Arg(map[string]interface{}{"first": v}, "first")
		var gqlErr *Error
		require.ErrorAs(t, err, &gqlErr)
		assert.Equal(t, CodeBadInput, gqlErr.Code)
	}
}

func TestApiKeysQueryRequiresPrincipal(t *testing.T) {
	resolver, _ := testResolver(t, &fakeDynamoAPI{})

	result := resolver.Execute(context.Background(), `{ apiKeys { name } }`, nil, "")
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, CodeUnauthorized, result.Errors[0].Extensions["code"])
}

func TestPutElectricityStoresAndPublishes(t *testing.T) {
	var stored map[string]types.AttributeValue
	api := &fakeDynamoAPI{
		PutItemFn: func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			stored = params.Item
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	resolver, hub := testResolver(t, api)

	ctx, cancel := context.WithCancel(authedContext("a@example.com"))
	defer cancel()
	updates := hub.Electricity.Subscribe(ctx, "")

	result := resolver.Execute(ctx, `
		mutation {
			putElectricity(input: {
				device: "meter-1",
				timestamp: "2024-06-01T12:00:00Z",
				cumulativeKwhP: "1234.5",
				currentW: 420
			}) { device timestamp place currentW }
		}`, nil, "")
	require.Empty(t, result.Errors)

	payload := result.Data.(map[string]interface{})["putElectricity"].(map[string]interface{})
	assert.Equal(t, "meter-1", payload["device"])
	assert.Equal(t, "2024-06-01T12:00:00.000000000Z", payload["timestamp"])
	assert.Equal(t, "", payload["place"])
	assert.Equal(t, 420, payload["currentW"])

	require.NotNil(t, stored)
	assert.Equal(t, "meter-1", stored["pk"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "TS#2024-06-01T12:00:00.000000000Z", stored["sk"].(*types.AttributeValueMemberS).Value)

	select {
	case rec := <-updates:
		assert.Equal(t, "meter-1", rec.Device)
	case <-time.After(time.Second):
		t.Fatal("expected a published update")
	}
}

func TestPutElectricityRejectsMissingDevice(t *testing.T) {
	resolver, _ := testResolver(t, &fakeDynamoAPI{})

	result := resolver.Execute(authedContext("a@example.com"), `
		mutation {
			putElectricity(input: {device: "", timestamp: "2024-06-01T12:00:00Z"}) { device }
		}`, nil, "")
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, CodeBadInput, result.Errors[0].Extensions["code"])
}

func TestUpdateElectricityMissingItem(t *testing.T) {
	api := &fakeDynamoAPI{
		UpdateItemFn: func(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
			return nil, &types.ConditionalCheckFailedException{}
		},
	}
	resolver, _ := testResolver(t, api)

	result := resolver.Execute(authedContext("a@example.com"), `
		mutation {
			updateElectricity(input: {device: "meter-1", timestamp: "2024-06-01T12:00:00Z", place: "home"}) { device }
		}`, nil, "")
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, CodeConditionFailed, result.Errors[0].Extensions["code"])
}

func TestDeleteApiKeyEnforcesOwnership(t *testing.T) {
	api := &fakeDynamoAPI{
		GetItemFn: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
				"pk":         &types.AttributeValueMemberS{Value: "hash-1"},
				"sk":         &types.AttributeValueMemberS{Value: "APIKEY"},
				"user_email": &types.AttributeValueMemberS{Value: "owner@example.com"},
				"name":       &types.AttributeValueMemberS{Value: "ci"},
				"created_at": &types.AttributeValueMemberS{Value: "2024-01-01T00:00:00Z"},
			}}, nil
		},
		DeleteItemFn: func(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
			t.Fatal("delete must not run for a non-owner")
			return nil, nil
		},
	}
	resolver, _ := testResolver(t, api)

	id := models.NodeID{Type: models.TypeApiKey, PK: "hash-1", SK: "APIKEY"}.GlobalID()
	result := resolver.Execute(authedContext("intruder@example.com"), `
		mutation($id: ID!) { deleteApiKey(id: $id) }`, map[string]interface{}{"id": id}, "")
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, CodeForbidden, result.Errors[0].Extensions["code"])
}

func TestDeleteApiKeyByOwner(t *testing.T) {
	deleted := false
	api := &fakeDynamoAPI{
		GetItemFn: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			return &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
				"pk":         &types.AttributeValueMemberS{Value: "hash-1"},
				"sk":         &types.AttributeValueMemberS{Value: "APIKEY"},
				"user_email": &types.AttributeValueMemberS{Value: "owner@example.com"},
				"name":       &types.AttributeValueMemberS{Value: "ci"},
				"created_at": &types.AttributeValueMemberS{Value: "2024-01-01T00:00:00Z"},
			}}, nil
		},
		DeleteItemFn: func(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
			deleted = true
			assert.Equal(t, "hash-1", params.Key["pk"].(*types.AttributeValueMemberS).Value)
			return &dynamodb.DeleteItemOutput{}, nil
		},
	}
	resolver, _ := testResolver(t, api)

	id := models.NodeID{Type: models.TypeApiKey, PK: "hash-1", SK: "APIKEY"}.GlobalID()
	result := resolver.Execute(authedContext("owner@example.com"), `
		mutation($id: ID!) { deleteApiKey(id: $id) }`, map[string]interface{}{"id": id}, "")
	require.Empty(t, result.Errors)
	assert.True(t, deleted)
	assert.Equal(t, true, result.Data.(map[string]interface{})["deleteApiKey"])
}
