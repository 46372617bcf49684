package graph

import (
	"context"
	"fmt"
	"math"
	"time"

	"homeapi-backend/dal"
	"homeapi-backend/middleware"
	"homeapi-backend/models"
	"homeapi-backend/pubsub"
	"homeapi-backend/repository"
	"homeapi-backend/utils/logger"

	"github.com/go-playground/validator/v10"
	"github.com/graphql-go/graphql"
)

// Resolver wires the GraphQL schema to storage and the live-update hub.
type Resolver struct {
	records  *repository.RecordRepository
	apiKeys  *repository.ApiKeyRepository
	hub      *pubsub.Hub
	logger   logger.Logger
	validate *validator.Validate
	schema   graphql.Schema
}

// NewResolver builds the executable schema.
func NewResolver(records *repository.RecordRepository, apiKeys *repository.ApiKeyRepository, hub *pubsub.Hub, log logger.Logger) (*Resolver, error) {
	r := &Resolver{
		records:  records,
		apiKeys:  apiKeys,
		hub:      hub,
		logger:   log,
		validate: validator.New(),
	}

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:        r.queryType(),
		Mutation:     r.mutationType(),
		Subscription: r.subscriptionType(),
	})
	if err != nil {
		return nil, err
	}
	r.schema = schema
	return r, nil
}

// Schema exposes the compiled schema for transports.
func (r *Resolver) Schema() graphql.Schema {
	return r.schema
}

// Execute runs one query or mutation.
func (r *Resolver) Execute(ctx context.Context, query string, variables map[string]interface{}, operation string) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         r.schema,
		RequestString:  query,
		VariableValues: variables,
		OperationName:  operation,
		Context:        ctx,
	})
}

// Subscribe runs one subscription; the stream ends when ctx is cancelled.
func (r *Resolver) Subscribe(ctx context.Context, query string, variables map[string]interface{}, operation string) chan *graphql.Result {
	return graphql.Subscribe(graphql.Params{
		Schema:         r.schema,
		RequestString:  query,
		VariableValues: variables,
		OperationName:  operation,
		Context:        ctx,
	})
}

func (r *Resolver) queryType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"node": &graphql.Field{
				Type: nodeInterface,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.resolveNode,
			},
			"devices": &graphql.Field{
				Type: deviceConnectionType,
				Args: paginationArgs(),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return listConnection[models.Device](p, r, models.TypeDevice, "DEVICE")
				},
			},
			"places": &graphql.Field{
				Type: placeConnectionType,
				Args: paginationArgs(),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return listConnection[models.Place](p, r, models.TypePlace, "PLACE")
				},
			},
			"electricity": &graphql.Field{
				Type: electricityConnectionType,
				Args: rangeArgs(),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return rangeConnection[models.Electricity](p, r, models.TypeElectricity, models.TimestampPrefix)
				},
			},
			"finalElectricity": &graphql.Field{
				Type: finalElectricityConnectionType,
				Args: rangeArgs(),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return rangeConnection[models.FinalElectricity](p, r, models.TypeFinalElectricity, models.FinalTimestampPrefix)
				},
			},
			"placeConditions": &graphql.Field{
				Type: placeConditionConnectionType,
				Args: rangeArgs(),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return rangeConnection[models.PlaceCondition](p, r, models.TypePlaceCondition, models.TimestampPrefix)
				},
			},
			"apiKeys": &graphql.Field{
				Type:    graphql.NewList(graphql.NewNonNull(apiKeyType)),
				Resolve: r.resolveApiKeys,
			},
		},
	})
}

func (r *Resolver) mutationType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"putElectricity": &graphql.Field{
				Type: electricityType,
				Args: inputArg(electricityInputType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					in, err := r.electricityInput(p.Args["input"])
					if err != nil {
						return nil, err
					}
					rec := in.Record()
					if err := r.records.Put(p.Context, rec); err != nil {
						return nil, wrapError(err)
					}
					r.hub.Electricity.Publish(rec)
					return rec, nil
				},
			},
			"putFinalElectricity": &graphql.Field{
				Type: finalElectricityType,
				Args: inputArg(finalElectricityInputType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					in, err := r.finalElectricityInput(p.Args["input"])
					if err != nil {
						return nil, err
					}
					rec := in.Record()
					if err := r.records.Put(p.Context, rec); err != nil {
						return nil, wrapError(err)
					}
					r.hub.FinalElectricity.Publish(rec)
					return rec, nil
				},
			},
			"putPlaceCondition": &graphql.Field{
				Type: placeConditionType,
				Args: inputArg(placeConditionInputType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					in, err := r.placeConditionInput(p.Args["input"])
					if err != nil {
						return nil, err
					}
					rec := in.Record()
					if err := r.records.Put(p.Context, rec); err != nil {
						return nil, wrapError(err)
					}
					r.hub.PlaceCondition.Publish(rec)
					return rec, nil
				},
			},
			"updateElectricity": &graphql.Field{
				Type: electricityType,
				Args: inputArg(electricityInputType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					in, err := r.electricityInput(p.Args["input"])
					if err != nil {
						return nil, err
					}
					updated, err := repository.Update[models.Electricity](p.Context, r.records, in.Record())
					if err != nil {
						return nil, wrapError(err)
					}
					r.hub.Electricity.Publish(updated)
					return updated, nil
				},
			},
			"updateFinalElectricity": &graphql.Field{
				Type: finalElectricityType,
				Args: inputArg(finalElectricityInputType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					in, err := r.finalElectricityInput(p.Args["input"])
					if err != nil {
						return nil, err
					}
					updated, err := repository.Update[models.FinalElectricity](p.Context, r.records, in.Record())
					if err != nil {
						return nil, wrapError(err)
					}
					r.hub.FinalElectricity.Publish(updated)
					return updated, nil
				},
			},
			"updatePlaceCondition": &graphql.Field{
				Type: placeConditionType,
				Args: inputArg(placeConditionInputType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					in, err := r.placeConditionInput(p.Args["input"])
					if err != nil {
						return nil, err
					}
					updated, err := repository.Update[models.PlaceCondition](p.Context, r.records, in.Record())
					if err != nil {
						return nil, wrapError(err)
					}
					r.hub.PlaceCondition.Publish(updated)
					return updated, nil
				},
			},
			"createApiKey": &graphql.Field{
				Type: apiKeyCreatedType,
				Args: graphql.FieldConfigArgument{
					"name":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"expiresAt": &graphql.ArgumentConfig{Type: graphql.DateTime},
				},
				Resolve: r.resolveCreateApiKey,
			},
			"deleteApiKey": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: r.resolveDeleteApiKey,
			},
		},
	})
}

func (r *Resolver) subscriptionType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Subscription",
		Fields: graphql.Fields{
			"electricityUpdated": &graphql.Field{
				Type:      electricityType,
				Args:      deviceFilterArg(),
				Resolve:   resolveSubscriptionSource,
				Subscribe: subscribeBroker(r.hub.Electricity),
			},
			"finalElectricityUpdated": &graphql.Field{
				Type:      finalElectricityType,
				Args:      deviceFilterArg(),
				Resolve:   resolveSubscriptionSource,
				Subscribe: subscribeBroker(r.hub.FinalElectricity),
			},
			"placeConditionUpdated": &graphql.Field{
				Type:      placeConditionType,
				Args:      deviceFilterArg(),
				Resolve:   resolveSubscriptionSource,
				Subscribe: subscribeBroker(r.hub.PlaceCondition),
			},
		},
	})
}

// resolveNode looks a record up by its global ID.
func (r *Resolver) resolveNode(p graphql.ResolveParams) (interface{}, error) {
	id, _ := p.Args["id"].(string)
	nid, err := models.ParseGlobalID(id)
	if err != nil {
		return nil, wrapError(err)
	}

	var (
		rec interface{}
	)
	switch nid.Type {
	case models.TypeApiKey:
		rec, err = repository.Get[models.ApiKey](p.Context, r.records, nid.PK, "APIKEY")
	case models.TypeDevice:
		rec, err = repository.Get[models.Device](p.Context, r.records, nid.PK, nid.SK)
	case models.TypePlace:
		rec, err = repository.Get[models.Place](p.Context, r.records, nid.PK, nid.SK)
	case models.TypeElectricity:
		rec, err = repository.Get[models.Electricity](p.Context, r.records, nid.PK, nid.SK)
	case models.TypeFinalElectricity:
		rec, err = repository.Get[models.FinalElectricity](p.Context, r.records, nid.PK, nid.SK)
	case models.TypePlaceCondition:
		rec, err = repository.Get[models.PlaceCondition](p.Context, r.records, nid.PK, nid.SK)
	default:
		return nil, badInput("unknown node type")
	}
	if err != nil {
		return nil, wrapError(err)
	}
	return rec, nil
}

// resolveApiKeys lists the caller's keys.
func (r *Resolver) resolveApiKeys(p graphql.ResolveParams) (interface{}, error) {
	user, ok := middleware.AuthUserFromContext(p.Context)
	if !ok {
		return nil, unauthorized("authentication required")
	}
	keys, err := r.apiKeys.ListByOwner(p.Context, user.Email)
	if err != nil {
		return nil, wrapError(err)
	}
	return keys, nil
}

func (r *Resolver) resolveCreateApiKey(p graphql.ResolveParams) (interface{}, error) {
	user, ok := middleware.AuthUserFromContext(p.Context)
	if !ok {
		return nil, unauthorized("authentication required")
	}

	in := models.CreateApiKeyInput{
		Name:      stringArg(p.Args, "name"),
		ExpiresAt: timeArg(p.Args, "expiresAt"),
	}
	if err := r.validate.Struct(in); err != nil {
		return nil, badInput(err.Error())
	}

	rec, key, err := r.apiKeys.Create(p.Context, user.Email, in.Name, in.ExpiresAt)
	if err != nil {
		return nil, wrapError(err)
	}
	return &ApiKeyCreated{ApiKey: rec, Key: key}, nil
}

func (r *Resolver) resolveDeleteApiKey(p graphql.ResolveParams) (interface{}, error) {
	user, ok := middleware.AuthUserFromContext(p.Context)
	if !ok {
		return nil, unauthorized("authentication required")
	}

	id, _ := p.Args["id"].(string)
	nid, err := models.ParseGlobalID(id)
	if err != nil {
		return nil, wrapError(err)
	}
	if nid.Type != models.TypeApiKey {
		return nil, badInput("not an API key id")
	}

	key, err := r.apiKeys.GetByHash(p.Context, nid.PK)
	if err != nil {
		return nil, notFound("API key not found")
	}
	if key.UserEmail != user.Email {
		return nil, forbidden("API key belongs to another user")
	}

	if err := r.apiKeys.Delete(p.Context, nid.PK); err != nil {
		return nil, wrapError(err)
	}
	return true, nil
}

// listConnection pages an entity partition by raw cursors.
func listConnection[T any, PT interface {
	*T
	models.KeyedItem
}](p graphql.ResolveParams, r *Resolver, typeTag, pk string) (*Connection, error) {
	first, err := int32Arg(p.Args, "first")
	if err != nil {
		return nil, err
	}
	last, err := int32Arg(p.Args, "last")
	if err != nil {
		return nil, err
	}
	req := dal.PageRequest{
		After:  stringArgPtr(p.Args, "after"),
		Before: stringArgPtr(p.Args, "before"),
		First:  first,
		Last:   last,
	}
	page, err := repository.QueryPage[T, PT](p.Context, r.records, pk, nil, req)
	if err != nil {
		return nil, wrapError(err)
	}
	return buildConnection[T, PT](typeTag, page, req, req.After != nil, req.Before != nil), nil
}

// rangeConnection pages a time-series partition. The after/before arguments
// are timestamps shaping the sort-key range, not cursors; first/last still
// size and orient the page.
func rangeConnection[T any, PT interface {
	*T
	models.KeyedItem
}](p graphql.ResolveParams, r *Resolver, typeTag, prefix string) (*Connection, error) {
	device := stringArg(p.Args, "device")
	cond := rangeCondition(prefix, timeArg(p.Args, "after"), timeArg(p.Args, "before"))
	first, err := int32Arg(p.Args, "first")
	if err != nil {
		return nil, err
	}
	last, err := int32Arg(p.Args, "last")
	if err != nil {
		return nil, err
	}
	req := dal.PageRequest{
		First: first,
		Last:  last,
	}
	page, err := repository.QueryPage[T, PT](p.Context, r.records, device, &cond, req)
	if err != nil {
		return nil, wrapError(err)
	}
	return buildConnection[T, PT](typeTag, page, req, false, false), nil
}

// rangeCondition turns an optional time window into an inclusive sort-key
// range. Bounds are nudged one second inward to make the window exclusive;
// missing bounds fall back to the sentinels.
func rangeCondition(prefix string, after, before *time.Time) dal.Condition {
	lo := models.MinTimestamp
	if after != nil {
		lo = after.Add(time.Second)
	}
	hi := models.MaxTimestamp
	if before != nil {
		hi = before.Add(-time.Second)
	}
	return dal.SKBetween(prefix+models.FormatTimestamp(lo), prefix+models.FormatTimestamp(hi))
}

// buildConnection assembles the Relay page. A boundary flag is set when the
// matching cursor argument was supplied, or when the matching page size was
// set and the scan direction was not exhausted.
func buildConnection[T any, PT interface {
	*T
	models.KeyedItem
}](typeTag string, page repository.Page[T], req dal.PageRequest, hasAfter, hasBefore bool) *Connection {
	edges := make([]*Edge, 0, len(page.Items))
	for _, rec := range page.Items {
		item := PT(rec)
		edges = append(edges, &Edge{
			Cursor: item.SKPrefix() + item.SKValue(),
			Node:   rec,
		})
	}

	info := PageInfo{
		HasPreviousPage: hasAfter || (req.Last != nil && page.NextCursor != ""),
		HasNextPage:     hasBefore || (req.First != nil && page.NextCursor != ""),
	}
	if len(edges) > 0 {
		info.StartCursor = &edges[0].Cursor
		info.EndCursor = &edges[len(edges)-1].Cursor
	}
	return &Connection{Edges: edges, PageInfo: info}
}

// subscribeBroker bridges a broker stream into the execution engine; each
// delivered record becomes one subscription result.
func subscribeBroker[T models.Item](broker *pubsub.Broker[T]) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		device := stringArg(p.Args, "device")
		in := broker.Subscribe(p.Context, device)

		out := make(chan interface{})
		go func() {
			defer close(out)
			for rec := range in {
				select {
				case out <- rec:
				case <-p.Context.Done():
					return
				}
			}
		}()
		return out, nil
	}
}

func resolveSubscriptionSource(p graphql.ResolveParams) (interface{}, error) {
	return p.Source, nil
}

func (r *Resolver) electricityInput(v interface{}) (models.ElectricityInput, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return models.ElectricityInput{}, badInput("missing input")
	}
	currentW, err := int32Arg(m, "currentW")
	if err != nil {
		return models.ElectricityInput{}, err
	}
	in := models.ElectricityInput{
		Device:         stringArg(m, "device"),
		Place:          stringArgPtr(m, "place"),
		CumulativeKWhP: stringArgPtr(m, "cumulativeKwhP"),
		CumulativeKWhN: stringArgPtr(m, "cumulativeKwhN"),
		CurrentW:       currentW,
	}
	ts := timeArg(m, "timestamp")
	if ts == nil {
		return models.ElectricityInput{}, badInput("invalid timestamp")
	}
	in.Timestamp = ts.UTC()

	if err := r.validate.Struct(in); err != nil {
		return models.ElectricityInput{}, badInput(err.Error())
	}
	return in, nil
}

func (r *Resolver) finalElectricityInput(v interface{}) (models.FinalElectricityInput, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return models.FinalElectricityInput{}, badInput("missing input")
	}
	in := models.FinalElectricityInput{
		Device:         stringArg(m, "device"),
		Place:          stringArgPtr(m, "place"),
		CumulativeKWhP: stringArgPtr(m, "cumulativeKwhP"),
		CumulativeKWhN: stringArgPtr(m, "cumulativeKwhN"),
	}
	ts := timeArg(m, "timestamp")
	if ts == nil {
		return models.FinalElectricityInput{}, badInput("invalid timestamp")
	}
	in.Timestamp = ts.UTC()

	if err := r.validate.Struct(in); err != nil {
		return models.FinalElectricityInput{}, badInput(err.Error())
	}
	return in, nil
}

func (r *Resolver) placeConditionInput(v interface{}) (models.PlaceConditionInput, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return models.PlaceConditionInput{}, badInput("missing input")
	}
	in := models.PlaceConditionInput{
		Device:      stringArg(m, "device"),
		Place:       stringArgPtr(m, "place"),
		Temperature: stringArgPtr(m, "temperature"),
		Humidity:    int64Arg(m, "humidity"),
		Illuminance: int64Arg(m, "illuminance"),
		Motion:      int64Arg(m, "motion"),
	}
	ts := timeArg(m, "timestamp")
	if ts == nil {
		return models.PlaceConditionInput{}, badInput("invalid timestamp")
	}
	in.Timestamp = ts.UTC()

	if err := r.validate.Struct(in); err != nil {
		return models.PlaceConditionInput{}, badInput(err.Error())
	}
	return in, nil
}

func paginationArgs() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"after":  &graphql.ArgumentConfig{Type: graphql.String},
		"before": &graphql.ArgumentConfig{Type: graphql.String},
		"first":  &graphql.ArgumentConfig{Type: graphql.Int},
		"last":   &graphql.ArgumentConfig{Type: graphql.Int},
	}
}

func rangeArgs() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"device": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
		"after":  &graphql.ArgumentConfig{Type: graphql.DateTime},
		"before": &graphql.ArgumentConfig{Type: graphql.DateTime},
		"first":  &graphql.ArgumentConfig{Type: graphql.Int},
		"last":   &graphql.ArgumentConfig{Type: graphql.Int},
	}
}

func inputArg(t *graphql.InputObject) graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(t)},
	}
}

func deviceFilterArg() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"device": &graphql.ArgumentConfig{Type: graphql.String},
	}
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func stringArgPtr(args map[string]interface{}, key string) *string {
	if v, ok := args[key].(string); ok {
		return &v
	}
	return nil
}

// int32Arg narrows an integer argument. Values outside the int32 range are
// rejected instead of silently truncated.
func int32Arg(args map[string]interface{}, key string) (*int32, error) {
	v, ok := args[key].(int)
	if !ok {
		return nil, nil
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return nil, badInput(fmt.Sprintf("%s out of range: %d", key, v))
	}
	n := int32(v)
	return &n, nil
}

func int64Arg(args map[string]interface{}, key string) *int64 {
	if v, ok := args[key].(int); ok {
		n := int64(v)
		return &n
	}
	return nil
}

func timeArg(args map[string]interface{}, key string) *time.Time {
	if v, ok := args[key].(time.Time); ok {
		return &v
	}
	return nil
}
