package graph

import (
	"time"

	"homeapi-backend/models"

	"github.com/graphql-go/graphql"
)

// globalID renders the opaque node identifier of a stored record.
func globalID(typeTag string, rec models.Item) string {
	return models.NodeID{
		Type: typeTag,
		PK:   rec.PK(),
		SK:   rec.SKPrefix() + rec.SKValue(),
	}.GlobalID()
}

// PageInfo carries the Relay boundary flags of one connection page.
type PageInfo struct {
	HasNextPage     bool
	HasPreviousPage bool
	StartCursor     *string
	EndCursor       *string
}

// Edge pairs a record with the cursor that addresses it.
type Edge struct {
	Cursor string
	Node   interface{}
}

// Connection is one page of records plus its boundary flags.
type Connection struct {
	Edges    []*Edge
	PageInfo PageInfo
}

var pageInfoType = graphql.NewObject(graphql.ObjectConfig{
	Name: "PageInfo",
	Fields: graphql.Fields{
		"hasNextPage": &graphql.Field{
			Type: graphql.NewNonNull(graphql.Boolean),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(PageInfo).HasNextPage, nil
			},
		},
		"hasPreviousPage": &graphql.Field{
			Type: graphql.NewNonNull(graphql.Boolean),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(PageInfo).HasPreviousPage, nil
			},
		},
		"startCursor": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return strOrNil(p.Source.(PageInfo).StartCursor), nil
			},
		},
		"endCursor": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return strOrNil(p.Source.(PageInfo).EndCursor), nil
			},
		},
	},
})

var nodeInterface = graphql.NewInterface(graphql.InterfaceConfig{
	Name:        "Node",
	Description: "An object addressable by a global ID.",
	Fields: graphql.Fields{
		"id": &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
	},
})

// The interface and the concrete types reference each other, so type
// resolution is wired up after both sides are constructed.
func init() {
	nodeInterface.ResolveType = resolveNodeType
}

func resolveNodeType(p graphql.ResolveTypeParams) *graphql.Object {
	switch p.Value.(type) {
	case *models.ApiKey:
		return apiKeyType
	case *models.Device:
		return deviceType
	case *models.Electricity:
		return electricityType
	case *models.FinalElectricity:
		return finalElectricityType
	case *models.Place:
		return placeType
	case *models.PlaceCondition:
		return placeConditionType
	default:
		return nil
	}
}

var deviceType = graphql.NewObject(graphql.ObjectConfig{
	Name:       "Device",
	Interfaces: []*graphql.Interface{nodeInterface},
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type: graphql.NewNonNull(graphql.ID),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return globalID(models.TypeDevice, p.Source.(*models.Device)), nil
			},
		},
		"place": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*models.Device).Place, nil
			},
		},
	},
})

var placeType = graphql.NewObject(graphql.ObjectConfig{
	Name:       "Place",
	Interfaces: []*graphql.Interface{nodeInterface},
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type: graphql.NewNonNull(graphql.ID),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return globalID(models.TypePlace, p.Source.(*models.Place)), nil
			},
		},
		"name": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*models.Place).Name, nil
			},
		},
	},
})

var electricityType = graphql.NewObject(graphql.ObjectConfig{
	Name:       "Electricity",
	Interfaces: []*graphql.Interface{nodeInterface},
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type: graphql.NewNonNull(graphql.ID),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return globalID(models.TypeElectricity, p.Source.(*models.Electricity)), nil
			},
		},
		"device": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*models.Electricity).Device, nil
			},
		},
		"timestamp": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return models.FormatTimestamp(p.Source.(*models.Electricity).Timestamp), nil
			},
		},
		"place": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*models.Electricity).Place, nil
			},
		},
		"cumulativeKwhP": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return strOrNil(p.Source.(*models.Electricity).CumulativeKWhP), nil
			},
		},
		"cumulativeKwhN": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return strOrNil(p.Source.(*models.Electricity).CumulativeKWhN), nil
			},
		},
		"currentW": &graphql.Field{
			Type: graphql.Int,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				if v := p.Source.(*models.Electricity).CurrentW; v != nil {
					return *v, nil
				}
				return nil, nil
			},
		},
	},
})

var finalElectricityType = graphql.NewObject(graphql.ObjectConfig{
	Name:       "FinalElectricity",
	Interfaces: []*graphql.Interface{nodeInterface},
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type: graphql.NewNonNull(graphql.ID),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return globalID(models.TypeFinalElectricity, p.Source.(*models.FinalElectricity)), nil
			},
		},
		"device": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*models.FinalElectricity).Device, nil
			},
		},
		"timestamp": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return models.FormatTimestamp(p.Source.(*models.FinalElectricity).Timestamp), nil
			},
		},
		"place": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*models.FinalElectricity).Place, nil
			},
		},
		"cumulativeKwhP": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*models.FinalElectricity).CumulativeKWhP, nil
			},
		},
		"cumulativeKwhN": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*models.FinalElectricity).CumulativeKWhN, nil
			},
		},
	},
})

var placeConditionType = graphql.NewObject(graphql.ObjectConfig{
	Name:       "PlaceCondition",
	Interfaces: []*graphql.Interface{nodeInterface},
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type: graphql.NewNonNull(graphql.ID),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return globalID(models.TypePlaceCondition, p.Source.(*models.PlaceCondition)), nil
			},
		},
		"device": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*models.PlaceCondition).Device, nil
			},
		},
		"timestamp": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return models.FormatTimestamp(p.Source.(*models.PlaceCondition).Timestamp), nil
			},
		},
		"place": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*models.PlaceCondition).Place, nil
			},
		},
		"temperature": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return strOrNil(p.Source.(*models.PlaceCondition).Temperature), nil
			},
		},
		"humidity": &graphql.Field{
			Type: graphql.Int,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return int64OrNil(p.Source.(*models.PlaceCondition).Humidity), nil
			},
		},
		"illuminance": &graphql.Field{
			Type: graphql.Int,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return int64OrNil(p.Source.(*models.PlaceCondition).Illuminance), nil
			},
		},
		"motion": &graphql.Field{
			Type: graphql.Int,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return int64OrNil(p.Source.(*models.PlaceCondition).Motion), nil
			},
		},
	},
})

// apiKeyType deliberately omits the key hash and the owner email; a key
// record only ever belongs to the caller listing it.
var apiKeyType = graphql.NewObject(graphql.ObjectConfig{
	Name:       "ApiKey",
	Interfaces: []*graphql.Interface{nodeInterface},
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type: graphql.NewNonNull(graphql.ID),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return globalID(models.TypeApiKey, p.Source.(*models.ApiKey)), nil
			},
		},
		"name": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*models.ApiKey).Name, nil
			},
		},
		"createdAt": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return models.FormatTimestamp(p.Source.(*models.ApiKey).CreatedAt), nil
			},
		},
		"lastUsedAt": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return timeOrNil(p.Source.(*models.ApiKey).LastUsedAt), nil
			},
		},
		"expiresAt": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return timeOrNil(p.Source.(*models.ApiKey).ExpiresAt), nil
			},
		},
	},
})

// ApiKeyCreated is the one-time creation result carrying the cleartext key.
type ApiKeyCreated struct {
	ApiKey *models.ApiKey
	Key    string
}

var apiKeyCreatedType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ApiKeyCreated",
	Fields: graphql.Fields{
		"apiKey": &graphql.Field{
			Type: graphql.NewNonNull(apiKeyType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*ApiKeyCreated).ApiKey, nil
			},
		},
		"key": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*ApiKeyCreated).Key, nil
			},
		},
	},
})

// connectionType builds the Relay connection and edge objects for one node
// type.
func connectionType(name string, nodeType *graphql.Object) *graphql.Object {
	edgeType := graphql.NewObject(graphql.ObjectConfig{
		Name: name + "Edge",
		Fields: graphql.Fields{
			"node": &graphql.Field{
				Type: nodeType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*Edge).Node, nil
				},
			},
			"cursor": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*Edge).Cursor, nil
				},
			},
		},
	})

	return graphql.NewObject(graphql.ObjectConfig{
		Name: name + "Connection",
		Fields: graphql.Fields{
			"edges": &graphql.Field{
				Type: graphql.NewList(edgeType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*Connection).Edges, nil
				},
			},
			"pageInfo": &graphql.Field{
				Type: graphql.NewNonNull(pageInfoType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*Connection).PageInfo, nil
				},
			},
		},
	})
}

var (
	deviceConnectionType           = connectionType("Device", deviceType)
	placeConnectionType            = connectionType("Place", placeType)
	electricityConnectionType      = connectionType("Electricity", electricityType)
	finalElectricityConnectionType = connectionType("FinalElectricity", finalElectricityType)
	placeConditionConnectionType   = connectionType("PlaceCondition", placeConditionType)
)

var electricityInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ElectricityInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"device":         &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"timestamp":      &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.DateTime)},
		"place":          &graphql.InputObjectFieldConfig{Type: graphql.String},
		"cumulativeKwhP": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"cumulativeKwhN": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"currentW":       &graphql.InputObjectFieldConfig{Type: graphql.Int},
	},
})

var finalElectricityInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "FinalElectricityInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"device":         &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"timestamp":      &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.DateTime)},
		"place":          &graphql.InputObjectFieldConfig{Type: graphql.String},
		"cumulativeKwhP": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"cumulativeKwhN": &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

var placeConditionInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "PlaceConditionInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"device":      &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"timestamp":   &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.DateTime)},
		"place":       &graphql.InputObjectFieldConfig{Type: graphql.String},
		"temperature": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"humidity":    &graphql.InputObjectFieldConfig{Type: graphql.Int},
		"illuminance": &graphql.InputObjectFieldConfig{Type: graphql.Int},
		"motion":      &graphql.InputObjectFieldConfig{Type: graphql.Int},
	},
})

func strOrNil(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func int64OrNil(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func timeOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return models.FormatTimestamp(*t)
}
