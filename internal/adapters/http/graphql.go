package http

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/paddymap/paddymap/internal/core/domain"
)

var geoPointType = graphql.NewObject(graphql.ObjectConfig{
	Name: "GeoPoint",
	Fields: graphql.Fields{
		"latitude":  &graphql.Field{Type: graphql.Float},
		"longitude": &graphql.Field{Type: graphql.Float},
	},
})

var shopType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Shop",
	Fields: graphql.Fields{
		"id":              &graphql.Field{Type: graphql.String},
		"name":            &graphql.Field{Type: graphql.String},
		"shop_type":       &graphql.Field{Type: graphql.String},
		"address":         &graphql.Field{Type: graphql.String},
		"city":            &graphql.Field{Type: graphql.String},
		"location":        &graphql.Field{Type: geoPointType},
		"phone_number":    &graphql.Field{Type: graphql.String},
		"whatsapp_number": &graphql.Field{Type: graphql.String},
		"email":           &graphql.Field{Type: graphql.String},
		"rating":          &graphql.Field{Type: graphql.Float},
		"opening_time":    &graphql.Field{Type: graphql.String},
		"closing_time":    &graphql.Field{Type: graphql.String},
		"distance": &graphql.Field{
			Type: graphql.Float,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				if s, ok := p.Source.(domain.Shop); ok && s.Distance != nil {
					return *s.Distance, nil
				}
				return nil, nil
			},
		},
	},
})

var researchCenterType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ResearchCenter",
	Fields: graphql.Fields{
		"id":              &graphql.Field{Type: graphql.String},
		"name":            &graphql.Field{Type: graphql.String},
		"description":     &graphql.Field{Type: graphql.String},
		"address":         &graphql.Field{Type: graphql.String},
		"city":            &graphql.Field{Type: graphql.String},
		"state":           &graphql.Field{Type: graphql.String},
		"location":        &graphql.Field{Type: geoPointType},
		"email":           &graphql.Field{Type: graphql.String},
		"phone_number":    &graphql.Field{Type: graphql.String},
		"whatsapp_number": &graphql.Field{Type: graphql.String},
		"website":         &graphql.Field{Type: graphql.String},
		"expertise":       &graphql.Field{Type: graphql.NewList(graphql.String)},
	},
})

var mapEntityType = graphql.NewObject(graphql.ObjectConfig{
	Name: "MapEntity",
	Fields: graphql.Fields{
		"name":        &graphql.Field{Type: graphql.String},
		"category":    &graphql.Field{Type: graphql.String},
		"ref":         &graphql.Field{Type: graphql.String},
		"location":    &graphql.Field{Type: geoPointType},
		"distance_km": &graphql.Field{Type: graphql.Float},
	},
})

var productType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Product",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.String},
		"name":        &graphql.Field{Type: graphql.String},
		"type":        &graphql.Field{Type: graphql.String},
		"description": &graphql.Field{Type: graphql.String},
		"price":       &graphql.Field{Type: graphql.Float},
		"unit":        &graphql.Field{Type: graphql.String},
		"stock":       &graphql.Field{Type: graphql.Int},
	},
})

var productCatalogType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ProductCatalog",
	Fields: graphql.Fields{
		"pesticides":  &graphql.Field{Type: graphql.NewList(productType)},
		"fertilizers": &graphql.Field{Type: graphql.NewList(productType)},
	},
})

var diseaseCountType = graphql.NewObject(graphql.ObjectConfig{
	Name: "DiseaseCount",
	Fields: graphql.Fields{
		"disease": &graphql.Field{Type: graphql.String},
		"count":   &graphql.Field{Type: graphql.Int},
	},
})

var detectionStatsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "DetectionStats",
	Fields: graphql.Fields{
		"total":      &graphql.Field{Type: graphql.Int},
		"healthy":    &graphql.Field{Type: graphql.Int},
		"diseased":   &graphql.Field{Type: graphql.Int},
		"by_disease": &graphql.Field{Type: graphql.NewList(diseaseCountType)},
	},
})

// rankedToMap flattens a RankedEntity; the default resolver does not walk
// embedded structs.
func rankedToMap(r domain.RankedEntity) map[string]interface{} {
	return map[string]interface{}{
		"name":        r.Name,
		"category":    r.Category,
		"ref":         r.Ref,
		"location":    r.Location,
		"distance_km": r.DistanceKm,
	}
}

// pointArgs reads optional lat/lon GraphQL arguments.
func pointArgs(args map[string]interface{}) (*domain.GeoPoint, error) {
	lat, hasLat := args["lat"].(float64)
	lon, hasLon := args["lon"].(float64)
	if !hasLat && !hasLon {
		return nil, nil
	}
	return parsePoint(formatArg(lat, hasLat), formatArg(lon, hasLon))
}

func formatArg(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// buildSchema creates the GraphQL schema with queries for shops, research
// centers, products, map search and detection statistics.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	limits := deps.Limits.withDefaults()

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"shops": &graphql.Field{
				Type:        graphql.NewList(shopType),
				Description: "List shops without distance",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Shops.List(p.Context, p.Args["limit"].(int))
				},
			},
			"shopsNearby": &graphql.Field{
				Type:        graphql.NewList(shopType),
				Description: "Shops within radius km of a point, nearest first",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: limits.DefaultRadiusKm},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					center, err := pointArgs(p.Args)
					if err != nil {
						return nil, err
					}
					radius := p.Args["radius"].(float64)
					if radius <= 0 || radius > limits.MaxRadiusKm {
						return nil, fmt.Errorf("radius must be between 0 and %g km: %w", limits.MaxRadiusKm, domain.ErrInvalidInput)
					}
					return deps.Shops.FindNearby(p.Context, *center, radius, p.Args["limit"].(int))
				},
			},
			"researchCenters": &graphql.Field{
				Type:        graphql.NewList(researchCenterType),
				Description: "List research centers by city and name",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Centers.List(p.Context)
				},
			},
			"searchMap": &graphql.Field{
				Type:        graphql.NewList(mapEntityType),
				Description: "Search map entities by name or category",
				Args: graphql.FieldConfigArgument{
					"term":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lat":    &graphql.ArgumentConfig{Type: graphql.Float},
					"lon":    &graphql.ArgumentConfig{Type: graphql.Float},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: limits.DefaultRadiusKm},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					center, err := pointArgs(p.Args)
					if err != nil {
						return nil, err
					}
					var radius float64
					if center != nil {
						radius = p.Args["radius"].(float64)
					}
					view, err := deps.Map.BuildView(p.Context, center, radius)
					if err != nil {
						return nil, err
					}
					matches, err := view.Search(p.Args["term"].(string))
					if err != nil {
						return nil, err
					}
					result := make([]map[string]interface{}, 0, len(matches))
					for _, m := range matches {
						result = append(result, rankedToMap(m))
					}
					return result, nil
				},
			},
			"products": &graphql.Field{
				Type:        productCatalogType,
				Description: "Pesticide and fertilizer catalog, optionally one type",
				Args: graphql.FieldConfigArgument{
					"type": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: "all"},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					kind, _ := p.Args["type"].(string)
					return deps.Products.Catalog(p.Context, kind)
				},
			},
			"detectionStats": &graphql.Field{
				Type:        detectionStatsType,
				Description: "Detection counts for the researcher dashboard",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					stats, err := deps.Detections.Stats(p.Context)
					if err != nil {
						return nil, err
					}
					diseases := make([]string, 0, len(stats.ByDisease))
					for d := range stats.ByDisease {
						diseases = append(diseases, d)
					}
					sort.Strings(diseases)
					byDisease := make([]map[string]interface{}, 0, len(diseases))
					for _, d := range diseases {
						byDisease = append(byDisease, map[string]interface{}{"disease": d, "count": stats.ByDisease[d]})
					}
					return map[string]interface{}{
						"total":      stats.Total,
						"healthy":    stats.Healthy,
						"diseased":   stats.Diseased,
						"by_disease": byDisease,
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
