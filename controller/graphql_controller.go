package controller

import (
	"encoding/json"
	"io"
	"net/http"

	"homeapi-backend/graph"
	"homeapi-backend/models"
	"homeapi-backend/utils/logger"

	"github.com/gin-gonic/gin"
)

// GraphQLRequest is the standard POST body of a GraphQL call.
type GraphQLRequest struct {
	Query         string                 `json:"query" binding:"required"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// GraphQLController serves query execution, the subscription stream and the
// playground.
type GraphQLController struct {
	resolver *graph.Resolver
	logger   logger.Logger
}

// NewGraphQLController creates a new GraphQL controller
func NewGraphQLController(resolver *graph.Resolver, log logger.Logger) *GraphQLController {
	return &GraphQLController{
		resolver: resolver,
		logger:   log,
	}
}

// Execute handles POST /graphql.
func (g *GraphQLController) Execute(c *gin.Context) {
	var req GraphQLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.APIResponse{
			Status:  "error",
			Code:    http.StatusBadRequest,
			Message: "Invalid request body",
			Error:   &models.APIError{Type: "BadRequest", Details: err.Error()},
		})
		return
	}

	result := g.resolver.Execute(c.Request.Context(), req.Query, req.Variables, req.OperationName)
	c.JSON(http.StatusOK, result)
}

// Stream handles GET /graphql/stream: a subscription executed over
// server-sent events. The stream ends when the client disconnects.
func (g *GraphQLController) Stream(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, models.APIResponse{
			Status:  "error",
			Code:    http.StatusBadRequest,
			Message: "Missing query parameter",
			Error:   &models.APIError{Type: "BadRequest", Details: "query is required"},
		})
		return
	}

	var variables map[string]interface{}
	if raw := c.Query("variables"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &variables); err != nil {
			c.JSON(http.StatusBadRequest, models.APIResponse{
				Status:  "error",
				Code:    http.StatusBadRequest,
				Message: "Invalid variables parameter",
				Error:   &models.APIError{Type: "BadRequest", Details: err.Error()},
			})
			return
		}
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	results := g.resolver.Subscribe(c.Request.Context(), query, variables, c.Query("operationName"))
	c.Stream(func(w io.Writer) bool {
		result, ok := <-results
		if !ok {
			return false
		}
		c.SSEvent("next", result)
		return true
	})
}

// Playground serves a minimal GraphiQL page.
func (g *GraphQLController) Playground(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(playgroundHTML))
}

const playgroundHTML = `<!DOCTYPE html>
<html>
  <head>
    <title>homeapi</title>
    <style>html, body, #graphiql { height: 100%; margin: 0; }</style>
    <link rel="stylesheet" href="https://unpkg.com/graphiql/graphiql.min.css" />
  </head>
  <body>
    <div id="graphiql"></div>
    <script src="https://unpkg.com/react/umd/react.production.min.js"></script>
    <script src="https://unpkg.com/react-dom/umd/react-dom.production.min.js"></script>
    <script src="https://unpkg.com/graphiql/graphiql.min.js"></script>
    <script>
      ReactDOM.render(
        React.createElement(GraphiQL, {
          fetcher: GraphiQL.createFetcher({ url: '/graphql' }),
        }),
        document.getElementById('graphiql'),
      );
    </script>
  </body>
</html>`
