package controller

import (
	"context"
	"net/http"

	"homeapi-backend/dal"
	"homeapi-backend/graph"
	"homeapi-backend/middleware"
	"homeapi-backend/models"
	"homeapi-backend/pubsub"
	"homeapi-backend/repository"
	"homeapi-backend/utils/logger"
	"homeapi-backend/worker"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	GraphQL *GraphQLController
	Worker  *worker.Service

	auth    *middleware.AuthMiddleware
	cors    *middleware.CORSMiddleware
	logging *middleware.LoggingMiddleware
	logger  logger.Logger
}

func NewController(ctx context.Context, cfg *models.Config, log logger.Logger) *Controller {
	dbclient, err := dal.NewDynamoDBClient(cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize DynamoDB client: %v", err)
	}

	records := repository.NewRecordRepository(dbclient, cfg, log)
	apiKeys := repository.NewApiKeyRepository(dbclient, cfg, log)
	hub := pubsub.NewHub()

	resolver, err := graph.NewResolver(records, apiKeys, hub, log)
	if err != nil {
		log.Fatalf("Failed to build GraphQL schema: %v", err)
	}

	var importWorker *worker.Service
	if cfg.NatureRemoToken != "" {
		importWorker, err = worker.NewService(cfg, records, log)
		if err != nil {
			log.Fatalf("Failed to create import worker: %v", err)
		}
	} else {
		log.Warn("Device API token not configured, import worker disabled")
	}

	return &Controller{
		GraphQL: NewGraphQLController(resolver, log),
		Worker:  importWorker,
		auth:    middleware.NewAuthMiddleware(cfg, log, dbclient, apiKeys),
		cors:    middleware.NewCORSMiddleware(cfg),
		logging: middleware.NewLoggingMiddleware(log),
		logger:  log,
	}
}

func (c *Controller) RegisterRoutes(ctx context.Context, config *models.Config, r *gin.Engine, basePath string) error {
	r.Use(c.logging.Recovery())
	r.Use(c.logging.RequestLogger())
	r.Use(c.cors.CORS())

	root := r.Group(basePath)

	// Health check endpoint (no auth required)
	root.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "homeapi-backend",
		})
	})

	// Playground is public; every query it sends still authenticates.
	root.GET("/", c.GraphQL.Playground)

	root.POST("/graphql", c.auth.Authenticate(), c.GraphQL.Execute)
	root.GET("/graphql/stream", c.auth.Authenticate(), c.GraphQL.Stream)

	srv := &http.Server{
		Addr:    config.AppHost + ":" + config.AppPort,
		Handler: r,
	}
	c.logger.Infof("Starting server on %s:%s", config.AppHost, config.AppPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
