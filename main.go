package main

import (
	"context"
	"log"

	"homeapi-backend/controller"
	"homeapi-backend/models"
	"homeapi-backend/utils"
	"homeapi-backend/utils/logger"

	"github.com/gin-gonic/gin"
)

var config *models.Config

func Init() {
	var err error
	config, err = utils.GetConfig()
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	Init()

	ctx := context.Background()
	appLogger := logger.NewLogger(config.LogLevel, config.LogFormat)
	appLogger.Infof("Starting %s %s (%s)", config.AppName, config.AppVersion, config.AppEnv)

	r := gin.New()
	c := controller.NewController(ctx, config, appLogger)

	// Start server (this is blocking)
	go func() {
		if err := c.RegisterRoutes(ctx, config, r, config.BasePath); err != nil {
			appLogger.Fatalf("Server failed: %v", err)
		}
	}()

	if c.Worker != nil {
		if err := c.Worker.StartInBackground(); err != nil {
			appLogger.Fatalf("Failed to start import worker: %v", err)
		}
	}

	// Keep main goroutine alive
	select {}
}
