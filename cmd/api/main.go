package main

import (
	"os"

	"go-fleet/internal/app"
	"go-fleet/internal/bootstrap"
	"go-fleet/internal/config"
	"go-fleet/internal/shared/apperror"
	"go-fleet/internal/shared/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("FLEET_CONFIG"))
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	apperror.Init()
	r := gin.New()
	r.Use(gin.Recovery())

	// build dependency + routes
	application, err := app.BuildApp(r, cfg, log)
	if err != nil {
		log.Fatal("build app failed", zap.Error(err))
	}
	defer application.Close()

	if err := bootstrap.StartHTTPServer(r, cfg.Server, application.Recorder, log); err != nil {
		log.Error("http server stopped", zap.Error(err))
	}
}
