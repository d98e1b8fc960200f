package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guardiao/app"
	"guardiao/config"
	"guardiao/db"
	"guardiao/routes"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading configuration")
	port := pflag.String("port", "", "listen port (overrides PORT)")
	pflag.Parse()

	if err := config.LoadEnv(*envFile); err != nil {
		panic(err)
	}
	log, err := initLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	application := app.MustNew(log)
	defer application.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := app.BootstrapFirstOperator(ctx, application.Config, db.NewRepo(application.DB, log)); err != nil {
		log.Error("bootstrap operator", zap.Error(err))
	}
	cancel()

	routes.RegisterRoutes(application.Router, application)

	if *port == "" {
		*port = os.Getenv("PORT")
	}
	if *port == "" {
		*port = "3001"
	}
	srv := &http.Server{
		Addr:              ":" + *port,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
}

func initLogger(level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}
	return cfg.Build()
}
