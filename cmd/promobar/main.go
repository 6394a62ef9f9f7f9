package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v9"
	"promobar/internal/client"
	"promobar/internal/configuration"
	"promobar/internal/database"
	"promobar/internal/engine"
	"promobar/internal/logger"
	"promobar/internal/server"
	"promobar/internal/usage"
)

func main() {
	if err := runApp(); err != nil {
		os.Exit(1)
	}
}

func runApp() error {
	appContext := context.Background()
	logOutput := io.Writer(os.Stdout)
	appLogger := logger.NewLogger(false, false, true, logOutput)

	defer func() {
		if r := recover(); r != nil {
			appLogger.Errorf("APPLICATION CRASHED: %+v", r)
		}
	}()

	config, err := configuration.GetConfig("config.toml")
	if err != nil {
		appLogger.Error("Error getting configuration from config.toml:", err)
		return err
	}

	if config.LogToFile {
		logFile, err := os.OpenFile("promobar_backend.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			appLogger.Error("Error opening log file:", err)
			return err
		}
		defer func() {
			if err := logFile.Close(); err != nil {
				appLogger.Error("Error closing log file:", err)
			}
		}()
		logOutput = io.MultiWriter(logOutput, logFile)
	}
	appLogger = logger.NewLogger(config.LogDebugEnabled, config.LogInfoEnabled, config.LogErrorEnabled, logOutput)

	if config.LogDebugEnabled {
		conf, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			appLogger.Error("Error marshalling Config to JSON:", err)
			return err
		}
		appLogger.Debugf("Config:\n%s", conf)
	}

	appLogger.Info("Connecting to DB at", config.DatabaseURI)
	dbConn, err := database.ConnectDB(appContext, config.DatabaseURI)
	if err != nil {
		appLogger.Error("Error connecting to DB:", err)
		return err
	}
	defer func() {
		if err := dbConn.Disconnect(appContext); err != nil {
			appLogger.Error("Error disconnecting from DB:", err)
		}
	}()

	db := database.Database{Database: dbConn.Database(database.Name)}
	redisClient := redis.NewClient(&redis.Options{Addr: config.RedisAddress})
	defer func() {
		if err := redisClient.Close(); err != nil {
			appLogger.Error("Error closing Redis client:", err)
		}
	}()

	ledger := usage.Ledger{
		Store:  db,
		Logger: appLogger,
	}
	selectionEngine := engine.Engine{
		Bars:   db,
		Quota:  ledger,
		Logger: appLogger,
	}

	srv := server.Server{
		DB: db,
		Client: client.Client{
			Client:         &http.Client{Timeout: 15 * time.Second},
			BillingBaseURL: config.BillingServiceURL,
			BillingSecret:  config.BillingSecret,
			Logger:         appLogger,
		},
		Redis:            redisClient,
		Engine:           selectionEngine,
		Ledger:           ledger,
		Logger:           appLogger,
		AuthSecretKey:    config.AuthSecretKey,
		BillingSecret:    config.BillingSecret,
		BillingReturnURL: config.BillingReturnURL,
		CacheTTL:         config.ActiveBarsCacheTTL,
	}

	appLogger.Info("Starting schedule sweeper with interval:", config.SweepInterval)
	go srv.SweepInInterval(appContext, time.NewTicker(config.SweepInterval))

	httpSrv := &http.Server{
		Handler:      srv.Router(),
		Addr:         config.ServerAddress,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	appLogger.Info("Serving on", httpSrv.Addr)
	return httpSrv.ListenAndServe()
}
