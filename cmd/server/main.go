package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/contaleve/identity-service/internal/api"
	"github.com/contaleve/identity-service/internal/core/ports"
	"github.com/contaleve/identity-service/internal/core/service"
	"github.com/contaleve/identity-service/internal/infrastructure/config"
	cognitodir "github.com/contaleve/identity-service/internal/infrastructure/directory/cognito"
	mongodir "github.com/contaleve/identity-service/internal/infrastructure/directory/mongo"
	mongodb "github.com/contaleve/identity-service/internal/infrastructure/db/mongo"
	redisdb "github.com/contaleve/identity-service/internal/infrastructure/db/redis"
	"github.com/contaleve/identity-service/internal/infrastructure/journal"
	"github.com/contaleve/identity-service/pkg/logger"
)

// main wires all collaborators exactly once at process start; per-request
// code only ever sees the already-constructed service and router.
func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger is not up yet.
		panic(err)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	dir, mongoDB, cleanup, err := buildDirectory(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("directory backend setup failed")
	}
	defer cleanup()

	provisionJournal := redisdb.NewProvisionJournal(rdb, cfg.Journal.StaleAfter)
	identities := service.NewIdentityService(dir, provisionJournal, cfg.Directory.SharedCredential, log)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	journal.NewSweeper(provisionJournal, cfg.Journal.SweepInterval, log).Start(sweepCtx)

	e := api.NewRouter(identities, mongoDB, rdb, prometheus.DefaultRegisterer, log)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("backend", cfg.Directory.Backend).Msg("identity service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// buildDirectory constructs the configured directory adapter. The returned
// *mongo.Database is nil for the cognito backend; the readiness probe skips
// it in that case.
func buildDirectory(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.Directory, *mongo.Database, func(), error) {
	switch cfg.Directory.Backend {
	case "cognito":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, nil, err
		}
		client := cognitoidentityprovider.NewFromConfig(awsCfg)
		return cognitodir.NewDirectory(client, cfg.Directory.UserPoolID, cfg.Directory.ClientID), nil, func() {}, nil

	default: // "mongo"
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, nil, nil, err
		}
		cleanup := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				log.Error().Err(err).Msg("mongo disconnect failed")
			}
		}
		return mongodir.NewDirectory(db, cfg.Directory.JWTSecret, 24*time.Hour), db, cleanup, nil
	}
}
