package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kanchangiri67/OncoCist/internal/api"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
	"github.com/kanchangiri67/OncoCist/internal/core/service"
	"github.com/kanchangiri67/OncoCist/internal/infrastructure/config"
	"github.com/kanchangiri67/OncoCist/internal/infrastructure/db/mongo"
	"github.com/kanchangiri67/OncoCist/internal/infrastructure/db/postgres"
	"github.com/kanchangiri67/OncoCist/internal/infrastructure/db/redis"
	"github.com/kanchangiri67/OncoCist/internal/infrastructure/events"
	"github.com/kanchangiri67/OncoCist/internal/infrastructure/http/handlers"
	"github.com/kanchangiri67/OncoCist/internal/infrastructure/inference"
	"github.com/kanchangiri67/OncoCist/internal/infrastructure/queue"
	"github.com/kanchangiri67/OncoCist/internal/infrastructure/storage"
	"github.com/kanchangiri67/OncoCist/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// @title        Oncosist API
// @version      1.0
// @description  Brain MRI archive with tumour classification.
// @BasePath     /
// @securityDefinitions.apikey BearerAuth
// @in           header
// @name         Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "oncosist",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	// --- Postgres (system of record) ---
	db, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.Postgres.DSN}, log)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		closers = append(closers, func() { _ = sqlDB.Close() })
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	readiness := []handlers.Dependency{handlers.PostgresDependency(db)}

	accounts := postgres.NewAccountRepository(db)
	patients := postgres.NewPatientRepository(db)
	scans := postgres.NewScanRepository(db)
	predictions := postgres.NewPredictionRepository(db)

	// --- Event sinks ---
	var sinks []ports.EventPublisher

	if cfg.Mongo.Enabled {
		client, mdb, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = client.Disconnect(context.Background()) })

		audit := mongo.NewAuditTrail(mdb)
		if err := audit.EnsureIndexes(ctx); err != nil {
			return err
		}
		sinks = append(sinks, audit)
		readiness = append(readiness, handlers.MongoDependency(mdb))
		log.Info().Str("database", cfg.Mongo.Database).Msg("audit trail enabled")
	}

	if len(cfg.Events.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic))
		closers = append(closers, func() { _ = kp.Close() })
		sinks = append(sinks, kp)
		log.Info().Strs("brokers", cfg.Events.KafkaBrokers).Str("topic", cfg.Events.KafkaTopic).Msg("kafka events enabled")
	}

	if cfg.Events.SQSQueue != "" {
		client, err := events.NewSQSClient(ctx)
		if err != nil {
			return err
		}
		sp, err := events.NewSQSPublisher(ctx, client, cfg.Events.SQSQueue)
		if err != nil {
			return err
		}
		sinks = append(sinks, sp)
		log.Info().Str("queue", cfg.Events.SQSQueue).Msg("sqs events enabled")
	}

	var publisher ports.EventPublisher
	if len(sinks) > 0 {
		publisher = events.NewFanout(sinks...)
	}

	// --- Prediction lock ---
	var locker ports.ScanLocker
	if cfg.Redis.Enabled {
		client, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = client.Close() })
		locker = redis.NewScanLock(client, cfg.Redis.LockTTL, log)
		readiness = append(readiness, handlers.RedisDependency(client))
	}

	// --- Blob storage ---
	blobs, err := newBlobStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	// --- Inference ---
	var scorer ports.Scorer
	switch cfg.Inference.Backend {
	case config.InferenceRemote:
		scorer = inference.NewRemote(cfg.Inference.URL, cfg.Inference.Timeout)
	default:
		scorer = inference.NewBuiltin()
	}
	// Workers outlive the signal context and stop once requests have drained.
	workCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	dispatcher := queue.NewDispatcher(cfg.Inference.Workers, scorer, log)
	dispatcher.Start(workCtx)

	// --- Services ---
	tokens, err := service.NewTokenService(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	if err != nil {
		return err
	}
	authSvc := service.NewAuthService(accounts, tokens, cfg.Auth.AdminEmails, log)
	patientSvc := service.NewPatientService(patients, scans, predictions, blobs, publisher, log)
	scanSvc := service.NewScanService(service.ScanServiceDeps{
		Patients:    patientSvc,
		PatientRepo: patients,
		Scans:       scans,
		Predictions: predictions,
		Accounts:    accounts,
		Blobs:       blobs,
		Events:      publisher,
		UploadDir:   cfg.Storage.UploadDir,
	}, log)
	predictionSvc := service.NewPredictionService(service.PredictionServiceDeps{
		Scans:         scans,
		Predictions:   predictions,
		Blobs:         blobs,
		Scorer:        dispatcher,
		Locker:        locker,
		Events:        publisher,
		PredictionDir: cfg.Storage.PredictionDir,
	}, log)

	e := api.NewRouter(api.RouterDeps{
		Auth:          authSvc,
		Patients:      patientSvc,
		Scans:         scanSvc,
		Predictions:   predictionSvc,
		Readiness:     readiness,
		MaxUploadSize: cfg.MaxUploadSize,
		CORSOrigins:   cfg.CORSOrigins,
		Log:           log,
	})

	log.Info().Str("port", cfg.Port).Str("storage", cfg.Storage.Backend).Str("inference", cfg.Inference.Backend).Msg("server starting")
	return serve(ctx, e, ":"+cfg.Port, stopWorkers, log)
}

// serve runs e until ctx is done, then shuts it down and calls drained once
// in-flight requests have finished.
func serve(ctx context.Context, e *echo.Echo, addr string, drained func(), log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := e.Shutdown(shutdownCtx)
	drained()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newBlobStore(ctx context.Context, cfg config.StorageConfig) (ports.BlobStore, error) {
	switch cfg.Backend {
	case config.StorageS3:
		client, err := storage.NewS3Client(ctx)
		if err != nil {
			return nil, err
		}
		return storage.NewS3Store(client, cfg.S3Bucket, cfg.S3Prefix), nil
	default:
		store, err := storage.NewLocalStore(cfg.Root)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}
