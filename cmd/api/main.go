package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/xavierca1/ligue-pipeline/internal/config"
	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/database"
	"github.com/xavierca1/ligue-pipeline/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-pipeline/internal/infra/mail"
	"github.com/xavierca1/ligue-pipeline/internal/infra/memstore"
	"github.com/xavierca1/ligue-pipeline/internal/infra/queue"
	"github.com/xavierca1/ligue-pipeline/internal/infra/worker"
	"github.com/xavierca1/ligue-pipeline/internal/logging"
	"github.com/xavierca1/ligue-pipeline/internal/usecase"
)

const version = "1.0.0"

func main() {
	config.LoadEnv()
	cfg := config.LoadServer()

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	log := logrus.NewEntry(logger).WithField("service", "pipeline-api")

	if len(cfg.APITokens) == 0 {
		log.Warn("API_TOKENS is empty; every request will be rejected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	var (
		db        *sql.DB
		pipelines entity.PipelineRepository
		leads     entity.LeadRepositoryInterface
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.NewDBConnection(cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to database")
		}
		defer db.Close()

		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("failed to apply schema")
		}
		pipelines = database.NewPipelineRepository(db)
		leads = database.NewLeadRepository(db)
		log.Info("using postgres storage")
	} else {
		pipelines = memstore.NewPipelineStore()
		leads = memstore.NewLeadStore()
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	// 2. Events
	var (
		rabbitConn *amqp091.Connection
		events     usecase.EventPublisher
	)
	if cfg.AMQPURL != "" {
		rabbitMQ, err := queue.NewRabbitMQ(cfg.AMQPURL)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to RabbitMQ")
		}
		defer rabbitMQ.Close()
		rabbitConn = rabbitMQ.Conn
		events = queue.NewProducer(rabbitMQ.Ch)

		mailSender := mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPassword, cfg.MailFrom)
		eventWorker := queue.NewWorker(rabbitMQ.Ch, mailSender, cfg.NotifyEmails, log)
		go func() {
			if err := eventWorker.Start(ctx, queue.QueueName); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("event worker stopped")
			}
		}()
	} else {
		log.Warn("AMQP_URL not set, pipeline events are not published")
	}

	// 3. Usecases
	pipelineService := usecase.NewPipelineService(pipelines, events, log)
	leadService := usecase.NewLeadService(leads, log)

	// 4. Background workers
	snapshotWorker := worker.NewSnapshotWorker(pipelines, leads, pipelineService, cfg.SnapshotInterval, log)
	go snapshotWorker.Start(ctx)

	// 5. HTTP
	router := handlers.NewRouter(handlers.RouterConfig{
		Pipelines:      handlers.NewPipelineHandler(pipelineService, log),
		Leads:          handlers.NewLeadHandler(leadService, log),
		Health:         handlers.NewHealthHandler(version).WithDatabase(db).WithRabbitMQ(rabbitConn).WithMailRelay(cfg.MailHost),
		Tokens:         cfg.APITokens,
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}()

	log.WithField("port", cfg.Port).Info("pipeline API listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server error")
	}
	log.Info("server stopped")
}
