// Package server wires the resolution pipeline together and runs the HTTP API
// and the Kafka consumer.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/go-playground/validator/v10"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/repositories/resolvedentity"
	"github.com/Ramsey-B/fern/internal/repositories/reviewqueue"
	"github.com/Ramsey-B/fern/pkg/blocking"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/linkage"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/processor"
	"github.com/Ramsey-B/fern/pkg/resolution"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	resolutionroutes "github.com/Ramsey-B/fern/pkg/routes/resolution"
	reviewroutes "github.com/Ramsey-B/fern/pkg/routes/review"
	"github.com/Ramsey-B/fern/pkg/similarity"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

// Run boots the service and blocks until SIGINT/SIGTERM.
func Run(cfg *config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.TracingOTLPEndpoint,
			Protocol: cfg.TracingOTLPProtocol,
			Insecure: true,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return err
		}
		provider := tracing.Init(cfg.AppName, exporter)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("failed to shut down tracer provider")
			}
		}()
	}

	db, err := connectDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	var graphClient *graph.Client
	if cfg.GraphDBEnabled {
		graphClient, err = graph.NewClient(graph.Config{
			Host:     cfg.GraphDBHost,
			Port:     cfg.GraphDBPort,
			Username: cfg.GraphDBUser,
			Password: cfg.GraphDBPassword,
		}, logger)
		if err != nil {
			return err
		}
		defer graphClient.Close(context.Background())
	}

	strategies := blocking.AllStrategies
	if names := nonEmpty(cfg.BlockingStrategies); len(names) > 0 {
		strategies = blocking.ParseStrategies(names, logger)
	}

	blocker := blocking.NewEngine(logger, blocking.EngineConfig{MaxBlockSize: cfg.MaxBlockSize})

	evaluator, err := similarity.NewFieldEvaluator(nil)
	if err != nil {
		return err
	}

	table, err := loadProbabilityTable(cfg)
	if err != nil {
		return err
	}
	scorer := linkage.NewScorer(logger, table)

	decider, err := resolution.NewDecider(logger, blocker, evaluator, scorer, resolution.DeciderConfig{
		HighThreshold:  cfg.HighThreshold,
		LowThreshold:   cfg.LowThreshold,
		MaxCandidates:  cfg.MaxCandidates,
		BatchSize:      cfg.BatchSize,
		MaxConcurrency: cfg.MaxConcurrency,
		Strategies:     strategies,
	})
	if err != nil {
		return err
	}

	entityRepo := resolvedentity.NewRepository(db, logger)
	reviewRepo := reviewqueue.NewRepository(db, logger)

	var identities *graph.IdentityService
	if graphClient != nil {
		identities = graph.NewIdentityService(graphClient, logger)
	}

	var producer *kafka.Producer
	var emitter *events.Emitter
	if cfg.KafkaEventsEnabled {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		defer producer.Close()
		emitter = events.NewEmitter(producer, logger)
	}

	proc := processor.NewProcessor(logger, decider, blocker, strategies, entityRepo, reviewRepo, identities, emitter)
	sweeper := processor.NewSweeper(logger, blocker)

	if err := proc.RebuildIndex(ctx); err != nil {
		logger.WithContext(ctx).WithError(err).Error("failed to build blocking index at startup, continuing with an empty index")
	}

	if err := registerDependencies(logger, decider, proc, sweeper, entityRepo, reviewRepo); err != nil {
		return err
	}

	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled {
		consumer = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaInputTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, logger, proc.HandleMessage)
		if err := consumer.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := consumer.Stop(); err != nil {
				logger.WithError(err).Error("failed to stop consumer")
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	checker := health.NewChecker(db, graphClient, cfg.Version)
	checker.RegisterRoutes(e)

	resolutionroutes.Register(e.Group("/api/v1/resolution"))
	reviewroutes.Register(e.Group("/api/v1/review"))

	checker.SetReady(true)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.WithFields(map[string]any{"addr": addr}).Info("starting http server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("http server exited")
			stop()
		}
	}()

	<-ctx.Done()
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newLogger(cfg *config.Config) (ectologger.Logger, error) {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), nil
}

func connectDatabase(cfg *config.Config, logger ectologger.Logger) (database.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword,
		cfg.DatabaseName, cfg.DatabaseSSLMode)

	conn, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	conn.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	conn.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	driver, err := migratepg.WithInstance(conn.DB, &migratepg.Config{})
	if err != nil {
		return nil, err
	}

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
	})
	if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
		return nil, err
	}

	return database.NewDatabaseInstance(conn, logger), nil
}

func loadProbabilityTable(cfg *config.Config) (*linkage.ProbabilityTable, error) {
	if cfg.ProbabilityTablePath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(cfg.ProbabilityTablePath)
	if err != nil {
		return nil, err
	}
	return linkage.ParseTable(data)
}

// registerDependencies populates the default DI container consumed by the
// route handlers.
func registerDependencies(
	logger ectologger.Logger,
	decider *resolution.Decider,
	proc *processor.Processor,
	sweeper *processor.Sweeper,
	entityRepo *resolvedentity.Repository,
	reviewRepo *reviewqueue.Repository,
) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*resolution.Decider](container, decider); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*processor.Processor](container, proc); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*processor.Sweeper](container, sweeper); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*resolvedentity.Repository](container, entityRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*reviewqueue.Repository](container, reviewRepo); err != nil {
		return err
	}
	return nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
