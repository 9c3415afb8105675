package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/Ramsey-B/briar/config"
	"github.com/Ramsey-B/briar/internal/repositories/attribute"
	"github.com/Ramsey-B/briar/internal/repositories/attributevalue"
	"github.com/Ramsey-B/briar/internal/repositories/match"
	"github.com/Ramsey-B/briar/internal/repositories/property"
	"github.com/Ramsey-B/briar/internal/repositories/propertyrequest"
	"github.com/Ramsey-B/briar/pkg/catalog"
	"github.com/Ramsey-B/briar/pkg/database"
	"github.com/Ramsey-B/briar/pkg/eav"
	"github.com/Ramsey-B/briar/pkg/matching"
	"github.com/Ramsey-B/briar/pkg/middleware"
	"github.com/Ramsey-B/briar/pkg/notify"
	"github.com/Ramsey-B/briar/pkg/redis"
	attributeroutes "github.com/Ramsey-B/briar/pkg/routes/attribute"
	"github.com/Ramsey-B/briar/pkg/routes/health"
	matchroutes "github.com/Ramsey-B/briar/pkg/routes/match"
	propertyroutes "github.com/Ramsey-B/briar/pkg/routes/property"
	requestroutes "github.com/Ramsey-B/briar/pkg/routes/propertyrequest"
	"github.com/Ramsey-B/briar/pkg/startup"
	"github.com/Ramsey-B/briar/pkg/tracing"
)

const version = "1.0.0"

// dependency adapts a pair of closures to the startup lifecycle.
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dependency) GetName() string     { return d.name }
func (d *dependency) DependsOn() []string { return d.dependsOn }
func (d *dependency) Start(ctx context.Context) error {
	return d.start(ctx)
}
func (d *dependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}

// dbPinger adapts the database handle to the health probe surface.
type dbPinger struct {
	db database.DB
}

func (p dbPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		log.Fatalf("failed to bind environment config: %v", err)
	}

	zapLogger, err := newZapLogger(cfg)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zapLogger.Sync() // nolint:errcheck

	logger := zapadapter.NewZapEctoLogger(zapLogger, nil)

	tracerProvider := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tracerProvider)
	tracing.SetTracer(otel.Tracer(cfg.AppName))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var db database.DB
	var redisClient *redis.Client

	startupService := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	startupService.AddDependency(&dependency{
		name: "postgres",
		start: func(ctx context.Context) error {
			dsn := fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
				cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
			)
			sqlxDB, err := sqlx.ConnectContext(ctx, cfg.DatabaseDriver, dsn)
			if err != nil {
				return err
			}
			sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
			sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
			sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
			db = database.NewDatabaseInstance(sqlxDB, logger)

			driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
			if err != nil {
				return err
			}
			migrations := database.NewMigrationService(logger, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			return migrations.Migrate(cfg.DatabaseName, driver)
		},
		stop: func(ctx context.Context) error {
			if db == nil {
				return nil
			}
			return db.Close()
		},
	})
	if cfg.RedisEnabled {
		startupService.AddDependency(&dependency{
			name: "redis",
			start: func(ctx context.Context) error {
				client, err := redis.NewClient(redis.Config{
					Host:     cfg.RedisHost,
					Port:     cfg.RedisPort,
					Password: cfg.RedisPassword,
					DB:       cfg.RedisDB,
				}, logger)
				if err != nil {
					return err
				}
				redisClient = client
				return nil
			},
			stop: func(ctx context.Context) error {
				if redisClient == nil {
					return nil
				}
				return redisClient.Close()
			},
		})
	}

	if err := startupService.Start(ctx); err != nil {
		logger.WithContext(ctx).WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.KafkaEnabled {
		kafkaNotifier, err := notify.NewKafkaNotifier(notify.KafkaConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaNotificationsTopic,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		}, logger)
		if err != nil {
			logger.WithContext(ctx).WithError(err).Error("Failed to create Kafka notifier")
			os.Exit(1)
		}
		notifier = kafkaNotifier
	}

	aliases, err := catalog.NewAliasTable(cfg.AttributeAliasFile)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("Failed to load attribute alias table")
		os.Exit(1)
	}

	attributeRepository := attribute.NewRepository(db, logger)
	attributeValueRepository := attributevalue.NewRepository(db, logger)
	propertyRepository := property.NewRepository(db, logger)
	propertyRequestRepository := propertyrequest.NewRepository(db, logger)
	matchRepository := match.NewRepository(db, logger)

	catalogCache := catalog.NewCache(attributeRepository, aliases, catalog.CacheConfig{
		TTL:     cfg.CatalogCacheTTL,
		MaxSize: cfg.CatalogCacheMaxSize,
	})
	eavService := eav.NewService(logger, catalogCache, attributeValueRepository)

	var locker *redis.Locker
	if redisClient != nil {
		locker = redis.NewLocker(redisClient, "matching:")
	}
	engine := matching.NewEngine(
		logger,
		propertyRepository,
		propertyRequestRepository,
		matchRepository,
		attributeValueRepository,
		catalogCache,
		notifier,
		locker,
		matching.EngineConfig{
			ScoreThreshold:  cfg.MatchScoreThreshold,
			LockTTL:         cfg.MatchLockTTL,
			LockWaitTimeout: cfg.MatchLockWaitTimeout,
			NotifyTimeout:   matching.DefaultEngineConfig().NotifyTimeout,
		},
	)

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("Failed to create DI container")
		os.Exit(1)
	}
	registrations := []error{
		ectoinject.RegisterInstance[ectologger.Logger](container, logger),
		ectoinject.RegisterInstance[database.DB](container, db),
		ectoinject.RegisterInstance[*attribute.Repository](container, attributeRepository),
		ectoinject.RegisterInstance[*attributevalue.Repository](container, attributeValueRepository),
		ectoinject.RegisterInstance[*property.Repository](container, propertyRepository),
		ectoinject.RegisterInstance[*propertyrequest.Repository](container, propertyRequestRepository),
		ectoinject.RegisterInstance[*match.Repository](container, matchRepository),
		ectoinject.RegisterInstance[*catalog.Cache](container, catalogCache),
		ectoinject.RegisterInstance[*eav.Service](container, eavService),
		ectoinject.RegisterInstance[*matching.Engine](container, engine),
	}
	for _, err := range registrations {
		if err != nil {
			logger.WithContext(ctx).WithError(err).Error("Failed to register dependency")
			os.Exit(1)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(
		echomiddleware.Recover(),
		echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: cfg.AllowMethods,
		}),
		otelecho.Middleware(cfg.AppName),
		middleware.Context(),
		middleware.Logger(logger),
	)
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var redisPinger health.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}
	checker := health.NewChecker(dbPinger{db: db}, redisPinger, version)
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	attributeroutes.Register(api.Group("/attributes"))
	propertyroutes.Register(api.Group("/properties"))
	requestroutes.Register(api.Group("/property-requests"))
	matchroutes.Register(api.Group("/matches"))

	go func() {
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.WithContext(ctx).WithError(err).Error("HTTP server stopped")
			os.Exit(1)
		}
	}()
	checker.SetReady(true)
	logger.WithContext(ctx).WithField("port", cfg.Port).Info("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	checker.SetReady(false)
	logger.WithContext(ctx).Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithContext(shutdownCtx).WithError(err).Error("Server forced to shutdown")
	}
	if err := notifier.Close(); err != nil {
		logger.WithContext(shutdownCtx).WithError(err).Error("Failed to close notifier")
	}
	if err := startupService.Stop(shutdownCtx); err != nil {
		logger.WithContext(shutdownCtx).WithError(err).Error("Failed to stop dependencies")
	}
}

func newZapLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.PrettyLogs {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
