package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"blogapi/docs"
	"blogapi/internal/auth"
	"blogapi/internal/config"
	"blogapi/internal/database"
	"blogapi/internal/database/migration"
	handlers "blogapi/internal/http/handler"
	"blogapi/internal/http/middleware"
	"blogapi/internal/logger"
	"blogapi/internal/otel"
	"blogapi/internal/repository/mongodb"
	"blogapi/internal/service"
	"blogapi/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title Blog API
// @version 1.0
// @description Users, authentication and blog posts.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	root := &cobra.Command{
		Use:           "blogapi",
		Short:         "Blog HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create collections, validators and indexes, then exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return migrate(cmd.Context())
			},
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		logger.L().Error("command_failed", logger.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

// bootstrap loads and validates configuration and initializes the logger.
func bootstrap() (*config.AppConfig, *zap.Logger, error) {
	cfg := config.Load()
	logger.Init(logger.Config{
		Env:         cfg.Log.Env,
		Level:       cfg.Log.Level,
		ServiceName: cfg.AppName,
	})
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, logger.L(), nil
}

func migrate(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	m, err := database.NewMongo(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer m.Close(context.Background())

	return migration.EnsureMigrated(ctx, m.DB, log)
}

func serve(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	shutdownTracing, err := otel.Init(ctx, cfg.AppName, log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing_shutdown_failed", logger.Err(err))
		}
	}()

	m, err := database.NewMongo(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer m.Close(context.Background())

	if err := migration.EnsureMigrated(ctx, m.DB, log); err != nil {
		return err
	}

	var repoOpts []mongodb.Option
	if cfg.Database.OperationTimeoutSec > 0 {
		repoOpts = append(repoOpts, mongodb.WithTimeout(time.Duration(cfg.Database.OperationTimeoutSec)*time.Second))
	}
	store := mongodb.NewStore(m.DB)
	users := mongodb.NewUsers(store, repoOpts...)
	posts := mongodb.NewPosts(store, repoOpts...)

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.AccessTokenExpiry,
		RefreshTTL: cfg.JWT.RefreshTokenExpiry,
	})
	if err != nil {
		return err
	}

	// Cover images are optional.
	var objStore storage.Storage
	if cfg.MinIO.Endpoint != "" {
		objStore, err = storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			return fmt.Errorf("failed to initialize object storage: %w", err)
		}
	} else {
		log.Info("object_storage_disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    10 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(helmet.New(helmet.Config{CrossOriginEmbedderPolicy: "unsafe-none"}))
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSAllowOrigins}))
	app.Use(compress.New())
	app.Use(middleware.RequestID())
	app.Use(metrics.Handler())
	app.Use(middleware.Logger(log))
	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == middleware.MetricsPath
	})))

	app.Get(middleware.MetricsPath, middleware.MetricsHandler(reg))

	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	handlers.RegisterRoutes(app, handlers.Dependencies{
		DB:          m,
		Tokens:      tokens,
		Users:       users,
		AuthService: service.NewAuthService(users, tokens),
		UserService: service.NewUserService(users),
		PostService: service.NewPostService(posts, users, objStore),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("server_starting", zap.String("addr", addr))
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	log.Info("server_shutting_down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
