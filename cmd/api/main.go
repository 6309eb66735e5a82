package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/support-router/internal/api/http"
	"github.com/spec-kit/support-router/internal/api/http/handlers"
	"github.com/spec-kit/support-router/internal/agent"
	"github.com/spec-kit/support-router/internal/auth"
	"github.com/spec-kit/support-router/internal/classifier"
	"github.com/spec-kit/support-router/internal/config"
	"github.com/spec-kit/support-router/internal/directory"
	"github.com/spec-kit/support-router/internal/events"
	"github.com/spec-kit/support-router/internal/flow"
	"github.com/spec-kit/support-router/internal/observability"
	"github.com/spec-kit/support-router/internal/persistence"
	"github.com/spec-kit/support-router/internal/ratelimit"
	"github.com/spec-kit/support-router/internal/repository"
	"github.com/spec-kit/support-router/internal/sanitize"
	"github.com/spec-kit/support-router/internal/schedule"
	"github.com/spec-kit/support-router/internal/service"
	"github.com/spec-kit/support-router/internal/worker"
	"github.com/spec-kit/support-router/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lexicon := config.DefaultLexicon()
	if cfg.Flow.LexiconFile != "" {
		lexicon, err = config.LoadLexicon(cfg.Flow.LexiconFile)
		if err != nil {
			logger.Fatal("failed to load lexicon", zap.String("path", cfg.Flow.LexiconFile), zap.Error(err))
		}
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrations.Files, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger.Named("notify"), cfg.Notification))

	var journal repository.JournalRepository
	if pg.Enabled() {
		journal = repository.NewPostgresJournalRepository(pg.PoolHandle())
	} else {
		journal = repository.NewMemoryJournalRepository(time.Now)
	}
	billing := repository.NewBillingRequestRepository(time.Now)
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repository.NewTicketRepository(repository.NewSLAPolicy(cfg.Flow.SLA), time.Now),
		Dispatcher: dispatcher,
		Logger:     logger.Named("tickets"),
	})

	hours, err := schedule.NewBusinessHours(cfg.Flow)
	if err != nil {
		logger.Fatal("invalid business hours", zap.Error(err))
	}

	var inner classifier.Classifier = classifier.NewKeyword(lexicon)
	if cfg.Classifier.URL != "" {
		inner = classifier.NewRemote(cfg.Classifier, logger.Named("classifier"))
		logger.Info("using remote classifier", zap.String("model", cfg.Classifier.Model))
	}

	engine, err := flow.NewEngine(flow.Dependencies{
		Sessions:  repository.NewSessionRepository(time.Now),
		Tickets:   tickets,
		Journal:   journal,
		Directory: directory.NewDemo(time.Now()),
		Agents:    agent.NewTopCSATSelector(cfg.Flow),
		Billing:   billing,
		Schedule:  hours,
		Analyzer:  classifier.NewSafe(inner, logger.Named("classifier")),
		Metrics:   metrics,
		Logger:    logger.Named("flow"),
	}, flow.NewPolicy(cfg.Flow, lexicon))
	if err != nil {
		logger.Fatal("failed to build dispatch engine", zap.Error(err))
	}

	sanitizer, err := sanitize.New(lexicon.InjectionFilter)
	if err != nil {
		logger.Fatal("invalid injection filter", zap.Error(err))
	}

	var limiter ratelimit.Limiter = ratelimit.NewMemory(cfg.RateLimit.Window(), cfg.RateLimit.MaxRequests, time.Now)
	if redis.Enabled() {
		limiter = ratelimit.NewFallback(
			ratelimit.NewRedis(redis.Client, cfg.RateLimit.Window(), cfg.RateLimit.MaxRequests, ""),
			limiter,
			func(err error) { logger.Warn("redis rate limiter unavailable; using memory", zap.Error(err)) },
		)
	}

	var monitor *service.SLAMonitor
	if cfg.SLAMonitor.Enabled {
		monitor = service.NewSLAMonitor(tickets, cfg.SLAMonitor, logger.Named("sla"), time.Now)
	}
	stopMonitor, err := worker.StartSLAMonitor(monitor, logger)
	if err != nil {
		logger.Fatal("failed to start sla monitor", zap.Error(err))
	}
	defer stopMonitor()

	authService := service.NewAuthService(cfg.Auth)
	if cfg.Auth.OperatorPasswordHash == "" {
		logger.Warn("AUTH_OPERATOR_PASSWORD_HASH not set; operator login disabled")
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Chat:           handlers.NewChatHandler(service.NewChatService(engine, sanitizer, limiter, logger.Named("chat"))),
		Auth:           handlers.NewAuthHandler(authService),
		Admin:          handlers.NewAdminHandler(tickets, service.NewAdminService(journal, billing), metrics),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", zap.Error(err))
	}
}
