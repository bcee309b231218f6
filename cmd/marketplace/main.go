// cmd/marketplace/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"gig-marketplace/internal/api"
	"gig-marketplace/internal/applications"
	"gig-marketplace/internal/bookings"
	"gig-marketplace/internal/catalog"
	"gig-marketplace/internal/categories"
	"gig-marketplace/internal/common/auth"
	"gig-marketplace/internal/common/aws"
	"gig-marketplace/internal/common/camunda"
	"gig-marketplace/internal/common/config"
	"gig-marketplace/internal/common/database"
	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/common/observability"
	"gig-marketplace/internal/common/retry"
	"gig-marketplace/internal/jobs"
	"gig-marketplace/internal/notifications"
	"gig-marketplace/internal/search"
	"gig-marketplace/internal/users"
)

func always(error) bool { return true }

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"env":     cfg.App.Environment,
	})

	log.Info("starting marketplace", map[string]interface{}{"version": cfg.App.Version})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(cfg.App.Name, observability.TracingOptions{
		Enabled:        cfg.Tracing.Enabled,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
		Version:        cfg.App.Version,
	})
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer obs.Shutdown(context.Background())

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retry.Do(ctx, retry.Boot, "postgres connection", log, always, func(ctx context.Context) error {
		var err error
		if pg, err = database.NewPostgres(cfg.Database.Postgres); err != nil {
			return err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close()
			return err
		}
		return nil
	})
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	log.Info("postgres connected", nil)

	if cfg.Database.Postgres.MigrateOnBoot {
		version, err := database.Migrate(pg.DB, cfg.Database.Postgres.Database)
		if err != nil {
			zapLog.Fatal("migration failed", zap.Error(err))
		}
		log.Info("schema migrated", map[string]interface{}{"version": version})
	}

	// --- Redis ---
	rdb := database.NewRedis(cfg.Database.Redis)
	if err := retry.Do(ctx, retry.Boot, "redis connection", log, always, rdb.Ping); err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	log.Info("redis connected", nil)

	checks := map[string]api.Pinger{
		"postgres": pg,
		"redis":    rdb,
	}

	// --- Elasticsearch (optional) ---
	var (
		jobSearcher     jobs.Searcher
		serviceSearcher catalog.Searcher
	)
	if cfg.Search.UsesElasticsearch() {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Fatal("elasticsearch client failed", zap.Error(err))
		}
		if err := retry.Do(ctx, retry.Boot, "elasticsearch connection", log, always, es.Ping); err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		searchClient := search.New(es, cfg.Database.Elasticsearch, log)
		if err := searchClient.EnsureIndices(ctx); err != nil {
			zapLog.Fatal("search index setup failed", zap.Error(err))
		}
		jobSearcher, serviceSearcher = searchClient, searchClient
		checks["elasticsearch"] = es
		log.Info("elasticsearch connected", nil)
	}

	// --- Users & sessions ---
	sessions := auth.NewSessionStore(rdb.Client, cfg.Auth.SessionPrefix, config.GetDuration(cfg.Auth.SessionTTL), log)
	userSvc := users.NewService(users.NewPostgresStore(pg.DB), sessions, log)

	// --- Zeebe & notifications ---
	var (
		publisher notifications.Publisher = notifications.NewLogPublisher(log)
		zeebe     *camunda.Client
		workers   []worker.JobWorker
	)
	if cfg.Camunda.Enabled {
		err = retry.Do(ctx, retry.Boot, "zeebe connection", log, always, func(ctx context.Context) error {
			var err error
			zeebe, err = camunda.NewClient(ctx, cfg.Camunda, log)
			return err
		})
		if err != nil {
			zapLog.Fatal("zeebe failed after retries", zap.Error(err))
		}
		defer zeebe.Close()
		publisher = notifications.NewZeebePublisher(zeebe, log)
		checks["zeebe"] = api.PingFunc(zeebe.HealthCheck)

		handler, err := notificationHandler(ctx, cfg, userSvc, log)
		if err != nil {
			zapLog.Fatal("notification worker setup failed", zap.Error(err))
		}
		wcfg := cfg.Workers[notifications.TaskType]
		if jw := camunda.StartWorker(zeebe.Zeebe(), notifications.TaskType, wcfg, handler, log); jw != nil {
			workers = append(workers, jw)
		}
		log.Info("zeebe connected", nil)
	}

	// --- Domain services ---
	jobSvc := jobs.NewService(jobs.NewPostgresStore(pg.DB), jobSearcher, publisher, obs, log)
	appSvc := applications.NewService(applications.NewPostgresStore(pg.DB), publisher, obs, log)
	catalogSvc := catalog.NewService(catalog.NewPostgresStore(pg.DB), serviceSearcher, obs, log)
	bookingSvc := bookings.NewService(bookings.NewPostgresStore(pg.DB), publisher, obs, log)
	categorySvc := categories.NewService(categories.NewPostgresStore(pg.DB), rdb.Client, log)

	var limiter *api.RateLimiter
	if cfg.HTTP.RateLimitRPS > 0 {
		limiter = api.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, log)
		limiter.StartCleanup(ctx, time.Minute)
	}

	router := api.NewRouter(cfg.HTTP, api.Deps{
		Sessions:    sessions,
		CookieName:  cfg.Auth.CookieName,
		RateLimiter: limiter,
		Checks:      checks,
		Routes: []api.RouteRegistrar{
			jobs.NewHandler(jobSvc, cfg.Search, log),
			applications.NewHandler(appSvc, log),
			catalog.NewHandler(catalogSvc, cfg.Search, log),
			bookings.NewHandler(bookingSvc, log),
			categories.NewHandler(categorySvc, log),
			users.NewHandler(userSvc, cfg.Auth.CookieName, log),
		},
	}, log)

	server := api.NewServer(cfg.HTTP, router)
	serverErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// --- Graceful Shutdown ---
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received", nil)
	case err := <-serverErr:
		log.Error("http server failed", map[string]interface{}{"error": err})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.HTTP.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", map[string]interface{}{"error": err})
	}
	for _, jw := range workers {
		jw.Close()
		jw.AwaitClose()
	}

	log.Info("marketplace stopped", nil)
}

// notificationHandler wires SES and SNS senders according to the notifications config.
func notificationHandler(ctx context.Context, cfg *config.Config, contacts notifications.ContactLookup, log logger.Logger) (*notifications.Handler, error) {
	var (
		email notifications.EmailSender
		sms   notifications.SMSSender
	)
	nc := cfg.Notifications
	if nc.Email.Enabled || nc.SMS.Enabled {
		awsCfg, err := aws.LoadConfig(ctx, nc.AWS.Region)
		if err != nil {
			return nil, err
		}
		if nc.Email.Enabled {
			email = aws.NewSESEmailSender(awsCfg, nc.Email.FromEmail)
		}
		if nc.SMS.Enabled {
			sms = aws.NewSNSSMSSender(awsCfg)
		}
	}

	return notifications.NewHandler(notifications.Config{
		EmailEnabled: nc.Email.Enabled,
		SMSEnabled:   nc.SMS.Enabled,
		Timeout:      config.GetDuration(cfg.Workers[notifications.TaskType].Timeout),
	}, contacts, email, sms, log), nil
}
