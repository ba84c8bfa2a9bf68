package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"publish-scheduler/domain/model"
	"publish-scheduler/domain/repository"
	"publish-scheduler/infrastructure/cache"
	"publish-scheduler/infrastructure/clients/linkedin"
	"publish-scheduler/infrastructure/clients/platform"
	"publish-scheduler/infrastructure/configuration"
	"publish-scheduler/infrastructure/logger"
	"publish-scheduler/infrastructure/notification"
	"publish-scheduler/infrastructure/persistence"
	"publish-scheduler/infrastructure/pubsub"
	"publish-scheduler/infrastructure/realtime"
	"publish-scheduler/infrastructure/servicebus"
	httpHandler "publish-scheduler/interfaces/http"
	"publish-scheduler/server"
	"publish-scheduler/usecase"

	"github.com/getsentry/sentry-go"
	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		sentry.CurrentHub().Recover(err)
		sentry.Flush(2 * time.Second)
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	app := configuration.C.App
	sched := configuration.C.Scheduler
	logger.GetLogger().WithField("envFiles", configuration.EnvFiles).Info("Configuration loaded")

	if dsn := configuration.C.Sentry.DSN; dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Environment: configuration.C.Sentry.Environment}); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Sentry initialization failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	taskRepo, tokenRepo, err := InitiateStores()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Database initialization failed")
		os.Exit(1)
	}

	notificationLog := InitiateNotificationLog(ctx)
	notifier := InitiateNotifiers(ctx, notificationLog)

	linkedInCfg := configuration.GetLinkedInConfig()
	linkedInClient := linkedin.NewClient(linkedin.Config{
		ClientID:     linkedInCfg.ClientID,
		ClientSecret: linkedInCfg.ClientSecret,
		RedirectURL:  linkedInCfg.RedirectURI,
		Scopes:       linkedInCfg.Scopes,
		AuthURL:      linkedInCfg.AuthURL,
		APIURL:       linkedInCfg.APIURL,
		RateLimit:    linkedInCfg.RateLimit,
		Burst:        linkedInCfg.Burst,
	})
	registry := platform.NewRegistry(linkedInClient)
	logger.GetLogger().WithField("platforms", registry.Platforms()).Info("Platform adapters registered")

	hub := realtime.NewTaskHub()
	notifySuccess := true
	if sched.NotifySuccess != nil {
		notifySuccess = *sched.NotifySuccess
	}
	publishUsecase := usecase.NewPublishUsecase(taskRepo, tokenRepo, registry, notifier, usecase.PublishOptions{
		BatchSize:            sched.BatchSize,
		AdapterTimeout:       sched.AdapterTimeout,
		MaxAttempts:          sched.MaxAttempts,
		RetryInitialInterval: sched.RetryInitialInterval,
		RetryMaxInterval:     sched.RetryMaxInterval,
		ClaimLease:           sched.ClaimLease,
		NotifySuccess:        notifySuccess,
	}).WithBroadcaster(hub.BroadcastTask)

	scheduler := usecase.NewScheduler(publishUsecase, sched.Interval, sched.RunOnStart)
	if sched.LeaderLock {
		redisClient, err := cache.NewCache(
			ctx,
			fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
			configuration.C.RedisClient.Username,
			configuration.C.RedisClient.Password,
		)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Redis not available - scheduler runs without leader lock")
		} else {
			scheduler = scheduler.WithLeaderLock(cache.NewLeaderLock(redisClient, sched.LeaderLockKey, sched.LeaderLockTTL))
			logger.GetLogger().WithField("key", sched.LeaderLockKey).Info("Scheduler leader lock enabled")
		}
	}

	credentialUsecase := usecase.NewCredentialUsecase(tokenRepo, registry)

	router := server.InitiateRouter(server.Handlers{
		Ops:  httpHandler.NewOpsHandler(scheduler, registry, notificationLog),
		Task: httpHandler.NewTaskHandler(publishUsecase),
		Credential: httpHandler.NewCredentialHandler(credentialUsecase, map[model.Platform]httpHandler.AuthURLBuilder{
			model.PlatformLinkedIn: linkedInClient,
		}),
		Stream: hub.Serve,
	}, app.SecretKey, app.CorsOrigins)

	if sched.Enabled {
		scheduler.Start(ctx)
	} else {
		logger.GetLogger().Info("Scheduler disabled; cycles run only through /api/scheduler/trigger")
	}

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		if app.TLSEnabled {
			cert := app.TLSCertFile
			key := app.TLSKeyFile
			if cert == "" || key == "" {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
				if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			} else {
				logger.GetLogger().WithFields(map[string]interface{}{"cert": cert, "key": key}).Info("Serving HTTPS")
				if err := httpServer.ListenAndServeTLS(cert, key); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			}
		} else {
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	scheduler.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// InitiateStores opens the task and credential stores for the configured vendor.
func InitiateStores() (repository.ITask, repository.IOAuthToken, error) {
	db := configuration.C.Database
	switch db.Vendor {
	case "mssql":
		mssql, err := persistence.NewMSSQLDB(db.Mssql)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mssql: %w", err)
		}
		if err := ensureSchema(mssql, persistence.EnsureTaskSchemaMSSQL, persistence.EnsureOAuthTokenSchemaMSSQL); err != nil {
			return nil, nil, err
		}
		return persistence.NewTaskRepositoryMSSQL(mssql), persistence.NewOAuthTokenRepositoryMSSQL(mssql), nil
	case "mysql":
		gdb, err := persistence.NewMySQLGorm(db.MySql)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mysql: %w", err)
		}
		return persistence.NewTaskRepositoryGorm(gdb), persistence.NewOAuthTokenRepositoryGorm(gdb), nil
	default:
		psql, err := persistence.NewPostgreSQLDB(db.Psql)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := ensureSchema(psql, persistence.EnsureTaskSchema, persistence.EnsureOAuthTokenSchema); err != nil {
			return nil, nil, err
		}
		return persistence.NewTaskRepository(psql), persistence.NewOAuthTokenRepository(psql), nil
	}
}

func ensureSchema(db *sql.DB, steps ...func(*sql.DB) error) error {
	for _, step := range steps {
		if err := step(db); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	logger.GetLogger().WithField("vendor", configuration.C.Database.Vendor).Info("Database connected.")
	return nil
}

// InitiateNotificationLog returns nil when Mongo is not configured or unreachable.
func InitiateNotificationLog(ctx context.Context) repository.INotificationLog {
	mongoCfg := configuration.C.Database.Mongo
	if mongoCfg.Host == "" {
		return nil
	}
	client, err := persistence.NewMongoDb(mongoCfg.Host, mongoCfg.Port, mongoCfg.User, mongoCfg.Password, mongoCfg.Name)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - continuing without notification log")
		return nil
	}
	if err := client.Ping(ctx, nil); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - continuing without notification log")
		return nil
	}
	logger.GetLogger().Info("MongoDB connected successfully")
	return persistence.NewNotificationLogMongo(client, mongoCfg.Name)
}

// InitiateNotifiers always includes the log sink; the rest depend on configuration.
func InitiateNotifiers(ctx context.Context, notificationLog repository.INotificationLog) repository.INotifier {
	multi := notification.NewMulti(notificationLog, notification.Log{})

	ntfy := configuration.C.Notification.Ntfy
	if ntfy.Topic != "" {
		multi.Add(notification.NewNtfy(ntfy.Server, ntfy.Topic, ntfy.Token, nil))
	}
	telegram := configuration.C.Notification.Telegram
	if telegram.BotToken != "" && telegram.ChatID != "" {
		multi.Add(notification.NewTelegram(telegram.APIURL, telegram.BotToken, telegram.ChatID, nil))
	}

	if ps := configuration.C.Pubsub; ps.ProjectID != "" && ps.Topic != "" {
		client, err := pubsub.NewPubSub(ctx, ps.ProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("PubSub not available - continuing without PubSub notifications")
		} else {
			multi.Add(pubsub.NewNotifier(client, ps.Topic))
		}
	}
	if sb := configuration.C.ServiceBus; sb.Namespace != "" && sb.Queue != "" {
		client, err := servicebus.NewServiceBus(ctx, sb.Namespace)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without Service Bus notifications")
		} else {
			multi.Add(servicebus.NewNotifier(client, sb.Queue))
		}
	}

	logger.GetLogger().WithField("sinks", multi.Len()).Info("Notifiers initialized")
	return multi
}
