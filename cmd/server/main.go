package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/aligner-portal/internal/config"
	"github.com/iliyamo/aligner-portal/internal/database"
	"github.com/iliyamo/aligner-portal/internal/handler"
	"github.com/iliyamo/aligner-portal/internal/logger"
	"github.com/iliyamo/aligner-portal/internal/mail"
	"github.com/iliyamo/aligner-portal/internal/metrics"
	"github.com/iliyamo/aligner-portal/internal/middleware"
	"github.com/iliyamo/aligner-portal/internal/notify"
	"github.com/iliyamo/aligner-portal/internal/queue"
	"github.com/iliyamo/aligner-portal/internal/repository"
	"github.com/iliyamo/aligner-portal/internal/router"
	"github.com/iliyamo/aligner-portal/internal/service"
	"github.com/iliyamo/aligner-portal/internal/storage"
)

func main() {
	cfg := config.Load() // Load environment config

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	m := metrics.NewCollector("aligner_portal")

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	mongoClient, mdb, err := database.OpenMongo(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.ConnectTimeout)
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()
	if err := database.EnsureIndexes(ctx, mdb); err != nil {
		return err
	}

	stores := service.Stores{
		Users:           repository.NewUserRepo(db),
		Distributers:    repository.NewDistributerRepo(db),
		Tokens:          repository.NewTokenRepo(db),
		Cases:           repository.NewPatientRepo(mdb),
		Comments:        repository.NewCommentRepo(mdb),
		Files:           repository.NewFileRepo(mdb),
		Notifications:   repository.NewNotificationRepo(mdb),
		SpecialComments: repository.NewSpecialCommentRepo(mdb),
		Categories:      repository.NewCategoryRepo(mdb),
	}
	blobs, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	if blobs != nil {
		stores.Blobs = blobs
	} else {
		log.Info("blob storage disabled: S3_BUCKET not set")
	}

	notifier, err := buildNotifier(ctx, cfg, log)
	if err != nil {
		return err
	}

	gate := service.NewGate(cfg.JWTSecret, stores.Users, log)
	mailer := service.NewMailer(notifier, log, m)
	caseSvc := service.NewCaseService(stores, gate, mailer, cfg.StrictStatus, log, m)
	collab := service.NewCollabService(stores, gate, mailer, log, m)
	inbox := service.NewNotificationService(stores.Notifications)
	specials := service.NewSpecialCommentService(stores, gate, log, m)
	categories := service.NewCategoryService(stores.Categories, gate)
	dashboard := service.NewDashboardService(caseSvc, stores.Notifications, stores.SpecialComments)
	auth := service.NewAuthService(stores, service.AuthConfig{
		JWTSecret:      cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		BcryptCost:     cfg.BcryptCost,
	}, log, m)
	accounts := service.NewUserService(stores, gate, cfg.BcryptCost, log)

	if err := seedSuperAdmin(ctx, accounts, log); err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Metrics(m))

	// Redis is optional. Without it the limiter and the cache are skipped.
	var limiter, cache echo.MiddlewareFunc
	if rdb, err := config.NewRedisClient(ctx, cfg.Redis); err == nil {
		defer rdb.Close()
		limiter = middleware.NewTokenBucket(cfg.RateLimit, rdb, log)
		cache = middleware.NewRedisCache(cfg.Cache, rdb, log)
	} else {
		log.Warn("redis unavailable: rate limiting and response cache disabled", zap.Error(err))
	}

	router.RegisterRoutes(e, handler.NewHealthHandler(map[string]handler.Pinger{
		"mysql": db,
		"mongo": handler.PingFunc(func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }),
	}), m)
	router.RegisterAuth(e, handler.NewAuthHandler(auth, log), gate, m, limiter)
	router.RegisterAPI(e, router.API{
		Cases:         handler.NewCaseHandler(caseSvc, log),
		Collab:        handler.NewCollabHandler(collab, log),
		Notifications: handler.NewNotificationHandler(inbox, log),
		Specials:      handler.NewSpecialCommentHandler(specials, log),
		Categories:    handler.NewCategoryHandler(categories, log),
		Dashboard:     handler.NewDashboardHandler(dashboard, log),
		Admin:         handler.NewAdminHandler(accounts, log),
	}, gate, m, cache)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
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
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(sctx)
}

// buildNotifier picks the e-mail transport from MAIL_TRANSPORT. In queue
// mode the process also runs the consumer unless MAIL_QUEUE_CONSUME is off.
func buildNotifier(ctx context.Context, cfg config.Config, log *zap.Logger) (notify.Notifier, error) {
	switch cfg.Mail.Transport {
	case "queue":
		if cfg.Queue.Consume {
			sender, err := mail.NewSMTPSender(cfg.Mail)
			if err != nil {
				return nil, err
			}
			consumer := &queue.Consumer{
				URL:    cfg.Queue.URL,
				Queue:  cfg.Queue.MailQueue,
				Sender: sender,
				Log:    log.Named("mail-consumer"),
			}
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("mail consumer stopped", zap.Error(err))
				}
			}()
		}
		return queue.NewPublisher(cfg.Queue.URL, cfg.Queue.MailQueue, log.Named("mail-publisher")), nil
	case "smtp":
		return mail.NewSMTPSender(cfg.Mail)
	default:
		return notify.LogNotifier{Log: log.Named("mail")}, nil
	}
}

// seedSuperAdmin creates the super-admin from SUPER_ADMIN_* when set.
func seedSuperAdmin(ctx context.Context, accounts *service.UserService, log *zap.Logger) error {
	email := os.Getenv("SUPER_ADMIN_EMAIL")
	if email == "" {
		return nil
	}
	p, err := accounts.EnsureSuperAdmin(ctx, service.AccountInput{
		Name:     os.Getenv("SUPER_ADMIN_NAME"),
		Email:    email,
		Password: os.Getenv("SUPER_ADMIN_PASSWORD"),
	})
	if err != nil {
		return err
	}
	log.Info("super-admin ready", zap.Uint64("user_id", p.ID))
	return nil
}
