package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/iliyamo/student-housing-api/internal/config"
	"github.com/iliyamo/student-housing-api/internal/database"
	"github.com/iliyamo/student-housing-api/internal/handler"
	"github.com/iliyamo/student-housing-api/internal/logging"
	"github.com/iliyamo/student-housing-api/internal/mailer"
	"github.com/iliyamo/student-housing-api/internal/middleware"
	"github.com/iliyamo/student-housing-api/internal/queue"
	"github.com/iliyamo/student-housing-api/internal/repository"
	"github.com/iliyamo/student-housing-api/internal/router"
	"github.com/iliyamo/student-housing-api/internal/service"
	"github.com/iliyamo/student-housing-api/internal/utils"
	"github.com/iliyamo/student-housing-api/internal/validation"
)

func main() {
	_ = godotenv.Load()

	logger := logging.New(os.Getenv("APP_ENV"))
	cfg := config.Load(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := database.Open(cfg.Mongo.URI, cfg.Mongo.Timeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()
	db := client.Database(cfg.Mongo.Database)

	users := repository.NewUserMongoRepository(ctx, logger, db)
	listings := repository.NewListingMongoRepository(ctx, logger, db)
	meetings := repository.NewMeetingMongoRepository(ctx, logger, db)
	shares := repository.NewRoomSharingMongoRepository(ctx, logger, db)
	otps := repository.NewOTPMongoRepository(ctx, logger, db)
	bookings := repository.NewBookingMongoRepository(ctx, logger, db)

	var tx repository.Transactor = repository.NoopTransactor{}
	if cfg.Mongo.Transactions {
		tx = repository.NewMongoTransactor(client)
	}

	// Events are optional: without a broker they are dropped.
	var events service.EventPublisher = queue.NoopPublisher{}
	if cfg.AMQP.URL != "" {
		pub := queue.NewPublisher(cfg.AMQP.URL, logger)
		defer func() { _ = pub.Close() }()
		events = pub
	}

	mailCfg := mailer.LoadConfig(logger)
	var (
		otpSender service.Sender = mailer.LogSender{Logger: logger}
		notifier  queue.Notifier
	)
	if mailCfg.Configured() {
		m := mailer.New(mailCfg, logger)
		otpSender = m
		notifier = m
	} else {
		logger.Warn().Msg("SMTP not configured, OTP codes will be logged")
	}

	if cfg.AMQP.URL != "" && cfg.AMQP.ConsumerEnabled {
		go queue.NewConsumer(cfg.AMQP.URL, logger, notifier).Run(ctx)
	}

	tokens := utils.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	authSvc := service.NewAuthService(users, tokens, logger)
	otpSvc := service.NewOTPService(otps, users, otpSender, logger)
	listingSvc := service.NewListingService(listings)
	meetingSvc := service.NewMeetingService(meetings, listings, events, logger)
	shareSvc := service.NewRoomSharingService(shares, listings, events, logger, cfg.RoomShare.InactivityCutoff)
	bookingSvc := service.NewBookingService(bookings, listings, users, tx, events, logger)
	profileSvc := service.NewProfileService(users)

	if cfg.RoomShare.CleanupInterval > 0 {
		go shareSvc.RunCleanupLoop(ctx, cfg.RoomShare.CleanupInterval)
	}

	// Rate limiting and caching use Redis when reachable; otherwise limits
	// are kept per process and caching is off.
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()
	rdb := config.NewRedisClient(config.LoadRedisConfig())

	var limiter, authLimiter middleware.Limiter
	authCfg := rlCfg.WithCapacity(rlCfg.AuthCapacity, rlCfg.Prefix+":auth")
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		limiter = middleware.NewRedisLimiter(rdb, rlCfg)
		authLimiter = middleware.NewRedisLimiter(rdb, authCfg)
	} else {
		logger.Warn().Msg("redis unavailable, using in-memory rate limiting")
		mem := middleware.NewMemoryLimiter(rlCfg)
		authMem := middleware.NewMemoryLimiter(authCfg)
		go mem.RunCleanup(ctx, time.Minute)
		go authMem.RunCleanup(ctx, time.Minute)
		limiter, authLimiter = mem, authMem
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.CORS())

	router.Register(e, router.Deps{
		Logger: logger,
		Tokens: tokens,
		Users:  users,
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		Auth:        handler.NewAuthHandler(authSvc, otpSvc, tokens, cfg.Cookie),
		OTP:         handler.NewOTPHandler(otpSvc),
		Listings:    handler.NewListingHandler(listingSvc),
		Meetings:    handler.NewMeetingHandler(meetingSvc),
		Bookings:    handler.NewBookingHandler(bookingSvc),
		RoomSharing: handler.NewRoomSharingHandler(shareSvc),
		Profile:     handler.NewProfileHandler(profileSvc),
		CronSecret:  cfg.CronSecret,
		RateLimit:   rlCfg,
		Limiter:     limiter,
		AuthLimiter: authLimiter,
		Cache:       middleware.ResponseCache(cacheCfg, rdb, logger),
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
