package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/notify"
	"app/internal/repository"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	// 1. Open DB connection pool
	dsn := cfg.DBConnectionString
	// Local databases run without TLS; production connection strings carry
	// their own sslmode.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + "sslmode=disable"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create DB pool")
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		pool.Close()
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 2. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 3. Initialize repositories & services & handlers
	submissionRepo := repository.NewSubmissionRepo(pool)
	subscriptionRepo := repository.NewSubscriptionRepo(pool)
	profileRepo := repository.NewProfileRepo(pool)
	paymentMethodRepo := repository.NewPaymentMethodRepo(pool)
	tierRepo := repository.NewTierRepo(pool)

	trigger := notify.NewGenerationTrigger(cfg.GenerationWebhookURL, logger)

	entitlementSvc := service.NewEntitlementService(submissionRepo, logger)
	profileSvc := service.NewProfileService(profileRepo, logger)
	submissionSvc := service.NewSubmissionService(submissionRepo, entitlementSvc, trigger, logger)
	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo, tierRepo, logger)
	stripeSvc := service.NewStripeService(cfg, subscriptionRepo, profileRepo, paymentMethodRepo, logger)

	watchInterval := time.Duration(cfg.WatchIntervalSec) * time.Second

	submissionHandler := handler.NewSubmissionHandler(submissionSvc, entitlementSvc, profileSvc, submissionRepo, watchInterval, validate, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(stripeSvc, subscriptionSvc, validate, logger)
	webhookHandler := handler.NewWebhookHandler(stripeSvc, submissionSvc, logger)
	userHandler := handler.NewUserHandler(profileSvc, logger)

	// 4. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)
	engineAuthMiddleware := middleware.EngineAuthMiddleware(cfg.EngineWebhookToken, logger)

	// 5. Create ServeMux router
	apiV1Mux := http.NewServeMux()
	submissionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	subscriptionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	webhookHandler.RegisterRoutes(apiV1Mux, engineAuthMiddleware)
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	mux := http.NewServeMux()
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	// 6. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger, c.Handler(mux)), pool, nil
}
