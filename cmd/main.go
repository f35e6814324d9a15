/**
 * @description
 * This is the main entry point for the economy-service. It is responsible for
 * initializing all components of the service, including configuration,
 * database connection, the message broker producer, the repository, the core
 * application service, the scheduled badge jobs, and the HTTP server. It
 * wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/skillswap/economy-service/internal/api"
	"github.com/skillswap/economy-service/internal/app"
	"github.com/skillswap/economy-service/internal/config"
	"github.com/skillswap/economy-service/internal/store"
	rmrabbit "github.com/skillswap/economy-service/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"jwt secret must be configured\" env=JWT_SECRET")
	}
	if strings.TrimSpace(cfg.InternalAPIKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"internal api key must be configured\" env=INTERNAL_API_KEY")
	}
	platformUserID, err := cfg.PlatformAccountUUID()
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"platform account misconfigured\" err=%v", err)
	}

	log.Printf("level=info component=bootstrap msg=\"starting economy-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}
	poolConfig.MaxConns = 50
	poolConfig.MinConns = 10
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish settlement and badge
	// events. Event delivery is best-effort; a missing broker falls back
	// to a no-op producer so the economy keeps settling.
	var producer rmrabbit.Publisher
	eventProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = rmrabbit.NewEventProducerFallback()
	} else {
		defer eventProducer.Close()
		producer = eventProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// Redis backs the per-user rate limits; the service degrades to
	// unlimited when it is unavailable.
	var redisClient *redis.Client
	rateLimitingEnabled := cfg.EnrollRateLimitPerMinute > 0 || cfg.CashoutRateLimitPerMinute > 0
	if rateLimitingEnabled {
		if cfg.RedisURL == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// The platform fee account must exist before the first settlement.
	bootstrapCtx, cancelBootstrap := context.WithTimeout(context.Background(), 10*time.Second)
	if err := repository.EnsurePlatformAccount(bootstrapCtx, platformUserID); err != nil {
		cancelBootstrap()
		log.Fatalf("level=fatal component=bootstrap msg=\"platform account provisioning failed\" err=%v", err)
	}
	cancelBootstrap()
	log.Printf("level=info component=bootstrap msg=\"platform account ready\" platform_user_id=%s", platformUserID)

	// Initialize the core application service with its dependencies.
	economyService := app.NewService(app.ServiceParams{
		Repo:                   repository,
		Producer:               producer,
		PlatformUserID:         platformUserID,
		PlatformFeePercent:     cfg.PlatformFeePercent,
		CashoutFeePercent:      cfg.CashoutFeePercent,
		MinCashoutCredits:      cfg.MinCashoutCredits,
		CreditToFiatRate:       cfg.CreditToFiatRate,
		OnboardingBonusCredits: cfg.OnboardingBonusCredits,
		WeeklyTopCount:         cfg.WeeklyTopCount,
		MonthlyTopCount:        cfg.MonthlyTopCount,
		AllTimeTopCount:        cfg.AllTimeTopCount,
	})

	// Scheduled badge jobs.
	jobs := app.NewJobs(repository, producer, cfg.WeeklyTopCount, cfg.InactivityThresholdWeeks)
	scheduler := app.NewScheduler(jobs, cfg.PromotionJobSchedule, cfg.DecayJobSchedule)
	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()

	var limiter app.RateLimiter
	if redisClient != nil {
		limiter = app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
	}

	// Initialize the API handlers.
	completionPoints := api.CompletionPoints{
		Beginner:     cfg.CompletionPointsBeginner,
		Intermediate: cfg.CompletionPointsIntermediate,
		Advanced:     cfg.CompletionPointsAdvanced,
	}
	economyHandlers := api.NewEconomyHandlers(economyService, jobs, limiter, completionPoints, cfg.EnrollRateLimitPerMinute, cfg.CashoutRateLimitPerMinute)

	// Set up the HTTP router and define the API routes.
	router := chi.NewRouter()
	router.Mount("/economy", api.EconomyRoutes(economyHandlers, cfg.JWTSecret, cfg.InternalAPIKey))

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
