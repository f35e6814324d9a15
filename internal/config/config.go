/**
 * @description
 * This package handles configuration management for the economy-service. It
 * uses the Viper library to read configuration from environment variables
 * (with an optional .env file), providing a centralized way to manage
 * application settings and economy policy knobs.
 *
 * @dependencies
 * - github.com/spf13/viper: Application configuration.
 */

package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config holds all configuration for the economy-service, loaded from
// environment variables.
type Config struct {
	ServerPort     string `mapstructure:"SERVER_PORT"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	InternalAPIKey string `mapstructure:"INTERNAL_API_KEY"`

	// PlatformAccountID is the well-known id of the platform fee account,
	// provisioned at bootstrap, never lazily created by a settlement.
	PlatformAccountID string `mapstructure:"PLATFORM_ACCOUNT_ID"`

	// Economy policy.
	PlatformFeePercent     float64 `mapstructure:"PLATFORM_FEE_PERCENT"`
	CashoutFeePercent      float64 `mapstructure:"CASHOUT_FEE_PERCENT"`
	MinCashoutCredits      int64   `mapstructure:"MIN_CASHOUT_CREDITS"`
	CreditToFiatRate       float64 `mapstructure:"CREDIT_TO_FIAT_RATE"`
	OnboardingBonusCredits int64   `mapstructure:"ONBOARDING_BONUS_CREDITS"`

	// Suggested point awards per course difficulty, for award callers.
	CompletionPointsBeginner     int64 `mapstructure:"COMPLETION_POINTS_BEGINNER"`
	CompletionPointsIntermediate int64 `mapstructure:"COMPLETION_POINTS_INTERMEDIATE"`
	CompletionPointsAdvanced     int64 `mapstructure:"COMPLETION_POINTS_ADVANCED"`

	// Badge jobs.
	InactivityThresholdWeeks int    `mapstructure:"INACTIVITY_THRESHOLD_WEEKS"`
	WeeklyTopCount           int    `mapstructure:"WEEKLY_TOP_COUNT"`
	MonthlyTopCount          int    `mapstructure:"MONTHLY_TOP_COUNT"`
	AllTimeTopCount          int    `mapstructure:"ALLTIME_TOP_COUNT"`
	PromotionJobSchedule     string `mapstructure:"PROMOTION_JOB_SCHEDULE"`
	DecayJobSchedule         string `mapstructure:"DECAY_JOB_SCHEDULE"`

	// Rate limiting (disabled when redis is unconfigured).
	RedisRateLimitPrefix      string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	EnrollRateLimitPerMinute  int    `mapstructure:"ENROLL_RATE_LIMIT_PER_MINUTE"`
	CashoutRateLimitPerMinute int    `mapstructure:"CASHOUT_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given
// path, applying defaults and clamping invalid policy values.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("PLATFORM_FEE_PERCENT", 2.0)
	viper.SetDefault("CASHOUT_FEE_PERCENT", 5.0)
	viper.SetDefault("MIN_CASHOUT_CREDITS", 100)
	viper.SetDefault("CREDIT_TO_FIAT_RATE", 0.01)
	viper.SetDefault("ONBOARDING_BONUS_CREDITS", 50)
	viper.SetDefault("COMPLETION_POINTS_BEGINNER", 50)
	viper.SetDefault("COMPLETION_POINTS_INTERMEDIATE", 75)
	viper.SetDefault("COMPLETION_POINTS_ADVANCED", 100)
	viper.SetDefault("INACTIVITY_THRESHOLD_WEEKS", 6)
	viper.SetDefault("WEEKLY_TOP_COUNT", 5)
	viper.SetDefault("MONTHLY_TOP_COUNT", 5)
	viper.SetDefault("ALLTIME_TOP_COUNT", 10)
	// Sunday 23:59 UTC and the 1st of the month at midnight, matching the
	// platform's published promotion/decay windows.
	viper.SetDefault("PROMOTION_JOB_SCHEDULE", "59 23 * * 0")
	viper.SetDefault("DECAY_JOB_SCHEDULE", "0 0 1 * *")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "skillswap:rate_limit")
	viper.SetDefault("ENROLL_RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("CASHOUT_RATE_LIMIT_PER_MINUTE", 10)

	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "ECONOMY_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("PLATFORM_ACCOUNT_ID")
	_ = viper.BindEnv("PLATFORM_FEE_PERCENT")
	_ = viper.BindEnv("CASHOUT_FEE_PERCENT")
	_ = viper.BindEnv("MIN_CASHOUT_CREDITS")
	_ = viper.BindEnv("CREDIT_TO_FIAT_RATE")
	_ = viper.BindEnv("ONBOARDING_BONUS_CREDITS")
	_ = viper.BindEnv("COMPLETION_POINTS_BEGINNER")
	_ = viper.BindEnv("COMPLETION_POINTS_INTERMEDIATE")
	_ = viper.BindEnv("COMPLETION_POINTS_ADVANCED")
	_ = viper.BindEnv("INACTIVITY_THRESHOLD_WEEKS")
	_ = viper.BindEnv("WEEKLY_TOP_COUNT")
	_ = viper.BindEnv("MONTHLY_TOP_COUNT")
	_ = viper.BindEnv("ALLTIME_TOP_COUNT")
	_ = viper.BindEnv("PROMOTION_JOB_SCHEDULE")
	_ = viper.BindEnv("DECAY_JOB_SCHEDULE")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("ENROLL_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("CASHOUT_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("ECONOMY_SERVICE_INTERNAL_API_KEY"))
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "skillswap:rate_limit"
	}

	if config.PlatformFeePercent < 0 {
		log.Printf("level=warn component=config msg=\"negative platform fee configured; coercing to zero\" fee_percent=%f", config.PlatformFeePercent)
		config.PlatformFeePercent = 0
	}
	if config.PlatformFeePercent > 100 {
		log.Printf("level=warn component=config msg=\"platform fee percent too high; capping at 100\" fee_percent=%f", config.PlatformFeePercent)
		config.PlatformFeePercent = 100
	}
	if config.CashoutFeePercent < 0 {
		log.Printf("level=warn component=config msg=\"negative cashout fee configured; coercing to zero\" fee_percent=%f", config.CashoutFeePercent)
		config.CashoutFeePercent = 0
	}
	if config.CashoutFeePercent > 100 {
		log.Printf("level=warn component=config msg=\"cashout fee percent too high; capping at 100\" fee_percent=%f", config.CashoutFeePercent)
		config.CashoutFeePercent = 100
	}
	if config.MinCashoutCredits < 0 {
		config.MinCashoutCredits = 0
	}
	if config.CreditToFiatRate <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive credit-to-fiat rate configured; using default\" rate=%f", config.CreditToFiatRate)
		config.CreditToFiatRate = 0.01
	}
	if config.OnboardingBonusCredits < 0 {
		config.OnboardingBonusCredits = 0
	}
	if config.CompletionPointsBeginner <= 0 {
		config.CompletionPointsBeginner = 50
	}
	if config.CompletionPointsIntermediate <= 0 {
		config.CompletionPointsIntermediate = 75
	}
	if config.CompletionPointsAdvanced <= 0 {
		config.CompletionPointsAdvanced = 100
	}
	if config.InactivityThresholdWeeks <= 0 {
		config.InactivityThresholdWeeks = 6
	}
	if config.WeeklyTopCount <= 0 {
		config.WeeklyTopCount = 5
	}
	if config.MonthlyTopCount <= 0 {
		config.MonthlyTopCount = 5
	}
	if config.AllTimeTopCount <= 0 {
		config.AllTimeTopCount = 10
	}

	return
}

// PlatformAccountUUID parses the configured platform account id, failing
// loudly when it is missing or malformed so bootstrap can abort.
func (c Config) PlatformAccountUUID() (uuid.UUID, error) {
	raw := strings.TrimSpace(c.PlatformAccountID)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("PLATFORM_ACCOUNT_ID must be configured")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("PLATFORM_ACCOUNT_ID is not a valid uuid: %w", err)
	}
	return id, nil
}
