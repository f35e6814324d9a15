package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	for _, key := range []string{
		"SERVER_PORT", "PORT", "PLATFORM_FEE_PERCENT", "CASHOUT_FEE_PERCENT",
		"MIN_CASHOUT_CREDITS", "CREDIT_TO_FIAT_RATE", "ONBOARDING_BONUS_CREDITS",
		"INACTIVITY_THRESHOLD_WEEKS", "WEEKLY_TOP_COUNT",
		"COMPLETION_POINTS_BEGINNER", "COMPLETION_POINTS_INTERMEDIATE", "COMPLETION_POINTS_ADVANCED",
	} {
		unsetEnvWithCleanup(t, key)
	}

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.PlatformFeePercent != 2.0 {
		t.Fatalf("expected default platform fee 2%%, got %f", cfg.PlatformFeePercent)
	}
	if cfg.CashoutFeePercent != 5.0 {
		t.Fatalf("expected default cashout fee 5%%, got %f", cfg.CashoutFeePercent)
	}
	if cfg.MinCashoutCredits != 100 {
		t.Fatalf("expected default min cashout 100, got %d", cfg.MinCashoutCredits)
	}
	if cfg.CreditToFiatRate != 0.01 {
		t.Fatalf("expected default credit-to-fiat rate 0.01, got %f", cfg.CreditToFiatRate)
	}
	if cfg.OnboardingBonusCredits != 50 {
		t.Fatalf("expected default onboarding bonus 50, got %d", cfg.OnboardingBonusCredits)
	}
	if cfg.InactivityThresholdWeeks != 6 {
		t.Fatalf("expected default inactivity threshold 6 weeks, got %d", cfg.InactivityThresholdWeeks)
	}
	if cfg.WeeklyTopCount != 5 {
		t.Fatalf("expected default weekly top count 5, got %d", cfg.WeeklyTopCount)
	}
	if cfg.CompletionPointsBeginner != 50 || cfg.CompletionPointsIntermediate != 75 || cfg.CompletionPointsAdvanced != 100 {
		t.Fatalf("expected default completion points 50/75/100, got %d/%d/%d",
			cfg.CompletionPointsBeginner, cfg.CompletionPointsIntermediate, cfg.CompletionPointsAdvanced)
	}
}

func TestLoadConfig_ClampsOutOfRangePolicy(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "PLATFORM_FEE_PERCENT", "-3")
	setEnvWithCleanup(t, "CASHOUT_FEE_PERCENT", "150")
	setEnvWithCleanup(t, "CREDIT_TO_FIAT_RATE", "0")
	setEnvWithCleanup(t, "MIN_CASHOUT_CREDITS", "-50")
	setEnvWithCleanup(t, "COMPLETION_POINTS_BEGINNER", "-10")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PlatformFeePercent != 0 {
		t.Fatalf("expected negative platform fee coerced to 0, got %f", cfg.PlatformFeePercent)
	}
	if cfg.CashoutFeePercent != 100 {
		t.Fatalf("expected cashout fee capped at 100, got %f", cfg.CashoutFeePercent)
	}
	if cfg.CreditToFiatRate != 0.01 {
		t.Fatalf("expected non-positive rate replaced with default, got %f", cfg.CreditToFiatRate)
	}
	if cfg.MinCashoutCredits != 0 {
		t.Fatalf("expected negative min cashout coerced to 0, got %d", cfg.MinCashoutCredits)
	}
	if cfg.CompletionPointsBeginner != 50 {
		t.Fatalf("expected non-positive completion points replaced with default, got %d", cfg.CompletionPointsBeginner)
	}
}

func TestLoadConfig_PortEnvOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8080")
	setEnvWithCleanup(t, "PORT", "9000")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9000" {
		t.Fatalf("expected PORT to win, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_InternalAPIKeyAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "INTERNAL_API_KEY")
	setEnvWithCleanup(t, "ECONOMY_SERVICE_INTERNAL_API_KEY", "alias-only-key")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.InternalAPIKey != "alias-only-key" {
		t.Fatalf("expected InternalAPIKey from alias env var, got %q", cfg.InternalAPIKey)
	}
}

func TestPlatformAccountUUID(t *testing.T) {
	cfg := Config{PlatformAccountID: "not-a-uuid"}
	if _, err := cfg.PlatformAccountUUID(); err == nil {
		t.Fatal("expected error for malformed platform account id")
	}

	cfg = Config{}
	if _, err := cfg.PlatformAccountUUID(); err == nil {
		t.Fatal("expected error for missing platform account id")
	}

	cfg = Config{PlatformAccountID: "5f0c2f5e-8f4c-4f7a-9a5a-0b1c2d3e4f50"}
	id, err := cfg.PlatformAccountUUID()
	if err != nil {
		t.Fatalf("PlatformAccountUUID returned error: %v", err)
	}
	if id.String() != "5f0c2f5e-8f4c-4f7a-9a5a-0b1c2d3e4f50" {
		t.Fatalf("unexpected uuid %s", id)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			os.Setenv(key, prev)
		}
	})
}
