package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const defaultLookbackDays = 28

type Config struct {
	// Slack
	SlackToken      string
	ChannelName     string
	ChanNamesAreIDs bool

	// Pairing
	LookbackDays       int
	MagicalText        string
	PairsArePublic     bool
	PrivateChannelName string

	// Daemon mode (empty RunSchedule means run once and exit)
	RunSchedule string
	WebBind     string
	AdminToken  string
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		SlackToken:         os.Getenv("SLACK_API_TOKEN"),
		ChannelName:        os.Getenv("CHANNEL_NAME"),
		ChanNamesAreIDs:    getEnvBool("CHAN_NAMES_ARE_IDS", false),
		MagicalText:        os.Getenv("MAGICAL_TEXT"),
		PairsArePublic:     getEnvBool("PAIRS_ARE_PUBLIC", false),
		PrivateChannelName: getEnvDefault("PRIVATE_CHANNEL_NAME_FOR_MEMORY", "randomcoffebotprivatechannelformemory"),
		RunSchedule:        os.Getenv("RUN_SCHEDULE"),
		WebBind:            getEnvDefault("WEB_BIND", "0.0.0.0:3000"),
		AdminToken:         os.Getenv("ADMIN_TOKEN"),
	}

	if cfg.SlackToken == "" {
		return nil, fmt.Errorf("SLACK_API_TOKEN is required")
	}
	if cfg.ChannelName == "" {
		return nil, fmt.Errorf("CHANNEL_NAME is required")
	}
	if cfg.MagicalText == "" {
		return nil, fmt.Errorf("MAGICAL_TEXT is required")
	}

	cfg.LookbackDays = defaultLookbackDays
	if v := os.Getenv("LOOKBACK_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 {
			return nil, fmt.Errorf("LOOKBACK_DAYS must be a positive integer, got %q", v)
		}
		cfg.LookbackDays = days
	}

	return cfg, nil
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "true", "t", "yes", "y", "1":
		return true
	}
	return false
}
