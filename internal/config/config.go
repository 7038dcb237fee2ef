package config

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"21829"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// SettingsDir holds settings.json and the managed assets directory.
	SettingsDir string `env:"SETTINGS_DIR" default:"data"`
	// ResourcesDir holds the bundled default tier assets.
	ResourcesDir string `env:"RESOURCES_DIR" default:"resources"`
	// OverlaysDir optionally holds the built overlay bundles for static serving.
	OverlaysDir string `env:"OVERLAYS_DIR"`

	DefaultImagePath string `env:"DEFAULT_IMAGE_PATH"`
	DefaultSoundPath string `env:"DEFAULT_SOUND_PATH"`

	YoutubeBaseURL string `env:"YOUTUBE_BASE_URL" default:"https://www.youtube.com"`

	EcpayPaymentBaseURL      string `env:"ECPAY_PAYMENT_BASE_URL" default:"https://payment.ecpay.com.tw"`
	EcpayPaymentStageBaseURL string `env:"ECPAY_PAYMENT_STAGE_BASE_URL" default:"https://payment-stage.ecpay.com.tw"`
	EcpaySignalRBaseURL      string `env:"ECPAY_SIGNALR_BASE_URL" default:"https://signalr.ecpay.com.tw"`
	EcpaySignalRStageBaseURL string `env:"ECPAY_SIGNALR_STAGE_BASE_URL" default:"https://signalr-stage.ecpay.com.tw"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.DefaultImagePath == "" {
		cfg.DefaultImagePath = cfg.ResourcesDir + "/image.gif"
	}
	if cfg.DefaultSoundPath == "" {
		cfg.DefaultSoundPath = cfg.ResourcesDir + "/sound.mp3"
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", cfg.Port)
	}
	if cfg.SettingsDir == "" {
		return fmt.Errorf("SETTINGS_DIR is required")
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be \"text\" or \"json\", got %q", cfg.LogFormat)
	}
	return nil
}
