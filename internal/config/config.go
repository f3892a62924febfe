package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`
	JWTSecret          string `envconfig:"JWT_SECRET" required:"true"`

	// Stripe settings
	StripeSecretKey      string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripeWebhookSecret  string `envconfig:"STRIPE_WEBHOOK_SECRET" default:""`
	StripeCreatorPriceID string `envconfig:"STRIPE_CREATOR_PRICE_ID" required:"true"`
	StripeProPriceID     string `envconfig:"STRIPE_PRO_PRICE_ID" required:"true"`
	CheckoutSuccessURL   string `envconfig:"CHECKOUT_SUCCESS_URL" required:"true"`
	CheckoutCancelURL    string `envconfig:"CHECKOUT_CANCEL_URL" required:"true"`

	// Generation engine settings
	GenerationWebhookURL string `envconfig:"GENERATION_WEBHOOK_URL" required:"true"`
	EngineWebhookToken   string `envconfig:"ENGINE_WEBHOOK_TOKEN" default:""`

	// Submission watcher settings
	WatchIntervalSec int `envconfig:"WATCH_INTERVAL_SEC" default:"5"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
