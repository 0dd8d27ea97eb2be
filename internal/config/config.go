package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	DatabaseURL         string // postgres URL (Supabase pooler) or a sqlite path for local runs
	RedisURL            string
	SupabaseURL         string // used for storage sign URLs and public URLs
	SupabaseSecretKey   string // must be service_role key, not anon key
	SupabaseJWTSecret   string // HS256 secret that signs user access tokens
	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string
	RequestTimeout      time.Duration
	IdempotencyTTL      time.Duration
	KafkaBrokers        []string
	KafkaListingTopic   string
	RelayInterval       time.Duration
	BrevoAPIKey         string
	MailFrom            string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("REQUEST_TIMEOUT", "10s")
	viper.SetDefault("IDEMPOTENCY_TTL", "24h")
	viper.SetDefault("KAFKA_LISTING_TOPIC", "diasporan.listing-events")
	viper.SetDefault("RELAY_INTERVAL", "5s")
	viper.SetDefault("MAIL_FROM", "noreply@diasporan.app")

	dbURL := viper.GetString("DATABASE_URL")
	if dbURL == "" {
		dbURL = "diasporan.db"
	}

	return &Config{
		Env:                 viper.GetString("APP_ENV"),
		Port:                viper.GetString("PORT"),
		LogLevel:            viper.GetString("LOG_LEVEL"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		SupabaseURL:         viper.GetString("SUPABASE_URL"),
		SupabaseSecretKey:   viper.GetString("SUPABASE_SECRET_KEY"),
		SupabaseJWTSecret:   viper.GetString("SUPABASE_JWT_SECRET"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		RequestTimeout:      viper.GetDuration("REQUEST_TIMEOUT"),
		IdempotencyTTL:      viper.GetDuration("IDEMPOTENCY_TTL"),
		KafkaBrokers:        splitList(viper.GetString("KAFKA_BROKERS")),
		KafkaListingTopic:   viper.GetString("KAFKA_LISTING_TOPIC"),
		RelayInterval:       viper.GetDuration("RELAY_INTERVAL"),
		BrevoAPIKey:         viper.GetString("BREVO_API_KEY"),
		MailFrom:            viper.GetString("MAIL_FROM"),
	}, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
