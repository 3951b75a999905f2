package config

import (
	"time"

	"palmcosmic/pkg/config"
)

// Config stores environment configuration for Almanac.
type Config struct {
	Port            string
	DatabaseURL     string
	RedisURL        string
	AstroEngineURL  string
	CronSecret      string
	AppURL          string
	TargetHour      int
	DefaultTimezone string
	Pacing          time.Duration
	GuardTTL        time.Duration

	// Transactional mail. Template delivery is used when a mailer API
	// key is set, SMTP otherwise.
	MailerAPIKey    string
	MailerAPIURL    string
	MailerTemplate  int
	SenderEmail     string
	SenderName      string
	SMTPHost        string
	SMTPPort        string
	SMTPUsername    string
	SMTPPassword    string
	UnsubscribeBase string
}

// LoadConfig loads the Almanac configuration from environment variables.
func LoadConfig() Config {
	return Config{
		Port:            config.GetEnv("PORT", "18030"),
		DatabaseURL:     config.RequireEnv("DATABASE_URL"),
		RedisURL:        config.GetEnv("REDIS_URL", "redis://localhost:6379"),
		AstroEngineURL:  config.RequireEnv("ASTRO_ENGINE_URL"),
		CronSecret:      config.RequireEnv("CRON_SECRET"),
		AppURL:          config.GetEnv("APP_URL", "https://palmcosmic.app"),
		TargetHour:      config.GetEnvInt("EMAIL_TARGET_HOUR", 9),
		DefaultTimezone: config.GetEnv("DEFAULT_TIMEZONE", "Asia/Kolkata"),
		Pacing:          config.GetEnvDuration("GENERATION_PACING", 500*time.Millisecond),
		GuardTTL:        config.GetEnvDuration("SEND_GUARD_TTL", 48*time.Hour),

		MailerAPIKey:    config.GetEnv("MAILER_API_KEY", ""),
		MailerAPIURL:    config.GetEnv("MAILER_API_URL", "https://api.brevo.com"),
		MailerTemplate:  config.GetEnvInt("MAILER_TEMPLATE_ID", 1),
		SenderEmail:     config.GetEnv("SENDER_EMAIL", "hello@palmcosmic.app"),
		SenderName:      config.GetEnv("SENDER_NAME", "Cosmic Soul"),
		SMTPHost:        config.GetEnv("SMTP_HOST", ""),
		SMTPPort:        config.GetEnv("SMTP_PORT", "587"),
		SMTPUsername:    config.GetEnv("SMTP_USERNAME", ""),
		SMTPPassword:    config.GetEnv("SMTP_PASSWORD", ""),
		UnsubscribeBase: config.GetEnv("UNSUBSCRIBE_URL", ""),
	}
}
