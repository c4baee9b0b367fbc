// Package config loads service configuration from environment variables.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting the service reads at startup.
type Config struct {
	Port          string `env:"PORT" envDefault:"8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	JWTSecret     string `env:"JWT_SECRET" envDefault:"dev-only-secret"`

	Database Database
	Razorpay Razorpay
	SMTP     SMTP

	MailQueueSize int `env:"MAIL_QUEUE_SIZE" envDefault:"256"`
	MailWorkers   int `env:"MAIL_WORKERS" envDefault:"2"`
}

// Database holds PostgreSQL connection settings.
type Database struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string `env:"DB_NAME" envDefault:"registration"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// DSN builds a libpq-compatible connection string.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Razorpay holds gateway API credentials. KeySecret doubles as the HMAC
// secret for checkout signature verification.
type Razorpay struct {
	KeyID     string `env:"RAZORPAY_KEY_ID"`
	KeySecret string `env:"RAZORPAY_KEY_SECRET"`
}

// SMTP holds ticket-email delivery settings.
type SMTP struct {
	Host     string `env:"SMTP_HOST" envDefault:"localhost"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"tickets@localhost"`
}

// Load reads a .env file if present, then parses the environment.
func Load() (*Config, error) {
	// Missing .env is fine outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
