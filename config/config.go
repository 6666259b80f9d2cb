package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App   AppConfig
	DB    DBConfig
	Redis RedisConfig
	JWT   JWTConfig
	Slot  SlotConfig
	Admin AdminConfig
}

type AppConfig struct {
	Port     string
	Env      string
	LogLevel string
	Timezone string
	Location *time.Location

	// CORSOrigin is sent as Access-Control-Allow-Origin.
	CORSOrigin string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// URL returns the DSN in URL form, as expected by the migration driver.
func (c DBConfig) URL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%s/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// SlotConfig controls the short-lived Redis lock taken while a booking is written.
type SlotConfig struct {
	LockTTL time.Duration
}

// AdminConfig is the bootstrap administrator created by the seed command.
type AdminConfig struct {
	ExternalID string
	Email      string
	Password   string
	FirstName  string
	LastName   string
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_TIMEZONE", "America/Guayaquil")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGIN", "*")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SLOT_LOCK_TTL", "5s")
	v.SetDefault("ADMIN_FIRST_NAME", "Administrador")
	v.SetDefault("ADMIN_LAST_NAME", "Principal")

	// A missing .env is fine, the environment alone is enough.
	_ = v.ReadInConfig()

	accessExpiry, err := time.ParseDuration(v.GetString("JWT_ACCESS_EXPIRY"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	refreshExpiry, err := time.ParseDuration(v.GetString("JWT_REFRESH_EXPIRY"))
	if err != nil {
		refreshExpiry = 7 * 24 * time.Hour
	}

	lockTTL, err := time.ParseDuration(v.GetString("SLOT_LOCK_TTL"))
	if err != nil || lockTTL <= 0 {
		lockTTL = 5 * time.Second
	}

	timezone := v.GetString("APP_TIMEZONE")
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", timezone, err)
	}

	config := &Config{
		App: AppConfig{
			Port:     v.GetString("APP_PORT"),
			Env:      v.GetString("APP_ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
			Timezone: timezone,
			Location: location,

			CORSOrigin: v.GetString("CORS_ALLOWED_ORIGIN"),
		},
		DB: DBConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        v.GetString("JWT_SECRET"),
			AccessExpiry:  accessExpiry,
			RefreshExpiry: refreshExpiry,
		},
		Slot: SlotConfig{
			LockTTL: lockTTL,
		},
		Admin: AdminConfig{
			ExternalID: v.GetString("ADMIN_EXTERNAL_ID"),
			Email:      v.GetString("ADMIN_EMAIL"),
			Password:   v.GetString("ADMIN_PASSWORD"),
			FirstName:  v.GetString("ADMIN_FIRST_NAME"),
			LastName:   v.GetString("ADMIN_LAST_NAME"),
		},
	}

	if config.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return config, nil
}
