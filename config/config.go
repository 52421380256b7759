package config

import (
	"os"
	"strconv"

	"ridehail/internal/mylogger"
)

type Config struct {
	DB       *DBconfig
	RabbitMq *RabbitMqconfig
	App      *Appconfig
	Srv      *Serviceconfig
}

type DBconfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type RabbitMqconfig struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
}

type Appconfig struct {
	JwtSecret string
	LogLevel  string
}

type Serviceconfig struct {
	RideServicePort  string
	AuthServicePort  string
	AdminServicePort string
}

// New reads configuration from the environment, logging every key that
// falls back to its default.
func New(log mylogger.Logger) *Config {
	getEnv := func(key, def string) string {
		val := os.Getenv(key)
		if val == "" {
			log.Warn("using default value", "key", key, "default", def)
			return def
		}
		return val
	}

	getEnvInt := func(key string, def int) int {
		valStr := os.Getenv(key)
		if valStr == "" {
			log.Warn("using default value", "key", key, "default", def)
			return def
		}
		val, err := strconv.Atoi(valStr)
		if err != nil {
			log.Warn("cannot parse as int, using default value", "key", key, "default", def)
			return def
		}
		return val
	}

	return &Config{
		DB: &DBconfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "ridehail_user"),
			Password: getEnv("DB_PASSWORD", "ridehail_pass"),
			Database: getEnv("DB_NAME", "ridehail_db"),
		},
		RabbitMq: &RabbitMqconfig{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnvInt("RABBITMQ_PORT", 5672),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:    getEnv("RABBITMQ_VHOST", ""),
		},
		App: &Appconfig{
			JwtSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
			LogLevel:  getEnv("LOG_LEVEL", mylogger.LevelInfo),
		},
		Srv: &Serviceconfig{
			RideServicePort:  getEnv("RIDE_SERVICE_PORT", "3000"),
			AuthServicePort:  getEnv("AUTH_SERVICE_PORT", "3001"),
			AdminServicePort: getEnv("ADMIN_SERVICE_PORT", "3004"),
		},
	}
}
