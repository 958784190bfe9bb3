package config

import "time"

// APIConfig holds runtime configuration for the tracker API service.
type APIConfig struct {
	Environment   string
	Addr          string
	DatabaseURL   string
	MigrationsDir string

	// SessionSecret signs the session cookie; the cookie value itself is an
	// opaque token resolved against the session store.
	SessionSecret     string
	SessionCookieName string
	SessionTTL        time.Duration

	// A single Redis instance backs both the session store and the rate
	// limiter. Leaving the address empty selects the in-memory fallbacks.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:       GetString("APP_ENV", "development"),
		Addr:              GetString("API_ADDR", ":4000"),
		DatabaseURL:       GetString("DATABASE_URL", "postgres://tracker:tracker@db:5432/tracker?sslmode=disable"),
		MigrationsDir:     GetString("DB_MIGRATIONS_DIR", "./db/migrations"),
		SessionSecret:     GetString("SESSION_SECRET", "supersecuresecret"),
		SessionCookieName: GetString("SESSION_COOKIE_NAME", "tracker_session"),
		SessionTTL:        GetDuration("SESSION_TTL", 24*time.Hour),
		RedisAddr:         GetString("REDIS_ADDR", ""),
		RedisPassword:     GetString("REDIS_PASSWORD", ""),
		RedisDB:           GetInt("REDIS_DB", 0),
	}
}
