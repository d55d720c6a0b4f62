package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all runtime configuration.
type Config struct {
	Environment string
	Port        string

	// Database
	UseLocalDB  bool
	PostgresDSN string

	// JWT
	JWTSecret string

	// Outbound notifications (optional; empty disables the webhook notifier)
	NotifyWebhookURL string

	// CORS
	AllowedOrigins []string

	Debug bool
}

// LoadConfig reads configuration from the environment, layering in the
// matching .env file first.
func LoadConfig() *Config {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	switch env {
	case "production":
		loadEnvFile(".env.production")
	case "development":
		loadEnvFile(".env.local")
	default:
		loadEnvFile(".env.local")
	}

	config := &Config{
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		Port:        getEnvWithDefault("PORT", "3000"),
		UseLocalDB:  getEnvBool("USE_LOCAL_DB", true),
		JWTSecret:   getEnvWithDefault("JWT_SECRET", "your-secret-key-change-in-production"),
		Debug:       getEnvBool("DEBUG", false),
	}

	// Trim whitespace to avoid trailing spaces/newlines from env sources
	config.PostgresDSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	config.NotifyWebhookURL = strings.TrimSpace(os.Getenv("NOTIFY_WEBHOOK_URL"))

	allowedOrigins := getEnvWithDefault("ALLOWED_ORIGINS", "*")
	if allowedOrigins == "*" {
		config.AllowedOrigins = []string{"*"}
	} else {
		config.AllowedOrigins = strings.Split(allowedOrigins, ",")
	}

	if config.Environment == "production" {
		if config.PostgresDSN != "" {
			config.UseLocalDB = false
		} else {
			fmt.Println("⚠️  WARNING: Production environment using in-memory database. Please configure POSTGRES_DSN")
		}
		config.Debug = false
	}

	return config
}

// Cached config (initialized once per cold start)
var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config.
// On serverless (Vercel), it initializes once per cold start and
// reuses it across warm invocations, avoiding per-request parsing.
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = LoadConfig()
	})
	return cachedConfig
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.JWTSecret == "" || c.JWTSecret == "your-secret-key-change-in-production" {
		if c.Environment == "production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Environment == "development" {
			fmt.Println("⚠️  Using default JWT secret (not recommended for production)")
		}
	}

	if !c.UseLocalDB && c.PostgresDSN == "" {
		return fmt.Errorf("database configuration incomplete: set POSTGRES_DSN or USE_LOCAL_DB=true")
	}

	return nil
}

// IsProduction reports whether this is the production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment reports whether this is the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// loadEnvFile loads KEY=VALUE pairs from a .env file into the environment.
// Existing variables win; missing files are silently skipped.
func loadEnvFile(filename string) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return
	}

	file, err := os.Open(filename)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if len(value) >= 2 {
			if (strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"")) ||
				(strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'")) {
				value = value[1 : len(value)-1]
			}
		}

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
