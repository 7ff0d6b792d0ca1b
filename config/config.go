package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once at startup and handed to every component that needs it.
type Config struct {
	Port           string
	AllowedOrigins []string
	CookieSecure   bool
	LogLevel       string

	StoreBackend string
	MongoURI     string
	MongoDB      string

	RedisAddr string
	RedisDB   int

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	LLMProvider  string
	GoogleAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string

	OpenverseAPIURL   string
	GeocodeAPIURL     string
	WeatherAPIURL     string
	HTTPClientTimeout time.Duration
}

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "3000"),
		AllowedOrigins:     splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		CookieSecure:       getEnv("COOKIE_SECURE", "true") != "false",
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		StoreBackend:       getEnv("STORE_BACKEND", StoreMongo),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDB:            getEnv("MONGO_DB", "wanderwise"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		AccessTokenSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    7 * 24 * time.Hour,
		LLMProvider:        getEnv("LLM_PROVIDER", ProviderGemini),
		GoogleAPIKey:       os.Getenv("GOOGLE_API_KEY"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenverseAPIURL:    getEnv("OPENVERSE_API_URL", "https://api.openverse.org/v1/images/"),
		GeocodeAPIURL:      getEnv("GEOCODE_API_URL", "https://nominatim.openstreetmap.org/search"),
		WeatherAPIURL:      getEnv("WEATHER_API_URL", "https://api.open-meteo.com/v1/forecast"),
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB value: %w", err)
	}
	cfg.RedisDB = redisDB

	timeout, err := time.ParseDuration(getEnv("HTTP_CLIENT_TIMEOUT", "45s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_CLIENT_TIMEOUT value: %w", err)
	}
	cfg.HTTPClientTimeout = timeout

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
		return fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must be set")
	}
	switch c.StoreBackend {
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI environment variable is not set")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GoogleAPIKey == "" {
			return fmt.Errorf("GOOGLE_API_KEY environment variable is not set")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
