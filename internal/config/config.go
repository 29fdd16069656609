package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	ServerPort       string
	BaseURL          string
	FrontendURL      string
	EnableHSTS       bool
	OIDCProvider     string
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	WorkerDebugMode  bool
	ServerDebugMode  bool
	LogFormat        string
	OTELEnabled      bool
	OTELEndpoint     string
	OTELSampleRatio  float64
	OTELInsecure     bool
	RequestTimeout   time.Duration
	DefaultRateLimit string

	AI        AIConfig
	Quotas    QuotaConfig
	Scheduler SchedulerConfig
}

// AIConfig selects and configures the generative provider
type AIConfig struct {
	Provider     string // openai or anthropic
	Model        string
	BaseURL      string
	OpenAIKey    string
	AnthropicKey string
	Timeout      time.Duration
}

// APIKey returns the key for the selected provider
func (c AIConfig) APIKey() string {
	if c.Provider == AIProviderAnthropic {
		return c.AnthropicKey
	}
	return c.OpenAIKey
}

// QuotaConfig holds per-user daily limits
type QuotaConfig struct {
	RecommendationsPerDay int
	ChatTurnsPerDay       int
	TagExtractionsPerDay  int
}

// SchedulerConfig controls weekly recommendation planning
type SchedulerConfig struct {
	Schedule       string
	ActivityWindow time.Duration
}

const (
	AIProviderOpenAI    = "openai"
	AIProviderAnthropic = "anthropic"

	// ConfigFileEnv names an optional YAML file of KEY: value pairs read before the environment
	ConfigFileEnv = "CONFIG_FILE"
)

// Load loads configuration from the environment, layered over CONFIG_FILE when set
func Load() (*Config, error) {
	src := source{lookup: os.LookupEnv}
	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		file, err := readOverlay(path)
		if err != nil {
			return nil, err
		}
		src.file = file
	}
	return load(src)
}

func load(src source) (*Config, error) {
	cfg := &Config{
		DatabaseURL:      src.get("DATABASE_URL", ""),
		ServerPort:       src.get("SERVER_PORT", "8080"),
		BaseURL:          src.get("BASE_URL", "http://localhost:8080"),
		FrontendURL:      src.get("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:       src.getBool("ENABLE_HSTS", false),
		OIDCProvider:     src.get("OIDC_PROVIDER", "cognito"),
		RedisURL:         src.get("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      src.get("RABBITMQ_URL", ""),
		RabbitMQPrefetch: src.getInt("RABBITMQ_PREFETCH", 1),
		WorkerDebugMode:  src.getBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  src.getBool("SERVER_DEBUG_MODE", false),
		LogFormat:        src.get("LOG_FORMAT", "json"),
		OTELEnabled:      src.getBool("OTEL_ENABLED", false),
		OTELEndpoint:     src.get("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELSampleRatio:  src.getFloat("OTEL_SAMPLE_RATIO", 1),
		OTELInsecure:     src.getBool("OTEL_INSECURE", false),
		RequestTimeout:   src.getDuration("REQUEST_TIMEOUT", 2*time.Minute),
		DefaultRateLimit: src.get("RATE_LIMIT_DEFAULT", "10-S"),
		AI: AIConfig{
			Provider:     strings.ToLower(src.get("AI_PROVIDER", AIProviderOpenAI)),
			Model:        src.get("AI_MODEL", ""),
			BaseURL:      src.get("AI_BASE_URL", ""),
			OpenAIKey:    src.get("OPENAI_API_KEY", ""),
			AnthropicKey: src.get("ANTHROPIC_API_KEY", ""),
			Timeout:      src.getDuration("AI_TIMEOUT", 30*time.Second),
		},
		Quotas: QuotaConfig{
			RecommendationsPerDay: src.getInt("QUOTA_RECOMMENDATIONS_PER_DAY", 3),
			ChatTurnsPerDay:       src.getInt("QUOTA_CHAT_TURNS_PER_DAY", 50),
			TagExtractionsPerDay:  src.getInt("QUOTA_TAG_EXTRACTIONS_PER_DAY", 50),
		},
		Scheduler: SchedulerConfig{
			Schedule:       src.get("RECOMMENDATION_SCHEDULE", "0 6 * * 1"),
			ActivityWindow: src.getDuration("RECOMMENDATION_ACTIVITY_WINDOW", 14*24*time.Hour),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for job queueing (AI features require RabbitMQ)")
	}

	switch cfg.AI.Provider {
	case AIProviderOpenAI, AIProviderAnthropic:
	default:
		return nil, fmt.Errorf("AI_PROVIDER must be %q or %q, got %q", AIProviderOpenAI, AIProviderAnthropic, cfg.AI.Provider)
	}

	return cfg, nil
}

// readOverlay parses a flat YAML mapping such as `DATABASE_URL: postgres://...`
func readOverlay(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFileEnv, err)
	}
	raw := make(map[string]any)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ConfigFileEnv, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		out[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return out, nil
}

// source resolves a key from the environment first, then the overlay file
type source struct {
	lookup func(string) (string, bool)
	file   map[string]string
}

func (s source) get(key, defaultValue string) string {
	if s.lookup != nil {
		if value, ok := s.lookup(key); ok && value != "" {
			return value
		}
	}
	if value, ok := s.file[key]; ok && value != "" {
		return value
	}
	return defaultValue
}

func (s source) getBool(key string, defaultValue bool) bool {
	if value := s.get(key, ""); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func (s source) getInt(key string, defaultValue int) int {
	if value := s.get(key, ""); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (s source) getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := s.get(key, ""); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func (s source) getFloat(key string, defaultValue float64) float64 {
	if value := s.get(key, ""); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
