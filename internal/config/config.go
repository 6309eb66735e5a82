package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Flow         FlowConfig
	Classifier   ClassifierConfig
	RateLimit    RateLimitConfig
	SLAMonitor   SLAMonitorConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values for the optional journal sink.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines operator authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	OperatorUsername      string
	OperatorPasswordHash  string
}

// NotificationConfig holds notification endpoints.
type NotificationConfig struct {
	WebhookURL            string
	WebhookTimeoutSeconds int
}

// Thresholds are the emotion score cut-offs the flow rules compare against.
type Thresholds struct {
	Angry        float64
	Impatient    float64
	Fearful      float64
	Neutral      float64
	Disappointed float64
	Positive     float64
	Happy        float64
}

// SLAMinutes maps each priority class to its response window.
type SLAMinutes struct {
	P0 int
	P1 int
	P2 int
	P3 int
}

// FlowConfig tunes the conversation rules.
type FlowConfig struct {
	Thresholds        Thresholds
	SLA               SLAMinutes
	Timezone          string
	BusinessStartHour int
	BusinessEndHour   int
	LexiconFile       string
	MenuBillingTokens []string
	MenuOutageTokens  []string
	AgentOutageTop    string
	AgentBillingTop   string
	AgentCSREmergency string
}

// ClassifierConfig points at the remote sentiment endpoint. An empty URL
// selects the local keyword classifier.
type ClassifierConfig struct {
	URL            string
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// RateLimitConfig bounds chat requests per session.
type RateLimitConfig struct {
	WindowSeconds int
	MaxRequests   int
}

// SLAMonitorConfig schedules the SLA breach sweep.
type SLAMonitorConfig struct {
	Enabled bool
	Spec    string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-router"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			OperatorUsername:      getEnv("AUTH_OPERATOR_USERNAME", "operator"),
			OperatorPasswordHash:  os.Getenv("AUTH_OPERATOR_PASSWORD_HASH"),
		},
		Notification: NotificationConfig{
			WebhookURL:            getEnv("NOTIFY_WEBHOOK_URL", ""),
			WebhookTimeoutSeconds: getEnvAsInt("NOTIFY_WEBHOOK_TIMEOUT_SECONDS", 5),
		},
		Flow: DefaultFlowConfig(),
		Classifier: ClassifierConfig{
			URL:            os.Getenv("CLASSIFIER_URL"),
			APIKey:         os.Getenv("CLASSIFIER_API_KEY"),
			Model:          getEnv("CLASSIFIER_MODEL", "models/gemini-2.5-flash"),
			TimeoutSeconds: getEnvAsInt("CLASSIFIER_TIMEOUT_SECONDS", 10),
		},
		RateLimit: RateLimitConfig{
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			MaxRequests:   getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 20),
		},
		SLAMonitor: SLAMonitorConfig{
			Enabled: getEnvAsBool("SLA_MONITOR_ENABLED", true),
			Spec:    getEnv("SLA_MONITOR_SPEC", "@every 1m"),
		},
	}

	flow := &cfg.Flow
	flow.Thresholds.Angry = getEnvAsFloat("THRESHOLD_ANGRY", flow.Thresholds.Angry)
	flow.Thresholds.Impatient = getEnvAsFloat("THRESHOLD_IMPATIENT", flow.Thresholds.Impatient)
	flow.Thresholds.Fearful = getEnvAsFloat("THRESHOLD_FEARFUL", flow.Thresholds.Fearful)
	flow.Thresholds.Neutral = getEnvAsFloat("THRESHOLD_NEUTRAL", flow.Thresholds.Neutral)
	flow.Thresholds.Disappointed = getEnvAsFloat("THRESHOLD_DISAPPOINTED", flow.Thresholds.Disappointed)
	flow.Thresholds.Positive = getEnvAsFloat("THRESHOLD_POSITIVE", flow.Thresholds.Positive)
	flow.Thresholds.Happy = getEnvAsFloat("THRESHOLD_HAPPY", flow.Thresholds.Happy)
	flow.Timezone = getEnv("BUSINESS_TIMEZONE", flow.Timezone)
	flow.BusinessStartHour = getEnvAsInt("BUSINESS_START_HOUR", flow.BusinessStartHour)
	flow.BusinessEndHour = getEnvAsInt("BUSINESS_END_HOUR", flow.BusinessEndHour)
	flow.LexiconFile = os.Getenv("FLOW_LEXICON_FILE")

	if flow.BusinessStartHour >= flow.BusinessEndHour {
		return nil, fmt.Errorf("invalid business hours: start %d must be before end %d", flow.BusinessStartHour, flow.BusinessEndHour)
	}

	return cfg, nil
}

// DefaultFlowConfig returns the stock thresholds, SLA table and business hours.
func DefaultFlowConfig() FlowConfig {
	return FlowConfig{
		Thresholds: Thresholds{
			Angry:        0.80,
			Impatient:    0.70,
			Fearful:      0.70,
			Neutral:      0.60,
			Disappointed: 0.70,
			Positive:     0.65,
			Happy:        0.65,
		},
		SLA: SLAMinutes{
			P0: 2,
			P1: 15,
			P2: 60 * 24,
			P3: 60 * 24 * 3,
		},
		Timezone:          "America/New_York",
		BusinessStartHour: 9,
		BusinessEndHour:   17,
		MenuBillingTokens: []string{"billing"},
		MenuOutageTokens:  []string{"outage assist", "outage", "power", "power outage"},
		AgentOutageTop:    "agent_outage_csat_top",
		AgentBillingTop:   "agent_billing_csat_top",
		AgentCSREmergency: "agent_csr_emergency",
	}
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Window returns the rate limit window.
func (r RateLimitConfig) Window() time.Duration {
	if r.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(r.WindowSeconds) * time.Second
}

// Timeout returns the classifier call timeout.
func (c ClassifierConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
