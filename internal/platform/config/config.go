package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"job_alert_service/internal/domain/model"
)

type Config struct {
	APIPort        string
	Debug          bool
	RequestTimeout time.Duration

	// Loaded from the user config file, see fileDefaults.
	Base        string
	ServiceURI  string
	Creators    []string
	EmailFolder string
	EmailBase   string
	GraphEmail  string
	GraphJob    string

	EmailFrom     string
	EmailTo       string
	JobStatuses   []string
	JobOperations []string
	TemplatePath  string

	SPARQLEndpoint   string
	SPARQLSudo       bool
	SPARQLTimeout    time.Duration
	SPARQLMaxRetries int

	AlertConcurrency int
	DeltaWorkers     int
	DeltaQueueSize   int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	AlertLockTTL  time.Duration

	AdminJWTSecret []byte
}

var fileDefaults = map[string]any{
	"base":         "http://lblod.data.gift",
	"service.uri":  "http://lblod.data.gift/services/job-alert-service",
	"creators":     []string{},
	"email.folder": "http://data.lblod.info/id/mail-folders/2",
	"email.base":   "http://data.lblod.info/id/emails",
	"graph.email":  "http://mu.semte.ch/graphs/system/email",
	"graph.job":    "http://mu.semte.ch/graphs/jobs",
}

// Load reads .env (optional), the environment and the JSON user config file
// named by CONFIG_FILE. Keys missing from the file keep their defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range fileDefaults {
		v.SetDefault(key, value)
	}
	configFile := getEnv("CONFIG_FILE", "/config/config.json")
	if _, err := os.Stat(configFile); err == nil {
		v.SetConfigFile(configFile)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}

	cfg := &Config{
		APIPort:        getEnv("API_PORT", "80"),
		Debug:          getEnvAsBool("DEBUG", false),
		RequestTimeout: time.Duration(getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 300)) * time.Second,

		Base:        v.GetString("base"),
		ServiceURI:  v.GetString("service.uri"),
		Creators:    append(v.GetStringSlice("creators"), getEnvAsList("JOB_CREATORS", "")...),
		EmailFolder: v.GetString("email.folder"),
		EmailBase:   strings.TrimSuffix(v.GetString("email.base"), "/"),
		GraphEmail:  v.GetString("graph.email"),
		GraphJob:    v.GetString("graph.job"),

		EmailFrom:     getEnv("EMAIL_FROM", ""),
		EmailTo:       getEnv("EMAIL_TO", ""),
		JobStatuses:   getEnvAsList("JOB_STATUSES", model.JobStatusFailed),
		JobOperations: getEnvAsList("JOB_OPERATIONS", ""),
		TemplatePath:  getEnv("TEMPLATE_PATH", "/app/template/job-alert.hbs"),

		SPARQLEndpoint:   getEnv("MU_SPARQL_ENDPOINT", "http://database:8890/sparql"),
		SPARQLSudo:       getEnvAsBool("SPARQL_SUDO", true),
		SPARQLTimeout:    time.Duration(getEnvAsInt("SPARQL_TIMEOUT_SECONDS", 60)) * time.Second,
		SPARQLMaxRetries: getEnvAsInt("SPARQL_MAX_RETRIES", 3),

		AlertConcurrency: getEnvAsInt("ALERT_CONCURRENCY", 4),
		DeltaWorkers:     getEnvAsInt("DELTA_WORKERS", 2),
		DeltaQueueSize:   getEnvAsInt("DELTA_QUEUE_SIZE", 1000),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		AlertLockTTL:  time.Duration(getEnvAsInt("ALERT_LOCK_TTL_SECONDS", 60)) * time.Second,

		AdminJWTSecret: []byte(getEnv("ADMIN_JWT_SECRET", "")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set and have valid values.
func (c *Config) Validate() error {
	if c.EmailFrom == "" {
		return errors.New("EMAIL_FROM is required")
	}
	if c.EmailTo == "" {
		return errors.New("EMAIL_TO is required")
	}
	if len(c.JobStatuses) == 0 {
		return errors.New("JOB_STATUSES must list at least one status")
	}
	if c.SPARQLEndpoint == "" {
		return errors.New("MU_SPARQL_ENDPOINT cannot be empty")
	}
	if c.GraphEmail == "" || c.GraphJob == "" {
		return errors.New("graph.email and graph.job cannot be empty")
	}
	if c.AlertConcurrency < 1 || c.DeltaWorkers < 1 || c.DeltaQueueSize < 1 {
		return errors.New("ALERT_CONCURRENCY, DELTA_WORKERS and DELTA_QUEUE_SIZE must be positive")
	}
	return nil
}

// AlertLockEnabled reports whether alert creation is guarded by a Redis lock.
func (c *Config) AlertLockEnabled() bool {
	return c.RedisAddr != ""
}

// AdminAuthEnabled reports whether the admin routes require a JWT.
func (c *Config) AdminAuthEnabled() bool {
	return len(c.AdminJWTSecret) > 0
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma-separated variable, dropping blank entries.
func getEnvAsList(key, fallback string) []string {
	var list []string
	for _, s := range strings.Split(getEnv(key, fallback), ",") {
		if s = strings.TrimSpace(s); s != "" {
			list = append(list, s)
		}
	}
	return list
}
