package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Store    StoreConfig
	Engine   EngineConfig
	Workflow WorkflowConfig
	Stats    StatsConfig
	Export   ExportConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StoreConfig selects the assignment store backend.
type StoreConfig struct {
	Driver     string
	SQLitePath string
}

// EngineConfig tunes candidate ranking and helper pairing.
type EngineConfig struct {
	WeightTeaching         float64
	WeightStudent          float64
	WeightHelper           float64
	CooldownWeeks          int
	CooldownPenalty        float64
	NeverParticipatedBonus float64
	PreferFamily           bool
	PreferSameSex          bool
}

// WorkflowConfig controls promotion of completed assignments into history.
type WorkflowConfig struct {
	AutoPromote         bool
	PromotionWorkers    int
	PromotionRetries    int
	PromotionRetryDelay time.Duration
}

// StatsConfig governs the workload statistics cache.
type StatsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ExportConfig shapes printable week sheets.
type ExportConfig struct {
	CSVDelimiter rune
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Store = StoreConfig{
		Driver:     strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
		SQLitePath: v.GetString("SQLITE_PATH"),
	}

	cfg.Engine = EngineConfig{
		WeightTeaching:         v.GetFloat64("ENGINE_WEIGHT_TEACHING"),
		WeightStudent:          v.GetFloat64("ENGINE_WEIGHT_STUDENT"),
		WeightHelper:           v.GetFloat64("ENGINE_WEIGHT_HELPER"),
		CooldownWeeks:          v.GetInt("ENGINE_COOLDOWN_WEEKS"),
		CooldownPenalty:        v.GetFloat64("ENGINE_COOLDOWN_PENALTY"),
		NeverParticipatedBonus: v.GetFloat64("ENGINE_NEVER_PARTICIPATED_BONUS"),
		PreferFamily:           v.GetBool("ENGINE_PREFER_FAMILY"),
		PreferSameSex:          v.GetBool("ENGINE_PREFER_SAME_SEX"),
	}

	cfg.Workflow = WorkflowConfig{
		AutoPromote:         v.GetBool("WORKFLOW_AUTO_PROMOTE"),
		PromotionWorkers:    v.GetInt("WORKFLOW_PROMOTION_WORKERS"),
		PromotionRetries:    v.GetInt("WORKFLOW_PROMOTION_RETRIES"),
		PromotionRetryDelay: parseDuration(v.GetString("WORKFLOW_PROMOTION_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Stats = StatsConfig{
		CacheEnabled: v.GetBool("ENABLE_STATS_CACHE"),
		CacheTTL:     parseDuration(v.GetString("STATS_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Export = ExportConfig{CSVDelimiter: firstRune(v.GetString("EXPORT_CSV_DELIMITER"), ',')}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "rvm_assignments")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "rvm-assignment-api")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("SQLITE_PATH", "./assignments.db")

	v.SetDefault("ENGINE_WEIGHT_TEACHING", 1.0)
	v.SetDefault("ENGINE_WEIGHT_STUDENT", 0.5)
	v.SetDefault("ENGINE_WEIGHT_HELPER", 0.1)
	v.SetDefault("ENGINE_COOLDOWN_WEEKS", 6)
	v.SetDefault("ENGINE_COOLDOWN_PENALTY", 500.0)
	v.SetDefault("ENGINE_NEVER_PARTICIPATED_BONUS", 1000.0)
	v.SetDefault("ENGINE_PREFER_FAMILY", true)
	v.SetDefault("ENGINE_PREFER_SAME_SEX", true)

	v.SetDefault("WORKFLOW_AUTO_PROMOTE", false)
	v.SetDefault("WORKFLOW_PROMOTION_WORKERS", 1)
	v.SetDefault("WORKFLOW_PROMOTION_RETRIES", 3)
	v.SetDefault("WORKFLOW_PROMOTION_RETRY_DELAY", "2s")

	v.SetDefault("ENABLE_STATS_CACHE", false)
	v.SetDefault("STATS_CACHE_TTL", "10m")

	v.SetDefault("EXPORT_CSV_DELIMITER", ",")
}

// isMissingFile treats an absent .env as "use env and defaults".
func isMissingFile(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func firstRune(raw string, fallback rune) rune {
	for _, r := range strings.TrimSpace(raw) {
		return r
	}
	return fallback
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
