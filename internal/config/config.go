package config

import (
	"sync"
	"time"

	"github.com/andresuchdata/autopo-py/forecast-go/internal/pipeline"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Admin       AdminConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Model       ModelConfig
	Calibration pipeline.Settings
	Backtest    BacktestConfig
	Storage     StorageConfig
	LogLevel    string
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type AdminConfig struct {
	Enabled bool
	Port    string
}

type DatabaseConfig struct {
	Driver   string
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled        bool
	RedisURL       string
	RedisHost      string
	RedisPort      string
	RedisPassword  string
	RedisDB        int
	TTLSeconds     int
	DialTimeoutMS  int
	ReadTimeoutMS  int
	WriteTimeoutMS int
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type ModelConfig struct {
	Kind           string
	Endpoint       string
	TimeoutSeconds int
	LogTarget      bool
}

type BacktestConfig struct {
	Schedule  string
	Days      int
	Format    string
	OutputDir string
	Workers   int
}

type StorageConfig struct {
	Sink                string
	S3Endpoint          string
	S3AccessKey         string
	S3SecretKey         string
	S3Bucket            string
	S3Region            string
	S3UseSSL            bool
	S3Prefix            string
	DriveCredentialsKey string
	DriveFolderID       string
}

var (
	once     sync.Once
	instance *Config
)

// Load reads .env and the environment once per process.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()
		instance = FromViper(viper.GetViper())
	})

	return instance
}

// FromViper builds a Config from v after registering defaults and env binding.
func FromViper(v *viper.Viper) *Config {
	setDefaults(v)
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Admin: AdminConfig{
			Enabled: v.GetBool("ADMIN_ENABLED"),
			Port:    v.GetString("ADMIN_PORT"),
		},
		Database: DatabaseConfig{
			Driver:   v.GetString("DB_DRIVER"),
			DSN:      v.GetString("DB_DSN"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			Enabled:        v.GetBool("CACHE_ENABLED"),
			RedisURL:       v.GetString("REDIS_URL"),
			RedisHost:      v.GetString("REDIS_HOST"),
			RedisPort:      v.GetString("REDIS_PORT"),
			RedisPassword:  v.GetString("REDIS_PASSWORD"),
			RedisDB:        v.GetInt("REDIS_DB"),
			TTLSeconds:     v.GetInt("CACHE_TTL_SECONDS"),
			DialTimeoutMS:  v.GetInt("REDIS_DIAL_TIMEOUT_MS"),
			ReadTimeoutMS:  v.GetInt("REDIS_READ_TIMEOUT_MS"),
			WriteTimeoutMS: v.GetInt("REDIS_WRITE_TIMEOUT_MS"),
		},
		Model: ModelConfig{
			Kind:           v.GetString("MODEL_KIND"),
			Endpoint:       v.GetString("MODEL_ENDPOINT"),
			TimeoutSeconds: v.GetInt("MODEL_TIMEOUT_SECONDS"),
			LogTarget:      v.GetBool("MODEL_LOG_TARGET"),
		},
		Calibration: pipeline.Settings{
			CalibrationEnabled: v.GetBool("CALIBRATION_ENABLED"),
			Alpha:              v.GetFloat64("CALIBRATION_ALPHA"),
			MaxRatio:           v.GetFloat64("CALIBRATION_MAX_RATIO"),
			MinRatio:           v.GetFloat64("CALIBRATION_MIN_RATIO"),
			FloorLookbackDays:  v.GetInt("FLOOR_LOOKBACK_DAYS"),
			FloorCoef:          v.GetFloat64("FLOOR_COEF"),
			SafetyDays:         v.GetInt("SAFETY_DAYS"),
			SafetyWindowDays:   v.GetInt("SAFETY_WINDOW_DAYS"),
			BiasClipLower:      v.GetFloat64("BIAS_CLIP_LOWER"),
			BiasClipUpper:      v.GetFloat64("BIAS_CLIP_UPPER"),
			ApplyBias:          v.GetBool("APPLY_BIAS"),
		},
		Backtest: BacktestConfig{
			Schedule:  v.GetString("BACKTEST_SCHEDULE"),
			Days:      v.GetInt("BACKTEST_DAYS"),
			Format:    v.GetString("BACKTEST_FORMAT"),
			OutputDir: v.GetString("BACKTEST_OUTPUT_DIR"),
			Workers:   v.GetInt("BACKTEST_WORKERS"),
		},
		Storage: StorageConfig{
			Sink:                v.GetString("REPORT_SINK"),
			S3Endpoint:          v.GetString("S3_ENDPOINT"),
			S3AccessKey:         v.GetString("S3_ACCESS_KEY"),
			S3SecretKey:         v.GetString("S3_SECRET_KEY"),
			S3Bucket:            v.GetString("S3_BUCKET"),
			S3Region:            v.GetString("S3_REGION"),
			S3UseSSL:            v.GetBool("S3_USE_SSL"),
			S3Prefix:            v.GetString("S3_PREFIX"),
			DriveCredentialsKey: v.GetString("GOOGLE_CREDENTIALS_JSON"),
			DriveFolderID:       v.GetString("DRIVE_FOLDER_ID"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}
}

func setDefaults(v *viper.Viper) {
	defaults := pipeline.DefaultSettings()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("ADMIN_ENABLED", true)
	v.SetDefault("ADMIN_PORT", "8081")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "forecast")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL_SECONDS", 3600)
	v.SetDefault("REDIS_DIAL_TIMEOUT_MS", 2000)
	v.SetDefault("REDIS_READ_TIMEOUT_MS", 2000)
	v.SetDefault("REDIS_WRITE_TIMEOUT_MS", 2000)
	v.SetDefault("MODEL_KIND", "http")
	v.SetDefault("MODEL_ENDPOINT", "http://localhost:9000/predict")
	v.SetDefault("MODEL_TIMEOUT_SECONDS", 10)
	v.SetDefault("MODEL_LOG_TARGET", true)
	v.SetDefault("CALIBRATION_ENABLED", defaults.CalibrationEnabled)
	v.SetDefault("CALIBRATION_ALPHA", defaults.Alpha)
	v.SetDefault("CALIBRATION_MAX_RATIO", defaults.MaxRatio)
	v.SetDefault("CALIBRATION_MIN_RATIO", defaults.MinRatio)
	v.SetDefault("FLOOR_LOOKBACK_DAYS", defaults.FloorLookbackDays)
	v.SetDefault("FLOOR_COEF", defaults.FloorCoef)
	v.SetDefault("SAFETY_DAYS", defaults.SafetyDays)
	v.SetDefault("SAFETY_WINDOW_DAYS", defaults.SafetyWindowDays)
	v.SetDefault("BIAS_CLIP_LOWER", defaults.BiasClipLower)
	v.SetDefault("BIAS_CLIP_UPPER", defaults.BiasClipUpper)
	v.SetDefault("APPLY_BIAS", defaults.ApplyBias)
	v.SetDefault("BACKTEST_SCHEDULE", "")
	v.SetDefault("BACKTEST_DAYS", 7)
	v.SetDefault("BACKTEST_FORMAT", "csv")
	v.SetDefault("BACKTEST_OUTPUT_DIR", "./data/backtest")
	v.SetDefault("BACKTEST_WORKERS", 4)
	v.SetDefault("REPORT_SINK", "local")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_USE_SSL", true)
	v.SetDefault("S3_PREFIX", "backtest/")
	v.SetDefault("LOG_LEVEL", "info")
}
