package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	CredentialBackendFile  = "file"
	CredentialBackendRedis = "redis"
	CredentialBackendSQL   = "sql"

	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

type Config struct {
	App         AppConfig         `toml:"app"`
	API         APIConfig         `toml:"api"`
	Credentials CredentialsConfig `toml:"credentials"`
	Redis       RedisConfig       `toml:"redis"`
	Database    DatabaseConfig    `toml:"database"`
	RabbitMQ    RabbitMQConfig    `toml:"rabbitmq"`
	Upload      UploadConfig      `toml:"upload"`
	Log         LogConfig         `toml:"log"`
	DevServer   DevServerConfig   `toml:"devserver"`
}

type AppConfig struct {
	Name string `toml:"name"`
	Env  string `toml:"env"`
}

type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type CredentialsConfig struct {
	Backend   string `toml:"backend"`
	FilePath  string `toml:"file_path"`
	KeyPrefix string `toml:"key_prefix"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type DatabaseConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

type RabbitMQConfig struct {
	URL         string `toml:"url"`
	EventsQueue string `toml:"events_queue"`
}

// UploadConfig drives the simulated ingestion progress ticker.
type UploadConfig struct {
	TickMillis int `toml:"tick_millis"`
	Step       int `toml:"step"`
	Cap        int `toml:"cap"`
}

type LogConfig struct {
	FilePath string `toml:"file_path"`
	Level    string `toml:"level"`
}

type DevServerConfig struct {
	Host            string         `toml:"host"`
	Port            int            `toml:"port"`
	GinMode         string         `toml:"gin_mode"`
	JWTSecret       string         `toml:"jwt_secret"`
	JWTExpireMinute int            `toml:"jwt_expire_minute"`
	Database        DatabaseConfig `toml:"database"`
}

func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configPath, falling back to $CONFIG_FILE and then
// configs/docqa.toml when it is empty. A missing file leaves the defaults.
func LoadFile(configPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if configPath == "" {
		configPath = getEnv("CONFIG_FILE", "configs/docqa.toml")
	}
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	switch c.Credentials.Backend {
	case CredentialBackendFile, CredentialBackendRedis, CredentialBackendSQL:
	default:
		return fmt.Errorf("unknown credentials backend %q", c.Credentials.Backend)
	}
	if c.Upload.Step <= 0 {
		return fmt.Errorf("upload.step must be positive")
	}
	// The ticker must never claim completion on its own.
	if c.Upload.Cap < 0 || c.Upload.Cap >= 100 {
		return fmt.Errorf("upload.cap must be in [0,100), got %d", c.Upload.Cap)
	}
	if c.Upload.TickMillis <= 0 {
		return fmt.Errorf("upload.tick_millis must be positive")
	}
	return nil
}

func (c *Config) RequestTimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Upload.TickMillis) * time.Millisecond
}

func (c *Config) DevServerAddr() string {
	return fmt.Sprintf("%s:%d", c.DevServer.Host, c.DevServer.Port)
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name: "docqa",
			Env:  "dev",
		},
		API: APIConfig{
			BaseURL:        "http://localhost:8000",
			TimeoutSeconds: 0,
		},
		Credentials: CredentialsConfig{
			Backend:   CredentialBackendFile,
			FilePath:  defaultCredentialPath(),
			KeyPrefix: "docqa:",
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
			DB:   0,
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			DSN:    "docqa-credentials.db",
		},
		RabbitMQ: RabbitMQConfig{
			URL:         "",
			EventsQueue: "docqa.client.events",
		},
		Upload: UploadConfig{
			TickMillis: 500,
			Step:       5,
			Cap:        95,
		},
		Log: LogConfig{
			FilePath: "docqa.log",
			Level:    "info",
		},
		DevServer: DevServerConfig{
			Host:            "127.0.0.1",
			Port:            8000,
			GinMode:         "debug",
			JWTSecret:       "change-me-in-production",
			JWTExpireMinute: 30,
			Database: DatabaseConfig{
				Driver: DriverSQLite,
				DSN:    "docqa-devserver.db",
			},
		},
	}
}

func defaultCredentialPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".docqa-credentials.json"
	}
	return dir + string(os.PathSeparator) + "docqa" + string(os.PathSeparator) + "credentials.json"
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)

	cfg.API.BaseURL = getEnv("API_BASE_URL", cfg.API.BaseURL)
	cfg.API.TimeoutSeconds = getEnvAsInt("API_TIMEOUT_SECONDS", cfg.API.TimeoutSeconds)

	cfg.Credentials.Backend = getEnv("CREDENTIALS_BACKEND", cfg.Credentials.Backend)
	cfg.Credentials.FilePath = getEnv("CREDENTIALS_FILE", cfg.Credentials.FilePath)
	cfg.Credentials.KeyPrefix = getEnv("CREDENTIALS_KEY_PREFIX", cfg.Credentials.KeyPrefix)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)

	cfg.Database.Driver = getEnv("DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("DATABASE_DSN", cfg.Database.DSN)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.EventsQueue = getEnv("RABBITMQ_EVENTS_QUEUE", cfg.RabbitMQ.EventsQueue)

	cfg.Upload.TickMillis = getEnvAsInt("UPLOAD_TICK_MILLIS", cfg.Upload.TickMillis)
	cfg.Upload.Step = getEnvAsInt("UPLOAD_STEP", cfg.Upload.Step)
	cfg.Upload.Cap = getEnvAsInt("UPLOAD_CAP", cfg.Upload.Cap)

	cfg.Log.FilePath = getEnv("LOG_FILE_PATH", cfg.Log.FilePath)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	cfg.DevServer.Host = getEnv("DEVSERVER_HOST", cfg.DevServer.Host)
	cfg.DevServer.Port = getEnvAsInt("DEVSERVER_PORT", cfg.DevServer.Port)
	cfg.DevServer.GinMode = getEnv("GIN_MODE", cfg.DevServer.GinMode)
	cfg.DevServer.JWTSecret = getEnv("JWT_SECRET", cfg.DevServer.JWTSecret)
	cfg.DevServer.JWTExpireMinute = getEnvAsInt("JWT_EXPIRE_MINUTE", cfg.DevServer.JWTExpireMinute)
	cfg.DevServer.Database.Driver = getEnv("DEVSERVER_DATABASE_DRIVER", cfg.DevServer.Database.Driver)
	cfg.DevServer.Database.DSN = getEnv("DEVSERVER_DATABASE_DSN", cfg.DevServer.Database.DSN)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
