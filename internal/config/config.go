package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderMock   = "mock"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendMySQL    = "mysql"
	BackendPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port             int           `yaml:"port"`
		CORSOrigins      []string      `yaml:"corsOrigins"`
		WorkspaceIdleTTL time.Duration `yaml:"workspaceIdleTTL"`
		ShutdownTimeout  time.Duration `yaml:"shutdownTimeout"`
		RateLimit        struct {
			Capacity   int `yaml:"capacity"`
			RefillRate int `yaml:"refillRate"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	Analysis struct {
		Provider       string        `yaml:"provider"`
		Timeout        time.Duration `yaml:"timeout"`
		MaxUploadBytes int64         `yaml:"maxUploadBytes"`
		MockLatency    time.Duration `yaml:"mockLatency"`
		Gemini         struct {
			APIKey string `yaml:"apiKey"`
			Model  string `yaml:"model"`
		} `yaml:"gemini"`
		OpenAI struct {
			APIKey  string `yaml:"apiKey"`
			Model   string `yaml:"model"`
			BaseURL string `yaml:"baseURL"`
		} `yaml:"openai"`
	} `yaml:"analysis"`

	Rekognition struct {
		Enabled          bool    `yaml:"enabled"`
		Region           string  `yaml:"region"`
		RejectConfidence float64 `yaml:"rejectConfidence"`
	} `yaml:"rekognition"`

	ContextCheck struct {
		StepDelay time.Duration `yaml:"stepDelay"`
	} `yaml:"contextCheck"`

	Session struct {
		Backend     string        `yaml:"backend"`
		SigningKey  string        `yaml:"signingKey"`
		RememberTTL time.Duration `yaml:"rememberTTL"`
		TTL         time.Duration `yaml:"ttl"`
		FilePath    string        `yaml:"filePath"`
	} `yaml:"session"`

	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`

	Minio struct {
		Enabled    bool          `yaml:"enabled"`
		Endpoint   string        `yaml:"endpoint"`
		AccessKey  string        `yaml:"accessKey"`
		SecretKey  string        `yaml:"secretKey"`
		BucketName string        `yaml:"bucketName"`
		Region     string        `yaml:"region"`
		UseSSL     bool          `yaml:"useSSL"`
		URLExpiry  time.Duration `yaml:"urlExpiry"`
	} `yaml:"minio"`
}

// Path returns CONFIG_PATH or config.yaml.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "config.yaml"
}

// Load reads the yaml file, applies env overrides and defaults, then validates.
// A missing file is fine: the service runs on defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Analysis.Gemini.APIKey, "GEMINI_API_KEY")
	setFromEnv(&c.Analysis.OpenAI.APIKey, "OPENAI_API_KEY")
	setFromEnv(&c.Session.SigningKey, "SESSION_SIGNING_KEY")
	setFromEnv(&c.Redis.Addr, "REDIS_ADDR")
	setFromEnv(&c.Analysis.Provider, "ANALYSIS_PROVIDER")
	setFromEnv(&c.Logging.Level, "LOG_LEVEL")
}

func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Server.WorkspaceIdleTTL == 0 {
		c.Server.WorkspaceIdleTTL = 30 * time.Minute
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Server.RateLimit.Capacity == 0 {
		c.Server.RateLimit.Capacity = 60
	}
	if c.Server.RateLimit.RefillRate == 0 {
		c.Server.RateLimit.RefillRate = 1
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Analysis.Provider == "" {
		c.Analysis.Provider = ProviderMock
	}
	if c.Analysis.Timeout == 0 {
		c.Analysis.Timeout = 60 * time.Second
	}
	if c.Analysis.MaxUploadBytes == 0 {
		c.Analysis.MaxUploadBytes = 10 << 20
	}
	if c.Analysis.MockLatency == 0 {
		c.Analysis.MockLatency = 1500 * time.Millisecond
	}
	if c.Rekognition.RejectConfidence == 0 {
		c.Rekognition.RejectConfidence = 70
	}
	if c.ContextCheck.StepDelay == 0 {
		c.ContextCheck.StepDelay = 500 * time.Millisecond
	}
	if c.Session.Backend == "" {
		c.Session.Backend = BackendFile
	}
	if c.Session.RememberTTL == 0 {
		c.Session.RememberTTL = 7 * 24 * time.Hour
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 12 * time.Hour
	}
	if c.Session.FilePath == "" {
		c.Session.FilePath = "data/sessions.json"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Analysis.Provider {
	case ProviderMock:
	case ProviderGemini:
		if c.Analysis.Gemini.APIKey == "" {
			errs = append(errs, errors.New("analysis.gemini.apiKey (or GEMINI_API_KEY) is required for the gemini provider"))
		}
	case ProviderOpenAI:
		if c.Analysis.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("analysis.openai.apiKey (or OPENAI_API_KEY) is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown analysis.provider %q", c.Analysis.Provider))
	}

	switch c.Session.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	case BackendMySQL:
		if c.Database.Host == "" || c.Database.Name == "" {
			errs = append(errs, errors.New("database.host and database.name are required for the mysql backend"))
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session.backend %q", c.Session.Backend))
	}

	if c.Analysis.Timeout < 0 || c.Analysis.MaxUploadBytes < 0 {
		errs = append(errs, errors.New("analysis.timeout and analysis.maxUploadBytes must be positive"))
	}
	if c.Rekognition.RejectConfidence < 0 || c.Rekognition.RejectConfidence > 100 {
		errs = append(errs, errors.New("rekognition.rejectConfidence must be within 0..100"))
	}
	if c.Minio.Enabled && (c.Minio.Endpoint == "" || c.Minio.BucketName == "") {
		errs = append(errs, errors.New("minio.endpoint and minio.bucketName are required when minio is enabled"))
	}
	return errors.Join(errs...)
}

// MySQLDSN builds the go-sql-driver DSN.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}
