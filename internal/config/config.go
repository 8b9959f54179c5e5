package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
)

type HTTPConfig struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR" env-default:":3010"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type GitLabConfig struct {
	APIURL  string        `yaml:"api_url" env:"GITLAB_API_URL" env-default:"https://gitlab.com/api/v4"`
	Timeout time.Duration `yaml:"timeout" env:"GITLAB_TIMEOUT" env-default:"30s"`
}

type AuthConfig struct {
	Secret        string        `yaml:"secret" env:"TOKEN_AUTH_SECRET"`
	SessionTTL    time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"12h"`
	PersistentTTL time.Duration `yaml:"persistent_ttl" env:"PERSISTENT_TTL" env-default:"720h"`
}

type CacheConfig struct {
	ProjectTTL time.Duration `yaml:"project_ttl" env:"PROJECT_CACHE_TTL" env-default:"24h"`
}

type BatchConfig struct {
	CheckConcurrency int `yaml:"check_concurrency" env:"CHECK_CONCURRENCY" env-default:"8"`
}

type DatabaseConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GitLab   GitLabConfig   `yaml:"gitlab"`
	Auth     AuthConfig     `yaml:"auth"`
	Cache    CacheConfig    `yaml:"cache"`
	Batch    BatchConfig    `yaml:"batch"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

// Load reads the yaml file at path (if any) and then the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Auth.Secret == "" {
		return errors.New("auth secret must be set (TOKEN_AUTH_SECRET)")
	}
	if c.Batch.CheckConcurrency <= 0 {
		return errors.Errorf("batch check concurrency must be positive, got %d", c.Batch.CheckConcurrency)
	}
	return nil
}

func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}
