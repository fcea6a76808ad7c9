package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		Mode           string   `yaml:"mode"` // gin mode: debug, release, test
		AllowedOrigins []string `yaml:"allowed_origins"`
		MaxUploadMB    int      `yaml:"max_upload_mb"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // pretty or json
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL          string `yaml:"ttl"`
		TimeBudget   string `yaml:"time_budget"`
		TickInterval string `yaml:"tick_interval"`
		Retention    string `yaml:"retention"` // how long a finished session stays readable
	} `yaml:"quiz"`
	Generation struct {
		APIKey        string   `yaml:"api_key"`
		TopicDelay    string   `yaml:"topic_delay"`
		DocumentDelay string   `yaml:"document_delay"`
		Seed          uint64   `yaml:"seed"`
		Topics        []string `yaml:"topics"`
	} `yaml:"generation"`
}

// Load reads YAML config from path. A .env file next to the process is
// loaded first when present, and environment variables override secrets.
func Load(path string) (Config, error) {
	_ = godotenv.Load() // .env is optional

	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GENERATOR_API_KEY"); v != "" {
		c.Generation.APIKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
}

// TimeBudgetSeconds is the per-attempt countdown, 300s unless configured.
func (c Config) TimeBudgetSeconds() int {
	return int(TTLDuration(c.Quiz.TimeBudget, 5*time.Minute) / time.Second)
}

// MaxUploadBytes bounds document uploads, 10 MiB unless configured.
func (c Config) MaxUploadBytes() int64 {
	if c.Server.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(c.Server.MaxUploadMB) << 20
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
