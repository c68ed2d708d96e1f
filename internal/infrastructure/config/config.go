package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"sector-flow/internal/domain/strength"
)

// Config 儲存 HTTP API 及外部相依的執行設定。
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	DB       DBConfig       `yaml:"db"`
	Provider ProviderConfig `yaml:"provider"`
	Compute  ComputeConfig  `yaml:"compute"`
	Notifier NotifierConfig `yaml:"notifier"`
	Job      JobConfig      `yaml:"job"`
}

type HTTPConfig struct {
	Addr          string `yaml:"addr"`
	APIKey        string `yaml:"api_key"`
	RatePerMinute int    `yaml:"rate_per_minute"`
}

type DBConfig struct {
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	MaxIdleTime  time.Duration `yaml:"max_idle_time"`
}

// ProviderConfig 為 tushare 行情來源設定。
type ProviderConfig struct {
	Token         string        `yaml:"token"`
	BaseURL       string        `yaml:"base_url"`
	RatePerMinute int           `yaml:"rate_per_minute"`
	Timeout       time.Duration `yaml:"timeout"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	ConceptLimit  int           `yaml:"concept_limit"`
}

// ComputeConfig 控制整批強度計算的併發與權重。
type ComputeConfig struct {
	Workers    int                   `yaml:"workers"`
	Budget     time.Duration         `yaml:"budget"`
	TopN       int                   `yaml:"top_n"`
	TopStocks  int                   `yaml:"top_stocks"`
	MaxMembers int                   `yaml:"max_members"`
	Weights    strength.ScoreWeights `yaml:"weights"`
}

type NotifierConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
	TopN    int    `yaml:"top_n"`
}

// JobConfig 為每日排程設定，Spec 採 cron 格式。
type JobConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Spec     string `yaml:"spec"`
	Timezone string `yaml:"timezone"`
	Mode     string `yaml:"mode"`
}

// LoadFromFile 從 YAML 組態檔載入設定。
func LoadFromFile(path string) (Config, error) {
	// 嘗試載入 .env 檔案（如果存在）
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg = applyDefaults(cfg)
	cfg = applyEnv(cfg)

	if !cfg.Compute.Weights.Valid() {
		return Config{}, fmt.Errorf("compute weights must be non-negative: %+v", cfg.Compute.Weights)
	}
	return cfg, nil
}

func applyDefaults(cfg Config) Config {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.RatePerMinute == 0 {
		cfg.HTTP.RatePerMinute = 100
	}
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 5
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 2
	}
	if cfg.DB.MaxIdleTime == 0 {
		cfg.DB.MaxIdleTime = 15 * time.Minute
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "http://api.tushare.pro"
	}
	if cfg.Provider.RatePerMinute == 0 {
		cfg.Provider.RatePerMinute = 180
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = 15 * time.Second
	}
	if cfg.Provider.CacheTTL == 0 {
		cfg.Provider.CacheTTL = 24 * time.Hour
	}
	if cfg.Provider.ConceptLimit == 0 {
		cfg.Provider.ConceptLimit = 20
	}
	if cfg.Compute.Workers == 0 {
		cfg.Compute.Workers = 8
	}
	if cfg.Compute.Budget == 0 {
		cfg.Compute.Budget = 45 * time.Second
	}
	if cfg.Compute.TopN == 0 {
		cfg.Compute.TopN = 10
	}
	if cfg.Compute.TopStocks == 0 {
		cfg.Compute.TopStocks = 10
	}
	if cfg.Compute.MaxMembers == 0 {
		cfg.Compute.MaxMembers = 150
	}
	if cfg.Compute.Weights == (strength.ScoreWeights{}) {
		cfg.Compute.Weights = strength.DefaultScoreWeights()
	}
	if cfg.Notifier.Telegram.TopN == 0 {
		cfg.Notifier.Telegram.TopN = 5
	}
	if cfg.Job.Spec == "" {
		cfg.Job.Spec = "30 17 * * 1-5"
	}
	if cfg.Job.Timezone == "" {
		cfg.Job.Timezone = "Asia/Shanghai"
	}
	return cfg
}

func applyEnv(cfg Config) Config {
	if val := os.Getenv("HTTP_ADDR"); val != "" {
		cfg.HTTP.Addr = val
	}
	if val := os.Getenv("PORT"); val != "" {
		cfg.HTTP.Addr = ":" + val
	}
	if val := os.Getenv("API_KEY"); val != "" {
		cfg.HTTP.APIKey = val
	}
	if val := os.Getenv("DB_DSN"); val != "" {
		cfg.DB.DSN = val
	}
	if val := os.Getenv("TUSHARE_TOKEN"); val != "" {
		cfg.Provider.Token = val
	}
	if val := os.Getenv("TUSHARE_BASE_URL"); val != "" {
		cfg.Provider.BaseURL = val
	}
	if val := os.Getenv("COMPUTE_WORKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.Compute.Workers = n
		}
	}
	if val := os.Getenv("COMPUTE_BUDGET"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Compute.Budget = d
		}
	}
	if val := os.Getenv("TELEGRAM_TOKEN"); val != "" {
		cfg.Notifier.Telegram.Token = val
	}
	if val := os.Getenv("TELEGRAM_CHAT_ID"); val != "" {
		if id, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Notifier.Telegram.ChatID = id
		}
	}
	if val := os.Getenv("TELEGRAM_ENABLED"); val != "" {
		cfg.Notifier.Telegram.Enabled = (val == "true")
	}
	if val := os.Getenv("JOB_ENABLED"); val != "" {
		cfg.Job.Enabled = (val == "true")
	}
	if val := os.Getenv("JOB_SPEC"); val != "" {
		cfg.Job.Spec = val
	}
	return cfg
}
