// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token           string  `yaml:"token"`
	Username        string  `yaml:"username"`
	Workers         int     `yaml:"workers"` // polling workers
	AdminIDs        []int64 `yaml:"admin_ids"`
	UserWhitelist   []int64 `yaml:"user_whitelist"`
	NameWhitelist   []string `yaml:"name_whitelist"`
	GroupWhitelist  []int64 `yaml:"group_whitelist"`
	TypingIndicator bool    `yaml:"typing_indicator"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	OpenAIKey       string   `yaml:"openai_key"`
	GeminiKey       string   `yaml:"gemini_key"`
	GeminiURL       string   `yaml:"gemini_url"`
	DefaultModel    string   `yaml:"default_model"`
	ImageSize       string   `yaml:"image_size"`
	NumImages       int      `yaml:"num_images"`
	MaxTokens       int      `yaml:"max_tokens"`
	Temperature     float64  `yaml:"temperature"`
	ConcurrentLimit int      `yaml:"concurrent_limit"` // max concurrent AI calls
	ChatPrefixes    []string `yaml:"chat_prefixes"`    // bare-prefix routing, e.g. "gpt ", "ask "
	WordLimit       int      `yaml:"word_limit"`
}

type PaymentConfig struct {
	RPCURL          string  `yaml:"rpc_url"` // harmony json-rpc endpoint
	PriceFeedURL    string  `yaml:"price_feed_url"`
	MinBalanceCents float64 `yaml:"min_balance_cents"`
	PriceAdjustment float64 `yaml:"price_adjustment"`
	MasterAddress   string  `yaml:"master_address"`
}

type RegistryConfig struct {
	RelayURL string `yaml:"relay_url"`
	TLD      string `yaml:"tld"`
}

type SpeechConfig struct {
	TranscribeURL string  `yaml:"transcribe_url"`
	TranscribeKey string  `yaml:"transcribe_key"`
	TTSURL        string  `yaml:"tts_url"`
	TTSKey        string  `yaml:"tts_key"`
	PricePerSec   float64 `yaml:"price_per_sec_cents"`
}

type WebConfig struct {
	Port       int           `yaml:"port"`
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Payment  PaymentConfig  `yaml:"payment"`
	Registry RegistryConfig `yaml:"registry"`
	Speech   SpeechConfig   `yaml:"speech"`
	Web      WebConfig      `yaml:"web"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	// Secrets come in via ${VAR} references so the file itself stays clean.
	b = []byte(os.ExpandEnv(string(b)))
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o"
	}
	if cfg.AI.ImageSize == "" {
		cfg.AI.ImageSize = "1024x1024"
	}
	if cfg.AI.NumImages <= 0 {
		cfg.AI.NumImages = 1
	}
	if cfg.AI.MaxTokens <= 0 {
		cfg.AI.MaxTokens = 800
	}
	if cfg.AI.Temperature <= 0 {
		cfg.AI.Temperature = 0.8
	}
	if cfg.AI.WordLimit <= 0 {
		cfg.AI.WordLimit = 100
	}
	if len(cfg.AI.ChatPrefixes) == 0 {
		cfg.AI.ChatPrefixes = []string{"gpt ", "ask ", "a. ", "? "}
	}
	if cfg.Payment.PriceAdjustment <= 0 {
		cfg.Payment.PriceAdjustment = 1
	}
	if cfg.Payment.MinBalanceCents <= 0 {
		cfg.Payment.MinBalanceCents = 1
	}
	if cfg.Payment.RPCURL == "" {
		cfg.Payment.RPCURL = "https://api.harmony.one"
	}
	if cfg.Registry.TLD == "" {
		cfg.Registry.TLD = "country"
	}
	if cfg.Web.SessionTTL <= 0 {
		cfg.Web.SessionTTL = 30 * time.Minute
	}
	if cfg.Web.Port <= 0 {
		cfg.Web.Port = 8080
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
