package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the client's configuration model.
// It captures the backend endpoints, session token, token mints and client tuning.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Auth    AuthConfig    `yaml:"auth"`
	Tokens  TokensConfig  `yaml:"tokens"`
	Solana  SolanaConfig  `yaml:"solana"`
	Client  ClientConfig  `yaml:"client"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
	Display DisplayConfig `yaml:"display"`
	Log     LogConfig     `yaml:"log"`
}

type APIConfig struct {
	BaseURL     string `yaml:"baseURL"`
	GraphQLPath string `yaml:"graphqlPath"`
	// "mobile" posts tweets, follows and accounts over REST, "web" over GraphQL
	Variant string `yaml:"variant"`
}

type AuthConfig struct {
	// Bearer token from a Supabase or Privy session. If empty, read EVIL_AUTH_TOKEN
	BearerToken string `yaml:"bearerToken"`
	// Backend user id used for economy and weapon calls when the token carries none
	UserID string `yaml:"userID"`
}

type TokensConfig struct {
	BlingMint      string `yaml:"blingMint"`
	USDCMint       string `yaml:"usdcMint"`
	StablecoinMint string `yaml:"stablecoinMint"`
}

type SolanaConfig struct {
	ProgramID string `yaml:"programID"`
	RPCURL    string `yaml:"rpcURL"`
}

type ClientConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	RPS     float64       `yaml:"rps"`
	Burst   int           `yaml:"burst"`
	// Attempts for idempotent reads; mutations are sent once
	MaxAttempts int `yaml:"maxAttempts"`
}

type StorageConfig struct {
	// Action journal location; empty disables it
	JournalPath string `yaml:"journalPath"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type DisplayConfig struct {
	// Direct replies shown before "show all" is engaged
	CollapsedReplies int `yaml:"collapsedReplies"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

const (
	VariantMobile = "mobile"
	VariantWeb    = "web"
)

const (
	DefaultBaseURL        = "http://localhost:3000"
	DefaultGraphQLPath    = "/graphql"
	DefaultProgramID      = "4z5rjroGdE7BrUFuGBv5DmQF7cWgZkRtXkTyRzEzAyHh"
	DefaultSolanaRPC      = "http://127.0.0.1:8899"
	DefaultCollapsedCount = 2
)

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		API:     APIConfig{BaseURL: DefaultBaseURL, GraphQLPath: DefaultGraphQLPath, Variant: VariantMobile},
		Solana:  SolanaConfig{ProgramID: DefaultProgramID, RPCURL: DefaultSolanaRPC},
		Client:  ClientConfig{Timeout: 15 * time.Second, RPS: 5, Burst: 10, MaxAttempts: 3},
		Storage: StorageConfig{JournalPath: ""},
		Display: DisplayConfig{CollapsedReplies: DefaultCollapsedCount},
		Log:     LogConfig{Level: "info", Pretty: true},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if v := firstEnv("EVIL_API_URL", "EXPO_PUBLIC_API_URL", "NEXT_PUBLIC_API_URL"); v != "" && (c.API.BaseURL == "" || c.API.BaseURL == DefaultBaseURL) {
		c.API.BaseURL = v
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.GraphQLPath == "" {
		c.API.GraphQLPath = DefaultGraphQLPath
	}
	if v := os.Getenv("EVIL_API_VARIANT"); v != "" {
		c.API.Variant = v
	}
	if c.API.Variant != VariantWeb {
		c.API.Variant = VariantMobile
	}
	if c.Auth.BearerToken == "" {
		c.Auth.BearerToken = os.Getenv("EVIL_AUTH_TOKEN")
	}
	if c.Auth.UserID == "" {
		c.Auth.UserID = os.Getenv("EVIL_USER_ID")
	}
	if c.Tokens.BlingMint == "" {
		c.Tokens.BlingMint = firstEnv("NEXT_PUBLIC_BLING_MINT", "EXPO_PUBLIC_BLING_MINT")
	}
	if c.Tokens.USDCMint == "" {
		c.Tokens.USDCMint = firstEnv("NEXT_PUBLIC_USDC_MINT", "EXPO_PUBLIC_USDC_MINT")
	}
	if c.Tokens.StablecoinMint == "" {
		c.Tokens.StablecoinMint = firstEnv("NEXT_PUBLIC_STABLECOIN_MINT", "EXPO_PUBLIC_STABLECOIN_MINT")
	}
	if c.Solana.ProgramID == "" {
		c.Solana.ProgramID = firstEnv("NEXT_PUBLIC_PROGRAM_ID", "EXPO_PUBLIC_PROGRAM_ID")
		if c.Solana.ProgramID == "" {
			c.Solana.ProgramID = DefaultProgramID
		}
	}
	if c.Solana.RPCURL == "" {
		c.Solana.RPCURL = DefaultSolanaRPC
	}
	if v := os.Getenv("EVIL_API_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Client.RPS = f
		}
	}
	c.Client.Burst = envInt("EVIL_API_BURST", c.Client.Burst)
	c.Client.MaxAttempts = envInt("EVIL_API_MAX_ATTEMPTS", c.Client.MaxAttempts)
	if c.Client.Timeout <= 0 {
		c.Client.Timeout = 15 * time.Second
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
	if c.Display.CollapsedReplies <= 0 {
		c.Display.CollapsedReplies = DefaultCollapsedCount
	}
}

// Load reads YAML config from path. A missing file yields defaults.
// A .env file next to the working directory is applied first.
func Load(path string) (Config, error) {
	_ = godotenv.Load()
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	if err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}
