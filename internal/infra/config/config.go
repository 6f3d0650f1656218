package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"

	"skillsocket/internal/domain"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	LLM           LLMConfig           `yaml:"llm"`
	Search        SearchConfig        `yaml:"search"`
	Matcher       MatcherConfig       `yaml:"matcher"`
	Store         StoreConfig         `yaml:"store"`
	Chat          ChatConfig          `yaml:"chat"`
	Push          PushConfig          `yaml:"push"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logger        LoggerConfig        `yaml:"logger"`
	Tracer        TracerConfig        `yaml:"tracer"`
}

// ServerConfig holds HTTP/websocket server settings.
type ServerConfig struct {
	Addr         string          `yaml:"addr"`
	ReadTimeout  time.Duration   `yaml:"read_timeout"`
	WriteTimeout time.Duration   `yaml:"write_timeout"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig holds per-IP rate limiting settings for public routes.
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_min"`
	Burst          int  `yaml:"burst"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	Tokens []AuthTokenConfig `yaml:"tokens"`
}

// AuthTokenConfig is a single static bearer token entry.
type AuthTokenConfig struct {
	Token string   `yaml:"token"`
	Name  string   `yaml:"name"`
	Roles []string `yaml:"roles"`
}

// LLMConfig holds LLM provider settings.
type LLMConfig struct {
	DefaultProvider string               `yaml:"default_provider"`
	Providers       []ProviderConfig     `yaml:"providers"`
	CircuitBreaker  CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// ProviderConfig defines a single LLM provider.
type ProviderConfig struct {
	Name        string        `yaml:"name"`
	Type        string        `yaml:"type"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`
}

// CircuitBreakerConfig holds breaker settings for LLM calls.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// SearchConfig holds web search backend settings.
type SearchConfig struct {
	Backend    string        `yaml:"backend"` // "tavily"
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	MaxResults int           `yaml:"max_results"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// MatcherConfig holds skill match lookup settings. BaseURL points at the
// user API serving /api/health and /api/users/match; by default that is
// this same process.
type MatcherConfig struct {
	BaseURL      string        `yaml:"base_url"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	MatchTimeout time.Duration `yaml:"match_timeout"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ChatConfig holds real-time chat settings.
type ChatConfig struct {
	ReadReceiptDelay time.Duration `yaml:"read_receipt_delay"`
	SendQueueSize    int           `yaml:"send_queue_size"`
}

// PushConfig holds push notification provider settings.
type PushConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Endpoint  string        `yaml:"endpoint"`
	ServerKey string        `yaml:"server_key"`
	Timeout   time.Duration `yaml:"timeout"`
}

// NotificationsConfig holds notification retention settings.
type NotificationsConfig struct {
	Retention     time.Duration `yaml:"retention"`
	PurgeSchedule string        `yaml:"purge_schedule"` // cron spec
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
	Output string `yaml:"output"` // "stdout", "stderr", or file path
}

// TracerConfig holds OpenTelemetry settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "noop" or "stdout"
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".skillsocket")
}

// Defaults returns a Config populated with sane defaults.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":3000",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:        true,
				RequestsPerMin: 120,
				Burst:          30,
			},
		},
		LLM: LLMConfig{
			DefaultProvider: "cerebras",
			Providers: []ProviderConfig{
				{
					Name:        "cerebras",
					Type:        "cerebras",
					BaseURL:     "https://api.cerebras.ai/v1",
					Model:       "llama3.1-8b",
					MaxTokens:   2000,
					ConnTimeout: 10 * time.Second,
					RespTimeout: 60 * time.Second,
				},
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Search: SearchConfig{
			Backend:    "tavily",
			BaseURL:    "https://api.tavily.com",
			MaxResults: 5,
			CacheTTL:   15 * time.Minute,
		},
		Matcher: MatcherConfig{
			BaseURL:      "http://127.0.0.1:3000",
			ProbeTimeout: 5 * time.Second,
			MatchTimeout: 8 * time.Second,
		},
		Store: StoreConfig{
			Path: filepath.Join(defaultDataDir(), "skillsocket.db"),
		},
		Chat: ChatConfig{
			ReadReceiptDelay: 2 * time.Second,
			SendQueueSize:    64,
		},
		Push: PushConfig{
			Enabled: false,
			Timeout: 10 * time.Second,
		},
		Notifications: NotificationsConfig{
			Retention:     30 * 24 * time.Hour,
			PurgeSchedule: "30 3 * * *",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads the config file at path, applies env overrides, decrypts
// secrets and validates the result. A missing file is not an error;
// defaults plus env overrides are used instead.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, loadErr(err)
			}
			return cfg, nil
		}
		return nil, loadErr(fmt.Errorf("read config: %w", err))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, loadErr(fmt.Errorf("resolve config path: %w", err))
	}

	if err := validatePermissions(absPath); err != nil {
		return nil, loadErr(err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, loadErr(fmt.Errorf("parse config: %w", err))
	}

	ApplyEnvOverrides(cfg)

	passphrase := os.Getenv("SKILLSOCKET_CONFIG_KEY")
	if passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, loadErr(fmt.Errorf("decrypt secrets: %w", err))
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, loadErr(err)
	}

	return cfg, nil
}

// loadErr tags err so callers can match it with errors.Is(err, domain.ErrConfigLoad).
func loadErr(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrConfigLoad, err)
}

// ApplyEnvOverrides applies SKILLSOCKET_* environment variables on top of
// the loaded config. Provider credentials also honor the bare vendor
// variables (CEREBRAS_API_KEY, TAVILY_API_KEY) for parity with older
// deployments.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SKILLSOCKET_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SKILLSOCKET_LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("SKILLSOCKET_LOG_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("SKILLSOCKET_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("SKILLSOCKET_LLM_PROVIDER"); v != "" {
		cfg.LLM.DefaultProvider = v
	}
	if v := os.Getenv("SKILLSOCKET_MATCHER_URL"); v != "" {
		cfg.Matcher.BaseURL = v
	}
	if v := os.Getenv("SKILLSOCKET_SEARCH_API_KEY"); v != "" {
		cfg.Search.APIKey = v
	} else if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		cfg.Search.APIKey = v
	}
	if v := os.Getenv("SKILLSOCKET_PUSH_SERVER_KEY"); v != "" {
		cfg.Push.ServerKey = v
		cfg.Push.Enabled = true
	}
	if v := os.Getenv("SKILLSOCKET_RATE_LIMIT_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Server.RateLimit.RequestsPerMin = n
		}
	}

	// Per-provider API keys: SKILLSOCKET_<NAME>_API_KEY, plus the bare
	// vendor variable for the cerebras provider type.
	for i := range cfg.LLM.Providers {
		p := &cfg.LLM.Providers[i]
		envKey := "SKILLSOCKET_" + strings.ToUpper(p.Name) + "_API_KEY"
		if v := os.Getenv(envKey); v != "" {
			p.APIKey = v
			continue
		}
		if p.Type == "cerebras" && p.APIKey == "" {
			if v := os.Getenv("CEREBRAS_API_KEY"); v != "" {
				p.APIKey = v
			}
		}
	}

	// SKILLSOCKET_AUTH_TOKENS: comma-separated token list, each entry
	// becoming a full-access token named "env".
	if v := os.Getenv("SKILLSOCKET_AUTH_TOKENS"); v != "" {
		cfg.Auth.Tokens = nil
		for _, tok := range splitAndTrim(v, ",") {
			if tok == "" {
				continue
			}
			cfg.Auth.Tokens = append(cfg.Auth.Tokens, AuthTokenConfig{
				Token: tok,
				Name:  "env",
				Roles: []string{"*"},
			})
		}
	}
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// decryptSecrets finds "enc:..." values in credential fields and decrypts them.
func decryptSecrets(cfg *Config, passphrase string) error {
	for i := range cfg.LLM.Providers {
		key := cfg.LLM.Providers[i].APIKey
		if strings.HasPrefix(key, "enc:") {
			decrypted, err := DecryptValue(strings.TrimPrefix(key, "enc:"), passphrase)
			if err != nil {
				return fmt.Errorf("provider %s api_key: %w", cfg.LLM.Providers[i].Name, err)
			}
			cfg.LLM.Providers[i].APIKey = decrypted
		}
	}

	if strings.HasPrefix(cfg.Search.APIKey, "enc:") {
		decrypted, err := DecryptValue(strings.TrimPrefix(cfg.Search.APIKey, "enc:"), passphrase)
		if err != nil {
			return fmt.Errorf("search api_key: %w", err)
		}
		cfg.Search.APIKey = decrypted
	}

	if strings.HasPrefix(cfg.Push.ServerKey, "enc:") {
		decrypted, err := DecryptValue(strings.TrimPrefix(cfg.Push.ServerKey, "enc:"), passphrase)
		if err != nil {
			return fmt.Errorf("push server_key: %w", err)
		}
		cfg.Push.ServerKey = decrypted
	}

	for i := range cfg.Auth.Tokens {
		tok := cfg.Auth.Tokens[i].Token
		if strings.HasPrefix(tok, "enc:") {
			decrypted, err := DecryptValue(strings.TrimPrefix(tok, "enc:"), passphrase)
			if err != nil {
				return fmt.Errorf("auth token %s: %w", cfg.Auth.Tokens[i].Name, err)
			}
			cfg.Auth.Tokens[i].Token = decrypted
		}
	}

	return nil
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a passphrase.
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("%w: generate salt: %w", domain.ErrEncryption, err)
	}

	key := deriveKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: create cipher: %w", domain.ErrEncryption, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: create gcm: %w", domain.ErrEncryption, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: generate nonce: %w", domain.ErrEncryption, err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	// Format: hex(salt) + ":" + hex(nonce+ciphertext)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptValue decrypts an AES-256-GCM encrypted value.
func DecryptValue(encrypted, passphrase string) (string, error) {
	parts := strings.SplitN(encrypted, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: invalid encrypted format", domain.ErrDecryption)
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: decode salt: %w", domain.ErrDecryption, err)
	}

	data, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %w", domain.ErrDecryption, err)
	}

	key := deriveKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: create cipher: %w", domain.ErrDecryption, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: create gcm: %w", domain.ErrDecryption, err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", domain.ErrDecryption)
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrDecryption, err)
	}

	return string(plaintext), nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions checks the config file has restrictive permissions.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644 (readable by others but not writable)
	if mode&0o077 > 0o044 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
