// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr         string        `mapstructure:"listen_addr"`
	RPCURL             string        `mapstructure:"rpc_url"`
	Commitment         string        `mapstructure:"commitment"`
	CustodySecret      string        `mapstructure:"custody_secret"`
	CustodyKeypairPath string        `mapstructure:"custody_keypair_path"`
	TokenMint          string        `mapstructure:"token_mint"`
	TokenDecimals      uint8         `mapstructure:"token_decimals"`
	FeeLamports        uint64        `mapstructure:"fee_lamports"`
	TokenAmount        uint64        `mapstructure:"token_amount"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	RPCTimeout         time.Duration `mapstructure:"rpc_timeout"`
	RPCRetries         int           `mapstructure:"rpc_retries"`
	RPCRetryDelay      time.Duration `mapstructure:"rpc_retry_delay"`
	RPCRateLimit       int           `mapstructure:"rpc_rate_limit"`
	PriorityFeeMin     uint64        `mapstructure:"priority_fee_min"`
	PriorityFeeMax     uint64        `mapstructure:"priority_fee_max"`
	CORSOrigins        []string      `mapstructure:"cors_origins"`
	DebugLogging       bool          `mapstructure:"debug_logging"`
	LogFile            string        `mapstructure:"log_file"`
	MetricsEnabled     bool          `mapstructure:"metrics_enabled"`
}

const (
	EnvPrefix = "TOKEN_SALE"

	DefaultListenAddr     = ":8080"
	DefaultCommitment     = "confirmed"
	DefaultTokenDecimals  = 5
	DefaultFeeLamports    = 1_000_000
	DefaultTokenAmount    = 1_000_000
	DefaultRequestTimeout = 15 * time.Second
	DefaultRPCTimeout     = 5 * time.Second
	DefaultRPCRetries     = 1
	DefaultRPCRetryDelay  = 250 * time.Millisecond
	DefaultLogFile        = "token-sale.log"
)

// keys без значения по умолчанию, которые всё равно должны читаться из окружения
var envOnlyKeys = []string{
	"rpc_url",
	"custody_secret",
	"custody_keypair_path",
	"token_mint",
}

// LoadConfig читает конфигурацию из файла (если путь задан) и из переменных окружения TOKEN_SALE_*.
// Переменные окружения имеют приоритет над файлом.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"listen_addr":      DefaultListenAddr,
		"commitment":       DefaultCommitment,
		"token_decimals":   DefaultTokenDecimals,
		"fee_lamports":     DefaultFeeLamports,
		"token_amount":     DefaultTokenAmount,
		"request_timeout":  DefaultRequestTimeout,
		"rpc_timeout":      DefaultRPCTimeout,
		"rpc_retries":      DefaultRPCRetries,
		"rpc_retry_delay":  DefaultRPCRetryDelay,
		"rpc_rate_limit":   0,
		"priority_fee_min": 0,
		"priority_fee_max": 0,
		"cors_origins":     []string{"*"},
		"debug_logging":    false,
		"log_file":         DefaultLogFile,
		"metrics_enabled":  true,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := bindEnvironment(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.CORSOrigins = cleanList(cfg.CORSOrigins)

	return &cfg, validateConfig(&cfg)
}

func bindEnvironment(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("rpc_url is required")
	}
	if err := validateURL(cfg.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	if cfg.CustodySecret == "" && cfg.CustodyKeypairPath == "" {
		return errors.New("custody_secret or custody_keypair_path is required")
	}
	if cfg.TokenMint == "" {
		return errors.New("token_mint is required")
	}
	if _, err := solana.PublicKeyFromBase58(cfg.TokenMint); err != nil {
		return fmt.Errorf("invalid token_mint: %w", err)
	}
	switch rpc.CommitmentType(cfg.Commitment) {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		return fmt.Errorf("invalid commitment %q", cfg.Commitment)
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.TokenDecimals > 18 {
		return errors.New("invalid token_decimals")
	}
	if cfg.TokenAmount == 0 {
		return errors.New("invalid token_amount")
	}
	if cfg.RequestTimeout <= 0 {
		return errors.New("invalid request_timeout")
	}
	if cfg.RPCTimeout <= 0 || cfg.RPCTimeout > cfg.RequestTimeout {
		return errors.New("invalid rpc_timeout: must be positive and not exceed request_timeout")
	}
	if cfg.RPCRetries < 0 {
		return errors.New("invalid rpc_retries count")
	}
	if cfg.RPCRetryDelay < 0 {
		return errors.New("invalid rpc_retry_delay")
	}
	if cfg.RPCRateLimit < 0 {
		return errors.New("invalid rpc_rate_limit")
	}
	if cfg.PriorityFeeMax != 0 && cfg.PriorityFeeMin > cfg.PriorityFeeMax {
		return errors.New("priority_fee_min exceeds priority_fee_max")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func cleanList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			clean := strings.TrimSpace(part)
			if clean != "" {
				out = append(out, clean)
			}
		}
	}
	return out
}

// TokenMintKey возвращает mint продаваемого токена. Конфигурация к этому моменту уже провалидирована.
func (c *Config) TokenMintKey() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.TokenMint)
}

// CommitmentType возвращает уровень commitment для чтения из леджера.
func (c *Config) CommitmentType() rpc.CommitmentType {
	return rpc.CommitmentType(c.Commitment)
}
