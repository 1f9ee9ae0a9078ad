package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// WhatsApp transport
	WhatsAppToken       string
	WhatsAppVerifyToken string
	WhatsAppPhoneID     string
	ListenAddr          string

	// Database configuration
	DatabaseURL string

	// Chain configuration
	RPCURL    string
	WSSRPCURL string
	ChainID   int64

	// Remote signer service
	SignerURL    string
	SignerAppID  string
	SignerSecret string

	// Game contract addresses, one per game kind
	FlipContract  string
	RPSContract   string
	LuckyContract string

	// Treasury wallet used to fund new users
	TreasuryWalletID string
	TreasuryAddress  string
	FundingAmount    decimal.Decimal

	// Stakes the wager wizard accepts; free-form amounts are rejected
	StakeAmounts []decimal.Decimal

	// Reconnect timing for the chain subscription supervisor
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration

	// Session idle expiry; zero disables expiry
	SessionIdleTimeout time.Duration

	// Price lookup
	CoinGeckoURL    string
	CoinGeckoAPIKey string

	// Observability
	OTelEnabled     bool
	OTelEndpoint    string
	OTelServiceName string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		if instance != nil {
			return
		}
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from the environment, reading a .env file first
// when one is present.
func load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		WhatsAppToken:       os.Getenv("WHATSAPP_TOKEN"),
		WhatsAppVerifyToken: os.Getenv("WHATSAPP_HOOK_TOKEN"),
		WhatsAppPhoneID:     os.Getenv("WHATSAPP_PHONE_ID"),
		ListenAddr:          ":8080",

		DatabaseURL: os.Getenv("DATABASE_URL"),

		RPCURL:    os.Getenv("RPC_URL"),
		WSSRPCURL: os.Getenv("WSS_RPC_URL"),
		ChainID:   43113, // Avalanche Fuji

		SignerURL:    os.Getenv("SIGNER_URL"),
		SignerAppID:  os.Getenv("SIGNER_APP_ID"),
		SignerSecret: os.Getenv("SIGNER_APP_SECRET"),

		FlipContract:  os.Getenv("FLIP_GAME_CONTRACT_ADDRESS"),
		RPSContract:   os.Getenv("RPS_GAME_CONTRACT_ADDRESS"),
		LuckyContract: os.Getenv("LUCKY_NUMBER_GAME_CONTRACT_ADDRESS"),

		TreasuryWalletID: os.Getenv("TREASURY_WALLET_ID"),
		TreasuryAddress:  os.Getenv("TREASURY_WALLET_ADDRESS"),
		FundingAmount:    decimal.RequireFromString("0.1"),

		StakeAmounts: defaultStakes(),

		ReconnectBaseDelay: 5 * time.Second,
		ReconnectMaxDelay:  60 * time.Second,

		SessionIdleTimeout: 0,

		CoinGeckoURL:    "https://api.coingecko.com/api/v3",
		CoinGeckoAPIKey: os.Getenv("COINGECKO_API_KEY"),

		OTelEnabled:     os.Getenv("OTEL_ENABLED") == "true",
		OTelEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTelServiceName: "mort-agent",

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		config.ListenAddr = addr
	}
	if raw := os.Getenv("FUNDING_AMOUNT"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid FUNDING_AMOUNT %q: %w", raw, err)
		}
		config.FundingAmount = amount
	}
	if raw := os.Getenv("STAKE_AMOUNTS"); raw != "" {
		stakes, err := parseStakes(raw)
		if err != nil {
			return nil, err
		}
		config.StakeAmounts = stakes
	}
	if raw := os.Getenv("RECONNECT_BASE_DELAY"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid RECONNECT_BASE_DELAY %q: %w", raw, err)
		}
		config.ReconnectBaseDelay = d
	}
	if raw := os.Getenv("RECONNECT_MAX_DELAY"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid RECONNECT_MAX_DELAY %q: %w", raw, err)
		}
		config.ReconnectMaxDelay = d
	}
	if raw := os.Getenv("SESSION_IDLE_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_IDLE_TIMEOUT %q: %w", raw, err)
		}
		config.SessionIdleTimeout = d
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.WhatsAppToken == "" {
			return nil, fmt.Errorf("WHATSAPP_TOKEN is required")
		}
		if config.WSSRPCURL == "" {
			return nil, fmt.Errorf("WSS_RPC_URL is required")
		}
		if config.SignerURL == "" {
			return nil, fmt.Errorf("SIGNER_URL is required")
		}
		if config.FlipContract == "" || config.RPSContract == "" || config.LuckyContract == "" {
			return nil, fmt.Errorf("all three game contract addresses are required")
		}
	}

	return config, nil
}

func defaultStakes() []decimal.Decimal {
	return []decimal.Decimal{
		decimal.RequireFromString("0.001"),
		decimal.RequireFromString("0.01"),
		decimal.RequireFromString("0.1"),
	}
}

func parseStakes(raw string) ([]decimal.Decimal, error) {
	var stakes []decimal.Decimal
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		stake, err := decimal.NewFromString(part)
		if err != nil {
			return nil, fmt.Errorf("invalid stake amount %q: %w", part, err)
		}
		stakes = append(stakes, stake)
	}
	if len(stakes) == 0 {
		return nil, fmt.Errorf("STAKE_AMOUNTS must list at least one stake")
	}
	return stakes, nil
}

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:        "test",
		StakeAmounts:       defaultStakes(),
		FundingAmount:      decimal.RequireFromString("0.1"),
		ReconnectBaseDelay: 5 * time.Second,
		ReconnectMaxDelay:  60 * time.Second,
	}
}
