package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/ilyakaznacheev/cleanenv"
)

type (
	Config struct {
		App      `json:"app"      toml:"app"`
		HTTP     `json:"http"     toml:"http"`
		DB       `json:"db"       toml:"db"`
		Platform `json:"platform" toml:"platform"`
		Solana   `json:"solana"   toml:"solana"`
		Workers  `json:"workers"  toml:"workers"`
		Log      `json:"logger"   toml:"logger"`
	}

	App struct {
		Name        string `json:"name"        toml:"name"        env:"APP_NAME"`
		Environment string `json:"environment" toml:"environment" env:"ENV_NAME" env-default:"dev"`
		Debug       bool   `json:"debug"       toml:"debug"       env:"DEBUG"    env-default:"false"`
	}

	HTTP struct {
		Port string `json:"port" toml:"port" env:"HTTP_PORT" env-default:"4000"`
	}

	DB struct {
		DatabaseURL       string `json:"database_url"        toml:"database_url"        env:"DATABASE_URL"`
		PoolMax           int32  `json:"pool_max"            toml:"pool_max"            env:"PG_POOL_MAX" env-default:"10"`
		ConnectTimeout    int    `json:"connect_timeout"     toml:"connect_timeout"     env:"PG_POOL_CONN_TIMEOUT" env-default:"5"`
		HealthCheckPeriod int    `json:"health_check_period" toml:"health_check_period" env:"PG_POOL_HEALTHCHECK" env-default:"1"`
	}

	// Platform holds the marketplace operator settings. FeePercent is the
	// percentage retained on every completed order.
	Platform struct {
		FeePercent    float64 `json:"fee_percent"    toml:"fee_percent"    env:"PLATFORM_FEE_PERCENT" env-default:"1"`
		WalletAddress string  `json:"wallet_address" toml:"wallet_address" env:"PLATFORM_WALLET_ADDRESS"`
	}

	// Solana describes the settlement network advertised in payment
	// instructions. The backend never talks to the chain itself.
	Solana struct {
		Network  string `json:"network"   toml:"network"   env:"SOLANA_NETWORK" env-default:"mainnet-beta"`
		USDCMint string `json:"usdc_mint" toml:"usdc_mint" env:"USDC_MINT" env-default:"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"`
	}

	Workers struct {
		// Minutes between listing-expiry sweeps.
		ListingExpiryInterval int `json:"listing_expiry_interval" toml:"listing_expiry_interval" env:"LISTING_EXPIRY_INTERVAL" env-default:"10"`
	}

	Log struct {
		Level slog.Level `json:"level" toml:"level" env:"LOG_LEVEL"`
	}
)

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	_, b, _, _ := runtime.Caller(0)
	basePath := filepath.Dir(b)

	configTomlPath := filepath.Join(basePath, "config.toml")
	err := cleanenv.ReadConfig(configTomlPath, cfg)
	if err != nil {
		configJsonPath := filepath.Join(basePath, "config.json")
		err = cleanenv.ReadConfig(configJsonPath, cfg)
		if err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	}

	err = cleanenv.ReadEnv(cfg)
	if err != nil {
		return nil, fmt.Errorf("env read error: %w", err)
	}

	return cfg, nil
}
