package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/catalogfi/blockchain/testutil"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var HomeDir string

// DevMnemonic is the mnemonic of the accounts prefunded by hardhat and anvil nodes.
const DevMnemonic = "test test test test test test test test test test test junk"

var ErrUnknownNetwork = errors.New("unknown network")

func init() {
	var err error
	HomeDir, err = os.UserHomeDir()
	if err != nil {
		log.Fatal("failed to get $HOME value")
	}
}

func DefaultDirectory() string {
	return filepath.Join(HomeDir, ".swapdeploy")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultDirectory(), "config.json")
}

func DefaultStorePath() string {
	return filepath.Join(DefaultDirectory(), "data.db")
}

type Network struct {
	URL      string   `json:"url" yaml:"url" validate:"required,url"`
	ChainID  uint64   `json:"chain_id" yaml:"chain_id"`
	Accounts []string `json:"accounts,omitempty" yaml:"accounts,omitempty" validate:"dive,hexadecimal"`
	Mnemonic string   `json:"mnemonic,omitempty" yaml:"mnemonic,omitempty"`
	HDPath   string   `json:"hd_path,omitempty" yaml:"hd_path,omitempty"`
	HDCount  int      `json:"hd_count,omitempty" yaml:"hd_count,omitempty" validate:"gte=0"`

	GasLimit              uint64 `json:"gas_limit,omitempty" yaml:"gas_limit,omitempty"`
	ConfirmTimeoutSeconds int    `json:"confirm_timeout_seconds,omitempty" yaml:"confirm_timeout_seconds,omitempty" validate:"gte=0"`
}

type Contracts struct {
	TokenA string `json:"token_a" yaml:"token_a" validate:"required"`
	TokenB string `json:"token_b" yaml:"token_b" validate:"required"`
	Swap   string `json:"swap" yaml:"swap" validate:"required"`
}

type Amounts struct {
	TokenA string `json:"token_a" yaml:"token_a" validate:"required,numeric"`
	TokenB string `json:"token_b" yaml:"token_b" validate:"required,numeric"`
}

type Config struct {
	DefaultNetwork string             `json:"default_network" yaml:"default_network" validate:"required"`
	Networks       map[string]Network `json:"networks" yaml:"networks" validate:"required,min=1,dive"`
	Artifacts      string             `json:"artifacts" yaml:"artifacts" validate:"required"`
	Contracts      Contracts          `json:"contracts" yaml:"contracts"`
	Amounts        Amounts            `json:"amounts" yaml:"amounts"`
	DB             string             `json:"db,omitempty" yaml:"db,omitempty"`
	LogFile        string             `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	Sentry         string             `json:"sentry,omitempty" yaml:"sentry,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		DefaultNetwork: "localhost",
		Networks: map[string]Network{
			"localhost": {
				URL:      "http://127.0.0.1:8545",
				ChainID:  31337,
				Mnemonic: DevMnemonic,
			},
		},
		Artifacts: "artifacts",
		Contracts: Contracts{
			TokenA: "TokenA",
			TokenB: "TokenB",
			Swap:   "TokenSwap",
		},
		Amounts: Amounts{
			TokenA: "1000",
			TokenB: "2000",
		},
	}
}

// LoadConfig reads the config file on top of the defaults. A missing file is not an error, the
// defaults target a local development node. Json and yaml files are both accepted.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return config, err
		}
	} else {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, &config)
		default:
			err = json.Unmarshal(data, &config)
		}
		if err != nil {
			return config, fmt.Errorf("failed to parse config %v: %w", path, err)
		}
	}

	config.DefaultNetwork = testutil.ParseStringEnv("NETWORK", config.DefaultNetwork)
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func (config Config) Validate() error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, ok := config.Networks[config.DefaultNetwork]; !ok {
		return fmt.Errorf("%w: %v", ErrUnknownNetwork, config.DefaultNetwork)
	}
	return nil
}

// Network returns the named network, or the default one when name is empty, with the RPC_URL,
// PRIVATE_KEY and MNEMONIC env overrides applied.
func (config Config) Network(name string) (Network, error) {
	if name == "" {
		name = config.DefaultNetwork
	}
	network, ok := config.Networks[name]
	if !ok {
		return Network{}, fmt.Errorf("%w: %v", ErrUnknownNetwork, name)
	}

	network.URL = testutil.ParseStringEnv("RPC_URL", network.URL)
	network.Mnemonic = testutil.ParseStringEnv("MNEMONIC", network.Mnemonic)
	if key := testutil.ParseStringEnv("PRIVATE_KEY", ""); key != "" {
		network.Accounts = append([]string{key}, network.Accounts...)
	}
	return network, nil
}
