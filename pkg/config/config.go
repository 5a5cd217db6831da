package config

// Package config provides a reusable loader for marconet node configuration
// files and environment variables.
//
// Version: v0.2.0

import (
	"fmt"

	"github.com/spf13/viper"

	"marconet/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.2.0"

// Config represents the unified configuration for a marconet node. Load
// fills it from a default.yaml (plus an optional per-environment file)
// found under cmd/config or config, falling back to built-in defaults when
// no such file exists.
type Config struct {
	Node struct {
		Seed          string `mapstructure:"seed" json:"seed"`
		ListenAddr    string `mapstructure:"listen_addr" json:"listen_addr"`
		BootstrapFile string `mapstructure:"bootstrap_file" json:"bootstrap_file"`
		BootstrapOnly bool   `mapstructure:"bootstrap_only" json:"bootstrap_only"`
		IsMiner       bool   `mapstructure:"is_miner" json:"is_miner"`
		MiningReward  float64 `mapstructure:"mining_reward" json:"mining_reward"`
	} `mapstructure:"node" json:"node"`

	TLS struct {
		Enabled  bool   `mapstructure:"enabled" json:"enabled"`
		CertFile string `mapstructure:"cert_file" json:"cert_file"`
		KeyFile  string `mapstructure:"key_file" json:"key_file"`
		CAFile   string `mapstructure:"ca_file" json:"ca_file"`
		ServerName string `mapstructure:"server_name" json:"server_name"`
	} `mapstructure:"tls" json:"tls"`

	Kademlia struct {
		BucketSize int     `mapstructure:"bucket_size" json:"bucket_size"`
		Alpha      int     `mapstructure:"alpha" json:"alpha"`
		Beta       float64 `mapstructure:"beta" json:"beta"`
	} `mapstructure:"kademlia" json:"kademlia"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("node.listen_addr", fmt.Sprintf(":%d", 8635))
	viper.SetDefault("node.bootstrap_file", "bootstrap.txt")
	viper.SetDefault("node.mining_reward", 1.0)
	viper.SetDefault("tls.enabled", true)
	viper.SetDefault("tls.server_name", "example.com")
	viper.SetDefault("kademlia.bucket_size", 3)
	viper.SetDefault("kademlia.alpha", 7)
	viper.SetDefault("kademlia.beta", 0.65)
	viper.SetDefault("logging.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // environment variables named like an upper-cased config key override it; no .env file is read

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the MARCONET_ENV environment
// variable. Setting TLS=1 sets TLS.Enabled regardless of what the config
// file says. No code outside pkg/config reads TLS.Enabled: core's transport
// always dials and listens with TLS credentials.
func LoadFromEnv() (*Config, error) {
	cfg, err := Load(utils.EnvOrDefault("MARCONET_ENV", ""))
	if err != nil {
		return nil, err
	}
	if utils.EnvOrDefault("TLS", "") == "1" {
		cfg.TLS.Enabled = true
	}
	return cfg, nil
}
