package config

// Package config provides a reusable loader for an Elena node's
// configuration file and environment variable overrides. It is versioned so
// that applications can depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"elena-node/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for an Elena node. It mirrors the
// structure of the YAML files under config/.
type Config struct {
	Network struct {
		ListenAddr     string   `mapstructure:"listen_addr" json:"listen_addr"`
		BootstrapPeers []string `mapstructure:"bootstrap_peers" json:"bootstrap_peers"`
		DiscoveryTag   string   `mapstructure:"discovery_tag" json:"discovery_tag"`
	} `mapstructure:"network" json:"network"`

	Node struct {
		DataDir      string  `mapstructure:"data_dir" json:"data_dir"`
		WalletName   string  `mapstructure:"wallet_name" json:"wallet_name"`
		InitBalance  uint64  `mapstructure:"init_balance" json:"init_balance"`
		EnableChaff  bool    `mapstructure:"enable_chaff" json:"enable_chaff"`
		ChaffProb    float64 `mapstructure:"chaff_prob" json:"chaff_prob"`
		EmissionSecs int     `mapstructure:"emission_interval_secs" json:"emission_interval_secs"`
	} `mapstructure:"node" json:"node"`

	Admin struct {
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"admin" json:"admin"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads config/default.yaml and merges any environment-specific
// override file, then applies environment variable overrides
// (ELENA_NODE_DATA_DIR etc. via viper.AutomaticEnv). The resulting
// configuration is stored in AppConfig and returned.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("elena")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the ELENA_ENV environment variable
// to select an override file (empty ⇒ defaults only).
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("ELENA_ENV", ""))
}

func setDefaults() {
	viper.SetDefault("network.listen_addr", "/ip4/0.0.0.0/tcp/0")
	viper.SetDefault("network.discovery_tag", "elena-node")
	viper.SetDefault("node.data_dir", "./data")
	viper.SetDefault("node.wallet_name", "default")
	viper.SetDefault("node.init_balance", 0)
	viper.SetDefault("node.enable_chaff", false)
	viper.SetDefault("node.chaff_prob", 0.0)
	viper.SetDefault("node.emission_interval_secs", 0)
	viper.SetDefault("admin.listen_addr", "127.0.0.1:7700")
	viper.SetDefault("logging.level", "info")
}
