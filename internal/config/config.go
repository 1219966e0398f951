package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Chains   []ChainConfig  `mapstructure:"chains"`
	Points   PointsConfig   `mapstructure:"points"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type ChainConfig struct {
	ID                 string `mapstructure:"id"`
	Name               string `mapstructure:"name"`
	RPCURL             string `mapstructure:"rpc_url"`
	ChainID            uint64 `mapstructure:"chain_id"`
	TokenAddress       string `mapstructure:"token_address"`
	VaultAddress       string `mapstructure:"vault_address"`
	TokenDecimals      int    `mapstructure:"token_decimals"`
	StartBlock         int64  `mapstructure:"start_block"`
	ConfirmationBlocks int    `mapstructure:"confirmation_blocks"`
	PullInterval       int    `mapstructure:"pull_interval"`
	BatchSize          int    `mapstructure:"batch_size"`
	Enabled            bool   `mapstructure:"enabled"`
}

// PointsConfig 积分策略配置
// 奖励数值与入金门槛均为策略常量，不允许在代码中写死
type PointsConfig struct {
	LoginSeed        int64   `mapstructure:"login_seed"`
	DepositAward     int64   `mapstructure:"deposit_award"`
	FeedbackAward    int64   `mapstructure:"feedback_award"`
	ShareXAward      int64   `mapstructure:"share_x_award"`
	TestnetClaim     int64   `mapstructure:"testnet_claim_award"`
	ReferralAward    int64   `mapstructure:"referral_award"`
	MinDepositAmount float64 `mapstructure:"min_deposit_amount"`
	SweepCron        string  `mapstructure:"sweep_cron"`
	SweepBatchSize   int     `mapstructure:"sweep_batch_size"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("points.login_seed", 50)
	v.SetDefault("points.deposit_award", 100)
	v.SetDefault("points.feedback_award", 50)
	v.SetDefault("points.share_x_award", 50)
	v.SetDefault("points.testnet_claim_award", 50)
	v.SetDefault("points.referral_award", 100)
	v.SetDefault("points.min_deposit_amount", 10)
	v.SetDefault("points.sweep_cron", "0 */10 * * * *")
	v.SetDefault("points.sweep_batch_size", 200)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func (c *Config) GetChainConfig(chainID string) (*ChainConfig, error) {
	for _, chain := range c.Chains {
		if chain.ID == chainID {
			return &chain, nil
		}
	}
	return nil, fmt.Errorf("chain config not found: %s", chainID)
}

func (c *Config) GetEnabledChains() []ChainConfig {
	var enabled []ChainConfig
	for _, chain := range c.Chains {
		if chain.Enabled {
			enabled = append(enabled, chain)
		}
	}
	return enabled
}
