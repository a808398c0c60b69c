package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Data sources
	DataDir            string `mapstructure:"data_dir" yaml:"data_dir"`
	PopulationFile     string `mapstructure:"population_file" yaml:"population_file"`
	NHAFile            string `mapstructure:"nha_file" yaml:"nha_file"`
	CategoricalCPIFile string `mapstructure:"categorical_cpi_file" yaml:"categorical_cpi_file"`
	AggregateCPIFile   string `mapstructure:"aggregate_cpi_file" yaml:"aggregate_cpi_file"`

	// IMF SDMX endpoint
	IMFBaseURL       string `mapstructure:"imf_base_url" yaml:"imf_base_url"`
	IMFDataflow      string `mapstructure:"imf_dataflow" yaml:"imf_dataflow"`
	AggregateKey     string `mapstructure:"aggregate_key" yaml:"aggregate_key"`
	AggregateStart   string `mapstructure:"aggregate_start" yaml:"aggregate_start"`
	AggregateEnd     string `mapstructure:"aggregate_end" yaml:"aggregate_end"`
	CategoricalKey   string `mapstructure:"categorical_key" yaml:"categorical_key"`
	CategoricalStart string `mapstructure:"categorical_start" yaml:"categorical_start"`
	CategoricalEnd   string `mapstructure:"categorical_end" yaml:"categorical_end"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Dashboard server
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`

	// Dataset cache
	CacheBackend  string `mapstructure:"cache_backend" yaml:"cache_backend"`
	CacheTTLSec   int    `mapstructure:"cache_ttl_sec" yaml:"cache_ttl_sec"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// Clustering
	ClusterSeed    int64 `mapstructure:"cluster_seed" yaml:"cluster_seed"`
	ClusterNInit   int   `mapstructure:"cluster_n_init" yaml:"cluster_n_init"`
	ClusterMaxIter int   `mapstructure:"cluster_max_iter" yaml:"cluster_max_iter"`
}

// HTTPTimeout returns the configured timeout as a duration.
func (c *Global) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// CacheTTL returns the configured dataset cache TTL.
func (c *Global) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// Path resolves a data file name against DataDir. Absolute names are returned unchanged.
func (c *Global) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.nomadcompass/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := configDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
// A .env file in the working directory is read first when present.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("NOMAD")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")
	v.SetDefault("population_file", "world_population_data.csv")
	v.SetDefault("nha_file", "NHA_indicators_PPP.csv")
	v.SetDefault("categorical_cpi_file", "imf_cpi_selected_categories_quarterly_data.csv")
	v.SetDefault("aggregate_cpi_file", "")
	// IMF defaults
	v.SetDefault("imf_base_url", "https://api.imf.org/external/sdmx/2.1/data/")
	v.SetDefault("imf_dataflow", "IMF.STA,CPI")
	v.SetDefault("aggregate_key", ".CPI._T.IX.Q")
	v.SetDefault("aggregate_start", "2015")
	v.SetDefault("aggregate_end", "2025")
	v.SetDefault("categorical_key", ".CPI.CP01+CP03+CP04+CP06+CP07+CP09+CP11+CP12.IX.Q")
	v.SetDefault("categorical_start", "2016")
	v.SetDefault("categorical_end", "2025")
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 30)
	v.SetDefault("retry_max_attempts", 1)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// server and cache
	v.SetDefault("listen_addr", ":8501")
	v.SetDefault("cache_backend", "memory")
	v.SetDefault("cache_ttl_sec", 3600)
	v.SetDefault("redis_addr", "127.0.0.1:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	// clustering
	v.SetDefault("cluster_seed", 42)
	v.SetDefault("cluster_n_init", 10)
	v.SetDefault("cluster_max_iter", 300)
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".nomadcompass"), nil
}
