package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/nomadcompass/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set NomadCompass configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "data_dir: %s\n", c.DataDir)
		fmt.Fprintf(out, "population_file: %s\n", c.PopulationFile)
		fmt.Fprintf(out, "nha_file: %s\n", c.NHAFile)
		fmt.Fprintf(out, "categorical_cpi_file: %s\n", c.CategoricalCPIFile)
		if c.AggregateCPIFile != "" {
			fmt.Fprintf(out, "aggregate_cpi_file: %s\n", c.AggregateCPIFile)
		}
		fmt.Fprintf(out, "imf_base_url: %s\n", c.IMFBaseURL)
		fmt.Fprintf(out, "imf_dataflow: %s\n", c.IMFDataflow)
		fmt.Fprintf(out, "aggregate_key: %s (%s-%s)\n", c.AggregateKey, c.AggregateStart, c.AggregateEnd)
		fmt.Fprintf(out, "categorical_key: %s (%s-%s)\n", c.CategoricalKey, c.CategoricalStart, c.CategoricalEnd)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", c.HTTPTimeoutSec)
		fmt.Fprintf(out, "retry_max_attempts: %d\n", c.RetryMaxAttempts)
		fmt.Fprintf(out, "listen_addr: %s\n", c.ListenAddr)
		fmt.Fprintf(out, "cache_backend: %s (ttl %ds)\n", c.CacheBackend, c.CacheTTLSec)
		if strings.EqualFold(c.CacheBackend, "redis") {
			fmt.Fprintf(out, "redis_addr: %s\n", c.RedisAddr)
			fmt.Fprintf(out, "redis_password: %s\n", mask(c.RedisPassword))
		}
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", c.LogFormat)
		fmt.Fprintf(out, "cluster_seed: %d\n", c.ClusterSeed)
		fmt.Fprintf(out, "cluster_n_init: %d\n", c.ClusterNInit)
		fmt.Fprintf(out, "cluster_max_iter: %d\n", c.ClusterMaxIter)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := ensureConfig()
		if err != nil {
			return err
		}
		if err := setKey(c, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setKey(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "data_dir":
		c.DataDir = val
	case "population_file":
		c.PopulationFile = val
	case "nha_file":
		c.NHAFile = val
	case "categorical_cpi_file":
		c.CategoricalCPIFile = val
	case "aggregate_cpi_file":
		c.AggregateCPIFile = val
	case "imf_base_url":
		c.IMFBaseURL = val
	case "listen_addr":
		c.ListenAddr = val
	case "cache_backend":
		switch strings.ToLower(val) {
		case "memory", "redis":
			c.CacheBackend = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid cache_backend: %s (use memory or redis)", val)
		}
	case "redis_addr":
		c.RedisAddr = val
	case "redis_password":
		c.RedisPassword = val
	case "log_level":
		c.LogLevel = val
	case "log_format":
		c.LogFormat = val
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi()
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi()
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi()
	case "cache_ttl_sec":
		c.CacheTTLSec, err = atoi()
	case "cluster_n_init":
		c.ClusterNInit, err = atoi()
	case "cluster_max_iter":
		c.ClusterMaxIter, err = atoi()
	case "cluster_seed":
		var seed int64
		seed, err = strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int for cluster_seed: %v", val)
		}
		c.ClusterSeed = seed
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
