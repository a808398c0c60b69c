package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/nomadcompass/internal/cache"
	cfgpkg "github.com/KaramelBytes/nomadcompass/internal/config"
	"github.com/KaramelBytes/nomadcompass/internal/dataset"
	"github.com/KaramelBytes/nomadcompass/internal/logging"
	"github.com/KaramelBytes/nomadcompass/internal/report"
	"github.com/KaramelBytes/nomadcompass/internal/sdmx"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	dataDir string
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "nomad",
	Short: "NomadCompass: world economic, health and population insights",
	Long: `NomadCompass serves a dashboard of consumer price, health expenditure and population data
for comparing countries, and segments countries with K-Means clustering.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.nomadcompass/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding the dataset files (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max attempts on 429/5xx from the IMF API (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to ensureConfig
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
	applyFlagOverrides()
}

// ensureConfig loads configuration for commands run without OnInitialize.
func ensureConfig() (*cfgpkg.Global, error) {
	if cfg == nil {
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	applyFlagOverrides()
	return cfg, nil
}

func applyFlagOverrides() {
	f := rootCmd.PersistentFlags()
	if f.Changed("data-dir") && dataDir != "" {
		cfg.DataDir = dataDir
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
	if debug {
		cfg.LogLevel = "debug"
	}
}

// newLogger builds the logger from the effective configuration.
func newLogger(c *cfgpkg.Global) (*zap.Logger, func(), error) {
	return logging.New(c.LogLevel, c.LogFormat)
}

// newLoader wires the dataset cache, the SDMX client and the file sources.
func newLoader(c *cfgpkg.Global, log *zap.Logger) (*dataset.Loader, error) {
	store, err := cache.New(cache.Options{
		Backend:       c.CacheBackend,
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
	})
	if err != nil {
		return nil, err
	}
	client := sdmx.NewClient(sdmx.Options{
		BaseURL:          c.IMFBaseURL,
		HTTPTimeout:      c.HTTPTimeout(),
		RetryMaxAttempts: c.RetryMaxAttempts,
		RetryBaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		RetryMaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		Logger:           log,
	})
	return dataset.NewLoader(dataset.Options{
		Sources: dataset.Sources{
			Population:     c.Path(c.PopulationFile),
			NHA:            c.Path(c.NHAFile),
			CategoricalCPI: c.Path(c.CategoricalCPIFile),
			AggregateCPI:   c.Path(c.AggregateCPIFile),
		},
		Cache:   store,
		TTL:     c.CacheTTL(),
		Fetcher: client,
		AggregateQuery: sdmx.Query{
			Dataflow:    c.IMFDataflow,
			Key:         c.AggregateKey,
			StartPeriod: c.AggregateStart,
			EndPeriod:   c.AggregateEnd,
		},
		CategoricalQuery: sdmx.Query{
			Dataflow:    c.IMFDataflow,
			Key:         c.CategoricalKey,
			StartPeriod: c.CategoricalStart,
			EndPeriod:   c.CategoricalEnd,
		},
		Logger: log,
	}), nil
}

// session is the configuration, logger and loader shared by data commands.
type session struct {
	cfg    *cfgpkg.Global
	log    *zap.Logger
	loader *dataset.Loader
	sync   func()
}

func openSession() (*session, error) {
	c, err := ensureConfig()
	if err != nil {
		return nil, err
	}
	log, sync, err := newLogger(c)
	if err != nil {
		return nil, err
	}
	loader, err := newLoader(c, log)
	if err != nil {
		sync()
		return nil, err
	}
	return &session{cfg: c, log: log, loader: loader, sync: sync}, nil
}

func (s *session) Close() { s.sync() }

// warnAll prints degradation warnings to stderr.
func warnAll(cmd *cobra.Command, warnings ...string) {
	for _, w := range warnings {
		if w != "" {
			report.Warn(cmd.ErrOrStderr(), w)
		}
	}
}
