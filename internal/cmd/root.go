// Package cmd provides the command-line interface for wikicrawl.
// It handles command parsing, configuration loading, and crawler execution.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/masahif/wikicrawl/internal/config"
	"github.com/masahif/wikicrawl/internal/crawler"
	"github.com/masahif/wikicrawl/internal/logging"
	"github.com/masahif/wikicrawl/internal/storage"
)

const (
	envPrefix      = "WIKICRAWL"
	configName     = "wikicrawl"
	defaultAgent   = "wikicrawl/1.0"
	configFileHint = "./wikicrawl.yml"
)

var (
	cfgFile   string
	version   string
	buildTime string

	// configErr is set by initConfig when an explicitly requested file cannot be read
	configErr error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wikicrawl <start-url>",
	Short: "A breadth-first crawler for wiki article links",
	Long: `wikicrawl crawls an encyclopedia-style wiki breadth-first from one start URL.

Every article link found on a fetched page is stored exactly once in a durable
link store, and the crawl expands level by level up to the configured depth.
Links stored by earlier runs are never fetched again.`,
	Args:          startURLArgs,
	RunE:          runCrawler,
	SilenceErrors: true,
}

// linksCmd prints the contents of the link store
var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "List stored article URLs",
	Args:  cobra.NoArgs,
	RunE:  runLinks,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := config.DefaultConfig()

	// Configuration file flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is "+configFileHint+")")

	// Store and logging flags are shared with subcommands
	rootCmd.PersistentFlags().String("database", defaults.Store.Path, "Path to SQLite database file")
	rootCmd.PersistentFlags().String("store-driver", defaults.Store.Driver, "Link store driver: 'sqlite' or 'postgres'")
	rootCmd.PersistentFlags().String("store-dsn", "", "PostgreSQL connection string (postgres driver)")
	rootCmd.PersistentFlags().String("log-level", defaults.Log.Level, "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", defaults.Log.Format, "Log format: text or json")
	rootCmd.PersistentFlags().String("log-file", "", "Also write logs to this file, rotated by size")

	// Configuration management flags
	rootCmd.Flags().Bool("show-config", false, "Display current configuration in YAML format and exit")

	// Crawl flags
	rootCmd.Flags().IntP("depth", "d", defaults.MaxDepth, "Number of breadth-first levels to crawl")
	rootCmd.Flags().IntP("workers", "w", defaults.MaxWorkers, "Maximum concurrent fetches per level")
	rootCmd.Flags().DurationP("timeout", "t", defaults.RequestTimeout, "Per-request fetch timeout")
	rootCmd.Flags().Int("retries", defaults.FetchRetries, "Extra attempts for timeouts and 5xx/429 responses")
	rootCmd.Flags().Duration("retry-backoff", defaults.RetryBackoff, "Delay before the first retry, doubled per attempt")
	rootCmd.Flags().StringP("user-agent", "u", defaults.UserAgent, "HTTP User-Agent header")
	rootCmd.Flags().StringSliceP("header", "H", []string{}, "Custom HTTP headers in 'Name: Value' format (use multiple times for multiple headers)")
	rootCmd.Flags().Bool("progress", false, "Show a progress bar per level on stderr")

	linksCmd.Flags().Bool("count", false, "Print only the number of stored URLs")
	rootCmd.AddCommand(linksCmd)
}

// bindFlags connects flags to viper keys. It runs on every initialization
// so a viper.Reset never leaves the flags detached.
func bindFlags() {
	bindings := []struct {
		viperKey string
		flagName string
		persist  bool
	}{
		{"max_depth", "depth", false},
		{"max_workers", "workers", false},
		{"request_timeout", "timeout", false},
		{"fetch_retries", "retries", false},
		{"retry_backoff", "retry-backoff", false},
		{"user_agent", "user-agent", false},
		{"headers", "header", false},
		{"progress", "progress", false},
		{"store.path", "database", true},
		{"store.driver", "store-driver", true},
		{"store.dsn", "store-dsn", true},
		{"log.level", "log-level", true},
		{"log.format", "log-format", true},
		{"log.file", "log-file", true},
	}

	for _, bind := range bindings {
		flags := rootCmd.Flags()
		if bind.persist {
			flags = rootCmd.PersistentFlags()
		}
		if err := viper.BindPFlag(bind.viperKey, flags.Lookup(bind.flagName)); err != nil {
			// Log the error but continue - non-critical for operation
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}
}

// setDefaults registers keys without a flag so they can still come from the environment
func setDefaults() {
	defaults := config.DefaultConfig()
	viper.SetDefault("article_prefix", defaults.ArticlePrefix)
	viper.SetDefault("namespace_separator", defaults.NamespaceSeparator)
	viper.SetDefault("log.max_size", defaults.Log.MaxSize)
	viper.SetDefault("log.max_backups", defaults.Log.MaxBackups)
	viper.SetDefault("log.max_age", defaults.Log.MaxAge)
	viper.SetDefault("log.compress", defaults.Log.Compress)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	configErr = nil
	setDefaults()
	bindFlags()

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in current directory
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(configName)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			configErr = fmt.Errorf("failed to read config file: %w", err)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
}

// startURLArgs requires exactly one start URL unless only the configuration is displayed
func startURLArgs(cmd *cobra.Command, args []string) error {
	if showConfig, _ := cmd.Flags().GetBool("show-config"); showConfig && len(args) == 0 {
		return nil
	}
	if len(args) != 1 {
		return fmt.Errorf("requires exactly one start URL, received %d", len(args))
	}
	return nil
}

func generateUserAgent() string {
	if version != "" && version != "dev" {
		return fmt.Sprintf("wikicrawl/%s", version)
	}
	return defaultAgent
}

// loadConfig merges defaults, config file, environment and flags
func loadConfig(cmd *cobra.Command) (*config.CrawlConfig, error) {
	if configErr != nil {
		return nil, configErr
	}

	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Update User-Agent with dynamic version if not explicitly set
	if flag := cmd.Flags().Lookup("user-agent"); flag != nil && !flag.Changed && cfg.UserAgent == defaultAgent {
		cfg.UserAgent = generateUserAgent()
	}

	return cfg, nil
}

func showCurrentConfig(out io.Writer, cfg *config.CrawlConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	// Validate configuration before showing it
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Configuration validation failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Displaying configuration anyway...\n\n")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	// Add header comment to the output
	fmt.Fprintf(out, "# Current wikicrawl configuration\n")
	fmt.Fprintf(out, "# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(out, "# Configuration file search paths: %s\n", configFileHint)
	fmt.Fprintf(out, "# Environment variables prefix: %s_\n\n", envPrefix)

	fmt.Fprint(out, string(yamlData))

	// Add footer with additional information
	fmt.Fprintf(out, "\n# Configuration source priority:\n")
	fmt.Fprintf(out, "# 1. Command-line arguments (highest priority)\n")
	fmt.Fprintf(out, "# 2. Environment variables (%s_ prefix)\n", envPrefix)
	fmt.Fprintf(out, "# 3. Configuration file (%s.yml)\n", configName)
	fmt.Fprintf(out, "# 4. Default values (lowest priority)\n")

	return nil
}

// setupLogging installs the process-wide slog logger described by cfg
func setupLogging(cmd *cobra.Command, cfg config.LogConfig) (io.Closer, error) {
	return logging.SetDefault(logging.Config{
		Level:      logging.ParseLevel(cfg.Level),
		Format:     cfg.Format,
		FilePath:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		Console:    true,
		Out:        cmd.ErrOrStderr(),
	})
}

// openStore opens the configured link store, creating the SQLite directory if needed
func openStore(ctx context.Context, cfg config.StoreConfig) (storage.LinkStore, error) {
	if cfg.Driver == config.DriverSQLite {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open link store: %w", err)
	}
	return store, nil
}

func runCrawler(cmd *cobra.Command, args []string) error {
	// Arguments are valid from here on; later failures are not usage errors
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Handle --show-config: display current configuration and exit
	if showConfig, _ := cmd.Flags().GetBool("show-config"); showConfig {
		return showCurrentConfig(cmd.OutOrStdout(), cfg)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logCloser, err := setupLogging(cmd, cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = logCloser.Close() }()

	// SIGINT/SIGTERM stop dispatching; running fetches drain before exit
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var opts []crawler.Option
	if cfg.Progress {
		opts = append(opts, crawler.WithObserver(newProgressObserver(cmd.ErrOrStderr())))
	}

	c, err := crawler.NewCrawler(cfg, store, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize crawler: %w", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.Crawl(ctx, args[0]); err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	stats := c.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "Crawl finished: %d levels, %d pages fetched, %d links stored, %d fetch errors, %d already known (%s)\n",
		stats.LevelsCompleted, stats.PagesFetched, stats.LinksStored, stats.FetchErrors, stats.SkippedKnown,
		stats.Duration.Round(time.Millisecond))
	return nil
}

func runLinks(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logCloser, err := setupLogging(cmd, cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = logCloser.Close() }()

	store, err := openStore(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	out := cmd.OutOrStdout()
	if count, _ := cmd.Flags().GetBool("count"); count {
		n, err := store.Count(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to count links: %w", err)
		}
		fmt.Fprintln(out, n)
		return nil
	}

	return store.List(cmd.Context(), func(url string) error {
		_, err := fmt.Fprintln(out, url)
		return err
	})
}
