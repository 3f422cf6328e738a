package cmd

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/masahif/wikicrawl/internal/config"
)

// resetCommand restores flags, viper and output between executions of the shared root command
func resetCommand(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	rootCmd.Flags().VisitAll(reset)
	rootCmd.PersistentFlags().VisitAll(reset)
	linksCmd.Flags().VisitAll(reset)

	cfgFile = ""
	viper.Reset()
	rootCmd.SilenceUsage = false
	linksCmd.SilenceUsage = false

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	return &stdout, &stderr
}

func TestSetVersionInfo(t *testing.T) {
	version := "1.2.3"
	buildTime := "2023-12-01T10:00:00Z"

	SetVersionInfo(version, buildTime)
	defer SetVersionInfo("", "")

	expected := "1.2.3 (built 2023-12-01T10:00:00Z)"
	if rootCmd.Version != expected {
		t.Errorf("Expected version %s, got %s", expected, rootCmd.Version)
	}
	if ua := generateUserAgent(); ua != "wikicrawl/1.2.3" {
		t.Errorf("Expected versioned User-Agent, got %s", ua)
	}
}

func TestRootCmd(t *testing.T) {
	if rootCmd.Use != "wikicrawl <start-url>" {
		t.Errorf("Expected use 'wikicrawl <start-url>', got %s", rootCmd.Use)
	}

	if rootCmd.RunE == nil {
		t.Error("RunE should be set to runCrawler")
	}

	found := false
	for _, sub := range rootCmd.Commands() {
		if sub == linksCmd {
			found = true
		}
	}
	if !found {
		t.Error("Expected the links subcommand to be registered")
	}
}

func TestFlagBinding(t *testing.T) {
	flags := rootCmd.Flags()

	expectedFlags := []string{
		"depth",
		"workers",
		"timeout",
		"retries",
		"retry-backoff",
		"user-agent",
		"header",
		"progress",
		"show-config",
	}
	for _, flagName := range expectedFlags {
		if flags.Lookup(flagName) == nil {
			t.Errorf("Expected flag %s to be defined", flagName)
		}
	}

	persistentFlags := rootCmd.PersistentFlags()
	for _, flagName := range []string{"config", "database", "store-driver", "store-dsn", "log-level", "log-format", "log-file"} {
		if persistentFlags.Lookup(flagName) == nil {
			t.Errorf("Expected persistent flag %s to be defined", flagName)
		}
	}

	defaults := config.DefaultConfig()
	if got := flags.Lookup("depth").DefValue; got != "6" {
		t.Errorf("Expected depth default 6, got %s", got)
	}
	if got := flags.Lookup("workers").DefValue; got != "50" {
		t.Errorf("Expected workers default 50, got %s", got)
	}
	if got := flags.Lookup("timeout").DefValue; got != defaults.RequestTimeout.String() {
		t.Errorf("Expected timeout default %s, got %s", defaults.RequestTimeout, got)
	}
}

func TestStartURLArgs(t *testing.T) {
	resetCommand(t)

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"no arguments", []string{}, true},
		{"one argument", []string{"https://en.wikipedia.org/wiki/Go"}, false},
		{"two arguments", []string{"https://a.test/wiki/A", "https://a.test/wiki/B"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := startURLArgs(rootCmd, tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("startURLArgs(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestExecuteUsageError(t *testing.T) {
	for _, args := range [][]string{{}, {"https://a.test/wiki/A", "https://a.test/wiki/B"}} {
		stdout, stderr := resetCommand(t)
		rootCmd.SetArgs(args)

		err := Execute()
		if err == nil {
			t.Fatalf("Expected an error for arguments %v", args)
		}
		if !strings.Contains(err.Error(), "exactly one start URL") {
			t.Errorf("Unexpected error: %v", err)
		}
		usage := stdout.String() + stderr.String()
		if !strings.Contains(usage, "Usage:") {
			t.Errorf("Expected usage to be printed, got %q", usage)
		}
	}
}

func TestInitConfig(t *testing.T) {
	resetCommand(t)

	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "wikicrawl.yml")

	configContent := `
max_depth: 3
max_workers: 7
request_timeout: 2s
user_agent: "TestAgent/1.0"
headers:
  - "From: crawler@example.com"
store:
  path: "` + filepath.Join(tempDir, "links.db") + `"
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfgFile = configFile
	initConfig()

	if viper.ConfigFileUsed() != configFile {
		t.Errorf("Expected config file %s, got %s", configFile, viper.ConfigFileUsed())
	}

	cfg, err := loadConfig(rootCmd)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.MaxDepth != 3 || cfg.MaxWorkers != 7 {
		t.Errorf("Expected depth 3 and workers 7, got %d and %d", cfg.MaxDepth, cfg.MaxWorkers)
	}
	if cfg.RequestTimeout.String() != "2s" {
		t.Errorf("Expected timeout 2s, got %s", cfg.RequestTimeout)
	}
	if cfg.UserAgent != "TestAgent/1.0" {
		t.Errorf("Expected user agent from file, got %s", cfg.UserAgent)
	}
	if h := cfg.ParsedHeaders(); h["From"] != "crawler@example.com" {
		t.Errorf("Expected From header from file, got %v", h)
	}
	if cfg.ArticlePrefix != "/wiki/" {
		t.Errorf("Expected default article prefix, got %s", cfg.ArticlePrefix)
	}
}

func TestInitConfigMissingFile(t *testing.T) {
	resetCommand(t)

	cfgFile = filepath.Join(t.TempDir(), "missing.yml")
	initConfig()

	if _, err := loadConfig(rootCmd); err == nil {
		t.Error("Expected an error for an explicitly requested missing config file")
	}
}

func TestShowConfig(t *testing.T) {
	stdout, _ := resetCommand(t)
	t.Setenv("WIKICRAWL_MAX_WORKERS", "9")
	rootCmd.SetArgs([]string{"--show-config", "--depth", "3"})

	if err := Execute(); err != nil {
		t.Fatalf("show-config failed: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{"max_depth: 3", "max_workers: 9", "request_timeout: 5s", "driver: sqlite"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in configuration output:\n%s", want, out)
		}
	}
}

func TestRunCrawlerInvalidConfig(t *testing.T) {
	resetCommand(t)
	rootCmd.SetArgs([]string{
		"https://wiki.test/wiki/A",
		"--workers", "0",
		"--database", filepath.Join(t.TempDir(), "links.db"),
	})

	err := Execute()
	if !errors.Is(err, config.ErrInvalidWorkers) {
		t.Errorf("Expected ErrInvalidWorkers, got %v", err)
	}
}

func TestRunCrawlerInvalidStartURL(t *testing.T) {
	resetCommand(t)
	rootCmd.SetArgs([]string{
		"ftp://wiki.test/wiki/A",
		"--database", filepath.Join(t.TempDir(), "links.db"),
		"--log-level", "error",
	})

	err := Execute()
	if err == nil || !strings.Contains(err.Error(), "invalid start URL") {
		t.Errorf("Expected invalid start URL error, got %v", err)
	}
}

func TestRunCrawlerAndListLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/wiki/A":
			_, _ = w.Write([]byte(`<a href="/wiki/B">B</a><a href="/wiki/Special:Random">Random</a>`))
		case "/wiki/B":
			_, _ = w.Write([]byte(`<a href="/wiki/C">C</a>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	dbPath := filepath.Join(t.TempDir(), "data", "links.db")

	stdout, stderr := resetCommand(t)
	rootCmd.SetArgs([]string{
		server.URL + "/wiki/A",
		"--database", dbPath,
		"--depth", "2",
		"--workers", "2",
		"--timeout", "2s",
		"--log-level", "warn",
	})
	if err := Execute(); err != nil {
		t.Fatalf("Crawl failed: %v (stderr: %s)", err, stderr.String())
	}
	if !strings.Contains(stdout.String(), "2 links stored") {
		t.Errorf("Unexpected summary: %s", stdout.String())
	}

	stdout, _ = resetCommand(t)
	rootCmd.SetArgs([]string{"links", "--database", dbPath})
	if err := Execute(); err != nil {
		t.Fatalf("links failed: %v", err)
	}
	want := server.URL + "/wiki/A\n" + server.URL + "/wiki/B\n"
	if stdout.String() != want {
		t.Errorf("links output = %q, want %q", stdout.String(), want)
	}

	stdout, _ = resetCommand(t)
	rootCmd.SetArgs([]string{"links", "--count", "--database", dbPath})
	if err := Execute(); err != nil {
		t.Fatalf("links --count failed: %v", err)
	}
	if strings.TrimSpace(stdout.String()) != "2" {
		t.Errorf("Expected count 2, got %q", stdout.String())
	}
}
