package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sqfix/internal/config"
	"sqfix/internal/logging"
	"sqfix/internal/version"
)

var (
	// repoFlag is the CLI --repo flag value
	repoFlag string
)

var rootCmd = &cobra.Command{
	Use:   "sqfix",
	Short: "sqfix - automated code-quality issue repair",
	Long: `sqfix repairs reported code-quality issues by asking a language model for
minimal targeted edits, applying them transactionally, and accepting them only
when they pass syntax validation and change-size safety gates.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("sqfix version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", ".",
		"Path to the target repository")
}

// mustRepoRoot resolves --repo to an absolute directory or exits.
func mustRepoRoot() string {
	abs, err := filepath.Abs(repoFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid repository path %s: %v\n", repoFlag, err)
		os.Exit(1)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "Error: repository path not found: %s\n", abs)
		os.Exit(1)
	}
	return abs
}

// mustLoadConfig loads .sqfix/config.json or exits on a malformed file.
func mustLoadConfig(repoRoot string) *config.Config {
	cfg, err := config.Load(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func newLogger(cfg *config.Config) *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})
}
