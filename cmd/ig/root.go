// SPDX-License-Identifier: MPL-2.0

// Command ig resolves declarative layer files into a validated, ordered,
// fully-expanded environment variable set.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/suddenlysixam/rpi-image-gen/internal/config"
	"github.com/suddenlysixam/rpi-image-gen/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug logging
	verbose bool

	// cfg is the loaded tool configuration, available to all subcommands.
	cfg *config.Config

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "ig",
		Short: "Layer metadata and environment resolution",
		Long: TitleStyle.Render("ig") + SubtitleStyle.Render(" - layer metadata and environment resolution") + `

ig reads declarative layer files carrying embedded X-Env metadata,
resolves their dependency graph, and produces a validated, ordered,
fully-expanded set of environment variables.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Put layer files (*.yaml) under ./layer, ./device or ./image
  2. Inspect them with: ig layer --list
  3. Resolve the environment with: ig layer --apply-env <name>

` + SubtitleStyle.Render("Examples:") + `
  ig metadata --parse base.yaml      Parse and resolve a single file
  ig metadata --lint base.yaml       Lint the metadata block
  ig layer --build-order app         Show the dependency build order
  ig layer --apply-env app           Resolve and print the environment
  ig config show                     Show current configuration`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(metadataCmd)
	rootCmd.AddCommand(layerCmd)
	rootCmd.AddCommand(configCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig reads in the config file and IG_* environment variables.
func initRootConfig() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		printGuidance(err)
		cfg = config.DefaultConfig()
	}
	if cfg.Verbose || verbose {
		verbose = true
		log.SetLevel(log.DebugLevel)
	}
}

// formatErrorForDisplay renders an error, expanding actionable context and
// suggestions when present.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// fail prints err, renders any matching catalog guidance, and makes the
// process exit with status 1, keeping cobra from repeating the message
// or dumping usage.
func fail(cmd *cobra.Command, err error) error {
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	printGuidance(err)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return &ExitError{Code: 1}
}
