// Package cmd implements the stepflow command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version 是当前版本号
const Version = "1.0.0"

var (
	// 全局 flags
	cfgFile string
	debug   bool
	quiet   bool

	// exitCode carries a non-zero status out of commands that must still
	// run their deferred cleanup (lock release, log sync) before exiting.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "stepflow",
	Short: "YAML-driven step runner",
	Long: `stepflow executes numbered automation steps defined as YAML files.
Each step bundles sub-steps dispatched to plugins; parameters support
config placeholders, environment variables and templates, and sub-step
outputs can be transformed and handed to later sub-steps.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the runner configuration YAML")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "force DEBUG log level")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress console output")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate(fmt.Sprintf("stepflow version %s\n", Version))
}
