package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mj1618/ui-harness/internal/config"
	"github.com/mj1618/ui-harness/internal/diag"
	"github.com/mj1618/ui-harness/internal/output"
	"github.com/mj1618/ui-harness/internal/version"
)

// cfg is the active configuration, loaded by the root command's pre-run.
var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "uiharness",
	Short: "Launch and verify desktop applications through their accessibility tree",
	Long: "A test harness that launches a compiled desktop application as a separate\n" +
		"process, attaches an automation root to it, drives and inspects its UI\n" +
		"element tree, and tears everything down deterministically.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().String("format", "yaml", "Output format: yaml, json")
	rootCmd.PersistentFlags().Bool("pretty", false, "Pretty-print JSON output")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Path to a harness config file")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := rootCmd.PersistentFlags().GetString("config")
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded

		verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
		diag.Init(verbose || cfg.Verbose, os.Stderr)

		// Use the root persistent flag directly to avoid conflicts with
		// subcommand local flags (e.g. screenshot --format png).
		format, _ := rootCmd.PersistentFlags().GetString("format")
		switch format {
		case "yaml":
			output.OutputFormat = output.FormatYAML
		case "json":
			output.OutputFormat = output.FormatJSON
		default:
			return fmt.Errorf("unsupported format: %s (use yaml or json)", format)
		}
		pretty, _ := rootCmd.PersistentFlags().GetBool("pretty")
		output.PrettyOutput = pretty
		return nil
	}
}
