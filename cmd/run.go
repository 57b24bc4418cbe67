package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/ui-harness/internal/harness"
	"github.com/mj1618/ui-harness/internal/output"
	"github.com/mj1618/ui-harness/internal/viewtest"
)

var runCmd = &cobra.Command{
	Use:   "run <views.yaml>",
	Short: "Run view tests from a YAML definitions file",
	Long: "Load view-test definitions, launch the application under test, navigate\n" +
		"to every view and verify its expected elements. Prints per-view results\n" +
		"and exits non-zero when any view fails.",
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("exe", "", "Executable under test (falls back to the configured override)")
	runCmd.Flags().StringArray("arg", nil, "Argument passed to the application (repeatable)")
	runCmd.Flags().Int("parallel", 1, "Max parallel sessions")
	runCmd.Flags().Bool("exclusive", false, "Serialize session launches globally")
}

func runRun(cmd *cobra.Command, args []string) error {
	defs, err := viewtest.Load(args[0])
	if err != nil {
		return err
	}

	exe, _ := cmd.Flags().GetString("exe")
	appArgs, _ := cmd.Flags().GetStringArray("arg")
	parallel, _ := cmd.Flags().GetInt("parallel")
	exclusive, _ := cmd.Flags().GetBool("exclusive")

	if exe == "" && cfg.ExecutableOverride == "" {
		return fmt.Errorf("no executable: pass --exe or configure an override")
	}

	h, err := newHarness()
	if err != nil {
		return err
	}
	defer h.Close()

	launch := func(ctx context.Context) (*harness.Session, error) {
		return h.Launch(ctx, harness.LaunchOptions{
			Executable: exe,
			Args:       appArgs,
			Exclusive:  exclusive,
		})
	}

	report, err := viewtest.NewRunner(h).RunAll(cmd.Context(), defs, launch, parallel)
	if err != nil {
		return err
	}
	if err := output.Print(report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d views failed", report.Failed, len(report.Results))
	}
	return nil
}
