package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/ui-harness/internal/harness"
	"github.com/mj1618/ui-harness/internal/output"
	"github.com/mj1618/ui-harness/internal/retry"
)

var launchCmd = &cobra.Command{
	Use:   "launch <executable> [args...]",
	Short: "Smoke-launch an application and verify its main window comes up",
	Long: "Launch the application, attach an automation root, wait for a ready main\n" +
		"window (available and responsive, crash dialogs detected), then tear the\n" +
		"process down. Exits non-zero if the window never becomes ready.",
	Args: cobra.MinimumNArgs(1),
	RunE: runLaunch,
}

func init() {
	rootCmd.AddCommand(launchCmd)
	launchCmd.Flags().Int("timeout", 0, "Max seconds to wait for the main window (0 = default)")
	launchCmd.Flags().Int("interval", 500, "Polling interval in milliseconds")
	launchCmd.Flags().Bool("exclusive", false, "Serialize against other exclusive automation sessions")
	launchCmd.Flags().Duration("hold", 0, "Keep the session alive this long before teardown")
}

func runLaunch(cmd *cobra.Command, args []string) error {
	h, err := newHarness()
	if err != nil {
		return err
	}
	defer h.Close()

	timeoutSec, _ := cmd.Flags().GetInt("timeout")
	intervalMs, _ := cmd.Flags().GetInt("interval")
	exclusive, _ := cmd.Flags().GetBool("exclusive")
	hold, _ := cmd.Flags().GetDuration("hold")

	opts := harness.LaunchOptions{
		Executable: args[0],
		Args:       args[1:],
		Exclusive:  exclusive,
	}
	if timeoutSec > 0 {
		p, err := retry.NewPolicy("launch", time.Duration(timeoutSec)*time.Second,
			time.Duration(intervalMs)*time.Millisecond)
		if err != nil {
			return err
		}
		opts.Policy = p
	}

	ctx := cmd.Context()
	start := time.Now()
	s, err := h.Launch(ctx, opts)
	if err != nil {
		return err
	}
	defer h.Teardown(context.WithoutCancel(ctx), s)

	if hold > 0 {
		select {
		case <-time.After(hold):
		case <-ctx.Done():
		}
	}

	win := s.Window()
	return output.Print(output.LaunchResult{
		Executable: args[0],
		PID:        s.PID(),
		Window:     win.Title,
		WindowID:   win.ID,
		Elapsed:    time.Since(start).Round(time.Millisecond).String(),
	})
}
