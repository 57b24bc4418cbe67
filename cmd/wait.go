package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/ui-harness/internal/automation"
	"github.com/mj1618/ui-harness/internal/model"
	"github.com/mj1618/ui-harness/internal/output"
	"github.com/mj1618/ui-harness/internal/retry"
)

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for a UI condition in a running process",
	Long: "Attach to a running process by PID and poll its element tree until a\n" +
		"condition is met or the timeout elapses. Exits non-zero on timeout.",
	RunE: runWait,
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().Int("pid", 0, "Process to attach to (required)")
	waitCmd.Flags().String("for-text", "", "Wait for an element whose name or value contains this text")
	waitCmd.Flags().String("for-id", "", "Wait for an element with this automation id")
	waitCmd.Flags().String("for-kind", "", "Wait for an element of this kind (e.g. btn, input, item)")
	waitCmd.Flags().Bool("gone", false, "Invert: wait until the condition is NO LONGER true")
	waitCmd.Flags().Int("timeout", 30, "Max seconds to wait")
	waitCmd.Flags().Int("interval", 500, "Polling interval in milliseconds")
}

func runWait(cmd *cobra.Command, args []string) error {
	pid, _ := cmd.Flags().GetInt("pid")
	forText, _ := cmd.Flags().GetString("for-text")
	forID, _ := cmd.Flags().GetString("for-id")
	forKind, _ := cmd.Flags().GetString("for-kind")
	gone, _ := cmd.Flags().GetBool("gone")
	timeoutSec, _ := cmd.Flags().GetInt("timeout")
	intervalMs, _ := cmd.Flags().GetInt("interval")

	if pid == 0 {
		return fmt.Errorf("--pid is required")
	}
	q, err := buildQuery(forText, forID, forKind)
	if err != nil {
		return err
	}

	policy, err := retry.NewPolicy("wait",
		time.Duration(timeoutSec)*time.Second,
		time.Duration(intervalMs)*time.Millisecond)
	if err != nil {
		return err
	}
	policy = policy.Scaled(cfg.TimeoutMultiplier)

	driver, err := automation.NewDriver()
	if err != nil {
		return err
	}
	root, err := driver.Attach(pid)
	if err != nil {
		return fmt.Errorf("attach to pid %d: %w", pid, err)
	}
	defer root.Release()

	el, ok, stats := retry.PollUntil(cmd.Context(), policy, func() (model.Element, bool) {
		tree, err := root.Elements(automation.ReadOptions{})
		if err != nil {
			return model.Element{}, false
		}
		found, matched := model.FindFirst(tree, q)
		if gone {
			return found, !matched
		}
		return found, matched
	})

	res := output.WaitResult{
		Found:    ok,
		Elapsed:  stats.Elapsed.Round(time.Millisecond).String(),
		Attempts: stats.Attempts,
	}
	if ok && !gone {
		res.Element = &el
	}
	if err := output.Print(res); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("timed out waiting for %s: %s", q, stats)
	}
	return nil
}
