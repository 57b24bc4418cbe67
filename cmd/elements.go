package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/ui-harness/internal/automation"
	"github.com/mj1618/ui-harness/internal/output"
)

var elementsCmd = &cobra.Command{
	Use:   "elements",
	Short: "Read the element tree of a running process",
	Long: "Attach to a running process by PID and dump its element tree. The read\n" +
		"can be scoped to one window, a maximum depth, or a set of control kinds.",
	RunE: runElements,
}

func init() {
	rootCmd.AddCommand(elementsCmd)
	elementsCmd.Flags().Int("pid", 0, "Process to attach to (required)")
	elementsCmd.Flags().Int("window-id", 0, "Read only this window (0 = all windows)")
	elementsCmd.Flags().Int("depth", 0, "Max traversal depth (0 = unlimited)")
	elementsCmd.Flags().StringArray("kind", nil, "Only include this kind (repeatable, e.g. btn, input)")
}

func runElements(cmd *cobra.Command, args []string) error {
	pid, _ := cmd.Flags().GetInt("pid")
	windowID, _ := cmd.Flags().GetInt("window-id")
	depth, _ := cmd.Flags().GetInt("depth")
	kindFlags, _ := cmd.Flags().GetStringArray("kind")

	if pid == 0 {
		return fmt.Errorf("--pid is required")
	}

	driver, err := automation.NewDriver()
	if err != nil {
		return err
	}
	root, err := driver.Attach(pid)
	if err != nil {
		return fmt.Errorf("attach to pid %d: %w", pid, err)
	}
	defer root.Release()

	tree, err := root.Elements(automation.ReadOptions{
		WindowID: windowID,
		Depth:    depth,
		Kinds:    parseKinds(kindFlags),
	})
	if err != nil {
		return fmt.Errorf("read elements: %w", err)
	}

	res := output.TreeResult{
		PID:      pid,
		TS:       time.Now().Unix(),
		Elements: tree,
	}
	if wins, err := root.Windows(); err == nil {
		for _, w := range wins {
			if w.Main {
				res.Window = w.Title
				break
			}
		}
	}
	return output.Print(res)
}
