package cmd

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mj1618/ui-harness/internal/automation"
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture a window bitmap from a running process",
	Long:  "Attach to a running process by PID and capture a bitmap of one of its windows for post-mortem review.",
	RunE:  runScreenshot,
}

func init() {
	rootCmd.AddCommand(screenshotCmd)
	screenshotCmd.Flags().Int("pid", 0, "Process to attach to (required)")
	screenshotCmd.Flags().Int("window-id", 0, "Window to capture (default: the main window)")
	screenshotCmd.Flags().String("output", "", "Output file path (default: stdout as base64)")
	screenshotCmd.Flags().String("format", "png", "Image format: png, jpg")
	screenshotCmd.Flags().Int("quality", 80, "JPEG quality 1-100")
	screenshotCmd.Flags().Float64("scale", 1.0, "Scale factor 0.1-1.0")
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	pid, _ := cmd.Flags().GetInt("pid")
	windowID, _ := cmd.Flags().GetInt("window-id")
	outPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	quality, _ := cmd.Flags().GetInt("quality")
	scale, _ := cmd.Flags().GetFloat64("scale")

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

	if windowID == 0 {
		wins, err := root.Windows()
		if err != nil {
			return err
		}
		if len(wins) == 0 {
			return fmt.Errorf("pid %d has no windows to capture", pid)
		}
		windowID = wins[0].ID
		for _, w := range wins {
			if w.Main {
				windowID = w.ID
				break
			}
		}
	}

	data, err := root.CaptureWindow(windowID, automation.ScreenshotOptions{
		Format:  format,
		Quality: quality,
		Scale:   scale,
	})
	if err != nil {
		return err
	}

	if outPath != "" {
		return os.WriteFile(outPath, data, 0644)
	}

	// Default: stdout as base64 for easy agent consumption.
	encoder := base64.NewEncoder(base64.StdEncoding, os.Stdout)
	if _, err := encoder.Write(data); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	fmt.Println()
	return nil
}
