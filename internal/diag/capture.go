package diag

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/mj1618/ui-harness/internal/automation"
)

// maxCaptureWidth bounds the stored bitmap; full-resolution captures of
// large windows are wasteful for post-mortem review.
const maxCaptureWidth = 800

// CaptureWindow grabs a bitmap of the window, downscales it, and writes it
// under dir with a collision-free name. Timestamps alone are not unique
// enough when failures arrive in rapid succession, so a short random suffix
// is appended. Returns the written path.
func CaptureWindow(root automation.Root, windowID int, dir, label string) (string, error) {
	data, err := root.CaptureWindow(windowID, automation.ScreenshotOptions{Format: "png"})
	if err != nil {
		return "", fmt.Errorf("capture window %d: %w", windowID, err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode capture: %w", err)
	}
	img = downscale(img, maxCaptureWidth)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create capture dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s-%s.png",
		sanitizeLabel(label),
		time.Now().Format("20060102-150405"),
		uuid.NewString()[:8])
	path := filepath.Join(dir, name)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode capture: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write capture: %w", err)
	}
	return path, nil
}

// downscale resizes the image to at most maxWidth, preserving aspect ratio.
func downscale(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxWidth {
		return img
	}
	h := b.Dy() * maxWidth / b.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// sanitizeLabel keeps capture file names filesystem-safe.
func sanitizeLabel(label string) string {
	if label == "" {
		return "capture"
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, label)
	return strings.Trim(cleaned, "-")
}
