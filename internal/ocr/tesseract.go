package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// tesseract runs the binary on one PNG and returns its trimmed stdout.
func tesseract(ctx context.Context, binary, languages string, pngData []byte) (string, error) {
	dir, err := os.MkdirTemp("", "pricecase-ocr-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "image.png")
	if err := os.WriteFile(input, pngData, 0o600); err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, input, "stdout", "-l", languages)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
