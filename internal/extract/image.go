package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"strings"
)

// ErrOCRDisabled is returned for images when OCR is turned off.
var ErrOCRDisabled = errors.New("extract: ocr disabled")

// imageExtractor recognises text in raster images with the tesseract CLI.
type imageExtractor struct {
	opts OCROptions
}

func (e *imageExtractor) Extract(ctx context.Context, path string) (string, error) {
	if !e.opts.Enabled {
		return "", ErrOCRDisabled
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	_, _, err = image.DecodeConfig(f)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	command := e.opts.Command
	if command == "" {
		command = "tesseract"
	}
	bin, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	args := []string{path, "stdout"}
	if e.opts.Language != "" {
		args = append(args, "-l", e.opts.Language)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ocr: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
