package providers

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"matchbot/internal/perception"
	"matchbot/internal/types"
)

// TesseractProvider extracts text with a local tesseract binary. It cannot
// classify screens; compose it with a vision provider for that.
type TesseractProvider struct {
	path string
}

// NewTesseractProvider creates a provider invoking the binary at path
// (usually just "tesseract" on PATH).
func NewTesseractProvider(path string) *TesseractProvider {
	return &TesseractProvider{path: path}
}

// ExtractText runs OCR over the image via tesseract's stdin/stdout mode.
// PSM 6 assumes a uniform block of text, which fits profile screenshots.
func (p *TesseractProvider) ExtractText(ctx context.Context, image []byte) (string, error) {
	cmd := exec.CommandContext(ctx, p.path, "stdin", "stdout", "--psm", "6")
	cmd.Stdin = bytes.NewReader(image)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: tesseract failed: %v (%s)", types.ErrAdapter, err, stderr.String())
	}

	return perception.CleanText(out.String()), nil
}

// ClassifyScreen is not supported by OCR alone.
func (p *TesseractProvider) ClassifyScreen(ctx context.Context, image []byte) (*perception.Classification, error) {
	return nil, fmt.Errorf("%w: tesseract provider cannot classify screens", types.ErrAdapter)
}
