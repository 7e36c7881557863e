// Package ocr extracts text from scanned documents through external OCR
// tooling. The collaborator is opaque and fallible; callers must treat every
// failure as recoverable.
package ocr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rnicolet/bankmatch/internal/common"
)

// TextExtractor converts document bytes into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, language string) (string, error)
}

// CommandExtractor shells out to pdftoppm (poppler-utils) and tesseract,
// mirroring how statement scans are OCR'd in practice. Both binaries must be
// on PATH.
type CommandExtractor struct{}

// NewCommandExtractor creates an extractor backed by local OCR tooling.
func NewCommandExtractor() *CommandExtractor {
	return &CommandExtractor{}
}

// ExtractText rasterizes every PDF page and OCRs each one, concatenating
// page text with page separators.
func (e *CommandExtractor) ExtractText(ctx context.Context, data []byte, language string) (string, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return "", common.NewCollaboratorError("ocr", fmt.Errorf("pdftoppm not available: %w", err))
	}
	if _, err := exec.LookPath("tesseract"); err != nil {
		return "", common.NewCollaboratorError("ocr", fmt.Errorf("tesseract not available: %w", err))
	}

	if language == "" {
		language = "eng"
	}

	workDir, err := os.MkdirTemp("", "bankmatch-ocr-*")
	if err != nil {
		return "", common.NewCollaboratorError("ocr", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	pdfPath := filepath.Join(workDir, "input.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		return "", common.NewCollaboratorError("ocr", err)
	}

	// Rasterize pages to PNG at a resolution tesseract handles well.
	cmd := exec.CommandContext(ctx, "pdftoppm", "-png", "-r", "300", pdfPath, filepath.Join(workDir, "page"))
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", common.NewCollaboratorError("ocr", fmt.Errorf("pdftoppm failed: %v: %s", err, out))
	}

	images, err := filepath.Glob(filepath.Join(workDir, "page-*.png"))
	if err != nil || len(images) == 0 {
		return "", common.NewCollaboratorError("ocr", fmt.Errorf("no pages rasterized"))
	}
	sort.Strings(images)

	var pages []string
	for i, image := range images {
		out, ocrErr := exec.CommandContext(ctx, "tesseract", image, "stdout", "-l", language).Output()
		if ocrErr != nil {
			return "", common.NewCollaboratorError("ocr", fmt.Errorf("tesseract failed on page %d: %w", i+1, ocrErr))
		}
		pages = append(pages, fmt.Sprintf("--- Page %d ---\n%s", i+1, strings.TrimSpace(string(out))))
	}

	return strings.Join(pages, "\n"), nil
}
