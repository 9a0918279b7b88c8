package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Typed conversion failures. Conversion failure is terminal for a request;
// there is no retry.
var (
	ErrTimeout       = errors.New("document conversion timed out")
	ErrFailed        = errors.New("document conversion failed")
	ErrOutputMissing = errors.New("conversion output file not created")
)

const defaultTimeout = 60 * time.Second

// Converter coerces legacy .doc files into .docx via an external converter.
type Converter struct {
	// Tool is the converter binary; defaults to soffice.
	Tool    string
	Timeout time.Duration
}

func (c Converter) tool() string {
	if c.Tool != "" {
		return c.Tool
	}
	return "soffice"
}

func (c Converter) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

// ToDocx converts the document at path and returns the sibling .docx path.
func (c Converter) ToDocx(ctx context.Context, path string) (string, error) {
	outDir := filepath.Dir(path)

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, c.tool(), "--headless", "--convert-to", "docx", "--outdir", outDir, path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrTimeout
		}
		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			diag = err.Error()
		}
		return "", fmt.Errorf("%w: %s", ErrFailed, diag)
	}

	docxPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".docx"
	if _, err := os.Stat(docxPath); err != nil {
		return "", ErrOutputMissing
	}
	return docxPath, nil
}
