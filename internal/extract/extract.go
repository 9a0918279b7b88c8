package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"contract-review-backend/internal/shared/telemetry"
)

// Typed extraction failures.
var (
	// ErrFailed means the container could not be opened or its body part is
	// absent or malformed. Lower formatting fidelity alone never fails.
	ErrFailed = errors.New("could not extract text from document")
	// ErrNoText means extraction succeeded but produced only whitespace.
	ErrNoText = errors.New("document contains no extractable text")
)

const defaultTimeout = 30 * time.Second

// Extractor produces a flat text rendering of a document body. The primary
// docx path shells out to an external text renderer; any failure there falls
// back silently to reading the container's body XML directly.
type Extractor struct {
	// Tool is the text-rendering binary; defaults to pandoc.
	Tool    string
	Timeout time.Duration
}

func (e Extractor) tool() string {
	if e.Tool != "" {
		return e.Tool
	}
	return "pandoc"
}

func (e Extractor) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return defaultTimeout
}

// FromDocx extracts plain text from a .docx file.
func (e Extractor) FromDocx(ctx context.Context, path string) (string, error) {
	text, err := e.renderWithTool(ctx, path)
	if err == nil {
		return text, nil
	}
	telemetry.Info("extract.fallback", map[string]any{"reason": err.Error()})
	return manualDocxText(path)
}

func (e Extractor) renderWithTool(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, e.tool(), path, "-t", "plain", "--wrap=none")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("text renderer timed out")
		}
		return "", fmt.Errorf("text renderer: %v", err)
	}
	return stdout.String(), nil
}

// manualDocxText reads word/document.xml from the container and concatenates
// all text-run contents, with a line break at each paragraph boundary.
func manualDocxText(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: open container: %v", ErrFailed, err)
	}
	defer zr.Close()

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("%w: document.xml not found", ErrFailed)
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open document.xml: %v", ErrFailed, err)
	}
	defer rc.Close()

	text, err := stripBodyXML(rc)
	if err != nil {
		return "", fmt.Errorf("%w: parse document.xml: %v", ErrFailed, err)
	}
	return text, nil
}

func stripBodyXML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var buf strings.Builder
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inText = t.Name.Local == "t"
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		case xml.EndElement:
			inText = false
			if t.Name.Local == "p" || t.Name.Local == "br" {
				buf.WriteByte('\n')
			}
		}
	}
	return buf.String(), nil
}

// FromPDF extracts plain text from a PDF file. PDFs are analysis-only; they
// are never annotated.
func FromPDF(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read pdf: %v", ErrFailed, err)
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: parse pdf: %v", ErrFailed, err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: render pdf text: %v", ErrFailed, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("%w: read pdf text: %v", ErrFailed, err)
	}
	return buf.String(), nil
}

// CheckText applies the caller-side empty check shared by all paths.
func CheckText(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}
