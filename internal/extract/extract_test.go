package extract

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDocx(t *testing.T, bodyXML string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contract.docx")
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create docx: %v", err)
	}
	zw := zip.NewWriter(out)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := w.Write([]byte(bodyXML)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

const bodyXML = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>First clause.</w:t></w:r></w:p><w:p><w:r><w:t>Second clause.</w:t></w:r></w:p></w:body></w:document>`

func TestFromDocxUsesTool(t *testing.T) {
	tool := filepath.Join(t.TempDir(), "stub-renderer")
	script := "#!/bin/sh\necho 'rendered by tool'\n"
	if err := os.WriteFile(tool, []byte(script), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	path := writeDocx(t, bodyXML)

	e := Extractor{Tool: tool}
	text, err := e.FromDocx(context.Background(), path)
	if err != nil {
		t.Fatalf("FromDocx: %v", err)
	}
	if !strings.Contains(text, "rendered by tool") {
		t.Errorf("tool output not used: %q", text)
	}
}

func TestFromDocxFallsBackWhenToolMissing(t *testing.T) {
	path := writeDocx(t, bodyXML)

	e := Extractor{Tool: filepath.Join(t.TempDir(), "no-such-renderer")}
	text, err := e.FromDocx(context.Background(), path)
	if err != nil {
		t.Fatalf("FromDocx: %v", err)
	}
	if !strings.Contains(text, "First clause.") || !strings.Contains(text, "Second clause.") {
		t.Errorf("fallback text incomplete: %q", text)
	}
	if !strings.Contains(text, "First clause.\n") {
		t.Errorf("paragraph boundary missing: %q", text)
	}
}

func TestFromDocxFallbackMissingBodyPart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create docx: %v", err)
	}
	zw := zip.NewWriter(out)
	if _, err := zw.Create("word/styles.xml"); err != nil {
		t.Fatalf("create part: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	e := Extractor{Tool: filepath.Join(t.TempDir(), "no-such-renderer")}
	if _, err := e.FromDocx(context.Background(), path); !errors.Is(err, ErrFailed) {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
}

func TestCheckText(t *testing.T) {
	if _, err := CheckText("  \n\t "); !errors.Is(err, ErrNoText) {
		t.Errorf("expected ErrNoText, got %v", err)
	}
	text, err := CheckText("some contract text")
	if err != nil {
		t.Fatalf("CheckText: %v", err)
	}
	if text != "some contract text" {
		t.Errorf("text = %q", text)
	}
}
