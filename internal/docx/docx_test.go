package docx

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testBodyXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>First paragraph</w:t></w:r></w:p><w:p/><w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p><w:p><w:r><w:t>Third paragraph</w:t></w:r></w:p></w:body></w:document>`

const testContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const testBodyRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/></Relationships>`

func writeTestDocx(t *testing.T) string {
	return writeTestDocxWithBody(t, testBodyXML)
}

func writeTestDocxWithBody(t *testing.T, bodyXML string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contract.docx")
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create test docx: %v", err)
	}
	zw := zip.NewWriter(out)
	parts := map[string]string{
		"[Content_Types].xml":          testContentTypes,
		"word/document.xml":            bodyXML,
		"word/_rels/document.xml.rels": testBodyRels,
	}
	for name, content := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create part %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write part %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func readPart(t *testing.T, docxPath, partName string) string {
	t.Helper()
	zr, err := zip.OpenReader(docxPath)
	if err != nil {
		t.Fatalf("open %s: %v", docxPath, err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != partName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open part %s: %v", partName, err)
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			t.Fatalf("read part %s: %v", partName, err)
		}
		return buf.String()
	}
	t.Fatalf("part %s not found in %s", partName, docxPath)
	return ""
}

func TestIndexParagraphsSkipsEmpty(t *testing.T) {
	path := writeTestDocx(t)
	paragraphs, err := IndexParagraphs(path)
	if err != nil {
		t.Fatalf("IndexParagraphs: %v", err)
	}
	if len(paragraphs) != 3 {
		t.Fatalf("expected 3 non-empty paragraphs, got %d", len(paragraphs))
	}
	want := []string{"First paragraph", "Second paragraph", "Third paragraph"}
	for i, p := range paragraphs {
		if p.Index != i {
			t.Errorf("paragraph %d has index %d", i, p.Index)
		}
		if p.Text != want[i] {
			t.Errorf("paragraph %d text = %q, want %q", i, p.Text, want[i])
		}
	}
}

func TestIndexParagraphsBadContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-zip.docx")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := IndexParagraphs(path); err == nil {
		t.Fatal("expected error for non-zip input")
	}
}

func TestParseEncodeRoundTrip(t *testing.T) {
	tree, err := ParseTree([]byte(testBodyXML))
	if err != nil {
		t.Fatalf("ParseTree: %v", err)
	}
	encoded := string(tree.Encode())
	if !strings.Contains(encoded, `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">`) {
		t.Errorf("root start tag not preserved:\n%s", encoded)
	}
	if !strings.Contains(encoded, "<w:t>First paragraph</w:t>") {
		t.Errorf("text run not preserved:\n%s", encoded)
	}
	if !strings.HasSuffix(encoded, "</w:document>") {
		t.Errorf("root end tag not preserved:\n%s", encoded)
	}

	reparsed, err := ParseTree(tree.Encode())
	if err != nil {
		t.Fatalf("reparse encoded output: %v", err)
	}
	if got := len(ParagraphsOf(reparsed)); got != 3 {
		t.Errorf("reparsed tree has %d paragraphs, want 3", got)
	}
}

func TestEncodeEscapesText(t *testing.T) {
	tree, err := ParseTree([]byte(testBodyXML))
	if err != nil {
		t.Fatalf("ParseTree: %v", err)
	}
	paragraphs := ParagraphsOf(tree)
	run := Elem("r")
	textNode := Elem("t")
	textNode.Children = append(textNode.Children, &Node{IsText: true, Text: "a < b & c"})
	run.Children = append(run.Children, textNode)
	paragraphs[0].node.Children = append(paragraphs[0].node.Children, run)

	encoded := string(tree.Encode())
	if !strings.Contains(encoded, "a &lt; b &amp; c") {
		t.Errorf("text not escaped:\n%s", encoded)
	}
}

func TestAddComments(t *testing.T) {
	input := writeTestDocx(t)
	output := filepath.Join(t.TempDir(), "reviewed.docx")

	ok, err := AddComments(input, output, []Comment{
		{Text: "Liability cap is one-sided & risky", Paragraph: 1},
	})
	if err != nil {
		t.Fatalf("AddComments: %v", err)
	}
	if !ok {
		t.Fatal("expected annotation to succeed")
	}

	body := readPart(t, output, "word/document.xml")
	startPos := strings.Index(body, `<w:commentRangeStart w:id="0"/>`)
	textPos := strings.Index(body, "Second paragraph")
	endPos := strings.Index(body, `<w:commentRangeEnd w:id="0"/>`)
	refPos := strings.Index(body, `<w:commentReference w:id="0"/>`)
	if startPos == -1 || endPos == -1 || refPos == -1 {
		t.Fatalf("comment markers missing from body:\n%s", body)
	}
	if !(startPos < textPos && textPos < endPos && endPos < refPos) {
		t.Errorf("marker order wrong: start=%d text=%d end=%d ref=%d", startPos, textPos, endPos, refPos)
	}

	commentsPart := readPart(t, output, "word/comments.xml")
	if !strings.Contains(commentsPart, `w:author="Contract Reviewer"`) {
		t.Errorf("default author missing:\n%s", commentsPart)
	}
	if !strings.Contains(commentsPart, "Liability cap is one-sided &amp; risky") {
		t.Errorf("comment text missing or unescaped:\n%s", commentsPart)
	}

	contentTypes := readPart(t, output, "[Content_Types].xml")
	if !strings.Contains(contentTypes, `PartName="/word/comments.xml"`) {
		t.Errorf("comments override missing:\n%s", contentTypes)
	}

	rels := readPart(t, output, "word/_rels/document.xml.rels")
	if !strings.Contains(rels, `Id="rId2"`) || !strings.Contains(rels, `Target="comments.xml"`) {
		t.Errorf("comments relationship missing:\n%s", rels)
	}
}

func TestAddCommentsSequentialIDs(t *testing.T) {
	input := writeTestDocx(t)
	output := filepath.Join(t.TempDir(), "reviewed.docx")

	ok, err := AddComments(input, output, []Comment{
		{Text: "first", Paragraph: 0},
		{Text: "second", Paragraph: 0},
		{Text: "third", Paragraph: 2},
	})
	if err != nil || !ok {
		t.Fatalf("AddComments: ok=%v err=%v", ok, err)
	}

	commentsPart := readPart(t, output, "word/comments.xml")
	for _, want := range []string{`w:id="0"`, `w:id="1"`, `w:id="2"`} {
		if !strings.Contains(commentsPart, want) {
			t.Errorf("comments part missing %s:\n%s", want, commentsPart)
		}
	}

	body := readPart(t, output, "word/document.xml")
	for _, want := range []string{
		`<w:commentRangeStart w:id="0"/>`,
		`<w:commentRangeStart w:id="1"/>`,
		`<w:commentRangeStart w:id="2"/>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %s", want)
		}
	}
}

func TestAddCommentsDeclarationsNotDuplicated(t *testing.T) {
	input := writeTestDocx(t)
	first := filepath.Join(t.TempDir(), "first.docx")
	second := filepath.Join(t.TempDir(), "second.docx")

	if ok, err := AddComments(input, first, []Comment{{Text: "a", Paragraph: 0}}); err != nil || !ok {
		t.Fatalf("first AddComments: ok=%v err=%v", ok, err)
	}
	if ok, err := AddComments(first, second, []Comment{{Text: "b", Paragraph: 0}}); err != nil || !ok {
		t.Fatalf("second AddComments: ok=%v err=%v", ok, err)
	}

	contentTypes := readPart(t, second, "[Content_Types].xml")
	if got := strings.Count(contentTypes, `PartName="/word/comments.xml"`); got != 1 {
		t.Errorf("comments override declared %d times:\n%s", got, contentTypes)
	}
	rels := readPart(t, second, "word/_rels/document.xml.rels")
	if got := strings.Count(rels, `Target="comments.xml"`); got != 1 {
		t.Errorf("comments relationship declared %d times:\n%s", got, rels)
	}
}

func TestAddCommentsAnchorFallbacks(t *testing.T) {
	input := writeTestDocx(t)
	output := filepath.Join(t.TempDir(), "reviewed.docx")

	ok, err := AddComments(input, output, []Comment{
		{Text: "unanchored issue", Paragraph: -1},
		{Text: "missing clause", Paragraph: 99, FallbackToLast: true},
	})
	if err != nil || !ok {
		t.Fatalf("AddComments: ok=%v err=%v", ok, err)
	}

	body := readPart(t, output, "word/document.xml")
	firstPara := body[strings.Index(body, "<w:p>"):strings.Index(body, "Second paragraph")]
	if !strings.Contains(firstPara, `<w:commentRangeStart w:id="0"/>`) {
		t.Errorf("unanchored comment not on first paragraph:\n%s", body)
	}
	lastSection := body[strings.Index(body, "Third paragraph"):]
	if !strings.Contains(lastSection, `<w:commentRangeEnd w:id="1"/>`) {
		t.Errorf("fallback-to-last comment not on last paragraph:\n%s", body)
	}
}

func TestAddCommentsSucceedsWithoutParagraphs(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p/><w:p/></w:body></w:document>`
	input := writeTestDocxWithBody(t, body)
	output := filepath.Join(t.TempDir(), "reviewed.docx")

	ok, err := AddComments(input, output, []Comment{
		{Text: "missing clause", Paragraph: -1, FallbackToLast: true},
	})
	if err != nil {
		t.Fatalf("AddComments: %v", err)
	}
	if !ok {
		t.Fatal("annotation must succeed for a body with no non-empty paragraphs")
	}

	commentsPart := readPart(t, output, "word/comments.xml")
	if !strings.Contains(commentsPart, `w:id="0"`) {
		t.Errorf("comments part missing:\n%s", commentsPart)
	}
	contentTypes := readPart(t, output, "[Content_Types].xml")
	if !strings.Contains(contentTypes, `PartName="/word/comments.xml"`) {
		t.Errorf("comments override missing:\n%s", contentTypes)
	}
	rels := readPart(t, output, "word/_rels/document.xml.rels")
	if !strings.Contains(rels, `Target="comments.xml"`) {
		t.Errorf("comments relationship missing:\n%s", rels)
	}
	if body := readPart(t, output, "word/document.xml"); strings.Contains(body, "commentRangeStart") {
		t.Errorf("markers inserted with no target paragraph:\n%s", body)
	}
}

func TestAddCommentsFallbackCopyOnBadInput(t *testing.T) {
	input := filepath.Join(t.TempDir(), "broken.docx")
	original := []byte("not a zip container")
	if err := os.WriteFile(input, original, 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	output := filepath.Join(t.TempDir(), "reviewed.docx")

	ok, err := AddComments(input, output, []Comment{{Text: "x", Paragraph: 0}})
	if err != nil {
		t.Fatalf("fallback copy failed: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for unparseable input")
	}
	copied, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(copied, original) {
		t.Errorf("output is not a byte copy of the input")
	}
}
