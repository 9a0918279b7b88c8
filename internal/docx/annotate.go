package docx

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"contract-review-backend/internal/shared/telemetry"
)

// DefaultCommentAuthor is attributed on every injected comment.
const DefaultCommentAuthor = "Contract Reviewer"

const commentsPartName = "word/comments.xml"

// Comment is one annotation to inject. Paragraph is a dense paragraph index;
// an out-of-range index anchors to the first paragraph, or to the last when
// FallbackToLast is set.
type Comment struct {
	Author         string
	Text           string
	Paragraph      int
	FallbackToLast bool
}

// AddComments writes an annotated copy of the .docx at inputPath to
// outputPath. On any structural failure the original file is copied to
// outputPath unmodified and ok is false; err is non-nil only when even that
// fallback copy failed.
func AddComments(inputPath, outputPath string, comments []Comment) (ok bool, err error) {
	if annotateErr := annotate(inputPath, outputPath, comments); annotateErr != nil {
		telemetry.Error("docx.annotate_failed", map[string]any{
			"err":      annotateErr.Error(),
			"comments": len(comments),
		})
		if copyErr := copyFile(inputPath, outputPath); copyErr != nil {
			return false, fmt.Errorf("annotation fallback copy: %w", copyErr)
		}
		return false, nil
	}
	return true, nil
}

func annotate(inputPath, outputPath string, comments []Comment) error {
	workDir, err := os.MkdirTemp("", "annotate-*")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	if err := unpackContainer(inputPath, workDir); err != nil {
		return err
	}

	bodyPath := filepath.Join(workDir, filepath.FromSlash(bodyPartName))
	bodyData, err := os.ReadFile(bodyPath)
	if err != nil {
		return fmt.Errorf("read body part: %w", err)
	}
	tree, err := ParseTree(bodyData)
	if err != nil {
		return fmt.Errorf("parse body part: %w", err)
	}

	// A body with no non-empty paragraphs still gets the comments part;
	// only the inline markers are skipped.
	paragraphs := ParagraphsOf(tree)
	if len(paragraphs) > 0 {
		for id, c := range comments {
			target := resolveTarget(paragraphs, c)
			insertMarkers(target.node, id)
		}
	}

	if err := os.WriteFile(bodyPath, tree.Encode(), 0o644); err != nil {
		return fmt.Errorf("write body part: %w", err)
	}

	commentsPath := filepath.Join(workDir, filepath.FromSlash(commentsPartName))
	if err := os.WriteFile(commentsPath, buildCommentsPart(comments), 0o644); err != nil {
		return fmt.Errorf("write comments part: %w", err)
	}
	if err := patchContentTypes(workDir); err != nil {
		return err
	}
	if err := patchRelationships(workDir); err != nil {
		return err
	}

	return packContainer(workDir, outputPath)
}

func resolveTarget(paragraphs []Paragraph, c Comment) Paragraph {
	if c.Paragraph >= 0 && c.Paragraph < len(paragraphs) {
		return paragraphs[c.Paragraph]
	}
	if c.FallbackToLast {
		return paragraphs[len(paragraphs)-1]
	}
	return paragraphs[0]
}

// insertMarkers brackets the whole paragraph: range start before the first
// child, range end and the reference run after the last.
func insertMarkers(p *Node, id int) {
	idAttr := WAttr("id", strconv.Itoa(id))
	start := Elem("commentRangeStart", idAttr)
	end := Elem("commentRangeEnd", idAttr)
	ref := Elem("r")
	ref.Children = append(ref.Children, Elem("commentReference", idAttr))

	p.Children = append([]*Node{start}, p.Children...)
	p.Children = append(p.Children, end, ref)
}

func buildCommentsPart(comments []Comment) []byte {
	date := time.Now().UTC().Format("2006-01-02T15:04:05Z")

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:comments xmlns:w="` + wmlNamespace + `">`)
	for id, c := range comments {
		author := c.Author
		if author == "" {
			author = DefaultCommentAuthor
		}
		fmt.Fprintf(&b, `<w:comment w:id="%d" w:author="%s" w:date="%s">`,
			id, escapeAttr(author), date)
		b.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		b.WriteString(escapeText(c.Text))
		b.WriteString(`</w:t></w:r></w:p></w:comment>`)
	}
	b.WriteString(`</w:comments>`)
	return []byte(b.String())
}

// patchContentTypes registers the comments part. A pre-existing registration
// is left alone.
func patchContentTypes(workDir string) error {
	path := filepath.Join(workDir, "[Content_Types].xml")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read content types: %w", err)
	}
	text := string(data)
	if strings.Contains(text, "/"+commentsPartName) {
		return nil
	}
	override := `<Override PartName="/word/comments.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"/>`
	patched := strings.Replace(text, "</Types>", override+"</Types>", 1)
	if patched == text {
		return fmt.Errorf("content types part has no Types element")
	}
	return os.WriteFile(path, []byte(patched), 0o644)
}

var relIDPattern = regexp.MustCompile(`Id="rId(\d+)"`)

// patchRelationships points the body part at comments.xml under the next
// free rId.
func patchRelationships(workDir string) error {
	path := filepath.Join(workDir, "word", "_rels", "document.xml.rels")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read body relationships: %w", err)
	}
	text := string(data)
	if strings.Contains(text, `Target="comments.xml"`) {
		return nil
	}

	maxID := 0
	for _, match := range relIDPattern.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(match[1]); err == nil && n > maxID {
			maxID = n
		}
	}
	rel := fmt.Sprintf(`<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments" Target="comments.xml"/>`, maxID+1)
	patched := strings.Replace(text, "</Relationships>", rel+"</Relationships>", 1)
	if patched == text {
		return fmt.Errorf("body relationships part has no Relationships element")
	}
	return os.WriteFile(path, []byte(patched), 0o644)
}

func unpackContainer(path, destDir string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open container: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		dest := filepath.Join(destDir, filepath.FromSlash(name))
		if !strings.HasPrefix(dest, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("container entry escapes scratch dir: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return fmt.Errorf("unpack %s: %w", name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("unpack %s: %w", name, err)
		}
		if err := extractFile(f, dest); err != nil {
			return fmt.Errorf("unpack %s: %w", name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func packContainer(srcDir, outputPath string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	zw := zip.NewWriter(out)

	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(w, in)
		return err
	})
	if walkErr != nil {
		zw.Close()
		out.Close()
		os.Remove(outputPath)
		return fmt.Errorf("repack container: %w", walkErr)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return fmt.Errorf("finalize container: %w", err)
	}
	return out.Close()
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
