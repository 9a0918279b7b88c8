package docx

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrParse means the container or its body XML could not be read.
var ErrParse = errors.New("could not parse document structure")

const bodyPartName = "word/document.xml"

// Paragraph is one non-empty body paragraph. Index is dense over non-empty
// paragraphs only, so it matches the numbering shown to the matching model.
type Paragraph struct {
	Index int
	Text  string
	node  *Node
}

// ParagraphsOf collects the non-empty paragraphs of a parsed body part in
// document order. Empty paragraphs are skipped and do not consume an index.
func ParagraphsOf(tree *Tree) []Paragraph {
	var out []Paragraph
	Walk(tree.Root, func(n *Node) bool {
		if !IsElem(n, "p") {
			return true
		}
		text := nodeRunText(n)
		if strings.TrimSpace(text) != "" {
			out = append(out, Paragraph{Index: len(out), Text: text, node: n})
		}
		return false
	})
	return out
}

// IndexParagraphs opens a .docx container and indexes its body paragraphs.
func IndexParagraphs(path string) ([]Paragraph, error) {
	data, err := readContainerPart(path, bodyPartName)
	if err != nil {
		return nil, err
	}
	tree, err := ParseTree(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return ParagraphsOf(tree), nil
}

func readContainerPart(path, partName string) ([]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open container: %v", ErrParse, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") != partName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrParse, partName, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrParse, partName, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s not found", ErrParse, partName)
}
