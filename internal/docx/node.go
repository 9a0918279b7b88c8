package docx

import (
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"sort"
	"strings"
)

const (
	wmlNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	relNamespace = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	xmlNamespace = "http://www.w3.org/XML/1998/namespace"
)

// Node is one element or text node of a parsed XML part.
type Node struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []*Node
	Text     string
	IsText   bool
}

// Elem creates an element node in the wordprocessingml namespace.
func Elem(local string, attrs ...xml.Attr) *Node {
	return &Node{Name: xml.Name{Space: wmlNamespace, Local: local}, Attr: attrs}
}

// WAttr creates a w-namespaced attribute.
func WAttr(local, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Space: wmlNamespace, Local: local}, Value: value}
}

// IsElem reports whether n is an element with the given local name in the
// wordprocessingml namespace (or no namespace).
func IsElem(n *Node, local string) bool {
	if n == nil || n.IsText {
		return false
	}
	if n.Name.Local != local {
		return false
	}
	return n.Name.Space == "" || n.Name.Space == wmlNamespace
}

// Walk visits n and its descendants depth-first. Returning false from visit
// stops descent into that subtree.
func Walk(n *Node, visit func(*Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, child := range n.Children {
		Walk(child, visit)
	}
}

// Text concatenates the contents of all nested text runs under n.
func nodeRunText(n *Node) string {
	var b strings.Builder
	Walk(n, func(c *Node) bool {
		if IsElem(c, "t") {
			for _, grand := range c.Children {
				if grand.IsText {
					b.WriteString(grand.Text)
				}
			}
		}
		return true
	})
	return b.String()
}

// Tree is a parsed XML part. The XML header and the literal root start/end
// tags are preserved verbatim so namespace declarations survive the
// parse/mutate/encode round trip untouched.
type Tree struct {
	header    string
	rootStart string
	rootEnd   string
	Root      *Node
}

var xmlHeaderPattern = regexp.MustCompile(`(?s)^\s*(<\?xml[^>]+\?>)`)

// ParseTree parses a full XML part into a mutable node tree.
func ParseTree(data []byte) (*Tree, error) {
	text := string(data)
	header := ""
	if match := xmlHeaderPattern.FindStringSubmatch(text); len(match) > 0 {
		header = match[1]
	}

	rootStart, rootEnd, err := rootTags(text)
	if err != nil {
		return nil, err
	}

	decoder := xml.NewDecoder(strings.NewReader(text))
	var stack []*Node
	var root *Node
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			node := &Node{Name: t.Name, Attr: append([]xml.Attr(nil), t.Attr...)}
			if len(stack) == 0 {
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) == 0 || len(t) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, &Node{IsText: true, Text: string(t)})
		}
	}
	if root == nil {
		return nil, errors.New("xml part has no root element")
	}

	return &Tree{header: header, rootStart: rootStart, rootEnd: rootEnd, Root: root}, nil
}

// Encode serializes the tree back to bytes. Children are written with the
// namespace prefixes declared on the original root tag; the root tag itself
// is emitted verbatim (plus any prefixes used but not declared).
func (t *Tree) Encode() []byte {
	prefixes := invertDecls(declsFromRootStart(t.rootStart))
	// Prefixes we may introduce ourselves.
	if _, ok := prefixes[wmlNamespace]; !ok {
		prefixes[wmlNamespace] = "w"
	}
	if _, ok := prefixes[relNamespace]; !ok {
		prefixes[relNamespace] = "r"
	}
	prefixes[xmlNamespace] = "xml"

	var b strings.Builder
	if t.header != "" {
		b.WriteString(t.header)
		b.WriteByte('\n')
	}
	b.WriteString(ensureDecls(t.rootStart, neededDecls(t.Root, t.rootStart, prefixes)))
	for _, child := range t.Root.Children {
		writeNode(&b, child, prefixes)
	}
	b.WriteString(t.rootEnd)
	return []byte(b.String())
}

func writeNode(b *strings.Builder, n *Node, prefixes map[string]string) {
	if n.IsText {
		b.WriteString(escapeText(n.Text))
		return
	}
	name := qualifiedName(n.Name, prefixes)
	b.WriteByte('<')
	b.WriteString(name)
	for _, attr := range n.Attr {
		b.WriteByte(' ')
		b.WriteString(attrName(attr.Name, prefixes))
		b.WriteString(`="`)
		b.WriteString(escapeAttr(attr.Value))
		b.WriteByte('"')
	}
	if len(n.Children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	for _, child := range n.Children {
		writeNode(b, child, prefixes)
	}
	b.WriteString("</")
	b.WriteString(name)
	b.WriteByte('>')
}

func qualifiedName(name xml.Name, prefixes map[string]string) string {
	if name.Space == "" {
		return name.Local
	}
	if prefix, ok := prefixes[name.Space]; ok && prefix != "" {
		return prefix + ":" + name.Local
	}
	return name.Local
}

func attrName(name xml.Name, prefixes map[string]string) string {
	// Namespace declarations come back from the decoder in xmlns space.
	if name.Space == "xmlns" {
		return "xmlns:" + name.Local
	}
	if name.Space == "" {
		return name.Local
	}
	return qualifiedName(name, prefixes)
}

func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func escapeAttr(s string) string {
	s = escapeText(s)
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}

var xmlnsDeclPattern = regexp.MustCompile(`\s+xmlns(?::([A-Za-z0-9._-]+))?="([^"]+)"`)

// declsFromRootStart reads prefix→uri declarations off the literal root tag.
func declsFromRootStart(rootStart string) map[string]string {
	out := make(map[string]string)
	for _, match := range xmlnsDeclPattern.FindAllStringSubmatch(rootStart, -1) {
		out[match[1]] = match[2]
	}
	return out
}

func invertDecls(decls map[string]string) map[string]string {
	out := make(map[string]string, len(decls))
	for prefix, uri := range decls {
		out[uri] = prefix
	}
	return out
}

// neededDecls returns prefix→uri pairs used somewhere in the tree but not
// declared on the root tag.
func neededDecls(root *Node, rootStart string, prefixes map[string]string) map[string]string {
	declared := declsFromRootStart(rootStart)
	missing := make(map[string]string)
	Walk(root, func(n *Node) bool {
		if n.IsText {
			return true
		}
		spaces := []string{n.Name.Space}
		for _, attr := range n.Attr {
			if attr.Name.Space != "" && attr.Name.Space != "xmlns" {
				spaces = append(spaces, attr.Name.Space)
			}
		}
		for _, space := range spaces {
			if space == "" || space == xmlNamespace {
				continue
			}
			prefix, ok := prefixes[space]
			if !ok || prefix == "" {
				continue
			}
			if _, declared := declared[prefix]; !declared {
				missing[prefix] = space
			}
		}
		return true
	})
	return missing
}

func ensureDecls(rootStart string, missing map[string]string) string {
	if len(missing) == 0 {
		return rootStart
	}
	prefixes := make([]string, 0, len(missing))
	for prefix := range missing {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	var b strings.Builder
	for _, prefix := range prefixes {
		b.WriteString(` xmlns:`)
		b.WriteString(prefix)
		b.WriteString(`="`)
		b.WriteString(missing[prefix])
		b.WriteByte('"')
	}
	insert := b.String()
	if idx := strings.LastIndex(rootStart, "/>"); idx != -1 && idx == len(rootStart)-2 {
		return rootStart[:idx] + insert + rootStart[idx:]
	}
	if idx := strings.LastIndex(rootStart, ">"); idx != -1 {
		return rootStart[:idx] + insert + rootStart[idx:]
	}
	return rootStart
}

// rootTags finds the literal root start and end tags, skipping the XML
// header, comments, and doctype.
func rootTags(xmlText string) (string, string, error) {
	start, end, name, err := findRootStart(xmlText)
	if err != nil {
		return "", "", err
	}
	rootStart := xmlText[start : end+1]
	endTag := "</" + name + ">"
	endPos := strings.LastIndex(xmlText, endTag)
	if endPos == -1 {
		return "", "", errors.New("root end tag not found")
	}
	return rootStart, endTag, nil
}

func findRootStart(xmlText string) (int, int, string, error) {
	i := 0
	for i < len(xmlText) {
		idx := strings.IndexByte(xmlText[i:], '<')
		if idx == -1 {
			return 0, 0, "", errors.New("root start tag not found")
		}
		i += idx
		switch {
		case strings.HasPrefix(xmlText[i:], "<?"):
			end := strings.Index(xmlText[i:], "?>")
			if end == -1 {
				return 0, 0, "", errors.New("xml header not terminated")
			}
			i += end + 2
		case strings.HasPrefix(xmlText[i:], "<!--"):
			end := strings.Index(xmlText[i:], "-->")
			if end == -1 {
				return 0, 0, "", errors.New("xml comment not terminated")
			}
			i += end + 3
		case strings.HasPrefix(xmlText[i:], "<!"):
			end := strings.IndexByte(xmlText[i:], '>')
			if end == -1 {
				return 0, 0, "", errors.New("doctype not terminated")
			}
			i += end + 1
		default:
			return scanRootTag(xmlText, i)
		}
	}
	return 0, 0, "", errors.New("root start tag not found")
}

func scanRootTag(xmlText string, start int) (int, int, string, error) {
	inQuote := byte(0)
	for i := start + 1; i < len(xmlText); i++ {
		c := xmlText[i]
		if inQuote != 0 {
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		if c == '"' || c == '\'' {
			inQuote = c
			continue
		}
		if c == '>' {
			name := tagName(xmlText[start+1 : i])
			if name == "" {
				return 0, 0, "", errors.New("root tag name missing")
			}
			return start, i, name, nil
		}
	}
	return 0, 0, "", errors.New("root start tag not terminated")
}

func tagName(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw[0] == '/' {
		return ""
	}
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case ' ', '\t', '\n', '\r', '/':
			return raw[:i]
		}
	}
	return raw
}
