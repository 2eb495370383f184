package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Document is the rich-text article body.
//
// The editor owns the structure, so the client treats it as opaque JSON and
// only ever builds simple paragraph documents (imports, CLI input) or extracts
// plain text for previews. The stand-in API stores the raw bytes verbatim.
type Document json.RawMessage

// MarshalJSON keeps the raw bytes. An empty document encodes as null.
func (d Document) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return []byte(d), nil
}

// UnmarshalJSON stores a copy of the raw bytes.
//
// Some API deployments return the editor document as a JSON string, so a
// string value holding a JSON object is unwrapped to the object itself.
func (d *Document) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if json.Valid([]byte(s)) && strings.HasPrefix(strings.TrimSpace(s), "{") {
			*d = Document(s)
			return nil
		}
		*d = NewDocument(s)
		return nil
	}
	*d = append((*d)[0:0], data...)
	return nil
}

// Node is one element of the editor tree.
type Node struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
}

// NewDocument builds a document with one paragraph per argument.
// Blank paragraphs are skipped.
func NewDocument(paragraphs ...string) Document {
	root := Node{Type: "doc", Content: []Node{}}
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		root.Content = append(root.Content, Node{
			Type:    "paragraph",
			Content: []Node{{Type: "text", Text: p}},
		})
	}
	b, _ := json.Marshal(root)
	return Document(b)
}

// Root parses the document tree. Invalid documents yield an empty root.
func (d Document) Root() Node {
	var n Node
	if len(d) == 0 {
		return n
	}
	if err := json.Unmarshal(d, &n); err != nil {
		return Node{}
	}
	return n
}

// PlainText flattens the document into text, one line per block.
func (d Document) PlainText() string {
	var lines []string
	var walk func(n Node) string
	walk = func(n Node) string {
		if n.Type == "text" {
			return n.Text
		}
		var sb strings.Builder
		for _, c := range n.Content {
			sb.WriteString(walk(c))
		}
		return sb.String()
	}
	for _, block := range d.Root().Content {
		if t := strings.TrimSpace(walk(block)); t != "" {
			lines = append(lines, t)
		}
	}
	return strings.Join(lines, "\n")
}

// IsEmpty reports whether the document has no visible text.
func (d Document) IsEmpty() bool {
	return d.PlainText() == ""
}
