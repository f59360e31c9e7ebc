// Package frontmatter splits, parses and re-emits the YAML metadata block at the top of a
// content document.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Delimiter opens and closes a YAML metadata block.
const Delimiter = "---"

var bom = []byte{0xEF, 0xBB, 0xBF}

// Style captures the newline shape of a document so rewrites keep it.
type Style struct {
	Newline            string
	HasTrailingNewline bool
}

// ErrMissingClosingDelimiter indicates the document opens a metadata block but never closes it.
var ErrMissingClosingDelimiter = errors.New("frontmatter start delimiter found but closing delimiter is missing")

// Split separates the metadata block from the body. A leading byte-order mark is dropped.
// When the document does not open with a delimiter line, had is false and body is the input.
func Split(content []byte) (frontmatter []byte, body []byte, had bool, style Style, err error) {
	content = bytes.TrimPrefix(content, bom)
	style = DetectStyle(content)

	nl := style.Newline
	open := []byte(Delimiter + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, style, nil
	}

	rest := content[len(open):]
	if bytes.HasPrefix(rest, open) {
		return []byte{}, rest[len(open):], true, style, nil
	}
	if bytes.Equal(rest, []byte(Delimiter)) {
		return []byte{}, []byte{}, true, style, nil
	}

	closeSeq := []byte(nl + Delimiter + nl)
	if idx := bytes.Index(rest, closeSeq); idx >= 0 {
		return rest[:idx+len(nl)], rest[idx+len(closeSeq):], true, style, nil
	}

	// A block closed by the final line of the file.
	closeEOF := []byte(nl + Delimiter)
	if bytes.HasSuffix(rest, closeEOF) {
		return rest[:len(rest)-len(Delimiter)], []byte{}, true, style, nil
	}

	return nil, nil, false, style, ErrMissingClosingDelimiter
}

// Join reassembles a document from a raw block and body. When had is false the body is
// returned unchanged.
func Join(frontmatter []byte, body []byte, had bool, style Style) []byte {
	if !had {
		return body
	}

	nl := style.Newline
	if nl == "" {
		nl = "\n"
	}

	out := make([]byte, 0, 2*(len(Delimiter)+len(nl))+len(frontmatter)+len(body))
	out = append(out, Delimiter...)
	out = append(out, nl...)
	out = append(out, frontmatter...)
	out = append(out, Delimiter...)
	out = append(out, nl...)
	out = append(out, body...)
	return out
}

// ParseYAML parses a raw block (without delimiters) into a map. An empty block is an empty map.
// Unquoted date and time scalars decode as Timestamp; quoted ones stay strings.
func ParseYAML(frontmatter []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(frontmatter)) == 0 {
		return map[string]any{}, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(frontmatter, &doc); err != nil {
		return nil, err
	}
	return DecodeFields(&doc)
}

// Timestamp is an unquoted YAML date or time, kept verbatim so it is re-emitted unquoted.
type Timestamp string

// DecodeFields converts a mapping node into fields the way ParseYAML does. A null or empty
// node is an empty map.
func DecodeFields(n *yaml.Node) (map[string]any, error) {
	v, err := decodeNode(n)
	if err != nil {
		return nil, err
	}
	switch m := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return m, nil
	default:
		return nil, fmt.Errorf("metadata at line %d is not a mapping", n.Line)
	}
}

func decodeNode(n *yaml.Node) (any, error) {
	if n == nil || n.Kind == 0 {
		return nil, nil
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return decodeNode(n.Content[0])
	case yaml.AliasNode:
		return decodeNode(n.Alias)
	case yaml.ScalarNode:
		if n.ShortTag() == "!!timestamp" {
			return Timestamp(n.Value), nil
		}
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := decodeNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		if hasMergeKey(n) {
			break
		}
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := decodeNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			out[n.Content[i].Value] = v
		}
		return out, nil
	}

	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func hasMergeKey(n *yaml.Node) bool {
	for i := 0; i < len(n.Content); i += 2 {
		if n.Content[i].ShortTag() == "!!merge" {
			return true
		}
	}
	return false
}

// DetectStyle reports the first newline sequence used by content (LF when none is found).
func DetectStyle(content []byte) Style {
	newline := "\n"
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		newline = "\r\n"
	}

	return Style{
		Newline:            newline,
		HasTrailingNewline: len(content) > 0 && content[len(content)-1] == '\n',
	}
}
