// Package paragraph implements the built-in text block tool.
//
// Paragraph data has a single "text" key. The tool supports merging (text
// concatenation) and splitting at a grapheme cluster offset, so a caret offset
// never lands inside a combined character or emoji sequence.
package paragraph

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"

	"github.com/dshills/blockstorm/internal/engine/block"
)

// Type is the block type served by Tool.
const Type = "paragraph"

// TextKey is the data key holding the paragraph text.
const TextKey = "text"

// Tool is the paragraph block tool.
type Tool struct {
	// KeepEmpty keeps empty paragraphs in saved output.
	KeepEmpty bool
}

// New returns a paragraph tool that drops empty paragraphs on save.
func New() *Tool {
	return &Tool{}
}

// Register adds the paragraph tool to r.
func Register(r *block.Registry) {
	r.Register(Type, New())
}

// Save normalizes the text to NFC and drops any other keys.
func (t *Tool) Save(data block.Data) (block.Data, error) {
	raw, ok := data[TextKey]
	if ok {
		if _, isString := raw.(string); !isString {
			return nil, fmt.Errorf("paragraph text: expected string, got %T", raw)
		}
	}
	return block.Data{TextKey: norm.NFC.String(data.String(TextKey))}, nil
}

// Validate rejects blank paragraphs unless KeepEmpty is set.
func (t *Tool) Validate(data block.Data) bool {
	if t.KeepEmpty {
		return true
	}
	return strings.TrimSpace(data.String(TextKey)) != ""
}

// Empty returns the data of a new empty paragraph.
func (t *Tool) Empty() block.Data {
	return block.Data{TextKey: ""}
}

// Merge appends the source text to the target text.
func (t *Tool) Merge(target, source block.Data) (block.Data, error) {
	out := target.Clone()
	if out == nil {
		out = block.Data{}
	}
	out[TextKey] = norm.NFC.String(target.String(TextKey) + source.String(TextKey))
	return out, nil
}

// Split cuts the text after offset grapheme clusters.
func (t *Tool) Split(data block.Data, offset int) (block.Data, block.Data, error) {
	text := data.String(TextKey)
	cut, ok := byteOffset(text, offset)
	if !ok {
		return nil, nil, fmt.Errorf("split at %d of %d: %w",
			offset, uniseg.GraphemeClusterCount(text), block.ErrOffsetOutOfRange)
	}

	head := data.Clone()
	if head == nil {
		head = block.Data{}
	}
	head[TextKey] = text[:cut]
	return head, block.Data{TextKey: text[cut:]}, nil
}

// Len returns the length of the paragraph text in grapheme clusters.
func Len(data block.Data) int {
	return uniseg.GraphemeClusterCount(data.String(TextKey))
}

// byteOffset converts a grapheme cluster offset to a byte offset.
func byteOffset(text string, offset int) (int, bool) {
	if offset < 0 {
		return 0, false
	}
	if offset == 0 {
		return 0, true
	}
	n := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		n++
		if n == offset {
			_, to := g.Positions()
			return to, true
		}
	}
	return 0, false
}
