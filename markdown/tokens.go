// Package markdown defines the closed block/inline token variants the
// renderer consumes and adapts the external goldmark tokenizer to them.
// Tokens are read-only once produced.
package markdown

import "strings"

// BlockKind enumerates every block token variant. The set is closed - the
// renderer dispatches exhaustively over it.
type BlockKind int

const (
	BlockHeading BlockKind = iota
	BlockParagraph
	BlockList
	BlockTable
	BlockCode
	BlockQuote
	BlockRule
	BlockHTML
	BlockSpace
)

// InlineKind enumerates inline token variants. Unrecognized source constructs
// never produce new kinds - they degrade to InlineText carrying raw source.
type InlineKind int

const (
	InlineText InlineKind = iota
	InlineEmphasis
	InlineStrong
	InlineStrike
	InlineCode
	InlineLink
	InlineImage
	InlineBreak
	InlineSoftBreak
)

// Inline is one inline token. Which fields are meaningful depends on Kind.
type Inline struct {
	Kind     InlineKind
	Text     string   // Text, Code
	URL      string   // Link, Image destination
	Alt      string   // Image alternative text
	Children []Inline // Emphasis, Strong, Strike, Link
}

// Cell holds the inline content of a single table cell.
type Cell []Inline

// ListItem is one item of a list block; loose items may carry several blocks.
type ListItem struct {
	Blocks []Block
}

// Block is one block token. Which fields are meaningful depends on Kind.
type Block struct {
	Kind BlockKind

	Level   int    // Heading: 1..6
	Ordered bool   // List
	Start   int    // List: declared start number for ordered lists
	Info    string // Code: fence info string (language)
	Literal string // Code, HTML: raw content

	Inlines  []Inline   // Heading, Paragraph
	Items    []ListItem // List
	Header   []Cell     // Table
	Rows     [][]Cell   // Table
	Children []Block    // Quote
}

// FlattenText recursively extracts plain text from an inline token tree.
func FlattenText(inlines []Inline) string {
	var sb strings.Builder
	flattenText(&sb, inlines)
	return sb.String()
}

func flattenText(sb *strings.Builder, inlines []Inline) {
	for _, in := range inlines {
		switch in.Kind {
		case InlineText, InlineCode:
			sb.WriteString(in.Text)
		case InlineBreak, InlineSoftBreak:
			sb.WriteString("\n")
		case InlineImage:
			sb.WriteString(in.Alt)
		case InlineEmphasis, InlineStrong, InlineStrike, InlineLink:
			flattenText(sb, in.Children)
		}
	}
}
