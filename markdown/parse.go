package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Parse tokenizes Markdown source into the closed block token sequence.
// GFM tables and strikethrough are recognized; constructs outside the closed
// set degrade to plain text.
func Parse(src []byte) []Block {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	)
	doc := md.Parser().Parse(text.NewReader(src))
	return convertBlocks(doc, src)
}

func convertBlocks(parent ast.Node, src []byte) []Block {
	var blocks []Block
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if b, ok := convertBlock(n, src); ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func convertBlock(n ast.Node, src []byte) (Block, bool) {
	switch t := n.(type) {
	case *ast.Heading:
		return Block{
			Kind:    BlockHeading,
			Level:   t.Level,
			Inlines: convertInlines(t, src),
		}, true
	case *ast.Paragraph:
		return Block{Kind: BlockParagraph, Inlines: convertInlines(t, src)}, true
	case *ast.TextBlock:
		// tight list item content
		return Block{Kind: BlockParagraph, Inlines: convertInlines(t, src)}, true
	case *ast.FencedCodeBlock:
		info := ""
		if lang := t.Language(src); lang != nil {
			info = string(lang)
		}
		return Block{Kind: BlockCode, Info: info, Literal: linesText(t, src)}, true
	case *ast.CodeBlock:
		return Block{Kind: BlockCode, Literal: linesText(t, src)}, true
	case *ast.List:
		return convertList(t, src), true
	case *east.Table:
		return convertTable(t, src), true
	case *ast.Blockquote:
		return Block{Kind: BlockQuote, Children: convertBlocks(t, src)}, true
	case *ast.ThematicBreak:
		return Block{Kind: BlockRule}, true
	case *ast.HTMLBlock:
		return Block{Kind: BlockHTML, Literal: htmlBlockText(t, src)}, true
	default:
		// anything unexpected degrades to a plain text paragraph
		txt := nodeText(n, src)
		if txt == "" {
			return Block{}, false
		}
		return Block{
			Kind:    BlockParagraph,
			Inlines: []Inline{{Kind: InlineText, Text: txt}},
		}, true
	}
}

func convertList(l *ast.List, src []byte) Block {
	b := Block{Kind: BlockList, Ordered: l.IsOrdered(), Start: l.Start}
	if b.Ordered && b.Start == 0 {
		b.Start = 1
	}
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		b.Items = append(b.Items, ListItem{Blocks: convertBlocks(item, src)})
	}
	return b
}

func convertTable(t *east.Table, src []byte) Block {
	b := Block{Kind: BlockTable}
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []Cell
		for c := row.FirstChild(); c != nil; c = c.NextSibling() {
			cells = append(cells, Cell(convertInlines(c, src)))
		}
		if _, ok := row.(*east.TableHeader); ok {
			b.Header = cells
			continue
		}
		b.Rows = append(b.Rows, cells)
	}
	return b
}

func convertInlines(parent ast.Node, src []byte) []Inline {
	var out []Inline
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		out = append(out, convertInline(n, src)...)
	}
	return out
}

func convertInline(n ast.Node, src []byte) []Inline {
	switch t := n.(type) {
	case *ast.Text:
		out := []Inline{{Kind: InlineText, Text: string(t.Segment.Value(src))}}
		if t.HardLineBreak() {
			out = append(out, Inline{Kind: InlineBreak})
		} else if t.SoftLineBreak() {
			out = append(out, Inline{Kind: InlineSoftBreak})
		}
		return out
	case *ast.String:
		return []Inline{{Kind: InlineText, Text: string(t.Value)}}
	case *ast.Emphasis:
		kind := InlineEmphasis
		if t.Level >= 2 {
			kind = InlineStrong
		}
		return []Inline{{Kind: kind, Children: convertInlines(t, src)}}
	case *east.Strikethrough:
		return []Inline{{Kind: InlineStrike, Children: convertInlines(t, src)}}
	case *ast.CodeSpan:
		return []Inline{{Kind: InlineCode, Text: nodeText(t, src)}}
	case *ast.Link:
		return []Inline{{
			Kind:     InlineLink,
			URL:      string(t.Destination),
			Children: convertInlines(t, src),
		}}
	case *ast.AutoLink:
		url := string(t.URL(src))
		return []Inline{{
			Kind:     InlineLink,
			URL:      url,
			Children: []Inline{{Kind: InlineText, Text: string(t.Label(src))}},
		}}
	case *ast.Image:
		return []Inline{{
			Kind: InlineImage,
			URL:  string(t.Destination),
			Alt:  nodeText(t, src),
		}}
	case *ast.RawHTML:
		return []Inline{{Kind: InlineText, Text: segmentsText(t.Segments, src)}}
	default:
		txt := nodeText(n, src)
		if txt == "" {
			return nil
		}
		return []Inline{{Kind: InlineText, Text: txt}}
	}
}

func linesText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		s := lines.At(i)
		buf.Write(s.Value(src))
	}
	return buf.String()
}

func htmlBlockText(n *ast.HTMLBlock, src []byte) string {
	var buf bytes.Buffer
	buf.WriteString(linesText(n, src))
	if n.HasClosure() {
		buf.Write(n.ClosureLine.Value(src))
	}
	return buf.String()
}

func segmentsText(segs *text.Segments, src []byte) string {
	var buf bytes.Buffer
	for i := 0; i < segs.Len(); i++ {
		s := segs.At(i)
		buf.Write(s.Value(src))
	}
	return buf.String()
}

// nodeText collects the raw text content of a node subtree.
func nodeText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}
