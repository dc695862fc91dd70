package content

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"mdoc/markdown"
	"mdoc/style"
)

// Paragraph style identifiers referenced by the renderer and defined by the
// package generator.
const (
	StyleTitle    = "Title"
	StyleSubtitle = "Subtitle"
	StyleQuote    = "Quote"
	StyleCode     = "CodeBlock"
)

// StyleHeading returns the paragraph style id for heading depth 1..6.
func StyleHeading(level int) string {
	if level < 1 {
		level = 1
	} else if level > 6 {
		level = 6
	}
	return fmt.Sprintf("Heading%d", level)
}

// bullet glyphs cycle by nesting depth
var bullets = []string{"•", "◦", "▪"}

const (
	listIndentStep = 360 // twips per nesting level
	mutedColor     = "666666"
	diagramLang    = "mermaid"
)

// Options control title, date and table of contents handling.
type Options struct {
	Title  string // explicit title, overrides auto-detection
	Date   string // title page date line, already formatted
	TOC    bool
	SkipH1 bool // drop a leading first-level heading when Title is explicit
}

// Renderer turns a block token stream and a resolved style into a Document.
type Renderer struct {
	st     *style.Config
	assets AssetResolver
	log    *zap.Logger
	opts   Options
}

func NewRenderer(st *style.Config, assets AssetResolver, log *zap.Logger, opts Options) *Renderer {
	return &Renderer{st: st, assets: assets, log: log, opts: opts}
}

// Render builds the document model. Asset failures never abort rendering,
// they are substituted with placeholders and returned for reporting.
func (r *Renderer) Render(ctx context.Context, tokens []markdown.Block) (*Document, []error) {
	doc := &Document{}
	var fails []error

	title, preamble, body := r.splitTitle(tokens)
	doc.Title = title

	if title != "" {
		ts := &Section{Title: true}
		ts.Blocks = append(ts.Blocks, &Block{Para: &Paragraph{
			StyleID: StyleTitle,
			Align:   AlignCenter,
			Runs:    []*Run{{Text: title}},
		}})
		if r.opts.Date != "" {
			ts.Blocks = append(ts.Blocks, &Block{Para: &Paragraph{
				StyleID: StyleSubtitle,
				Align:   AlignCenter,
				Runs:    []*Run{{Text: r.opts.Date}},
			}})
		}
		for _, t := range preamble {
			blocks := r.renderBlock(ctx, t, &fails)
			for _, b := range blocks {
				if b.Para != nil {
					b.Para.Align = AlignCenter
				}
			}
			ts.Blocks = append(ts.Blocks, blocks...)
		}
		doc.Sections = append(doc.Sections, ts)
	}

	if r.opts.TOC {
		doc.Sections = append(doc.Sections, &Section{TOC: true})
	}

	main := &Section{}
	for _, t := range body {
		main.Blocks = append(main.Blocks, r.renderBlock(ctx, t, &fails)...)
	}
	doc.Sections = append(doc.Sections, main)
	return doc, fails
}

// splitTitle decides the document title and carves out the title page
// content. The first first-level heading ahead of the first horizontal rule
// is consumed as the title even when other content precedes it; tokens
// between it and the rule become the preamble and the rule itself is a
// section boundary, not rendered. Without a rule there is no preamble.
// Rules elsewhere render as page breaks.
func (r *Renderer) splitTitle(tokens []markdown.Block) (title string, preamble, body []markdown.Block) {
	first, rule := -1, -1
	for i, t := range tokens {
		if first < 0 && t.Kind == markdown.BlockHeading && t.Level == 1 {
			first = i
		}
		if t.Kind == markdown.BlockRule {
			rule = i
			break
		}
	}

	if r.opts.Title != "" {
		title = r.opts.Title
		if first < 0 || !r.opts.SkipH1 {
			return title, nil, tokens
		}
	} else {
		if first < 0 {
			return "", nil, tokens
		}
		title = strings.TrimSpace(markdown.FlattenText(tokens[first].Inlines))
	}

	if rule >= 0 {
		return title, tokens[first+1 : rule], tokens[rule+1:]
	}
	return title, nil, tokens[first+1:]
}

func (r *Renderer) renderBlock(ctx context.Context, t markdown.Block, fails *[]error) []*Block {
	switch t.Kind {
	case markdown.BlockHeading:
		return []*Block{{Para: &Paragraph{
			StyleID: StyleHeading(t.Level),
			Runs:    r.runs(ctx, t.Inlines, runState{}, fails),
		}}}
	case markdown.BlockParagraph:
		if ref, ok := soleImage(t.Inlines); ok {
			return []*Block{r.imageBlock(ctx, ref, fails)}
		}
		return []*Block{{Para: &Paragraph{Runs: r.runs(ctx, t.Inlines, runState{}, fails)}}}
	case markdown.BlockList:
		var out []*Block
		r.renderList(ctx, t, 0, &out, fails)
		return out
	case markdown.BlockTable:
		return []*Block{{Table: r.table(ctx, t, fails)}}
	case markdown.BlockCode:
		if strings.HasPrefix(strings.ToLower(t.Info), diagramLang) {
			return []*Block{r.diagramBlock(ctx, t.Literal, fails)}
		}
		return r.codeBlocks(t.Literal)
	case markdown.BlockQuote:
		return r.renderQuote(ctx, t, fails)
	case markdown.BlockRule:
		return []*Block{{PageBreak: true}}
	case markdown.BlockHTML:
		txt := htmlText(t.Literal)
		if txt == "" {
			return nil
		}
		return []*Block{{Para: &Paragraph{
			Runs: []*Run{{Text: txt, Color: mutedColor}},
		}}}
	case markdown.BlockSpace:
		return nil
	default:
		r.log.Warn("skipping unhandled block token", zap.Int("kind", int(t.Kind)))
		return nil
	}
}

// runState carries inherited inline formatting during recursive descent.
type runState struct {
	bold, italic, strike bool
	link                 string
}

func (r *Renderer) runs(ctx context.Context, inlines []markdown.Inline, st runState, fails *[]error) []*Run {
	var out []*Run
	for _, in := range inlines {
		switch in.Kind {
		case markdown.InlineText:
			out = append(out, &Run{
				Text: in.Text,
				Bold: st.bold, Italic: st.italic, Strike: st.strike,
				Link: st.link,
			})
		case markdown.InlineEmphasis:
			s := st
			s.italic = true
			out = append(out, r.runs(ctx, in.Children, s, fails)...)
		case markdown.InlineStrong:
			s := st
			s.bold = true
			out = append(out, r.runs(ctx, in.Children, s, fails)...)
		case markdown.InlineStrike:
			s := st
			s.strike = true
			out = append(out, r.runs(ctx, in.Children, s, fails)...)
		case markdown.InlineCode:
			out = append(out, &Run{
				Text:    in.Text,
				Bold:    st.bold,
				Font:    r.st.FontCode,
				Size:    style.HalfPoints(r.st.CodeFontSize),
				Shading: r.st.CodeBG,
				Link:    st.link,
			})
		case markdown.InlineLink:
			s := st
			s.link = in.URL
			out = append(out, r.runs(ctx, in.Children, s, fails)...)
		case markdown.InlineImage:
			out = append(out, r.inlineImage(ctx, in, fails))
		case markdown.InlineBreak:
			out = append(out, &Run{Break: true})
		case markdown.InlineSoftBreak:
			out = append(out, &Run{Text: " ", Bold: st.bold, Italic: st.italic, Strike: st.strike, Link: st.link})
		default:
			out = append(out, &Run{Text: in.Text})
		}
	}
	return out
}

// soleImage reports whether the inline content is a single image reference,
// ignoring surrounding whitespace text.
func soleImage(inlines []markdown.Inline) (string, bool) {
	ref, seen := "", false
	for _, in := range inlines {
		switch in.Kind {
		case markdown.InlineImage:
			if seen {
				return "", false
			}
			ref, seen = in.URL, true
		case markdown.InlineText:
			if strings.TrimSpace(in.Text) != "" {
				return "", false
			}
		case markdown.InlineSoftBreak:
		default:
			return "", false
		}
	}
	return ref, seen
}

func (r *Renderer) imageBlock(ctx context.Context, ref string, fails *[]error) *Block {
	a, err := r.assets.Image(ctx, ref)
	if err != nil {
		*fails = append(*fails, &UnresolvedAssetError{Ref: ref, Err: err})
		r.log.Warn("image unresolved", zap.String("ref", ref), zap.Error(err))
		return placeholder(fmt.Sprintf("[image unavailable: %s]", ref))
	}
	return &Block{Image: &Image{
		Ref:    ref,
		Format: a.Format,
		Data:   a.Data,
		Width:  a.Width,
		Height: a.Height,
	}}
}

func (r *Renderer) inlineImage(ctx context.Context, in markdown.Inline, fails *[]error) *Run {
	a, err := r.assets.Image(ctx, in.URL)
	if err != nil {
		*fails = append(*fails, &UnresolvedAssetError{Ref: in.URL, Err: err})
		r.log.Warn("image unresolved", zap.String("ref", in.URL), zap.Error(err))
		return &Run{Text: fmt.Sprintf("[image unavailable: %s]", in.URL), Italic: true, Color: mutedColor}
	}
	return &Run{Image: &Image{
		Ref:    in.URL,
		Format: a.Format,
		Data:   a.Data,
		Width:  a.Width,
		Height: a.Height,
	}}
}

func (r *Renderer) diagramBlock(ctx context.Context, source string, fails *[]error) *Block {
	a, err := r.assets.Diagram(ctx, source)
	if err != nil {
		*fails = append(*fails, &UnresolvedAssetError{Ref: "mermaid diagram", Err: err})
		r.log.Warn("diagram unresolved", zap.Error(err))
		return placeholder("[diagram unavailable]")
	}
	return &Block{Image: &Image{
		Ref:    "mermaid diagram",
		Format: a.Format,
		Data:   a.Data,
		Width:  a.Width,
		Height: a.Height,
	}}
}

func placeholder(text string) *Block {
	return &Block{Para: &Paragraph{
		Runs: []*Run{{Text: text, Italic: true, Color: mutedColor}},
	}}
}

func (r *Renderer) renderList(ctx context.Context, t markdown.Block, depth int, out *[]*Block, fails *[]error) {
	num := t.Start
	indent := listIndentStep * (depth + 1)
	for _, item := range t.Items {
		prefix := bullets[depth%len(bullets)] + " "
		if t.Ordered {
			prefix = strconv.Itoa(num) + ". "
			num++
		}
		// the marker attaches to the item's first paragraph; items starting
		// with something else get a marker-only paragraph
		markerPending := true
		if len(item.Blocks) == 0 || item.Blocks[0].Kind != markdown.BlockParagraph {
			*out = append(*out, &Block{Para: &Paragraph{
				Indent: indent,
				Runs:   []*Run{{Text: strings.TrimSpace(prefix)}},
			}})
			markerPending = false
		}
		for _, child := range item.Blocks {
			switch child.Kind {
			case markdown.BlockParagraph:
				p := &Paragraph{
					Indent: indent,
					Runs:   r.runs(ctx, child.Inlines, runState{}, fails),
				}
				if markerPending {
					p.Runs = append([]*Run{{Text: prefix}}, p.Runs...)
					markerPending = false
				}
				*out = append(*out, &Block{Para: p})
			case markdown.BlockList:
				r.renderList(ctx, child, depth+1, out, fails)
			default:
				for _, b := range r.renderBlock(ctx, child, fails) {
					if b.Para != nil {
						b.Para.Indent += indent
					}
					*out = append(*out, b)
				}
			}
		}
	}
}

func (r *Renderer) table(ctx context.Context, t markdown.Block, fails *[]error) *Table {
	cols := len(t.Header)
	if cols == 0 {
		for _, row := range t.Rows {
			if len(row) > cols {
				cols = len(row)
			}
		}
	}
	tbl := &Table{Columns: cols}
	if len(t.Header) > 0 {
		tbl.Header = r.tableRow(ctx, t.Header, cols, fails)
	}
	for _, row := range t.Rows {
		tbl.Rows = append(tbl.Rows, r.tableRow(ctx, row, cols, fails))
	}
	return tbl
}

func (r *Renderer) tableRow(ctx context.Context, cells []markdown.Cell, cols int, fails *[]error) []*Paragraph {
	row := make([]*Paragraph, cols)
	for i := 0; i < cols; i++ {
		if i < len(cells) {
			row[i] = &Paragraph{Runs: r.runs(ctx, []markdown.Inline(cells[i]), runState{}, fails)}
		} else {
			row[i] = &Paragraph{}
		}
	}
	return row
}

func (r *Renderer) renderQuote(ctx context.Context, t markdown.Block, fails *[]error) []*Block {
	var out []*Block
	for _, child := range t.Children {
		for _, b := range r.renderBlock(ctx, child, fails) {
			if b.Para != nil && b.Para.StyleID == "" {
				b.Para.StyleID = StyleQuote
			}
			out = append(out, b)
		}
	}
	return out
}

func (r *Renderer) codeBlocks(literal string) []*Block {
	var out []*Block
	lines := strings.Split(strings.TrimSuffix(literal, "\n"), "\n")
	for _, line := range lines {
		out = append(out, &Block{Para: &Paragraph{
			StyleID: StyleCode,
			Runs:    []*Run{{Text: line}},
		}})
	}
	out = append(out, &Block{Para: &Paragraph{}})
	return out
}

// htmlText extracts the visible text of a raw HTML block.
func htmlText(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(sb.String())
}
