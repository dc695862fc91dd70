// Package content builds the document model. The renderer walks the Markdown
// token stream and produces sections of block elements ready for packaging,
// it performs no I/O itself - assets come through the AssetResolver.
package content

// Align is paragraph alignment.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Document is an ordered sequence of sections plus document-wide metadata.
type Document struct {
	Title    string
	Sections []*Section
}

// Section is a run of block elements sharing page setup. Title and TOC
// sections get their own section breaks when packaged.
type Section struct {
	Title  bool
	TOC    bool
	Blocks []*Block
}

// Block is one block element. Exactly one field is set.
type Block struct {
	Para      *Paragraph
	Table     *Table
	Image     *Image
	PageBreak bool
}

// Paragraph holds ordered runs plus paragraph-level formatting. StyleID
// references a named paragraph style defined during packaging; zero value
// means the default style.
type Paragraph struct {
	StyleID string
	Align   Align
	Indent  int // additional left indent, twips
	Runs    []*Run
}

// Run is the smallest styled unit. Zero-valued formatting fields inherit from
// the paragraph style.
type Run struct {
	Text string

	Bold   bool
	Italic bool
	Strike bool

	Font    string
	Size    int    // half-points
	Color   string // RRGGBB
	Shading string // RRGGBB fill, inline code

	Link  string // hyperlink target
	Break bool   // explicit line break
	Image *Image // inline image
}

// Table keeps a constant column count across all rows. Column widths are
// computed from page geometry during packaging, never from content.
type Table struct {
	Columns int
	Header  []*Paragraph   // nil when the source table has no header row
	Rows    [][]*Paragraph // body rows, each exactly Columns cells
}

// Image is a resolved raster asset scaled to fit the content box.
type Image struct {
	Ref    string // original reference, used for diagnostics
	Format string // "png" or "jpeg"
	Data   []byte
	Width  int64 // EMU
	Height int64 // EMU
}

// Text returns the concatenated plain text of the paragraph.
func (p *Paragraph) Text() string {
	var s string
	for _, r := range p.Runs {
		s += r.Text
	}
	return s
}
