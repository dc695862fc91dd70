// Package docx turns the document model into an OOXML package.
package docx

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mdoc/config"
	"mdoc/content"
	"mdoc/misc"
	"mdoc/ooxml"
	"mdoc/style"
)

const (
	nsMC  = "http://schemas.openxmlformats.org/markup-compatibility/2006"
	nsWP  = "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"
	nsPic = "http://schemas.openxmlformats.org/drawingml/2006/picture"

	hyperlinkRel = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"

	hyperlinkColor = "0563C1"
)

// Options control document-level extras outside the style configuration.
type Options struct {
	Pagination bool   // page number field in the footer
	Copyright  string // footer copyright line
	Subject    string
}

// Generator assembles one package from one document model. Not reusable.
type Generator struct {
	cfg  *config.DocumentConfig
	st   *style.Config
	opts Options
	log  *zap.Logger

	pkg        *ooxml.Package
	imageCount int
	docPrCount int
	hasFooter  bool
	hasTOC     bool
}

// Generate builds a complete package for the document model.
func Generate(doc *content.Document, st *style.Config, cfg *config.DocumentConfig, opts Options, log *zap.Logger) (*ooxml.Package, error) {
	g := &Generator{cfg: cfg, st: st, opts: opts, log: log, pkg: ooxml.NewPackage()}
	g.hasFooter = opts.Pagination || opts.Copyright != ""
	for _, s := range doc.Sections {
		if s.TOC {
			g.hasTOC = true
		}
	}

	g.writeContentTypes()
	g.writePackageRels()
	g.writeDocumentRels()
	if err := g.writeDocument(doc); err != nil {
		return nil, err
	}
	g.writeStyles()
	g.writeSettings()
	if g.hasFooter {
		g.writeFooter()
	}
	g.writeDocProps(doc.Title)
	return g.pkg, nil
}

func (g *Generator) writeContentTypes() {
	doc := g.pkg.NewXMLPart(ooxml.PartContentTypes)
	types := doc.CreateElement("Types")
	types.CreateAttr("xmlns", ooxml.NSTypes)

	def := func(ext, ct string) {
		d := types.CreateElement("Default")
		d.CreateAttr("Extension", ext)
		d.CreateAttr("ContentType", ct)
	}
	def("rels", ooxml.CTRelationships)
	def("xml", "application/xml")
	def("png", "image/png")
	def("jpeg", "image/jpeg")

	override := func(part, ct string) {
		o := types.CreateElement("Override")
		o.CreateAttr("PartName", "/"+part)
		o.CreateAttr("ContentType", ct)
	}
	override(ooxml.PartDocument, ooxml.CTDocument)
	override(ooxml.PartStyles, ooxml.CTStyles)
	override(ooxml.PartSettings, ooxml.CTSettings)
	if g.hasFooter {
		override("word/footer1.xml", ooxml.CTFooter)
	}
	override("docProps/core.xml", ooxml.CTCoreProperties)
	override("docProps/app.xml", ooxml.CTExtProperties)
}

func (g *Generator) writePackageRels() {
	doc := g.pkg.NewXMLPart(ooxml.PartPackageRels)
	root := doc.CreateElement("Relationships")
	root.CreateAttr("xmlns", ooxml.NSRelPkg)

	rel := func(id, relType, target string) {
		r := root.CreateElement("Relationship")
		r.CreateAttr("Id", id)
		r.CreateAttr("Type", relType)
		r.CreateAttr("Target", target)
	}
	rel("rId1", ooxml.RelOfficeDocument, "word/document.xml")
	rel("rId2", "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties", "docProps/core.xml")
	rel("rId3", "http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties", "docProps/app.xml")
}

func (g *Generator) writeDocumentRels() {
	doc := g.pkg.NewXMLPart(ooxml.PartDocumentRels)
	doc.CreateElement("Relationships").CreateAttr("xmlns", ooxml.NSRelPkg)
}

func (g *Generator) writeDocument(doc *content.Document) error {
	part := g.pkg.NewXMLPart(ooxml.PartDocument)
	root := part.CreateElement("w:document")
	root.CreateAttr("xmlns:w", ooxml.NSWordML)
	root.CreateAttr("xmlns:w14", ooxml.NSWordML14)
	root.CreateAttr("xmlns:w15", ooxml.NSWordML15)
	root.CreateAttr("xmlns:r", ooxml.NSRelDoc)
	root.CreateAttr("xmlns:a", ooxml.NSDrawing)
	root.CreateAttr("xmlns:wp", nsWP)
	root.CreateAttr("xmlns:pic", nsPic)
	root.CreateAttr("xmlns:mc", nsMC)
	root.CreateAttr("mc:Ignorable", "w14 w15")

	body := root.CreateElement("w:body")

	var footerRID string
	if g.hasFooter {
		var err error
		footerRID, err = g.pkg.AddRelationship(ooxml.PartDocument, ooxml.RelFooter, "word/footer1.xml")
		if err != nil {
			return err
		}
	}

	for i, section := range doc.Sections {
		if section.TOC {
			g.writeTOCSection(body)
		} else {
			for _, b := range section.Blocks {
				if err := g.writeBlock(body, b); err != nil {
					return err
				}
			}
		}
		last := i == len(doc.Sections)-1
		g.writeSectPr(body, footerRID, last)
	}
	return nil
}

// writeSectPr closes a section. Intermediate sections carry their properties
// in a dedicated paragraph, the final one directly in the body.
func (g *Generator) writeSectPr(body *etree.Element, footerRID string, last bool) {
	var sectPr *etree.Element
	if last {
		sectPr = body.CreateElement("w:sectPr")
	} else {
		p := body.CreateElement("w:p")
		pPr := p.CreateElement("w:pPr")
		sectPr = pPr.CreateElement("w:sectPr")
	}
	if footerRID != "" {
		fr := sectPr.CreateElement("w:footerReference")
		fr.CreateAttr("w:type", "default")
		fr.CreateAttr("r:id", footerRID)
	}
	sz := sectPr.CreateElement("w:pgSz")
	sz.CreateAttr("w:w", strconv.Itoa(g.cfg.Page.Width))
	sz.CreateAttr("w:h", strconv.Itoa(g.cfg.Page.Height))
	margin := strconv.Itoa(g.cfg.Page.Margin)
	mar := sectPr.CreateElement("w:pgMar")
	for _, side := range []string{"top", "right", "bottom", "left"} {
		mar.CreateAttr("w:"+side, margin)
	}
	mar.CreateAttr("w:header", "720")
	mar.CreateAttr("w:footer", "720")
}

func (g *Generator) writeBlock(body *etree.Element, b *content.Block) error {
	switch {
	case b.Para != nil:
		return g.writeParagraph(body, b.Para)
	case b.Table != nil:
		return g.writeTable(body, b.Table)
	case b.Image != nil:
		p := body.CreateElement("w:p")
		return g.writeImageRun(p, b.Image)
	case b.PageBreak:
		p := body.CreateElement("w:p")
		r := p.CreateElement("w:r")
		br := r.CreateElement("w:br")
		br.CreateAttr("w:type", "page")
		return nil
	}
	return nil
}

func (g *Generator) writeParagraph(parent *etree.Element, p *content.Paragraph) error {
	pe := parent.CreateElement("w:p")
	g.writeParaProps(pe, p)
	for _, run := range p.Runs {
		if err := g.writeRun(pe, run); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) writeParaProps(pe *etree.Element, p *content.Paragraph) {
	if p.StyleID == "" && p.Indent == 0 && p.Align == content.AlignLeft {
		return
	}
	pPr := pe.CreateElement("w:pPr")
	if p.StyleID != "" {
		st := pPr.CreateElement("w:pStyle")
		st.CreateAttr("w:val", p.StyleID)
	}
	if p.Indent > 0 {
		ind := pPr.CreateElement("w:ind")
		ind.CreateAttr("w:left", strconv.Itoa(p.Indent))
	}
	switch p.Align {
	case content.AlignCenter:
		pPr.CreateElement("w:jc").CreateAttr("w:val", "center")
	case content.AlignRight:
		pPr.CreateElement("w:jc").CreateAttr("w:val", "right")
	}
}

func (g *Generator) writeRun(pe *etree.Element, run *content.Run) error {
	if run.Image != nil {
		return g.writeImageRun(pe, run.Image)
	}

	parent := pe
	if run.Link != "" {
		rid, err := g.pkg.AddExternalRelationship(ooxml.PartDocument, hyperlinkRel, run.Link)
		if err != nil {
			return err
		}
		h := pe.CreateElement("w:hyperlink")
		h.CreateAttr("r:id", rid)
		parent = h
	}

	r := parent.CreateElement("w:r")
	g.writeRunProps(r, run)
	if run.Break {
		r.CreateElement("w:br")
		return nil
	}
	t := r.CreateElement("w:t")
	if needsPreserve(run.Text) {
		t.CreateAttr("xml:space", "preserve")
	}
	t.SetText(run.Text)
	return nil
}

func needsPreserve(s string) bool {
	if s == "" {
		return true
	}
	return s[0] == ' ' || s[len(s)-1] == ' ' || s[0] == '\t' || s[len(s)-1] == '\t'
}

func (g *Generator) writeRunProps(r *etree.Element, run *content.Run) {
	link := run.Link != ""
	if !run.Bold && !run.Italic && !run.Strike && run.Font == "" && run.Size == 0 &&
		run.Color == "" && run.Shading == "" && !link {
		return
	}
	rPr := r.CreateElement("w:rPr")
	if run.Font != "" {
		f := rPr.CreateElement("w:rFonts")
		f.CreateAttr("w:ascii", run.Font)
		f.CreateAttr("w:hAnsi", run.Font)
		f.CreateAttr("w:cs", run.Font)
	}
	if run.Bold {
		rPr.CreateElement("w:b")
	}
	if run.Italic {
		rPr.CreateElement("w:i")
	}
	if run.Strike {
		rPr.CreateElement("w:strike")
	}
	switch {
	case run.Color != "":
		rPr.CreateElement("w:color").CreateAttr("w:val", run.Color)
	case link:
		rPr.CreateElement("w:color").CreateAttr("w:val", hyperlinkColor)
	}
	if link {
		rPr.CreateElement("w:u").CreateAttr("w:val", "single")
	}
	if run.Size > 0 {
		rPr.CreateElement("w:sz").CreateAttr("w:val", strconv.Itoa(run.Size))
		rPr.CreateElement("w:szCs").CreateAttr("w:val", strconv.Itoa(run.Size))
	}
	if run.Shading != "" {
		shd := rPr.CreateElement("w:shd")
		shd.CreateAttr("w:val", "clear")
		shd.CreateAttr("w:color", "auto")
		shd.CreateAttr("w:fill", run.Shading)
	}
}

func (g *Generator) writeImageRun(pe *etree.Element, img *content.Image) error {
	g.imageCount++
	ext := img.Format
	if ext != "png" && ext != "jpeg" {
		return fmt.Errorf("unsupported embedded image format %q", ext)
	}
	name := fmt.Sprintf("word/media/image%d.%s", g.imageCount, ext)
	rid, err := g.pkg.AddPart(name, img.Data, ooxml.PartDocument, ooxml.RelImage, "image/"+ext)
	if err != nil {
		return err
	}
	g.docPrCount++

	r := pe.CreateElement("w:r")
	drawing := r.CreateElement("w:drawing")
	inline := drawing.CreateElement("wp:inline")
	for _, a := range []string{"distT", "distB", "distL", "distR"} {
		inline.CreateAttr(a, "0")
	}
	extent := inline.CreateElement("wp:extent")
	extent.CreateAttr("cx", strconv.FormatInt(img.Width, 10))
	extent.CreateAttr("cy", strconv.FormatInt(img.Height, 10))
	docPr := inline.CreateElement("wp:docPr")
	docPr.CreateAttr("id", strconv.Itoa(g.docPrCount))
	docPr.CreateAttr("name", fmt.Sprintf("Picture %d", g.docPrCount))

	graphic := inline.CreateElement("a:graphic")
	gd := graphic.CreateElement("a:graphicData")
	gd.CreateAttr("uri", nsPic)

	pic := gd.CreateElement("pic:pic")
	nv := pic.CreateElement("pic:nvPicPr")
	cNvPr := nv.CreateElement("pic:cNvPr")
	cNvPr.CreateAttr("id", strconv.Itoa(g.docPrCount))
	cNvPr.CreateAttr("name", fmt.Sprintf("Picture %d", g.docPrCount))
	nv.CreateElement("pic:cNvPicPr")

	fill := pic.CreateElement("pic:blipFill")
	blip := fill.CreateElement("a:blip")
	blip.CreateAttr("r:embed", rid)
	fill.CreateElement("a:stretch").CreateElement("a:fillRect")

	spPr := pic.CreateElement("pic:spPr")
	xfrm := spPr.CreateElement("a:xfrm")
	off := xfrm.CreateElement("a:off")
	off.CreateAttr("x", "0")
	off.CreateAttr("y", "0")
	aExt := xfrm.CreateElement("a:ext")
	aExt.CreateAttr("cx", strconv.FormatInt(img.Width, 10))
	aExt.CreateAttr("cy", strconv.FormatInt(img.Height, 10))
	geom := spPr.CreateElement("a:prstGeom")
	geom.CreateAttr("prst", "rect")
	geom.CreateElement("a:avLst")
	return nil
}

func (g *Generator) writeTable(body *etree.Element, tbl *content.Table) error {
	if tbl.Columns == 0 {
		return nil
	}
	usable := g.cfg.Page.Width - 2*g.cfg.Page.Margin
	colW := usable / tbl.Columns

	te := body.CreateElement("w:tbl")
	tblPr := te.CreateElement("w:tblPr")
	tw := tblPr.CreateElement("w:tblW")
	tw.CreateAttr("w:w", strconv.Itoa(colW*tbl.Columns))
	tw.CreateAttr("w:type", "dxa")

	borders := tblPr.CreateElement("w:tblBorders")
	for _, side := range []string{"top", "left", "bottom", "right", "insideH", "insideV"} {
		b := borders.CreateElement("w:" + side)
		b.CreateAttr("w:val", "single")
		b.CreateAttr("w:sz", strconv.Itoa(g.st.TableBorderSize))
		b.CreateAttr("w:space", "0")
		b.CreateAttr("w:color", g.st.TableBorder)
	}

	margins := tblPr.CreateElement("w:tblCellMar")
	for _, side := range []string{"top", "left", "bottom", "right"} {
		m := margins.CreateElement("w:" + side)
		m.CreateAttr("w:w", strconv.Itoa(g.st.TableCellMargin))
		m.CreateAttr("w:type", "dxa")
	}
	tblPr.CreateElement("w:tblLayout").CreateAttr("w:type", "fixed")

	grid := te.CreateElement("w:tblGrid")
	for i := 0; i < tbl.Columns; i++ {
		grid.CreateElement("w:gridCol").CreateAttr("w:w", strconv.Itoa(colW))
	}

	if tbl.Header != nil {
		if err := g.writeTableRow(te, tbl.Header, colW, true, false); err != nil {
			return err
		}
	}
	for i, row := range tbl.Rows {
		banded := g.st.TableBandedRows && i%2 == 1
		if err := g.writeTableRow(te, row, colW, false, banded); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) writeTableRow(te *etree.Element, cells []*content.Paragraph, colW int, header, banded bool) error {
	tr := te.CreateElement("w:tr")
	if header {
		// repeat the header row across page breaks
		trPr := tr.CreateElement("w:trPr")
		trPr.CreateElement("w:tblHeader")
	}
	for _, cell := range cells {
		tc := tr.CreateElement("w:tc")
		tcPr := tc.CreateElement("w:tcPr")
		tcw := tcPr.CreateElement("w:tcW")
		tcw.CreateAttr("w:w", strconv.Itoa(colW))
		tcw.CreateAttr("w:type", "dxa")
		if header || banded {
			fill := g.st.TableAltRow
			if header {
				fill = g.st.TableHeaderBG
			}
			shd := tcPr.CreateElement("w:shd")
			shd.CreateAttr("w:val", "clear")
			shd.CreateAttr("w:color", "auto")
			shd.CreateAttr("w:fill", fill)
		}

		styled := g.cellParagraph(cell, header)
		if err := g.writeParagraph(tc, styled); err != nil {
			return err
		}
	}
	return nil
}

// cellParagraph applies table typography to runs that do not set their own.
func (g *Generator) cellParagraph(p *content.Paragraph, header bool) *content.Paragraph {
	out := &content.Paragraph{StyleID: p.StyleID, Align: p.Align, Indent: p.Indent}
	size := style.HalfPoints(g.st.TableFontSize)
	for _, r := range p.Runs {
		c := *r
		if c.Size == 0 {
			c.Size = size
		}
		if header {
			c.Bold = true
			if c.Color == "" {
				c.Color = g.st.TableHeaderText
			}
		}
		out.Runs = append(out.Runs, &c)
	}
	if len(out.Runs) == 0 {
		// keep the cell valid with an empty sized run
		out.Runs = []*content.Run{{Size: size}}
	}
	return out
}

// writeTOCSection emits a heading and a live TOC field for levels 1-3. The
// field content is populated by the consuming application on update.
func (g *Generator) writeTOCSection(body *etree.Element) {
	h := body.CreateElement("w:p")
	hPr := h.CreateElement("w:pPr")
	hPr.CreateElement("w:pStyle").CreateAttr("w:val", "TOCHeading")
	hr := h.CreateElement("w:r")
	ht := hr.CreateElement("w:t")
	ht.SetText("Table of Contents")

	p := body.CreateElement("w:p")
	begin := p.CreateElement("w:r").CreateElement("w:fldChar")
	begin.CreateAttr("w:fldCharType", "begin")
	begin.CreateAttr("w:dirty", "true")

	ir := p.CreateElement("w:r")
	instr := ir.CreateElement("w:instrText")
	instr.CreateAttr("xml:space", "preserve")
	instr.SetText(` TOC \o "1-3" \h \z \u `)

	p.CreateElement("w:r").CreateElement("w:fldChar").CreateAttr("w:fldCharType", "separate")

	pr := p.CreateElement("w:r")
	pt := pr.CreateElement("w:t")
	pt.SetText("Right-click and choose Update Field to populate the table of contents.")

	p.CreateElement("w:r").CreateElement("w:fldChar").CreateAttr("w:fldCharType", "end")
}

func (g *Generator) writeSettings() {
	doc := g.pkg.NewXMLPart(ooxml.PartSettings)
	root := doc.CreateElement("w:settings")
	root.CreateAttr("xmlns:w", ooxml.NSWordML)
	root.CreateAttr("xmlns:w15", ooxml.NSWordML15)

	if g.hasTOC {
		root.CreateElement("w:updateFields").CreateAttr("w:val", "true")
	}
	docID := root.CreateElement("w15:docId")
	docID.CreateAttr("w15:val", "{"+uuid.NewString()+"}")

	if _, err := g.pkg.AddRelationship(ooxml.PartDocument, ooxml.RelSettings, ooxml.PartSettings); err != nil {
		g.log.Warn("unable to relate settings part", zap.Error(err))
	}
}

func (g *Generator) writeFooter() {
	doc := g.pkg.NewXMLPart("word/footer1.xml")
	root := doc.CreateElement("w:ftr")
	root.CreateAttr("xmlns:w", ooxml.NSWordML)

	p := root.CreateElement("w:p")
	pPr := p.CreateElement("w:pPr")
	pPr.CreateElement("w:jc").CreateAttr("w:val", "center")

	if g.opts.Copyright != "" {
		r := p.CreateElement("w:r")
		rPr := r.CreateElement("w:rPr")
		rPr.CreateElement("w:sz").CreateAttr("w:val", "16")
		rPr.CreateElement("w:color").CreateAttr("w:val", "808080")
		t := r.CreateElement("w:t")
		t.CreateAttr("xml:space", "preserve")
		sep := ""
		if g.opts.Pagination {
			sep = "    "
		}
		t.SetText(g.opts.Copyright + sep)
	}
	if g.opts.Pagination {
		p.CreateElement("w:r").CreateElement("w:fldChar").CreateAttr("w:fldCharType", "begin")
		ir := p.CreateElement("w:r")
		instr := ir.CreateElement("w:instrText")
		instr.CreateAttr("xml:space", "preserve")
		instr.SetText(" PAGE ")
		p.CreateElement("w:r").CreateElement("w:fldChar").CreateAttr("w:fldCharType", "end")
	}
}

func (g *Generator) writeDocProps(title string) {
	core := g.pkg.NewXMLPart("docProps/core.xml")
	root := core.CreateElement("cp:coreProperties")
	root.CreateAttr("xmlns:cp", "http://schemas.openxmlformats.org/package/2006/metadata/core-properties")
	root.CreateAttr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
	if title != "" {
		root.CreateElement("dc:title").SetText(title)
	}
	if g.opts.Subject != "" {
		root.CreateElement("dc:subject").SetText(g.opts.Subject)
	}
	root.CreateElement("dc:creator").SetText(g.cfg.Author)

	app := g.pkg.NewXMLPart("docProps/app.xml")
	aroot := app.CreateElement("Properties")
	aroot.CreateAttr("xmlns", "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties")
	aroot.CreateElement("Application").SetText(misc.GetAppName() + "/" + misc.GetVersion())
}
