package docx

import (
	"strconv"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"mdoc/content"
	"mdoc/ooxml"
	"mdoc/style"
)

// headingSizes maps heading depth to point size.
var headingSizes = map[int]float64{1: 20, 2: 16, 3: 14, 4: 12, 5: 11, 6: 10.5}

const (
	titleSize    = 28.0
	subtitleSize = 14.0
	tocHeadSize  = 16.0

	twipsPerPoint = 20
)

func twips(pt float64) string {
	return strconv.Itoa(int(pt*twipsPerPoint + 0.5))
}

func halfPt(pt float64) string {
	return strconv.Itoa(style.HalfPoints(pt))
}

func (g *Generator) writeStyles() {
	doc := g.pkg.NewXMLPart(ooxml.PartStyles)
	root := doc.CreateElement("w:styles")
	root.CreateAttr("xmlns:w", ooxml.NSWordML)

	g.writeDocDefaults(root)
	g.writeNormal(root)
	g.writeTitleStyles(root)
	for level := 1; level <= 6; level++ {
		g.writeHeading(root, level)
	}
	g.writeTOCHeading(root)
	g.writeQuote(root)
	g.writeCodeBlock(root)
	g.writeHyperlink(root)

	if _, err := g.pkg.AddRelationship(ooxml.PartDocument, ooxml.RelStyles, ooxml.PartStyles); err != nil {
		g.log.Warn("unable to relate styles part", zap.Error(err))
	}
}

func (g *Generator) writeDocDefaults(root *etree.Element) {
	defaults := root.CreateElement("w:docDefaults")
	rPr := defaults.CreateElement("w:rPrDefault").CreateElement("w:rPr")
	fonts := rPr.CreateElement("w:rFonts")
	fonts.CreateAttr("w:ascii", g.st.FontBody)
	fonts.CreateAttr("w:hAnsi", g.st.FontBody)
	fonts.CreateAttr("w:cs", g.st.FontBody)
	rPr.CreateElement("w:color").CreateAttr("w:val", g.st.ColorBody)
	rPr.CreateElement("w:sz").CreateAttr("w:val", halfPt(g.st.FontSize))
	rPr.CreateElement("w:szCs").CreateAttr("w:val", halfPt(g.st.FontSize))
	defaults.CreateElement("w:pPrDefault")
}

// newStyle creates a paragraph or character style skeleton and returns its
// pPr and rPr containers.
func newStyle(root *etree.Element, styleType, id, name, basedOn string) (pPr, rPr *etree.Element) {
	st := root.CreateElement("w:style")
	st.CreateAttr("w:type", styleType)
	st.CreateAttr("w:styleId", id)
	st.CreateElement("w:name").CreateAttr("w:val", name)
	if basedOn != "" {
		st.CreateElement("w:basedOn").CreateAttr("w:val", basedOn)
	}
	if styleType == "paragraph" {
		pPr = st.CreateElement("w:pPr")
	}
	rPr = st.CreateElement("w:rPr")
	return pPr, rPr
}

func spacing(pPr *etree.Element, beforePt, afterPt float64) {
	sp := pPr.CreateElement("w:spacing")
	sp.CreateAttr("w:before", twips(beforePt))
	sp.CreateAttr("w:after", twips(afterPt))
}

func (g *Generator) writeNormal(root *etree.Element) {
	pPr, _ := newStyle(root, "paragraph", "Normal", "Normal", "")
	spacing(pPr, 0, 6)
}

func (g *Generator) writeTitleStyles(root *etree.Element) {
	pPr, rPr := newStyle(root, "paragraph", content.StyleTitle, "Title", "Normal")
	spacing(pPr, 0, 6)
	fonts := rPr.CreateElement("w:rFonts")
	fonts.CreateAttr("w:ascii", g.st.FontHeading)
	fonts.CreateAttr("w:hAnsi", g.st.FontHeading)
	rPr.CreateElement("w:b")
	rPr.CreateElement("w:color").CreateAttr("w:val", g.st.ColorHeading)
	rPr.CreateElement("w:sz").CreateAttr("w:val", halfPt(titleSize))
	rPr.CreateElement("w:szCs").CreateAttr("w:val", halfPt(titleSize))

	pPr, rPr = newStyle(root, "paragraph", content.StyleSubtitle, "Subtitle", "Normal")
	spacing(pPr, 12, 6)
	rPr.CreateElement("w:color").CreateAttr("w:val", g.st.ColorHeading)
	rPr.CreateElement("w:sz").CreateAttr("w:val", halfPt(subtitleSize))
	rPr.CreateElement("w:szCs").CreateAttr("w:val", halfPt(subtitleSize))
}

func (g *Generator) writeHeading(root *etree.Element, level int) {
	id := content.StyleHeading(level)
	pPr, rPr := newStyle(root, "paragraph", id, "heading "+strconv.Itoa(level), "Normal")

	before := 8.0
	if level <= 2 {
		before = 12
	}
	spacing(pPr, before, 6)
	pPr.CreateElement("w:keepNext")
	pPr.CreateElement("w:outlineLvl").CreateAttr("w:val", strconv.Itoa(level-1))

	fonts := rPr.CreateElement("w:rFonts")
	fonts.CreateAttr("w:ascii", g.st.FontHeading)
	fonts.CreateAttr("w:hAnsi", g.st.FontHeading)
	rPr.CreateElement("w:b")
	rPr.CreateElement("w:color").CreateAttr("w:val", g.st.ColorHeading)
	rPr.CreateElement("w:sz").CreateAttr("w:val", halfPt(headingSizes[level]))
	rPr.CreateElement("w:szCs").CreateAttr("w:val", halfPt(headingSizes[level]))
}

func (g *Generator) writeTOCHeading(root *etree.Element) {
	pPr, rPr := newStyle(root, "paragraph", "TOCHeading", "TOC Heading", "Normal")
	spacing(pPr, 12, 6)
	pPr.CreateElement("w:keepNext")
	fonts := rPr.CreateElement("w:rFonts")
	fonts.CreateAttr("w:ascii", g.st.FontHeading)
	fonts.CreateAttr("w:hAnsi", g.st.FontHeading)
	rPr.CreateElement("w:b")
	rPr.CreateElement("w:color").CreateAttr("w:val", g.st.ColorHeading)
	rPr.CreateElement("w:sz").CreateAttr("w:val", halfPt(tocHeadSize))
	rPr.CreateElement("w:szCs").CreateAttr("w:val", halfPt(tocHeadSize))
}

func (g *Generator) writeQuote(root *etree.Element) {
	pPr, rPr := newStyle(root, "paragraph", content.StyleQuote, "Quote", "Normal")
	spacing(pPr, 4, 4)
	pPr.CreateElement("w:ind").CreateAttr("w:left", "360")
	borders := pPr.CreateElement("w:pBdr")
	left := borders.CreateElement("w:left")
	left.CreateAttr("w:val", "single")
	left.CreateAttr("w:sz", "18")
	left.CreateAttr("w:space", "8")
	left.CreateAttr("w:color", g.st.TableBorder)
	rPr.CreateElement("w:i")
	rPr.CreateElement("w:color").CreateAttr("w:val", "666666")
}

func (g *Generator) writeCodeBlock(root *etree.Element) {
	pPr, rPr := newStyle(root, "paragraph", content.StyleCode, "Code Block", "Normal")
	spacing(pPr, 1, 1)
	shd := pPr.CreateElement("w:shd")
	shd.CreateAttr("w:val", "clear")
	shd.CreateAttr("w:color", "auto")
	shd.CreateAttr("w:fill", g.st.CodeBG)
	fonts := rPr.CreateElement("w:rFonts")
	fonts.CreateAttr("w:ascii", g.st.FontCode)
	fonts.CreateAttr("w:hAnsi", g.st.FontCode)
	fonts.CreateAttr("w:cs", g.st.FontCode)
	rPr.CreateElement("w:sz").CreateAttr("w:val", halfPt(g.st.CodeFontSize))
	rPr.CreateElement("w:szCs").CreateAttr("w:val", halfPt(g.st.CodeFontSize))
}

func (g *Generator) writeHyperlink(root *etree.Element) {
	_, rPr := newStyle(root, "character", "Hyperlink", "Hyperlink", "")
	rPr.CreateElement("w:color").CreateAttr("w:val", hyperlinkColor)
	rPr.CreateElement("w:u").CreateAttr("w:val", "single")
}
