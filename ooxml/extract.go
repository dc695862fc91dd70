package ooxml

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"mdoc/style"
)

// table content styles conventionally used for cell text, matched by id or
// display name
var tableContentStyles = map[string]struct{}{
	"Table1":         {},
	"TableContents":  {},
	"Table Contents": {},
	"TableText":      {},
	"Table Text":     {},
}

// NormalizeTemplate rewrites a template container (.dotx/.dotm) to the base
// document content type so the rest of the pipeline treats it uniformly.
// Idempotent, a no-op for regular documents.
func NormalizeTemplate(pkg *Package) error {
	doc, err := pkg.XML(PartContentTypes)
	if err != nil {
		return err
	}
	root := doc.Root()
	if root == nil {
		return &PackageCorruptionError{Part: PartContentTypes, Reason: "no root element"}
	}
	for _, o := range root.SelectElements("Override") {
		if o.SelectAttrValue("PartName", "") != "/"+PartDocument {
			continue
		}
		if o.SelectAttrValue("ContentType", "") == CTTemplate {
			o.RemoveAttr("ContentType")
			o.CreateAttr("ContentType", CTDocument)
		}
	}
	return nil
}

// ExtractStyles mines a reference package's effective formatting into a
// partial style layer. Every step is best-effort: whatever part or element is
// absent simply contributes nothing. Mining an unchanged package twice yields
// the same layer.
func ExtractStyles(pkg *Package, log *zap.Logger) style.Layer {
	layer := style.Layer{}

	styles := rootOf(pkg, PartStyles)
	theme := rootOf(pkg, PartTheme)
	dk1 := themeDark1(theme)

	mineBodyDefaults(styles, dk1, layer)
	mineHeading(styles, dk1, layer)
	mineTableHeader(styles, layer)
	mineTableText(styles, layer)

	log.Debug("template styles mined", zap.Int("keys", len(layer)))
	return layer
}

func rootOf(pkg *Package, part string) *etree.Element {
	if !pkg.Has(part) {
		return nil
	}
	doc, err := pkg.XML(part)
	if err != nil {
		return nil
	}
	return doc.Root()
}

// mineBodyDefaults reads document-wide run defaults, falling back to the
// "Normal" style, falling back to the theme dark-1 swatch for color.
func mineBodyDefaults(styles *etree.Element, dk1 string, layer style.Layer) {
	var chain []*etree.Element
	if defaults := FindFirst(styles, NSWordML, "docDefaults"); defaults != nil {
		if rd := FindFirst(defaults, NSWordML, "rPrDefault"); rd != nil {
			if rPr := ChildNS(rd, NSWordML, "rPr"); rPr != nil {
				chain = append(chain, rPr)
			}
		}
	}
	if normal := styleByID(styles, "Normal"); normal != nil {
		if rPr := ChildNS(normal, NSWordML, "rPr"); rPr != nil {
			chain = append(chain, rPr)
		}
	}

	for _, rPr := range chain {
		if _, ok := layer[style.KeyFontBody]; !ok {
			if f := runFont(rPr); f != "" {
				layer[style.KeyFontBody] = f
			}
		}
		if _, ok := layer[style.KeyFontSize]; !ok {
			if sz := runSize(rPr); sz != "" {
				layer[style.KeyFontSize] = sz
			}
		}
		if _, ok := layer[style.KeyColorBody]; !ok {
			if c := runColor(rPr); c != "" {
				layer[style.KeyColorBody] = c
			}
		}
	}
	if _, ok := layer[style.KeyColorBody]; !ok && dk1 != "" {
		layer[style.KeyColorBody] = dk1
	}
}

// mineHeading takes font and color from the first numbered heading style
// present, levels checked ascending.
func mineHeading(styles *etree.Element, dk1 string, layer style.Layer) {
	for level := 1; level <= 9; level++ {
		st := styleByID(styles, fmt.Sprintf("Heading%d", level))
		if st == nil {
			st = styleByName(styles, fmt.Sprintf("heading %d", level))
		}
		if st == nil {
			continue
		}
		rPr := ChildNS(st, NSWordML, "rPr")
		if rPr == nil {
			continue
		}
		if f := runFont(rPr); f != "" {
			layer[style.KeyFontHeading] = f
		}
		if c := runColor(rPr); c != "" {
			layer[style.KeyColorHeading] = c
		} else if dk1 != "" {
			layer[style.KeyColorHeading] = dk1
		}
		return
	}
	if dk1 != "" {
		if _, ok := layer[style.KeyColorHeading]; !ok {
			layer[style.KeyColorHeading] = dk1
		}
	}
}

// mineTableHeader finds the first table style whose first-row variant fills
// cells with a real color (not auto, not white).
func mineTableHeader(styles *etree.Element, layer style.Layer) {
	if styles == nil {
		return
	}
	for _, st := range styles.ChildElements() {
		if !Matches(st, NSWordML, "style") || AttrNS(st, NSWordML, "type") != "table" {
			continue
		}
		for _, variant := range st.ChildElements() {
			if !Matches(variant, NSWordML, "tblStylePr") || AttrNS(variant, NSWordML, "type") != "firstRow" {
				continue
			}
			shd := FindFirst(variant, NSWordML, "shd")
			if shd == nil {
				continue
			}
			fill := AttrNS(shd, NSWordML, "fill")
			if fill == "" || fill == "auto" || fill == "FFFFFF" {
				continue
			}
			layer[style.KeyTableHeaderBG] = fill
			if rPr := FindFirst(variant, NSWordML, "rPr"); rPr != nil {
				if c := runColor(rPr); c != "" {
					layer[style.KeyTableHeaderText] = c
				}
			}
			return
		}
	}
}

// mineTableText matches a small set of conventional content style names.
func mineTableText(styles *etree.Element, layer style.Layer) {
	if styles == nil {
		return
	}
	for _, st := range styles.ChildElements() {
		if !Matches(st, NSWordML, "style") {
			continue
		}
		id := AttrNS(st, NSWordML, "styleId")
		name := ""
		if n := ChildNS(st, NSWordML, "name"); n != nil {
			name = AttrNS(n, NSWordML, "val")
		}
		_, byID := tableContentStyles[id]
		_, byName := tableContentStyles[name]
		if !byID && !byName {
			continue
		}
		if rPr := ChildNS(st, NSWordML, "rPr"); rPr != nil {
			if sz := runSize(rPr); sz != "" {
				layer[style.KeyTableFontSize] = sz
				return
			}
		}
	}
}

func styleByID(styles *etree.Element, id string) *etree.Element {
	if styles == nil {
		return nil
	}
	for _, st := range styles.ChildElements() {
		if Matches(st, NSWordML, "style") && AttrNS(st, NSWordML, "styleId") == id {
			return st
		}
	}
	return nil
}

func styleByName(styles *etree.Element, name string) *etree.Element {
	if styles == nil {
		return nil
	}
	for _, st := range styles.ChildElements() {
		if !Matches(st, NSWordML, "style") {
			continue
		}
		if n := ChildNS(st, NSWordML, "name"); n != nil && AttrNS(n, NSWordML, "val") == name {
			return st
		}
	}
	return nil
}

func runFont(rPr *etree.Element) string {
	if f := ChildNS(rPr, NSWordML, "rFonts"); f != nil {
		if v := AttrNS(f, NSWordML, "ascii"); v != "" {
			return v
		}
	}
	return ""
}

// runSize converts half-points to points.
func runSize(rPr *etree.Element) string {
	sz := ChildNS(rPr, NSWordML, "sz")
	if sz == nil {
		return ""
	}
	v, err := strconv.Atoi(AttrNS(sz, NSWordML, "val"))
	if err != nil || v <= 0 {
		return ""
	}
	if v%2 == 0 {
		return strconv.Itoa(v / 2)
	}
	return strconv.FormatFloat(float64(v)/2, 'f', 1, 64)
}

func runColor(rPr *etree.Element) string {
	c := ChildNS(rPr, NSWordML, "color")
	if c == nil {
		return ""
	}
	v := AttrNS(c, NSWordML, "val")
	if v == "" || v == "auto" {
		return ""
	}
	return v
}

// themeDark1 reads the dk1 swatch from the theme's color scheme.
func themeDark1(theme *etree.Element) string {
	dk1 := FindFirst(theme, NSDrawing, "dk1")
	if dk1 == nil {
		return ""
	}
	if srgb := ChildNS(dk1, NSDrawing, "srgbClr"); srgb != nil {
		return AttrNS(srgb, "", "val")
	}
	if sys := ChildNS(dk1, NSDrawing, "sysClr"); sys != nil {
		return AttrNS(sys, "", "lastClr")
	}
	return ""
}
