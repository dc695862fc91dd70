package ooxml

import (
	"reflect"
	"testing"

	"go.uber.org/zap"

	"mdoc/style"
)

// templatePackage builds a package with styles and theme parts exercising the
// whole mining chain.
func templatePackage(t *testing.T) *Package {
	t.Helper()
	pkg := testPackage(t, []string{"text"})

	styles := pkg.NewXMLPart(PartStyles)
	root := styles.CreateElement("w:styles")
	root.CreateAttr("xmlns:w", NSWordML)

	defaults := root.CreateElement("w:docDefaults")
	rpd := defaults.CreateElement("w:rPrDefault")
	rPr := rpd.CreateElement("w:rPr")
	fonts := rPr.CreateElement("w:rFonts")
	fonts.CreateAttr("w:ascii", "Georgia")
	sz := rPr.CreateElement("w:sz")
	sz.CreateAttr("w:val", "22")

	normal := root.CreateElement("w:style")
	normal.CreateAttr("w:type", "paragraph")
	normal.CreateAttr("w:styleId", "Normal")
	nrPr := normal.CreateElement("w:rPr")
	color := nrPr.CreateElement("w:color")
	color.CreateAttr("w:val", "1A1A2E")

	h2 := root.CreateElement("w:style")
	h2.CreateAttr("w:type", "paragraph")
	h2.CreateAttr("w:styleId", "Heading2")
	hrPr := h2.CreateElement("w:rPr")
	hFonts := hrPr.CreateElement("w:rFonts")
	hFonts.CreateAttr("w:ascii", "Verdana")
	hColor := hrPr.CreateElement("w:color")
	hColor.CreateAttr("w:val", "224466")

	tbl := root.CreateElement("w:style")
	tbl.CreateAttr("w:type", "table")
	tbl.CreateAttr("w:styleId", "FancyTable")
	firstRow := tbl.CreateElement("w:tblStylePr")
	firstRow.CreateAttr("w:type", "firstRow")
	frPr := firstRow.CreateElement("w:rPr")
	frColor := frPr.CreateElement("w:color")
	frColor.CreateAttr("w:val", "FFFFFF")
	tcPr := firstRow.CreateElement("w:tcPr")
	shd := tcPr.CreateElement("w:shd")
	shd.CreateAttr("w:fill", "336699")

	content := root.CreateElement("w:style")
	content.CreateAttr("w:type", "paragraph")
	content.CreateAttr("w:styleId", "TableContents")
	crPr := content.CreateElement("w:rPr")
	csz := crPr.CreateElement("w:sz")
	csz.CreateAttr("w:val", "19")

	theme := pkg.NewXMLPart(PartTheme)
	troot := theme.CreateElement("a:theme")
	troot.CreateAttr("xmlns:a", NSDrawing)
	scheme := troot.CreateElement("a:themeElements").CreateElement("a:clrScheme")
	dk1 := scheme.CreateElement("a:dk1")
	srgb := dk1.CreateElement("a:srgbClr")
	srgb.CreateAttr("val", "10141E")

	return pkg
}

func TestExtractStyles(t *testing.T) {
	pkg := templatePackage(t)
	layer := ExtractStyles(pkg, zap.NewNop())

	want := map[string]string{
		style.KeyFontBody:        "Georgia",
		style.KeyFontSize:        "11",
		style.KeyColorBody:       "1A1A2E",
		style.KeyFontHeading:     "Verdana",
		style.KeyColorHeading:    "224466",
		style.KeyTableHeaderBG:   "336699",
		style.KeyTableHeaderText: "FFFFFF",
		style.KeyTableFontSize:   "9.5",
	}
	for k, v := range want {
		if layer[k] != v {
			t.Errorf("%s = %q, want %q", k, layer[k], v)
		}
	}
}

func TestExtractStylesIdempotent(t *testing.T) {
	pkg := templatePackage(t)
	first := ExtractStyles(pkg, zap.NewNop())
	second := ExtractStyles(pkg, zap.NewNop())
	if !reflect.DeepEqual(first, second) {
		t.Errorf("mining twice differs:\n%v\n%v", first, second)
	}
}

func TestExtractStylesThemeFallback(t *testing.T) {
	pkg := testPackage(t, []string{"text"})
	// styles with no explicit colors anywhere
	styles := pkg.NewXMLPart(PartStyles)
	root := styles.CreateElement("w:styles")
	root.CreateAttr("xmlns:w", NSWordML)

	theme := pkg.NewXMLPart(PartTheme)
	troot := theme.CreateElement("a:theme")
	troot.CreateAttr("xmlns:a", NSDrawing)
	dk1 := troot.CreateElement("a:themeElements").CreateElement("a:clrScheme").CreateElement("a:dk1")
	sys := dk1.CreateElement("a:sysClr")
	sys.CreateAttr("val", "windowText")
	sys.CreateAttr("lastClr", "0B0B0B")

	layer := ExtractStyles(pkg, zap.NewNop())
	if layer[style.KeyColorBody] != "0B0B0B" {
		t.Errorf("color_body = %q", layer[style.KeyColorBody])
	}
	if layer[style.KeyColorHeading] != "0B0B0B" {
		t.Errorf("color_heading = %q", layer[style.KeyColorHeading])
	}
}

func TestExtractStylesMissingPartsContributeNothing(t *testing.T) {
	pkg := testPackage(t, []string{"text"})
	layer := ExtractStyles(pkg, zap.NewNop())
	if len(layer) != 0 {
		t.Errorf("layer from bare package = %v", layer)
	}
}

func TestExtractStylesWhiteFirstRowSkipped(t *testing.T) {
	pkg := testPackage(t, []string{"text"})
	styles := pkg.NewXMLPart(PartStyles)
	root := styles.CreateElement("w:styles")
	root.CreateAttr("xmlns:w", NSWordML)
	tbl := root.CreateElement("w:style")
	tbl.CreateAttr("w:type", "table")
	fr := tbl.CreateElement("w:tblStylePr")
	fr.CreateAttr("w:type", "firstRow")
	shd := fr.CreateElement("w:tcPr").CreateElement("w:shd")
	shd.CreateAttr("w:fill", "FFFFFF")

	layer := ExtractStyles(pkg, zap.NewNop())
	if _, ok := layer[style.KeyTableHeaderBG]; ok {
		t.Error("white first-row fill should not be mined")
	}
}

func TestNormalizeTemplate(t *testing.T) {
	pkg := testPackage(t, []string{"text"})
	ct, err := pkg.XML(PartContentTypes)
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range ct.Root().SelectElements("Override") {
		if o.SelectAttrValue("PartName", "") == "/"+PartDocument {
			o.RemoveAttr("ContentType")
			o.CreateAttr("ContentType", CTTemplate)
		}
	}

	if err := NormalizeTemplate(pkg); err != nil {
		t.Fatal(err)
	}
	check := func() {
		t.Helper()
		for _, o := range ct.Root().SelectElements("Override") {
			if o.SelectAttrValue("PartName", "") == "/"+PartDocument {
				if got := o.SelectAttrValue("ContentType", ""); got != CTDocument {
					t.Errorf("content type = %q", got)
				}
			}
		}
	}
	check()
	// idempotent
	if err := NormalizeTemplate(pkg); err != nil {
		t.Fatal(err)
	}
	check()
}
