package ooxml

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/beevik/etree"
)

// testPackage builds a minimal document package; each argument is a
// paragraph, each element of it is one run's text.
func testPackage(t *testing.T, paras ...[]string) *Package {
	t.Helper()
	pkg := NewPackage()

	ct := pkg.NewXMLPart(PartContentTypes)
	types := ct.CreateElement("Types")
	types.CreateAttr("xmlns", NSTypes)
	d := types.CreateElement("Default")
	d.CreateAttr("Extension", "rels")
	d.CreateAttr("ContentType", CTRelationships)
	d = types.CreateElement("Default")
	d.CreateAttr("Extension", "xml")
	d.CreateAttr("ContentType", "application/xml")
	o := types.CreateElement("Override")
	o.CreateAttr("PartName", "/"+PartDocument)
	o.CreateAttr("ContentType", CTDocument)

	rels := pkg.NewXMLPart(PartPackageRels)
	rr := rels.CreateElement("Relationships")
	rr.CreateAttr("xmlns", NSRelPkg)
	rel := rr.CreateElement("Relationship")
	rel.CreateAttr("Id", "rId1")
	rel.CreateAttr("Type", RelOfficeDocument)
	rel.CreateAttr("Target", PartDocument)

	docRels := pkg.NewXMLPart(PartDocumentRels)
	docRels.CreateElement("Relationships").CreateAttr("xmlns", NSRelPkg)

	doc := pkg.NewXMLPart(PartDocument)
	root := doc.CreateElement("w:document")
	root.CreateAttr("xmlns:w", NSWordML)
	body := root.CreateElement("w:body")
	for _, runs := range paras {
		p := body.CreateElement("w:p")
		for _, text := range runs {
			r := p.CreateElement("w:r")
			wt := r.CreateElement("w:t")
			wt.CreateAttr("xml:space", "preserve")
			wt.SetText(text)
		}
	}
	return pkg
}

func docBody(t *testing.T, pkg *Package) *etree.Element {
	t.Helper()
	doc, err := pkg.XML(PartDocument)
	if err != nil {
		t.Fatal(err)
	}
	body := FindFirst(doc.Root(), NSWordML, "body")
	if body == nil {
		t.Fatal("no body")
	}
	return body
}

func serialize(t *testing.T, pkg *Package, part string) string {
	t.Helper()
	data, err := pkg.Raw(part)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestSaveOpenRoundTrip(t *testing.T) {
	for _, fix := range []bool{false, true} {
		pkg := testPackage(t, []string{"hello world"})
		name := filepath.Join(t.TempDir(), "out.docx")
		if err := pkg.Save(name, fix); err != nil {
			t.Fatalf("fix=%v: %v", fix, err)
		}

		got, err := Open(name)
		if err != nil {
			t.Fatalf("fix=%v: %v", fix, err)
		}
		body := docBody(t, got)
		paras := FindAll(body, NSWordML, "p")
		if len(paras) != 1 {
			t.Fatalf("fix=%v: paragraphs = %d", fix, len(paras))
		}
		if txt := runText(textRuns(paras[0])[0]); txt != "hello world" {
			t.Errorf("fix=%v: text = %q", fix, txt)
		}
	}
}

func TestFixZipFailureKeepsDestination(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "out.docx")
	pkg := testPackage(t, []string{"hello world"})
	if err := pkg.Save(name, false); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}

	if err := copyZipWithoutDataDescriptors(filepath.Join(dir, "missing.zip"), name); err == nil {
		t.Fatal("expected error for missing source archive")
	}
	after, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Errorf("destination changed on failure: %d bytes before, %d after", len(before), len(after))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary file left behind: %v", entries)
	}
}

func TestOpenMissingContentTypes(t *testing.T) {
	pkg := NewPackage()
	pkg.SetRaw("word/document.xml", []byte("<x/>"))
	name := filepath.Join(t.TempDir(), "bad.docx")
	if err := pkg.Save(name, false); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(name); err == nil {
		t.Fatal("expected corruption error")
	}
}

func TestAddPartTriple(t *testing.T) {
	pkg := testPackage(t, []string{"x"})
	rid, err := pkg.AddPart("word/media/image1.png", []byte{0x89}, PartDocument, RelImage, "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if rid == "" {
		t.Fatal("no relationship id")
	}
	if !pkg.Has("word/media/image1.png") {
		t.Error("part missing")
	}

	relsDoc, err := pkg.XML(PartDocumentRels)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, rel := range relsDoc.Root().SelectElements("Relationship") {
		if rel.SelectAttrValue("Id", "") == rid {
			found = true
			if target := rel.SelectAttrValue("Target", ""); target != "media/image1.png" {
				t.Errorf("target = %q", target)
			}
		}
	}
	if !found {
		t.Error("relationship missing")
	}

	ctDoc, err := pkg.XML(PartContentTypes)
	if err != nil {
		t.Fatal(err)
	}
	found = false
	for _, o := range ctDoc.Root().SelectElements("Override") {
		if o.SelectAttrValue("PartName", "") == "/word/media/image1.png" {
			found = true
		}
	}
	if !found {
		t.Error("content type override missing")
	}

	// a second registration under the same name must fail
	if _, err := pkg.AddPart("word/media/image1.png", nil, PartDocument, RelImage, "image/png"); err == nil {
		t.Error("duplicate part accepted")
	}
}

func TestRelationshipIDsIncrement(t *testing.T) {
	pkg := testPackage(t, []string{"x"})
	a, err := pkg.AddRelationship(PartDocument, RelStyles, PartStyles)
	if err != nil {
		t.Fatal(err)
	}
	b, err := pkg.AddRelationship(PartDocument, RelSettings, PartSettings)
	if err != nil {
		t.Fatal(err)
	}
	if a != "rId1" || b != "rId2" {
		t.Errorf("ids = %q, %q", a, b)
	}
}

func TestQueryNamespaceAware(t *testing.T) {
	// same document, unconventional prefix
	doc := etree.NewDocument()
	if err := doc.ReadFromString(`<x:document xmlns:x="` + NSWordML + `"><x:body><x:p><x:r><x:t>hi</x:t></x:r></x:p></x:body></x:document>`); err != nil {
		t.Fatal(err)
	}
	body := FindFirst(doc.Root(), NSWordML, "body")
	if body == nil {
		t.Fatal("body not found under a different prefix")
	}
	if runs := FindAll(body, NSWordML, "r"); len(runs) != 1 {
		t.Fatalf("runs = %d", len(runs))
	}
	// wrong namespace, same local names
	other := etree.NewDocument()
	if err := other.ReadFromString(`<document xmlns="urn:other"><body/></document>`); err != nil {
		t.Fatal(err)
	}
	if found := FindFirst(other.Root(), NSWordML, "body"); found != nil {
		t.Error("matched element from a foreign namespace")
	}
}
