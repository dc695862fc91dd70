package ooxml

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"mdoc/config"
)

func paraText(p *etree.Element) string {
	var sb strings.Builder
	for _, t := range FindAll(p, NSWordML, "t") {
		sb.WriteString(t.Text())
	}
	return sb.String()
}

func TestTrackedReplaceFourSegments(t *testing.T) {
	pkg := testPackage(t, []string{"The term is 30 days."})
	para := FindFirst(docBody(t, pkg), NSWordML, "p")
	run := FindFirst(para, NSWordML, "r")
	run.CreateAttr("w:rsidR", "00AB12CD")

	n, err := Replace(pkg, ReplaceOptions{
		Find: "30", Replace: "60",
		MatchCase: true, Track: true, Author: "Editor",
	}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("replacements = %d", n)
	}

	children := para.ChildElements()
	if len(children) != 4 {
		t.Fatalf("segments = %d, want 4: %v", len(children), tags(children))
	}

	// unchanged prefix reuses the original node, revision session id intact
	if children[0] != run {
		t.Error("prefix is not the original run element")
	}
	if got := runText(children[0]); got != "The term is " {
		t.Errorf("prefix = %q", got)
	}
	if rsid := AttrNS(children[0], NSWordML, "rsidR"); rsid != "00AB12CD" {
		t.Errorf("rsidR = %q", rsid)
	}

	if !Matches(children[1], NSWordML, "del") {
		t.Fatalf("segment 1 = %s", children[1].Tag)
	}
	delText := FindFirst(children[1], NSWordML, "delText")
	if delText == nil || delText.Text() != "30" {
		t.Errorf("deletion text: %+v", delText)
	}
	if a := AttrNS(children[1], NSWordML, "author"); a != "Editor" {
		t.Errorf("deletion author = %q", a)
	}
	// the deletion run keeps the original formatting attributes
	delRun := FindFirst(children[1], NSWordML, "r")
	if rsid := AttrNS(delRun, NSWordML, "rsidR"); rsid != "00AB12CD" {
		t.Errorf("deletion run rsidR = %q", rsid)
	}

	if !Matches(children[2], NSWordML, "ins") {
		t.Fatalf("segment 2 = %s", children[2].Tag)
	}
	insText := FindFirst(children[2], NSWordML, "t")
	if insText == nil || insText.Text() != "60" {
		t.Errorf("insertion text: %+v", insText)
	}

	if got := runText(children[3]); got != " days." {
		t.Errorf("suffix = %q", got)
	}
}

func tags(els []*etree.Element) []string {
	out := make([]string, len(els))
	for i, e := range els {
		out[i] = e.Tag
	}
	return out
}

func TestTrackedReplaceMatchAtStart(t *testing.T) {
	pkg := testPackage(t, []string{"30 days"})
	para := FindFirst(docBody(t, pkg), NSWordML, "p")

	n, err := Replace(pkg, ReplaceOptions{Find: "30", Replace: "60", MatchCase: true, Track: true, Author: "E"}, zap.NewNop())
	if err != nil || n != 1 {
		t.Fatal(n, err)
	}
	children := para.ChildElements()
	// no empty prefix run: del, ins, suffix
	if len(children) != 3 {
		t.Fatalf("segments = %v", tags(children))
	}
	if !Matches(children[0], NSWordML, "del") || !Matches(children[1], NSWordML, "ins") {
		t.Errorf("order = %v", tags(children))
	}
}

func TestTrackedReplaceDeletionMarkup(t *testing.T) {
	pkg := testPackage(t, []string{"keep 30 keep 30"})
	para := FindFirst(docBody(t, pkg), NSWordML, "p")

	n, err := Replace(pkg, ReplaceOptions{Find: "30", Replace: "60", MatchCase: true, Track: true, Author: "E"}, zap.NewNop())
	if err != nil || n != 2 {
		t.Fatal(n, err)
	}
	dels := FindAll(para, NSWordML, "del")
	if len(dels) != 2 {
		t.Fatalf("deletions = %d", len(dels))
	}
	for _, del := range dels {
		if FindFirst(del, NSWordML, "t") != nil {
			t.Error("deletion wrapper holds a plain text element")
		}
		dt := FindFirst(del, NSWordML, "delText")
		if dt == nil || dt.Text() != "30" {
			t.Errorf("deletion text: %+v", dt)
		}
	}
	for _, ins := range FindAll(para, NSWordML, "ins") {
		it := FindFirst(ins, NSWordML, "t")
		if it == nil || it.Text() != "60" {
			t.Errorf("insertion text: %+v", it)
		}
	}
}

func TestTrackedReplaceDryRun(t *testing.T) {
	pkg := testPackage(t, []string{"30 and 30 again"})
	before := serialize(t, pkg, PartDocument)

	n, err := Replace(pkg, ReplaceOptions{Find: "30", Replace: "60", MatchCase: true, Track: true, Author: "E", DryRun: true}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("matches = %d", n)
	}
	if after := serialize(t, pkg, PartDocument); after != before {
		t.Error("dry run modified the document")
	}
}

func TestTrackedReplaceMultipleMatchesInRun(t *testing.T) {
	pkg := testPackage(t, []string{"aaa X bbb X ccc"})
	para := FindFirst(docBody(t, pkg), NSWordML, "p")

	n, err := Replace(pkg, ReplaceOptions{Find: "X", Replace: "Y", MatchCase: true, Track: true, Author: "E"}, zap.NewNop())
	if err != nil || n != 2 {
		t.Fatal(n, err)
	}
	if dels := FindAll(para, NSWordML, "del"); len(dels) != 2 {
		t.Errorf("deletions = %d", len(dels))
	}
	if got := paraText(para); !strings.Contains(got, "aaa ") || !strings.Contains(got, " ccc") {
		t.Errorf("text = %q", got)
	}
}

func TestSimpleReplaceAcrossRuns(t *testing.T) {
	pkg := testPackage(t, []string{"The term is 3", "0 days."})
	para := FindFirst(docBody(t, pkg), NSWordML, "p")
	runs := textRuns(para)

	n, err := Replace(pkg, ReplaceOptions{Find: "30", Replace: "60", MatchCase: true, Scope: config.ScopeBody}, zap.NewNop())
	if err != nil || n != 1 {
		t.Fatal(n, err)
	}
	// formatting containers survive, only text changes
	if got := runText(runs[0]); got != "The term is 6" && got != "The term is 60" {
		t.Errorf("run 0 = %q", got)
	}
	if got := paraText(para); got != "The term is 60 days." {
		t.Errorf("paragraph = %q", got)
	}
	if len(textRuns(para)) != 2 {
		t.Errorf("run count changed: %d", len(textRuns(para)))
	}
}

func TestSimpleReplaceCaseInsensitive(t *testing.T) {
	pkg := testPackage(t, []string{"Alpha ALPHA alpha"})
	para := FindFirst(docBody(t, pkg), NSWordML, "p")

	n, err := Replace(pkg, ReplaceOptions{Find: "alpha", Replace: "beta", Scope: config.ScopeBody}, zap.NewNop())
	if err != nil || n != 3 {
		t.Fatal(n, err)
	}
	if got := paraText(para); got != "beta beta beta" {
		t.Errorf("text = %q", got)
	}
}

func TestSimpleReplaceWholeWord(t *testing.T) {
	pkg := testPackage(t, []string{"cat catalog concat cat"})
	para := FindFirst(docBody(t, pkg), NSWordML, "p")

	n, err := Replace(pkg, ReplaceOptions{Find: "cat", Replace: "dog", MatchCase: true, WholeWord: true, Scope: config.ScopeBody}, zap.NewNop())
	if err != nil || n != 2 {
		t.Fatal(n, err)
	}
	if got := paraText(para); got != "dog catalog concat dog" {
		t.Errorf("text = %q", got)
	}
}

func TestSimpleReplaceScopes(t *testing.T) {
	pkg := testPackage(t, []string{"body target"})
	header := pkg.NewXMLPart("word/header1.xml")
	hr := header.CreateElement("w:hdr")
	hr.CreateAttr("xmlns:w", NSWordML)
	hp := hr.CreateElement("w:p")
	hrun := hp.CreateElement("w:r")
	ht := hrun.CreateElement("w:t")
	ht.SetText("header target")

	n, err := Replace(pkg, ReplaceOptions{Find: "target", Replace: "hit", MatchCase: true, Scope: config.ScopeHeaders}, zap.NewNop())
	if err != nil || n != 1 {
		t.Fatal(n, err)
	}
	if got := paraText(hp); got != "header hit" {
		t.Errorf("header = %q", got)
	}
	body := docBody(t, pkg)
	if got := paraText(FindFirst(body, NSWordML, "p")); got != "body target" {
		t.Errorf("body scope leak: %q", got)
	}

	n, err = Replace(pkg, ReplaceOptions{Find: "target", Replace: "hit", MatchCase: true, Scope: config.ScopeAll}, zap.NewNop())
	if err != nil || n != 1 {
		t.Fatal(n, err)
	}
	if got := paraText(FindFirst(body, NSWordML, "p")); got != "body hit" {
		t.Errorf("body = %q", got)
	}
}

func TestSimpleReplaceTablesScope(t *testing.T) {
	pkg := testPackage(t, []string{"outside term"})
	body := docBody(t, pkg)
	tbl := body.CreateElement("w:tbl")
	row := tbl.CreateElement("w:tr")
	cell := row.CreateElement("w:tc")
	cp := cell.CreateElement("w:p")
	cr := cp.CreateElement("w:r")
	ct := cr.CreateElement("w:t")
	ct.SetText("inside term")

	n, err := Replace(pkg, ReplaceOptions{Find: "term", Replace: "word", MatchCase: true, Scope: config.ScopeTables}, zap.NewNop())
	if err != nil || n != 1 {
		t.Fatal(n, err)
	}
	if got := paraText(cp); got != "inside word" {
		t.Errorf("cell = %q", got)
	}
	if got := paraText(FindFirst(body, NSWordML, "p")); got != "outside term" {
		t.Errorf("paragraph outside table changed: %q", got)
	}
}
