package ooxml

import (
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"mdoc/config"
)

// ReplaceOptions control find/replace over a package.
type ReplaceOptions struct {
	Find      string
	Replace   string
	MatchCase bool
	WholeWord bool
	Scope     config.Scope // simple mode only, tracked edits are body-only
	Track     bool
	Author    string
	DryRun    bool
}

// Replace performs find/replace and returns the number of replacements (in
// dry-run mode, the number of matches). Simple mode rewrites text in place
// preserving each run's formatting, including matches spanning several runs.
// Tracked mode wraps every change in deletion/insertion markers.
func Replace(pkg *Package, opts ReplaceOptions, log *zap.Logger) (int, error) {
	if opts.Find == "" {
		return 0, nil
	}
	if opts.Track {
		return trackedReplace(pkg, opts, log)
	}
	return simpleReplace(pkg, opts, log)
}

// scopeParts maps the requested scope to package part names.
func scopeParts(pkg *Package, scope config.Scope) []string {
	var parts []string
	add := func(match func(string) bool) {
		for _, name := range pkg.Names() {
			if match(name) {
				parts = append(parts, name)
			}
		}
	}
	switch scope {
	case config.ScopeBody:
		parts = append(parts, PartDocument)
	case config.ScopeTables:
		parts = append(parts, PartDocument)
	case config.ScopeHeaders:
		add(func(n string) bool {
			return strings.HasPrefix(n, "word/header") && strings.HasSuffix(n, ".xml")
		})
	case config.ScopeFooters:
		add(func(n string) bool {
			return strings.HasPrefix(n, "word/footer") && strings.HasSuffix(n, ".xml")
		})
	case config.ScopeAll:
		parts = append(parts, PartDocument)
		add(func(n string) bool {
			return (strings.HasPrefix(n, "word/header") || strings.HasPrefix(n, "word/footer")) &&
				strings.HasSuffix(n, ".xml")
		})
	}
	return parts
}

func simpleReplace(pkg *Package, opts ReplaceOptions, log *zap.Logger) (int, error) {
	count := 0
	for _, part := range scopeParts(pkg, opts.Scope) {
		doc, err := pkg.XML(part)
		if err != nil {
			return count, err
		}
		root := doc.Root()
		if root == nil {
			return count, &PackageCorruptionError{Part: part, Reason: "no root element"}
		}
		for _, para := range FindAll(root, NSWordML, "p") {
			if opts.Scope == config.ScopeTables && !insideTable(para) {
				continue
			}
			count += replaceInParagraph(para, opts)
		}
		if count > 0 {
			log.Debug("replacements applied", zap.String("part", part), zap.Int("count", count))
		}
	}
	return count, nil
}

// replaceInParagraph rewrites matches across the paragraph's runs. The
// replacement text lands in the first affected run, later affected runs keep
// only their unmatched remainder, so each run's formatting survives.
func replaceInParagraph(para *etree.Element, opts ReplaceOptions) int {
	runs := textRuns(para)
	if len(runs) == 0 {
		return 0
	}
	texts := make([]string, len(runs))
	offsets := make([]int, len(runs)+1)
	var full strings.Builder
	for i, r := range runs {
		texts[i] = runText(r)
		full.WriteString(texts[i])
		offsets[i+1] = full.Len()
	}

	matches := findMatches(full.String(), opts.Find, opts.MatchCase, opts.WholeWord)
	if len(matches) == 0 {
		return 0
	}
	if opts.DryRun {
		return len(matches)
	}

	// right to left keeps earlier offsets valid
	for m := len(matches) - 1; m >= 0; m-- {
		start, end := matches[m][0], matches[m][1]
		for i := range runs {
			rs, re := offsets[i], offsets[i+1]
			if re <= start || rs >= end {
				continue
			}
			lo := max(start, rs) - rs
			hi := min(end, re) - rs
			if rs <= start {
				texts[i] = texts[i][:lo] + opts.Replace + texts[i][hi:]
			} else {
				texts[i] = texts[i][:lo] + texts[i][hi:]
			}
		}
	}
	for i, r := range runs {
		setRunText(r, texts[i])
	}
	return len(matches)
}

func insideTable(e *etree.Element) bool {
	for p := e.Parent(); p != nil; p = p.Parent() {
		if Matches(p, NSWordML, "tbl") {
			return true
		}
	}
	return false
}

// setRunText replaces the text content of a run's first text node and drops
// any extra text nodes.
func setRunText(r *etree.Element, text string) {
	ts := FindAll(r, NSWordML, "t")
	if len(ts) == 0 {
		return
	}
	for _, t := range ts[1:] {
		t.Parent().RemoveChild(t)
	}
	t := ts[0]
	t.SetText(text)
	if strings.TrimSpace(text) != text || text == "" {
		if t.SelectAttr("xml:space") == nil {
			t.CreateAttr("xml:space", "preserve")
		}
	}
}

// trackedReplace wraps each replacement in deletion/insertion markers. Only
// matches contained in a single run are tracked, a match spanning runs with
// different formatting has no single original run to split.
func trackedReplace(pkg *Package, opts ReplaceOptions, log *zap.Logger) (int, error) {
	doc, err := pkg.XML(PartDocument)
	if err != nil {
		return 0, err
	}
	body := FindFirst(doc.Root(), NSWordML, "body")
	if body == nil {
		return 0, &PackageCorruptionError{Part: PartDocument, Reason: "no body element"}
	}

	nextID := maxRevisionID(doc) + 1
	date := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	count := 0

	for _, para := range FindAll(body, NSWordML, "p") {
		for _, run := range textRuns(para) {
			// a split leaves further matches in the suffix run, follow the
			// chain until the run is clean
			for cur := run; cur != nil; {
				text := runText(cur)
				matches := findMatches(text, opts.Find, opts.MatchCase, opts.WholeWord)
				if len(matches) == 0 {
					break
				}
				if opts.DryRun {
					count += len(matches)
					break
				}
				count++
				start, end := matches[0][0], matches[0][1]
				cur = splitTrackedRun(cur, text, start, end, opts.Replace, opts.Author, date, &nextID)
			}
		}
	}
	if count > 0 {
		log.Debug("tracked replacements", zap.Int("count", count), zap.Bool("dryRun", opts.DryRun))
	}
	return count, nil
}

// splitTrackedRun splits one run around text[start:end] into up to four
// segments: unchanged prefix, tracked deletion, tracked insertion, unchanged
// suffix. The original element is reused for the prefix so its revision
// session ids survive untouched; deletion and suffix are copies of the
// original, keeping the same direct formatting. Namespace prefixes resolve up
// the parent chain, so every copy is attached to the tree before its text is
// rewritten. Returns the suffix run, nil when the match reached the end of
// the text.
func splitTrackedRun(run *etree.Element, text string, start, end int, replacement, author, date string, nextID *int) *etree.Element {
	parent := run.Parent()
	prefix, matched, suffix := text[:start], text[start:end], text[end:]

	anchor := run // last inserted node, insertions go after it

	if prefix != "" {
		setRunText(run, prefix)
	}

	// deletion wrapper around a copy of the original run
	delRun := run.Copy()
	del := etree.NewElement("w:del")
	del.CreateAttr("w:id", strconv.Itoa(*nextID))
	*nextID++
	del.CreateAttr("w:author", author)
	del.CreateAttr("w:date", date)
	del.AddChild(delRun)
	parent.InsertChildAt(anchor.Index()+1, del)
	setDelText(delRun, matched)
	anchor = del

	if replacement != "" {
		insRun := run.Copy()
		ins := etree.NewElement("w:ins")
		ins.CreateAttr("w:id", strconv.Itoa(*nextID))
		*nextID++
		ins.CreateAttr("w:author", author)
		ins.CreateAttr("w:date", date)
		ins.AddChild(insRun)
		parent.InsertChildAt(anchor.Index()+1, ins)
		setRunText(insRun, replacement)
		anchor = ins
	}

	var sufRun *etree.Element
	if suffix != "" {
		sufRun = run.Copy()
		parent.InsertChildAt(anchor.Index()+1, sufRun)
		setRunText(sufRun, suffix)
	}

	if prefix == "" {
		parent.RemoveChild(run)
	}
	return sufRun
}

// setDelText converts the run's text node to the deleted-text element form.
func setDelText(r *etree.Element, text string) {
	setRunText(r, text)
	for _, t := range FindAll(r, NSWordML, "t") {
		t.Tag = "delText"
	}
}

// maxRevisionID scans existing tracked-change markers.
func maxRevisionID(doc *etree.Document) int {
	maxID := 0
	for _, local := range []string{"ins", "del"} {
		for _, e := range FindAll(doc.Root(), NSWordML, local) {
			if v, err := strconv.Atoi(AttrNS(e, NSWordML, "id")); err == nil && v > maxID {
				maxID = v
			}
		}
	}
	return maxID
}

// findMatches returns non-overlapping [start,end) byte ranges of find in s.
func findMatches(s, find string, matchCase, wholeWord bool) [][2]int {
	hay, needle := s, find
	if !matchCase {
		hay = strings.ToLower(s)
		needle = strings.ToLower(find)
	}
	var out [][2]int
	for from := 0; ; {
		i := strings.Index(hay[from:], needle)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(needle)
		if !wholeWord || isWordBoundary(s, start, end) {
			out = append(out, [2]int{start, end})
			from = end
		} else {
			from = start + 1
		}
	}
	return out
}

func isWordBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
