package ooxml

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// Comment is one entry of a comment batch manifest. ReplyTo, when set, is the
// zero-based index of an earlier entry in the same batch this comment
// replies to.
type Comment struct {
	AnchorText string `yaml:"anchor_text" json:"anchor_text"`
	Text       string `yaml:"text" json:"text"`
	Resolved   bool   `yaml:"resolved" json:"resolved"`
	ReplyTo    *int   `yaml:"reply_to" json:"reply_to"`
}

// CommentResult reports the outcome for one batch entry.
type CommentResult struct {
	Index int
	ID    int
	Err   error
}

// anchorSpan is a located comment range: the runs the range encloses. Only
// node references are held, indices are derived at insertion time.
type anchorSpan struct {
	first *etree.Element
	last  *etree.Element
}

// AddComments anchors a batch of comments in the document body. Per-entry
// failures (anchor not found, malformed range, broken reply target) are
// reported in the results and do not stop the batch; only structural package
// problems return an error, in which case nothing should be saved.
func AddComments(pkg *Package, author, initials string, items []Comment, log *zap.Logger) ([]CommentResult, error) {
	doc, err := pkg.XML(PartDocument)
	if err != nil {
		return nil, err
	}
	body := FindFirst(doc.Root(), NSWordML, "body")
	if body == nil {
		return nil, &PackageCorruptionError{Part: PartDocument, Reason: "no body element"}
	}

	commentsRoot, err := pkg.ensureComments()
	if err != nil {
		return nil, err
	}
	extendedRoot, err := pkg.ensureCommentsExtended()
	if err != nil {
		return nil, err
	}

	nextID := maxCommentID(pkg, doc) + 1
	date := time.Now().UTC().Format("2006-01-02T15:04:05Z")

	results := make([]CommentResult, 0, len(items))
	spans := make(map[int]*anchorSpan)
	paraIDs := make(map[int]string)

	for i, item := range items {
		res := CommentResult{Index: i}

		var span *anchorSpan
		var parentParaID string
		switch {
		case item.ReplyTo != nil:
			parent := *item.ReplyTo
			if parent < 0 || parent >= i || spans[parent] == nil {
				res.Err = fmt.Errorf("reply target %d is not an earlier successful entry", parent)
				results = append(results, res)
				continue
			}
			span = spans[parent]
			parentParaID = paraIDs[parent]
		case strings.TrimSpace(item.AnchorText) == "":
			res.Err = &MalformedRangeError{Anchor: item.AnchorText}
			results = append(results, res)
			continue
		default:
			span, err = locateAnchor(body, item.AnchorText)
			if err != nil {
				res.Err = err
				results = append(results, res)
				continue
			}
		}

		id := nextID
		nextID++
		insertCommentMarkers(span, id)

		paraID := newParaID()
		appendCommentBody(commentsRoot, id, author, initials, date, paraID, item.Text)
		appendCommentExtended(extendedRoot, paraID, parentParaID, item.Resolved)

		spans[i] = span
		paraIDs[i] = paraID
		res.ID = id
		results = append(results, res)
		log.Debug("comment anchored", zap.Int("id", id), zap.String("anchor", item.AnchorText))
	}
	return results, nil
}

// locateAnchor finds the first paragraph whose text contains the anchor and
// returns the run span covering it. Comparison is done on NFC-normalized
// text on both sides.
func locateAnchor(body *etree.Element, anchor string) (*anchorSpan, error) {
	want := norm.NFC.String(anchor)
	for _, para := range FindAll(body, NSWordML, "p") {
		runs := textRuns(para)
		if len(runs) == 0 {
			continue
		}
		var full strings.Builder
		offsets := make([]int, len(runs)+1)
		for i, r := range runs {
			full.WriteString(norm.NFC.String(runText(r)))
			offsets[i+1] = full.Len()
		}
		pos := strings.Index(full.String(), want)
		if pos < 0 {
			continue
		}
		end := pos + len(want)

		span := &anchorSpan{}
		for i, r := range runs {
			if offsets[i+1] > pos && span.first == nil {
				span.first = r
			}
			if offsets[i] < end {
				span.last = r
			}
		}
		if span.first == nil || span.last == nil {
			return nil, &MalformedRangeError{Anchor: anchor}
		}
		return span, nil
	}
	return nil, &AnchorNotFoundError{Anchor: anchor}
}

// textRuns returns the paragraph's runs that carry text, in document order.
func textRuns(para *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, r := range FindAll(para, NSWordML, "r") {
		if ChildNS(r, NSWordML, "t") != nil {
			out = append(out, r)
		}
	}
	return out
}

func runText(r *etree.Element) string {
	var sb strings.Builder
	for _, t := range FindAll(r, NSWordML, "t") {
		sb.WriteString(t.Text())
	}
	return sb.String()
}

// insertCommentMarkers places the range start before the first run, the
// range end after the last run and the reference run after the end marker.
// Indices are computed from the held nodes at each insertion.
func insertCommentMarkers(span *anchorSpan, id int) {
	sid := strconv.Itoa(id)

	start := etree.NewElement("w:commentRangeStart")
	start.CreateAttr("w:id", sid)
	span.first.Parent().InsertChildAt(span.first.Index(), start)

	end := etree.NewElement("w:commentRangeEnd")
	endParent := span.last.Parent()
	endParent.InsertChildAt(span.last.Index()+1, end)

	ref := etree.NewElement("w:r")
	rPr := ref.CreateElement("w:rPr")
	rStyle := rPr.CreateElement("w:rStyle")
	rStyle.CreateAttr("w:val", "CommentReference")
	cr := ref.CreateElement("w:commentReference")
	cr.CreateAttr("w:id", sid)
	endParent.InsertChildAt(end.Index()+1, ref)
}

func appendCommentBody(root *etree.Element, id int, author, initials, date, paraID, text string) {
	c := root.CreateElement("w:comment")
	c.CreateAttr("w:id", strconv.Itoa(id))
	c.CreateAttr("w:author", author)
	c.CreateAttr("w:date", date)
	c.CreateAttr("w:initials", initials)

	p := c.CreateElement("w:p")
	p.CreateAttr("w14:paraId", paraID)
	p.CreateAttr("w14:textId", paraID)

	r := p.CreateElement("w:r")
	rPr := r.CreateElement("w:rPr")
	rStyle := rPr.CreateElement("w:rStyle")
	rStyle.CreateAttr("w:val", "CommentReference")
	r.CreateElement("w:annotationRef")

	rt := p.CreateElement("w:r")
	t := rt.CreateElement("w:t")
	t.CreateAttr("xml:space", "preserve")
	t.SetText(text)
}

// appendCommentExtended records thread and resolution state, keyed by the
// comment paragraph id. Resolution never lives in the comment body itself.
func appendCommentExtended(root *etree.Element, paraID, parentParaID string, resolved bool) {
	ex := root.CreateElement("w15:commentEx")
	ex.CreateAttr("w15:paraId", paraID)
	if parentParaID != "" {
		ex.CreateAttr("w15:paraIdParent", parentParaID)
	}
	done := "0"
	if resolved {
		done = "1"
	}
	ex.CreateAttr("w15:done", done)
}

// maxCommentID scans both the comments part and the document markers, so new
// ids also clear any orphaned markers left by earlier edits.
func maxCommentID(pkg *Package, doc *etree.Document) int {
	maxID := 0
	scan := func(e *etree.Element) {
		if v, err := strconv.Atoi(AttrNS(e, NSWordML, "id")); err == nil && v > maxID {
			maxID = v
		}
	}
	if pkg.Has(PartComments) {
		if cdoc, err := pkg.XML(PartComments); err == nil {
			for _, c := range FindAll(cdoc.Root(), NSWordML, "comment") {
				scan(c)
			}
		}
	}
	for _, local := range []string{"commentRangeStart", "commentRangeEnd", "commentReference"} {
		for _, e := range FindAll(doc.Root(), NSWordML, local) {
			scan(e)
		}
	}
	return maxID
}

func (p *Package) ensureComments() (*etree.Element, error) {
	if p.Has(PartComments) {
		doc, err := p.XML(PartComments)
		if err != nil {
			return nil, err
		}
		if doc.Root() == nil {
			return nil, &PackageCorruptionError{Part: PartComments, Reason: "no root element"}
		}
		return doc.Root(), nil
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", xmlDeclaration)
	root := doc.CreateElement("w:comments")
	root.CreateAttr("xmlns:w", NSWordML)
	root.CreateAttr("xmlns:w14", NSWordML14)
	if _, err := p.AddRelationship(PartDocument, RelComments, PartComments); err != nil {
		return nil, err
	}
	if err := p.EnsureOverrideType(PartComments, CTComments); err != nil {
		return nil, err
	}
	p.SetXML(PartComments, doc)
	return root, nil
}

func (p *Package) ensureCommentsExtended() (*etree.Element, error) {
	if p.Has(PartCommentsExtended) {
		doc, err := p.XML(PartCommentsExtended)
		if err != nil {
			return nil, err
		}
		if doc.Root() == nil {
			return nil, &PackageCorruptionError{Part: PartCommentsExtended, Reason: "no root element"}
		}
		return doc.Root(), nil
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", xmlDeclaration)
	root := doc.CreateElement("w15:commentsEx")
	root.CreateAttr("xmlns:w15", NSWordML15)
	if _, err := p.AddRelationship(PartDocument, RelCommentsExtended, PartCommentsExtended); err != nil {
		return nil, err
	}
	if err := p.EnsureOverrideType(PartCommentsExtended, CTCommentsExtended); err != nil {
		return nil, err
	}
	p.SetXML(PartCommentsExtended, doc)
	return root, nil
}

// newParaID generates a paragraph id: 8 hex digits, nonzero, high bit clear.
func newParaID() string {
	u := uuid.New()
	v := binary.BigEndian.Uint32(u[0:4]) & 0x7FFFFFFF
	if v == 0 {
		v = 1
	}
	return fmt.Sprintf("%08X", v)
}
