package ooxml

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	fixzip "github.com/hidez8891/zip"
	"github.com/maruel/natural"
)

const xmlDeclaration = `version="1.0" encoding="UTF-8" standalone="yes"`

// Package is an OOXML package held fully in memory. XML parts parsed through
// XML() stay cached and their document trees take precedence over raw bytes
// when the package is saved.
type Package struct {
	parts map[string][]byte
	docs  map[string]*etree.Document
}

// NewPackage returns an empty package.
func NewPackage() *Package {
	return &Package{
		parts: make(map[string][]byte),
		docs:  make(map[string]*etree.Document),
	}
}

// Open reads an existing package. Entries with unsafe paths (absolute or
// containing "..") make the package invalid.
func Open(name string) (*Package, error) {
	r, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("unable to open package (%s): %w", name, err)
	}
	defer r.Close()

	p := NewPackage()
	for _, f := range r.File {
		if !isSafePath(f.Name) {
			return nil, &PackageCorruptionError{Part: f.Name, Reason: "unsafe path (absolute or contains path traversal)"}
		}
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("unable to read package entry (%s): %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("unable to read package entry (%s): %w", f.Name, err)
		}
		p.parts[f.Name] = data
	}
	if _, ok := p.parts[PartContentTypes]; !ok {
		return nil, &PackageCorruptionError{Part: PartContentTypes, Reason: "missing"}
	}
	return p, nil
}

func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

// Has reports whether a part exists.
func (p *Package) Has(name string) bool {
	if _, ok := p.docs[name]; ok {
		return true
	}
	_, ok := p.parts[name]
	return ok
}

// Names returns all part names in natural order.
func (p *Package) Names() []string {
	seen := make(map[string]struct{}, len(p.parts)+len(p.docs))
	for n := range p.parts {
		seen[n] = struct{}{}
	}
	for n := range p.docs {
		seen[n] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Sort(natural.StringSlice(names))
	return names
}

// Raw returns part bytes, serializing a cached XML tree if one exists.
func (p *Package) Raw(name string) ([]byte, error) {
	if doc, ok := p.docs[name]; ok {
		var buf bytes.Buffer
		if _, err := doc.WriteTo(&buf); err != nil {
			return nil, fmt.Errorf("unable to serialize part (%s): %w", name, err)
		}
		return buf.Bytes(), nil
	}
	data, ok := p.parts[name]
	if !ok {
		return nil, &PackageCorruptionError{Part: name, Reason: "missing"}
	}
	return data, nil
}

// SetRaw stores part bytes, dropping any cached XML tree for the name.
func (p *Package) SetRaw(name string, data []byte) {
	delete(p.docs, name)
	p.parts[name] = data
}

// XML parses a part and caches the tree. Subsequent calls return the same
// tree, mutations are picked up on save.
func (p *Package) XML(name string) (*etree.Document, error) {
	if doc, ok := p.docs[name]; ok {
		return doc, nil
	}
	data, ok := p.parts[name]
	if !ok {
		return nil, &PackageCorruptionError{Part: name, Reason: "missing"}
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, &PackageCorruptionError{Part: name, Reason: fmt.Sprintf("unparsable XML: %v", err)}
	}
	p.docs[name] = doc
	return doc, nil
}

// SetXML stores an XML tree as a part.
func (p *Package) SetXML(name string, doc *etree.Document) {
	delete(p.parts, name)
	p.docs[name] = doc
}

// NewXMLPart creates an empty XML document with the standard declaration and
// registers it under name.
func (p *Package) NewXMLPart(name string) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", xmlDeclaration)
	p.SetXML(name, doc)
	return doc
}

// Save writes the package next to the target and moves it into place only
// after a complete successful write, so a failure never destroys an existing
// valid file. With fix set the archive is rewritten without data descriptors
// for maximum reader compatibility.
func (p *Package) Save(name string, fix bool) error {
	dir := filepath.Dir(name)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+".tmp-")
	if err != nil {
		return fmt.Errorf("unable to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := p.write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to finish writing package: %w", err)
	}

	if fix {
		if err := copyZipWithoutDataDescriptors(tmpName, name); err != nil {
			return err
		}
		return nil
	}
	if err := os.Rename(tmpName, name); err != nil {
		return fmt.Errorf("unable to move package into place (%s): %w", name, err)
	}
	return nil
}

func (p *Package) write(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, name := range p.Names() {
		data, err := p.Raw(name)
		if err != nil {
			return err
		}
		f, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("unable to create package entry (%s): %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("unable to write package entry (%s): %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("unable to finish package archive: %w", err)
	}
	return nil
}

// copyZipWithoutDataDescriptors rewrites the archive into a second temporary
// file and moves it into place only after both writer and file close cleanly,
// so a read or write failure never leaves a truncated file at the target.
func copyZipWithoutDataDescriptors(from, to string) error {
	out, err := os.CreateTemp(filepath.Dir(to), "."+filepath.Base(to)+".fix-")
	if err != nil {
		return fmt.Errorf("unable to create temporary file: %w", err)
	}
	tmpName := out.Name()
	defer os.Remove(tmpName)

	r, err := fixzip.OpenReader(from)
	if err != nil {
		out.Close()
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}

	w := fixzip.NewWriter(out)
	for _, file := range r.File {
		// unset data descriptor flag.
		file.Flags &= ^fixzip.FlagDataDescriptor

		if err := w.CopyFile(file); err != nil {
			r.Close()
			out.Close()
			return fmt.Errorf("unable to write target file (%s): %w", to, err)
		}
	}
	r.Close()

	if err := w.Close(); err != nil {
		out.Close()
		return fmt.Errorf("unable to finish target archive (%s): %w", to, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("unable to finish target file (%s): %w", to, err)
	}
	if err := os.Rename(tmpName, to); err != nil {
		return fmt.Errorf("unable to move package into place (%s): %w", to, err)
	}
	return nil
}

// EnsureDefaultType registers a Default content type for an extension.
// Idempotent.
func (p *Package) EnsureDefaultType(ext, contentType string) error {
	doc, err := p.XML(PartContentTypes)
	if err != nil {
		return err
	}
	root := doc.Root()
	if root == nil {
		return &PackageCorruptionError{Part: PartContentTypes, Reason: "no root element"}
	}
	for _, d := range root.SelectElements("Default") {
		if d.SelectAttrValue("Extension", "") == ext {
			return nil
		}
	}
	d := root.CreateElement("Default")
	d.CreateAttr("Extension", ext)
	d.CreateAttr("ContentType", contentType)
	return nil
}

// EnsureOverrideType registers an Override content type for a part.
// Idempotent.
func (p *Package) EnsureOverrideType(partName, contentType string) error {
	doc, err := p.XML(PartContentTypes)
	if err != nil {
		return err
	}
	root := doc.Root()
	if root == nil {
		return &PackageCorruptionError{Part: PartContentTypes, Reason: "no root element"}
	}
	target := "/" + partName
	for _, o := range root.SelectElements("Override") {
		if o.SelectAttrValue("PartName", "") == target {
			o.RemoveAttr("ContentType")
			o.CreateAttr("ContentType", contentType)
			return nil
		}
	}
	o := root.CreateElement("Override")
	o.CreateAttr("PartName", target)
	o.CreateAttr("ContentType", contentType)
	return nil
}

// relsName maps a part name to its relationships part.
func relsName(owner string) string {
	dir, base := path.Split(owner)
	return dir + "_rels/" + base + ".rels"
}

// AddRelationship adds a relationship from owner to target, returning the
// new relationship id. The relationships part is created when absent.
func (p *Package) AddRelationship(owner, relType, target string) (string, error) {
	return p.addRelationship(owner, relType, target, false)
}

// AddExternalRelationship adds a TargetMode="External" relationship. The
// target is stored verbatim, typically a URL.
func (p *Package) AddExternalRelationship(owner, relType, target string) (string, error) {
	return p.addRelationship(owner, relType, target, true)
}

func (p *Package) addRelationship(owner, relType, target string, external bool) (string, error) {
	name := relsName(owner)
	var doc *etree.Document
	if p.Has(name) {
		var err error
		doc, err = p.XML(name)
		if err != nil {
			return "", err
		}
	} else {
		doc = p.NewXMLPart(name)
		root := doc.CreateElement("Relationships")
		root.CreateAttr("xmlns", NSRelPkg)
	}
	root := doc.Root()
	if root == nil {
		return "", &PackageCorruptionError{Part: name, Reason: "no root element"}
	}

	maxID := 0
	for _, rel := range root.SelectElements("Relationship") {
		id := rel.SelectAttrValue("Id", "")
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "rId")); err == nil && n > maxID {
			maxID = n
		}
	}
	rid := fmt.Sprintf("rId%d", maxID+1)
	rel := root.CreateElement("Relationship")
	rel.CreateAttr("Id", rid)
	rel.CreateAttr("Type", relType)
	if external {
		rel.CreateAttr("Target", target)
		rel.CreateAttr("TargetMode", "External")
	} else {
		rel.CreateAttr("Target", relTarget(owner, target))
	}
	return rid, nil
}

// relTarget expresses target relative to the owner's directory.
func relTarget(owner, target string) string {
	dir := path.Dir(owner)
	if dir == "." {
		return target
	}
	if rel, err := filepath.Rel(dir, target); err == nil {
		return filepath.ToSlash(rel)
	}
	return target
}

// AddPart performs the three coordinated additions a new part requires: the
// part itself, a relationship from its owner and a content-type override.
func (p *Package) AddPart(name string, data []byte, owner, relType, contentType string) (string, error) {
	if p.Has(name) {
		return "", &PackageCorruptionError{Part: name, Reason: "already present"}
	}
	rid, err := p.AddRelationship(owner, relType, name)
	if err != nil {
		return "", err
	}
	if err := p.EnsureOverrideType(name, contentType); err != nil {
		return "", err
	}
	p.SetRaw(name, data)
	return rid, nil
}
