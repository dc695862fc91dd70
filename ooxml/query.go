package ooxml

import "github.com/beevik/etree"

// ResolveNS resolves a namespace prefix to its URI by walking xmlns
// declarations up the parent chain. An empty prefix resolves the default
// namespace.
func ResolveNS(e *etree.Element, prefix string) string {
	for ; e != nil; e = e.Parent() {
		for _, a := range e.Attr {
			if prefix == "" {
				if a.Space == "" && a.Key == "xmlns" {
					return a.Value
				}
			} else if a.Space == "xmlns" && a.Key == prefix {
				return a.Value
			}
		}
	}
	return ""
}

// Matches reports whether the element's local name is local and its prefix
// resolves to ns. Matching by resolved URI keeps queries independent of
// whatever prefixes a producer happened to choose.
func Matches(e *etree.Element, ns, local string) bool {
	if e.Tag != local {
		return false
	}
	return ResolveNS(e, e.Space) == ns
}

// FindFirst returns the first descendant (depth first, document order)
// matching ns/local, or nil.
func FindFirst(root *etree.Element, ns, local string) *etree.Element {
	if root == nil {
		return nil
	}
	for _, c := range root.ChildElements() {
		if Matches(c, ns, local) {
			return c
		}
		if found := FindFirst(c, ns, local); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns all descendants matching ns/local in document order.
func FindAll(root *etree.Element, ns, local string) []*etree.Element {
	var out []*etree.Element
	if root == nil {
		return out
	}
	var walk func(e *etree.Element)
	walk = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			if Matches(c, ns, local) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

// ChildNS returns the first direct child matching ns/local, or nil.
func ChildNS(e *etree.Element, ns, local string) *etree.Element {
	if e == nil {
		return nil
	}
	for _, c := range e.ChildElements() {
		if Matches(c, ns, local) {
			return c
		}
	}
	return nil
}

// AttrNS returns the value of an attribute whose local name is local and
// whose prefix resolves to ns. Unprefixed attributes have no namespace in
// XML, they are matched when ns is empty.
func AttrNS(e *etree.Element, ns, local string) string {
	if e == nil {
		return ""
	}
	for _, a := range e.Attr {
		if a.Key != local || a.Space == "xmlns" {
			continue
		}
		if a.Space == "" {
			if ns == "" {
				return a.Value
			}
			continue
		}
		if ResolveNS(e, a.Space) == ns {
			return a.Value
		}
	}
	return ""
}
