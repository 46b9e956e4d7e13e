// Package xmldoc is a small element tree over encoding/xml used by the libvirt
// parsers. It exposes the handful of lookups the parsers need: tag search scoped
// to a subtree, optional single-element access, optional attributes and subtree
// serialization.
package xmldoc

import (
	"encoding/xml"
	"io"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Element is one node of a parsed document. Character data of an element is
// accumulated in Text.
type Element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []*Element `xml:",any"`
}

// Parse decodes doc into a tree. Documents without a root element fail.
func Parse(doc string) (*Element, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, errors.WithStack(&ParseError{Reason: "empty document"})
	}

	dec := xml.NewDecoder(strings.NewReader(doc))
	root := &Element{}
	if err := dec.Decode(root); err != nil {
		return nil, errors.WithStack(&ParseError{Reason: "malformed document", Err: err})
	}

	if root.XMLName.Local == "" {
		return nil, errors.WithStack(&ParseError{Reason: "no root element"})
	}

	if err := checkTrailing(dec); err != nil {
		return nil, err
	}

	return root, nil
}

// checkTrailing consumes the rest of the document. Only whitespace, comments
// and processing instructions may follow the root element.
func checkTrailing(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.WithStack(&ParseError{Reason: "malformed document", Err: err})
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if strings.TrimSpace(string(t)) != "" {
				return errors.WithStack(&ParseError{Reason: "text after root element"})
			}
		default:
			return errors.WithStack(&ParseError{Reason: "content after root element"})
		}
	}
}

// ParseRoot is Parse with an assertion on the root element name.
func ParseRoot(doc string, name string) (*Element, error) {
	root, err := Parse(doc)
	if err != nil {
		return nil, err
	}
	if root.XMLName.Local != name {
		return nil, errors.WithStack(&ParseError{
			Element: name,
			Reason:  "unexpected root element " + root.XMLName.Local,
		})
	}
	return root, nil
}

func (e *Element) Name() string {
	if e == nil {
		return ""
	}
	return e.XMLName.Local
}

// Space is the namespace URI the element was declared in.
func (e *Element) Space() string {
	if e == nil {
		return ""
	}
	return e.XMLName.Space
}

// Attr returns the value of the unqualified attribute name.
func (e *Element) Attr(name string) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, a := range e.Attrs {
		if a.Name.Local == name && a.Name.Space != "xmlns" {
			return a.Value, true
		}
	}
	return "", false
}

// AttrPtr is Attr with absence expressed as nil.
func (e *Element) AttrPtr(name string) *string {
	v, ok := e.Attr(name)
	if !ok {
		return nil
	}
	return &v
}

// AttrOr returns the attribute value or def when absent.
func (e *Element) AttrOr(name string, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

// Content is the trimmed character data of the element.
func (e *Element) Content() string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.Text)
}

// ContentPtr is Content of an optional element, nil when the element is absent.
func (e *Element) ContentPtr() *string {
	if e == nil {
		return nil
	}
	c := e.Content()
	return &c
}

// Child returns the first direct child named tag.
func (e *Element) Child(tag string) *Element {
	if e == nil {
		return nil
	}
	for _, c := range e.Children {
		if c.XMLName.Local == tag {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns the direct children named tag.
func (e *Element) ChildrenNamed(tag string) []*Element {
	if e == nil {
		return nil
	}
	var out []*Element
	for _, c := range e.Children {
		if c.XMLName.Local == tag {
			out = append(out, c)
		}
	}
	return out
}

// FindAll returns every descendant named tag in document order. The receiver
// itself is not a candidate.
func (e *Element) FindAll(tag string) []*Element {
	var out []*Element
	e.walkDescendants(func(d *Element) bool {
		if d.XMLName.Local == tag {
			out = append(out, d)
		}
		return true
	})
	return out
}

// FindAllNS is FindAll restricted to elements declared in namespace space.
func (e *Element) FindAllNS(space string, tag string) []*Element {
	var out []*Element
	e.walkDescendants(func(d *Element) bool {
		if d.XMLName.Local == tag && d.XMLName.Space == space {
			out = append(out, d)
		}
		return true
	})
	return out
}

// Find returns the first descendant named tag, or nil.
func (e *Element) Find(tag string) *Element {
	var found *Element
	e.walkDescendants(func(d *Element) bool {
		if d.XMLName.Local == tag {
			found = d
			return false
		}
		return true
	})
	return found
}

// FindPath follows direct children by name, e.g. FindPath("os", "type").
func (e *Element) FindPath(tags ...string) *Element {
	cur := e
	for _, t := range tags {
		cur = cur.Child(t)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Walk visits the receiver and its descendants in pre-order.
func (e *Element) Walk(fn func(*Element)) {
	if e == nil {
		return
	}
	fn(e)
	e.walkDescendants(func(d *Element) bool {
		fn(d)
		return true
	})
}

func (e *Element) walkDescendants(fn func(*Element) bool) bool {
	if e == nil {
		return true
	}
	for _, c := range e.Children {
		if !fn(c) {
			return false
		}
		if !c.walkDescendants(fn) {
			return false
		}
	}
	return true
}
