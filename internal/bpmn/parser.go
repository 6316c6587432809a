package bpmn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// ErrParse matches every *ParseError with errors.Is.
var ErrParse = errors.New("malformed process definition")

var errNoRoot = errors.New("document has no root element")

// ParseError reports process-definition text that is not well-formed XML.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse process definition: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Document is a parsed process definition. A definition whose root is not a
// "definitions" element, or that lacks a collaboration, is simply empty.
type Document struct {
	Root          *Node
	Collaboration *Node
	Processes     []*Node

	// errorNames maps root-level error declarations from id to name.
	errorNames map[string]string
}

// Parse reads raw definition text into a Document. Only malformed XML is an
// error; unexpected structure degrades to an empty document.
func Parse(raw []byte) (*Document, error) {
	xdoc := etree.NewDocument()
	if err := xdoc.ReadFromBytes(raw); err != nil {
		return nil, &ParseError{Err: err}
	}
	if xdoc.Root() == nil {
		return nil, &ParseError{Err: errNoRoot}
	}

	doc := &Document{Root: convert(xdoc.Root()), errorNames: map[string]string{}}
	if doc.Root.Name != "definitions" {
		return doc, nil
	}
	doc.Collaboration = doc.Root.First("collaboration")
	doc.Processes = doc.Root.All("process")
	for _, e := range doc.Root.All("error") {
		if id := e.ID(); id != "" {
			doc.errorNames[id] = e.Attr("name")
		}
	}
	return doc, nil
}

// ErrorName resolves an errorRef to the declared error name, or "".
func (d *Document) ErrorName(ref string) string {
	if d == nil {
		return ""
	}
	return d.errorNames[ref]
}

// convert builds the Node tree once, so every repeating element is a slice
// from here on.
func convert(e *etree.Element) *Node {
	n := &Node{
		Space:  e.NamespaceURI(),
		Prefix: e.Space,
		Name:   e.Tag,
		Attrs:  make(map[string]string, len(e.Attr)),
	}
	for _, a := range e.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		// An unprefixed attribute wins over a prefixed one of the same local name.
		if _, exists := n.Attrs[a.Key]; exists && a.Space != "" {
			continue
		}
		n.Attrs[a.Key] = a.Value
	}

	var text strings.Builder
	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			text.WriteString(t.Data)
		case *etree.Element:
			n.Children = append(n.Children, convert(t))
		}
	}
	n.Text = strings.TrimSpace(text.String())
	return n
}
