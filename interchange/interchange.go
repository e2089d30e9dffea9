// Package interchange reads and writes class diagrams in the XMI-style
// interchange form: classes as typed packagedElement entries with nested
// attribute and operation elements, associations as typed entries carrying
// two member ends. Import tolerates classes nested inside packages or
// declared at top level; export always emits the flat form.
package interchange

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/classflow/classflow"
	"github.com/classflow/classflow/diagram"
)

// Layout grid for imported classes. Source documents may carry their own
// geometry; it is ignored and every class lands on this grid.
const (
	gridOriginX  = 250.0
	gridOriginY  = 150.0
	gridStepX    = 300.0
	gridStepY    = 250.0
	gridColumns  = 2
	fallbackAttr = "attr"
	fallbackOp   = "op"
	fallbackType = "string"
	fallbackRet  = "void"
)

// Result is a decoded diagram. Warnings describe association candidates
// that were discarded because their ends did not resolve to known classes.
type Result struct {
	Nodes         []diagram.Node
	Relationships []diagram.Relationship
	Warnings      []string
}

// Codec decodes and encodes interchange documents.
type Codec struct {
	logger *slog.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Codec) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// element is a minimal DOM kept only for the lookups decoding needs.
type element struct {
	name     xml.Name
	attrs    []xml.Attr
	children []*element
}

// typed returns the namespaced type discriminator, "uml:Class" style.
func (e *element) typed() string {
	for _, a := range e.attrs {
		if a.Name.Local == "type" && a.Name.Space != "" {
			return a.Value
		}
	}
	return ""
}

// attr returns an attribute by local name, preferring the namespaced form.
func (e *element) attr(local string) string {
	plain := ""
	for _, a := range e.attrs {
		if a.Name.Local != local {
			continue
		}
		if a.Name.Space != "" {
			return a.Value
		}
		plain = a.Value
	}
	return plain
}

func (e *element) byTag(local string) []*element {
	var out []*element
	for _, c := range e.children {
		if c.name.Local == local {
			out = append(out, c)
		}
	}
	return out
}

// walk visits every element in document order, root included.
func (e *element) walk(fn func(*element)) {
	fn(e)
	for _, c := range e.children {
		c.walk(fn)
	}
}

func parseTree(r io.Reader) (*element, error) {
	dec := xml.NewDecoder(r)
	root := &element{}
	stack := []*element{root}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, classflow.NewParseError("document is not well-formed XML", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{name: t.Name, attrs: append([]xml.Attr(nil), t.Attr...)}
			top := stack[len(stack)-1]
			top.children = append(top.children, el)
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) != 1 {
		return nil, classflow.NewParseError("document is not well-formed XML", nil)
	}
	return root, nil
}

// Decode parses an interchange document into nodes and relationships.
// Classes inside uml:Package containers are preferred; when none are found
// the whole document is scanned flat. Imported classes are laid out on a
// fixed grid regardless of any geometry in the source.
func (c *Codec) Decode(r io.Reader) (*Result, error) {
	root, err := parseTree(r)
	if err != nil {
		return nil, err
	}

	var packaged []*element
	root.walk(func(e *element) {
		if e.name.Local == "packagedElement" {
			packaged = append(packaged, e)
		}
	})

	var classes []*element
	for _, e := range packaged {
		if e.typed() != "uml:Package" {
			continue
		}
		e.walk(func(child *element) {
			if child != e && child.name.Local == "packagedElement" && child.typed() == "uml:Class" {
				classes = append(classes, child)
			}
		})
	}
	if len(classes) == 0 {
		for _, e := range packaged {
			if e.typed() == "uml:Class" {
				classes = append(classes, e)
			}
		}
	}
	if len(classes) == 0 {
		return nil, classflow.NewEmptyDiagramError("interchange document")
	}

	res := &Result{}
	byRef := make(map[string]string, len(classes))
	for i, cls := range classes {
		ref := cls.attr("id")
		if ref == "" {
			ref = fmt.Sprintf("imported-%d", i)
		}
		node := diagram.Node{
			ID:   "node-" + ref,
			Name: cls.attr("name"),
			Position: diagram.Position{
				X: gridOriginX + float64(i)*gridStepX,
				Y: gridOriginY + float64(i/gridColumns)*gridStepY,
			},
			Role: diagram.RoleOrdinary,
		}
		for _, a := range cls.byTag("ownedAttribute") {
			node.Attributes = append(node.Attributes,
				fmt.Sprintf("+ %s: %s", orElse(a.attr("name"), fallbackAttr), orElse(a.attr("type"), fallbackType)))
		}
		for _, op := range cls.byTag("ownedOperation") {
			node.Methods = append(node.Methods,
				fmt.Sprintf("+ %s(): %s", orElse(op.attr("name"), fallbackOp), orElse(op.attr("type"), fallbackRet)))
		}
		byRef[ref] = node.ID
		res.Nodes = append(res.Nodes, node)
	}

	for _, e := range packaged {
		if e.typed() != "uml:Association" {
			continue
		}
		ends := e.byTag("memberEnd")
		if len(ends) == 0 {
			ends = e.byTag("ownedEnd")
		}
		if len(ends) != 2 {
			c.dropAssociation(res, e, fmt.Sprintf("expected 2 member ends, found %d", len(ends)))
			continue
		}
		source, sourceOK := byRef[endRef(ends[0])]
		target, targetOK := byRef[endRef(ends[1])]
		if !sourceOK || !targetOK {
			c.dropAssociation(res, e, "member end does not resolve to a known class")
			continue
		}
		res.Relationships = append(res.Relationships, diagram.Relationship{
			ID:           diagram.NewRelationshipID(),
			Source:       source,
			Target:       target,
			SourceHandle: diagram.HandleRightCenter,
			TargetHandle: diagram.HandleLeftCenter,
			Kind:         diagram.Association,
			StartLabel:   "1",
			EndLabel:     "1",
		})
	}
	return res, nil
}

// DecodeSnapshot decodes and materializes the result as a graph snapshot.
func (c *Codec) DecodeSnapshot(r io.Reader) (*diagram.Snapshot, []string, error) {
	res, err := c.Decode(r)
	if err != nil {
		return nil, nil, err
	}
	s, err := diagram.FromParts(res.Nodes, res.Relationships)
	if err != nil {
		return nil, nil, err
	}
	return s, res.Warnings, nil
}

func (c *Codec) dropAssociation(res *Result, e *element, reason string) {
	id := e.attr("id")
	c.logger.Warn("dropping association candidate", "id", id, "reason", reason)
	res.Warnings = append(res.Warnings, fmt.Sprintf("association %q dropped: %s", id, reason))
}

// endRef extracts the class reference from a member end element.
func endRef(e *element) string {
	if ref := e.attr("idref"); ref != "" {
		return ref
	}
	return e.attr("type")
}

func orElse(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

type xmlMember struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

type xmlEnd struct {
	IDRef string `xml:"xmi:idref,attr"`
}

type xmlPackaged struct {
	XMLName    xml.Name    `xml:"packagedElement"`
	Type       string      `xml:"xmi:type,attr"`
	ID         string      `xml:"xmi:id,attr"`
	Name       string      `xml:"name,attr,omitempty"`
	Attributes []xmlMember `xml:"ownedAttribute"`
	Operations []xmlMember `xml:"ownedOperation"`
	Ends       []xmlEnd    `xml:"memberEnd"`
}

type xmlDocument struct {
	XMLName  xml.Name      `xml:"xmi:XMI"`
	XMINS    string        `xml:"xmlns:xmi,attr"`
	UMLNS    string        `xml:"xmlns:uml,attr"`
	Elements []xmlPackaged `xml:"packagedElement"`
}

// Encode writes the flat interchange form. Auxiliary nodes and edges
// (notes, connection points, their links) carry no meaning outside a live
// board and are skipped. A relationship whose endpoint does not resolve
// to an exported class is dropped with a warning, mirroring Decode.
// Decoding the output recovers class names, member text, and relationship
// endpoint pairs; generated positions and minted identifiers are not
// preserved.
func (c *Codec) Encode(w io.Writer, nodes []diagram.Node, rels []diagram.Relationship) ([]string, error) {
	doc := xmlDocument{
		XMINS: "http://www.omg.org/XMI",
		UMLNS: "http://www.omg.org/spec/UML",
	}
	known := map[string]bool{}
	for _, n := range nodes {
		if n.Role != diagram.RoleOrdinary && n.Role != diagram.RoleAssociationClass {
			continue
		}
		el := xmlPackaged{
			Type: "uml:Class",
			ID:   strings.TrimPrefix(n.ID, "node-"),
			Name: n.Name,
		}
		for _, attr := range n.Attributes {
			name, typ := splitMember(attr, fallbackType)
			el.Attributes = append(el.Attributes, xmlMember{Name: name, Type: typ})
		}
		for _, m := range n.Methods {
			name, typ := splitMember(m, fallbackRet)
			el.Operations = append(el.Operations, xmlMember{Name: name, Type: typ})
		}
		known[n.ID] = true
		doc.Elements = append(doc.Elements, el)
	}

	var warnings []string
	for i, r := range rels {
		if r.Kind.Auxiliary() {
			continue
		}
		if !known[r.Source] || !known[r.Target] {
			c.logger.Warn("dropping relationship with unresolved endpoint",
				"id", r.ID, "source", r.Source, "target", r.Target)
			warnings = append(warnings, fmt.Sprintf(
				"relationship %q dropped: endpoint does not resolve to an exported class", r.ID))
			continue
		}
		doc.Elements = append(doc.Elements, xmlPackaged{
			Type: "uml:Association",
			ID:   fmt.Sprintf("assoc-%d", i),
			Ends: []xmlEnd{
				{IDRef: strings.TrimPrefix(r.Source, "node-")},
				{IDRef: strings.TrimPrefix(r.Target, "node-")},
			},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return nil, fmt.Errorf("interchange: write header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("interchange: encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return warnings, nil
}

// splitMember takes a display string such as "+ saldo: float" or
// "+ saludar(): void" and recovers the name and type. Text that does not
// follow the convention is exported verbatim as the name with the
// fallback type.
func splitMember(display, fallback string) (name, typ string) {
	s := strings.TrimSpace(display)
	for _, vis := range []string{"+", "-", "#", "~"} {
		if strings.HasPrefix(s, vis) {
			s = strings.TrimSpace(s[len(vis):])
			break
		}
	}
	name, typ, ok := strings.Cut(s, ":")
	if !ok {
		return strings.TrimSuffix(strings.TrimSpace(s), "()"), fallback
	}
	name = strings.TrimSuffix(strings.TrimSpace(name), "()")
	typ = strings.TrimSpace(typ)
	if typ == "" {
		typ = fallback
	}
	return name, typ
}
