package codegen

import (
	"strings"

	"github.com/classflow/classflow"
)

// Members on a class node are plain display strings following the
// conventions "visibility name : type [= default]" for attributes and
// "visibility name(params) : returnType" for operations. The parser here
// is deliberately strict about shape and forgiving about spacing: a
// malformed entry yields a MalformedMember error so the caller can record
// a warning and move on, it never aborts generation.

// Visibility is the UML member visibility marker.
type Visibility string

const (
	Public    Visibility = "+"
	Private   Visibility = "-"
	Protected Visibility = "#"
	Package   Visibility = "~"
)

// Attribute is a parsed attribute member.
type Attribute struct {
	Visibility Visibility
	Name       string
	Type       string
	Default    string
}

// Param is a single operation parameter.
type Param struct {
	Name string
	Type string
}

// Operation is a parsed operation member.
type Operation struct {
	Visibility Visibility
	Name       string
	Params     []Param
	ReturnType string
}

// splitVisibility strips a leading visibility marker, defaulting to public.
func splitVisibility(s string) (Visibility, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Public, ""
	}
	switch v := Visibility(s[:1]); v {
	case Public, Private, Protected, Package:
		return v, strings.TrimSpace(s[1:])
	}
	return Public, s
}

// ParseAttribute parses "visibility name : type [= default]".
func ParseAttribute(class, display string) (Attribute, error) {
	vis, rest := splitVisibility(display)
	if rest == "" {
		return Attribute{}, classflow.NewMemberError(class, display, "empty attribute")
	}
	if strings.ContainsAny(rest, "()") {
		return Attribute{}, classflow.NewMemberError(class, display, "attribute cannot carry a parameter list")
	}
	name, typ, ok := strings.Cut(rest, ":")
	if !ok {
		return Attribute{}, classflow.NewMemberError(class, display, "missing \":\" type separator")
	}
	attr := Attribute{Visibility: vis, Name: strings.TrimSpace(name)}
	typ, def, hasDefault := strings.Cut(typ, "=")
	attr.Type = strings.TrimSpace(typ)
	if hasDefault {
		attr.Default = strings.TrimSpace(def)
	}
	if attr.Name == "" || strings.ContainsAny(attr.Name, ":=") {
		return Attribute{}, classflow.NewMemberError(class, display, "invalid attribute name")
	}
	if attr.Type == "" {
		return Attribute{}, classflow.NewMemberError(class, display, "empty type")
	}
	return attr, nil
}

// ParseOperation parses "visibility name(params) : returnType". A missing
// return type means void.
func ParseOperation(class, display string) (Operation, error) {
	vis, rest := splitVisibility(display)
	if rest == "" {
		return Operation{}, classflow.NewMemberError(class, display, "empty operation")
	}
	open := strings.Index(rest, "(")
	if open < 0 {
		return Operation{}, classflow.NewMemberError(class, display, "missing parameter list")
	}
	closing := strings.LastIndex(rest, ")")
	if closing < open {
		return Operation{}, classflow.NewMemberError(class, display, "unbalanced parameter list")
	}

	op := Operation{Visibility: vis, Name: strings.TrimSpace(rest[:open]), ReturnType: "void"}
	if op.Name == "" || strings.ContainsAny(op.Name, ":=") {
		return Operation{}, classflow.NewMemberError(class, display, "invalid operation name")
	}

	params, err := parseParams(class, display, rest[open+1:closing])
	if err != nil {
		return Operation{}, err
	}
	op.Params = params

	tail := strings.TrimSpace(rest[closing+1:])
	if tail != "" {
		ret, ok := strings.CutPrefix(tail, ":")
		if !ok {
			return Operation{}, classflow.NewMemberError(class, display, "unexpected text after parameter list")
		}
		if ret = strings.TrimSpace(ret); ret != "" {
			op.ReturnType = ret
		}
	}
	return op, nil
}

// parseParams parses "a: int, b: string". A bare token is taken as a
// typeless name.
func parseParams(class, display, list string) ([]Param, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}
	var params []Param
	for _, tok := range strings.Split(list, ",") {
		name, typ, _ := strings.Cut(tok, ":")
		p := Param{Name: strings.TrimSpace(name), Type: strings.TrimSpace(typ)}
		if p.Name == "" {
			return nil, classflow.NewMemberError(class, display, "empty parameter name")
		}
		params = append(params, p)
	}
	return params, nil
}
