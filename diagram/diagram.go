// Package diagram holds the canonical in-memory representation of a UML
// class diagram: class nodes, relationships between them, and the auxiliary
// nodes that anchor association-classes. The package is pure data plus
// invariants; it performs no I/O.
package diagram

import (
	"github.com/google/uuid"
)

// Role tags the part a node plays in the diagram.
type Role string

// Node roles.
const (
	// RoleOrdinary is a regular user-editable class node.
	RoleOrdinary Role = "ordinary"
	// RoleAssociationClass is a class semantically attached to a
	// relationship rather than to a single node.
	RoleAssociationClass Role = "associationClass"
	// RoleConnectionPoint is a zero-content marker anchoring the visual
	// link between an association-class and its owning relationship. It is
	// never user-editable and is owned by the relationship that created it.
	RoleConnectionPoint Role = "connectionPoint"
	// RoleNote is a free-text annotation node.
	RoleNote Role = "note"
)

// Valid reports whether the role is a member of the fixed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleOrdinary, RoleAssociationClass, RoleConnectionPoint, RoleNote:
		return true
	}
	return false
}

// Kind is the relationship kind.
type Kind string

// Relationship kinds.
const (
	Association                Kind = "Association"
	Aggregation                Kind = "Aggregation"
	Composition                Kind = "Composition"
	Generalization             Kind = "Generalization"
	Implementation             Kind = "Implementation"
	Dependency                 Kind = "Dependency"
	NoteConnection             Kind = "NoteConnection"
	AssociationClassConnection Kind = "AssociationClassConnection"
)

// Valid reports whether the kind is a member of the fixed kind set.
func (k Kind) Valid() bool {
	switch k {
	case Association, Aggregation, Composition, Generalization,
		Implementation, Dependency, NoteConnection, AssociationClassConnection:
		return true
	}
	return false
}

// Auxiliary reports whether the kind carries no domain semantics of its own:
// note links and the edge anchoring an association-class to its relationship.
func (k Kind) Auxiliary() bool {
	return k == NoteConnection || k == AssociationClassConnection
}

// Multiplicity is a cardinality label on a relationship endpoint, drawn from
// a fixed enumeration. The zero value means unset.
type Multiplicity string

// Multiplicity labels.
const (
	MultUnset     Multiplicity = ""
	MultZeroOne   Multiplicity = "0..1"
	MultOne       Multiplicity = "1"
	MultZeroMany  Multiplicity = "0..*"
	MultOneMany   Multiplicity = "1..*"
	MultMany      Multiplicity = "*"
)

// Valid reports whether the multiplicity is unset or a member of the
// fixed enumeration.
func (m Multiplicity) Valid() bool {
	switch m {
	case MultUnset, MultZeroOne, MultOne, MultZeroMany, MultOneMany, MultMany:
		return true
	}
	return false
}

// Many reports whether the multiplicity admits more than one instance.
func (m Multiplicity) Many() bool {
	switch m {
	case MultZeroMany, MultOneMany, MultMany:
		return true
	}
	return false
}

// Handle identifies a fixed anchor point on a node's border.
type Handle string

// The compass-point handle set.
const (
	HandleRightTop     Handle = "right-top"
	HandleRightCenter  Handle = "right-center"
	HandleRightBottom  Handle = "right-bottom"
	HandleLeftTop      Handle = "left-top"
	HandleLeftCenter   Handle = "left-center"
	HandleLeftBottom   Handle = "left-bottom"
	HandleTopCenter    Handle = "top-center"
	HandleBottomCenter Handle = "bottom-center"
)

// Valid reports whether the handle is a member of the compass-point set.
func (h Handle) Valid() bool {
	switch h {
	case HandleRightTop, HandleRightCenter, HandleRightBottom,
		HandleLeftTop, HandleLeftCenter, HandleLeftBottom,
		HandleTopCenter, HandleBottomCenter:
		return true
	}
	return false
}

// Position is a point on the canvas, the top-left corner of a node's
// rendered footprint.
type Position struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Node is a class, note, association-class, or connection-point marker.
type Node struct {
	ID         string   `json:"id" msgpack:"id"`
	Name       string   `json:"name" msgpack:"name"`
	Attributes []string `json:"attributes,omitempty" msgpack:"attributes"`
	Methods    []string `json:"methods,omitempty" msgpack:"methods"`
	Position   Position `json:"position" msgpack:"position"`
	Role       Role     `json:"role" msgpack:"role"`
}

// AssociationClassLink records the auxiliary triple attached to a
// relationship: the association-class node and its connection-point node.
// The triple plus the AssociationClassConnection edge between them form an
// atomic group owned by the relationship.
type AssociationClassLink struct {
	Has     bool   `json:"has" msgpack:"has"`
	ClassID string `json:"classId,omitempty" msgpack:"classId"`
	PointID string `json:"pointId,omitempty" msgpack:"pointId"`
}

// Relationship is an edge between two nodes.
type Relationship struct {
	ID           string       `json:"id" msgpack:"id"`
	Source       string       `json:"source" msgpack:"source"`
	Target       string       `json:"target" msgpack:"target"`
	SourceHandle Handle       `json:"sourceHandle,omitempty" msgpack:"sourceHandle"`
	TargetHandle Handle       `json:"targetHandle,omitempty" msgpack:"targetHandle"`
	Kind         Kind         `json:"kind" msgpack:"kind"`
	StartLabel   Multiplicity `json:"startLabel,omitempty" msgpack:"startLabel"`
	EndLabel     Multiplicity `json:"endLabel,omitempty" msgpack:"endLabel"`
	Label        string       `json:"label,omitempty" msgpack:"label"`

	// Selected is transient UI state. It never participates in domain
	// decisions and is excluded from every externalized form.
	Selected bool `json:"-" msgpack:"-"`

	AssociationClass AssociationClassLink `json:"associationClass,omitempty" msgpack:"associationClass"`
}

// Touches reports whether the relationship has the given node id as
// either endpoint.
func (r Relationship) Touches(nodeID string) bool {
	return r.Source == nodeID || r.Target == nodeID
}

// NewNodeID mints a fresh opaque node id.
func NewNodeID() string {
	return "node-" + uuid.NewString()
}

// NewRelationshipID mints a fresh opaque relationship id.
func NewRelationshipID() string {
	return "edge-" + uuid.NewString()
}
