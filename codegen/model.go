package codegen

import (
	"fmt"
	"log/slog"

	"github.com/classflow/classflow"
	"github.com/classflow/classflow/diagram"
)

// Reference is a relationship-derived field on a class.
type Reference struct {
	Field  string
	Target string
	Many   bool
	Kind   diagram.Kind
}

// Class is one generatable class with its parsed members and the fields
// derived from its outgoing relationships.
type Class struct {
	Name       string
	Display    string
	Parent     string
	Attributes []Attribute
	Operations []Operation
	Refs       []Reference
}

// Model is the generation input distilled from a diagram snapshot.
// Warnings collect skipped members and flagged name collisions; they are
// advisory, generation always proceeds with what parsed.
type Model struct {
	Classes  []Class
	Warnings []string
}

// Build distills a snapshot into a generation model. Only ordinary and
// association-class nodes participate; note links and connection edges
// carry no code meaning. Malformed members are skipped with a warning.
// Classes whose sanitized names collide keep the first occurrence and
// flag the rest; the same rule applies to operations whose exported name
// would land on an already emitted accessor or field.
func Build(s *diagram.Snapshot, logger *slog.Logger) (*Model, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Model{}
	index := map[string]int{}  // sanitized name -> index in m.Classes
	byNode := map[string]int{} // node id -> index in m.Classes

	for _, n := range s.Nodes() {
		if n.Role != diagram.RoleOrdinary && n.Role != diagram.RoleAssociationClass {
			continue
		}
		name := sanitizeClassName(n.Name)
		if name == "" {
			m.warn(logger, fmt.Sprintf("class %q skipped: name sanitizes to nothing", n.Name))
			continue
		}
		if prev, ok := index[name]; ok {
			m.warn(logger, fmt.Sprintf("class %q collides with %q after sanitization, keeping the first",
				n.Name, m.Classes[prev].Display))
			byNode[n.ID] = prev
			continue
		}

		cls := Class{Name: name, Display: n.Name}
		for _, display := range n.Attributes {
			attr, err := ParseAttribute(n.Name, display)
			if err != nil {
				m.warnMember(logger, err)
				continue
			}
			attr.Name = sanitizeMemberName(attr.Name)
			if attr.Name == "" {
				m.warn(logger, fmt.Sprintf("attribute %q on %q skipped: name sanitizes to nothing", display, n.Name))
				continue
			}
			cls.Attributes = append(cls.Attributes, attr)
		}
		// Identifiers the entity layer already emits for this class.
		// Operations whose exported name lands on one would not compile.
		taken := map[string]bool{}
		if !hasOwnID(cls) {
			taken["ID"] = true
		}
		for _, a := range cls.Attributes {
			taken[a.Name] = true
			if g := exported(a.Name); g != a.Name {
				taken[g] = true
				taken["Set"+g] = true
			}
		}
		for _, display := range n.Methods {
			op, err := ParseOperation(n.Name, display)
			if err != nil {
				m.warnMember(logger, err)
				continue
			}
			op.Name = sanitizeMemberName(op.Name)
			if op.Name == "" {
				m.warn(logger, fmt.Sprintf("operation %q on %q skipped: name sanitizes to nothing", display, n.Name))
				continue
			}
			id := exported(op.Name)
			if taken[id] {
				m.warn(logger, fmt.Sprintf("operation %q on %q skipped: generated name %s is already taken",
					display, n.Name, id))
				continue
			}
			taken[id] = true
			cls.Operations = append(cls.Operations, op)
		}

		index[name] = len(m.Classes)
		byNode[n.ID] = len(m.Classes)
		m.Classes = append(m.Classes, cls)
	}
	if len(m.Classes) == 0 {
		return nil, classflow.NewEmptyDiagramError("generation input")
	}

	for _, r := range s.Relationships() {
		if r.Kind.Auxiliary() {
			continue
		}
		si, sourceOK := byNode[r.Source]
		ti, targetOK := byNode[r.Target]
		if !sourceOK || !targetOK {
			m.warn(logger, fmt.Sprintf("relationship %s skipped: endpoint is not a generatable class", r.ID))
			continue
		}
		source, target := &m.Classes[si], &m.Classes[ti]
		switch r.Kind {
		case diagram.Generalization:
			if source.Parent != "" {
				m.warn(logger, fmt.Sprintf("class %q already inherits %q, ignoring extra generalization to %q",
					source.Display, source.Parent, target.Display))
				continue
			}
			source.Parent = target.Name
		case diagram.Implementation, diagram.Dependency:
			// No structural field; these describe behavior contracts.
		default:
			many := r.EndLabel.Many()
			source.Refs = append(source.Refs, Reference{
				Field:  fieldFor(target.Name, many),
				Target: target.Name,
				Many:   many,
				Kind:   r.Kind,
			})
		}
	}
	return m, nil
}

func (m *Model) warn(logger *slog.Logger, msg string) {
	logger.Warn(msg)
	m.Warnings = append(m.Warnings, msg)
}

func (m *Model) warnMember(logger *slog.Logger, err error) {
	logger.Warn("skipping malformed member", "err", err)
	m.Warnings = append(m.Warnings, err.Error())
}
