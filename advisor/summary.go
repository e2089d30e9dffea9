// Package advisor asks an external review oracle for an opinion on a
// diagram and runs the deterministic checks that need no oracle at all.
// The oracle is advisory: any transport or schema failure degrades to a
// "could not verify" report and never propagates as a hard error.
package advisor

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/classflow/classflow/diagram"
)

// The wire schema is fixed by the remote contract and keeps its Spanish
// field names; only the Go-side identifiers are translated.

// SummaryNode is one class in the oracle's input schema.
type SummaryNode struct {
	ID         string   `json:"id"`
	Name       string   `json:"nombre"`
	Stereotype string   `json:"estereotipo,omitempty"`
	Attributes []string `json:"atributos"`
	Methods    []string `json:"metodos"`
}

// SummaryEdge is one relationship in the oracle's input schema.
type SummaryEdge struct {
	Kind         string `json:"tipo"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	Multiplicity string `json:"multiplicidad,omitempty"`
}

// Summary is the diagram condensed to what the oracle reasons about.
type Summary struct {
	Nodes []SummaryNode `json:"nodos"`
	Edges []SummaryEdge `json:"aristas"`
}

// Summarize condenses nodes and relationships into the oracle input.
// Auxiliary edges are included; the oracle's policies tell it to judge
// only what is present.
func Summarize(nodes []diagram.Node, rels []diagram.Relationship) Summary {
	sum := Summary{}
	for _, n := range nodes {
		name := n.Name
		if name == "" {
			name = n.ID
		}
		var stereotype string
		if n.Role == diagram.RoleAssociationClass {
			stereotype = "associationClass"
		}
		sum.Nodes = append(sum.Nodes, SummaryNode{
			ID:         n.ID,
			Name:       name,
			Stereotype: stereotype,
			Attributes: slices.Clone(n.Attributes),
			Methods:    slices.Clone(n.Methods),
		})
	}
	for _, r := range rels {
		kind := string(r.Kind)
		if kind == "" {
			kind = string(diagram.Association)
		}
		sum.Edges = append(sum.Edges, SummaryEdge{
			Kind:         strings.ToLower(kind),
			Source:       r.Source,
			Target:       r.Target,
			Multiplicity: string(r.EndLabel),
		})
	}
	return sum
}

// BrokenRef is a relationship endpoint that resolves to no node.
type BrokenRef struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Duplicates lists elements whose names collide case-insensitively.
type Duplicates struct {
	Nodes []string `json:"nodos"`
	Edges []string `json:"aristas"`
}

// LocalChecks is the deterministic pre-verdict computed without the
// oracle. It rides along with the request so the oracle can cross-check.
type LocalChecks struct {
	OKStructural      bool       `json:"okEstructural"`
	Islands           []string   `json:"islas"`
	BrokenRefs        []BrokenRef `json:"referenciasRotas"`
	InheritanceCycles [][]string `json:"ciclosHerencia"`
	Duplicates        Duplicates `json:"duplicados"`
	ApproxSizeKB      int        `json:"tamanioAproximadoKB"`
}

// RunLocalChecks computes island, broken-reference, duplicate-name, and
// inheritance-cycle findings for a summary.
func RunLocalChecks(sum Summary) LocalChecks {
	checks := LocalChecks{
		Islands:           []string{},
		BrokenRefs:        []BrokenRef{},
		InheritanceCycles: [][]string{},
		Duplicates:        Duplicates{Nodes: []string{}, Edges: []string{}},
	}

	known := make(map[string]bool, len(sum.Nodes))
	for _, n := range sum.Nodes {
		known[n.ID] = true
	}

	connected := map[string]bool{}
	for _, e := range sum.Edges {
		if !known[e.Source] || !known[e.Target] {
			checks.BrokenRefs = append(checks.BrokenRefs, BrokenRef{Source: e.Source, Target: e.Target})
			continue
		}
		connected[e.Source] = true
		connected[e.Target] = true
	}
	for _, n := range sum.Nodes {
		if !connected[n.ID] {
			checks.Islands = append(checks.Islands, n.ID)
		}
	}

	counts := map[string]int{}
	for _, n := range sum.Nodes {
		counts[strings.ToLower(n.Name)]++
	}
	for _, n := range sum.Nodes {
		if counts[strings.ToLower(n.Name)] > 1 {
			checks.Duplicates.Nodes = append(checks.Duplicates.Nodes, n.ID)
		}
	}

	checks.InheritanceCycles = inheritanceCycles(sum)

	if raw, err := json.Marshal(sum); err == nil {
		checks.ApproxSizeKB = (len(raw) + 1023) / 1024
	}

	checks.OKStructural = len(checks.Islands) == 0 &&
		len(checks.BrokenRefs) == 0 &&
		len(checks.Duplicates.Nodes) == 0 &&
		len(checks.InheritanceCycles) == 0
	return checks
}

// inheritanceCycles finds cycles in the generalization subgraph by DFS.
// Each cycle is reported once, starting from its smallest node id.
func inheritanceCycles(sum Summary) [][]string {
	parents := map[string][]string{}
	for _, e := range sum.Edges {
		if e.Kind == strings.ToLower(string(diagram.Generalization)) {
			parents[e.Source] = append(parents[e.Source], e.Target)
		}
	}

	const (
		unvisited = 0
		active    = 1
		done      = 2
	)
	state := map[string]int{}
	var cycles [][]string
	var stack []string

	var visit func(id string)
	visit = func(id string) {
		state[id] = active
		stack = append(stack, id)
		for _, parent := range parents[id] {
			switch state[parent] {
			case unvisited:
				visit(parent)
			case active:
				start := slices.Index(stack, parent)
				cycle := slices.Clone(stack[start:])
				rotateToSmallest(cycle)
				if !containsCycle(cycles, cycle) {
					cycles = append(cycles, cycle)
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
	}

	ids := make([]string, 0, len(parents))
	for id := range parents {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if state[id] == unvisited {
			visit(id)
		}
	}
	return cycles
}

// rotateToSmallest rewrites the cycle in place so it starts at its
// smallest node id, giving every reported cycle a canonical form.
func rotateToSmallest(cycle []string) {
	if len(cycle) == 0 {
		return
	}
	min := 0
	for i, id := range cycle {
		if id < cycle[min] {
			min = i
		}
	}
	rotated := append(slices.Clone(cycle[min:]), cycle[:min]...)
	copy(cycle, rotated)
}

func containsCycle(cycles [][]string, cycle []string) bool {
	for _, c := range cycles {
		if slices.Equal(c, cycle) {
			return true
		}
	}
	return false
}
