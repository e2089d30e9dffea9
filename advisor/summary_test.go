package advisor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classflow/classflow/advisor"
	"github.com/classflow/classflow/diagram"
)

func TestSummarize(t *testing.T) {
	t.Parallel()
	nodes := []diagram.Node{
		{ID: "n1", Name: "Persona", Attributes: []string{"+ nombre: string"}, Methods: []string{"+ saludar(): void"}, Role: diagram.RoleOrdinary},
		{ID: "n2", Role: diagram.RoleOrdinary},
		{ID: "n3", Name: "Contrato", Role: diagram.RoleAssociationClass},
	}
	rels := []diagram.Relationship{
		{ID: "e1", Source: "n1", Target: "n2", Kind: diagram.Composition, EndLabel: diagram.MultZeroMany},
	}

	sum := advisor.Summarize(nodes, rels)
	require.Len(t, sum.Nodes, 3)
	assert.Equal(t, "Persona", sum.Nodes[0].Name)
	assert.Equal(t, []string{"+ nombre: string"}, sum.Nodes[0].Attributes)
	// A nameless node falls back to its id so the oracle can still refer to it.
	assert.Equal(t, "n2", sum.Nodes[1].Name)
	assert.Equal(t, "associationClass", sum.Nodes[2].Stereotype)

	require.Len(t, sum.Edges, 1)
	assert.Equal(t, "composition", sum.Edges[0].Kind)
	assert.Equal(t, "0..*", sum.Edges[0].Multiplicity)
}

func TestLocalChecksCleanDiagram(t *testing.T) {
	t.Parallel()
	sum := advisor.Summary{
		Nodes: []advisor.SummaryNode{{ID: "n1", Name: "A"}, {ID: "n2", Name: "B"}},
		Edges: []advisor.SummaryEdge{{Kind: "association", Source: "n1", Target: "n2"}},
	}
	checks := advisor.RunLocalChecks(sum)
	assert.True(t, checks.OKStructural)
	assert.Empty(t, checks.Islands)
	assert.Empty(t, checks.BrokenRefs)
	assert.Empty(t, checks.InheritanceCycles)
	assert.Empty(t, checks.Duplicates.Nodes)
	assert.Equal(t, 1, checks.ApproxSizeKB)
}

func TestLocalChecksFindings(t *testing.T) {
	t.Parallel()
	sum := advisor.Summary{
		Nodes: []advisor.SummaryNode{
			{ID: "n1", Name: "Cliente"},
			{ID: "n2", Name: "cliente"},
			{ID: "n3", Name: "Suelto"},
		},
		Edges: []advisor.SummaryEdge{
			{Kind: "association", Source: "n1", Target: "n2"},
			{Kind: "association", Source: "n1", Target: "fantasma"},
		},
	}
	checks := advisor.RunLocalChecks(sum)
	assert.False(t, checks.OKStructural)
	assert.Equal(t, []string{"n3"}, checks.Islands)
	assert.Equal(t, []advisor.BrokenRef{{Source: "n1", Target: "fantasma"}}, checks.BrokenRefs)
	assert.ElementsMatch(t, []string{"n1", "n2"}, checks.Duplicates.Nodes)
}

func TestLocalChecksInheritanceCycle(t *testing.T) {
	t.Parallel()
	sum := advisor.Summary{
		Nodes: []advisor.SummaryNode{
			{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "c", Name: "C"},
		},
		Edges: []advisor.SummaryEdge{
			{Kind: "generalization", Source: "a", Target: "b"},
			{Kind: "generalization", Source: "b", Target: "c"},
			{Kind: "generalization", Source: "c", Target: "a"},
		},
	}
	checks := advisor.RunLocalChecks(sum)
	assert.False(t, checks.OKStructural)
	require.Len(t, checks.InheritanceCycles, 1)
	assert.Equal(t, []string{"a", "b", "c"}, checks.InheritanceCycles[0])
}

func TestLocalChecksSelfInheritance(t *testing.T) {
	t.Parallel()
	sum := advisor.Summary{
		Nodes: []advisor.SummaryNode{{ID: "a", Name: "A"}},
		Edges: []advisor.SummaryEdge{{Kind: "generalization", Source: "a", Target: "a"}},
	}
	checks := advisor.RunLocalChecks(sum)
	require.Len(t, checks.InheritanceCycles, 1)
	assert.Equal(t, []string{"a"}, checks.InheritanceCycles[0])
}
