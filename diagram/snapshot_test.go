package diagram_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classflow/classflow"
	"github.com/classflow/classflow/diagram"
)

func twoClasses(t *testing.T) (*Snapshot, string, string) {
	t.Helper()
	s := diagram.New()
	s, a, err := s.AddNode(diagram.Node{Name: "Customer"})
	require.NoError(t, err)
	s, b, err := s.AddNode(diagram.Node{Name: "Order"})
	require.NoError(t, err)
	return s, a, b
}

// Snapshot is re-exported locally to keep the helper signature short.
type Snapshot = diagram.Snapshot

func TestAddNodeMintsID(t *testing.T) {
	t.Parallel()

	s := diagram.New()
	s, id, err := s.AddNode(diagram.Node{Name: "Customer"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	n, ok := s.Node(id)
	require.True(t, ok)
	assert.Equal(t, diagram.RoleOrdinary, n.Role)
	assert.Equal(t, "Customer", n.Name)
}

func TestAddRelationshipValidation(t *testing.T) {
	t.Parallel()

	s, a, b := twoClasses(t)

	t.Run("unknown endpoint", func(t *testing.T) {
		_, _, err := s.AddRelationship(a, "missing", diagram.Association)
		assert.True(t, classflow.IsInvalidEndpoint(err))
	})

	t.Run("self connection", func(t *testing.T) {
		_, _, err := s.AddRelationship(a, a, diagram.Association)
		assert.True(t, classflow.IsSelfConnection(err))
		// The failed attempt leaves the snapshot untouched.
		assert.Equal(t, 0, s.RelationshipCount())
	})

	t.Run("duplicate pair", func(t *testing.T) {
		s2, _, err := s.AddRelationship(a, b, diagram.Association)
		require.NoError(t, err)
		_, _, err = s2.AddRelationship(b, a, diagram.Aggregation)
		assert.True(t, classflow.IsDuplicateRelationship(err))
	})

	t.Run("note link in parallel", func(t *testing.T) {
		s2, _, err := s.AddRelationship(a, b, diagram.Association)
		require.NoError(t, err)
		s2, _, err = s2.AddRelationship(a, b, diagram.NoteConnection)
		require.NoError(t, err)
		assert.Equal(t, 2, s2.RelationshipCount())
	})
}

func TestConnectDisconnectRestoresState(t *testing.T) {
	t.Parallel()

	s, a, b := twoClasses(t)
	before := s.RelationshipCount()

	s2, relID, err := s.AddRelationship(a, b, diagram.Association)
	require.NoError(t, err)
	s3 := s2.RemoveRelationships(relID)

	assert.Equal(t, s.NodeCount(), s3.NodeCount())
	assert.Equal(t, before, s3.RelationshipCount())
}

// buildPromoted wires an association-class triple by hand: two classes, one
// relationship, and the linked group (class node, point node, aux edge).
func buildPromoted(t *testing.T) (*Snapshot, string, string, string) {
	t.Helper()
	s, a, b := twoClasses(t)
	s, relID, err := s.AddRelationship(a, b, diagram.Association)
	require.NoError(t, err)
	s, classID, err := s.AddNode(diagram.Node{Name: "Contract", Role: diagram.RoleAssociationClass})
	require.NoError(t, err)
	s, pointID, err := s.AddNode(diagram.Node{Role: diagram.RoleConnectionPoint})
	require.NoError(t, err)
	s, _, err = s.Insert(diagram.Relationship{
		Source:       classID,
		Target:       pointID,
		SourceHandle: diagram.HandleBottomCenter,
		Kind:         diagram.AssociationClassConnection,
	})
	require.NoError(t, err)
	s, err = s.SetAssociationClass(relID, diagram.AssociationClassLink{
		Has: true, ClassID: classID, PointID: pointID,
	})
	require.NoError(t, err)
	return s, a, relID, classID
}

func TestRemoveNodeCascadesTriple(t *testing.T) {
	t.Parallel()

	s, a, _, _ := buildPromoted(t)
	require.Equal(t, 4, s.NodeCount())
	require.Equal(t, 2, s.RelationshipCount())

	s2 := s.RemoveNodes(a)

	// Deleting either original node removes the node itself, the
	// association-class node and its connection point, plus the owning
	// relationship and the auxiliary edge.
	assert.Equal(t, 1, s2.NodeCount())
	assert.Equal(t, 0, s2.RelationshipCount())
}

func TestRemoveRelationshipCascadesTriple(t *testing.T) {
	t.Parallel()

	s, _, relID, _ := buildPromoted(t)
	s2 := s.RemoveRelationships(relID)

	assert.Equal(t, 2, s2.NodeCount())
	assert.Equal(t, 0, s2.RelationshipCount())
}

func TestRemoveAuxiliaryNodeDissolvesGroup(t *testing.T) {
	t.Parallel()

	s, _, relID, classID := buildPromoted(t)
	s2 := s.RemoveNodes(classID)

	// The owning relationship survives with its linkage cleared.
	r, ok := s2.Relationship(relID)
	require.True(t, ok)
	assert.False(t, r.AssociationClass.Has)
	assert.Equal(t, 2, s2.NodeCount())
	assert.Equal(t, 1, s2.RelationshipCount())
}

func TestDuplicateNodes(t *testing.T) {
	t.Parallel()

	s, a, b := twoClasses(t)
	s, relID, err := s.AddRelationship(a, b, diagram.Composition)
	require.NoError(t, err)

	s2, idMap := s.DuplicateNodes(a, b)

	assert.Len(t, idMap, 2)
	assert.Equal(t, 4, s2.NodeCount())
	assert.Equal(t, 2, s2.RelationshipCount())

	orig, _ := s.Node(a)
	dup, ok := s2.Node(idMap[a])
	require.True(t, ok)
	assert.Equal(t, orig.Position.X+50, dup.Position.X)
	assert.Equal(t, orig.Position.Y+50, dup.Position.Y)
	assert.Equal(t, orig.Name+"_copy", dup.Name)

	// The cloned relationship is remapped, not shared.
	for _, r := range s2.Relationships() {
		if r.ID == relID {
			continue
		}
		assert.Equal(t, idMap[a], r.Source)
		assert.Equal(t, idMap[b], r.Target)
		assert.Equal(t, diagram.Composition, r.Kind)
	}
}

func TestDuplicateSkipsTriples(t *testing.T) {
	t.Parallel()

	s, a, _, classID := buildPromoted(t)
	var pointID string
	for _, n := range s.Nodes() {
		if n.Role == diagram.RoleConnectionPoint {
			pointID = n.ID
		}
	}

	_, idMap := s.DuplicateNodes(a, classID, pointID)

	// Only the ordinary node is cloned; auxiliary members never are.
	assert.Len(t, idMap, 1)
	assert.Contains(t, idMap, a)
}

func TestMutateNode(t *testing.T) {
	t.Parallel()

	s, a, _ := twoClasses(t)

	name := "Client"
	attrs := []string{"+ nombre: string"}
	pos := diagram.Position{X: 10, Y: 20}
	s2, err := s.MutateNode(a, diagram.NodePatch{Name: &name, Attributes: &attrs, Position: &pos})
	require.NoError(t, err)

	n, _ := s2.Node(a)
	assert.Equal(t, "Client", n.Name)
	assert.Equal(t, attrs, n.Attributes)
	assert.Equal(t, pos, n.Position)

	// Original snapshot unchanged.
	old, _ := s.Node(a)
	assert.Equal(t, "Customer", old.Name)

	_, err = s.MutateNode("missing", diagram.NodePatch{Name: &name})
	assert.True(t, classflow.IsNotFound(err))
}

func TestMutateConnectionPointRejected(t *testing.T) {
	t.Parallel()

	s := diagram.New()
	s, id, err := s.AddNode(diagram.Node{Role: diagram.RoleConnectionPoint})
	require.NoError(t, err)

	pos := diagram.Position{X: 1, Y: 1}
	_, err = s.MutateNode(id, diagram.NodePatch{Position: &pos})
	assert.ErrorIs(t, err, diagram.ErrConnectionPointOwned)

	s2, err := s.RelocateConnectionPoint(id, pos)
	require.NoError(t, err)
	n, _ := s2.Node(id)
	assert.Equal(t, pos, n.Position)
}

func TestMutateRelationship(t *testing.T) {
	t.Parallel()

	s, a, b := twoClasses(t)
	s, relID, err := s.AddRelationship(a, b, diagram.Association)
	require.NoError(t, err)

	kind := diagram.Generalization
	start := diagram.MultOne
	end := diagram.MultZeroMany
	s2, err := s.MutateRelationship(relID, diagram.RelationshipPatch{
		Kind: &kind, StartLabel: &start, EndLabel: &end,
	})
	require.NoError(t, err)

	r, _ := s2.Relationship(relID)
	assert.Equal(t, diagram.Generalization, r.Kind)
	assert.Equal(t, diagram.MultOne, r.StartLabel)
	assert.Equal(t, diagram.MultZeroMany, r.EndLabel)

	bad := diagram.Multiplicity("2..3")
	_, err = s.MutateRelationship(relID, diagram.RelationshipPatch{StartLabel: &bad})
	assert.Error(t, err)
}

func TestValidateReportsBrokenReferences(t *testing.T) {
	t.Parallel()

	s, err := diagram.FromParts(
		[]diagram.Node{{ID: "n1", Name: "A", Role: diagram.RoleOrdinary}},
		[]diagram.Relationship{{ID: "e1", Source: "n1", Target: "ghost", Kind: diagram.Association}},
	)
	require.NoError(t, err)

	errs := s.Validate()
	require.Len(t, errs, 1)
	assert.True(t, classflow.IsInvalidEndpoint(errs[0]))

	var broken *classflow.BrokenReferenceError
	require.ErrorAs(t, errs[0], &broken)
	assert.Equal(t, "e1", broken.Relationship)
	assert.Equal(t, "ghost", broken.Endpoint)
}

func TestFromPartsRejectsDuplicateIDs(t *testing.T) {
	t.Parallel()

	_, err := diagram.FromParts(
		[]diagram.Node{{ID: "n1"}, {ID: "n1"}},
		nil,
	)
	assert.Error(t, err)
}
