package diagram

import (
	"errors"
	"fmt"

	"github.com/classflow/classflow"
)

// ErrConnectionPointOwned is returned when a mutation targets a
// connection-point node. Connection points are owned by the relationship
// that created them and are repositioned only through reconciliation.
var ErrConnectionPointOwned = errors.New("classflow: connection point is owned by its relationship")

// Snapshot is the complete state of nodes and relationships at one instant.
// It is immutable: every mutating operation returns a new Snapshot and
// either applies as a whole or fails without effect. A Snapshot is the unit
// of synchronization and of codec and generation input.
type Snapshot struct {
	nodes []Node
	rels  []Relationship

	nodeIdx map[string]int
	relIdx  map[string]int
}

// New returns an empty snapshot.
func New() *Snapshot {
	return &Snapshot{nodeIdx: map[string]int{}, relIdx: map[string]int{}}
}

// FromParts builds a snapshot from node and relationship lists, for example
// the arrays delivered by the shared document store or an interchange
// import. Duplicate ids are rejected; broken endpoint references are
// accepted verbatim and surfaced by Validate.
func FromParts(nodes []Node, rels []Relationship) (*Snapshot, error) {
	s := New()
	for _, n := range nodes {
		if _, ok := s.nodeIdx[n.ID]; ok {
			return nil, fmt.Errorf("classflow: duplicate node id %q", n.ID)
		}
		s.nodeIdx[n.ID] = len(s.nodes)
		s.nodes = append(s.nodes, n)
	}
	for _, r := range rels {
		if _, ok := s.relIdx[r.ID]; ok {
			return nil, fmt.Errorf("classflow: duplicate relationship id %q", r.ID)
		}
		s.relIdx[r.ID] = len(s.rels)
		s.rels = append(s.rels, r)
	}
	return s, nil
}

// clone returns a deep copy sharing nothing with the receiver.
func (s *Snapshot) clone() *Snapshot {
	c := &Snapshot{
		nodes:   make([]Node, len(s.nodes)),
		rels:    make([]Relationship, len(s.rels)),
		nodeIdx: make(map[string]int, len(s.nodeIdx)),
		relIdx:  make(map[string]int, len(s.relIdx)),
	}
	copy(c.nodes, s.nodes)
	copy(c.rels, s.rels)
	for k, v := range s.nodeIdx {
		c.nodeIdx[k] = v
	}
	for k, v := range s.relIdx {
		c.relIdx[k] = v
	}
	return c
}

// Nodes returns a copy of the node list in insertion order.
func (s *Snapshot) Nodes() []Node {
	out := make([]Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Relationships returns a copy of the relationship list in insertion order.
func (s *Snapshot) Relationships() []Relationship {
	out := make([]Relationship, len(s.rels))
	copy(out, s.rels)
	return out
}

// Node returns the node with the given id.
func (s *Snapshot) Node(id string) (Node, bool) {
	i, ok := s.nodeIdx[id]
	if !ok {
		return Node{}, false
	}
	return s.nodes[i], true
}

// Relationship returns the relationship with the given id.
func (s *Snapshot) Relationship(id string) (Relationship, bool) {
	i, ok := s.relIdx[id]
	if !ok {
		return Relationship{}, false
	}
	return s.rels[i], true
}

// NodeCount returns the number of nodes.
func (s *Snapshot) NodeCount() int { return len(s.nodes) }

// RelationshipCount returns the number of relationships.
func (s *Snapshot) RelationshipCount() int { return len(s.rels) }

// HasDomainRelationship reports whether the undirected pair (a, b) already
// carries a relationship other than a note link.
func (s *Snapshot) HasDomainRelationship(a, b string) bool {
	for _, r := range s.rels {
		if r.Kind == NoteConnection {
			continue
		}
		if (r.Source == a && r.Target == b) || (r.Source == b && r.Target == a) {
			return true
		}
	}
	return false
}

// AddNode appends a node and returns the new snapshot and the node id.
// A missing id is minted, a missing role defaults to ordinary.
func (s *Snapshot) AddNode(n Node) (*Snapshot, string, error) {
	if n.Role == "" {
		n.Role = RoleOrdinary
	}
	if !n.Role.Valid() {
		return nil, "", fmt.Errorf("classflow: invalid node role %q", n.Role)
	}
	if n.ID == "" {
		n.ID = NewNodeID()
	}
	if _, ok := s.nodeIdx[n.ID]; ok {
		return nil, "", fmt.Errorf("classflow: duplicate node id %q", n.ID)
	}
	c := s.clone()
	c.nodeIdx[n.ID] = len(c.nodes)
	c.nodes = append(c.nodes, n)
	return c, n.ID, nil
}

// AddRelationship connects source to target under the default strict policy
// and returns the new snapshot and the relationship id. It fails with
// InvalidEndpoint if either id is unknown, with SelfConnection if
// source == target, and with DuplicateRelationship if the undirected pair
// already has a non-note relationship.
func (s *Snapshot) AddRelationship(source, target string, kind Kind) (*Snapshot, string, error) {
	if kind == "" {
		kind = Association
	}
	if _, ok := s.nodeIdx[source]; !ok {
		return nil, "", classflow.NewConnectionError(source, target, classflow.ErrInvalidEndpoint, "unknown source node")
	}
	if _, ok := s.nodeIdx[target]; !ok {
		return nil, "", classflow.NewConnectionError(source, target, classflow.ErrInvalidEndpoint, "unknown target node")
	}
	if source == target {
		return nil, "", classflow.NewConnectionError(source, target, classflow.ErrSelfConnection, "self loops are disallowed")
	}
	if kind != NoteConnection && s.HasDomainRelationship(source, target) {
		return nil, "", classflow.NewConnectionError(source, target, classflow.ErrDuplicateRelationship, "pair already connected")
	}
	return s.Insert(Relationship{
		Source:       source,
		Target:       target,
		SourceHandle: HandleRightCenter,
		TargetHandle: HandleLeftCenter,
		Kind:         kind,
	})
}

// Insert appends a fully-formed relationship after validating its endpoints
// and kind. Callers that need policy decisions (self loops, note forcing)
// build the relationship first and insert it here.
func (s *Snapshot) Insert(r Relationship) (*Snapshot, string, error) {
	if !r.Kind.Valid() {
		return nil, "", fmt.Errorf("classflow: invalid relationship kind %q", r.Kind)
	}
	if !r.StartLabel.Valid() || !r.EndLabel.Valid() {
		return nil, "", fmt.Errorf("classflow: invalid multiplicity on relationship %q", r.ID)
	}
	if _, ok := s.nodeIdx[r.Source]; !ok {
		return nil, "", classflow.NewConnectionError(r.Source, r.Target, classflow.ErrInvalidEndpoint, "unknown source node")
	}
	if _, ok := s.nodeIdx[r.Target]; !ok {
		return nil, "", classflow.NewConnectionError(r.Source, r.Target, classflow.ErrInvalidEndpoint, "unknown target node")
	}
	if r.ID == "" {
		r.ID = NewRelationshipID()
	}
	if _, ok := s.relIdx[r.ID]; ok {
		return nil, "", fmt.Errorf("classflow: duplicate relationship id %q", r.ID)
	}
	c := s.clone()
	c.relIdx[r.ID] = len(c.rels)
	c.rels = append(c.rels, r)
	return c, r.ID, nil
}

// RemoveNodes deletes the given nodes and cascades: every relationship
// touching a deleted node goes too, and every association-class triple whose
// owning relationship or auxiliary node was deleted is removed as one group.
func (s *Snapshot) RemoveNodes(ids ...string) *Snapshot {
	nodeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.nodeIdx[id]; ok {
			nodeSet[id] = true
		}
	}
	return s.removeCascade(nodeSet, map[string]bool{})
}

// RemoveRelationships deletes the given relationships, cascading to the
// association-class triple anchored on each deleted relationship.
func (s *Snapshot) RemoveRelationships(ids ...string) *Snapshot {
	relSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.relIdx[id]; ok {
			relSet[id] = true
		}
	}
	return s.removeCascade(map[string]bool{}, relSet)
}

// removeCascade expands the deletion sets to a fixpoint over the cascade
// rules, then rebuilds the snapshot in one pass. Association-class triples
// are treated as a linked group keyed by the owning relationship, so the
// group is removed together no matter which member was named.
func (s *Snapshot) removeCascade(nodeSet, relSet map[string]bool) *Snapshot {
	for changed := true; changed; {
		changed = false
		// A named auxiliary node takes its sibling with it.
		for _, r := range s.rels {
			if !r.AssociationClass.Has {
				continue
			}
			link := r.AssociationClass
			if nodeSet[link.ClassID] || nodeSet[link.PointID] || relSet[r.ID] {
				if !nodeSet[link.ClassID] {
					nodeSet[link.ClassID] = true
					changed = true
				}
				if !nodeSet[link.PointID] {
					nodeSet[link.PointID] = true
					changed = true
				}
			}
		}
		// Relationships lose their footing when an endpoint goes.
		for _, r := range s.rels {
			if relSet[r.ID] {
				continue
			}
			if nodeSet[r.Source] || nodeSet[r.Target] {
				relSet[r.ID] = true
				changed = true
			}
		}
		// A deleted auxiliary edge dissolves its whole group.
		for _, r := range s.rels {
			if r.Kind != AssociationClassConnection || !relSet[r.ID] {
				continue
			}
			for _, owner := range s.rels {
				link := owner.AssociationClass
				if link.Has && link.ClassID == r.Source && link.PointID == r.Target {
					if !nodeSet[link.ClassID] || !nodeSet[link.PointID] {
						nodeSet[link.ClassID] = true
						nodeSet[link.PointID] = true
						changed = true
					}
				}
			}
		}
	}

	c := New()
	for _, n := range s.nodes {
		if nodeSet[n.ID] {
			continue
		}
		c.nodeIdx[n.ID] = len(c.nodes)
		c.nodes = append(c.nodes, n)
	}
	for _, r := range s.rels {
		if relSet[r.ID] {
			continue
		}
		if link := r.AssociationClass; link.Has && (nodeSet[link.ClassID] || nodeSet[link.PointID]) {
			r.AssociationClass = AssociationClassLink{}
		}
		c.relIdx[r.ID] = len(c.rels)
		c.rels = append(c.rels, r)
	}
	return c
}

// DuplicateNodes clones the selected ordinary and note nodes with fresh ids
// and an offset position, along with every non-auxiliary relationship whose
// both endpoints are in the selection. Association-class triples are not
// duplicated. It returns the new snapshot and the old-id to new-id mapping.
func (s *Snapshot) DuplicateNodes(ids ...string) (*Snapshot, map[string]string) {
	const offset = 50

	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}

	idMap := make(map[string]string)
	c := s.clone()
	for _, n := range s.nodes {
		if !selected[n.ID] {
			continue
		}
		if n.Role != RoleOrdinary && n.Role != RoleNote {
			continue
		}
		dup := n
		dup.ID = NewNodeID()
		dup.Position.X += offset
		dup.Position.Y += offset
		if dup.Name != "" {
			dup.Name += "_copy"
		}
		idMap[n.ID] = dup.ID
		c.nodeIdx[dup.ID] = len(c.nodes)
		c.nodes = append(c.nodes, dup)
	}
	for _, r := range s.rels {
		if r.Kind == AssociationClassConnection {
			continue
		}
		src, okSrc := idMap[r.Source]
		dst, okDst := idMap[r.Target]
		if !okSrc || !okDst {
			continue
		}
		dup := r
		dup.ID = NewRelationshipID()
		dup.Source = src
		dup.Target = dst
		dup.Selected = false
		dup.AssociationClass = AssociationClassLink{}
		c.relIdx[dup.ID] = len(c.rels)
		c.rels = append(c.rels, dup)
	}
	return c, idMap
}

// NodePatch selects node fields to change. Nil fields are left as-is.
type NodePatch struct {
	Name       *string
	Attributes *[]string
	Methods    *[]string
	Position   *Position
}

// MutateNode applies a patch to a node. Connection-point nodes are rejected;
// their position is derived state maintained by reconciliation.
func (s *Snapshot) MutateNode(id string, patch NodePatch) (*Snapshot, error) {
	i, ok := s.nodeIdx[id]
	if !ok {
		return nil, classflow.NewNotFoundError("node", id)
	}
	if s.nodes[i].Role == RoleConnectionPoint {
		return nil, ErrConnectionPointOwned
	}
	c := s.clone()
	n := &c.nodes[i]
	if patch.Name != nil {
		n.Name = *patch.Name
	}
	if patch.Attributes != nil {
		n.Attributes = append([]string(nil), *patch.Attributes...)
	}
	if patch.Methods != nil {
		n.Methods = append([]string(nil), *patch.Methods...)
	}
	if patch.Position != nil {
		n.Position = *patch.Position
	}
	return c, nil
}

// RelocateConnectionPoint updates the derived position of a connection-point
// node. It is the only sanctioned way to move one; see MutateNode.
func (s *Snapshot) RelocateConnectionPoint(id string, pos Position) (*Snapshot, error) {
	i, ok := s.nodeIdx[id]
	if !ok {
		return nil, classflow.NewNotFoundError("node", id)
	}
	if s.nodes[i].Role != RoleConnectionPoint {
		return nil, fmt.Errorf("classflow: node %q is not a connection point", id)
	}
	c := s.clone()
	c.nodes[i].Position = pos
	return c, nil
}

// RelationshipPatch selects relationship fields to change.
type RelationshipPatch struct {
	Kind         *Kind
	StartLabel   *Multiplicity
	EndLabel     *Multiplicity
	Label        *string
	Selected     *bool
	SourceHandle *Handle
	TargetHandle *Handle
}

// MutateRelationship applies a patch to a relationship.
func (s *Snapshot) MutateRelationship(id string, patch RelationshipPatch) (*Snapshot, error) {
	i, ok := s.relIdx[id]
	if !ok {
		return nil, classflow.NewNotFoundError("relationship", id)
	}
	if patch.Kind != nil && !patch.Kind.Valid() {
		return nil, fmt.Errorf("classflow: invalid relationship kind %q", *patch.Kind)
	}
	if patch.StartLabel != nil && !patch.StartLabel.Valid() {
		return nil, fmt.Errorf("classflow: invalid multiplicity %q", *patch.StartLabel)
	}
	if patch.EndLabel != nil && !patch.EndLabel.Valid() {
		return nil, fmt.Errorf("classflow: invalid multiplicity %q", *patch.EndLabel)
	}
	if patch.SourceHandle != nil && !patch.SourceHandle.Valid() {
		return nil, fmt.Errorf("classflow: invalid handle %q", *patch.SourceHandle)
	}
	if patch.TargetHandle != nil && !patch.TargetHandle.Valid() {
		return nil, fmt.Errorf("classflow: invalid handle %q", *patch.TargetHandle)
	}
	c := s.clone()
	r := &c.rels[i]
	if patch.Kind != nil {
		r.Kind = *patch.Kind
	}
	if patch.StartLabel != nil {
		r.StartLabel = *patch.StartLabel
	}
	if patch.EndLabel != nil {
		r.EndLabel = *patch.EndLabel
	}
	if patch.Label != nil {
		r.Label = *patch.Label
	}
	if patch.Selected != nil {
		r.Selected = *patch.Selected
	}
	if patch.SourceHandle != nil {
		r.SourceHandle = *patch.SourceHandle
	}
	if patch.TargetHandle != nil {
		r.TargetHandle = *patch.TargetHandle
	}
	return c, nil
}

// SetAssociationClass marks a relationship with its association-class
// linkage. The engine uses it while building the auxiliary triple.
func (s *Snapshot) SetAssociationClass(id string, link AssociationClassLink) (*Snapshot, error) {
	i, ok := s.relIdx[id]
	if !ok {
		return nil, classflow.NewNotFoundError("relationship", id)
	}
	c := s.clone()
	c.rels[i].AssociationClass = link
	return c, nil
}

// Validate reports every broken invariant: relationship endpoints or
// association-class members that do not resolve to nodes. Broken references
// are reported, never silently dropped.
func (s *Snapshot) Validate() []error {
	var errs []error
	for _, r := range s.rels {
		if _, ok := s.nodeIdx[r.Source]; !ok {
			errs = append(errs, &classflow.BrokenReferenceError{Relationship: r.ID, Endpoint: r.Source})
		}
		if _, ok := s.nodeIdx[r.Target]; !ok {
			errs = append(errs, &classflow.BrokenReferenceError{Relationship: r.ID, Endpoint: r.Target})
		}
		if link := r.AssociationClass; link.Has {
			if _, ok := s.nodeIdx[link.ClassID]; !ok {
				errs = append(errs, &classflow.BrokenReferenceError{Relationship: r.ID, Endpoint: link.ClassID})
			}
			if _, ok := s.nodeIdx[link.PointID]; !ok {
				errs = append(errs, &classflow.BrokenReferenceError{Relationship: r.ID, Endpoint: link.PointID})
			}
		}
	}
	return errs
}
