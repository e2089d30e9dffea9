package engine

import (
	"fmt"

	"github.com/classflow/classflow"
	"github.com/classflow/classflow/diagram"
)

// Tolerance is the maximum drift, in canvas units, allowed between a stored
// connection-point position and its freshly computed route midpoint before
// reconciliation repositions it.
const Tolerance = 1.0

// Promotion identifies the three members created when a relationship is
// promoted to an association-class.
type Promotion struct {
	ClassID string
	PointID string
	EdgeID  string
}

// PromoteAssociationClass attaches an association-class to the relationship:
// one associationClass node centered on the midpoint of the two endpoint
// footprint centers, one connectionPoint node at that midpoint, and one
// AssociationClassConnection edge from the class's bottom handle to the
// point. The three are an atomic group owned by the relationship.
func (e *Engine) PromoteAssociationClass(s *diagram.Snapshot, relID, name string) (*diagram.Snapshot, Promotion, error) {
	rel, ok := s.Relationship(relID)
	if !ok {
		return nil, Promotion{}, classflow.NewNotFoundError("relationship", relID)
	}
	if rel.Kind.Auxiliary() {
		return nil, Promotion{}, fmt.Errorf("classflow: cannot promote auxiliary relationship %q", relID)
	}
	if rel.AssociationClass.Has {
		return nil, Promotion{}, fmt.Errorf("classflow: relationship %q already has an association class", relID)
	}
	src, ok := s.Node(rel.Source)
	if !ok {
		return nil, Promotion{}, classflow.NewConnectionError(rel.Source, rel.Target, classflow.ErrInvalidEndpoint, "unknown source node")
	}
	dst, ok := s.Node(rel.Target)
	if !ok {
		return nil, Promotion{}, classflow.NewConnectionError(rel.Source, rel.Target, classflow.ErrInvalidEndpoint, "unknown target node")
	}

	mid := diagram.Midpoint(src.Center(), dst.Center())
	if name == "" {
		name = "AssociationClass"
	}

	class := diagram.Node{Name: name, Role: diagram.RoleAssociationClass}
	fp := class.Footprint()
	class.Position = diagram.Position{X: mid.X - fp.Width/2, Y: mid.Y - fp.Height/2}

	s, classID, err := s.AddNode(class)
	if err != nil {
		return nil, Promotion{}, err
	}
	s, pointID, err := s.AddNode(diagram.Node{Role: diagram.RoleConnectionPoint, Position: mid})
	if err != nil {
		return nil, Promotion{}, err
	}
	s, edgeID, err := s.Insert(diagram.Relationship{
		Source:       classID,
		Target:       pointID,
		SourceHandle: diagram.HandleBottomCenter,
		Kind:         diagram.AssociationClassConnection,
	})
	if err != nil {
		return nil, Promotion{}, err
	}
	s, err = s.SetAssociationClass(relID, diagram.AssociationClassLink{
		Has:     true,
		ClassID: classID,
		PointID: pointID,
	})
	if err != nil {
		return nil, Promotion{}, err
	}
	return s, Promotion{ClassID: classID, PointID: pointID, EdgeID: edgeID}, nil
}

// ReconcileConnectionPoints recomputes the derived position of every
// connection point from the route midpoint between its relationship's
// endpoints, repositioning points that drifted beyond the tolerance. It is
// idempotent and runs after every batch of node-position changes. The
// returned count is the number of points moved.
func (e *Engine) ReconcileConnectionPoints(s *diagram.Snapshot) (*diagram.Snapshot, int) {
	moved := 0
	for _, rel := range s.Relationships() {
		link := rel.AssociationClass
		if !link.Has {
			continue
		}
		src, okSrc := s.Node(rel.Source)
		dst, okDst := s.Node(rel.Target)
		point, okPoint := s.Node(link.PointID)
		if !okSrc || !okDst || !okPoint {
			e.logger.Warn("skipping reconciliation of broken association-class group",
				"relationship", rel.ID)
			continue
		}
		want := diagram.RouteMidpoint(src, rel.SourceHandle, dst, rel.TargetHandle)
		if diagram.Within(point.Position, want, Tolerance) {
			continue
		}
		next, err := s.RelocateConnectionPoint(link.PointID, want)
		if err != nil {
			e.logger.Warn("cannot relocate connection point",
				"relationship", rel.ID, "point", link.PointID, "err", err)
			continue
		}
		s = next
		moved++
	}
	return s, moved
}
