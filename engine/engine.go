// Package engine mutates a diagram snapshot while preserving its
// invariants: connection validation under a configurable policy,
// association-class promotion, and reconciliation of the derived
// connection-point geometry when endpoint nodes move.
package engine

import (
	"log/slog"

	"github.com/classflow/classflow"
	"github.com/classflow/classflow/diagram"
)

// Policy controls connection validation for one calling surface.
type Policy struct {
	// AllowSelfLoops permits recursive relationships on a single class.
	// The default (strict) policy rejects them with SelfConnection.
	AllowSelfLoops bool
}

// Engine applies invariant-preserving mutations to snapshots. An Engine is
// pure and synchronous; it never suspends and holds no diagram state.
type Engine struct {
	policy Policy
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithPolicy sets the connection policy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) error {
		e.policy = p
		return nil
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) error {
		if l != nil {
			e.logger = l
		}
		return nil
	}
}

// New returns an Engine with the strict default policy.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// ConnectRequest describes an attempted connection between two nodes.
// Zero fields take defaults: kind Association, handles right-center to
// left-center, multiplicities unset.
type ConnectRequest struct {
	Source       string
	Target       string
	SourceHandle diagram.Handle
	TargetHandle diagram.Handle
	Kind         diagram.Kind
	StartLabel   diagram.Multiplicity
	EndLabel     diagram.Multiplicity
	Label        string
}

// Connect validates the request against the engine policy and inserts the
// relationship. If either endpoint is a note node the created relationship
// is forced to NoteConnection regardless of the requested kind. Note links
// are allowed in parallel with a domain relationship; any other kind is
// rejected for an already-connected pair.
func (e *Engine) Connect(s *diagram.Snapshot, req ConnectRequest) (*diagram.Snapshot, string, error) {
	src, ok := s.Node(req.Source)
	if !ok {
		return nil, "", classflow.NewConnectionError(req.Source, req.Target, classflow.ErrInvalidEndpoint, "unknown source node")
	}
	dst, ok := s.Node(req.Target)
	if !ok {
		return nil, "", classflow.NewConnectionError(req.Source, req.Target, classflow.ErrInvalidEndpoint, "unknown target node")
	}
	if req.Source == req.Target && !e.policy.AllowSelfLoops {
		return nil, "", classflow.NewConnectionError(req.Source, req.Target, classflow.ErrSelfConnection, "self loops are disallowed by policy")
	}

	kind := req.Kind
	if kind == "" {
		kind = diagram.Association
	}
	if src.Role == diagram.RoleNote || dst.Role == diagram.RoleNote {
		kind = diagram.NoteConnection
	}
	if kind != diagram.NoteConnection && s.HasDomainRelationship(req.Source, req.Target) {
		return nil, "", classflow.NewConnectionError(req.Source, req.Target, classflow.ErrDuplicateRelationship, "pair already connected")
	}

	sourceHandle := req.SourceHandle
	if sourceHandle == "" {
		sourceHandle = diagram.HandleRightCenter
	}
	targetHandle := req.TargetHandle
	if targetHandle == "" {
		targetHandle = diagram.HandleLeftCenter
	}

	return s.Insert(diagram.Relationship{
		Source:       req.Source,
		Target:       req.Target,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
		Kind:         kind,
		StartLabel:   req.StartLabel,
		EndLabel:     req.EndLabel,
		Label:        req.Label,
	})
}

// Disconnect removes relationships, cascading association-class triples.
func (e *Engine) Disconnect(s *diagram.Snapshot, ids ...string) *diagram.Snapshot {
	return s.RemoveRelationships(ids...)
}

// DeleteNodes removes nodes with the full cascade.
func (e *Engine) DeleteNodes(s *diagram.Snapshot, ids ...string) *diagram.Snapshot {
	return s.RemoveNodes(ids...)
}
