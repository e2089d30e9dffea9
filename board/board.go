// Package board reconciles local optimistic diagram state with a remote
// shared document. The contract is deliberately weak: every remote delivery
// replaces the corresponding local fields wholesale and the last write
// observed by the store wins. There is no field-level merge, no conflict
// detection, and no causal ordering between sessions.
package board

import (
	"context"
	"time"

	"github.com/classflow/classflow/diagram"
)

// Document is the keyed shared record for one board. The store only ever
// replaces entire top-level fields, never patches nested entries.
type Document struct {
	Nodes          []diagram.Node         `json:"nodes" msgpack:"nodes"`
	Relationships  []diagram.Relationship `json:"relationships" msgpack:"relationships"`
	Participants   []string               `json:"participants" msgpack:"participants"`
	Presence       []string               `json:"presence" msgpack:"presence"`
	LastModified   time.Time              `json:"lastModified" msgpack:"lastModified"`
	LastModifiedBy string                 `json:"lastModifiedBy" msgpack:"lastModifiedBy"`
}

// Snapshot rebuilds the diagram snapshot carried by the document.
func (d Document) Snapshot() (*diagram.Snapshot, error) {
	return diagram.FromParts(d.Nodes, d.Relationships)
}

// Update selects the top-level fields to replace. Nil fields are left
// untouched by the store.
type Update struct {
	Nodes         *[]diagram.Node
	Relationships *[]diagram.Relationship
	Participants  *[]string
	Presence      *[]string
}

// FieldNames lists the fields the update replaces, for logging.
func (u Update) FieldNames() []string {
	var names []string
	if u.Nodes != nil {
		names = append(names, "nodes")
	}
	if u.Relationships != nil {
		names = append(names, "relationships")
	}
	if u.Participants != nil {
		names = append(names, "participants")
	}
	if u.Presence != nil {
		names = append(names, "presence")
	}
	return names
}

// Info describes a board in listings.
type Info struct {
	ID           string    `json:"id"`
	Description  string    `json:"description"`
	Host         string    `json:"host"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Store is the shared document store consumed by the adapter. Writes
// replace whole fields unconditionally; the store keeps whichever write it
// processed last.
type Store interface {
	// CreateBoard creates an empty board owned by host and returns its id.
	CreateBoard(ctx context.Context, description, host string) (string, error)
	// ListBoards returns the boards the identity participates in.
	ListBoards(ctx context.Context, participant string) ([]Info, error)
	// RenameBoard updates a board's description.
	RenameBoard(ctx context.Context, id, description string) error
	// InviteParticipant appends an identity to the participant set if absent.
	InviteParticipant(ctx context.Context, id, identity string) error
	// DeleteBoard removes the board record.
	DeleteBoard(ctx context.Context, id string) error

	// Load fetches the current shared document once.
	Load(ctx context.Context, id string) (Document, error)
	// Replace overwrites the selected top-level fields, stamping the
	// modification time and acting identity.
	Replace(ctx context.Context, id string, u Update, by string, at time.Time) error
	// Watch opens a standing subscription delivering every subsequent
	// version of the document verbatim. The returned cancel function
	// closes the subscription and its channel.
	Watch(ctx context.Context, id string) (<-chan Document, func(), error)
}
