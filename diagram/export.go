package diagram

import (
	"encoding/json"
	"io"
	"time"
)

// DiagnosticExport is the JSON debugging/backup snapshot of a board,
// independent of the interchange format.
type DiagnosticExport struct {
	Nodes         []Node         `json:"nodes"`
	Relationships []Relationship `json:"relationships"`
	ExportedAt    time.Time      `json:"exportedAt"`
	BoardID       string         `json:"boardId"`
}

// NewDiagnosticExport captures a snapshot for diagnostic export.
func NewDiagnosticExport(s *Snapshot, boardID string, at time.Time) DiagnosticExport {
	return DiagnosticExport{
		Nodes:         s.Nodes(),
		Relationships: s.Relationships(),
		ExportedAt:    at.UTC(),
		BoardID:       boardID,
	}
}

// WriteTo writes the export as indented JSON.
func (d DiagnosticExport) WriteTo(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// ReadDiagnosticExport parses a diagnostic export and rebuilds the snapshot.
func ReadDiagnosticExport(r io.Reader) (*Snapshot, DiagnosticExport, error) {
	var d DiagnosticExport
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, DiagnosticExport{}, err
	}
	s, err := FromParts(d.Nodes, d.Relationships)
	if err != nil {
		return nil, DiagnosticExport{}, err
	}
	return s, d, nil
}
