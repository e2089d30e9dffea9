package diagram_test

import (
	"fmt"
	"testing"

	"github.com/classflow/classflow/diagram"
)

func benchSnapshot(b *testing.B, n int) *diagram.Snapshot {
	b.Helper()
	s := diagram.New()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		var id string
		var err error
		s, id, err = s.AddNode(diagram.Node{
			Name:       fmt.Sprintf("Class%d", i),
			Attributes: []string{"+ a: string", "+ b: int"},
			Methods:    []string{"+ run(): void"},
		})
		if err != nil {
			b.Fatal(err)
		}
		ids = append(ids, id)
	}
	for i := 1; i < n; i++ {
		var err error
		s, _, err = s.AddRelationship(ids[i-1], ids[i], diagram.Association)
		if err != nil {
			b.Fatal(err)
		}
	}
	return s
}

func BenchmarkFootprint(b *testing.B) {
	n := diagram.Node{
		Name:       "Persona",
		Attributes: []string{"+ nombre: string", "+ edad: int"},
		Methods:    []string{"+ saludar(): void"},
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = n.Footprint()
	}
}

func BenchmarkAddRelationship(b *testing.B) {
	s := benchSnapshot(b, 100)
	nodes := s.Nodes()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, err := s.AddRelationship(nodes[0].ID, nodes[50].ID, diagram.NoteConnection)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRemoveNodesCascade(b *testing.B) {
	s := benchSnapshot(b, 100)
	target := s.Nodes()[50].ID
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.RemoveNodes(target)
	}
}
