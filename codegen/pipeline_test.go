package codegen_test

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classflow/classflow"
	"github.com/classflow/classflow/codegen"
	"github.com/classflow/classflow/diagram"
)

func personaDiagram(t *testing.T) *diagram.Snapshot {
	t.Helper()
	s := diagram.New()
	s, _, err := s.AddNode(diagram.Node{
		Name:       "Persona",
		Attributes: []string{"+ nombre: string"},
		Methods:    []string{"+ saludar(): void"},
	})
	require.NoError(t, err)
	return s
}

func TestGenerateEntitiesBlob(t *testing.T) {
	t.Parallel()
	out, warnings, err := codegen.New().GenerateEntities(personaDiagram(t))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Contains(t, out, "package entity")
	assert.Contains(t, out, "type Persona struct")
	assert.Contains(t, out, "nombre string")
	assert.Contains(t, out, "func (p *Persona) Saludar()")
	assert.Contains(t, out, "func (p *Persona) Nombre() string")
	assert.Contains(t, out, "func (p *Persona) SetNombre(v string)")
}

func TestGenerateEntitiesSkipsMalformedMembers(t *testing.T) {
	t.Parallel()
	s := diagram.New()
	s, _, err := s.AddNode(diagram.Node{
		Name:       "Pedido",
		Attributes: []string{"+ total: float", "esto no es un atributo"},
		Methods:    []string{"tampoco un metodo"},
	})
	require.NoError(t, err)

	out, warnings, err := codegen.New().GenerateEntities(s)
	require.NoError(t, err)
	assert.Contains(t, out, "total float64")
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "esto no es un atributo")
}

func TestGenerateEntitiesEmptyInput(t *testing.T) {
	t.Parallel()
	s := diagram.New()
	s, _, err := s.AddNode(diagram.Node{Name: "solo una nota", Role: diagram.RoleNote})
	require.NoError(t, err)

	_, _, err = codegen.New().GenerateEntities(s)
	require.Error(t, err)
	assert.True(t, classflow.IsEmptyDiagram(err))
}

func TestGenerateEntitiesTypeMapping(t *testing.T) {
	t.Parallel()
	s := diagram.New()
	s, _, err := s.AddNode(diagram.Node{
		Name: "Registro",
		Attributes: []string{
			"+ codigo: long",
			"+ activo: boolean",
			"+ creado: date",
			"+ rareza: misterio",
		},
	})
	require.NoError(t, err)

	out, _, err := codegen.New().GenerateEntities(s)
	require.NoError(t, err)
	assert.Contains(t, out, "codigo int64")
	assert.Contains(t, out, "activo bool")
	assert.Contains(t, out, "creado time.Time")
	assert.Contains(t, out, `"time"`)
	// Unknown types degrade to string instead of failing generation.
	assert.Contains(t, out, "rareza string")
}

func TestGenerateEntitiesRelationshipFields(t *testing.T) {
	t.Parallel()
	s := diagram.New()
	s, person, err := s.AddNode(diagram.Node{Name: "Persona"})
	require.NoError(t, err)
	s, account, err := s.AddNode(diagram.Node{Name: "Cuenta"})
	require.NoError(t, err)
	s, student, err := s.AddNode(diagram.Node{Name: "Estudiante"})
	require.NoError(t, err)

	s, relID, err := s.AddRelationship(person, account, diagram.Composition)
	require.NoError(t, err)
	many := diagram.MultZeroMany
	s, err = s.MutateRelationship(relID, diagram.RelationshipPatch{EndLabel: &many})
	require.NoError(t, err)
	s, _, err = s.AddRelationship(student, person, diagram.Generalization)
	require.NoError(t, err)

	out, _, err := codegen.New().GenerateEntities(s)
	require.NoError(t, err)
	assert.Contains(t, out, "cuentas []*Cuenta")
	// Generalization renders as an embedded parent struct.
	assert.Regexp(t, `type Estudiante struct \{\n\tPersona`, out)
}

func TestGenerateEntitiesCollisionFirstWins(t *testing.T) {
	t.Parallel()
	s := diagram.New()
	s, _, err := s.AddNode(diagram.Node{Name: "Cuenta Bancaria", Attributes: []string{"+ saldo: float"}})
	require.NoError(t, err)
	s, _, err = s.AddNode(diagram.Node{Name: "cuenta_bancaria", Attributes: []string{"+ otro: int"}})
	require.NoError(t, err)

	out, warnings, err := codegen.New().GenerateEntities(s)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "type CuentaBancaria struct"))
	assert.Contains(t, out, "saldo float64")
	assert.NotContains(t, out, "otro int")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "collides")
}

func TestGenerateFourLayers(t *testing.T) {
	t.Parallel()
	fs, warnings, err := codegen.New(codegen.WithPackageBase("example.com/banking")).
		Generate(context.Background(), personaDiagram(t))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, []string{
		"access/Persona.Repository.go",
		"entity/Persona.go",
		"interface/Persona.Handler.go",
		"logic/Persona.Service.go",
	}, fs.Paths())

	access, ok := fs.File("access/Persona.Repository.go")
	require.True(t, ok)
	assert.Contains(t, string(access), "type PersonaRepository interface")
	assert.Contains(t, string(access), `"example.com/banking/entity"`)

	logic, ok := fs.File("logic/Persona.Service.go")
	require.True(t, ok)
	assert.Contains(t, string(logic), "type PersonaService struct")

	handler, ok := fs.File("interface/Persona.Handler.go")
	require.True(t, ok)
	assert.Contains(t, string(handler), "type PersonaHandler struct")
	assert.Contains(t, string(handler), "type PersonaRequest struct")
	assert.Contains(t, string(handler), "type PersonaResponse struct")
}

func TestFileSetZip(t *testing.T) {
	t.Parallel()
	fs, _, err := codegen.New().Generate(context.Background(), personaDiagram(t))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, fs.Zip(&buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 4)
	names := make([]string, 0, 4)
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{
		"entity/Persona.go",
		"access/Persona.Repository.go",
		"logic/Persona.Service.go",
		"interface/Persona.Handler.go",
	}, names)
}

func TestGenerateEntitiesOperationAccessorCollision(t *testing.T) {
	t.Parallel()
	s := diagram.New()
	s, _, err := s.AddNode(diagram.Node{
		Name:       "Persona",
		Attributes: []string{"+ nombre: string"},
		Methods:    []string{"+ nombre(): string", "+ saludar(): void"},
	})
	require.NoError(t, err)

	out, warnings, err := codegen.New().GenerateEntities(s)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, ") Nombre()"))
	assert.Contains(t, out, "func (p *Persona) Saludar()")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "nombre()")
	assert.Contains(t, warnings[0], "already taken")
}
