package classflow_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classflow/classflow"
)

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := classflow.NewNotFoundError("node", "node-1")
		assert.Equal(t, "classflow: node not found (id=node-1)", err.Error())

		err = classflow.NewNotFoundError("relationship", "")
		assert.Equal(t, "classflow: relationship not found", err.Error())
	})

	t.Run("Is", func(t *testing.T) {
		err := classflow.NewNotFoundError("node", "node-2")
		assert.True(t, errors.Is(err, classflow.ErrNotFound))
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := classflow.NewNotFoundError("board", "board-1")
		assert.True(t, classflow.IsNotFound(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, classflow.IsNotFound(wrapped))

		// Sentinel error
		assert.True(t, classflow.IsNotFound(classflow.ErrNotFound))

		// Non-matching error
		assert.False(t, classflow.IsNotFound(errors.New("other error")))
		assert.False(t, classflow.IsNotFound(nil))
	})
}

func TestConnectionError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := classflow.NewConnectionError("node-a", "node-b", classflow.ErrSelfConnection, "self loops disabled")
		assert.Equal(t, "classflow: cannot connect node-a -> node-b: self loops disabled", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		err := classflow.NewConnectionError("node-a", "node-b", classflow.ErrInvalidEndpoint, "")
		assert.True(t, errors.Is(err, classflow.ErrInvalidEndpoint))
		assert.False(t, errors.Is(err, classflow.ErrSelfConnection))
	})

	t.Run("Predicates", func(t *testing.T) {
		assert.True(t, classflow.IsSelfConnection(
			classflow.NewConnectionError("a", "a", classflow.ErrSelfConnection, "")))
		assert.True(t, classflow.IsInvalidEndpoint(
			classflow.NewConnectionError("a", "ghost", classflow.ErrInvalidEndpoint, "")))
		assert.True(t, classflow.IsDuplicateRelationship(
			classflow.NewConnectionError("a", "b", classflow.ErrDuplicateRelationship, "")))
		assert.False(t, classflow.IsSelfConnection(nil))
	})
}

func TestParseError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := classflow.NewParseError("unexpected end of document", nil)
		assert.Equal(t, "classflow: parse error: unexpected end of document", err.Error())

		cause := errors.New("EOF")
		err = classflow.NewParseError("unexpected end of document", cause)
		assert.Equal(t, "classflow: parse error: unexpected end of document: EOF", err.Error())
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("IsParseError", func(t *testing.T) {
		err := classflow.NewParseError("bad token", nil)
		assert.True(t, classflow.IsParseError(err))
		assert.True(t, classflow.IsParseError(fmt.Errorf("decode: %w", err)))
		assert.True(t, classflow.IsParseError(classflow.ErrParse))
		assert.False(t, classflow.IsParseError(nil))
	})
}

func TestEmptyDiagramError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := classflow.NewEmptyDiagramError("model.xml")
		assert.Equal(t, "classflow: no classes found in model.xml", err.Error())

		err = classflow.NewEmptyDiagramError("")
		assert.Equal(t, "classflow: no classes found in document", err.Error())
	})

	t.Run("IsEmptyDiagram", func(t *testing.T) {
		err := classflow.NewEmptyDiagramError("model.xml")
		assert.True(t, classflow.IsEmptyDiagram(err))
		assert.True(t, classflow.IsEmptyDiagram(fmt.Errorf("import: %w", err)))
		assert.False(t, classflow.IsEmptyDiagram(errors.New("other")))
	})
}

func TestMemberError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := classflow.NewMemberError("Persona", "nombre string", "missing \":\" type separator")
		assert.Equal(t,
			`classflow: malformed member "nombre string" on class Persona: missing ":" type separator`,
			err.Error())
	})

	t.Run("IsMalformedMember", func(t *testing.T) {
		err := classflow.NewMemberError("Persona", "x", "empty type")
		assert.True(t, classflow.IsMalformedMember(err))
		assert.True(t, errors.Is(err, classflow.ErrMalformedMember))
		assert.False(t, classflow.IsMalformedMember(nil))
	})
}

func TestPushError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		cause := errors.New("backend offline")
		err := classflow.NewPushError("board-1", "nodes", cause)
		assert.Equal(t, "classflow: push nodes on board board-1: backend offline", err.Error())
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("IsSyncPushFailed", func(t *testing.T) {
		err := classflow.NewPushError("board-1", "relationships", errors.New("timeout"))
		assert.True(t, classflow.IsSyncPushFailed(err))
		assert.True(t, classflow.IsSyncPushFailed(fmt.Errorf("commit: %w", err)))
		assert.False(t, classflow.IsSyncPushFailed(errors.New("other")))
	})
}

func TestOracleError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := classflow.NewOracleError(classflow.ErrOracleUnavailable, "https://oracle", "status 503", nil)
		assert.Equal(t, "classflow: oracle https://oracle: status 503", err.Error())
	})

	t.Run("Predicates", func(t *testing.T) {
		unavailable := classflow.NewOracleError(classflow.ErrOracleUnavailable, "", "request failed", errors.New("dial"))
		assert.True(t, classflow.IsOracleUnavailable(unavailable))
		assert.False(t, classflow.IsOracleMalformedResponse(unavailable))

		malformed := classflow.NewOracleError(classflow.ErrOracleMalformedResponse, "", "missing field", nil)
		assert.True(t, classflow.IsOracleMalformedResponse(malformed))
		assert.False(t, classflow.IsOracleUnavailable(malformed))
	})
}

func TestAggregateError(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		assert.NoError(t, classflow.NewAggregateError())
		assert.NoError(t, classflow.NewAggregateError(nil, nil))
	})

	t.Run("Single", func(t *testing.T) {
		err := classflow.NewAggregateError(errors.New("only one"))
		require.Error(t, err)
		assert.Equal(t, "only one", err.Error())
	})

	t.Run("Multiple", func(t *testing.T) {
		err := classflow.NewAggregateError(errors.New("first"), nil, errors.New("second"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "classflow: multiple errors:")
		assert.Contains(t, err.Error(), "[1] first")
		assert.Contains(t, err.Error(), "[2] second")
	})
}
