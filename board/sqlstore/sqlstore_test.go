package sqlstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classflow/classflow"
	"github.com/classflow/classflow/board"
	"github.com/classflow/classflow/board/sqlstore"
	"github.com/classflow/classflow/diagram"
)

func newStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	s, err := sqlstore.Open(filepath.Join(t.TempDir(), "boards.db"),
		sqlstore.WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndLoadRoundTrip(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	id, err := s.CreateBoard(ctx, "billing model", "ana")
	require.NoError(t, err)

	nodes := []diagram.Node{{
		ID:         "n1",
		Name:       "Invoice",
		Attributes: []string{"+ total: float"},
		Position:   diagram.Position{X: 250, Y: 150},
		Role:       diagram.RoleOrdinary,
	}}
	rels := []diagram.Relationship{{
		ID:           "e1",
		Source:       "n1",
		Target:       "n1",
		SourceHandle: diagram.HandleRightCenter,
		TargetHandle: diagram.HandleLeftCenter,
		Kind:         diagram.Association,
	}}
	require.NoError(t, s.Replace(ctx, id,
		board.Update{Nodes: &nodes, Relationships: &rels}, "ana", time.Now().UTC()))

	doc, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, nodes, doc.Nodes)
	assert.Equal(t, rels, doc.Relationships)
	assert.Equal(t, []string{"ana"}, doc.Participants)
	assert.Equal(t, "ana", doc.LastModifiedBy)
}

func TestLoadUnknownBoard(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	_, err := s.Load(context.Background(), "board-missing")
	require.Error(t, err)
	assert.True(t, classflow.IsNotFound(err))
}

func TestListBoardsFiltersByParticipant(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	mine, err := s.CreateBoard(ctx, "mine", "ana")
	require.NoError(t, err)
	shared, err := s.CreateBoard(ctx, "shared", "ben")
	require.NoError(t, err)
	_, err = s.CreateBoard(ctx, "foreign", "carla")
	require.NoError(t, err)
	require.NoError(t, s.InviteParticipant(ctx, shared, "ana"))

	infos, err := s.ListBoards(ctx, "ana")
	require.NoError(t, err)
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		ids = append(ids, info.ID)
	}
	assert.ElementsMatch(t, []string{mine, shared}, ids)
}

func TestRenameAndDelete(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	id, err := s.CreateBoard(ctx, "draft", "ana")
	require.NoError(t, err)
	require.NoError(t, s.RenameBoard(ctx, id, "final"))

	infos, err := s.ListBoards(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "final", infos[0].Description)

	require.NoError(t, s.DeleteBoard(ctx, id))
	assert.True(t, classflow.IsNotFound(s.DeleteBoard(ctx, id)))
	assert.True(t, classflow.IsNotFound(s.RenameBoard(ctx, "board-missing", "x")))
}

func TestWatchDeliversWrites(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	id, err := s.CreateBoard(ctx, "watched", "ana")
	require.NoError(t, err)

	ch, cancel, err := s.Watch(ctx, id)
	require.NoError(t, err)
	defer cancel()

	nodes := []diagram.Node{{ID: "n1", Name: "Person", Role: diagram.RoleOrdinary}}
	require.NoError(t, s.Replace(ctx, id,
		board.Update{Nodes: &nodes}, "ben", time.Now().UTC()))

	select {
	case doc := <-ch:
		require.Len(t, doc.Nodes, 1)
		assert.Equal(t, "Person", doc.Nodes[0].Name)
		assert.Equal(t, "ben", doc.LastModifiedBy)
	case <-time.After(2 * time.Second):
		t.Fatal("watch delivered nothing")
	}
}

func TestAdapterOverSQLStore(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	id, err := s.CreateBoard(ctx, "cross process", "ana")
	require.NoError(t, err)

	a, err := board.Open(ctx, s, id, "ana")
	require.NoError(t, err)
	defer a.Close(ctx)

	snap, err := a.Snapshot()
	require.NoError(t, err)
	snap, _, err = snap.AddNode(diagram.Node{Name: "Order"})
	require.NoError(t, err)
	a.CommitDiagram(ctx, snap)

	require.Eventually(t, func() bool {
		doc, err := s.Load(ctx, id)
		return err == nil && len(doc.Nodes) == 1 && doc.Nodes[0].Name == "Order"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReplaceSurfacesDriverFailure(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))

	s, err := sqlstore.NewWithDB(db)
	require.NoError(t, err)
	defer s.Close()

	driverErr := errors.New("disk I/O error")
	mock.ExpectExec("UPDATE boards").WillReturnError(driverErr)

	nodes := []diagram.Node{{ID: "n1", Name: "Lost", Role: diagram.RoleOrdinary}}
	err = s.Replace(context.Background(), "board-1",
		board.Update{Nodes: &nodes}, "ana", time.Now().UTC())
	require.Error(t, err)
	assert.ErrorIs(t, err, driverErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}
