package board

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classflow/classflow"
)

// MemStore is an in-process Store with channel fanout. It backs tests and
// single-process sessions; cross-process boards use the sqlstore package.
type MemStore struct {
	mu         sync.Mutex
	boards     map[string]*memBoard
	replaceErr error
}

type memBoard struct {
	info    Info
	doc     Document
	subs    map[int]chan Document
	nextSub int
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{boards: map[string]*memBoard{}}
}

// FailReplaces makes every subsequent Replace fail with err. Passing nil
// restores normal operation. Used to exercise push-failure handling.
func (m *MemStore) FailReplaces(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceErr = err
}

// CreateBoard creates an empty board owned by host.
func (m *MemStore) CreateBoard(_ context.Context, description, host string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := "board-" + uuid.NewString()
	now := time.Now().UTC()
	m.boards[id] = &memBoard{
		info: Info{
			ID:           id,
			Description:  description,
			Host:         host,
			Participants: []string{host},
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		doc:  Document{Participants: []string{host}},
		subs: map[int]chan Document{},
	}
	return id, nil
}

// ListBoards returns the boards the identity participates in.
func (m *MemStore) ListBoards(_ context.Context, participant string) ([]Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Info
	for _, b := range m.boards {
		if slices.Contains(b.info.Participants, participant) {
			out = append(out, b.info)
		}
	}
	slices.SortFunc(out, func(a, b Info) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

// RenameBoard updates the board description.
func (m *MemStore) RenameBoard(_ context.Context, id, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return classflow.NewNotFoundError("board", id)
	}
	b.info.Description = description
	b.info.UpdatedAt = time.Now().UTC()
	return nil
}

// InviteParticipant appends an identity to the participant set if absent.
func (m *MemStore) InviteParticipant(_ context.Context, id, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return classflow.NewNotFoundError("board", id)
	}
	if slices.Contains(b.info.Participants, identity) {
		return nil
	}
	b.info.Participants = append(b.info.Participants, identity)
	b.doc.Participants = slices.Clone(b.info.Participants)
	b.broadcastLocked()
	return nil
}

// DeleteBoard removes the board and closes its subscriptions.
func (m *MemStore) DeleteBoard(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return classflow.NewNotFoundError("board", id)
	}
	for _, ch := range b.subs {
		close(ch)
	}
	delete(m.boards, id)
	return nil
}

// Load fetches the current document once.
func (m *MemStore) Load(_ context.Context, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return Document{}, classflow.NewNotFoundError("board", id)
	}
	return b.doc, nil
}

// Replace overwrites the selected fields wholesale; the last write
// processed here wins unconditionally.
func (m *MemStore) Replace(_ context.Context, id string, u Update, by string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replaceErr != nil {
		return m.replaceErr
	}
	b, ok := m.boards[id]
	if !ok {
		return classflow.NewNotFoundError("board", id)
	}
	if u.Nodes != nil {
		b.doc.Nodes = slices.Clone(*u.Nodes)
	}
	if u.Relationships != nil {
		b.doc.Relationships = slices.Clone(*u.Relationships)
	}
	if u.Participants != nil {
		b.doc.Participants = slices.Clone(*u.Participants)
		b.info.Participants = slices.Clone(*u.Participants)
	}
	if u.Presence != nil {
		b.doc.Presence = slices.Clone(*u.Presence)
	}
	b.doc.LastModified = at
	b.doc.LastModifiedBy = by
	b.broadcastLocked()
	return nil
}

// Watch opens a subscription delivering every subsequent document version.
func (m *MemStore) Watch(_ context.Context, id string) (<-chan Document, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return nil, nil, classflow.NewNotFoundError("board", id)
	}
	sub := b.nextSub
	b.nextSub++
	ch := make(chan Document, 16)
	b.subs[sub] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if cur, ok := m.boards[id]; ok {
			if c, ok := cur.subs[sub]; ok {
				delete(cur.subs, sub)
				close(c)
			}
		}
	}
	return ch, cancel, nil
}

// broadcastLocked fans the current document out to every subscriber.
// Slow subscribers lose intermediate versions, never the latest: a full
// buffer drops the oldest queued version first.
func (b *memBoard) broadcastLocked() {
	for _, ch := range b.subs {
		for {
			select {
			case ch <- b.doc:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}
