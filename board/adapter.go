package board

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/classflow/classflow"
	"github.com/classflow/classflow/diagram"
)

// Adapter is the only authorized channel for externalizing or absorbing a
// session's diagram state. Local mutations apply immediately (optimistic)
// and the full changed fields are pushed asynchronously; remote deliveries
// replace local fields wholesale. A failed push is logged and local state
// is left as-is, an accepted inconsistency window rather than a fatal
// condition.
type Adapter struct {
	store    Store
	boardID  string
	identity string
	logger   *slog.Logger
	onRemote func(Document)
	onError  func(error)
	now      func() time.Time

	mu  sync.Mutex
	doc Document

	cancelWatch func()
	watchDone   chan struct{}
	pushes      sync.WaitGroup
	closed      bool
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter) error

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) AdapterOption {
	return func(a *Adapter) error {
		if l != nil {
			a.logger = l
		}
		return nil
	}
}

// WithOnRemote registers a callback invoked after each remote delivery has
// replaced local state. The callback runs on the subscription goroutine.
func WithOnRemote(fn func(Document)) AdapterOption {
	return func(a *Adapter) error {
		a.onRemote = fn
		return nil
	}
}

// WithOnPushError registers a callback for failed pushes, in addition to
// the log record. The callback receives a SyncPushFailed error.
func WithOnPushError(fn func(error)) AdapterOption {
	return func(a *Adapter) error {
		a.onError = fn
		return nil
	}
}

// WithClock overrides the modification-timestamp source.
func WithClock(now func() time.Time) AdapterOption {
	return func(a *Adapter) error {
		if now != nil {
			a.now = now
		}
		return nil
	}
}

// Open starts a session on the board: it fetches the current shared
// snapshot once and adopts it, opens the standing subscription, and joins
// the presence set. Close must be called when the session ends.
func Open(ctx context.Context, store Store, boardID, identity string, opts ...AdapterOption) (*Adapter, error) {
	a := &Adapter{
		store:    store,
		boardID:  boardID,
		identity: identity,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	doc, err := store.Load(ctx, boardID)
	if err != nil {
		return nil, err
	}
	a.doc = doc

	ch, cancel, err := store.Watch(ctx, boardID)
	if err != nil {
		return nil, err
	}
	a.cancelWatch = cancel
	a.watchDone = make(chan struct{})
	go a.consume(ch)

	if err := a.joinPresence(ctx); err != nil {
		a.logger.Warn("presence join failed", "board", boardID, "identity", identity, "err", err)
	}
	return a, nil
}

// consume replaces local fields with every remote delivery, verbatim.
func (a *Adapter) consume(ch <-chan Document) {
	defer close(a.watchDone)
	for doc := range ch {
		a.mu.Lock()
		a.doc = doc
		a.mu.Unlock()
		if a.onRemote != nil {
			a.onRemote(doc)
		}
	}
}

// Document returns the current local document.
func (a *Adapter) Document() Document {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.doc
}

// Snapshot rebuilds the local diagram snapshot.
func (a *Adapter) Snapshot() (*diagram.Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.doc.Snapshot()
}

// CommitDiagram adopts the snapshot locally and pushes the full nodes and
// relationships fields to the shared store.
func (a *Adapter) CommitDiagram(ctx context.Context, s *diagram.Snapshot) {
	nodes := s.Nodes()
	rels := s.Relationships()

	a.mu.Lock()
	a.doc.Nodes = nodes
	a.doc.Relationships = rels
	a.doc.LastModified = a.now()
	a.doc.LastModifiedBy = a.identity
	a.mu.Unlock()

	a.push(ctx, Update{Nodes: &nodes, Relationships: &rels})
}

// push replicates whole fields asynchronously. On failure local state is
// retained; the next mutation retries implicitly by pushing the full field
// again.
func (a *Adapter) push(ctx context.Context, u Update) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.pushes.Add(1)
	a.mu.Unlock()

	at := a.now()
	go func() {
		defer a.pushes.Done()
		if err := a.store.Replace(ctx, a.boardID, u, a.identity, at); err != nil {
			for _, field := range u.FieldNames() {
				pushErr := classflow.NewPushError(a.boardID, field, err)
				a.logger.Error("push failed, keeping local state",
					"board", a.boardID, "field", field, "err", err)
				if a.onError != nil {
					a.onError(pushErr)
				}
			}
		}
	}()
}

// joinPresence appends the local identity to the shared presence set if it
// is not already present.
func (a *Adapter) joinPresence(ctx context.Context) error {
	doc, err := a.store.Load(ctx, a.boardID)
	if err != nil {
		return err
	}
	if slices.Contains(doc.Presence, a.identity) {
		return nil
	}
	presence := append(doc.Presence, a.identity)
	a.mu.Lock()
	a.doc.Presence = presence
	a.mu.Unlock()
	return a.store.Replace(ctx, a.boardID, Update{Presence: &presence}, a.identity, a.now())
}

// leavePresence removes the local identity from the shared presence set.
func (a *Adapter) leavePresence(ctx context.Context) error {
	doc, err := a.store.Load(ctx, a.boardID)
	if err != nil {
		return err
	}
	presence := slices.DeleteFunc(slices.Clone(doc.Presence), func(id string) bool {
		return id == a.identity
	})
	return a.store.Replace(ctx, a.boardID, Update{Presence: &presence}, a.identity, a.now())
}

// Presence returns the identities currently observed on the board.
func (a *Adapter) Presence() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.doc.Presence)
}

// Participants returns the identities invited to the board.
func (a *Adapter) Participants() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.doc.Participants)
}

// Close leaves the presence set, closes the subscription, and waits for
// in-flight pushes to settle.
func (a *Adapter) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	err := a.leavePresence(ctx)
	if err != nil {
		a.logger.Warn("presence leave failed", "board", a.boardID, "err", err)
	}
	a.cancelWatch()
	<-a.watchDone
	a.pushes.Wait()
	return err
}
