// Package memory keeps the access network in process memory. It backs tests
// and the CLI when no database is configured.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dw-outreach/outreach/backend/pkg/accessmap"
	"github.com/dw-outreach/outreach/backend/pkg/store"
)

type NetworkStorage struct {
	mu        sync.RWMutex
	nextID    int64
	clients   []accessmap.Client
	entities  []accessmap.Entity
	edges     []accessmap.Edge
	snapshots map[string]store.Snapshot
}

var _ store.NetworkStore = (*NetworkStorage)(nil)

func New() *NetworkStorage {
	return &NetworkStorage{snapshots: map[string]store.Snapshot{}}
}

func (s *NetworkStorage) Close() error { return nil }

func (s *NetworkStorage) id() string {
	s.nextID++
	return store.FormatID(s.nextID)
}

func (s *NetworkStorage) GetGraph(ctx context.Context) (accessmap.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g := store.EmptyGraph()
	g.Clients = append(g.Clients, s.clients...)
	g.Entities = append(g.Entities, s.entities...)
	for _, e := range s.edges {
		e.Clients = slices.Clone(e.Clients)
		g.Edges = append(g.Edges, e)
	}
	return g, nil
}

func (s *NetworkStorage) CreateClient(ctx context.Context, c accessmap.Client) (accessmap.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c = store.NormalizeClient(c)
	c.ID = s.id()
	s.clients = append(s.clients, c)
	return c, nil
}

func (s *NetworkStorage) CreateEntity(ctx context.Context, e accessmap.Entity) (accessmap.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e = store.NormalizeEntity(e)
	e.ID = s.id()
	s.entities = append(s.entities, e)
	return e, nil
}

func (s *NetworkStorage) CreateEdge(ctx context.Context, e accessmap.Edge) (accessmap.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range []string{e.From, e.To} {
		if !s.hasEntity(id) {
			return accessmap.Edge{}, fmt.Errorf("%w: %q", store.ErrUnknownEntity, id)
		}
	}
	e = store.NormalizeEdge(e)
	e.ID = s.id()
	s.edges = append(s.edges, e)
	return e, nil
}

func (s *NetworkStorage) hasEntity(id string) bool {
	return slices.ContainsFunc(s.entities, func(e accessmap.Entity) bool { return e.ID == id })
}

// ImportGraph validates the whole graph before writing anything, so a failed
// import leaves the store untouched.
func (s *NetworkStorage) ImportGraph(ctx context.Context, g accessmap.Graph) (store.ImportResult, error) {
	if err := store.CheckImport(g); err != nil {
		return store.ImportResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	clientIDs := make(map[string]string, len(g.Clients))
	for _, c := range g.Clients {
		n := store.NormalizeClient(c)
		n.ID = s.id()
		clientIDs[c.ID] = n.ID
		s.clients = append(s.clients, n)
	}
	entityIDs := make(map[string]string, len(g.Entities))
	for _, e := range g.Entities {
		n := store.NormalizeEntity(e)
		n.ID = s.id()
		entityIDs[e.ID] = n.ID
		s.entities = append(s.entities, n)
	}
	for _, e := range g.Edges {
		e.From = entityIDs[e.From]
		e.To = entityIDs[e.To]
		e.Clients = store.RemapClients(e.Clients, clientIDs)
		e = store.NormalizeEdge(e)
		e.ID = s.id()
		s.edges = append(s.edges, e)
	}
	return store.ImportResult{
		Clients:  len(g.Clients),
		Entities: len(g.Entities),
		Edges:    len(g.Edges),
	}, nil
}

func (s *NetworkStorage) CreateSnapshot(ctx context.Context, snap store.Snapshot) (store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[snap.ID]; ok {
		return store.Snapshot{}, fmt.Errorf("snapshot %s already exists", snap.ID)
	}
	now := time.Now().UTC()
	snap.Status = store.SnapshotPending
	snap.ActiveClients = store.DedupeStrings(snap.ActiveClients)
	if snap.ActiveClients == nil {
		snap.ActiveClients = []string{}
	}
	snap.CreatedAt = now
	snap.UpdatedAt = now
	s.snapshots[snap.ID] = snap
	return snap, nil
}

func (s *NetworkStorage) GetSnapshot(ctx context.Context, id string) (store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[id]
	if !ok {
		return store.Snapshot{}, store.ErrNotFound
	}
	return snap, nil
}

func (s *NetworkStorage) ClaimSnapshot(ctx context.Context, id string, lease time.Duration) (store.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[id]
	if !ok {
		return store.Snapshot{}, false, store.ErrNotFound
	}
	now := time.Now().UTC()
	stale := snap.Status == store.SnapshotRendering && snap.UpdatedAt.Before(store.ClaimCutoff(now, lease))
	if snap.Status != store.SnapshotPending && !stale {
		return snap, false, nil
	}
	snap.Status = store.SnapshotRendering
	snap.UpdatedAt = now
	s.snapshots[id] = snap
	return snap, true, nil
}

func (s *NetworkStorage) CompleteSnapshot(ctx context.Context, id, objectKey string) error {
	return s.update(id, func(snap *store.Snapshot) bool {
		snap.Status = store.SnapshotCompleted
		snap.ObjectKey = objectKey
		return true
	})
}

func (s *NetworkStorage) FailSnapshot(ctx context.Context, id, reason string) error {
	return s.update(id, func(snap *store.Snapshot) bool {
		snap.Status = store.SnapshotFailed
		snap.Error = reason
		return true
	})
}

func (s *NetworkStorage) ReleaseSnapshot(ctx context.Context, id, reason string) error {
	return s.update(id, func(snap *store.Snapshot) bool {
		if snap.Status != store.SnapshotRendering {
			return false
		}
		snap.Status = store.SnapshotPending
		snap.Error = reason
		return true
	})
}

func (s *NetworkStorage) update(id string, fn func(*store.Snapshot) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[id]
	if !ok || !fn(&snap) {
		return store.ErrNotFound
	}
	snap.UpdatedAt = time.Now().UTC()
	s.snapshots[id] = snap
	return nil
}
