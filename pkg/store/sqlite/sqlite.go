package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dw-outreach/outreach/backend/pkg/accessmap"
	"github.com/dw-outreach/outreach/backend/pkg/logger"
	"github.com/dw-outreach/outreach/backend/pkg/store"
	"github.com/dw-outreach/outreach/backend/pkg/store/migrations"

	_ "modernc.org/sqlite"
)

// NetworkDBStorage implements store.NetworkStore on a local SQLite file. It
// is the fallback used when no PostgreSQL URL is configured.
type NetworkDBStorage struct {
	db *sql.DB
}

var _ store.NetworkStore = (*NetworkDBStorage)(nil)

// Open opens (creating if needed) the database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*NetworkDBStorage, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one connection keeps :memory: databases alive and serialises writers
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if err := migrations.Up(db, migrations.SQLite); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("[Store] opened sqlite database", "path", path)
	return &NetworkDBStorage{db: db}, nil
}

func (s *NetworkDBStorage) Close() error {
	return s.db.Close()
}

func (s *NetworkDBStorage) GetGraph(ctx context.Context) (accessmap.Graph, error) {
	g := store.EmptyGraph()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, color FROM dw_network_clients ORDER BY id`)
	if err != nil {
		return store.EmptyGraph(), fmt.Errorf("failed to load clients: %w", err)
	}
	for rows.Next() {
		var id int64
		var c accessmap.Client
		if err := rows.Scan(&id, &c.Name, &c.Color); err != nil {
			rows.Close()
			return store.EmptyGraph(), fmt.Errorf("failed to scan client: %w", err)
		}
		c.ID = store.FormatID(id)
		g.Clients = append(g.Clients, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return store.EmptyGraph(), fmt.Errorf("failed to load clients: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT id, label, entity_type, depth FROM dw_network_entities ORDER BY id`)
	if err != nil {
		return store.EmptyGraph(), fmt.Errorf("failed to load entities: %w", err)
	}
	for rows.Next() {
		var id int64
		var typ string
		var e accessmap.Entity
		if err := rows.Scan(&id, &e.Label, &typ, &e.Depth); err != nil {
			rows.Close()
			return store.EmptyGraph(), fmt.Errorf("failed to scan entity: %w", err)
		}
		e.ID = store.FormatID(id)
		e.Type = accessmap.EntityType(typ)
		g.Entities = append(g.Entities, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return store.EmptyGraph(), fmt.Errorf("failed to load entities: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT id, from_entity_id, to_entity_id, strength, client_ids
		FROM dw_network_edges ORDER BY id`)
	if err != nil {
		return store.EmptyGraph(), fmt.Errorf("failed to load edges: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, from, to int64
		var raw string
		var e accessmap.Edge
		if err := rows.Scan(&id, &from, &to, &e.Strength, &raw); err != nil {
			return store.EmptyGraph(), fmt.Errorf("failed to scan edge: %w", err)
		}
		clients, err := store.DecodeClientIDs([]byte(raw))
		if err != nil {
			return store.EmptyGraph(), err
		}
		e.ID = store.FormatID(id)
		e.From = store.FormatID(from)
		e.To = store.FormatID(to)
		e.Clients = clients
		g.Edges = append(g.Edges, e)
	}
	if err := rows.Err(); err != nil {
		return store.EmptyGraph(), fmt.Errorf("failed to load edges: %w", err)
	}
	return g, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertClient(ctx context.Context, db execer, c accessmap.Client) (int64, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO dw_network_clients (name, color) VALUES (?, ?)`, c.Name, c.Color)
	if err != nil {
		return 0, fmt.Errorf("failed to insert client: %w", err)
	}
	return res.LastInsertId()
}

func insertEntity(ctx context.Context, db execer, e accessmap.Entity) (int64, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO dw_network_entities (label, entity_type, depth) VALUES (?, ?, ?)`,
		e.Label, string(e.Type), e.Depth)
	if err != nil {
		return 0, fmt.Errorf("failed to insert entity: %w", err)
	}
	return res.LastInsertId()
}

func insertEdge(ctx context.Context, db execer, from, to int64, e accessmap.Edge) (int64, error) {
	clients, err := store.EncodeClientIDs(e.Clients)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO dw_network_edges (from_entity_id, to_entity_id, strength, client_ids) VALUES (?, ?, ?, ?)`,
		from, to, e.Strength, clients)
	if err != nil {
		return 0, fmt.Errorf("failed to insert edge: %w", err)
	}
	return res.LastInsertId()
}

func entityExists(ctx context.Context, db execer, id int64) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM dw_network_entities WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up entity: %w", err)
	}
	return true, nil
}

func (s *NetworkDBStorage) CreateClient(ctx context.Context, c accessmap.Client) (accessmap.Client, error) {
	c = store.NormalizeClient(c)
	id, err := insertClient(ctx, s.db, c)
	if err != nil {
		return accessmap.Client{}, err
	}
	c.ID = store.FormatID(id)
	return c, nil
}

func (s *NetworkDBStorage) CreateEntity(ctx context.Context, e accessmap.Entity) (accessmap.Entity, error) {
	e = store.NormalizeEntity(e)
	id, err := insertEntity(ctx, s.db, e)
	if err != nil {
		return accessmap.Entity{}, err
	}
	e.ID = store.FormatID(id)
	return e, nil
}

func (s *NetworkDBStorage) CreateEdge(ctx context.Context, e accessmap.Edge) (accessmap.Edge, error) {
	e = store.NormalizeEdge(e)
	from, err := store.ParseID(e.From)
	if err != nil {
		return accessmap.Edge{}, fmt.Errorf("%w: from %q", store.ErrUnknownEntity, e.From)
	}
	to, err := store.ParseID(e.To)
	if err != nil {
		return accessmap.Edge{}, fmt.Errorf("%w: to %q", store.ErrUnknownEntity, e.To)
	}
	for _, id := range []int64{from, to} {
		ok, err := entityExists(ctx, s.db, id)
		if err != nil {
			return accessmap.Edge{}, err
		}
		if !ok {
			return accessmap.Edge{}, fmt.Errorf("%w: %d", store.ErrUnknownEntity, id)
		}
	}

	id, err := insertEdge(ctx, s.db, from, to, e)
	if err != nil {
		return accessmap.Edge{}, err
	}
	e.ID = store.FormatID(id)
	return e, nil
}

func (s *NetworkDBStorage) ImportGraph(ctx context.Context, g accessmap.Graph) (store.ImportResult, error) {
	if err := store.CheckImport(g); err != nil {
		return store.ImportResult{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.ImportResult{}, fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback()

	clientIDs := make(map[string]string, len(g.Clients))
	for _, c := range g.Clients {
		id, err := insertClient(ctx, tx, store.NormalizeClient(c))
		if err != nil {
			return store.ImportResult{}, err
		}
		clientIDs[c.ID] = store.FormatID(id)
	}

	entityIDs := make(map[string]int64, len(g.Entities))
	for _, e := range g.Entities {
		id, err := insertEntity(ctx, tx, store.NormalizeEntity(e))
		if err != nil {
			return store.ImportResult{}, err
		}
		entityIDs[e.ID] = id
	}

	for _, e := range g.Edges {
		from, ok := entityIDs[e.From]
		if !ok {
			return store.ImportResult{}, fmt.Errorf("%w: from %q", store.ErrUnknownEntity, e.From)
		}
		to, ok := entityIDs[e.To]
		if !ok {
			return store.ImportResult{}, fmt.Errorf("%w: to %q", store.ErrUnknownEntity, e.To)
		}
		e.Clients = store.RemapClients(e.Clients, clientIDs)
		if _, err := insertEdge(ctx, tx, from, to, store.NormalizeEdge(e)); err != nil {
			return store.ImportResult{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return store.ImportResult{}, fmt.Errorf("failed to commit import: %w", err)
	}
	return store.ImportResult{
		Clients:  len(g.Clients),
		Entities: len(g.Entities),
		Edges:    len(g.Edges),
	}, nil
}

func (s *NetworkDBStorage) CreateSnapshot(ctx context.Context, snap store.Snapshot) (store.Snapshot, error) {
	clients, err := store.EncodeClientIDs(snap.ActiveClients)
	if err != nil {
		return store.Snapshot{}, err
	}
	now := time.Now().UTC()
	snap.Status = store.SnapshotPending
	snap.CreatedAt = now
	snap.UpdatedAt = now
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dw_network_snapshots (id, status, client_ids, ring_count, spoke_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, string(snap.Status), clients, snap.RingCount, snap.SpokeCount, now, now)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	snap.ActiveClients = store.DedupeStrings(snap.ActiveClients)
	if snap.ActiveClients == nil {
		snap.ActiveClients = []string{}
	}
	return snap, nil
}

func (s *NetworkDBStorage) GetSnapshot(ctx context.Context, id string) (store.Snapshot, error) {
	var snap store.Snapshot
	var status, clients string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, status, client_ids, ring_count, spoke_count, object_key, error, created_at, updated_at
		FROM dw_network_snapshots WHERE id = ?`, id).
		Scan(&snap.ID, &status, &clients, &snap.RingCount, &snap.SpokeCount,
			&snap.ObjectKey, &snap.Error, &snap.CreatedAt, &snap.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Snapshot{}, store.ErrNotFound
	}
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	snap.Status = store.SnapshotStatus(status)
	snap.ActiveClients, err = store.DecodeClientIDs([]byte(clients))
	if err != nil {
		return store.Snapshot{}, err
	}
	return snap, nil
}

func (s *NetworkDBStorage) ClaimSnapshot(ctx context.Context, id string, lease time.Duration) (store.Snapshot, bool, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE dw_network_snapshots SET status = ?, updated_at = ?
		WHERE id = ? AND (status = ? OR (status = ? AND updated_at < ?))`,
		string(store.SnapshotRendering), now, id,
		string(store.SnapshotPending), string(store.SnapshotRendering), store.ClaimCutoff(now, lease))
	if err != nil {
		return store.Snapshot{}, false, fmt.Errorf("failed to claim snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Snapshot{}, false, fmt.Errorf("failed to claim snapshot: %w", err)
	}
	snap, err := s.GetSnapshot(ctx, id)
	if err != nil {
		return store.Snapshot{}, false, err
	}
	return snap, n == 1, nil
}

func (s *NetworkDBStorage) CompleteSnapshot(ctx context.Context, id, objectKey string) error {
	return s.updateSnapshot(ctx,
		`UPDATE dw_network_snapshots SET status = ?, object_key = ?, updated_at = ? WHERE id = ?`,
		string(store.SnapshotCompleted), objectKey, time.Now().UTC(), id)
}

func (s *NetworkDBStorage) FailSnapshot(ctx context.Context, id, reason string) error {
	return s.updateSnapshot(ctx,
		`UPDATE dw_network_snapshots SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(store.SnapshotFailed), reason, time.Now().UTC(), id)
}

func (s *NetworkDBStorage) ReleaseSnapshot(ctx context.Context, id, reason string) error {
	return s.updateSnapshot(ctx,
		`UPDATE dw_network_snapshots SET status = ?, error = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(store.SnapshotPending), reason, time.Now().UTC(), id, string(store.SnapshotRendering))
}

func (s *NetworkDBStorage) updateSnapshot(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update snapshot: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}
