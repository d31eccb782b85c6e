package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/dw-outreach/outreach/backend/pkg/accessmap"
	"github.com/dw-outreach/outreach/backend/pkg/logger"
	"github.com/dw-outreach/outreach/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// NetworkDBStorage implements store.NetworkStore on PostgreSQL.
type NetworkDBStorage struct {
	conn      pgxIConn
	close     func()
	batchSize int
}

var _ store.NetworkStore = (*NetworkDBStorage)(nil)

type NetworkDBStorageOption func(*NetworkDBStorage)

// WithBatchSize bounds the rows written per statement during imports.
func WithBatchSize(n int) NetworkDBStorageOption {
	return func(s *NetworkDBStorage) {
		s.batchSize = n
	}
}

// NewNetworkDBStorageWithConnection wraps an existing connection or pool. The
// caller keeps ownership of conn; Close is a no-op.
func NewNetworkDBStorageWithConnection(conn pgxIConn, opts ...NetworkDBStorageOption) *NetworkDBStorage {
	s := &NetworkDBStorage{
		conn:      conn,
		close:     func() {},
		batchSize: store.ImportBatchSize,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Open connects a pool to url. Close releases it.
func Open(ctx context.Context, url string, opts ...NetworkDBStorageOption) (*NetworkDBStorage, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	s := NewNetworkDBStorageWithConnection(pool, opts...)
	s.close = pool.Close
	return s, nil
}

func (s *NetworkDBStorage) Close() error {
	s.close()
	return nil
}

// GetGraph loads the three network tables concurrently.
func (s *NetworkDBStorage) GetGraph(ctx context.Context) (accessmap.Graph, error) {
	g := store.EmptyGraph()

	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		rows, err := s.conn.Query(ectx, `SELECT id, name, color FROM dw_network_clients ORDER BY id`)
		if err != nil {
			return fmt.Errorf("failed to load clients: %w", err)
		}
		clients, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (accessmap.Client, error) {
			var id int64
			var c accessmap.Client
			err := row.Scan(&id, &c.Name, &c.Color)
			c.ID = store.FormatID(id)
			return c, err
		})
		if err != nil {
			return fmt.Errorf("failed to scan clients: %w", err)
		}
		g.Clients = append(g.Clients, clients...)
		return nil
	})
	eg.Go(func() error {
		rows, err := s.conn.Query(ectx, `SELECT id, label, entity_type, depth FROM dw_network_entities ORDER BY id`)
		if err != nil {
			return fmt.Errorf("failed to load entities: %w", err)
		}
		entities, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (accessmap.Entity, error) {
			var id int64
			var typ string
			var depth int32
			var e accessmap.Entity
			if err := row.Scan(&id, &e.Label, &typ, &depth); err != nil {
				return accessmap.Entity{}, err
			}
			e.ID = store.FormatID(id)
			e.Type = accessmap.EntityType(typ)
			e.Depth = int(depth)
			return e, nil
		})
		if err != nil {
			return fmt.Errorf("failed to scan entities: %w", err)
		}
		g.Entities = append(g.Entities, entities...)
		return nil
	})
	eg.Go(func() error {
		rows, err := s.conn.Query(ectx, `
			SELECT id, from_entity_id, to_entity_id, strength, client_ids
			FROM dw_network_edges ORDER BY id`)
		if err != nil {
			return fmt.Errorf("failed to load edges: %w", err)
		}
		edges, err := pgxv5.CollectRows(rows, scanEdge)
		if err != nil {
			return fmt.Errorf("failed to scan edges: %w", err)
		}
		g.Edges = append(g.Edges, edges...)
		return nil
	})
	if err := eg.Wait(); err != nil {
		return store.EmptyGraph(), err
	}

	logger.Debug("[Store] loaded network graph",
		"clients", len(g.Clients), "entities", len(g.Entities), "edges", len(g.Edges))
	return g, nil
}

func scanEdge(row pgxv5.CollectableRow) (accessmap.Edge, error) {
	var id, from, to int64
	var raw []byte
	var e accessmap.Edge
	if err := row.Scan(&id, &from, &to, &e.Strength, &raw); err != nil {
		return accessmap.Edge{}, err
	}
	clients, err := store.DecodeClientIDs(raw)
	if err != nil {
		return accessmap.Edge{}, err
	}
	e.ID = store.FormatID(id)
	e.From = store.FormatID(from)
	e.To = store.FormatID(to)
	e.Clients = clients
	return e, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgxv5.ErrNoRows)
}
