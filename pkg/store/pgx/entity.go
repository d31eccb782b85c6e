package pgx

import (
	"context"
	"fmt"

	"github.com/dw-outreach/outreach/backend/pkg/accessmap"
	"github.com/dw-outreach/outreach/backend/pkg/logger"
	"github.com/dw-outreach/outreach/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
)

func (s *NetworkDBStorage) CreateClient(ctx context.Context, c accessmap.Client) (accessmap.Client, error) {
	c = store.NormalizeClient(c)
	var id int64
	err := s.conn.QueryRow(ctx,
		`INSERT INTO dw_network_clients (name, color) VALUES ($1, $2) RETURNING id`,
		c.Name, c.Color).Scan(&id)
	if err != nil {
		return accessmap.Client{}, fmt.Errorf("failed to insert client: %w", err)
	}
	c.ID = store.FormatID(id)
	return c, nil
}

func (s *NetworkDBStorage) CreateEntity(ctx context.Context, e accessmap.Entity) (accessmap.Entity, error) {
	e = store.NormalizeEntity(e)
	var id int64
	err := s.conn.QueryRow(ctx,
		`INSERT INTO dw_network_entities (label, entity_type, depth) VALUES ($1, $2, $3) RETURNING id`,
		e.Label, string(e.Type), e.Depth).Scan(&id)
	if err != nil {
		return accessmap.Entity{}, fmt.Errorf("failed to insert entity: %w", err)
	}
	e.ID = store.FormatID(id)
	return e, nil
}

// CreateEdge inserts the edge only when both endpoints exist, in a single
// statement.
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
	clients, err := store.EncodeClientIDs(e.Clients)
	if err != nil {
		return accessmap.Edge{}, err
	}

	var id int64
	err = s.conn.QueryRow(ctx, `
		INSERT INTO dw_network_edges (from_entity_id, to_entity_id, strength, client_ids)
		SELECT $1::bigint, $2::bigint, $3::float8, $4::jsonb
		WHERE (SELECT count(*) FROM dw_network_entities WHERE id IN ($1::bigint, $2::bigint))
			= (CASE WHEN $1::bigint = $2::bigint THEN 1 ELSE 2 END)
		RETURNING id`,
		from, to, e.Strength, clients).Scan(&id)
	if isNoRows(err) {
		return accessmap.Edge{}, fmt.Errorf("%w: %s-%s", store.ErrUnknownEntity, e.From, e.To)
	}
	if err != nil {
		return accessmap.Edge{}, fmt.Errorf("failed to insert edge: %w", err)
	}
	e.ID = store.FormatID(id)
	return e, nil
}

// ImportGraph writes g in one transaction, in batches of unnest inserts.
func (s *NetworkDBStorage) ImportGraph(ctx context.Context, g accessmap.Graph) (store.ImportResult, error) {
	if err := store.CheckImport(g); err != nil {
		return store.ImportResult{}, err
	}
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return store.ImportResult{}, fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	logger.Debug("[Store][Import] Importing network graph",
		"clients", len(g.Clients), "entities", len(g.Entities), "edges", len(g.Edges))

	clientIDs := make(map[string]string, len(g.Clients))
	err = store.ChunkRange(len(g.Clients), s.batchSize, func(start, end int) error {
		names := make([]string, 0, end-start)
		colors := make([]string, 0, end-start)
		for _, c := range g.Clients[start:end] {
			c = store.NormalizeClient(c)
			names = append(names, c.Name)
			colors = append(colors, c.Color)
		}
		ids, err := insertReturning(ctx, tx, `
			INSERT INTO dw_network_clients (name, color)
			SELECT name, color FROM unnest($1::text[], $2::text[]) WITH ORDINALITY AS t(name, color, ord)
			ORDER BY ord
			RETURNING id`, names, colors)
		if err != nil {
			return fmt.Errorf("failed to import clients: %w", err)
		}
		for i, c := range g.Clients[start:end] {
			clientIDs[c.ID] = store.FormatID(ids[i])
		}
		return nil
	})
	if err != nil {
		return store.ImportResult{}, err
	}

	entityIDs := make(map[string]int64, len(g.Entities))
	err = store.ChunkRange(len(g.Entities), s.batchSize, func(start, end int) error {
		labels := make([]string, 0, end-start)
		types := make([]string, 0, end-start)
		depths := make([]int32, 0, end-start)
		for _, e := range g.Entities[start:end] {
			e = store.NormalizeEntity(e)
			labels = append(labels, e.Label)
			types = append(types, string(e.Type))
			depths = append(depths, int32(e.Depth))
		}
		ids, err := insertReturning(ctx, tx, `
			INSERT INTO dw_network_entities (label, entity_type, depth)
			SELECT label, entity_type, depth
			FROM unnest($1::text[], $2::text[], $3::int[]) WITH ORDINALITY AS t(label, entity_type, depth, ord)
			ORDER BY ord
			RETURNING id`, labels, types, depths)
		if err != nil {
			return fmt.Errorf("failed to import entities: %w", err)
		}
		for i, e := range g.Entities[start:end] {
			entityIDs[e.ID] = ids[i]
		}
		return nil
	})
	if err != nil {
		return store.ImportResult{}, err
	}

	err = store.ChunkRange(len(g.Edges), s.batchSize, func(start, end int) error {
		froms := make([]int64, 0, end-start)
		tos := make([]int64, 0, end-start)
		strengths := make([]float64, 0, end-start)
		clients := make([]string, 0, end-start)
		for _, e := range g.Edges[start:end] {
			from, ok := entityIDs[e.From]
			if !ok {
				return fmt.Errorf("%w: from %q", store.ErrUnknownEntity, e.From)
			}
			to, ok := entityIDs[e.To]
			if !ok {
				return fmt.Errorf("%w: to %q", store.ErrUnknownEntity, e.To)
			}
			e.Clients = store.RemapClients(e.Clients, clientIDs)
			e = store.NormalizeEdge(e)
			encoded, err := store.EncodeClientIDs(e.Clients)
			if err != nil {
				return err
			}
			froms = append(froms, from)
			tos = append(tos, to)
			strengths = append(strengths, e.Strength)
			clients = append(clients, encoded)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO dw_network_edges (from_entity_id, to_entity_id, strength, client_ids)
			SELECT f, t, s, c::jsonb FROM unnest($1::bigint[], $2::bigint[], $3::float8[], $4::text[]) AS u(f, t, s, c)`,
			froms, tos, strengths, clients)
		if err != nil {
			return fmt.Errorf("failed to import edges: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.ImportResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return store.ImportResult{}, fmt.Errorf("failed to commit import: %w", err)
	}
	return store.ImportResult{
		Clients:  len(g.Clients),
		Entities: len(g.Entities),
		Edges:    len(g.Edges),
	}, nil
}

func insertReturning(ctx context.Context, tx pgxv5.Tx, sql string, args ...any) ([]int64, error) {
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgxv5.CollectRows(rows, pgxv5.RowTo[int64])
}
