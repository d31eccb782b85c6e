package pgx

import (
	"context"
	"fmt"
	"time"

	"github.com/dw-outreach/outreach/backend/pkg/store"
)

const snapshotColumns = `id, status, client_ids, ring_count, spoke_count, object_key, error, created_at, updated_at`

func scanSnapshot(row interface{ Scan(...any) error }) (store.Snapshot, error) {
	var snap store.Snapshot
	var status string
	var clients []byte
	var rings, spokes int32
	err := row.Scan(&snap.ID, &status, &clients, &rings, &spokes,
		&snap.ObjectKey, &snap.Error, &snap.CreatedAt, &snap.UpdatedAt)
	if err != nil {
		return store.Snapshot{}, err
	}
	snap.Status = store.SnapshotStatus(status)
	snap.RingCount = int(rings)
	snap.SpokeCount = int(spokes)
	snap.ActiveClients, err = store.DecodeClientIDs(clients)
	if err != nil {
		return store.Snapshot{}, err
	}
	return snap, nil
}

func (s *NetworkDBStorage) CreateSnapshot(ctx context.Context, snap store.Snapshot) (store.Snapshot, error) {
	clients, err := store.EncodeClientIDs(snap.ActiveClients)
	if err != nil {
		return store.Snapshot{}, err
	}
	row := s.conn.QueryRow(ctx, `
		INSERT INTO dw_network_snapshots (id, status, client_ids, ring_count, spoke_count)
		VALUES ($1, $2, $3::jsonb, $4, $5)
		RETURNING `+snapshotColumns,
		snap.ID, string(store.SnapshotPending), clients, snap.RingCount, snap.SpokeCount)
	created, err := scanSnapshot(row)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return created, nil
}

func (s *NetworkDBStorage) GetSnapshot(ctx context.Context, id string) (store.Snapshot, error) {
	snap, err := scanSnapshot(s.conn.QueryRow(ctx,
		`SELECT `+snapshotColumns+` FROM dw_network_snapshots WHERE id = $1`, id))
	if isNoRows(err) {
		return store.Snapshot{}, store.ErrNotFound
	}
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return snap, nil
}

// ClaimSnapshot flips pending (or abandoned rendering) to rendering
// atomically, so a redelivered message never renders the same snapshot twice
// while its lease holds.
func (s *NetworkDBStorage) ClaimSnapshot(ctx context.Context, id string, lease time.Duration) (store.Snapshot, bool, error) {
	snap, err := scanSnapshot(s.conn.QueryRow(ctx, `
		UPDATE dw_network_snapshots SET status = $2, updated_at = now()
		WHERE id = $1 AND (status = $3 OR (status = $2 AND updated_at < $4))
		RETURNING `+snapshotColumns,
		id, string(store.SnapshotRendering), string(store.SnapshotPending),
		store.ClaimCutoff(time.Now().UTC(), lease)))
	if err == nil {
		return snap, true, nil
	}
	if !isNoRows(err) {
		return store.Snapshot{}, false, fmt.Errorf("failed to claim snapshot: %w", err)
	}
	current, err := s.GetSnapshot(ctx, id)
	if err != nil {
		return store.Snapshot{}, false, err
	}
	return current, false, nil
}

func (s *NetworkDBStorage) CompleteSnapshot(ctx context.Context, id, objectKey string) error {
	return s.updateSnapshot(ctx,
		`UPDATE dw_network_snapshots SET status = $2, object_key = $3, updated_at = now() WHERE id = $1`,
		id, string(store.SnapshotCompleted), objectKey)
}

func (s *NetworkDBStorage) FailSnapshot(ctx context.Context, id, reason string) error {
	return s.updateSnapshot(ctx,
		`UPDATE dw_network_snapshots SET status = $2, error = $3, updated_at = now() WHERE id = $1`,
		id, string(store.SnapshotFailed), reason)
}

func (s *NetworkDBStorage) ReleaseSnapshot(ctx context.Context, id, reason string) error {
	return s.updateSnapshot(ctx,
		`UPDATE dw_network_snapshots SET status = $2, error = $3, updated_at = now() WHERE id = $1 AND status = $4`,
		id, string(store.SnapshotPending), reason, string(store.SnapshotRendering))
}

func (s *NetworkDBStorage) updateSnapshot(ctx context.Context, sql string, args ...any) error {
	tag, err := s.conn.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to update snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
