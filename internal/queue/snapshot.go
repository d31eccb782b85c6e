package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dw-outreach/outreach/backend/internal/config"
	"github.com/dw-outreach/outreach/backend/internal/util"
	"github.com/dw-outreach/outreach/backend/pkg/accessmap"
	"github.com/dw-outreach/outreach/backend/pkg/accessmap/render"
	"github.com/dw-outreach/outreach/backend/pkg/logger"
	"github.com/dw-outreach/outreach/backend/pkg/store"
)

// GraphChangedTopic is published whenever clients, entities or edges are
// written.
const GraphChangedTopic = "network.graph.changed"

const (
	uploadTries = 3
	deleteTries = 2
)

var uploadBackoff = 500 * time.Millisecond

type SnapshotMsg struct {
	SnapshotID string `json:"snapshot_id"`
}

type GraphChangedMsg struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// SnapshotUploader stores a rendered snapshot and returns its object key.
// DeleteObject removes an upload whose snapshot could not be completed.
type SnapshotUploader interface {
	PutSnapshot(ctx context.Context, id string, svg []byte) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

func EnqueueSnapshot(ctx context.Context, ch Publisher, id string) error {
	data, err := json.Marshal(SnapshotMsg{SnapshotID: id})
	if err != nil {
		return err
	}
	return PublishFIFO(ctx, ch, SnapshotQueue, data)
}

func PublishGraphChanged(ctx context.Context, ch Publisher, kind string, count int) error {
	data, err := json.Marshal(GraphChangedMsg{Kind: kind, Count: count})
	if err != nil {
		return err
	}
	return PublishTopic(ctx, ch, GraphChangedTopic, data)
}

// SnapshotDeps is what the worker needs to render a snapshot.
type SnapshotDeps struct {
	Store   store.NetworkStore
	Objects SnapshotUploader
	Layout  config.LayoutConfig
	// Lease bounds how long a claim survives a dead worker. Zero means
	// store.DefaultClaimLease.
	Lease time.Duration
}

func (d SnapshotDeps) lease() time.Duration {
	if d.Lease <= 0 {
		return store.DefaultClaimLease
	}
	return d.Lease
}

// ProcessSnapshotMessage renders the snapshot named in body and uploads it.
// Snapshots claimed by a delivery whose lease still holds are skipped. Any
// failure after the claim hands the snapshot back to pending, so the retried
// message can render it.
func ProcessSnapshotMessage(ctx context.Context, deps SnapshotDeps, body []byte) error {
	var msg SnapshotMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("invalid snapshot message: %w", err)
	}
	if msg.SnapshotID == "" {
		return errors.New("snapshot message without id")
	}

	snap, ok, err := deps.Store.ClaimSnapshot(ctx, msg.SnapshotID, deps.lease())
	if errors.Is(err, store.ErrNotFound) {
		logger.Warn("[Snapshot] Snapshot does not exist, dropping message", "snapshot", msg.SnapshotID)
		return nil
	}
	if err != nil {
		return err
	}
	if !ok {
		logger.Debug("[Snapshot] Snapshot already claimed", "snapshot", snap.ID, "status", snap.Status)
		return nil
	}

	start := time.Now()
	key, err := renderAndUpload(ctx, deps, snap)
	if err != nil {
		release(ctx, deps.Store, snap.ID, err)
		return err
	}
	if err := deps.Store.CompleteSnapshot(ctx, snap.ID, key); err != nil {
		err = fmt.Errorf("failed to complete snapshot %s: %w", snap.ID, err)
		removeUpload(ctx, deps.Objects, key)
		release(ctx, deps.Store, snap.ID, err)
		return err
	}

	logger.Info("[Snapshot] Rendered snapshot", "snapshot", snap.ID, "key", key, "took", time.Since(start))
	return nil
}

func release(ctx context.Context, s store.NetworkStore, id string, cause error) {
	if err := s.ReleaseSnapshot(ctx, id, cause.Error()); err != nil {
		logger.Error("[Snapshot] Failed to release snapshot", "snapshot", id, "err", err)
	}
}

// removeUpload drops an object no snapshot row points at. A leftover object
// is overwritten by the next successful render.
func removeUpload(ctx context.Context, objects SnapshotUploader, key string) {
	err := util.RetryErrWithContext(ctx, deleteTries, uploadBackoff, func(ctx context.Context) error {
		return objects.DeleteObject(ctx, key)
	})
	if err != nil {
		logger.Warn("[Snapshot] Failed to delete orphaned upload", "key", key, "err", err)
	}
}

func renderAndUpload(ctx context.Context, deps SnapshotDeps, snap store.Snapshot) (string, error) {
	svg, err := RenderSnapshot(ctx, deps.Store, deps.Layout, snap)
	if err != nil {
		return "", err
	}

	key, err := util.RetryWithContext(ctx, uploadTries, uploadBackoff, func(ctx context.Context) (string, error) {
		return deps.Objects.PutSnapshot(ctx, snap.ID, svg)
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot %s: %w", snap.ID, err)
	}
	return key, nil
}

// RenderSnapshot draws the current graph with the snapshot's active clients
// and web dimensions.
func RenderSnapshot(ctx context.Context, s store.NetworkStore, layout config.LayoutConfig, snap store.Snapshot) ([]byte, error) {
	g, err := s.GetGraph(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	view := accessmap.BuildView(g, accessmap.ViewOptions{
		ActiveClients: snap.ActiveClients,
		Canvas:        layout.Canvas(snap.RingCount, snap.SpokeCount, 0, 0),
	})

	var buf bytes.Buffer
	err = render.SVG(&buf, view, render.Options{Title: "Access map " + snap.CreatedAt.Format("2006-01-02 15:04")})
	if err != nil {
		return nil, fmt.Errorf("failed to render snapshot %s: %w", snap.ID, err)
	}
	return buf.Bytes(), nil
}

// FailSnapshotMessage marks the snapshot named in body as failed. Used once
// a message has exhausted its retries.
func FailSnapshotMessage(ctx context.Context, s store.NetworkStore, body []byte, cause error) {
	var msg SnapshotMsg
	if err := json.Unmarshal(body, &msg); err != nil || msg.SnapshotID == "" {
		return
	}
	reason := "retries exhausted"
	if cause != nil {
		reason = cause.Error()
	}
	if err := s.FailSnapshot(ctx, msg.SnapshotID, reason); err != nil {
		logger.Error("[Snapshot] Failed to mark snapshot as failed", "snapshot", msg.SnapshotID, "err", err)
	}
}
