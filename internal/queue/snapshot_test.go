package queue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dw-outreach/outreach/backend/internal/config"
	"github.com/dw-outreach/outreach/backend/pkg/accessmap"
	"github.com/dw-outreach/outreach/backend/pkg/store"
	"github.com/dw-outreach/outreach/backend/pkg/store/memory"
)

type fakeUploader struct {
	failures int
	calls    int
	objects  map[string][]byte
	deleted  []string
}

func (f *fakeUploader) DeleteObject(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

func (f *fakeUploader) PutSnapshot(_ context.Context, id string, svg []byte) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("s3 unavailable")
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	key := "snapshots/" + id + ".svg"
	f.objects[key] = svg
	return key, nil
}

func seededStore(t *testing.T) (*memory.NetworkStorage, []string) {
	t.Helper()
	s := memory.New()
	_, err := s.ImportGraph(context.Background(), accessmap.Graph{
		Clients: []accessmap.Client{{ID: "c1", Name: "Acme"}, {ID: "c2", Name: "Globex"}},
		Entities: []accessmap.Entity{
			{ID: "A", Label: "Alice", Type: accessmap.EntityPerson},
			{ID: "B", Label: "Bain", Type: accessmap.EntityFirm},
		},
		Edges: []accessmap.Edge{{From: "A", To: "B", Clients: []string{"c1", "c2"}}},
	})
	if err != nil {
		t.Fatalf("ImportGraph: %v", err)
	}
	g, _ := s.GetGraph(context.Background())
	return s, accessmap.AllClientIDs(g)
}

func TestProcessSnapshotMessage(t *testing.T) {
	uploadBackoff = 0
	ctx := context.Background()
	s, clients := seededStore(t)
	if _, err := s.CreateSnapshot(ctx, store.Snapshot{ID: "snap1", ActiveClients: clients}); err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}
	up := &fakeUploader{failures: 1}
	deps := SnapshotDeps{Store: s, Objects: up, Layout: config.DefaultConfig().Layout}

	if err := ProcessSnapshotMessage(ctx, deps, []byte(`{"snapshot_id":"snap1"}`)); err != nil {
		t.Fatalf("ProcessSnapshotMessage: %v", err)
	}
	snap, _ := s.GetSnapshot(ctx, "snap1")
	if snap.Status != store.SnapshotCompleted || snap.ObjectKey != "snapshots/snap1.svg" {
		t.Fatalf("snapshot = %+v", snap)
	}
	svg := string(up.objects[snap.ObjectKey])
	if !strings.Contains(svg, "<svg") || !strings.Contains(svg, "Alice") {
		t.Fatalf("uploaded document does not look like the map: %.200s", svg)
	}

	// A redelivery must not render again.
	calls := up.calls
	if err := ProcessSnapshotMessage(ctx, deps, []byte(`{"snapshot_id":"snap1"}`)); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if up.calls != calls {
		t.Fatalf("redelivered message uploaded again")
	}
}

func TestProcessSnapshotMessage_UploadFailureReleases(t *testing.T) {
	uploadBackoff = 0
	ctx := context.Background()
	s, clients := seededStore(t)
	s.CreateSnapshot(ctx, store.Snapshot{ID: "snap1", ActiveClients: clients})
	deps := SnapshotDeps{Store: s, Objects: &fakeUploader{failures: uploadTries}, Layout: config.DefaultConfig().Layout}

	if err := ProcessSnapshotMessage(ctx, deps, []byte(`{"snapshot_id":"snap1"}`)); err == nil {
		t.Fatal("expected upload error")
	}
	snap, _ := s.GetSnapshot(ctx, "snap1")
	if snap.Status != store.SnapshotPending || snap.Error == "" {
		t.Fatalf("snapshot should be pending again with the cause, got %+v", snap)
	}

	FailSnapshotMessage(ctx, s, []byte(`{"snapshot_id":"snap1"}`), errors.New("gave up"))
	snap, _ = s.GetSnapshot(ctx, "snap1")
	if snap.Status != store.SnapshotFailed || snap.Error != "gave up" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

// flakyCompleteStore fails CompleteSnapshot the given number of times.
type flakyCompleteStore struct {
	*memory.NetworkStorage
	failures int
}

func (s *flakyCompleteStore) CompleteSnapshot(ctx context.Context, id, key string) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("db blip")
	}
	return s.NetworkStorage.CompleteSnapshot(ctx, id, key)
}

func TestProcessSnapshotMessage_CompleteFailureReleases(t *testing.T) {
	uploadBackoff = 0
	ctx := context.Background()
	mem, clients := seededStore(t)
	mem.CreateSnapshot(ctx, store.Snapshot{ID: "snap1", ActiveClients: clients})
	s := &flakyCompleteStore{NetworkStorage: mem, failures: 1}
	up := &fakeUploader{}
	deps := SnapshotDeps{Store: s, Objects: up, Layout: config.DefaultConfig().Layout}

	if err := ProcessSnapshotMessage(ctx, deps, []byte(`{"snapshot_id":"snap1"}`)); err == nil {
		t.Fatal("expected complete error")
	}
	snap, _ := s.GetSnapshot(ctx, "snap1")
	if snap.Status != store.SnapshotPending {
		t.Fatalf("snapshot should be pending again, got %+v", snap)
	}
	if len(up.deleted) != 1 || up.deleted[0] != "snapshots/snap1.svg" {
		t.Fatalf("orphaned upload not deleted: %v", up.deleted)
	}

	if err := ProcessSnapshotMessage(ctx, deps, []byte(`{"snapshot_id":"snap1"}`)); err != nil {
		t.Fatalf("retry: %v", err)
	}
	snap, _ = s.GetSnapshot(ctx, "snap1")
	if snap.Status != store.SnapshotCompleted || up.objects[snap.ObjectKey] == nil {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestProcessSnapshotMessage_AbandonedClaim(t *testing.T) {
	uploadBackoff = 0
	ctx := context.Background()
	s, clients := seededStore(t)
	s.CreateSnapshot(ctx, store.Snapshot{ID: "snap1", ActiveClients: clients})
	// a worker claimed it and died
	if _, ok, _ := s.ClaimSnapshot(ctx, "snap1", store.DefaultClaimLease); !ok {
		t.Fatal("claim failed")
	}
	up := &fakeUploader{}
	deps := SnapshotDeps{Store: s, Objects: up, Layout: config.DefaultConfig().Layout}

	if err := ProcessSnapshotMessage(ctx, deps, []byte(`{"snapshot_id":"snap1"}`)); err != nil {
		t.Fatalf("ProcessSnapshotMessage: %v", err)
	}
	if up.calls != 0 {
		t.Fatal("claim under a live lease was taken over")
	}

	time.Sleep(5 * time.Millisecond)
	deps.Lease = time.Millisecond
	if err := ProcessSnapshotMessage(ctx, deps, []byte(`{"snapshot_id":"snap1"}`)); err != nil {
		t.Fatalf("ProcessSnapshotMessage: %v", err)
	}
	if snap, _ := s.GetSnapshot(ctx, "snap1"); snap.Status != store.SnapshotCompleted {
		t.Fatalf("abandoned snapshot = %+v", snap)
	}
}

func TestProcessSnapshotMessage_BadInput(t *testing.T) {
	deps := SnapshotDeps{Store: memory.New(), Objects: &fakeUploader{}, Layout: config.DefaultConfig().Layout}
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "invalid json", body: `{`, wantErr: true},
		{name: "missing id", body: `{}`, wantErr: true},
		{name: "unknown snapshot", body: `{"snapshot_id":"gone"}`, wantErr: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ProcessSnapshotMessage(context.Background(), deps, []byte(tc.body))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
