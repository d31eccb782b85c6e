package memory

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dw-outreach/outreach/backend/pkg/accessmap"
	"github.com/dw-outreach/outreach/backend/pkg/store"
)

func TestCreateAndGetGraph(t *testing.T) {
	ctx := context.Background()
	s := New()

	c, _ := s.CreateClient(ctx, accessmap.Client{Name: " Acme "})
	a, _ := s.CreateEntity(ctx, accessmap.Entity{Label: "Alice"})
	b, _ := s.CreateEntity(ctx, accessmap.Entity{Label: "Bain", Type: "FIRM"})
	if c.Name != "Acme" || c.Color != store.DefaultClientColor {
		t.Fatalf("client not normalized: %+v", c)
	}
	if b.Type != accessmap.EntityFirm {
		t.Fatalf("entity type = %q", b.Type)
	}

	if _, err := s.CreateEdge(ctx, accessmap.Edge{From: a.ID, To: "nope"}); !errors.Is(err, store.ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
	edge, err := s.CreateEdge(ctx, accessmap.Edge{From: a.ID, To: b.ID, Clients: []string{c.ID}})
	if err != nil {
		t.Fatalf("CreateEdge: %v", err)
	}

	g, _ := s.GetGraph(ctx)
	if len(g.Clients) != 1 || len(g.Entities) != 2 || len(g.Edges) != 1 {
		t.Fatalf("unexpected graph %+v", g)
	}
	g.Edges[0].Clients[0] = "mutated"
	again, _ := s.GetGraph(ctx)
	if !reflect.DeepEqual(again.Edges[0].Clients, edge.Clients) {
		t.Fatalf("GetGraph leaked internal state: %v", again.Edges[0].Clients)
	}
}

func TestCreateClient_ColorFallback(t *testing.T) {
	ctx := context.Background()
	s := New()
	tests := []struct {
		color string
		want  string
	}{
		{"#abc", "#abc"},
		{" #00ff00 ", "#00ff00"},
		{"red", store.DefaultClientColor},
		{`#fff" onload="x`, store.DefaultClientColor},
	}
	for _, tc := range tests {
		c, err := s.CreateClient(ctx, accessmap.Client{Name: "Acme", Color: tc.color})
		if err != nil {
			t.Fatalf("CreateClient: %v", err)
		}
		if c.Color != tc.want {
			t.Errorf("color %q stored as %q, want %q", tc.color, c.Color, tc.want)
		}
	}

	if _, err := s.ImportGraph(ctx, accessmap.Graph{
		Clients: []accessmap.Client{{ID: "x", Name: "Evil", Color: "url(javascript:x)"}},
	}); err != nil {
		t.Fatalf("ImportGraph: %v", err)
	}
	g, _ := s.GetGraph(ctx)
	if last := g.Clients[len(g.Clients)-1]; last.Color != store.DefaultClientColor {
		t.Fatalf("imported color = %q", last.Color)
	}
}

func TestImportGraph_Atomic(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.ImportGraph(ctx, accessmap.Graph{
		Entities: []accessmap.Entity{{ID: "A", Label: "Alice"}},
		Edges:    []accessmap.Edge{{From: "A", To: "B"}},
	})
	if !errors.Is(err, store.ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
	if g, _ := s.GetGraph(ctx); len(g.Entities) != 0 {
		t.Fatalf("failed import wrote entities: %+v", g.Entities)
	}

	for _, bad := range []accessmap.Graph{
		{Entities: []accessmap.Entity{{ID: "A"}, {ID: "A"}}},
		{Clients: []accessmap.Client{{ID: "c", Name: "Acme"}, {ID: "c", Name: "Globex"}}},
	} {
		if _, err := s.ImportGraph(ctx, bad); !errors.Is(err, store.ErrDuplicateID) {
			t.Fatalf("expected ErrDuplicateID, got %v", err)
		}
	}
	if g, _ := s.GetGraph(ctx); len(g.Entities) != 0 || len(g.Clients) != 0 {
		t.Fatalf("rejected import wrote rows: %+v", g)
	}

	res, err := s.ImportGraph(ctx, accessmap.Graph{
		Clients:  []accessmap.Client{{ID: "c", Name: "Acme"}},
		Entities: []accessmap.Entity{{ID: "A", Label: "Alice"}, {ID: "B", Label: "Bain"}},
		Edges:    []accessmap.Edge{{From: "A", To: "B", Clients: []string{"c"}}},
	})
	if err != nil {
		t.Fatalf("ImportGraph: %v", err)
	}
	if res != (store.ImportResult{Clients: 1, Entities: 2, Edges: 1}) {
		t.Fatalf("ImportResult = %+v", res)
	}
	g, _ := s.GetGraph(ctx)
	if e := g.Edges[0]; e.From != g.Entities[0].ID || e.To != g.Entities[1].ID || e.Clients[0] != g.Clients[0].ID {
		t.Fatalf("import not remapped: %+v", e)
	}
}

func TestSnapshotLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.CreateSnapshot(ctx, store.Snapshot{ID: "s1", ActiveClients: []string{"1", "1"}}); err != nil {
		t.Fatalf("CreateSnapshot: %v", err)
	}
	if _, err := s.CreateSnapshot(ctx, store.Snapshot{ID: "s1"}); err == nil {
		t.Fatal("expected duplicate snapshot id to fail")
	}
	snap, ok, err := s.ClaimSnapshot(ctx, "s1", store.DefaultClaimLease)
	if err != nil || !ok || snap.Status != store.SnapshotRendering {
		t.Fatalf("claim = %+v %v %v", snap, ok, err)
	}
	if !reflect.DeepEqual(snap.ActiveClients, []string{"1"}) {
		t.Fatalf("clients = %v", snap.ActiveClients)
	}
	if _, ok, _ := s.ClaimSnapshot(ctx, "s1", store.DefaultClaimLease); ok {
		t.Fatal("claimed twice")
	}
	if err := s.ReleaseSnapshot(ctx, "s1", "retry"); err != nil {
		t.Fatalf("ReleaseSnapshot: %v", err)
	}
	if err := s.ReleaseSnapshot(ctx, "s1", "retry"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("release of pending snapshot = %v", err)
	}
	if err := s.FailSnapshot(ctx, "s1", "boom"); err != nil {
		t.Fatalf("FailSnapshot: %v", err)
	}
	got, _ := s.GetSnapshot(ctx, "s1")
	if got.Status != store.SnapshotFailed || got.Error != "boom" {
		t.Fatalf("failed snapshot = %+v", got)
	}
	if _, _, err := s.ClaimSnapshot(ctx, "missing", store.DefaultClaimLease); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("claim missing = %v", err)
	}
}

func TestClaimSnapshot_ExpiredLease(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.CreateSnapshot(ctx, store.Snapshot{ID: "s1"})
	if _, ok, _ := s.ClaimSnapshot(ctx, "s1", store.DefaultClaimLease); !ok {
		t.Fatal("first claim failed")
	}

	// simulate a worker that died an hour ago
	snap := s.snapshots["s1"]
	snap.UpdatedAt = snap.UpdatedAt.Add(-time.Hour)
	s.snapshots["s1"] = snap

	if _, ok, _ := s.ClaimSnapshot(ctx, "s1", 0); ok {
		t.Fatal("claim without lease expiry took a rendering snapshot")
	}
	if _, ok, _ := s.ClaimSnapshot(ctx, "s1", store.DefaultClaimLease); !ok {
		t.Fatal("abandoned snapshot was not reclaimed")
	}
	if _, ok, _ := s.ClaimSnapshot(ctx, "s1", store.DefaultClaimLease); ok {
		t.Fatal("fresh claim was taken over")
	}

	s.FailSnapshot(ctx, "s1", "boom")
	snap = s.snapshots["s1"]
	snap.UpdatedAt = snap.UpdatedAt.Add(-time.Hour)
	s.snapshots["s1"] = snap
	if _, ok, _ := s.ClaimSnapshot(ctx, "s1", time.Millisecond); ok {
		t.Fatal("failed snapshot was claimed")
	}
}
