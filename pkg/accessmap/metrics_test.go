package accessmap

import (
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

func TestOverlaps_BasicOverlap(t *testing.T) {
	g := Filter(sampleGraph(), []string{"c1", "c2"})

	overlaps := EntityOverlaps(g.Entities, g.Edges)
	for _, id := range []string{"A", "B"} {
		o := overlaps[id]
		if o.OverlapCount != 2 || !o.IsOverlapping {
			t.Fatalf("overlap[%s] = %+v, want count 2 overlapping", id, o)
		}
		if !reflect.DeepEqual(o.Clients, []string{"c1", "c2"}) {
			t.Fatalf("overlap[%s].Clients = %v", id, o.Clients)
		}
	}

	edges := EdgeOverlaps(g.Edges)
	if len(edges) != 1 || edges[0].OverlapCount != 2 || !edges[0].IsOverlapping {
		t.Fatalf("EdgeOverlaps = %+v", edges)
	}

	m, next := ComputeMetrics(0, g.Entities, g.Edges)
	want := OverlapMetrics{
		TotalEntities:       2,
		UniqueEntities:      2,
		OverlappingEntities: 2,
		OverlapPercentage:   100,
		NetworkGrowthDelta:  2,
	}
	if m != want {
		t.Fatalf("ComputeMetrics = %+v, want %+v", m, want)
	}
	if next != 2 {
		t.Fatalf("baseline = %d, want 2", next)
	}
}

func TestOverlaps_PartialActivation(t *testing.T) {
	g := Filter(sampleGraph(), []string{"c1"})

	overlaps := EntityOverlaps(g.Entities, g.Edges)
	for _, id := range []string{"A", "B"} {
		if o := overlaps[id]; o.OverlapCount != 1 || o.IsOverlapping {
			t.Fatalf("overlap[%s] = %+v, want count 1 not overlapping", id, o)
		}
	}
	m, _ := ComputeMetrics(0, g.Entities, g.Edges)
	if m.OverlapPercentage != 0 || m.OverlappingEntities != 0 || m.UniqueEntities != 2 {
		t.Fatalf("ComputeMetrics = %+v", m)
	}
}

func TestComputeMetrics(t *testing.T) {
	entities := []Entity{{ID: "A"}, {ID: "B"}, {ID: "C"}, {ID: "D"}}
	edges := []Edge{
		{From: "A", To: "B", Clients: []string{"c1"}},
		{From: "B", To: "C", Clients: []string{"c2"}},
		{From: "C", To: "C", Clients: []string{"c1"}},
	}
	tests := []struct {
		name     string
		previous int
		want     OverlapMetrics
	}{
		{
			name:     "first computation",
			previous: 0,
			want:     OverlapMetrics{TotalEntities: 4, UniqueEntities: 3, OverlappingEntities: 2, OverlapPercentage: 50, NetworkGrowthDelta: 4},
		},
		{
			name:     "shrinking network",
			previous: 10,
			want:     OverlapMetrics{TotalEntities: 4, UniqueEntities: 3, OverlappingEntities: 2, OverlapPercentage: 50, NetworkGrowthDelta: -6},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, next := ComputeMetrics(tc.previous, entities, edges)
			if got != tc.want {
				t.Fatalf("ComputeMetrics(%d) = %+v, want %+v", tc.previous, got, tc.want)
			}
			if next != 4 {
				t.Fatalf("baseline = %d, want 4", next)
			}
		})
	}
}

func TestComputeMetrics_RepeatedReads(t *testing.T) {
	entities := []Entity{{ID: "A"}, {ID: "B"}}
	edges := []Edge{{From: "A", To: "B", Clients: []string{"c1"}}}

	first, baseline := ComputeMetrics(0, entities, edges)
	again, _ := ComputeMetrics(0, entities, edges)
	if first != again {
		t.Fatalf("reads with the same baseline differ: %+v vs %+v", first, again)
	}
	advanced, _ := ComputeMetrics(baseline, entities, edges)
	if advanced.NetworkGrowthDelta != 0 {
		t.Fatalf("delta after advancing baseline = %d, want 0", advanced.NetworkGrowthDelta)
	}
}

func TestComputeMetrics_Empty(t *testing.T) {
	m, next := ComputeMetrics(0, nil, nil)
	if m != (OverlapMetrics{}) || next != 0 {
		t.Fatalf("ComputeMetrics on empty input = %+v, %d", m, next)
	}
	if got := EntityOverlaps(nil, nil); len(got) != 0 {
		t.Fatalf("EntityOverlaps(nil, nil) = %v", got)
	}
	if got := EdgeOverlaps(nil); len(got) != 0 {
		t.Fatalf("EdgeOverlaps(nil) = %v", got)
	}
}

func TestComputeMetrics_PercentageBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := genGraph(t)
		active := rapid.SliceOfN(rapid.SampledFrom([]string{"c0", "c1", "c2", "c3"}), 0, 4).Draw(t, "active")
		previous := rapid.IntRange(0, 50).Draw(t, "previous")
		f := Filter(g, active)

		m, next := ComputeMetrics(previous, f.Entities, f.Edges)
		if m.OverlapPercentage < 0 || m.OverlapPercentage > 100 {
			t.Fatalf("overlap percentage %v out of bounds", m.OverlapPercentage)
		}
		if m.TotalEntities == 0 && m.OverlapPercentage != 0 {
			t.Fatalf("expected 0%% with no entities, got %v", m.OverlapPercentage)
		}
		if m.UniqueEntities != m.TotalEntities {
			t.Fatalf("unique %d != total %d after filtering", m.UniqueEntities, m.TotalEntities)
		}
		if next != m.TotalEntities || m.NetworkGrowthDelta != m.TotalEntities-previous {
			t.Fatalf("baseline bookkeeping off: %+v next=%d previous=%d", m, next, previous)
		}
	})
}
