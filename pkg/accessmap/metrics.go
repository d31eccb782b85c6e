package accessmap

// overlapThreshold is the number of distinct clients from which an entity or
// edge counts as shared.
const overlapThreshold = 2

// EntityOverlap is the sharing state of one entity.
type EntityOverlap struct {
	Clients       []string `json:"clients"`
	OverlapCount  int      `json:"overlap_count"`
	IsOverlapping bool     `json:"is_overlapping"`
}

// EdgeOverlap is the sharing state of one edge.
type EdgeOverlap struct {
	From          string `json:"from"`
	To            string `json:"to"`
	OverlapCount  int    `json:"overlap_count"`
	IsOverlapping bool   `json:"is_overlapping"`
}

// OverlapMetrics aggregates sharing over a filtered graph.
type OverlapMetrics struct {
	TotalEntities       int     `json:"total_entities"`
	UniqueEntities      int     `json:"unique_entities"`
	OverlappingEntities int     `json:"overlapping_entities"`
	OverlapPercentage   float64 `json:"overlap_percentage"`
	NetworkGrowthDelta  int     `json:"network_growth_delta"`
}

// EntityOverlaps computes, for every entity, the union of clients over all
// edges touching it. Clients are listed in first-seen order.
func EntityOverlaps(entities []Entity, edges []Edge) map[string]EntityOverlap {
	out := make(map[string]EntityOverlap, len(entities))
	if len(entities) == 0 {
		return out
	}

	wanted := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		wanted[e.ID] = struct{}{}
	}
	clients := make(map[string][]string, len(entities))
	seen := make(map[string]map[string]struct{}, len(entities))
	add := func(entityID string, cs []string) {
		if _, ok := wanted[entityID]; !ok {
			return
		}
		s := seen[entityID]
		if s == nil {
			s = make(map[string]struct{})
			seen[entityID] = s
		}
		for _, c := range cs {
			if _, dup := s[c]; dup {
				continue
			}
			s[c] = struct{}{}
			clients[entityID] = append(clients[entityID], c)
		}
	}
	for _, edge := range edges {
		add(edge.From, edge.Clients)
		if edge.To != edge.From {
			add(edge.To, edge.Clients)
		}
	}

	for _, e := range entities {
		cs := clients[e.ID]
		if cs == nil {
			cs = []string{}
		}
		out[e.ID] = EntityOverlap{
			Clients:       cs,
			OverlapCount:  len(cs),
			IsOverlapping: len(cs) >= overlapThreshold,
		}
	}
	return out
}

// EdgeOverlaps reports the sharing state of each edge, aligned with edges.
func EdgeOverlaps(edges []Edge) []EdgeOverlap {
	out := make([]EdgeOverlap, 0, len(edges))
	for _, e := range edges {
		n := len(toSet(e.Clients))
		out = append(out, EdgeOverlap{
			From:          e.From,
			To:            e.To,
			OverlapCount:  n,
			IsOverlapping: n >= overlapThreshold,
		})
	}
	return out
}

// ComputeMetrics aggregates sharing over the filtered graph. previousCount is
// the entity total of the caller's last computation; the returned count is
// the baseline to pass next time. Holding on to the old baseline makes
// repeated reads report the same delta.
func ComputeMetrics(previousCount int, entities []Entity, edges []Edge) (OverlapMetrics, int) {
	overlaps := EntityOverlaps(entities, edges)
	m := OverlapMetrics{
		TotalEntities: len(entities),
	}
	for _, e := range entities {
		o := overlaps[e.ID]
		if o.OverlapCount >= 1 {
			m.UniqueEntities++
		}
		if o.IsOverlapping {
			m.OverlappingEntities++
		}
	}
	if m.TotalEntities > 0 {
		m.OverlapPercentage = float64(m.OverlappingEntities) / float64(m.TotalEntities) * 100
	}
	m.NetworkGrowthDelta = m.TotalEntities - previousCount
	return m, m.TotalEntities
}
