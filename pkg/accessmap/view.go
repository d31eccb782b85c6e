package accessmap

// Canvas defaults used when the rendering layer does not supply its own.
const (
	DefaultRingCount  = 5
	DefaultSpokeCount = 12
	DefaultWidth      = 800
	DefaultHeight     = 800
	DefaultPadding    = 60
)

// DefaultCanvas is the web used by the API and the CLI when no dimensions
// are requested.
func DefaultCanvas() CanvasConfig {
	return NewCanvas(DefaultWidth, DefaultHeight, DefaultRingCount, DefaultSpokeCount, DefaultPadding)
}

// ViewOptions selects what BuildView computes.
type ViewOptions struct {
	ActiveClients []string
	Canvas        CanvasConfig
	PreviousCount int
}

// View is everything the rendering layer needs for one frame of the access
// map. It is a value; nothing in it is shared with the input graph.
type View struct {
	Clients        []Client                 `json:"clients"`
	Entities       []Entity                 `json:"entities"`
	Edges          []Edge                   `json:"edges"`
	Positions      map[string]Position      `json:"positions"`
	Unplaced       []string                 `json:"unplaced"`
	EntityOverlaps map[string]EntityOverlap `json:"entity_overlaps"`
	EdgeOverlaps   []EdgeOverlap            `json:"edge_overlaps"`
	Metrics        OverlapMetrics           `json:"metrics"`
	Baseline       int                      `json:"baseline"`
	Canvas         CanvasConfig             `json:"canvas"`
}

// BuildView runs the filter, the allocator and the overlap metrics over g.
func BuildView(g Graph, opts ViewOptions) View {
	filtered := Filter(g, opts.ActiveClients)
	placement := AssignPositions(filtered.Entities, opts.Canvas)
	metrics, baseline := ComputeMetrics(opts.PreviousCount, filtered.Entities, filtered.Edges)
	return View{
		Clients:        filtered.Clients,
		Entities:       filtered.Entities,
		Edges:          filtered.Edges,
		Positions:      placement.Positions,
		Unplaced:       placement.Unplaced,
		EntityOverlaps: EntityOverlaps(filtered.Entities, filtered.Edges),
		EdgeOverlaps:   EdgeOverlaps(filtered.Edges),
		Metrics:        metrics,
		Baseline:       baseline,
		Canvas:         opts.Canvas,
	}
}

// ClientColor returns the color of the client with id, or fallback when the
// view does not contain it.
func (v View) ClientColor(id, fallback string) string {
	for _, c := range v.Clients {
		if c.ID == id && c.Color != "" {
			return c.Color
		}
	}
	return fallback
}

// AllClientIDs returns the ids of every client of g, in order. It is the
// active set used when a caller asks for the whole network.
func AllClientIDs(g Graph) []string {
	ids := make([]string, 0, len(g.Clients))
	for _, c := range g.Clients {
		ids = append(ids, c.ID)
	}
	return ids
}
