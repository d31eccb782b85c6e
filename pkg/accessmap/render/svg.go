package render

import (
	"fmt"
	"io"
	"math"
	"sort"

	svg "github.com/ajstarks/svgo"

	"github.com/dw-outreach/outreach/backend/pkg/accessmap"
)

const (
	colorBackdrop  = "#0f172a"
	colorWeb       = "#334155"
	colorText      = "#e2e8f0"
	colorSubtle    = "#94a3b8"
	colorEdge      = "#64748b"
	colorLegendBG  = "#1e293b"
	colorHighlight = "#f43f5e"

	legendRowHeight = 18
	summaryHeight   = 70
)

// Options tweaks the drawing.
type Options struct {
	Title string
	// HideLabels drops entity labels, which get crowded on dense webs.
	HideLabels bool
	// HideLegend drops the client legend and the metrics summary.
	HideLegend bool
}

// SVG draws view as a standalone SVG document sized to the view's canvas.
// Entities without a position, and edges touching them, are not drawn.
func SVG(w io.Writer, view accessmap.View, opts Options) error {
	cw := &countingWriter{w: w}
	cfg := view.Canvas
	width := int(math.Ceil(cfg.CenterX * 2))
	height := int(math.Ceil(cfg.CenterY * 2))
	if !opts.HideLegend {
		height += summaryHeight + legendRowHeight*len(view.Clients)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("canvas has no area: %dx%d", width, height)
	}

	canvas := svg.New(cw)
	canvas.Start(width, height)
	if opts.Title != "" {
		canvas.Title(opts.Title)
	}
	canvas.Rect(0, 0, width, height, "fill:"+colorBackdrop)

	drawWeb(canvas, cfg)
	drawEdges(canvas, view)
	drawEntities(canvas, view, opts)
	if !opts.HideLegend {
		drawSummary(canvas, view, int(math.Ceil(cfg.CenterY*2)))
	}

	canvas.End()
	return cw.err
}

func drawWeb(canvas *svg.SVG, cfg accessmap.CanvasConfig) {
	center := cfg.Center()
	style := fmt.Sprintf("fill:none;stroke:%s;stroke-width:1", colorWeb)

	canvas.Gstyle(style)
	for spoke := 0; spoke < cfg.SpokeCount; spoke++ {
		outer := accessmap.IntersectionPoint(cfg.RingCount, spoke, cfg)
		canvas.Line(px(center.X), px(center.Y), px(outer.X), px(outer.Y))
	}
	for ring := 1; ring <= cfg.RingCount; ring++ {
		radius := cfg.RingRadius(ring)
		if cfg.SpokeCount < 3 {
			canvas.Circle(px(center.X), px(center.Y), px(radius))
			continue
		}
		for spoke := 0; spoke < cfg.SpokeCount; spoke++ {
			p1 := accessmap.IntersectionPoint(ring, spoke, cfg)
			p2 := accessmap.IntersectionPoint(ring, (spoke+1)%cfg.SpokeCount, cfg)
			seg, ok := accessmap.CurvedSegment(p1, p2, center, radius)
			if !ok {
				canvas.Line(px(p1.X), px(p1.Y), px(p2.X), px(p2.Y))
				continue
			}
			canvas.Path(seg.Path())
		}
	}
	canvas.Gend()
}

func drawEdges(canvas *svg.SVG, view accessmap.View) {
	for i, e := range view.Edges {
		from, ok := view.Positions[e.From]
		if !ok {
			continue
		}
		to, ok := view.Positions[e.To]
		if !ok {
			continue
		}
		color := colorEdge
		if len(e.Clients) > 0 {
			color = safeColor(view.ClientColor(e.Clients[0], colorEdge), colorEdge)
		}
		width := 1 + math.Max(0, math.Min(e.Strength, 4))
		style := fmt.Sprintf("stroke:%s;stroke-width:%.1f;stroke-opacity:0.8", color, width)
		if i < len(view.EdgeOverlaps) && view.EdgeOverlaps[i].IsOverlapping {
			style += ";stroke-dasharray:6,4"
		}
		canvas.Line(px(from.X), px(from.Y), px(to.X), px(to.Y), style)
	}
}

func drawEntities(canvas *svg.SVG, view accessmap.View, opts Options) {
	for _, e := range view.Entities {
		pos, ok := view.Positions[e.ID]
		if !ok {
			continue
		}
		st := accessmap.StyleFor(e.Type)
		x, y, r := px(pos.X), px(pos.Y), px(st.Radius)
		if view.EntityOverlaps[e.ID].IsOverlapping {
			canvas.Circle(x, y, r+4, fmt.Sprintf("fill:none;stroke:%s;stroke-width:2", colorHighlight))
		}
		canvas.Circle(x, y, r, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", st.Color, colorBackdrop))
		if !opts.HideLabels && e.Label != "" {
			canvas.Text(x+r+4, y+4, truncate(e.Label, 28),
				fmt.Sprintf("fill:%s;font-size:11px;font-family:sans-serif", colorText))
		}
	}
}

func drawSummary(canvas *svg.SVG, view accessmap.View, top int) {
	m := view.Metrics
	x := 16
	y := top + 20
	canvas.Rect(0, top, px(view.Canvas.CenterX*2), summaryHeight+legendRowHeight*len(view.Clients), "fill:"+colorLegendBG)
	canvas.Text(x, y, fmt.Sprintf("entities: %d  overlapping: %d (%.1f%%)  growth: %+d",
		m.TotalEntities, m.OverlappingEntities, m.OverlapPercentage, m.NetworkGrowthDelta),
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", colorText))
	if n := len(view.Unplaced); n > 0 {
		canvas.Text(x, y+18, fmt.Sprintf("not shown (web full): %d", n),
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", colorHighlight))
	}

	clients := append([]accessmap.Client(nil), view.Clients...)
	sort.SliceStable(clients, func(i, j int) bool { return clients[i].Name < clients[j].Name })
	for i, c := range clients {
		rowY := y + 44 + i*legendRowHeight
		canvas.Rect(x, rowY-10, 12, 12, "fill:"+safeColor(c.Color, colorSubtle))
		canvas.Text(x+20, rowY, c.Name, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", colorSubtle))
	}
}

// safeColor keeps stored colors out of style attributes unless they are plain
// hex colors.
func safeColor(c, fallback string) string {
	if accessmap.ValidColor(c) {
		return c
	}
	return fallback
}

func px(v float64) int {
	return int(math.Round(v))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// countingWriter remembers the first write error, since svgo drops them.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	if err != nil {
		c.err = err
	}
	return n, err
}
