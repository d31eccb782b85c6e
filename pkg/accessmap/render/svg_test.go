package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dw-outreach/outreach/backend/pkg/accessmap"
)

func sampleView(active []string) accessmap.View {
	g := accessmap.Graph{
		Clients: []accessmap.Client{
			{ID: "c1", Name: "Acme", Color: "#ff0000"},
			{ID: "c2", Name: "Globex", Color: "#00ff00"},
		},
		Entities: []accessmap.Entity{
			{ID: "A", Label: "Alice <CEO>", Type: accessmap.EntityPerson},
			{ID: "B", Label: "Bain", Type: accessmap.EntityFirm},
		},
		Edges: []accessmap.Edge{
			{From: "A", To: "B", Strength: 1, Clients: []string{"c1", "c2"}},
		},
	}
	return accessmap.BuildView(g, accessmap.ViewOptions{
		ActiveClients: active,
		Canvas:        accessmap.DefaultCanvas(),
	})
}

func TestSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := SVG(&buf, sampleView([]string{"c1", "c2"}), Options{Title: "Access map"}); err != nil {
		t.Fatalf("SVG: %v", err)
	}
	out := buf.String()

	checks := []struct {
		name string
		want string
	}{
		{name: "document", want: "<svg"},
		{name: "title", want: "<title>Access map</title>"},
		{name: "curved rings", want: " Q "},
		{name: "edge colored by first client", want: "stroke:#ff0000"},
		{name: "overlapping edge dashed", want: "stroke-dasharray"},
		{name: "overlap outline", want: "stroke:" + colorHighlight},
		{name: "firm style", want: "fill:#f59e0b"},
		{name: "escaped label", want: "Alice &lt;CEO&gt;"},
		{name: "legend", want: "Globex"},
		{name: "summary", want: "overlapping: 2 (100.0%)"},
	}
	for _, tc := range checks {
		t.Run(tc.name, func(t *testing.T) {
			if !strings.Contains(out, tc.want) {
				t.Fatalf("expected output to contain %q", tc.want)
			}
		})
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "</svg>") {
		t.Fatal("expected a closed svg document")
	}
}

func TestSVG_HostileClientColor(t *testing.T) {
	v := sampleView([]string{"c1", "c2"})
	v.Clients[0].Color = `red" onmouseover="alert(1)`

	var buf bytes.Buffer
	if err := SVG(&buf, v, Options{}); err != nil {
		t.Fatalf("SVG: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "onmouseover") {
		t.Fatal("client color leaked markup into the document")
	}
	if !strings.Contains(out, "stroke:"+colorEdge) {
		t.Fatal("expected the edge to fall back to the default edge color")
	}
}

func TestSafeColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#fff", "#fff"},
		{"#3B82F6", "#3B82F6"},
		{"#3b82f6cc", "#3b82f6cc"},
		{"blue", "#000"},
		{"#12", "#000"},
		{"#ff0000;fill:url(x)", "#000"},
		{"", "#000"},
	}
	for _, tc := range tests {
		if got := safeColor(tc.in, "#000"); got != tc.want {
			t.Errorf("safeColor(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSVG_NoActiveClients(t *testing.T) {
	var buf bytes.Buffer
	if err := SVG(&buf, sampleView(nil), Options{HideLegend: true}); err != nil {
		t.Fatalf("SVG: %v", err)
	}
	if strings.Contains(buf.String(), "Alice") {
		t.Fatal("expected no entities on an empty view")
	}
}

func TestSVG_SkipsUnplaced(t *testing.T) {
	v := sampleView([]string{"c1"})
	delete(v.Positions, "A")
	v.Unplaced = []string{"A"}

	var buf bytes.Buffer
	if err := SVG(&buf, v, Options{}); err != nil {
		t.Fatalf("SVG: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "Alice") {
		t.Fatal("unplaced entity was drawn")
	}
	if strings.Contains(out, "stroke:#ff0000;stroke-width") {
		t.Fatal("edge to unplaced entity was drawn")
	}
	if !strings.Contains(out, "not shown (web full): 1") {
		t.Fatal("expected unplaced count in summary")
	}
}

func TestSVG_EmptyCanvas(t *testing.T) {
	var buf bytes.Buffer
	err := SVG(&buf, accessmap.View{}, Options{HideLegend: true})
	if err == nil {
		t.Fatal("expected error for a canvas without area")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestSVG_WriteError(t *testing.T) {
	err := SVG(failingWriter{}, sampleView([]string{"c1"}), Options{})
	if err == nil || err.Error() != "disk full" {
		t.Fatalf("expected write error, got %v", err)
	}
}
