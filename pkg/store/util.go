package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dw-outreach/outreach/backend/internal/util"
	"github.com/dw-outreach/outreach/backend/pkg/accessmap"
)

// ImportBatchSize bounds the rows written per statement during ImportGraph.
const ImportBatchSize = 500

func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

func DedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ParseID converts an API id into a row id.
func ParseID(id string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return n, nil
}

// FormatID converts a row id into an API id.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// EncodeClientIDs serialises an edge's client list for storage.
func EncodeClientIDs(clients []string) (string, error) {
	clients = DedupeStrings(clients)
	if clients == nil {
		clients = []string{}
	}
	b, err := json.Marshal(clients)
	if err != nil {
		return "", fmt.Errorf("failed to encode client ids: %w", err)
	}
	return string(b), nil
}

// DecodeClientIDs reads a stored client list. Empty input is an empty list.
func DecodeClientIDs(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode client ids: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// NormalizeClient fills defaults and cleans the text of c before storage.
// Colors that are not hex colors are replaced by DefaultClientColor.
func NormalizeClient(c accessmap.Client) accessmap.Client {
	c.Name = util.SanitizeText(strings.TrimSpace(c.Name))
	c.Color = strings.TrimSpace(c.Color)
	if !accessmap.ValidColor(c.Color) {
		c.Color = DefaultClientColor
	}
	return c
}

// NormalizeEntity fills defaults and cleans the text of e before storage.
func NormalizeEntity(e accessmap.Entity) accessmap.Entity {
	e.Label = util.SanitizeText(strings.TrimSpace(e.Label))
	if t, ok := accessmap.ParseEntityType(string(e.Type)); ok {
		e.Type = t
	}
	if e.Depth <= 0 {
		e.Depth = 1
	}
	return e
}

// NormalizeEdge fills defaults before storage.
func NormalizeEdge(e accessmap.Edge) accessmap.Edge {
	if e.Strength == 0 {
		e.Strength = 1.0
	}
	e.Clients = DedupeStrings(e.Clients)
	if e.Clients == nil {
		e.Clients = []string{}
	}
	return e
}

// CheckImport rejects a graph ImportGraph cannot store unambiguously: client
// or entity ids used twice, and edges whose endpoints are not among its
// entities. Empty ids cannot be referenced and are not checked for repeats.
func CheckImport(g accessmap.Graph) error {
	clients := make(map[string]struct{}, len(g.Clients))
	for _, c := range g.Clients {
		if _, dup := clients[c.ID]; dup && c.ID != "" {
			return fmt.Errorf("%w: client %q", ErrDuplicateID, c.ID)
		}
		clients[c.ID] = struct{}{}
	}
	entities := make(map[string]struct{}, len(g.Entities))
	for _, e := range g.Entities {
		if _, dup := entities[e.ID]; dup && e.ID != "" {
			return fmt.Errorf("%w: entity %q", ErrDuplicateID, e.ID)
		}
		entities[e.ID] = struct{}{}
	}
	for _, e := range g.Edges {
		for _, id := range []string{e.From, e.To} {
			if _, ok := entities[id]; !ok || id == "" {
				return fmt.Errorf("%w: %q", ErrUnknownEntity, id)
			}
		}
	}
	return nil
}

// EmptyGraph is the graph with no rows, with every list non-nil.
func EmptyGraph() accessmap.Graph {
	return accessmap.Graph{
		Clients:  []accessmap.Client{},
		Entities: []accessmap.Entity{},
		Edges:    []accessmap.Edge{},
	}
}

// RemapClients rewrites client ids through ids, keeping ids it does not know.
func RemapClients(clients []string, ids map[string]string) []string {
	out := make([]string, 0, len(clients))
	for _, c := range clients {
		if mapped, ok := ids[c]; ok {
			c = mapped
		}
		out = append(out, c)
	}
	return out
}
