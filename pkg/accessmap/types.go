package accessmap

import (
	"regexp"
	"strings"
)

// Graph is the raw access network as delivered by the backend: every client,
// every entity and every asserted connection between two entities.
type Graph struct {
	Clients  []Client `json:"clients"`
	Entities []Entity `json:"entities"`
	Edges    []Edge   `json:"edges"`
}

// Client is an investor or viewer whose asserted connections populate the
// graph. Clients are the dimension the access map is filtered by.
type Client struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{3,8}$`)

// ValidColor reports whether s is a hex color such as #3b82f6.
func ValidColor(s string) bool {
	return hexColor.MatchString(s)
}

// Entity is a node of the access network. Entities are shared between
// clients; an entity exists independently of which clients reference it.
type Entity struct {
	ID    string     `json:"id"`
	Label string     `json:"label"`
	Type  EntityType `json:"type"`
	Depth int        `json:"depth,omitempty"`
}

// Edge is an undirected connection between two entities, attributed to the
// clients that assert it.
type Edge struct {
	ID       string   `json:"id,omitempty"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Strength float64  `json:"strength"`
	Clients  []string `json:"clients"`
}

// Touches reports whether entityID is one of the edge's endpoints.
func (e Edge) Touches(entityID string) bool {
	return e.From == entityID || e.To == entityID
}

// EntityType is the closed set of entity kinds the layout knows about.
type EntityType string

const (
	EntityPerson EntityType = "person"
	EntityFirm   EntityType = "firm"
	EntityFund   EntityType = "fund"
)

// EntityTypes lists every valid entity type in allocation priority order.
var EntityTypes = []EntityType{EntityFirm, EntityFund, EntityPerson}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	_, ok := typePolicies[t]
	return ok
}

// ParseEntityType normalises s into an EntityType. An empty string maps to
// EntityPerson, which is what the backend assigns when no type is given.
func ParseEntityType(s string) (EntityType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return EntityPerson, true
	}
	t := EntityType(s)
	return t, t.Valid()
}
