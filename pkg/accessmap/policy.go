package accessmap

import "sort"

// RingOrder names how an entity type ranks the rings of the web.
type RingOrder int

const (
	// OutermostFirst tries ring R, then R-1 down to ring 1.
	OutermostFirst RingOrder = iota
	// InnermostFirst tries ring 1, then 2 up to ring R.
	InnermostFirst
	// MiddleOut starts at the middle ring and moves away from it in both
	// directions. The outer ring wins when two rings are equally far away.
	MiddleOut
)

// Rings expands the order into concrete ring numbers for a web with
// ringCount rings. Every ring in [1, ringCount] appears exactly once.
func (o RingOrder) Rings(ringCount int) []int {
	if ringCount <= 0 {
		return nil
	}
	rings := make([]int, 0, ringCount)
	switch o {
	case OutermostFirst:
		for r := ringCount; r >= 1; r-- {
			rings = append(rings, r)
		}
	case InnermostFirst:
		for r := 1; r <= ringCount; r++ {
			rings = append(rings, r)
		}
	case MiddleOut:
		for r := ringCount; r >= 1; r-- {
			rings = append(rings, r)
		}
		// distance from the geometric middle, doubled to stay integral
		dist := func(r int) int {
			d := 2*r - (ringCount + 1)
			if d < 0 {
				return -d
			}
			return d
		}
		sort.SliceStable(rings, func(i, j int) bool {
			return dist(rings[i]) < dist(rings[j])
		})
	}
	return rings
}

// Style is how an entity type is drawn.
type Style struct {
	Color  string  `json:"color"`
	Radius float64 `json:"radius"`
}

type typePolicy struct {
	order RingOrder
	style Style
}

// typePolicies is the single table of per-type behaviour. Adding an entity
// type means adding a row here and to EntityTypes.
var typePolicies = map[EntityType]typePolicy{
	EntityFirm:   {order: OutermostFirst, style: Style{Color: "#f59e0b", Radius: 10}},
	EntityFund:   {order: MiddleOut, style: Style{Color: "#10b981", Radius: 8}},
	EntityPerson: {order: InnermostFirst, style: Style{Color: "#60a5fa", Radius: 6}},
}

// fallbackStyle is used for entities whose type is not in the table.
var fallbackStyle = Style{Color: "#9ca3af", Radius: 5}

// PreferredRings returns the rings an entity of type t tries, in order. Unknown
// types have no preferred rings.
func PreferredRings(t EntityType, ringCount int) []int {
	p, ok := typePolicies[t]
	if !ok {
		return nil
	}
	return p.order.Rings(ringCount)
}

// StyleFor returns the drawing style of t.
func StyleFor(t EntityType) Style {
	if p, ok := typePolicies[t]; ok {
		return p.style
	}
	return fallbackStyle
}
