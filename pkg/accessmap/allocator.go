package accessmap

// Slot is one (ring, spoke) intersection of the web. Rings count from 1 at
// the center outward; spokes count from 0 clockwise from the top.
type Slot struct {
	Ring  int `json:"ring"`
	Spoke int `json:"spoke"`
}

// Position is where an entity is drawn.
type Position struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Ring  int     `json:"ring"`
	Spoke int     `json:"spoke"`
	Angle float64 `json:"angle"`
}

// Slot returns the slot the position was derived from.
func (p Position) Slot() Slot {
	return Slot{Ring: p.Ring, Spoke: p.Spoke}
}

// Placement is the outcome of one allocation pass.
type Placement struct {
	// Positions holds every placed entity keyed by id.
	Positions map[string]Position `json:"positions"`
	// Unplaced lists, in processing order, the ids of entities that found no
	// free slot or whose type has no ring preference.
	Unplaced []string `json:"unplaced"`
}

// AssignPositions places entities onto the web described by cfg.
//
// Entities are processed by type (firms, then funds, then persons) and in
// input order within a type. Each entity walks its type's preferred rings
// and, within a ring, spokes 0..S-1, taking the first free slot. A slot is
// never handed out twice in one call. Repeated ids are placed once, by their
// first occurrence; later copies are ignored.
func AssignPositions(entities []Entity, cfg CanvasConfig) Placement {
	placement := Placement{
		Positions: make(map[string]Position, len(entities)),
		Unplaced:  []string{},
	}
	if len(entities) == 0 {
		return placement
	}

	byType := make(map[EntityType][]Entity, len(EntityTypes))
	var unknown []Entity
	seen := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		if !e.Type.Valid() {
			unknown = append(unknown, e)
			continue
		}
		byType[e.Type] = append(byType[e.Type], e)
	}

	occupied := make(map[Slot]struct{}, cfg.Capacity())
	for _, t := range EntityTypes {
		rings := PreferredRings(t, cfg.RingCount)
		for _, e := range byType[t] {
			slot, ok := firstFree(rings, cfg.SpokeCount, occupied)
			if !ok {
				placement.Unplaced = append(placement.Unplaced, e.ID)
				continue
			}
			occupied[slot] = struct{}{}
			pt := IntersectionPoint(slot.Ring, slot.Spoke, cfg)
			placement.Positions[e.ID] = Position{
				X:     pt.X,
				Y:     pt.Y,
				Ring:  slot.Ring,
				Spoke: slot.Spoke,
				Angle: pt.Angle,
			}
		}
	}
	for _, e := range unknown {
		placement.Unplaced = append(placement.Unplaced, e.ID)
	}
	return placement
}

func firstFree(rings []int, spokes int, occupied map[Slot]struct{}) (Slot, bool) {
	for _, ring := range rings {
		for spoke := 0; spoke < spokes; spoke++ {
			s := Slot{Ring: ring, Spoke: spoke}
			if _, taken := occupied[s]; !taken {
				return s, true
			}
		}
	}
	return Slot{}, false
}
