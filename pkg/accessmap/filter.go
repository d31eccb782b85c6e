package accessmap

// FilterEdges keeps the edges asserted by at least one active client. The
// client list of every kept edge is narrowed to the active clients, keeping
// the edge's own order and dropping repeats. An empty active set keeps
// nothing.
func FilterEdges(edges []Edge, active []string) []Edge {
	out := []Edge{}
	if len(active) == 0 || len(edges) == 0 {
		return out
	}
	activeSet := toSet(active)
	for _, e := range edges {
		clients := narrowClients(e.Clients, activeSet)
		if len(clients) == 0 {
			continue
		}
		e.Clients = clients
		out = append(out, e)
	}
	return out
}

// FilterEntities keeps the entities that are an endpoint of at least one edge
// surviving FilterEdges(edges, active), in input order. An empty active set
// keeps nothing.
func FilterEntities(entities []Entity, edges []Edge, active []string) []Entity {
	return entitiesOnEdges(entities, FilterEdges(edges, active))
}

// Filter reduces g to what is visible for the active clients. Edges are
// filtered first and entities are derived from the surviving edges, so no
// entity is ever left without a qualifying edge.
func Filter(g Graph, active []string) Graph {
	edges := FilterEdges(g.Edges, active)
	out := Graph{
		Clients:  []Client{},
		Entities: entitiesOnEdges(g.Entities, edges),
		Edges:    edges,
	}
	activeSet := toSet(active)
	for _, c := range g.Clients {
		if _, ok := activeSet[c.ID]; ok {
			out.Clients = append(out.Clients, c)
		}
	}
	return out
}

func entitiesOnEdges(entities []Entity, kept []Edge) []Entity {
	out := []Entity{}
	if len(entities) == 0 || len(kept) == 0 {
		return out
	}
	endpoints := make(map[string]struct{}, len(kept)*2)
	for _, e := range kept {
		endpoints[e.From] = struct{}{}
		endpoints[e.To] = struct{}{}
	}
	for _, ent := range entities {
		if _, ok := endpoints[ent.ID]; ok {
			out = append(out, ent)
		}
	}
	return out
}

func narrowClients(clients []string, active map[string]struct{}) []string {
	var out []string
	seen := make(map[string]struct{}, len(clients))
	for _, c := range clients {
		if _, ok := active[c]; !ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
