package distributor

import "sort"

// Strategy names the dispatch mode a RouteTable evaluates under.
type Strategy int

const (
	Multicast Strategy = iota
	Unicast
)

// Route binds a destination connection id to a priority and filter.
type Route struct {
	ID       string
	Priority int
	Rule     FilterRule
}

// RouteTable is an immutable snapshot of routes; writers build a new
// table and swap it in atomically so in-flight evaluations never see a
// torn state (§4.5).
type RouteTable struct {
	routes   []Route
	strategy Strategy
}

func NewRouteTable(strategy Strategy, routes ...Route) *RouteTable {
	sorted := make([]Route, len(routes))
	copy(sorted, routes)
	// Descending priority, ties broken lexicographically by id, so
	// Unicast's "first pass wins" needs no further sorting per message.
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].ID < sorted[j].ID
	})
	return &RouteTable{routes: sorted, strategy: strategy}
}

// WithRoute returns a new table with route upserted by id, preserving
// the copy-on-write swap semantics callers rely on.
func (t *RouteTable) WithRoute(route Route) *RouteTable {
	next := make([]Route, 0, len(t.routes)+1)
	for _, r := range t.routes {
		if r.ID != route.ID {
			next = append(next, r)
		}
	}
	next = append(next, route)
	return NewRouteTable(t.strategy, next...)
}

// WithoutRoute returns a new table with route id removed.
func (t *RouteTable) WithoutRoute(id string) *RouteTable {
	next := make([]Route, 0, len(t.routes))
	for _, r := range t.routes {
		if r.ID != id {
			next = append(next, r)
		}
	}
	return NewRouteTable(t.strategy, next...)
}

// WithStrategy returns a new table with the dispatch strategy changed.
func (t *RouteTable) WithStrategy(s Strategy) *RouteTable {
	return NewRouteTable(s, t.routes...)
}

// Routes returns the table's routes in priority order (read-only).
func (t *RouteTable) Routes() []Route {
	return t.routes
}

// Strategy reports the table's current dispatch strategy.
func (t *RouteTable) Strategy() Strategy {
	return t.strategy
}
