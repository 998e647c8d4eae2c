package distributor

import "testing"

func TestNewRouteTableSortsByPriorityDescending(t *testing.T) {
	table := NewRouteTable(Unicast,
		Route{ID: "low", Priority: 1, Rule: AlwaysSend{}},
		Route{ID: "high", Priority: 10, Rule: AlwaysSend{}},
		Route{ID: "mid", Priority: 5, Rule: AlwaysSend{}},
	)
	routes := table.Routes()
	if len(routes) != 3 {
		t.Fatalf("expected 3 routes, got %d", len(routes))
	}
	if routes[0].ID != "high" || routes[1].ID != "mid" || routes[2].ID != "low" {
		t.Fatalf("unexpected order: %+v", routes)
	}
}

func TestNewRouteTableTiesBrokenLexicographically(t *testing.T) {
	table := NewRouteTable(Unicast,
		Route{ID: "zeta", Priority: 5, Rule: AlwaysSend{}},
		Route{ID: "alpha", Priority: 5, Rule: AlwaysSend{}},
		Route{ID: "mu", Priority: 5, Rule: AlwaysSend{}},
	)
	routes := table.Routes()
	if routes[0].ID != "alpha" || routes[1].ID != "mu" || routes[2].ID != "zeta" {
		t.Fatalf("expected lexicographic tie-break, got %+v", routes)
	}
}

func TestWithRouteUpsertsAndPreservesOriginal(t *testing.T) {
	base := NewRouteTable(Multicast, Route{ID: "a", Priority: 1, Rule: AlwaysSend{}})
	updated := base.WithRoute(Route{ID: "b", Priority: 2, Rule: AlwaysSend{}})

	if len(base.Routes()) != 1 {
		t.Fatalf("expected original table unmutated, got %d routes", len(base.Routes()))
	}
	if len(updated.Routes()) != 2 {
		t.Fatalf("expected updated table to have 2 routes, got %d", len(updated.Routes()))
	}

	replaced := updated.WithRoute(Route{ID: "a", Priority: 99, Rule: NeverSend{}})
	if len(replaced.Routes()) != 2 {
		t.Fatalf("expected upsert by id to replace, not append, got %d routes", len(replaced.Routes()))
	}
	if replaced.Routes()[0].ID != "a" || replaced.Routes()[0].Priority != 99 {
		t.Fatalf("expected route a to be replaced with priority 99, got %+v", replaced.Routes()[0])
	}
}

func TestWithoutRouteRemoves(t *testing.T) {
	base := NewRouteTable(Multicast,
		Route{ID: "a", Priority: 1, Rule: AlwaysSend{}},
		Route{ID: "b", Priority: 2, Rule: AlwaysSend{}},
	)
	removed := base.WithoutRoute("a")
	if len(removed.Routes()) != 1 || removed.Routes()[0].ID != "b" {
		t.Fatalf("expected only route b to remain, got %+v", removed.Routes())
	}
	if len(base.Routes()) != 2 {
		t.Fatal("expected original table to remain unmutated")
	}
}

func TestWithStrategySwapsWithoutMutatingOriginal(t *testing.T) {
	base := NewRouteTable(Multicast, Route{ID: "a", Priority: 1, Rule: AlwaysSend{}})
	unicast := base.WithStrategy(Unicast)
	if base.Strategy() != Multicast {
		t.Fatal("expected original table strategy unchanged")
	}
	if unicast.Strategy() != Unicast {
		t.Fatal("expected new table to carry the swapped strategy")
	}
}
