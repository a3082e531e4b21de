package access

import (
	"fmt"
	"sort"
	"strings"

	"github.com/DukeRupert/dealroom/internal/domain"
)

// Route maps a path prefix to the tier its content requires.
type Route struct {
	Prefix   string
	Required domain.Tier
}

// DefaultRoutes is the gated section map of the frontend.
var DefaultRoutes = []Route{
	{Prefix: "/neighborhoods", Required: domain.TierInvestor},
	{Prefix: "/tools/advanced", Required: domain.TierInvestor},
	{Prefix: "/deals", Required: domain.TierElite},
	{Prefix: "/off-market", Required: domain.TierPrivate},
	{Prefix: "/private", Required: domain.TierPrivate},
}

// RouteTable resolves the required tier of a path by longest matching prefix.
// Unmatched paths require free.
type RouteTable struct {
	routes []Route
}

// NewRouteTable builds a table from routes. Later duplicates win.
func NewRouteTable(routes ...Route) *RouteTable {
	byPrefix := make(map[string]domain.Tier, len(routes))
	for _, r := range routes {
		prefix := normalizePrefix(r.Prefix)
		byPrefix[prefix] = domain.ParseTier(string(r.Required))
	}

	t := &RouteTable{routes: make([]Route, 0, len(byPrefix))}
	for prefix, tier := range byPrefix {
		t.routes = append(t.routes, Route{Prefix: prefix, Required: tier})
	}
	sort.Slice(t.routes, func(i, j int) bool {
		if len(t.routes[i].Prefix) != len(t.routes[j].Prefix) {
			return len(t.routes[i].Prefix) > len(t.routes[j].Prefix)
		}
		return t.routes[i].Prefix < t.routes[j].Prefix
	})
	return t
}

// Required returns the tier needed for path.
func (t *RouteTable) Required(path string) domain.Tier {
	for _, r := range t.routes {
		if matchPrefix(path, r.Prefix) {
			return r.Required
		}
	}
	return domain.TierFree
}

// Routes returns the table, longest prefix first.
func (t *RouteTable) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// ParseRoutes parses "prefix=tier" pairs separated by commas, e.g.
// "/deals=elite,/neighborhoods=investor". Tier names must be recognized.
func ParseRoutes(s string) ([]Route, error) {
	var routes []Route
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		prefix, tierName, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("route %q: expected prefix=tier", pair)
		}
		prefix = strings.TrimSpace(prefix)
		if !strings.HasPrefix(prefix, "/") {
			return nil, fmt.Errorf("route %q: prefix must start with /", pair)
		}
		tier := domain.Tier(strings.ToLower(strings.TrimSpace(tierName)))
		if !tier.Valid() {
			return nil, fmt.Errorf("route %q: unknown tier %q", pair, tierName)
		}
		routes = append(routes, Route{Prefix: prefix, Required: tier})
	}
	return routes, nil
}

func normalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}
