package grant

import (
	"maps"
	"slices"
)

// Set is a flattened view of clients and agents.
type Set struct {
	Clients  []string            `cbor:"1,keyasint,omitempty" json:"clients,omitempty"`
	Agents   []string            `cbor:"2,keyasint,omitempty" json:"agents,omitempty"`
	PerAgent map[string][]string `cbor:"3,keyasint,omitempty" json:"perAgent,omitempty"`
}

// Resolved is the outcome of walking one or more rules: the flat sets of
// granted clients and agents, and the advanced per-scope sets used to decide
// between read-only, read-write and excluded access.
type Resolved struct {
	Set

	Scopes map[Scope]*Set `cbor:"4,keyasint,omitempty" json:"scopes,omitempty"`
	Order  []Scope        `cbor:"5,keyasint,omitempty" json:"order,omitempty"`
}

// Resolve flattens rule. Clients and agents of the ro and rw scopes are
// granted as well, excluded ones are only recorded in their scope.
//
// Agents holding per-agent clients belong to the flat agent set but not to
// the agents of their scope: only the listed clients are scoped.
func Resolve(rule *Rule) *Resolved {
	resolved := &Resolved{}

	if rule == nil {
		return resolved
	}

	resolved.Set.add(rule, true)
	resolved.Order = slices.Clone(rule.Order)

	for _, scope := range sortedScopes(rule.Scopes) {
		sub := rule.Scopes[scope]

		if resolved.Scopes == nil {
			resolved.Scopes = make(map[Scope]*Set)
		}

		set, exists := resolved.Scopes[scope]
		if !exists {
			set = &Set{}
			resolved.Scopes[scope] = set
		}

		set.add(sub, false)

		if scope != ScopeExclude {
			resolved.Set.add(sub, true)
		}
	}

	return resolved
}

func (s *Set) add(rule *Rule, withAgentKeys bool) {
	if rule == nil {
		return
	}

	s.Clients = union(s.Clients, rule.Clients)
	s.Agents = union(s.Agents, rule.Agents)

	for _, agent := range sortedKeys(rule.PerAgent) {
		clients := collectClients(rule.PerAgent[agent])

		if withAgentKeys {
			s.Agents = union(s.Agents, []string{agent})
		}

		if s.PerAgent == nil {
			s.PerAgent = make(map[string][]string)
		}

		s.PerAgent[agent] = union(s.PerAgent[agent], clients)
	}
}

func collectClients(rule *Rule) []string {
	if rule == nil {
		return []string{}
	}

	clients := union([]string{}, rule.Clients)
	for _, agent := range sortedKeys(rule.PerAgent) {
		clients = union(clients, collectClients(rule.PerAgent[agent]))
	}

	return clients
}

// EffectiveOrder returns the scope evaluation order, DefaultOrder if none
// was defined.
func (r *Resolved) EffectiveOrder() []Scope {
	if len(r.Order) == 0 {
		return DefaultOrder
	}

	return r.Order
}

// Merge returns the union of r and other. The order of r takes precedence.
func (r *Resolved) Merge(other *Resolved) *Resolved {
	if other == nil {
		return r
	}

	merged := &Resolved{
		Set:   r.Set.merge(&other.Set),
		Order: mergeOrder(r.Order, other.Order),
	}

	if len(r.Scopes) > 0 || len(other.Scopes) > 0 {
		merged.Scopes = make(map[Scope]*Set)
		for _, scopes := range []map[Scope]*Set{r.Scopes, other.Scopes} {
			for scope, set := range scopes {
				existing, ok := merged.Scopes[scope]
				if !ok {
					existing = &Set{}
				}

				mergedSet := existing.merge(set)
				merged.Scopes[scope] = &mergedSet
			}
		}
	}

	return merged
}

// Empty returns true if nothing is granted nor excluded.
func (r *Resolved) Empty() bool {
	return r.Set.empty() && len(r.Scopes) == 0
}

func (s *Set) merge(other *Set) Set {
	merged := Set{
		Clients: union(s.Clients, other.Clients),
		Agents:  union(s.Agents, other.Agents),
	}

	if len(s.PerAgent) > 0 || len(other.PerAgent) > 0 {
		merged.PerAgent = make(map[string][]string)
		for _, perAgent := range []map[string][]string{s.PerAgent, other.PerAgent} {
			for agent, clients := range perAgent {
				merged.PerAgent[agent] = union(merged.PerAgent[agent], clients)
			}
		}
	}

	return merged
}

func (s *Set) empty() bool {
	return len(s.Clients) == 0 && len(s.Agents) == 0 && len(s.PerAgent) == 0
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

func sortedScopes(m map[Scope]*Rule) []Scope {
	return slices.Sorted(maps.Keys(m))
}
