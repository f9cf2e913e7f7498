package grant

import "slices"

// Merge returns a new rule holding the union of a and b. Lists are merged
// without duplicates, agent and scope mappings are merged key by key and
// the order of a takes precedence over the order of b.
//
// Merging a flat rule into a mapping adds its clients to the mapping's
// clients key.
func Merge(a, b *Rule) *Rule {
	if a == nil && b == nil {
		return nil
	}

	if a == nil {
		return b.clone()
	}

	if b == nil {
		return a.clone()
	}

	merged := &Rule{
		Clients: union(a.Clients, b.Clients),
		Agents:  union(a.Agents, b.Agents),
		Order:   mergeOrder(a.Order, b.Order),
	}

	if len(a.PerAgent) > 0 || len(b.PerAgent) > 0 {
		merged.PerAgent = make(map[string]*Rule, len(a.PerAgent)+len(b.PerAgent))
		for agent, sub := range a.PerAgent {
			merged.PerAgent[agent] = Merge(merged.PerAgent[agent], sub)
		}
		for agent, sub := range b.PerAgent {
			merged.PerAgent[agent] = Merge(merged.PerAgent[agent], sub)
		}
	}

	if len(a.Scopes) > 0 || len(b.Scopes) > 0 {
		merged.Scopes = make(map[Scope]*Rule, len(a.Scopes)+len(b.Scopes))
		for scope, sub := range a.Scopes {
			merged.Scopes[scope] = Merge(merged.Scopes[scope], sub)
		}
		for scope, sub := range b.Scopes {
			merged.Scopes[scope] = Merge(merged.Scopes[scope], sub)
		}
	}

	return merged
}

func (r *Rule) clone() *Rule {
	if r == nil {
		return nil
	}

	cloned := &Rule{
		Clients: slices.Clone(r.Clients),
		Agents:  slices.Clone(r.Agents),
		Order:   slices.Clone(r.Order),
	}

	if r.PerAgent != nil {
		cloned.PerAgent = make(map[string]*Rule, len(r.PerAgent))
		for agent, sub := range r.PerAgent {
			cloned.PerAgent[agent] = sub.clone()
		}
	}

	if r.Scopes != nil {
		cloned.Scopes = make(map[Scope]*Rule, len(r.Scopes))
		for scope, sub := range r.Scopes {
			cloned.Scopes[scope] = sub.clone()
		}
	}

	return cloned
}

// union returns the values of a followed by the values of b not already
// present, without duplicates.
func union[T comparable](a, b []T) []T {
	if a == nil && b == nil {
		return nil
	}

	merged := make([]T, 0, len(a)+len(b))
	for _, values := range [][]T{a, b} {
		for _, v := range values {
			if slices.Contains(merged, v) {
				continue
			}

			merged = append(merged, v)
		}
	}

	return merged
}

func mergeOrder(a, b []Scope) []Scope {
	if len(a) > 0 {
		return union(a, b)
	}

	return slices.Clone(b)
}
