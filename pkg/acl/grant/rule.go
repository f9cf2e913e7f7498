package grant

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"
)

type Scope string

const (
	ScopeExclude Scope = "exclude"
	ScopeRW      Scope = "rw"
	ScopeRO      Scope = "ro"
)

// DefaultOrder is the evaluation order of scopes when a grant does not
// define one. The first scope matching a client or an agent wins.
var DefaultOrder = []Scope{ScopeExclude, ScopeRW, ScopeRO}

const (
	KeyClients = "clients"
	KeyAgents  = "agents"
	KeyOrder   = "order"
)

func IsScope(key string) bool {
	switch Scope(key) {
	case ScopeExclude, ScopeRW, ScopeRO:
		return true
	default:
		return false
	}
}

// IsReserved returns true if key has a meaning in the grant syntax and can
// therefore never be used as a client or an agent name.
func IsReserved(key string) bool {
	return key == KeyClients || key == KeyAgents || key == KeyOrder || IsScope(key)
}

// Rule is a parsed grant definition.
//
// A rule holding only Clients is the flat form (`["a", "b"]`). Every other
// field comes from the mapping form, where reserved keys select clients,
// agents, scopes or the evaluation order, and any other key names an agent
// whose value is the client rule applying on that agent.
type Rule struct {
	Clients  []string
	Agents   []string
	PerAgent map[string]*Rule
	Scopes   map[Scope]*Rule
	Order    []Scope
}

type listKind int

const (
	listOfClients listKind = iota
	listOfAgents
)

// Parse decodes a raw grant value. JSON (comments and trailing commas
// allowed) is tried first. A value that is not JSON but contains brackets
// is malformed and yields nil. Otherwise the value is a comma separated list.
func Parse(raw string) *Rule {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &Rule{}
	}

	var data any
	if err := json.Unmarshal(jsonc.ToJSON([]byte(raw)), &data); err == nil {
		return build(data, listOfClients)
	}

	if strings.ContainsAny(raw, "{}[]") {
		return nil
	}

	return &Rule{Clients: splitList(raw)}
}

// ParseMembers decodes a raw group members value with the same rules as
// Parse, except that JSON objects are considered malformed.
func ParseMembers(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}

	var data any
	if err := json.Unmarshal(jsonc.ToJSON([]byte(raw)), &data); err == nil {
		switch typ := data.(type) {
		case []any:
			return union(nil, toStrings(typ))
		case map[string]any, nil:
			return nil
		default:
			return []string{scalarString(typ)}
		}
	}

	if strings.ContainsAny(raw, "{}[]") {
		return nil
	}

	return splitList(raw)
}

func build(data any, kind listKind) *Rule {
	switch typ := data.(type) {
	case nil:
		return nil

	case []any:
		return fromList(toStrings(typ), kind)

	case map[string]any:
		rule := &Rule{}

		keys := make([]string, 0, len(typ))
		for key := range typ {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			value := typ[key]

			switch {
			case key == KeyClients:
				rule = Merge(rule, build(value, listOfClients))

			case key == KeyAgents:
				rule = Merge(rule, build(value, listOfAgents))

			case key == KeyOrder:
				rule.Order = parseOrder(value)

			case IsScope(key):
				sub := build(value, kind)
				if sub == nil {
					continue
				}

				if rule.Scopes == nil {
					rule.Scopes = make(map[Scope]*Rule)
				}

				rule.Scopes[Scope(key)] = Merge(rule.Scopes[Scope(key)], sub)

			default:
				sub := build(value, listOfClients)
				if sub == nil {
					sub = &Rule{}
				}

				if rule.PerAgent == nil {
					rule.PerAgent = make(map[string]*Rule)
				}

				rule.PerAgent[key] = Merge(rule.PerAgent[key], sub)
			}
		}

		return rule

	default:
		return fromList([]string{scalarString(typ)}, kind)
	}
}

func fromList(names []string, kind listKind) *Rule {
	names = slices.DeleteFunc(union(nil, names), IsReserved)

	if kind == listOfAgents {
		return &Rule{Agents: names}
	}

	return &Rule{Clients: names}
}

func parseOrder(value any) []Scope {
	var names []string

	switch typ := value.(type) {
	case []any:
		names = toStrings(typ)
	case string:
		names = splitList(typ)
	}

	order := make([]Scope, 0, len(names))
	for _, name := range names {
		scope := Scope(strings.ToLower(strings.TrimSpace(name)))
		if !IsScope(string(scope)) || slices.Contains(order, scope) {
			continue
		}

		order = append(order, scope)
	}

	if len(order) == 0 {
		return nil
	}

	return order
}

// IsFlat returns true if the rule only holds a client list.
func (r *Rule) IsFlat() bool {
	return len(r.Agents) == 0 && len(r.PerAgent) == 0 && len(r.Scopes) == 0 && len(r.Order) == 0
}

// Value returns the rule as generic JSON-compatible data.
func (r *Rule) Value() any {
	if r == nil {
		return nil
	}

	if r.IsFlat() {
		clients := r.Clients
		if clients == nil {
			clients = []string{}
		}

		return clients
	}

	data := make(map[string]any)

	if len(r.Clients) > 0 {
		data[KeyClients] = r.Clients
	}

	if len(r.Agents) > 0 {
		data[KeyAgents] = r.Agents
	}

	for agent, sub := range r.PerAgent {
		data[agent] = sub.Value()
	}

	for scope, sub := range r.Scopes {
		data[string(scope)] = sub.Value()
	}

	if len(r.Order) > 0 {
		data[KeyOrder] = r.Order
	}

	return data
}

// JSON serializes the rule. A nil rule serializes to "null".
func (r *Rule) JSON() string {
	data, err := json.Marshal(r.Value())
	if err != nil {
		// Only strings, slices and maps are involved
		panic(err)
	}

	return string(data)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")

	names := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		names = append(names, p)
	}

	return union(nil, names)
}

func toStrings(values []any) []string {
	names := make([]string, 0, len(values))
	for _, v := range values {
		switch v.(type) {
		case nil, []any, map[string]any:
			continue
		}

		names = append(names, scalarString(v))
	}

	return names
}

func scalarString(v any) string {
	if str, ok := v.(string); ok {
		return str
	}

	return fmt.Sprint(v)
}
