package meta

import (
	"maps"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/bornholm/burpacl/pkg/acl/grant"
)

const (
	AdminGroup     = "@BUIADMINRESERVED"
	ModeratorGroup = "@moderator"
)

const unknownSubgroups = -1

// GroupName normalizes a group reference. Groups are always stored with the
// '@' prefix, configuration files declare their members with a '+' prefix.
func GroupName(name string) string {
	return "@" + strings.TrimLeft(strings.TrimSpace(name), "@+")
}

// IsGroup returns true if name references a group.
func IsGroup(name string) bool {
	return strings.HasPrefix(name, "@") || strings.HasPrefix(name, "+")
}

// IsReservedGroup returns true for the admin and moderator groups.
func IsReservedGroup(name string) bool {
	name = GroupName(name)
	return name == AdminGroup || name == ModeratorGroup
}

type GroupLookupFunc func(name string) *Group

type Group struct {
	name    string
	members []string

	// -1 when unknown, otherwise the number of members referencing a group
	subgroups atomic.Int64
}

func NewGroup(name string, members ...string) *Group {
	g := &Group{
		name: GroupName(name),
	}

	g.subgroups.Store(unknownSubgroups)
	g.AddMembers(members...)

	return g
}

func (g *Group) Name() string {
	return g.name
}

// DisplayName returns the group name without its prefix.
func (g *Group) DisplayName() string {
	return strings.TrimPrefix(g.name, "@")
}

func (g *Group) Members() []string {
	return slices.Clone(g.members)
}

// AddMembers adds members not already present and returns the added ones.
func (g *Group) AddMembers(members ...string) []string {
	added := make([]string, 0, len(members))

	for _, m := range members {
		m = normalizeMember(m)
		if m == "" || slices.Contains(g.members, m) {
			continue
		}

		g.members = append(g.members, m)
		added = append(added, m)
	}

	if len(added) > 0 {
		g.subgroups.Store(unknownSubgroups)
	}

	return added
}

func (g *Group) DelMembers(members ...string) {
	before := len(g.members)

	for _, m := range members {
		m = normalizeMember(m)
		g.members = slices.DeleteFunc(g.members, func(existing string) bool {
			return existing == m
		})
	}

	if len(g.members) != before {
		g.subgroups.Store(unknownSubgroups)
	}
}

func (g *Group) HasSubgroups() bool {
	return g.subgroupCount() > 0
}

func (g *Group) subgroupCount() int64 {
	if count := g.subgroups.Load(); count != unknownSubgroups {
		return count
	}

	var count int64
	for _, m := range g.members {
		if IsGroup(m) {
			count++
		}
	}

	g.subgroups.Store(count)

	return count
}

// IsMember checks whether member belongs to the group, directly or through
// one of its subgroups. Groups listed in ancestors are not visited again.
// When membership is inherited, the returned chain lists the display names
// of the subgroups leading to member.
func (g *Group) IsMember(member string, lookup GroupLookupFunc, ancestors map[string]struct{}) (bool, []string) {
	member = normalizeMember(member)
	if member == "" {
		return false, nil
	}

	if slices.Contains(g.members, member) {
		return true, nil
	}

	if g.subgroupCount() == 0 || lookup == nil {
		return false, nil
	}

	visited := make(map[string]struct{}, len(ancestors)+1)
	maps.Copy(visited, ancestors)
	visited[g.name] = struct{}{}

	for _, m := range g.members {
		if !IsGroup(m) {
			continue
		}

		if _, seen := visited[m]; seen {
			continue
		}

		sub := lookup(m)
		if sub == nil {
			continue
		}

		if ok, chain := sub.IsMember(member, lookup, visited); ok {
			return true, append([]string{sub.DisplayName()}, chain...)
		}
	}

	return false, nil
}

func normalizeMember(member string) string {
	member = strings.TrimSpace(member)
	if member == "" {
		return ""
	}

	if IsGroup(member) {
		return GroupName(member)
	}

	return member
}

// Grant is the named rule of a user or a group.
type Grant struct {
	name string
	rule *grant.Rule
}

func NewGrant(name string, raw string) *Grant {
	return &Grant{
		name: name,
		rule: grant.Parse(raw),
	}
}

func (g *Grant) Name() string {
	return g.name
}

// Rule returns the parsed rule, nil if the definition was malformed.
func (g *Grant) Rule() *grant.Rule {
	return g.rule
}

// AddGrants merges raw into the grant and returns its parsed value.
func (g *Grant) AddGrants(raw string) *grant.Rule {
	parsed := grant.Parse(raw)
	g.rule = grant.Merge(g.rule, parsed)
	return parsed
}
