package meta

import (
	"github.com/bornholm/burpacl/pkg/acl/grant"
)

// Registry holds the grants and groups registered by every backend.
// It is not safe for concurrent use on its own: it is only handed out by
// Handler.Batch, under the handler's lock.
type Registry struct {
	grants map[string]*Grant
	groups map[string]*Group
}

func newRegistry() *Registry {
	return &Registry{
		grants: make(map[string]*Grant),
		groups: make(map[string]*Group),
	}
}

// SetGrant parses raw and merges it into the grant of name.
func (r *Registry) SetGrant(name string, raw string) *grant.Rule {
	if IsGroup(name) {
		name = GroupName(name)
	}

	if existing, exists := r.grants[name]; exists {
		return existing.AddGrants(raw)
	}

	g := NewGrant(name, raw)
	r.grants[name] = g

	return g.Rule()
}

func (r *Registry) DelGrant(name string) bool {
	if IsGroup(name) {
		name = GroupName(name)
	}

	_, exists := r.grants[name]
	delete(r.grants, name)

	return exists
}

// SetGroup parses rawMembers and adds them to the group of name, creating it
// if needed. It returns the added members, nil if rawMembers is malformed.
func (r *Registry) SetGroup(name string, rawMembers string) []string {
	members := grant.ParseMembers(rawMembers)

	added := r.AddGroupMembers(name, members...)
	if members == nil {
		return nil
	}

	return added
}

// DelGroup removes the group and its grant.
func (r *Registry) DelGroup(name string) bool {
	name = GroupName(name)

	_, exists := r.groups[name]
	delete(r.groups, name)
	delete(r.grants, name)

	return exists
}

func (r *Registry) AddGroupMembers(name string, members ...string) []string {
	name = GroupName(name)

	group, exists := r.groups[name]
	if !exists {
		group = NewGroup(name)
		r.groups[name] = group
	}

	return group.AddMembers(members...)
}

func (r *Registry) DelGroupMembers(name string, members ...string) {
	group, exists := r.groups[GroupName(name)]
	if !exists {
		return
	}

	group.DelMembers(members...)
}

func (r *Registry) SetAdmin(rawMembers string) []string {
	return r.SetGroup(AdminGroup, rawMembers)
}

func (r *Registry) SetModerator(rawMembers string) []string {
	return r.SetGroup(ModeratorGroup, rawMembers)
}

func (r *Registry) SetModeratorGrants(raw string) *grant.Rule {
	return r.SetGrant(ModeratorGroup, raw)
}

func (r *Registry) Group(name string) *Group {
	return r.groups[GroupName(name)]
}
