package meta

import (
	"context"
	"log/slog"

	"github.com/bornholm/burpacl/pkg/acl/grant"
)

func (h *Handler) IsAdmin(ctx context.Context, username string) (bool, []string) {
	return h.isMember(AdminGroup, username)
}

func (h *Handler) IsModerator(ctx context.Context, username string) (bool, []string) {
	return h.isMember(ModeratorGroup, username)
}

// IsClientAllowed checks whether username may access client, optionally on
// the given server.
func (h *Handler) IsClientAllowed(ctx context.Context, username, client, server string) bool {
	if username == "" || client == "" {
		return false
	}

	if isAdmin, _ := h.IsAdmin(ctx, username); isAdmin {
		return true
	}

	return h.clientAllowed(h.Resolve(ctx, username), username, client, server)
}

// IsClientRW checks whether username may alter client, for example to
// trigger a restore.
func (h *Handler) IsClientRW(ctx context.Context, username, client, server string) bool {
	if username == "" || client == "" {
		return false
	}

	if isAdmin, _ := h.IsAdmin(ctx, username); isAdmin {
		return true
	}

	resolved := h.Resolve(ctx, username)

	if !h.clientAllowed(resolved, username, client, server) {
		return false
	}

	if h.options.Legacy {
		return true
	}

	if scope, matched := h.clientScope(resolved, client, server); matched {
		slog.DebugContext(ctx, "client access decided by scope", slog.String("username", username), slog.String("client", client), slog.String("scope", string(scope)))
		return scope == grant.ScopeRW
	}

	return h.options.AssumeRW
}

func (h *Handler) IsServerAllowed(ctx context.Context, username, server string) bool {
	server, ok := h.ServerName(server)
	if username == "" || !ok {
		return false
	}

	if isAdmin, _ := h.IsAdmin(ctx, username); isAdmin {
		return true
	}

	return h.serverAllowed(h.Resolve(ctx, username), server)
}

func (h *Handler) IsServerRW(ctx context.Context, username, server string) bool {
	server, ok := h.ServerName(server)
	if username == "" || !ok {
		return false
	}

	if isAdmin, _ := h.IsAdmin(ctx, username); isAdmin {
		return true
	}

	resolved := h.Resolve(ctx, username)

	if !h.serverAllowed(resolved, server) {
		return false
	}

	if h.options.Legacy {
		return true
	}

	if scope, matched := h.serverScope(resolved, server); matched {
		return scope == grant.ScopeRW
	}

	return h.options.AssumeRW
}

func (h *Handler) clientAllowed(resolved *grant.Resolved, username, client, server string) bool {
	// Users restricted to some agents only see clients of those agents
	if server != "" && (len(resolved.Agents) > 0 || h.options.Legacy) {
		if !h.match(resolved.Agents, server) {
			return false
		}
	}

	if scope, matched := h.clientScope(resolved, client, server); matched {
		return scope != grant.ScopeExclude
	}

	if h.inSet(&resolved.Set, client, server) {
		return true
	}

	return h.options.ImplicitLink && username == client
}

func (h *Handler) serverAllowed(resolved *grant.Resolved, server string) bool {
	if scope, matched := h.serverScope(resolved, server); matched {
		return scope != grant.ScopeExclude
	}

	if len(resolved.Agents) == 0 {
		return !h.options.Legacy
	}

	return h.match(resolved.Agents, server)
}

// clientScope returns the first scope, in evaluation order, applying to
// client on server.
func (h *Handler) clientScope(resolved *grant.Resolved, client, server string) (grant.Scope, bool) {
	for _, scope := range resolved.EffectiveOrder() {
		set, exists := resolved.Scopes[scope]
		if !exists || set == nil {
			continue
		}

		if h.match(set.Clients, client) {
			return scope, true
		}

		if server != "" && h.match(set.Agents, server) {
			return scope, true
		}

		if h.inPerAgent(set, client, server) {
			return scope, true
		}
	}

	return "", false
}

func (h *Handler) serverScope(resolved *grant.Resolved, server string) (grant.Scope, bool) {
	for _, scope := range resolved.EffectiveOrder() {
		set, exists := resolved.Scopes[scope]
		if !exists || set == nil {
			continue
		}

		if h.match(set.Agents, server) {
			return scope, true
		}
	}

	return "", false
}

func (h *Handler) inSet(set *grant.Set, client, server string) bool {
	return h.match(set.Clients, client) || h.inPerAgent(set, client, server)
}

// inPerAgent checks the clients granted on agents matching server, or on any
// agent when no server is given.
func (h *Handler) inPerAgent(set *grant.Set, client, server string) bool {
	for agent, clients := range set.PerAgent {
		if server != "" && !h.match([]string{agent}, server) {
			continue
		}

		if h.match(clients, client) {
			return true
		}
	}

	return false
}

func (h *Handler) match(patterns []string, name string) bool {
	_, matched := h.matcher.Match(patterns, name)
	return matched
}

// ServerName returns the name server predicates check server against. An
// empty name maps to LocalServer in standalone mode and is rejected otherwise.
func (h *Handler) ServerName(server string) (string, bool) {
	if server != "" {
		return server, true
	}

	if h.options.Standalone {
		return LocalServer, true
	}

	return "", false
}
