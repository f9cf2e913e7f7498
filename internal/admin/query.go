package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/dustin/go-humanize"
)

type CheckResult struct {
	Username         string   `json:"username"`
	Client           string   `json:"client,omitempty"`
	Server           string   `json:"server,omitempty"`
	Admin            bool     `json:"admin"`
	AdminInherit     []string `json:"adminInherit,omitempty"`
	Moderator        bool     `json:"moderator"`
	ModeratorInherit []string `json:"moderatorInherit,omitempty"`
	ClientAllowed    bool     `json:"clientAllowed"`
	ClientRW         bool     `json:"clientRw"`
	ServerAllowed    bool     `json:"serverAllowed"`
	ServerRW         bool     `json:"serverRw"`
}

// Check evaluates every predicate for username.
func Check(ctx context.Context, a acl.ACL, username, client, server string) CheckResult {
	res := CheckResult{
		Username: username,
		Client:   client,
		Server:   server,
	}

	res.Admin, res.AdminInherit = a.IsAdmin(ctx, username)
	res.Moderator, res.ModeratorInherit = a.IsModerator(ctx, username)
	res.ClientAllowed = a.IsClientAllowed(ctx, username, client, server)
	res.ClientRW = a.IsClientRW(ctx, username, client, server)
	res.ServerAllowed = a.IsServerAllowed(ctx, username, server)
	res.ServerRW = a.IsServerRW(ctx, username, server)

	return res
}

func (h *Handler) serveCheck(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	username := query.Get("username")
	if username == "" {
		writeMessage(w, r, http.StatusBadRequest, "missing username")
		return
	}

	writeJSON(w, r, http.StatusOK, Check(r.Context(), h.engine, username, query.Get("client"), query.Get("server")))
}

type memberResponse struct {
	Admin     *bool    `json:"admin,omitempty"`
	Moderator *bool    `json:"moderator,omitempty"`
	Inherit   []string `json:"inherit"`
}

func (h *Handler) serveIsAdmin(w http.ResponseWriter, r *http.Request) {
	isAdmin, inherit := h.engine.IsAdmin(r.Context(), r.PathValue("member"))
	writeJSON(w, r, http.StatusOK, memberResponse{Admin: &isAdmin, Inherit: nonNil(inherit)})
}

func (h *Handler) serveIsModerator(w http.ResponseWriter, r *http.Request) {
	isModerator, inherit := h.engine.IsModerator(r.Context(), r.PathValue("member"))
	writeJSON(w, r, http.StatusOK, memberResponse{Moderator: &isModerator, Inherit: nonNil(inherit)})
}

func (h *Handler) serveGroupsOf(w http.ResponseWriter, r *http.Request) {
	member := r.PathValue("member")

	writeJSON(w, r, http.StatusOK, struct {
		Member string   `json:"member"`
		Groups []string `json:"groups"`
	}{
		Member: member,
		Groups: h.engine.Handler().MemberGroups(member),
	})
}

func (h *Handler) serveResolve(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.engine.Handler().Resolve(r.Context(), r.PathValue("username")))
}

type backendResponse struct {
	Name        string     `json:"name"`
	Priority    int        `json:"priority"`
	Writable    bool       `json:"writable"`
	LoadedAt    *time.Time `json:"loadedAt,omitempty"`
	LoadedSince string     `json:"loadedSince,omitempty"`
}

func (h *Handler) serveBackends(w http.ResponseWriter, r *http.Request) {
	backends := h.engine.Backends()

	res := struct {
		Version  uint64            `json:"version"`
		Backends []backendResponse `json:"backends"`
	}{
		Version:  h.engine.Handler().Version(),
		Backends: make([]backendResponse, 0, len(backends)),
	}

	for _, b := range backends {
		br := backendResponse{
			Name:     b.Name(),
			Priority: b.Priority(),
		}

		if mutable, ok := b.(acl.Mutable); ok {
			br.Writable = mutable.Writable()
		}

		if loaded, ok := b.(acl.Loaded); ok {
			loadedAt := loaded.LoadedAt()
			br.LoadedAt = &loadedAt
			br.LoadedSince = humanize.Time(loadedAt)
		}

		res.Backends = append(res.Backends, br)
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *Handler) serveGrants(w http.ResponseWriter, r *http.Request) {
	grants := h.engine.Handler().Grants()

	res := make(map[string]json.RawMessage, len(grants))
	for name, rule := range grants {
		res[name] = json.RawMessage(rule.JSON())
	}

	writeJSON(w, r, http.StatusOK, res)
}

func (h *Handler) serveGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.engine.Handler().Groups())
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}

	return values
}
