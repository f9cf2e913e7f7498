package admin

import (
	"fmt"
	"net/http"

	"github.com/bornholm/burpacl/internal/authz"
	"github.com/bornholm/burpacl/pkg/acl"
)

// Handler serves the ACL query and administration API.
type Handler struct {
	prefix string
	engine *acl.Engine
	mux    *http.ServeMux
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func NewHandler(prefix string, engine *acl.Engine) *Handler {
	handler := &Handler{
		prefix: prefix,
		engine: engine,
		mux:    &http.ServeMux{},
	}

	read := authz.RequireAdminOrModerator(engine)
	write := authz.RequireAdmin(engine)

	route := func(method, path string, middleware func(http.Handler) http.Handler, fn http.HandlerFunc) {
		handler.mux.Handle(fmt.Sprintf("%s %s%s", method, prefix, path), middleware(fn))
	}

	// Queries
	route("GET", "/check", read, handler.serveCheck)
	route("GET", "/is-admin/{member}", read, handler.serveIsAdmin)
	route("GET", "/is-moderator/{member}", read, handler.serveIsModerator)
	route("GET", "/groups-of/{member}", read, handler.serveGroupsOf)
	route("GET", "/resolve/{username}", read, handler.serveResolve)
	route("GET", "/backends", read, handler.serveBackends)
	route("GET", "/grants", read, handler.serveGrants)
	route("GET", "/groups", read, handler.serveGroups)

	// Grants
	route("PUT", "/{backend}/grants/{name}", write, handler.serveAddGrant)
	route("POST", "/{backend}/grants/{name}", write, handler.serveModGrant)
	route("DELETE", "/{backend}/grants/{name}", write, handler.serveDelGrant)

	// Groups
	route("PUT", "/{backend}/groups/{name}", write, handler.serveAddGroup)
	route("POST", "/{backend}/groups/{name}", write, handler.serveModGroup)
	route("DELETE", "/{backend}/groups/{name}", write, handler.serveDelGroup)
	route("PUT", "/{backend}/groups/{name}/members/{member}", write, handler.serveAddGroupMember)
	route("DELETE", "/{backend}/groups/{name}/members/{member}", write, handler.serveDelGroupMember)

	// Reserved groups
	route("PUT", "/{backend}/admins/{member}", write, handler.serveAddAdmin)
	route("DELETE", "/{backend}/admins/{member}", write, handler.serveDelAdmin)
	route("PUT", "/{backend}/moderators/{member}", write, handler.serveAddModerator)
	route("DELETE", "/{backend}/moderators/{member}", write, handler.serveDelModerator)
	route("POST", "/{backend}/moderators", write, handler.serveSetModeratorGrants)

	return handler
}

var _ http.Handler = &Handler{}
