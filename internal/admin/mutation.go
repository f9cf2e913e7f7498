package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/pkg/errors"
)

type mutationFunc func(ctx context.Context, m acl.Mutable) error

// mutate runs fn against the backend named in the request path.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, status int, message string, fn mutationFunc) {
	ctx := r.Context()
	name := r.PathValue("backend")

	backend, err := h.engine.Backend(name)
	if err != nil {
		writeError(w, r, errors.WithStack(err))
		return
	}

	mutable, ok := backend.(acl.Mutable)
	if !ok || !mutable.Writable() {
		writeError(w, r, errors.Wrapf(acl.ErrNotWritable, "backend '%s'", name))
		return
	}

	if err := fn(ctx, mutable); err != nil {
		writeError(w, r, errors.WithStack(err))
		return
	}

	slog.InfoContext(ctx, message, slog.String("backend", name), slog.String("path", r.URL.Path))

	writeMessage(w, r, status, "%s", message)
}

func (h *Handler) withGrant(w http.ResponseWriter, r *http.Request, fn func(raw string)) {
	raw, err := readGrant(r)
	if err != nil {
		writeError(w, r, errors.WithStack(err))
		return
	}

	fn(raw)
}

func (h *Handler) serveAddGrant(w http.ResponseWriter, r *http.Request) {
	h.withGrant(w, r, func(raw string) {
		h.mutate(w, r, http.StatusCreated, "grant created", func(ctx context.Context, m acl.Mutable) error {
			return m.AddGrant(ctx, r.PathValue("name"), raw)
		})
	})
}

func (h *Handler) serveModGrant(w http.ResponseWriter, r *http.Request) {
	h.withGrant(w, r, func(raw string) {
		h.mutate(w, r, http.StatusOK, "grant updated", func(ctx context.Context, m acl.Mutable) error {
			return m.ModGrant(ctx, r.PathValue("name"), raw)
		})
	})
}

func (h *Handler) serveDelGrant(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusOK, "grant deleted", func(ctx context.Context, m acl.Mutable) error {
		return m.DelGrant(ctx, r.PathValue("name"))
	})
}

func (h *Handler) serveAddGroup(w http.ResponseWriter, r *http.Request) {
	h.withGrant(w, r, func(raw string) {
		h.mutate(w, r, http.StatusCreated, "group created", func(ctx context.Context, m acl.Mutable) error {
			return m.AddGroup(ctx, r.PathValue("name"), raw)
		})
	})
}

func (h *Handler) serveModGroup(w http.ResponseWriter, r *http.Request) {
	h.withGrant(w, r, func(raw string) {
		h.mutate(w, r, http.StatusOK, "group updated", func(ctx context.Context, m acl.Mutable) error {
			return m.ModGroup(ctx, r.PathValue("name"), raw)
		})
	})
}

func (h *Handler) serveDelGroup(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusOK, "group deleted", func(ctx context.Context, m acl.Mutable) error {
		return m.DelGroup(ctx, r.PathValue("name"))
	})
}

func (h *Handler) serveAddGroupMember(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusCreated, "group member added", func(ctx context.Context, m acl.Mutable) error {
		return m.AddGroupMember(ctx, r.PathValue("name"), r.PathValue("member"))
	})
}

func (h *Handler) serveDelGroupMember(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusOK, "group member removed", func(ctx context.Context, m acl.Mutable) error {
		return m.DelGroupMember(ctx, r.PathValue("name"), r.PathValue("member"))
	})
}

func (h *Handler) serveAddAdmin(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusCreated, "admin added", func(ctx context.Context, m acl.Mutable) error {
		return m.AddAdmin(ctx, r.PathValue("member"))
	})
}

func (h *Handler) serveDelAdmin(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusOK, "admin removed", func(ctx context.Context, m acl.Mutable) error {
		return m.DelAdmin(ctx, r.PathValue("member"))
	})
}

func (h *Handler) serveAddModerator(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusCreated, "moderator added", func(ctx context.Context, m acl.Mutable) error {
		return m.AddModerator(ctx, r.PathValue("member"))
	})
}

func (h *Handler) serveDelModerator(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, http.StatusOK, "moderator removed", func(ctx context.Context, m acl.Mutable) error {
		return m.DelModerator(ctx, r.PathValue("member"))
	})
}

func (h *Handler) serveSetModeratorGrants(w http.ResponseWriter, r *http.Request) {
	h.withGrant(w, r, func(raw string) {
		h.mutate(w, r, http.StatusOK, "moderator grants updated", func(ctx context.Context, m acl.Mutable) error {
			return m.SetModeratorGrants(ctx, raw)
		})
	})
}
