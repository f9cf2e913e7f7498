package admin

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/bornholm/burpacl/pkg/acl/grant"
	"github.com/bornholm/burpacl/pkg/log"
	"github.com/pkg/errors"
)

type messageResponse struct {
	Message string `json:"message"`
}

type grantRequest struct {
	Grant string `json:"grant"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "could not encode response", log.Error(errors.WithStack(err)))
	}
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, format string, args ...any) {
	writeJSON(w, r, status, messageResponse{Message: fmt.Sprintf(format, args...)})
}

// writeError maps err to an HTTP status.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, acl.ErrUnknownBackend), errors.Is(err, acl.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, acl.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, acl.ErrNotWritable), errors.Is(err, errInvalidGrant):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "could not process request", log.Error(err))
		writeMessage(w, r, status, "%s", http.StatusText(status))
		return
	}

	writeMessage(w, r, status, "%s", err.Error())
}

var errInvalidGrant = errors.New("invalid grant")

// readGrant returns the grant value of the request, either from a JSON body
// or from the 'grant' form value.
func readGrant(r *http.Request) (string, error) {
	var raw string

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req grantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", errors.Wrapf(errInvalidGrant, "could not decode body: %s", err.Error())
		}

		raw = req.Grant
	} else {
		raw = r.FormValue("grant")
	}

	if grant.Parse(raw) == nil {
		return "", errors.Wrapf(errInvalidGrant, "could not parse '%s'", raw)
	}

	return raw, nil
}
