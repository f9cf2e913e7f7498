package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
)

func TestMiddleware(t *testing.T) {
	limiter := New(0, 2)

	handler := limiter.Middleware(func(r *http.Request) (string, error) {
		user := r.Header.Get("X-User")
		if user == "" {
			return "", errors.New("no user")
		}
		return user, nil
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if user != "" {
			req.Header.Set("X-User", user)
		}

		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)

		return res.Code
	}

	for _, expected := range []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests} {
		if g := serve("user1"); expected != g {
			t.Errorf("serve(user1): expected '%v', got '%v'", expected, g)
		}
	}

	if e, g := http.StatusNoContent, serve("user2"); e != g {
		t.Errorf("serve(user2): expected '%v', got '%v'", e, g)
	}

	if e, g := http.StatusInternalServerError, serve(""); e != g {
		t.Errorf("serve(''): expected '%v', got '%v'", e, g)
	}
}
