package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bornholm/burpacl/internal/authn"
	"github.com/bornholm/burpacl/pkg/acl/meta"
	"github.com/pkg/errors"
)

type user string

func (u user) UserName() string {
	return string(u)
}

func TestRequire(t *testing.T) {
	ctx := context.Background()

	handler, err := meta.NewHandler()
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	handler.SetAdmin(ctx, `["admin1"]`)
	handler.SetModerator(ctx, `["mod1"]`)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	type testCase struct {
		Middleware   func(http.Handler) http.Handler
		User         authn.User
		ExpectedCode int
	}

	testCases := []testCase{
		{Middleware: RequireAdmin(handler), User: user("admin1"), ExpectedCode: http.StatusNoContent},
		{Middleware: RequireAdmin(handler), User: user("mod1"), ExpectedCode: http.StatusForbidden},
		{Middleware: RequireAdminOrModerator(handler), User: user("mod1"), ExpectedCode: http.StatusNoContent},
		{Middleware: RequireAdminOrModerator(handler), User: user("admin1"), ExpectedCode: http.StatusNoContent},
		{Middleware: RequireAdminOrModerator(handler), User: user("user1"), ExpectedCode: http.StatusForbidden},
		{Middleware: RequireAdmin(handler), User: nil, ExpectedCode: http.StatusUnauthorized},
	}

	for idx, tc := range testCases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.User != nil {
			req = req.WithContext(authn.WithContextUser(req.Context(), tc.User))
		}

		res := httptest.NewRecorder()
		tc.Middleware(ok).ServeHTTP(res, req)

		if e, g := tc.ExpectedCode, res.Code; e != g {
			t.Errorf("Case #%d: expected status '%v', got '%v'", idx, e, g)
		}
	}
}
