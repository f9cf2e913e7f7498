package authn

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
)

type staticUser string

func (u staticUser) UserName() string {
	return string(u)
}

func TestChain(t *testing.T) {
	anonymous := AuthenticateFunc(func(w http.ResponseWriter, r *http.Request) (User, error) {
		return nil, nil
	})

	fromQuery := AuthenticateFunc(func(w http.ResponseWriter, r *http.Request) (User, error) {
		switch username := r.URL.Query().Get("user"); username {
		case "":
			return nil, errors.WithStack(ErrUnauthenticated)
		case "broken":
			return nil, errors.New("backend down")
		default:
			return staticUser(username), nil
		}
	})

	var hooked string

	middleware := Chain(
		WithAuthenticators(anonymous, fromQuery),
		WithOnAuthenticated(func(r *http.Request, user User) (*http.Request, error) {
			hooked = user.UserName()
			return r, nil
		}),
	)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := ContextUser(r.Context())
		if err != nil {
			t.Fatalf("%+v", errors.WithStack(err))
		}

		w.Write([]byte(user.UserName()))
	}))

	type testCase struct {
		Query          string
		ExpectedStatus int
		ExpectedBody   string
	}

	testCases := map[string]testCase{
		"authenticated":   {Query: "?user=user1", ExpectedStatus: http.StatusOK, ExpectedBody: "user1"},
		"unauthenticated": {Query: "", ExpectedStatus: http.StatusUnauthorized},
		"error":           {Query: "?user=broken", ExpectedStatus: http.StatusInternalServerError},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/"+tc.Query, nil))

			if e, g := tc.ExpectedStatus, res.Code; e != g {
				t.Errorf("res.Code: expected '%v', got '%v'", e, g)
			}

			if tc.ExpectedBody == "" {
				return
			}

			if e, g := tc.ExpectedBody, res.Body.String(); e != g {
				t.Errorf("res.Body: expected '%v', got '%v'", e, g)
			}

			if e, g := tc.ExpectedBody, hooked; e != g {
				t.Errorf("hooked: expected '%v', got '%v'", e, g)
			}
		})
	}
}
