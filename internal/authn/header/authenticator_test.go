package header

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
)

func TestAuthenticator(t *testing.T) {
	trusted, err := ParsePrefixes("10.0.0.0/8", "127.0.0.1")
	if err != nil {
		t.Fatalf("%+v", errors.WithStack(err))
	}

	auth := NewAuthenticator("X-Remote-User", trusted...)

	type testCase struct {
		RemoteAddr string
		Username   string
		Expected   string
	}

	testCases := []testCase{
		{RemoteAddr: "10.1.2.3:4567", Username: "user1", Expected: "user1"},
		{RemoteAddr: "127.0.0.1:4567", Username: "user2", Expected: "user2"},
		{RemoteAddr: "192.168.1.1:4567", Username: "user1", Expected: ""},
		{RemoteAddr: "10.1.2.3:4567", Username: "", Expected: ""},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("Case #%d", idx), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.RemoteAddr
			if tc.Username != "" {
				req.Header.Set("X-Remote-User", tc.Username)
			}

			user, err := auth.Authenticate(httptest.NewRecorder(), req)
			if err != nil {
				t.Fatalf("%+v", errors.WithStack(err))
			}

			var username string
			if user != nil {
				username = user.UserName()
			}

			if e, g := tc.Expected, username; e != g {
				t.Errorf("username: expected '%v', got '%v'", e, g)
			}
		})
	}

	if _, err := ParsePrefixes("not-an-ip"); err == nil {
		t.Errorf("ParsePrefixes: expected error, got nil")
	}
}
