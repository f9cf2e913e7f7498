package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bornholm/burpacl/pkg/acl"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	type testCase struct {
		Err             error
		ExpectedStatus  int
		ExpectedMessage string
	}

	testCases := map[string]testCase{
		"not found": {
			Err:             errors.Wrapf(acl.ErrNotFound, "grant '%s'", "user1"),
			ExpectedStatus:  http.StatusNotFound,
			ExpectedMessage: "grant 'user1': not found",
		},
		"conflict": {
			Err:             errors.WithStack(acl.ErrAlreadyExists),
			ExpectedStatus:  http.StatusConflict,
			ExpectedMessage: "already exists",
		},
		"internal": {
			Err:             errors.New("disk full: 100%"),
			ExpectedStatus:  http.StatusInternalServerError,
			ExpectedMessage: http.StatusText(http.StatusInternalServerError),
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			res := httptest.NewRecorder()
			writeError(res, httptest.NewRequest(http.MethodGet, "/", nil), tc.Err)

			require.Equal(t, tc.ExpectedStatus, res.Code)

			var body messageResponse
			require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
			require.Equal(t, tc.ExpectedMessage, body.Message)
		})
	}
}
