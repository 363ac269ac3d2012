package httpx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/sessionguard/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var order []string
	tag := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), tag("outer"), tag("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		header string
		want   string
		ok     bool
	}{
		"valid":         {header: "Bearer abc.def.ghi", want: "abc.def.ghi", ok: true},
		"lowercase":     {header: "bearer abc", want: "abc", ok: true},
		"missing":       {header: ""},
		"basic":         {header: "Basic dXNlcjpwYXNz"},
		"empty token":   {header: "Bearer   "},
		"no separator":  {header: "Bearerabc"},
		"extra padding": {header: "Bearer   abc  ", want: "abc", ok: true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			got, ok := httpx.BearerToken(req)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestWriteBearerError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	httpx.WriteBearerError(rec, "invalid session")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("WWW-Authenticate"), `Bearer error="invalid_token"`))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body httpx.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "invalid_token", body.Error)
	require.Equal(t, "invalid session", body.ErrorDescription)
}
