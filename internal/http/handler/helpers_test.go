package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/yugmi/sense-api/internal/auth"
	"github.com/yugmi/sense-api/internal/domain"
	"github.com/yugmi/sense-api/internal/testutil"
	"gorm.io/gorm"
)

// envelope mirrors domain.APIResponse with the payload left undecoded
type envelope struct {
	Success bool                          `json:"success"`
	Message string                        `json:"message"`
	Data    json.RawMessage               `json:"data"`
	Errors  []domain.ValidationFieldError `json:"errors"`
	Error   string                        `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) envelope {
	t.Helper()
	env := decodeEnvelope(t, rr)
	require.NoError(t, json.Unmarshal(env.Data, dst))
	return env
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asUser(t *testing.T, db *gorm.DB, req *http.Request, user *domain.User) *http.Request {
	t.Helper()
	return req.WithContext(auth.WithUserContext(req.Context(), testutil.UserContext(t, db, user)))
}

// withURLParams attaches chi route parameters as the router would
func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}
