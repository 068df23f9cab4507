package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agb/securityjwt/internal/db"
	"github.com/agb/securityjwt/internal/model"
	"github.com/agb/securityjwt/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	router *gin.Engine
	codec  *service.TokenCodec
	store  *db.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	codec := newCodec(t, testKey, nil)
	store := db.NewMemory()
	svc, err := service.NewAuthService(store, service.NewBcryptHasher(bcrypt.MinCost), codec, zerolog.Nop())
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		Policy: DefaultSessionPolicy(),
		Codec:  codec,
		Auth:   svc,
		Log:    zerolog.Nop(),
	})
	return &testServer{router: router, codec: codec, store: store}
}

func (s *testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

const aliceJSON = `{"firstname":"alice","lastname":"doe","email":"a@x.com","password":"secret1"}`

func decodeToken(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp model.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRegisterAndUseToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/auth/register", aliceJSON, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	token := decodeToken(t, rec)

	sub, err := s.codec.ExtractSubject(token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", sub)

	rec = s.do(http.MethodGet, "/me", "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var me model.MeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, model.MeResponse{
		Email:       "a@x.com",
		FirstName:   "alice",
		LastName:    "doe",
		Role:        "ADMIN",
		Authorities: []string{"ADMIN"},
	}, me)

	rec = s.do(http.MethodGet, "/me", "", token[:len(token)-1])
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
}

func TestRegisterDuplicate(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/auth/register", aliceJSON, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/auth/register", aliceJSON, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NotContains(t, rec.Body.String(), "token")
	assert.Equal(t, 1, s.store.Len())
}

func TestRegisterRejectsInvalidBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "not json", body: `{`, wantMsg: "invalid request"},
		{name: "short password", body: `{"firstname":"a","lastname":"b","email":"a@x.com","password":"12345"}`, wantMsg: "password: min=6"},
		{name: "bad email", body: `{"firstname":"a","lastname":"b","email":"nope","password":"secret1"}`, wantMsg: "email: email"},
		{name: "missing names", body: `{"email":"a@x.com","password":"secret1"}`, wantMsg: "firstname: required, lastname: required"},
		{name: "blank name", body: `{"firstname":"  ","lastname":"b","email":"a@x.com","password":"secret1"}`, wantMsg: "invalid input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(http.MethodPost, "/auth/register", tt.body, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp model.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantMsg, resp.Error)
			assert.Zero(t, s.store.Len())
		})
	}
}

func TestAuthenticateEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/auth/register", aliceJSON, "")
	require.Equal(t, http.StatusOK, rec.Code)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "valid", body: `{"email":"a@x.com","password":"secret1"}`, want: http.StatusOK},
		{name: "email case ignored", body: `{"email":"A@X.com","password":"secret1"}`, want: http.StatusOK},
		{name: "wrong password", body: `{"email":"a@x.com","password":"secret2"}`, want: http.StatusUnauthorized},
		{name: "unknown email", body: `{"email":"b@x.com","password":"secret1"}`, want: http.StatusUnauthorized},
		{name: "missing password", body: `{"email":"a@x.com"}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/auth/authenticate", tt.body, "")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
			if tt.want != http.StatusOK {
				return
			}
			token := decodeToken(t, rec)
			user, err := s.store.GetUserByEmail(context.Background(), "a@x.com")
			require.NoError(t, err)
			assert.True(t, s.codec.IsValidFor(token, user))
		})
	}
}

func TestAuthenticateFailureBodiesMatch(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/auth/register", aliceJSON, "").Code)

	wrong := s.do(http.MethodPost, "/auth/authenticate", `{"email":"a@x.com","password":"secret2"}`, "")
	unknown := s.do(http.MethodPost, "/auth/authenticate", `{"email":"b@x.com","password":"secret1"}`, "")
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestMeRequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	forged, err := newCodec(t, otherKey, nil).Issue("a@x.com", nil)
	require.NoError(t, err)
	rec = s.do(http.MethodGet, "/me", "", forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeHandlerWithoutPrincipal(t *testing.T) {
	h := NewAuthHandler(nil)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/me", http.NoBody)

	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPublicEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/ping", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = s.do(http.MethodGet, "/openapi.json", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/auth/register")
	assert.Contains(t, paths, "/auth/authenticate")
	assert.Contains(t, paths, "/me")
}
