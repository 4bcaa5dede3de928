package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/homeroom/core/account"
)

func TestAuthAPI_loginFlow(t *testing.T) {
	app := newTestApp(t)

	httpTest{
		name:     "request code",
		method:   http.MethodPost,
		path:     "/v1/auth/code",
		body:     map[string]string{"email": " Jane@Example.com "},
		wantCode: http.StatusOK,
	}.run(t, app)

	sent := app.mailSvc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "jane@example.com", sent[0].To[0].Address)
	code := sent[0].TemplateData.(map[string]interface{})["Code"].(string)

	tests := []httpTest{
		{
			name:     "malformed code",
			method:   http.MethodPost,
			path:     "/v1/auth/verify",
			body:     map[string]string{"email": "jane@example.com", "code": "12ab"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown email",
			method:   http.MethodPost,
			path:     "/v1/auth/verify",
			body:     map[string]string{"email": "john@example.com", "code": code},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "valid code",
			method:   http.MethodPost,
			path:     "/v1/auth/verify",
			body:     map[string]string{"email": "jane@example.com", "code": code},
			wantCode: http.StatusOK,
		},
		{
			name:     "code is single use",
			method:   http.MethodPost,
			path:     "/v1/auth/verify",
			body:     map[string]string{"email": "jane@example.com", "code": code},
			wantCode: http.StatusBadRequest,
		},
	}
	var token string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.run(t, app)
			if tt.wantCode == http.StatusOK {
				var resp map[string]string
				decode(t, rec, &resp)
				token = resp["token"]
			}
		})
	}
	require.NotEmpty(t, token)

	rec := app.do(http.MethodGet, "/v1/accounts/me", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var me account.Account
	decode(t, rec, &me)
	assert.Equal(t, "jane@example.com", me.Email)
	assert.False(t, me.LastLogin.IsZero())

	rec = app.do(http.MethodPost, "/v1/auth/token-refresh", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAuthAPI_requestCodeRateLimit(t *testing.T) {
	app := newTestApp(t)
	body := map[string]string{"email": "jane@example.com"}

	for i := 0; i < app.conf.Auth.LoginCodeRequests; i++ {
		rec := app.do(http.MethodPost, "/v1/auth/code", "", body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec := app.do(http.MethodPost, "/v1/auth/code", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAuthAPI_verifyAttemptLimit(t *testing.T) {
	app := newTestApp(t)
	requestCode := func() string {
		app.mailSvc.Reset()
		rec := app.do(http.MethodPost, "/v1/auth/code", "", map[string]string{"email": "jane@example.com"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		sent := app.mailSvc.Sent()
		require.Len(t, sent, 1)
		return sent[0].TemplateData.(map[string]interface{})["Code"].(string)
	}
	verify := func(code string) int {
		return app.do(http.MethodPost, "/v1/auth/verify", "", map[string]string{"email": "jane@example.com", "code": code}).Code
	}

	code := requestCode()
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < app.conf.Auth.LoginCodeAttempts; i++ {
		assert.Equal(t, http.StatusBadRequest, verify(wrong), "attempt %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, verify(code))

	acc, err := app.accRepo.GetAccountByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Empty(t, acc.LoginCodeHash)

	// a fresh code gets a fresh allowance
	code = requestCode()
	assert.Equal(t, http.StatusOK, verify(code))
}

func TestAccountAPI(t *testing.T) {
	app := newTestApp(t)
	_, adminToken := app.createAccount(t, "Admin", "admin@example.com", account.RoleAdmin)
	_, parentToken := app.createAccount(t, "Jane", "jane@example.com")

	tests := []httpTest{
		{name: "no token", method: http.MethodGet, path: "/v1/accounts/me", wantCode: http.StatusUnauthorized},
		{name: "bad token", method: http.MethodGet, path: "/v1/accounts/me", token: "nope", wantCode: http.StatusUnauthorized},
		{name: "me", method: http.MethodGet, path: "/v1/accounts/me", token: parentToken, wantCode: http.StatusOK},
		{name: "list as parent", method: http.MethodGet, path: "/v1/accounts", token: parentToken, wantCode: http.StatusForbidden},
		{name: "list as admin", method: http.MethodGet, path: "/v1/accounts", token: adminToken, wantCode: http.StatusOK},
		{name: "roles", method: http.MethodGet, path: "/v1/accounts/roles", token: adminToken, wantCode: http.StatusOK},
		{
			name:     "update own profile",
			method:   http.MethodPut,
			path:     "/v1/accounts/me",
			body:     map[string]string{"name": "Jane Doe", "phone": "555-0100"},
			token:    parentToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "parent cannot grant roles",
			method:   http.MethodPut,
			path:     "/v1/accounts/me",
			body:     map[string]interface{}{"roles": []string{account.RoleAdmin}},
			token:    parentToken,
			wantCode: http.StatusForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, app)
		})
	}

	rec := app.do(http.MethodGet, "/v1/accounts?search=jane", adminToken)
	var accs []account.Account
	decode(t, rec, &accs)
	require.Len(t, accs, 1)
	assert.Equal(t, "Jane Doe", accs[0].Name)
	assert.Equal(t, "555-0100", accs[0].Phone)
}
