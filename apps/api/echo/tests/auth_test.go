package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/ada/apps/api/echo"
	"github.com/trezcool/ada/core/user"
	"github.com/trezcool/ada/tests"
)

func Test_authApi_login(t *testing.T) {
	app := setup(t)

	school := testutil.CreateTenant(t, tenantRepo, "City School", "city.test")
	accountant := testutil.CreateUser(t, usrRepo, school.ID, "Kashif", "kashif@city.test", "Pa$$w0rd!", user.RoleAccountant, true)
	_ = testutil.CreateUser(t, usrRepo, school.ID, "Bilal", "bilal@city.test", "Pa$$w0rd!", user.RoleViewer, false)

	login := func(email, pwd string) []byte {
		return marchallObj(t, LoginRequest{Email: email, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown email", body: login("nobody@city.test", "Pa$$w0rd!"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: login("kashif@city.test", "nope"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated", body: login("bilal@city.test", "Pa$$w0rd!"), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/auth/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("logged in", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/login", login(" KASHIF@city.test", "Pa$$w0rd!"))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LoginResponse
		unmarshal(t, rec, &resp)
		assert.Equal(t, accountant.ID, resp.User.ID)
		assert.False(t, resp.User.LastLogin.IsZero())

		claims := new(Claims)
		_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(conf.SecretKey), nil
		})
		if assert.NoError(t, err) {
			assert.Equal(t, accountant.ID, claims.Subject)
			assert.Equal(t, school.ID, claims.TenantID)
			assert.Equal(t, user.RoleAccountant, claims.Role)
		}

		// the token grants access
		req, rec = newAuthRequest(http.MethodGet, "/v1/students", resp.Token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}

func Test_authApi_refreshToken(t *testing.T) {
	app := setup(t)

	school := testutil.CreateTenant(t, tenantRepo, "City School", "city.test")
	naughty := testutil.CreateUser(t, usrRepo, school.ID, "Bilal", "bilal@city.test", "", user.RoleViewer, false)
	viewer := testutil.CreateUser(t, usrRepo, school.ID, "Zara", "zara@city.test", "", user.RoleViewer, true)

	now := time.Now()
	unrefreshableClaims := GetUserClaims(conf, viewer, now.Add(-2*conf.Server.JWTRefreshExpirationDelta).Unix()) // older than threshold
	unrefreshableToken, err := GenerateToken(conf, unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Invalid token", token: "not.a.token", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"})},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/auth/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Token refreshed", func(t *testing.T) {
		origIat := now.Add(-time.Hour).Unix()
		token, err := GenerateToken(conf, GetUserClaims(conf, viewer, origIat))
		if err != nil {
			t.Fatalf("GenerateToken(): %v", err)
		}

		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", token)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LoginResponse
		unmarshal(t, rec, &resp)
		claims := new(Claims)
		_, err = jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(conf.SecretKey), nil
		})
		if assert.NoError(t, err) {
			assert.Equal(t, origIat, claims.OrigIssuedAt)
		}
	})
}
