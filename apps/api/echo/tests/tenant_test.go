package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ada/core/tenant"
	"github.com/trezcool/ada/core/user"
	"github.com/trezcool/ada/tests"
)

func Test_tenantApi(t *testing.T) {
	app := setup(t)

	hq := testutil.CreateTenant(t, tenantRepo, "Ada HQ", "hq.test")
	school := testutil.CreateTenant(t, tenantRepo, "City School", "city.test")
	root := testutil.CreateUser(t, usrRepo, hq.ID, "Root", "root@hq.test", "", user.RoleSuperAdmin, true)
	admin := testutil.CreateUser(t, usrRepo, school.ID, "Admin", "admin@city.test", "", user.RoleCampusAdmin, true)
	rootToken := getToken(t, root)

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/tenants", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Super admin required", method: http.MethodGet, path: "/v1/tenants", token: getToken(t, admin), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Get all", method: http.MethodGet, path: "/v1/tenants", token: rootToken, wantCode: http.StatusOK, wantData: marchallList(t, hq, school)},
		{name: "search", method: http.MethodGet, path: "/v1/tenants?search=city", token: rootToken, wantCode: http.StatusOK, wantData: marchallList(t, school)},
		{name: "retrieve", method: http.MethodGet, path: "/v1/tenants/" + school.ID, token: rootToken, wantCode: http.StatusOK, wantData: marchallObj(t, school)},
		{
			name: "retrieve (unknown)", method: http.MethodGet, path: "/v1/tenants/nope", token: rootToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "tenant not found"}),
		},
		{
			name: "create: domain taken", method: http.MethodPost, path: "/v1/tenants", token: rootToken,
			body: []byte(`{"name": "Copycat", "domain": "CITY.test"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"domain": tenant.ErrDomainExists.Error()}),
		},
		{
			name: "create: invalid language", method: http.MethodPost, path: "/v1/tenants", token: rootToken,
			body: []byte(`{"name": "Hill School", "domain": "hill.test", "settings": {"language": "fr"}}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"language": "language must be one of [en ur]"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("created with default settings", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/tenants", rootToken, []byte(`{"name": " Hill School ", "domain": "Hill.test"}`))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var tnt tenant.Tenant
		unmarshal(t, rec, &tnt)
		assert.NotEmpty(t, tnt.ID)
		assert.Equal(t, "Hill School", tnt.Name)
		assert.Equal(t, "hill.test", tnt.Domain)
		assert.Equal(t, tenant.Settings{Currency: tenant.DefaultCurrency, Language: tenant.DefaultLanguage, Timezone: tenant.DefaultTimezone}, tnt.Settings)
	})
}
