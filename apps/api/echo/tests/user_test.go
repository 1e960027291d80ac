package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/ada/core/user"
	"github.com/trezcool/ada/tests"
)

func Test_userApi_userQuery(t *testing.T) {
	app := setup(t)

	path := func(search, ordering string, isActive *bool, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if isActive != nil {
			v.Add("isActive", strconv.FormatBool(*isActive))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	now := time.Now()
	school := testutil.CreateTenant(t, tenantRepo, "City School", "city.test")
	other := testutil.CreateTenant(t, tenantRepo, "Other School", "other.test")

	admin := testutil.CreateUser(t, usrRepo, school.ID, "Admin", "admin@city.test", "", user.RoleCampusAdmin, true, now.Add(1*time.Hour))
	accountant := testutil.CreateUser(t, usrRepo, school.ID, "Kashif", "kashif@city.test", "", user.RoleAccountant, true, now.Add(2*time.Hour))
	viewer := testutil.CreateUser(t, usrRepo, school.ID, "Zara", "zara@city.test", "", user.RoleViewer, true, now.Add(3*time.Hour))
	naughty := testutil.CreateUser(t, usrRepo, school.ID, "Bilal", "bilal@city.test", "", user.RoleViewer, false, now.Add(4*time.Hour))
	_ = testutil.CreateUser(t, usrRepo, other.ID, "Stranger", "stranger@other.test", "", user.RoleCampusAdmin, true)

	adminToken := getToken(t, admin)
	empty := marchallList(t)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Admin required", path: "/v1/users", token: getToken(t, accountant), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "Get all (own tenant only)", path: "/v1/users", token: adminToken, wantData: marchallList(t, admin, accountant, viewer, naughty)},
		// filtering
		{name: "search (unknown)", path: path("lol", "", nil), token: adminToken, wantData: empty},
		{name: "search=KASH", path: path("KASH", "", nil), token: adminToken, wantData: marchallList(t, accountant)},
		{name: "role (unknown)", path: path("", "", nil, "lol"), token: adminToken, wantData: empty},
		{name: "role=viewer", path: path("", "", nil, user.RoleViewer), token: adminToken, wantData: marchallList(t, viewer, naughty)},
		{
			name: "role=viewer,accountant", path: path("", "", nil, user.RoleViewer, user.RoleAccountant),
			token: adminToken, wantData: marchallList(t, accountant, viewer, naughty),
		},
		{name: "isActive=false", path: path("", "", bPtr(false)), token: adminToken, wantData: marchallList(t, naughty)},
		{name: "all combo", path: path("a", "", bPtr(true), user.RoleViewer), token: adminToken, wantData: marchallList(t, viewer)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// ordering is checked strictly
	orderTests := []struct {
		name     string
		ordering string
		want     []user.User
	}{
		{name: "created_at", ordering: "created_at", want: []user.User{admin, accountant, viewer, naughty}},
		{name: "-created_at", ordering: "-created_at", want: []user.User{naughty, viewer, accountant, admin}},
		{name: "name", ordering: "name", want: []user.User{admin, naughty, accountant, viewer}},
		{name: "-role,name", ordering: "-role,name", want: []user.User{admin, accountant, naughty, viewer}},
	}
	for _, tt := range orderTests {
		t.Run("order by "+tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, path("", tt.ordering, nil), adminToken)
			app.ServeHTTP(rec, req)

			var got []user.User
			unmarshal(t, rec, &got)
			ids := make([]string, 0, len(got))
			for _, usr := range got {
				ids = append(ids, usr.ID)
			}
			wantIDs := make([]string, 0, len(tt.want))
			for _, usr := range tt.want {
				wantIDs = append(wantIDs, usr.ID)
			}
			assert.Equal(t, wantIDs, ids)
		})
	}
}

func Test_userApi_userCreate(t *testing.T) {
	app := setup(t)

	school := testutil.CreateTenant(t, tenantRepo, "City School", "city.test")
	admin := testutil.CreateUser(t, usrRepo, school.ID, "Admin", "admin@city.test", "", user.RoleCampusAdmin, true)
	_ = testutil.CreateUser(t, usrRepo, school.ID, "Kashif", "kashif@city.test", "", user.RoleAccountant, true)
	adminToken := getToken(t, admin)

	newUser := func(name, email, role, pwd string) []byte {
		return marchallObj(t, user.NewUser{Name: name, Email: email, Role: role, Password: pwd, PasswordConfirm: pwd})
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "email taken", token: adminToken, body: newUser("Kashif 2", "KASHIF@city.test ", user.RoleViewer, "Pa$$w0rd!"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{
			name: "invalid role", token: adminToken, body: newUser("Sana", "sana@city.test", "principal", "Pa$$w0rd!"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name: "weak password", token: adminToken, body: newUser("Sana", "sana@city.test", user.RoleViewer, "short"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
		{
			name: "role above own", token: adminToken, body: newUser("Sana", "sana@city.test", user.RoleSuperAdmin, "Pa$$w0rd!"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"role": "not enough rights to set this role"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("created in own tenant", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users", adminToken, newUser(" Sana ", "Sana@City.test", user.RoleAccountant, "Pa$$w0rd!"))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var usr user.User
		unmarshal(t, rec, &usr)
		assert.Equal(t, school.ID, usr.TenantID)
		assert.Equal(t, "Sana", usr.Name)
		assert.Equal(t, "sana@city.test", usr.Email)
		assert.True(t, usr.IsActive)
		assert.NotContains(t, rec.Body.String(), "password")
	})
}

func Test_userApi_userDetail(t *testing.T) {
	app := setup(t)

	school := testutil.CreateTenant(t, tenantRepo, "City School", "city.test")
	other := testutil.CreateTenant(t, tenantRepo, "Other School", "other.test")
	admin := testutil.CreateUser(t, usrRepo, school.ID, "Admin", "admin@city.test", "", user.RoleCampusAdmin, true)
	accountant := testutil.CreateUser(t, usrRepo, school.ID, "Kashif", "kashif@city.test", "", user.RoleAccountant, true)
	viewer := testutil.CreateUser(t, usrRepo, school.ID, "Zara", "zara@city.test", "", user.RoleViewer, true)
	stranger := testutil.CreateUser(t, usrRepo, other.ID, "Stranger", "stranger@other.test", "", user.RoleViewer, true)

	adminToken := getToken(t, admin)
	viewerToken := getToken(t, viewer)
	notFound := marchallObj(t, httpErr{Error: "not found"})

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/users/" + viewer.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "self", method: http.MethodGet, path: "/v1/users/" + viewer.ID, token: viewerToken, wantCode: http.StatusOK, wantData: marchallObj(t, viewer)},
		{name: "me", method: http.MethodGet, path: "/v1/users/me", token: viewerToken, wantCode: http.StatusOK, wantData: marchallObj(t, viewer)},
		{name: "someone else (non admin)", method: http.MethodGet, path: "/v1/users/" + accountant.ID, token: viewerToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "someone else (admin)", method: http.MethodGet, path: "/v1/users/" + accountant.ID, token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, accountant)},
		{name: "other tenant", method: http.MethodGet, path: "/v1/users/" + stranger.ID, token: adminToken, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "non admin cannot change role", method: http.MethodPut, path: "/v1/users/" + viewer.ID, token: viewerToken,
			body: marchallObj(t, map[string]string{"role": user.RoleCampusAdmin}), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "cannot delete self", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "non admin cannot delete", method: http.MethodDelete, path: "/v1/users/" + viewer.ID, token: viewerToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("self update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+viewer.ID, viewerToken, marchallObj(t, map[string]string{"name": "Zara Khan"}))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var usr user.User
		unmarshal(t, rec, &usr)
		assert.Equal(t, "Zara Khan", usr.Name)
		assert.Equal(t, viewer.Email, usr.Email)
		assert.Equal(t, viewer.Role, usr.Role)
	})

	t.Run("admin deactivates", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{"isActive": false})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+accountant.ID, adminToken, body)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var usr user.User
		unmarshal(t, rec, &usr)
		assert.False(t, usr.IsActive)
	})

	t.Run("admin deletes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+viewer.ID, adminToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		req, rec = newAuthRequest(http.MethodGet, "/v1/users/"+viewer.ID, adminToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_userApi_queryRoles(t *testing.T) {
	app := setup(t)

	school := testutil.CreateTenant(t, tenantRepo, "City School", "city.test")
	admin := testutil.CreateUser(t, usrRepo, school.ID, "Admin", "admin@city.test", "", user.RoleCampusAdmin, true)

	tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)}
	req, rec := newAuthRequest(http.MethodGet, "/v1/users/roles", getToken(t, admin))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}
