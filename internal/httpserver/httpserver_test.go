package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Runteryaa/RunStore/internal/models"
	"github.com/Runteryaa/RunStore/internal/repo"
	"github.com/Runteryaa/RunStore/internal/service"
	"github.com/Runteryaa/RunStore/internal/tokens"
	"github.com/Runteryaa/RunStore/internal/transport"
)

var testSecret = []byte("test-jwt-secret")

type testEnv struct {
	e  *echo.Echo
	rp *repo.GormRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.App{}))

	rp := &repo.GormRepo{DB: db}

	e := echo.New()
	Register(e, &Deps{
		AuthHandler: &AuthHTTP{
			Svc: &service.AuthService{Repo: rp, JWTSecret: testSecret, TokenTTL: time.Hour},
		},
		AppHandler: &AppHTTP{
			Svc: &service.AppService{Repo: rp},
		},
		JWTSecret: testSecret,
	})

	return &testEnv{e: e, rp: rp}
}

func (env *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) registerUser(t *testing.T, email, name string) transport.AuthResponse {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/api/auth/register",
		`{"email":"`+email+`","password":"Secret123","name":"`+name+`"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp transport.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// adminToken seeds an admin row directly and signs a token for it, the
// way the process seed does at startup.
func (env *testEnv) adminToken(t *testing.T) string {
	t.Helper()

	admin := &models.User{
		ID:           uuid.NewString(),
		Email:        "admin-" + uuid.NewString() + "@runstore.com",
		PasswordHash: "irrelevant",
		Name:         "Admin User",
		Role:         models.RoleAdmin,
	}
	require.NoError(t, env.rp.CreateUser(t.Context(), admin))

	token, err := tokens.Create(testSecret, admin.ID, admin.Role, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return token
}

const validAppBody = `{
	"name": "Foo",
	"packageName": "com.a.b",
	"description": "a sufficiently long description",
	"version": "1.0",
	"iconUrl": "https://cdn.example.com/icon.png",
	"apkUrl": "https://cdn.example.com/foo.apk",
	"fileSize": 1024
}`

func TestRegister_Login_Me_Flow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	reg := env.registerUser(t, "alice@example.com", "Alice")
	require.NotEmpty(t, reg.Token)
	assert.Equal(t, "alice@example.com", reg.User.Email)
	assert.Equal(t, models.RoleUser, reg.User.Role)

	rec := env.do(t, http.MethodPost, "/api/auth/login",
		`{"email":"alice@example.com","password":"Secret123"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login transport.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.Equal(t, reg.User.ID, login.User.ID)

	rec = env.do(t, http.MethodGet, "/api/auth/me", "", login.Token)
	require.Equal(t, http.StatusOK, rec.Code)

	var me transport.UserView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, reg.User.ID, me.ID)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRegister_DuplicateEmail_Conflict(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.registerUser(t, "bob@example.com", "Bob")

	rec := env.do(t, http.MethodPost, "/api/auth/register",
		`{"email":"bob@example.com","password":"Secret123","name":"Bobby"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin_BadCredentials_Indistinguishable(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.registerUser(t, "carol@example.com", "Carol")

	wrongPw := env.do(t, http.MethodPost, "/api/auth/login",
		`{"email":"carol@example.com","password":"WrongPw1"}`, "")
	unknown := env.do(t, http.MethodPost, "/api/auth/login",
		`{"email":"nobody@example.com","password":"Secret123"}`, "")

	assert.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrongPw.Body.String(), unknown.Body.String())
}

func TestMe_WithoutToken_Unauthorized(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateApp_RequiresAuth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/apps", validAppBody, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/apps", validAppBody, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateApp_ValidationError(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	user := env.registerUser(t, "dev@example.com", "Dev")
	rec := env.do(t, http.MethodPost, "/api/apps",
		`{"name":"F","packageName":"com.a.b","description":"a sufficiently long description","version":"1.0","iconUrl":"https://x.com/i.png","apkUrl":"https://x.com/a.apk"}`,
		user.Token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmissionLifecycle_EndToEnd(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	user := env.registerUser(t, "uploader@example.com", "Uploader")

	rec := env.do(t, http.MethodPost, "/api/apps", validAppBody, user.Token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.App
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Equal(t, "Uploader", created.UploaderName)

	// Pending list and my apps include it; approved list does not.
	listApps := func(query string) []models.App {
		rec := env.do(t, http.MethodGet, "/api/apps"+query, "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var apps []models.App
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apps))
		return apps
	}

	require.Len(t, listApps("?status=pending"), 1)
	require.Len(t, listApps("?status=approved"), 0)

	rec = env.do(t, http.MethodGet, "/api/apps/mine", "", user.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []models.App
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)

	// Non-admin may not decide.
	rec = env.do(t, http.MethodPatch, "/api/apps/"+created.ID+"/status",
		`{"status":"approved"}`, user.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin approves.
	admin := env.adminToken(t)
	time.Sleep(2 * time.Millisecond)
	rec = env.do(t, http.MethodPatch, "/api/apps/"+created.ID+"/status",
		`{"status":"approved"}`, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var approved models.App
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approved))
	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.Nil(t, approved.RejectionReason)
	assert.True(t, approved.UpdatedAt.After(created.UpdatedAt))

	require.Len(t, listApps("?status=approved"), 1)
	require.Len(t, listApps("?status=pending"), 0)

	// Rejection with a reason keeps it verbatim.
	rec = env.do(t, http.MethodPatch, "/api/apps/"+created.ID+"/status",
		`{"status":"rejected","rejectionReason":"broken build"}`, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var rejected models.App
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rejected))
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "broken build", *rejected.RejectionReason)
}

func TestDownload_PublicAndUnconditional(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	user := env.registerUser(t, "pub@example.com", "Publisher")
	rec := env.do(t, http.MethodPost, "/api/apps", validAppBody, user.Token)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.App
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// No credential, still pending, still counts.
	rec = env.do(t, http.MethodPost, "/api/apps/"+created.ID+"/download", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var counted models.App
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counted))
	assert.EqualValues(t, 1, counted.Downloads)
	assert.Equal(t, models.StatusPending, counted.Status)
}

func TestGetApp_NotFound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/apps/no-such-app", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/apps/no-such-app/download", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStatus_UnknownApp_NotFound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/api/apps/no-such-app/status",
		`{"status":"approved"}`, env.adminToken(t))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch_PublicAndCaseInsensitive(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	user := env.registerUser(t, "search@example.com", "Searcher")

	body := strings.Replace(validAppBody, `"Foo"`, `"Weather Radar"`, 1)
	rec := env.do(t, http.MethodPost, "/api/apps", body, user.Token)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/apps?search=wEaThEr", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var apps []models.App
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apps))
	require.Len(t, apps, 1)
	assert.Equal(t, "Weather Radar", apps[0].Name)
}
