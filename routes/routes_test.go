package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aurora-shield/aurora-shield/controllers"
	"github.com/aurora-shield/aurora-shield/database"
	"github.com/aurora-shield/aurora-shield/geo"
	"github.com/aurora-shield/aurora-shield/models"
	"github.com/aurora-shield/aurora-shield/ratelimit"
	"github.com/aurora-shield/aurora-shield/services"
	"github.com/aurora-shield/aurora-shield/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

const strongPassword = "Abcdef1!"

type testApp struct {
	router *gin.Engine
	store  database.Store
	now    time.Time
}

func newTestApp(t *testing.T, limiter ratelimit.Limiter) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := &testApp{now: time.Date(2026, 3, 8, 14, 30, 0, 0, time.UTC)}
	clock := func() time.Time { return app.now }

	store, err := database.NewSQLiteStore(":memory:", database.Options{Location: time.UTC, Now: clock})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	app.store = store

	logger := zap.NewNop()
	sessions := session.NewManager(session.NewMemoryStore().WithClock(clock), "test-secret", time.Hour).WithClock(clock)
	users := services.NewUserService(store, logger).WithCost(bcrypt.MinCost)
	guardian := services.NewLoginGuardian(store, sessions, geo.StaticLocator{}, services.DefaultLockoutPolicy, logger).WithClock(clock)

	router, err := NewRouter(logger, nil)
	require.NoError(t, err)
	SetupRoutes(router, Handlers{
		Auth:    controllers.NewAuthController(users, guardian, sessions, controllers.CookieSettings{}, "/mulher", logger),
		User:    controllers.NewUserController(users, logger),
		Alert:   controllers.NewAlertController(store, logger),
		Contact: controllers.NewContactController(store, logger),
		Health:  controllers.NewHealthController(store, logger),
	}, limiter, logger)
	app.router = router
	return app
}

func (a *testApp) do(method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.RemoteAddr = "203.0.113.7:40000"
	if cookie != nil {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) register(t *testing.T, name, email string) {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"email":%q,"password":%q}`, name, email, strongPassword)
	w := a.do(http.MethodPost, "/register", body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func (a *testApp) login(email, password string) *httptest.ResponseRecorder {
	return a.do(http.MethodPost, "/login", fmt.Sprintf(`{"email":%q,"password":%q}`, email, password), nil)
}

func (a *testApp) loginCookie(t *testing.T, email string) *http.Cookie {
	t.Helper()
	w := a.login(email, strongPassword)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return sessionCookie(t, w)
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == controllers.SessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", controllers.SessionCookie)
	return nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestLockoutScenario(t *testing.T) {
	app := newTestApp(t, ratelimit.Unlimited{})

	w := app.do(http.MethodPost, "/register", `{"name":"Ana","email":"ana@demo.com","password":"Abcdef1!"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/login", decode(t, w)["redirect"])

	for i := 0; i < 5; i++ {
		w := app.login("ana@demo.com", "wrong-password")
		require.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i+1)
		assert.Equal(t, "INVALID_CREDENTIALS", decode(t, w)["code"])
	}

	w = app.login("ana@demo.com", strongPassword)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ACCOUNT_LOCKED", decode(t, w)["code"])

	app.now = app.now.Add(services.DefaultLockoutPolicy.Duration + time.Second)

	w = app.login("ana@demo.com", strongPassword)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "/mulher", body["redirect"])

	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	user, err := app.store.UserByEmail(context.Background(), "ana@demo.com")
	require.NoError(t, err)
	assert.Equal(t, 0, user.FailedAttempts)
	assert.Nil(t, user.LockedUntil)
}

func TestLoginUnknownEmailMatchesWrongPassword(t *testing.T) {
	app := newTestApp(t, ratelimit.Unlimited{})
	app.register(t, "Ana", "ana@demo.com")

	wrong := app.login("ana@demo.com", "Wrong123!")
	unknown := app.login("nobody@demo.com", "Wrong123!")

	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
	assert.Empty(t, unknown.Result().Cookies())
}

func TestLoginRequiresFields(t *testing.T) {
	app := newTestApp(t, ratelimit.Unlimited{})

	w := app.do(http.MethodPost, "/login", `{"email":"ana@demo.com"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email and password are required", decode(t, w)["message"])
}

func TestRegisterRejectsDuplicateAndWeakInput(t *testing.T) {
	app := newTestApp(t, ratelimit.Unlimited{})
	app.register(t, "Ana", "ana@demo.com")

	w := app.do(http.MethodPost, "/register", `{"name":"Ana","email":"ANA@demo.com","password":"Abcdef1!"}`, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decode(t, w)["code"])

	w = app.do(http.MethodPost, "/register", `{"name":"Bia","email":"bia@demo.com","password":"short"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w)["code"])
}

func TestContactsRequireSession(t *testing.T) {
	app := newTestApp(t, ratelimit.Unlimited{})

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		w := app.do(method, "/api/contacts", `{"name":"x","phone":"1"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, method)
	}

	w := app.do(http.MethodGet, "/api/contacts", "", &http.Cookie{Name: controllers.SessionCookie, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestContactsAreOwnerScoped(t *testing.T) {
	app := newTestApp(t, ratelimit.Unlimited{})
	app.register(t, "Ana", "ana@demo.com")
	app.register(t, "Bia", "bia@demo.com")
	ana := app.loginCookie(t, "ana@demo.com")
	bia := app.loginCookie(t, "bia@demo.com")

	w := app.do(http.MethodGet, "/api/contacts", "", ana)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = app.do(http.MethodPost, "/api/contacts", `{"name":"Cleci","phone":"(11) 99999-9999","relationship":"Sister"}`, ana)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	id := uint(decode(t, w)["id"].(float64))
	require.NotZero(t, id)

	update := fmt.Sprintf(`{"id":%d,"name":"Hacked","phone":"000"}`, id)
	w = app.do(http.MethodPut, "/api/contacts", update, bia)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodDelete, fmt.Sprintf("/api/contacts?id=%d", id), "", bia)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodGet, "/api/contacts", "", bia)
	assert.JSONEq(t, `[]`, w.Body.String())

	var contacts []models.Contact
	w = app.do(http.MethodGet, "/api/contacts", "", ana)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &contacts))
	require.Len(t, contacts, 1)
	assert.Equal(t, "Cleci", contacts[0].Name)

	update = fmt.Sprintf(`{"id":%d,"name":"Cleci Souza","phone":"11999999999","email":"cleci@demo.com"}`, id)
	w = app.do(http.MethodPut, "/api/contacts", update, ana)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(http.MethodGet, "/api/contacts", "", ana)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &contacts))
	require.Len(t, contacts, 1)
	assert.Equal(t, "Cleci Souza", contacts[0].Name)
	assert.Equal(t, "", contacts[0].Relationship)

	w = app.do(http.MethodDelete, "/api/contacts?id=abc", "", ana)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodDelete, fmt.Sprintf("/api/contacts?id=%d", id), "", ana)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodGet, "/api/contacts", "", ana)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestPanicAndHistory(t *testing.T) {
	app := newTestApp(t, ratelimit.Unlimited{})

	w := app.do(http.MethodPost, "/api/panic", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, "/api/panic", `{"message":"help","lat":-23.5505,"lng":"-46.6333"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ok", decode(t, w)["status"])

	app.now = app.now.Add(time.Minute)
	w = app.do(http.MethodPost, "/api/panic", `{"name":"Ana","situation":"Followed"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodGet, "/history_json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var alerts []models.Alert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alerts))
	require.Len(t, alerts, 2)

	assert.Equal(t, "Ana", alerts[0].Name)
	assert.Equal(t, "Followed", alerts[0].Situation)
	assert.Equal(t, "08/03/2026 14:31:00", alerts[0].Date)

	assert.Equal(t, controllers.DefaultAlertName, alerts[1].Name)
	assert.Equal(t, controllers.DefaultAlertSituation, alerts[1].Situation)
	assert.Equal(t, "-23.5505", alerts[1].Lat)
	assert.Equal(t, "-46.6333", alerts[1].Lng)
}

func TestHistoryIsEmptyArray(t *testing.T) {
	app := newTestApp(t, ratelimit.Unlimited{})

	w := app.do(http.MethodGet, "/history_json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestLogoutRevokesSession(t *testing.T) {
	app := newTestApp(t, ratelimit.Unlimited{})
	app.register(t, "Ana", "ana@demo.com")
	cookie := app.loginCookie(t, "ana@demo.com")

	w := app.do(http.MethodGet, "/api/me", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "ana@demo.com", user["email"])

	w = app.do(http.MethodPost, "/logout", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/", decode(t, w)["redirect"])
	assert.Empty(t, sessionCookie(t, w).Value)

	w = app.do(http.MethodGet, "/api/me", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodGet, "/logout", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionExpires(t *testing.T) {
	app := newTestApp(t, ratelimit.Unlimited{})
	app.register(t, "Ana", "ana@demo.com")
	cookie := app.loginCookie(t, "ana@demo.com")

	app.now = app.now.Add(time.Hour + time.Second)

	w := app.do(http.MethodGet, "/api/contacts", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRateLimited(t *testing.T) {
	now := time.Date(2026, 3, 8, 14, 30, 0, 0, time.UTC)
	app := newTestApp(t, ratelimit.NewMemoryLimiter().WithClock(func() time.Time { return now }))

	for i := 0; i < ratelimit.LoginRule.Limit; i++ {
		w := app.login("nobody@demo.com", "Wrong123!")
		require.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i+1)
	}

	w := app.login("nobody@demo.com", "Wrong123!")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "TOO_MANY_REQUESTS", decode(t, w)["code"])
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, ratelimit.Unlimited{})

	w := app.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRouterLogsRecoveredPanics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)

	router, err := NewRouter(zap.New(core), nil)
	require.NoError(t, err)
	router.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
	requests := logs.FilterMessage("request").All()
	require.Len(t, requests, 1)
	assert.Equal(t, int64(http.StatusInternalServerError), requests[0].ContextMap()["status"])
	assert.Equal(t, "/boom", requests[0].ContextMap()["path"])
}
