package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ctem-enterprise/internal/models"
	"ctem-enterprise/internal/testutil"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newEngine mounts /as/:id/:role which stores a session, plus the guarded
// routes under test.
func newEngine(db *gorm.DB) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("test-secret"))))
	if db != nil {
		r.Use(InjectUser(db))
	}

	r.GET("/as/:id/:role", func(c *gin.Context) {
		var id uint
		for _, ch := range c.Param("id") {
			id = id*10 + uint(ch-'0')
		}
		s := sessions.Default(c)
		s.Set("user_id", id)
		s.Set("role", c.Param("role"))
		_ = s.Save()
		c.Status(http.StatusNoContent)
	})
	r.GET("/private", RequireAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/admin", RequireRole(models.RoleAdmin, models.RoleEngineer), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/me", func(c *gin.Context) {
		u, ok := c.Get("CurrentUser")
		if !ok {
			c.Status(http.StatusNotFound)
			return
		}
		c.String(http.StatusOK, u.(models.User).Username)
	})
	return r
}

func sessionCookie(t *testing.T, r http.Handler, path string) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func get(r http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r := newEngine(nil)

	w := get(r, "/private", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, w.Body.String())

	ck := sessionCookie(t, r, "/as/1/viewer")
	assert.Equal(t, http.StatusOK, get(r, "/private", ck).Code)
}

func TestRequireRole(t *testing.T) {
	r := newEngine(nil)

	tests := []struct {
		name string
		role string
		want int
	}{
		{"no session", "", http.StatusUnauthorized},
		{"admin", "admin", http.StatusOK},
		{"engineer", "engineer", http.StatusOK},
		{"viewer", "viewer", http.StatusForbidden},
		{"analyst", "analyst", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ck *http.Cookie
			if tt.role != "" {
				ck = sessionCookie(t, r, "/as/1/"+tt.role)
			}
			assert.Equal(t, tt.want, get(r, "/admin", ck).Code)
		})
	}
}

func TestInjectUser(t *testing.T) {
	db := testutil.NewSeededDB(t)
	r := newEngine(db)

	var admin models.User
	require.NoError(t, db.Where("username = ?", "admin@test.local").First(&admin).Error)
	require.Equal(t, uint(1), admin.ID)

	assert.Equal(t, http.StatusNotFound, get(r, "/me", nil).Code)

	w := get(r, "/me", sessionCookie(t, r, "/as/1/admin"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin@test.local", w.Body.String())

	// unknown ids leave the context empty
	assert.Equal(t, http.StatusNotFound, get(r, "/me", sessionCookie(t, r, "/as/999/admin")).Code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
}

func TestCORSWildcard(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"*"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://anything.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "http://anything.example", w.Header().Get("Access-Control-Allow-Origin"))
}
