package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tally/internal/config"
)

func newContext(req *http.Request) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	return c
}

func TestReadTokenPrefersBearer(t *testing.T) {
	m := NewManager(config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "cookie"})

	token, ok := m.ReadToken(newContext(req))
	if !ok || token != "abc" {
		t.Fatalf("expected bearer token, got %q ok=%v", token, ok)
	}
}

func TestReadTokenFallsBackToCookie(t *testing.T) {
	m := NewManager(config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic Zm9v")
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "cookie"})

	token, ok := m.ReadToken(newContext(req))
	if !ok || token != "cookie" {
		t.Fatalf("expected cookie token, got %q ok=%v", token, ok)
	}
}

func TestReadTokenMissing(t *testing.T) {
	m := NewManager(config.Config{})
	if _, ok := m.ReadToken(newContext(httptest.NewRequest(http.MethodGet, "/", nil))); ok {
		t.Fatalf("expected no token")
	}
}

func TestSetWritesHttpOnlyCookie(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager(config.Config{AuthCookieSecure: true})
	m.now = func() time.Time { return now }

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	m.Set(c, "tok", now.Add(time.Hour))

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	got := cookies[0]
	if got.Name != DefaultCookieName || got.Value != "tok" || got.MaxAge != 3600 {
		t.Fatalf("unexpected cookie %+v", got)
	}
	if !got.HttpOnly || !got.Secure || got.SameSite != http.SameSiteLaxMode {
		t.Fatalf("expected hardened cookie, got %+v", got)
	}
}

func TestSetExpiredTokenClears(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager(config.Config{})
	m.now = func() time.Time { return now }

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	m.Set(c, "tok", now.Add(-time.Minute))

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "" || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected clearing cookie, got %+v", cookies)
	}
}
