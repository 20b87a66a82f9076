package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tally/internal/config"
)

const DefaultCookieName = "_sid"

// Manager moves the signed session token between the HTTP layer and the
// identity accessor. API clients send it as a bearer token, the browser
// app as an HttpOnly cookie.
type Manager struct {
	cookieName string
	secure     bool
	now        func() time.Time
}

func NewManager(cfg config.Config) *Manager {
	return &Manager{
		cookieName: DefaultCookieName,
		secure:     cfg.AuthCookieSecure,
		now:        time.Now,
	}
}

// ReadToken prefers an Authorization bearer token and falls back to the cookie.
func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
		return token, true
	}
	cookie, err := c.Request.Cookie(m.cookieName)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(cookie.Value)
	return token, token != ""
}

// Set stores the token in a cookie that expires with it.
func (m *Manager) Set(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(expiresAt.Sub(m.now()).Seconds())
	if maxAge <= 0 {
		m.Clear(c)
		return
	}
	http.SetCookie(c.Writer, m.cookie(token, maxAge))
}

func (m *Manager) Clear(c *gin.Context) {
	http.SetCookie(c.Writer, m.cookie("", -1))
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func bearerToken(header string) (string, bool) {
	scheme, value, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
