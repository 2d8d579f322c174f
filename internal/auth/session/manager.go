package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/srithedesigner/credmatrix-backend/internal/config"
)

const DefaultCookieName = "cm_refresh"

// Manager manages the refresh token cookie. Clients without cookies send
// the token in the request body instead.
type Manager struct {
	cookieName string
	path       string
	secure     bool
}

func NewManager(cfg config.Config) *Manager {
	return &Manager{
		cookieName: DefaultCookieName,
		path:       "/auth",
		secure:     cfg.IsProduction(),
	}
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

// ReadToken prefers the explicit token and falls back to the cookie.
func (m *Manager) ReadToken(c *gin.Context, explicit string) (string, bool) {
	if token := strings.TrimSpace(explicit); token != "" {
		return token, true
	}
	token, err := c.Cookie(m.cookieName)
	if err != nil || strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}

func (m *Manager) Set(c *gin.Context, value string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(m.cookieName, value, maxAge, m.path, "", m.secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(m.cookieName, "", -1, m.path, "", m.secure, true)
}
