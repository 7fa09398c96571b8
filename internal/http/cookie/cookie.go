// Package cookie выставляет и очищает cookie с токенами.
package cookie

import (
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/account-service/internal/models"
)

const (
	AccessTokenName  = "accessToken"
	RefreshTokenName = "refreshToken"
)

// Options задаёт атрибуты cookie. Cookie всегда HttpOnly.
type Options struct {
	Secure     bool
	SameSite   http.SameSite
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ParseSameSite переводит строку из конфига в http.SameSite. По умолчанию Lax.
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// SetTokens выставляет обе cookie с токенами.
func (o Options) SetTokens(w http.ResponseWriter, pair *models.TokenPair) {
	http.SetCookie(w, o.cookie(AccessTokenName, pair.AccessToken, o.AccessTTL))
	http.SetCookie(w, o.cookie(RefreshTokenName, pair.RefreshToken, o.RefreshTTL))
}

// Clear удаляет обе cookie у клиента.
func (o Options) Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenName, RefreshTokenName} {
		c := o.cookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

// Read возвращает значение cookie или пустую строку.
func Read(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (o Options) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.SameSite,
		MaxAge:   int(ttl.Seconds()),
	}
}
