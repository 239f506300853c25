package domain

import (
	"net/http"
	"time"
)

// Session is a set of login cookies worth keeping between runs.
type Session struct {
	Cookies []*Cookie `json:"cookies"`

	// When the session should be thrown away, in unix time
	Expires int64 `json:"expires"`
}

// Cookie is one cookie as the site set it, with the URL of the response that
// set it.
type Cookie struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	Path     string `json:"path,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Expires  int64  `json:"expires,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	HttpOnly bool   `json:"http_only,omitempty"`
}

// NewSession creates an empty session that expires ttl from now.
func NewSession(ttl time.Duration) *Session {
	return &Session{
		Cookies: []*Cookie{},
		Expires: time.Now().UTC().Add(ttl).Unix(),
	}
}

// HasExpired returns if the time now is past Expires
func (s *Session) HasExpired() bool {
	return time.Now().UTC().Unix() >= s.Expires
}

// Add records a cookie set by the response for rawurl.
func (s *Session) Add(rawurl string, c *http.Cookie) {
	kept := &Cookie{
		URL:      rawurl,
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
	}
	if !c.Expires.IsZero() {
		kept.Expires = c.Expires.Unix()
	}
	s.Cookies = append(s.Cookies, kept)
}

// HTTPCookie rebuilds the cookie for handing back to a jar.
func (c *Cookie) HTTPCookie() *http.Cookie {
	out := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
	}
	if c.Expires != 0 {
		out.Expires = time.Unix(c.Expires, 0)
	}
	return out
}
