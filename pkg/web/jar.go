package web

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// IssuedCookie is a cookie exactly as it was set, with the URL of the
// response that set it. Setting it again for URL recreates the jar entry,
// path and domain scope included.
type IssuedCookie struct {
	URL    string
	Cookie *http.Cookie
}

// recordingJar is a cookiejar that also remembers every live cookie set
// through it; cookiejar.Cookies only hands back name and value.
type recordingJar struct {
	jar *cookiejar.Jar

	mu     sync.Mutex
	issued map[string]IssuedCookie
	order  []string
}

func newRecordingJar() (*recordingJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &recordingJar{jar: jar, issued: map[string]IssuedCookie{}}, nil
}

func (j *recordingJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

func (j *recordingJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)

	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	for _, c := range cookies {
		key := cookieKey(u, c)
		if c.MaxAge < 0 || (!c.Expires.IsZero() && !c.Expires.After(now)) {
			delete(j.issued, key)
			continue
		}

		kept := *c
		if kept.MaxAge > 0 {
			kept.Expires = now.Add(time.Duration(kept.MaxAge) * time.Second)
			kept.MaxAge = 0
		}
		kept.Raw = ""
		kept.Unparsed = nil

		if _, ok := j.issued[key]; !ok {
			j.order = append(j.order, key)
		}
		j.issued[key] = IssuedCookie{URL: u.String(), Cookie: &kept}
	}
}

// Issued returns the live cookies in the order they were first set.
func (j *recordingJar) Issued() []IssuedCookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := []IssuedCookie{}
	now := time.Now()
	for _, key := range j.order {
		ic, ok := j.issued[key]
		if !ok {
			continue
		}
		if !ic.Cookie.Expires.IsZero() && !ic.Cookie.Expires.After(now) {
			continue
		}
		c := *ic.Cookie
		out = append(out, IssuedCookie{URL: ic.URL, Cookie: &c})
	}
	return out
}

// cookieKey identifies a cookie the way a jar does: name, domain and path.
func cookieKey(u *url.URL, c *http.Cookie) string {
	domain := strings.ToLower(strings.TrimPrefix(c.Domain, "."))
	if domain == "" {
		domain = strings.ToLower(u.Hostname())
	}
	path := c.Path
	if path == "" || path[0] != '/' {
		path = defaultPath(u.Path)
	}
	return c.Name + ";" + domain + ";" + path
}

// defaultPath is the path a cookie without a Path attribute is scoped to.
func defaultPath(p string) string {
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return "/"
	}
	return p[:i]
}
