package web

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	cookiemonster "github.com/MercuryEngineering/CookieMonster"
)

// LoadCookieFile reads a Netscape cookies.txt file, as exported by browser
// extensions, into jar.
func LoadCookieFile(jar http.CookieJar, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("opening cookie file: %w", err)
	}

	cookies, err := cookiemonster.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parsing cookie file %s: %w", path, err)
	}
	for _, c := range cookies {
		u, cookie := jarCookie(c)
		jar.SetCookies(u, []*http.Cookie{cookie})
	}
	return nil
}

// jarCookie turns a cookies.txt row into the URL and cookie a jar expects.
// A leading dot on the domain marks a cookie shared with subdomains, the rest
// are host only.
func jarCookie(c *http.Cookie) (*url.URL, *http.Cookie) {
	host := strings.TrimPrefix(c.Domain, ".")

	scheme := "http"
	if c.Secure {
		scheme = "https"
	}

	out := *c
	out.Domain = ""
	if strings.HasPrefix(c.Domain, ".") {
		out.Domain = host
	}
	if out.Path == "" {
		out.Path = "/"
	}
	return &url.URL{Scheme: scheme, Host: host, Path: out.Path}, &out
}
