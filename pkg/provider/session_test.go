package provider

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidshard/ledgersync/pkg/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestSessionFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	f, err := NewSessionFile(path, testSecret)
	require.NoError(t, err)

	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	s := domain.NewSession(time.Hour)
	s.Add("https://paseli.konami.net/charge/top.html", &http.Cookie{
		Name:     "sessionid",
		Value:    "abc",
		Path:     "/charge",
		Domain:   "paseli.konami.net",
		Expires:  expires,
		Secure:   true,
		HttpOnly: true,
	})
	require.NoError(t, f.Save(s))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sessionid")

	got, err := f.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Cookies, 1)
	assert.Equal(t, "https://paseli.konami.net/charge/top.html", got.Cookies[0].URL)
	assert.Equal(t, &http.Cookie{
		Name:     "sessionid",
		Value:    "abc",
		Path:     "/charge",
		Domain:   "paseli.konami.net",
		Expires:  time.Unix(expires.Unix(), 0),
		Secure:   true,
		HttpOnly: true,
	}, got.Cookies[0].HTTPCookie())
}

func TestSessionFileMissing(t *testing.T) {
	f, err := NewSessionFile(filepath.Join(t.TempDir(), "session"), testSecret)
	require.NoError(t, err)

	s, err := f.Load()
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestSessionFileExpired(t *testing.T) {
	f, err := NewSessionFile(filepath.Join(t.TempDir(), "session"), testSecret)
	require.NoError(t, err)

	require.NoError(t, f.Save(domain.NewSession(-time.Minute)))

	s, err := f.Load()
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestSessionFileWrongSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	f, err := NewSessionFile(path, testSecret)
	require.NoError(t, err)
	require.NoError(t, f.Save(domain.NewSession(time.Hour)))

	other, err := NewSessionFile(path, "fedcba9876543210fedcba9876543210")
	require.NoError(t, err)
	_, err = other.Load()
	assert.Error(t, err)
}

func TestNewSessionFileShortSecret(t *testing.T) {
	_, err := NewSessionFile("x", "short")
	assert.Error(t, err)
}
