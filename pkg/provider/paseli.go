package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/voidshard/ledgersync/pkg/domain"
	"github.com/voidshard/ledgersync/pkg/web"
)

// https://paseli.konami.net/charge/

const (
	paseliChargeURL = "https://paseli.konami.net/charge"
	paseliAuthURL   = "https://account.konami.net/auth/login.html"

	sessionTTL = 12 * time.Hour
)

// ErrLogin is returned when the site does not accept our credentials or
// cookies.
var ErrLogin = errors.New("login failed")

// check it meets the interface
var _ Provider = &Paseli{}

// Balance is the money and points left on the account.
type Balance struct {
	Balance int64 `json:"balance"`
	Points  int64 `json:"points"`
}

// Paseli scrapes the PASELI (e-amusement prepaid) charge site.
type Paseli struct {
	username string
	password string

	chargeURL string
	authURL   string

	client   *web.Client
	session  *SessionFile
	log      zerolog.Logger
	userName string
}

type PaseliOption func(*Paseli)

// WithEndpoints points the client at other hosts, for tests.
func WithEndpoints(chargeURL, authURL string) PaseliOption {
	return func(p *Paseli) {
		p.chargeURL = strings.TrimRight(chargeURL, "/")
		p.authURL = authURL
	}
}

// WithSession keeps login cookies in f between runs.
func WithSession(f *SessionFile) PaseliOption {
	return func(p *Paseli) { p.session = f }
}

func WithPaseliLogger(log zerolog.Logger) PaseliOption {
	return func(p *Paseli) { p.log = log }
}

func NewPaseli(username, password string, opts ...PaseliOption) (*Paseli, error) {
	p := &Paseli{
		username:  username,
		password:  password,
		chargeURL: paseliChargeURL,
		authURL:   paseliAuthURL,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	client, err := web.NewClient(web.WithLogger(p.log))
	if err != nil {
		return nil, err
	}
	p.client = client

	return p, nil
}

// UserName is the account holder's display name, known after Login.
func (p *Paseli) UserName() string {
	return p.userName
}

// Login signs in, reusing a stored session when one is still accepted.
func (p *Paseli) Login(ctx context.Context) error {
	if p.userName != "" {
		return nil
	}

	if p.restoreSession(ctx) {
		p.log.Info().Str("user", p.userName).Msg("resumed PASELI session")
		return nil
	}

	p.log.Info().Msg("logging in to PASELI account")
	if err := p.login(ctx); err != nil {
		return err
	}
	p.log.Info().Str("user", p.userName).Msg("logged in to PASELI")

	p.saveSession()
	return nil
}

func (p *Paseli) login(ctx context.Context) error {
	// the login form wants the cookie the charge top hands out
	resp, err := p.client.Get(ctx, p.chargeURL, nil)
	if err != nil {
		return fmt.Errorf("%w: initialising login cookie: %v", ErrLogin, err)
	}
	if !resp.OK() {
		return fmt.Errorf("%w: failed to initialize login cookie, code: %d", ErrLogin, resp.StatusCode)
	}

	resp, err = p.client.Get(web.Follow(ctx), p.chargeURL+"/login.html", nil)
	if err != nil {
		return fmt.Errorf("%w: getting login page: %v", ErrLogin, err)
	}
	if !resp.OK() {
		return fmt.Errorf("%w: failed to get login page, code: %d", ErrLogin, resp.StatusCode)
	}
	token, err := parseCSRFToken(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLogin, err)
	}
	p.log.Debug().Str("csrf", token).Msg("got login token")

	form := url.Values{
		"csrfmiddlewaretoken": {token},
		"userId":              {p.username},
		"password":            {p.password},
		"otpass":              {""},
	}
	resp, err = p.client.PostForm(ctx, p.authURL, form, http.Header{"Referer": {p.authURL}})
	if err != nil {
		return fmt.Errorf("%w: posting credentials: %v", ErrLogin, err)
	}
	if !resp.Redirect() {
		return fmt.Errorf("%w: expected redirect after posting credentials, code: %d", ErrLogin, resp.StatusCode)
	}

	next, err := resp.Location()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLogin, err)
	}
	resp, err = p.client.Get(ctx, next, nil)
	if err != nil {
		return fmt.Errorf("%w: following login redirect: %v", ErrLogin, err)
	}
	if !resp.Redirect() {
		return fmt.Errorf("%w: failed to follow redirect after login, code: %d", ErrLogin, resp.StatusCode)
	}

	name, err := p.fetchUserName(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLogin, err)
	}
	p.userName = name
	return nil
}

func (p *Paseli) fetchUserName(ctx context.Context) (string, error) {
	resp, err := p.client.Get(ctx, p.chargeURL+"/top.html", nil)
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", fmt.Errorf("%w: failed to get top page, code: %d", web.ErrStatus, resp.StatusCode)
	}
	return parseUserName(resp.Body)
}

func (p *Paseli) restoreSession(ctx context.Context) bool {
	if p.session == nil {
		return false
	}

	s, err := p.session.Load()
	if err != nil {
		p.log.Warn().Err(err).Msg("ignoring stored session")
		return false
	}
	if s == nil {
		return false
	}

	for _, c := range s.Cookies {
		u, err := url.Parse(c.URL)
		if err != nil {
			p.log.Warn().Err(err).Str("url", c.URL).Msg("skipping stored cookie")
			continue
		}
		p.client.Jar().SetCookies(u, []*http.Cookie{c.HTTPCookie()})
	}

	name, err := p.fetchUserName(ctx)
	if err != nil {
		p.log.Debug().Err(err).Msg("stored session rejected")
		// stale cookies must not leak into the fresh login
		if err := p.client.ResetCookies(); err != nil {
			p.log.Warn().Err(err).Msg("failed to reset cookies")
		}
		return false
	}
	p.userName = name
	return true
}

func (p *Paseli) saveSession() {
	if p.session == nil {
		return
	}

	s := domain.NewSession(sessionTTL)
	for _, ic := range p.client.Issued() {
		s.Add(ic.URL, ic.Cookie)
	}

	if err := p.session.Save(s); err != nil {
		p.log.Warn().Err(err).Msg("failed to store session")
	}
}

// History returns the charge & payment history in page order.
func (p *Paseli) History(ctx context.Context) ([]*domain.Record, error) {
	if err := p.Login(ctx); err != nil {
		return nil, err
	}

	resp, err := p.client.Get(ctx, p.chargeURL+"/his01.html", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: failed to get history page, code: %d", web.ErrStatus, resp.StatusCode)
	}

	records, err := parseHistory(resp.Body)
	if err != nil {
		return nil, err
	}
	p.log.Debug().Int("records", len(records)).Msg("fetched PASELI history")
	return records, nil
}

// Balance returns the remaining money and points.
func (p *Paseli) Balance(ctx context.Context) (*Balance, error) {
	if err := p.Login(ctx); err != nil {
		return nil, err
	}

	resp, err := p.client.Get(ctx, p.chargeURL+"/top.html", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching balance: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: failed to get balance page, code: %d", web.ErrStatus, resp.StatusCode)
	}
	return parseBalance(resp.Body)
}

func parseCSRFToken(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", err
	}
	token, ok := doc.Find(`input[name="csrfmiddlewaretoken"]`).First().Attr("value")
	if !ok || token == "" {
		return "", fmt.Errorf("csrf token not found on login page")
	}
	return token, nil
}

func parseUserName(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(doc.Find("#header_user > div > strong").First().Text())
	if name == "" {
		return "", fmt.Errorf("user name not found on top page")
	}
	return name, nil
}

func parseBalance(page []byte) (*Balance, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	balance, err := parseAmount(doc.Find("li.remain:nth-child(1) > div:nth-child(2)").First().Text(), "円")
	if err != nil {
		return nil, fmt.Errorf("parsing balance: %w", err)
	}
	points, err := parseAmount(doc.Find("li.remain:nth-child(3) > div:nth-child(2)").First().Text(), "ポイント")
	if err != nil {
		return nil, fmt.Errorf("parsing points: %w", err)
	}
	return &Balance{Balance: balance, Points: points}, nil
}

// parseHistory reads the history list. Each entry is four dd elements:
// date, description, amount and a details link we ignore.
func parseHistory(page []byte) ([]*domain.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	table := doc.Find("#ajax_body > dl:nth-child(2)").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("history table not found")
	}

	cells := table.Find("dd").Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})
	if len(cells)%4 != 0 {
		return nil, fmt.Errorf("history table has %d cells, expected groups of 4", len(cells))
	}

	records := []*domain.Record{}
	for i := 0; i < len(cells); i += 4 {
		date, err := parseDate(cells[i])
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", i/4+1, err)
		}
		amount, err := parseAmount(cells[i+2], "円")
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", i/4+1, err)
		}
		if amount < 0 {
			amount = -amount
		}
		records = append(records, &domain.Record{
			Date:        date,
			Description: cells[i+1],
			Amount:      amount,
		})
	}
	return records, nil
}

var dateLayouts = []string{
	"2006/01/02",
	"2006/1/2",
	"2006-01-02",
	"2006年01月02日",
	"2006年1月2日",
	"2006/01/02 15:04",
	"2006/01/02 15:04:05",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.DateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing date %q", s)
}

// parseAmount reads numbers like "1,000円".
func parseAmount(s, suffix string) (int64, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimSuffix(clean, suffix)
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.TrimPrefix(strings.TrimSpace(clean), "+")
	n, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return n, nil
}
