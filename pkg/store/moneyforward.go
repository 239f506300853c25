package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/voidshard/ledgersync/pkg/domain"
	"github.com/voidshard/ledgersync/pkg/web"
)

// https://moneyforward.com/

const (
	mfBaseURL = "https://moneyforward.com"
	mfIDURL   = "https://id.moneyforward.com"

	// the create endpoint answers with a script reloading the page
	mfCreatedBody = "setTimeout('location.reload()',500);"

	mfCSVDate = "2006/01/02"
)

var (
	mfDisplayName = regexp.MustCompile(`gon\.headerDisplayName="([^"]+)"`)
	mfWalletName  = regexp.MustCompile(`^(.*) \([-0-9,]+円\)$`)
)

// check it meets the interface
var _ Store = &MoneyForward{}

// MoneyForward talks to Money Forward ME using cookies exported from a
// logged in browser.
type MoneyForward struct {
	baseURL string
	idURL   string

	client  *web.Client
	log     zerolog.Logger
	catalog *domain.Catalog
}

type MoneyForwardOption func(*MoneyForward)

// WithMoneyForwardEndpoints points the client at other hosts, for tests.
func WithMoneyForwardEndpoints(baseURL, idURL string) MoneyForwardOption {
	return func(m *MoneyForward) {
		m.baseURL = strings.TrimRight(baseURL, "/")
		m.idURL = strings.TrimRight(idURL, "/")
	}
}

func WithMoneyForwardLogger(log zerolog.Logger) MoneyForwardOption {
	return func(m *MoneyForward) { m.log = log }
}

// NewMoneyForward loads the cookies.txt file at cookieFile.
func NewMoneyForward(cookieFile string, opts ...MoneyForwardOption) (*MoneyForward, error) {
	m := &MoneyForward{
		baseURL: mfBaseURL,
		idURL:   mfIDURL,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	client, err := web.NewClient(web.WithLogger(m.log))
	if err != nil {
		return nil, err
	}
	if err := web.LoadCookieFile(client.Jar(), cookieFile); err != nil {
		return nil, err
	}
	m.client = client

	return m, nil
}

// Login checks the cookies are accepted, returning the account's display name.
func (m *MoneyForward) Login(ctx context.Context) (string, error) {
	resp, err := m.client.Get(web.Follow(ctx), m.idURL+"/me", nil)
	if err != nil {
		return "", fmt.Errorf("fetching ID page: %w", err)
	}
	if !resp.OK() {
		return "", fmt.Errorf("%w: failed to get ID page, code: %d", web.ErrStatus, resp.StatusCode)
	}

	match := mfDisplayName.FindSubmatch(resp.Body)
	if match == nil {
		return "", fmt.Errorf("not logged in to Money Forward, check the cookie file")
	}
	name := string(match[1])
	m.log.Info().Str("user", name).Msg("logged in to Money Forward")
	return name, nil
}

func (m *MoneyForward) History(ctx context.Context, wallet string, year int, month time.Month) ([]*domain.Entry, error) {
	params := url.Values{}
	params.Add("account_id_hash", wallet)
	params.Add("from", fmt.Sprintf("%d/%02d/01", year, int(month)))
	params.Add("month", strconv.Itoa(int(month)))
	params.Add("service_id", "0")
	params.Add("year", strconv.Itoa(year))

	resp, err := m.client.Get(web.Follow(ctx), m.baseURL+"/cf/csv?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: failed to fetch history, code: %d", web.ErrStatus, resp.StatusCode)
	}

	entries, err := parseMoneyForwardCSV(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		e.Wallet = wallet
	}
	return entries, nil
}

// Categories scrapes the category menus off the cash flow page. The result
// is cached for the life of the client.
func (m *MoneyForward) Categories(ctx context.Context) (*domain.Catalog, error) {
	if m.catalog != nil {
		return m.catalog, nil
	}

	resp, err := m.client.Get(web.Follow(ctx), m.baseURL+"/cf", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching index page: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: failed to get index page, code: %d", web.ErrStatus, resp.StatusCode)
	}

	catalog, err := parseMoneyForwardCategories(resp.Body)
	if err != nil {
		return nil, err
	}
	m.catalog = catalog
	return catalog, nil
}

func (m *MoneyForward) Create(ctx context.Context, req *domain.CreateRequest) error {
	resp, err := m.client.Get(web.Follow(ctx), m.baseURL+"/accounts/show_manual/"+url.PathEscape(req.Wallet), nil)
	if err != nil {
		return fmt.Errorf("fetching wallet page: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("%w: failed to get wallet page, code: %d", ErrCreateFailed, resp.StatusCode)
	}

	page, err := parseWalletPage(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCreateFailed, err)
	}

	m.log.Info().
		Str("direction", string(req.Direction)).
		Str("date", domain.FormatDate(req.Date)).
		Int64("amount", req.Amount).
		Str("wallet", page.walletName).
		Msg("creating transaction")

	isIncome := "0"
	if req.Direction == domain.Income {
		isIncome = "1"
	}
	form := url.Values{
		"authenticity_token":                  {page.csrf},
		"user_asset_act[is_transfer]":         {"0"},
		"user_asset_act[is_income]":           {isIncome},
		"user_asset_act[payment]":             {"2"},
		"user_asset_act[updated_at]":          {req.Date.Format("2006/01/02")},
		"month":                               {req.Date.Format("2006-01")},
		"user_asset_act[amount]":              {strconv.FormatInt(req.Amount, 10)},
		"user_asset_act[sub_account_id_hash]": {page.subAccount},
		"user_asset_act[large_category_id]":   {strconv.Itoa(req.LargeID)},
		"user_asset_act[middle_category_id]":  {strconv.Itoa(req.MediumID)},
		"user_asset_act[content]":             {req.Description},
	}

	resp, err = m.client.PostForm(ctx, m.baseURL+"/cf/create", form, http.Header{"X-CSRF-Token": {page.csrf}})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCreateFailed, err)
	}
	if !resp.OK() {
		return fmt.Errorf("%w: code: %d", ErrCreateFailed, resp.StatusCode)
	}
	if string(resp.Body) != mfCreatedBody {
		return fmt.Errorf("%w: unexpected response body: %s", ErrCreateFailed, resp.Body)
	}
	return nil
}

type walletPage struct {
	csrf       string
	subAccount string
	walletName string
}

func parseWalletPage(page []byte) (*walletPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	csrf, ok := doc.Find(`meta[name="csrf-token"]`).First().Attr("content")
	if !ok || csrf == "" {
		return nil, fmt.Errorf("csrf token not found on wallet page")
	}

	option := doc.Find(`#user_asset_act_sub_account_id_hash > option[selected="selected"]`).First()
	subAccount, ok := option.Attr("value")
	if !ok || subAccount == "" {
		return nil, fmt.Errorf("selected wallet not found on wallet page")
	}

	name := strings.TrimSpace(option.Text())
	if m := mfWalletName.FindStringSubmatch(name); m != nil {
		name = strings.TrimSpace(m[1])
	}

	return &walletPage{csrf: csrf, subAccount: subAccount, walletName: name}, nil
}

// parseMoneyForwardCategories reads the income (plus) and expense (minus)
// category menus. Medium categories hang two levels below their large one.
func parseMoneyForwardCategories(page []byte) (*domain.Catalog, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	income := doc.Find(".dropdown-menu.main_menu.plus").First()
	expense := doc.Find(".dropdown-menu.main_menu.minus").First()
	if income.Length() == 0 || expense.Length() == 0 {
		return nil, fmt.Errorf("category menus not found on index page")
	}

	incomeCats, err := parseCategoryMenu(income)
	if err != nil {
		return nil, fmt.Errorf("income categories: %w", err)
	}
	expenseCats, err := parseCategoryMenu(expense)
	if err != nil {
		return nil, fmt.Errorf("expense categories: %w", err)
	}
	return &domain.Catalog{Income: incomeCats, Expense: expenseCats}, nil
}

func parseCategoryMenu(menu *goquery.Selection) ([]domain.LargeCategory, error) {
	large := []domain.LargeCategory{}
	index := map[int]int{}

	var err error
	menu.Find("a.l_c_name").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		var id int
		id, err = strconv.Atoi(a.AttrOr("id", ""))
		if err != nil {
			err = fmt.Errorf("large category id: %w", err)
			return false
		}
		index[id] = len(large)
		large = append(large, domain.LargeCategory{ID: id, Name: strings.TrimSpace(a.Text())})
		return true
	})
	if err != nil {
		return nil, err
	}

	menu.Find("a.m_c_name").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		var id, parent int
		id, err = strconv.Atoi(a.AttrOr("id", ""))
		if err != nil {
			err = fmt.Errorf("medium category id: %w", err)
			return false
		}
		parent, err = strconv.Atoi(a.Parent().Parent().AttrOr("id", ""))
		if err != nil {
			err = fmt.Errorf("medium category %d parent id: %w", id, err)
			return false
		}
		i, ok := index[parent]
		if !ok {
			err = fmt.Errorf("medium category %d has unknown parent %d", id, parent)
			return false
		}
		large[i].Medium = append(large[i].Medium, domain.MediumCategory{ID: id, Name: strings.TrimSpace(a.Text())})
		return true
	})
	if err != nil {
		return nil, err
	}

	return large, nil
}

const (
	colDate   = "日付"
	colDesc   = "内容"
	colAmount = "金額（円）"
	colLarge  = "大項目"
	colMedium = "中項目"
	colMemo   = "メモ"
	colID     = "ID"
)

// parseMoneyForwardCSV reads the Shift_JIS cash flow export.
func parseMoneyForwardCSV(r io.Reader) ([]*domain.Entry, error) {
	cr := csv.NewReader(transform.NewReader(r, japanese.ShiftJIS.NewDecoder()))
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading history CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := map[string]int{}
	for i, name := range records[0] {
		cols[strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")] = i
	}
	for _, name := range []string{colDate, colDesc, colAmount, colLarge, colMedium} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("history CSV missing column %s", name)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	entries := []*domain.Entry{}
	for i, rec := range records[1:] {
		date, err := time.Parse(mfCSVDate, field(rec, colDate))
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing date %q: %w", i+2, field(rec, colDate), err)
		}
		raw := strings.ReplaceAll(field(rec, colAmount), ",", "")
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing amount %q: %w", i+2, field(rec, colAmount), err)
		}
		entries = append(entries, &domain.Entry{
			ID:             field(rec, colID),
			Date:           date,
			Description:    field(rec, colDesc),
			Amount:         amount,
			CategoryLarge:  field(rec, colLarge),
			CategoryMedium: field(rec, colMedium),
			Memo:           field(rec, colMemo),
		})
	}
	return entries, nil
}
