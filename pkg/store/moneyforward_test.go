package store

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"

	"github.com/voidshard/ledgersync/pkg/domain"
)

const mfIndexPage = `<html><body>
<ul class="dropdown-menu main_menu plus">
  <li class="dropdown-submenu">
    <a class="l_c_name" id="1">収入</a>
    <ul class="dropdown-menu sub_menu" id="1">
      <li><a class="m_c_name" id="101">給与</a></li>
    </ul>
  </li>
  <li class="dropdown-submenu">
    <a class="l_c_name" id="99">未分類</a>
    <ul class="dropdown-menu sub_menu" id="99">
      <li><a class="m_c_name" id="999">未分類</a></li>
    </ul>
  </li>
</ul>
<ul class="dropdown-menu main_menu minus">
  <li class="dropdown-submenu">
    <a class="l_c_name" id="11">食費</a>
    <ul class="dropdown-menu sub_menu" id="11">
      <li><a class="m_c_name" id="41">食料品</a></li>
      <li><a class="m_c_name" id="42">外食</a></li>
    </ul>
  </li>
  <li class="dropdown-submenu">
    <a class="l_c_name" id="13"> 趣味・娯楽 </a>
    <ul class="dropdown-menu sub_menu" id="13">
      <li><a class="m_c_name" id="61">映画・音楽・ゲーム</a></li>
    </ul>
  </li>
</ul>
</body></html>`

const mfWalletPage = `<html><head><meta name="csrf-token" content="csrf-abc"></head><body>
<select id="user_asset_act_sub_account_id_hash">
  <option value="other">別の財布 (0円)</option>
  <option value="sub-hash" selected="selected">PASELI (1,234円)</option>
</select>
</body></html>`

func shiftJIS(t *testing.T, s string) []byte {
	out, err := japanese.ShiftJIS.NewEncoder().String(s)
	require.NoError(t, err)
	return []byte(out)
}

type fakeMoneyForward struct {
	mu       sync.Mutex
	csv      []byte
	query    map[string]string
	created  []map[string]string
	response string
}

func newFakeMoneyForward(t *testing.T) (*fakeMoneyForward, *MoneyForward) {
	f := &fakeMoneyForward{response: mfCreatedBody}

	loggedIn := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie("_moneybook_session"); err != nil || c.Value != "abc" {
				http.Redirect(w, r, "/sign_in", http.StatusFound)
				return
			}
			h(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/sign_in", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>sign in</html>")
	})
	mux.HandleFunc("/me", loggedIn(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<script>gon.headerDisplayName="test@example.com";</script>`)
	}))
	mux.HandleFunc("/cf", loggedIn(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, mfIndexPage)
	}))
	mux.HandleFunc("/cf/csv", loggedIn(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.query = map[string]string{}
		for k := range r.URL.Query() {
			f.query[k] = r.URL.Query().Get(k)
		}
		w.Write(f.csv)
	}))
	mux.HandleFunc("/accounts/show_manual/wallet-1", loggedIn(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, mfWalletPage)
	}))
	mux.HandleFunc("/cf/create", loggedIn(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Header.Get("X-CSRF-Token") != "csrf-abc" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		f.created = append(f.created, form)
		fmt.Fprint(w, f.response)
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cookies := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(cookies, []byte("127.0.0.1\tFALSE\t/\tFALSE\t0\t_moneybook_session\tabc\n"), 0o600))

	mf, err := NewMoneyForward(cookies, WithMoneyForwardEndpoints(srv.URL, srv.URL))
	require.NoError(t, err)
	return f, mf
}

func TestMoneyForwardLogin(t *testing.T) {
	_, mf := newFakeMoneyForward(t)

	name, err := mf.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", name)
}

func TestMoneyForwardLoginRejected(t *testing.T) {
	cookies := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(cookies, []byte("# empty\n"), 0o600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>sign in</html>")
	}))
	defer srv.Close()

	mf, err := NewMoneyForward(cookies, WithMoneyForwardEndpoints(srv.URL, srv.URL))
	require.NoError(t, err)

	_, err = mf.Login(context.Background())
	assert.Error(t, err)
}

func TestMoneyForwardCategories(t *testing.T) {
	_, mf := newFakeMoneyForward(t)

	catalog, err := mf.Categories(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.LargeCategory{
		{ID: 1, Name: "収入", Medium: []domain.MediumCategory{{ID: 101, Name: "給与"}}},
		{ID: 99, Name: "未分類", Medium: []domain.MediumCategory{{ID: 999, Name: "未分類"}}},
	}, catalog.Income)

	large, medium, err := catalog.Resolve(domain.Expense, "趣味・娯楽", "映画・音楽・ゲーム")
	require.NoError(t, err)
	assert.Equal(t, 13, large)
	assert.Equal(t, 61, medium)

	_, _, err = catalog.Resolve(domain.Expense, "未分類", "未分類")
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)
}

func TestMoneyForwardHistory(t *testing.T) {
	f, mf := newFakeMoneyForward(t)
	f.csv = shiftJIS(t, strings.Join([]string{
		`"計算対象","日付","内容","金額（円）","保有金融機関","大項目","中項目","メモ","振替","ID"`,
		`"1","2024/05/10","映画チケット購入","-1,500","PASELI","趣味・娯楽","映画・音楽・ゲーム","","0","id-2"`,
		`"1","2024/05/03","チャージ","3000","PASELI","未分類","未分類","メモ","0","id-1"`,
	}, "\r\n") + "\r\n")

	entries, err := mf.History(context.Background(), "wallet-1", 2024, time.May)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"account_id_hash": "wallet-1",
		"from":            "2024/05/01",
		"month":           "5",
		"service_id":      "0",
		"year":            "2024",
	}, f.query)

	require.Len(t, entries, 2)
	assert.Equal(t, &domain.Entry{
		ID:             "id-2",
		Wallet:         "wallet-1",
		Date:           domain.Day(2024, time.May, 10),
		Description:    "映画チケット購入",
		Amount:         -1500,
		CategoryLarge:  "趣味・娯楽",
		CategoryMedium: "映画・音楽・ゲーム",
	}, entries[0])
	assert.Equal(t, int64(3000), entries[1].Amount)
	assert.Equal(t, "メモ", entries[1].Memo)
}

func TestParseMoneyForwardCSVErrors(t *testing.T) {
	_, err := parseMoneyForwardCSV(bytes.NewReader(shiftJIS(t, "日付,内容\n")))
	assert.Error(t, err)

	_, err = parseMoneyForwardCSV(bytes.NewReader(shiftJIS(t, "日付,内容,金額（円）,大項目,中項目\n2024-05-03,x,1,a,b\n")))
	assert.Error(t, err)

	_, err = parseMoneyForwardCSV(bytes.NewReader(shiftJIS(t, "日付,内容,金額（円）,大項目,中項目\n2024/05/03,x,abc,a,b\n")))
	assert.Error(t, err)

	entries, err := parseMoneyForwardCSV(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMoneyForwardCreate(t *testing.T) {
	f, mf := newFakeMoneyForward(t)

	cmd := &domain.CreateCommand{
		Wallet:      "wallet-1",
		Direction:   domain.Expense,
		Date:        domain.Day(2024, time.May, 10),
		Description: "映画",
		Amount:      1500,
	}
	require.NoError(t, mf.Create(context.Background(), domain.NewCreateRequest(cmd, 13, 61)))

	require.Len(t, f.created, 1)
	assert.Equal(t, map[string]string{
		"authenticity_token":                  "csrf-abc",
		"user_asset_act[is_transfer]":         "0",
		"user_asset_act[is_income]":           "0",
		"user_asset_act[payment]":             "2",
		"user_asset_act[updated_at]":          "2024/05/10",
		"month":                               "2024-05",
		"user_asset_act[amount]":              "-1500",
		"user_asset_act[sub_account_id_hash]": "sub-hash",
		"user_asset_act[large_category_id]":   "13",
		"user_asset_act[middle_category_id]":  "61",
		"user_asset_act[content]":             "映画",
	}, f.created[0])
}

func TestMoneyForwardCreateUnexpectedBody(t *testing.T) {
	f, mf := newFakeMoneyForward(t)
	f.response = "<html>error</html>"

	cmd := &domain.CreateCommand{Wallet: "wallet-1", Direction: domain.Income, Date: domain.Day(2024, time.May, 3), Description: "チャージ", Amount: 3000}
	err := mf.Create(context.Background(), domain.NewCreateRequest(cmd, 99, 999))
	assert.ErrorIs(t, err, ErrCreateFailed)
}

func TestMoneyForwardCreateUnknownWallet(t *testing.T) {
	_, mf := newFakeMoneyForward(t)

	cmd := &domain.CreateCommand{Wallet: "nope", Direction: domain.Income, Date: domain.Day(2024, time.May, 3), Amount: 3000}
	err := mf.Create(context.Background(), domain.NewCreateRequest(cmd, 99, 999))
	assert.ErrorIs(t, err, ErrCreateFailed)
}

func TestParseWalletPage(t *testing.T) {
	page, err := parseWalletPage([]byte(mfWalletPage))
	require.NoError(t, err)
	assert.Equal(t, &walletPage{csrf: "csrf-abc", subAccount: "sub-hash", walletName: "PASELI"}, page)

	_, err = parseWalletPage([]byte(`<html></html>`))
	assert.Error(t, err)
}
