package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidshard/ledgersync/pkg/domain"
)

// fakeElasticsearch answers just enough of the API for the store: index
// creation, document indexing and search (which returns every document).
type fakeElasticsearch struct {
	mu         sync.Mutex
	docs       []json.RawMessage
	lastSearch string
	refreshed  bool
	creates    int
}

func (f *fakeElasticsearch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	body, _ := io.ReadAll(r.Body)
	switch {
	case r.Method == http.MethodPut && r.URL.Path == "/ledgersync":
		f.creates++
		if f.creates > 1 {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":{"type":"resource_already_exists_exception","reason":"exists"},"status":400}`)
			return
		}
		io.WriteString(w, `{"acknowledged":true}`)
	case strings.HasPrefix(r.URL.Path, "/ledgersync/_doc/"):
		f.docs = append(f.docs, json.RawMessage(body))
		f.refreshed = r.URL.Query().Get("refresh") == "true"
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"result":"created"}`)
	case r.URL.Path == "/ledgersync/_search":
		f.lastSearch = string(body)
		hits := []map[string]json.RawMessage{}
		for _, d := range f.docs {
			hits = append(hits, map[string]json.RawMessage{"_source": d})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"hits": map[string]interface{}{
				"total": map[string]int{"value": len(hits)},
				"hits":  hits,
			},
		})
	default:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{}`)
	}
}

func TestElasticsearchCreateAndHistory(t *testing.T) {
	fake := &fakeElasticsearch{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	catalog := testCatalog()
	es, err := NewElasticsearchV8(catalog, zerolog.Nop(), srv.URL)
	require.NoError(t, err)

	large, medium, err := catalog.Resolve(domain.Income, "未分類", "未分類")
	require.NoError(t, err)
	cmd := &domain.CreateCommand{Wallet: "w", Direction: domain.Income, Date: domain.Day(2024, time.May, 3), Description: "チャージ", Amount: 3000}

	ctx := context.Background()
	require.NoError(t, es.Create(ctx, domain.NewCreateRequest(cmd, large, medium)))
	assert.True(t, fake.refreshed)

	entries, err := es.History(ctx, "w", 2024, time.May)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "w", entries[0].Wallet)
	assert.Equal(t, int64(3000), entries[0].Amount)
	assert.Equal(t, domain.Day(2024, time.May, 3), entries[0].Date)
	assert.Equal(t, "未分類", entries[0].CategoryLarge)

	assert.Contains(t, fake.lastSearch, `"wallet":"w"`)
	assert.Contains(t, fake.lastSearch, `"gte":"2024-05-01"`)
	assert.Contains(t, fake.lastSearch, `"lt":"2024-06-01"`)
	assert.Equal(t, 1, fake.creates)
}

func TestElasticsearchIndexAlreadyExists(t *testing.T) {
	fake := &fakeElasticsearch{creates: 1}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	es, err := NewElasticsearchV8(testCatalog(), zerolog.Nop(), srv.URL)
	require.NoError(t, err)

	entries, err := es.History(context.Background(), "w", 2024, time.December)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Contains(t, fake.lastSearch, `"lt":"2025-01-01"`)
}

func TestElasticsearchCreateUnknownCategory(t *testing.T) {
	srv := httptest.NewServer(&fakeElasticsearch{})
	defer srv.Close()

	es, err := NewElasticsearchV8(testCatalog(), zerolog.Nop(), srv.URL)
	require.NoError(t, err)

	err = es.Create(context.Background(), &domain.CreateRequest{Direction: domain.Expense, LargeID: 42, MediumID: 43})
	assert.ErrorIs(t, err, ErrCreateFailed)
}
