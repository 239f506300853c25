package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voidshard/ledgersync/pkg/domain"
)

const (
	esIndex   = "ledgersync"
	esMaxHits = 10000

	envEsAddr = "ELASTICSEARCH_SERVICE_HOST"
	envEsPort = "ELASTICSEARCH_SERVICE_PORT"
)

const esMapping = `{
  "mappings": {
    "properties": {
      "id":              {"type": "keyword"},
      "wallet":          {"type": "keyword"},
      "date":            {"type": "date"},
      "description":     {"type": "text"},
      "amount":          {"type": "long"},
      "category_large":  {"type": "keyword"},
      "category_medium": {"type": "keyword"},
      "memo":            {"type": "text"}
    }
  }
}`

// check it meets the interface
var _ Store = &ElasticsearchV8{}

// ElasticsearchV8 keeps the ledger as documents in one index. Its categories
// come from configuration.
type ElasticsearchV8 struct {
	es      *elasticsearch.Client
	index   string
	catalog *domain.Catalog
	log     zerolog.Logger

	indexReady bool
}

// NewElasticsearchV8 connects to the given urls, or to the address found in
// the ELASTICSEARCH_SERVICE_* environment when none are given.
func NewElasticsearchV8(catalog *domain.Catalog, log zerolog.Logger, urls ...string) (*ElasticsearchV8, error) {
	if len(urls) == 0 {
		address := os.Getenv(envEsAddr)
		port := os.Getenv(envEsPort)
		if port == "" {
			port = "9200" // default port
		}
		if address == "" {
			address = "localhost" // default address
		}
		urls = []string{fmt.Sprintf("http://%s:%s", address, port)}
	}

	retryBackoff := backoff.NewExponentialBackOff()

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: urls,

		// Retry on 429 TooManyRequests statuses
		RetryOnStatus: []int{502, 503, 504, 429},

		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},

		MaxRetries: 5,
	})
	if err != nil {
		return nil, err
	}

	return &ElasticsearchV8{es: es, index: esIndex, catalog: catalog, log: log}, nil
}

func (e *ElasticsearchV8) History(ctx context.Context, wallet string, year int, month time.Month) ([]*domain.Entry, error) {
	if err := e.ensureIndex(ctx); err != nil {
		return nil, err
	}

	from := domain.Day(year, month, 1)
	query := map[string]interface{}{
		"size": esMaxHits,
		"sort": []interface{}{map[string]interface{}{"date": "asc"}},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"wallet": wallet}},
					map[string]interface{}{"range": map[string]interface{}{
						"date": map[string]interface{}{
							"gte": domain.FormatDate(from),
							"lt":  domain.FormatDate(from.AddDate(0, 1, 0)),
						},
					}},
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(e.index),
		e.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("searching ledger: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("searching ledger: %s", res.String())
	}

	reply := &searchReply{}
	if err := json.NewDecoder(res.Body).Decode(reply); err != nil {
		return nil, fmt.Errorf("decoding search reply: %w", err)
	}

	entries := []*domain.Entry{}
	for _, hit := range reply.Hits.Hits {
		entries = append(entries, hit.Source)
	}
	if reply.Hits.Total.Value > len(entries) {
		e.log.Warn().Int("total", reply.Hits.Total.Value).Int("returned", len(entries)).Msg("ledger month truncated")
	}
	return entries, nil
}

func (e *ElasticsearchV8) Categories(ctx context.Context) (*domain.Catalog, error) {
	return e.catalog, nil
}

// Create indexes one entry and refreshes the index so the next History call
// sees it.
func (e *ElasticsearchV8) Create(ctx context.Context, req *domain.CreateRequest) error {
	if err := e.ensureIndex(ctx); err != nil {
		return err
	}

	entry, err := entryFor(e.catalog, uuid.NewString(), req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCreateFailed, err)
	}
	data, err := entry.JSON()
	if err != nil {
		return err
	}

	res, err := e.es.Index(
		e.index,
		bytes.NewReader(data),
		e.es.Index.WithContext(ctx),
		e.es.Index.WithDocumentID(entry.ID),
		e.es.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCreateFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrCreateFailed, res.String())
	}
	return nil
}

func (e *ElasticsearchV8) ensureIndex(ctx context.Context) error {
	if e.indexReady {
		return nil
	}

	res, err := e.es.Indices.Create(
		e.index,
		e.es.Indices.Create.WithContext(ctx),
		e.es.Indices.Create.WithBody(bytes.NewReader([]byte(esMapping))),
	)
	if err != nil {
		return fmt.Errorf("creating index %s: %w", e.index, err)
	}
	defer res.Body.Close()

	if res.IsError() && !alreadyExists(res) {
		return fmt.Errorf("creating index %s: %s", e.index, res.String())
	}
	e.indexReady = true
	return nil
}

func alreadyExists(res *esapi.Response) bool {
	if res.StatusCode != http.StatusBadRequest {
		return false
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return false
	}
	reply := &errorReply{}
	if err := json.Unmarshal(data, reply); err != nil {
		return false
	}
	return reply.Error.Type == "resource_already_exists_exception"
}

type searchReply struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source *domain.Entry `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type errorReply struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}
