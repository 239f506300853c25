package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/voidshard/ledgersync/pkg/domain"
)

// check it meets the interface
var _ Store = &JSONFile{}

// JSONFile is a ledger kept in a single JSON file, holding entries for any
// number of wallets. Its categories come from configuration.
type JSONFile struct {
	filename string
	catalog  *domain.Catalog
}

func NewJSONFile(filename string, catalog *domain.Catalog) *JSONFile {
	return &JSONFile{filename: filename, catalog: catalog}
}

func (f *JSONFile) History(ctx context.Context, wallet string, year int, month time.Month) ([]*domain.Entry, error) {
	all, err := f.read()
	if err != nil {
		return nil, err
	}

	entries := []*domain.Entry{}
	for _, e := range all {
		if e.Wallet == wallet && inMonth(e.Date, year, month) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (f *JSONFile) Categories(ctx context.Context) (*domain.Catalog, error) {
	return f.catalog, nil
}

func (f *JSONFile) Create(ctx context.Context, req *domain.CreateRequest) error {
	entry, err := entryFor(f.catalog, uuid.NewString(), req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCreateFailed, err)
	}

	all, err := f.read()
	if err != nil {
		return err
	}
	return f.write(append(all, entry))
}

func (f *JSONFile) read() ([]*domain.Entry, error) {
	data, err := os.ReadFile(f.filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	entries := []*domain.Entry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing ledger %s: %w", f.filename, err)
	}
	return entries, nil
}

func (f *JSONFile) write(entries []*domain.Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.filename, data, 0644)
}
