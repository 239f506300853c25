package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/voidshard/ledgersync/pkg/crypto"
	"github.com/voidshard/ledgersync/pkg/domain"
)

const sealPurpose = "ledgersync session"

// SessionFile keeps login cookies on disk, sealed with a key derived from a
// user supplied secret.
type SessionFile struct {
	path   string
	sealer *crypto.Sealer
}

// NewSessionFile prepares a session file at path. secret must be at least
// 32 characters.
func NewSessionFile(path, secret string) (*SessionFile, error) {
	sealer, err := crypto.NewSealer(sealPurpose, secret)
	if err != nil {
		return nil, err
	}
	return &SessionFile{path: path, sealer: sealer}, nil
}

// Load returns the stored session, or nil if there is none or it expired.
func (f *SessionFile) Load() (*domain.Session, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	plain, err := f.sealer.Open(string(data))
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}

	s := &domain.Session{}
	if err := json.Unmarshal(plain, s); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	if s.HasExpired() {
		return nil, nil
	}
	return s, nil
}

// Save seals s and writes it, readable only by the current user.
func (f *SessionFile) Save(s *domain.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	sealed, err := f.sealer.Seal(data)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, []byte(sealed), 0o600)
}
