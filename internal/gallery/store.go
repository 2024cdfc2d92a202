package gallery

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultKey is the storage key the gallery lives under. It is explicit
// configuration rather than an ambient constant so tests and alternate
// deployments can scope their own galleries.
const DefaultKey = "generatedImages"

// ErrInvalidRecord rejects appends whose record fails the URL invariant.
var ErrInvalidRecord = errors.New("gallery: record url must be an absolute http(s) url")

// KV is the synchronous key-value text store the gallery persists into.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Store owns the persisted record list exclusively. Every operation is a
// single read-modify-write over one key; last writer wins.
type Store struct {
	kv     KV
	key    string
	logger zerolog.Logger
}

// NewStore builds a Store over kv, keyed by key (DefaultKey when empty).
func NewStore(kv KV, key string, logger zerolog.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{kv: kv, key: key, logger: logger}
}

// Append prepends rec to the stored list, most-recent-first. Records failing
// the URL invariant are rejected without touching storage. Entries already in
// the store are carried through untouched, valid or not; reads are where
// filtering happens.
func (s *Store) Append(rec Record) error {
	if !rec.Valid() {
		return ErrInvalidRecord
	}

	var entries []json.RawMessage
	raw, ok, err := s.kv.Get(s.key)
	if err != nil {
		return fmt.Errorf("gallery: read stored records: %w", err)
	}
	if ok && strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			return fmt.Errorf("gallery: decode stored records: %w", err)
		}
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("gallery: encode record: %w", err)
	}
	entries = append([]json.RawMessage{json.RawMessage(encoded)}, entries...)

	updated, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("gallery: encode records: %w", err)
	}
	if err := s.kv.Set(s.key, string(updated)); err != nil {
		return fmt.Errorf("gallery: write records: %w", err)
	}
	return nil
}

// List returns the stored records that pass the URL invariant, most recent
// first. It never fails upward: an absent key yields an empty list, and a
// value that is not a record list degrades to whatever valid entries it
// holds. List never writes back; corrupted storage is left as found.
func (s *Store) List() []Record {
	raw, ok, err := s.kv.Get(s.key)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read gallery storage")
		return []Record{}
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []Record{}
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.logger.Warn().Err(err).Msg("gallery storage is not a record list")
		return []Record{}
	}

	records := make([]Record, 0, len(entries))
	dropped := 0
	for _, entry := range entries {
		var rec Record
		if err := json.Unmarshal(entry, &rec); err != nil || !rec.Valid() {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	if dropped > 0 {
		s.logger.Warn().Int("dropped", dropped).Msg("filtered invalid gallery records")
	}
	return records
}

// Clear removes the stored key entirely.
func (s *Store) Clear() error {
	if err := s.kv.Delete(s.key); err != nil {
		return fmt.Errorf("gallery: clear records: %w", err)
	}
	return nil
}

// Reconcile clears the backing key when it holds data that yields zero valid
// records, which indicates corruption rather than an empty gallery. It
// reports whether a clear happened. Unlike List, this is the one read-side
// operation allowed to mutate storage, and callers invoke it deliberately.
func (s *Store) Reconcile() (bool, error) {
	raw, ok, err := s.kv.Get(s.key)
	if err != nil {
		return false, fmt.Errorf("gallery: read stored records: %w", err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return false, nil
	}
	if len(s.List()) > 0 {
		return false, nil
	}
	if err := s.Clear(); err != nil {
		return false, err
	}
	s.logger.Warn().Str("key", s.key).Msg("cleared corrupted gallery storage")
	return true, nil
}
