// Package persistence provides a durable record of finalized verification
// results, keyed by request id; a later Put for the same id replaces it. It replaces the teacher's
// Postgres-backed ConsensusRepository (§4.12 has no relational schema to
// persist — results are whole CBOR-encoded records, not normalized rows)
// while keeping its Create/Get/List repository shape, and is grounded on
// the teacher's KVAdapter for the storage engine itself: CometBFT's
// dbm.DB, the same embedded key-value store the teacher already wraps.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"

	dbm "github.com/cometbft/cometbft-db"
	"github.com/fxamacker/cbor/v2"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// ErrNotFound is returned when a request id has no stored result.
var ErrNotFound = errors.New("persistence: record not found")

const keyPrefix = "verification/"

var canonicalCBOR = func() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("persistence: building canonical CBOR encode mode: %v", err))
	}
	return mode
}()

// Store wraps a CometBFT-style dbm.DB to persist VerificationResult records.
// Writes go through SetSync, the same durable-at-commit choice the
// teacher's KVAdapter makes.
type Store struct {
	mu sync.Mutex
	db dbm.DB
}

// NewStore builds a Store over an already-open dbm.DB. Callers typically
// pass a goleveldb- or memdb-backed instance obtained from
// dbm.NewDB(name, backend, dir).
func NewStore(db dbm.DB) *Store {
	return &Store{db: db}
}

// Put persists a VerificationResult under its RequestID, overwriting any
// prior record for the same id (results are only ever written once C12
// finalizes them, but re-delivery after a crash must be idempotent).
func (s *Store) Put(ctx context.Context, result model.VerificationResult) error {
	if result.RequestID == "" {
		return errors.New("persistence: result has no request id")
	}
	buf, err := canonicalCBOR.Marshal(result)
	if err != nil {
		return fmt.Errorf("persistence: encode result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.SetSync(recordKey(result.RequestID), buf); err != nil {
		return fmt.Errorf("persistence: write result: %w", err)
	}
	return nil
}

// Get returns the stored VerificationResult for a request id, or
// ErrNotFound.
func (s *Store) Get(ctx context.Context, requestID string) (model.VerificationResult, error) {
	s.mu.Lock()
	buf, err := s.db.Get(recordKey(requestID))
	s.mu.Unlock()
	if err != nil {
		return model.VerificationResult{}, fmt.Errorf("persistence: read result: %w", err)
	}
	if buf == nil {
		return model.VerificationResult{}, ErrNotFound
	}

	var result model.VerificationResult
	if err := cbor.Unmarshal(buf, &result); err != nil {
		return model.VerificationResult{}, fmt.Errorf("persistence: decode result: %w", err)
	}
	return result, nil
}

// List returns every stored request id, in the key-sorted order the
// underlying dbm.DB iterator yields.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	iter, err := s.db.Iterator([]byte(keyPrefix), dbm.PrefixEndBytes([]byte(keyPrefix)))
	if err != nil {
		return nil, fmt.Errorf("persistence: open iterator: %w", err)
	}
	defer iter.Close()

	var ids []string
	for ; iter.Valid(); iter.Next() {
		ids = append(ids, string(iter.Key()[len(keyPrefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("persistence: iterate records: %w", err)
	}
	return ids, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(requestID string) []byte {
	return []byte(keyPrefix + requestID)
}
