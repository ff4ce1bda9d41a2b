package minastate

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/fxamacker/cbor/v2"
)

var ErrRegistryRecord = errors.New("minastate: corrupt registry record")

// LedgerRecord is the stored verdict for one ledger hash.
type LedgerRecord struct {
	LedgerHash string `cbor:"1,keyasint"`
	Accepted   bool   `cbor:"2,keyasint"`
}

// Registry maps ledger hashes to their last ledger proof verdict. Writes for
// one hash are serialized by its shard lock; readers take the same lock
// shared, so they see either the old or the new record.
type Registry struct {
	db     ethdb.KeyValueStore
	shards [SHARDS]sync.RWMutex
}

func NewRegistry(db ethdb.KeyValueStore) *Registry {
	return &Registry{db: db}
}

func NewMemoryRegistry() *Registry {
	return NewRegistry(memorydb.New())
}

// OpenRegistry opens a leveldb backed registry under dir.
func OpenRegistry(dir string) (*Registry, error) {
	db, err := leveldb.New(dir, 16, 16, METRICS_PREFIX+"registry/", false)
	if err != nil {
		return nil, fmt.Errorf("minastate: open registry: %w", err)
	}
	return NewRegistry(db), nil
}

func (me *Registry) Close() error {
	return me.db.Close()
}

func (me *Registry) slot(hash string) ([]byte, *sync.RWMutex) {
	sum := crypto.Keccak256([]byte(hash))
	return append([]byte(REGISTRY_PREFIX), sum...), &me.shards[sum[0]]
}

func (me *Registry) load(key []byte) (*LedgerRecord, error) {
	ok, err := me.db.Has(key)
	if err != nil || !ok {
		return nil, err
	}
	raw, err := me.db.Get(key)
	if err != nil {
		return nil, err
	}
	var rec LedgerRecord
	if err := cbor.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistryRecord, err)
	}
	return &rec, nil
}

// Lookup returns the record stored under hash, or nil.
func (me *Registry) Lookup(hash string) (*LedgerRecord, error) {
	key, mu := me.slot(hash)
	mu.RLock()
	defer mu.RUnlock()
	rec, err := me.load(key)
	if err != nil {
		return nil, err
	}
	if rec != nil && rec.LedgerHash != hash {
		return nil, fmt.Errorf("%w: key collision for %q", ErrRegistryRecord, hash)
	}
	return rec, nil
}

// RecordLedgerVerdict stores the verdict for hash. An accepted record is
// never replaced by a rejection; otherwise the last write wins.
func (me *Registry) RecordLedgerVerdict(hash string, accepted bool) error {
	key, mu := me.slot(hash)
	mu.Lock()
	defer mu.Unlock()
	if !accepted {
		prev, err := me.load(key)
		if err != nil {
			return err
		}
		if prev != nil && prev.Accepted {
			return nil
		}
	}
	raw, err := cbor.Marshal(&LedgerRecord{LedgerHash: hash, Accepted: accepted})
	if err != nil {
		return err
	}
	return me.db.Put(key, raw)
}

func (me *Registry) IsValidated(hash string) (bool, error) {
	rec, err := me.Lookup(hash)
	if err != nil || rec == nil {
		return false, err
	}
	return rec.Accepted, nil
}
