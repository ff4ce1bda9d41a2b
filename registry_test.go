package minastate

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/stretchr/testify/require"
)

func TestRegistryVerdicts(t *testing.T) {
	require := require.New(t)
	r := NewMemoryRegistry()
	defer r.Close()

	ok, err := r.IsValidated("helloWorld")
	require.NoError(err)
	require.False(ok)
	rec, err := r.Lookup("helloWorld")
	require.NoError(err)
	require.Nil(rec)

	require.NoError(r.RecordLedgerVerdict("helloWorld", false))
	rec, err = r.Lookup("helloWorld")
	require.NoError(err)
	require.Equal(&LedgerRecord{LedgerHash: "helloWorld"}, rec)

	require.NoError(r.RecordLedgerVerdict("helloWorld", true))
	require.NoError(r.RecordLedgerVerdict("helloWorld", true))
	ok, err = r.IsValidated("helloWorld")
	require.NoError(err)
	require.True(ok)

	require.NoError(r.RecordLedgerVerdict("helloWorld", false))
	ok, err = r.IsValidated("helloWorld")
	require.NoError(err)
	require.True(ok)

	ok, err = r.IsValidated("helloWorld2")
	require.NoError(err)
	require.False(ok)
}

func TestRegistryCorruptRecord(t *testing.T) {
	require := require.New(t)
	db := memorydb.New()
	r := NewRegistry(db)
	key, _ := r.slot("helloWorld")
	require.NoError(db.Put(key, []byte{0xff, 0x00}))
	_, err := r.IsValidated("helloWorld")
	require.ErrorIs(err, ErrRegistryRecord)
	require.ErrorIs(r.RecordLedgerVerdict("helloWorld", false), ErrRegistryRecord)
	// an acceptance overwrites without reading
	require.NoError(r.RecordLedgerVerdict("helloWorld", true))
	ok, err := r.IsValidated("helloWorld")
	require.NoError(err)
	require.True(ok)
}

func TestRegistryConcurrentWrites(t *testing.T) {
	require := require.New(t)
	r := NewMemoryRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		hash := fmt.Sprintf("ledger-%d", i%8)
		wg.Add(2)
		go func() {
			defer wg.Done()
			require.NoError(r.RecordLedgerVerdict(hash, i%3 == 0))
		}()
		go func() {
			defer wg.Done()
			rec, err := r.Lookup(hash)
			require.NoError(err)
			if rec != nil {
				require.Equal(hash, rec.LedgerHash)
			}
		}()
	}
	wg.Wait()
	for i := 0; i < 8; i++ {
		// every hash saw at least one acceptance: i%3 == 0 hits each residue mod 8
		ok, err := r.IsValidated(fmt.Sprintf("ledger-%d", i))
		require.NoError(err)
		require.True(ok)
	}
}

func TestOpenRegistry(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()
	r, err := OpenRegistry(dir)
	require.NoError(err)
	require.NoError(r.RecordLedgerVerdict("helloWorld", true))
	require.NoError(r.Close())

	r, err = OpenRegistry(dir)
	require.NoError(err)
	defer r.Close()
	ok, err := r.IsValidated("helloWorld")
	require.NoError(err)
	require.True(ok)
}
