// Package accounts folds ledger account records into the public input of
// account proofs.
package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/eon-protocol/minastate/field"
)

// KEY_CHUNK is the number of public key bytes per field element.
const KEY_CHUNK = 31

// STATE_BYTES is the width of one encoded state value.
const STATE_BYTES = 32

var ErrAccountData = errors.New("accounts: malformed account data")

type Balance struct {
	Liquid uint64 `json:"liquid"`
	Locked uint64 `json:"locked"`
}

type AccountData struct {
	PublicKey string   `json:"public_key"`
	Balance   Balance  `json:"balance"`
	State     []string `json:"state"`
}

func Load(r io.Reader) (*AccountData, error) {
	var a AccountData
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccountData, err)
	}
	return &a, nil
}

func LoadFile(path string) (*AccountData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Load(file)
}

// PublicInput lays the account out as field elements: the public key bytes
// in KEY_CHUNK sized big-endian pieces, liquid, locked, then every state
// value. State values must be canonical.
func (me *AccountData) PublicInput(f *field.Field) ([]field.Element, error) {
	if me.PublicKey == "" {
		return nil, fmt.Errorf("%w: empty public key", ErrAccountData)
	}
	var out []field.Element
	key := []byte(me.PublicKey)
	for len(key) > 0 {
		n := min(KEY_CHUNK, len(key))
		out = append(out, f.Reduce(key[:n]))
		key = key[n:]
	}
	out = append(out, f.NewElement(me.Balance.Liquid), f.NewElement(me.Balance.Locked))
	for i, s := range me.State {
		raw, err := hexutil.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("%w: state[%d]: %w", ErrAccountData, i, err)
		}
		if len(raw) != STATE_BYTES {
			return nil, fmt.Errorf("%w: state[%d] is %d bytes", ErrAccountData, i, len(raw))
		}
		v, err := f.FromCanonicalBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: state[%d]: %w", ErrAccountData, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
