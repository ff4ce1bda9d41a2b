package minastate

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/eon-protocol/minastate/placeholder"
)

// AccountProof is the account proof envelope:
//
//	u16 BE length L || L bytes of the ledger hash string || placeholder proof
type AccountProof struct {
	LedgerHash string
	Proof      []byte
}

func (me *AccountProof) WriteTo(w io.Writer) (int64, error) {
	if len(me.LedgerHash) > MAX_LEDGER_HASH {
		return 0, errors.New("ledger hash too long")
	}
	var n int64
	var size [2]byte
	binary.BigEndian.PutUint16(size[:], uint16(len(me.LedgerHash)))
	for _, part := range [][]byte{size[:], []byte(me.LedgerHash), me.Proof} {
		k, err := w.Write(part)
		n += int64(k)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (me *AccountProof) ReadFrom(r io.Reader) (int64, error) {
	var size [2]byte
	n, err := io.ReadFull(r, size[:])
	if err != nil {
		return int64(n), structural(placeholder.ErrMalformedProof, "envelope length: %v", err)
	}
	hash := make([]byte, binary.BigEndian.Uint16(size[:]))
	k, err := io.ReadFull(r, hash)
	if err != nil {
		return int64(n + k), structural(placeholder.ErrMalformedProof, "envelope ledger hash: %v", err)
	}
	if !utf8.Valid(hash) {
		return int64(n + k), structural(placeholder.ErrMalformedProof, "envelope ledger hash is not utf-8")
	}
	proof, err := io.ReadAll(r)
	if err != nil {
		return int64(n + k + len(proof)), err
	}
	me.LedgerHash = string(hash)
	me.Proof = proof
	return int64(n + k + len(proof)), nil
}

func (me *AccountProof) Bytes() []byte {
	var buf bytes.Buffer
	if _, err := me.WriteTo(&buf); err != nil {
		return nil
	}
	return buf.Bytes()
}

func DecodeAccountProof(b []byte) (*AccountProof, error) {
	var out AccountProof
	if _, err := out.ReadFrom(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return &out, nil
}
