package minastate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eon-protocol/minastate/placeholder"
)

func TestAccountProofEnvelope(t *testing.T) {
	require := require.New(t)
	env := &AccountProof{LedgerHash: "jwYPLbRQa4X86tSJs1aTzusf3TNdVTj58oyWJQB132sEGUtKHcB", Proof: []byte{1, 2, 3}}
	b := env.Bytes()
	require.Equal([]byte{0, 51}, b[:2])
	require.Equal(env.LedgerHash, string(b[2:53]))
	require.Equal(env.Proof, b[53:])

	var back AccountProof
	n, err := back.ReadFrom(bytes.NewReader(b))
	require.NoError(err)
	require.Equal(int64(len(b)), n)
	require.Equal(*env, back)

	empty, err := DecodeAccountProof([]byte{0, 0})
	require.NoError(err)
	require.Equal("", empty.LedgerHash)
	require.Empty(empty.Proof)

	for _, bad := range [][]byte{nil, {0}, {0x11, 0x22, 0x33}, {0, 2, 0xff, 0xfe}} {
		_, err := DecodeAccountProof(bad)
		require.True(placeholder.IsStructural(err), "%x", bad)
		require.ErrorIs(err, placeholder.ErrMalformedProof)
	}

	long := &AccountProof{LedgerHash: string(make([]byte, MAX_LEDGER_HASH+1))}
	_, err = long.WriteTo(&bytes.Buffer{})
	require.Error(err)
}
