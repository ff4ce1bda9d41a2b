package transcript

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eon-protocol/minastate/field"
)

var pallas, _ = new(big.Int).SetString("28948022309329048855892746252171976963363056481941560715954676764349967630337", 10)

func replay(t *testing.T, f *field.Field, data ...[]byte) []field.Element {
	tr := New(f, "beta", "gamma", "xi")
	var out []field.Element
	for _, d := range data {
		require.NoError(t, tr.Absorb(d))
		c, err := tr.Squeeze()
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

func TestDeterministic(t *testing.T) {
	f := field.MustNew(pallas)
	a := replay(t, f, []byte("root"), []byte("z"), []byte("t"))
	b := replay(t, f, []byte("root"), []byte("z"), []byte("t"))
	require.Equal(t, a, b)

	c := replay(t, f, []byte("root"), []byte("Z"), []byte("t"))
	require.Equal(t, a[0], c[0])
	require.NotEqual(t, a[1], c[1])
	// later challenges chain on earlier ones
	require.NotEqual(t, a[2], c[2])
}

func TestChallengesAreReduced(t *testing.T) {
	f := field.MustNew(big.NewInt(97))
	tr := New(f, "a", "b", "c", "d")
	for i := 0; i < 4; i++ {
		c, err := tr.Squeeze()
		require.NoError(t, err)
		require.True(t, c.Int.LtUint64(97))
	}
}

func TestExhausted(t *testing.T) {
	f := field.MustNew(pallas)
	tr := New(f, "only")
	require.Equal(t, "only", tr.Pending())
	require.NoError(t, tr.AbsorbElements(f.NewElement(1), f.NewElement(2)))
	_, err := tr.Squeeze()
	require.NoError(t, err)
	require.Equal(t, "", tr.Pending())
	require.ErrorIs(t, tr.Absorb([]byte{1}), ErrExhausted)
	_, err = tr.Squeeze()
	require.ErrorIs(t, err, ErrExhausted)
}

func TestSqueezeIndex(t *testing.T) {
	f := field.MustNew(pallas)
	tr := New(f, "q0", "q1", "q2")
	for i := 0; i < 3; i++ {
		idx, err := tr.SqueezeIndex(32)
		require.NoError(t, err)
		require.Less(t, idx, uint64(32))
	}
}
