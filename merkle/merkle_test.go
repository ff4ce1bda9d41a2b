package merkle

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eon-protocol/minastate/field"
)

func leaves(f *field.Field, n int) [][]field.Element {
	out := make([][]field.Element, n)
	for i := range out {
		out[i] = []field.Element{f.NewElement(uint64(i)), f.NewElement(uint64(i * i))}
	}
	return out
}

func TestOpenAndVerify(t *testing.T) {
	f := field.MustNew(big.NewInt(2013265921))
	for _, n := range []int{1, 2, 8, 32} {
		tree, err := NewTree(leaves(f, n))
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			o, err := tree.Open(uint64(i))
			require.NoError(t, err)
			require.Len(t, o.Path, tree.Depth())
			require.NoError(t, o.Verify(tree.Root(), uint64(i), tree.Depth()))
		}
	}
}

func TestRejections(t *testing.T) {
	f := field.MustNew(big.NewInt(2013265921))
	tree, err := NewTree(leaves(f, 8))
	require.NoError(t, err)
	o, err := tree.Open(5)
	require.NoError(t, err)

	// wrong index walks the wrong way up the tree
	require.ErrorIs(t, o.Verify(tree.Root(), 4, 3), ErrPathMismatch)
	require.ErrorIs(t, o.Verify(tree.Root(), 8, 3), ErrIndexRange)

	short := Opening{Values: o.Values, Path: o.Path[:2]}
	require.ErrorIs(t, short.Verify(tree.Root(), 5, 3), ErrPathLength)

	tampered := Opening{Values: []field.Element{o.Values[0], f.NewElement(1)}, Path: o.Path}
	require.ErrorIs(t, tampered.Verify(tree.Root(), 5, 3), ErrPathMismatch)

	root := tree.Root()
	root[0] ^= 1
	require.ErrorIs(t, o.Verify(root, 5, 3), ErrPathMismatch)

	sibling := make(Path, len(o.Path))
	copy(sibling, o.Path)
	sibling[1][31] ^= 0x80
	require.ErrorIs(t, Opening{Values: o.Values, Path: sibling}.Verify(tree.Root(), 5, 3), ErrPathMismatch)
}

func TestLeafCount(t *testing.T) {
	f := field.MustNew(big.NewInt(2013265921))
	_, err := NewTree(leaves(f, 6))
	require.ErrorIs(t, err, ErrLeafCount)
	_, err = NewTree(nil)
	require.ErrorIs(t, err, ErrLeafCount)
}
