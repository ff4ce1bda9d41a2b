// Package merkle commits to vectors of field-element leaves with Keccak-256
// and checks authentication paths against a root.
package merkle

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/consensys/gnark-crypto/accumulator/merkletree"
	"golang.org/x/crypto/sha3"

	"github.com/eon-protocol/minastate/field"
)

const HASH_SIZE = 32

type Hash [HASH_SIZE]byte

// Path lists sibling hashes from the leaf level up to the root.
type Path []Hash

var (
	ErrPathLength   = errors.New("merkle: path length does not match tree depth")
	ErrPathMismatch = errors.New("merkle: path does not lead to root")
	ErrIndexRange   = errors.New("merkle: leaf index outside tree")
	ErrLeafCount    = errors.New("merkle: leaf count must be a power of two")
)

// Opening is a leaf together with its authentication path.
type Opening struct {
	Values []field.Element
	Path   Path
}

func EncodeLeaf(values []field.Element) []byte {
	buf := make([]byte, 0, len(values)*field.BYTES)
	for _, v := range values {
		b := v.Bytes()
		buf = append(buf, b[:]...)
	}
	return buf
}

// VerifyPath recomputes the root from leaf and path. The index bits choose
// the concatenation order at each level.
func VerifyPath(root Hash, leaf []byte, path Path, index uint64, depth int) error {
	if len(path) != depth {
		return fmt.Errorf("%w: got %d siblings, want %d", ErrPathLength, len(path), depth)
	}
	if depth >= 64 || index >= uint64(1)<<depth {
		return fmt.Errorf("%w: %d at depth %d", ErrIndexRange, index, depth)
	}
	proofSet := make([][]byte, 0, depth+1)
	proofSet = append(proofSet, leaf)
	for i := range path {
		proofSet = append(proofSet, path[i][:])
	}
	if !merkletree.VerifyProof(sha3.NewLegacyKeccak256(), root[:], proofSet, index, uint64(1)<<depth) {
		return ErrPathMismatch
	}
	return nil
}

func (me Opening) Verify(root Hash, index uint64, depth int) error {
	return VerifyPath(root, EncodeLeaf(me.Values), me.Path, index, depth)
}

// Tree keeps the encoded leaves so openings can be produced on demand.
type Tree struct {
	leaves [][]byte
	values [][]field.Element
	root   Hash
	depth  int
}

func NewTree(leaves [][]field.Element) (*Tree, error) {
	if len(leaves) == 0 || bits.OnesCount(uint(len(leaves))) != 1 {
		return nil, fmt.Errorf("%w: %d", ErrLeafCount, len(leaves))
	}
	t := &Tree{values: leaves, depth: bits.TrailingZeros(uint(len(leaves)))}
	mt := merkletree.New(sha3.NewLegacyKeccak256())
	for _, l := range leaves {
		enc := EncodeLeaf(l)
		t.leaves = append(t.leaves, enc)
		mt.Push(enc)
	}
	copy(t.root[:], mt.Root())
	return t, nil
}

func (me *Tree) Root() Hash {
	return me.root
}

func (me *Tree) Depth() int {
	return me.depth
}

func (me *Tree) Open(index uint64) (Opening, error) {
	if index >= uint64(len(me.leaves)) {
		return Opening{}, fmt.Errorf("%w: %d", ErrIndexRange, index)
	}
	mt := merkletree.New(sha3.NewLegacyKeccak256())
	if err := mt.SetIndex(index); err != nil {
		return Opening{}, err
	}
	for _, l := range me.leaves {
		mt.Push(l)
	}
	_, proofSet, _, _ := mt.Prove()
	path := make(Path, len(proofSet)-1)
	for i := range path {
		copy(path[i][:], proofSet[i+1])
	}
	values := make([]field.Element, len(me.values[index]))
	copy(values, me.values[index])
	return Opening{Values: values, Path: path}, nil
}
