package placeholder_test

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/consensys/gnark/test"

	"github.com/eon-protocol/minastate/circuits"
	"github.com/eon-protocol/minastate/field"
	"github.com/eon-protocol/minastate/merkle"
	"github.com/eon-protocol/minastate/placeholder"
	"github.com/eon-protocol/minastate/placeholder/placeholdertest"
)

var accountCircuit = sync.OnceValues(placeholdertest.Account)
var baseCircuit = sync.OnceValues(placeholdertest.Base)
var scalarCircuit = sync.OnceValues(placeholdertest.Scalar)

func accountInput() []field.Element {
	f := placeholdertest.Pallas()
	pi := make([]field.Element, placeholdertest.ACCOUNT_INPUTS)
	for i := range pi {
		pi[i] = f.NewElement(uint64(1000 + 17*i))
	}
	return pi
}

func TestAcceptsConformingProofs(t *testing.T) {
	assert := test.NewAssert(t)
	for _, tc := range []struct {
		name    string
		circuit func() (*placeholdertest.Circuit, error)
		pi      []field.Element
	}{
		{"base", baseCircuit, nil},
		{"scalar", scalarCircuit, nil},
		{"account", accountCircuit, accountInput()},
		{"account-short-input", accountCircuit, accountInput()[:5]},
	} {
		assert.Run(func(assert *test.Assert) {
			c, err := tc.circuit()
			assert.NoError(err)
			proof, err := c.Prove(context.Background(), tc.pi)
			assert.NoError(err)
			assert.NoError(c.Verifier.Verify(context.Background(), proof.Bytes(), tc.pi))
		}, tc.name)
	}
}

func TestProofEncoding(t *testing.T) {
	assert := test.NewAssert(t)
	c, err := scalarCircuit()
	assert.NoError(err)
	proof, err := c.Prove(context.Background(), nil)
	assert.NoError(err)
	blob := proof.Bytes()
	decoded, err := placeholder.Decode(c.Verifier.Field(), blob)
	assert.NoError(err)
	assert.Equal(blob, decoded.Bytes())

	_, err = placeholder.Decode(c.Verifier.Field(), blob[:len(blob)-1])
	assert.True(placeholder.IsStructural(err))
	assert.ErrorIs(err, placeholder.ErrMalformedProof)

	_, err = placeholder.Decode(c.Verifier.Field(), append(append([]byte{}, blob...), 0))
	assert.True(placeholder.IsStructural(err))

	_, err = placeholder.Decode(c.Verifier.Field(), nil)
	assert.True(placeholder.IsStructural(err))
}

func TestRejectionStages(t *testing.T) {
	assert := test.NewAssert(t)
	ctx := context.Background()
	f := placeholdertest.Pallas()

	account, err := accountCircuit()
	assert.NoError(err)
	pi := accountInput()
	proof, err := account.Prove(ctx, pi)
	assert.NoError(err)
	blob := proof.Bytes()

	stageOf := func(err error) placeholder.Stage {
		stage, ok := placeholder.RejectedAt(err)
		assert.True(ok, "%v", err)
		return stage
	}

	assert.Run(func(assert *test.Assert) {
		other := append([]field.Element{}, pi...)
		other[3] = f.Add(other[3], f.One())
		err := account.Verifier.Verify(ctx, blob, other)
		assert.ErrorIs(err, placeholder.ErrPublicInputMismatch)
		assert.Equal(placeholder.StagePublicInput, stageOf(err))
	}, "public-input")

	assert.Run(func(assert *test.Assert) {
		desc := *account.Description
		desc.FixedRoot[0] ^= 1
		v, err := placeholder.NewVerifier(account.Config.Params, account.Config.Rotations, &desc)
		assert.NoError(err)
		err = v.Verify(ctx, blob, pi)
		assert.ErrorIs(err, placeholder.ErrFixedRoot)
		assert.Equal(placeholder.StageCommitments, stageOf(err))
	}, "fixed-root")

	assert.Run(func(assert *test.Assert) {
		// the witness holds the original input, the public input column a
		// different one: gates hold, the copies into w1 do not
		witness, err := account.Witness(pi)
		assert.NoError(err)
		other := append([]field.Element{}, pi...)
		other[7] = f.NewElement(42)
		bad, err := account.ProveWitness(ctx, witness, other, placeholdertest.AllowUnsatisfied())
		assert.NoError(err)
		err = account.Verifier.Verify(ctx, bad.Bytes(), other)
		assert.ErrorIs(err, placeholder.ErrPermutation)
		assert.Equal(placeholder.StagePermutation, stageOf(err))

		_, err = account.ProveWitness(ctx, witness, other)
		assert.ErrorIs(err, placeholdertest.ErrUnsatisfied)
	}, "permutation")

	assert.Run(func(assert *test.Assert) {
		base, err := baseCircuit()
		assert.NoError(err)
		witness, err := base.Witness(nil)
		assert.NoError(err)
		witness[2][3] = f.Add(witness[2][3], f.One())
		bad, err := base.ProveWitness(ctx, witness, nil, placeholdertest.AllowUnsatisfied())
		assert.NoError(err)
		err = base.Verifier.Verify(ctx, bad.Bytes(), nil)
		assert.ErrorIs(err, placeholder.ErrGateConstraint)
		assert.Equal(placeholder.StageConstraints, stageOf(err))
	}, "gates")

	assert.Run(func(assert *test.Assert) {
		tampered, err := placeholder.Decode(f, blob)
		assert.NoError(err)
		path := tampered.Openings[0][placeholder.QUOTIENT_BATCH].Path
		path[len(path)-1][5] ^= 0x80
		err = account.Verifier.Verify(ctx, tampered.Bytes(), pi)
		assert.ErrorIs(err, merkle.ErrPathMismatch)
		assert.Equal(placeholder.StageFRI, stageOf(err))
	}, "fri-opening")
}

// Flipping any byte of a commitment or a committed value must be caught by
// the cryptographic checks, never accepted.
func TestByteFlipRejected(t *testing.T) {
	assert := test.NewAssert(t)
	ctx := context.Background()
	c, err := accountCircuit()
	assert.NoError(err)
	pi := accountInput()
	proof, err := c.Prove(ctx, pi)
	assert.NoError(err)
	blob := proof.Bytes()

	var positions []int
	// roots
	for i := 0; i < placeholder.BATCHES*merkle.HASH_SIZE; i += 5 {
		positions = append(positions, i)
	}
	// first column evaluation: roots, column count, rotation count
	for i := 0; i < field.BYTES; i += 3 {
		positions = append(positions, placeholder.BATCHES*merkle.HASH_SIZE+8+i)
	}
	// last sibling of the last FRI round opening
	for i := len(blob) - merkle.HASH_SIZE; i < len(blob); i += 4 {
		positions = append(positions, i)
	}
	step := 97
	if testing.Short() {
		step = 997
	}
	for i := 0; i < len(blob); i += step {
		positions = append(positions, i)
	}
	for k, pos := range positions {
		flipped := append([]byte{}, blob...)
		flipped[pos] ^= byte(1 << (k % 8))
		err := c.Verifier.Verify(ctx, flipped, pi)
		assert.Error(err, "flip at %d accepted", pos)
		if pos < placeholder.BATCHES*merkle.HASH_SIZE+8+field.BYTES || pos >= len(blob)-merkle.HASH_SIZE {
			assert.True(placeholder.IsRejection(err), "flip at %d: %v", pos, err)
		}
	}
}

func TestStructuralBoundary(t *testing.T) {
	assert := test.NewAssert(t)
	ctx := context.Background()
	c, err := accountCircuit()
	assert.NoError(err)
	cfg := c.Config

	err = c.Verifier.Verify(ctx, []byte{0x45, 0x54}, nil)
	assert.True(placeholder.IsStructural(err))
	assert.False(placeholder.IsRejection(err))

	long := make([]field.Element, 17)
	err = c.Verifier.Verify(ctx, nil, long)
	assert.ErrorIs(err, placeholder.ErrPublicInputLength)

	// a gate reading a rotation its column does not declare
	desc := *c.Description
	desc.Gates = append(append([]circuits.Gate{}, desc.Gates...), circuits.Gate{
		Selector:    0,
		Constraints: [][]circuits.Term{{{Coeff: big.NewInt(1), Vars: []circuits.Variable{{Column: 1, Rotation: 1}}}}},
	})
	_, err = placeholder.NewVerifier(cfg.Params, cfg.Rotations, &desc)
	assert.True(placeholder.IsStructural(err))
	assert.ErrorIs(err, placeholder.ErrParameterShape)

	desc = *c.Description
	desc.Gates = []circuits.Gate{{Selector: 5}}
	_, err = placeholder.NewVerifier(cfg.Params, cfg.Rotations, &desc)
	assert.ErrorIs(err, placeholder.ErrParameterShape)

	_, err = placeholder.NewVerifier(cfg.Params, cfg.Rotations[1:], c.Description)
	assert.ErrorIs(err, placeholder.ErrParameterShape)

	small := *cfg.Params
	small.MaxLeafSize = 2
	_, err = placeholder.NewVerifier(&small, cfg.Rotations, c.Description)
	assert.ErrorIs(err, placeholder.ErrParameterShape)

	wrongOmega := *cfg.Params
	wrongOmega.Omega = big.NewInt(3)
	_, err = placeholder.NewVerifier(&wrongOmega, cfg.Rotations, c.Description)
	assert.True(placeholder.IsStructural(err))

	shortDomain := *cfg.Params
	shortDomain.DOmegas = shortDomain.DOmegas[1:]
	_, err = placeholder.NewVerifier(&shortDomain, cfg.Rotations, c.Description)
	assert.True(placeholder.IsStructural(err))
}

func TestVerifyHonoursCancellation(t *testing.T) {
	assert := test.NewAssert(t)
	c, err := scalarCircuit()
	assert.NoError(err)
	proof, err := c.Prove(context.Background(), nil)
	assert.NoError(err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(c.Verifier.Verify(ctx, proof.Bytes(), nil), context.Canceled)
}
