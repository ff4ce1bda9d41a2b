// Package field implements arithmetic over a prime field whose modulus is
// only known at runtime, as carried by protocol parameter documents.
package field

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

const BYTES = 32

var (
	ErrModulus      = errors.New("field: modulus must be an odd integer greater than 2 below 2^256")
	ErrNotCanonical = errors.New("field: value is not below the modulus")
	ErrZeroInverse  = errors.New("field: inverse of zero")
	ErrLength       = errors.New("field: encoding must be 32 bytes")
)

// Element is a residue in [0, p). Arithmetic goes through the Field that
// produced it.
type Element struct {
	uint256.Int
}

func (me Element) Equal(other Element) bool {
	return me.Int.Eq(&other.Int)
}

func (me Element) IsZero() bool {
	return me.Int.IsZero()
}

func (me Element) Bytes() [BYTES]byte {
	return me.Int.Bytes32()
}

func (me Element) BigInt() *big.Int {
	return me.Int.ToBig()
}

func (me Element) String() string {
	return me.Int.Dec()
}

type Field struct {
	modulus uint256.Int
	pminus2 uint256.Int
	one     Element
}

func New(modulus *big.Int) (*Field, error) {
	m, overflow := uint256.FromBig(modulus)
	if overflow || modulus.Sign() <= 0 || m.LtUint64(3) || m[0]&1 == 0 {
		return nil, ErrModulus
	}
	f := &Field{modulus: *m}
	f.pminus2.SubUint64(m, 2)
	f.one.Int.SetOne()
	return f, nil
}

func MustNew(modulus *big.Int) *Field {
	f, err := New(modulus)
	if err != nil {
		panic(err)
	}
	return f
}

func (me *Field) Modulus() *big.Int {
	return me.modulus.ToBig()
}

func (me *Field) Zero() Element {
	return Element{}
}

func (me *Field) One() Element {
	return me.one
}

func (me *Field) NewElement(v uint64) Element {
	var e Element
	e.Int.SetUint64(v)
	e.Int.Mod(&e.Int, &me.modulus)
	return e
}

// FromBig rejects values outside [0, p) instead of reducing them.
func (me *Field) FromBig(v *big.Int) (Element, error) {
	var e Element
	if v.Sign() < 0 {
		return e, fmt.Errorf("%w: %s", ErrNotCanonical, v)
	}
	if overflow := e.Int.SetFromBig(v); overflow || !e.Int.Lt(&me.modulus) {
		return e, fmt.Errorf("%w: %s", ErrNotCanonical, v)
	}
	return e, nil
}

// FromInt64 maps negative values to p - |v|.
func (me *Field) FromInt64(v int64) Element {
	if v >= 0 {
		return me.NewElement(uint64(v))
	}
	return me.Neg(me.NewElement(uint64(-v)))
}

// FromBytes reads a 32-byte big-endian value and reduces it mod p.
func (me *Field) FromBytes(b []byte) (Element, error) {
	if len(b) != BYTES {
		return Element{}, ErrLength
	}
	return me.Reduce(b), nil
}

// FromCanonicalBytes reads a 32-byte big-endian value that must already lie
// in [0, p).
func (me *Field) FromCanonicalBytes(b []byte) (Element, error) {
	if len(b) != BYTES {
		return Element{}, ErrLength
	}
	var e Element
	e.Int.SetBytes32(b)
	if !e.Int.Lt(&me.modulus) {
		return e, ErrNotCanonical
	}
	return e, nil
}

// Reduce interprets up to 32 big-endian bytes as an integer mod p.
func (me *Field) Reduce(b []byte) Element {
	var e Element
	e.Int.SetBytes(b)
	e.Int.Mod(&e.Int, &me.modulus)
	return e
}

func (me *Field) Add(a, b Element) Element {
	var z Element
	z.Int.AddMod(&a.Int, &b.Int, &me.modulus)
	return z
}

func (me *Field) Sub(a, b Element) Element {
	var z Element
	z.Int.Sub(&a.Int, &b.Int)
	if a.Int.Lt(&b.Int) {
		z.Int.Add(&z.Int, &me.modulus)
	}
	return z
}

func (me *Field) Neg(a Element) Element {
	if a.IsZero() {
		return a
	}
	var z Element
	z.Int.Sub(&me.modulus, &a.Int)
	return z
}

func (me *Field) Mul(a, b Element) Element {
	var z Element
	z.Int.MulMod(&a.Int, &b.Int, &me.modulus)
	return z
}

func (me *Field) Square(a Element) Element {
	return me.Mul(a, a)
}

func (me *Field) Exp(a Element, e uint64) Element {
	var exponent uint256.Int
	exponent.SetUint64(e)
	return me.ExpInt(a, &exponent)
}

// ExpInt is square-and-multiply from the most significant bit.
func (me *Field) ExpInt(a Element, e *uint256.Int) Element {
	acc := me.one
	for i := e.BitLen() - 1; i >= 0; i-- {
		acc = me.Mul(acc, acc)
		if (e[i/64]>>(uint(i)%64))&1 == 1 {
			acc = me.Mul(acc, a)
		}
	}
	return acc
}

func (me *Field) Inverse(a Element) (Element, error) {
	if a.IsZero() {
		return Element{}, ErrZeroInverse
	}
	return me.ExpInt(a, &me.pminus2), nil
}

func (me *Field) Div(a, b Element) (Element, error) {
	inv, err := me.Inverse(b)
	if err != nil {
		return Element{}, err
	}
	return me.Mul(a, inv), nil
}

// BatchInverse inverts all values with one field inversion.
func (me *Field) BatchInverse(values []Element) ([]Element, error) {
	prefix := make([]Element, len(values))
	acc := me.one
	for i, v := range values {
		if v.IsZero() {
			return nil, ErrZeroInverse
		}
		prefix[i] = acc
		acc = me.Mul(acc, v)
	}
	inv, err := me.Inverse(acc)
	if err != nil {
		return nil, err
	}
	out := make([]Element, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		out[i] = me.Mul(inv, prefix[i])
		inv = me.Mul(inv, values[i])
	}
	return out, nil
}

// EvalPolynomial evaluates coefficients (lowest degree first) at x.
func (me *Field) EvalPolynomial(coeffs []Element, x Element) Element {
	var acc Element
	for i := len(coeffs) - 1; i >= 0; i-- {
		acc = me.Add(me.Mul(acc, x), coeffs[i])
	}
	return acc
}
