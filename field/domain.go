package field

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"
)

var ErrDomain = errors.New("field: generator does not have the declared order")

// Domain is the multiplicative subgroup of order Size generated by Generator.
type Domain struct {
	Field     *Field
	Size      uint64
	LogSize   int
	Generator Element
}

// NewDomain checks that generator has exact order size (a power of two).
func NewDomain(f *Field, generator Element, size uint64) (*Domain, error) {
	if size < 2 || bits.OnesCount64(size) != 1 {
		return nil, fmt.Errorf("%w: size %d is not a power of two", ErrDomain, size)
	}
	if !f.Exp(generator, size).Equal(f.One()) || f.Exp(generator, size/2).Equal(f.One()) {
		return nil, fmt.Errorf("%w: %s^%d", ErrDomain, generator, size)
	}
	return &Domain{Field: f, Size: size, LogSize: bits.TrailingZeros64(size), Generator: generator}, nil
}

func (me *Domain) Element(i uint64) Element {
	return me.Field.Exp(me.Generator, i%me.Size)
}

// Elements lists ω⁰ … ωⁿ⁻¹.
func (me *Domain) Elements() []Element {
	out := make([]Element, me.Size)
	out[0] = me.Field.One()
	for i := uint64(1); i < me.Size; i++ {
		out[i] = me.Field.Mul(out[i-1], me.Generator)
	}
	return out
}

// Vanishing evaluates xⁿ-1.
func (me *Domain) Vanishing(x Element) Element {
	return me.Field.Sub(me.Field.Exp(x, me.Size), me.Field.One())
}

// Lagrange evaluates Lᵢ(x) = ωⁱ(xⁿ-1) / (n(x-ωⁱ)); x must lie outside the
// domain.
func (me *Domain) Lagrange(i uint64, x Element) (Element, error) {
	f := me.Field
	wi := me.Element(i)
	den := f.Mul(f.NewElement(me.Size), f.Sub(x, wi))
	num := f.Mul(wi, me.Vanishing(x))
	return f.Div(num, den)
}

// Subdomain returns the domain generated by gᵏ where k = Size/size.
func (me *Domain) Subdomain(size uint64) (*Domain, error) {
	if size == 0 || me.Size%size != 0 {
		return nil, fmt.Errorf("%w: %d does not divide %d", ErrDomain, size, me.Size)
	}
	return NewDomain(me.Field, me.Field.Exp(me.Generator, me.Size/size), size)
}

// RootOfUnity finds an element of exact order `order` (a power of two
// dividing p-1) by raising small bases to (p-1)/order.
func RootOfUnity(f *Field, order uint64) (Element, error) {
	if order < 2 || bits.OnesCount64(order) != 1 {
		return Element{}, fmt.Errorf("%w: order %d is not a power of two", ErrDomain, order)
	}
	pm1 := new(big.Int).Sub(f.Modulus(), big.NewInt(1))
	cofactor, rem := new(big.Int).QuoRem(pm1, new(big.Int).SetUint64(order), new(big.Int))
	if rem.Sign() != 0 {
		return Element{}, fmt.Errorf("%w: %d does not divide p-1", ErrDomain, order)
	}
	var exponent Element
	exponent.Int.SetFromBig(cofactor)
	for base := uint64(2); base < 1000; base++ {
		w := f.ExpInt(f.NewElement(base), &exponent.Int)
		if !f.Exp(w, order/2).Equal(f.One()) {
			return w, nil
		}
	}
	return Element{}, fmt.Errorf("%w: no root of order %d found", ErrDomain, order)
}
