package placeholdertest

import (
	"github.com/eon-protocol/minastate/field"
)

// interpolate returns the coefficients of the polynomial taking values[i]
// at shift·gⁱ, by an inverse DFT over ⟨g⟩ followed by undoing the shift.
func interpolate(f *field.Field, values []field.Element, g, shift field.Element) ([]field.Element, error) {
	n := uint64(len(values))
	ginv, err := f.Inverse(g)
	if err != nil {
		return nil, err
	}
	ninv, err := f.Inverse(f.NewElement(n))
	if err != nil {
		return nil, err
	}
	sinv, err := f.Inverse(shift)
	if err != nil {
		return nil, err
	}
	coeffs := make([]field.Element, n)
	scale := ninv
	for k := uint64(0); k < n; k++ {
		step := f.Exp(ginv, k)
		w := f.One()
		var acc field.Element
		for t := uint64(0); t < n; t++ {
			acc = f.Add(acc, f.Mul(values[t], w))
			w = f.Mul(w, step)
		}
		coeffs[k] = f.Mul(acc, scale)
		scale = f.Mul(scale, sinv)
	}
	return coeffs, nil
}

func evaluate(f *field.Field, coeffs []field.Element, points []field.Element) []field.Element {
	out := make([]field.Element, len(points))
	for i, x := range points {
		out[i] = f.EvalPolynomial(coeffs, x)
	}
	return out
}

func powers(f *field.Field, shift, g field.Element, n uint64) []field.Element {
	out := make([]field.Element, n)
	x := shift
	for i := range out {
		out[i] = x
		x = f.Mul(x, g)
	}
	return out
}
