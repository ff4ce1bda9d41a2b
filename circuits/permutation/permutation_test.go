package permutation

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark/test"

	"github.com/eon-protocol/minastate/field"
)

var pallas, _ = new(big.Int).SetString("28948022309329048855892746252171976963363056481941560715954676764349967630337", 10)

type fixture struct {
	f       *field.Field
	rows    []field.Element
	shifts  []field.Element
	sigmas  [][]field.Element
	columns [][]field.Element
	beta    field.Element
	gamma   field.Element
}

// two columns over four rows with the copy cycle (0,1) ↔ (1,2)
func newFixture(t *testing.T, equal bool) *fixture {
	f := field.MustNew(pallas)
	w, err := field.RootOfUnity(f, 4)
	if err != nil {
		t.Fatal(err)
	}
	d, err := field.NewDomain(f, w, 4)
	if err != nil {
		t.Fatal(err)
	}
	fx := &fixture{f: f, rows: d.Elements(), shifts: Shifts(f, f.NewElement(5), 2), beta: f.NewElement(1234), gamma: f.NewElement(98765)}
	label := func(col, row int) field.Element { return f.Mul(fx.shifts[col], fx.rows[row]) }
	fx.sigmas = make([][]field.Element, 2)
	for c := range fx.sigmas {
		for r := 0; r < 4; r++ {
			fx.sigmas[c] = append(fx.sigmas[c], label(c, r))
		}
	}
	fx.sigmas[0][1], fx.sigmas[1][2] = label(1, 2), label(0, 1)
	fx.columns = [][]field.Element{
		{f.NewElement(10), f.NewElement(11), f.NewElement(12), f.NewElement(13)},
		{f.NewElement(20), f.NewElement(21), f.NewElement(11), f.NewElement(23)},
	}
	if !equal {
		fx.columns[1][2] = f.NewElement(99)
	}
	return fx
}

func (fx *fixture) wrap(z []field.Element) field.Element {
	f, n := fx.f, len(fx.rows)
	last := n - 1
	num, den := f.One(), f.One()
	for i := range fx.shifts {
		num = f.Mul(num, f.Add(f.Add(fx.columns[i][last], f.Mul(fx.beta, f.Mul(fx.shifts[i], fx.rows[last]))), fx.gamma))
		den = f.Mul(den, f.Add(f.Add(fx.columns[i][last], f.Mul(fx.beta, fx.sigmas[i][last])), fx.gamma))
	}
	v, _ := f.Div(f.Mul(z[last], num), den)
	return v
}

func TestGrandProductCloses(t *testing.T) {
	assert := test.NewAssert(t)
	fx := newFixture(t, true)
	z, err := GrandProduct(fx.f, fx.columns, fx.sigmas, fx.shifts, fx.rows, fx.beta, fx.gamma)
	assert.NoError(err)
	assert.Equal(fx.f.One(), z[0])
	assert.Equal(fx.f.One(), fx.wrap(z))

	// the row identities hold at every domain point
	for j := range fx.rows {
		o := Opening{Z: z[j], ZShift: z[(j+1)%len(z)]}
		for i := range fx.shifts {
			o.Values = append(o.Values, fx.columns[i][j])
			o.Sigma = append(o.Sigma, fx.sigmas[i][j])
		}
		l0 := fx.f.Zero()
		if j == 0 {
			l0 = fx.f.One()
		}
		f0, f1, err := Evaluate(fx.f, o, fx.shifts, fx.rows[j], l0, fx.beta, fx.gamma)
		assert.NoError(err)
		assert.True(f0.IsZero())
		assert.True(f1.IsZero(), "row %d", j)
	}
}

func TestGrandProductBrokenCopy(t *testing.T) {
	assert := test.NewAssert(t)
	fx := newFixture(t, false)
	z, err := GrandProduct(fx.f, fx.columns, fx.sigmas, fx.shifts, fx.rows, fx.beta, fx.gamma)
	assert.NoError(err)
	assert.NotEqual(fx.f.One(), fx.wrap(z))
}

func TestShape(t *testing.T) {
	assert := test.NewAssert(t)
	fx := newFixture(t, true)
	_, _, err := Evaluate(fx.f, Opening{Values: []field.Element{fx.f.One()}}, fx.shifts, fx.f.One(), fx.f.One(), fx.beta, fx.gamma)
	assert.ErrorIs(err, ErrShape)
	_, err = GrandProduct(fx.f, fx.columns[:1], fx.sigmas, fx.shifts, fx.rows, fx.beta, fx.gamma)
	assert.ErrorIs(err, ErrShape)
	assert.Equal([]field.Element{fx.f.One(), fx.f.NewElement(5), fx.f.NewElement(25)}, Shifts(fx.f, fx.f.NewElement(5), 3))
}
