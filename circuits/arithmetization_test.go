package circuits

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/consensys/gnark/test"

	"github.com/eon-protocol/minastate/circuits/gates"
	"github.com/eon-protocol/minastate/field"
)

var pallas, _ = new(big.Int).SetString("28948022309329048855892746252171976963363056481941560715954676764349967630337", 10)

const sample = `{
  "name": "base",
  "partitions": 2,
  "delta": 5,
  "fixed_root": "0x0102030405060708091011121314151617181920212223242526272829303132",
  "gates": [
    {"selector": 0, "constraints": [[{"coeff": 1, "vars": [{"column": 0, "rotation": 0}, {"column": 1, "rotation": 0}]}, {"coeff": -1, "vars": [{"column": 2, "rotation": 0}]}]]},
    {"selector": 1, "constraints": [[{"coeff": 1, "vars": [{"column": 0, "rotation": 1}]}, {"coeff": -1, "vars": [{"column": 2, "rotation": 0}]}], [{"coeff": 28948022309329048855892746252171976963363056481941560715954676764349967630336}]]}
  ]
}`

func TestLoadCompile(t *testing.T) {
	assert := test.NewAssert(t)
	f := field.MustNew(pallas)
	d, err := Load(strings.NewReader(sample))
	assert.NoError(err)
	a, err := d.Compile(f)
	assert.NoError(err)

	assert.Equal(BASE, a.Name)
	assert.Len(a.Gates, 2)
	assert.Len(a.Partitions, 2)
	assert.Equal(uint64(1), a.Partitions[1].ThetaOffset)
	assert.Equal(2, a.Degree)
	assert.Equal(2, a.GateQuotientChunks())
	assert.Equal(byte(0x01), a.FixedRoot[0])
	assert.Equal(f.NewElement(5), a.Delta)
	assert.Equal(f.Neg(f.One()), a.Gates[0].Constraints[0][1].Coeff)
	// p-1 is canonical and kept as is
	assert.Equal(f.Neg(f.One()), a.Gates[1].Constraints[1][0].Coeff)
	assert.Equal(gates.Variable{Column: 0, Rotation: 1}, a.Gates[1].Constraints[0][0].Vars[0])

	var buf bytes.Buffer
	_, err = d.WriteTo(&buf)
	assert.NoError(err)
	again, err := Load(&buf)
	assert.NoError(err)
	recompiled, err := again.Compile(f)
	assert.NoError(err)
	assert.Equal(a, recompiled)
}

func TestCompileErrors(t *testing.T) {
	assert := test.NewAssert(t)
	f := field.MustNew(pallas)

	_, err := Load(strings.NewReader(`{"name": "x", "unknown": 1}`))
	assert.ErrorIs(err, ErrDescription)

	_, err = (&Description{Name: "x"}).Compile(f)
	assert.ErrorIs(err, ErrDescription)

	_, err = (&Description{Name: "x", Delta: big.NewInt(0)}).Compile(f)
	assert.ErrorIs(err, ErrDescription)

	_, err = (&Description{Name: "x", Delta: new(big.Int).Set(pallas)}).Compile(f)
	assert.ErrorIs(err, ErrDescription)

	_, err = (&Description{Name: "x", Delta: big.NewInt(5), Gates: []Gate{{Constraints: [][]Term{{{}}}}}}).Compile(f)
	assert.ErrorIs(err, ErrDescription)

	_, err = (&Description{Name: "x", Delta: big.NewInt(5), Gates: []Gate{{Selector: -1}}}).Compile(f)
	assert.ErrorIs(err, ErrDescription)

	a, err := (&Description{Name: "empty", Delta: big.NewInt(5)}).Compile(f)
	assert.NoError(err)
	assert.Equal(1, a.GateQuotientChunks())
	assert.Len(a.Partitions, 1)
}
