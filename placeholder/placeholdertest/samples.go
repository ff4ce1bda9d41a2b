package placeholdertest

import (
	"fmt"
	"math/big"
	"math/bits"
	"sync"

	"github.com/eon-protocol/minastate/circuits"
	"github.com/eon-protocol/minastate/field"
	"github.com/eon-protocol/minastate/placeholder"
)

// PALLAS is the scalar field modulus of the ledger fixtures.
var PALLAS, _ = new(big.Int).SetString("28948022309329048855892746252171976963363056481941560715954676764349967630337", 10)

var Pallas = sync.OnceValue(func() *field.Field {
	return field.MustNew(PALLAS)
})

// NewConfig derives consistent domain parameters for a table of the given
// size: D₀ has rows·2^blowup points and the rounds fold by steps (one-step
// rounds when steps is empty).
func NewConfig(f *field.Field, rows uint64, blowup int, lambda int, steps []int, layout placeholder.Layout, rotations placeholder.ColumnRotations) (*placeholder.Config, error) {
	size := rows << blowup
	r := bits.TrailingZeros64(size) - 1
	if len(steps) == 0 {
		for i := 0; i < r; i++ {
			steps = append(steps, 1)
		}
	}
	g, err := field.RootOfUnity(f, size)
	if err != nil {
		return nil, err
	}
	p := &placeholder.ProtocolParameters{
		Modulus:    f.Modulus(),
		R:          r,
		MaxDegree:  rows - 1,
		Lambda:     lambda,
		RowsAmount: rows,
		Omega:      f.Exp(g, size/rows).BigInt(),
		StepList:   steps,
		Layout:     layout,
	}
	w := g
	for i := 0; i < r; i++ {
		p.DOmegas = append(p.DOmegas, w.BigInt())
		w = f.Square(w)
	}
	return &placeholder.Config{Params: p, Rotations: rotations}, nil
}

func term(coeff int64, vars ...circuits.Variable) circuits.Term {
	return circuits.Term{Coeff: big.NewInt(coeff), Vars: vars}
}

func at(column, rotation int) circuits.Variable {
	return circuits.Variable{Column: column, Rotation: rotation}
}

func column(f *field.Field, n int, value func(row int) uint64) []field.Element {
	out := make([]field.Element, n)
	for i := range out {
		out[i] = f.NewElement(value(i))
	}
	return out
}

func ones(f *field.Field, n, active int) []field.Element {
	return column(f, n, func(row int) uint64 {
		if row < active {
			return 1
		}
		return 0
	})
}

// Base is the first ledger sub-proof: a multiply-and-accumulate chain over
// eight rows with a broadcast witness column.
//
//	w0·w1 - w2 = 0          (selector 0, every row)
//	w0[+1] - w2 - c0 = 0    (selector 1, rows 0..6)
//	3·w2 - 3·w0·w1 = 0      (selector 0)
func Base() (*Circuit, error) {
	f := Pallas()
	const n = 8
	layout := placeholder.Layout{Witness: 3, Constant: 1, Selector: 2}
	rotations := placeholder.ColumnRotations{{0, 1}, {0}, {0, -1}, {0}, {0}, {0}}
	cfg, err := NewConfig(f, n, 2, 4, nil, layout, rotations)
	if err != nil {
		return nil, err
	}
	desc := &circuits.Description{
		Name:       circuits.BASE,
		Partitions: 2,
		Delta:      big.NewInt(7),
		Gates: []circuits.Gate{
			{Selector: 0, Constraints: [][]circuits.Term{{term(1, at(0, 0), at(1, 0)), term(-1, at(2, 0))}}},
			{Selector: 1, Constraints: [][]circuits.Term{{term(1, at(0, 1)), term(-1, at(2, 0)), term(-1, at(3, 0))}}},
			{Selector: 0, Constraints: [][]circuits.Term{{term(3, at(2, 0)), term(-3, at(0, 0), at(1, 0))}}},
		},
	}
	table := &Table{
		Constant: [][]field.Element{column(f, n, func(row int) uint64 { return uint64(row) + 2 })},
		Selector: [][]field.Element{ones(f, n, n), ones(f, n, n-1)},
		Copies:   [][]Cell{{{0, 0}, {3, 0}}},
	}
	broadcast := make([]Cell, n)
	for row := range broadcast {
		broadcast[row] = Cell{1, row}
	}
	table.Copies = append(table.Copies, broadcast)
	witness := func([]field.Element) ([][]field.Element, error) {
		w := [][]field.Element{make([]field.Element, n), make([]field.Element, n), make([]field.Element, n)}
		w[0][0] = table.Constant[0][0]
		for row := 0; row < n; row++ {
			w[1][row] = f.NewElement(7)
			w[2][row] = f.Mul(w[0][row], w[1][row])
			if row+1 < n {
				w[0][row+1] = f.Add(w[2][row], table.Constant[0][row])
			}
		}
		return w, nil
	}
	return Compile(cfg, desc, table, witness)
}

// Scalar is the second ledger sub-proof: a Fibonacci-like recurrence driven
// by a constant column. Its FRI rounds fold by four and then by eight.
//
//	w0[+1] - w1 = 0
//	w1[+1] - w0 - w1 - c0 = 0   (selector 0, rows 0..6)
func Scalar() (*Circuit, error) {
	f := Pallas()
	const n = 8
	layout := placeholder.Layout{Witness: 2, Constant: 1, Selector: 1}
	rotations := placeholder.ColumnRotations{{0, 1}, {0, 1}, {0}, {0}}
	cfg, err := NewConfig(f, n, 3, 3, []int{2, 3}, layout, rotations)
	if err != nil {
		return nil, err
	}
	desc := &circuits.Description{
		Name:       circuits.SCALAR,
		Partitions: 1,
		Delta:      big.NewInt(5),
		Gates: []circuits.Gate{{Selector: 0, Constraints: [][]circuits.Term{
			{term(1, at(0, 1)), term(-1, at(1, 0))},
			{term(1, at(1, 1)), term(-1, at(0, 0)), term(-1, at(1, 0)), term(-1, at(2, 0))},
		}}},
	}
	table := &Table{
		Constant: [][]field.Element{column(f, n, func(row int) uint64 { return uint64(row) + 1 })},
		Selector: [][]field.Element{ones(f, n, n-1)},
		Copies:   [][]Cell{{{0, 0}, {2, 0}}},
	}
	witness := func([]field.Element) ([][]field.Element, error) {
		w := [][]field.Element{make([]field.Element, n), make([]field.Element, n)}
		w[0][0], w[1][0] = table.Constant[0][0], f.One()
		for row := 0; row+1 < n; row++ {
			w[0][row+1] = w[1][row]
			w[1][row+1] = f.Add(f.Add(w[0][row], w[1][row]), table.Constant[0][row])
		}
		return w, nil
	}
	return Compile(cfg, desc, table, witness)
}

// ACCOUNT_INPUTS is the public input length of the account circuit.
const ACCOUNT_INPUTS = 12

// Account folds up to ACCOUNT_INPUTS public inputs into a running
// accumulator over sixteen rows. Each public input cell is copied into the
// witness column w1.
//
//	w0[+1] - c0·w0 - w1 = 0   (selector 0, rows 0..14)
//	w2 - w0·w1 = 0            (selector 1, every row)
func Account() (*Circuit, error) {
	f := Pallas()
	const n = 16
	layout := placeholder.Layout{Witness: 3, PublicInput: 1, Constant: 1, Selector: 2}
	rotations := placeholder.ColumnRotations{{0, 1}, {0}, {0}, {0}, {0}, {0}, {0}}
	cfg, err := NewConfig(f, n, 1, 6, []int{1, 2, 1}, layout, rotations)
	if err != nil {
		return nil, err
	}
	desc := &circuits.Description{
		Name:       circuits.ACCOUNT,
		Partitions: 2,
		Delta:      big.NewInt(11),
		Gates: []circuits.Gate{
			{Selector: 0, Constraints: [][]circuits.Term{{term(1, at(0, 1)), term(-1, at(4, 0), at(0, 0)), term(-1, at(1, 0))}}},
			{Selector: 1, Constraints: [][]circuits.Term{{term(1, at(2, 0)), term(-1, at(0, 0), at(1, 0))}}},
		},
	}
	table := &Table{
		Constant: [][]field.Element{column(f, n, func(int) uint64 { return 31 })},
		Selector: [][]field.Element{ones(f, n, n-1), ones(f, n, n)},
	}
	for row := 0; row < ACCOUNT_INPUTS; row++ {
		table.Copies = append(table.Copies, []Cell{{layout.PublicInputColumn(0), row}, {1, row}})
	}
	witness := func(publicInput []field.Element) ([][]field.Element, error) {
		if len(publicInput) > ACCOUNT_INPUTS {
			return nil, fmt.Errorf("placeholdertest: %d account inputs, at most %d", len(publicInput), ACCOUNT_INPUTS)
		}
		w := [][]field.Element{make([]field.Element, n), make([]field.Element, n), make([]field.Element, n)}
		for row := 0; row < n; row++ {
			if row < len(publicInput) {
				w[1][row] = publicInput[row]
			}
			w[2][row] = f.Mul(w[0][row], w[1][row])
			if row+1 < n {
				w[0][row+1] = f.Add(f.Mul(table.Constant[0][row], w[0][row]), w[1][row])
			}
		}
		return w, nil
	}
	return Compile(cfg, desc, table, witness)
}
