// Package placeholdertest is a conforming prover for the placeholder
// verifier. It is slow (quadratic interpolation) and meant for tests and
// fixtures over small tables only.
package placeholdertest

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eon-protocol/minastate/circuits"
	"github.com/eon-protocol/minastate/circuits/gates"
	"github.com/eon-protocol/minastate/circuits/permutation"
	"github.com/eon-protocol/minastate/field"
	"github.com/eon-protocol/minastate/merkle"
	"github.com/eon-protocol/minastate/placeholder"
)

var ErrUnsatisfied = errors.New("placeholdertest: assignment does not satisfy the circuit")

// Cell addresses a permuted column (table order) at a row.
type Cell struct {
	Column int
	Row    int
}

// Table is the preprocessed part of a circuit.
type Table struct {
	Constant [][]field.Element // [column][row]
	Selector [][]field.Element
	Copies   [][]Cell // cells of one cycle must hold equal values
}

// Witness builds the witness columns from the public input.
type Witness func(publicInput []field.Element) ([][]field.Element, error)

type Circuit struct {
	Config      *placeholder.Config
	Description *circuits.Description // FixedRoot set by Compile
	Verifier    *placeholder.Verifier
	Witness     Witness

	table   *Table
	sigma   [][]field.Element // σ over the rows
	fixed   []coeffs          // fixed batch, leaf order
	fixedD0 [][]field.Element // [poly][D₀ index]
	tree    *merkle.Tree
}

type coeffs = []field.Element

// Compile preprocesses the table, commits to the fixed batch and writes its
// root into the description.
func Compile(cfg *placeholder.Config, desc *circuits.Description, table *Table, witness Witness) (*Circuit, error) {
	v, err := placeholder.NewVerifier(cfg.Params, cfg.Rotations, desc)
	if err != nil {
		return nil, err
	}
	f, h, l := v.Field(), v.Table(), cfg.Params.Layout
	n := int(h.Size)
	if len(table.Constant) != l.Constant || len(table.Selector) != l.Selector {
		return nil, fmt.Errorf("placeholdertest: %d constant and %d selector columns for layout %+v", len(table.Constant), len(table.Selector), l)
	}
	rows := h.Elements()
	label := func(c Cell) field.Element { return f.Mul(v.Shifts()[c.Column], rows[c.Row]) }
	me := &Circuit{Config: cfg, Witness: witness, table: table, sigma: make([][]field.Element, l.Permuted())}
	for i := range me.sigma {
		me.sigma[i] = make([]field.Element, n)
		for j := range me.sigma[i] {
			me.sigma[i][j] = label(Cell{i, j})
		}
	}
	for _, cycle := range table.Copies {
		for k, c := range cycle {
			if c.Column < 0 || c.Column >= l.Permuted() || c.Row < 0 || c.Row >= n {
				return nil, fmt.Errorf("placeholdertest: copy cell %+v outside the table", c)
			}
			me.sigma[c.Column][c.Row] = label(cycle[(k+1)%len(cycle)])
		}
	}
	d0 := v.FRI().Domain().Elements()
	for _, ref := range v.Batches()[placeholder.FIXED_BATCH] {
		var values []field.Element
		switch {
		case ref.Kind == placeholder.SIGMA_POLY:
			values = me.sigma[ref.Index]
		case ref.Index >= l.SelectorColumn(0):
			values = table.Selector[ref.Index-l.SelectorColumn(0)]
		default:
			values = table.Constant[ref.Index-l.ConstantColumn(0)]
		}
		if len(values) != n {
			return nil, fmt.Errorf("placeholdertest: fixed column with %d rows, want %d", len(values), n)
		}
		c, err := interpolate(f, values, h.Generator, f.One())
		if err != nil {
			return nil, err
		}
		me.fixed = append(me.fixed, c)
		me.fixedD0 = append(me.fixedD0, evaluate(f, c, d0))
	}
	if me.tree, err = commit(me.fixedD0); err != nil {
		return nil, err
	}
	committed := *desc
	committed.FixedRoot = common.Hash(me.tree.Root())
	me.Description = &committed
	if me.Verifier, err = placeholder.NewVerifier(cfg.Params, cfg.Rotations, me.Description); err != nil {
		return nil, err
	}
	return me, nil
}

// commit builds a batch tree whose leaf k holds every polynomial at D₀[k].
func commit(polys [][]field.Element) (*merkle.Tree, error) {
	size := len(polys[0])
	leaves := make([][]field.Element, size)
	for k := range leaves {
		leaves[k] = make([]field.Element, len(polys))
		for i := range polys {
			leaves[k][i] = polys[i][k]
		}
	}
	return merkle.NewTree(leaves)
}

type options struct {
	unsatisfied bool
}

type Option func(*options)

// AllowUnsatisfied skips the satisfiability checks so invalid proofs can be
// produced.
func AllowUnsatisfied() Option {
	return func(o *options) { o.unsatisfied = true }
}

// Prove generates the witness from the public input and proves it.
func (me *Circuit) Prove(ctx context.Context, publicInput []field.Element, opts ...Option) (*placeholder.Proof, error) {
	w, err := me.Witness(publicInput)
	if err != nil {
		return nil, err
	}
	return me.ProveWitness(ctx, w, publicInput, opts...)
}

func (me *Circuit) ProveWitness(ctx context.Context, witness [][]field.Element, publicInput []field.Element, opts ...Option) (*placeholder.Proof, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	v := me.Verifier
	f, h, l := v.Field(), v.Table(), me.Config.Params.Layout
	n := int(h.Size)
	if len(witness) != l.Witness {
		return nil, fmt.Errorf("placeholdertest: %d witness columns, want %d", len(witness), l.Witness)
	}
	if len(publicInput) > l.PublicInput*n {
		return nil, fmt.Errorf("placeholdertest: %d public inputs for %d cells", len(publicInput), l.PublicInput*n)
	}

	// full table in column order
	columns := make([][]field.Element, 0, l.Columns())
	for _, w := range witness {
		if len(w) != n {
			return nil, fmt.Errorf("placeholdertest: witness column with %d rows, want %d", len(w), n)
		}
		columns = append(columns, w)
	}
	for j := 0; j < l.PublicInput; j++ {
		col := make([]field.Element, n)
		for i := range col {
			if j*n+i < len(publicInput) {
				col[i] = publicInput[j*n+i]
			}
		}
		columns = append(columns, col)
	}
	columns = append(columns, me.table.Constant...)
	columns = append(columns, me.table.Selector...)
	if !o.unsatisfied {
		if err := me.check(columns); err != nil {
			return nil, err
		}
	}
	polys := make([]coeffs, len(columns))
	for c := range columns {
		var err error
		if polys[c], err = interpolate(f, columns[c], h.Generator, f.One()); err != nil {
			return nil, err
		}
	}

	d0 := v.FRI().Domain().Elements()
	batches := v.Batches()
	var evals [placeholder.BATCHES][][]field.Element
	var trees [placeholder.BATCHES]*merkle.Tree
	evals[placeholder.FIXED_BATCH] = me.fixedD0
	trees[placeholder.FIXED_BATCH] = me.tree
	for _, ref := range batches[placeholder.VARIABLE_BATCH] {
		evals[placeholder.VARIABLE_BATCH] = append(evals[placeholder.VARIABLE_BATCH], evaluate(f, polys[ref.Index], d0))
	}
	var err error
	if trees[placeholder.VARIABLE_BATCH], err = commit(evals[placeholder.VARIABLE_BATCH]); err != nil {
		return nil, err
	}

	proof := &placeholder.Proof{}
	proof.Roots[placeholder.FIXED_BATCH] = trees[placeholder.FIXED_BATCH].Root()
	proof.Roots[placeholder.VARIABLE_BATCH] = trees[placeholder.VARIABLE_BATCH].Root()
	tr, err := v.Transcript(publicInput)
	if err != nil {
		return nil, err
	}
	squeeze := func(binds ...merkle.Hash) (field.Element, error) {
		for _, b := range binds {
			if err := tr.Absorb(b[:]); err != nil {
				return field.Element{}, err
			}
		}
		return tr.Squeeze()
	}
	beta, err := squeeze(proof.Roots[placeholder.FIXED_BATCH], proof.Roots[placeholder.VARIABLE_BATCH])
	if err != nil {
		return nil, err
	}
	gamma, err := squeeze()
	if err != nil {
		return nil, err
	}

	m := l.Permuted()
	z, err := permutation.GrandProduct(f, columns[:m], me.sigma, v.Shifts(), h.Elements(), beta, gamma)
	if err != nil {
		return nil, err
	}
	zPoly, err := interpolate(f, z, h.Generator, f.One())
	if err != nil {
		return nil, err
	}
	evals[placeholder.PERMUTATION_BATCH] = [][]field.Element{evaluate(f, zPoly, d0)}
	if trees[placeholder.PERMUTATION_BATCH], err = commit(evals[placeholder.PERMUTATION_BATCH]); err != nil {
		return nil, err
	}
	proof.Roots[placeholder.PERMUTATION_BATCH] = trees[placeholder.PERMUTATION_BATCH].Root()
	alpha, err := squeeze(proof.Roots[placeholder.PERMUTATION_BATCH])
	if err != nil {
		return nil, err
	}
	theta, err := squeeze()
	if err != nil {
		return nil, err
	}

	gateChunks, permChunks, err := me.quotients(ctx, o, polys, zPoly, alpha, beta, gamma, theta)
	if err != nil {
		return nil, err
	}
	for _, c := range append(append([]coeffs{}, gateChunks...), permChunks...) {
		evals[placeholder.QUOTIENT_BATCH] = append(evals[placeholder.QUOTIENT_BATCH], evaluate(f, c, d0))
	}
	if trees[placeholder.QUOTIENT_BATCH], err = commit(evals[placeholder.QUOTIENT_BATCH]); err != nil {
		return nil, err
	}
	proof.Roots[placeholder.QUOTIENT_BATCH] = trees[placeholder.QUOTIENT_BATCH].Root()
	xi, err := squeeze(proof.Roots[placeholder.QUOTIENT_BATCH])
	if err != nil {
		return nil, err
	}

	ev := &proof.Evaluations
	for c, p := range polys {
		var vals []field.Element
		for _, r := range v.Rotations()[c] {
			vals = append(vals, f.EvalPolynomial(p, v.Rotate(xi, r)))
		}
		ev.Columns = append(ev.Columns, vals)
	}
	for i, ref := range batches[placeholder.FIXED_BATCH] {
		if ref.Kind == placeholder.SIGMA_POLY {
			ev.Sigma = append(ev.Sigma, f.EvalPolynomial(me.fixed[i], xi))
		}
	}
	ev.Z = f.EvalPolynomial(zPoly, xi)
	ev.ZShift = f.EvalPolynomial(zPoly, v.Rotate(xi, 1))
	for _, c := range gateChunks {
		ev.GateQuotient = append(ev.GateQuotient, f.EvalPolynomial(c, xi))
	}
	for _, c := range permChunks {
		ev.PermQuotient = append(ev.PermQuotient, f.EvalPolynomial(c, xi))
	}
	if err := tr.AbsorbElements(ev.Flatten()...); err != nil {
		return nil, err
	}
	delta, err := tr.Squeeze()
	if err != nil {
		return nil, err
	}

	deep := make([]field.Element, len(d0))
	for k, x := range d0 {
		var leaves [placeholder.BATCHES][]field.Element
		for b := range leaves {
			for _, e := range evals[b] {
				leaves[b] = append(leaves[b], e[k])
			}
		}
		if deep[k], err = v.Combine(&leaves, ev, x, xi, delta); err != nil {
			return nil, err
		}
	}
	friProof, indices, err := v.FRI().Prove(tr, deep)
	if err != nil {
		return nil, err
	}
	proof.FRI = *friProof
	for _, q := range indices {
		var openings [placeholder.BATCHES]merkle.Opening
		for b := range openings {
			if openings[b], err = trees[b].Open(q); err != nil {
				return nil, err
			}
		}
		proof.Openings = append(proof.Openings, openings)
	}
	return proof, nil
}

// quotients divides the gate and permutation identities by xⁿ-1 on a coset
// large enough to hold them and splits the results into chunks of n
// coefficients.
func (me *Circuit) quotients(ctx context.Context, o options, polys []coeffs, zPoly coeffs, alpha, beta, gamma, theta field.Element) ([]coeffs, []coeffs, error) {
	v := me.Verifier
	f, h, l := v.Field(), v.Table(), me.Config.Params.Layout
	n := h.Size
	circuit := v.Arithmetization()
	gateCount, permCount := uint64(circuit.GateQuotientChunks()), uint64(l.Permuted())
	size := uint64(1)
	for size < (max(gateCount, permCount)+1)*n {
		size <<= 1
	}
	g, err := field.RootOfUnity(f, size)
	if err != nil {
		return nil, nil, err
	}
	shift := f.NewElement(2)
	for f.Exp(shift, size).Equal(f.One()) {
		shift = f.Add(shift, f.One())
	}
	points := powers(f, shift, g, size)
	gateVals := make([]field.Element, size)
	permVals := make([]field.Element, size)
	for t, x := range points {
		a := &pointAssignment{f: f, v: v, polys: polys, x: x, layout: l}
		fg, err := gates.Evaluate(ctx, f, circuit.Partitions, a, theta)
		if err != nil {
			return nil, nil, err
		}
		po := permutation.Opening{
			Z:      f.EvalPolynomial(zPoly, x),
			ZShift: f.EvalPolynomial(zPoly, v.Rotate(x, 1)),
		}
		for i := 0; i < l.Permuted(); i++ {
			po.Values = append(po.Values, f.EvalPolynomial(polys[i], x))
		}
		for i, ref := range v.Batches()[placeholder.FIXED_BATCH] {
			if ref.Kind == placeholder.SIGMA_POLY {
				po.Sigma = append(po.Sigma, f.EvalPolynomial(me.fixed[i], x))
			}
		}
		l0, err := h.Lagrange(0, x)
		if err != nil {
			return nil, nil, err
		}
		f0, f1, err := permutation.Evaluate(f, po, v.Shifts(), x, l0, beta, gamma)
		if err != nil {
			return nil, nil, err
		}
		zh := h.Vanishing(x)
		if gateVals[t], err = f.Div(fg, zh); err != nil {
			return nil, nil, err
		}
		if permVals[t], err = f.Div(f.Add(f0, f.Mul(alpha, f1)), zh); err != nil {
			return nil, nil, err
		}
	}
	split := func(values []field.Element, chunks uint64) ([]coeffs, error) {
		c, err := interpolate(f, values, g, shift)
		if err != nil {
			return nil, err
		}
		for k := chunks * n; k < size; k++ {
			if !c[k].IsZero() && !o.unsatisfied {
				return nil, fmt.Errorf("%w: quotient has degree ≥ %d", ErrUnsatisfied, chunks*n)
			}
		}
		out := make([]coeffs, chunks)
		for j := range out {
			out[j] = c[uint64(j)*n : uint64(j+1)*n]
		}
		return out, nil
	}
	gateChunks, err := split(gateVals, gateCount)
	if err != nil {
		return nil, nil, err
	}
	permChunks, err := split(permVals, permCount)
	if err != nil {
		return nil, nil, err
	}
	return gateChunks, permChunks, nil
}

// pointAssignment evaluates table polynomials at x·ωʳ.
type pointAssignment struct {
	f      *field.Field
	v      *placeholder.Verifier
	polys  []coeffs
	x      field.Element
	layout placeholder.Layout
}

func (me *pointAssignment) Value(v gates.Variable) (field.Element, error) {
	if v.Column < 0 || v.Column >= len(me.polys) {
		return field.Element{}, gates.ErrUnknownVariable
	}
	return me.f.EvalPolynomial(me.polys[v.Column], me.v.Rotate(me.x, v.Rotation)), nil
}

func (me *pointAssignment) Selector(i int) (field.Element, error) {
	return me.Value(gates.Variable{Column: me.layout.SelectorColumn(i)})
}

// rowAssignment reads table cells directly.
type rowAssignment struct {
	columns [][]field.Element
	row     int
	layout  placeholder.Layout
}

func (me *rowAssignment) Value(v gates.Variable) (field.Element, error) {
	if v.Column < 0 || v.Column >= len(me.columns) {
		return field.Element{}, gates.ErrUnknownVariable
	}
	n := len(me.columns[v.Column])
	return me.columns[v.Column][((me.row+v.Rotation)%n+n)%n], nil
}

func (me *rowAssignment) Selector(i int) (field.Element, error) {
	return me.Value(gates.Variable{Column: me.layout.SelectorColumn(i)})
}

// check evaluates every constraint on every row and walks the copy cycles.
func (me *Circuit) check(columns [][]field.Element) error {
	v := me.Verifier
	f, l := v.Field(), me.Config.Params.Layout
	for row := range columns[0] {
		a := &rowAssignment{columns: columns, row: row, layout: l}
		for gi, g := range v.Arithmetization().Gates {
			for k := range g.Constraints {
				single := gates.Partition{Gates: []gates.Gate{{Selector: g.Selector, Constraints: g.Constraints[k : k+1]}}}
				val, err := single.Evaluate(f, a, f.One())
				if err != nil {
					return err
				}
				if !val.IsZero() {
					return fmt.Errorf("%w: %s gate %d constraint %d at row %d", ErrUnsatisfied, v.Arithmetization().Name, gi, k, row)
				}
			}
		}
	}
	for _, cycle := range me.table.Copies {
		for _, c := range cycle[1:] {
			if !columns[c.Column][c.Row].Equal(columns[cycle[0].Column][cycle[0].Row]) {
				return fmt.Errorf("%w: copy %+v differs from %+v", ErrUnsatisfied, c, cycle[0])
			}
		}
	}
	return nil
}
