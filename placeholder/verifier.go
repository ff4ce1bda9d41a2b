// Package placeholder verifies Placeholder (PLONK with an FRI based list
// polynomial commitment) proofs.
//
// A proof commits to four Merkle batches over the FRI domain D₀: fixed
// (constants, selectors, σ), variable (witness, public input), permutation
// (Z) and quotient (gate chunks, permutation chunks). The verifier replays
// the transcript, checks the gate and copy identities at the challenge ξ from
// the claimed evaluations, and ties those evaluations to the commitments
// with a DEEP quotient fed to FRI.
package placeholder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/consensys/gnark/logger"

	"github.com/eon-protocol/minastate/circuits"
	"github.com/eon-protocol/minastate/circuits/gates"
	"github.com/eon-protocol/minastate/circuits/permutation"
	"github.com/eon-protocol/minastate/field"
	"github.com/eon-protocol/minastate/fri"
	"github.com/eon-protocol/minastate/transcript"
)

var ErrPublicInputLength = errors.New("placeholder: public input does not fit the public input columns")

type PolyKind uint8

const (
	COLUMN_POLY PolyKind = iota
	SIGMA_POLY
	Z_POLY
	GATE_CHUNK
	PERM_CHUNK
)

// PolyRef names one committed polynomial.
type PolyRef struct {
	Kind  PolyKind
	Index int
}

type Verifier struct {
	field     *field.Field
	params    *ProtocolParameters
	rotations ColumnRotations
	circuit   *circuits.Arithmetization
	table     *field.Domain
	fri       *fri.Params
	shifts    []field.Element
	batches   [BATCHES][]PolyRef
	lookup    []map[int]int
	points    []int // distinct rotations opened by any polynomial
}

// NewVerifier validates params, rotations and the circuit against each other
// once. Every failure is a *StructuralError.
func NewVerifier(params *ProtocolParameters, rotations ColumnRotations, desc *circuits.Description) (*Verifier, error) {
	if err := params.validate(rotations); err != nil {
		return nil, err
	}
	f, err := field.New(params.Modulus)
	if err != nil {
		return nil, structural(ErrParameterShape, "modulus: %v", err)
	}
	omega, err := f.FromBig(params.Omega)
	if err != nil {
		return nil, structural(ErrParameterShape, "omega: %v", err)
	}
	table, err := field.NewDomain(f, omega, params.RowsAmount)
	if err != nil {
		return nil, structural(ErrParameterShape, "omega: %v", err)
	}
	dOmegas := make([]field.Element, len(params.DOmegas))
	for i, w := range params.DOmegas {
		if dOmegas[i], err = f.FromBig(w); err != nil {
			return nil, structural(ErrParameterShape, "D_omegas[%d]: %v", i, err)
		}
	}
	friParams, err := fri.NewParams(f, dOmegas, params.StepList, params.MaxDegree, params.Lambda)
	if err != nil {
		return nil, &StructuralError{Err: err}
	}
	if desc == nil {
		return nil, structural(ErrParameterShape, "missing arithmetization")
	}
	circuit, err := desc.Compile(f)
	if err != nil {
		return nil, &StructuralError{Err: err}
	}
	me := &Verifier{
		field:     f,
		params:    params,
		rotations: rotations,
		circuit:   circuit,
		table:     table,
		fri:       friParams,
		shifts:    permutation.Shifts(f, circuit.Delta, params.Layout.Permuted()),
		lookup:    make([]map[int]int, len(rotations)),
	}
	for c, rots := range rotations {
		me.lookup[c] = make(map[int]int, len(rots))
		for i, r := range rots {
			me.lookup[c][r] = i
		}
	}
	l := params.Layout
	for gi, g := range circuit.Gates {
		if g.Selector >= l.Selector {
			return nil, structural(ErrParameterShape, "%s gate %d: selector %d of %d", circuit.Name, gi, g.Selector, l.Selector)
		}
		for _, v := range g.Variables() {
			if v.Column < 0 || v.Column >= l.Columns() {
				return nil, structural(ErrParameterShape, "%s gate %d: column %d of %d", circuit.Name, gi, v.Column, l.Columns())
			}
			if _, ok := me.lookup[v.Column][v.Rotation]; !ok {
				return nil, structural(ErrParameterShape, "%s gate %d: column %d has no rotation %d", circuit.Name, gi, v.Column, v.Rotation)
			}
		}
	}

	m := l.Permuted()
	for i := 0; i < l.Constant; i++ {
		me.batches[FIXED_BATCH] = append(me.batches[FIXED_BATCH], PolyRef{COLUMN_POLY, l.ConstantColumn(i)})
	}
	for i := 0; i < l.Selector; i++ {
		me.batches[FIXED_BATCH] = append(me.batches[FIXED_BATCH], PolyRef{COLUMN_POLY, l.SelectorColumn(i)})
	}
	for i := 0; i < m; i++ {
		me.batches[FIXED_BATCH] = append(me.batches[FIXED_BATCH], PolyRef{SIGMA_POLY, i})
	}
	for i := 0; i < l.Witness+l.PublicInput; i++ {
		me.batches[VARIABLE_BATCH] = append(me.batches[VARIABLE_BATCH], PolyRef{COLUMN_POLY, i})
	}
	me.batches[PERMUTATION_BATCH] = []PolyRef{{Z_POLY, 0}}
	for i := 0; i < circuit.GateQuotientChunks(); i++ {
		me.batches[QUOTIENT_BATCH] = append(me.batches[QUOTIENT_BATCH], PolyRef{GATE_CHUNK, i})
	}
	for i := 0; i < m; i++ {
		me.batches[QUOTIENT_BATCH] = append(me.batches[QUOTIENT_BATCH], PolyRef{PERM_CHUNK, i})
	}
	for b, refs := range me.batches {
		if params.MaxLeafSize > 0 && len(refs) > params.MaxLeafSize {
			return nil, structural(ErrParameterShape, "batch %d holds %d polynomials, max leaf size %d", b, len(refs), params.MaxLeafSize)
		}
		for _, ref := range refs {
			for _, r := range me.PolyRotations(ref) {
				if !slices.Contains(me.points, r) {
					me.points = append(me.points, r)
				}
			}
		}
	}
	slices.Sort(me.points)
	return me, nil
}

func (me *Verifier) Field() *field.Field                        { return me.field }
func (me *Verifier) Params() *ProtocolParameters                { return me.params }
func (me *Verifier) Rotations() ColumnRotations                 { return me.rotations }
func (me *Verifier) Arithmetization() *circuits.Arithmetization { return me.circuit }
func (me *Verifier) Table() *field.Domain                       { return me.table }
func (me *Verifier) FRI() *fri.Params                           { return me.fri }
func (me *Verifier) Shifts() []field.Element                    { return me.shifts }
func (me *Verifier) Batches() [BATCHES][]PolyRef                { return me.batches }

// PolyRotations lists the rotations a committed polynomial is opened at,
// in the order its claimed values appear in Evaluations.
func (me *Verifier) PolyRotations(ref PolyRef) []int {
	switch ref.Kind {
	case COLUMN_POLY:
		return me.rotations[ref.Index]
	case Z_POLY:
		return []int{0, 1}
	}
	return []int{0}
}

// Claimed returns the claimed values of ref, aligned with PolyRotations.
func (me *Verifier) Claimed(ev *Evaluations, ref PolyRef) []field.Element {
	switch ref.Kind {
	case COLUMN_POLY:
		return ev.Columns[ref.Index]
	case SIGMA_POLY:
		return ev.Sigma[ref.Index : ref.Index+1]
	case Z_POLY:
		return []field.Element{ev.Z, ev.ZShift}
	case GATE_CHUNK:
		return ev.GateQuotient[ref.Index : ref.Index+1]
	}
	return ev.PermQuotient[ref.Index : ref.Index+1]
}

// ChallengeIDs is the transcript schedule of one proof.
func (me *Verifier) ChallengeIDs() []string {
	return append([]string{"beta", "gamma", "alpha", "theta", "xi", "delta"}, me.fri.ChallengeIDs()...)
}

// Transcript starts the transcript of one proof and binds the circuit name
// and the public input to β.
func (me *Verifier) Transcript(publicInput []field.Element) (*transcript.Transcript, error) {
	tr := transcript.New(me.field, me.ChallengeIDs()...)
	if err := tr.Absorb([]byte(me.circuit.Name)); err != nil {
		return nil, err
	}
	if len(publicInput) > 0 {
		if err := tr.AbsorbElements(publicInput...); err != nil {
			return nil, err
		}
	}
	return tr, nil
}

// Rotate returns ξ·ωʳ.
func (me *Verifier) Rotate(xi field.Element, r int) field.Element {
	n := int64(me.table.Size)
	return me.field.Mul(xi, me.table.Element(uint64((int64(r)%n+n)%n)))
}

// Combine evaluates the DEEP quotient Σ δᵏ·(fₖ(x) - yₖ)/(x - zₖ) from the
// batch leaves opened at x. k runs over batches, polynomials in leaf order and
// their rotations in order.
func (me *Verifier) Combine(leaves *[BATCHES][]field.Element, ev *Evaluations, x, xi, delta field.Element) (field.Element, error) {
	f := me.field
	den := make([]field.Element, len(me.points))
	for i, r := range me.points {
		den[i] = f.Sub(x, me.Rotate(xi, r))
	}
	inv, err := f.BatchInverse(den)
	if err != nil {
		return field.Element{}, err
	}
	var acc field.Element
	dk := f.One()
	for b, refs := range me.batches {
		if len(leaves[b]) != len(refs) {
			return field.Element{}, fmt.Errorf("%w: batch %d leaf has %d values, want %d", ErrMalformedProof, b, len(leaves[b]), len(refs))
		}
		for k, ref := range refs {
			claimed := me.Claimed(ev, ref)
			for i, r := range me.PolyRotations(ref) {
				p, _ := slices.BinarySearch(me.points, r)
				term := f.Mul(f.Sub(leaves[b][k], claimed[i]), inv[p])
				acc = f.Add(acc, f.Mul(dk, term))
				dk = f.Mul(dk, delta)
			}
		}
	}
	return acc, nil
}

// Recombine evaluates Σ Tⱼ(ξ)·ξ^(n·j) for quotient chunks of degree < n.
func (me *Verifier) Recombine(chunks []field.Element, xi field.Element) field.Element {
	f := me.field
	xn := f.Exp(xi, me.table.Size)
	var acc field.Element
	pow := f.One()
	for _, c := range chunks {
		acc = f.Add(acc, f.Mul(c, pow))
		pow = f.Mul(pow, xn)
	}
	return acc
}

// Verify checks one proof against publicInput. It returns nil when the proof
// is accepted, a *StructuralError when the input is malformed and a
// *RejectionError naming the failing stage otherwise.
func (me *Verifier) Verify(ctx context.Context, blob []byte, publicInput []field.Element) error {
	log := logger.Logger().With().
		Str("backend", "placeholder").
		Str("circuit", me.circuit.Name).
		Int("rows", int(me.table.Size)).Logger()
	start := time.Now()

	s := &session{Verifier: me, blob: blob, publicInput: publicInput}
	stages := []struct {
		stage Stage
		run   func(context.Context) error
	}{
		{StageInit, s.init},
		{StageReplayTranscript, s.replay},
		{StageCommitments, s.commitments},
		{StagePublicInput, s.checkPublicInput},
		{StageConstraints, s.constraints},
		{StagePermutation, s.permutation},
		{StageFRI, s.lowDegree},
	}
	for _, st := range stages {
		if err := st.run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !IsStructural(err) {
				err = reject(st.stage, err)
			}
			log.Debug().Str("stage", st.stage.String()).Err(err).Msg("proof rejected")
			return err
		}
	}
	log.Debug().Dur("took", time.Since(start)).Msg("proof accepted")
	return nil
}

type session struct {
	*Verifier
	blob        []byte
	publicInput []field.Element
	proof       *Proof
	tr          *transcript.Transcript

	beta, gamma, alpha, theta, xi, delta field.Element
	vanishing                            field.Element // ξⁿ - 1
}

func (me *session) init(context.Context) error {
	l := me.params.Layout
	n := int(me.table.Size)
	if len(me.publicInput) > l.PublicInput*n {
		return &StructuralError{Err: fmt.Errorf("%w: %d values for %d cells", ErrPublicInputLength, len(me.publicInput), l.PublicInput*n)}
	}
	proof, err := Decode(me.field, me.blob)
	if err != nil {
		return err
	}
	ev := &proof.Evaluations
	if len(ev.Columns) != l.Columns() {
		return structural(ErrMalformedProof, "%d column evaluations, want %d", len(ev.Columns), l.Columns())
	}
	for c := range ev.Columns {
		if len(ev.Columns[c]) != len(me.rotations[c]) {
			return structural(ErrMalformedProof, "column %d has %d evaluations, want %d", c, len(ev.Columns[c]), len(me.rotations[c]))
		}
	}
	if len(ev.Sigma) != l.Permuted() || len(ev.PermQuotient) != l.Permuted() {
		return structural(ErrMalformedProof, "%d sigma and %d permutation chunks, want %d", len(ev.Sigma), len(ev.PermQuotient), l.Permuted())
	}
	if len(ev.GateQuotient) != me.circuit.GateQuotientChunks() {
		return structural(ErrMalformedProof, "%d gate chunks, want %d", len(ev.GateQuotient), me.circuit.GateQuotientChunks())
	}
	if len(proof.FRI.Queries) != me.fri.Queries() {
		return structural(ErrMalformedProof, "%d queries, want %d", len(proof.FRI.Queries), me.fri.Queries())
	}
	if len(proof.FRI.Roots) != me.fri.Rounds() {
		return structural(ErrMalformedProof, "%d FRI roots, want %d", len(proof.FRI.Roots), me.fri.Rounds())
	}
	for j, q := range proof.FRI.Queries {
		if len(q.Rounds) != me.fri.Rounds() {
			return structural(ErrMalformedProof, "query %d opens %d rounds, want %d", j, len(q.Rounds), me.fri.Rounds())
		}
		for b, o := range proof.Openings[j] {
			if len(o.Values) != len(me.batches[b]) {
				return structural(ErrMalformedProof, "query %d batch %d opens %d values, want %d", j, b, len(o.Values), len(me.batches[b]))
			}
		}
	}
	me.proof = proof
	return nil
}

func (me *session) replay(context.Context) error {
	tr, err := me.Transcript(me.publicInput)
	if err != nil {
		return err
	}
	roots := &me.proof.Roots
	squeeze := func(binds ...[]byte) (field.Element, error) {
		for _, b := range binds {
			if err := tr.Absorb(b); err != nil {
				return field.Element{}, err
			}
		}
		return tr.Squeeze()
	}
	if me.beta, err = squeeze(roots[FIXED_BATCH][:], roots[VARIABLE_BATCH][:]); err != nil {
		return err
	}
	if me.gamma, err = squeeze(); err != nil {
		return err
	}
	if me.alpha, err = squeeze(roots[PERMUTATION_BATCH][:]); err != nil {
		return err
	}
	if me.theta, err = squeeze(); err != nil {
		return err
	}
	if me.xi, err = squeeze(roots[QUOTIENT_BATCH][:]); err != nil {
		return err
	}
	if err := tr.AbsorbElements(me.proof.Evaluations.Flatten()...); err != nil {
		return err
	}
	if me.delta, err = tr.Squeeze(); err != nil {
		return err
	}
	me.vanishing = me.table.Vanishing(me.xi)
	if me.vanishing.IsZero() {
		return ErrDegenerateChallenge
	}
	me.tr = tr
	return nil
}

func (me *session) commitments(context.Context) error {
	if me.proof.Roots[FIXED_BATCH] != me.circuit.FixedRoot {
		return ErrFixedRoot
	}
	return nil
}

// checkPublicInput compares each public input column at ξ with the
// interpolation Σ piᵢ·Lᵢ(ξ) of its share of the public input.
func (me *session) checkPublicInput(context.Context) error {
	f, l := me.field, me.params.Layout
	n := int(me.table.Size)
	lagrange := make([]field.Element, min(n, len(me.publicInput)))
	for i := range lagrange {
		v, err := me.table.Lagrange(uint64(i), me.xi)
		if err != nil {
			return err
		}
		lagrange[i] = v
	}
	for j := 0; j < l.PublicInput; j++ {
		var want field.Element
		for i := 0; i < n && j*n+i < len(me.publicInput); i++ {
			want = f.Add(want, f.Mul(me.publicInput[j*n+i], lagrange[i]))
		}
		col := l.PublicInputColumn(j)
		if !me.proof.Evaluations.Columns[col][me.lookup[col][0]].Equal(want) {
			return fmt.Errorf("%w: column %d", ErrPublicInputMismatch, col)
		}
	}
	return nil
}

// opened resolves gate variables from the claimed evaluations.
type opened struct {
	*session
}

func (me opened) Value(v gates.Variable) (field.Element, error) {
	pos, ok := me.lookup[v.Column][v.Rotation]
	if !ok {
		return field.Element{}, gates.ErrUnknownVariable
	}
	return me.proof.Evaluations.Columns[v.Column][pos], nil
}

func (me opened) Selector(i int) (field.Element, error) {
	return me.Value(gates.Variable{Column: me.params.Layout.SelectorColumn(i)})
}

func (me *session) constraints(ctx context.Context) error {
	f := me.field
	sum, err := gates.Evaluate(ctx, f, me.circuit.Partitions, opened{me}, me.theta)
	if err != nil {
		return err
	}
	t := me.Recombine(me.proof.Evaluations.GateQuotient, me.xi)
	if !sum.Equal(f.Mul(t, me.vanishing)) {
		return ErrGateConstraint
	}
	return nil
}

func (me *session) permutation(context.Context) error {
	f := me.field
	ev := &me.proof.Evaluations
	o := permutation.Opening{Sigma: ev.Sigma, Z: ev.Z, ZShift: ev.ZShift}
	for i := 0; i < me.params.Layout.Permuted(); i++ {
		o.Values = append(o.Values, ev.Columns[i][me.lookup[i][0]])
	}
	l0, err := me.table.Lagrange(0, me.xi)
	if err != nil {
		return err
	}
	f0, f1, err := permutation.Evaluate(f, o, me.shifts, me.xi, l0, me.beta, me.gamma)
	if err != nil {
		return err
	}
	t := me.Recombine(ev.PermQuotient, me.xi)
	if !f.Add(f0, f.Mul(me.alpha, f1)).Equal(f.Mul(t, me.vanishing)) {
		return ErrPermutation
	}
	return nil
}

func (me *session) lowDegree(context.Context) error {
	depth := me.fri.Domain().LogSize
	oracle := func(j int, q uint64, x field.Element) (field.Element, error) {
		var leaves [BATCHES][]field.Element
		for b, o := range me.proof.Openings[j] {
			if err := o.Verify(me.proof.Roots[b], q, depth); err != nil {
				return field.Element{}, fmt.Errorf("query %d batch %d: %w", j, b, err)
			}
			leaves[b] = o.Values
		}
		return me.Combine(&leaves, &me.proof.Evaluations, x, me.xi, me.delta)
	}
	return me.fri.Verify(me.tr, &me.proof.FRI, oracle)
}
