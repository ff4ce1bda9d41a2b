// Package fri implements the FRI low-degree test used by the list polynomial
// commitment: a committed evaluation oracle over D₀ is folded round by round
// until a small final polynomial remains.
package fri

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/eon-protocol/minastate/field"
	"github.com/eon-protocol/minastate/merkle"
	"github.com/eon-protocol/minastate/transcript"
)

var (
	ErrDomainStep    = errors.New("fri: domain generators inconsistent with step list")
	ErrRoundCount    = errors.New("fri: round count does not match step list")
	ErrQueryCount    = errors.New("fri: query count does not match security parameter")
	ErrFinalDegree   = errors.New("fri: final polynomial exceeds degree bound")
	ErrCosetSize     = errors.New("fri: opened coset has wrong size")
	ErrFoldMismatch  = errors.New("fri: folding relation does not hold")
	ErrFinalMismatch = errors.New("fri: final polynomial disagrees with folded value")
	ErrNotLowDegree  = errors.New("fri: layer is not of bounded degree")
)

type Proof struct {
	Roots   []merkle.Hash
	Final   []field.Element
	Queries []QueryProof
}

// QueryProof carries one opened coset per round.
type QueryProof struct {
	Rounds []merkle.Opening
}

// Oracle yields f₀(x) at a queried position of D₀; it is where the caller
// checks its own commitments.
type Oracle func(query int, index uint64, x field.Element) (field.Element, error)

type Params struct {
	field      *field.Field
	domains    []*field.Domain
	steps      []int
	queries    int
	finalBound int
}

// NewParams derives the round domains: dOmegas[k] generates a subgroup of
// order 2^(len(dOmegas)+1-k) and round i folds by 2^steps[i].
func NewParams(f *field.Field, dOmegas []field.Element, steps []int, maxDegree uint64, queries int) (*Params, error) {
	r := len(dOmegas)
	if r == 0 || r > 62 || len(steps) == 0 {
		return nil, fmt.Errorf("%w: %d generators, %d steps", ErrDomainStep, r, len(steps))
	}
	total := 0
	for _, s := range steps {
		if s < 1 {
			return nil, fmt.Errorf("%w: step %d", ErrDomainStep, s)
		}
		total += s
	}
	if total != r {
		return nil, fmt.Errorf("%w: steps sum to %d, %d generators", ErrDomainStep, total, r)
	}
	for k := 0; k+1 < r; k++ {
		if !f.Square(dOmegas[k]).Equal(dOmegas[k+1]) {
			return nil, fmt.Errorf("%w: D_omegas[%d]² != D_omegas[%d]", ErrDomainStep, k, k+1)
		}
	}
	if !f.Square(dOmegas[r-1]).Equal(f.Neg(f.One())) {
		return nil, fmt.Errorf("%w: last generator is not a fourth root of unity", ErrDomainStep)
	}
	size0 := uint64(1) << (r + 1)
	if maxDegree >= size0 {
		return nil, fmt.Errorf("%w: max degree %d over domain of size %d", ErrDomainStep, maxDegree, size0)
	}
	if queries < 1 {
		return nil, fmt.Errorf("%w: %d", ErrQueryCount, queries)
	}
	me := &Params{field: f, steps: steps, queries: queries}
	offset := 0
	for _, s := range steps {
		me.domains = append(me.domains, &field.Domain{
			Field:     f,
			Size:      size0 >> offset,
			LogSize:   r + 1 - offset,
			Generator: dOmegas[offset],
		})
		offset += s
	}
	folded := uint64(1) << r
	me.finalBound = int((maxDegree + folded) / folded)
	return me, nil
}

func (me *Params) DomainSize() uint64 {
	return me.domains[0].Size
}

func (me *Params) Domain() *field.Domain {
	return me.domains[0]
}

func (me *Params) Rounds() int {
	return len(me.steps)
}

func (me *Params) Queries() int {
	return me.queries
}

func (me *Params) FinalBound() int {
	return me.finalBound
}

// ChallengeIDs lists the transcript challenges FRI consumes, in order.
func (me *Params) ChallengeIDs() []string {
	ids := make([]string, 0, len(me.steps)+me.queries)
	for i := range me.steps {
		ids = append(ids, fmt.Sprintf("fri.alpha.%d", i))
	}
	for j := 0; j < me.queries; j++ {
		ids = append(ids, fmt.Sprintf("fri.query.%d", j))
	}
	return ids
}

func (me *Params) Verify(tr *transcript.Transcript, proof *Proof, oracle Oracle) error {
	f := me.field
	if len(proof.Roots) != len(me.steps) {
		return fmt.Errorf("%w: %d roots, %d steps", ErrRoundCount, len(proof.Roots), len(me.steps))
	}
	if len(proof.Final) == 0 || len(proof.Final) > me.finalBound {
		return fmt.Errorf("%w: %d coefficients, bound %d", ErrFinalDegree, len(proof.Final), me.finalBound)
	}
	if len(proof.Queries) != me.queries {
		return fmt.Errorf("%w: %d", ErrQueryCount, len(proof.Queries))
	}
	alphas := make([]field.Element, len(me.steps))
	for i := range proof.Roots {
		if err := tr.Absorb(proof.Roots[i][:]); err != nil {
			return err
		}
		alpha, err := tr.Squeeze()
		if err != nil {
			return err
		}
		alphas[i] = alpha
	}
	if err := tr.AbsorbElements(proof.Final...); err != nil {
		return err
	}
	indices := make([]uint64, me.queries)
	for j := range indices {
		idx, err := tr.SqueezeIndex(me.DomainSize())
		if err != nil {
			return err
		}
		indices[j] = idx
	}
	for j, q := range indices {
		rounds := proof.Queries[j].Rounds
		if len(rounds) != len(me.steps) {
			return fmt.Errorf("%w: query %d opens %d rounds", ErrRoundCount, j, len(rounds))
		}
		y, err := oracle(j, q, me.domains[0].Element(q))
		if err != nil {
			return err
		}
		var x field.Element
		for i, d := range me.domains {
			c := uint64(1) << me.steps[i]
			m := d.Size / c
			t, pos := q%m, q/m
			opening := rounds[i]
			if uint64(len(opening.Values)) != c {
				return fmt.Errorf("%w: query %d round %d", ErrCosetSize, j, i)
			}
			if err := opening.Verify(proof.Roots[i], t, bits.TrailingZeros64(m)); err != nil {
				return fmt.Errorf("fri: query %d round %d: %w", j, i, err)
			}
			if !opening.Values[pos].Equal(y) {
				return fmt.Errorf("%w: query %d round %d", ErrFoldMismatch, j, i)
			}
			x = d.Element(t)
			if y, err = Fold(f, opening.Values, x, d.Element(m), alphas[i]); err != nil {
				return err
			}
			x = f.Exp(x, c)
			q = t
		}
		if !f.EvalPolynomial(proof.Final, x).Equal(y) {
			return fmt.Errorf("%w: query %d", ErrFinalMismatch, j)
		}
	}
	return nil
}

// Fold collapses a coset {x₀μʲ} of size 2^s to one value at x₀^(2^s) by s
// binary folds f'(y²) = (f(y)+f(-y))/2 + α(f(y)-f(-y))/(2y) with α, α², α⁴ ….
// values[j] is f(x₀μʲ), so values[j] and values[j+half] are a ± pair.
func Fold(f *field.Field, values []field.Element, x0, mu, alpha field.Element) (field.Element, error) {
	vals := make([]field.Element, len(values))
	copy(vals, values)
	points := make([]field.Element, len(values))
	points[0] = x0
	for j := 1; j < len(points); j++ {
		points[j] = f.Mul(points[j-1], mu)
	}
	twoInv, err := f.Inverse(f.NewElement(2))
	if err != nil {
		return field.Element{}, err
	}
	a := alpha
	for len(vals) > 1 {
		half := len(vals) / 2
		den := make([]field.Element, half)
		for j := range den {
			den[j] = f.Add(points[j], points[j])
		}
		inv, err := f.BatchInverse(den)
		if err != nil {
			return field.Element{}, err
		}
		for j := 0; j < half; j++ {
			even := f.Mul(f.Add(vals[j], vals[j+half]), twoInv)
			odd := f.Mul(f.Sub(vals[j], vals[j+half]), inv[j])
			vals[j] = f.Add(even, f.Mul(a, odd))
			points[j] = f.Square(points[j])
		}
		vals, points = vals[:half], points[:half]
		a = f.Square(a)
	}
	return vals[0], nil
}
