package fri

import (
	"fmt"

	"github.com/eon-protocol/minastate/field"
	"github.com/eon-protocol/minastate/merkle"
	"github.com/eon-protocol/minastate/transcript"
)

// Prove commits to evals (f₀ over D₀ in natural order) and folds it down to
// the final polynomial. It returns the sampled query indices so the caller
// can open its own commitments at the same positions.
func (me *Params) Prove(tr *transcript.Transcript, evals []field.Element) (*Proof, []uint64, error) {
	f := me.field
	if uint64(len(evals)) != me.DomainSize() {
		return nil, nil, fmt.Errorf("fri: %d evaluations over domain of size %d", len(evals), me.DomainSize())
	}
	proof := &Proof{}
	trees := make([]*merkle.Tree, len(me.steps))
	layer := evals
	var last field.Element
	for i, d := range me.domains {
		c := uint64(1) << me.steps[i]
		m := d.Size / c
		leaves := make([][]field.Element, m)
		for t := uint64(0); t < m; t++ {
			leaves[t] = make([]field.Element, c)
			for j := uint64(0); j < c; j++ {
				leaves[t][j] = layer[t+j*m]
			}
		}
		tree, err := merkle.NewTree(leaves)
		if err != nil {
			return nil, nil, err
		}
		trees[i] = tree
		root := tree.Root()
		proof.Roots = append(proof.Roots, root)
		if err := tr.Absorb(root[:]); err != nil {
			return nil, nil, err
		}
		alpha, err := tr.Squeeze()
		if err != nil {
			return nil, nil, err
		}
		mu := d.Element(m)
		next := make([]field.Element, m)
		x := f.One()
		for t := uint64(0); t < m; t++ {
			if next[t], err = Fold(f, leaves[t], x, mu, alpha); err != nil {
				return nil, nil, err
			}
			x = f.Mul(x, d.Generator)
		}
		layer = next
		last = f.Exp(d.Generator, c)
	}
	coeffs, err := interpolate(f, layer, last)
	if err != nil {
		return nil, nil, err
	}
	for k := me.finalBound; k < len(coeffs); k++ {
		if !coeffs[k].IsZero() {
			return nil, nil, fmt.Errorf("%w: coefficient %d of final layer", ErrNotLowDegree, k)
		}
	}
	if len(coeffs) > me.finalBound {
		coeffs = coeffs[:me.finalBound]
	}
	proof.Final = coeffs
	if err := tr.AbsorbElements(proof.Final...); err != nil {
		return nil, nil, err
	}
	indices := make([]uint64, me.queries)
	for j := range indices {
		if indices[j], err = tr.SqueezeIndex(me.DomainSize()); err != nil {
			return nil, nil, err
		}
	}
	for _, q := range indices {
		var qp QueryProof
		for i, d := range me.domains {
			m := d.Size >> me.steps[i]
			t := q % m
			opening, err := trees[i].Open(t)
			if err != nil {
				return nil, nil, err
			}
			qp.Rounds = append(qp.Rounds, opening)
			q = t
		}
		proof.Queries = append(proof.Queries, qp)
	}
	return proof, indices, nil
}

// interpolate recovers coefficients from evaluations over ⟨g⟩ by an inverse
// DFT; the final layer is tiny.
func interpolate(f *field.Field, values []field.Element, g field.Element) ([]field.Element, error) {
	n := uint64(len(values))
	ginv, err := f.Inverse(g)
	if err != nil {
		return nil, err
	}
	ninv, err := f.Inverse(f.NewElement(n))
	if err != nil {
		return nil, err
	}
	coeffs := make([]field.Element, n)
	for k := uint64(0); k < n; k++ {
		step := f.Exp(ginv, k)
		w := f.One()
		var acc field.Element
		for t := uint64(0); t < n; t++ {
			acc = f.Add(acc, f.Mul(values[t], w))
			w = f.Mul(w, step)
		}
		coeffs[k] = f.Mul(acc, ninv)
	}
	return coeffs, nil
}
