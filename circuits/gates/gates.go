// Package gates evaluates an arithmetization's gate constraints at a point.
//
// Every gate contributes sel(x)·Σₖ θ^(K+k)·cₖ(x), where K counts the
// constraints of all gates before it, so θ accumulates across the whole gate
// list. A Partition covers a contiguous run of gates and starts from its own
// θ power; summing partitions in any order gives the single-pass value.
package gates

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/eon-protocol/minastate/field"
)

var ErrUnknownVariable = errors.New("gates: variable not available in assignment")

// Variable reads table column Column at row offset Rotation.
type Variable struct {
	Column   int
	Rotation int
}

// Term is Coeff·Π Vars.
type Term struct {
	Coeff field.Element
	Vars  []Variable
}

type Constraint []Term

type Gate struct {
	Selector    int
	Constraints []Constraint
}

// Degree is the largest number of variables multiplied in one term.
func (me Gate) Degree() int {
	d := 0
	for _, c := range me.Constraints {
		for _, t := range c {
			d = max(d, len(t.Vars))
		}
	}
	return d
}

func (me Gate) Variables() []Variable {
	var out []Variable
	for _, c := range me.Constraints {
		for _, t := range c {
			out = append(out, t.Vars...)
		}
	}
	return out
}

// Assignment resolves variables and selectors at the evaluation point.
type Assignment interface {
	Value(v Variable) (field.Element, error)
	Selector(i int) (field.Element, error)
}

type Partition struct {
	Index       int
	Gates       []Gate
	ThetaOffset uint64
}

// Split cuts gates into at most n contiguous partitions of near-equal size.
func Split(gates []Gate, n int) []Partition {
	if n < 1 {
		n = 1
	}
	n = min(n, max(len(gates), 1))
	out := make([]Partition, 0, n)
	var offset uint64
	start := 0
	for i := 0; i < n; i++ {
		end := start + (len(gates)-start)/(n-i)
		p := Partition{Index: i, Gates: gates[start:end], ThetaOffset: offset}
		for _, g := range p.Gates {
			offset += uint64(len(g.Constraints))
		}
		out = append(out, p)
		start = end
	}
	return out
}

func (me Partition) Evaluate(f *field.Field, a Assignment, theta field.Element) (field.Element, error) {
	var acc field.Element
	thetaAcc := f.Exp(theta, me.ThetaOffset)
	for _, g := range me.Gates {
		var gate field.Element
		for _, c := range g.Constraints {
			v, err := evalConstraint(f, a, c)
			if err != nil {
				return field.Element{}, err
			}
			gate = f.Add(gate, f.Mul(v, thetaAcc))
			thetaAcc = f.Mul(thetaAcc, theta)
		}
		sel, err := a.Selector(g.Selector)
		if err != nil {
			return field.Element{}, err
		}
		acc = f.Add(acc, f.Mul(gate, sel))
	}
	return acc, nil
}

func evalConstraint(f *field.Field, a Assignment, c Constraint) (field.Element, error) {
	var sum field.Element
	for _, t := range c {
		prod := t.Coeff
		for _, v := range t.Vars {
			x, err := a.Value(v)
			if err != nil {
				return field.Element{}, fmt.Errorf("%w: column %d rotation %d", err, v.Column, v.Rotation)
			}
			prod = f.Mul(prod, x)
		}
		sum = f.Add(sum, prod)
	}
	return sum, nil
}

// Evaluate runs every partition concurrently and aggregates the results.
func Evaluate(ctx context.Context, f *field.Field, partitions []Partition, a Assignment, theta field.Element) (field.Element, error) {
	partials := make([]field.Element, len(partitions))
	g, ctx := errgroup.WithContext(ctx)
	for i := range partitions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := partitions[i].Evaluate(f, a, theta)
			if err != nil {
				return fmt.Errorf("gates: partition %d: %w", partitions[i].Index, err)
			}
			partials[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return field.Element{}, err
	}
	return Sum(f, partials), nil
}

// Sum is the aggregator over partition outputs.
func Sum(f *field.Field, partials []field.Element) field.Element {
	var acc field.Element
	for _, p := range partials {
		acc = f.Add(acc, p)
	}
	return acc
}
