// Package permutation implements the copy-constraint argument: a grand
// product Z over the trace rows with Z(1) = 1 that closes only if every
// permuted cell equals its image.
package permutation

import (
	"errors"
	"fmt"

	"github.com/eon-protocol/minastate/field"
)

var ErrShape = errors.New("permutation: column count mismatch")

// Shifts returns kᵢ = δⁱ, the coset representatives separating columns in
// the identity permutation.
func Shifts(f *field.Field, delta field.Element, m int) []field.Element {
	out := make([]field.Element, m)
	k := f.One()
	for i := range out {
		out[i] = k
		k = f.Mul(k, delta)
	}
	return out
}

// Opening holds the values opened at ξ that the argument consumes.
type Opening struct {
	Values []field.Element // fᵢ(ξ) for each permuted column
	Sigma  []field.Element // σᵢ(ξ)
	Z      field.Element   // Z(ξ)
	ZShift field.Element   // Z(ξω)
}

// Evaluate returns the two identities that must vanish on the domain:
//
//	F₀ = L₀(ξ)·(1 - Z(ξ))
//	F₁ = Z(ξ)·Π(fᵢ + β·kᵢ·ξ + γ) - Z(ξω)·Π(fᵢ + β·σᵢ + γ)
func Evaluate(f *field.Field, o Opening, shifts []field.Element, xi, l0, beta, gamma field.Element) (field.Element, field.Element, error) {
	m := len(shifts)
	if len(o.Values) != m || len(o.Sigma) != m {
		return field.Element{}, field.Element{}, fmt.Errorf("%w: %d values, %d sigmas, %d shifts", ErrShape, len(o.Values), len(o.Sigma), m)
	}
	f0 := f.Mul(l0, f.Sub(f.One(), o.Z))
	id, perm := f.One(), f.One()
	bx := f.Mul(beta, xi)
	for i := 0; i < m; i++ {
		id = f.Mul(id, f.Add(f.Add(o.Values[i], f.Mul(bx, shifts[i])), gamma))
		perm = f.Mul(perm, f.Add(f.Add(o.Values[i], f.Mul(beta, o.Sigma[i])), gamma))
	}
	f1 := f.Sub(f.Mul(o.Z, id), f.Mul(o.ZShift, perm))
	return f0, f1, nil
}

// GrandProduct computes Z over the rows: Z[0] = 1 and
// Z[j+1] = Z[j]·Π(fᵢ[j] + β·kᵢ·ωʲ + γ) / Π(fᵢ[j] + β·σᵢ[j] + γ).
// columns and sigmas are indexed [column][row]; rows holds ωʲ.
func GrandProduct(f *field.Field, columns, sigmas [][]field.Element, shifts, rows []field.Element, beta, gamma field.Element) ([]field.Element, error) {
	m, n := len(shifts), len(rows)
	if len(columns) != m || len(sigmas) != m {
		return nil, fmt.Errorf("%w: %d columns, %d sigmas, %d shifts", ErrShape, len(columns), len(sigmas), m)
	}
	num := make([]field.Element, n)
	den := make([]field.Element, n)
	for j := 0; j < n; j++ {
		num[j], den[j] = f.One(), f.One()
		for i := 0; i < m; i++ {
			if len(columns[i]) != n || len(sigmas[i]) != n {
				return nil, fmt.Errorf("%w: column %d has %d rows", ErrShape, i, len(columns[i]))
			}
			num[j] = f.Mul(num[j], f.Add(f.Add(columns[i][j], f.Mul(beta, f.Mul(shifts[i], rows[j]))), gamma))
			den[j] = f.Mul(den[j], f.Add(f.Add(columns[i][j], f.Mul(beta, sigmas[i][j])), gamma))
		}
	}
	inv, err := f.BatchInverse(den)
	if err != nil {
		return nil, err
	}
	z := make([]field.Element, n)
	z[0] = f.One()
	for j := 0; j+1 < n; j++ {
		z[j+1] = f.Mul(z[j], f.Mul(num[j], inv[j]))
	}
	return z, nil
}
