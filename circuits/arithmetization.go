// Package circuits describes the constraint systems proofs are checked
// against: the ledger's base and scalar sub-proofs and the account proof.
package circuits

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eon-protocol/minastate/circuits/gates"
	"github.com/eon-protocol/minastate/field"
	"github.com/eon-protocol/minastate/merkle"
)

const (
	BASE    = "base"
	SCALAR  = "scalar"
	ACCOUNT = "account"
)

var ErrDescription = errors.New("circuits: invalid description")

type Variable struct {
	Column   int `json:"column"`
	Rotation int `json:"rotation"`
}

// Term is coeff·Π vars; negative coefficients are taken mod p.
type Term struct {
	Coeff *big.Int   `json:"coeff"`
	Vars  []Variable `json:"vars,omitempty"`
}

type Gate struct {
	Selector    int      `json:"selector"`
	Constraints [][]Term `json:"constraints"`
}

// Description is the file form of an arithmetization. FixedRoot commits to
// the constant, selector and permutation polynomials over the FRI domain.
type Description struct {
	Name       string      `json:"name"`
	Partitions int         `json:"partitions"`
	Delta      *big.Int    `json:"delta"`
	FixedRoot  common.Hash `json:"fixed_root"`
	Gates      []Gate      `json:"gates"`
}

// Arithmetization is a Description compiled over a concrete field.
type Arithmetization struct {
	Name       string
	Gates      []gates.Gate
	Partitions []gates.Partition
	Delta      field.Element
	FixedRoot  merkle.Hash
	Degree     int
}

func Load(r io.Reader) (*Description, error) {
	var d Description
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDescription, err)
	}
	return &d, nil
}

func LoadFile(path string) (*Description, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Load(file)
}

func (me *Description) WriteTo(w io.Writer) (int64, error) {
	b, err := json.MarshalIndent(me, "", "  ")
	if err != nil {
		return 0, err
	}
	n, err := w.Write(append(b, '\n'))
	return int64(n), err
}

func (me *Description) Compile(f *field.Field) (*Arithmetization, error) {
	if me.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrDescription)
	}
	if me.Delta == nil {
		return nil, fmt.Errorf("%w: %s: missing delta", ErrDescription, me.Name)
	}
	delta, err := element(f, me.Delta)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: delta: %w", ErrDescription, me.Name, err)
	}
	if delta.IsZero() {
		return nil, fmt.Errorf("%w: %s: zero delta", ErrDescription, me.Name)
	}
	a := &Arithmetization{Name: me.Name, Delta: delta, FixedRoot: merkle.Hash(me.FixedRoot)}
	for gi, g := range me.Gates {
		if g.Selector < 0 {
			return nil, fmt.Errorf("%w: %s: gate %d: negative selector", ErrDescription, me.Name, gi)
		}
		gate := gates.Gate{Selector: g.Selector}
		for _, c := range g.Constraints {
			var con gates.Constraint
			for _, t := range c {
				if t.Coeff == nil {
					return nil, fmt.Errorf("%w: %s: gate %d: missing coefficient", ErrDescription, me.Name, gi)
				}
				coeff, err := element(f, t.Coeff)
				if err != nil {
					return nil, fmt.Errorf("%w: %s: gate %d: %w", ErrDescription, me.Name, gi, err)
				}
				term := gates.Term{Coeff: coeff}
				for _, v := range t.Vars {
					term.Vars = append(term.Vars, gates.Variable{Column: v.Column, Rotation: v.Rotation})
				}
				con = append(con, term)
			}
			gate.Constraints = append(gate.Constraints, con)
		}
		a.Gates = append(a.Gates, gate)
		a.Degree = max(a.Degree, gate.Degree())
	}
	a.Partitions = gates.Split(a.Gates, me.Partitions)
	return a, nil
}

// GateQuotientChunks is the number of degree < n pieces the gate quotient is
// split into.
func (me *Arithmetization) GateQuotientChunks() int {
	return max(1, me.Degree)
}

func element(f *field.Field, v *big.Int) (field.Element, error) {
	if v.Sign() >= 0 {
		return f.FromBig(v)
	}
	e, err := f.FromBig(new(big.Int).Neg(v))
	if err != nil {
		return e, err
	}
	return f.Neg(e), nil
}
