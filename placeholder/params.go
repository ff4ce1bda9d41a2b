package placeholder

import (
	"encoding/json"
	"io"
	"math/big"
	"math/bits"
	"os"
)

// Layout counts the table columns of each kind. Table columns are ordered
// witness | public input | constant | selector.
type Layout struct {
	Witness     int
	PublicInput int
	Constant    int
	Selector    int
}

func (me Layout) Columns() int {
	return me.Witness + me.PublicInput + me.Constant + me.Selector
}

// Permuted is the number of columns covered by the copy-constraint argument.
func (me Layout) Permuted() int {
	return me.Witness + me.PublicInput + me.Constant
}

func (me Layout) PublicInputColumn(i int) int {
	return me.Witness + i
}

func (me Layout) ConstantColumn(i int) int {
	return me.Witness + me.PublicInput + i
}

func (me Layout) SelectorColumn(i int) int {
	return me.Permuted() + i
}

type ProtocolParameters struct {
	Modulus     *big.Int
	R           int
	MaxDegree   uint64
	Lambda      int
	RowsAmount  uint64
	Omega       *big.Int
	DOmegas     []*big.Int
	StepList    []int
	Layout      Layout
	MaxLeafSize int
}

// ColumnRotations lists, per table column, the row offsets constraints may
// read.
type ColumnRotations [][]int

// Config is everything needed to check one sub-proof besides its circuit.
type Config struct {
	Params    *ProtocolParameters
	Rotations ColumnRotations
}

// validate checks the integer shape of the parameters; field-dependent checks
// happen when the verifier is built.
func (me *ProtocolParameters) validate(rotations ColumnRotations) error {
	if me.Modulus == nil || me.Omega == nil {
		return structural(ErrParameterShape, "missing modulus or omega")
	}
	if me.RowsAmount < 2 || bits.OnesCount64(me.RowsAmount) != 1 {
		return structural(ErrParameterShape, "rows amount %d is not a power of two", me.RowsAmount)
	}
	if me.R < 1 || me.R > 62 || len(me.DOmegas) != me.R {
		return structural(ErrParameterShape, "r = %d with %d domain generators", me.R, len(me.DOmegas))
	}
	for i, w := range me.DOmegas {
		if w == nil {
			return structural(ErrParameterShape, "missing domain generator %d", i)
		}
	}
	total := 0
	for _, s := range me.StepList {
		if s < 1 {
			return structural(ErrParameterShape, "step %d", s)
		}
		total += s
	}
	if len(me.StepList) == 0 || total != me.R {
		return structural(ErrParameterShape, "step list %v does not sum to r = %d", me.StepList, me.R)
	}
	if uint64(1)<<(me.R+1) < me.RowsAmount {
		return structural(ErrParameterShape, "FRI domain of size %d smaller than %d rows", uint64(1)<<(me.R+1), me.RowsAmount)
	}
	if me.Lambda < 1 {
		return structural(ErrParameterShape, "lambda %d", me.Lambda)
	}
	if me.MaxLeafSize < 0 {
		return structural(ErrParameterShape, "max leaf size %d", me.MaxLeafSize)
	}
	l := me.Layout
	if l.Witness < 0 || l.PublicInput < 0 || l.Constant < 0 || l.Selector < 0 || l.Permuted() < 1 {
		return structural(ErrParameterShape, "layout %+v", l)
	}
	if len(rotations) != l.Columns() {
		return structural(ErrParameterShape, "%d rotation lists for %d columns", len(rotations), l.Columns())
	}
	n := int64(me.RowsAmount)
	for c, rots := range rotations {
		if len(rots) == 0 {
			return structural(ErrParameterShape, "column %d has no rotations", c)
		}
		seen := make(map[int]bool, len(rots))
		for _, r := range rots {
			if seen[r] || int64(r) <= -n || int64(r) >= n {
				return structural(ErrParameterShape, "column %d rotation %d", c, r)
			}
			seen[r] = true
		}
		// the permutation and public input checks read every permuted
		// column at ξ, the gates read selectors at ξ
		if !seen[0] {
			return structural(ErrParameterShape, "column %d does not declare rotation 0", c)
		}
	}
	return nil
}

type number struct {
	Value *big.Int `json:"value"`
}

type document struct {
	Modulus               number     `json:"modulus"`
	R                     number     `json:"r"`
	MaxDegree             number     `json:"max_degree"`
	Lambda                number     `json:"lambda"`
	RowsAmount            number     `json:"rows_amount"`
	Omega                 number     `json:"omega"`
	MaxLeafSize           *number    `json:"max_leaf_size,omitempty"`
	DOmegas               []number   `json:"D_omegas"`
	StepList              []number   `json:"step_list"`
	ArithmetizationParams []number   `json:"arithmetization_params"`
	ColumnsRotations      [][]number `json:"columns_rotations"`
}

// LoadParams reads a parameter document where every number is wrapped as
// {"value": N}.
func LoadParams(r io.Reader) (*Config, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, structural(ErrParameterShape, "%v", err)
	}
	values := []*big.Int{doc.Modulus.Value, doc.R.Value, doc.MaxDegree.Value, doc.Lambda.Value, doc.RowsAmount.Value, doc.Omega.Value}
	for _, list := range [][]number{doc.DOmegas, doc.StepList, doc.ArithmetizationParams} {
		values = append(values, big.NewInt(int64(len(list))))
		for _, v := range list {
			values = append(values, v.Value)
		}
	}
	rotations := make([][]int64, len(doc.ColumnsRotations))
	for c, rots := range doc.ColumnsRotations {
		for _, r := range rots {
			if r.Value == nil || !r.Value.IsInt64() {
				return nil, structural(ErrParameterShape, "column %d rotation", c)
			}
			rotations[c] = append(rotations[c], r.Value.Int64())
		}
	}
	cfg, err := ParseFlat(values, rotations)
	if err != nil {
		return nil, err
	}
	if doc.MaxLeafSize != nil {
		if cfg.Params.MaxLeafSize, err = smallInt("max_leaf_size", doc.MaxLeafSize.Value); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func LoadParamsFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return LoadParams(file)
}

// ParseFlat decodes one sub-proof of the flattened layout:
//
//	modulus, r, max_degree, lambda, rows_amount, omega,
//	len, D_omegas…, len, step_list…, len, arithmetization_params…
//
// arithmetization_params is witness, public input, constant, selector.
func ParseFlat(values []*big.Int, rotations [][]int64) (*Config, error) {
	for i, v := range values {
		if v == nil {
			return nil, structural(ErrParameterShape, "missing value at %d", i)
		}
	}
	if len(values) < 6 {
		return nil, structural(ErrParameterShape, "%d values", len(values))
	}
	p := &ProtocolParameters{Modulus: values[0], Omega: values[5]}
	var err error
	if p.R, err = smallInt("r", values[1]); err != nil {
		return nil, err
	}
	if !values[2].IsUint64() {
		return nil, structural(ErrParameterShape, "max_degree %s", values[2])
	}
	p.MaxDegree = values[2].Uint64()
	if p.Lambda, err = smallInt("lambda", values[3]); err != nil {
		return nil, err
	}
	if !values[4].IsUint64() {
		return nil, structural(ErrParameterShape, "rows_amount %s", values[4])
	}
	p.RowsAmount = values[4].Uint64()

	rest := values[6:]
	list := func(name string) ([]*big.Int, error) {
		if len(rest) == 0 {
			return nil, structural(ErrParameterShape, "missing %s length", name)
		}
		n, err := smallInt(name, rest[0])
		if err != nil {
			return nil, err
		}
		if n > len(rest)-1 {
			return nil, structural(ErrParameterShape, "%s declares %d values, %d left", name, n, len(rest)-1)
		}
		out := rest[1 : 1+n]
		rest = rest[1+n:]
		return out, nil
	}
	if p.DOmegas, err = list("D_omegas"); err != nil {
		return nil, err
	}
	steps, err := list("step_list")
	if err != nil {
		return nil, err
	}
	for _, s := range steps {
		v, err := smallInt("step", s)
		if err != nil {
			return nil, err
		}
		p.StepList = append(p.StepList, v)
	}
	arith, err := list("arithmetization_params")
	if err != nil {
		return nil, err
	}
	if len(arith) != 4 {
		return nil, structural(ErrParameterShape, "%d arithmetization params", len(arith))
	}
	counts := make([]int, 4)
	for i, a := range arith {
		if counts[i], err = smallInt("arithmetization_params", a); err != nil {
			return nil, err
		}
	}
	p.Layout = Layout{Witness: counts[0], PublicInput: counts[1], Constant: counts[2], Selector: counts[3]}
	if len(rest) != 0 {
		return nil, structural(ErrParameterShape, "%d trailing values", len(rest))
	}

	rots := make(ColumnRotations, len(rotations))
	for c, list := range rotations {
		for _, r := range list {
			if r < -(1<<31) || r >= 1<<31 {
				return nil, structural(ErrParameterShape, "column %d rotation %d", c, r)
			}
			rots[c] = append(rots[c], int(r))
		}
	}
	if err := p.validate(rots); err != nil {
		return nil, err
	}
	return &Config{Params: p, Rotations: rots}, nil
}

// Flatten is the inverse of ParseFlat.
func (me *Config) Flatten() ([]*big.Int, [][]int64) {
	p := me.Params
	values := []*big.Int{
		p.Modulus,
		big.NewInt(int64(p.R)),
		new(big.Int).SetUint64(p.MaxDegree),
		big.NewInt(int64(p.Lambda)),
		new(big.Int).SetUint64(p.RowsAmount),
		p.Omega,
		big.NewInt(int64(len(p.DOmegas))),
	}
	values = append(values, p.DOmegas...)
	values = append(values, big.NewInt(int64(len(p.StepList))))
	for _, s := range p.StepList {
		values = append(values, big.NewInt(int64(s)))
	}
	l := p.Layout
	values = append(values, big.NewInt(4), big.NewInt(int64(l.Witness)), big.NewInt(int64(l.PublicInput)), big.NewInt(int64(l.Constant)), big.NewInt(int64(l.Selector)))
	rotations := make([][]int64, len(me.Rotations))
	for c, rots := range me.Rotations {
		for _, r := range rots {
			rotations[c] = append(rotations[c], int64(r))
		}
	}
	return values, rotations
}

// WriteTo writes the parameter document form read by LoadParams.
func (me *Config) WriteTo(w io.Writer) (int64, error) {
	values, rotations := me.Flatten()
	wrap := func(vs []*big.Int) []number {
		out := make([]number, len(vs))
		for i, v := range vs {
			out[i] = number{Value: v}
		}
		return out
	}
	p := me.Params
	nd, ns := len(p.DOmegas), len(p.StepList)
	doc := document{
		Modulus:               number{values[0]},
		R:                     number{values[1]},
		MaxDegree:             number{values[2]},
		Lambda:                number{values[3]},
		RowsAmount:            number{values[4]},
		Omega:                 number{values[5]},
		DOmegas:               wrap(values[7 : 7+nd]),
		StepList:              wrap(values[8+nd : 8+nd+ns]),
		ArithmetizationParams: wrap(values[9+nd+ns:]),
	}
	if p.MaxLeafSize > 0 {
		doc.MaxLeafSize = &number{big.NewInt(int64(p.MaxLeafSize))}
	}
	for _, rots := range rotations {
		var list []number
		for _, r := range rots {
			list = append(list, number{big.NewInt(r)})
		}
		doc.ColumnsRotations = append(doc.ColumnsRotations, list)
	}
	b, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return 0, err
	}
	n, err := w.Write(append(b, '\n'))
	return int64(n), err
}

func smallInt(name string, v *big.Int) (int, error) {
	if v == nil || v.Sign() < 0 || !v.IsInt64() || v.Int64() > 1<<31-1 {
		return 0, structural(ErrParameterShape, "%s = %v", name, v)
	}
	return int(v.Int64()), nil
}
