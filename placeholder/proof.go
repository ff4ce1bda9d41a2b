package placeholder

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/eon-protocol/minastate/field"
	"github.com/eon-protocol/minastate/fri"
	"github.com/eon-protocol/minastate/merkle"
)

const BATCHES = 4

// Batch indices, in commitment order.
const (
	FIXED_BATCH = iota
	VARIABLE_BATCH
	PERMUTATION_BATCH
	QUOTIENT_BATCH
)

// Evaluations are the values the prover claims at ξ (and its rotations).
type Evaluations struct {
	Columns      [][]field.Element // per table column, one value per declared rotation
	Sigma        []field.Element
	Z            field.Element
	ZShift       field.Element
	GateQuotient []field.Element
	PermQuotient []field.Element
}

func (me *Evaluations) Flatten() []field.Element {
	var out []field.Element
	for _, c := range me.Columns {
		out = append(out, c...)
	}
	out = append(out, me.Sigma...)
	out = append(out, me.Z, me.ZShift)
	out = append(out, me.GateQuotient...)
	return append(out, me.PermQuotient...)
}

type Proof struct {
	Roots       [BATCHES]merkle.Hash
	Evaluations Evaluations
	FRI         fri.Proof
	Openings    [][BATCHES]merkle.Opening // per FRI query
}

type encoder struct {
	w       io.Writer
	written int64
	err     error
}

func (me *encoder) write(b []byte) {
	if me.err != nil {
		return
	}
	n, err := me.w.Write(b)
	me.written += int64(n)
	me.err = err
}

func (me *encoder) count(n int) {
	me.write(binary.BigEndian.AppendUint32(nil, uint32(n)))
}

func (me *encoder) elements(values []field.Element, counted bool) {
	if counted {
		me.count(len(values))
	}
	for _, v := range values {
		b := v.Bytes()
		me.write(b[:])
	}
}

func (me *encoder) opening(o merkle.Opening) {
	me.elements(o.Values, true)
	me.count(len(o.Path))
	for _, h := range o.Path {
		me.write(h[:])
	}
}

func (me *Proof) WriteTo(w io.Writer) (int64, error) {
	enc := &encoder{w: w}
	for _, root := range me.Roots {
		enc.write(root[:])
	}
	ev := &me.Evaluations
	enc.count(len(ev.Columns))
	for _, c := range ev.Columns {
		enc.elements(c, true)
	}
	enc.elements(ev.Sigma, true)
	enc.elements([]field.Element{ev.Z, ev.ZShift}, false)
	enc.elements(ev.GateQuotient, true)
	enc.elements(ev.PermQuotient, true)
	enc.count(len(me.FRI.Roots))
	for _, root := range me.FRI.Roots {
		enc.write(root[:])
	}
	enc.elements(me.FRI.Final, true)
	enc.count(len(me.FRI.Queries))
	for j, q := range me.FRI.Queries {
		var batches [BATCHES]merkle.Opening
		if j < len(me.Openings) {
			batches = me.Openings[j]
		}
		for _, o := range batches {
			enc.opening(o)
		}
		enc.count(len(q.Rounds))
		for _, o := range q.Rounds {
			enc.opening(o)
		}
	}
	return enc.written, enc.err
}

func (me *Proof) Bytes() []byte {
	var buf bytes.Buffer
	me.WriteTo(&buf)
	return buf.Bytes()
}

type decoder struct {
	field *field.Field
	b     []byte
	err   error
}

func (me *decoder) take(n int) []byte {
	if me.err != nil {
		return nil
	}
	if n > len(me.b) {
		me.err = structural(ErrMalformedProof, "short read: want %d bytes, %d left", n, len(me.b))
		return nil
	}
	out := me.b[:n]
	me.b = me.b[n:]
	return out
}

// count reads a u32 and checks that count·unit bytes can still follow.
func (me *decoder) count(unit int) int {
	b := me.take(4)
	if b == nil {
		return 0
	}
	n := int(binary.BigEndian.Uint32(b))
	if n > len(me.b)/unit {
		me.err = structural(ErrMalformedProof, "count %d exceeds the %d remaining bytes", n, len(me.b))
		return 0
	}
	return n
}

func (me *decoder) hash() (h merkle.Hash) {
	copy(h[:], me.take(merkle.HASH_SIZE))
	return
}

func (me *decoder) element() field.Element {
	b := me.take(field.BYTES)
	if b == nil {
		return field.Element{}
	}
	return me.field.Reduce(b)
}

func (me *decoder) elements(n int) []field.Element {
	out := make([]field.Element, 0, n)
	for i := 0; i < n && me.err == nil; i++ {
		out = append(out, me.element())
	}
	return out
}

func (me *decoder) opening() (o merkle.Opening) {
	o.Values = me.elements(me.count(field.BYTES))
	n := me.count(merkle.HASH_SIZE)
	for i := 0; i < n && me.err == nil; i++ {
		o.Path = append(o.Path, me.hash())
	}
	return
}

// Decode parses a proof blob. Elements are reduced mod p so every byte of
// the blob influences the decoded proof.
func Decode(f *field.Field, b []byte) (*Proof, error) {
	dec := &decoder{field: f, b: b}
	proof := &Proof{}
	for i := range proof.Roots {
		proof.Roots[i] = dec.hash()
	}
	ev := &proof.Evaluations
	ncols := dec.count(4)
	for c := 0; c < ncols && dec.err == nil; c++ {
		ev.Columns = append(ev.Columns, dec.elements(dec.count(field.BYTES)))
	}
	ev.Sigma = dec.elements(dec.count(field.BYTES))
	ev.Z = dec.element()
	ev.ZShift = dec.element()
	ev.GateQuotient = dec.elements(dec.count(field.BYTES))
	ev.PermQuotient = dec.elements(dec.count(field.BYTES))
	nroots := dec.count(merkle.HASH_SIZE)
	for i := 0; i < nroots && dec.err == nil; i++ {
		proof.FRI.Roots = append(proof.FRI.Roots, dec.hash())
	}
	proof.FRI.Final = dec.elements(dec.count(field.BYTES))
	// a query carries at least the four batch openings and a round count
	nqueries := dec.count(BATCHES*8 + 4)
	for j := 0; j < nqueries && dec.err == nil; j++ {
		var batches [BATCHES]merkle.Opening
		for i := range batches {
			batches[i] = dec.opening()
		}
		var q fri.QueryProof
		nrounds := dec.count(8)
		for i := 0; i < nrounds && dec.err == nil; i++ {
			q.Rounds = append(q.Rounds, dec.opening())
		}
		proof.Openings = append(proof.Openings, batches)
		proof.FRI.Queries = append(proof.FRI.Queries, q)
	}
	if dec.err != nil {
		return nil, dec.err
	}
	if len(dec.b) != 0 {
		return nil, structural(ErrMalformedProof, "%d trailing bytes", len(dec.b))
	}
	return proof, nil
}
