// Package transcript derives Fiat-Shamir challenges as field elements.
//
// The challenge schedule is declared up front: every Absorb binds data to the
// next challenge that has not been squeezed yet, and each challenge hashes
// its name, the previous challenge and its bindings (Keccak-256).
package transcript

import (
	"errors"
	"fmt"

	fiatshamir "github.com/consensys/gnark-crypto/fiat-shamir"
	"golang.org/x/crypto/sha3"

	"github.com/eon-protocol/minastate/field"
)

var ErrExhausted = errors.New("transcript: challenge schedule exhausted")

type Transcript struct {
	fs    *fiatshamir.Transcript
	field *field.Field
	ids   []string
	next  int
}

func New(f *field.Field, challenges ...string) *Transcript {
	return &Transcript{
		fs:    fiatshamir.NewTranscript(sha3.NewLegacyKeccak256(), challenges...),
		field: f,
		ids:   challenges,
	}
}

// Pending names the challenge the next Absorb binds to.
func (me *Transcript) Pending() string {
	if me.next >= len(me.ids) {
		return ""
	}
	return me.ids[me.next]
}

func (me *Transcript) Absorb(data []byte) error {
	if me.next >= len(me.ids) {
		return ErrExhausted
	}
	if err := me.fs.Bind(me.ids[me.next], data); err != nil {
		return fmt.Errorf("transcript: bind %s: %w", me.ids[me.next], err)
	}
	return nil
}

func (me *Transcript) AbsorbElements(values ...field.Element) error {
	buf := make([]byte, 0, len(values)*field.BYTES)
	for _, v := range values {
		b := v.Bytes()
		buf = append(buf, b[:]...)
	}
	return me.Absorb(buf)
}

func (me *Transcript) Squeeze() (field.Element, error) {
	if me.next >= len(me.ids) {
		return field.Element{}, ErrExhausted
	}
	digest, err := me.fs.ComputeChallenge(me.ids[me.next])
	if err != nil {
		return field.Element{}, fmt.Errorf("transcript: challenge %s: %w", me.ids[me.next], err)
	}
	me.next++
	return me.field.Reduce(digest), nil
}

// SqueezeIndex squeezes a challenge and maps it into [0, bound).
func (me *Transcript) SqueezeIndex(bound uint64) (uint64, error) {
	if bound == 0 {
		return 0, errors.New("transcript: zero index bound")
	}
	c, err := me.Squeeze()
	if err != nil {
		return 0, err
	}
	return c.Int.Uint64() % bound, nil
}
