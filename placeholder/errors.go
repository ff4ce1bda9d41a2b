package placeholder

import (
	"errors"
	"fmt"
)

type Stage uint8

const (
	StageInit Stage = iota
	StageReplayTranscript
	StageCommitments
	StagePublicInput
	StageConstraints
	StagePermutation
	StageFRI
)

func (me Stage) String() string {
	switch me {
	case StageInit:
		return "init"
	case StageReplayTranscript:
		return "replay-transcript"
	case StageCommitments:
		return "verify-commitments"
	case StagePublicInput:
		return "public-input"
	case StageConstraints:
		return "verify-constraints"
	case StagePermutation:
		return "verify-permutation"
	case StageFRI:
		return "verify-fri"
	}
	return fmt.Sprintf("stage(%d)", uint8(me))
}

var (
	ErrMalformedProof      = errors.New("placeholder: malformed proof")
	ErrParameterShape      = errors.New("placeholder: malformed parameters")
	ErrFixedRoot           = errors.New("placeholder: fixed values commitment mismatch")
	ErrPublicInputMismatch = errors.New("placeholder: public input does not match committed column")
	ErrGateConstraint      = errors.New("placeholder: gate constraints do not vanish on the domain")
	ErrPermutation         = errors.New("placeholder: permutation identity does not hold")
	ErrDegenerateChallenge = errors.New("placeholder: evaluation challenge falls on the domain")
)

// StructuralError reports input that is malformed before any cryptographic
// work: bad proof encoding, parameter shape, gate/rotation mismatches.
type StructuralError struct {
	Err error
}

func (me *StructuralError) Error() string {
	return "structural error: " + me.Err.Error()
}

func (me *StructuralError) Unwrap() error {
	return me.Err
}

// RejectionError is a cryptographic rejection tagged with the failing stage.
type RejectionError struct {
	Stage Stage
	Err   error
}

func (me *RejectionError) Error() string {
	return fmt.Sprintf("rejected at %s: %v", me.Stage, me.Err)
}

func (me *RejectionError) Unwrap() error {
	return me.Err
}

func structural(err error, format string, args ...any) error {
	return &StructuralError{Err: fmt.Errorf("%w: "+format, append([]any{err}, args...)...)}
}

func reject(stage Stage, err error) error {
	return &RejectionError{Stage: stage, Err: err}
}

func IsStructural(err error) bool {
	var s *StructuralError
	return errors.As(err, &s)
}

func IsRejection(err error) bool {
	var r *RejectionError
	return errors.As(err, &r)
}

// RejectedAt reports the stage of a cryptographic rejection.
func RejectedAt(err error) (Stage, bool) {
	var r *RejectionError
	if errors.As(err, &r) {
		return r.Stage, true
	}
	return 0, false
}
