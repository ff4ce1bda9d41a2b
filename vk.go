package minastate

import (
	"fmt"
	"math/big"

	"github.com/eon-protocol/minastate/circuits"
	"github.com/eon-protocol/minastate/placeholder"
)

func structural(err error, format string, args ...any) error {
	return &placeholder.StructuralError{Err: fmt.Errorf("%w: "+format, append([]any{err}, args...)...)}
}

// InitParams is the typed form of the flattened on-chain parameter arrays.
// Index 0 of the flat form carries the byte length of every sub-proof in
// the blob, indices 1..k one parameter set each.
type InitParams struct {
	Sizing  []uint64
	Configs []*placeholder.Config
}

// ParseInitParams validates and decodes init_params and columns_rotations.
// rotations[i] belongs to initParams[i+1].
func ParseInitParams(initParams [][]*big.Int, rotations [][][]int64) (*InitParams, error) {
	if len(initParams) < 2 {
		return nil, structural(placeholder.ErrParameterShape, "%d init_params entries, need sizing and one sub-proof", len(initParams))
	}
	if len(rotations) != len(initParams)-1 {
		return nil, structural(placeholder.ErrParameterShape, "%d rotation sets for %d sub-proofs", len(rotations), len(initParams)-1)
	}
	out := &InitParams{}
	for i, v := range initParams[0] {
		if v == nil || !v.IsUint64() {
			return nil, structural(placeholder.ErrParameterShape, "sizing[%d] = %v", i, v)
		}
		out.Sizing = append(out.Sizing, v.Uint64())
	}
	for i := 1; i < len(initParams); i++ {
		cfg, err := placeholder.ParseFlat(initParams[i], rotations[i-1])
		if err != nil {
			return nil, fmt.Errorf("sub-proof %d: %w", i, err)
		}
		out.Configs = append(out.Configs, cfg)
	}
	return out, nil
}

func (me *InitParams) Flatten() ([][]*big.Int, [][][]int64) {
	sizing := make([]*big.Int, len(me.Sizing))
	for i, s := range me.Sizing {
		sizing[i] = new(big.Int).SetUint64(s)
	}
	initParams := [][]*big.Int{sizing}
	var rotations [][][]int64
	for _, cfg := range me.Configs {
		values, rots := cfg.Flatten()
		initParams = append(initParams, values)
		rotations = append(rotations, rots)
	}
	return initParams, rotations
}

// LedgerParams checks a ledger proof: one verifier per sub-proof, applied to
// consecutive slices of the blob.
type LedgerParams struct {
	Sizing    []uint64
	Verifiers []*placeholder.Verifier
}

func NewLedgerParams(init *InitParams, descs ...*circuits.Description) (*LedgerParams, error) {
	if len(descs) != len(init.Configs) {
		return nil, structural(placeholder.ErrParameterShape, "%d circuits for %d sub-proofs", len(descs), len(init.Configs))
	}
	if len(init.Sizing) != len(init.Configs) {
		return nil, structural(placeholder.ErrParameterShape, "%d sizes for %d sub-proofs", len(init.Sizing), len(init.Configs))
	}
	out := &LedgerParams{Sizing: init.Sizing}
	for i, cfg := range init.Configs {
		v, err := placeholder.NewVerifier(cfg.Params, cfg.Rotations, descs[i])
		if err != nil {
			return nil, fmt.Errorf("sub-proof %d (%s): %w", i+1, descs[i].Name, err)
		}
		out.Verifiers = append(out.Verifiers, v)
	}
	return out, nil
}

// Split cuts blob into the sub-proofs declared by Sizing.
func (me *LedgerParams) Split(blob []byte) ([][]byte, error) {
	var total uint64
	for _, s := range me.Sizing {
		total += s
	}
	if total != uint64(len(blob)) {
		return nil, structural(placeholder.ErrMalformedProof, "ledger proof is %d bytes, sizing declares %d", len(blob), total)
	}
	parts := make([][]byte, len(me.Sizing))
	offset := uint64(0)
	for i, s := range me.Sizing {
		parts[i] = blob[offset : offset+s : offset+s]
		offset += s
	}
	return parts, nil
}

type AccountParams struct {
	Verifier *placeholder.Verifier
}

// NewAccountParams binds the single account sub-proof. Sizing is not used:
// the account proof is whatever follows the envelope prefix.
func NewAccountParams(init *InitParams, desc *circuits.Description) (*AccountParams, error) {
	if len(init.Configs) != 1 {
		return nil, structural(placeholder.ErrParameterShape, "account proofs have one sub-proof, got %d", len(init.Configs))
	}
	cfg := init.Configs[0]
	v, err := placeholder.NewVerifier(cfg.Params, cfg.Rotations, desc)
	if err != nil {
		return nil, fmt.Errorf("account (%s): %w", desc.Name, err)
	}
	return &AccountParams{Verifier: v}, nil
}

// LoadVerifier builds a verifier from a parameter document and an
// arithmetization file.
func LoadVerifier(paramsPath, circuitPath string) (*placeholder.Verifier, error) {
	cfg, err := placeholder.LoadParamsFile(paramsPath)
	if err != nil {
		return nil, err
	}
	desc, err := circuits.LoadFile(circuitPath)
	if err != nil {
		return nil, err
	}
	return placeholder.NewVerifier(cfg.Params, cfg.Rotations, desc)
}
