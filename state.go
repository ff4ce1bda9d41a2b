// Package minastate verifies Mina ledger state proofs, records the verdicts
// by ledger hash and checks account proofs against recorded ledgers.
package minastate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/consensys/gnark/logger"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/eon-protocol/minastate/accounts"
	"github.com/eon-protocol/minastate/placeholder"
)

var (
	ErrInvalidLedgerHash = errors.New("minastate: invalid ledger hash")
	ErrUnknownLedgerHash = errors.New("minastate: ledger hash has no accepted ledger proof")
)

// Event is published for every completed verification.
type Event struct {
	Kind       EventKind
	LedgerHash string
	Err        error
}

// StateVerifier runs ledger and account verifications against one registry.
// Events are delivered synchronously: subscribers must keep draining their
// channel or verifications block.
type StateVerifier struct {
	registry *Registry
	feed     event.Feed
	log      zerolog.Logger
}

func NewStateVerifier(registry *Registry) *StateVerifier {
	return &StateVerifier{
		registry: registry,
		log:      logger.Logger().With().Str("component", "minastate").Logger(),
	}
}

func (me *StateVerifier) Registry() *Registry {
	return me.registry
}

func (me *StateVerifier) SubscribeEvents(ch chan<- Event) event.Subscription {
	return me.feed.Subscribe(ch)
}

func (me *StateVerifier) emit(kind EventKind, hash string, err error, start time.Time) {
	metrics.GetOrRegisterCounter(METRICS_PREFIX+"events/"+string(kind), nil).Inc(1)
	metrics.GetOrRegisterTimer(METRICS_PREFIX+"verify", nil).UpdateSince(start)
	ev := me.log.Info()
	if err != nil {
		ev = me.log.Warn().Err(err)
	}
	ev.Str("event", string(kind)).Str("ledger", hash).Dur("took", time.Since(start)).Msg("verdict")
	me.feed.Send(Event{Kind: kind, LedgerHash: hash, Err: err})
}

func cancelled(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err())
}

// VerifyLedgerState checks every ledger sub-proof and accepts only when all
// of them are accepted. A nil error is the accepted verdict.
func (me *StateVerifier) VerifyLedgerState(ctx context.Context, hash string, proof []byte, params *LedgerParams) error {
	start := time.Now()
	err := me.verifyLedger(ctx, hash, proof, params)
	if cancelled(ctx, err) {
		return err
	}
	me.emit(LedgerVerdict(err), hash, err, start)
	return err
}

func verdict(err error, accepted, failed EventKind) EventKind {
	switch {
	case errors.Is(err, ErrInvalidLedgerHash):
		return INVALID_LEDGER
	case err != nil:
		return failed
	}
	return accepted
}

// LedgerVerdict names the event a ledger verification result is reported as.
func LedgerVerdict(err error) EventKind {
	return verdict(err, LEDGER_ACCEPTED, LEDGER_FAILED)
}

func AccountVerdict(err error) EventKind {
	return verdict(err, ACCOUNT_ACCEPTED, ACCOUNT_FAILED)
}

func (me *StateVerifier) verifyLedger(ctx context.Context, hash string, proof []byte, params *LedgerParams) error {
	if hash == "" || len(hash) > MAX_LEDGER_HASH {
		return structural(ErrInvalidLedgerHash, "%d byte ledger hash", len(hash))
	}
	parts, err := params.Split(proof)
	if err != nil {
		return err
	}
	verdicts := make([]error, len(parts))
	var g errgroup.Group
	for i, v := range params.Verifiers {
		g.Go(func() error {
			verdicts[i] = v.Verify(ctx, parts[i], nil)
			return nil
		})
	}
	_ = g.Wait()
	for i, err := range verdicts {
		if err != nil {
			if cancelled(ctx, err) {
				return err
			}
			return fmt.Errorf("%s sub-proof: %w", params.Verifiers[i].Arithmetization().Name, err)
		}
	}
	return nil
}

// UpdateLedgerProof verifies like VerifyLedgerState and records the verdict.
// The verdict is returned whatever the storage outcome; storage failures
// are logged.
func (me *StateVerifier) UpdateLedgerProof(ctx context.Context, hash string, proof []byte, params *LedgerParams) error {
	err := me.VerifyLedgerState(ctx, hash, proof, params)
	if cancelled(ctx, err) || errors.Is(err, ErrInvalidLedgerHash) {
		return err
	}
	if serr := me.registry.RecordLedgerVerdict(hash, err == nil); serr != nil {
		me.log.Error().Err(serr).Str("ledger", hash).Msg("recording ledger verdict")
	}
	return err
}

func (me *StateVerifier) IsValidatedLedgerHash(hash string) (bool, error) {
	return me.registry.IsValidated(hash)
}

// VerifyAccountState checks, in order: that the envelope is bound to hash,
// that hash carries an accepted ledger proof, and the account proof itself
// with account folded into the public input.
func (me *StateVerifier) VerifyAccountState(ctx context.Context, account *accounts.AccountData, hash string, envelope []byte, params *AccountParams) error {
	start := time.Now()
	err := me.verifyAccount(ctx, account, hash, envelope, params)
	if cancelled(ctx, err) {
		return err
	}
	me.emit(AccountVerdict(err), hash, err, start)
	return err
}

func (me *StateVerifier) verifyAccount(ctx context.Context, account *accounts.AccountData, hash string, envelope []byte, params *AccountParams) error {
	env, err := DecodeAccountProof(envelope)
	if err != nil {
		return structural(ErrInvalidLedgerHash, "envelope: %v", err)
	}
	if env.LedgerHash != hash {
		return structural(ErrInvalidLedgerHash, "envelope is bound to %q, not %q", env.LedgerHash, hash)
	}
	ok, err := me.registry.IsValidated(hash)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %w: %q", ErrInvalidLedgerHash, ErrUnknownLedgerHash, hash)
	}
	pi, err := account.PublicInput(params.Verifier.Field())
	if err != nil {
		return &placeholder.StructuralError{Err: err}
	}
	return params.Verifier.Verify(ctx, env.Proof, pi)
}
