// Package fixture assembles a complete sample deployment: ledger and account
// circuits over the Pallas field, their parameters, and conforming proofs.
package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/eon-protocol/minastate"
	"github.com/eon-protocol/minastate/accounts"
	"github.com/eon-protocol/minastate/placeholder"
	"github.com/eon-protocol/minastate/placeholder/placeholdertest"
)

const LEDGER_HASH = "jwYPLbRQa4X86tSJs1aTzusf3TNdVTj58oyWJQB132sEGUtKHcB"

func SampleAccount() *accounts.AccountData {
	a := &accounts.AccountData{
		PublicKey: "B62qre3ersHfzQckNuibViWTGyyKwZseztqrjPjBv6SQF384Rg6ESAy",
		Balance:   accounts.Balance{Liquid: 5000, Locked: 0},
	}
	for i := 1; i <= 8; i++ {
		a.State = append(a.State, fmt.Sprintf("0x%064x", i))
	}
	return a
}

type Deployment struct {
	Base    *placeholdertest.Circuit
	Scalar  *placeholdertest.Circuit
	Account *placeholdertest.Circuit
}

func New() (*Deployment, error) {
	var d Deployment
	var err error
	if d.Base, err = placeholdertest.Base(); err != nil {
		return nil, err
	}
	if d.Scalar, err = placeholdertest.Scalar(); err != nil {
		return nil, err
	}
	if d.Account, err = placeholdertest.Account(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (me *Deployment) ledger() []*placeholdertest.Circuit {
	return []*placeholdertest.Circuit{me.Base, me.Scalar}
}

// LedgerProof proves every ledger sub-proof and returns the concatenated
// blob together with its init params.
func (me *Deployment) LedgerProof(ctx context.Context) ([]byte, *minastate.InitParams, error) {
	init := &minastate.InitParams{}
	var blob []byte
	for _, c := range me.ledger() {
		proof, err := c.Prove(ctx, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", c.Description.Name, err)
		}
		b := proof.Bytes()
		blob = append(blob, b...)
		init.Sizing = append(init.Sizing, uint64(len(b)))
		init.Configs = append(init.Configs, c.Config)
	}
	return blob, init, nil
}

func (me *Deployment) LedgerParams(init *minastate.InitParams) (*minastate.LedgerParams, error) {
	return minastate.NewLedgerParams(init, me.Base.Description, me.Scalar.Description)
}

func (me *Deployment) AccountInit() *minastate.InitParams {
	return &minastate.InitParams{Configs: []*placeholder.Config{me.Account.Config}}
}

func (me *Deployment) AccountParams() (*minastate.AccountParams, error) {
	return minastate.NewAccountParams(me.AccountInit(), me.Account.Description)
}

// AccountProof proves account and wraps the proof in an envelope bound to
// hash.
func (me *Deployment) AccountProof(ctx context.Context, hash string, account *accounts.AccountData) ([]byte, error) {
	pi, err := account.PublicInput(me.Account.Verifier.Field())
	if err != nil {
		return nil, err
	}
	proof, err := me.Account.Prove(ctx, pi)
	if err != nil {
		return nil, err
	}
	env := minastate.AccountProof{LedgerHash: hash, Proof: proof.Bytes()}
	return env.Bytes(), nil
}

// Write stores the deployment under dir: parameter documents, circuits,
// proofs, the sample account and a node config referencing all of them.
func (me *Deployment) Write(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	write := func(name string, wt io.WriterTo) error {
		file, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if _, err := wt.WriteTo(file); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	}
	node := &minastate.NodeConfig{DataDir: "registry", Listen: ":8080"}
	blob, init, err := me.LedgerProof(ctx)
	if err != nil {
		return err
	}
	node.Sizing = init.Sizing
	for _, c := range append(me.ledger(), me.Account) {
		files := minastate.CircuitFiles{
			Params:  c.Description.Name + ".params.json",
			Circuit: c.Description.Name + ".circuit.json",
		}
		if err := write(files.Params, c.Config); err != nil {
			return err
		}
		if err := write(files.Circuit, c.Description); err != nil {
			return err
		}
		if c == me.Account {
			node.Account = files
		} else {
			node.Ledger = append(node.Ledger, files)
		}
	}
	account := SampleAccount()
	envelope, err := me.AccountProof(ctx, LEDGER_HASH, account)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "ledger.proof"), []byte(hexutil.Encode(blob)), 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "account.proof"), []byte(hexutil.Encode(envelope)), 0o644); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(account, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "account.json"), raw, 0o644); err != nil {
		return err
	}
	return write("node.yaml", node)
}
