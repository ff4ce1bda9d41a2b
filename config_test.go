package minastate_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/consensys/gnark/test"

	"github.com/eon-protocol/minastate"
	"github.com/eon-protocol/minastate/accounts"
	"github.com/eon-protocol/minastate/fixture"
)

func TestNodeConfigDeployment(t *testing.T) {
	assert := test.NewAssert(t)
	ctx := context.Background()
	d, err := fixture.New()
	assert.NoError(err)
	dir := t.TempDir()
	assert.NoError(d.Write(ctx, dir))

	cfg, err := minastate.LoadNodeConfig(filepath.Join(dir, "node.yaml"))
	assert.NoError(err)
	assert.Equal(":8080", cfg.Listen)
	assert.Len(cfg.Ledger, 2)

	ledgerParams, err := cfg.LedgerParams()
	assert.NoError(err)
	accountParams, err := cfg.AccountParams()
	assert.NoError(err)
	registry, err := cfg.OpenRegistry()
	assert.NoError(err)
	defer registry.Close()
	sv := minastate.NewStateVerifier(registry)

	blob, err := minastate.ReadProof(ctx, filepath.Join(dir, "ledger.proof"))
	assert.NoError(err)
	envelope, err := minastate.ReadProof(ctx, filepath.Join(dir, "account.proof"))
	assert.NoError(err)
	account, err := accounts.LoadFile(filepath.Join(dir, "account.json"))
	assert.NoError(err)

	assert.NoError(sv.UpdateLedgerProof(ctx, fixture.LEDGER_HASH, blob, ledgerParams))
	assert.NoError(sv.VerifyAccountState(ctx, account, fixture.LEDGER_HASH, envelope, accountParams))
}

func TestReadNodeConfig(t *testing.T) {
	assert := test.NewAssert(t)
	cfg, err := minastate.ReadNodeConfig(strings.NewReader(`
datadir: /var/lib/minastate
sizing: [26048, 22920]
ledger:
  - {params: base.params.json, circuit: base.circuit.json}
  - {params: scalar.params.json, circuit: scalar.circuit.json}
account: {params: account.params.json, circuit: account.circuit.json}
`))
	assert.NoError(err)
	assert.Equal([]uint64{26048, 22920}, cfg.Sizing)
	assert.Equal("scalar.circuit.json", cfg.Ledger[1].Circuit)
	assert.Equal(":8080", cfg.Listen)

	_, err = minastate.ReadNodeConfig(strings.NewReader("datadir: x\nverbose: true\n"))
	assert.Error(err)
}
