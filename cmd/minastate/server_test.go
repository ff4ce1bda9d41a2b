package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/eon-protocol/minastate"
	"github.com/eon-protocol/minastate/accounts"
	"github.com/eon-protocol/minastate/fixture"
)

func call(t *testing.T, app *fiber.App, method, path string, body any, out any) int {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestServer(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	d, err := fixture.New()
	require.NoError(err)
	dir := t.TempDir()
	require.NoError(d.Write(ctx, dir))
	n, err := openNode(filepath.Join(dir, "node.yaml"))
	require.NoError(err)
	defer n.Close()
	app := newServer(n)

	ledger, err := minastate.ReadProof(ctx, filepath.Join(dir, "ledger.proof"))
	require.NoError(err)
	envelope, err := minastate.ReadProof(ctx, filepath.Join(dir, "account.proof"))
	require.NoError(err)
	account, err := accounts.LoadFile(filepath.Join(dir, "account.json"))
	require.NoError(err)

	require.Equal(http.StatusOK, call(t, app, http.MethodGet, "/api/v1/ping", nil, nil))

	var status ledgerResponse
	require.Equal(http.StatusOK, call(t, app, http.MethodGet, "/api/v1/ledger/"+fixture.LEDGER_HASH, nil, &status))
	require.False(status.Validated)

	accountReq := accountRequest{LedgerHash: fixture.LEDGER_HASH, Proof: hexutil.Bytes(envelope), Account: account}
	var verdict verdictResponse
	require.Equal(http.StatusOK, call(t, app, http.MethodPost, "/api/v1/account/verify", accountReq, &verdict))
	require.Equal(minastate.INVALID_LEDGER, verdict.Event)
	require.False(verdict.Accepted)

	corrupt := ledgerRequest{LedgerHash: fixture.LEDGER_HASH, Proof: hexutil.MustDecode("0x4554480000000000000000000000000000000000000000000000000000000000")}
	require.Equal(http.StatusOK, call(t, app, http.MethodPost, "/api/v1/ledger/update", corrupt, &verdict))
	require.Equal(minastate.LEDGER_FAILED, verdict.Event)
	require.NotEmpty(verdict.Error)

	good := ledgerRequest{LedgerHash: fixture.LEDGER_HASH, Proof: hexutil.Bytes(ledger)}
	verdict = verdictResponse{}
	require.Equal(http.StatusOK, call(t, app, http.MethodPost, "/api/v1/ledger/verify", good, &verdict))
	require.Equal(minastate.LEDGER_ACCEPTED, verdict.Event)
	require.Equal(http.StatusOK, call(t, app, http.MethodGet, "/api/v1/ledger/"+fixture.LEDGER_HASH, nil, &status))
	require.False(status.Validated)

	require.Equal(http.StatusOK, call(t, app, http.MethodPost, "/api/v1/ledger/update", good, &verdict))
	require.True(verdict.Accepted)
	require.Equal(http.StatusOK, call(t, app, http.MethodGet, "/api/v1/ledger/"+fixture.LEDGER_HASH, nil, &status))
	require.True(status.Validated)

	verdict = verdictResponse{}
	require.Equal(http.StatusOK, call(t, app, http.MethodPost, "/api/v1/account/verify", accountReq, &verdict))
	require.Equal(minastate.ACCOUNT_ACCEPTED, verdict.Event)
	require.True(verdict.Accepted)

	require.Equal(http.StatusBadRequest, call(t, app, http.MethodPost, "/api/v1/account/verify", map[string]string{"ledger_hash": "x"}, nil))
}
