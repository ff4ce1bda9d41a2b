package minastate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeProofText(t *testing.T) {
	require := require.New(t)
	out, err := DecodeProofText([]byte("0x4554480000\n"))
	require.NoError(err)
	require.Equal([]byte{0x45, 0x54, 0x48, 0, 0}, out)

	raw := []byte{0x00, 0x30, 0x78}
	out, err = DecodeProofText(raw)
	require.NoError(err)
	require.Equal(raw, out)

	_, err = DecodeProofText([]byte("0x123"))
	require.Error(err)
	_, err = DecodeProofText([]byte("0xzz"))
	require.Error(err)
}

func TestReadProof(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "proof")
	require.NoError(os.WriteFile(path, []byte("0x112233"), 0o644))
	out, err := ReadProof(ctx, path)
	require.NoError(err)
	require.Equal([]byte{0x11, 0x22, 0x33}, out)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ledger.proof" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte{0xde, 0xad})
	}))
	defer server.Close()
	out, err = ReadProof(ctx, server.URL+"/ledger.proof")
	require.NoError(err)
	require.Equal([]byte{0xde, 0xad}, out)

	_, err = ReadProof(ctx, server.URL+"/missing")
	require.Error(err)
	_, err = ReadProof(ctx, filepath.Join(t.TempDir(), "missing"))
	require.Error(err)
}
