package minastate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/schollz/progressbar/v3"
)

// ReadProof loads a proof from a file path or an http(s) URL. Text proofs
// are 0x-prefixed hex; anything else is taken as raw bytes.
func ReadProof(ctx context.Context, location string) ([]byte, error) {
	var raw []byte
	var err error
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		raw, err = download_proof(ctx, location)
	} else {
		raw, err = os.ReadFile(location)
	}
	if err != nil {
		return nil, err
	}
	return DecodeProofText(raw)
}

// DecodeProofText hex decodes raw when it is 0x-prefixed text and returns it
// unchanged otherwise.
func DecodeProofText(raw []byte) ([]byte, error) {
	text := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(text, []byte("0x")) && !bytes.HasPrefix(text, []byte("0X")) {
		return raw, nil
	}
	out, err := hexutil.Decode("0x" + string(text[2:]))
	if err != nil {
		return nil, fmt.Errorf("minastate: hex proof: %w", err)
	}
	return out, nil
}

func download_proof(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("minastate: download %s: %s", url, resp.Status)
	}
	var buf bytes.Buffer
	bar := progressbar.DefaultBytes(resp.ContentLength, DOWNLOAD_DESCRIPTION)
	if _, err := io.Copy(io.MultiWriter(&buf, bar), resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
