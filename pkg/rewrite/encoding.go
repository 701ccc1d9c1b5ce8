package rewrite

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// decodeBody undoes a single Content-Encoding. ok is false for encodings it
// does not understand, in which case body is returned as is.
func decodeBody(encoding string, body []byte) (decoded []byte, ok bool, err error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return body, true, nil
	case "gzip", "x-gzip":
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, false, fmt.Errorf("gzip: %w", err)
		}
		defer r.Close()
		return readAll("gzip", r)
	case "deflate":
		// Servers disagree on zlib wrapped vs raw deflate.
		if r, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
			defer r.Close()
			return readAll("deflate", r)
		}
		r := flate.NewReader(bytes.NewReader(body))
		defer r.Close()
		return readAll("deflate", r)
	case "br":
		return readAll("br", brotli.NewReader(bytes.NewReader(body)))
	case "zstd":
		r, err := zstd.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, false, fmt.Errorf("zstd: %w", err)
		}
		defer r.Close()
		return readAll("zstd", r)
	default:
		return body, false, nil
	}
}

func readAll(name string, r io.Reader) ([]byte, bool, error) {
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", name, err)
	}
	return out, true, nil
}
