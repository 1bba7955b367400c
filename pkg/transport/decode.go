package transport

import (
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// acceptEncoding is advertised when the caller did not pick an encoding.
const acceptEncoding = "gzip, zstd"

// decodeBody wraps the response body in a decompressor when the server used
// an encoding that was advertised on the caller's behalf. Bodies requested
// with an explicit Accept-Encoding are returned as sent.
func decodeBody(resp *http.Response, advertised bool) (io.ReadCloser, bool, error) {
	if !advertised || resp.StatusCode == http.StatusNoContent || resp.Request.Method == http.MethodHead {
		return resp.Body, false, nil
	}

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err == io.EOF {
			return resp.Body, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return zr, true, nil
	case "zstd":
		zr, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, false, err
		}
		return zr.IOReadCloser(), true, nil
	}
	return resp.Body, false, nil
}
