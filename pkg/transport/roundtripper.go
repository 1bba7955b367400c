package transport

import (
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/quic-go/quic-go/http3"
	"go.uber.org/zap"
)

// newRoundTripper builds the base round tripper. The returned closer is
// non-nil when the round tripper holds resources beyond idle connections.
func newRoundTripper(opts Options, tlsConfig *tls.Config, logger *zap.Logger) (http.RoundTripper, io.Closer, error) {
	if opts.HTTP3 {
		if opts.ProxyURL != "" {
			logger.Warn("Proxy is ignored for HTTP/3 requests", zap.String("proxy", opts.ProxyURL))
		}
		h3 := &http3.Transport{
			TLSClientConfig: tlsConfig,
		}
		return h3, h3, nil
	}

	dialer := newDialer()
	tr := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
		WriteBufferSize:     256 * 1024,
		ReadBufferSize:      256 * 1024,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     tlsConfig,
	}
	if err := applyProxy(tr, dialer, opts.ProxyURL); err != nil {
		return nil, nil, err
	}
	return tr, nil, nil
}
