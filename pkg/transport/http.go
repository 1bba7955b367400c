package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"github.com/zulfikawr/courier/internal/logging"
	"github.com/zulfikawr/courier/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout applies when a Request carries no timeout.
	DefaultTimeout = 60 * time.Second

	readBufferSize = 32 * 1024
)

// Options configures an HTTP transport.
type Options struct {
	UserAgent string
	// ProxyURL accepts http, https, socks5 and socks5h URLs. Empty uses the
	// proxy environment variables.
	ProxyURL string
	// RateLimitKBps caps response body throughput across all requests.
	// Zero disables limiting.
	RateLimitKBps int64
	// HTTP3 sends requests over QUIC instead of TCP.
	HTTP3                bool
	TrustAllCertificates bool
	// PinnedCertificates holds DER encoded certificates. A server presenting
	// one of them is trusted without chain validation.
	PinnedCertificates [][]byte
	// RequirePinning rejects servers that present no pinned certificate.
	RequirePinning bool
	Logger         *zap.Logger
}

// HTTP is a Transport backed by net/http. It keeps one cookie jar shared by
// every request that does not opt out of cookies.
type HTTP struct {
	jarClient   *http.Client
	plainClient *http.Client
	closer      io.Closer
	limiter     *rate.Limiter
	userAgent   string
	logger      *zap.Logger
}

// NewHTTP creates an HTTP transport.
func NewHTTP(opts Options) (*HTTP, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}

	tlsConfig, err := newTLSConfig(opts)
	if err != nil {
		return nil, err
	}

	base, closer, err := newRoundTripper(opts, tlsConfig, logger)
	if err != nil {
		return nil, err
	}
	rt := &challengeRoundTripper{next: base}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &HTTP{
		jarClient:   &http.Client{Transport: rt, Jar: jar},
		plainClient: &http.Client{Transport: rt},
		closer:      closer,
		limiter:     newLimiter(opts.RateLimitKBps),
		userAgent:   opts.UserAgent,
		logger:      logger,
	}, nil
}

// Jar returns the shared cookie jar.
func (t *HTTP) Jar() http.CookieJar {
	return t.jarClient.Jar
}

// Close releases idle connections and, for HTTP/3, the QUIC transport.
func (t *HTTP) Close() error {
	t.jarClient.CloseIdleConnections()
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// Do sends req and streams the response body into sink.
func (t *HTTP) Do(ctx context.Context, req *Request, sink Sink) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	idle := time.AfterFunc(timeout, func() { cancel(ErrTimeout) })
	defer idle.Stop()
	touch := func() { idle.Reset(timeout) }

	hreq, addedEncoding, err := t.newRequest(ctx, req, sink, touch)
	if err != nil {
		return nil, err
	}

	client := t.jarClient
	if req.DisableCookies {
		client = t.plainClient
	}

	t.logger.Debug("Sending request",
		zap.String("method", hreq.Method),
		zap.String("url", hreq.URL.Redacted()),
		zap.Any("headers", redactHeaders(hreq.Header)),
		zap.Int("body_bytes", len(req.Body)),
	)

	start := time.Now()
	hresp, err := client.Do(hreq)
	if err != nil {
		metrics.RecordRoundTrip(hreq.Method, "error", 0)
		return nil, t.failure(ctx, hreq, err)
	}
	defer func() { _ = hresp.Body.Close() }()
	touch()
	metrics.RecordRoundTrip(hreq.Method, strconv.Itoa(hresp.StatusCode), time.Since(start).Seconds())

	body, decoded, err := decodeBody(hresp, addedEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s response body: %w", hresp.Header.Get("Content-Encoding"), err)
	}
	defer func() { _ = body.Close() }()

	resp := &Response{
		StatusCode:    hresp.StatusCode,
		Status:        hresp.Status,
		Proto:         hresp.Proto,
		Header:        hresp.Header,
		ContentLength: hresp.ContentLength,
		URL:           hresp.Request.URL,
	}
	if decoded {
		resp.ContentLength = -1
	}

	t.logger.Debug("Received response",
		zap.String("url", resp.URL.Redacted()),
		zap.Int("status", resp.StatusCode),
		zap.Int64("content_length", resp.ContentLength),
		zap.Any("headers", redactHeaders(resp.Header)),
	)
	sink.Response(resp)

	buf := make([]byte, t.bufferSize())
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if err := t.wait(ctx, n); err != nil {
				return resp, t.failure(ctx, hreq, err)
			}
			touch()
			if err := sink.Data(buf[:n]); err != nil {
				return resp, err
			}
		}
		if rerr == io.EOF {
			return resp, nil
		}
		if rerr != nil {
			return resp, t.failure(ctx, hreq, rerr)
		}
	}
}

func (t *HTTP) newRequest(ctx context.Context, req *Request, sink Sink, touch func()) (*http.Request, bool, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = &uploadReader{r: bytes.NewReader(req.Body), total: int64(len(req.Body)), sink: sink, touch: touch}
	}
	hreq, err := http.NewRequestWithContext(ctx, method, req.URL.String(), body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	if req.Body != nil {
		payload := req.Body
		hreq.ContentLength = int64(len(payload))
		hreq.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(payload)), nil
		}
	}

	for key, values := range req.Header {
		for _, v := range values {
			hreq.Header.Add(key, v)
		}
	}
	if hreq.Header.Get("User-Agent") == "" && t.userAgent != "" {
		hreq.Header.Set("User-Agent", t.userAgent)
	}
	addedEncoding := false
	if hreq.Header.Get("Accept-Encoding") == "" {
		hreq.Header.Set("Accept-Encoding", acceptEncoding)
		addedEncoding = true
	}
	if req.Credential != nil {
		hreq = hreq.WithContext(withCredential(hreq.Context(), req.Credential))
	}
	return hreq, addedEncoding, nil
}

func (t *HTTP) bufferSize() int {
	if t.limiter != nil && t.limiter.Burst() < readBufferSize {
		return t.limiter.Burst()
	}
	return readBufferSize
}

func (t *HTTP) wait(ctx context.Context, n int) error {
	if t.limiter == nil {
		return nil
	}
	return t.limiter.WaitN(ctx, n)
}

// failure attaches the idle timeout cause when it was the reason ctx ended.
func (t *HTTP) failure(ctx context.Context, hreq *http.Request, err error) error {
	if errors.Is(context.Cause(ctx), ErrTimeout) {
		t.logger.Debug("Request timed out", zap.String("url", hreq.URL.Redacted()))
		return fmt.Errorf("%s %s: %w", hreq.Method, hreq.URL.Redacted(), ErrTimeout)
	}
	return err
}

// uploadReader reports request body progress as net/http consumes it.
type uploadReader struct {
	r     io.Reader
	sent  int64
	total int64
	sink  Sink
	touch func()
}

func (u *uploadReader) Read(p []byte) (int, error) {
	n, err := u.r.Read(p)
	if n > 0 {
		u.sent += int64(n)
		u.touch()
		u.sink.UploadProgress(u.sent, u.total)
	}
	return n, err
}

var redactedHeaders = []string{"Authorization", "Proxy-Authorization", "Cookie", "Set-Cookie"}

func redactHeaders(h http.Header) http.Header {
	out := h.Clone()
	for _, key := range redactedHeaders {
		if out.Get(key) != "" {
			out.Set(key, "REDACTED")
		}
	}
	return out
}
