package download

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/zulfikawr/courier/pkg/transport"
	"go.uber.org/zap"
)

// scriptedTransport replays fixed chunks. When gate is set, Do waits for it
// (or for cancellation) before sending the response.
type scriptedTransport struct {
	chunks [][]byte
	length int64
	status int
	header http.Header
	gate   chan struct{}

	mu       sync.Mutex
	requests []*transport.Request
}

func (t *scriptedTransport) Do(ctx context.Context, req *transport.Request, sink transport.Sink) (*transport.Response, error) {
	t.mu.Lock()
	t.requests = append(t.requests, req)
	t.mu.Unlock()

	if t.gate != nil {
		select {
		case <-t.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	status := t.status
	if status == 0 {
		status = http.StatusOK
	}
	header := t.header
	if header == nil {
		header = http.Header{}
	}
	resp := &transport.Response{
		StatusCode:    status,
		Header:        header,
		ContentLength: t.length,
		URL:           req.URL,
	}
	sink.Response(resp)
	for _, chunk := range t.chunks {
		if err := ctx.Err(); err != nil {
			return resp, err
		}
		if err := sink.Data(chunk); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

func (t *scriptedTransport) lastRequest() *transport.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.requests) == 0 {
		return nil
	}
	return t.requests[len(t.requests)-1]
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	base := []Option{WithLogger(zap.NewNop()), WithFs(afero.NewMemMapFs())}
	m, err := NewManager(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func newHTTPManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	tr, err := transport.NewHTTP(transport.Options{Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return newTestManager(t, append([]Option{WithTransport(tr)}, opts...)...)
}

// outcome records terminal callbacks.
type outcome struct {
	successes atomic.Int32
	failures  atomic.Int32

	mu   sync.Mutex
	data []byte
	text string
	val  any
	err  error

	delivered chan struct{}
}

func newOutcome() *outcome {
	return &outcome{delivered: make(chan struct{}, 8)}
}

func (o *outcome) memory(s *Session, data []byte, text string) {
	o.mu.Lock()
	o.data, o.text = data, text
	o.mu.Unlock()
	o.successes.Add(1)
	o.delivered <- struct{}{}
}

func (o *outcome) json(s *Session, v any) {
	o.mu.Lock()
	o.val = v
	o.mu.Unlock()
	o.successes.Add(1)
	o.delivered <- struct{}{}
}

func (o *outcome) file(s *Session) {
	o.successes.Add(1)
	o.delivered <- struct{}{}
}

func (o *outcome) failure(s *Session, err error) {
	o.mu.Lock()
	o.err = err
	o.mu.Unlock()
	o.failures.Add(1)
	o.delivered <- struct{}{}
}

func (o *outcome) wait(t *testing.T) {
	t.Helper()
	select {
	case <-o.delivered:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for terminal callback")
	}
}

func (o *outcome) expectNone(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case <-o.delivered:
		t.Fatalf("unexpected terminal callback (successes=%d failures=%d)", o.successes.Load(), o.failures.Load())
	case <-time.After(d):
	}
}

func (o *outcome) lastErr() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}
