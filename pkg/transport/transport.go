// Package transport defines the boundary between a download session and the
// network, together with the net/http implementation used by courier.
//
// A Transport performs exactly one request per Do call. Events flow to the
// caller through a Sink in this order: Response once, then Data zero or more
// times. UploadProgress may be interleaved before Response while a request
// body is being written. Do returns when the body has been fully read, the
// context is cancelled, the idle timeout fires, or the Sink rejects a chunk.
package transport

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"
)

// ErrTimeout is the cause reported when no progress was made within the
// request's idle timeout. It covers connecting, waiting for headers and each
// body read.
var ErrTimeout = errors.New("transport: request timed out")

// ErrPinMismatch is returned when pinning is required and the server presented
// no pinned certificate.
var ErrPinMismatch = errors.New("transport: server certificate does not match a pinned certificate")

// Credential is a basic-auth username/password pair.
type Credential struct {
	Username string
	Password string
}

// Request describes a single outgoing request.
type Request struct {
	URL     *url.URL
	Method  string
	Header  http.Header
	Body    []byte
	Timeout time.Duration

	// Credential is offered only when the server answers 401 with a Basic
	// challenge. Preemptive credentials travel in Header instead.
	Credential *Credential

	// DisableCookies sends the request without the shared cookie jar.
	DisableCookies bool
}

// Response is the metadata of a received response.
type Response struct {
	StatusCode int
	Status     string
	Proto      string
	Header     http.Header
	// ContentLength is -1 when unknown, including when the body is decoded
	// from a compressed encoding.
	ContentLength int64
	// URL is the final URL after redirects.
	URL *url.URL
}

// Sink receives transport events for one request.
type Sink interface {
	// Response is called once, when headers arrive.
	Response(resp *Response)
	// Data is called for every body chunk. The slice is only valid for the
	// duration of the call. A non-nil error aborts the transfer and is
	// returned from Do unchanged.
	Data(chunk []byte) error
	// UploadProgress reports request body bytes handed to the connection.
	UploadProgress(sent, total int64)
}

// Transport runs requests.
type Transport interface {
	Do(ctx context.Context, req *Request, sink Sink) (*Response, error)
}
