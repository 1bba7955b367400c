package download

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"github.com/zulfikawr/courier/internal/metrics"
	"github.com/zulfikawr/courier/pkg/transport"
	"go.uber.org/zap"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no transition can leave s.
func (s State) Terminal() bool {
	return s >= StateCompleted
}

// errExpired is the context cause used when background expiry aborts a run.
var errExpired = errors.New("background expiry")

// errStopped aborts the transport once the session has left Running.
var errStopped = errors.New("session no longer running")

// Result is the terminal outcome of a session.
type Result struct {
	State    State
	Response *transport.Response
	Data     []byte
	Text     string
	Value    any
	Err      error
}

// Session is a single download. Configure it while Idle, then start it once.
// Callbacks run on a goroutine owned by the session, never on the caller's.
type Session struct {
	m    *Manager
	kind targetKind

	mu sync.Mutex

	// configuration, mutable while Idle
	method               string
	methodSet            bool
	header               http.Header
	cred                 *transport.Credential
	preemptive           bool
	timeout              time.Duration
	disableCookies       bool
	continueInBackground bool
	tag                  string
	group                string
	onProgress           func(*Session, Progress)
	onUploadProgress     func(*Session, Progress)
	onError              func(*Session, error)
	onMemory             func(*Session, []byte, string)
	onJSON               func(*Session, any)
	onFile               func(*Session)
	path                 string

	// run state
	state    State
	url      string
	cancel   context.CancelCauseFunc
	done     chan struct{}
	started  time.Time
	resp     *transport.Response
	received int64
	expected int64
	buf      bytes.Buffer
	data     []byte
	text     string
	value    any
	file     afero.File
	err      error
}

func (m *Manager) newSession(kind targetKind, onError func(*Session, error)) *Session {
	return &Session{
		m:                    m,
		kind:                 kind,
		method:               http.MethodGet,
		header:               http.Header{},
		preemptive:           true,
		timeout:              m.defaults.Timeout,
		disableCookies:       m.defaults.DisableCookies,
		continueInBackground: m.defaults.ContinueInBackground,
		tag:                  uuid.NewString(),
		group:                DefaultGroup,
		onError:              onError,
		expected:             -1,
		done:                 make(chan struct{}),
	}
}

// configure applies fn when the session is Idle. Settings changed after Start
// do not affect the request in flight.
func (s *Session) configure(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		fn()
	}
}

// SetHeader sets an instance header. Instance headers replace shared headers
// with the same name.
func (s *Session) SetHeader(key, value string) {
	s.configure(func() { s.header.Set(key, value) })
}

// RemoveHeader removes an instance header.
func (s *Session) RemoveHeader(key string) {
	s.configure(func() { s.header.Del(key) })
}

// SetCredentials sets the basic-auth credential used by the next Start.
func (s *Session) SetCredentials(username, password string) {
	s.configure(func() {
		s.cred = &transport.Credential{Username: username, Password: password}
	})
}

// SetPreemptiveAuth controls whether credentials are sent with the first
// request (the default) or only in answer to a 401 Basic challenge.
func (s *Session) SetPreemptiveAuth(preemptive bool) {
	s.configure(func() { s.preemptive = preemptive })
}

// SetMethod sets the HTTP method. The default is GET.
func (s *Session) SetMethod(method string) {
	s.configure(func() {
		s.method = method
		s.methodSet = true
	})
}

// SetTimeout sets the idle timeout for connecting, waiting for headers and
// each read.
func (s *Session) SetTimeout(d time.Duration) {
	s.configure(func() {
		if d > 0 {
			s.timeout = d
		}
	})
}

// SetDisableCookies keeps the request out of the shared cookie jar.
func (s *Session) SetDisableCookies(disable bool) {
	s.configure(func() { s.disableCookies = disable })
}

// SetContinueInBackground controls whether background expiry is ignored (the
// default) or fails the session.
func (s *Session) SetContinueInBackground(cont bool) {
	s.configure(func() { s.continueInBackground = cont })
}

// SetProgressFunc sets the download progress callback.
func (s *Session) SetProgressFunc(fn func(s *Session, p Progress)) {
	s.configure(func() { s.onProgress = fn })
}

// SetUploadProgressFunc sets the request body progress callback.
func (s *Session) SetUploadProgressFunc(fn func(s *Session, p Progress)) {
	s.configure(func() { s.onUploadProgress = fn })
}

// SetTag replaces the generated registry tag.
func (s *Session) SetTag(tag string) {
	s.configure(func() {
		if tag != "" {
			s.tag = tag
		}
	})
}

// SetGroup sets the registry group used by Manager.CancelGroup.
func (s *Session) SetGroup(group string) {
	s.configure(func() { s.group = group })
}

// Tag returns the registry tag.
func (s *Session) Tag() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tag
}

// Group returns the registry group.
func (s *Session) Group() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.group
}

// Start sends a request to rawURL.
func (s *Session) Start(rawURL string) error {
	return s.StartRequest(rawURL, nil, nil)
}

// StartWithParams sends params in the query string for GET and as a form
// body otherwise.
func (s *Session) StartWithParams(rawURL string, params map[string]string) error {
	return s.StartRequest(rawURL, params, nil)
}

// StartWithBody sends body as the request body.
func (s *Session) StartWithBody(rawURL string, body []byte) error {
	return s.StartRequest(rawURL, nil, body)
}

// StartWithJSON sends v encoded as JSON. A session still using the default
// GET method switches to POST.
func (s *Session) StartWithJSON(rawURL string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return newError(KindUsage, "start", rawURL, err)
	}
	s.mu.Lock()
	if s.state == StateIdle {
		if !s.methodSet {
			s.method = http.MethodPost
		}
		if s.header.Get("Content-Type") == "" {
			s.header.Set("Content-Type", "application/json")
		}
	}
	s.mu.Unlock()
	return s.StartRequest(rawURL, nil, body)
}

// StartRequest validates the request and starts the transfer. Passing both
// params and body is a usage error. A session that is not Idle returns an
// InvalidState error and delivers no callback. An invalid URL fails the
// session: the error is returned and also delivered to the error callback.
func (s *Session) StartRequest(rawURL string, params map[string]string, body []byte) error {
	if params != nil && body != nil {
		return newError(KindUsage, "start", rawURL, errors.New("parameters and body are mutually exclusive"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return newError(KindInvalidState, "start", rawURL, fmt.Errorf("state is %s", s.state))
	}
	s.url = rawURL

	u, err := parseURL(rawURL)
	if err != nil {
		e := newError(KindInvalidURL, "start", rawURL, err)
		s.state = StateFailed
		s.err = e
		close(s.done)
		metrics.RecordError(KindInvalidURL.String())
		if cb := s.onError; cb != nil {
			go cb(s, e)
		}
		return e
	}

	req := s.buildRequest(u, params, body)

	ctx, cancel := context.WithCancelCause(context.Background())
	s.cancel = cancel
	s.state = StateRunning
	s.started = time.Now()
	s.m.indicator.Increase()
	s.m.register(s)
	metrics.SessionStarted()

	s.m.logger.Debug("Session started",
		zap.String("tag", s.tag),
		zap.String("method", req.Method),
		zap.String("url", u.Redacted()),
		zap.String("target", s.kind.String()),
	)

	var expiring <-chan struct{}
	if !s.continueInBackground && s.m.expiry != nil {
		expiring = s.m.expiry.Expiring()
	}
	go s.run(ctx, req, expiring)
	return nil
}

func parseURL(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, errors.New("empty URL")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("missing host")
	}
	return u, nil
}

// buildRequest merges headers and encodes parameters. Called with s.mu held.
func (s *Session) buildRequest(u *url.URL, params map[string]string, body []byte) *transport.Request {
	header := s.m.headers.Snapshot(u.Hostname())
	for key, values := range s.header {
		header[key] = append([]string(nil), values...)
	}

	method := s.method
	if params != nil {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, v)
		}
		if method == http.MethodGet {
			q := u.Query()
			for k := range values {
				q.Set(k, values.Get(k))
			}
			u.RawQuery = q.Encode()
		} else {
			body = []byte(values.Encode())
			if header.Get("Content-Type") == "" {
				header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
		}
	}
	if s.kind == targetJSON && header.Get("Accept") == "" {
		header.Set("Accept", "application/json")
	}

	req := &transport.Request{
		URL:            u,
		Method:         method,
		Header:         header,
		Body:           body,
		Timeout:        s.timeout,
		DisableCookies: s.disableCookies,
	}
	cred := s.m.credentials.ForHost(u.Hostname())
	if s.cred != nil {
		c := *s.cred
		cred = &c
	}
	if cred != nil && header.Get("Authorization") == "" {
		if s.preemptive {
			token := base64.StdEncoding.EncodeToString([]byte(cred.Username + ":" + cred.Password))
			header.Set("Authorization", "Basic "+token)
		} else {
			req.Credential = cred
		}
	}
	return req
}

// Cancel aborts a running session. No callback is delivered afterwards,
// except one that was already executing. Cancel is a no-op in any other
// state.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return
	}
	s.leaveRunning(StateCancelled, nil)
	s.cancel(context.Canceled)
	s.m.logger.Debug("Session cancelled", zap.String("tag", s.tag))
}

// leaveRunning is the only transition out of Running. Called with s.mu held.
func (s *Session) leaveRunning(to State, err error) {
	s.state = to
	s.err = err
	if to != StateCompleted {
		s.buf = bytes.Buffer{}
	}
	s.m.indicator.Decrease()
	s.m.unregister(s)
	close(s.done)

	outcome := to.String()
	metrics.SessionFinished(s.kind.String(), outcome, time.Since(s.started).Seconds(), s.received)
	if to == StateFailed {
		metrics.RecordError(KindOf(err).String())
	}
}

// run is the session worker. It owns the transport call and delivers every
// callback of a started session.
func (s *Session) run(ctx context.Context, req *transport.Request, expiring <-chan struct{}) {
	defer s.cancel(nil)
	if expiring != nil {
		go func() {
			select {
			case <-expiring:
				s.cancel(errExpired)
			case <-ctx.Done():
			}
		}()
	}

	if !s.running() {
		return
	}
	if err := s.openTarget(); err != nil {
		s.fail(newError(KindFileSystem, "create", s.url, err))
		return
	}

	_, err := s.m.transport.Do(ctx, req, sessionSink{s})
	if err != nil {
		s.closeTarget()
		var de *Error
		switch {
		case errors.Is(context.Cause(ctx), errExpired):
			s.fail(newError(KindBackgroundExpired, "read", s.url, err))
		case errors.As(err, &de):
			s.fail(de)
		default:
			s.fail(newError(KindTransport, "read", s.url, err))
		}
		return
	}

	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		s.closeTarget()
		return
	}
	body := s.buf.Bytes()
	s.mu.Unlock()

	c, ferr := s.finishTarget(body)
	if ferr != nil {
		s.fail(ferr)
		return
	}

	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.data, s.text, s.value = c.data, c.text, c.value
	s.leaveRunning(StateCompleted, nil)
	deliver := s.completionCallback(c)
	s.mu.Unlock()

	s.m.logger.Debug("Session completed", zap.String("tag", s.tag), zap.Int64("received", s.received))
	deliver()
}

func (s *Session) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateRunning
}

// fail moves a running session to Failed and delivers err.
func (s *Session) fail(err *Error) {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.leaveRunning(StateFailed, err)
	cb := s.onError
	s.mu.Unlock()

	s.m.logger.Debug("Session failed", zap.String("tag", s.tag), zap.Error(err))
	if cb != nil {
		cb(s, err)
	}
}

// sessionSink adapts a Session to transport.Sink.
type sessionSink struct {
	s *Session
}

func (k sessionSink) Response(resp *transport.Response) {
	s := k.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resp = resp
	s.expected = resp.ContentLength
}

func (k sessionSink) Data(chunk []byte) error {
	s := k.s
	if !s.running() {
		return errStopped
	}
	if s.kind == targetFile {
		if err := s.writeFile(chunk); err != nil {
			return newError(KindFileSystem, "write", s.url, err)
		}
	}

	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return errStopped
	}
	if s.kind != targetFile {
		s.buf.Write(chunk)
	}
	s.received += int64(len(chunk))
	p := newProgress(s.received, s.expected)
	cb := s.onProgress
	s.mu.Unlock()

	metrics.RecordReceived(s.kind.String(), len(chunk))
	if cb != nil {
		cb(s, p)
	}
	return nil
}

func (k sessionSink) UploadProgress(sent, total int64) {
	s := k.s
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	cb := s.onUploadProgress
	s.mu.Unlock()

	if cb != nil {
		cb(s, newProgress(sent, total))
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// URL returns the URL passed to Start.
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Response returns the response metadata, or nil before headers arrive.
func (s *Session) Response() *transport.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resp
}

// Progress returns the current download progress.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newProgress(s.received, s.expected)
}

// Err returns the failure of a Failed session.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Data returns the response body of a memory or JSON session. It is nil for
// file sessions and after a decode failure.
func (s *Session) Data() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data != nil {
		return s.data
	}
	if s.state == StateRunning && s.kind != targetFile {
		return bytes.Clone(s.buf.Bytes())
	}
	return nil
}

// Text returns the decoded text of a completed memory session.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Value returns the decoded value of a completed JSON session.
func (s *Session) Value() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// JSONPath queries the body of a completed JSON or memory session with a
// gjson path such as "items.0.name".
func (s *Session) JSONPath(path string) gjson.Result {
	return gjson.GetBytes(s.Data(), path)
}

// Done is closed when the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Result returns the outcome once the session is terminal.
func (s *Session) Result() (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Terminal() {
		return nil, false
	}
	return &Result{
		State:    s.state,
		Response: s.resp,
		Data:     s.data,
		Text:     s.text,
		Value:    s.value,
		Err:      s.err,
	}, true
}

// Wait blocks until the session is terminal or ctx is done. The returned
// error is the session failure, ErrCancelled, or ctx's error.
func (s *Session) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-s.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	r, _ := s.Result()
	switch r.State {
	case StateFailed:
		return r, r.Err
	case StateCancelled:
		return r, ErrCancelled
	}
	return r, nil
}
