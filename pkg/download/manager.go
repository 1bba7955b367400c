// Package download runs asynchronous HTTP downloads into memory, through a
// JSON decoder or into a file.
//
// A Manager holds the objects shared by its sessions: the header store, the
// activity indicator, the transport, the file system and the JSON decoder.
// Sessions are created from a Manager, configured, and started once:
//
//	m, err := download.NewManager()
//	s := m.NewMemorySession(
//		func(s *download.Session, data []byte, text string) { ... },
//		func(s *download.Session, err error) { ... },
//	)
//	s.SetHeader("Accept", "text/plain")
//	if err := s.Start("https://example.com/hello"); err != nil { ... }
//
// Every session reports at most one terminal callback. A cancelled session
// reports none. HTTP status codes are not interpreted; inspect Response().
package download

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/zulfikawr/courier/internal/logging"
	"github.com/zulfikawr/courier/pkg/transport"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout is the idle timeout applied to new sessions.
	DefaultTimeout = 60 * time.Second
	// DefaultGroup is the registry group of new sessions.
	DefaultGroup = "requests"
)

// JSONDecoder decodes a complete response body.
type JSONDecoder interface {
	Decode(data []byte) (any, error)
}

// JSONDecoderFunc adapts a function to JSONDecoder.
type JSONDecoderFunc func(data []byte) (any, error)

// Decode implements JSONDecoder.
func (f JSONDecoderFunc) Decode(data []byte) (any, error) {
	return f(data)
}

type stdJSONDecoder struct{}

func (stdJSONDecoder) Decode(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Defaults are applied to every session created by a Manager.
type Defaults struct {
	Timeout              time.Duration
	DisableCookies       bool
	ContinueInBackground bool
}

// Manager creates sessions and tracks the running ones.
type Manager struct {
	headers     *HeaderStore
	credentials *CredentialStore
	indicator   *ActivityIndicator
	transport   transport.Transport
	fs          afero.Fs
	decoder     JSONDecoder
	expiry      ExpiryNotifier
	logger      *zap.Logger
	defaults    Defaults

	mu      sync.Mutex
	running map[string]*Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithTransport sets the transport. The default is an HTTP transport with
// default options.
func WithTransport(t transport.Transport) Option {
	return func(m *Manager) {
		m.transport = t
	}
}

// WithFs sets the file system used by file sessions. The default is the OS
// file system.
func WithFs(fs afero.Fs) Option {
	return func(m *Manager) {
		m.fs = fs
	}
}

// WithDecoder sets the JSON decoder. The default uses encoding/json.
func WithDecoder(d JSONDecoder) Option {
	return func(m *Manager) {
		m.decoder = d
	}
}

// WithExpiryNotifier sets the background expiry source observed by sessions
// that do not continue in the background.
func WithExpiryNotifier(n ExpiryNotifier) Option {
	return func(m *Manager) {
		m.expiry = n
	}
}

// WithHeaderStore shares an existing header store.
func WithHeaderStore(h *HeaderStore) Option {
	return func(m *Manager) {
		m.headers = h
	}
}

// WithCredentialStore shares an existing credential store.
func WithCredentialStore(c *CredentialStore) Option {
	return func(m *Manager) {
		m.credentials = c
	}
}

// WithIndicator shares an existing activity indicator.
func WithIndicator(a *ActivityIndicator) Option {
	return func(m *Manager) {
		m.indicator = a
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithDefaults sets the settings new sessions start with.
func WithDefaults(d Defaults) Option {
	return func(m *Manager) {
		m.defaults = d
	}
}

// NewManager creates a Manager.
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		defaults: Defaults{
			Timeout:              DefaultTimeout,
			ContinueInBackground: true,
		},
		running: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = logging.GetLogger()
	}
	if m.headers == nil {
		m.headers = NewHeaderStore()
	}
	if m.credentials == nil {
		m.credentials = NewCredentialStore()
	}
	if m.indicator == nil {
		m.indicator = NewActivityIndicator(m.logger)
	}
	if m.fs == nil {
		m.fs = afero.NewOsFs()
	}
	if m.decoder == nil {
		m.decoder = stdJSONDecoder{}
	}
	if m.defaults.Timeout <= 0 {
		m.defaults.Timeout = DefaultTimeout
	}
	if m.transport == nil {
		t, err := transport.NewHTTP(transport.Options{Logger: m.logger})
		if err != nil {
			return nil, fmt.Errorf("failed to create transport: %w", err)
		}
		m.transport = t
	}
	return m, nil
}

// Headers returns the shared header store.
func (m *Manager) Headers() *HeaderStore {
	return m.headers
}

// Credentials returns the shared credential store.
func (m *Manager) Credentials() *CredentialStore {
	return m.credentials
}

// Indicator returns the shared activity indicator.
func (m *Manager) Indicator() *ActivityIndicator {
	return m.indicator
}

// NewMemorySession creates a session that buffers the response. onSuccess
// receives the body and its text decoding.
func (m *Manager) NewMemorySession(onSuccess func(s *Session, data []byte, text string), onError func(s *Session, err error)) *Session {
	s := m.newSession(targetMemory, onError)
	s.onMemory = onSuccess
	return s
}

// NewJSONSession creates a session that decodes the response as JSON.
func (m *Manager) NewJSONSession(onSuccess func(s *Session, v any), onError func(s *Session, err error)) *Session {
	s := m.newSession(targetJSON, onError)
	s.onJSON = onSuccess
	return s
}

// NewFileSession creates a session that writes the response to path. The
// file is created or truncated when the transfer starts.
func (m *Manager) NewFileSession(path string, onSuccess func(s *Session), onError func(s *Session, err error)) *Session {
	s := m.newSession(targetFile, onError)
	s.path = path
	s.onFile = onSuccess
	return s
}

// Lookup returns the running session with tag.
func (m *Manager) Lookup(tag string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.running[tag]
	return s, ok
}

// Cancel cancels the running session with tag and reports whether one was
// found.
func (m *Manager) Cancel(tag string) bool {
	s, ok := m.Lookup(tag)
	if ok {
		s.Cancel()
	}
	return ok
}

// CancelGroup cancels every running session in group and returns how many
// were found.
func (m *Manager) CancelGroup(group string) int {
	sessions := m.collect(func(s *Session) bool { return s.group == group })
	for _, s := range sessions {
		s.Cancel()
	}
	return len(sessions)
}

// CancelAll cancels every running session.
func (m *Manager) CancelAll() int {
	sessions := m.collect(func(*Session) bool { return true })
	for _, s := range sessions {
		s.Cancel()
	}
	return len(sessions)
}

// Running returns the tags of running sessions in sorted order.
func (m *Manager) Running() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	tags := make([]string, 0, len(m.running))
	for tag := range m.running {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (m *Manager) collect(match func(*Session) bool) []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Session
	for _, s := range m.running {
		if match(s) {
			out = append(out, s)
		}
	}
	return out
}

// register and unregister are called with s.mu held.
func (m *Manager) register(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.running[s.tag]; ok && prev != s {
		m.logger.Warn("Session tag reused while running", zap.String("tag", s.tag))
	}
	m.running[s.tag] = s
}

func (m *Manager) unregister(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running[s.tag] == s {
		delete(m.running, s.tag)
	}
}
