package download

import (
	"net/http"
	"strings"
	"sync"
)

// HeaderStore holds headers added to every request started by sessions that
// share it. Headers can apply to all hosts or to a single host; a host
// specific value replaces an all-host value with the same name.
type HeaderStore struct {
	mu     sync.RWMutex
	global http.Header
	hosts  map[string]http.Header
}

// NewHeaderStore returns an empty store.
func NewHeaderStore() *HeaderStore {
	return &HeaderStore{
		global: http.Header{},
		hosts:  map[string]http.Header{},
	}
}

// Set adds or replaces a header for all hosts.
func (h *HeaderStore) Set(key, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.global.Set(key, value)
}

// Remove deletes an all-host header.
func (h *HeaderStore) Remove(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.global.Del(key)
}

// SetForHost adds or replaces a header sent only to host.
func (h *HeaderStore) SetForHost(host, key, value string) {
	host = strings.ToLower(host)
	h.mu.Lock()
	defer h.mu.Unlock()
	hdr, ok := h.hosts[host]
	if !ok {
		hdr = http.Header{}
		h.hosts[host] = hdr
	}
	hdr.Set(key, value)
}

// RemoveForHost deletes a host specific header.
func (h *HeaderStore) RemoveForHost(host, key string) {
	host = strings.ToLower(host)
	h.mu.Lock()
	defer h.mu.Unlock()
	hdr, ok := h.hosts[host]
	if !ok {
		return
	}
	hdr.Del(key)
	if len(hdr) == 0 {
		delete(h.hosts, host)
	}
}

// Snapshot returns a copy of the headers that apply to host. The copy is
// not affected by later mutations.
func (h *HeaderStore) Snapshot(host string) http.Header {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := h.global.Clone()
	for key, values := range h.hosts[strings.ToLower(host)] {
		out[key] = append([]string(nil), values...)
	}
	return out
}
