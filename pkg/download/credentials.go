package download

import (
	"strings"
	"sync"

	"github.com/zulfikawr/courier/pkg/transport"
)

// CredentialStore holds basic-auth credentials shared by the sessions of a
// Manager. A session uses the store only when it has no credential of its
// own. A host specific credential wins over the all-host one.
type CredentialStore struct {
	mu     sync.RWMutex
	global *transport.Credential
	hosts  map[string]transport.Credential
}

// NewCredentialStore returns an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{hosts: map[string]transport.Credential{}}
}

// Set stores a credential for all hosts.
func (c *CredentialStore) Set(username, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.global = &transport.Credential{Username: username, Password: password}
}

// SetForHost stores a credential used only for host.
func (c *CredentialStore) SetForHost(host, username, password string) {
	host = strings.ToLower(host)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hosts[host] = transport.Credential{Username: username, Password: password}
}

// RemoveForHost deletes the credential of host.
func (c *CredentialStore) RemoveForHost(host string) {
	host = strings.ToLower(host)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.hosts, host)
}

// Clear deletes every stored credential.
func (c *CredentialStore) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.global = nil
	c.hosts = map[string]transport.Credential{}
}

// ForHost returns a copy of the credential that applies to host, or nil.
func (c *CredentialStore) ForHost(host string) *transport.Credential {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if cred, ok := c.hosts[strings.ToLower(host)]; ok {
		return &cred
	}
	if c.global == nil {
		return nil
	}
	cred := *c.global
	return &cred
}
