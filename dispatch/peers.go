package dispatch

import "sync"

// PeerRegistry maps agent identities to delegation targets. It replaces
// hard-coded self-target rewriting: a directive targeting this agent's own
// identity resolves through the registry and is rejected when no substitute
// peer is registered.
type PeerRegistry struct {
	mu    sync.RWMutex
	peers map[string]string
}

// NewPeerRegistry creates a registry preloaded with the given identity to
// base-URL mapping. The map may be nil.
func NewPeerRegistry(peers map[string]string) *PeerRegistry {
	r := &PeerRegistry{peers: make(map[string]string, len(peers))}
	for id, url := range peers {
		r.peers[id] = url
	}
	return r
}

// Register adds or replaces the delegation target for an identity.
func (r *PeerRegistry) Register(identity, baseURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[identity] = baseURL
}

// Resolve returns the registered delegation target for an identity.
func (r *PeerRegistry) Resolve(identity string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	url, ok := r.peers[identity]
	return url, ok
}
