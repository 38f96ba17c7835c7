package server

import "sync"

// registry tracks the peers with a transfer in progress, so a retransmitted
// request does not spawn a second transfer. First request wins; the owning
// goroutine removes its peer when it finishes, whatever the outcome.
type registry struct {
	mu    sync.Mutex
	peers map[string]struct{}
}

func newRegistry() *registry {
	return &registry{peers: make(map[string]struct{})}
}

// tryAdd inserts addr and reports whether it was absent.
func (r *registry) tryAdd(addr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.peers[addr]; ok {
		return false
	}
	r.peers[addr] = struct{}{}
	return true
}

func (r *registry) remove(addr string) {
	r.mu.Lock()
	delete(r.peers, addr)
	r.mu.Unlock()
}

func (r *registry) active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}
