package ingest

import "sync"

// Registry is the in-run dedup set. Keys are scoped per kind; the first
// row to claim a key wins and later rows see fresh=false. A fingerprint
// captures the claiming row's secondary fields so that later rows with
// the same key but different fields can be flagged as divergent.
type Registry struct {
	mu   sync.Mutex
	seen map[string]string
}

func NewRegistry() *Registry {
	return &Registry{seen: make(map[string]string)}
}

// MarkIfNew atomically checks and claims kind/key. It reports whether
// the key was unseen, and for repeat keys whether the fingerprint
// differs from the claiming row's.
func (r *Registry) MarkIfNew(kind Kind, key, fingerprint string) (fresh, divergent bool) {
	k := string(kind) + "\x00" + key

	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.seen[k]
	if !ok {
		r.seen[k] = fingerprint
		return true, false
	}
	return false, prev != fingerprint
}

// Len reports the number of distinct keys claimed across all kinds.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}
