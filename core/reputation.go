package core

// reputation.go implements the shared peer reputation map: a single
// RWMutex around a plain map. Reputation writes all funnel through the
// single event-loop goroutine, so contention stays low and a sharding
// scheme would have nothing to shard over.

import "sync"

// ReputationMap is a concurrent public key -> reputation store (keyed by the
// raw public key bytes, not by the derived peer_id). Every
// mutation clamps to [ReputationMin, ReputationMax]; a peer not yet present
// reads as DefaultReputation without being recorded.
type ReputationMap struct {
	mu    sync.RWMutex
	byKey map[string]float64
}

// NewReputationMap returns an empty reputation map.
func NewReputationMap() *ReputationMap {
	return &ReputationMap{byKey: make(map[string]float64)}
}

func keyFor(peer PublicKey) string { return string(peer) }

// Get returns peer's reputation, defaulting to DefaultReputation if peer has
// never been mentioned.
func (r *ReputationMap) Get(peer PublicKey) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.byKey[keyFor(peer)]; ok {
		return v
	}
	return DefaultReputation
}

// Set stores an explicit, clamped reputation value for peer, creating the
// entry if necessary.
func (r *ReputationMap) Set(peer PublicKey, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[keyFor(peer)] = ClampReputation(value)
}

// Adjust applies delta to peer's current (or default) reputation and
// clamps the result.
func (r *ReputationMap) Adjust(peer PublicKey, delta float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byKey[keyFor(peer)]
	if !ok {
		cur = DefaultReputation
	}
	next := ClampReputation(cur + delta)
	r.byKey[keyFor(peer)] = next
	return next
}

// Punish sets peer's reputation to ReputationPunishMin, the fixed penalty
// applied on a detected collision.
func (r *ReputationMap) Punish(peer PublicKey) {
	r.Set(peer, ReputationPunishMin)
}

// Snapshot returns a copy of the map keyed by the peer's public key, hex
// encoded, for the admin `stats` command.
func (r *ReputationMap) Snapshot() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]float64, len(r.byKey))
	for k, v := range r.byKey {
		out[PublicKey(k).Hex()] = v
	}
	return out
}

// Len returns the number of distinct peers recorded.
func (r *ReputationMap) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}
