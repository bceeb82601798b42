package core

// graph.go holds the in-memory store of transactions and alerts, its
// by-sender/by-anchor indices, the collision predicate, and lossless
// snapshot round-tripping to JSON. An RWMutex guards a handful of maps.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// LocalGraph is the authoritative in-memory transaction/alert store.
type LocalGraph struct {
	mu           sync.RWMutex
	transactions map[TxId]*Transaction
	alerts       map[AlertId]*Alert
	bySender     map[string]map[TxId]struct{}
	byAnchor     map[Anchor]map[TxId]struct{}
	detector     *CollisionDetector
}

// NewLocalGraph returns an empty graph.
func NewLocalGraph() *LocalGraph {
	return &LocalGraph{
		transactions: make(map[TxId]*Transaction),
		alerts:       make(map[AlertId]*Alert),
		bySender:     make(map[string]map[TxId]struct{}),
		byAnchor:     make(map[Anchor]map[TxId]struct{}),
		detector:     NewCollisionDetector(),
	}
}

// hasCollision reports whether a new tx collides with an existing t'
// sharing its anchor, the same sender, but a different recipient and a
// different id.
func hasCollision(existing []*Transaction, t *Transaction) bool {
	for _, other := range existing {
		if string(other.From) == string(t.From) &&
			string(other.To) != string(t.To) &&
			other.Id != t.Id {
			return true
		}
	}
	return false
}

// AddTransaction inserts t into the graph and both indices. It is
// idempotent under an identical tx.Id (a repeat insert of the same id is a
// no-op success, not a collision). Returns ErrCollisionDetected if t
// double-spends an anchor already on file from the same sender.
func (g *LocalGraph) AddTransaction(t *Transaction) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.transactions[t.Id]; exists {
		return nil
	}

	existingIds := g.detector.IdsForAnchor(t.Anchor)
	existing := make([]*Transaction, 0, len(existingIds))
	for _, id := range existingIds {
		if tx, ok := g.transactions[id]; ok {
			existing = append(existing, tx)
		}
	}
	if hasCollision(existing, t) {
		return ErrCollisionDetected
	}

	g.detector.Check(t.Id, t.Anchor)
	g.transactions[t.Id] = t

	senderKey := string(t.From)
	if g.bySender[senderKey] == nil {
		g.bySender[senderKey] = make(map[TxId]struct{})
	}
	g.bySender[senderKey][t.Id] = struct{}{}

	if g.byAnchor[t.Anchor] == nil {
		g.byAnchor[t.Anchor] = make(map[TxId]struct{})
	}
	g.byAnchor[t.Anchor][t.Id] = struct{}{}

	return nil
}

// AddAlert records a into the graph's alert store. Alerts are never
// deleted or mutated after insertion.
func (g *LocalGraph) AddAlert(a *Alert) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.alerts[a.Id] = a
}

// FindCollisions returns every transaction recorded under anchor, including
// the first (non-colliding) one.
func (g *LocalGraph) FindCollisions(anchor Anchor) []*Transaction {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := g.byAnchor[anchor]
	out := make([]*Transaction, 0, len(ids))
	for id := range ids {
		if tx, ok := g.transactions[id]; ok {
			out = append(out, tx)
		}
	}
	return out
}

// GetConfidence is the graph's authoritative confidence definition:
// min(1.0, 0.5 + 0.1 * (number of transactions that list tx among their
// parents)). This is distinct from, and authoritative over, the advisory
// counter in echolocator.go.
func (g *LocalGraph) GetConfidence(tx TxId) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	count := 0
	for _, t := range g.transactions {
		for _, p := range t.Parents {
			if p == tx {
				count++
				break
			}
		}
	}
	c := 0.5 + 0.1*float64(count)
	if c > 1.0 {
		return 1.0
	}
	return c
}

// RecentTxIdsForSender returns up to limit transaction ids by sender;
// ordering is unspecified.
func (g *LocalGraph) RecentTxIdsForSender(sender PublicKey, limit int) []TxId {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := g.bySender[string(sender)]
	out := make([]TxId, 0, limit)
	for id := range ids {
		if len(out) >= limit {
			break
		}
		out = append(out, id)
	}
	return out
}

// RecentTransactions returns up to limit transactions sorted by timestamp
// descending.
func (g *LocalGraph) RecentTransactions(limit int) []*Transaction {
	g.mu.RLock()
	defer g.mu.RUnlock()
	all := make([]*Transaction, 0, len(g.transactions))
	for _, t := range g.transactions {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp > all[j].Timestamp })
	if limit >= 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

// TransactionCount and AlertCount report store sizes for the admin stats
// command.
func (g *LocalGraph) TransactionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.transactions)
}

func (g *LocalGraph) AlertCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.alerts)
}

//---------------------------------------------------------------------
// Snapshot round-trip
//---------------------------------------------------------------------

// GraphSnapshot is the lossless on-disk representation of a LocalGraph:
// transactions and alerts only — every index is rebuilt on load.
type GraphSnapshot struct {
	Transactions []*Transaction `json:"transactions"`
	Alerts       []*Alert       `json:"alerts"`
}

// ToSnapshot returns a GraphSnapshot capturing the graph's current
// contents. The returned slices are fresh, but they hold the same
// *Transaction and *Alert pointers the graph stores.
func (g *LocalGraph) ToSnapshot() GraphSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	snap := GraphSnapshot{
		Transactions: make([]*Transaction, 0, len(g.transactions)),
		Alerts:       make([]*Alert, 0, len(g.alerts)),
	}
	for _, t := range g.transactions {
		snap.Transactions = append(snap.Transactions, t)
	}
	for _, a := range g.alerts {
		snap.Alerts = append(snap.Alerts, a)
	}
	return snap
}

// FromSnapshot rebuilds a LocalGraph (including both indices and the
// collision detector) from a previously captured snapshot.
func FromSnapshot(snap GraphSnapshot) *LocalGraph {
	g := NewLocalGraph()
	for _, t := range snap.Transactions {
		// Bypass AddTransaction's collision check: a persisted snapshot is
		// trusted to already be collision-free (it was built by
		// AddTransaction originally).
		g.transactions[t.Id] = t
		g.detector.Check(t.Id, t.Anchor)
		senderKey := string(t.From)
		if g.bySender[senderKey] == nil {
			g.bySender[senderKey] = make(map[TxId]struct{})
		}
		g.bySender[senderKey][t.Id] = struct{}{}
		if g.byAnchor[t.Anchor] == nil {
			g.byAnchor[t.Anchor] = make(map[TxId]struct{})
		}
		g.byAnchor[t.Anchor][t.Id] = struct{}{}
	}
	for _, a := range snap.Alerts {
		g.alerts[a.Id] = a
	}
	return g
}

// SaveToPath writes the graph's snapshot as human-readable JSON to path.
func (g *LocalGraph) SaveToPath(path string) error {
	snap := g.ToSnapshot()
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal graph snapshot: %v", ErrIO, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("%w: mkdir: %v", ErrIO, err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("%w: write graph snapshot: %v", ErrIO, err)
	}
	return nil
}

// LoadFromPath loads a graph snapshot from path. A missing file yields an
// empty graph rather than an error.
func LoadFromPath(path string) (*LocalGraph, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewLocalGraph(), nil
		}
		return nil, fmt.Errorf("%w: read graph snapshot: %v", ErrIO, err)
	}
	var snap GraphSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("%w: unmarshal graph snapshot: %v", ErrIO, err)
	}
	return FromSnapshot(snap), nil
}
