package core

// echolocator.go holds the advisory confidence/finality engine driven
// purely by the reference ("parents") structure, independent of the
// authoritative graph. Reachability walks use an explicit visited set
// (never naive recursion) so they terminate on cyclic graphs.

import "sync"

// EchoLocator maintains an advisory confidence score per transaction and the
// reference graph used to derive it.
//
// AddReference recomputes confidence from len(references[to]), which counts
// the children stored under `to` — i.e. how many further edges `to` itself
// points at — not how many other transactions reference `to`. That may look
// backwards relative to the name "confidence", but the graph's
// GetConfidence (graph.go) is the authoritative referrer-counting
// definition; this value is advisory only. Left as-is intentionally.
type EchoLocator struct {
	mu         sync.RWMutex
	confidence map[TxId]float64
	references map[TxId]map[TxId]struct{}
}

// NewEchoLocator returns an empty locator.
func NewEchoLocator() *EchoLocator {
	return &EchoLocator{
		confidence: make(map[TxId]float64),
		references: make(map[TxId]map[TxId]struct{}),
	}
}

// AddReference records that `from` references `to` and recomputes `to`'s
// advisory confidence.
func (e *EchoLocator) AddReference(from, to TxId) {
	e.mu.Lock()
	defer e.mu.Unlock()

	set, ok := e.references[from]
	if !ok {
		set = make(map[TxId]struct{})
		e.references[from] = set
	}
	set[to] = struct{}{}

	toSet := e.references[to]
	e.confidence[to] = confidenceFromCount(len(toSet))
}

func confidenceFromCount(n int) float64 {
	c := 0.5 + 0.1*float64(n)
	if c > 1.0 {
		return 1.0
	}
	return c
}

// Confidence returns the advisory confidence recorded for tx, or 0 if tx is
// unknown to the locator.
func (e *EchoLocator) Confidence(tx TxId) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.confidence[tx]
}

// IsFinal reports whether tx's advisory confidence has reached threshold.
func (e *EchoLocator) IsFinal(tx TxId, threshold float64) bool {
	return e.Confidence(tx) >= threshold
}

// AtmosphericPressure returns depth/100, where depth is the count of
// distinct nodes reachable via DFS from tx through the reference graph
// (including tx itself). The DFS is iterative with an explicit visited set
// so it terminates on cyclic graphs.
func (e *EchoLocator) AtmosphericPressure(tx TxId) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	visited := map[TxId]bool{tx: true}
	stack := []TxId{tx}
	for len(stack) > 0 {
		n := len(stack) - 1
		cur := stack[n]
		stack = stack[:n]
		for next := range e.references[cur] {
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return float64(len(visited)) / 100.0
}
