package core

// collision.go holds a per-anchor set of seen transaction ids with
// first-seen timestamps. A single sync.Mutex around a plain map is
// sufficient here since the graph's write lock already serializes every
// caller (see graph.go).
//
// The graph embeds exactly one CollisionDetector and consults it in
// AddTransaction's collision check. The graph also keeps its own by-anchor
// index, which FindCollisions reads; both are filled on every insert.

import (
	"sync"
	"time"
)

type anchorEntry struct {
	ids       []TxId
	firstSeen time.Time
}

// CollisionDetector tracks, per anchor, every transaction id seen under it
// and when the first one arrived.
type CollisionDetector struct {
	mu      sync.Mutex
	anchors map[Anchor]*anchorEntry
}

// NewCollisionDetector returns an empty detector.
func NewCollisionDetector() *CollisionDetector {
	return &CollisionDetector{anchors: make(map[Anchor]*anchorEntry)}
}

// Check records id under anchor and returns the ids already on file for
// anchor *before* this call (nil on first sighting), plus whether this was
// the first sighting.
func (c *CollisionDetector) Check(id TxId, anchor Anchor) (existing []TxId, firstSighting bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.anchors[anchor]
	if !ok {
		c.anchors[anchor] = &anchorEntry{ids: []TxId{id}, firstSeen: time.Now()}
		return nil, true
	}
	existing = append(existing, e.ids...)
	e.ids = append(e.ids, id)
	return existing, false
}

// IdsForAnchor returns every transaction id recorded under anchor,
// including the first (non-colliding) one.
func (c *CollisionDetector) IdsForAnchor(anchor Anchor) []TxId {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.anchors[anchor]
	if !ok {
		return nil
	}
	out := make([]TxId, len(e.ids))
	copy(out, e.ids)
	return out
}

// TimeSinceFirstSeen reports how long ago anchor was first observed. The
// second return value is false if the anchor has never been seen.
func (c *CollisionDetector) TimeSinceFirstSeen(anchor Anchor) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.anchors[anchor]
	if !ok {
		return 0, false
	}
	return time.Since(e.firstSeen), true
}
