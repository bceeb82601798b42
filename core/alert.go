package core

// alert.go holds the Alert type broadcast on a detected double-spend
// collision: a small identified record with a deterministic id and JSON
// persistence. Alerts carry no signature.

import (
	"encoding/json"
	"fmt"
)

// Alert is a notice broadcast when two transactions collide on the
// same (sender, anchor) pair with different recipients.
type Alert struct {
	Id               AlertId   `json:"id"`
	ConflictingTx1   TxId      `json:"conflicting_tx1"`
	ConflictingTx2   TxId      `json:"conflicting_tx2"`
	Anchor           Anchor    `json:"anchor"`
	DiscoveredBy     PublicKey `json:"discovered_by"`
	Timestamp        uint64    `json:"timestamp"`
	PropagationCount uint32    `json:"propagation_count"`
}

// NewAlert constructs an Alert for the given conflicting ids and anchor. Id
// is derived as digest(anchor).
func NewAlert(tx1, tx2 TxId, anchor Anchor, discoveredBy PublicKey, timestampMs uint64) *Alert {
	return &Alert{
		Id:             Sum(anchor[:]),
		ConflictingTx1: tx1,
		ConflictingTx2: tx2,
		Anchor:         anchor,
		DiscoveredBy:   discoveredBy,
		Timestamp:      timestampMs,
	}
}

// MarshalAlert serializes a to human-readable JSON.
func MarshalAlert(a *Alert) ([]byte, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal alert: %v", ErrIO, err)
	}
	return b, nil
}

// UnmarshalAlert decodes JSON produced by MarshalAlert.
func UnmarshalAlert(b []byte) (*Alert, error) {
	var a Alert
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("%w: unmarshal alert: %v", ErrIO, err)
	}
	return &a, nil
}
