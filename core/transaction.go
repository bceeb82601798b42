package core

// transaction.go defines the Transaction type, its canonical byte encoding
// for signing and id derivation, and JSON (de)serialization.

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"
)

// MaxParents is the maximum number of recent same-sender transaction ids a
// new transaction may reference.
const MaxParents = 5

// TxType tags a transaction's kind. The current core only originates
// Payment transactions; Alert and Stake are reserved for future use.
type TxType int

const (
	TxPayment TxType = iota
	TxAlert
	TxStake
)

func (t TxType) String() string {
	switch t {
	case TxPayment:
		return "payment"
	case TxAlert:
		return "alert"
	case TxStake:
		return "stake"
	default:
		return "unknown"
	}
}

// Transaction is the core payment record. Id, Signature are derived/attached
// after construction; every other field except TxType and IsChaff
// participates in the canonical byte encoding used for both signing and id
// derivation.
type Transaction struct {
	Id        TxId      `json:"id"`
	TxType    TxType    `json:"tx_type"`
	From      PublicKey `json:"from"`
	To        PublicKey `json:"to"`
	Amount    uint64    `json:"amount"`
	Nonce     uint64    `json:"nonce"`
	Anchor    Anchor    `json:"anchor"`
	Parents   []TxId    `json:"parents"`
	Timestamp uint64    `json:"timestamp"`
	Signature []byte    `json:"signature"`
	IsChaff   bool      `json:"is_chaff"`
	Fee       uint64    `json:"fee"`
}

// CanonicalBytes returns the fixed-order little-endian byte encoding used
// both for signing and for id derivation:
//
//	from ‖ to ‖ amount ‖ nonce ‖ anchor ‖ (parents concatenated) ‖ timestamp ‖ fee
//
// Signature, Id, TxType and IsChaff are NOT part of this encoding.
func (t *Transaction) CanonicalBytes() []byte {
	buf := make([]byte, 0, len(t.From)+len(t.To)+8+8+64+len(t.Parents)*64+8+8)
	buf = append(buf, t.From...)
	buf = append(buf, t.To...)
	buf = appendU64(buf, t.Amount)
	buf = appendU64(buf, t.Nonce)
	buf = append(buf, t.Anchor[:]...)
	for _, p := range t.Parents {
		buf = append(buf, p[:]...)
	}
	buf = appendU64(buf, t.Timestamp)
	buf = appendU64(buf, t.Fee)
	return buf
}

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// ComputeId derives and returns the transaction's id as digest(canonical
// bytes), without mutating t.
func (t *Transaction) ComputeId() TxId {
	return Sum(t.CanonicalBytes())
}

// NewTransaction constructs an unsigned Payment transaction. parents is
// truncated to MaxParents entries (keeping the first MaxParents given).
func NewTransaction(from, to PublicKey, amount uint64, nonce, fee uint64, anchor Anchor, parents []TxId, isChaff bool) *Transaction {
	if len(parents) > MaxParents {
		parents = parents[:MaxParents]
	}
	p := make([]TxId, len(parents))
	copy(p, parents)
	return &Transaction{
		TxType:    TxPayment,
		From:      from,
		To:        to,
		Amount:    amount,
		Nonce:     nonce,
		Anchor:    anchor,
		Parents:   p,
		Timestamp: uint64(time.Now().UnixMilli()),
		IsChaff:   isChaff,
		Fee:       fee,
	}
}

// Sign signs t's canonical bytes with kp and sets Signature and Id. The
// caller must have already populated From with kp.Public.
func (t *Transaction) Sign(kp *Keypair) error {
	sig, err := kp.Sign(t.CanonicalBytes())
	if err != nil {
		return err
	}
	t.Signature = sig
	t.Id = t.ComputeId()
	return nil
}

// VerifySignature checks t.Signature against t.From and t's canonical bytes.
func (t *Transaction) VerifySignature() (bool, error) {
	return Verify(t.From, t.CanonicalBytes(), t.Signature)
}

// MarshalTransaction serializes t to human-readable JSON.
func MarshalTransaction(t *Transaction) ([]byte, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal transaction: %v", ErrIO, err)
	}
	return b, nil
}

// UnmarshalTransaction decodes JSON produced by MarshalTransaction.
func UnmarshalTransaction(b []byte) (*Transaction, error) {
	var t Transaction
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("%w: unmarshal transaction: %v", ErrIO, err)
	}
	return &t, nil
}
