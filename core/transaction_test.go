package core

import "testing"

func signedTx(t *testing.T, kp *Keypair, to PublicKey, amount uint64, anchor Anchor, parents []TxId) *Transaction {
	t.Helper()
	tx := NewTransaction(kp.Public, to, amount, 1, 100, anchor, parents, false)
	if err := tx.Sign(kp); err != nil {
		t.Fatalf("sign transaction: %v", err)
	}
	return tx
}

func TestTransactionIdIsDigestOfCanonicalBytes(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	tx := signedTx(t, kp, PublicKey{2}, 100, Digest{}, nil)

	want := Sum(tx.CanonicalBytes())
	if tx.Id != want {
		t.Fatalf("tx.Id = %x, want digest(canonical) = %x", tx.Id, want)
	}
}

func TestTransactionTamperFlipsVerification(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	mutators := map[string]func(*Transaction){
		"to":        func(tx *Transaction) { tx.To = PublicKey{9, 9, 9} },
		"amount":    func(tx *Transaction) { tx.Amount++ },
		"nonce":     func(tx *Transaction) { tx.Nonce++ },
		"anchor":    func(tx *Transaction) { tx.Anchor[0] ^= 0xFF },
		"parents":   func(tx *Transaction) { tx.Parents = append(tx.Parents, Digest{1}) },
		"timestamp": func(tx *Transaction) { tx.Timestamp++ },
		"fee":       func(tx *Transaction) { tx.Fee++ },
	}

	for name, mutate := range mutators {
		tx := signedTx(t, kp, PublicKey{2}, 100, Digest{}, nil)
		mutate(tx)
		ok, err := tx.VerifySignature()
		if err != nil {
			t.Fatalf("[%s] verify: %v", name, err)
		}
		if ok {
			t.Fatalf("[%s] expected tampering to flip verification to false", name)
		}
	}
}

func TestTransactionSignatureExcludesIdAndSignature(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	tx := signedTx(t, kp, PublicKey{2}, 100, Digest{}, nil)
	before := tx.CanonicalBytes()

	tx.Signature[0] ^= 0xFF
	tx.Id[0] ^= 0xFF

	after := tx.CanonicalBytes()
	if string(before) != string(after) {
		t.Fatalf("canonical bytes must not depend on signature or id")
	}
}
