package core

import "testing"

func TestGraphCollisionScenario(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	anchor := Digest{}

	g := NewLocalGraph()

	t1 := NewTransaction(kp.Public, PublicKey{2}, 100, 1, 100, anchor, nil, false)
	if err := t1.Sign(kp); err != nil {
		t.Fatalf("sign t1: %v", err)
	}
	if err := g.AddTransaction(t1); err != nil {
		t.Fatalf("add t1: %v", err)
	}

	t2 := NewTransaction(kp.Public, PublicKey{3}, 100, 2, 100, anchor, nil, false)
	if err := t2.Sign(kp); err != nil {
		t.Fatalf("sign t2: %v", err)
	}
	if err := g.AddTransaction(t2); err == nil {
		t.Fatalf("expected ErrCollisionDetected inserting t2")
	} else if err != ErrCollisionDetected {
		t.Fatalf("expected ErrCollisionDetected, got %v", err)
	}

	conflicts := g.FindCollisions(anchor)
	if len(conflicts) != 1 {
		t.Fatalf("expected only t1 recorded in the graph (t2 was rejected), got %d", len(conflicts))
	}

	alert := NewAlert(t1.Id, t2.Id, anchor, kp.Public, t2.Timestamp)
	if alert.ConflictingTx1 != t1.Id || alert.ConflictingTx2 != t2.Id || alert.Anchor != anchor {
		t.Fatalf("alert does not carry the expected conflicting ids/anchor")
	}
}

func TestGraphAddTransactionIdempotent(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	g := NewLocalGraph()
	tx := NewTransaction(kp.Public, PublicKey{2}, 100, 1, 100, Digest{1}, nil, false)
	if err := tx.Sign(kp); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := g.AddTransaction(tx); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := g.AddTransaction(tx); err != nil {
		t.Fatalf("repeat insert of identical id should be a no-op success, got %v", err)
	}
	if g.TransactionCount() != 1 {
		t.Fatalf("expected exactly one stored transaction, got %d", g.TransactionCount())
	}
}

func TestGraphIndicesConsistency(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	g := NewLocalGraph()

	for i := 0; i < 5; i++ {
		tx := NewTransaction(kp.Public, PublicKey{byte(i + 2)}, 10, uint64(i), 100, Digest{byte(i)}, nil, false)
		if err := tx.Sign(kp); err != nil {
			t.Fatalf("sign tx %d: %v", i, err)
		}
		if err := g.AddTransaction(tx); err != nil {
			t.Fatalf("add tx %d: %v", i, err)
		}
	}

	ids := g.RecentTxIdsForSender(kp.Public, 10)
	if len(ids) != 5 {
		t.Fatalf("expected 5 ids indexed by sender, got %d", len(ids))
	}
}

func TestGraphSnapshotRoundTrip(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	g := NewLocalGraph()
	tx := NewTransaction(kp.Public, PublicKey{2}, 100, 1, 100, Digest{1}, nil, false)
	if err := tx.Sign(kp); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := g.AddTransaction(tx); err != nil {
		t.Fatalf("add: %v", err)
	}

	snap := g.ToSnapshot()
	rebuilt := FromSnapshot(snap)

	if rebuilt.TransactionCount() != 1 {
		t.Fatalf("expected 1 transaction after round-trip, got %d", rebuilt.TransactionCount())
	}
	if got := rebuilt.RecentTxIdsForSender(kp.Public, 5); len(got) != 1 {
		t.Fatalf("expected 1 id for sender after round-trip, got %d", len(got))
	}
}

func TestGraphSaveLoadFromPath(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	g := NewLocalGraph()
	tx := NewTransaction(kp.Public, PublicKey{2}, 100, 1, 100, Digest{1}, nil, false)
	if err := tx.Sign(kp); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := g.AddTransaction(tx); err != nil {
		t.Fatalf("add: %v", err)
	}

	path := t.TempDir() + "/graph.json"
	if err := g.SaveToPath(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.TransactionCount() != 1 {
		t.Fatalf("expected 1 transaction after file round-trip, got %d", loaded.TransactionCount())
	}
}

func TestGraphLoadFromMissingPathYieldsEmptyGraph(t *testing.T) {
	loaded, err := LoadFromPath(t.TempDir() + "/does-not-exist.json")
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if loaded.TransactionCount() != 0 {
		t.Fatalf("expected empty graph, got %d transactions", loaded.TransactionCount())
	}
}

func TestGraphConfidenceBounds(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	g := NewLocalGraph()

	parent := NewTransaction(kp.Public, PublicKey{2}, 100, 1, 100, Digest{1}, nil, false)
	if err := parent.Sign(kp); err != nil {
		t.Fatalf("sign parent: %v", err)
	}
	if err := g.AddTransaction(parent); err != nil {
		t.Fatalf("add parent: %v", err)
	}

	for i := 0; i < 10; i++ {
		child := NewTransaction(kp.Public, PublicKey{byte(i + 3)}, 10, uint64(i+2), 100, Digest{byte(i + 2)}, []TxId{parent.Id}, false)
		if err := child.Sign(kp); err != nil {
			t.Fatalf("sign child %d: %v", i, err)
		}
		if err := g.AddTransaction(child); err != nil {
			t.Fatalf("add child %d: %v", i, err)
		}
	}

	c := g.GetConfidence(parent.Id)
	if c < 0.5 || c > 1.0 {
		t.Fatalf("get_confidence(parent) = %v, want in [0.5, 1.0]", c)
	}
	if c != 1.0 {
		t.Fatalf("with 10 referrers, confidence should saturate at 1.0, got %v", c)
	}
}
