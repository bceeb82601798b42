package core

import (
	"errors"
	"testing"
)

func newTestNode(t *testing.T, balance uint64) (*Node, *fakeTransport) {
	t.Helper()
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	transport := newFakeTransport()
	node := NewNode(NodeConfig{
		Keypair:     kp,
		InitBalance: balance,
		DataDir:     t.TempDir(),
		Transport:   transport,
	}, NewLocalGraph())
	return node, transport
}

func TestCreatePaymentDebitsBalanceAndSigns(t *testing.T) {
	nodeA, transportA := newTestNode(t, 1000)
	kpB, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair B: %v", err)
	}

	tx, err := nodeA.CreatePayment(kpB.Public, 100)
	if err != nil {
		t.Fatalf("create_payment: %v", err)
	}

	if tx.Fee != 100 {
		t.Fatalf("expected fee 100 for a non-free-tier payment at default reputation, got %d", tx.Fee)
	}
	if got := nodeA.Balance(); got != 1000-100-100 {
		t.Fatalf("expected balance debited by amount+fee, got %d", got)
	}
	ok, err := tx.VerifySignature()
	if err != nil || !ok {
		t.Fatalf("create_payment produced an unverifiable transaction: ok=%v err=%v", ok, err)
	}
	if len(transportA.sentTx) != 1 {
		t.Fatalf("expected the payment to be published once, got %d", len(transportA.sentTx))
	}
}

func TestCreatePaymentInsufficientBalance(t *testing.T) {
	nodeA, _ := newTestNode(t, 50)
	kpB, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair B: %v", err)
	}
	if _, err := nodeA.CreatePayment(kpB.Public, 1000); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestTwoNodeRelay(t *testing.T) {
	nodeA, _ := newTestNode(t, 1000)
	nodeB, _ := newTestNode(t, 0)

	tx, err := nodeA.CreatePayment(nodeB.PublicKey(), 100)
	if err != nil {
		t.Fatalf("create_payment: %v", err)
	}

	if err := nodeB.HandleTransaction(tx); err != nil {
		t.Fatalf("handle_transaction on node B: %v", err)
	}

	if got := nodeB.Graph().TransactionCount(); got < 1 {
		t.Fatalf("expected node B's graph to contain at least 1 transaction, got %d", got)
	}
}

func TestHandleTransactionCreditsStorageShareAndReputation(t *testing.T) {
	nodeA, _ := newTestNode(t, 1000)
	nodeB, transportB := newTestNode(t, 0)

	tx, err := nodeA.CreatePayment(nodeB.PublicKey(), 100)
	if err != nil {
		t.Fatalf("create_payment: %v", err)
	}

	before := nodeB.Balance()
	if err := nodeB.HandleTransaction(tx); err != nil {
		t.Fatalf("handle_transaction: %v", err)
	}

	wantCredit := uint64(float64(tx.Fee) * FeeShareStorage)
	if got := nodeB.Balance(); got != before+wantCredit {
		t.Fatalf("expected balance credited by storage share %d, got %d (before %d)", wantCredit, got, before)
	}

	if got := nodeB.Reputation().Get(tx.From); got <= DefaultReputation {
		t.Fatalf("expected sender reputation credited above default, got %v", got)
	}

	// HandleTransaction rebroadcasts unconditionally, not guarded by a
	// seen-set.
	if len(transportB.sentTx) != 1 {
		t.Fatalf("expected exactly one rebroadcast, got %d", len(transportB.sentTx))
	}
}

func TestHandleTransactionCollisionPunishesOffender(t *testing.T) {
	nodeB, _ := newTestNode(t, 0)

	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	anchor := Digest{}

	t1 := NewTransaction(kp.Public, PublicKey{2}, 100, 1, 100, anchor, nil, false)
	if err := t1.Sign(kp); err != nil {
		t.Fatalf("sign t1: %v", err)
	}
	if err := nodeB.HandleTransaction(t1); err != nil {
		t.Fatalf("handle t1: %v", err)
	}

	t2 := NewTransaction(kp.Public, PublicKey{3}, 100, 2, 100, anchor, nil, false)
	if err := t2.Sign(kp); err != nil {
		t.Fatalf("sign t2: %v", err)
	}
	if err := nodeB.HandleTransaction(t2); !errors.Is(err, ErrCollisionDetected) {
		t.Fatalf("expected ErrCollisionDetected for t2, got %v", err)
	}

	if got := nodeB.Reputation().Get(kp.Public); got != ReputationPunishMin {
		t.Fatalf("expected offender reputation punished to %v, got %v", ReputationPunishMin, got)
	}
	if nodeB.Graph().AlertCount() != 1 {
		t.Fatalf("expected exactly one alert recorded, got %d", nodeB.Graph().AlertCount())
	}
}

func TestAdminStatsAndSendThroughEventLoop(t *testing.T) {
	node, transport := newTestNode(t, 1000)
	go node.Run()
	t.Cleanup(func() { transport.Close() })

	statsReply := make(chan AdminReply, 1)
	node.adminInbox <- AdminCommand{Kind: CmdStats, Reply: statsReply}
	r := <-statsReply
	if r.Stats == nil || r.Stats.Balance != 1000 {
		t.Fatalf("unexpected stats reply: %+v", r)
	}

	kpB, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair B: %v", err)
	}
	sendReply := make(chan AdminReply, 1)
	node.adminInbox <- AdminCommand{Kind: CmdSend, To: kpB.Public, Amount: 100, Reply: sendReply}
	sr := <-sendReply
	if sr.Err != nil || sr.TxId == "" {
		t.Fatalf("unexpected send reply: %+v", sr)
	}
}

func TestAdminStakeValidatesRange(t *testing.T) {
	node, transport := newTestNode(t, 0)
	go node.Run()
	t.Cleanup(func() { transport.Close() })

	reply := make(chan AdminReply, 1)
	node.adminInbox <- AdminCommand{Kind: CmdStake, Fraction: 0.9, Reply: reply}
	r := <-reply
	if !errors.Is(r.Err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for out-of-range stake, got %v", r.Err)
	}

	reply2 := make(chan AdminReply, 1)
	node.adminInbox <- AdminCommand{Kind: CmdStake, Fraction: 0.25, Reply: reply2}
	r2 := <-reply2
	if r2.Err != nil {
		t.Fatalf("unexpected error setting valid stake: %v", r2.Err)
	}
	if got := node.Stake(); got != 0.25 {
		t.Fatalf("expected stake set to 0.25, got %v", got)
	}
}
