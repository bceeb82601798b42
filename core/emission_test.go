package core

import (
	"testing"
	"time"
)

func TestComputeEmissionRewardZeroWhenGraphEmpty(t *testing.T) {
	node, _ := newTestNode(t, 0)
	if got := node.computeEmissionReward(time.Hour); got != 0 {
		t.Fatalf("expected 0 reward for an empty graph, got %d", got)
	}
}

func TestComputeEmissionRewardPositiveWithStoredData(t *testing.T) {
	node, _ := newTestNode(t, 1000)
	kpB, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair B: %v", err)
	}
	tx, err := node.CreatePayment(kpB.Public, 100)
	if err != nil {
		t.Fatalf("create_payment: %v", err)
	}
	if err := node.graph.AddTransaction(tx); err != nil {
		t.Fatalf("seed graph: %v", err)
	}

	if got := node.computeEmissionReward(time.Hour); got == 0 {
		t.Fatalf("expected a positive emission reward once the graph holds data")
	}
}
