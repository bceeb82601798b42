package core

import "testing"

// fakeTransport is a minimal in-memory GossipTransport used by node/admin
// tests in place of LibP2PTransport, which needs a real network stack.
type fakeTransport struct {
	events     chan NetworkEvent
	sentTx     []*Transaction
	sentAlerts []*Alert
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan NetworkEvent, 64)}
}

func (f *fakeTransport) PublishTransaction(tx *Transaction) error {
	f.sentTx = append(f.sentTx, tx)
	return nil
}

func (f *fakeTransport) PublishAlert(a *Alert) error {
	f.sentAlerts = append(f.sentAlerts, a)
	return nil
}

func (f *fakeTransport) Events() <-chan NetworkEvent { return f.events }
func (f *fakeTransport) Peers() []string             { return nil }
func (f *fakeTransport) Close() error                { close(f.events); return nil }

var _ GossipTransport = (*fakeTransport)(nil)

func TestFakeTransportSatisfiesGossipTransport(t *testing.T) {
	ft := newFakeTransport()
	if err := ft.PublishTransaction(&Transaction{}); err != nil {
		t.Fatalf("publish transaction: %v", err)
	}
	if len(ft.sentTx) != 1 {
		t.Fatalf("expected 1 captured transaction, got %d", len(ft.sentTx))
	}
}
