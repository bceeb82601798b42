package core

// node.go is the node core: state plus the three handlers (create_payment,
// handle_transaction, handle_alert) and the single event loop goroutine
// multiplexing the gossip transport and the admin inbox. It is a struct of
// shared state guarded by a handful of locks, driven by one background
// goroutine.

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// adminInboxCapacity sizes the admin/emission command channel. Conceptually
// this queue is unbounded; a generous buffered capacity approximates that
// without an actual unbounded channel, which Go does not offer natively.
const adminInboxCapacity = 4096

// NodeConfig bundles everything Node needs to start.
type NodeConfig struct {
	Keypair     *Keypair
	InitBalance uint64
	Stake       float64
	DataDir     string
	Transport   GossipTransport
	EnableChaff bool
	ChaffProb   float64
	Logger      *logrus.Entry
}

// Node is the per-process payment-network core: state plus the handlers
// that react to outbound admin requests and inbound gossip events.
type Node struct {
	keypair *Keypair
	peerID  Digest

	balanceMu sync.RWMutex
	balance   uint64

	reputation *ReputationMap
	graph      *LocalGraph
	echo       *EchoLocator

	stakeMu sync.RWMutex
	stake   float64

	transport GossipTransport
	dataDir   string

	enableChaff bool
	chaffProb   float64

	adminInbox chan AdminCommand
	done       chan struct{}

	log *logrus.Entry
}

// NewNode constructs a Node from cfg, loading the graph and stake fraction
// already present under cfg.DataDir (via the caller, which typically calls
// LoadFromPath/LoadStake before building NodeConfig) is NOT done here —
// NewNode takes the already-loaded graph so callers control start-up
// ordering; use NewNodeFromDisk for the common case.
func NewNode(cfg NodeConfig, graph *LocalGraph) *Node {
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Node{
		keypair:     cfg.Keypair,
		peerID:      cfg.Keypair.Public.PeerID(),
		balance:     cfg.InitBalance,
		reputation:  NewReputationMap(),
		graph:       graph,
		echo:        NewEchoLocator(),
		stake:       ClampStake(cfg.Stake),
		transport:   cfg.Transport,
		dataDir:     cfg.DataDir,
		enableChaff: cfg.EnableChaff,
		chaffProb:   cfg.ChaffProb,
		adminInbox:  make(chan AdminCommand, adminInboxCapacity),
		done:        make(chan struct{}),
		log:         log,
	}
}

// NewNodeFromDisk constructs a Node, loading its graph and stake fraction
// from cfg.DataDir. Missing files yield defaults; a file that cannot be read
// or decoded also yields the default (empty graph, stake 0.0) and is logged
// as a warning.
func NewNodeFromDisk(cfg NodeConfig) (*Node, error) {
	var loadErrs []error
	graph, err := LoadFromPath(GraphPath(cfg.DataDir))
	if err != nil {
		loadErrs = append(loadErrs, err)
		graph = NewLocalGraph()
	}
	stake, err := LoadStake(StakePath(cfg.DataDir))
	if err != nil {
		loadErrs = append(loadErrs, err)
		stake = 0.0
	}
	cfg.Stake = stake
	n := NewNode(cfg, graph)
	for _, e := range loadErrs {
		n.log.WithError(e).Warn("start-up load failed, using defaults")
	}
	return n, nil
}

// PeerID returns the node's derived peer id (digest of its public key).
func (n *Node) PeerID() Digest { return n.peerID }

// PublicKey returns the node's raw public key.
func (n *Node) PublicKey() PublicKey { return n.keypair.Public }

// Balance returns the current balance.
func (n *Node) Balance() uint64 {
	n.balanceMu.RLock()
	defer n.balanceMu.RUnlock()
	return n.balance
}

// Stake returns the current stake fraction.
func (n *Node) Stake() float64 {
	n.stakeMu.RLock()
	defer n.stakeMu.RUnlock()
	return n.stake
}

// Graph exposes the node's local graph for read-only admin paths (e.g.
// RecentTxs), which should only acquire a read lock — LocalGraph's own
// methods already do this.
func (n *Node) Graph() *LocalGraph { return n.graph }

// Reputation exposes the node's reputation map for the stats command.
func (n *Node) Reputation() *ReputationMap { return n.reputation }

// Echo exposes the node's advisory echo locator.
func (n *Node) Echo() *EchoLocator { return n.echo }

// AdminInbox returns the channel admin commands are submitted on.
func (n *Node) AdminInbox() chan<- AdminCommand { return n.adminInbox }

// Done returns a channel closed once Run's event loop has exited, so
// collaborator goroutines (e.g. RunEmissionTimer) can shut down with it.
func (n *Node) Done() <-chan struct{} { return n.done }

//---------------------------------------------------------------------
// Outbound payment
//---------------------------------------------------------------------

// CreatePayment builds, signs, debits and publishes a payment transaction
// to to for amount micro-units.
func (n *Node) CreatePayment(to PublicKey, amount uint64) (*Transaction, error) {
	reputation := n.reputation.Get(n.keypair.Public)
	fee := ComputeFee(amount, PriorityNormal, reputation)

	n.balanceMu.Lock()
	needed := saturatingAddU64(amount, fee)
	if n.balance < needed {
		n.balanceMu.Unlock()
		return nil, ErrInsufficientBalance
	}
	anchor := BalanceAnchor(n.balance)
	n.balance -= needed
	n.balanceMu.Unlock()

	parents := n.graph.RecentTxIdsForSender(n.keypair.Public, MaxParents)

	nonce, err := randomNonce()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	tx := NewTransaction(n.keypair.Public, to, amount, nonce, fee, anchor, parents, n.enableChaff && chaffRoll(n.chaffProb))
	if err := tx.Sign(n.keypair); err != nil {
		return nil, err
	}

	if err := n.transport.PublishTransaction(tx); err != nil {
		n.log.WithError(err).Warn("publish outbound transaction failed")
	}

	return tx, nil
}

func randomNonce() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func chaffRoll(prob float64) bool {
	if prob <= 0 {
		return false
	}
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return false
	}
	r := float64(binary.LittleEndian.Uint64(b[:])%1_000_000) / 1_000_000.0
	return r < prob
}

//---------------------------------------------------------------------
// Inbound transaction / alert handling
//---------------------------------------------------------------------

// HandleTransaction verifies, ingests and reacts to an inbound transaction.
func (n *Node) HandleTransaction(tx *Transaction) error {
	ok, err := tx.VerifySignature()
	if err != nil {
		n.log.WithError(err).Warn("signature verification error, dropping transaction")
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if !ok {
		n.log.WithField("tx_id", tx.Id.String()).Warn("invalid signature, dropping transaction")
		return ErrInvalidSignature
	}

	for _, p := range tx.Parents {
		n.echo.AddReference(tx.Id, p)
	}

	err = n.graph.AddTransaction(tx)
	if err == nil {
		if saveErr := n.graph.SaveToPath(GraphPath(n.dataDir)); saveErr != nil {
			n.log.WithError(saveErr).Warn("graph snapshot persistence failed")
		}

		n.reputation.Adjust(tx.From, ReputationDeltaRelay)

		storageShare := uint64(float64(tx.Fee) * FeeShareStorage)
		n.balanceMu.Lock()
		n.balance = saturatingAddU64(n.balance, storageShare)
		n.balanceMu.Unlock()

		// Unconditional rebroadcast, no seen-set guard: an amplification
		// risk, intentionally left unguarded here.
		if pubErr := n.transport.PublishTransaction(tx); pubErr != nil {
			n.log.WithError(pubErr).Warn("rebroadcast transaction failed")
		}
		return nil
	}

	if errors.Is(err, ErrCollisionDetected) {
		n.reactToCollision(tx)
		return err
	}

	return err
}

func (n *Node) reactToCollision(tx *Transaction) {
	existing := n.graph.FindCollisions(tx.Anchor)
	var conflict *Transaction
	for _, other := range existing {
		if string(other.From) == string(tx.From) && string(other.To) != string(tx.To) && other.Id != tx.Id {
			conflict = other
			break
		}
	}
	if conflict == nil {
		n.log.WithField("anchor", tx.Anchor.String()).Warn("collision reported but no conflicting transaction found")
		return
	}

	alert := NewAlert(conflict.Id, tx.Id, tx.Anchor, n.keypair.Public, tx.Timestamp)
	n.graph.AddAlert(alert)
	if err := n.transport.PublishAlert(alert); err != nil {
		n.log.WithError(err).Warn("publish alert failed")
	}
	n.reputation.Punish(tx.From)
}

// HandleAlert logs and republishes an inbound alert unchanged.
// PropagationCount is never incremented here.
func (n *Node) HandleAlert(a *Alert) {
	n.log.WithFields(logrus.Fields{
		"alert_id": a.Id.String(),
		"anchor":   a.Anchor.String(),
	}).Info("alert received")
	n.graph.AddAlert(a)
	if err := n.transport.PublishAlert(a); err != nil {
		n.log.WithError(err).Warn("republish alert failed")
	}
}

//---------------------------------------------------------------------
// Event loop
//---------------------------------------------------------------------

// Run drives the node's single logical event loop: gossip events and admin
// commands are multiplexed over two channels. Run returns when the
// transport's event stream or the admin inbox closes, and closes Done()
// so collaborator goroutines can stop with it.
func (n *Node) Run() {
	defer close(n.done)
	events := n.transport.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				n.log.Info("gossip event stream closed, stopping event loop")
				return
			}
			n.handleNetworkEvent(ev)
		case cmd, ok := <-n.adminInbox:
			if !ok {
				n.log.Info("admin inbox closed, stopping event loop")
				return
			}
			n.handleAdminCommand(cmd)
		}
	}
}

func (n *Node) handleNetworkEvent(ev NetworkEvent) {
	switch ev.Kind {
	case EventTransactionReceived:
		if err := n.HandleTransaction(ev.Transaction); err != nil {
			n.log.WithError(err).Debug("handle_transaction")
		}
	case EventAlertReceived:
		n.HandleAlert(ev.Alert)
	case EventPeerConnected:
		n.log.WithField("peer", ev.PeerID).Info("peer connected")
	case EventPeerDisconnected:
		n.log.WithField("peer", ev.PeerID).Info("peer disconnected")
	}
}
