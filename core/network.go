package core

// network.go specifies and implements the gossip transport collaborator:
// two topics ("transactions", "alerts"), fire-and-forget publish, and an
// inbound NetworkEvent stream. The core only depends on the
// GossipTransport interface; LibP2PTransport is the one concrete
// implementation — a libp2p host running gossipsub with mDNS discovery,
// plus peer connect/disconnect notifications.

import (
	"context"
	"fmt"
	"sync"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/sirupsen/logrus"
)

const (
	topicTransactions = "transactions"
	topicAlerts       = "alerts"
)

// NetworkEventKind tags the variant carried by a NetworkEvent.
type NetworkEventKind int

const (
	EventTransactionReceived NetworkEventKind = iota
	EventAlertReceived
	EventPeerConnected
	EventPeerDisconnected
)

// NetworkEvent is a single inbound occurrence from the gossip transport.
type NetworkEvent struct {
	Kind        NetworkEventKind
	Transaction *Transaction
	Alert       *Alert
	PeerID      string
}

// GossipTransport is the external collaborator the node core consumes: it
// publishes transactions/alerts fire-and-forget and exposes an inbound
// event stream.
type GossipTransport interface {
	PublishTransaction(tx *Transaction) error
	PublishAlert(a *Alert) error
	Events() <-chan NetworkEvent
	Peers() []string
	Close() error
}

// LibP2PTransport is a GossipTransport backed by a libp2p host running
// gossipsub over the "transactions" and "alerts" topics, with mDNS peer
// discovery.
type LibP2PTransport struct {
	host   host.Host
	pubsub *pubsub.PubSub

	txTopic    *pubsub.Topic
	alertTopic *pubsub.Topic

	events chan NetworkEvent

	ctx    context.Context
	cancel context.CancelFunc

	peerLock sync.RWMutex
	peers    map[string]struct{}
}

// TransportConfig configures a LibP2PTransport.
type TransportConfig struct {
	ListenAddr     string
	BootstrapPeers []string
	DiscoveryTag   string
}

// NewLibP2PTransport creates and bootstraps a gossiping libp2p node.
func NewLibP2PTransport(cfg TransportConfig) (*LibP2PTransport, error) {
	ctx, cancel := context.WithCancel(context.Background())

	h, err := libp2p.New(libp2p.ListenAddrStrings(cfg.ListenAddr))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: create libp2p host: %v", ErrIO, err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("%w: create gossipsub: %v", ErrIO, err)
	}

	txTopic, err := ps.Join(topicTransactions)
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("%w: join %s topic: %v", ErrIO, topicTransactions, err)
	}
	alertTopic, err := ps.Join(topicAlerts)
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("%w: join %s topic: %v", ErrIO, topicAlerts, err)
	}

	t := &LibP2PTransport{
		host:       h,
		pubsub:     ps,
		txTopic:    txTopic,
		alertTopic: alertTopic,
		events:     make(chan NetworkEvent, 1024),
		ctx:        ctx,
		cancel:     cancel,
		peers:      make(map[string]struct{}),
	}

	h.Network().Notify(t.notifiee())

	for _, addr := range cfg.BootstrapPeers {
		if pi, err := peer.AddrInfoFromString(addr); err == nil {
			if err := h.Connect(ctx, *pi); err != nil {
				logrus.Warnf("transport: dial seed %s: %v", addr, err)
			}
		} else {
			logrus.Warnf("transport: invalid seed %s: %v", addr, err)
		}
	}

	tag := cfg.DiscoveryTag
	if tag == "" {
		tag = "elena-node"
	}
	mdns.NewMdnsService(h, tag, mdnsNotifee{t: t})

	txSub, err := txTopic.Subscribe()
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("%w: subscribe %s: %v", ErrIO, topicTransactions, err)
	}
	alertSub, err := alertTopic.Subscribe()
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("%w: subscribe %s: %v", ErrIO, topicAlerts, err)
	}

	go t.pumpTransactions(txSub)
	go t.pumpAlerts(alertSub)

	return t, nil
}

func (t *LibP2PTransport) pumpTransactions(sub *pubsub.Subscription) {
	for {
		msg, err := sub.Next(t.ctx)
		if err != nil {
			return
		}
		if msg.ReceivedFrom == t.host.ID() {
			continue
		}
		tx, err := UnmarshalTransaction(msg.Data)
		if err != nil {
			logrus.Warnf("transport: decode transaction: %v", err)
			continue
		}
		t.emit(NetworkEvent{Kind: EventTransactionReceived, Transaction: tx})
	}
}

func (t *LibP2PTransport) pumpAlerts(sub *pubsub.Subscription) {
	for {
		msg, err := sub.Next(t.ctx)
		if err != nil {
			return
		}
		if msg.ReceivedFrom == t.host.ID() {
			continue
		}
		a, err := UnmarshalAlert(msg.Data)
		if err != nil {
			logrus.Warnf("transport: decode alert: %v", err)
			continue
		}
		t.emit(NetworkEvent{Kind: EventAlertReceived, Alert: a})
	}
}

func (t *LibP2PTransport) emit(ev NetworkEvent) {
	select {
	case t.events <- ev:
	case <-t.ctx.Done():
	}
}

// PublishTransaction broadcasts tx on the transactions topic, fire-and-forget.
func (t *LibP2PTransport) PublishTransaction(tx *Transaction) error {
	b, err := MarshalTransaction(tx)
	if err != nil {
		return err
	}
	if err := t.txTopic.Publish(t.ctx, b); err != nil {
		return fmt.Errorf("%w: publish transaction: %v", ErrIO, err)
	}
	return nil
}

// PublishAlert broadcasts a on the alerts topic, fire-and-forget.
func (t *LibP2PTransport) PublishAlert(a *Alert) error {
	b, err := MarshalAlert(a)
	if err != nil {
		return err
	}
	if err := t.alertTopic.Publish(t.ctx, b); err != nil {
		return fmt.Errorf("%w: publish alert: %v", ErrIO, err)
	}
	return nil
}

// Events returns the inbound NetworkEvent stream.
func (t *LibP2PTransport) Events() <-chan NetworkEvent { return t.events }

// Peers returns the ids of currently connected peers.
func (t *LibP2PTransport) Peers() []string {
	t.peerLock.RLock()
	defer t.peerLock.RUnlock()
	out := make([]string, 0, len(t.peers))
	for p := range t.peers {
		out = append(out, p)
	}
	return out
}

// Close tears down the transport.
func (t *LibP2PTransport) Close() error {
	t.cancel()
	return t.host.Close()
}

//---------------------------------------------------------------------
// Peer connect/disconnect notification plumbing
//---------------------------------------------------------------------

func (t *LibP2PTransport) notifiee() *network.NotifyBundle {
	return &network.NotifyBundle{
		ConnectedF: func(_ network.Network, c network.Conn) {
			id := c.RemotePeer().String()
			t.peerLock.Lock()
			t.peers[id] = struct{}{}
			t.peerLock.Unlock()
			t.emit(NetworkEvent{Kind: EventPeerConnected, PeerID: id})
		},
		DisconnectedF: func(_ network.Network, c network.Conn) {
			id := c.RemotePeer().String()
			t.peerLock.Lock()
			delete(t.peers, id)
			t.peerLock.Unlock()
			t.emit(NetworkEvent{Kind: EventPeerDisconnected, PeerID: id})
		},
	}
}

type mdnsNotifee struct{ t *LibP2PTransport }

func (n mdnsNotifee) HandlePeerFound(info peer.AddrInfo) {
	if info.ID == n.t.host.ID() {
		return
	}
	if err := n.t.host.Connect(n.t.ctx, info); err != nil {
		logrus.Warnf("transport: connect to discovered peer %s: %v", info.ID, err)
	}
}

var _ mdns.Notifee = mdnsNotifee{}

// Wire format note: pubsub already length-prefixes each message at the
// transport layer, so the payload itself is the JSON encoding produced by
// MarshalTransaction/MarshalAlert.
