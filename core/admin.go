package core

// admin.go holds the admin command model consumed by the node's single
// event loop, and AdminServer, a line-oriented TCP front end: parse a
// request line, build a typed command, wait on a reply channel. Each
// connection gets a uuid.New() correlation id carried into its log lines.

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AdminCommandKind tags the variant of an AdminCommand.
type AdminCommandKind int

const (
	CmdStats AdminCommandKind = iota
	CmdPubkey
	CmdRecentTxs
	CmdParams
	CmdSend
	CmdStake
	CmdEmissionReward
)

// AdminCommand is a single request submitted to the node's admin inbox.
// Reply is nil for EmissionReward, which has no reply.
type AdminCommand struct {
	Kind     AdminCommandKind
	To       PublicKey
	Amount   uint64
	Limit    int
	Fraction float64
	Reply    chan AdminReply
}

// StatsResponse is the JSON body returned by the `stats` command.
type StatsResponse struct {
	PeerID       string             `json:"peer_id"`
	Balance      uint64             `json:"balance"`
	Reputation   map[string]float64 `json:"reputation"`
	Transactions int                `json:"transactions"`
	Alerts       int                `json:"alerts"`
}

// AdminReply carries the result of an AdminCommand back to its submitter.
type AdminReply struct {
	Err    error
	Stats  *StatsResponse
	Pubkey string
	Txs    []*Transaction
	Params *NetworkParams
	TxId   string
}

func sendReply(ch chan AdminReply, reply AdminReply) {
	if ch == nil {
		return
	}
	select {
	case ch <- reply:
	default:
	}
}

// handleAdminCommand executes cmd against n's state and replies, run from
// within Node.Run's single event-loop goroutine.
func (n *Node) handleAdminCommand(cmd AdminCommand) {
	switch cmd.Kind {
	case CmdStats:
		sendReply(cmd.Reply, AdminReply{Stats: &StatsResponse{
			PeerID:       n.peerID.String(),
			Balance:      n.Balance(),
			Reputation:   n.reputation.Snapshot(),
			Transactions: n.graph.TransactionCount(),
			Alerts:       n.graph.AlertCount(),
		}})

	case CmdPubkey:
		sendReply(cmd.Reply, AdminReply{Pubkey: n.keypair.Public.Hex()})

	case CmdRecentTxs:
		limit := cmd.Limit
		if limit <= 0 {
			limit = 20
		}
		sendReply(cmd.Reply, AdminReply{Txs: n.graph.RecentTransactions(limit)})

	case CmdParams:
		p := Params()
		sendReply(cmd.Reply, AdminReply{Params: &p})

	case CmdSend:
		tx, err := n.CreatePayment(cmd.To, cmd.Amount)
		if err != nil {
			sendReply(cmd.Reply, AdminReply{Err: err})
			return
		}
		sendReply(cmd.Reply, AdminReply{TxId: tx.Id.String()})

	case CmdStake:
		if cmd.Fraction < StakeMin || cmd.Fraction > StakeMax {
			sendReply(cmd.Reply, AdminReply{Err: fmt.Errorf("%w: stake fraction must be in [0.0, 0.5]", ErrInvalidArgument)})
			return
		}
		n.stakeMu.Lock()
		n.stake = cmd.Fraction
		n.stakeMu.Unlock()
		if err := SaveStake(StakePath(n.dataDir), cmd.Fraction); err != nil {
			n.log.WithError(err).Warn("persist stake failed")
		}
		sendReply(cmd.Reply, AdminReply{})

	case CmdEmissionReward:
		n.balanceMu.Lock()
		n.balance = saturatingAddU64(n.balance, cmd.Amount)
		n.balanceMu.Unlock()
	}
}

//---------------------------------------------------------------------
// AdminServer: line-oriented TCP front end
//---------------------------------------------------------------------

// AdminServer accepts one admin request per TCP connection.
type AdminServer struct {
	listener net.Listener
	node     *Node
	log      *logrus.Entry
}

// NewAdminServer listens on addr and returns an AdminServer bound to node.
func NewAdminServer(addr string, node *Node, log *logrus.Entry) (*AdminServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %v", ErrIO, addr, err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &AdminServer{listener: ln, node: node, log: log}, nil
}

// Serve accepts connections until the listener is closed.
func (s *AdminServer) Serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.log.WithError(err).Debug("admin listener stopped")
			return
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting new admin connections.
func (s *AdminServer) Close() error { return s.listener.Close() }

// Addr returns the server's bound address.
func (s *AdminServer) Addr() net.Addr { return s.listener.Addr() }

func (s *AdminServer) handleConn(conn net.Conn) {
	defer conn.Close()

	corrID := uuid.New().String()
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return
	}
	line = strings.TrimSpace(line)

	log := s.log.WithField("request_id", corrID)
	log.WithField("line", line).Debug("admin request")

	resp := s.dispatch(line)
	if _, err := fmt.Fprintln(conn, resp); err != nil {
		log.WithError(err).Debug("admin response write failed")
	}
}

// ask submits cmd to the node's admin inbox and blocks for its reply.
func (s *AdminServer) ask(cmd AdminCommand) AdminReply {
	cmd.Reply = make(chan AdminReply, 1)
	s.node.adminInbox <- cmd
	return <-cmd.Reply
}

func (s *AdminServer) dispatch(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return fmt.Sprintf("error: unknown command (%s)", line)
	}

	switch fields[0] {
	case "stats":
		reply := s.ask(AdminCommand{Kind: CmdStats})
		b, _ := json.Marshal(reply.Stats)
		return string(b)

	case "pubkey":
		reply := s.ask(AdminCommand{Kind: CmdPubkey})
		return reply.Pubkey

	case "recent_txs":
		limit := 20
		if len(fields) > 1 {
			v, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Sprintf("error: invalid argument: %v", err)
			}
			limit = v
		}
		reply := s.ask(AdminCommand{Kind: CmdRecentTxs, Limit: limit})
		b, _ := json.Marshal(reply.Txs)
		return string(b)

	case "params":
		reply := s.ask(AdminCommand{Kind: CmdParams})
		b, _ := json.Marshal(reply.Params)
		return string(b)

	case "send":
		if len(fields) != 3 {
			return "error: usage: send <hex_pubkey> <amount>"
		}
		to, err := hex.DecodeString(fields[1])
		if err != nil {
			return fmt.Sprintf("error: invalid pubkey hex: %v", err)
		}
		amount, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return fmt.Sprintf("error: invalid amount: %v", err)
		}
		reply := s.ask(AdminCommand{Kind: CmdSend, To: PublicKey(to), Amount: amount})
		if reply.Err != nil {
			return "error: " + reply.Err.Error()
		}
		return "ok " + reply.TxId

	case "stake":
		if len(fields) != 2 {
			return "error: usage: stake <fraction>"
		}
		f, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Sprintf("error: invalid fraction: %v", err)
		}
		reply := s.ask(AdminCommand{Kind: CmdStake, Fraction: f})
		if reply.Err != nil {
			return "error: " + reply.Err.Error()
		}
		return "ok"

	default:
		return fmt.Sprintf("error: unknown command (%s)", line)
	}
}
