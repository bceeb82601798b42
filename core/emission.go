package core

// emission.go holds the periodic self-credit task: a time.Ticker driving a
// periodic balance credit proportional to stored bytes and a
// reputation-derived factor.

import (
	"time"

	"github.com/sirupsen/logrus"
)

// RunEmissionTimer credits n's own balance every interval, proportional to
// stored bytes and the node's effective (stake-boosted) reputation. An
// interval of 0 disables the task entirely. The loop exits as soon as n's
// event loop stops (n.Done() closes), so it never leaks past Node.Run()
// returning and never sends on a closed admin inbox.
func RunEmissionTimer(n *Node, interval time.Duration, log *logrus.Entry) {
	if interval <= 0 {
		return
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-n.Done():
			return
		case <-ticker.C:
			reward := n.computeEmissionReward(interval)
			if reward == 0 {
				continue
			}
			select {
			case n.adminInbox <- AdminCommand{Kind: CmdEmissionReward, Amount: reward}:
			case <-n.Done():
				return
			default:
				log.Warn("admin inbox full, dropping emission reward")
			}
		}
	}
}

// computeEmissionReward computes:
//
//	bytes = |tx|*3000 + |alert|*500
//	reward = EmissionBasePerHourMicro * (bytes/1e6) * factor(eff_rep) * (interval/3600)
func (n *Node) computeEmissionReward(interval time.Duration) uint64 {
	txCount := uint64(n.graph.TransactionCount())
	alertCount := uint64(n.graph.AlertCount())
	bytes := txCount*3000 + alertCount*500

	reputation := n.reputation.Get(n.keypair.Public)
	effRep := EffectiveReputation(reputation, n.Stake())
	factor := EmissionReputationFactor(effRep)

	reward := float64(EmissionBasePerHourMicro) * (float64(bytes) / 1_000_000.0) * factor * (interval.Seconds() / 3600.0)
	if reward <= 0 {
		return 0
	}
	return uint64(reward)
}
