package core

// economics.go holds pure, deterministic fee / emission / reputation math
// plus a read-only network-parameter snapshot: plain functions of their
// arguments, no I/O, no shared mutable state.

import "math"

// Priority is a transaction priority multiplier.
type Priority int

const (
	PriorityNormal   Priority = 1
	PriorityUrgent   Priority = 2
	PriorityCritical Priority = 10
)

func (p Priority) String() string {
	switch p {
	case PriorityNormal:
		return "normal"
	case PriorityUrgent:
		return "urgent"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

const (
	// MicroPerElena is the number of micro-units in one ELENA.
	MicroPerElena uint64 = 1_000_000

	// FreeTierMaxAmount is the amount ceiling (exclusive) under which a
	// sufficiently-reputable sender pays no fee.
	FreeTierMaxAmount uint64 = 10_000

	// FreeTierMinReputation is the reputation floor (inclusive) required for
	// the free micro-payment tier.
	FreeTierMinReputation = 0.8

	// BaseFee is the minimum fee charged on any non-free transaction.
	BaseFee uint64 = 100

	// ReputationMin and ReputationMax bound every reputation value.
	ReputationMin = 0.01
	ReputationMax = 0.99

	// StakeMin and StakeMax bound the staking fraction.
	StakeMin = 0.0
	StakeMax = 0.5

	// Fee distribution shares (fractions of the transaction fee).
	FeeShareStorage = 0.5
	FeeShareRelay   = 0.3
	FeeShareBurn    = 0.2

	// Reputation deltas applied by the node's event handlers.
	ReputationDeltaStoragePerDay = 0.001
	ReputationDeltaRelay         = 0.0005
	ReputationDeltaAlert         = 0.01
	ReputationDecayPerDay        = -0.001

	// ReputationPunishMin is the floor a sender's reputation is clamped to
	// when punished for a detected collision.
	ReputationPunishMin = 0.01

	// DefaultReputation seeds a peer's reputation on first mention.
	DefaultReputation = 0.5

	// EmissionBasePerHourMicro is the baseline hourly emission rate, in
	// micro-units per megabyte of stored transaction/alert data, before the
	// reputation factor and interval fraction are applied: 1 ELENA per MB
	// per hour.
	EmissionBasePerHourMicro uint64 = MicroPerElena
)

// ClampReputation keeps r within [ReputationMin, ReputationMax].
func ClampReputation(r float64) float64 {
	if r < ReputationMin {
		return ReputationMin
	}
	if r > ReputationMax {
		return ReputationMax
	}
	return r
}

// ClampStake keeps s within [StakeMin, StakeMax].
func ClampStake(s float64) float64 {
	if s < StakeMin {
		return StakeMin
	}
	if s > StakeMax {
		return StakeMax
	}
	return s
}

// ComputeFee returns the fee, in micro-units, for a payment of amount at the
// given priority from a sender with the given reputation.
//
// Free micropayment rule: amount < FreeTierMaxAmount AND
// reputation >= FreeTierMinReputation ⇒ fee is 0. Otherwise the fee is a
// saturating function of amount and priority, floored at BaseFee.
func ComputeFee(amount uint64, priority Priority, reputation float64) uint64 {
	if amount < FreeTierMaxAmount && reputation >= FreeTierMinReputation {
		return 0
	}
	variable := saturatingMulU64(amount/10_000, uint64(priority))
	fee := saturatingAddU64(BaseFee, variable)
	if fee < BaseFee {
		return BaseFee
	}
	return fee
}

// EmissionReputationFactor maps a clamped reputation into the emission
// multiplier range [0.5, 2.0].
func EmissionReputationFactor(reputation float64) float64 {
	r := ClampReputation(reputation)
	return 0.5 + 1.5*(r-ReputationMin)/0.98
}

// EffectiveReputation boosts base reputation by the staked fraction, capped
// at ReputationMax.
func EffectiveReputation(base, stake float64) float64 {
	eff := base * (1 + 0.5*ClampStake(stake))
	return math.Min(ReputationMax, eff)
}

// saturatingAddU64 adds a and b, clamping to math.MaxUint64 on overflow.
func saturatingAddU64(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return math.MaxUint64
	}
	return sum
}

// saturatingMulU64 multiplies a and b, clamping to math.MaxUint64 on overflow.
func saturatingMulU64(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	prod := a * b
	if prod/a != b {
		return math.MaxUint64
	}
	return prod
}

// NetworkParams is a read-only snapshot of the economics constants above,
// exposed verbatim by the admin `params` command.
type NetworkParams struct {
	MicroPerElena          uint64  `json:"micro_per_elena"`
	FreeTierMaxAmount      uint64  `json:"free_tier_max_amount"`
	FreeTierMinReputation  float64 `json:"free_tier_min_reputation"`
	BaseFee                uint64  `json:"base_fee"`
	ReputationMin          float64 `json:"reputation_min"`
	ReputationMax          float64 `json:"reputation_max"`
	StakeMin               float64 `json:"stake_min"`
	StakeMax               float64 `json:"stake_max"`
	FeeShareStorage        float64 `json:"fee_share_storage"`
	FeeShareRelay          float64 `json:"fee_share_relay"`
	FeeShareBurn           float64 `json:"fee_share_burn"`
	ReputationDeltaStorage float64 `json:"reputation_delta_storage_per_day"`
	ReputationDeltaRelay   float64 `json:"reputation_delta_relay"`
	ReputationDeltaAlert   float64 `json:"reputation_delta_alert"`
	ReputationDecayPerDay  float64 `json:"reputation_decay_per_day"`
	ReputationPunishMin    float64 `json:"reputation_punish_min"`
	PriorityNormal         int     `json:"priority_normal"`
	PriorityUrgent         int     `json:"priority_urgent"`
	PriorityCritical       int     `json:"priority_critical"`
	EmissionBasePerHour    uint64  `json:"emission_base_per_hour_micro"`
}

// Params returns the current, fixed network-parameter snapshot.
func Params() NetworkParams {
	return NetworkParams{
		MicroPerElena:          MicroPerElena,
		FreeTierMaxAmount:      FreeTierMaxAmount,
		FreeTierMinReputation:  FreeTierMinReputation,
		BaseFee:                BaseFee,
		ReputationMin:          ReputationMin,
		ReputationMax:          ReputationMax,
		StakeMin:               StakeMin,
		StakeMax:               StakeMax,
		FeeShareStorage:        FeeShareStorage,
		FeeShareRelay:          FeeShareRelay,
		FeeShareBurn:           FeeShareBurn,
		ReputationDeltaStorage: ReputationDeltaStoragePerDay,
		ReputationDeltaRelay:   ReputationDeltaRelay,
		ReputationDeltaAlert:   ReputationDeltaAlert,
		ReputationDecayPerDay:  ReputationDecayPerDay,
		ReputationPunishMin:    ReputationPunishMin,
		PriorityNormal:         int(PriorityNormal),
		PriorityUrgent:         int(PriorityUrgent),
		PriorityCritical:       int(PriorityCritical),
		EmissionBasePerHour:    EmissionBasePerHourMicro,
	}
}
