package consensus

import (
	"sync"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// Reputation constants for the Weighted Byzantine Consensus algorithm
// (§4.9's "dynamic reputation bonus"). Asymmetric by design: punishing
// disagreement twice as fast as rewarding agreement rebuilds honest
// majorities faster than a Byzantine minority can regain standing.
const (
	reputationAgreeDelta    = 0.05
	reputationDisagreeDelta = 0.10
	reputationBonusCap      = 0.20
	reputationDecayFraction = 0.10
)

// reputationLedger tracks each voter's reputation bonus, a fraction of its
// static weight bounded to +/-20%. It is owned by one Engine and updated at
// the end of every decided weighted round, so reputation persists across
// the Engine's successive Run calls rather than resetting per instance.
type reputationLedger struct {
	mu    sync.Mutex
	bonus map[string]float64
}

func newReputationLedger() *reputationLedger {
	return &reputationLedger{bonus: make(map[string]float64)}
}

// bonusFor returns the current reputation bonus for voter, 0 if unknown.
func (r *reputationLedger) bonusFor(voter string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bonus[voter]
}

// effectiveWeight applies voter's current reputation bonus to staticWeight.
func (r *reputationLedger) effectiveWeight(voter string, staticWeight float64) float64 {
	return staticWeight * (1 + r.bonusFor(voter))
}

// weighVotes returns a copy of votes with Weight replaced by each voter's
// reputation-adjusted effective weight, leaving the caller's slice untouched
// so the ConsensusInstance still records each vote's original static weight.
func (r *reputationLedger) weighVotes(votes []model.ConsensusVote) []model.ConsensusVote {
	out := make([]model.ConsensusVote, len(votes))
	for i, v := range votes {
		static := v.Weight
		if static == 0 {
			static = 1
		}
		v.Weight = r.effectiveWeight(v.VoterChain, static)
		out[i] = v
	}
	return out
}

// recordRound applies the agree/disagree reputation update to every voter
// who cast a ballot in this round against decidedValue, and decays any
// participant who did not vote 10% of the way back toward a neutral bonus,
// per §4.9's "decayed over time."
func (r *reputationLedger) recordRound(votes []model.ConsensusVote, participants []string, decidedValue string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	voted := make(map[string]bool, len(votes))
	for _, v := range votes {
		voted[v.VoterChain] = true
		delta := reputationAgreeDelta
		if v.Value != decidedValue {
			delta = -reputationDisagreeDelta
		}
		r.bonus[v.VoterChain] = clampReputation(r.bonus[v.VoterChain] + delta)
	}

	for _, p := range participants {
		if voted[p] {
			continue
		}
		b := r.bonus[p]
		r.bonus[p] = b + (0-b)*reputationDecayFraction
	}
}

func clampReputation(b float64) float64 {
	switch {
	case b > reputationBonusCap:
		return reputationBonusCap
	case b < -reputationBonusCap:
		return -reputationBonusCap
	default:
		return b
	}
}
