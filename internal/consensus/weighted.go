package consensus

import "github.com/lamassu-labs/trustwrapper/internal/model"

// weightedAlgorithm decides by vote weight rather than raw count, folding in
// original_source's WEIGHTED_VOTING BridgeConsensusType. A zero-weight vote
// is treated as weight 1 so callers that don't populate Weight still get a
// simple-majority-by-count result.
type weightedAlgorithm struct{}

func (weightedAlgorithm) name() model.ConsensusAlgorithm { return model.AlgorithmWeighted }

func (weightedAlgorithm) evaluate(votes []model.ConsensusVote, participants []string, threshold float64) (string, bool) {
	if threshold <= 0 {
		threshold = 0.5
	}
	minVotes := RequiredCount(len(participants), threshold)
	if len(votes) < minVotes {
		return "", false
	}
	leadValue, leadWeight, totalWeight := weightedTally(votes)
	if totalWeight == 0 {
		return "", false
	}
	if leadWeight/totalWeight >= threshold {
		return leadValue, true
	}
	return "", false
}
