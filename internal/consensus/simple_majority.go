package consensus

import "github.com/lamassu-labs/trustwrapper/internal/model"

// simpleMajorityAlgorithm decides on a strict majority of raw votes, used
// only for the degenerate n=1 guard path (tests, single-validator setups)
// per the original's SIMPLE_MAJORITY BridgeConsensusType — never selected
// automatically since it offers no Byzantine fault tolerance.
type simpleMajorityAlgorithm struct{}

func (simpleMajorityAlgorithm) name() model.ConsensusAlgorithm { return model.AlgorithmSimpleMajority }

func (simpleMajorityAlgorithm) evaluate(votes []model.ConsensusVote, participants []string, _ float64) (string, bool) {
	leadValue, leadCount, total := tally(votes)
	if total == 0 {
		return "", false
	}
	if leadCount*2 > len(participants) {
		return leadValue, true
	}
	return "", false
}
