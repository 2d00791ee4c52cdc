package consensus

import "github.com/lamassu-labs/trustwrapper/internal/model"

// hotstuffAlgorithm uses the same 2f+1 BFT quorum as pbftAlgorithm but is
// selected for larger validator sets, modeling HotStuff's single linear
// round versus PBFT's quadratic all-to-all pattern — the quorum math is
// identical, only the scaling regime it is chosen for differs (see
// SelectAlgorithm).
type hotstuffAlgorithm struct{}

func (hotstuffAlgorithm) name() model.ConsensusAlgorithm { return model.AlgorithmHotStuff }

func (hotstuffAlgorithm) evaluate(votes []model.ConsensusVote, participants []string, _ float64) (string, bool) {
	leadValue, leadCount, _ := tally(votes)
	required := (len(participants)*2)/3 + 1
	if leadCount >= required {
		return leadValue, true
	}
	return "", false
}
