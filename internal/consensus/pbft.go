package consensus

import "github.com/lamassu-labs/trustwrapper/internal/model"

// pbftAlgorithm requires the classic BFT quorum: more than two thirds of
// participants agreeing on the same value, grounded on abci_validator.go's
// "(validatorCount*2/3)+1" RequiredCount computation for consensus entries.
type pbftAlgorithm struct{}

func (pbftAlgorithm) name() model.ConsensusAlgorithm { return model.AlgorithmPBFT }

func (pbftAlgorithm) evaluate(votes []model.ConsensusVote, participants []string, _ float64) (string, bool) {
	leadValue, leadCount, _ := tally(votes)
	required := (len(participants)*2)/3 + 1
	if leadCount >= required {
		return leadValue, true
	}
	return "", false
}
