// Package consensus implements the cross-chain consensus engine (C9): a
// selectable-algorithm vote collector grounded on the teacher's
// pkg/consensus state-machine shape (bft_integration.go, abci_validator.go)
// and supplemented by original_source's BridgeConsensusType enum.
package consensus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// ErrSingleChainNotPermitted is returned when algorithm selection is left to
// auto but only one participant is available: a single voter can never be
// Byzantine fault tolerant, so auto-selection refuses rather than silently
// degrading to simple_majority.
var ErrSingleChainNotPermitted = errors.New("consensus: single-chain participation not permitted under auto selection")

// ErrNoParticipants is returned when Run is called with zero participants.
var ErrNoParticipants = errors.New("consensus: at least one participant required")

// ErrUnknownAlgorithm is returned for an explicitly requested algorithm this
// engine does not implement.
var ErrUnknownAlgorithm = errors.New("consensus: unknown algorithm")

// algorithm is the pluggable per-algorithm quorum rule. evaluate inspects
// votes collected so far and reports whether a decision has been reached.
type algorithm interface {
	name() model.ConsensusAlgorithm
	evaluate(votes []model.ConsensusVote, participants []string, threshold float64) (result string, decided bool)
}

var registry = map[model.ConsensusAlgorithm]algorithm{
	model.AlgorithmPBFT:           pbftAlgorithm{},
	model.AlgorithmHotStuff:       hotstuffAlgorithm{},
	model.AlgorithmWeighted:       weightedAlgorithm{},
	model.AlgorithmSimpleMajority: simpleMajorityAlgorithm{},
}

// Engine runs one ConsensusInstance at a time per call to Run; callers
// fan out multiple Engine.Run calls (one per request) for concurrency,
// matching the teacher's one-ABCI-app-per-chain model generalized to
// one-instance-per-request. Reputation (used only by the weighted
// algorithm) is the one piece of state that persists across an Engine's
// successive Run calls.
type Engine struct {
	reputation *reputationLedger
}

// New builds a consensus Engine.
func New() *Engine { return &Engine{reputation: newReputationLedger()} }

// ReputationBonus reports voterChain's current weighted-consensus
// reputation bonus (a fraction of its static weight, bounded to +/-20%).
func (e *Engine) ReputationBonus(voterChain string) float64 {
	return e.reputation.bonusFor(voterChain)
}

// GenerateRequestID builds a short deterministic-looking ID from a request
// type, requester, and the caller-supplied nonce (replacing the original's
// time.Now() seed, which Run cannot depend on for determinism in tests).
func GenerateRequestID(requestType, requester string, nonce uint64) string {
	data := fmt.Sprintf("%s_%s_%d", requestType, requester, nonce)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}

// RequiredCount returns total*threshold rounded down (at least 1 when total
// > 0): the vote count the weighted algorithm waits for before comparing
// weight fractions. Rounding down can leave it below an exact threshold
// share (4 participants at 0.66 gives 2).
func RequiredCount(total int, threshold float64) int {
	required := int(float64(total) * threshold)
	if required == 0 && total > 0 {
		required = 1
	}
	return required
}

// IsByzantineFaultTolerant reports whether totalValidators can tolerate
// maxFaults Byzantine failures (n >= 3f + 1).
func IsByzantineFaultTolerant(totalValidators, maxFaults int) bool {
	return totalValidators >= 3*maxFaults+1
}

// SelectAlgorithm implements the auto-selection rule: an explicit algorithm
// is used as-is; auto refuses a single participant (no BFT is possible) and
// otherwise picks PBFT for small validator sets and HotStuff for larger
// ones, where HotStuff's linear view-change cost pays off.
func SelectAlgorithm(cfg model.ConsensusConfig, participantCount int) (model.ConsensusAlgorithm, error) {
	if cfg.Algorithm != model.AlgorithmAuto {
		if _, ok := registry[cfg.Algorithm]; !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownAlgorithm, cfg.Algorithm)
		}
		return cfg.Algorithm, nil
	}
	if participantCount <= 1 {
		return "", ErrSingleChainNotPermitted
	}
	if participantCount >= 7 {
		return model.AlgorithmHotStuff, nil
	}
	return model.AlgorithmPBFT, nil
}

// Run collects votes from votesCh against participants until the selected
// algorithm decides, the deadline passes, or ctx is canceled.
func (e *Engine) Run(ctx context.Context, consensusID string, cfg model.ConsensusConfig, participants []string, deadline time.Time, votesCh <-chan model.ConsensusVote) (model.ConsensusInstance, error) {
	if len(participants) == 0 {
		return model.ConsensusInstance{}, ErrNoParticipants
	}

	algo, err := SelectAlgorithm(cfg, len(participants))
	if err != nil {
		return model.ConsensusInstance{}, err
	}
	impl, ok := registry[algo]
	if !ok {
		return model.ConsensusInstance{}, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, algo)
	}

	inst := model.ConsensusInstance{
		ConsensusID:  consensusID,
		Algorithm:    algo,
		Participants: append([]string(nil), participants...),
		State:        model.ConsensusCollecting,
		StartedAt:    time.Now(),
		Deadline:     deadline,
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	votedBy := make(map[string]bool, len(participants))

	for {
		select {
		case <-ctx.Done():
			inst.State = model.ConsensusCanceled
			return inst, nil

		case <-timer.C:
			inst.State = model.ConsensusTimedOut
			return inst, nil

		case vote, ok := <-votesCh:
			if !ok {
				inst.State = model.ConsensusTimedOut
				return inst, nil
			}
			if votedBy[vote.VoterChain] {
				// Duplicate vote from a voter already counted in this view:
				// ignored so a single voter can't replay itself to quorum.
				continue
			}
			votedBy[vote.VoterChain] = true
			inst.Votes = append(inst.Votes, vote)

			votesForEval := inst.Votes
			if algo == model.AlgorithmWeighted {
				votesForEval = e.reputation.weighVotes(inst.Votes)
			}

			if result, decided := impl.evaluate(votesForEval, inst.Participants, cfg.Threshold); decided {
				if algo == model.AlgorithmWeighted {
					// Votes already delivered when the round decides still
					// count toward their voters' reputation update.
					for pending := true; pending; {
						select {
						case late, ok := <-votesCh:
							pending = ok
							if ok && !votedBy[late.VoterChain] {
								votedBy[late.VoterChain] = true
								inst.Votes = append(inst.Votes, late)
							}
						default:
							pending = false
						}
					}
					e.reputation.recordRound(inst.Votes, inst.Participants, result)
				}
				inst.State = model.ConsensusFinalized
				inst.Result = result
				return inst, nil
			}
			if len(inst.Votes) >= len(inst.Participants) {
				inst.State = model.ConsensusQuorumReached
			}
		}
	}
}

// Stats summarizes a concluded ConsensusInstance.
func Stats(inst model.ConsensusInstance) model.ConsensusStats {
	return model.ConsensusStats{
		Algorithm:     inst.Algorithm,
		VotesReceived: len(inst.Votes),
		VotesExpected: len(inst.Participants),
		TimedOut:      inst.State == model.ConsensusTimedOut,
		DurationMS:    time.Since(inst.StartedAt).Milliseconds(),
	}
}

// tally counts votes by their Value and returns the most frequent value
// plus its count.
func tally(votes []model.ConsensusVote) (leadValue string, leadCount int, total int) {
	counts := make(map[string]int, len(votes))
	for _, v := range votes {
		counts[v.Value]++
		total++
	}
	for value, count := range counts {
		if count > leadCount {
			leadValue, leadCount = value, count
		}
	}
	return leadValue, leadCount, total
}

// weightedTally sums vote Weight by Value.
func weightedTally(votes []model.ConsensusVote) (leadValue string, leadWeight, totalWeight float64) {
	weights := make(map[string]float64, len(votes))
	for _, v := range votes {
		w := v.Weight
		if w == 0 {
			w = 1
		}
		weights[v.Value] += w
		totalWeight += w
	}
	for value, w := range weights {
		if w > leadWeight {
			leadValue, leadWeight = value, w
		}
	}
	return leadValue, leadWeight, totalWeight
}
