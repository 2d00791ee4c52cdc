package consensus

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

func vote(chain, value string) model.ConsensusVote {
	return model.ConsensusVote{VoterChain: chain, Value: value, Timestamp: time.Now()}
}

func TestSelectAlgorithm_RefusesSingleParticipantUnderAuto(t *testing.T) {
	_, err := SelectAlgorithm(model.ConsensusConfig{Algorithm: model.AlgorithmAuto}, 1)
	if err != ErrSingleChainNotPermitted {
		t.Fatalf("expected ErrSingleChainNotPermitted, got %v", err)
	}
}

func TestSelectAlgorithm_PicksPBFTForSmallSets(t *testing.T) {
	algo, err := SelectAlgorithm(model.ConsensusConfig{Algorithm: model.AlgorithmAuto}, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if algo != model.AlgorithmPBFT {
		t.Fatalf("expected pbft, got %s", algo)
	}
}

func TestSelectAlgorithm_PicksHotStuffForLargeSets(t *testing.T) {
	algo, err := SelectAlgorithm(model.ConsensusConfig{Algorithm: model.AlgorithmAuto}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if algo != model.AlgorithmHotStuff {
		t.Fatalf("expected hotstuff, got %s", algo)
	}
}

func TestEngine_PBFTFinalizesOnQuorum(t *testing.T) {
	e := New()
	votesCh := make(chan model.ConsensusVote, 4)
	votesCh <- vote("chain-1", "pass")
	votesCh <- vote("chain-2", "pass")
	votesCh <- vote("chain-3", "pass")
	votesCh <- vote("chain-4", "reject")

	inst, err := e.Run(context.Background(), "req-1",
		model.ConsensusConfig{Algorithm: model.AlgorithmPBFT},
		[]string{"chain-1", "chain-2", "chain-3", "chain-4"},
		time.Now().Add(2*time.Second), votesCh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.State != model.ConsensusFinalized {
		t.Fatalf("expected finalized, got %s", inst.State)
	}
	if inst.Result != "pass" {
		t.Fatalf("expected result 'pass', got %q", inst.Result)
	}
}

func TestEngine_DuplicateVoteFromSameVoterDoesNotAdvanceQuorum(t *testing.T) {
	e := New()
	votesCh := make(chan model.ConsensusVote, 3)
	votesCh <- vote("chain-1", "pass")
	votesCh <- vote("chain-1", "pass") // replay of chain-1's own vote
	votesCh <- vote("chain-2", "pass")

	// n=4 PBFT requires (4*2/3)+1 = 3 agreeing votes. Without voter
	// dedup, chain-1's replay would count twice and reach quorum with
	// only two distinct voters; with dedup it must time out instead.
	inst, err := e.Run(context.Background(), "req-dup",
		model.ConsensusConfig{Algorithm: model.AlgorithmPBFT},
		[]string{"chain-1", "chain-2", "chain-3", "chain-4"},
		time.Now().Add(100*time.Millisecond), votesCh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.State != model.ConsensusTimedOut {
		t.Fatalf("expected timed_out since only 2 distinct voters agreed, got %s", inst.State)
	}
	if len(inst.Votes) != 2 {
		t.Fatalf("expected the duplicate vote to be ignored, leaving 2 recorded votes, got %d", len(inst.Votes))
	}
}

func TestEngine_TimesOutWithoutQuorum(t *testing.T) {
	e := New()
	votesCh := make(chan model.ConsensusVote, 1)
	votesCh <- vote("chain-1", "pass")

	inst, err := e.Run(context.Background(), "req-2",
		model.ConsensusConfig{Algorithm: model.AlgorithmPBFT},
		[]string{"chain-1", "chain-2", "chain-3", "chain-4"},
		time.Now().Add(100*time.Millisecond), votesCh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.State != model.ConsensusTimedOut {
		t.Fatalf("expected timed_out, got %s", inst.State)
	}
}

func TestEngine_CancelMarksCanceled(t *testing.T) {
	e := New()
	ctx, cancel := context.WithCancel(context.Background())
	votesCh := make(chan model.ConsensusVote)

	done := make(chan model.ConsensusInstance, 1)
	go func() {
		inst, _ := e.Run(ctx, "req-3", model.ConsensusConfig{Algorithm: model.AlgorithmPBFT},
			[]string{"chain-1", "chain-2"}, time.Now().Add(5*time.Second), votesCh)
		done <- inst
	}()

	cancel()
	select {
	case inst := <-done:
		if inst.State != model.ConsensusCanceled {
			t.Fatalf("expected canceled, got %s", inst.State)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for canceled instance")
	}
}

func TestEngine_SimpleMajorityForSingleChain(t *testing.T) {
	e := New()
	votesCh := make(chan model.ConsensusVote, 1)
	votesCh <- vote("chain-1", "pass")

	inst, err := e.Run(context.Background(), "req-4",
		model.ConsensusConfig{Algorithm: model.AlgorithmSimpleMajority},
		[]string{"chain-1"}, time.Now().Add(time.Second), votesCh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.State != model.ConsensusFinalized || inst.Result != "pass" {
		t.Fatalf("expected finalized/pass, got %s/%q", inst.State, inst.Result)
	}
}

func TestEngine_WeightedRequiresThresholdFraction(t *testing.T) {
	e := New()
	votesCh := make(chan model.ConsensusVote, 3)
	votesCh <- model.ConsensusVote{VoterChain: "a", Value: "pass", Weight: 3}
	votesCh <- model.ConsensusVote{VoterChain: "b", Value: "reject", Weight: 1}
	votesCh <- model.ConsensusVote{VoterChain: "c", Value: "pass", Weight: 1}

	inst, err := e.Run(context.Background(), "req-5",
		model.ConsensusConfig{Algorithm: model.AlgorithmWeighted, Threshold: 0.66},
		[]string{"a", "b", "c"}, time.Now().Add(2*time.Second), votesCh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.State != model.ConsensusFinalized || inst.Result != "pass" {
		t.Fatalf("expected finalized/pass, got %s/%q", inst.State, inst.Result)
	}
}

// TestEngine_WeightedDissenterReputationDrops pins §8 scenario 5: 4 chains,
// one returns the opposite verdict; PBFT-style majority still decides, and
// the dissenter's reputation must drop by the disagree delta while the
// agreeing voters' reputation rises by the agree delta.
func TestEngine_WeightedDissenterReputationDrops(t *testing.T) {
	e := New()
	votesCh := make(chan model.ConsensusVote, 4)
	votesCh <- model.ConsensusVote{VoterChain: "chain-1", Value: "pass", Weight: 1}
	votesCh <- model.ConsensusVote{VoterChain: "chain-2", Value: "pass", Weight: 1}
	votesCh <- model.ConsensusVote{VoterChain: "chain-3", Value: "pass", Weight: 1}
	votesCh <- model.ConsensusVote{VoterChain: "chain-4", Value: "reject", Weight: 1}

	inst, err := e.Run(context.Background(), "req-6",
		model.ConsensusConfig{Algorithm: model.AlgorithmWeighted, Threshold: 0.66},
		[]string{"chain-1", "chain-2", "chain-3", "chain-4"},
		time.Now().Add(2*time.Second), votesCh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.State != model.ConsensusFinalized || inst.Result != "pass" {
		t.Fatalf("expected finalized/pass, got %s/%q", inst.State, inst.Result)
	}

	if got := e.ReputationBonus("chain-4"); got != -reputationDisagreeDelta {
		t.Fatalf("expected dissenter bonus %v, got %v", -reputationDisagreeDelta, got)
	}
	for _, agreer := range []string{"chain-1", "chain-2", "chain-3"} {
		if got := e.ReputationBonus(agreer); got != reputationAgreeDelta {
			t.Fatalf("expected %s bonus %v, got %v", agreer, reputationAgreeDelta, got)
		}
	}
}

// TestEngine_WeightedReputationBoundedAndDecays exercises the +/-20% cap
// and the per-round decay applied to a participant who sits a round out.
func TestEngine_WeightedReputationBoundedAndDecays(t *testing.T) {
	e := New()

	// Drive enough decided rounds that chain-2's repeated disagreement
	// would overshoot -20% without clamping.
	for i := 0; i < 5; i++ {
		votesCh := make(chan model.ConsensusVote, 2)
		votesCh <- model.ConsensusVote{VoterChain: "chain-1", Value: "pass", Weight: 3}
		votesCh <- model.ConsensusVote{VoterChain: "chain-2", Value: "reject", Weight: 1}
		_, err := e.Run(context.Background(), fmt.Sprintf("req-bound-%d", i),
			model.ConsensusConfig{Algorithm: model.AlgorithmWeighted, Threshold: 0.5},
			[]string{"chain-1", "chain-2"}, time.Now().Add(2*time.Second), votesCh)
		if err != nil {
			t.Fatalf("round %d: unexpected error: %v", i, err)
		}
	}
	if got := e.ReputationBonus("chain-2"); got != -reputationBonusCap {
		t.Fatalf("expected chain-2 bonus clamped at %v, got %v", -reputationBonusCap, got)
	}

	// A round chain-3 sits out entirely should decay it back toward zero.
	votesCh := make(chan model.ConsensusVote, 1)
	votesCh <- model.ConsensusVote{VoterChain: "chain-1", Value: "pass", Weight: 1}
	e.reputation.bonus["chain-3"] = 0.10
	_, err := e.Run(context.Background(), "req-decay",
		model.ConsensusConfig{Algorithm: model.AlgorithmWeighted, Threshold: 0.5},
		[]string{"chain-1", "chain-3"}, time.Now().Add(2*time.Second), votesCh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := e.ReputationBonus("chain-3"); got != 0.09 {
		t.Fatalf("expected chain-3 bonus decayed to 0.09, got %v", got)
	}
}
