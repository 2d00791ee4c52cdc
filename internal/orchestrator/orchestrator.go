// Package orchestrator implements the verification orchestrator (C12): the
// single entry point that runs the 8-step pipeline described in §4.12,
// wiring together the defect detector, oracle aggregator, trust scorer,
// commitment/proof generator, chain adapters, bridge broker, consensus
// engine, and threshold signature manager. Grounded on the teacher's
// top-level wiring shape (one component owns no other component's state;
// everything is passed in at construction) rather than any single teacher
// file, since C12 has no direct teacher analogue.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lamassu-labs/trustwrapper/internal/bridge"
	"github.com/lamassu-labs/trustwrapper/internal/chainops"
	"github.com/lamassu-labs/trustwrapper/internal/commitment"
	"github.com/lamassu-labs/trustwrapper/internal/connpool"
	"github.com/lamassu-labs/trustwrapper/internal/consensus"
	"github.com/lamassu-labs/trustwrapper/internal/detect"
	"github.com/lamassu-labs/trustwrapper/internal/model"
	"github.com/lamassu-labs/trustwrapper/internal/oracle"
	"github.com/lamassu-labs/trustwrapper/internal/score"
	"github.com/lamassu-labs/trustwrapper/internal/threshold"
)

// canonicalCBOR is the deterministic encode mode required by §6's "Unknown
// schema versions are rejected" / canonical-CBOR wire format.
var canonicalCBOR = func() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("orchestrator: building canonical CBOR encode mode: %v", err))
	}
	return mode
}()

// chainSubmission is the mandatory §6 per-chain wire payload.
type chainSubmission struct {
	RequestID    string `cbor:"request_id"`
	Commitment   []byte `cbor:"commitment"`
	ProofScheme  string `cbor:"proof_scheme"`
	ProofBytes   []byte `cbor:"proof_bytes"`
	Verdict      string `cbor:"verdict"`
	ScoreFP6     uint32 `cbor:"score_fp6"`
	IssuerPubkey []byte `cbor:"issuer_pubkey"`
}

// Orchestrator wires every other component into the C12 pipeline. Nothing
// here owns the components' internal state; it only sequences calls across
// them, matching §5's "no shared mutable state exposed across components."
type Orchestrator struct {
	detector   *detect.Registry
	aggregator *oracle.Aggregator
	commitGen  *commitment.Generator
	pool       *connpool.Manager
	broker     *bridge.Broker
	engine     *consensus.Engine
	thresholds *threshold.Manager

	issuerPubkey []byte
	logger       *log.Logger
}

// New builds an Orchestrator from its already-constructed dependencies.
// issuerPubkey is embedded verbatim in every per-chain wire submission
// (§6's mandatory issuer_pubkey field); it may be nil if the deployment has
// no single signing identity.
func New(
	detector *detect.Registry,
	aggregator *oracle.Aggregator,
	commitGen *commitment.Generator,
	pool *connpool.Manager,
	broker *bridge.Broker,
	engine *consensus.Engine,
	thresholds *threshold.Manager,
	issuerPubkey []byte,
	logger *log.Logger,
) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[Orchestrator] ", log.LstdFlags)
	}
	return &Orchestrator{
		detector:     detector,
		aggregator:   aggregator,
		commitGen:    commitGen,
		pool:         pool,
		broker:       broker,
		engine:       engine,
		thresholds:   thresholds,
		issuerPubkey: issuerPubkey,
		logger:       logger,
	}
}

// Verify runs the 8-step pipeline from §4.12 against one artifact and
// returns its VerificationResult.
func (o *Orchestrator) Verify(ctx context.Context, artifact *model.Artifact, vctx model.VerificationContext, policy model.VerificationPolicy) (model.VerificationResult, error) {
	requestID := consensus.GenerateRequestID("verify", uuid.NewString(), uint64(time.Now().UnixNano()))

	// Step 1: defect detection.
	issues, err := o.detector.Detect(artifact, vctx)
	if err != nil {
		return model.VerificationResult{RequestID: requestID}, model.NewError(model.ErrInvalidArtifact, err)
	}

	// Step 2: derive oracle queries from the evidence requirements and run C2.
	oracleEvidence, evidenceRefs := o.gatherOracleEvidence(ctx, vctx)

	// Step 3: trust score.
	trustScore := score.Score(issues, oracleEvidence, evidenceRefs)

	// Step 4: commitment and proof.
	nonce, err := commitment.NewNonce()
	if err != nil {
		return model.VerificationResult{RequestID: requestID}, model.NewError(model.ErrCommitmentFailure, err)
	}
	issueDigests := make([][32]byte, len(issues))
	for i, iss := range issues {
		issueDigests[i] = commitment.IssueDigest(iss)
	}
	commitInput := commitment.CommitInput{
		ArtifactDigest: commitment.ArtifactDigestOf(*artifact),
		Score:          trustScore.Score,
		IssueDigests:   issueDigests,
		EvidenceRefs:   evidenceRefs,
		Timestamp:      time.Now(),
		Nonce:          nonce,
	}
	commit := o.commitGen.Commit(commitInput)
	proof, err := o.commitGen.Prove(commitInput, commit)
	if err != nil {
		return model.VerificationResult{RequestID: requestID}, model.NewError(model.ErrProofFailure, err)
	}

	deadline := policy.Deadline
	if deadline.IsZero() {
		deadline = time.Now().Add(30 * time.Second)
	}

	// Step 5: construct the VerificationRequest and dispatch to C8/C6.
	req := model.VerificationRequest{
		RequestID:           requestID,
		ArtifactRef:         requestID,
		Commitment:          commit,
		Proof:               proof,
		ParticipatingChains: policy.TargetChains,
		ConsensusConfig: model.ConsensusConfig{
			Algorithm:          policy.ConsensusAlgorithm,
			Threshold:          0.67,
			ThresholdSignature: policy.ThresholdSignatureGroup,
		},
		Deadline: deadline,
	}
	if req.ConsensusConfig.Algorithm == "" {
		req.ConsensusConfig.Algorithm = model.AlgorithmAuto
	}

	votesCh := make(chan model.ConsensusVote, max(1, len(policy.TargetChains)))
	var receiptsMu sync.Mutex
	var receipts []model.ChainVerificationResult

	g, gctx := errgroup.WithContext(ctx)
	for _, chain := range policy.TargetChains {
		chain := chain
		g.Go(func() error {
			receipt := o.verifyOnChain(gctx, chain, req, trustScore)
			receiptsMu.Lock()
			receipts = append(receipts, receipt)
			receiptsMu.Unlock()
			select {
			case votesCh <- voteFromReceipt(requestID, chain, receipt):
			case <-gctx.Done():
			}
			return nil
		})
	}
	go func() {
		g.Wait()
		close(votesCh)
	}()

	// Step 6: run consensus.
	inst, err := o.engine.Run(ctx, requestID, req.ConsensusConfig, policy.TargetChains, deadline, votesCh)
	if err != nil {
		return model.VerificationResult{RequestID: requestID}, model.NewError(model.ErrConsensusTimeout, err)
	}

	if inst.State == model.ConsensusCanceled {
		receiptsMu.Lock()
		partial := append([]model.ChainVerificationResult(nil), receipts...)
		receiptsMu.Unlock()
		// Chain submissions already in flight are not reversed; whatever
		// receipts arrived before cancellation are retained on the result.
		return model.VerificationResult{RequestID: requestID, ChainReceipts: partial, Err: "canceled"}, model.NewError(model.ErrCanceled, ctx.Err())
	}

	finalVerdict := trustScore.Verdict
	consensusStats := consensus.Stats(inst)
	timedOut := inst.State == model.ConsensusTimedOut
	if timedOut {
		finalVerdict = model.VerdictBorderline
		consensusStats.TimedOut = true
	}

	result := model.VerificationResult{
		RequestID:       requestID,
		FinalVerdict:    finalVerdict,
		AggregatedScore: trustScore.Score,
		ChainReceipts:   receipts,
		ConsensusStats:  consensusStats,
	}

	// Step 7: optional threshold signature over the finalized result.
	if inst.State == model.ConsensusFinalized && policy.ThresholdSignatureGroup != nil {
		sig, err := o.signResult(requestID, result, *policy.ThresholdSignatureGroup)
		if err != nil {
			result.Err = err.Error()
		} else {
			result.Signature = sig
		}
	}

	// Step 8: return. Timed-out instances already carry the borderline
	// verdict and TimedOut flag set above.
	return result, nil
}

// gatherOracleEvidence runs C2 once per evidence requirement, tolerating
// individual query failures (an unreachable oracle type degrades the
// evidence set rather than failing verification outright, per §7).
func (o *Orchestrator) gatherOracleEvidence(ctx context.Context, vctx model.VerificationContext) ([]model.OracleConsensus, []string) {
	var evidence []model.OracleConsensus
	var refs []string
	for _, q := range vctx.EvidenceRequirements {
		oc, err := o.aggregator.Query(ctx, q)
		if err != nil {
			o.logger.Printf("oracle query %s failed: %v", q.QueryID, err)
			continue
		}
		evidence = append(evidence, oc)
		refs = append(refs, q.QueryID)
	}
	return evidence, refs
}

// verifyOnChain submits the wire payload over C8 and asks C6's adapter to
// locally re-verify, producing one ChainVerificationResult.
func (o *Orchestrator) verifyOnChain(ctx context.Context, chain string, req model.VerificationRequest, ts model.TrustScore) model.ChainVerificationResult {
	adapter, ok := o.pool.Get(chain)
	if !ok {
		return model.ChainVerificationResult{ChainType: chain, Status: model.ChainStatusError, Err: chainops.ErrDisconnected.Error()}
	}

	payload, err := o.wirePayload(req, ts)
	if err != nil {
		return model.ChainVerificationResult{ChainType: chain, Status: model.ChainStatusError, Err: err.Error()}
	}

	if _, err := o.broker.Send(model.MsgVerificationRequest, "orchestrator", chain, payload, 5, time.Until(req.Deadline)); err != nil {
		o.logger.Printf("bridge dispatch to %s failed: %v", chain, err)
	}

	result, err := adapter.VerifyAIOutput(ctx, req.RequestID, payload, ts.Score)
	if err != nil {
		return model.ChainVerificationResult{ChainType: chain, Status: model.ChainStatusError, Err: err.Error()}
	}
	return result
}

// wirePayload builds the mandatory §6 per-chain submission and encodes it
// as canonical CBOR.
func (o *Orchestrator) wirePayload(req model.VerificationRequest, ts model.TrustScore) ([]byte, error) {
	sub := chainSubmission{
		RequestID:    req.RequestID,
		Commitment:   req.Commitment.Digest[:],
		ProofScheme:  string(req.Proof.Scheme),
		ProofBytes:   req.Proof.Blob,
		Verdict:      string(ts.Verdict),
		ScoreFP6:     commitment.ScoreFixedPoint(ts.Score),
		IssuerPubkey: o.issuerPubkey,
	}
	return canonicalCBOR.Marshal(sub)
}

// voteFromReceipt derives a ConsensusVote from a chain's local re-check.
func voteFromReceipt(requestID, chain string, r model.ChainVerificationResult) model.ConsensusVote {
	return model.ConsensusVote{
		VoteID:     uuid.NewString(),
		RequestID:  requestID,
		VoterChain: chain,
		Value:      string(r.Status),
		Confidence: r.Confidence,
		Weight:     1.0,
		Timestamp:  time.Now(),
	}
}

// signResult threshold-signs the finalized VerificationResult's request id
// and aggregated verdict using the pre-configured validator group, as step
// 7 of §4.12 describes. Callers must have already driven enough
// CreatePartialSignature calls into the named group out of band (signers
// run independently of the orchestrator); Verify only attempts TryCombine.
func (o *Orchestrator) signResult(requestID string, result model.VerificationResult, group model.ThresholdSignatureRequest) (*model.ThresholdSignature, error) {
	message := []byte(fmt.Sprintf("%s:%s:%d", requestID, result.FinalVerdict, int64(result.AggregatedScore*1e6)))
	hash := threshold.HashMessage(message)
	sig, err := o.thresholds.TryCombine(group.GroupID, hash)
	if err != nil {
		return nil, fmt.Errorf("threshold combine: %w", err)
	}
	if sig == nil {
		return nil, fmt.Errorf("threshold: insufficient partial signatures for group %s", group.GroupID)
	}
	return sig, nil
}
