// Package model holds the shared data types passed between trustwrapper
// components. None of these types carry behavior beyond small invariant
// checks; the components in internal/* own the operations over them.
package model

import "time"

// ArtifactType is the closed set of artifact descriptors from the data model.
type ArtifactType string

const (
	ArtifactText          ArtifactType = "text"
	ArtifactDecision      ArtifactType = "decision"
	ArtifactMetricClaim   ArtifactType = "metric_claim"
	ArtifactTransaction   ArtifactType = "transaction"
)

// Artifact is opaque bytes plus a typed descriptor. Immutable once built.
type Artifact struct {
	Type ArtifactType `json:"type" cbor:"type"`
	Data []byte       `json:"data" cbor:"data"`
}

// IssueKind is the closed set of defect kinds C3 may emit.
type IssueKind string

const (
	IssueTemporalImpossibility  IssueKind = "temporal_impossibility"
	IssueStatisticalFabrication IssueKind = "statistical_fabrication"
	IssueOverconfidence         IssueKind = "overconfidence"
	IssueNonexistentAPI         IssueKind = "nonexistent_api"
	IssuePolicyViolation        IssueKind = "policy_violation"
	IssueOracleDeviation        IssueKind = "oracle_deviation"
	IssueOther                  IssueKind = "other"
)

// severityRank orders issue kinds for the TrustScore tie-break rule:
// temporal > statistical > overconfidence > other.
var severityRank = map[IssueKind]int{
	IssueTemporalImpossibility:  0,
	IssueStatisticalFabrication: 1,
	IssueOverconfidence:         2,
	IssueNonexistentAPI:         3,
	IssuePolicyViolation:        4,
	IssueOracleDeviation:        5,
	IssueOther:                  6,
}

// SeverityRank returns the tie-break ordinal for k; lower sorts first.
func SeverityRank(k IssueKind) int {
	if r, ok := severityRank[k]; ok {
		return r
	}
	return len(severityRank)
}

// Issue is created by C3 and never mutated afterwards.
type Issue struct {
	Kind       IssueKind `json:"kind" cbor:"kind"`
	Confidence float64   `json:"confidence" cbor:"confidence"`
	Location   string    `json:"location,omitempty" cbor:"location,omitempty"`
	Evidence   string    `json:"evidence,omitempty" cbor:"evidence,omitempty"`
}

// Digest is a content address, typically SHA-256, sometimes BLAKE2b.
type Digest [32]byte

// Verdict is the closed set of trust outcomes.
type Verdict string

const (
	VerdictPass       Verdict = "pass"
	VerdictBorderline Verdict = "borderline"
	VerdictReject     Verdict = "reject"
)

// VerdictFromScore applies the §3 thresholds.
func VerdictFromScore(score float64) Verdict {
	switch {
	case score >= 0.7:
		return VerdictPass
	case score >= 0.5:
		return VerdictBorderline
	default:
		return VerdictReject
	}
}

// TrustScore is produced by C4 and consumed by C5.
type TrustScore struct {
	Score        float64  `json:"score" cbor:"score"`
	Verdict      Verdict  `json:"verdict" cbor:"verdict"`
	Issues       []Issue  `json:"issues" cbor:"issues"`
	EvidenceRefs []string `json:"evidence_refs" cbor:"evidence_refs"`
}

// OracleDataType is the closed set of external evidence kinds.
type OracleDataType string

const (
	OracleTypePrice   OracleDataType = "price"
	OracleTypeWeather OracleDataType = "weather"
	OracleTypeSports  OracleDataType = "sports"
	OracleTypeCustom  OracleDataType = "custom"
)

// OracleDataPoint is what an adapter returns for a query.
type OracleDataPoint struct {
	OracleID      string                 `json:"oracle_id" cbor:"oracle_id"`
	Type          OracleDataType         `json:"type" cbor:"type"`
	Value         float64                `json:"value" cbor:"value"`
	StringValue   string                 `json:"string_value,omitempty" cbor:"string_value,omitempty"`
	Timestamp     time.Time              `json:"timestamp" cbor:"timestamp"`
	Confidence    float64                `json:"confidence" cbor:"confidence"`
	SourceAddress string                 `json:"source_address" cbor:"source_address"`
	Metadata      map[string]interface{} `json:"metadata,omitempty" cbor:"metadata,omitempty"`
}

// OracleQuery is a typed request to the aggregator.
type OracleQuery struct {
	QueryID    string                 `json:"query_id" cbor:"query_id"`
	Type       OracleDataType         `json:"type" cbor:"type"`
	Parameters map[string]interface{} `json:"parameters,omitempty" cbor:"parameters,omitempty"`
	Timeout    time.Duration          `json:"timeout" cbor:"timeout"`
}

// OracleConsensus is C2's result for one query.
type OracleConsensus struct {
	Query             OracleQuery       `json:"query" cbor:"query"`
	Value             float64           `json:"value" cbor:"value"`
	StringValue       string            `json:"string_value,omitempty" cbor:"string_value,omitempty"`
	Confidence        float64           `json:"confidence" cbor:"confidence"`
	ConsensusAchieved bool              `json:"consensus_achieved" cbor:"consensus_achieved"`
	MaxDeviation      float64           `json:"max_deviation" cbor:"max_deviation"`
	Contributing      []OracleDataPoint `json:"contributing" cbor:"contributing"`
}

// Commitment is the 32-byte digest binding inputs to a verdict.
type Commitment struct {
	Digest Digest `json:"digest" cbor:"digest"`
	Nonce  [32]byte `json:"nonce" cbor:"nonce"`
}

// ProofScheme identifies the pluggable proof backend.
type ProofScheme string

const (
	ProofSchemeHash   ProofScheme = "hash"
	ProofSchemeMerkle ProofScheme = "merkle"
	ProofSchemeSNARK  ProofScheme = "snark"
)

// Proof is an opaque blob verifiable without private inputs.
type Proof struct {
	Scheme        ProofScheme            `json:"scheme" cbor:"scheme"`
	Blob          []byte                 `json:"blob" cbor:"blob"`
	PublicInputs  map[string]interface{} `json:"public_inputs,omitempty" cbor:"public_inputs,omitempty"`
	Commitment    Commitment             `json:"commitment" cbor:"commitment"`
}

// ConsensusAlgorithm is the closed set of selectable consensus algorithms.
type ConsensusAlgorithm string

const (
	AlgorithmAuto           ConsensusAlgorithm = "auto"
	AlgorithmPBFT           ConsensusAlgorithm = "pbft"
	AlgorithmHotStuff       ConsensusAlgorithm = "hotstuff"
	AlgorithmWeighted       ConsensusAlgorithm = "weighted"
	AlgorithmSimpleMajority ConsensusAlgorithm = "simple_majority"
)

// ConsensusConfig is the policy portion of a VerificationRequest.
type ConsensusConfig struct {
	Algorithm          ConsensusAlgorithm          `json:"algorithm" cbor:"algorithm"`
	Threshold          float64                     `json:"threshold" cbor:"threshold"`
	ThresholdSignature *ThresholdSignatureRequest  `json:"threshold_signature,omitempty" cbor:"threshold_signature,omitempty"`
}

// ThresholdSignatureRequest names the pre-configured validator group to use.
type ThresholdSignatureRequest struct {
	Scheme  SignatureScheme `json:"scheme" cbor:"scheme"`
	GroupID string          `json:"group_id" cbor:"group_id"`
	T       int             `json:"t" cbor:"t"`
	N       int             `json:"n" cbor:"n"`
}

// VerificationRequest is owned end-to-end by C12.
type VerificationRequest struct {
	RequestID          string          `json:"request_id" cbor:"request_id"`
	ArtifactRef        string          `json:"artifact_ref" cbor:"artifact_ref"`
	Commitment         Commitment      `json:"commitment" cbor:"commitment"`
	Proof              Proof           `json:"proof" cbor:"proof"`
	ParticipatingChains []string       `json:"participating_chains" cbor:"participating_chains"`
	ConsensusConfig    ConsensusConfig `json:"consensus_config" cbor:"consensus_config"`
	Deadline           time.Time       `json:"deadline" cbor:"deadline"`
}

// ConsensusStats summarizes how a ConsensusInstance concluded.
type ConsensusStats struct {
	Algorithm     ConsensusAlgorithm `json:"algorithm" cbor:"algorithm"`
	VotesReceived int                `json:"votes_received" cbor:"votes_received"`
	VotesExpected int                `json:"votes_expected" cbor:"votes_expected"`
	TimedOut      bool               `json:"timed_out" cbor:"timed_out"`
	DurationMS    int64              `json:"duration_ms" cbor:"duration_ms"`
}

// VerificationResult is C12's return value.
type VerificationResult struct {
	RequestID       string                    `json:"request_id" cbor:"request_id"`
	FinalVerdict    Verdict                   `json:"final_verdict" cbor:"final_verdict"`
	AggregatedScore float64                   `json:"aggregated_score" cbor:"aggregated_score"`
	ChainReceipts   []ChainVerificationResult `json:"chain_receipts" cbor:"chain_receipts"`
	Signature       *ThresholdSignature       `json:"signature,omitempty" cbor:"signature,omitempty"`
	ConsensusStats  ConsensusStats            `json:"consensus_stats" cbor:"consensus_stats"`
	Err             string                    `json:"error,omitempty" cbor:"error,omitempty"`
}

// ChainMetrics is the per-chain health snapshot returned by an adapter.
type ChainMetrics struct {
	ChainID     string    `json:"chain_id" cbor:"chain_id"`
	BlockHeight uint64    `json:"block_height" cbor:"block_height"`
	BlockTimeS  float64   `json:"block_time_s" cbor:"block_time_s"`
	GasOrFee    float64   `json:"gas_or_fee" cbor:"gas_or_fee"`
	FinalityS   float64   `json:"finality_s" cbor:"finality_s"`
	LastUpdated time.Time `json:"last_updated" cbor:"last_updated"`
}

// ChainVerificationStatus is the closed set of per-chain check-verdicts.
type ChainVerificationStatus string

const (
	ChainStatusVerified ChainVerificationStatus = "verified"
	ChainStatusPending  ChainVerificationStatus = "pending"
	ChainStatusRejected ChainVerificationStatus = "rejected"
	ChainStatusError    ChainVerificationStatus = "error"
)

// ChainVerificationResult is a single chain's local re-check outcome.
type ChainVerificationResult struct {
	ChainType     string                  `json:"chain_type" cbor:"chain_type"`
	TxHash        string                  `json:"tx_hash,omitempty" cbor:"tx_hash,omitempty"`
	BlockNumber   uint64                  `json:"block_number,omitempty" cbor:"block_number,omitempty"`
	Status        ChainVerificationStatus `json:"status" cbor:"status"`
	Confidence    float64                 `json:"confidence" cbor:"confidence"`
	GasUsed       uint64                  `json:"gas_used" cbor:"gas_used"`
	ExecutionTime time.Duration           `json:"execution_time" cbor:"execution_time"`
	Err           string                  `json:"error,omitempty" cbor:"error,omitempty"`
}

// VerificationStats accumulates on a chain adapter over its lifetime.
type VerificationStats struct {
	Total      uint64  `json:"total" cbor:"total"`
	Successful uint64  `json:"successful" cbor:"successful"`
	Failed     uint64  `json:"failed" cbor:"failed"`
	AvgFee     float64 `json:"avg_fee" cbor:"avg_fee"`
}

// BridgeMessageType is the closed set of inter-chain message kinds.
type BridgeMessageType string

const (
	MsgVerificationRequest  BridgeMessageType = "verification_request"
	MsgVerificationResponse BridgeMessageType = "verification_response"
	MsgConsensusVote        BridgeMessageType = "consensus_vote"
	MsgConsensusResult      BridgeMessageType = "consensus_result"
	MsgHealthCheck          BridgeMessageType = "health_check"
	MsgSync                 BridgeMessageType = "sync"
)

// BridgeMessageStatus is the closed set of delivery states.
type BridgeMessageStatus string

const (
	BridgeStatusPending     BridgeMessageStatus = "pending"
	BridgeStatusTransmitted BridgeMessageStatus = "transmitted"
	BridgeStatusConfirmed   BridgeMessageStatus = "confirmed"
	BridgeStatusFailed      BridgeMessageStatus = "failed"
	BridgeStatusTimeout     BridgeMessageStatus = "timeout"
)

// SchemaVersion is embedded in every BridgeMessage for forward compatibility.
const SchemaVersion = 1

// BridgeMessage is a single typed inter-chain message, owned in-flight by C8.
type BridgeMessage struct {
	MessageID     string              `json:"message_id" cbor:"message_id"`
	SchemaVersion int                 `json:"schema_version" cbor:"schema_version"`
	Type          BridgeMessageType   `json:"type" cbor:"type"`
	SourceChain   string              `json:"source_chain" cbor:"source_chain"`
	TargetChain   string              `json:"target_chain" cbor:"target_chain"`
	Payload       []byte              `json:"payload" cbor:"payload"`
	Priority      int                 `json:"priority" cbor:"priority"`
	RetryCount    int                 `json:"retry_count" cbor:"retry_count"`
	MaxRetries    int                 `json:"max_retries" cbor:"max_retries"`
	Status        BridgeMessageStatus `json:"status" cbor:"status"`
	CreatedAt     time.Time           `json:"created_at" cbor:"created_at"`
	Deadline      time.Time           `json:"deadline" cbor:"deadline"`
}

// BridgeRoute is the C8 routing-table entry for an ordered chain pair.
type BridgeRoute struct {
	SourceChain    string  `json:"source_chain" cbor:"source_chain"`
	TargetChain    string  `json:"target_chain" cbor:"target_chain"`
	HealthScore    float64 `json:"health_score" cbor:"health_score"`
	LatencyMS      float64 `json:"latency_ms" cbor:"latency_ms"`
	ThroughputMsgS float64 `json:"throughput_msg_s" cbor:"throughput_msg_s"`
	Reliability    float64 `json:"reliability" cbor:"reliability"`
	Active         bool    `json:"active" cbor:"active"`
}

// RouteID is the canonical identifier linking a BridgeRoute to BridgeMetrics.
func RouteID(source, target string) string {
	return source + "_" + target
}

// BridgeMetrics is C11's per-route monitoring sample, keyed by RouteID.
type BridgeMetrics struct {
	RouteID               string    `json:"route_id" cbor:"route_id"`
	TotalMessages         uint64    `json:"total_messages" cbor:"total_messages"`
	SuccessfulMessages    uint64    `json:"successful_messages" cbor:"successful_messages"`
	FailedMessages        uint64    `json:"failed_messages" cbor:"failed_messages"`
	AverageLatencyMS      float64   `json:"average_latency_ms" cbor:"average_latency_ms"`
	ThroughputMsgPerSec   float64   `json:"throughput_msg_per_sec" cbor:"throughput_msg_per_sec"`
	ErrorRate             float64   `json:"error_rate" cbor:"error_rate"`
	UptimePercentage      float64   `json:"uptime_percentage" cbor:"uptime_percentage"`
	HealthScore           float64   `json:"health_score" cbor:"health_score"`
	LastUpdated           time.Time `json:"last_updated" cbor:"last_updated"`
}

// ConsensusVote is a single validator's vote within a ConsensusInstance.
type ConsensusVote struct {
	VoteID     string    `json:"vote_id" cbor:"vote_id"`
	RequestID  string    `json:"request_id" cbor:"request_id"`
	VoterChain string    `json:"voter_chain" cbor:"voter_chain"`
	Value      string    `json:"value" cbor:"value"`
	Confidence float64   `json:"confidence" cbor:"confidence"`
	Weight     float64   `json:"weight" cbor:"weight"`
	Timestamp  time.Time `json:"timestamp" cbor:"timestamp"`
	Signature  []byte    `json:"signature,omitempty" cbor:"signature,omitempty"`
}

// ConsensusState is the closed set of ConsensusInstance lifecycle states.
type ConsensusState string

const (
	ConsensusCollecting    ConsensusState = "collecting"
	ConsensusQuorumReached ConsensusState = "quorum_reached"
	ConsensusFinalized     ConsensusState = "finalized"
	ConsensusTimedOut      ConsensusState = "timed_out"
	ConsensusCanceled      ConsensusState = "canceled"
)

// ConsensusInstance is a single run of a BFT algorithm for one request, owned by C9.
type ConsensusInstance struct {
	ConsensusID  string             `json:"consensus_id" cbor:"consensus_id"`
	Algorithm    ConsensusAlgorithm `json:"algorithm" cbor:"algorithm"`
	Participants []string           `json:"participants" cbor:"participants"`
	Votes        []ConsensusVote    `json:"votes" cbor:"votes"`
	State        ConsensusState     `json:"state" cbor:"state"`
	Result       string             `json:"result,omitempty" cbor:"result,omitempty"`
	StartedAt    time.Time          `json:"started_at" cbor:"started_at"`
	Deadline     time.Time          `json:"deadline" cbor:"deadline"`
}

// SignatureScheme is the closed set of threshold signature schemes.
type SignatureScheme string

const (
	SchemeBLS    SignatureScheme = "bls"
	SchemeSchnorr SignatureScheme = "schnorr"
	SchemeECDSA  SignatureScheme = "ecdsa"
)

// KeyShare is one signer's share of a t-of-n threshold key.
type KeyShare struct {
	ShareID            int             `json:"share_id" cbor:"share_id"`
	ShareValue         []byte          `json:"share_value" cbor:"share_value"`
	PublicCommitment   []byte          `json:"public_commitment" cbor:"public_commitment"`
	Threshold          int             `json:"threshold" cbor:"threshold"`
	Total              int             `json:"total" cbor:"total"`
	Scheme             SignatureScheme `json:"scheme" cbor:"scheme"`
	GroupPublicKey     []byte          `json:"group_public_key" cbor:"group_public_key"`
}

// PartialSignature is one signer's contribution toward a ThresholdSignature.
type PartialSignature struct {
	SignerID    int             `json:"signer_id" cbor:"signer_id"`
	ShareValue  []byte          `json:"share_value" cbor:"share_value"`
	MessageHash [32]byte        `json:"message_hash" cbor:"message_hash"`
	Scheme      SignatureScheme `json:"scheme" cbor:"scheme"`
}

// ThresholdSignature is the combined result of >= t valid partials.
type ThresholdSignature struct {
	Signature   []byte          `json:"signature" cbor:"signature"`
	Signers     []int           `json:"signers" cbor:"signers"`
	Threshold   int             `json:"threshold" cbor:"threshold"`
	MessageHash [32]byte        `json:"message_hash" cbor:"message_hash"`
	Scheme      SignatureScheme `json:"scheme" cbor:"scheme"`
}

// VerificationContext carries evidence requirements and the policy clock
// used by C3's temporal detector and C2's query derivation.
type VerificationContext struct {
	Clock                time.Time
	EvidenceRequirements []OracleQuery
	Allowlist            map[string]bool
	Denylist             map[string]bool
}

// VerificationPolicy is the caller-supplied §6 inbound-API policy.
type VerificationPolicy struct {
	TargetChains            []string
	ConsensusAlgorithm      ConsensusAlgorithm
	ThresholdSignatureGroup *ThresholdSignatureRequest
	ProofBackend            ProofScheme
	Deadline                time.Time
}
