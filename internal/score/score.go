// Package score implements the trust scorer (C4), combining C3's issues and
// C2's oracle evidence into a TrustScore. Grounded on
// BasicTrustScorer.calculate_trust_score, generalized with the oracle
// evidence penalty and the full §3 verdict thresholds.
package score

import (
	"sort"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// Penalties is the design-default penalty table from §4.4.
var Penalties = map[model.IssueKind]float64{
	model.IssueTemporalImpossibility:  0.40,
	model.IssueStatisticalFabrication: 0.30,
	model.IssueNonexistentAPI:         0.30,
	model.IssueOverconfidence:         0.20,
	model.IssuePolicyViolation:        0.50,
	model.IssueOracleDeviation:        0.15,
	model.IssueOther:                  0.10,
}

// OracleConsensusPenalty is subtracted once when any oracle evidence
// disagrees with a claim (consensus_achieved == false).
const OracleConsensusPenalty = 0.15

// Score implements C4's algorithm exactly as specified: start at 1.0,
// subtract penalty(kind)*confidence per issue, subtract the oracle penalty
// once if any contributing oracle evidence failed consensus, clamp to
// [0,1], and map to a verdict.
func Score(issues []model.Issue, oracleEvidence []model.OracleConsensus, evidenceRefs []string) model.TrustScore {
	s := 1.0
	for _, issue := range issues {
		p, ok := Penalties[issue.Kind]
		if !ok {
			p = Penalties[model.IssueOther]
		}
		s -= p * issue.Confidence
	}

	for _, oc := range oracleEvidence {
		if !oc.ConsensusAchieved {
			s -= OracleConsensusPenalty
			break
		}
	}

	if s < 0 {
		s = 0
	}
	if s > 1 {
		s = 1
	}

	sortedIssues := make([]model.Issue, len(issues))
	copy(sortedIssues, issues)
	sort.SliceStable(sortedIssues, func(i, j int) bool {
		return model.SeverityRank(sortedIssues[i].Kind) < model.SeverityRank(sortedIssues[j].Kind)
	})

	return model.TrustScore{
		Score:        s,
		Verdict:      model.VerdictFromScore(s),
		Issues:       sortedIssues,
		EvidenceRefs: evidenceRefs,
	}
}
