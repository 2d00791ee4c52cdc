package score

import (
	"math"
	"testing"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestScore_NoIssues(t *testing.T) {
	ts := Score(nil, nil, nil)
	if !almostEqual(ts.Score, 1.0) || ts.Verdict != model.VerdictPass {
		t.Fatalf("expected score 1.0 pass, got %+v", ts)
	}
}

func TestScore_FutureEventClaim(t *testing.T) {
	issues := []model.Issue{{Kind: model.IssueTemporalImpossibility, Confidence: 0.9}}
	ts := Score(issues, nil, nil)
	want := 1 - 0.40*0.9
	if !almostEqual(ts.Score, want) {
		t.Fatalf("expected score %.4f, got %.4f", want, ts.Score)
	}
	if ts.Verdict != model.VerdictBorderline {
		t.Fatalf("expected borderline, got %s", ts.Verdict)
	}
}

func TestScore_FabricatedPrecisionWithOracleFailure(t *testing.T) {
	issues := []model.Issue{{Kind: model.IssueStatisticalFabrication, Confidence: 0.85}}
	withoutOracle := Score(issues, nil, nil)
	wantWithout := 1 - 0.30*0.85
	if !almostEqual(withoutOracle.Score, wantWithout) {
		t.Fatalf("expected %.4f, got %.4f", wantWithout, withoutOracle.Score)
	}
	if withoutOracle.Verdict != model.VerdictPass {
		t.Fatalf("expected pass, got %s", withoutOracle.Verdict)
	}

	withOracle := Score(issues, []model.OracleConsensus{{ConsensusAchieved: false}}, nil)
	wantWith := wantWithout - 0.15
	if !almostEqual(withOracle.Score, wantWith) {
		t.Fatalf("expected %.4f, got %.4f", wantWith, withOracle.Score)
	}
	if withOracle.Verdict != model.VerdictBorderline {
		t.Fatalf("expected borderline, got %s", withOracle.Verdict)
	}
}

func TestScore_ClampsToZero(t *testing.T) {
	issues := []model.Issue{
		{Kind: model.IssuePolicyViolation, Confidence: 1},
		{Kind: model.IssuePolicyViolation, Confidence: 1},
		{Kind: model.IssuePolicyViolation, Confidence: 1},
	}
	ts := Score(issues, nil, nil)
	if ts.Score != 0 {
		t.Fatalf("expected clamped 0, got %f", ts.Score)
	}
	if ts.Verdict != model.VerdictReject {
		t.Fatalf("expected reject, got %s", ts.Verdict)
	}
}

func TestScore_SortsIssuesBySeverity(t *testing.T) {
	issues := []model.Issue{
		{Kind: model.IssueOther, Confidence: 0.1},
		{Kind: model.IssueTemporalImpossibility, Confidence: 0.1},
		{Kind: model.IssueStatisticalFabrication, Confidence: 0.1},
	}
	ts := Score(issues, nil, nil)
	if ts.Issues[0].Kind != model.IssueTemporalImpossibility {
		t.Fatalf("expected temporal first, got %v", ts.Issues)
	}
	if ts.Issues[1].Kind != model.IssueStatisticalFabrication {
		t.Fatalf("expected statistical second, got %v", ts.Issues)
	}
}
