package detect

import (
	"testing"
	"time"

	"github.com/lamassu-labs/trustwrapper/internal/model"
	"github.com/lamassu-labs/trustwrapper/internal/score"
)

func ctxAt(year int) model.VerificationContext {
	return model.VerificationContext{Clock: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestDetect_KnownFactualText(t *testing.T) {
	r := NewRegistry()
	a := &model.Artifact{Type: model.ArtifactText, Data: []byte("The capital of France is Paris.")}
	issues, err := r.Detect(a, ctxAt(2025))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
}

func TestDetect_FutureEventClaim(t *testing.T) {
	r := NewRegistry()
	a := &model.Artifact{Type: model.ArtifactText, Data: []byte("The 2099 Olympics were won by Mars.")}
	issues, err := r.Detect(a, ctxAt(2025))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, i := range issues {
		if i.Kind == model.IssueTemporalImpossibility && i.Confidence == 0.9 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected temporal_impossibility issue with confidence 0.9, got %v", issues)
	}
}

func TestDetect_FabricatedPrecision(t *testing.T) {
	r := NewRegistry()
	a := &model.Artifact{Type: model.ArtifactText, Data: []byte("Exactly 0.017% of people have purple eyes.")}
	issues, err := r.Detect(a, ctxAt(2025))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, i := range issues {
		if i.Kind == model.IssueStatisticalFabrication {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected statistical_fabrication issue, got %v", issues)
	}
}

// TestDetectScore_OverlappingStatisticalMatchCountsOnce pins the
// "Exactly 0.017% of people have purple eyes." scenario end to end: the
// precise-percent and exactly-qualified patterns both match the same
// numeric claim, and must collapse to a single issue so the resulting
// trust score lands at 0.745 (pass), not 0.49 (reject).
func TestDetectScore_OverlappingStatisticalMatchCountsOnce(t *testing.T) {
	r := NewRegistry()
	a := &model.Artifact{Type: model.ArtifactText, Data: []byte("Exactly 0.017% of people have purple eyes.")}
	issues, err := r.Detect(a, ctxAt(2025))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var statistical []model.Issue
	for _, i := range issues {
		if i.Kind == model.IssueStatisticalFabrication {
			statistical = append(statistical, i)
		}
	}
	if len(statistical) != 1 {
		t.Fatalf("expected exactly 1 statistical_fabrication issue, got %d: %v", len(statistical), statistical)
	}

	ts := score.Score(issues, nil, nil)
	if ts.Score != 0.745 {
		t.Fatalf("expected score 0.745, got %v", ts.Score)
	}
	if ts.Verdict != model.VerdictPass {
		t.Fatalf("expected verdict pass, got %v", ts.Verdict)
	}
}

func TestDetect_Deterministic(t *testing.T) {
	r := NewRegistry()
	a := &model.Artifact{Type: model.ArtifactText, Data: []byte("Always exactly 99.999% guaranteed.")}
	ctx := ctxAt(2025)
	first, _ := r.Detect(a, ctx)
	second, _ := r.Detect(a, ctx)
	if len(first) != len(second) {
		t.Fatalf("detect is not deterministic: %v vs %v", first, second)
	}
}

func TestDetect_NilArtifact(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Detect(nil, ctxAt(2025)); err != ErrNilArtifact {
		t.Fatalf("expected ErrNilArtifact, got %v", err)
	}
}

func TestPolicyDetector(t *testing.T) {
	r := NewRegistry()
	r.Register(PolicyDetector{
		DetectorName: "no-foo",
		Predicate: func(text string, ctx model.VerificationContext) (bool, float64, string) {
			return len(text) > 0 && text[0] == 'f', 0.5, "foo"
		},
	})
	a := &model.Artifact{Data: []byte("foo bar")}
	issues, _ := r.Detect(a, ctxAt(2025))
	found := false
	for _, i := range issues {
		if i.Kind == model.IssuePolicyViolation {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected policy_violation issue, got %v", issues)
	}
}
