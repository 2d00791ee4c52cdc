// Package detect implements the defect detector (C3): a pure, deterministic
// pass over an artifact that emits typed Issues. The built-in detectors are
// grounded on BasicHallucinationDetector's regex set, generalized into a
// registry so callers can add policy detectors.
package detect

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/lamassu-labs/trustwrapper/internal/model"
)

// ErrNilArtifact is returned when detect is called with a nil artifact.
var ErrNilArtifact = errors.New("detect: nil artifact")

// Detector is a single named detection rule. It must be pure: no I/O, no
// mutation of the artifact, deterministic given the same inputs.
type Detector interface {
	Name() string
	Kinds() []model.IssueKind
	Detect(artifact *model.Artifact, ctx model.VerificationContext) []model.Issue
}

// Registry holds the active set of detectors, built-in plus caller-supplied.
type Registry struct {
	detectors []Detector
}

// NewRegistry returns a Registry pre-loaded with the four built-in detectors;
// policy detectors are added by the caller through Register.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(temporalDetector{})
	r.Register(statisticalDetector{})
	r.Register(overconfidenceDetector{})
	r.Register(nonexistentAPIDetector{})
	return r
}

// Register adds a detector to the registry, including application-supplied
// policy detectors (§4.3's "application-supplied predicate").
func (r *Registry) Register(d Detector) {
	r.detectors = append(r.detectors, d)
}

// Detect runs every registered detector over the artifact and returns the
// concatenation of their issues. Pure function; never mutates the artifact.
func (r *Registry) Detect(artifact *model.Artifact, ctx model.VerificationContext) ([]model.Issue, error) {
	if artifact == nil {
		return nil, ErrNilArtifact
	}
	var issues []model.Issue
	for _, d := range r.detectors {
		issues = append(issues, d.Detect(artifact, ctx)...)
	}
	return issues, nil
}

// PolicyDetector adapts a caller-supplied predicate into a Detector,
// emitting IssuePolicyViolation when the predicate matches.
type PolicyDetector struct {
	DetectorName string
	Predicate    func(text string, ctx model.VerificationContext) (matched bool, confidence float64, location string)
}

func (p PolicyDetector) Name() string               { return p.DetectorName }
func (p PolicyDetector) Kinds() []model.IssueKind    { return []model.IssueKind{model.IssuePolicyViolation} }
func (p PolicyDetector) Detect(a *model.Artifact, ctx model.VerificationContext) []model.Issue {
	matched, confidence, loc := p.Predicate(string(a.Data), ctx)
	if !matched {
		return nil
	}
	return []model.Issue{{Kind: model.IssuePolicyViolation, Confidence: confidence, Location: loc}}
}

// --- temporal ---------------------------------------------------------

var yearRe = regexp.MustCompile(`\b(1[5-9]\d{2}|2\d{3})\b`)

type temporalDetector struct{}

func (temporalDetector) Name() string            { return "temporal" }
func (temporalDetector) Kinds() []model.IssueKind { return []model.IssueKind{model.IssueTemporalImpossibility} }

func (temporalDetector) Detect(a *model.Artifact, ctx model.VerificationContext) []model.Issue {
	text := string(a.Data)
	clockYear := ctx.Clock.Year()
	var issues []model.Issue
	for _, m := range yearRe.FindAllString(text, -1) {
		y, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if y > clockYear {
			issues = append(issues, model.Issue{
				Kind:       model.IssueTemporalImpossibility,
				Confidence: 0.9,
				Location:   m,
				Evidence:   "dated event in the future relative to the context clock",
			})
		}
	}
	return issues
}

// --- statistical fabrication -------------------------------------------

var precisePercentRe = regexp.MustCompile(`\b\d+\.\d{2,}\s?%`)
var exactlyQualifiedRe = regexp.MustCompile(`(?i)\bexactly\s+[\d.,]+\s*%?`)

type statisticalDetector struct{}

func (statisticalDetector) Name() string            { return "statistical" }
func (statisticalDetector) Kinds() []model.IssueKind { return []model.IssueKind{model.IssueStatisticalFabrication} }

func (statisticalDetector) Detect(a *model.Artifact, ctx model.VerificationContext) []model.Issue {
	text := string(a.Data)
	if strings.Contains(strings.ToLower(text), "according to") || strings.Contains(strings.ToLower(text), "source:") {
		return nil
	}

	var spans []span
	for _, m := range precisePercentRe.FindAllStringIndex(text, -1) {
		spans = append(spans, span{start: m[0], end: m[1]})
	}
	for _, m := range exactlyQualifiedRe.FindAllStringIndex(text, -1) {
		spans = append(spans, span{start: m[0], end: m[1]})
	}
	spans = mergeOverlapping(spans)

	issues := make([]model.Issue, 0, len(spans))
	for _, s := range spans {
		issues = append(issues, model.Issue{Kind: model.IssueStatisticalFabrication, Confidence: 0.85, Location: text[s.start:s.end]})
	}
	return issues
}

// span is a half-open byte range [start, end) within the artifact text.
type span struct {
	start, end int
}

// mergeOverlapping collapses spans that overlap (e.g. "0.017%" and "Exactly
// 0.017%" matched by two different patterns over the same numeric claim)
// into a single span covering their union, so one numeric claim never
// produces more than one issue.
func mergeOverlapping(spans []span) []span {
	if len(spans) == 0 {
		return nil
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	merged := []span{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// --- overconfidence -----------------------------------------------------

var absoluteQuantifierRe = regexp.MustCompile(`(?i)\b(always|never|guaranteed|certainly|undeniably|proven|100%|impossible)\b`)
var quantClaimRe = regexp.MustCompile(`\b\d+(\.\d+)?\s?(%|percent|x|times)\b`)

type overconfidenceDetector struct{}

func (overconfidenceDetector) Name() string            { return "overconfidence" }
func (overconfidenceDetector) Kinds() []model.IssueKind { return []model.IssueKind{model.IssueOverconfidence} }

func (overconfidenceDetector) Detect(a *model.Artifact, ctx model.VerificationContext) []model.Issue {
	text := string(a.Data)
	if absoluteQuantifierRe.MatchString(text) && quantClaimRe.MatchString(text) {
		loc := absoluteQuantifierRe.FindString(text)
		return []model.Issue{{Kind: model.IssueOverconfidence, Confidence: 0.75, Location: loc}}
	}
	return nil
}

// --- nonexistent API/term ------------------------------------------------

var identifierRe = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\.[A-Za-z_][A-Za-z0-9_]*\(\)`)

type nonexistentAPIDetector struct{}

func (nonexistentAPIDetector) Name() string            { return "nonexistent_api" }
func (nonexistentAPIDetector) Kinds() []model.IssueKind { return []model.IssueKind{model.IssueNonexistentAPI} }

func (nonexistentAPIDetector) Detect(a *model.Artifact, ctx model.VerificationContext) []model.Issue {
	text := string(a.Data)
	var issues []model.Issue
	for _, m := range identifierRe.FindAllString(text, -1) {
		if ctx.Denylist != nil && ctx.Denylist[m] {
			issues = append(issues, model.Issue{Kind: model.IssueNonexistentAPI, Confidence: 0.8, Location: m})
			continue
		}
		if ctx.Allowlist != nil && !ctx.Allowlist[m] {
			issues = append(issues, model.Issue{Kind: model.IssueNonexistentAPI, Confidence: 0.6, Location: m})
		}
	}
	return issues
}
