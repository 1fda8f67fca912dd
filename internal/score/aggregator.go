package score

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ppiankov/claimlens/internal/model"
)

// DefaultTopK is the number of recurring patterns reported
const DefaultTopK = 3

// Weights is the risk contribution of each verdict
type Weights map[model.Verdict]float64

// DefaultWeights returns the risk weights: contradicted and misleading
// sentences count fully, unverifiable ones count half.
func DefaultWeights() Weights {
	return Weights{
		model.VerdictSupported:           0,
		model.VerdictContradicted:        1,
		model.VerdictUnverifiable:        0.5,
		model.VerdictMisleadingByContext: 1,
		model.VerdictNoFactualClaim:      0,
	}
}

// Aggregator folds a review log into a FinalAssessment
type Aggregator struct {
	weights Weights
	topK    int
}

// NewAggregator creates an aggregator with the default weights
func NewAggregator(cfg model.AggregateConfig) *Aggregator {
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Aggregator{weights: DefaultWeights(), topK: topK}
}

// Aggregate computes counts, risk score, patterns and summary.
// It does not modify reviews; equal inputs give equal outputs.
func (a *Aggregator) Aggregate(reviews []model.SentenceReview) model.FinalAssessment {
	// 1. Verdict counts
	counts := model.NewVerdictCounts()
	for _, r := range reviews {
		counts[r.Verdict]++
	}

	// 2. Risk score
	score, breakdown := a.risk(counts, len(reviews))

	// 3. Recurring issue labels
	patterns := a.patterns(reviews)

	return model.FinalAssessment{
		MisleadingRiskScore:  score,
		CountsByVerdict:      counts,
		TopRecurringPatterns: patterns,
		Summary:              Summarize(counts, len(reviews), score, patterns),
		RiskBreakdown:        breakdown,
	}
}

// risk returns round(100 * sum(weight) / N), clamped to 0..100
func (a *Aggregator) risk(counts model.VerdictCounts, n int) (int, model.RiskBreakdown) {
	weights := make(map[model.Verdict]float64, len(model.AllVerdicts))
	sum := 0.0
	for _, v := range model.AllVerdicts {
		weights[v] = a.weights[v]
		sum += a.weights[v] * float64(counts[v])
	}

	breakdown := model.RiskBreakdown{
		Weights:     weights,
		WeightedSum: sum,
		Sentences:   n,
		Formula:     "round(100 * weighted_sum / sentences)",
	}
	if n == 0 {
		return 0, breakdown
	}

	score := int(math.Round(100 * sum / float64(n)))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, breakdown
}

func (a *Aggregator) patterns(reviews []model.SentenceReview) []model.PatternCount {
	index := make(map[string]int)
	var all []model.PatternCount
	for _, r := range reviews {
		for _, issue := range r.Issues {
			issue = strings.TrimSpace(issue)
			if issue == "" {
				continue
			}
			if i, ok := index[issue]; ok {
				all[i].Instances++
				continue
			}
			index[issue] = len(all)
			all = append(all, model.PatternCount{
				Pattern:              issue,
				Instances:            1,
				ExampleSentenceIndex: r.SentenceIndex,
			})
		}
	}

	// Stable sort keeps first-seen order among equal counts
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Instances > all[j].Instances
	})

	if len(all) > a.topK {
		all = all[:a.topK]
	}
	if all == nil {
		all = []model.PatternCount{}
	}
	return all
}

// Band names the risk range a score falls in
func Band(score int) string {
	switch {
	case score >= 67:
		return "high"
	case score >= 34:
		return "moderate"
	default:
		return "low"
	}
}

// Summarize renders the fixed summary text for an assessment
func Summarize(counts model.VerdictCounts, n, score int, patterns []model.PatternCount) string {
	if n == 0 {
		return "No sentences were reviewed."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Of %d %s reviewed, %d supported, %d contradicted, %d misleading by context, %d unverifiable and %d without a factual claim. ",
		n, plural(n, "sentence", "sentences"),
		counts[model.VerdictSupported],
		counts[model.VerdictContradicted],
		counts[model.VerdictMisleadingByContext],
		counts[model.VerdictUnverifiable],
		counts[model.VerdictNoFactualClaim],
	)
	fmt.Fprintf(&b, "Misleading risk is %s (%d/100).", Band(score), score)

	if len(patterns) > 0 {
		top := patterns[0]
		fmt.Fprintf(&b, " Most frequent issue: %s (%d %s).", top.Pattern, top.Instances, plural(top.Instances, "instance", "instances"))
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
