package score

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ppiankov/claimlens/internal/model"
)

func reviews(verdicts ...model.Verdict) []model.SentenceReview {
	out := make([]model.SentenceReview, len(verdicts))
	for i, v := range verdicts {
		out[i] = model.SentenceReview{SentenceIndex: i, SentenceText: "s", Verdict: v, Issues: []string{}}
	}
	return out
}

func TestAggregate_Boundaries(t *testing.T) {
	agg := NewAggregator(model.AggregateConfig{})

	tests := []struct {
		name     string
		verdicts []model.Verdict
		want     int
	}{
		{"empty", nil, 0},
		{"all supported", []model.Verdict{model.VerdictSupported, model.VerdictSupported}, 0},
		{"all no claim", []model.Verdict{model.VerdictNoFactualClaim}, 0},
		{"all contradicted", []model.Verdict{model.VerdictContradicted, model.VerdictContradicted, model.VerdictContradicted}, 100},
		{"all misleading", []model.Verdict{model.VerdictMisleadingByContext}, 100},
		{"all unverifiable", []model.Verdict{model.VerdictUnverifiable, model.VerdictUnverifiable}, 50},
		{"supported contradicted no claim", []model.Verdict{model.VerdictSupported, model.VerdictContradicted, model.VerdictNoFactualClaim}, 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := agg.Aggregate(reviews(tt.verdicts...))
			if fa.MisleadingRiskScore != tt.want {
				t.Errorf("Expected score %d, got %d", tt.want, fa.MisleadingRiskScore)
			}
		})
	}
}

func TestAggregate_CountsSumToLength(t *testing.T) {
	agg := NewAggregator(model.AggregateConfig{})
	log := reviews(model.VerdictSupported, model.VerdictContradicted, model.VerdictNoFactualClaim, model.VerdictSupported)

	fa := agg.Aggregate(log)

	if fa.CountsByVerdict.Total() != len(log) {
		t.Errorf("Expected counts to sum to %d, got %d", len(log), fa.CountsByVerdict.Total())
	}
	if len(fa.CountsByVerdict) != len(model.AllVerdicts) {
		t.Errorf("Expected all %d verdict keys, got %v", len(model.AllVerdicts), fa.CountsByVerdict)
	}
	if fa.CountsByVerdict[model.VerdictSupported] != 2 || fa.CountsByVerdict[model.VerdictMisleadingByContext] != 0 {
		t.Errorf("Unexpected counts: %v", fa.CountsByVerdict)
	}
}

func TestAggregate_Monotonic(t *testing.T) {
	agg := NewAggregator(model.AggregateConfig{})
	base := []model.Verdict{model.VerdictSupported, model.VerdictNoFactualClaim, model.VerdictUnverifiable, model.VerdictSupported}
	ladder := []model.Verdict{model.VerdictSupported, model.VerdictUnverifiable, model.VerdictContradicted}

	for pos := range base {
		prev := -1
		for _, v := range ladder {
			log := reviews(base...)
			log[pos].Verdict = v
			score := agg.Aggregate(log).MisleadingRiskScore
			if score < prev {
				t.Errorf("Position %d: score decreased from %d to %d moving to %s", pos, prev, score, v)
			}
			prev = score
		}

		log := reviews(base...)
		log[pos].Verdict = model.VerdictMisleadingByContext
		if got := agg.Aggregate(log).MisleadingRiskScore; got < prev {
			t.Errorf("Position %d: MisleadingByContext scored %d, below Contradicted %d", pos, got, prev)
		}
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	agg := NewAggregator(model.AggregateConfig{})
	log := reviews(model.VerdictContradicted, model.VerdictUnverifiable)
	log[0].Issues = []string{"Missing context"}

	first := agg.Aggregate(log)
	second := agg.Aggregate(log)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical assessments:\n%+v\n%+v", first, second)
	}
}

func TestAggregate_PatternsTieBreakFirstSeen(t *testing.T) {
	agg := NewAggregator(model.AggregateConfig{TopK: 3})
	log := reviews(model.VerdictContradicted, model.VerdictMisleadingByContext, model.VerdictUnverifiable, model.VerdictSupported)
	log[0].Issues = []string{"Loaded language", "Missing context"}
	log[1].Issues = []string{"Cherry-picking", " Missing context "}
	log[2].Issues = []string{"Cherry-picking", "", "Loaded language"}
	log[3].Issues = []string{"Outdated figure"}

	fa := agg.Aggregate(log)

	want := []model.PatternCount{
		{Pattern: "Loaded language", Instances: 2, ExampleSentenceIndex: 0},
		{Pattern: "Missing context", Instances: 2, ExampleSentenceIndex: 0},
		{Pattern: "Cherry-picking", Instances: 2, ExampleSentenceIndex: 1},
	}
	if !reflect.DeepEqual(fa.TopRecurringPatterns, want) {
		t.Errorf("Unexpected patterns:\n got %+v\nwant %+v", fa.TopRecurringPatterns, want)
	}
}

func TestAggregate_NoPatterns(t *testing.T) {
	fa := NewAggregator(model.AggregateConfig{}).Aggregate(reviews(model.VerdictSupported))
	if fa.TopRecurringPatterns == nil || len(fa.TopRecurringPatterns) != 0 {
		t.Errorf("Expected empty non-nil patterns, got %v", fa.TopRecurringPatterns)
	}
}

func TestSummarize_Deterministic(t *testing.T) {
	agg := NewAggregator(model.AggregateConfig{})
	log := reviews(model.VerdictSupported, model.VerdictContradicted, model.VerdictNoFactualClaim)
	log[1].Issues = []string{"Cherry-picking"}

	fa := agg.Aggregate(log)

	if fa.Summary != agg.Aggregate(log).Summary {
		t.Error("Expected the same summary for the same log")
	}
	for _, part := range []string{"Of 3 sentences reviewed", "1 supported", "1 contradicted", "low (33/100)", "Cherry-picking (1 instance)"} {
		if !strings.Contains(fa.Summary, part) {
			t.Errorf("Expected summary to contain %q, got %q", part, fa.Summary)
		}
	}
}

func TestBand(t *testing.T) {
	tests := map[int]string{0: "low", 33: "low", 34: "moderate", 66: "moderate", 67: "high", 100: "high"}
	for score, want := range tests {
		if got := Band(score); got != want {
			t.Errorf("Band(%d) = %s, want %s", score, got, want)
		}
	}
}
