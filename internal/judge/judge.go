package judge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/claimlens/internal/logging"
	"github.com/ppiankov/claimlens/internal/model"
)

var (
	// ErrInvalidSentence is returned for a negative index or empty text
	ErrInvalidSentence = errors.New("invalid sentence")

	// ErrMalformedJudgment is returned when oracle output fails validation
	ErrMalformedJudgment = errors.New("malformed judgment")
)

// Judge turns oracle output into validated sentence reviews
type Judge struct {
	oracle      Oracle
	timeout     time.Duration
	maxAttempts int
	log         *logrus.Entry
}

// New creates a Judge from the judge configuration
func New(oracle Oracle, cfg model.JudgeConfig, log *logrus.Entry) *Judge {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 2
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Judge{
		oracle:      oracle,
		timeout:     timeout,
		maxAttempts: attempts,
		log:         log,
	}
}

// Judge reviews one sentence against the evidence.
// Oracle failures are retried and then downgraded to an Unverifiable
// review tagged oracle_error; only invalid input and cancellation of
// ctx are returned as errors.
func (j *Judge) Judge(ctx context.Context, sentence model.Sentence, evidence model.Evidence) (model.SentenceReview, error) {
	if sentence.Index < 0 || strings.TrimSpace(sentence.Text) == "" {
		return model.SentenceReview{}, fmt.Errorf("%w: index %d", ErrInvalidSentence, sentence.Index)
	}

	var lastErr error
	for attempt := 1; attempt <= j.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return model.SentenceReview{}, err
		}

		review, err := j.attempt(ctx, sentence, evidence)
		if err == nil {
			return review, nil
		}
		if ctx.Err() != nil {
			return model.SentenceReview{}, ctx.Err()
		}

		lastErr = err
		j.log.WithError(err).WithFields(logrus.Fields{
			"sentence": sentence.Index,
			"attempt":  attempt,
		}).Warn("oracle judgment failed")
	}

	return Downgrade(sentence, lastErr), nil
}

func (j *Judge) attempt(ctx context.Context, sentence model.Sentence, evidence model.Evidence) (model.SentenceReview, error) {
	callCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	raw, err := j.oracle.Evaluate(callCtx, sentence, evidence)
	if err != nil {
		return model.SentenceReview{}, err
	}
	return Validate(raw, sentence, evidence)
}

// Validate checks raw oracle output and converts it into a review.
// Citations to unknown reference ids are dropped.
func Validate(raw *RawJudgment, sentence model.Sentence, evidence model.Evidence) (model.SentenceReview, error) {
	if raw == nil {
		return model.SentenceReview{}, fmt.Errorf("%w: empty response", ErrMalformedJudgment)
	}

	verdict, err := model.ParseVerdict(raw.Verdict)
	if err != nil {
		return model.SentenceReview{}, fmt.Errorf("%w: %v", ErrMalformedJudgment, err)
	}

	if raw.Confidence == "" {
		return model.SentenceReview{}, fmt.Errorf("%w: missing confidence", ErrMalformedJudgment)
	}
	confidence, err := raw.Confidence.Float64()
	if err != nil || math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return model.SentenceReview{}, fmt.Errorf("%w: confidence %q outside [0,1]", ErrMalformedJudgment, raw.Confidence)
	}

	review := model.SentenceReview{
		SentenceIndex: sentence.Index,
		SentenceText:  sentence.Text,
		Verdict:       verdict,
		Confidence:    confidence,
		Explanation:   strings.TrimSpace(raw.Explanation),
		Issues:        cleanLabels(raw.Issues),
		Types:         cleanLabels(raw.Types),
	}
	if raw.ClaimExtracted != nil {
		if claim := strings.TrimSpace(*raw.ClaimExtracted); claim != "" {
			review.ClaimExtracted = &claim
		}
	}
	for _, c := range raw.Evidence {
		doc, ok := evidence.Lookup(c.RefID)
		if !ok {
			continue
		}
		c.RefID = doc.RefID
		review.Citations = append(review.Citations, c)
	}

	return review, nil
}

// Downgrade builds the review recorded when the oracle keeps failing
func Downgrade(sentence model.Sentence, cause error) model.SentenceReview {
	msg := "judgment oracle failed"
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return model.SentenceReview{
		SentenceIndex: sentence.Index,
		SentenceText:  sentence.Text,
		Verdict:       model.VerdictUnverifiable,
		Confidence:    0,
		Explanation:   msg,
		Issues:        []string{model.OracleErrorIssue},
	}
}

func cleanLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		if label = strings.TrimSpace(label); label != "" {
			out = append(out, label)
		}
	}
	return out
}
