package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/claimlens/internal/llm"
	"github.com/ppiankov/claimlens/internal/model"
)

// Oracle produces an unvalidated judgment for one sentence
type Oracle interface {
	Evaluate(ctx context.Context, sentence model.Sentence, evidence model.Evidence) (*RawJudgment, error)
}

// RawJudgment is the oracle's answer before validation
type RawJudgment struct {
	Verdict        string           `json:"verdict"`
	Confidence     json.Number      `json:"confidence"`
	Explanation    string           `json:"explanation"`
	Issues         []string         `json:"issues"`
	Types          []string         `json:"types"`
	ClaimExtracted *string          `json:"claim_extracted"`
	Evidence       []model.Citation `json:"evidence"`
}

const systemPrompt = `You are a careful fact-checking assistant. You compare one sentence from a news article against a fixed set of reference articles. You never use outside knowledge: if the references do not settle the sentence, say so. You answer with a single JSON object and nothing else.`

// LLMOracle asks an LLM provider to judge sentences
type LLMOracle struct {
	provider         llm.Provider
	maxEvidenceChars int
}

// NewLLMOracle creates an oracle over provider.
// Each reference text is truncated to maxEvidenceChars characters.
func NewLLMOracle(provider llm.Provider, maxEvidenceChars int) *LLMOracle {
	if maxEvidenceChars <= 0 {
		maxEvidenceChars = 4000
	}
	return &LLMOracle{provider: provider, maxEvidenceChars: maxEvidenceChars}
}

// Evaluate sends one sentence with its references and decodes the reply
func (o *LLMOracle) Evaluate(ctx context.Context, sentence model.Sentence, evidence model.Evidence) (*RawJudgment, error) {
	prompt, err := o.BuildPrompt(sentence, evidence)
	if err != nil {
		return nil, err
	}

	resp, err := o.provider.Complete(ctx, llm.CompletionRequest{
		System: systemPrompt,
		Prompt: prompt,
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s completion: %w", o.provider.Name(), err)
	}

	body, err := llm.ExtractJSON(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJudgment, err)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var raw RawJudgment
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrMalformedJudgment, err)
	}
	return &raw, nil
}

type promptReference struct {
	RefID string `json:"ref_id"`
	Title string `json:"title"`
	Date  string `json:"date,omitempty"`
	URL   string `json:"url"`
	Text  string `json:"text"`
}

// BuildPrompt renders the user prompt for one sentence
func (o *LLMOracle) BuildPrompt(sentence model.Sentence, evidence model.Evidence) (string, error) {
	refs := make([]promptReference, 0, len(evidence))
	for _, doc := range evidence {
		refs = append(refs, promptReference{
			RefID: doc.RefID,
			Title: doc.Title,
			Date:  doc.PublishedDate,
			URL:   doc.URL,
			Text:  truncateRunes(doc.Text, o.maxEvidenceChars),
		})
	}
	refsJSON, err := json.MarshalIndent(refs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal references: %w", err)
	}

	return fmt.Sprintf(`SENTENCE #%d:
%s

REFERENCES (use ONLY these for verification):
%s

Judge the sentence against the references and return a JSON object with:
- "verdict": one of "Supported", "Contradicted", "Unverifiable", "Misleading by context", "No factual claim"
- "confidence": number from 0.0 to 1.0
- "explanation": at most 40 words
- "issues": array of short labels such as "Missing context", "Cherry-picking", "Loaded language"; empty if none
- "types": array drawn from "Factual claim", "Opinion/Value", "Reported speech/Quote", "Rhetorical/Framing"
- "claim_extracted": succinct restatement of the factual claim, or null
- "evidence": array of {"ref_id", "locator", "quote" (at most 20 words), "alignment"} citing only the ref_ids above`,
		sentence.Index+1, sentence.Text, refsJSON), nil
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
