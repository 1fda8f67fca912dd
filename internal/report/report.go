package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ppiankov/claimlens/internal/model"
	"github.com/ppiankov/claimlens/internal/score"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Markdown renders a saved analysis as a Markdown document
func Markdown(rec *model.AnalysisRecord) string {
	if rec == nil {
		return ""
	}

	var b strings.Builder
	meta := rec.Report.DocumentMetadata
	overall := rec.Report.OverallAssessment

	title := meta.TargetTitle
	if title == "" {
		title = rec.TargetTitle
	}
	if title == "" {
		title = "Untitled article"
	}
	fmt.Fprintf(&b, "# Claim review: %s\n\n", escape(title))

	if meta.TargetURL != "" {
		fmt.Fprintf(&b, "- **Source:** <%s>\n", meta.TargetURL)
	}
	if meta.TargetDate != "" {
		fmt.Fprintf(&b, "- **Published:** %s\n", meta.TargetDate)
	}
	if rec.Query != "" {
		fmt.Fprintf(&b, "- **Query:** %s\n", escape(rec.Query))
	}
	if !rec.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- **Analyzed:** %s\n", rec.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))
	}
	b.WriteString("\n")

	// Assessment
	b.WriteString("## Assessment\n\n")
	fmt.Fprintf(&b, "**Misleading risk:** %d/100 (%s)\n\n", overall.MisleadingRiskScore, score.Band(overall.MisleadingRiskScore))
	if overall.Summary != "" {
		b.WriteString(overall.Summary)
		b.WriteString("\n\n")
	}

	// Verdict counts
	b.WriteString("| Verdict | Sentences |\n|---|---|\n")
	counts := rec.Report.PatternSummary.CountsByVerdict
	for _, v := range model.AllVerdicts {
		fmt.Fprintf(&b, "| %s | %d |\n", v, counts[v])
	}
	b.WriteString("\n")

	if patterns := rec.Report.PatternSummary.TopRecurringPatterns; len(patterns) > 0 {
		b.WriteString("## Recurring issues\n\n")
		for _, p := range patterns {
			fmt.Fprintf(&b, "- %s (%d)\n", escape(p.Pattern), p.Instances)
		}
		b.WriteString("\n")
	}

	// Sentences
	if len(rec.Reviews) > 0 {
		b.WriteString("## Sentences\n\n")
		for _, r := range rec.Reviews {
			fmt.Fprintf(&b, "%d. **%s** (%.0f%%) %s\n", r.SentenceIndex+1, r.Verdict, r.Confidence*100, escape(r.SentenceText))
			if r.Explanation != "" {
				fmt.Fprintf(&b, "   - %s\n", escape(r.Explanation))
			}
			if len(r.Issues) > 0 {
				fmt.Fprintf(&b, "   - Issues: %s\n", escape(strings.Join(r.Issues, ", ")))
			}
			for _, c := range r.Citations {
				if c.Quote != "" {
					fmt.Fprintf(&b, "   - [%s] \"%s\"\n", c.RefID, escape(c.Quote))
				} else {
					fmt.Fprintf(&b, "   - [%s]\n", c.RefID)
				}
			}
		}
		b.WriteString("\n")
	}

	// References
	if refs := meta.ReferencesUsed; len(refs) > 0 {
		b.WriteString("## References\n\n")
		for _, ref := range refs {
			line := fmt.Sprintf("- **%s** [%s](%s)", ref.RefID, escape(ref.Title), ref.URL)
			if ref.Date != "" {
				line += ", " + ref.Date
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

// HTML renders a saved analysis as a standalone HTML page
func HTML(rec *model.AnalysisRecord) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(rec)), &body); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>Claim review</title>\n</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// WriteFiles writes the JSON and Markdown forms of rec. Empty paths are skipped.
func WriteFiles(rec *model.AnalysisRecord, jsonPath, mdPath string) error {
	if jsonPath != "" {
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		if err := writeFile(jsonPath, data); err != nil {
			return err
		}
	}
	if mdPath != "" {
		if err := writeFile(mdPath, []byte(Markdown(rec))); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// escape neutralizes characters that would start Markdown or raw HTML
func escape(s string) string {
	r := strings.NewReplacer(
		"\n", " ",
		"<", "&lt;",
		">", "&gt;",
		"|", "\\|",
		"*", "\\*",
		"_", "\\_",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return r.Replace(s)
}
