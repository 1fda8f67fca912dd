package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/claimlens/internal/model"
)

// Segmenter splits article bodies into sentences
type Segmenter struct {
	abbreviations map[string]bool
}

// NewSegmenter creates a segmenter with the default abbreviation list
func NewSegmenter() *Segmenter {
	abbrevs := []string{
		"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st", "mt", "vs",
		"gen", "sen", "rep", "gov", "pres", "lt", "col", "capt", "sgt",
		"fig", "approx", "dept",
		"jan", "feb", "mar", "apr", "aug", "sept", "sep", "oct", "nov", "dec",
		"e.g", "i.e", "u.s", "u.k", "u.n", "a.m", "p.m",
	}
	m := make(map[string]bool, len(abbrevs))
	for _, a := range abbrevs {
		m[a] = true
	}
	return &Segmenter{abbreviations: m}
}

// Split segments body into ordered sentences.
// A boundary follows '.', '!' or '?' (plus any closing quotes or brackets)
// when whitespace or the end of input comes next. Line breaks are
// boundaries too. Fragments are trimmed and empty ones dropped; short
// fragments are kept as they are.
func (s *Segmenter) Split(body string) ([]model.Sentence, error) {
	var sentences []model.Sentence
	emit := func(fragment string) {
		text := strings.TrimSpace(fragment)
		if text == "" {
			return
		}
		sentences = append(sentences, model.Sentence{Index: len(sentences), Text: text})
	}

	start := 0
	for i := 0; i < len(body); {
		r, size := utf8.DecodeRuneInString(body[i:])

		switch {
		case r == '\n':
			emit(body[start:i])
			start = i + size
			i += size
			continue

		case isTerminator(r):
			end := i + size
			for end < len(body) {
				next, n := utf8.DecodeRuneInString(body[end:])
				if !isTerminator(next) && !isCloser(next) {
					break
				}
				end += n
			}

			atBoundary := end == len(body)
			if !atBoundary {
				next, _ := utf8.DecodeRuneInString(body[end:])
				atBoundary = unicode.IsSpace(next)
			}

			if atBoundary && !(r == '.' && s.endsWithAbbreviation(body[start:i], body[end:])) {
				emit(body[start:end])
				start = end
			}
			i = end
			continue
		}

		i += size
	}
	emit(body[start:])

	if len(sentences) == 0 {
		return nil, model.ErrEmptyArticle
	}
	return sentences, nil
}

// endsWithAbbreviation checks the word right before a period. rest is
// the text after the period.
func (s *Segmenter) endsWithAbbreviation(prefix, rest string) bool {
	prefix = strings.TrimRightFunc(prefix, unicode.IsSpace)
	word, before := lastWord(prefix)
	word = strings.TrimLeft(word, `"'([“‘`)
	if word == "" {
		return false
	}

	if r, size := utf8.DecodeRuneInString(word); size == len(word) && unicode.IsUpper(r) {
		return isInitial(r, before, rest)
	}

	return s.abbreviations[strings.ToLower(word)]
}

// isInitial decides whether a lone capital before a period is a name
// initial. "J. R. Doe" and "met J. Doe" are initials; "Plan B. Nobody"
// and "So was I. Then" end sentences.
func isInitial(letter rune, before, rest string) bool {
	if letter == 'I' {
		return false
	}
	next := strings.TrimLeft(firstWord(rest), `"'([“‘`)
	if next == "" {
		return false
	}
	first, size := utf8.DecodeRuneInString(next)
	if !unicode.IsUpper(first) {
		return false
	}
	if size == len(next)-1 && strings.HasSuffix(next, ".") {
		return true
	}
	prev, _ := lastWord(before)
	prev = strings.TrimLeft(prev, `"'([“‘`)
	if prev == "" {
		return true
	}
	r, size := utf8.DecodeRuneInString(prev)
	if size == len(prev)-1 && strings.HasSuffix(prev, ".") {
		return true
	}
	return !unicode.IsUpper(r)
}

// lastWord splits s into its last whitespace-separated word and the text before it
func lastWord(s string) (word, before string) {
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	if idx := strings.LastIndexFunc(s, unicode.IsSpace); idx >= 0 {
		return s[idx+1:], s[:idx]
	}
	return s, ""
}

func firstWord(s string) string {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	if idx := strings.IndexFunc(s, unicode.IsSpace); idx >= 0 {
		return s[:idx]
	}
	return s
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '»':
		return true
	}
	return false
}
