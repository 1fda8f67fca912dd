package model

import (
	"fmt"
	"strings"
)

// ReferenceDocument is a retrieved article used as comparison evidence
type ReferenceDocument struct {
	RefID         string        `json:"ref_id"`              // R1..Rn in retrieval rank
	Title         string        `json:"title"`               // Article headline
	URL           string        `json:"url"`                 // Canonical URL after normalization
	Text          string        `json:"text"`                // Extracted full text
	PublishedDate string        `json:"date,omitempty"`      // As reported by the search source
	Source        string        `json:"source,omitempty"`    // Publisher or host
	Authority     AuthorityTier `json:"authority,omitempty"` // Reputable-source classification
}

// Evidence is the ordered set of reference documents for one run.
// Order is retrieval rank.
type Evidence []ReferenceDocument

// URLs returns the document URLs in rank order
func (e Evidence) URLs() []string {
	urls := make([]string, 0, len(e))
	for _, doc := range e {
		urls = append(urls, doc.URL)
	}
	return urls
}

// Lookup returns the document with the given reference id
func (e Evidence) Lookup(refID string) (ReferenceDocument, bool) {
	for _, doc := range e {
		if strings.EqualFold(doc.RefID, refID) {
			return doc, true
		}
	}
	return ReferenceDocument{}, false
}

// AssignRefIDs numbers documents R1..Rn in their current order
func (e Evidence) AssignRefIDs() {
	for i := range e {
		e[i].RefID = fmt.Sprintf("R%d", i+1)
	}
}

// References returns the metadata-only view used in reports
func (e Evidence) References() []ReferenceSummary {
	refs := make([]ReferenceSummary, 0, len(e))
	for _, doc := range e {
		refs = append(refs, ReferenceSummary{
			RefID: doc.RefID,
			Title: doc.Title,
			Date:  doc.PublishedDate,
			URL:   doc.URL,
		})
	}
	return refs
}

// ReferenceSummary is a reference without its body text
type ReferenceSummary struct {
	RefID string `json:"ref_id"`
	Title string `json:"title"`
	Date  string `json:"date,omitempty"`
	URL   string `json:"url"`
}

// AuthorityTier represents the classification of a news source
type AuthorityTier int

const (
	TierUnknown    AuthorityTier = 0 // Not yet classified
	TierReputable  AuthorityTier = 1 // Wire services, papers of record, public broadcasters
	TierMainstream AuthorityTier = 2 // Established outlets outside the reputable list
	TierOther      AuthorityTier = 3 // Blogs, aggregators, unknown hosts
)

func (t AuthorityTier) String() string {
	switch t {
	case TierReputable:
		return "reputable"
	case TierMainstream:
		return "mainstream"
	case TierOther:
		return "other"
	default:
		return "unknown"
	}
}
