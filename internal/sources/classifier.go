package sources

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/ppiankov/claimlens/internal/model"
)

// Classifier sorts news hosts into reputable, mainstream and other
type Classifier struct {
	reputable     []string
	reputableMap  map[string]bool
	mainstreamMap map[string]bool
}

// NewClassifier builds a classifier from the configured domain lists.
// An empty reputable list falls back to the built-in one.
func NewClassifier(cfg model.SourcesConfig) *Classifier {
	reputable := cfg.ReputableDomains
	if len(reputable) == 0 {
		reputable = model.DefaultReputableDomains()
	}

	c := &Classifier{
		reputableMap:  make(map[string]bool),
		mainstreamMap: make(map[string]bool),
	}
	for _, domain := range reputable {
		domain = normalizeDomain(domain)
		if domain == "" || c.reputableMap[domain] {
			continue
		}
		c.reputableMap[domain] = true
		c.reputable = append(c.reputable, domain)
	}
	for _, domain := range cfg.MainstreamDomains {
		if domain = normalizeDomain(domain); domain != "" {
			c.mainstreamMap[domain] = true
		}
	}
	return c
}

// ReputableDomains returns the reputable list in configured order
func (c *Classifier) ReputableDomains() []string {
	out := make([]string, len(c.reputable))
	copy(out, c.reputable)
	return out
}

// Classify returns the tier of rawURL's host
func (c *Classifier) Classify(rawURL string) model.AuthorityTier {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return model.TierOther
	}
	return c.ClassifyHost(parsed.Hostname())
}

// ClassifyHost matches host and its parent domains against the lists,
// so "edition.cnn.com" matches "cnn.com"
func (c *Classifier) ClassifyHost(host string) model.AuthorityTier {
	host = normalizeDomain(host)
	for candidate := host; candidate != ""; candidate = parentDomain(candidate) {
		if c.reputableMap[candidate] {
			return model.TierReputable
		}
		if c.mainstreamMap[candidate] {
			return model.TierMainstream
		}
	}
	return model.TierOther
}

// IsReputable reports whether rawURL belongs to a reputable outlet
func (c *Classifier) IsReputable(rawURL string) bool {
	return c.Classify(rawURL) == model.TierReputable
}

// SiteQuery renders the domains as "site:a OR site:b"
func SiteQuery(domains []string) string {
	parts := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = normalizeDomain(d); d != "" {
			parts = append(parts, "site:"+d)
		}
	}
	return strings.Join(parts, " OR ")
}

// LoadFile reads a {"websites": [...]} list of reputable domains
func LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var file struct {
		Websites []string `json:"websites"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	if len(file.Websites) == 0 {
		return nil, fmt.Errorf("sources file %s lists no websites", path)
	}
	return file.Websites, nil
}

func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimPrefix(domain, "www.")
	return strings.TrimSuffix(domain, "/")
}

func parentDomain(host string) string {
	idx := strings.Index(host, ".")
	if idx < 0 {
		return ""
	}
	parent := host[idx+1:]
	if !strings.Contains(parent, ".") {
		return ""
	}
	return parent
}
