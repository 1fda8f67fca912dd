package gather

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// trackingParams are dropped during normalization
var trackingParams = map[string]bool{
	"fbclid": true, "gclid": true, "ocid": true, "cmpid": true,
	"ref": true, "ref_src": true, "smid": true, "mc_cid": true, "mc_eid": true,
}

// ErrInvalidURL is returned for URLs that cannot name a web article
var ErrInvalidURL = errors.New("invalid article URL")

// NormalizeURL returns a canonical form used to detect duplicate references:
// lowercase scheme and host without "www.", no fragment, no tracking
// parameters, sorted query, no trailing slash. A bare "host/path" gets
// https. Only absolute http(s) URLs are accepted.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err == nil && u.Scheme == "" && raw != "" && !strings.HasPrefix(raw, "/") {
		u, err = url.Parse("https://" + raw)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" || strings.HasPrefix(u.Host, ":") {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidURL, raw)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if (u.Scheme == "http" && strings.HasSuffix(host, ":80")) || (u.Scheme == "https" && strings.HasSuffix(host, ":443")) {
		host = host[:strings.LastIndex(host, ":")]
	}
	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	query := u.Query()
	for key := range query {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") || trackingParams[lower] {
			query.Del(key)
		}
	}
	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		for _, val := range query[key] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(val))
		}
	}
	u.RawQuery = b.String()

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = strings.TrimSuffix(u.RawPath, "/")
	} else {
		u.Path = ""
	}

	return u.String(), nil
}
