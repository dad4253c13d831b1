// Package urlnorm canonicalizes article URLs into the key used for deduplication.
package urlnorm

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

var ErrInvalidURL = errors.New("invalid URL")

var trackingParams = map[string]bool{
	"source":       true,
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_content":  true,
	"utm_term":     true,
	"fbclid":       true,
	"gclid":        true,
	"ref":          true,
	"mc_cid":       true,
	"mc_eid":       true,
	"_ga":          true,
	"campaign_id":  true,
}

// IsTrackingParam reports whether a query parameter name is stripped during normalization.
func IsTrackingParam(name string) bool {
	name = strings.ToLower(name)
	return trackingParams[name] || strings.HasPrefix(name, "utm_")
}

// Normalize returns the canonical form of rawURL. Malformed input is returned unchanged.
func Normalize(rawURL string) string {
	canonical, err := Canonical(rawURL)
	if err != nil {
		slog.Warn("Failed to normalize URL", "url", rawURL, "error", err)
		return rawURL
	}
	return canonical
}

// Canonical strips tracking parameters, the fragment and trailing slashes.
// Remaining query parameters are re-encoded in key order so equal URLs compare equal.
func Canonical(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if u.RawQuery != "" {
		// ParseQuery skips undecodable pairs and still returns the rest.
		params, err := url.ParseQuery(u.RawQuery)
		if err != nil {
			slog.Debug("Dropping malformed query pairs", "url", rawURL, "error", err)
		}
		for name := range params {
			if IsTrackingParam(name) {
				params.Del(name)
			}
		}
		u.RawQuery = params.Encode()
	}
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""

	return strings.TrimRight(u.String(), "/"), nil
}
