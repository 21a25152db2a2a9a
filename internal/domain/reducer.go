// Package domain reduces raw links to their registrable domain.
package domain

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// Reduce maps a raw link to its registrable domain (eTLD+1).
// It reports false when the link is not an absolute http(s) URL with a host
// that ends in a known public suffix. Internationalized names are returned
// in their ASCII (punycode) form.
// Example: https://myaccount.google.com -> google.com
func Reduce(rawLink string) (string, bool) {
	host, ok := hostOf(rawLink)
	if !ok {
		return "", false
	}
	return reduceHost(host)
}

// Scheme returns the scheme of an absolute link, defaulting to https
func Scheme(rawLink string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawLink))
	if err != nil || parsed.Scheme == "" {
		return "https"
	}
	return strings.ToLower(parsed.Scheme)
}

func hostOf(rawLink string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawLink))
	if err != nil || !parsed.IsAbs() {
		return "", false
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return "", false
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", false
	}
	return host, true
}

func reduceHost(host string) (string, bool) {
	if net.ParseIP(host) != nil {
		return "", false
	}

	// Unicode and punycode spellings of a host name the same domain
	host, err := idna.Lookup.ToASCII(host)
	if err != nil || host == "" {
		return "", false
	}

	// Hosts that only match the implicit "*" rule have no listed suffix
	suffix, icann := publicsuffix.PublicSuffix(host)
	if !icann && !strings.Contains(suffix, ".") {
		return "", false
	}

	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", false
	}
	return registrable, true
}

// Reducer is a memoising Reduce. Results are cached per host, so links that
// differ only by path share one public suffix lookup.
type Reducer struct {
	cache *lru.Cache[string, string]
}

// NewReducer creates a reducer caching up to size hosts
func NewReducer(size int) (*Reducer, error) {
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create reducer cache: %w", err)
	}
	return &Reducer{cache: cache}, nil
}

// Reduce has the same contract as the package level Reduce.
// Hosts that do not reduce are cached as the empty string.
func (r *Reducer) Reduce(rawLink string) (string, bool) {
	host, ok := hostOf(rawLink)
	if !ok {
		return "", false
	}

	if registrable, hit := r.cache.Get(host); hit {
		return registrable, registrable != ""
	}

	registrable, ok := reduceHost(host)
	r.cache.Add(host, registrable)
	return registrable, ok
}
