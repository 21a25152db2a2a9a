package crawler

import (
	"fmt"
	"regexp"
)

// Filter rejects domains matching any configured exclusion pattern
// (social media, ads, analytics and similar link farms)
type Filter struct {
	patterns []*regexp.Regexp
}

// NewFilter compiles the exclusion patterns. A nil or empty list excludes nothing.
func NewFilter(patterns []string) (*Filter, error) {
	f := &Filter{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// IsExcluded checks if a domain matches any excluded pattern
func (f *Filter) IsExcluded(domain string) bool {
	if f == nil {
		return false
	}
	for _, pattern := range f.patterns {
		if pattern.MatchString(domain) {
			return true
		}
	}
	return false
}
