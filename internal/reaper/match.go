package reaper

import (
	"net/url"
	"regexp"
	"strings"
)

// IsExcluded reports whether rawURL's hostname matches any of the exclusion
// patterns. Unparseable URLs are never excluded (they cannot be meaningfully
// protected either). An empty pattern list excludes nothing.
//
// Pattern forms:
//   - "*.example.com" matches exactly one label before the base
//     ("mail.example.com" yes, "example.com" and "a.b.example.com" no)
//   - "example.*" matches the base followed by a single dot-free suffix
//   - any other pattern containing "*" is a glob over the full hostname
//   - a pattern without "*" matches the hostname exactly or as a suffix
//     across a dot boundary ("sub.example.com" matches "example.com",
//     "evilexample.com" does not)
func IsExcluded(rawURL string, patterns []string) bool {
	if rawURL == "" || len(patterns) == 0 {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "" {
		return false
	}
	for _, pattern := range patterns {
		if matchPattern(host, pattern) {
			return true
		}
	}
	return false
}

func matchPattern(host, pattern string) bool {
	if pattern == "" {
		return false
	}
	if strings.Contains(pattern, "*") {
		var expr string
		switch {
		case strings.HasPrefix(pattern, "*."):
			// Single-label rule: a.b.example.com does not match *.example.com.
			expr = `^[^.]+\.` + regexp.QuoteMeta(pattern[2:]) + `$`
		case strings.HasSuffix(pattern, ".*"):
			expr = `^` + regexp.QuoteMeta(pattern[:len(pattern)-2]) + `\.[^.]+$`
		default:
			expr = `^` + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, `.*`) + `$`
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return false
		}
		return re.MatchString(host)
	}
	return host == pattern || strings.HasSuffix(host, "."+pattern)
}
