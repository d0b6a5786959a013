package engine

import "strings"

// domainMatches reports whether a stored cookie host matches a requested
// domain under the same three rules the canonical SQL template applies at
// the database layer: exact equality, equality with a leading dot, or a
// suffix match bounded by a dot so "notexample.com" does not match
// "example.com" and "example.com.evil" does not either.
func domainMatches(spec, host string) bool {
	if spec == "" {
		return true
	}
	if host == spec || host == "."+spec {
		return true
	}
	return strings.HasSuffix(host, "."+spec)
}
