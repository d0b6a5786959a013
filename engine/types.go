// Package engine is the composite cookie-extraction facade: a registry of
// per-browser strategies, fanned out concurrently, merged, deduplicated,
// and filtered into a single browser-independent result.
package engine

import (
	"time"

	"github.com/mherod/getcookie"
)

// CookieSpec is a query predicate over name and domain. Name supports the
// literal wildcard "%" meaning "match any name"; Domain is matched against
// a stored host as exact equality, equality with a leading dot, or a
// suffix match with a dot boundary — see domainMatches.
type CookieSpec struct {
	Name   string
	Domain string
}

// ByDomain builds the shorthand spec {Name: "%", Domain: domain}.
func ByDomain(domain string) CookieSpec {
	return CookieSpec{Name: "%", Domain: domain}
}

// QueryOptions controls how a single Strategy resolves and reads its
// cookie store.
type QueryOptions struct {
	// Force suppresses lockguard's auto-close behavior on a lock conflict;
	// the strategy returns whatever it can read (possibly nothing) instead.
	Force bool

	// IncludeExpired disables the `expires > now` predicate that strategies
	// otherwise apply at query-build time.
	IncludeExpired bool

	// Store overrides profile discovery with a single explicit cookie-file
	// path, bypassing browserpaths.Profiles entirely.
	Store string
}

// ExpiryKind discriminates the cases of Expiry.
type ExpiryKind int

// Values for the ExpiryKind enumeration.
const (
	Session ExpiryKind = iota // cleared when the browser session ends
	Never                     // never expires (or expires so far in the future it is treated as such)
	At                        // expires at a concrete time
)

// Expiry is a small sum type so a session cookie can never be silently
// represented as the zero time.Time.
type Expiry struct {
	Kind ExpiryKind
	Time time.Time // valid only when Kind == At
}

// SessionExpiry reports a cookie that is cleared when the browser closes.
func SessionExpiry() Expiry { return Expiry{Kind: Session} }

// NeverExpiry reports a cookie with no practical expiration.
func NeverExpiry() Expiry { return Expiry{Kind: Never} }

// AtExpiry reports a cookie that expires at t.
func AtExpiry(t time.Time) Expiry { return Expiry{Kind: At, Time: t} }

// ExportedMeta carries provenance for an ExportedCookie: which browser and
// profile it came from, and whether its Value required (and received)
// decryption.
type ExportedMeta struct {
	Browser    string
	Profile    string
	SourceFile string
	Decrypted  bool
}

// ExportedCookie is the browser-independent cookie record returned by every
// public Dispatcher method.
type ExportedCookie struct {
	Name, Domain, Value, Path string
	Expiry                    Expiry
	Secure, HTTPOnly          bool
	SameSite                  cookies.SameSite
	Meta                      ExportedMeta
}
