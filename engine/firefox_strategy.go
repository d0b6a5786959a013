package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mherod/getcookie"
	"github.com/mherod/getcookie/browserpaths"
	"github.com/mherod/getcookie/lockguard"
	"github.com/mherod/getcookie/sqlrunner"
)

const firefoxQueryColumns = "name, value, host AS domain, expiry, isSecure, isHttpOnly, path, sameSite"

// firefoxStrategy reads every discovered Firefox-family profile's
// cookies.sqlite. Firefox stores cookie values as plaintext, so every row
// comes back with Decrypted=true.
type firefoxStrategy struct{}

func newFirefoxStrategy() *firefoxStrategy { return &firefoxStrategy{} }

func (s *firefoxStrategy) Name() string           { return "firefox" }
func (s *firefoxStrategy) Kind() browserpaths.Kind { return browserpaths.Firefox }

var firefoxBrowser = browserpaths.Browser{Tag: "firefox", Kind: browserpaths.Firefox}

func (s *firefoxStrategy) Query(ctx context.Context, spec CookieSpec, opts QueryOptions) ([]ExportedCookie, error) {
	paths, err := s.resolvePaths(opts)
	if err != nil || len(paths) == 0 {
		return nil, nil
	}

	query, args := buildFirefoxQuery(spec.Name, spec.Domain, opts.IncludeExpired)

	var out []ExportedCookie
	for _, p := range paths {
		cs, err := s.queryFile(ctx, p, spec, query, args)
		if err != nil {
			classified := classifyStoreError(err)
			if errors.Is(classified, ErrLocked) || errors.Is(classified, ErrPermission) {
				if outcome, lerr := lockguard.Resolve(ctx, p.CookieFile, firefoxBrowser, opts.Force); lerr == nil && outcome != lockguard.Unresolved {
					cs, err = s.queryFile(ctx, p, spec, query, args)
				}
			}
			if err != nil {
				continue
			}
		}
		out = append(out, cs...)
	}
	return out, nil
}

func (s *firefoxStrategy) resolvePaths(opts QueryOptions) ([]browserpaths.ProfileCookiePath, error) {
	if opts.Store != "" {
		return []browserpaths.ProfileCookiePath{{Profile: "manual", CookieFile: opts.Store}}, nil
	}
	return browserpaths.Profiles(firefoxBrowser)
}

// buildFirefoxQuery mirrors chromedb.BuildQuery's shape against the
// moz_cookies schema: a Unix-seconds expiry column instead of Chrome
// microseconds, and a host column in place of host_key, but the same
// name-wildcard collapse and three-way domain match.
func buildFirefoxQuery(name, domain string, includeExpired bool) (string, []any) {
	var clauses []string
	var args []any

	if !includeExpired {
		clauses = append(clauses, fmt.Sprintf("expiry > %d", time.Now().Unix()))
	}
	if name != "%" {
		clauses = append(clauses, "(name = ? OR ? = '%')")
		args = append(args, name, name)
	}
	clauses = append(clauses, "(host = ? OR host = ? OR host LIKE ?)")
	args = append(args, domain, "."+domain, "%."+domain)

	query := fmt.Sprintf("SELECT %s FROM moz_cookies WHERE %s", firefoxQueryColumns, strings.Join(clauses, " AND "))
	return query, args
}

func (s *firefoxStrategy) queryFile(ctx context.Context, p browserpaths.ProfileCookiePath, spec CookieSpec, query string, args []any) ([]ExportedCookie, error) {
	var out []ExportedCookie
	err := sqlrunner.Run(ctx, p.CookieFile, query, args, func(r *sql.Rows) error {
		var name, domain, path string
		var value string
		var expiry, sameSite int64
		var isSecure, isHTTPOnly bool
		if err := r.Scan(&name, &value, &domain, &expiry, &isSecure, &isHTTPOnly, &path, &sameSite); err != nil {
			return err
		}
		if !domainMatches(spec.Domain, domain) {
			return nil
		}
		out = append(out, ExportedCookie{
			Name:     name,
			Domain:   domain,
			Value:    value,
			Path:     path,
			Expiry:   firefoxExpiry(expiry),
			Secure:   isSecure,
			HTTPOnly: isHTTPOnly,
			SameSite: firefoxSameSite(sameSite),
			Meta: ExportedMeta{
				Browser:    "firefox",
				Profile:    p.Profile,
				SourceFile: p.CookieFile,
				Decrypted:  true,
			},
		})
		return nil
	})
	return out, err
}

func firefoxExpiry(sec int64) Expiry {
	if sec <= 0 {
		return Expiry{Kind: Session}
	}
	return Expiry{Kind: At, Time: time.Unix(sec, 0).UTC()}
}

func firefoxSameSite(v int64) cookies.SameSite {
	switch v {
	case 1:
		return cookies.Lax
	case 2:
		return cookies.Strict
	default:
		return cookies.None
	}
}
