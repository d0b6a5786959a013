package engine

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/mherod/getcookie"
	"github.com/mherod/getcookie/browserpaths"
	"github.com/mherod/getcookie/chromedb"
	"github.com/mherod/getcookie/lockguard"
	"github.com/mherod/getcookie/masterkey"
)

// chromeEpochOffset is the number of seconds between the Chrome epoch
// (1601-01-01) and the Unix epoch.
const chromeEpochOffset = 11644473600

// neverThreshold is the Unix-seconds boundary used to treat an
// implausibly-far expiry (typically a bogus or maximal Chromium timestamp)
// as "never expires" rather than as a literal date.
const neverThreshold = 64_092_211_200

// chromiumStrategy reads one Chromium-family browser's cookie stores across
// every discovered profile.
type chromiumStrategy struct {
	tag string
	key masterkey.Provider
}

func newChromiumStrategy(tag string) *chromiumStrategy {
	return &chromiumStrategy{tag: tag, key: masterkey.ForOS()}
}

func (s *chromiumStrategy) Name() string               { return s.tag }
func (s *chromiumStrategy) Kind() browserpaths.Kind     { return browserpaths.Chromium }
func (s *chromiumStrategy) browser() browserpaths.Browser {
	return browserpaths.Browser{Tag: s.tag, Kind: browserpaths.Chromium}
}

func (s *chromiumStrategy) Query(ctx context.Context, spec CookieSpec, opts QueryOptions) ([]ExportedCookie, error) {
	paths, err := s.resolvePaths(opts)
	if err != nil || len(paths) == 0 {
		return nil, nil
	}

	var out []ExportedCookie
	for _, p := range paths {
		cs, err := s.queryFile(ctx, p, spec, opts)
		if err != nil {
			classified := classifyStoreError(err)
			if errors.Is(classified, ErrLocked) || errors.Is(classified, ErrPermission) {
				if outcome, lerr := lockguard.Resolve(ctx, p.CookieFile, s.browser(), opts.Force); lerr == nil && outcome != lockguard.Unresolved {
					cs, err = s.queryFile(ctx, p, spec, opts)
				}
			}
			if err != nil {
				continue // isolate: this profile's failure does not sink the others
			}
		}
		out = append(out, cs...)
	}
	return out, nil
}

func (s *chromiumStrategy) resolvePaths(opts QueryOptions) ([]browserpaths.ProfileCookiePath, error) {
	if opts.Store != "" {
		return []browserpaths.ProfileCookiePath{{Profile: "manual", CookieFile: opts.Store}}, nil
	}
	return browserpaths.Profiles(s.browser())
}

func (s *chromiumStrategy) queryFile(ctx context.Context, p browserpaths.ProfileCookiePath, spec CookieSpec, opts QueryOptions) ([]ExportedCookie, error) {
	var keyBytes []byte
	if s.key != nil {
		if k, err := s.key.Key(ctx, s.tag, filepath.Dir(p.CookieFile)); err == nil {
			keyBytes = k.Bytes
		}
	}

	nowChrome := (time.Now().Unix() + chromeEpochOffset) * 1_000_000
	rows, err := chromedb.Query(ctx, p.CookieFile, keyBytes, spec.Name, spec.Domain, opts.IncludeExpired, nowChrome)
	if err != nil {
		return nil, err
	}

	out := make([]ExportedCookie, 0, len(rows))
	for _, r := range rows {
		if !domainMatches(spec.Domain, r.Domain) {
			continue
		}
		out = append(out, ExportedCookie{
			Name:     r.Name,
			Domain:   r.Domain,
			Value:    r.Value,
			Path:     r.Path,
			Expiry:   chromeExpiry(r.ExpiresUTC),
			Secure:   r.Secure,
			HTTPOnly: r.HTTPOnly,
			SameSite: chromeSameSite(r.SameSite),
			Meta: ExportedMeta{
				Browser:    s.tag,
				Profile:    p.Profile,
				SourceFile: p.CookieFile,
				Decrypted:  r.Decrypted,
			},
		})
	}
	return out, nil
}

// chromeExpiry converts a Chrome microsecond timestamp to Expiry using the
// sentinel rule: the converted Unix-seconds value at or
// below zero is a session cookie, at or above neverThreshold never expires,
// otherwise it is a concrete time.
func chromeExpiry(usec int64) Expiry {
	sec := usec/1_000_000 - chromeEpochOffset
	switch {
	case sec <= 0:
		return Expiry{Kind: Session}
	case sec >= neverThreshold:
		return Expiry{Kind: Never}
	default:
		return Expiry{Kind: At, Time: time.Unix(sec, 0).UTC()}
	}
}

func chromeSameSite(v int64) cookies.SameSite {
	switch v {
	case 0:
		return cookies.None
	case 1:
		return cookies.Lax
	case 2:
		return cookies.Strict
	default:
		return cookies.Unknown
	}
}
