package engine

import (
	"context"
	"os"
	"time"

	"github.com/mherod/getcookie/bincookie"
	"github.com/mherod/getcookie/browserpaths"
)

// safariStrategy reads macOS's single .binarycookies container. Safari has
// no master-key step: values are stored in the clear inside the container.
type safariStrategy struct{}

func newSafariStrategy() *safariStrategy { return &safariStrategy{} }

func (s *safariStrategy) Name() string           { return "safari" }
func (s *safariStrategy) Kind() browserpaths.Kind { return browserpaths.Safari }

func (s *safariStrategy) Query(ctx context.Context, spec CookieSpec, opts QueryOptions) ([]ExportedCookie, error) {
	path := opts.Store
	profile := "manual"
	if path == "" {
		paths, err := browserpaths.Profiles(browserpaths.Browser{Tag: "safari", Kind: browserpaths.Safari})
		if err != nil || len(paths) == 0 {
			return nil, nil
		}
		path = paths[0].CookieFile
		profile = paths[0].Profile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil // not found is never fatal to the overall fan-out
	}
	f, err := bincookie.ParseFile(data)
	if err != nil {
		// A fatal magic-number mismatch means this container is not a
		// bincookie file at all; nothing downstream can recover it.
		return nil, nil
	}

	now := time.Now()
	var out []ExportedCookie
	for _, page := range f.Pages {
		for _, c := range page.Cookies {
			if spec.Name != "%" && c.Name != spec.Name {
				continue
			}
			if !domainMatches(spec.Domain, c.URL) {
				continue
			}
			if !opts.IncludeExpired && !c.Expires.IsZero() && c.Expires.Before(now) {
				continue
			}
			edit := c.Get()
			out = append(out, ExportedCookie{
				Name:     c.Name,
				Domain:   c.URL,
				Value:    c.Value,
				Path:     c.Path,
				Expiry:   safariExpiry(c.Expires),
				Secure:   edit.Flags.Secure,
				HTTPOnly: edit.Flags.HTTPOnly,
				SameSite: edit.SameSite,
				Meta: ExportedMeta{
					Browser:    "safari",
					Profile:    profile,
					SourceFile: path,
					Decrypted:  true,
				},
			})
		}
	}
	return out, nil
}

func safariExpiry(t time.Time) Expiry {
	if t.IsZero() {
		return Expiry{Kind: Session}
	}
	return Expiry{Kind: At, Time: t}
}
