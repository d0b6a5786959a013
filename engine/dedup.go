package engine

import "time"

// dedupKey groups cookies the way a real browser would treat them as the
// "same" cookie: same name on the same host.
type dedupKey struct{ name, domain string }

// dedup collapses cookies sharing (Name, Domain), keeping the longest Value;
// ties go to the decrypted row; a full tie keeps whichever was seen first,
// which is the earliest-registered strategy's result given cs arrives in
// Dispatcher registration order.
func dedup(cs []ExportedCookie) []ExportedCookie {
	index := make(map[dedupKey]int, len(cs))
	var out []ExportedCookie
	for _, c := range cs {
		k := dedupKey{c.Name, c.Domain}
		i, ok := index[k]
		if !ok {
			index[k] = len(out)
			out = append(out, c)
			continue
		}
		if isBetter(c, out[i]) {
			out[i] = c
		}
	}
	return out
}

func isBetter(a, b ExportedCookie) bool {
	if len(a.Value) != len(b.Value) {
		return len(a.Value) > len(b.Value)
	}
	if a.Meta.Decrypted != b.Meta.Decrypted {
		return a.Meta.Decrypted
	}
	return false
}

// removeExpired drops cookies with a concrete expiry at or before now.
// Session and Never cookies are always kept.
func removeExpired(cs []ExportedCookie) []ExportedCookie {
	now := time.Now()
	var out []ExportedCookie
	for _, c := range cs {
		if c.Expiry.Kind == At && !c.Expiry.Time.After(now) {
			continue
		}
		out = append(out, c)
	}
	return out
}
