package chromedb

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mherod/getcookie/sqlrunner"
)

const queryColumns = "name, encrypted_value, host_key AS domain, expires_utc AS expiry, " +
	"is_secure, is_httponly, path, samesite"

// BuildQuery renders the canonical SQL template for the
// given name/domain predicate, returning the query text and its positional
// parameters in bind order. It is exported so the dedicated canonical-query
// test (and the engine's strategy) can both exercise exactly the SQL that
// will run, with the literal `%` name wildcard collapsing the name
// predicate entirely rather than binding it.
func BuildQuery(name, domain string, includeExpired bool, nowMicros int64) (string, []any) {
	var clauses []string
	var args []any

	if !includeExpired {
		clauses = append(clauses, fmt.Sprintf("expires_utc > %d", nowMicros))
	}
	if name != "%" {
		clauses = append(clauses, "(name = ? OR ? = '%')")
		args = append(args, name, name)
	}
	clauses = append(clauses, "(host_key = ? OR host_key = ? OR host_key LIKE ?)")
	args = append(args, domain, "."+domain, "%."+domain)

	query := fmt.Sprintf("SELECT %s FROM cookies WHERE %s", queryColumns, strings.Join(clauses, " AND "))
	return query, args
}

// Row is one cookie row returned by Query, decrypted if a key was
// available.
type Row struct {
	Name       string
	Value      string // decrypted plaintext, or hex-encoded raw bytes when !Decrypted
	Domain     string
	ExpiresUTC int64 // Chrome microsecond timestamp
	Secure     bool
	HTTPOnly   bool
	Path       string
	SameSite   int64
	Decrypted  bool
}

// Query runs the canonical SQL against the database at path
// through sqlrunner.Run (sharing its read-only open, WAL pragma attempt,
// and lock-retry ladder with firefox), decrypting encrypted_value with key
// when present. A decrypt failure degrades the row to its hex-encoded raw
// bytes with Decrypted=false rather than failing the query.
func Query(ctx context.Context, path string, key []byte, name, domain string, includeExpired bool, nowMicros int64) ([]Row, error) {
	query, args := BuildQuery(name, domain, includeExpired, nowMicros)

	var rows []Row
	err := sqlrunner.Run(ctx, path, query, args, func(r *sql.Rows) error {
		var name, domain, path string
		var encValue []byte
		var expiry, secure, httponly, sameSite int64
		if err := r.Scan(&name, &encValue, &domain, &expiry, &secure, &httponly, &path, &sameSite); err != nil {
			return err
		}

		row := Row{
			Name: name, Domain: domain, Path: path,
			ExpiresUTC: expiry, Secure: secure != 0, HTTPOnly: httponly != 0, SameSite: sameSite,
		}
		switch {
		case len(encValue) == 0:
			row.Decrypted = true
		case len(key) == 0:
			row.Value = hex.EncodeToString(encValue)
			row.Decrypted = false
		default:
			dec, err := decryptValue(key, encValue)
			if err != nil {
				row.Value = hex.EncodeToString(encValue)
				row.Decrypted = false
			} else {
				row.Value = string(dec)
				row.Decrypted = true
			}
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
