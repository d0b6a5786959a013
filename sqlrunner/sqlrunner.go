// Package sqlrunner opens the read-only database/sql handles the extraction
// path uses against browser cookie stores. It centralises the read-only
// open mode, WAL pragma attempt, and lock-retry policy so chromedb.Query and
// the engine's Firefox strategy share one implementation of each. The
// chromedb and firefox Store types still open their own handles for their
// read/write Scan.
package sqlrunner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// retryDelays is the bounded backoff ladder applied to a classified lock
// error: three attempts total, counting the first.
var retryDelays = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 1000 * time.Millisecond}

// lockSubstrings is the closed set of case-insensitive substrings that
// identify a lock or permission conflict.
var lockSubstrings = []string{
	"database is locked",
	"database locked",
	"sqlite_busy",
	"eperm",
	"operation not permitted",
	"permission denied",
}

// IsLockError reports whether err looks like a busy/locked/permission
// conflict rather than a genuine query or schema failure.
func IsLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range lockSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Run opens file read-only, executes query with args, and invokes scan once
// per result row. The DSN uses mode=ro&immutable=1 (grounded on
// bbmumford-ClaudeBar's openCookieDB immutable-flag approach) so a browser
// holding a write lock on the same file does not block this reader. A
// classified lock error is retried with the 100ms/500ms/1000ms ladder; any
// other error is returned immediately.
func Run(ctx context.Context, file, query string, args []any, scan func(*sql.Rows) error) error {
	attempts := 0
	err := Retry(ctx, IsLockError, retryDelays, func() error {
		attempts++
		return runOnce(ctx, file, query, args, scan)
	})
	if err == nil && attempts > 1 {
		log.Printf("sqlrunner: recovered reading %s after %d retries", file, attempts-1)
	}
	return err
}

// Retry calls fn until it succeeds, isRetryable(err) returns false for its
// error, or the delays ladder is exhausted (delays has len(delays)
// retries after the first attempt, for len(delays)+1 attempts total). It is
// a small, dependency-free seam so the retry policy itself — independent of
// what fn actually does — can be tested without a real locked database.
func Retry(ctx context.Context, isRetryable func(error) bool, delays []time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= len(delays); attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
		lastErr = err
		if attempt == len(delays) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}
	return fmt.Errorf("sqlrunner: exhausted %d attempts: %w", len(delays)+1, lastErr)
}

func runOnce(ctx context.Context, file, query string, args []any, scan func(*sql.Rows) error) error {
	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1", file)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	// Best-effort; some builds of modernc.org/sqlite reject this pragma on
	// an immutable connection, which is harmless.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		log.Printf("sqlrunner: WAL pragma on %s: %v", file, err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ErrNoRows reports that a query expected to yield a row yielded none. No
// function in this package returns it.
var ErrNoRows = errors.New("sqlrunner: no rows")
