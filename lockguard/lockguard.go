// Package lockguard classifies SQLite lock/permission conflicts against a
// browser's cookie store and, when permitted, walks the browser through a
// close → wait → relaunch cycle so a retry can succeed.
package lockguard

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/mherod/getcookie/browserpaths"
	"github.com/mherod/getcookie/platform"
)

// Kind classifies an error observed while reading a cookie store.
type Kind int

// Values for the Kind enumeration.
const (
	NotLock Kind = iota
	Locked
	Permission
)

// closedSubstrings is the closed set of case-insensitive substrings
// identifying a lock or permission conflict.
var closedSubstrings = map[string]Kind{
	"database is locked":      Locked,
	"database locked":         Locked,
	"sqlite_busy":             Locked,
	"eperm":                   Permission,
	"operation not permitted": Permission,
	"permission denied":       Permission,
}

// Classify reports what kind of conflict err represents, or NotLock if it
// does not match the closed substring set.
func Classify(err error) Kind {
	if err == nil {
		return NotLock
	}
	msg := strings.ToLower(err.Error())
	for substr, kind := range closedSubstrings {
		if strings.Contains(msg, substr) {
			return kind
		}
	}
	return NotLock
}

// Outcome is the terminal state of Resolve's state machine.
type Outcome int

// Values for the Outcome enumeration.
const (
	Unresolved Outcome = iota
	Relaunched
	Closed
)

func (o Outcome) String() string {
	switch o {
	case Relaunched:
		return "Relaunched"
	case Closed:
		return "Closed"
	default:
		return "Unresolved"
	}
}

const closeWaitBudget = 5 * time.Second
const closePollInterval = 100 * time.Millisecond

// Resolve walks the IDLE→INSPECT→HAS_PROCESSES→CLOSING→CLOSED→RELAUNCHED
// state machine for a lock conflict on file, owned by
// browser. force=true short-circuits straight to Unresolved without ever
// touching a process — the caller has accepted a stale/failed read.
func Resolve(ctx context.Context, file string, browser browserpaths.Browser, force bool) (Outcome, error) {
	if force {
		return Unresolved, nil
	}

	procs, err := platform.FindProcesses(browser.Tag)
	if err != nil || len(procs) == 0 {
		return Unresolved, nil
	}

	if err := closeGracefully(browser.Tag); err != nil {
		return Unresolved, fmt.Errorf("lockguard: closing %s: %w", browser.Tag, err)
	}

	deadline := time.Now().Add(closeWaitBudget)
	for time.Now().Before(deadline) {
		procs, err := platform.FindProcesses(browser.Tag)
		if err == nil && len(procs) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return Unresolved, ctx.Err()
		case <-time.After(closePollInterval):
		}
	}

	if procs, err := platform.FindProcesses(browser.Tag); err == nil && len(procs) > 0 {
		return Unresolved, nil
	}

	if path, ok := platform.LookupExecutable(browser.Tag); ok {
		if err := exec.Command(path).Start(); err != nil {
			// Relaunch failure is logged here, never propagated — the read
			// that triggered this conflict can still be retried against the
			// now-closed (if unlaunched) store.
			log.Printf("lockguard: relaunching %s: %v", browser.Tag, err)
			return Closed, nil
		}
		return Relaunched, nil
	}
	return Closed, nil
}

// closeGracefully sends a polite close signal to browser, matching
// bbmumford-ClaudeBar's platform-specific shell-out style: an AppleScript
// "quit app" on macOS (the app is not activated first), a named-executable
// SIGTERM elsewhere.
func closeGracefully(browserTag string) error {
	switch platform.OSTag() {
	case "darwin":
		appName := appleScriptName(browserTag)
		return exec.Command("osascript", "-e", fmt.Sprintf("quit app %q", appName)).Run()
	case "windows":
		return exec.Command("taskkill", "/IM", browserTag+".exe").Run()
	default:
		return exec.Command("pkill", "-TERM", browserTag).Run()
	}
}

// appleScriptName maps a browser tag to the application name macOS's
// AppleScript "quit app" expects.
func appleScriptName(tag string) string {
	switch tag {
	case "chrome":
		return "Google Chrome"
	case "edge":
		return "Microsoft Edge"
	case "opera-gx":
		return "Opera GX"
	default:
		if tag == "" {
			return tag
		}
		return strings.ToUpper(tag[:1]) + tag[1:]
	}
}
