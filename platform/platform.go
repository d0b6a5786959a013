// Package platform adapts cookie discovery to the host operating system:
// home-directory and environment-variable lookup, path joining, executable
// probing, and best-effort process inspection for the lock handler.
package platform

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// OSTag reports the running operating system as one of "darwin", "windows",
// or "linux". Other values of runtime.GOOS are returned unchanged so callers
// can still log them, but no browser profile layout is defined for them.
func OSTag() string { return runtime.GOOS }

// HomeDir returns the current user's home directory.
func HomeDir() (string, error) { return os.UserHomeDir() }

// Join joins path elements using the host's native separator.
func Join(parts ...string) string { return filepath.Join(parts...) }

// LookupExecutable reports whether any of names can be found, either as an
// absolute path that exists or as a name resolvable on PATH. It returns the
// first match.
func LookupExecutable(names ...string) (string, bool) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if filepath.IsAbs(name) {
			if _, err := os.Stat(name); err == nil {
				return name, true
			}
			continue
		}
		if path, err := exec.LookPath(name); err == nil {
			return path, true
		}
	}
	return "", false
}

// ProcessInfo describes one running process, as reported by FindProcesses.
type ProcessInfo struct {
	PID     int
	Command string
}

// FindProcesses performs a best-effort search for running processes whose
// command line contains nameSubstr, case-insensitively. It shells out to the
// platform process-listing tool the way bbmumford-ClaudeBar's platform files
// shell out to cp/cmd for file access; any failure (tool missing, spawn
// error, odd output) is non-fatal and reported as an empty slice, never an
// error a caller needs to handle specially. An empty nameSubstr is the one
// case reported as an error.
func FindProcesses(nameSubstr string) ([]ProcessInfo, error) {
	if nameSubstr == "" {
		return nil, errors.New("empty process name")
	}
	switch runtime.GOOS {
	case "windows":
		return findProcessesWindows(nameSubstr)
	default:
		return findProcessesPosix(nameSubstr)
	}
}

func findProcessesPosix(nameSubstr string) ([]ProcessInfo, error) {
	out, err := exec.Command("ps", "-axo", "pid=,comm=").Output()
	if err != nil {
		return nil, nil
	}
	return parsePSOutput(string(out), nameSubstr), nil
}

func findProcessesWindows(nameSubstr string) ([]ProcessInfo, error) {
	out, err := exec.Command("tasklist", "/FO", "CSV", "/NH").Output()
	if err != nil {
		return nil, nil
	}
	return parseTasklistOutput(string(out), nameSubstr), nil
}

func parsePSOutput(out, nameSubstr string) []ProcessInfo {
	needle := strings.ToLower(nameSubstr)
	var procs []ProcessInfo
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			continue
		}
		pid, err := parsePID(fields[0])
		if err != nil {
			continue
		}
		comm := strings.TrimSpace(fields[1])
		if strings.Contains(strings.ToLower(comm), needle) {
			procs = append(procs, ProcessInfo{PID: pid, Command: comm})
		}
	}
	return procs
}

func parseTasklistOutput(out, nameSubstr string) []ProcessInfo {
	needle := strings.ToLower(nameSubstr)
	var procs []ProcessInfo
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 2 {
			continue
		}
		name := strings.Trim(fields[0], `"`)
		pidStr := strings.Trim(fields[1], `"`)
		pid, err := parsePID(pidStr)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(name), needle) {
			procs = append(procs, ProcessInfo{PID: pid, Command: name})
		}
	}
	return procs
}

func parsePID(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, errors.New("empty pid")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errors.New("not a pid")
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}
