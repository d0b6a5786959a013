// Package browserpaths enumerates per-browser profile and cookie-file
// locations across macOS, Windows, and Linux.
package browserpaths

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/mherod/getcookie/platform"
)

// Kind distinguishes the cookie-storage family a Browser belongs to.
type Kind int

// Values for the Kind enumeration.
const (
	Chromium Kind = iota
	Firefox
	Safari
)

// Browser identifies one browser to discover profiles for.
type Browser struct {
	Tag  string // "chrome", "brave", "firefox", "safari", ...
	Kind Kind
}

// ProfileCookiePath is one discovered cookie store candidate.
type ProfileCookiePath struct {
	Profile    string // profile directory name, e.g. "Default", "Profile 1"
	CookieFile string // absolute path to the cookie database/container
}

// Registry of the browsers the engine's Default dispatcher knows about, in
// the fixed registration order the composite dispatcher preserves.
var Registry = []Browser{
	{Tag: "chrome", Kind: Chromium},
	{Tag: "chromium", Kind: Chromium},
	{Tag: "edge", Kind: Chromium},
	{Tag: "brave", Kind: Chromium},
	{Tag: "opera", Kind: Chromium},
	{Tag: "opera-gx", Kind: Chromium},
	{Tag: "arc", Kind: Chromium},
	{Tag: "firefox", Kind: Firefox},
	{Tag: "safari", Kind: Safari},
}

// chromiumDirNames maps a browser tag to its per-OS "User Data"-equivalent
// base directory, relative to the platform's application-support root.
// Grounded on bbmumford-ClaudeBar's chromiumBrowsers per-OS path tables.
var chromiumDirNames = map[string]map[string][]string{
	"chrome": {
		"darwin":  {"Google", "Chrome"},
		"windows": {"Google", "Chrome", "User Data"},
		"linux":   {".config", "google-chrome"},
	},
	"chromium": {
		"darwin":  {"Chromium"},
		"windows": {"Chromium", "User Data"},
		"linux":   {".config", "chromium"},
	},
	"edge": {
		"darwin":  {"Microsoft Edge"},
		"windows": {"Microsoft", "Edge", "User Data"},
		"linux":   {".config", "microsoft-edge"},
	},
	"brave": {
		"darwin":  {"BraveSoftware", "Brave-Browser"},
		"windows": {"BraveSoftware", "Brave-Browser", "User Data"},
		"linux":   {".config", "BraveSoftware", "Brave-Browser"},
	},
	"opera": {
		"darwin":  {"com.operasoftware.Opera"},
		"windows": {"Opera Software", "Opera Stable"},
		"linux":   {".config", "opera"},
	},
	"opera-gx": {
		"darwin":  {"com.operasoftware.OperaGX"},
		"windows": {"Opera Software", "Opera GX Stable"},
		"linux":   {".config", "opera-gx"},
	},
	"arc": {
		"darwin": {"Arc"},
	},
}

var chromiumProfileNames = []string{
	"Default",
	"Profile 1", "Profile 2", "Profile 3", "Profile 4", "Profile 5",
	"Profile 6", "Profile 7", "Profile 8", "Profile 9", "Profile 10",
}

// Profiles enumerates the candidate cookie files for b. A missing top-level
// browser directory yields an empty slice with no error (spec's NotFound —
// never surfaces as a failure).
func Profiles(b Browser) ([]ProfileCookiePath, error) {
	switch b.Kind {
	case Chromium:
		return chromiumProfiles(b.Tag)
	case Firefox:
		return firefoxProfiles(b.Tag)
	case Safari:
		return safariProfiles()
	default:
		return nil, nil
	}
}

func appSupportRoot() (string, error) {
	home, err := platform.HomeDir()
	if err != nil {
		return "", err
	}
	switch platform.OSTag() {
	case "darwin":
		return platform.Join(home, "Library", "Application Support"), nil
	case "windows":
		if v := os.Getenv("LOCALAPPDATA"); v != "" {
			return v, nil
		}
		return platform.Join(home, "AppData", "Local"), nil
	default: // linux and anything else
		return home, nil
	}
}

func chromiumProfiles(tag string) ([]ProfileCookiePath, error) {
	root, err := appSupportRoot()
	if err != nil {
		return nil, err
	}
	rel, ok := chromiumDirNames[tag][platform.OSTag()]
	if !ok {
		return nil, nil
	}
	base := platform.Join(append([]string{root}, rel...)...)
	if _, err := os.Stat(base); err != nil {
		return nil, nil // fast path: browser not installed
	}

	var out []ProfileCookiePath
	for _, profile := range chromiumProfileNames {
		cookieFile := platform.Join(base, profile, "Network", "Cookies")
		if _, err := os.Stat(cookieFile); err != nil {
			// Older Chrome releases kept Cookies directly under the profile
			// directory rather than under Network/.
			cookieFile = platform.Join(base, profile, "Cookies")
			if _, err := os.Stat(cookieFile); err != nil {
				continue
			}
		}
		out = append(out, ProfileCookiePath{Profile: profile, CookieFile: cookieFile})
	}
	return out, nil
}

func firefoxProfilesRoot() (string, error) {
	home, err := platform.HomeDir()
	if err != nil {
		return "", err
	}
	switch platform.OSTag() {
	case "darwin":
		return platform.Join(home, "Library", "Application Support", "Firefox", "Profiles"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = platform.Join(home, "AppData", "Roaming")
		}
		return platform.Join(appData, "Mozilla", "Firefox", "Profiles"), nil
	default:
		return platform.Join(home, ".mozilla", "firefox"), nil
	}
}

func firefoxIniPath() (string, error) {
	root, err := firefoxProfilesRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(root), "profiles.ini"), nil
}

// firefoxProfiles discovers every usable Firefox-family profile. Supports
// Firefox, Developer Edition, and ESR via the same profiles.ini layout.
func firefoxProfiles(tag string) ([]ProfileCookiePath, error) {
	root, err := firefoxProfilesRoot()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); err != nil {
		return nil, nil
	}

	var dirs []string
	if ini, err := firefoxIniPath(); err == nil {
		dirs = append(dirs, parseProfilesIni(ini)...)
	}
	if len(dirs) == 0 {
		// Fallback: scan subdirectories whose name contains "default".
		entries, err := os.ReadDir(root)
		if err == nil {
			for _, e := range entries {
				if e.IsDir() && strings.Contains(strings.ToLower(e.Name()), "default") {
					dirs = append(dirs, filepath.Join(root, e.Name()))
				}
			}
		}
	}

	var out []ProfileCookiePath
	seen := make(map[string]bool)
	for _, dir := range dirs {
		if seen[dir] {
			continue
		}
		seen[dir] = true
		cookieFile := filepath.Join(dir, "cookies.sqlite")
		if _, err := os.Stat(cookieFile); err != nil {
			continue
		}
		out = append(out, ProfileCookiePath{Profile: filepath.Base(dir), CookieFile: cookieFile})
	}
	return out, nil
}

// parseProfilesIni returns the absolute profile directories named by a
// Firefox-style profiles.ini, preferring [Install*] Default= entries (used
// by modern Firefox) and falling back to [Profile*] sections with Default=1.
//
// Grounded on the warpdl-warpdl paths.go parseProfilesIni priority logic,
// generalised to collect every profile rather than only the single default
// (a user may run cookies out of a non-default profile). Each directory
// appears once, at its first position.
func parseProfilesIni(iniPath string) []string {
	f, err := os.Open(iniPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	iniDir := filepath.Dir(iniPath)

	var installDefault string
	var allProfiles []string
	var defaultProfiles []string
	var inInstallSection, inProfileSection bool
	var currentPath string
	var currentIsDefault bool

	flushProfile := func() {
		if currentPath == "" {
			return
		}
		allProfiles = append(allProfiles, currentPath)
		if currentIsDefault {
			defaultProfiles = append(defaultProfiles, currentPath)
		}
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			if inProfileSection {
				flushProfile()
			}
			section := strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			inInstallSection = strings.HasPrefix(section, "Install")
			inProfileSection = strings.HasPrefix(section, "Profile")
			currentPath = ""
			currentIsDefault = false
			continue
		}
		key, val, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		switch {
		case inInstallSection && key == "Default" && installDefault == "":
			installDefault = filepath.Join(iniDir, filepath.FromSlash(val))
		case inProfileSection && key == "Path":
			currentPath = filepath.Join(iniDir, filepath.FromSlash(val))
		case inProfileSection && key == "Default" && val == "1":
			currentIsDefault = true
		}
	}
	if inProfileSection {
		flushProfile()
	}

	ordered := allProfiles
	if installDefault != "" {
		ordered = append([]string{installDefault}, allProfiles...)
	} else if len(defaultProfiles) > 0 {
		ordered = append(defaultProfiles, allProfiles...)
	}
	var out []string
	seen := make(map[string]bool)
	for _, p := range ordered {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// safariProfiles returns Safari's single fixed cookie container path. Safari
// has no concept of multiple profiles.
func safariProfiles() ([]ProfileCookiePath, error) {
	home, err := platform.HomeDir()
	if err != nil {
		return nil, err
	}
	path := platform.Join(home, "Library", "Cookies", "Cookies.binarycookies")
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	return []ProfileCookiePath{{Profile: "Default", CookieFile: path}}, nil
}
