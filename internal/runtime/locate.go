package runtime

import (
	"os/exec"
	"path"
	goruntime "runtime"
	"strings"

	"github.com/firefly-engineering/harbor-ctl/internal/logging"
	"github.com/firefly-engineering/harbor-ctl/internal/system"
)

// Location is where an executable was found.
type Location struct {
	Path string
	// WSL is set when a Windows-side docker.exe is used from a WSL2 host.
	WSL bool
}

// Locator finds runtime executables on the host.
type Locator struct {
	fs              system.FileSystem
	lookPath        func(string) (string, error)
	goos            string
	searchDirs      []string
	procVersionPath string
}

// LocatorOption configures a Locator.
type LocatorOption func(*Locator)

// WithFileSystem sets the filesystem used to inspect candidates.
func WithFileSystem(fs system.FileSystem) LocatorOption {
	return func(l *Locator) {
		l.fs = fs
	}
}

// WithLookPath replaces the search-path lookup.
func WithLookPath(fn func(string) (string, error)) LocatorOption {
	return func(l *Locator) {
		l.lookPath = fn
	}
}

// WithGOOS sets the platform whose fallback directories are scanned.
func WithGOOS(goos string) LocatorOption {
	return func(l *Locator) {
		l.goos = goos
	}
}

// WithSearchDirs adds directories scanned before the platform fallbacks.
func WithSearchDirs(dirs ...string) LocatorOption {
	return func(l *Locator) {
		l.searchDirs = append(l.searchDirs, dirs...)
	}
}

// WithProcVersionPath sets the kernel version file used for WSL detection.
func WithProcVersionPath(p string) LocatorOption {
	return func(l *Locator) {
		l.procVersionPath = p
	}
}

// NewLocator creates a Locator for the current host.
func NewLocator(opts ...LocatorOption) *Locator {
	l := &Locator{
		fs:              system.DefaultFS(),
		lookPath:        exec.LookPath,
		goos:            goruntime.GOOS,
		procVersionPath: "/proc/version",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FallbackPaths returns the well-known install locations of kind on goos.
// Entries are either directories or the executable itself.
func FallbackPaths(kind Kind, goos string) []string {
	switch kind {
	case KindDocker:
		switch goos {
		case "windows":
			return []string{
				`C:\Program Files\Docker\Docker\resources\bin`,
				`C:\Program Files\Docker\Docker\resources\bin\docker.exe`,
			}
		case "darwin":
			return []string{
				"/usr/local/bin",
				"/opt/homebrew/bin",
				"/Applications/Docker.app/Contents/Resources/bin",
			}
		default:
			return []string{"/usr/bin", "/usr/local/bin", "/snap/bin"}
		}
	case KindPodman:
		switch goos {
		case "windows":
			return []string{
				`C:\Program Files\RedHat\Podman`,
				`C:\Program Files\RedHat\Podman\podman.exe`,
			}
		case "darwin":
			return []string{"/usr/local/bin", "/opt/homebrew/bin", "/opt/podman/bin"}
		default:
			return []string{"/usr/bin", "/usr/local/bin", "/usr/libexec/podman"}
		}
	}
	return nil
}

// Locate finds the executable for kind. The search path wins, then the
// configured and platform fallback locations, then (Docker on Linux only)
// the Windows side of a WSL2 host. Not finding anything is not an error.
func (l *Locator) Locate(kind Kind) (Location, bool) {
	name := kind.Executable()

	if p, err := l.lookPath(name); err == nil {
		logging.Debug("found executable on search path", "kind", kind, "path", p)
		return Location{Path: p}, true
	}

	candidates := append(append([]string{}, l.searchDirs...), FallbackPaths(kind, l.goos)...)
	for _, candidate := range candidates {
		if p, ok := l.checkCandidate(candidate, name); ok {
			logging.Debug("found executable in fallback location", "kind", kind, "path", p)
			return Location{Path: p}, true
		}
	}

	if kind == KindDocker && l.goos == "linux" && l.IsWSL() {
		if p, err := l.lookPath("docker.exe"); err == nil {
			logging.Debug("found docker.exe through WSL interop", "path", p)
			return Location{Path: p, WSL: true}, true
		}
	}

	logging.Debug("executable not found", "kind", kind, "candidates", len(candidates))
	return Location{}, false
}

func (l *Locator) checkCandidate(candidate, name string) (string, bool) {
	names := []string{name}
	if l.goos == "windows" {
		names = append(names, name+".exe")
	}

	info, err := l.fs.Stat(candidate)
	if err != nil {
		return "", false
	}
	if !info.IsDir() {
		for _, n := range names {
			if strings.HasSuffix(candidate, l.separator()+n) || candidate == n {
				return candidate, true
			}
		}
		return "", false
	}

	for _, n := range names {
		p := l.join(candidate, n)
		if info, err := l.fs.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

func (l *Locator) separator() string {
	if l.goos == "windows" {
		return `\`
	}
	return "/"
}

// join uses the target platform's separator rather than the host's.
func (l *Locator) join(dir, name string) string {
	if l.goos == "windows" {
		return strings.TrimRight(dir, `\`) + `\` + name
	}
	return path.Join(dir, name)
}

// IsWSL reports whether the kernel identifies itself as WSL.
func (l *Locator) IsWSL() bool {
	data, err := l.fs.ReadFile(l.procVersionPath)
	if err != nil {
		return false
	}
	v := strings.ToLower(string(data))
	return strings.Contains(v, "microsoft") || strings.Contains(v, "wsl")
}

// Verify reports whether path is usable as an executable.
func (l *Locator) Verify(path string) bool {
	return VerifyExecutable(l.fs, l.goos, path)
}

// VerifyExecutable reports whether path is an executable file. On Windows
// any regular file qualifies; elsewhere at least one execute bit must be set.
func VerifyExecutable(fs system.FileSystem, goos, path string) bool {
	info, err := fs.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if goos == "windows" {
		return info.Mode().IsRegular()
	}
	return info.Mode().Perm()&0o111 != 0
}
