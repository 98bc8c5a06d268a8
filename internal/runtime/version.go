package runtime

import (
	"cmp"
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidVersion is returned when no major.minor.patch triple is found.
var ErrInvalidVersion = errors.New("invalid version string")

var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)\.(\d+)`)

// Version is a parsed major.minor.patch version.
type Version struct {
	Major uint   `json:"major" yaml:"major"`
	Minor uint   `json:"minor" yaml:"minor"`
	Patch uint   `json:"patch" yaml:"patch"`
	Full  string `json:"full" yaml:"full"`
}

// NewVersion builds a Version from its components.
func NewVersion(major, minor, patch uint) Version {
	return Version{
		Major: major,
		Minor: minor,
		Patch: patch,
		Full:  fmt.Sprintf("%d.%d.%d", major, minor, patch),
	}
}

// ParseVersion extracts the first major.minor.patch triple in raw, so
// "Docker version 24.0.7, build afdd53b" and "podman version 4.8.0" both parse.
func ParseVersion(raw string) (Version, error) {
	m := versionPattern.FindStringSubmatch(raw)
	if m == nil {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, raw)
	}

	var parts [3]uint
	for i := range parts {
		n, err := strconv.ParseUint(m[i+1], 10, 32)
		if err != nil {
			return Version{}, fmt.Errorf("%w: component %q: %v", ErrInvalidVersion, m[i+1], err)
		}
		parts[i] = uint(n)
	}
	return NewVersion(parts[0], parts[1], parts[2]), nil
}

// Compare orders versions by (major, minor, patch).
func (v Version) Compare(o Version) int {
	if c := cmp.Compare(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, o.Minor); c != 0 {
		return c
	}
	return cmp.Compare(v.Patch, o.Patch)
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// MinimumVersion returns the oldest supported version of kind.
func MinimumVersion(kind Kind) Version {
	switch kind {
	case KindDocker:
		return NewVersion(20, 10, 0)
	case KindPodman:
		return NewVersion(3, 0, 0)
	default:
		return Version{}
	}
}

// ValidateMinimum reports whether v is at least the supported minimum for
// kind. An old version only raises a warning; it never fails detection.
func ValidateMinimum(v Version, kind Kind) bool {
	return v.Compare(MinimumVersion(kind)) >= 0
}
