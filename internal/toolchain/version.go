package toolchain

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Identifies a toolchain release by its major and minor components.
//
// The canonical string form is "major.minor". There is no patch or
// pre-release component.
type Version struct {
	Major int
	Minor int
}

// Parses a canonical "major.minor" string.
//
// Exactly two dot-separated components are accepted, each made of ASCII
// digits only. Leading zeros are rejected ("0.07") so that a parsed name
// always equals the canonical name of the result; otherwise two on-disk
// folders could claim the same version.
func Parse(s string) (Version, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok || strings.Contains(minor, ".") {
		return Version{}, errors.Wrapf(ErrInvalidVersion, "%q", s)
	}

	ma, err := parseComponent(major)
	if err != nil {
		return Version{}, errors.Wrapf(ErrInvalidVersion, "%q: %v", s, err)
	}
	mi, err := parseComponent(minor)
	if err != nil {
		return Version{}, errors.Wrapf(ErrInvalidVersion, "%q: %v", s, err)
	}

	return Version{Major: ma, Minor: mi}, nil
}

// Like [Parse] but panics on error. Intended for tests and constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Parses one numeric component of a version.
func parseComponent(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty component")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-numeric component %q", s)
		}
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, fmt.Errorf("leading zero in %q", s)
	}
	return strconv.Atoi(s)
}

// Returns the canonical "major.minor" form.
func (v Version) String() string {
	return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
}

// Compares by major, then minor. Returns -1, 0 or +1.
func (v Version) Compare(o Version) int {
	if c := cmp.Compare(v.Major, o.Major); c != 0 {
		return c
	}
	return cmp.Compare(v.Minor, o.Minor)
}

// Implements [encoding.TextMarshaler].
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Implements [encoding.TextUnmarshaler].
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Sorts versions newest first and removes duplicates, in place.
//
// Returns the shortened slice.
func SortDescending(vs []Version) []Version {
	slices.SortFunc(vs, func(a, b Version) int {
		return b.Compare(a)
	})
	return slices.Compact(vs)
}

// Parses every name that is a version and drops the rest.
//
// The result is sorted newest first without duplicates.
func ParseAll(names []string) []Version {
	vs := make([]Version, 0, len(names))
	for _, name := range names {
		if v, err := Parse(name); err == nil {
			vs = append(vs, v)
		}
	}
	return SortDescending(vs)
}
