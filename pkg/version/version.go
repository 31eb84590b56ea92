package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Parse failure classes.
var (
	ErrEmptyVersion      = errors.New("version string is empty")
	ErrTooManyComponents = errors.New("version has more than 3 components")
	ErrNonNumeric        = errors.New("version component is not numeric")
)

// Version is a dotted release number as found in application
// descriptors, with one to three significant components. Site numbering
// schemes vary ("2024.1", "6.4.2", "8"), so Precision records how many
// components the original string carried and Extras keeps any build
// suffix ("-mkl", "+cuda12") verbatim.
type Version struct {
	Major int `json:"major,omitempty" yaml:"major,omitempty"`
	Minor int `json:"minor,omitempty" yaml:"minor,omitempty"`
	Patch int `json:"patch,omitempty" yaml:"patch,omitempty"`

	// Precision indicates how many components are significant (1, 2, or 3)
	Precision int `json:"precision,omitempty" yaml:"precision,omitempty"`

	// Extras stores the build suffix, e.g. "-mkl" or "+cuda12"
	Extras string `json:"extras,omitempty" yaml:"extras,omitempty"`
}

// String renders the significant components. Extras are not included.
func (v Version) String() string {
	switch v.Precision {
	case 1:
		return fmt.Sprintf("%d", v.Major)
	case 2:
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	default:
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
}

// Parse reads a version string. A leading "v" is stripped; a suffix
// starting with '-' or '+' directly after a digit goes to Extras.
func Parse(s string) (Version, error) {
	if s == "" {
		return Version{}, ErrEmptyVersion
	}
	s = strings.TrimPrefix(s, "v")

	var v Version
	mainPart := s
	for i := 1; i < len(s); i++ {
		ch := s[i]
		if (ch == '-' || ch == '+') && s[i-1] >= '0' && s[i-1] <= '9' {
			mainPart = s[:i]
			v.Extras = s[i:]
			break
		}
	}

	parts := strings.Split(mainPart, ".")
	if len(parts) > 3 {
		return Version{}, ErrTooManyComponents
	}
	nums := [3]*int{&v.Major, &v.Minor, &v.Patch}
	for i, part := range parts {
		num, err := strconv.Atoi(part)
		if err != nil || num < 0 {
			return Version{}, fmt.Errorf("%w: %q", ErrNonNumeric, part)
		}
		*nums[i] = num
	}
	v.Precision = len(parts)
	return v, nil
}

// Compare orders two versions: -1 if v < other, 0 if equal, 1 if
// v > other. Comparison stops at the lower of the two precisions, so
// "2024" compares equal to "2024.1".
func (v Version) Compare(other Version) int {
	precision := v.Precision
	if other.Precision < precision {
		precision = other.Precision
	}
	pairs := [3][2]int{{v.Major, other.Major}, {v.Minor, other.Minor}, {v.Patch, other.Patch}}
	for i := 0; i < precision; i++ {
		if pairs[i][0] < pairs[i][1] {
			return -1
		}
		if pairs[i][0] > pairs[i][1] {
			return 1
		}
	}
	return 0
}

// Newer reports whether v is strictly newer than other.
func (v Version) Newer(other Version) bool {
	return v.Compare(other) > 0
}

// Latest picks the highest version string out of candidates. Strings
// that do not parse rank below every parseable one; among ties and
// unparseable-only inputs the earliest candidate wins. Returns the
// original string, suffix included.
func Latest(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	best := candidates[0]
	bestVer, bestOK := tryParse(best)
	for _, c := range candidates[1:] {
		ver, ok := tryParse(c)
		if !ok {
			continue
		}
		if !bestOK || ver.Newer(bestVer) {
			best, bestVer, bestOK = c, ver, true
		}
	}
	return best
}

func tryParse(s string) (Version, bool) {
	v, err := Parse(s)
	return v, err == nil
}
