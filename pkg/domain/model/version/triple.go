package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/oracle/pkg/domain/types/apperr"
)

// Triple is a semantic version number
type Triple struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

// Parse parses "x.y.z" into a Triple
func Parse(s string) (Triple, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Triple{}, goerr.New("version must be x.y.z",
			goerr.T(apperr.ErrTagValidation), goerr.V("version", s))
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Triple{}, goerr.New("version component must be a non-negative integer",
				goerr.T(apperr.ErrTagValidation), goerr.V("version", s))
		}
		nums[i] = n
	}

	return Triple{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// String returns the "x.y.z" form
func (t Triple) String() string {
	return fmt.Sprintf("%d.%d.%d", t.Major, t.Minor, t.Patch)
}

// IsZero reports whether the triple is the 0.0.0 sentinel
func (t Triple) IsZero() bool {
	return t.Major == 0 && t.Minor == 0 && t.Patch == 0
}

// Next computes the strictly incremented version for a change type.
// A major increment resets minor and patch, a minor increment resets patch.
func (t Triple) Next(change ChangeType) (Triple, error) {
	switch change {
	case ChangeMajor:
		return Triple{Major: t.Major + 1}, nil
	case ChangeMinor:
		return Triple{Major: t.Major, Minor: t.Minor + 1}, nil
	case ChangePatch:
		return Triple{Major: t.Major, Minor: t.Minor, Patch: t.Patch + 1}, nil
	default:
		return Triple{}, goerr.New("invalid change type",
			goerr.T(apperr.ErrTagValidation), goerr.V("change_type", change))
	}
}

// Compare returns -1, 0 or 1 ordering t against other
func (t Triple) Compare(other Triple) int {
	if t.Major != other.Major {
		return sign(t.Major - other.Major)
	}
	if t.Minor != other.Minor {
		return sign(t.Minor - other.Minor)
	}
	return sign(t.Patch - other.Patch)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
