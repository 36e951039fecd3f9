package version_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/oracle/pkg/domain/model/version"
)

func TestParse(t *testing.T) {
	v, err := version.Parse("1.22.3")
	gt.NoError(t, err)
	gt.Equal(t, v, version.Triple{Major: 1, Minor: 22, Patch: 3})
	gt.Equal(t, v.String(), "1.22.3")

	for _, bad := range []string{"", "1.2", "1.2.3.4", "a.b.c", "1.-2.3", "v1.2.3"} {
		_, err := version.Parse(bad)
		gt.Error(t, err)
	}
}

func TestNextResetsLowerComponents(t *testing.T) {
	base := version.Triple{Major: 1, Minor: 2, Patch: 5}

	next, err := base.Next(version.ChangeMajor)
	gt.NoError(t, err)
	gt.Equal(t, next.String(), "2.0.0")

	next, err = base.Next(version.ChangeMinor)
	gt.NoError(t, err)
	gt.Equal(t, next.String(), "1.3.0")

	next, err = base.Next(version.ChangePatch)
	gt.NoError(t, err)
	gt.Equal(t, next.String(), "1.2.6")

	_, err = base.Next(version.ChangeType("hotfix"))
	gt.Error(t, err)
}

func TestCompare(t *testing.T) {
	a := version.Triple{Major: 1, Minor: 2, Patch: 3}

	gt.Equal(t, a.Compare(version.Triple{Major: 1, Minor: 2, Patch: 3}), 0)
	gt.Equal(t, a.Compare(version.Triple{Major: 2}), -1)
	gt.Equal(t, a.Compare(version.Triple{Major: 1, Minor: 3}), -1)
	gt.Equal(t, a.Compare(version.Triple{Major: 1, Minor: 2, Patch: 2}), 1)
	gt.True(t, version.Triple{}.IsZero())
	gt.False(t, a.IsZero())
}

func TestClassifySafety(t *testing.T) {
	cases := []struct {
		current string
		target  string
		want    version.SafetyLevel
	}{
		{"1.2.3", "1.2.1", version.SafetySafe},
		{"1.2.0", "1.0.0", version.SafetyCaution},
		{"2.0.0", "1.5.0", version.SafetyDangerous},
	}

	for _, tc := range cases {
		current, err := version.Parse(tc.current)
		gt.NoError(t, err)
		target, err := version.Parse(tc.target)
		gt.NoError(t, err)
		gt.Equal(t, version.ClassifySafety(current, target), tc.want)
	}
}
