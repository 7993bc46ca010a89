package registry

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ErrNoMatchingVersion is returned when no release satisfies a version
// requirement. Handlers surface it as "version not found".
var ErrNoMatchingVersion = errors.New("no matching version")

// InvalidRequirementError is returned when a version requirement cannot be
// parsed. Handlers surface it as a bad request.
type InvalidRequirementError struct {
	Requirement string
	Err         error
}

func (e *InvalidRequirementError) Error() string {
	return fmt.Sprintf("invalid version requirement %q: %v", e.Requirement, e.Err)
}

func (e *InvalidRequirementError) Unwrap() error {
	return e.Err
}

// ReleaseVersion is the slice of release state version matching needs.
type ReleaseVersion struct {
	Version string
	Yanked  bool
}

// MatchVersion resolves a version requirement against the available
// releases of a crate:
//
//   - an exact version string matches its release even when yanked, so
//     direct links to yanked documentation keep working;
//   - "latest", "newest" and the empty requirement mean "any version";
//   - anything else is parsed as a semver requirement.
//
// Yanked releases are excluded from requirement matching, so a "latest"
// lookup on a crate whose releases are all yanked finds nothing and returns
// ErrNoMatchingVersion.
func MatchVersion(available []ReleaseVersion, req string) (string, error) {
	for _, rv := range available {
		if rv.Version == req {
			return rv.Version, nil
		}
	}

	if req == "" || req == "latest" || req == "newest" {
		req = "*"
	}
	constraint, err := semver.NewConstraint(req)
	if err != nil {
		return "", &InvalidRequirementError{Requirement: req, Err: err}
	}

	var best *semver.Version
	var bestRaw string
	for _, rv := range available {
		if rv.Yanked {
			continue
		}
		v, err := semver.NewVersion(rv.Version)
		if err != nil {
			// Skip unparsable versions rather than failing the lookup.
			continue
		}
		if !constraint.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestRaw = rv.Version
		}
	}
	if best == nil {
		return "", ErrNoMatchingVersion
	}
	return bestRaw, nil
}
