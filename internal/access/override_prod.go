//go:build !devoverride

package access

import "github.com/DukeRupert/dealroom/internal/domain"

// overrideTier never overrides in regular builds.
func overrideTier() (domain.Tier, bool) {
	return "", false
}
