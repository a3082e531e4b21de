//go:build devoverride

package access

import (
	"os"

	"github.com/DukeRupert/dealroom/internal/domain"
)

// DevTierEnv names the variable holding the tier every viewer is treated as.
// Only builds tagged devoverride read it.
const DevTierEnv = "DEALROOM_DEV_TIER"

func overrideTier() (domain.Tier, bool) {
	v := os.Getenv(DevTierEnv)
	if v == "" {
		return "", false
	}
	return domain.ParseTier(v), true
}
