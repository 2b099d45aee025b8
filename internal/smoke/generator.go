package smoke

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/cyrce/loyalty/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	profileArchetypes  = 5
	categoryCount      = 7
)

// Constants for profile generation ranges.
const (
	heavyTicketMin     = 18.0
	heavyTicketRange   = 22.0
	heavyFreqMin       = 10.0
	heavyFreqRange     = 15.0
	regularTicketMin   = 8.0
	regularTicketRange = 10.0
	regularFreqMin     = 4.0
	regularFreqRange   = 6.0
	lapsedTicketMin    = 3.0
	lapsedTicketRange  = 7.0
	lapsedRecencyMin   = 4.0
	lapsedRecencyRange = 8.0
	newTicketMin       = 2.0
	newTicketRange     = 8.0
	distanceMin        = 100.0
	distanceRange      = 9900.0
	activeMonthsMax    = 36
)

// Profile archetype cases.
const (
	caseHeavyBuyer   = 0
	caseRegularBuyer = 1
	caseLapsedBuyer  = 2
	caseNewBuyer     = 3
	caseMixedBuyer   = 4
)

var categories = []string{"COLAS", "AGUA", "JUGOS", "ENERGIZANTES", "LACTEOS", "SNACKS", "CERVEZA"}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// randomInt returns a random int in [0, n).
func randomInt(n int64) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return int(v.Int64())
}

func randomCategory() string {
	n, _ := rand.Int(rand.Reader, big.NewInt(categoryCount))
	return categories[n.Int64()]
}

// generateProfiles creates the specified number of varied customer profiles.
func generateProfiles(ctx context.Context, config *Config, stats *Stats) []Profile {
	logger.Get().Info(ctx, "generating customer profiles", logger.Int("numProfiles", config.NumChallenges))

	profiles := make([]Profile, config.NumChallenges)
	for i := range profiles {
		profiles[i] = generateSingleProfile()
	}

	stats.ProfilesGenerated = len(profiles)
	logger.Get().Info(ctx, "generated profiles successfully", logger.Int("count", len(profiles)))
	return profiles
}

// generateSingleProfile creates a profile drawn from one of several buyer archetypes
// so the run exercises multiple segments.
func generateSingleProfile() Profile {
	p := Profile{
		RecencyMonths:    randomInt(2),
		ActiveMonths:     1 + randomInt(activeMonthsMax),
		DistHospitalM:    distanceMin + getRandomFloat()*distanceRange,
		DistSchoolM:      distanceMin + getRandomFloat()*distanceRange,
		DistGymM:         distanceMin + getRandomFloat()*distanceRange,
		DistOfficeM:      distanceMin + getRandomFloat()*distanceRange,
		DominantCategory: randomCategory(),
	}

	archetype, _ := rand.Int(rand.Reader, big.NewInt(profileArchetypes))
	switch archetype.Int64() {
	case caseHeavyBuyer:
		p.TicketAverage = heavyTicketMin + getRandomFloat()*heavyTicketRange
		p.PurchaseFrequency = heavyFreqMin + getRandomFloat()*heavyFreqRange
	case caseRegularBuyer:
		p.TicketAverage = regularTicketMin + getRandomFloat()*regularTicketRange
		p.PurchaseFrequency = regularFreqMin + getRandomFloat()*regularFreqRange
	case caseLapsedBuyer:
		p.TicketAverage = lapsedTicketMin + getRandomFloat()*lapsedTicketRange
		p.PurchaseFrequency = 0.5 + getRandomFloat()*2
		p.RecencyMonths = lapsedRecencyMin + randomInt(lapsedRecencyRange)
	case caseNewBuyer:
		p.TicketAverage = newTicketMin + getRandomFloat()*newTicketRange
		p.PurchaseFrequency = 1 + getRandomFloat()*3
		p.ActiveMonths = 1 + randomInt(3)
	default:
		p.TicketAverage = newTicketMin + getRandomFloat()*(heavyTicketMin+heavyTicketRange-newTicketMin)
		p.PurchaseFrequency = 1 + getRandomFloat()*heavyFreqRange
	}

	p.Variability = p.TicketAverage * (0.1 + getRandomFloat()*0.4)
	return p
}
