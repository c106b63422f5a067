package engine

import (
	"math"

	"github.com/2beens/traintrack/internal/overload/catalog"
	"github.com/2beens/traintrack/pkg"
)

const (
	// minInitialWeightKg is the lightest sensible starting point,
	// roughly the smallest dumbbell in any gym.
	minInitialWeightKg = 2.5

	// comfortZoneBias nudges the history-free estimate slightly above
	// the conservative bodyweight fraction.
	comfortZoneBias = 1.08

	// weekly PO target seeds per exercise class, in kg/week
	seedPOTargetCompound  = 0.5
	seedPOTargetIsolation = 0.25
)

type Seeder struct {
	catalog *catalog.Catalog
}

func NewSeeder(c *catalog.Catalog) *Seeder {
	return &Seeder{catalog: c}
}

// InitialWeight estimates the very first working weight for an
// exercise from bodyweight alone, before any history exists.
func (s *Seeder) InitialWeight(exercise string, weightKg float64) float64 {
	factor := s.catalog.BaselineFactor(exercise)
	raw := math.Max(minInitialWeightKg, weightKg*factor*comfortZoneBias)
	return pkg.RoundToHalfKilo(raw)
}

// StretchWeight is InitialWeight evaluated at the user's ideal
// bodyweight, shown as a motivational long-term goal.
func (s *Seeder) StretchWeight(exercise string, idealWeightKg float64) float64 {
	return s.InitialWeight(exercise, idealWeightKg)
}

// SeedPOTarget returns the starting weekly overload increment for an
// exercise. Compounds progress faster than isolation movements.
// Seeds are written once per exercise (presence-check in the PO
// target repo); calling this again never overwrites a stored target.
func (s *Seeder) SeedPOTarget(exercise string) float64 {
	if s.catalog.IsCompound(exercise) {
		return seedPOTargetCompound
	}
	return seedPOTargetIsolation
}
