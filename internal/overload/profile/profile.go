package profile

import (
	"math"

	log "github.com/sirupsen/logrus"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

func (s Sex) IsValid() bool {
	return s == SexMale || s == SexFemale
}

type Profile struct {
	UserID        string  `json:"userId"`
	Sex           Sex     `json:"sex"`
	Age           int     `json:"age"`
	WeightKg      float64 `json:"weightKg"`
	HeightCm      float64 `json:"heightCm"`
	IdealWeightKg float64 `json:"idealWeightKg"`
}

// Documented defaults, used when a profile is missing or partially
// filled in. Falling back is deliberate: a recommendation request
// must never fail just because the user skipped onboarding.
const (
	DefaultSex      = SexMale
	DefaultAge      = 25
	DefaultWeightKg = 70
	DefaultHeightCm = 175
)

// activityMultiplier is the fixed moderate-activity factor applied on
// top of the basal metabolic rate. Policy choice, not user-configurable.
const activityMultiplier = 1.55

type DerivedProfile struct {
	Sex                 Sex     `json:"sex"`
	Age                 int     `json:"age"`
	WeightKg            float64 `json:"weightKg"`
	HeightCm            float64 `json:"heightCm"`
	MaintenanceCalories int     `json:"maintenanceCalories"`
}

// Resolve fills in documented defaults for missing fields and derives
// maintenance calories via the Mifflin-St Jeor formula.
func Resolve(p Profile) DerivedProfile {
	p = withDefaults(p)
	return DerivedProfile{
		Sex:                 p.Sex,
		Age:                 p.Age,
		WeightKg:            p.WeightKg,
		HeightCm:            p.HeightCm,
		MaintenanceCalories: maintenanceCalories(p.Sex, p.WeightKg, p.HeightCm, p.Age),
	}
}

// ResolveIdeal is Resolve evaluated at the user's ideal weight,
// used for stretch-goal projections.
func ResolveIdeal(p Profile) DerivedProfile {
	p = withDefaults(p)
	weight := p.IdealWeightKg
	if weight <= 0 {
		weight = p.WeightKg
	}
	return DerivedProfile{
		Sex:                 p.Sex,
		Age:                 p.Age,
		WeightKg:            weight,
		HeightCm:            p.HeightCm,
		MaintenanceCalories: maintenanceCalories(p.Sex, weight, p.HeightCm, p.Age),
	}
}

func maintenanceCalories(sex Sex, weightKg, heightCm float64, age int) int {
	bmr := 10*weightKg + 6.25*heightCm - 5*float64(age)
	if sex == SexMale {
		bmr += 5
	} else {
		bmr -= 161
	}
	return int(math.Round(bmr * activityMultiplier))
}

func withDefaults(p Profile) Profile {
	if !p.Sex.IsValid() {
		log.Warnf("profile [%s]: missing/invalid sex, falling back to %s", p.UserID, DefaultSex)
		p.Sex = DefaultSex
	}
	if p.Age <= 0 {
		log.Warnf("profile [%s]: missing age, falling back to %d", p.UserID, DefaultAge)
		p.Age = DefaultAge
	}
	if p.WeightKg <= 0 {
		log.Warnf("profile [%s]: missing weight, falling back to %d kg", p.UserID, DefaultWeightKg)
		p.WeightKg = DefaultWeightKg
	}
	if p.HeightCm <= 0 {
		log.Warnf("profile [%s]: missing height, falling back to %d cm", p.UserID, DefaultHeightCm)
		p.HeightCm = DefaultHeightCm
	}
	return p
}
