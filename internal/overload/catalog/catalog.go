package catalog

// Category splits exercises into the two progression classes used
// for seeding progressive overload targets.
type Category string

const (
	CategoryCompound  Category = "compound"
	CategoryIsolation Category = "isolation"
)

// Entry is static reference data for one exercise. It is never
// mutated at runtime; tuning happens here, in one place, so the
// engine logic can be tested independently of the numbers.
type Entry struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	// BaselineFactor is the fraction of bodyweight used to estimate
	// the very first working weight, before any history exists.
	BaselineFactor  float64 `json:"baselineFactor"`
	DefaultSetCount int     `json:"defaultSetCount"`
}

const (
	// DefaultBaselineFactor is used for exercises missing from the table.
	DefaultBaselineFactor = 0.25
	DefaultSetCount       = 3
)

type Catalog struct {
	entries       map[string]Entry
	substitutions map[string][]string
}

// Default returns the curated exercise catalog.
func Default() *Catalog {
	return &Catalog{
		entries:       defaultEntries,
		substitutions: defaultSubstitutions,
	}
}

func (c *Catalog) Get(name string) (Entry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

func (c *Catalog) BaselineFactor(name string) float64 {
	if e, ok := c.entries[name]; ok {
		return e.BaselineFactor
	}
	return DefaultBaselineFactor
}

func (c *Catalog) IsCompound(name string) bool {
	if e, ok := c.entries[name]; ok {
		return e.Category == CategoryCompound
	}
	return false
}

func (c *Catalog) DefaultSetCount(name string) int {
	if e, ok := c.entries[name]; ok && e.DefaultSetCount > 0 {
		return e.DefaultSetCount
	}
	return DefaultSetCount
}

// Substitutions returns conservative alternative exercises, e.g. for
// when the equipment is taken or a joint complains.
func (c *Catalog) Substitutions(name string) []string {
	return c.substitutions[name]
}

var defaultEntries = map[string]Entry{
	"Squat":                  {Name: "Squat", Category: CategoryCompound, BaselineFactor: 1.2, DefaultSetCount: 4},
	"Smith Machine Squat":    {Name: "Smith Machine Squat", Category: CategoryCompound, BaselineFactor: 1.0, DefaultSetCount: 4},
	"Deadlift":               {Name: "Deadlift", Category: CategoryCompound, BaselineFactor: 1.4, DefaultSetCount: 3},
	"Romanian Deadlift":      {Name: "Romanian Deadlift", Category: CategoryCompound, BaselineFactor: 1.0, DefaultSetCount: 3},
	"Bench Press":            {Name: "Bench Press", Category: CategoryCompound, BaselineFactor: 0.8, DefaultSetCount: 4},
	"Incline Dumbbell Press": {Name: "Incline Dumbbell Press", Category: CategoryCompound, BaselineFactor: 0.3, DefaultSetCount: 3},
	"Overhead Press":         {Name: "Overhead Press", Category: CategoryCompound, BaselineFactor: 0.45, DefaultSetCount: 3},
	"Barbell Row":            {Name: "Barbell Row", Category: CategoryCompound, BaselineFactor: 0.7, DefaultSetCount: 3},
	"Lat Pulldown":           {Name: "Lat Pulldown", Category: CategoryCompound, BaselineFactor: 0.6, DefaultSetCount: 3},
	"Leg Press":              {Name: "Leg Press", Category: CategoryCompound, BaselineFactor: 1.8, DefaultSetCount: 3},
	"Biceps Curl":            {Name: "Biceps Curl", Category: CategoryIsolation, BaselineFactor: 0.15, DefaultSetCount: 3},
	"Triceps Pushdown":       {Name: "Triceps Pushdown", Category: CategoryIsolation, BaselineFactor: 0.2, DefaultSetCount: 3},
	"Lateral Raise":          {Name: "Lateral Raise", Category: CategoryIsolation, BaselineFactor: 0.08, DefaultSetCount: 3},
	"Leg Extension":          {Name: "Leg Extension", Category: CategoryIsolation, BaselineFactor: 0.4, DefaultSetCount: 3},
	"Leg Curl":               {Name: "Leg Curl", Category: CategoryIsolation, BaselineFactor: 0.35, DefaultSetCount: 3},
	"Calf Raise":             {Name: "Calf Raise", Category: CategoryIsolation, BaselineFactor: 0.5, DefaultSetCount: 4},
	"Cable Fly":              {Name: "Cable Fly", Category: CategoryIsolation, BaselineFactor: 0.15, DefaultSetCount: 3},
	"Seated Cable Row":       {Name: "Seated Cable Row", Category: CategoryCompound, BaselineFactor: 0.55, DefaultSetCount: 3},
}

var defaultSubstitutions = map[string][]string{
	"Incline Dumbbell Press": {"Smith Machine Press", "Push-ups (weighted)"},
	"Smith Machine Squat":    {"Goblet Squat", "Leg Press"},
	"Romanian Deadlift":      {"Dumbbell Romanian Deadlift", "Kettlebell Swing"},
	"Overhead Press":         {"Seated Dumbbell Press", "Landmine Press"},
	"Lat Pulldown":           {"Pull-ups (assisted)", "Seated Cable Row"},
}
