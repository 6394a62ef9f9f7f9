// Package plan is the static plan registry: pure lookups, no state.
package plan

// Unlimited marks a plan with no monthly view ceiling.
const Unlimited int64 = -1

type Plan struct {
	Name      string   `json:"name"`
	Price     float64  `json:"price"`
	ViewLimit int64    `json:"view_limit"`
	Features  []string `json:"features"`
}

const FreePlanName = "free"

var plans = map[string]Plan{
	"free": {
		Name:      "free",
		Price:     0,
		ViewLimit: 2500,
		Features:  []string{"1 bar type", "basic targeting"},
	},
	"basic": {
		Name:      "basic",
		Price:     4.99,
		ViewLimit: 10000,
		Features:  []string{"all bar types", "page targeting"},
	},
	"pro": {
		Name:      "pro",
		Price:     9.99,
		ViewLimit: 50000,
		Features:  []string{"all bar types", "geo targeting", "priority scheduling"},
	},
	"scale": {
		Name:      "scale",
		Price:     19.99,
		ViewLimit: Unlimited,
		Features:  []string{"unlimited views", "all features"},
	},
}

// PlanFor maps a plan name to its definition. Unknown names silently map to
// the free plan, that is the documented fallback for stale or corrupt
// merchant records, not an error.
func PlanFor(name string) Plan {
	if p, ok := plans[name]; ok {
		return p
	}
	return plans[FreePlanName]
}

// All returns every known plan, for the admin plan picker.
func All() []Plan {
	return []Plan{plans["free"], plans["basic"], plans["pro"], plans["scale"]}
}

// HasReachedLimit reports whether count views exhaust the named plan's
// monthly quota. Always false for unlimited plans.
func HasReachedLimit(count int64, planName string) bool {
	p := PlanFor(planName)
	if p.ViewLimit == Unlimited {
		return false
	}
	return count >= p.ViewLimit
}
