// Package catalog holds the fixed table of bookable service codes and their
// human-readable labels.
package catalog

import (
	"sort"
	"strings"
)

// Family groups service codes that share booking behaviour.
type Family string

const (
	FamilyUnknown   Family = ""
	FamilyWalk      Family = "walk"
	FamilyDaycare   Family = "daycare"
	FamilyHomeVisit Family = "home_visit"
	FamilyOvernight Family = "overnight"
	FamilyPickup    Family = "pickup"
	FamilyScoop     Family = "scoop"
	FamilySitting   Family = "pet_sitting"
	FamilyGrooming  Family = "grooming"
)

// DefaultLabel is returned for an empty code.
const DefaultLabel = "Service"

type entry struct {
	code   string
	label  string
	family Family
}

var entries = []entry{
	{"PICKUP_DROPOFF", "Pick up/Drop off", FamilyPickup},
	{"PICKUP_FORTNIGHTLY_PER_VISIT", "Pick up/Drop off (Fortnightly per visit)", FamilyPickup},
	{"PICKUP_WEEKLY_PER_VISIT", "Pick up/Drop off (Weekly per visit)", FamilyPickup},
	{"PICKUP_DROPOFF_PACK5", "Pick up/Drop off (Pack x5)", FamilyPickup},

	{"DAYCARE_SINGLE", "Doggy Daycare (per day)", FamilyDaycare},
	{"DAYCARE_FORTNIGHTLY_PER_VISIT", "Doggy Daycare (Fortnightly per visit)", FamilyDaycare},
	{"DAYCARE_WEEKLY", "Doggy Daycare (Weekly)", FamilyDaycare},
	{"DAYCARE_PACK5", "Doggy Daycare (Pack x5)", FamilyDaycare},

	{"HOME_30WEEKLY", "Home Visit 1/day (weekly)", FamilyHomeVisit},
	{"HOME_30_2_DAY_WEEKLY", "Home Visit 2/day (weekly)", FamilyHomeVisit},
	{"HV_30_1X_SINGLE", "Home Visit 30m 1× (Single)", FamilyHomeVisit},
	{"HV_30_1X_PACK5", "Home Visit 30m 1× (Pack x5)", FamilyHomeVisit},
	{"HV_30_2X_SINGLE", "Home Visit 30m 2× (Single)", FamilyHomeVisit},
	{"HV_30_2X_PACK5", "Home Visit 30m 2× (Pack x5)", FamilyHomeVisit},

	{"WALK_LONG_SINGLE", "Long Walk (Single)", FamilyWalk},
	{"WALK_LONG_PACK5", "Long Walk (Pack x5)", FamilyWalk},
	{"WALK_SHORT_SINGLE", "Short Walk (Single)", FamilyWalk},
	{"WALK_SHORT_PACK5", "Short Walk (Pack x5)", FamilyWalk},
	{"WALK_LONG_WEEKLY", "Long Walk (Weekly)", FamilyWalk},
	{"WALK_SHORT_WEEKLY", "Short Walk (Weekly)", FamilyWalk},

	{"SCOOP_TWICE_WEEKLY_MONTH", "Poop Scoop – Twice Weekly (Monthly)", FamilyScoop},
	{"SCOOP_FORTNIGHTLY_MONTH", "Poop Scoop – Fortnightly (Monthly)", FamilyScoop},
	{"SCOOP_WEEKLY_MONTH", "Poop Scoop – Weekly (Monthly)", FamilyScoop},
	{"SCOOP_ONCE_SINGLE", "Poop Scoop – One-time", FamilyScoop},

	{"BOARD_OVERNIGHT_SINGLE", "Overnight Pet Sitting (Single)", FamilyOvernight},
	{"BOARD_OVERNIGHT_PACK5", "Overnight Pet Sitting (Pack x5)", FamilyOvernight},
}

var (
	byCode  = map[string]entry{}
	byLabel = map[string]entry{}
	byKey   = map[string]entry{}
)

func init() {
	for _, e := range entries {
		if _, dup := byCode[e.code]; dup {
			panic("catalog: duplicate code " + e.code)
		}
		if _, dup := byLabel[e.label]; dup {
			panic("catalog: duplicate label " + e.label)
		}
		byCode[e.code] = e
		byLabel[e.label] = e
		byKey[LabelKey(e.label)] = e
	}
}

// LabelOf returns the catalog label for code. Unknown codes get a title-cased
// rendering of the code and an empty code yields DefaultLabel.
func LabelOf(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return DefaultLabel
	}
	if e, ok := byCode[code]; ok {
		return e.label
	}
	return titleize(code)
}

// CodeOf returns the code whose label is exactly label, or "" when none.
func CodeOf(label string) string {
	if e, ok := byLabel[label]; ok {
		return e.code
	}
	return ""
}

// CodeOfNormalized matches label against the catalog after folding case,
// whitespace and typographic dash and multiplication characters.
func CodeOfNormalized(label string) string {
	if code := CodeOf(label); code != "" {
		return code
	}
	key := LabelKey(label)
	if key == "" {
		return ""
	}
	if e, ok := byKey[key]; ok {
		return e.code
	}
	return ""
}

// IsValidCode reports whether code is a catalog code.
func IsValidCode(code string) bool {
	_, ok := byCode[code]
	return ok
}

// Codes returns all catalog codes in sorted order.
func Codes() []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.code)
	}
	sort.Strings(out)
	return out
}

// FamilyOf returns the family of a catalog code, inferring it from the code
// prefix for codes derived outside the catalog.
func FamilyOf(code string) Family {
	if e, ok := byCode[code]; ok {
		return e.family
	}
	upper := strings.ToUpper(strings.TrimSpace(code))
	switch {
	case strings.Contains(upper, "OVERNIGHT"):
		return FamilyOvernight
	case strings.HasPrefix(upper, "WALK_"), upper == "DOG_WALK":
		return FamilyWalk
	case strings.HasPrefix(upper, "DAYCARE_"):
		return FamilyDaycare
	case strings.HasPrefix(upper, "HOME_"), strings.HasPrefix(upper, "HV_"):
		return FamilyHomeVisit
	case strings.HasPrefix(upper, "PICKUP_"):
		return FamilyPickup
	case strings.HasPrefix(upper, "SCOOP_"):
		return FamilyScoop
	case strings.HasPrefix(upper, "PET_SITTING"):
		return FamilySitting
	case strings.HasPrefix(upper, "GROOMING"):
		return FamilyGrooming
	default:
		return FamilyUnknown
	}
}

// IsOvernight reports whether bookings for code end on the following day.
func IsOvernight(code string) bool {
	return FamilyOf(code) == FamilyOvernight
}

var labelFolder = strings.NewReplacer(
	"–", "-",
	"—", "-",
	"×", "x",
)

// LabelKey folds a label into a comparison key.
func LabelKey(label string) string {
	folded := strings.ToLower(labelFolder.Replace(label))
	return strings.Join(strings.Fields(folded), " ")
}

func titleize(code string) string {
	words := strings.Fields(strings.ReplaceAll(code, "_", " "))
	for i, w := range words {
		lower := strings.ToLower(w)
		words[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(words, " ")
}
