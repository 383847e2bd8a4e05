package servicecode

import (
	"strings"
	"unicode"

	"github.com/gosimple/slug"
)

// GenericCode is used when nothing better can be derived.
const GenericCode = "WALK_GENERAL"

var (
	labelReplacer = strings.NewReplacer(
		"–", "-",
		"—", "-",
		"×", "x",
		"•", "",
	)

	placeholders = map[string]struct{}{
		"":             {},
		"subscription": {},
		"service":      {},
		"none":         {},
	}

	stopWords = map[string]struct{}{
		"the": {}, "and": {}, "or": {}, "of": {}, "in": {}, "on": {},
		"at": {}, "to": {}, "for": {}, "with": {}, "by": {},
	}
)

// NormalizeLabel folds a free-text label for keyword matching: typographic
// dashes become hyphens, brackets and punctuation other than hyphens are
// dropped, the result is lower-cased and trimmed.
func NormalizeLabel(label string) string {
	label = labelReplacer.Replace(label)
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r == '-', r == '_', unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(strings.ToLower(b.String()))
}

// IsPlaceholder reports whether label carries no service information.
func IsPlaceholder(label string) bool {
	_, ok := placeholders[NormalizeLabel(label)]
	return ok
}

// FromLabel derives a service code from free text. It never fails: unknown
// labels fall back to an upper snake-case slug and empty input to GenericCode.
// The result is not guaranteed to be a catalog code.
func FromLabel(label string) string {
	s := NormalizeLabel(label)
	if _, ok := placeholders[s]; ok {
		return GenericCode
	}

	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(s, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("daycare", "day care"):
		switch {
		case has("pack"):
			return "DAYCARE_PACKS"
		case has("weekly") && has("visit"):
			return "DAYCARE_WEEKLY_PER_VISIT"
		case has("fortnightly") && has("visit"):
			return "DAYCARE_FORTNIGHTLY_PER_VISIT"
		default:
			return "DAYCARE_SINGLE"
		}
	case has("walk"):
		switch {
		case has("short") && has("pack"):
			return "WALK_SHORT_PACKS"
		case has("short"):
			return "WALK_SHORT_SINGLE"
		case has("long") && has("pack"):
			return "WALK_LONG_PACKS"
		case has("long"):
			return "WALK_LONG_SINGLE"
		default:
			return GenericCode
		}
	case has("home visit", "home-visit"):
		if has("30m", "30 m", "thirty") && has("2x", "2 x", "twice", "two") {
			return "HOME_VISIT_30M_2X_SINGLE"
		}
		return "HOME_VISIT_30M_SINGLE"
	case has("overnight", "over night"):
		if has("pack") {
			return "OVERNIGHT_PACKS"
		}
		return "OVERNIGHT_SINGLE"
	case has("pickup", "pick up", "drop off", "dropoff"):
		return "PICKUP_DROPOFF_SINGLE"
	case has("scoop", "poop"):
		if has("weekly", "monthly") {
			return "SCOOP_WEEKLY_MONTHLY"
		}
		return "SCOOP_SINGLE"
	case has("sitting", "pet sit"):
		return "PET_SITTING_SINGLE"
	case has("groom", "bath", "wash"):
		return "GROOMING_SINGLE"
	}

	return slugCode(s)
}

func slugCode(s string) string {
	kept := make([]string, 0, 8)
	for _, w := range strings.Fields(s) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return GenericCode
	}
	code := strings.ToUpper(strings.ReplaceAll(slug.Make(strings.Join(kept, " ")), "-", "_"))
	code = strings.Trim(code, "_")
	if code == "" {
		return GenericCode
	}
	return code
}
