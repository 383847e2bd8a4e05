package servicecode

import (
	"testing"

	subscriptiondomain "github.com/smallbiznis/bookingsync/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
)

func TestResolveChainOrder(t *testing.T) {
	sub := subscriptiondomain.Subscription{
		ID:       "sub_1",
		Metadata: map[string]string{"service_code": "WALK_LONG_SINGLE"},
		Items: []subscriptiondomain.LineItem{{
			PriceMetadata: map[string]string{"service_code": "DAYCARE_SINGLE"},
			PriceNickname: "Short Walk (Single)",
		}},
	}

	code, strategy, ok := ResolveWithStrategy(sub)
	assert.True(t, ok)
	assert.Equal(t, "WALK_LONG_SINGLE", code)
	assert.Equal(t, "subscription_metadata", strategy)

	sub.Metadata["service_code"] = "NOT_A_CODE"
	code, strategy, ok = ResolveWithStrategy(sub)
	assert.True(t, ok)
	assert.Equal(t, "DAYCARE_SINGLE", code)
	assert.Equal(t, "price_metadata", strategy)

	sub.Items[0].PriceMetadata = nil
	code, strategy, ok = ResolveWithStrategy(sub)
	assert.True(t, ok)
	assert.Equal(t, "WALK_SHORT_SINGLE", code)
	assert.Equal(t, "price_nickname", strategy)
}

func TestResolveProductName(t *testing.T) {
	sub := subscriptiondomain.Subscription{
		Items: []subscriptiondomain.LineItem{
			{PriceNickname: "Monthly plan", ProductName: "Home Visit 30m 2x (Single)"},
		},
	}
	code, ok := Resolve(sub)
	assert.True(t, ok)
	assert.Equal(t, "HV_30_2X_SINGLE", code)
}

func TestResolveOrDerive(t *testing.T) {
	sub := subscriptiondomain.Subscription{
		Items: []subscriptiondomain.LineItem{{PriceNickname: "Subscription", ProductName: "Daycare Pack of 10"}},
	}
	_, ok := Resolve(sub)
	assert.False(t, ok)
	assert.True(t, HasDerivableLabel(sub))
	assert.Equal(t, "DAYCARE_PACKS", ResolveOrDerive(sub))

	empty := subscriptiondomain.Subscription{}
	assert.False(t, HasDerivableLabel(empty))
	assert.Equal(t, GenericCode, ResolveOrDerive(empty))
}

func TestFromLabel(t *testing.T) {
	cases := map[string]string{
		"":                                "WALK_GENERAL",
		"Subscription":                    "WALK_GENERAL",
		"None":                            "WALK_GENERAL",
		"Doggy Daycare (per day)":         "DAYCARE_SINGLE",
		"Doggy Daycare (Pack x5)":         "DAYCARE_PACKS",
		"Daycare weekly per visit":        "DAYCARE_WEEKLY_PER_VISIT",
		"Day care fortnightly visit":      "DAYCARE_FORTNIGHTLY_PER_VISIT",
		"Short Walk (Pack x5)":            "WALK_SHORT_PACKS",
		"Short Walk":                      "WALK_SHORT_SINGLE",
		"Long Walk Pack":                  "WALK_LONG_PACKS",
		"Long walk":                       "WALK_LONG_SINGLE",
		"Group walk":                      "WALK_GENERAL",
		"Home Visit 30m 2× (Single)":      "HOME_VISIT_30M_2X_SINGLE",
		"Home Visit 30m 1× (Single)":      "HOME_VISIT_30M_SINGLE",
		"Home-visit":                      "HOME_VISIT_30M_SINGLE",
		"Overnight Pet Sitting (Pack x5)": "OVERNIGHT_PACKS",
		"Overnight Pet Sitting (Single)":  "OVERNIGHT_SINGLE",
		"Pick up/Drop off":                "PICKUP_DROPOFF_SINGLE",
		"Poop Scoop – Weekly (Monthly)":   "SCOOP_WEEKLY_MONTHLY",
		"Poop Scoop – One-time":           "SCOOP_SINGLE",
		"Pet sitting":                     "PET_SITTING_SINGLE",
		"Dog wash and dry":                "GROOMING_SINGLE",
		"Puppy Training for the Family":   "PUPPY_TRAINING_FAMILY",
		"!!!":                             "WALK_GENERAL",
		"The and of":                      "WALK_GENERAL",
	}
	for in, want := range cases {
		assert.Equal(t, want, FromLabel(in), "label %q", in)
	}
}

func TestFromLabelIsTotal(t *testing.T) {
	inputs := []string{"•", "()", "[]{}", "—", "×", "   ", "ñandú café", "123"}
	for _, in := range inputs {
		assert.NotEmpty(t, FromLabel(in), "label %q", in)
	}
}
