// Package servicecode maps subscription metadata and line-item labels to
// catalog service codes.
package servicecode

import (
	"strings"

	"github.com/smallbiznis/bookingsync/internal/catalog"
	subscriptiondomain "github.com/smallbiznis/bookingsync/internal/subscription/domain"
)

// MetadataKey is the metadata key carrying an explicit service code.
const MetadataKey = "service_code"

// NameKey is the metadata key carrying a human service name.
const NameKey = "service_name"

// Strategy inspects a subscription and reports a code when it finds one.
type Strategy struct {
	Name    string
	Resolve func(sub subscriptiondomain.Subscription) (string, bool)
}

// Strategies is the ordered chain used by Resolve. Earlier entries win.
var Strategies = []Strategy{
	{Name: "subscription_metadata", Resolve: fromSubscriptionMetadata},
	{Name: "price_metadata", Resolve: fromPriceMetadata},
	{Name: "price_nickname", Resolve: fromPriceNickname},
	{Name: "product_name", Resolve: fromProductName},
}

// Resolve runs the strict chain and returns a catalog code when one of the
// strategies recognises the subscription.
func Resolve(sub subscriptiondomain.Subscription) (string, bool) {
	code, _, ok := ResolveWithStrategy(sub)
	return code, ok
}

// ResolveWithStrategy is Resolve that also names the strategy that matched.
func ResolveWithStrategy(sub subscriptiondomain.Subscription) (string, string, bool) {
	for _, s := range Strategies {
		if code, ok := s.Resolve(sub); ok {
			return code, s.Name, true
		}
	}
	return "", "", false
}

// ResolveOrDerive never fails. It tries the strict chain, then derives a code
// from the first available label, then falls back to GenericCode.
func ResolveOrDerive(sub subscriptiondomain.Subscription) string {
	if code, ok := Resolve(sub); ok {
		return code
	}
	if label, ok := FirstLabel(sub); ok {
		return FromLabel(label)
	}
	return GenericCode
}

// HasDerivableLabel reports whether any line item carries a label that is
// more than a placeholder.
func HasDerivableLabel(sub subscriptiondomain.Subscription) bool {
	_, ok := FirstLabel(sub)
	return ok
}

// FirstLabel returns the first non-placeholder label found on the line items.
func FirstLabel(sub subscriptiondomain.Subscription) (string, bool) {
	for _, item := range sub.Items {
		for _, candidate := range []string{
			meta(item.PriceMetadata, NameKey),
			item.PriceNickname,
			meta(item.ProductMetadata, NameKey),
			item.ProductName,
		} {
			candidate = strings.TrimSpace(candidate)
			if candidate == "" || IsPlaceholder(candidate) {
				continue
			}
			return candidate, true
		}
	}
	return "", false
}

func fromSubscriptionMetadata(sub subscriptiondomain.Subscription) (string, bool) {
	return validCode(sub.Meta(MetadataKey))
}

func fromPriceMetadata(sub subscriptiondomain.Subscription) (string, bool) {
	for _, item := range sub.Items {
		if code, ok := validCode(meta(item.PriceMetadata, MetadataKey)); ok {
			return code, true
		}
	}
	return "", false
}

func fromPriceNickname(sub subscriptiondomain.Subscription) (string, bool) {
	for _, item := range sub.Items {
		if code := catalog.CodeOfNormalized(item.PriceNickname); code != "" {
			return code, true
		}
	}
	return "", false
}

func fromProductName(sub subscriptiondomain.Subscription) (string, bool) {
	for _, item := range sub.Items {
		if code := catalog.CodeOfNormalized(item.ProductName); code != "" {
			return code, true
		}
	}
	return "", false
}

func validCode(raw string) (string, bool) {
	code := strings.TrimSpace(raw)
	if code == "" || !catalog.IsValidCode(code) {
		return "", false
	}
	return code, true
}

func meta(m map[string]string, key string) string {
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[key])
}
