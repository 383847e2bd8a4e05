package stripe

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	subscriptiondomain "github.com/smallbiznis/bookingsync/internal/subscription/domain"
)

var ErrMalformedSubscription = errors.New("malformed_subscription")

// Normalize coerces a decoded Stripe subscription object into the fixed
// record. Customer, price and product may each arrive as a bare id, an
// expanded object or null; items as a list object or a plain array;
// metadata values as any scalar.
func Normalize(raw map[string]any) (subscriptiondomain.Subscription, error) {
	if raw == nil {
		return subscriptiondomain.Subscription{}, ErrMalformedSubscription
	}
	id := scalar(raw["id"])
	if id == "" {
		return subscriptiondomain.Subscription{}, ErrMalformedSubscription
	}

	sub := subscriptiondomain.Subscription{
		ID:         id,
		CustomerID: idOf(raw["customer"]),
		Status:     strings.ToLower(scalar(raw["status"])),
		Metadata:   stringMap(raw["metadata"]),
	}
	for _, item := range listOf(raw["items"]) {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		sub.Items = append(sub.Items, normalizeItem(obj))
	}
	return sub, nil
}

func normalizeItem(item map[string]any) subscriptiondomain.LineItem {
	price := item["price"]
	if price == nil {
		// Older API versions only carry the plan.
		price = item["plan"]
	}

	out := subscriptiondomain.LineItem{
		PriceID:  idOf(price),
		Quantity: int64Of(item["quantity"]),
	}
	priceObj, _ := price.(map[string]any)
	if priceObj == nil {
		return out
	}
	out.PriceNickname = scalar(priceObj["nickname"])
	out.PriceMetadata = stringMap(priceObj["metadata"])

	product := priceObj["product"]
	out.ProductID = idOf(product)
	if productObj, ok := product.(map[string]any); ok {
		out.ProductName = scalar(productObj["name"])
		out.ProductMetadata = stringMap(productObj["metadata"])
	}
	return out
}

// idOf accepts "id", {"id": "..."} or null.
func idOf(v any) string {
	switch cast := v.(type) {
	case nil:
		return ""
	case map[string]any:
		return scalar(cast["id"])
	default:
		return scalar(cast)
	}
}

// listOf accepts {"data": [...]} or [...].
func listOf(v any) []any {
	switch cast := v.(type) {
	case []any:
		return cast
	case map[string]any:
		data, _ := cast["data"].([]any)
		return data
	default:
		return nil
	}
}

func stringMap(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(m))
	for k, raw := range m {
		if raw == nil {
			continue
		}
		out[k] = scalar(raw)
	}
	return out
}

func scalar(v any) string {
	switch cast := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(cast)
	case json.Number:
		return cast.String()
	case float64:
		return strconv.FormatFloat(cast, 'f', -1, 64)
	case int:
		return strconv.Itoa(cast)
	case int64:
		return strconv.FormatInt(cast, 10)
	case bool:
		return strconv.FormatBool(cast)
	default:
		return ""
	}
}

func int64Of(v any) int64 {
	switch cast := v.(type) {
	case json.Number:
		n, err := cast.Int64()
		if err != nil {
			f, ferr := cast.Float64()
			if ferr != nil {
				return 0
			}
			return int64(f)
		}
		return n
	case float64:
		return int64(cast)
	case int:
		return int64(cast)
	case int64:
		return cast
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(cast), 10, 64)
		return n
	default:
		return 0
	}
}
