package stripe

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	subscriptiondomain "github.com/smallbiznis/bookingsync/internal/subscription/domain"
)

// Subscription lifecycle events that change bookings.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventSubscriptionPaused  = "customer.subscription.paused"
	EventSubscriptionResumed = "customer.subscription.resumed"
)

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrEventIgnored     = errors.New("event_ignored")
)

// Event is a verified subscription webhook.
type Event struct {
	ID           string
	Type         string
	Created      time.Time
	Subscription subscriptiondomain.Subscription
}

// WebhookVerifier checks Stripe-Signature headers.
type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

func NewWebhookVerifier(secret string, tolerance time.Duration) *WebhookVerifier {
	return &WebhookVerifier{
		secret:    strings.TrimSpace(secret),
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Verify accepts payload when any v1 signature matches and the timestamp is
// within tolerance.
func (v *WebhookVerifier) Verify(payload []byte, headers http.Header) error {
	if v.secret == "" {
		return ErrInvalidSignature
	}
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return ErrInvalidSignature
	}

	timestamp, signatures, err := parseStripeSignature(sigHeader)
	if err != nil {
		return ErrInvalidSignature
	}
	if v.tolerance > 0 {
		unix, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return ErrInvalidSignature
		}
		if age := v.now().Sub(time.Unix(unix, 0)); age > v.tolerance || age < -v.tolerance {
			return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
		}
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

// ParseEvent decodes a subscription event. Other event types return
// ErrEventIgnored.
func ParseEvent(payload []byte) (Event, error) {
	var envelope struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Created int64  `json:"created"`
		Data    struct {
			Object map[string]any `json:"object"`
		} `json:"data"`
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&envelope); err != nil {
		return Event{}, ErrInvalidPayload
	}
	if strings.TrimSpace(envelope.ID) == "" {
		return Event{}, ErrInvalidPayload
	}

	eventType := strings.TrimSpace(envelope.Type)
	if !IsSubscriptionEvent(eventType) {
		return Event{ID: envelope.ID, Type: eventType}, ErrEventIgnored
	}

	sub, err := Normalize(envelope.Data.Object)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return Event{
		ID:           envelope.ID,
		Type:         eventType,
		Created:      time.Unix(envelope.Created, 0).UTC(),
		Subscription: sub,
	}, nil
}

func IsSubscriptionEvent(eventType string) bool {
	switch eventType {
	case EventSubscriptionCreated,
		EventSubscriptionUpdated,
		EventSubscriptionDeleted,
		EventSubscriptionPaused,
		EventSubscriptionResumed:
		return true
	default:
		return false
	}
}

func parseStripeSignature(header string) (string, []string, error) {
	var timestamp string
	signatures := []string{}
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "t":
			timestamp = strings.TrimSpace(value)
		case "v1":
			signatures = append(signatures, strings.TrimSpace(value))
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, ErrInvalidSignature
	}
	return timestamp, signatures, nil
}
