package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildStripeSignatureHeader(secret string, payload []byte, timestamp int64) string {
	signedPayload := fmt.Sprintf("%d.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signedPayload))
	signature := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, signature)
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_123","type":"customer.subscription.updated","data":{"object":{}}}`)
	now := time.Unix(1_790_000_000, 0)
	verifier := NewWebhookVerifier(secret, 5*time.Minute)
	verifier.now = func() time.Time { return now }

	headers := http.Header{}
	headers.Set("Stripe-Signature", buildStripeSignatureHeader(secret, payload, now.Unix()))
	require.NoError(t, verifier.Verify(payload, headers))

	headers.Set("Stripe-Signature", buildStripeSignatureHeader("wrong", payload, now.Unix()))
	assert.ErrorIs(t, verifier.Verify(payload, headers), ErrInvalidSignature)

	headers.Set("Stripe-Signature", buildStripeSignatureHeader(secret, payload, now.Add(-time.Hour).Unix()))
	assert.ErrorIs(t, verifier.Verify(payload, headers), ErrInvalidSignature)

	headers.Del("Stripe-Signature")
	assert.ErrorIs(t, verifier.Verify(payload, headers), ErrInvalidSignature)
}

func TestVerifyWithoutSecretRejects(t *testing.T) {
	payload := []byte(`{}`)
	headers := http.Header{}
	headers.Set("Stripe-Signature", buildStripeSignatureHeader("", payload, time.Now().Unix()))
	assert.ErrorIs(t, NewWebhookVerifier("", 0).Verify(payload, headers), ErrInvalidSignature)
}

func TestParseEvent(t *testing.T) {
	event, err := ParseEvent([]byte(`{
		"id": "evt_1",
		"type": "customer.subscription.deleted",
		"created": 1790000000,
		"data": {"object": {"id": "sub_9", "status": "canceled", "customer": "cus_9"}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionDeleted, event.Type)
	assert.Equal(t, "sub_9", event.Subscription.ID)
	assert.Equal(t, "canceled", event.Subscription.Status)

	_, err = ParseEvent([]byte(`{"id": "evt_2", "type": "invoice.paid", "data": {"object": {}}}`))
	assert.ErrorIs(t, err, ErrEventIgnored)

	_, err = ParseEvent([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = ParseEvent([]byte(`{"id": "evt_3", "type": "customer.subscription.updated", "data": {"object": {}}}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
