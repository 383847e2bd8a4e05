package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), " req-1 ")
	ctx = WithSubscriptionID(ctx, "sub_1")
	ctx = WithJob(ctx, "subscription_sync")
	ctx = WithActor(ctx, "webhook", "stripe")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "sub_1", SubscriptionIDFromContext(ctx))
	assert.Equal(t, "subscription_sync", JobFromContext(ctx))
	actorType, actorID := ActorFromContext(ctx)
	assert.Equal(t, "webhook", actorType)
	assert.Equal(t, "stripe", actorID)
}

func TestEmptyContext(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
	assert.Empty(t, JobFromContext(nil)) //nolint:staticcheck
}
