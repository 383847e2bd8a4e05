package stripe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/smallbiznis/bookingsync/internal/config"
	subscriptiondomain "github.com/smallbiznis/bookingsync/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.StripeConfig{APIKey: "sk_test", BaseURL: srv.URL}, zaptest.NewLogger(t),
		WithHTTPClient(srv.Client()))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestListActivePaginatesAndFetchesProducts(t *testing.T) {
	var productHits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "sk_test", user)
		assert.Equal(t, []string{"data.items.data.price"}, r.URL.Query()["expand[]"])

		item := map[string]any{"price": map[string]any{"id": "price_1", "product": "prod_1"}}
		switch r.URL.Query().Get("status") + "/" + r.URL.Query().Get("starting_after") {
		case "active/":
			writeJSON(w, 200, map[string]any{
				"has_more": true,
				"data": []any{map[string]any{"id": "sub_1", "status": "active", "customer": "cus_1", "items": map[string]any{"data": []any{item}}}},
			})
		case "active/sub_1":
			writeJSON(w, 200, map[string]any{
				"has_more": false,
				"data": []any{map[string]any{"id": "sub_2", "status": "active", "customer": "cus_2", "items": map[string]any{"data": []any{item}}}},
			})
		case "trialing/":
			writeJSON(w, 200, map[string]any{
				"has_more": false,
				"data": []any{map[string]any{"id": "sub_2", "status": "active", "customer": "cus_2"}},
			})
		default:
			t.Errorf("unexpected query %s", r.URL.RawQuery)
			writeJSON(w, 400, map[string]any{})
		}
	})
	mux.HandleFunc("/v1/products/prod_1", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&productHits, 1)
		writeJSON(w, 200, map[string]any{"id": "prod_1", "name": "Short Walk", "metadata": map[string]any{}})
	})

	client := newTestClient(t, mux)
	subs, err := client.ListActive(context.Background())
	require.NoError(t, err)

	require.Len(t, subs, 2)
	assert.Equal(t, "sub_1", subs[0].ID)
	assert.Equal(t, "sub_2", subs[1].ID)
	assert.Equal(t, "Short Walk", subs[0].Items[0].ProductName)
	assert.Equal(t, "Short Walk", subs[1].Items[0].ProductName)
	assert.Equal(t, int32(1), atomic.LoadInt32(&productHits))
}

func TestGetMapsErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/subscriptions/sub_missing", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 404, map[string]any{"error": map[string]any{"type": "invalid_request_error", "message": "No such subscription"}})
	})
	mux.HandleFunc("/v1/subscriptions/sub_busy", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 503, map[string]any{"error": map[string]any{"type": "api_error", "message": "try later"}})
	})
	mux.HandleFunc("/v1/subscriptions/sub_denied", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 401, map[string]any{"error": map[string]any{"type": "invalid_request_error", "message": "bad key"}})
	})
	mux.HandleFunc("/v1/subscriptions/sub_ok", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "items.data.price.product", r.URL.Query().Get("expand[]"))
		writeJSON(w, 200, map[string]any{"id": "sub_ok", "status": "active", "customer": map[string]any{"id": "cus_9"}})
	})
	client := newTestClient(t, mux)
	ctx := context.Background()

	_, err := client.Get(ctx, "sub_missing")
	assert.ErrorIs(t, err, subscriptiondomain.ErrNotFound)

	_, err = client.Get(ctx, "sub_busy")
	assert.ErrorIs(t, err, subscriptiondomain.ErrSourceUnavailable)

	_, err = client.Get(ctx, "sub_denied")
	assert.ErrorIs(t, err, subscriptiondomain.ErrRejected)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.StatusCode)

	_, err = client.Get(ctx, "cus_wrong")
	assert.ErrorIs(t, err, subscriptiondomain.ErrInvalidID)

	sub, err := client.Get(ctx, "sub_ok")
	require.NoError(t, err)
	assert.Equal(t, "cus_9", sub.CustomerID)
}

func TestUpdateMetadataSendsForm(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/subscriptions/sub_1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "TUE,THU", r.PostForm.Get("metadata[days]"))
		assert.Equal(t, "2", r.PostForm.Get("metadata[dogs]"))
		writeJSON(w, 200, map[string]any{"id": "sub_1"})
	})
	client := newTestClient(t, mux)

	err := client.UpdateMetadata(context.Background(), "sub_1", map[string]string{"days": "TUE,THU", "dogs": "2"})
	require.NoError(t, err)
}
