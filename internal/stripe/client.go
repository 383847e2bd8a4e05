// Package stripe reads and annotates subscriptions through the Stripe REST API.
package stripe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/bookingsync/internal/config"
	subscriptiondomain "github.com/smallbiznis/bookingsync/internal/subscription/domain"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.stripe.com"
	pageSize       = 100
	idPrefix       = "sub_"
)

// APIError is an error response from Stripe.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe: %d %s: %s", e.StatusCode, e.Type, e.Message)
}

// Client implements subscriptiondomain.Source.
type Client struct {
	http     *http.Client
	baseURL  string
	apiKey   string
	statuses func() []string
	log      *zap.Logger
}

// ClientOption customizes Client.
type ClientOption func(*Client)

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithStatuses sets the subscription statuses ListActive requests.
func WithStatuses(fn func() []string) ClientOption {
	return func(c *Client) { c.statuses = fn }
}

func NewClient(cfg config.StripeConfig, log *zap.Logger, opts ...ClientOption) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	c := &Client{
		http:     &http.Client{Timeout: 30 * time.Second},
		baseURL:  base,
		apiKey:   cfg.APIKey,
		statuses: subscriptiondomain.DefaultActiveStatuses,
		log:      log.Named("stripe.client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListActive pages through subscriptions for each configured status. Prices
// are expanded; product details missing from the expansion are fetched once
// per product.
func (c *Client) ListActive(ctx context.Context) ([]subscriptiondomain.Subscription, error) {
	statuses := c.statuses()
	seen := map[string]struct{}{}
	products := &productCache{items: map[string]product{}}
	var out []subscriptiondomain.Subscription

	for _, status := range statuses {
		startingAfter := ""
		for {
			q := url.Values{}
			q.Set("status", status)
			q.Set("limit", fmt.Sprint(pageSize))
			q.Add("expand[]", "data.items.data.price")
			if startingAfter != "" {
				q.Set("starting_after", startingAfter)
			}

			var page struct {
				Data    []map[string]any `json:"data"`
				HasMore bool             `json:"has_more"`
			}
			if err := c.do(ctx, http.MethodGet, "/v1/subscriptions", q, nil, &page); err != nil {
				return nil, err
			}

			for _, raw := range page.Data {
				if rawID := scalar(raw["id"]); rawID != "" {
					startingAfter = rawID
				}
				sub, err := Normalize(raw)
				if err != nil {
					c.log.Warn("stripe.subscription.skipped", zap.Error(err))
					continue
				}
				if _, dup := seen[sub.ID]; dup {
					continue
				}
				seen[sub.ID] = struct{}{}
				if err := c.fillProducts(ctx, products, &sub); err != nil {
					return nil, err
				}
				out = append(out, sub)
			}
			if !page.HasMore || len(page.Data) == 0 {
				break
			}
		}
	}

	c.log.Debug("stripe.subscriptions.listed",
		zap.Strings("statuses", statuses),
		zap.Int("count", len(out)),
	)
	return out, nil
}

func (c *Client) Get(ctx context.Context, id string) (subscriptiondomain.Subscription, error) {
	id = strings.TrimSpace(id)
	if !validID(id) {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidID
	}
	q := url.Values{}
	q.Add("expand[]", "items.data.price.product")

	var raw map[string]any
	if err := c.do(ctx, http.MethodGet, "/v1/subscriptions/"+url.PathEscape(id), q, nil, &raw); err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	return Normalize(raw)
}

// UpdateMetadata merges values into the subscription metadata.
func (c *Client) UpdateMetadata(ctx context.Context, id string, values map[string]string) error {
	id = strings.TrimSpace(id)
	if !validID(id) {
		return subscriptiondomain.ErrInvalidID
	}
	form := url.Values{}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		form.Set("metadata["+k+"]", values[k])
	}
	return c.do(ctx, http.MethodPost, "/v1/subscriptions/"+url.PathEscape(id), nil, form, nil)
}

type product struct {
	Name     string
	Metadata map[string]string
}

type productCache struct {
	mu    sync.Mutex
	items map[string]product
}

func (c *Client) fillProducts(ctx context.Context, cache *productCache, sub *subscriptiondomain.Subscription) error {
	for i := range sub.Items {
		item := &sub.Items[i]
		if item.ProductID == "" || item.ProductName != "" {
			continue
		}
		p, err := c.product(ctx, cache, item.ProductID)
		if err != nil {
			if errors.Is(err, subscriptiondomain.ErrNotFound) {
				continue
			}
			return err
		}
		item.ProductName = p.Name
		item.ProductMetadata = p.Metadata
	}
	return nil
}

func (c *Client) product(ctx context.Context, cache *productCache, id string) (product, error) {
	cache.mu.Lock()
	p, ok := cache.items[id]
	cache.mu.Unlock()
	if ok {
		return p, nil
	}

	var raw map[string]any
	if err := c.do(ctx, http.MethodGet, "/v1/products/"+url.PathEscape(id), nil, nil, &raw); err != nil {
		return product{}, err
	}
	p = product{Name: scalar(raw["name"]), Metadata: stringMap(raw["metadata"])}

	cache.mu.Lock()
	cache.items[id] = p
	cache.mu.Unlock()
	return p, nil
}

func (c *Client) do(ctx context.Context, method, path string, query, form url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.apiKey, "")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", subscriptiondomain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", subscriptiondomain.ErrSourceUnavailable, err)
	}

	if resp.StatusCode >= 300 {
		return responseError(resp.StatusCode, payload)
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("stripe: decode %s: %w", path, err)
	}
	return nil
}

func responseError(status int, payload []byte) error {
	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(payload, &envelope)
	apiErr := &APIError{
		StatusCode: status,
		Type:       envelope.Error.Type,
		Code:       envelope.Error.Code,
		Message:    envelope.Error.Message,
	}
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %w", subscriptiondomain.ErrNotFound, apiErr)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: %w", subscriptiondomain.ErrSourceUnavailable, apiErr)
	default:
		return fmt.Errorf("%w: %w", subscriptiondomain.ErrRejected, apiErr)
	}
}

func validID(id string) bool {
	return strings.HasPrefix(id, idPrefix) && len(id) > len(idPrefix)
}

var _ subscriptiondomain.Source = (*Client)(nil)
