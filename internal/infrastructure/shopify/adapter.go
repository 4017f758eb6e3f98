package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shelfwise/backend/internal/domain/sales"
	"github.com/shelfwise/backend/internal/domain/storefront"
)

// maxResponseSize is the maximum allowed response size from the Admin API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Adapter implements the storefront.Storefront port against the Shopify
// Admin REST API.
//
// Pagination uses Link-header page_info cursors. Rate limiting follows the
// platform's leaky bucket: a 429 is retried with the server's Retry-After
// hint when present, otherwise with exponential backoff, up to the configured
// attempt ceiling. Other upstream failures get a single delayed retry. The
// X-Shopify-Shop-Api-Call-Limit header is watched so the adapter cools down
// before the bucket actually overflows.
type Adapter struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAdapter creates a new Shopify adapter with the given configuration.
func NewAdapter(config *Config, logger *zap.Logger) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Adapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: logger.Named("shopify"),
	}, nil
}

// ---------------------------------------------------------------------------
// Order Operations
// ---------------------------------------------------------------------------

// PullOrders fetches one page of orders updated since the request window.
func (a *Adapter) PullOrders(ctx context.Context, req *storefront.OrderPullRequest) (*storefront.OrderPage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("limit", strconv.Itoa(req.PageSize))
	if req.Cursor != "" {
		// A page_info cursor encodes the original query; only limit may
		// accompany it.
		values.Set("page_info", req.Cursor)
	} else {
		values.Set("status", "any")
		values.Set("updated_at_min", req.UpdatedAtMin.UTC().Format(time.RFC3339))
	}

	endpoint := a.endpoint(req.Credentials, "orders.json") + "?" + values.Encode()

	body, header, err := a.fetch(ctx, req.Credentials, endpoint)
	if err != nil {
		return nil, err
	}

	var resp ordersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse orders payload: %v", storefront.ErrInvalidResponse, err)
	}

	page := &storefront.OrderPage{
		Orders:     make([]storefront.PlatformOrder, 0, len(resp.Orders)),
		NextCursor: nextPageInfo(header.Get("Link")),
	}

	for i := range resp.Orders {
		order, err := convertOrder(&resp.Orders[i])
		if err != nil {
			a.logger.Warn("Skipping malformed platform order",
				zap.Int64("order_id", resp.Orders[i].ID),
				zap.Error(err),
			)
			continue
		}
		page.Orders = append(page.Orders, order)
	}

	return page, nil
}

// CountOrders returns the number of orders updated since updatedAtMin, via
// the count endpoint so progress has a total before the first page lands.
func (a *Adapter) CountOrders(ctx context.Context, creds storefront.Credentials, updatedAtMin time.Time) (int, error) {
	if err := creds.Validate(); err != nil {
		return 0, err
	}

	values := url.Values{}
	values.Set("status", "any")
	values.Set("updated_at_min", updatedAtMin.UTC().Format(time.RFC3339))

	endpoint := a.endpoint(creds, "orders/count.json") + "?" + values.Encode()

	body, _, err := a.fetch(ctx, creds, endpoint)
	if err != nil {
		return 0, err
	}

	var resp countResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("%w: failed to parse count payload: %v", storefront.ErrInvalidResponse, err)
	}
	return resp.Count, nil
}

// ---------------------------------------------------------------------------
// Catalog Operations
// ---------------------------------------------------------------------------

// GetVariants fetches up to storefront.MaxVariantBatch variants in one query.
func (a *Adapter) GetVariants(ctx context.Context, creds storefront.Credentials, variantIDs []string) ([]storefront.PlatformVariant, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if len(variantIDs) == 0 {
		return nil, nil
	}
	if len(variantIDs) > storefront.MaxVariantBatch {
		return nil, fmt.Errorf("%w: variant batch of %d exceeds %d",
			storefront.ErrRequestFailed, len(variantIDs), storefront.MaxVariantBatch)
	}

	values := url.Values{}
	values.Set("ids", strings.Join(variantIDs, ","))
	values.Set("limit", strconv.Itoa(storefront.MaxVariantBatch))

	endpoint := a.endpoint(creds, "variants.json") + "?" + values.Encode()

	body, _, err := a.fetch(ctx, creds, endpoint)
	if err != nil {
		return nil, err
	}

	var resp variantsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse variants payload: %v", storefront.ErrInvalidResponse, err)
	}

	variants := make([]storefront.PlatformVariant, 0, len(resp.Variants))
	for i := range resp.Variants {
		variants = append(variants, convertVariant(&resp.Variants[i]))
	}
	return variants, nil
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// fetch performs one logical GET with the full retry policy applied.
func (a *Adapter) fetch(ctx context.Context, creds storefront.Credentials, endpoint string) ([]byte, http.Header, error) {
	attempt := 0
	transientRetried := false

	for {
		attempt++

		body, header, status, err := a.doRequest(ctx, creds, endpoint)
		if err != nil {
			// Network-level failure: retry once, then give up.
			if !transientRetried {
				transientRetried = true
				a.logger.Warn("Platform request failed, retrying once",
					zap.String("endpoint", endpoint), zap.Error(err))
				if serr := a.sleep(ctx, a.config.TransientRetryDelay); serr != nil {
					return nil, nil, serr
				}
				continue
			}
			return nil, nil, fmt.Errorf("%w: %v", storefront.ErrPlatformUnavailable, err)
		}

		switch {
		case status == http.StatusOK:
			a.cooldownIfNeeded(ctx, header)
			return body, header, nil

		case status == http.StatusTooManyRequests:
			if attempt >= a.config.RateLimitMaxAttempts {
				return nil, nil, fmt.Errorf("%w: gave up after %d attempts",
					storefront.ErrRateLimited, attempt)
			}
			delay := retryAfterDelay(header)
			if delay <= 0 {
				delay = a.config.RateLimitBaseDelay << (attempt - 1)
			}
			a.logger.Warn("Platform rate limited, backing off",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			if serr := a.sleep(ctx, delay); serr != nil {
				return nil, nil, serr
			}

		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return nil, nil, fmt.Errorf("%w: HTTP %d", storefront.ErrAuthFailed, status)

		case status >= 500:
			if !transientRetried {
				transientRetried = true
				a.logger.Warn("Platform returned server error, retrying once",
					zap.Int("status", status))
				if serr := a.sleep(ctx, a.config.TransientRetryDelay); serr != nil {
					return nil, nil, serr
				}
				continue
			}
			return nil, nil, fmt.Errorf("%w: HTTP %d", storefront.ErrPlatformUnavailable, status)

		default:
			return nil, nil, fmt.Errorf("%w: HTTP %d", storefront.ErrRequestFailed, status)
		}
	}
}

// doRequest performs a single HTTP GET against the Admin API.
func (a *Adapter) doRequest(ctx context.Context, creds storefront.Credentials, endpoint string) ([]byte, http.Header, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", creds.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, 0, fmt.Errorf("shopify: failed to read response: %w", err)
	}

	return body, resp.Header, resp.StatusCode, nil
}

// cooldownIfNeeded inserts a short pause when the reported bucket usage has
// crossed the configured threshold, so follow-up pages do not trip a 429.
func (a *Adapter) cooldownIfNeeded(ctx context.Context, header http.Header) {
	used, limit, ok := parseCallLimit(header.Get("X-Shopify-Shop-Api-Call-Limit"))
	if !ok {
		return
	}
	if float64(used) >= a.config.CooldownThreshold*float64(limit) {
		a.logger.Debug("Approaching rate limit, cooling down",
			zap.Int("used", used),
			zap.Int("limit", limit),
		)
		_ = a.sleep(ctx, a.config.CooldownDelay)
	}
}

// sleep waits for d or until the context is cancelled.
func (a *Adapter) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// endpoint builds an Admin API resource URL for the shop.
func (a *Adapter) endpoint(creds storefront.Credentials, resource string) string {
	base := creds.ShopDomain
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return fmt.Sprintf("%s/admin/api/%s/%s", strings.TrimSuffix(base, "/"), a.config.APIVersion, resource)
}

// ---------------------------------------------------------------------------
// Header Parsing
// ---------------------------------------------------------------------------

// nextPageInfo extracts the rel="next" page_info cursor from a Link header.
// Returns the empty string when there is no next page.
func nextPageInfo(link string) string {
	for _, part := range strings.Split(link, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start < 0 || end < start {
			continue
		}
		u, err := url.Parse(part[start+1 : end])
		if err != nil {
			continue
		}
		return u.Query().Get("page_info")
	}
	return ""
}

// retryAfterDelay returns the server's Retry-After hint, or zero when absent
// or unparseable.
func retryAfterDelay(header http.Header) time.Duration {
	raw := header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// parseCallLimit parses the "used/limit" form of the call limit header.
func parseCallLimit(raw string) (used, limit int, ok bool) {
	parts := strings.SplitN(raw, "/", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	used, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	limit, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || limit <= 0 {
		return 0, 0, false
	}
	return used, limit, true
}

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

// convertOrder converts a REST order to the domain representation. Buyer
// contact is reduced to its digest here so raw PII never leaves the adapter.
func convertOrder(o *restOrder) (storefront.PlatformOrder, error) {
	if o.ID == 0 {
		return storefront.PlatformOrder{}, fmt.Errorf("%w: order without id", storefront.ErrMalformedRecord)
	}
	placedAt := parseTime(o.CreatedAt)
	if placedAt.IsZero() {
		return storefront.PlatformOrder{}, fmt.Errorf("%w: order %d without created_at", storefront.ErrMalformedRecord, o.ID)
	}

	order := storefront.PlatformOrder{
		PlatformOrderID:   formatID(o.ID),
		ContactDigest:     sales.HashContact(contactOf(o)),
		TotalAmount:       ParseDecimal(o.TotalPrice),
		SubtotalAmount:    ParseDecimal(o.SubtotalPrice),
		DiscountAmount:    ParseDecimal(o.TotalDiscounts),
		Currency:          o.Currency,
		FinancialStatus:   o.FinancialStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		PlacedAt:          placedAt,
		Items:             make([]storefront.PlatformOrderItem, 0, len(o.LineItems)),
	}

	if o.Customer != nil && o.Customer.ID != 0 {
		id := formatID(o.Customer.ID)
		order.CustomerID = &id
	}

	for i, li := range o.LineItems {
		item := storefront.PlatformOrderItem{
			Title:     li.Title,
			Position:  i + 1,
			Quantity:  li.Quantity,
			UnitPrice: ParseDecimal(li.Price),
		}
		if li.VariantID != nil && *li.VariantID != 0 {
			item.VariantID = formatID(*li.VariantID)
		}
		order.Items = append(order.Items, item)
	}

	return order, nil
}

// contactOf picks the best buyer contact available on the order.
func contactOf(o *restOrder) string {
	if o.Email != "" {
		return o.Email
	}
	if o.Customer != nil {
		if o.Customer.Email != "" {
			return o.Customer.Email
		}
		if o.Customer.Phone != "" {
			return o.Customer.Phone
		}
	}
	return o.Phone
}

// convertVariant converts a REST variant to the domain representation.
func convertVariant(v *restVariant) storefront.PlatformVariant {
	variant := storefront.PlatformVariant{
		VariantID:         formatID(v.ID),
		SKU:               v.SKU,
		Title:             v.Title,
		Price:             ParseDecimal(v.Price),
		Cost:              ParseDecimal(v.Cost),
		InventoryQuantity: v.InventoryQuantity,
		Vendor:            v.Vendor,
		Distributor:       v.Distributor,
	}
	if v.Tags != "" {
		for _, tag := range strings.Split(v.Tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				variant.Tags = append(variant.Tags, tag)
			}
		}
	}
	return variant
}

// Ensure Adapter implements the storefront port
var _ storefront.Storefront = (*Adapter)(nil)
