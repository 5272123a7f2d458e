package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go-storefront/models"
	"go-storefront/utils"
)

const defaultClientTimeout = 10 * time.Second

// TokenStore holds the bearer token of the signed-in shopper.
type TokenStore interface {
	Token() string
	SetToken(token string)
	Clear()
}

// MemoryTokens is a TokenStore kept in memory.
type MemoryTokens struct {
	mu    sync.RWMutex
	token string
}

func (t *MemoryTokens) Token() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

func (t *MemoryTokens) SetToken(token string) {
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
}

func (t *MemoryTokens) Clear() { t.SetToken("") }

// APIClient talks to the storefront HTTP API and maps failures onto the
// same error kinds the server uses.
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenStore
}

// NewAPIClient returns a client for the API rooted at baseURL, e.g.
// http://localhost:8000/api.
func NewAPIClient(baseURL string, tokens TokenStore) *APIClient {
	if tokens == nil {
		tokens = &MemoryTokens{}
	}
	return &APIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: defaultClientTimeout},
		Tokens:     tokens,
	}
}

func (c *APIClient) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *APIClient) GetFeaturedProduct(ctx context.Context, id string) (*models.FeaturedProduct, error) {
	var featured models.FeaturedProduct
	if err := c.do(ctx, http.MethodGet, "/featured-products/"+url.PathEscape(id), nil, nil, &featured); err != nil {
		return nil, err
	}
	return &featured, nil
}

// FeaturedVariant returns the active featured entry wrapping productID,
// or nil when the product is not featured.
func (c *APIClient) FeaturedVariant(ctx context.Context, productID string) (*models.FeaturedProduct, error) {
	var featured models.FeaturedProduct
	err := c.do(ctx, http.MethodGet, "/featured-products/product/"+url.PathEscape(productID), nil, nil, &featured)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &featured, nil
}

func (c *APIClient) GetNewArrival(ctx context.Context, id string) (*models.NewArrival, error) {
	var arrival models.NewArrival
	if err := c.do(ctx, http.MethodGet, "/new-arrivals/"+url.PathEscape(id), nil, nil, &arrival); err != nil {
		return nil, err
	}
	return &arrival, nil
}

// CreateOrder places an order. An empty idempotencyKey sends no
// Idempotency-Key header.
func (c *APIClient) CreateOrder(ctx context.Context, req models.CreateOrderRequest, idempotencyKey string) (*models.Order, error) {
	if c.Tokens.Token() == "" {
		return nil, utils.NewAuthError("Authentication required")
	}
	if req.ShippingDetails == nil || len(req.Items) == 0 || req.PaymentMethod == "" {
		return nil, utils.NewValidationError("Missing required order data")
	}

	header := http.Header{}
	if idempotencyKey != "" {
		header.Set("Idempotency-Key", idempotencyKey)
	}
	var order models.Order
	if err := c.do(ctx, http.MethodPost, "/orders", req, header, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body any, header http.Header, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return utils.NewValidationError("Invalid request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return utils.NewUnknownError(err, "Failed to build request")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return utils.NewNetworkError(err, "service temporarily unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.responseError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return utils.NewUnknownError(err, "Invalid response from %s", path)
	}
	return nil
}

func (c *APIClient) responseError(resp *http.Response) error {
	var body utils.ErrorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body)

	message := body.Message
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		c.Tokens.Clear()
		return utils.NewAuthError("%s", message)
	case http.StatusServiceUnavailable:
		return utils.NewNetworkError(fmt.Errorf("status %d", resp.StatusCode), "service temporarily unavailable")
	case http.StatusNotFound:
		return utils.NewNotFoundError("%s", message)
	}

	if body.Code != "" {
		return &utils.AppError{Kind: body.Code, Status: resp.StatusCode, Message: message}
	}
	switch {
	case resp.StatusCode == http.StatusForbidden:
		return utils.NewForbiddenError("%s", message)
	case resp.StatusCode < http.StatusInternalServerError:
		return utils.NewValidationError("%s", message)
	}
	return utils.NewUnknownError(fmt.Errorf("status %d", resp.StatusCode), "%s", message)
}
