package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// HTTPClient talks to the storefront REST API. Transient failures are
// retried with backoff before an error is reported.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *retryablehttp.Client
}

// Ensure HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a storefront client for the given base URL and API
// key.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 2 * time.Second
	client.RetryWaitMax = 5 * time.Second
	client.Logger = nil

	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

type pushKeysRequest struct {
	Keys []string `json:"keys"`
}

// PushKeys uploads plaintext keys to the storefront product variant.
func (c *HTTPClient) PushKeys(ctx context.Context, externalProductID, externalVariantID string, keys []string) error {
	body, err := json.Marshal(pushKeysRequest{Keys: keys})
	if err != nil {
		return fmt.Errorf("marshaling push request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/products/%s/variants/%s/keys",
		c.baseURL, url.PathEscape(externalProductID), url.PathEscape(externalVariantID))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("creating push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("pushing keys to storefront: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &Error{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return nil
}
