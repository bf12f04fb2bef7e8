package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/keymint/keymint/internal/domain"
)

// apiClient is a minimal JSON client for the keymint HTTP API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient() (*apiClient, error) {
	if rootArgs.token == "" {
		return nil, fmt.Errorf("no admin token set, use --token or KEYMINT_ADMIN_TOKEN")
	}
	return &apiClient{
		baseURL: strings.TrimRight(rootArgs.server, "/"),
		token:   rootArgs.token,
		http:    &http.Client{},
	}, nil
}

// do performs a JSON request against the API. Non-2xx responses are turned
// into errors carrying the server's message.
func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// pushKeys calls the delivery push endpoint. A 502 still carries the
// generated keys, so the result is returned alongside the error.
func (c *apiClient) pushKeys(ctx context.Context, product string, amount int) (*domain.DeliveryPushResult, error) {
	data, err := json.Marshal(domain.PushKeysRequest{Amount: amount})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	path := fmt.Sprintf("/api/v1/products/%s/delivery/push", url.PathEscape(product))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusBadGateway:
		var result domain.DeliveryPushResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		if resp.StatusCode == http.StatusBadGateway {
			return &result, fmt.Errorf("storefront push failed: %s", result.Error)
		}
		return &result, nil
	default:
		return nil, apiError(resp)
	}
}

// apiError extracts the server's error message from a failed response.
func apiError(resp *http.Response) error {
	var apiErr domain.APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("%s (status %d)", apiErr.Message, resp.StatusCode)
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}

// productPath builds the API path for a product, escaping raw names that
// may contain spaces before normalization.
func productPath(name, suffix string) string {
	return fmt.Sprintf("/api/v1/products/%s/%s", url.PathEscape(name), suffix)
}
