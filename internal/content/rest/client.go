package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kilupskalvis/cmc/internal/content"
	"github.com/kilupskalvis/cmc/internal/models"
)

// Client implements the content API over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ content.API = (*Client)(nil)

// NewClient creates an HTTP-based content API client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{},
	}
}

func (c *Client) collectionsURL() string {
	return c.baseURL + "/api/v1/collections"
}

func (c *Client) itemsURL(collection, path string) string {
	return fmt.Sprintf("%s/api/v1/collections/%s/items%s", c.baseURL, collection, path)
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}

	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, url string, reqBody, respBody interface{}) error {
	var body io.Reader
	headers := map[string]string{"Content-Type": "application/json"}

	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.do(ctx, method, url, body, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// Collections returns the collections available to the configured token.
func (c *Client) Collections(ctx context.Context) ([]content.CollectionInfo, error) {
	var resp collectionsResponse
	if err := c.doJSON(ctx, "GET", c.collectionsURL(), nil, &resp); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	infos := make([]content.CollectionInfo, 0, len(resp.Collections))
	for _, col := range resp.Collections {
		infos = append(infos, content.CollectionInfo{Name: col.Name, Total: col.TotalItems})
	}
	return infos, nil
}

// FetchPage retrieves one page of items from a collection.
func (c *Client) FetchPage(ctx context.Context, collection string, q content.Query) (*content.Page, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.SortField != "" {
		params.Set("sort", q.SortField)
		params.Set("order", string(q.SortDir))
	}

	var resp listItemsResponse
	if err := c.doJSON(ctx, "GET", c.itemsURL(collection, "")+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch page of %s: %w", collection, err)
	}

	for i := range resp.Items {
		resp.Items[i].Collection = collection
	}

	return &content.Page{Items: resp.Items, Total: resp.Total}, nil
}

// Create stores a new item and returns it with its server-assigned ID.
func (c *Client) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	req := &itemPayload{Fields: item.Fields, Draft: item.Draft, Archived: item.Archived}

	var created models.Item
	if err := c.doJSON(ctx, "POST", c.itemsURL(item.Collection, ""), req, &created); err != nil {
		return nil, fmt.Errorf("create item in %s: %w", item.Collection, err)
	}

	created.Collection = item.Collection
	return &created, nil
}

// Update replaces an item's fields and flags and returns the stored item.
func (c *Client) Update(ctx context.Context, item *models.Item) (*models.Item, error) {
	req := &itemPayload{Fields: item.Fields, Draft: item.Draft, Archived: item.Archived}

	var updated models.Item
	if err := c.doJSON(ctx, "PATCH", c.itemsURL(item.Collection, "/"+item.ID), req, &updated); err != nil {
		return nil, fmt.Errorf("update item %s: %w", item.ID, err)
	}

	updated.Collection = item.Collection
	return &updated, nil
}

// Delete removes an item from a collection.
func (c *Client) Delete(ctx context.Context, collection, itemID string) error {
	resp, err := c.do(ctx, "DELETE", c.itemsURL(collection, "/"+itemID), nil, nil)
	if err != nil {
		return fmt.Errorf("delete item %s: %w", itemID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &content.APIError{Status: resp.StatusCode}

	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		apiErr.Code = "unknown"
		apiErr.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
	} else {
		apiErr.Code = errResp.Error
		apiErr.Message = errResp.Message
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}

	return apiErr
}

// parseRetryAfter reads a Retry-After header, either delay seconds or
// an HTTP date.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
