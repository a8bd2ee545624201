package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/cmc/internal/content"
	"github.com/kilupskalvis/cmc/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return NewClient(ts.URL, "test-token-123")
}

func TestFetchPage_QueryAndDecode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v1/collections/posts/items", r.URL.Path)
		assert.Equal(t, "Bearer test-token-123", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "10", q.Get("limit"))
		assert.Equal(t, "20", q.Get("offset"))
		assert.Equal(t, "go", q.Get("search"))
		assert.Equal(t, "title", q.Get("sort"))
		assert.Equal(t, "desc", q.Get("order"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"id":"a","fields":{"title":"First","views":12}}],"total":25}`))
	})

	page, err := c.FetchPage(context.Background(), "posts", content.Query{
		Limit:     10,
		Offset:    20,
		Search:    "go",
		SortField: "title",
		SortDir:   models.SortDesc,
	})
	require.NoError(t, err)

	assert.Equal(t, 25, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "a", page.Items[0].ID)
	assert.Equal(t, "posts", page.Items[0].Collection)
	assert.Equal(t, []string{"title", "views"}, page.Items[0].Fields.Keys())
	views, ok := page.Items[0].Fields.Get("views")
	require.True(t, ok)
	assert.Equal(t, models.FieldNumber, views.Kind)
}

func TestCreate_ProvisionalIDNotSent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/collections/posts/items", r.URL.Path)

		var body map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "id")
		assert.Contains(t, body, "fields")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"item-42","fields":{"title":"New"},"created_at":"2026-03-01T10:00:00Z"}`))
	})

	item := &models.Item{ID: "pending-abc", Collection: "posts", Draft: true}
	item.Fields.Set("title", models.Text("New"))

	created, err := c.Create(context.Background(), item)
	require.NoError(t, err)

	assert.Equal(t, "item-42", created.ID)
	assert.Equal(t, "posts", created.Collection)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestUpdate_PatchesByID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PATCH", r.Method)
		assert.Equal(t, "/api/v1/collections/posts/items/item-7", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"item-7","fields":{"title":"Edited"},"updated_at":"2026-03-01T11:00:00Z"}`))
	})

	item := &models.Item{ID: "item-7", Collection: "posts"}
	item.Fields.Set("title", models.Text("Edited"))

	updated, err := c.Update(context.Background(), item)
	require.NoError(t, err)

	assert.Equal(t, "item-7", updated.ID)
	title, ok := updated.Fields.Get("title")
	require.True(t, ok)
	assert.Equal(t, "Edited", title.Text)
}

func TestDelete_Succeeds(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		assert.Equal(t, "/api/v1/collections/posts/items/item-7", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.Delete(context.Background(), "posts", "item-7"))
}

func TestDelete_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"item_not_found","message":"no such item"}`))
	})

	err := c.Delete(context.Background(), "posts", "ghost")
	require.Error(t, err)

	var apiErr *content.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "item_not_found", apiErr.Code)
}

func TestCollections_List(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/collections", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"collections":[{"name":"authors","total_items":3},{"name":"posts","total_items":40}]}`))
	})

	infos, err := c.Collections(context.Background())
	require.NoError(t, err)

	require.Len(t, infos, 2)
	assert.Equal(t, "authors", infos[0].Name)
	assert.Equal(t, 40, infos[1].Total)
}

func TestDecodeError_StructuredBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"validation_failed","message":"title is required"}`))
	})

	_, err := c.Create(context.Background(), &models.Item{Collection: "posts"})
	require.Error(t, err)

	var apiErr *content.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "validation_failed", apiErr.Code)
	assert.Equal(t, "title is required", apiErr.Message)
}

func TestDecodeError_NonJSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	})

	_, err := c.FetchPage(context.Background(), "posts", content.Query{Limit: 10})
	require.Error(t, err)

	var apiErr *content.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "unknown", apiErr.Code)
	assert.Equal(t, "HTTP 500", apiErr.Message)
}

func TestRetryAfter_Seconds(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "15")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate_limited","message":"slow down"}`))
	})

	_, err := c.FetchPage(context.Background(), "posts", content.Query{Limit: 10})
	require.Error(t, err)

	var apiErr *content.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 15*time.Second, apiErr.RetryAfter)
}

func TestRetryAfter_HTTPDate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate_limited","message":"slow down"}`))
	})

	_, err := c.FetchPage(context.Background(), "posts", content.Query{Limit: 10})
	require.Error(t, err)

	var apiErr *content.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Greater(t, apiErr.RetryAfter, 50*time.Minute)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))
	assert.Equal(t, 2*time.Second, parseRetryAfter("2"))
}
