// Package weaviate implements the content API against a Weaviate instance.
// Collections map to classes and item fields map to object properties.
package weaviate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	weaviatemodels "github.com/weaviate/weaviate/entities/models"

	"github.com/kilupskalvis/cmc/internal/content"
	"github.com/kilupskalvis/cmc/internal/models"
)

// Reserved object properties carrying item flags. Everything else on an
// object is treated as a content field.
const (
	draftProperty    = "cmcDraft"
	archivedProperty = "cmcArchived"
)

// Client wraps the Weaviate client behind the content API.
type Client struct {
	client *weaviate.Client
	url    string
}

var _ content.API = (*Client)(nil)

// NewClient creates a new Weaviate-backed content client.
func NewClient(url string) (*Client, error) {
	cfg := weaviate.Config{
		Host:   url,
		Scheme: "http",
	}

	// Handle URL parsing
	if len(url) > 7 && url[:7] == "http://" {
		cfg.Host = url[7:]
		cfg.Scheme = "http"
	} else if len(url) > 8 && url[:8] == "https://" {
		cfg.Host = url[8:]
		cfg.Scheme = "https"
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Weaviate client: %w", err)
	}

	return &Client{
		client: client,
		url:    url,
	}, nil
}

// Ping checks if Weaviate is reachable.
func (c *Client) Ping(ctx context.Context) error {
	live, err := c.client.Misc().LiveChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to Weaviate: %w", err)
	}
	if !live {
		return fmt.Errorf("weaviate is not live")
	}
	return nil
}

// Collections returns all classes in the schema with their object counts.
func (c *Client) Collections(ctx context.Context) ([]content.CollectionInfo, error) {
	schema, err := c.client.Schema().Getter().Do(ctx)
	if err != nil {
		return nil, translateError(err)
	}

	infos := make([]content.CollectionInfo, 0, len(schema.Classes))
	for _, class := range schema.Classes {
		total, err := c.classCount(ctx, class.Class)
		if err != nil {
			return nil, err
		}
		infos = append(infos, content.CollectionInfo{Name: class.Class, Total: total})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// classCount returns the number of objects in a class using an aggregate query.
func (c *Client) classCount(ctx context.Context, collection string) (int, error) {
	metaField := graphql.Field{
		Name: "meta",
		Fields: []graphql.Field{
			{Name: "count"},
		},
	}

	result, err := c.client.GraphQL().Aggregate().
		WithClassName(collection).
		WithFields(metaField).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get count for %s: %w", collection, translateError(err))
	}

	// Parse the aggregate result
	data, ok := result.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf("unexpected aggregate response format")
	}

	classData, ok := data[collection].([]interface{})
	if !ok || len(classData) == 0 {
		return 0, nil
	}

	first, ok := classData[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}

	meta, ok := first["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}

	count, ok := meta["count"].(float64)
	if !ok {
		return 0, nil
	}

	return int(count), nil
}

// FetchPage retrieves one page of items from a class. Plain pages use
// offset pagination against the objects endpoint; search and sort are
// applied client-side because the data API offers neither.
func (c *Client) FetchPage(ctx context.Context, collection string, q content.Query) (*content.Page, error) {
	if q.Search == "" && q.SortField == "" {
		return c.fetchOffset(ctx, collection, q)
	}
	return c.fetchFiltered(ctx, collection, q)
}

func (c *Client) fetchOffset(ctx context.Context, collection string, q content.Query) (*content.Page, error) {
	objs, err := c.client.Data().ObjectsGetter().
		WithClassName(collection).
		WithLimit(q.Limit).
		WithOffset(q.Offset).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch objects from %s: %w", collection, translateError(err))
	}

	items := make([]models.Item, 0, len(objs))
	for _, obj := range objs {
		items = append(items, itemFromObject(collection, obj))
	}

	total, err := c.classCount(ctx, collection)
	if err != nil {
		return nil, err
	}

	return &content.Page{Items: items, Total: total}, nil
}

func (c *Client) fetchFiltered(ctx context.Context, collection string, q content.Query) (*content.Page, error) {
	all, err := c.listAll(ctx, collection)
	if err != nil {
		return nil, err
	}

	matched := make([]models.Item, 0, len(all))
	for _, item := range all {
		if matchesSearch(&item, q.Search) {
			matched = append(matched, item)
		}
	}

	if q.SortField != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			a, _ := matched[i].Fields.Get(q.SortField)
			b, _ := matched[j].Fields.Get(q.SortField)
			less := lessField(a, b)
			if q.SortDir == models.SortDesc {
				return !less
			}
			return less
		})
	}

	total := len(matched)
	start := q.Offset
	if start > total {
		start = total
	}
	end := start + q.Limit
	if q.Limit <= 0 || end > total {
		end = total
	}

	return &content.Page{Items: matched[start:end], Total: total}, nil
}

// listAll fetches every object in a class in offset batches.
func (c *Client) listAll(ctx context.Context, collection string) ([]models.Item, error) {
	var all []models.Item
	limit := 100
	offset := 0

	for {
		objs, err := c.client.Data().ObjectsGetter().
			WithClassName(collection).
			WithLimit(limit).
			WithOffset(offset).
			Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch objects from %s: %w", collection, translateError(err))
		}

		if len(objs) == 0 {
			break
		}

		for _, obj := range objs {
			all = append(all, itemFromObject(collection, obj))
		}

		if len(objs) < limit {
			break
		}
		offset += limit
	}

	return all, nil
}

// Create stores a new object and returns the resulting item. The item's
// provisional ID is never sent; the object gets a fresh UUID.
func (c *Client) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	props, err := propertiesFromItem(item)
	if err != nil {
		return nil, err
	}

	wrapper, err := c.client.Data().Creator().
		WithClassName(item.Collection).
		WithID(uuid.NewString()).
		WithProperties(props).
		Do(ctx)
	if err != nil {
		return nil, translateError(err)
	}

	created := itemFromObject(item.Collection, wrapper.Object)
	return &created, nil
}

// Update replaces an object's properties and returns the stored item.
func (c *Client) Update(ctx context.Context, item *models.Item) (*models.Item, error) {
	props, err := propertiesFromItem(item)
	if err != nil {
		return nil, err
	}

	err = c.client.Data().Updater().
		WithClassName(item.Collection).
		WithID(item.ID).
		WithProperties(props).
		Do(ctx)
	if err != nil {
		return nil, translateError(err)
	}

	return c.getItem(ctx, item.Collection, item.ID)
}

// Delete removes an object by class and ID.
func (c *Client) Delete(ctx context.Context, collection, itemID string) error {
	err := c.client.Data().Deleter().
		WithClassName(collection).
		WithID(itemID).
		Do(ctx)
	return translateError(err)
}

func (c *Client) getItem(ctx context.Context, collection, itemID string) (*models.Item, error) {
	objs, err := c.client.Data().ObjectsGetter().
		WithClassName(collection).
		WithID(itemID).
		Do(ctx)
	if err != nil {
		return nil, translateError(err)
	}

	if len(objs) == 0 {
		return nil, &content.APIError{
			Status:  http.StatusNotFound,
			Code:    "item_not_found",
			Message: fmt.Sprintf("object %s not found in %s", itemID, collection),
		}
	}

	item := itemFromObject(collection, objs[0])
	return &item, nil
}

// itemFromObject converts a Weaviate object to an item. Property maps are
// unordered, so fields come back sorted by name.
func itemFromObject(collection string, obj *weaviatemodels.Object) models.Item {
	item := models.Item{
		Collection: collection,
	}
	if obj == nil {
		return item
	}

	item.ID = obj.ID.String()
	if obj.CreationTimeUnix > 0 {
		item.CreatedAt = time.UnixMilli(obj.CreationTimeUnix).UTC()
	}
	if obj.LastUpdateTimeUnix > 0 {
		item.UpdatedAt = time.UnixMilli(obj.LastUpdateTimeUnix).UTC()
	}

	props, _ := obj.Properties.(map[string]interface{})
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		switch name {
		case draftProperty:
			item.Draft, _ = props[name].(bool)
		case archivedProperty:
			item.Archived, _ = props[name].(bool)
		default:
			item.Fields.Set(name, fieldFromProperty(props[name]))
		}
	}

	return item
}

// propertiesFromItem converts item fields and flags to object properties.
func propertiesFromItem(item *models.Item) (map[string]interface{}, error) {
	props := make(map[string]interface{}, len(item.Fields)+2)

	for _, f := range item.Fields {
		switch f.Value.Kind {
		case models.FieldNumber:
			props[f.Key] = f.Value.Number
		case models.FieldBoolean:
			props[f.Key] = f.Value.Bool
		case models.FieldDate:
			props[f.Key] = f.Value.Date.Format(time.RFC3339)
		case models.FieldRich:
			var decoded interface{}
			if err := json.Unmarshal(f.Value.Rich, &decoded); err != nil {
				return nil, fmt.Errorf("encode field %s: %w", f.Key, err)
			}
			props[f.Key] = decoded
		default:
			props[f.Key] = f.Value.Text
		}
	}

	props[draftProperty] = item.Draft
	props[archivedProperty] = item.Archived
	return props, nil
}

func fieldFromProperty(v interface{}) models.FieldValue {
	switch val := v.(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339, val); err == nil {
			return models.Date(ts)
		}
		return models.Text(val)
	case float64:
		return models.Number(val)
	case bool:
		return models.Boolean(val)
	case nil:
		return models.Text("")
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return models.Text(fmt.Sprintf("%v", val))
		}
		return models.Rich(raw)
	}
}

func matchesSearch(item *models.Item, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, f := range item.Fields {
		if f.Value.Kind == models.FieldText && strings.Contains(strings.ToLower(f.Value.Text), needle) {
			return true
		}
	}
	return false
}

func lessField(a, b models.FieldValue) bool {
	if a.Kind == models.FieldNumber && b.Kind == models.FieldNumber {
		return a.Number < b.Number
	}
	if a.Kind == models.FieldDate && b.Kind == models.FieldDate {
		return a.Date.Before(b.Date)
	}
	return a.String() < b.String()
}

// translateError maps client faults with an HTTP status onto the content
// API error type so they classify like REST responses.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var clientErr *fault.WeaviateClientError
	if errors.As(err, &clientErr) && clientErr.StatusCode > 0 {
		return &content.APIError{
			Status:  clientErr.StatusCode,
			Code:    "weaviate_error",
			Message: clientErr.Msg,
		}
	}

	return err
}
