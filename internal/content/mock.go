package content

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kilupskalvis/cmc/internal/models"
)

// MockAPI is an in-memory implementation of API for testing.
type MockAPI struct {
	mu sync.Mutex

	// items stores per-collection items in server order (newest first).
	items map[string][]*models.Item

	// Err can be set to make methods return an error. When ErrTimes is
	// positive the error is returned that many times and then cleared;
	// zero means every call fails.
	Err      error
	ErrTimes int

	// Calls counts invocations by method name.
	Calls map[string]int

	// NextIDs overrides server-assigned item IDs, consumed front to back.
	NextIDs []string

	idSeq int
}

// NewMockAPI creates a new MockAPI for testing.
func NewMockAPI() *MockAPI {
	return &MockAPI{
		items: make(map[string][]*models.Item),
		Calls: make(map[string]int),
	}
}

// AddItem seeds an item into the mock store, appended in server order.
func (m *MockAPI) AddItem(item *models.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.Collection] = append(m.items[item.Collection], item.Clone())
}

// ItemCount returns the number of stored items in a collection.
func (m *MockAPI) ItemCount(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items[collection])
}

// Item returns a copy of a stored item, or nil when absent.
func (m *MockAPI) Item(collection, itemID string) *models.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items[collection] {
		if it.ID == itemID {
			return it.Clone()
		}
	}
	return nil
}

func (m *MockAPI) fail(method string) error {
	m.Calls[method]++
	if m.Err == nil {
		return nil
	}
	err := m.Err
	if m.ErrTimes > 0 {
		m.ErrTimes--
		if m.ErrTimes == 0 {
			m.Err = nil
		}
	}
	return err
}

// Collections returns the seeded collections sorted by name.
func (m *MockAPI) Collections(ctx context.Context) ([]CollectionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Collections"); err != nil {
		return nil, err
	}
	infos := make([]CollectionInfo, 0, len(m.items))
	for name, items := range m.items {
		infos = append(infos, CollectionInfo{Name: name, Total: len(items)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// FetchPage returns one window of a collection after applying search
// and sort, mirroring how a content API would.
func (m *MockAPI) FetchPage(ctx context.Context, collection string, q Query) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("FetchPage"); err != nil {
		return nil, err
	}

	matched := make([]*models.Item, 0, len(m.items[collection]))
	needle := strings.ToLower(q.Search)
	for _, it := range m.items[collection] {
		if needle == "" || matchesSearch(it, needle) {
			matched = append(matched, it)
		}
	}

	if q.SortField != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			a, _ := matched[i].Fields.Get(q.SortField)
			b, _ := matched[j].Fields.Get(q.SortField)
			if q.SortDir == models.SortDesc {
				return lessFieldValue(b, a)
			}
			return lessFieldValue(a, b)
		})
	}

	total := len(matched)
	start := q.Offset
	if start > total {
		start = total
	}
	end := total
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}

	page := &Page{Total: total, Items: make([]models.Item, 0, end-start)}
	for _, it := range matched[start:end] {
		page.Items = append(page.Items, *it.Clone())
	}
	return page, nil
}

// Create stores the item under a server-assigned ID, newest first.
func (m *MockAPI) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Create"); err != nil {
		return nil, err
	}

	stored := item.Clone()
	if len(m.NextIDs) > 0 {
		stored.ID = m.NextIDs[0]
		m.NextIDs = m.NextIDs[1:]
	} else {
		m.idSeq++
		stored.ID = fmt.Sprintf("item-%04d", m.idSeq)
	}
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	m.items[item.Collection] = append([]*models.Item{stored}, m.items[item.Collection]...)
	return stored.Clone(), nil
}

// Update replaces a stored item's fields and flags.
func (m *MockAPI) Update(ctx context.Context, item *models.Item) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Update"); err != nil {
		return nil, err
	}

	for _, it := range m.items[item.Collection] {
		if it.ID == item.ID {
			it.Fields = item.Fields.Clone()
			it.Draft = item.Draft
			it.Archived = item.Archived
			it.UpdatedAt = time.Now()
			return it.Clone(), nil
		}
	}
	return nil, &APIError{Status: 404, Code: "item_not_found", Message: fmt.Sprintf("item %s not found in %s", item.ID, item.Collection)}
}

// Delete removes a stored item.
func (m *MockAPI) Delete(ctx context.Context, collection, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Delete"); err != nil {
		return err
	}

	items := m.items[collection]
	for i, it := range items {
		if it.ID == itemID {
			m.items[collection] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return &APIError{Status: 404, Code: "item_not_found", Message: fmt.Sprintf("item %s not found in %s", itemID, collection)}
}

func matchesSearch(it *models.Item, needle string) bool {
	for _, f := range it.Fields {
		if f.Value.Kind == models.FieldText && strings.Contains(strings.ToLower(f.Value.Text), needle) {
			return true
		}
	}
	return false
}

func lessFieldValue(a, b models.FieldValue) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	switch a.Kind {
	case models.FieldNumber:
		return a.Number < b.Number
	case models.FieldDate:
		return a.Date.Before(b.Date)
	case models.FieldBoolean:
		return !a.Bool && b.Bool
	default:
		return a.String() < b.String()
	}
}

// Verify MockAPI implements API.
var _ API = (*MockAPI)(nil)
