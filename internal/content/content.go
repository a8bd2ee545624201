// Package content defines the contract cmc uses to talk to a remote
// content API. Drivers (rest, weaviate) implement API; the engine and
// CLI work purely against the interface.
package content

import (
	"context"
	"fmt"
	"time"

	"github.com/kilupskalvis/cmc/internal/models"
)

// CollectionInfo describes one remote collection.
type CollectionInfo struct {
	Name  string `json:"name"`
	Total int    `json:"total"`
}

// Query selects a window of a collection listing.
type Query struct {
	Limit     int
	Offset    int
	Search    string
	SortField string
	SortDir   models.SortDir
}

// Page is one fetched window of a collection plus the server total.
type Page struct {
	Items []models.Item `json:"items"`
	Total int           `json:"total"`
}

// API is the contract for remote content drivers.
type API interface {
	// Collections lists the collections available on the remote.
	Collections(ctx context.Context) ([]CollectionInfo, error)

	// FetchPage retrieves one window of a collection in server order.
	FetchPage(ctx context.Context, collection string, q Query) (*Page, error)

	// Create stores a new item and returns it with server-assigned
	// identity and timestamps. The item's provisional ID is ignored.
	Create(ctx context.Context, item *models.Item) (*models.Item, error)

	// Update replaces an item's fields and returns the stored result.
	Update(ctx context.Context, item *models.Item) (*models.Item, error)

	// Delete removes an item from its collection.
	Delete(ctx context.Context, collection, itemID string) error
}

// APIError represents a structured error from the content API.
type APIError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration // rate-limit hint, zero when the API sent none
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s: %s", e.Status, e.Code, e.Message)
}
