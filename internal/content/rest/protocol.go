// Package rest implements the content API client over HTTP.
package rest

import (
	"github.com/kilupskalvis/cmc/internal/models"
)

// itemPayload is the request body for item creation and updates.
// The server assigns IDs and timestamps, so neither is sent.
type itemPayload struct {
	Fields   models.FieldMap `json:"fields"`
	Draft    bool            `json:"draft,omitempty"`
	Archived bool            `json:"archived,omitempty"`
}

// listItemsResponse is one page of items plus the server-side total.
type listItemsResponse struct {
	Items []models.Item `json:"items"`
	Total int           `json:"total"`
}

// collectionsResponse lists the collections the token can reach.
type collectionsResponse struct {
	Collections []collectionInfo `json:"collections"`
}

type collectionInfo struct {
	Name       string `json:"name"`
	TotalItems int    `json:"total_items"`
}

// errorResponse is the structured error format returned by the server.
type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Detail  map[string]string `json:"detail,omitempty"`
}
