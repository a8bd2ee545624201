package weaviate

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/fault"

	"github.com/kilupskalvis/cmc/internal/content"
	"github.com/kilupskalvis/cmc/internal/models"
)

func TestPropertiesFromItem(t *testing.T) {
	item := &models.Item{ID: "x", Collection: "posts", Draft: true}
	item.Fields.Set("title", models.Text("Hello"))
	item.Fields.Set("views", models.Number(42))
	item.Fields.Set("published", models.Boolean(true))
	item.Fields.Set("when", models.Date(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
	item.Fields.Set("body", models.Rich([]byte(`{"blocks":[{"text":"hi"}]}`)))

	props, err := propertiesFromItem(item)
	require.NoError(t, err)

	assert.Equal(t, "Hello", props["title"])
	assert.Equal(t, float64(42), props["views"])
	assert.Equal(t, true, props["published"])
	assert.Equal(t, "2026-03-01T10:00:00Z", props["when"])
	assert.Equal(t, true, props[draftProperty])
	assert.Equal(t, false, props[archivedProperty])

	body, ok := props["body"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, body, "blocks")
}

func TestFieldFromProperty(t *testing.T) {
	cases := []struct {
		name string
		prop interface{}
		kind models.FieldKind
	}{
		{"string", "plain", models.FieldText},
		{"date string", "2026-03-01T10:00:00Z", models.FieldDate},
		{"number", float64(3.5), models.FieldNumber},
		{"bool", true, models.FieldBoolean},
		{"nil", nil, models.FieldText},
		{"object", map[string]interface{}{"a": 1.0}, models.FieldRich},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, fieldFromProperty(tc.prop).Kind)
		})
	}
}

func TestTranslateError(t *testing.T) {
	clientErr := &fault.WeaviateClientError{StatusCode: http.StatusNotFound, Msg: "no such object"}

	var apiErr *content.APIError
	require.ErrorAs(t, translateError(clientErr), &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "no such object", apiErr.Message)

	plain := errors.New("dial tcp: connection refused")
	assert.Same(t, plain, translateError(plain))
	assert.NoError(t, translateError(nil))
}
