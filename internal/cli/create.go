package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/cmc/internal/models"
)

var createCmd = &cobra.Command{
	Use:   "create <collection>",
	Short: "Create a new draft item",
	Long: `Create a new item in a collection. The item starts as a draft and
shows up in the view immediately while the server confirms it.`,
	Args: cobra.ExactArgs(1),
	Run:  runCreate,
}

var createFields []string

func init() {
	createCmd.Flags().StringArrayVarP(&createFields, "field", "f", nil, "Field as key=value (repeatable)")
}

func runCreate(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	fields, err := parseFields(createFields)
	if err != nil {
		exitError("%v", err)
	}
	if len(fields) == 0 {
		exitError("at least one --field key=value is required")
	}

	c := initFullContext()
	defer c.Close()

	collection := args[0]
	fmt.Printf("create %s: %s\n", collection, summarizeFields(fields))

	item, err := c.Engine.Create(ctx, collection, fields)
	if err != nil {
		exitAPIError(err)
	}

	color.New(color.FgGreen).Printf("confirmed %s\n", models.ItemKey(collection, item.ID))
}

// parseFields converts repeated key=value flags into an ordered field
// map, inferring each value's kind.
func parseFields(raw []string) (models.FieldMap, error) {
	var fields models.FieldMap
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q (want key=value)", kv)
		}
		fields.Set(key, parseFieldValue(value))
	}
	return fields, nil
}

// parseFieldValue infers a field kind from the raw flag value. JSON
// documents become rich text, RFC3339 strings dates, bare numbers and
// true/false their scalar kinds, anything else plain text.
func parseFieldValue(raw string) models.FieldValue {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "true" || trimmed == "false" {
		return models.Boolean(trimmed == "true")
	}
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if json.Valid([]byte(trimmed)) {
			return models.Rich(json.RawMessage(trimmed))
		}
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return models.Number(n)
	}
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return models.Date(t)
	}
	return models.Text(raw)
}
