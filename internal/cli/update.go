package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/cmc/internal/models"
)

var updateCmd = &cobra.Command{
	Use:   "update <collection> <id>",
	Short: "Update fields on an item in the current view",
	Long: `Merge new field values over an item. The patched item shows up in
the view immediately and rolls back if the server refuses the update.`,
	Args: cobra.ExactArgs(2),
	Run:  runUpdate,
}

var updateFields []string

func init() {
	updateCmd.Flags().StringArrayVarP(&updateFields, "field", "f", nil, "Field as key=value (repeatable)")
}

func runUpdate(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	fields, err := parseFields(updateFields)
	if err != nil {
		exitError("%v", err)
	}
	if len(fields) == 0 {
		exitError("at least one --field key=value is required")
	}

	c := initFullContext()
	defer c.Close()

	collection, itemID := args[0], args[1]
	if err := c.Engine.Refresh(ctx, collection); err != nil {
		// A stale view that still shows the item is good enough to
		// patch against.
		if _, ok := c.Engine.Item(collection, itemID); !ok {
			exitAPIError(err)
		}
	}

	fmt.Printf("update %s: %s\n", models.ItemKey(collection, itemID), summarizeFields(fields))

	item, err := c.Engine.Update(ctx, collection, itemID, fields)
	if err != nil {
		exitAPIError(err)
	}

	color.New(color.FgGreen).Printf("confirmed %s\n", models.ItemKey(collection, item.ID))
}
