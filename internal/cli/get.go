package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/cmc/internal/models"
)

var getCmd = &cobra.Command{
	Use:   "get <collection> <id>",
	Short: "Show one item from the current view",
	Args:  cobra.ExactArgs(2),
	Run:   runGet,
}

func runGet(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	collection, itemID := args[0], args[1]
	if err := c.Engine.Refresh(ctx, collection); err != nil {
		if _, ok := c.Engine.Item(collection, itemID); !ok {
			exitAPIError(err)
		}
	}

	item, ok := c.Engine.Item(collection, itemID)
	if !ok {
		exitError("item %s is not in the current view (try list --page or --search)", models.ItemKey(collection, itemID))
	}

	yellow := color.New(color.FgYellow)
	yellow.Printf("item %s\n", item.ID)
	fmt.Printf("Collection: %s\n", item.Collection)
	if flags := itemFlags(item); flags != "" {
		fmt.Printf("Flags:      %s\n", flags)
	}
	if !item.CreatedAt.IsZero() {
		fmt.Printf("Created:    %s\n", item.CreatedAt.Format("Mon Jan 2 15:04:05 2006"))
	}
	if !item.UpdatedAt.IsZero() {
		fmt.Printf("Updated:    %s\n", item.UpdatedAt.Format("Mon Jan 2 15:04:05 2006"))
	}

	fmt.Println()
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	tbl.Wrap = true
	for _, f := range item.Fields {
		tbl.AddRow(f.Key, string(f.Value.Kind), f.Value.String())
	}
	fmt.Fprintln(color.Output, tbl)
}
