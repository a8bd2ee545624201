package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/cmc/internal/models"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <collection> <id> [id...]",
	Short: "Delete items from a collection",
	Long: `Delete one or more items. Items vanish from the view right away and
reappear if the server rejects the delete.`,
	Args: cobra.MinimumNArgs(2),
	Run:  runDelete,
}

func runDelete(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	c := initFullContext()
	defer c.Close()

	collection, ids := args[0], args[1:]
	if err := c.Engine.Refresh(ctx, collection); err != nil {
		if len(c.Engine.CombinedItems(collection)) == 0 {
			exitAPIError(err)
		}
	}

	green := color.New(color.FgGreen)

	if len(ids) == 1 {
		fmt.Printf("delete %s\n", models.ItemKey(collection, ids[0]))
		if err := c.Engine.Delete(ctx, collection, ids[0]); err != nil {
			exitAPIError(err)
		}
		green.Printf("confirmed %s\n", models.ItemKey(collection, ids[0]))
		return
	}

	// Multi-delete goes through the selection set so each confirmed
	// removal clears its own entry.
	c.Engine.Initialize(collection)
	for _, id := range ids {
		if _, ok := c.Engine.Item(collection, id); !ok {
			exitError("item %s is not in the current view", models.ItemKey(collection, id))
		}
		c.Engine.Select(collection, id)
	}

	fmt.Printf("delete %d items from %s\n", len(ids), collection)

	deleted, err := c.Engine.DeleteSelected(ctx, collection)
	if err != nil {
		if deleted > 0 {
			green.Printf("confirmed %d of %d\n", deleted, len(ids))
		}
		exitAPIError(err)
	}

	green.Printf("confirmed %d of %d\n", deleted, len(ids))
}
