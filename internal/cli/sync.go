package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/cmc/internal/models"
	"github.com/kilupskalvis/cmc/internal/store"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch fresh snapshots for all collections",
	Long: `Fetch the first page of every collection and save the snapshots
locally. With a collections list in the config, only those are synced.`,
	Run: runSync,
}

func runSync(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	var synced []string
	if len(c.Config.Collections) == 0 {
		infos, err := c.Engine.SyncAll(ctx)
		if err != nil {
			exitAPIError(err)
		}
		for _, info := range infos {
			synced = append(synced, info.Name)
		}
	} else {
		for _, name := range c.Config.Collections {
			req := models.PageRequest{Page: 1, PageSize: c.Config.PageSize}
			if err := c.Engine.FetchPage(ctx, name, req); err != nil {
				exitAPIError(err)
			}
			synced = append(synced, name)
		}
		if err := c.Store.SetValue(store.KeyLastSync, time.Now().Format(time.RFC3339)); err != nil {
			exitError("failed to record sync time: %v", err)
		}
	}

	if len(synced) == 0 {
		fmt.Println("No collections on the remote")
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("COLLECTION", "ITEMS", "TOTAL")
	for _, name := range synced {
		view, ok := c.Engine.View(name)
		if !ok {
			continue
		}
		tbl.AddRow(name,
			fmt.Sprintf("%d", len(view.Items)),
			fmt.Sprintf("%d", view.Pagination.TotalItems))
	}
	fmt.Fprintln(color.Output, tbl)

	color.New(color.FgGreen).Printf("Synced %d collections\n", len(synced))
}
