package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List collections on the content API",
	Run:   runCollections,
}

func runCollections(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	infos, err := c.Engine.Collections(ctx)
	if err != nil {
		exitAPIError(err)
	}

	if len(infos) == 0 {
		fmt.Println("No collections")
		return
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("COLLECTION", "ITEMS")
	for _, info := range infos {
		tbl.AddRow(info.Name, info.Total)
	}
	fmt.Fprintln(color.Output, tbl)
}
