package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/cmc/internal/apierr"
	"github.com/kilupskalvis/cmc/internal/engine"
	"github.com/kilupskalvis/cmc/internal/models"
)

var listCmd = &cobra.Command{
	Use:   "list <collection>",
	Short: "List items in a collection",
	Long: `List one page of a collection. Unconfirmed operations are replayed
on top of the fetched page and marked in the first column.`,
	Args: cobra.ExactArgs(1),
	Run:  runList,
}

var (
	listPage     int
	listPageSize int
	listSearch   string
	listSort     string
	listDesc     bool
)

func init() {
	listCmd.Flags().IntVar(&listPage, "page", 1, "Page to fetch")
	listCmd.Flags().IntVar(&listPageSize, "page-size", 0, "Items per page (0 uses the configured default)")
	listCmd.Flags().StringVar(&listSearch, "search", "", "Filter items by text match")
	listCmd.Flags().StringVar(&listSort, "sort", "", "Field to sort by")
	listCmd.Flags().BoolVar(&listDesc, "desc", false, "Sort descending")
}

func runList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	collection := args[0]
	req := models.PageRequest{
		Page:      listPage,
		PageSize:  listPageSize,
		Search:    listSearch,
		SortField: listSort,
	}
	if req.PageSize <= 0 {
		req.PageSize = c.Config.PageSize
	}
	if listSort != "" {
		req.SortDir = models.SortAsc
		if listDesc {
			req.SortDir = models.SortDesc
		}
	}

	if err := c.Engine.FetchPage(ctx, collection, req); err != nil {
		view, ok := c.Engine.View(collection)
		if !ok || len(view.Items) == 0 {
			exitAPIError(err)
		}
		// A stale snapshot beats no data; say so and render it.
		var cerr *apierr.Error
		errors.As(err, &cerr)
		color.New(color.FgYellow).Fprintf(os.Stderr, "warning: %s; showing the last fetched page\n", cerr.UserMessage)
	}

	view, ok := c.Engine.View(collection)
	if !ok {
		exitError("collection %s not loaded", collection)
	}

	printItems(view)
}

// printItems renders a combined view as a table, marking rows that
// carry unconfirmed operations.
func printItems(view *engine.View) {
	if len(view.Items) == 0 {
		fmt.Println("No items")
		return
	}

	yellow := color.New(color.FgYellow)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 50
	tbl.AddRow("", "ID", "FIELDS", "FLAGS")
	for i := range view.Items {
		item := &view.Items[i]
		mark := " "
		if kind, ok := view.Pending[item.ID]; ok {
			mark = yellow.Sprint(pendingMark(kind))
		}
		tbl.AddRow(mark, shortID(item.ID), summarizeFields(item.Fields), itemFlags(item))
	}
	fmt.Fprintln(color.Output, tbl)

	fmt.Printf("\nPage %d of %d (%d items total)\n",
		view.Pagination.Page, totalPages(view.Pagination), view.Pagination.TotalItems)
	if n := len(view.Pending); n > 0 {
		yellow.Printf("%d operations pending confirmation\n", n)
	}
}

// pendingMark is the one-character glyph for a pending operation kind.
func pendingMark(kind models.OpKind) string {
	switch kind {
	case models.OpCreate:
		return "+"
	case models.OpUpdate:
		return "~"
	case models.OpDelete:
		return "-"
	}
	return "?"
}

// summarizeFields renders a field map as key=value pairs on one line.
func summarizeFields(fields models.FieldMap) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Key+"="+f.Value.String())
	}
	return strings.Join(parts, ", ")
}

// itemFlags lists an item's status flags.
func itemFlags(item *models.Item) string {
	var flags []string
	if item.Draft {
		flags = append(flags, "draft")
	}
	if item.Archived {
		flags = append(flags, "archived")
	}
	return strings.Join(flags, ", ")
}

func totalPages(p models.Pagination) int {
	if p.PageSize <= 0 {
		return 1
	}
	pages := (p.TotalItems + p.PageSize - 1) / p.PageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}
