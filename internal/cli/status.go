package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/cmc/internal/apierr"
	"github.com/kilupskalvis/cmc/internal/content"
	"github.com/kilupskalvis/cmc/internal/models"
	"github.com/kilupskalvis/cmc/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workspace and snapshot status",
	Long:  `Show the workspace configuration, API reachability, and the freshness of each collection snapshot.`,
	Run:   runStatus,
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	fmt.Printf("Workspace: %s\n", filepath.Dir(c.Config.CMCPath()))
	fmt.Printf("Backend:   %s at %s\n", c.Config.Backend, c.Config.APIURL)
	fmt.Printf("Last sync: %s\n", lastSync(c))

	if err := pingAPI(ctx, c.API); err != nil {
		red.Println("API:       unreachable")
		fmt.Printf("           %s\n", apierr.Classify(err).UserMessage)
	} else {
		green.Println("API:       connected")
	}

	collections := c.Engine.CachedCollections()
	if len(collections) == 0 {
		fmt.Println("\nNo collection snapshots yet. Run 'cmc sync' to fetch them.")
		return
	}

	fmt.Println("\nCollection snapshots:")
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("  COLLECTION", "ITEMS", "TOTAL", "FETCHED")
	for _, name := range collections {
		view, ok := c.Engine.View(name)
		if !ok {
			continue
		}
		tbl.AddRow("  "+name,
			fmt.Sprintf("%d", len(view.Items)),
			fmt.Sprintf("%d", view.Pagination.TotalItems),
			ago(view.LastFetched))
	}
	fmt.Fprintln(color.Output, tbl)

	pending := c.Engine.Pending()
	if len(pending) == 0 {
		return
	}

	fmt.Println("\nPending operations:")
	for _, op := range pending {
		yellow.Printf("  %s %s %s\n", pendingMark(op.Kind), op.Kind,
			models.ItemKey(op.Collection, shortID(op.ItemID)))
	}
}

// pingAPI checks reachability. Backends without a dedicated ping fall
// back to listing collections.
func pingAPI(ctx context.Context, api content.API) error {
	if p, ok := api.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	_, err := api.Collections(ctx)
	return err
}

// lastSync reads the recorded full-sync time from the store.
func lastSync(c *cmdContext) string {
	raw, err := c.Store.GetValue(store.KeyLastSync)
	if err != nil || raw == "" {
		return "never"
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return "never"
	}
	return ago(t)
}

// ago formats a timestamp as a rough age for status output.
func ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
