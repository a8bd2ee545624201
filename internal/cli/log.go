package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/cmc/internal/models"
	"github.com/kilupskalvis/cmc/internal/store"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the activity journal",
	Long:  `Display resolved mutations newest first: what was attempted and whether it confirmed or rolled back.`,
	Run:   runLog,
}

var (
	logCollection string
	logOneline    bool
	logLimit      int
	logPrune      int
)

func init() {
	logCmd.Flags().StringVar(&logCollection, "collection", "", "Only show entries for this collection")
	logCmd.Flags().BoolVar(&logOneline, "oneline", false, "Show each entry on a single line")
	logCmd.Flags().IntVarP(&logLimit, "n", "n", 20, "Limit the number of entries to show")
	logCmd.Flags().IntVar(&logPrune, "prune", 0, "Keep only the newest N entries and delete the rest")
}

func runLog(cmd *cobra.Command, args []string) {
	c := initContextWithMigrations()
	defer c.Close()

	if logPrune > 0 {
		deleted, err := c.Store.PruneJournal(logPrune)
		if err != nil {
			exitError("failed to prune journal: %v", err)
		}
		fmt.Printf("Pruned %d entries\n", deleted)
		return
	}

	entries, err := c.Store.ListJournal(logCollection, logLimit)
	if err != nil {
		exitError("failed to read journal: %v", err)
	}

	if len(entries) == 0 {
		fmt.Println("No activity yet")
		return
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	for _, e := range entries {
		outcome, label := green, "confirmed  "
		if e.Outcome == store.OutcomeRolledBack {
			outcome, label = red, "rolled back"
		}

		if logOneline {
			outcome.Printf("%s ", label)
			fmt.Printf("%-6s %s\n", e.Kind, models.ItemKey(e.Collection, shortID(e.ItemID)))
			continue
		}

		outcome.Printf("%s ", label)
		fmt.Printf("%s %s\n", e.Kind, models.ItemKey(e.Collection, shortID(e.ItemID)))
		fmt.Printf("Date:   %s\n", e.ResolvedAt.Format("Mon Jan 2 15:04:05 2006"))
		if e.Outcome == store.OutcomeRolledBack {
			fmt.Printf("\n    %s: %s\n", e.ErrorKind, e.ErrorMessage)
		}
		fmt.Println()
	}
}
