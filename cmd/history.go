package main

import (
	"errors"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/webqa/internal/app"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [query]",
	Short: "Look up previously researched pages similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		if a.Memory == nil {
			return errors.New("page memory is not configured: set database.url or DATABASE_URL")
		}

		pages, err := a.Memory.Recall(ctx, strings.Join(args, " "), historyLimit)
		if err != nil {
			return err
		}
		if len(pages) == 0 {
			color.Yellow("No remembered pages.")
			return nil
		}

		for i, p := range pages {
			color.Cyan("%d. %s", i+1, p.Title)
			color.New(color.Faint).Println("   " + p.URL)
			if p.Summary != "" {
				color.White("   %s", p.Summary)
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 5, "Number of pages to show")
}
