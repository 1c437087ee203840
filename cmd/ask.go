package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xhad/webqa/internal/app"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := ask(ctx, a, strings.Join(args, " "))
		if err != nil {
			return err
		}

		if askJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		fmt.Println(res.Answer)
		printSources(res)
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the full result as JSON")
}
