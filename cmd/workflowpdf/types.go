package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-workflow-export/locale"
	"github.com/goliatone/go-workflow-export/strategy"
)

var typesLang string

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the strategy types",
	RunE: func(cmd *cobra.Command, args []string) error {
		lang := locale.Parse(typesLang)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
		for _, t := range strategy.Types() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.DisplayName(lang), t.Description.In(lang))
		}
		return w.Flush()
	},
}

func init() {
	typesCmd.Flags().StringVar(&typesLang, "lang", "en", "language of names and descriptions")
	rootCmd.AddCommand(typesCmd)
}
