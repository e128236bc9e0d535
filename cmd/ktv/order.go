package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kraitsura/ktree_viewer/pkg/loader"
	"github.com/kraitsura/ktree_viewer/pkg/traversal"
)

type orderEntry struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Label string `json:"label"`
	Depth int    `json:"depth"`
}

func newOrderCmd(a *app) *cobra.Command {
	var order string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "order <tree-file>",
		Short: "Print the traversal order the presenter steps through",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.applyOrder(order); err != nil {
				return err
			}
			o, err := traversal.ParseOrder(a.cfg.Order)
			if err != nil {
				return err
			}
			doc, err := loader.LoadDocument(args[0])
			if err != nil {
				return err
			}
			visits, err := traversal.Visits(doc.Root, o)
			if err != nil {
				return err
			}

			entries := make([]orderEntry, len(visits))
			for i, v := range visits {
				entries[i] = orderEntry{Index: i + 1, ID: v.Node.ID, Label: v.Node.Label, Depth: v.Depth}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			fmt.Fprintf(out, "%s (%s, %d nodes)\n", loader.Name(doc), strings.ToUpper(string(o)), len(entries))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%s%s\n", e.Index, e.ID, strings.Repeat("  ", e.Depth), e.Label)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&order, "order", "", "Traversal order: bfs or dfs (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
