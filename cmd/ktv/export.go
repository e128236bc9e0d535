package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kraitsura/ktree_viewer/pkg/export"
	"github.com/kraitsura/ktree_viewer/pkg/focus"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		output  string
		formats string
		label   string
		title   string
		scale   float64
	)
	cmd := &cobra.Command{
		Use:   "export <tree-file>",
		Short: "Render the 2D diagram to SVG or PNG",
		Long: `Render the 2D diagram of a tree to image files.

Examples:
  ktv export physics.yaml -o physics              # physics.svg
  ktv export physics.yaml -o physics --format svg,png
  ktv export physics.yaml -o optics.png --focus Optics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.openSession(args[0])
			if err != nil {
				return err
			}
			defer sess.Close()

			if label != "" {
				sess.Focus().SetFocus(label, focus.Source2D)
			}
			if title == "" {
				title = sess.Name()
			}
			if output == "" {
				output = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			opts := export.Options{
				Layout: sess.Layout2D(),
				Focus:  sess.Focus().Snapshot(),
				Title:  title,
				Scale:  scale,
			}

			var paths []string
			if ext := strings.TrimPrefix(filepath.Ext(output), "."); ext != "" && !cmd.Flags().Changed("format") {
				opts.Path = output
				if err := export.SaveSnapshot(opts); err != nil {
					return err
				}
				paths = []string{output}
			} else {
				paths, err = export.SaveAll(cmd.Context(), output, splitFormats(formats), opts)
				if err != nil {
					return err
				}
			}

			for _, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path, or base name when --format is given")
	cmd.Flags().StringVar(&formats, "format", export.FormatSVG, "Comma-separated formats: svg, png")
	cmd.Flags().StringVar(&label, "focus", "", "Highlight nodes with this label")
	cmd.Flags().StringVar(&title, "title", "", "Caption (default: tree name)")
	cmd.Flags().Float64Var(&scale, "scale", 1, "PNG pixel scale")
	return cmd
}

func splitFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
