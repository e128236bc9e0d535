package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/kraitsura/ktree_viewer/pkg/journal"
	"github.com/kraitsura/ktree_viewer/pkg/model"
)

func newJournalCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect recorded presentation sessions",
	}
	cmd.AddCommand(newJournalListCmd(a), newJournalShowCmd(a))
	return cmd
}

func (a *app) openJournal() (*journal.Journal, error) {
	return journal.Open(a.cfg.Journal.Path, a.cfg.Journal.Driver)
}

func newJournalListCmd(a *app) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := a.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			sessions, err := j.Sessions(limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sessions)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions recorded yet.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTREE\tORDER\tSTARTED\tVISITED\tCHANGES")
			for _, s := range sessions {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d/%d\t%d\n",
					s.ID, s.TreeName, s.Order, s.StartedAt.Local().Format(time.DateTime),
					s.NodesVisited, s.TraversalSize, s.FocusChanges)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum sessions to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newJournalShowCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show [session-id]",
		Short: "Show the focus events of a session",
		Long: `Show the focus events of a session. Without an id an interactive picker
lists recent sessions.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := a.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			var id int64
			if len(args) == 1 {
				id, err = strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid session id %q", args[0])
				}
			} else {
				if err := requireTerminal(); err != nil {
					return errors.New("session id required when not running in a terminal")
				}
				id, err = pickSession(j)
				if err != nil {
					return err
				}
			}

			s, err := j.GetSession(id)
			if err != nil {
				return err
			}
			events, err := j.Events(id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Session *model.PresentationSession `json:"session"`
					Events  []model.FocusEvent         `json:"events"`
				}{s, events})
			}

			fmt.Fprintf(out, "Session %d: %s (%s)\n", s.ID, s.TreeName, s.Order)
			fmt.Fprintf(out, "Visited %d of %d nodes, %d focus changes\n\n", s.NodesVisited, s.TraversalSize, s.FocusChanges)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, ev := range events {
				label := ev.Label
				if ev.Cleared {
					label = "(cleared)"
				}
				step := "-"
				if ev.Index >= 0 {
					step = strconv.Itoa(ev.Index + 1)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ev.CreatedAt.Local().Format(time.TimeOnly), step, ev.Source, label)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func pickSession(j *journal.Journal) (int64, error) {
	sessions, err := j.Sessions(50)
	if err != nil {
		return 0, err
	}
	if len(sessions) == 0 {
		return 0, errors.New("no sessions recorded yet")
	}
	options := make([]huh.Option[int64], len(sessions))
	for i, s := range sessions {
		label := fmt.Sprintf("#%d %s (%s, %s)", s.ID, s.TreeName, s.Order, s.StartedAt.Local().Format(time.DateTime))
		options[i] = huh.NewOption(label, s.ID)
	}

	var id int64
	err = huh.NewSelect[int64]().
		Title("Pick a session").
		Options(options...).
		Value(&id).
		Run()
	if err != nil {
		return 0, err
	}
	return id, nil
}
