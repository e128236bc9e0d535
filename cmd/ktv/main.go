// Command ktv mounts a knowledge tree and presents it through the browser
// views, a terminal console, or both.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/kraitsura/ktree_viewer/pkg/config"
	"github.com/kraitsura/ktree_viewer/pkg/loader"
	"github.com/kraitsura/ktree_viewer/pkg/session"
)

var version = "dev"

// annotationNoConfig marks commands that run before a config file exists.
const annotationNoConfig = "ktv/no-config"

// app carries the state every subcommand shares once the root command has
// loaded the configuration.
type app struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger *log.Logger
	stderr io.Writer
}

func main() {
	a := &app{stderr: os.Stderr}
	if err := newRootCmd(a).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ktv",
		Short: "Present knowledge trees in linked 2D and 3D views",
		Long: `ktv mounts a knowledge tree (JSON or YAML) and keeps a single focus
shared by a 2D diagram, a 3D scene, and a terminal console.

Examples:
  ktv serve physics.yaml          # browser views with live reload
  ktv serve physics.yaml --console
  ktv tui physics.yaml            # terminal console only
  ktv order physics.yaml --order dfs
  ktv export physics.yaml -o out --format svg,png`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if cmd.Annotations[annotationNoConfig] == "" {
				loaded, err := config.Load(a.configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if a.logLevel != "" {
				cfg.Log.Level = a.logLevel
			}
			logger, err := cfg.Log.NewLogger(a.stderr)
			if err != nil {
				return fmt.Errorf("log level: %w", err)
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(
		newServeCmd(a),
		newTuiCmd(a),
		newOrderCmd(a),
		newExportCmd(a),
		newJournalCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// openSession loads the tree file and mounts it with the configured options.
func (a *app) openSession(path string) (*session.Session, error) {
	doc, err := loader.LoadDocument(path)
	if err != nil {
		return nil, err
	}
	return session.New(doc, a.cfg.SessionOptions(), a.logger)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ktv version %s\n", version)
		},
	}
}
