package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dw-outreach/outreach/backend/internal/config"
	"github.com/dw-outreach/outreach/backend/internal/util"
	"github.com/dw-outreach/outreach/backend/pkg/accessmap"
	"github.com/dw-outreach/outreach/backend/pkg/accessmap/render"
	"github.com/dw-outreach/outreach/backend/pkg/logger"
	"github.com/dw-outreach/outreach/backend/pkg/logger/console"
	"github.com/dw-outreach/outreach/backend/pkg/store"
	"github.com/dw-outreach/outreach/backend/pkg/store/connect"

	"github.com/spf13/cobra"
)

// viewFlags are shared by layout and render.
type viewFlags struct {
	clients  string
	previous int
	rings    int
	spokes   int
	width    float64
	height   float64
}

func (f *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.clients, "clients", "", "comma separated active client ids (default: all clients)")
	cmd.Flags().IntVar(&f.previous, "previous", 0, "entity count of the previous view, for the growth delta")
	cmd.Flags().IntVar(&f.rings, "rings", 0, "ring count (default from layout config)")
	cmd.Flags().IntVar(&f.spokes, "spokes", 0, "spoke count (default from layout config)")
	cmd.Flags().Float64Var(&f.width, "width", 0, "canvas width (default from layout config)")
	cmd.Flags().Float64Var(&f.height, "height", 0, "canvas height (default from layout config)")
}

func (f *viewFlags) view(cmd *cobra.Command, g accessmap.Graph) (accessmap.View, error) {
	cfg, err := config.Load()
	if err != nil {
		return accessmap.View{}, err
	}
	if err := cfg.Layout.ValidateSize(f.width, f.height); err != nil {
		return accessmap.View{}, err
	}
	active := accessmap.AllClientIDs(g)
	if cmd.Flags().Changed("clients") {
		active = util.SplitList(f.clients)
	}
	return accessmap.BuildView(g, accessmap.ViewOptions{
		ActiveClients: active,
		Canvas:        cfg.Layout.Canvas(f.rings, f.spokes, f.width, f.height),
		PreviousCount: f.previous,
	}), nil
}

func newRootCmd() *cobra.Command {
	var debug bool
	root := &cobra.Command{
		Use:          "accessmap",
		Short:        "Lay out, render and load access network graphs",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
				Debug:  debug || util.GetEnvBool("DEBUG", false),
				Output: cmd.ErrOrStderr(),
			}))
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newLayoutCmd(), newRenderCmd(), newImportCmd())
	return root
}

func newLayoutCmd() *cobra.Command {
	var flags viewFlags
	var pretty bool
	cmd := &cobra.Command{
		Use:   "layout [graph.json]",
		Short: "Compute positions, overlaps and metrics for a graph and print them as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGraph(cmd, args)
			if err != nil {
				return err
			}
			v, err := flags.view(cmd, g)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(v)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the output")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var flags viewFlags
	var opts render.Options
	var output string
	cmd := &cobra.Command{
		Use:   "render [graph.json]",
		Short: "Render the access map of a graph as SVG",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGraph(cmd, args)
			if err != nil {
				return err
			}
			v, err := flags.view(cmd, g)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return render.SVG(cmd.OutOrStdout(), v, opts)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := render.SVG(f, v, opts); err != nil {
				f.Close()
				return err
			}
			logger.Info("[Render] Wrote access map", "path", output, "entities", len(v.Entities), "unplaced", len(v.Unplaced))
			return f.Close()
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&opts.Title, "title", "Access map", "title drawn above the map")
	cmd.Flags().BoolVar(&opts.HideLabels, "hide-labels", false, "do not draw entity labels")
	cmd.Flags().BoolVar(&opts.HideLegend, "hide-legend", false, "do not draw the legend and summary")
	return cmd
}

func newImportCmd() *cobra.Command {
	var sqlitePath string
	cmd := &cobra.Command{
		Use:   "import [graph.json]",
		Short: "Load a graph into the configured database",
		Long: `Load a graph into the database named by DATABASE_URL (or its aliases),
falling back to SQLite. Ids in the file only connect edges to their
clients and entities; stored rows get fresh ids.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := readGraph(cmd, args)
			if err != nil {
				return err
			}
			dbCfg := store.DatabaseConfigFromEnv()
			if sqlitePath != "" {
				dbCfg = store.DatabaseConfig{SQLitePath: sqlitePath}
			}
			s, err := connect.Open(cmd.Context(), dbCfg)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.ImportGraph(cmd.Context(), g)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d clients, %d entities, %d edges\n",
				res.Clients, res.Entities, res.Edges)
			return err
		},
	}
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "write to this SQLite file instead of the configured database")
	return cmd
}

// readGraph decodes the graph from the file argument, or stdin when there is
// none or it is "-".
func readGraph(cmd *cobra.Command, args []string) (accessmap.Graph, error) {
	var r io.Reader = cmd.InOrStdin()
	name := "stdin"
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return accessmap.Graph{}, err
		}
		defer f.Close()
		r, name = f, args[0]
	}
	var g accessmap.Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return accessmap.Graph{}, fmt.Errorf("reading graph from %s: %w", name, err)
	}
	logger.Debug("[CLI] Read graph", "source", name,
		"clients", len(g.Clients), "entities", len(g.Entities), "edges", len(g.Edges))
	return g, nil
}
