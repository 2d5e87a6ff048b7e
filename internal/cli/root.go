// Package cli implements the repertoire command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hailam/repertoire/internal/board"
	"github.com/hailam/repertoire/internal/config"
	"github.com/hailam/repertoire/internal/logger"
	"github.com/hailam/repertoire/internal/pgnimport"
	"github.com/hailam/repertoire/internal/repertoire"
)

type rootOptions struct {
	configPath string
	dataDir    string
	inMemory   bool
	userID     string

	cfg config.Config
	log *logger.Logger
}

// NewRootCmd builds the repertoire command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "repertoire",
		Short:         "Practise an opening repertoire",
		Long:          `Builds practice views over a stored opening repertoire: lines per color, new lines, a recommended practice set and an opening roadmap.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.dataDir != "" {
				cfg.Storage.Dir = opts.dataDir
			}
			if opts.inMemory {
				cfg.Storage.InMemory = true
			}
			opts.cfg = cfg

			log, err := logger.New(cfg.Log.Mode)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			opts.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				opts.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "database directory (overrides storage.dir)")
	root.PersistentFlags().BoolVar(&opts.inMemory, "in-memory", false, "keep the database in memory")
	root.PersistentFlags().StringVarP(&opts.userID, "user", "u", "local", "user whose repertoire to use")

	root.AddCommand(
		newServeCmd(opts),
		newImportCmd(opts),
		newLinesCmd(opts),
		newRoadmapCmd(opts),
		newLineCmd(opts),
		newNextCmd(opts),
		newConfigCmd(),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	root := NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withApp opens the app for the duration of fn.
func (o *rootOptions) withApp(fn func(a *app) error) error {
	a, err := openApp(o.cfg, o.log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the repertoire HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return Serve(ctx, opts.cfg, opts.log, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var colorName string

	cmd := &cobra.Command{
		Use:   "import [file.pgn]",
		Short: "Import PGN games into the repertoire",
		Long:  `Replays every game in the PGN file and stores the moves the repertoire does not hold yet. Reads stdin when no file is given.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			color, err := board.ParseColor(colorName)
			if err != nil || color == board.NoColor {
				return fmt.Errorf("--color must be white or black")
			}

			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			return opts.withApp(func(a *app) error {
				res, err := pgnimport.Import(cmd.Context(), a.store, opts.userID, in, color)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d games: %d moves, %d new\n", res.Games, res.Parsed, len(res.Added))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&colorName, "color", "c", "white", "repertoire color the games belong to")
	return cmd
}

func newLinesCmd(opts *rootOptions) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:       "lines <white|black|new|recommended>",
		Short:     "Print a practice view as JSON",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"white", "black", "new", "recommended"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				ctx := cmd.Context()
				var groups []repertoire.PositionGroup
				var err error
				switch args[0] {
				case "white":
					groups, err = a.svc.WhiteLines(ctx, opts.userID)
				case "black":
					groups, err = a.svc.BlackLines(ctx, opts.userID)
				case "new":
					groups, err = a.svc.NewLines(ctx, opts.userID)
				case "recommended":
					if sessionID == "" {
						sessionID = uuid.NewString()
					}
					groups, err = a.svc.RecommendedLines(ctx, opts.userID, sessionID, false)
				default:
					return fmt.Errorf("unknown view %q", args[0])
				}
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), groups)
			})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id for the recommended view")
	return cmd
}

func newRoadmapCmd(opts *rootOptions) *cobra.Command {
	var colorName, modeName string

	cmd := &cobra.Command{
		Use:   "roadmap",
		Short: "Print the opening roadmap as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			color, err := board.ParseColor(colorName)
			if err != nil || color == board.NoColor {
				return fmt.Errorf("--color must be white or black")
			}
			mode, err := repertoire.ParseRoadmapMode(modeName)
			if err != nil {
				return err
			}
			return opts.withApp(func(a *app) error {
				entries, err := a.svc.Roadmap(cmd.Context(), opts.userID, color, mode)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), entries)
			})
		},
	}
	cmd.Flags().StringVarP(&colorName, "color", "c", "white", "repertoire color")
	cmd.Flags().StringVar(&modeName, "mode", "classification", "entry boundaries: classification or every-branch")
	return cmd
}

func newLineCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "line <edge-id>",
		Short: "Print one move with its prior moves and continuation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid edge id %q", args[0])
			}
			return opts.withApp(func(a *app) error {
				line, err := a.svc.Line(cmd.Context(), opts.userID, id)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), line)
			})
		},
	}
}

func newNextCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "next <edge-id>",
		Short: "Print the positions where the edge's side moves next, as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid edge id %q", args[0])
			}
			return opts.withApp(func(a *app) error {
				groups, err := a.svc.NextGroups(cmd.Context(), opts.userID, id)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), groups)
			})
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init <path>",
		Short: "Write the default configuration to path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefault(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
			return nil
		},
	})
	return cmd
}
