// Command luma is the Lua language-intelligence tool: it parses documents,
// answers completion queries, scans workspaces, and serves the engine over
// stdio JSON-RPC.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/termfx/luma/core"
	"github.com/termfx/luma/db"
	"github.com/termfx/luma/engine"
	"github.com/termfx/luma/internal/config"
	"github.com/termfx/luma/internal/util"
	"github.com/termfx/luma/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "luma",
		Short:         "Lua language intelligence: parse, complete, scan, serve",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Flag names are case-insensitive.
	root.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ToLower(name))
	})

	root.AddCommand(newParseCmd())
	root.AddCommand(newCompleteCmd())
	root.AddCommand(newScanCmd())
	root.AddCommand(newServeCmd())

	return root
}

// openStore connects the configured database and begins a session. It
// returns nil when persistence is not requested.
func openStore(persist bool) (*db.Store, error) {
	if !persist {
		return nil, nil
	}

	cfg := config.LoadConfig()
	gormDB, err := db.Connect(cfg.DBPath, cfg.DBDebug)
	if err != nil {
		return nil, err
	}

	return db.NewStore(gormDB, map[string]string{"client": "luma-cli"})
}

func newParseCmd() *cobra.Command {
	var (
		jsonOutput bool
		persist    bool
		showDiff   bool
	)

	cmd := &cobra.Command{
		Use:   "parse <file>...",
		Short: "Parse documents and report diagnostics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(persist || showDiff)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			session := engine.NewSession()
			failed := false

			for _, path := range args {
				text, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}

				if store != nil && showDiff {
					if previous, ok := store.PreviousText(path); ok && previous != string(text) {
						fmt.Fprint(cmd.OutOrStdout(), util.UnifiedDiff(previous, string(text), path, 3, false))
					}
				}

				diagnostics := session.ParseDocument(path, string(text))
				if store != nil {
					if err := store.RecordDocument(path, string(text), diagnostics); err != nil {
						return err
					}
				}

				if jsonOutput {
					payload, err := json.Marshal(map[string]any{
						"uri":         path,
						"diagnostics": diagnostics,
					})
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(payload))
				} else {
					if len(diagnostics) == 0 {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
					}
					for _, d := range diagnostics {
						failed = true
						fmt.Fprintf(cmd.OutOrStdout(), "%s:%d:%d: %s\n", path, d.Line, d.Col, d.Message)
					}
				}
			}

			if failed {
				return fmt.Errorf("parsing reported errors")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output results in JSON format.")
	cmd.Flags().BoolVar(&persist, "db", false, "Record results in the configured database.")
	cmd.Flags().BoolVarP(&showDiff, "diff", "D", false, "Show a unified diff against the previously recorded text.")

	return cmd
}

func newCompleteCmd() *cobra.Command {
	var (
		line       int
		col        int
		jsonOutput bool
		extra      []string
	)

	cmd := &cobra.Command{
		Use:   "complete <file>",
		Short: "Complete at a position in a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session := engine.NewSession()

			// Companion documents contribute shapes before the query runs.
			for _, path := range extra {
				text, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				session.ParseDocument(path, string(text))
			}

			path := args[0]
			text, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			session.ParseDocument(path, string(text))

			items := session.Complete(path, line, col)

			if jsonOutput {
				payload, err := json.Marshal(items)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(payload))
				return nil
			}

			for _, item := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", item.Label, item.Kind)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&line, "line", "l", 0, "Zero-indexed cursor line.")
	cmd.Flags().IntVarP(&col, "col", "c", 0, "Zero-indexed cursor column.")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output results in JSON format.")
	cmd.Flags().StringSliceVarP(&extra, "with", "w", nil, "Companion documents to parse first.")

	return cmd
}

func newScanCmd() *cobra.Command {
	var (
		include    []string
		exclude    []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Parse every Lua file under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()

			walker := core.NewFileWalker()
			results, err := walker.Walk(context.Background(), core.FileScope{
				Path:     args[0],
				Include:  include,
				Exclude:  exclude,
				MaxBytes: cfg.MaxFileBytes,
			})
			if err != nil {
				return err
			}

			session := engine.NewSession()
			files, errors := 0, 0

			for result := range results {
				if result.Error != nil {
					continue
				}

				text, err := os.ReadFile(result.Path)
				if err != nil {
					continue
				}

				diagnostics := session.ParseDocument(result.Path, string(text))
				files++
				errors += len(diagnostics)

				if jsonOutput {
					payload, err := json.Marshal(map[string]any{
						"uri":         result.Path,
						"diagnostics": diagnostics,
					})
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(payload))
					continue
				}

				for _, d := range diagnostics {
					fmt.Fprintf(cmd.OutOrStdout(), "%s:%d:%d: %s\n", result.Path, d.Line, d.Col, d.Message)
				}
			}

			if !jsonOutput {
				fmt.Fprintf(cmd.OutOrStdout(), "%d files parsed, %d diagnostics\n", files, errors)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&include, "include", nil, "Include file patterns (glob).")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Exclude file patterns (glob).")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output results in JSON format.")

	return cmd
}

func newServeCmd() *cobra.Command {
	var persist bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over stdio JSON-RPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(persist)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			srv := server.New(store)
			return srv.Serve(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&persist, "db", false, "Record activity in the configured database.")

	return cmd
}
