// Command bufrcodec is the CLI front end for the BUFR codec
// (component M): decode/encode/query subcommands over the bufr/query
// packages, rendering decoded trees as JSON. Grounded on
// oisee-z80-optimizer/cmd/z80opt/main.go's cobra command tree (root
// command, one subcommand per operation, local flag vars bound with
// cmd.Flags().StringVar/...).
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dsnet/bufr/bufr"
	"github.com/dsnet/bufr/config"
	"github.com/dsnet/bufr/internal/applog"
	"github.com/dsnet/bufr/query"
	"github.com/dsnet/bufr/tables"
	"github.com/dsnet/bufr/tree"
)

func main() {
	var envFile string
	var tablePaths []string
	var sqliteDSN string
	var debug bool

	rootCmd := &cobra.Command{
		Use:   "bufrcodec",
		Short: "Decode, encode, and query WMO BUFR (FM-94) messages",
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional .env configuration file")
	rootCmd.PersistentFlags().StringSliceVar(&tablePaths, "tables", nil, "directories to search for descriptor table dumps (overrides BUFR_TABLE_PATHS)")
	rootCmd.PersistentFlags().StringVar(&sqliteDSN, "sqlite", "", "SQLite DSN for table storage (overrides BUFR_SQLITE_DSN)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	loadStore := func() (tables.Store, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return nil, err
		}
		if len(tablePaths) > 0 {
			cfg.TablePaths = tablePaths
		}
		if sqliteDSN != "" {
			cfg.SQLiteDSN = sqliteDSN
		}
		if debug {
			cfg.Debug = true
			applog.SetDebug(true)
		}
		return cfg.OpenStore()
	}

	var outPath string
	decodeCmd := &cobra.Command{
		Use:   "decode <file.bufr>",
		Short: "Decode a BUFR message and print its tree as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			buf, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			msg, err := bufr.Decode(store, buf)
			if err != nil {
				return err
			}
			return writeJSON(outPath, msg)
		},
	}
	decodeCmd.Flags().StringVarP(&outPath, "out", "o", "", "write JSON to this file instead of stdout")
	rootCmd.AddCommand(decodeCmd)

	encodeCmd := &cobra.Command{
		Use:   "encode <file.json>",
		Short: "Encode a JSON-rendered tree back to a BUFR message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var msg tree.Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				return fmt.Errorf("bufrcodec: parsing tree JSON: %w", err)
			}
			buf, err := bufr.Encode(store, &msg)
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err := os.Stdout.Write(buf)
				return err
			}
			return os.WriteFile(outPath, buf, 0o644)
		},
	}
	encodeCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the encoded message to this file instead of stdout")
	rootCmd.AddCommand(encodeCmd)

	var filterExpr string
	queryCmd := &cobra.Command{
		Use:   "query <file.bufr> <path-expr>",
		Short: "Decode a message and evaluate a path query against its tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			buf, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			msg, err := bufr.Decode(store, buf)
			if err != nil {
				return err
			}
			path, err := query.ParsePath(args[1])
			if err != nil {
				return err
			}
			nodes := path.Eval(msg.Root.Children)
			if filterExpr != "" {
				f, err := query.CompileFilter(filterExpr)
				if err != nil {
					return err
				}
				nodes, err = f.Filter(nodes)
				if err != nil {
					return err
				}
			}
			return writeJSON(outPath, nodes)
		},
	}
	queryCmd.Flags().StringVarP(&outPath, "out", "o", "", "write JSON to this file instead of stdout")
	queryCmd.Flags().StringVar(&filterExpr, "filter", "", "expr-lang predicate to further filter matched nodes")
	rootCmd.AddCommand(queryCmd)

	tablesCmd := &cobra.Command{
		Use:   "tables",
		Short: "Inspect the configured descriptor table store",
	}
	tablesLoadCmd := &cobra.Command{
		Use:   "load",
		Short: "Load the configured table store and report what versions it carries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadStore()
			if err != nil {
				return err
			}
			mem, ok := store.(*tables.MemStore)
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "table store loaded (non-inspectable backend)")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d table version(s)\n", mem.VersionCount())
			return nil
		},
	}
	tablesCmd.AddCommand(tablesLoadCmd)
	rootCmd.AddCommand(tablesCmd)

	if err := rootCmd.Execute(); err != nil {
		applog.Errorf("%v", err)
		os.Exit(1)
	}
}

func writeJSON(outPath string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if outPath == "" {
		_, err := os.Stdout.Write(b)
		return err
	}
	return os.WriteFile(outPath, b, 0o644)
}
