// Package commands implements the perfsheet command line.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/CoePress/coesco-web/internal/calc"
	"github.com/CoePress/coesco-web/internal/config"
	"github.com/CoePress/coesco-web/internal/logging"
	"github.com/CoePress/coesco-web/internal/lookup"
	"github.com/CoePress/coesco-web/internal/repo"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// errReported marks a failure whose details were already written to stdout.
var errReported = errors.New("failed")

// app is the state shared by every command.
type app struct {
	settings config.Settings
	log      zerolog.Logger
	env      calc.Env

	logLevel     string
	engineConfig string
	store        string
	sqlitePath   string
}

// Execute runs the root command
func Execute(ctx context.Context, version string) error {
	root := newRootCommand(version)
	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return err
}

func newRootCommand(version string) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "perfsheet",
		Short: "Fill and check coil processing line performance sheets",
		Long: `perfsheet sizes the reel, straightener, feed and shear of a coil processing line.

Documents are nested JSON. The autofill command answers what the document leaves
open by searching each subsystem for the first configuration whose checks pass.
Logs go to stderr; stdout carries only the result.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.setup(cmd) },
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	root.PersistentFlags().StringVar(&a.engineConfig, "engine-config", "", "YAML overlay for the engine configuration (overrides ENGINE_CONFIG)")
	root.PersistentFlags().StringVar(&a.store, "store", "", "configuration store: sqlite or postgres (overrides STORE)")
	root.PersistentFlags().StringVar(&a.sqlitePath, "sqlite-path", "", "SQLite database file (overrides SQLITE_PATH)")

	root.AddCommand(newAutofillCommand(a))
	root.AddCommand(newCalcCommand(a))
	root.AddCommand(newLookupCommand(a))
	root.AddCommand(newConfigCommand(a))
	root.AddCommand(newImportCommand(a))
	root.AddCommand(newExportCommand(a))
	root.AddCommand(newReportCommand(a))
	root.AddCommand(newHashKeyCommand())

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	s, err := config.FromEnv()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		s.LogLevel = a.logLevel
	}
	if a.engineConfig != "" {
		s.EngineConfig = a.engineConfig
	}
	if a.store != "" {
		s.Store = a.store
	}
	if a.sqlitePath != "" {
		s.SQLitePath = a.sqlitePath
	}
	a.settings = s
	a.log = logging.New(logging.Options{Level: s.LogLevel, Format: "console", Output: cmd.ErrOrStderr()})

	cfg, err := config.LoadEngine(s.EngineConfig)
	if err != nil {
		return err
	}
	tables, err := lookup.Default()
	if err != nil {
		return err
	}
	a.env = calc.Env{Tables: tables, Config: cfg}
	return nil
}

func (a *app) openStore(ctx context.Context) (*repo.SQLRepository, error) {
	return repo.Open(ctx, a.settings.Store, a.settings.DatabaseURL, a.settings.SQLitePath)
}

// readInput reads the named file, or stdin for "" and "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// createOutput opens the named file, or stdout for "" and "-".
func createOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
