package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/CoePress/coesco-web/internal/calc"
	"github.com/CoePress/coesco-web/internal/calc/engines"
	"github.com/CoePress/coesco-web/internal/lookup"
	"github.com/spf13/cobra"
)

func newCalcCommand(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "calc <section>",
		Short: "Run one subsystem engine on a typed JSON input",
		Long: fmt.Sprintf(`Run one engine without searching. Sections: %s.

An input that is physically impossible still prints its result, with the
failing checks, and exits 1.`, strings.Join(engines.Names(), ", ")),
		Example: `  perfsheet calc rfq <<< '{"average":{"length":5,"spm":30}}'`,
		Args:    cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return engines.Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			res, err := engines.Run(a.env, args[0], data)
			if err != nil {
				if errors.Is(err, calc.ErrInvalidCandidate) && res != nil {
					a.log.Warn().Err(err).Str("section", args[0]).Msg("invalid candidate")
					if perr := printJSON(cmd, res); perr != nil {
						return perr
					}
					return errReported
				}
				return err
			}
			return printJSON(cmd, res)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "input JSON (default stdin)")

	return cmd
}

func newLookupCommand(a *app) *cobra.Command {
	tables := []string{
		lookup.TableMaterials, lookup.TableReels, lookup.TableHolddownSort, lookup.TableHolddownMatrix,
		lookup.TableBrakes, lookup.TableDrives, lookup.TableLineTypes, lookup.TableMotors,
		lookup.TableStraighteners, lookup.TableLewis, lookup.TableFeeds,
	}
	sort.Strings(tables)

	return &cobra.Command{
		Use:   "lookup <table> <key>",
		Short: "Print one record of the lookup tables",
		Long: fmt.Sprintf(`Print one record of the lookup tables. Tables: %s.
Feed keys are "<table>/<model>".`, strings.Join(tables, ", ")),
		Example: `  perfsheet lookup reels CPR-040
  perfsheet lookup feeds sigma-five/CPRF-S1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.env.Tables.Resolve(args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}
}
