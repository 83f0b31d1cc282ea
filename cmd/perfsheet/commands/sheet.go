package commands

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/CoePress/coesco-web/internal/autofill"
	"github.com/CoePress/coesco-web/internal/logging"
	"github.com/CoePress/coesco-web/internal/sheet"
	"github.com/spf13/cobra"
)

// outputFormat resolves --format, falling back to the extension of --out.
func outputFormat(format, out string) (sheet.Format, error) {
	if format != "" {
		return sheet.FormatOf("x." + format)
	}
	if out == "" || out == "-" {
		return sheet.CSV, nil
	}
	return sheet.FormatOf(out)
}

func newImportCommand(a *app) *cobra.Command {
	var (
		out    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "import <sheet>",
		Short: "Autofill every row of an XLSX or CSV sheet",
		Long: `The first row of the sheet names a dotted document path per column, e.g.
material.materialThickness. Every following row is filled on its own. Results
are written as JSON, or as a sheet when --format or --out names one.`,
		Example: `  perfsheet import quotes.xlsx --out results.xlsx
  perfsheet import quotes.csv --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := sheet.FormatOf(args[0])
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			docs, err := sheet.Read(in, bytes.NewReader(data))
			if err != nil {
				return err
			}
			engine := autofill.New(a.env, autofill.WithLogger(logging.Component(a.log, "autofill")))
			res, err := engine.RunBatch(cmd.Context(), docs)
			if err != nil {
				return err
			}
			a.log.Info().Str("sheet", args[0]).Int("rows", len(docs)).Msg("sheet imported")

			w, closeOut, err := createOutput(cmd, out)
			if err != nil {
				return err
			}
			defer closeOut()
			if format == "json" || (format == "" && (out == "" || out == "-")) {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(autofill.BatchResult{Count: len(res), Results: res})
			}
			f, err := outputFormat(format, out)
			if err != nil {
				return err
			}
			if err := sheet.Write(f, w, sheet.Results(res)); err != nil {
				return err
			}
			return closeOut()
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&format, "format", "", "output format: json, xlsx or csv")

	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	var (
		out    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export [ref...]",
		Short: "Write saved configurations to an XLSX or CSV sheet",
		Long: `Flatten saved documents into one row each, with a column per dotted path.
Without references every saved configuration is exported.`,
		Example: `  perfsheet export --out configs.xlsx
  perfsheet export Q-1001 Q-1002 --format csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := outputFormat(format, out)
			if err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			refs := args
			if len(refs) == 0 {
				recs, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, r := range recs {
					refs = append(refs, r.Ref)
				}
			}

			docs := make([]autofill.Document, 0, len(refs))
			for _, ref := range refs {
				rec, err := store.Get(cmd.Context(), ref)
				if err != nil {
					return fmt.Errorf("%s: %w", ref, err)
				}
				var d autofill.Document
				if err := json.Unmarshal(rec.Document, &d); err != nil {
					return fmt.Errorf("%s: %w", ref, err)
				}
				if d == nil {
					d = autofill.Document{}
				}
				d.Set("ref", rec.Ref)
				docs = append(docs, d)
			}

			w, closeOut, err := createOutput(cmd, out)
			if err != nil {
				return err
			}
			defer closeOut()
			if err := sheet.Write(f, w, docs); err != nil {
				return err
			}
			return closeOut()
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&format, "format", "", "xlsx or csv (default from --out, else csv)")

	return cmd
}
