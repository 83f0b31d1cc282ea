package commands

import (
	"encoding/json"
	"fmt"

	"github.com/CoePress/coesco-web/internal/autofill"
	"github.com/CoePress/coesco-web/internal/logging"
	"github.com/spf13/cobra"
)

func newAutofillCommand(a *app) *cobra.Command {
	var (
		file     string
		sections []string
		save     string
	)

	cmd := &cobra.Command{
		Use:   "autofill",
		Short: "Fill the open parts of a performance sheet document",
		Long: `Read a JSON document from --file or stdin, fill every section it has
enough data for and print the response envelope. The command exits 1 when the
document could not be processed at all.`,
		Example: `  # Fill a document
  perfsheet autofill --file quote.json

  # Only size the reel
  perfsheet autofill --sections tddbhd,reel-drive < quote.json

  # Fill and store the result under a reference
  perfsheet autofill --file quote.json --save Q-1001`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []autofill.Option{autofill.WithLogger(logging.Component(a.log, "autofill"))}
			if len(sections) > 0 {
				only, err := autofill.Only(sections...)
				if err != nil {
					return err
				}
				opts = append(opts, autofill.WithSections(only...))
			}
			engine := autofill.New(a.env, opts...)

			fail := func(err error) error {
				if perr := printJSON(cmd, autofill.Failed(err)); perr != nil {
					return perr
				}
				return errReported
			}

			data, err := readInput(cmd, file)
			if err != nil {
				return fail(err)
			}
			var doc autofill.Document
			if err := json.Unmarshal(data, &doc); err != nil {
				return fail(fmt.Errorf("parse document: %w", err))
			}
			resp, err := engine.Run(cmd.Context(), doc)
			if err != nil {
				return fail(err)
			}

			if save != "" {
				store, err := a.openStore(cmd.Context())
				if err != nil {
					return err
				}
				defer store.Close()
				body, err := json.Marshal(resp.AutoFillValues)
				if err != nil {
					return err
				}
				if _, err := store.Save(cmd.Context(), save, body); err != nil {
					return err
				}
				a.log.Info().Str("ref", save).Msg("result saved")
			}
			return printJSON(cmd, resp)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "input document (default stdin)")
	cmd.Flags().StringSliceVar(&sections, "sections", nil, "only run these sections")
	cmd.Flags().StringVar(&save, "save", "", "store the filled document under this reference")

	return cmd
}
