package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/CoePress/coesco-web/internal/auth"
	"github.com/CoePress/coesco-web/internal/calc/report"
	"github.com/spf13/cobra"
)

func newReportCommand(a *app) *cobra.Command {
	var (
		file string
		out  string
		in   report.Input
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render an autofill response as a PDF",
		Example: `  perfsheet autofill -f quote.json | perfsheet report --project Q-1001 --out Q-1001.pdf`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(data, &in.Result); err != nil {
				return fmt.Errorf("parse autofill response: %w", err)
			}
			if in.Result.AutoFillValues == nil {
				return errors.New("input has no autoFillValues")
			}
			w, closeOut, err := createOutput(cmd, out)
			if err != nil {
				return err
			}
			if err := report.Render(w, in); err != nil {
				closeOut()
				return err
			}
			a.log.Info().Str("out", out).Msg("report written")
			return closeOut()
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "autofill response JSON (default stdin)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "PDF file to write")
	cmd.Flags().StringVar(&in.Title, "title", "", "report title")
	cmd.Flags().StringVar(&in.Project, "project", "", "project or quote reference")
	cmd.Flags().StringVar(&in.Author, "author", "", "author")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "free text printed at the end")

	return cmd
}

func newHashKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hashkey <api-key>",
		Short: "Print the bcrypt hash to configure as API_KEY_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := auth.HashKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}
