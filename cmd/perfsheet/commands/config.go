package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage saved performance sheet configurations",
		Long: `Save, fetch, list and delete documents stored under a caller reference.
The store is selected by STORE (sqlite or postgres) or --store.`,
	}

	var file string
	save := &cobra.Command{
		Use:   "save <ref>",
		Short: "Store a JSON document under a reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			rec, err := store.Save(cmd.Context(), args[0], json.RawMessage(data))
			if err != nil {
				return err
			}
			a.log.Info().Str("ref", rec.Ref).Str("id", rec.ID).Msg("configuration saved")
			return printJSON(cmd, rec)
		},
	}
	save.Flags().StringVarP(&file, "file", "f", "", "document to store (default stdin)")

	get := &cobra.Command{
		Use:   "get <ref>",
		Short: "Print the document stored under a reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			rec, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, rec.Document)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			recs, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			type entry struct {
				Ref       string `json:"ref"`
				ID        string `json:"id"`
				UpdatedAt string `json:"updatedAt"`
			}
			out := make([]entry, 0, len(recs))
			for _, r := range recs {
				out = append(out, entry{Ref: r.Ref, ID: r.ID, UpdatedAt: r.UpdatedAt.Format("2006-01-02T15:04:05Z07:00")})
			}
			return printJSON(cmd, out)
		},
	}

	del := &cobra.Command{
		Use:   "delete <ref>",
		Short: "Delete the document stored under a reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.log.Info().Str("ref", args[0]).Msg("configuration deleted")
			return nil
		},
	}

	cmd.AddCommand(save, get, list, del)
	return cmd
}
