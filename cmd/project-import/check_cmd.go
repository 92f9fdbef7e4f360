package main

import (
	"github.com/spf13/cobra"
)

func newCheckCmd(root *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report which metadata values of a sheet match existing reference data",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readSheet(file)
			if err != nil {
				return err
			}
			s, err := newSession(cmd.Context(), root, true)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := s.context(cmd.Context())
			preview, err := s.service.Preview(ctx, table)
			if err != nil {
				return classify(err)
			}
			summary, err := s.service.CheckMetadataMapping(ctx, preview.FullData)
			if err != nil {
				return classify(err)
			}
			return writeJSONLine(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Sheet to read: .xlsx, .xlsm or .csv (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
