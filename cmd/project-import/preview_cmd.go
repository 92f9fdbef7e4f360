package main

import (
	"github.com/spf13/cobra"
)

func newPreviewCmd(root *rootOptions) *cobra.Command {
	var (
		file string
		full bool
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Map a sheet onto canonical rows and report corrections (no database access)",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readSheet(file)
			if err != nil {
				return err
			}
			s, err := newSession(cmd.Context(), root, false)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.service.Preview(s.context(cmd.Context()), table)
			if err != nil {
				return classify(err)
			}
			if !full {
				res.FullData = nil
			}
			return writeJSONLine(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Sheet to read: .xlsx, .xlsm or .csv (required)")
	cmd.Flags().BoolVar(&full, "full", false, "Include every mapped row in the output")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
