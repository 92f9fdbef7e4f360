package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kwatuha/imes-sub010/modules/projects/services"
)

type importOptions struct {
	file    string
	apply   bool
	actorID int64
}

type dryRunOutput struct {
	DryRun  bool                     `json:"dryRun"`
	Preview *services.PreviewResult  `json:"preview"`
	Mapping *services.MappingSummary `json:"mapping"`
}

type importOutput struct {
	DryRun  bool                    `json:"dryRun"`
	Summary *services.ImportSummary `json:"summary,omitempty"`
	Errors  *services.ImportError   `json:"errors,omitempty"`
}

func newImportCmd(root *rootOptions) *cobra.Command {
	var opts importOptions
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a project sheet (dry-run unless --apply)",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.apply && opts.actorID <= 0 {
				return withCode(exitUsage, fmt.Errorf("--actor is required with --apply"))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readSheet(opts.file)
			if err != nil {
				return err
			}
			s, err := newSession(cmd.Context(), root, true)
			if err != nil {
				return err
			}
			defer s.Close()
			ctx := s.context(cmd.Context())
			out := cmd.OutOrStdout()

			if !opts.apply {
				preview, err := s.service.Preview(ctx, table)
				if err != nil {
					return classify(err)
				}
				mapping, err := s.service.CheckMetadataMapping(ctx, preview.FullData)
				if err != nil {
					return classify(err)
				}
				preview.FullData = nil
				return writeJSONLine(out, dryRunOutput{DryRun: true, Preview: preview, Mapping: mapping})
			}

			_, summary, err := s.service.ImportTable(ctx, services.Actor{ID: opts.actorID}, table)
			if err != nil {
				var importErr *services.ImportError
				if errors.As(err, &importErr) && len(importErr.Errors) > 0 {
					if wErr := writeJSONLine(out, importOutput{Errors: importErr}); wErr != nil {
						return wErr
					}
				}
				return classify(err)
			}
			return writeJSONLine(out, importOutput{Summary: summary})
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "Sheet to read: .xlsx, .xlsm or .csv (required)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Write to the database (default is dry-run)")
	cmd.Flags().Int64Var(&opts.actorID, "actor", 0, "User id the import is attributed to (required with --apply)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
