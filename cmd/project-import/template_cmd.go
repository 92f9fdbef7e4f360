package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kwatuha/imes-sub010/modules/projects/infrastructure/sheetfile"
)

func newTemplateCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the blank import template workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(output) == "" || output == "-" {
				return sheetfile.WriteTemplate(cmd.OutOrStdout())
			}
			f, err := os.Create(output)
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("create %s: %w", output, err))
			}
			if err := sheetfile.WriteTemplate(f); err != nil {
				_ = f.Close()
				return withCode(exitDBWrite, fmt.Errorf("write template: %w", err))
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVar(&output, "output", "project_import_template.xlsx", "Destination file, or - for stdout")
	return cmd
}
