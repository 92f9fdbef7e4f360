package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	databaseURL string
	dateOrder   string
	headerMap   string
}

func newRootCmd() *cobra.Command {
	var opts rootOptions
	cmd := &cobra.Command{
		Use:           "project-import",
		Short:         "Preview, check and import project sheets (XLSX or CSV)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "Postgres connection string (default: DB_* environment)")
	cmd.PersistentFlags().StringVar(&opts.dateOrder, "date-order", "", "Order for ambiguous numeric dates: mdy|dmy (default: IMPORT_DATE_ORDER)")
	cmd.PersistentFlags().StringVar(&opts.headerMap, "header-map", "", "YAML file with extra header variants (default: IMPORT_HEADER_MAP_PATH)")

	cmd.AddCommand(newPreviewCmd(&opts))
	cmd.AddCommand(newCheckCmd(&opts))
	cmd.AddCommand(newImportCmd(&opts))
	cmd.AddCommand(newTemplateCmd())
	return cmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
