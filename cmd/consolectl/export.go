package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:       "export <tickets|escalations>",
		Short:     "Write a spreadsheet export of tickets or escalations",
		Long:      `Writes an .xlsx workbook to --out. Escalation exports never include verification codes.`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"tickets", "escalations"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				outPath = args[0] + ".xlsx"
			}
			return runExport(cmd.Context(), cmd.OutOrStdout(), args[0], outPath)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <kind>.xlsx)")
	return cmd
}

func runExport(ctx context.Context, out io.Writer, kind, outPath string) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	var data []byte
	switch kind {
	case "tickets":
		data, err = rt.container.Exporter.WriteTickets(ctx)
	case "escalations":
		data, err = rt.container.Exporter.WriteEscalations(ctx)
	default:
		return fmt.Errorf("export: unknown kind %q", kind)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", kind, err)
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("export: write %s: %w", outPath, err)
	}
	fmt.Fprintf(out, "Wrote %s (%d bytes)\n", outPath, len(data))
	return nil
}
