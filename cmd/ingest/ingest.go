package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ecovision/mantaview/internal/app"
	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/dataset"
)

// Command creates the command that appends a CSV file to the encounter store.
func Command(settings *conf.Settings) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "ingest FILE",
		Short: "Append encounters from a CSV file",
		Long: "Append the rows of FILE to the encounter store, aligning columns by name. " +
			"Appends cannot be undone; use --dry-run to preview first.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			services, err := app.New(ctx, settings)
			if err != nil {
				return err
			}
			defer services.Close()

			if dryRun {
				return preview(cmd, services, args[0], settings.Dashboard.PreviewRows)
			}
			return appendFile(ctx, cmd, services, args[0])
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show a preview and missing columns without writing")

	return cmd
}

func preview(cmd *cobra.Command, services *app.App, path string, rows int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	p, err := services.Gateway.Preview(f, rows)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(p.Header, "\t"))
	for _, row := range p.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(p.MissingColumns) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "\nMissing columns: %s\n", strings.Join(p.MissingColumns, ", "))
	}
	return nil
}

func appendFile(ctx context.Context, cmd *cobra.Command, services *app.App, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	upload, err := dataset.Parse(f)
	if err != nil {
		return err
	}

	res, err := services.Gateway.AppendCollection(ctx, upload)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Appended %d rows to %s\n", res.Rows, services.Store.Path())
	if len(res.IgnoredColumns) > 0 {
		fmt.Fprintf(out, "Ignored columns: %s\n", strings.Join(res.IgnoredColumns, ", "))
	}
	if len(res.MissingColumns) > 0 {
		fmt.Fprintf(out, "Columns written empty: %s\n", strings.Join(res.MissingColumns, ", "))
	}
	return nil
}
