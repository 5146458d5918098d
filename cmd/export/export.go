package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/dashboard"
	"github.com/ecovision/mantaview/internal/dataset"
	"github.com/ecovision/mantaview/internal/exportsink"
	"github.com/ecovision/mantaview/internal/filter"
)

type options struct {
	years      []string
	sexes      []string
	ageClasses []string
	out        string
	archive    bool
}

// Command creates the command that writes the filtered encounter view as CSV.
func Command(settings *conf.Settings) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export filtered encounters as CSV",
		Long: "Write the encounters matching the year, sex and age class filters as CSV. " +
			"Filters left unset select every observed value.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.years, "year", nil, "Year(s) to include")
	cmd.Flags().StringSliceVar(&opts.sexes, "sex", nil, "Sex values to include")
	cmd.Flags().StringSliceVar(&opts.ageClasses, "age-class", nil, "Age classes to include")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "-", "Output file, - for stdout")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "Store the export in the configured export sink instead")

	return cmd
}

func run(cmd *cobra.Command, settings *conf.Settings, opts *options) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := dataset.NewStore(settings.Dataset.Path).Load(ctx)
	if err != nil {
		return err
	}

	sel := filter.DefaultSelection(c.View(), filter.DashboardFacets...)
	flagged := map[string]struct {
		facet  filter.Facet
		values []string
	}{
		"year":      {filter.FacetYear, opts.years},
		"sex":       {filter.FacetSex, opts.sexes},
		"age-class": {filter.FacetAgeClass, opts.ageClasses},
	}
	for name, f := range flagged {
		if cmd.Flags().Changed(name) {
			sel = sel.With(f.facet, f.values...)
		}
	}

	view := dashboard.Filtered(c, dashboard.Query{Selection: sel})

	if opts.archive {
		sink, err := exportsink.New(ctx, &settings.Export)
		if err != nil {
			return err
		}
		loc, err := exportsink.Archive(ctx, sink, view, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Archived %d records to %s\n", view.Len(), loc.URI)
		return nil
	}

	var w io.Writer = cmd.OutOrStdout()
	if opts.out != "-" {
		f, err := os.Create(opts.out)
		if err != nil {
			return fmt.Errorf("error creating %s: %w", opts.out, err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if err := dataset.WriteCSV(w, view); err != nil {
		return err
	}
	if opts.out != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d of %d records to %s\n", view.Len(), c.Len(), opts.out)
	}
	return nil
}
