package tides

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ecovision/mantaview/internal/conf"
	"github.com/ecovision/mantaview/internal/tide"
)

// Command creates the command that prints today's tide predictions.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "tides",
		Short: "Print today's tide predictions for the configured stations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			client, err := tide.NewClientFromSettings(settings)
			if err != nil {
				return err
			}
			defer client.Close()

			loc, _ := settings.Tides.LoadLocation()
			lookup := tide.NewLookup(client, tide.StationsFromSettings(&settings.Tides), tide.WithSunEvents(loc))

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, res := range lookup.FetchAll(ctx, time.Now()) {
				fmt.Fprintf(w, "%s (%s)\t%s\n", res.Station.Name, res.Station.ID, res.Status)
				switch res.Status {
				case tide.StatusOK:
					if res.Sun != nil {
						fmt.Fprintf(w, "  sunrise %s\tsunset %s\n",
							res.Sun.Sunrise.Format("15:04"), res.Sun.Sunset.Format("15:04"))
					}
					for _, p := range res.Predictions {
						fmt.Fprintf(w, "  %s\t%.3f\n", p.Time.Format("2006-01-02 15:04"), p.Value)
					}
				case tide.StatusNoData:
					fmt.Fprintln(w, "  No tide predictions found.")
				default:
					fmt.Fprintf(w, "  Failed to fetch data: %s\n", res.Error)
				}
			}
			return w.Flush()
		},
	}
}
