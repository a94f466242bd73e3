package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newAvailabilityCommand(opts *options) *cobra.Command {
	var (
		spaceID     string
		date        string
		granularity time.Duration
		freeOnly    bool
	)

	cmd := &cobra.Command{
		Use:     "availability",
		Aliases: []string{"slots"},
		Short:   "Print the slot grid of a space for one day",
		Example: "  spacectl availability --space 65a1b2c3d4e5f6a7b8c9d0e1 --date 2025-12-25 --granularity 30m",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := time.Parse(time.DateOnly, date)
			if err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD, got %q", date)
			}
			if granularity < 0 || granularity%time.Minute != 0 {
				return fmt.Errorf("--granularity must be a whole number of minutes, got %s", granularity)
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()

			slots, err := opts.reservations().Availability(ctx, spaceID, day, granularity)
			if err != nil {
				return err
			}

			free := 0
			for _, slot := range slots {
				label := fmt.Sprintf("%s - %s", slot.Start.Format("15:04"), slot.End.Format("15:04"))
				if slot.Available {
					free++
					green.Fprintf(opts.out.out, "%s  available\n", label)
				} else if !freeOnly {
					red.Fprintf(opts.out.out, "%s  booked\n", label)
				}
			}
			opts.out.muted("%d of %d slots available", free, len(slots))
			return nil
		},
	}

	cmd.Flags().StringVar(&spaceID, "space", "", "Space id")
	cmd.Flags().StringVar(&date, "date", "", "Day to inspect (YYYY-MM-DD)")
	cmd.Flags().DurationVar(&granularity, "granularity", 0, "Slot length, defaults to the space's slot size")
	cmd.Flags().BoolVar(&freeOnly, "free", false, "Only print available slots")
	_ = cmd.MarkFlagRequired("space")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}
