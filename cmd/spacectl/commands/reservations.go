package commands

import (
	"fmt"
	"time"

	"spacebook/pkg/model"

	"github.com/spf13/cobra"
)

const displayLayout = "2006-01-02 15:04 MST"

func newBookCommand(opts *options) *cobra.Command {
	var (
		req        model.ReservationRequest
		start, end string
	)

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book a space for a time range",
		Example: `  spacectl book --space 65a1b2c3d4e5f6a7b8c9d0e1 --owner alice \
    --event "Team sync" --start 2025-12-25T10:00:00Z --end 2025-12-25T12:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.StartTime, err = parseTime("start", start); err != nil {
				return err
			}
			if req.EndTime, err = parseTime("end", end); err != nil {
				return err
			}
			req.OwnerID = opts.ownerID

			ctx, cancel := opts.context(cmd)
			defer cancel()

			reservation, err := opts.reservations().Create(ctx, &req)
			if err != nil {
				return err
			}
			opts.out.success("Booked %s", reservation.ID)
			printReservation(opts.out, reservation)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.SpaceID, "space", "", "Space id")
	cmd.Flags().StringVar(&req.EventName, "event", "", "Event name")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Free-form notes")
	cmd.Flags().StringVar(&start, "start", "", "Start time (RFC 3339)")
	cmd.Flags().StringVar(&end, "end", "", "End time (RFC 3339)")
	for _, name := range []string{"space", "event", "start", "end"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newRescheduleCommand(opts *options) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "reschedule <reservation-id>",
		Short: "Move a reservation to a new time range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			startTime, err := parseTime("start", start)
			if err != nil {
				return err
			}
			endTime, err := parseTime("end", end)
			if err != nil {
				return err
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()

			update := &model.ReservationUpdate{StartTime: &startTime, EndTime: &endTime}
			if err := opts.reservations().Update(ctx, args[0], update); err != nil {
				return err
			}
			opts.out.success("Rescheduled %s to %s - %s", args[0],
				startTime.Format(displayLayout), endTime.Format(displayLayout))
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "New start time (RFC 3339)")
	cmd.Flags().StringVar(&end, "end", "", "New end time (RFC 3339)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newCancelCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <reservation-id>",
		Short: "Cancel a reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			if err := opts.reservations().Cancel(ctx, args[0]); err != nil {
				return err
			}
			opts.out.success("Cancelled %s", args[0])
			return nil
		},
	}
}

func newShowCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <reservation-id>",
		Short: "Show a reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			reservation, err := opts.reservations().GetByID(ctx, args[0])
			if err != nil {
				return err
			}
			printReservation(opts.out, reservation)
			return nil
		},
	}
}

func newListCommand(opts *options) *cobra.Command {
	var (
		limit  int
		offset int64
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the reservations of --owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.ownerID == "" {
				return fmt.Errorf("--owner is required")
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()

			reservations, err := opts.reservations().ListByOwner(ctx, opts.ownerID, limit, offset)
			if err != nil {
				return err
			}
			if len(reservations) == 0 {
				opts.out.muted("No reservations")
				return nil
			}
			for i := range reservations {
				printReservation(opts.out, &reservations[i])
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Page size")
	cmd.Flags().Int64Var(&offset, "offset", 0, "Page offset")
	return cmd
}

func printReservation(p printer, r *model.Reservation) {
	p.info("%s  %s  %s - %s  space=%s owner=%s",
		r.ID,
		r.EventName,
		r.StartTime.Format(displayLayout),
		r.EndTime.Format(displayLayout),
		r.SpaceID,
		r.OwnerID,
	)
}

func parseTime(flag, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be an RFC 3339 timestamp, got %q", flag, value)
	}
	return t, nil
}
