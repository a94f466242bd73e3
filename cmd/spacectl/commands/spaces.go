package commands

import (
	"spacebook/pkg/client"
	"spacebook/pkg/model"

	"github.com/spf13/cobra"
)

func (o *options) spaces() *client.SpaceClient {
	return client.NewSpaceClient(client.NewHttpClient(o.server))
}

func newSpacesCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spaces",
		Short: "List, show and delete spaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newSpacesListCommand(opts),
		newSpacesShowCommand(opts),
		newSpacesDeleteCommand(opts),
	)
	return cmd
}

func newSpacesListCommand(opts *options) *cobra.Command {
	var (
		filter model.SpaceFilter
		kind   string
		limit  int
		offset int64
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List spaces, optionally filtered",
		Example: `  spacectl spaces list --min-capacity 20 --type auditorio --search hall`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Type = model.SpaceType(kind)

			ctx, cancel := opts.context(cmd)
			defer cancel()

			spaces, err := opts.spaces().List(ctx, filter, limit, offset)
			if err != nil {
				return err
			}
			if len(spaces) == 0 {
				opts.out.muted("No spaces")
				return nil
			}
			for i := range spaces {
				printSpace(opts.out, &spaces[i])
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&filter.MinCapacity, "min-capacity", 0, "Minimum capacity")
	cmd.Flags().IntVar(&filter.MaxCapacity, "max-capacity", 0, "Maximum capacity")
	cmd.Flags().StringVar(&filter.Search, "search", "", "Match name or description")
	cmd.Flags().StringVar(&kind, "type", "", "Space type: sala, auditorio, conferencia or taller")
	cmd.Flags().IntVar(&limit, "limit", 50, "Page size")
	cmd.Flags().Int64Var(&offset, "offset", 0, "Page offset")
	return cmd
}

func newSpacesShowCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <space-id>",
		Short: "Show a space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			space, err := opts.spaces().GetByID(ctx, args[0])
			if err != nil {
				return err
			}
			printSpace(opts.out, space)
			return nil
		},
	}
}

func newSpacesDeleteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <space-id>",
		Short: "Delete a space without upcoming reservations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			if err := opts.spaces().Delete(ctx, args[0]); err != nil {
				return err
			}
			opts.out.success("Deleted %s", args[0])
			return nil
		},
	}
}

func printSpace(p printer, s *model.Space) {
	p.info("%s  %s  %s  capacity=%d  %s-%s %s",
		s.ID,
		s.Name,
		s.Type,
		s.Capacity,
		s.OpenTime,
		s.CloseTime,
		s.TimeZone,
	)
}
